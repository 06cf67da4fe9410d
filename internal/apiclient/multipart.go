package apiclient

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"sort"
)

// FormFile is a file part of a multipart form
type FormFile struct {
	FieldName string
	FileName  string
	Content   io.Reader
}

// MultipartBody is an encoded multipart/form-data payload
type MultipartBody struct {
	data        []byte
	contentType string
}

// ContentType returns the form's Content-Type including its boundary
func (b *MultipartBody) ContentType() string {
	return b.contentType
}

// NewMultipartBody encodes fields and files as multipart/form-data
func NewMultipartBody(fields map[string]string, files []FormFile) (*MultipartBody, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if err := w.WriteField(k, fields[k]); err != nil {
			return nil, fmt.Errorf("failed to write field %s: %w", k, err)
		}
	}

	for _, f := range files {
		part, err := w.CreateFormFile(f.FieldName, f.FileName)
		if err != nil {
			return nil, fmt.Errorf("failed to create form file %s: %w", f.FileName, err)
		}
		if _, err := io.Copy(part, f.Content); err != nil {
			return nil, fmt.Errorf("failed to copy form file %s: %w", f.FileName, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	return &MultipartBody{
		data:        buf.Bytes(),
		contentType: w.FormDataContentType(),
	}, nil
}
