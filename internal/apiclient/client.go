package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/vhvplatform/go-recovery-notifier/internal/metrics"
	"github.com/vhvplatform/go-recovery-notifier/internal/shared/logger"
)

// Error is returned for every non-2xx response.
// Message is the server's "error" field when present, otherwise a generic
// message naming the status code.
type Error struct {
	Status  int
	Message string
}

// Error implements the error interface
func (e *Error) Error() string {
	return e.Message
}

// Client issues JSON and multipart requests against one backend base URL
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *logger.Logger
}

// NewClient creates a client for baseURL. No timeout is applied; callers
// bound requests through their context.
func NewClient(baseURL string, log *logger.Logger) *Client {
	return NewClientWithHTTPClient(baseURL, &http.Client{}, log)
}

// NewClientWithHTTPClient creates a client using the given http.Client
func NewClientWithHTTPClient(baseURL string, httpClient *http.Client, log *logger.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		log:        log,
	}
}

// BaseURL returns the configured base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Get issues a GET request
func (c *Client) Get(ctx context.Context, endpoint string, headers map[string]string) (json.RawMessage, error) {
	return c.Request(ctx, endpoint, http.MethodGet, nil, headers)
}

// Post issues a POST request
func (c *Client) Post(ctx context.Context, endpoint string, body any, headers map[string]string) (json.RawMessage, error) {
	return c.Request(ctx, endpoint, http.MethodPost, body, headers)
}

// Put issues a PUT request
func (c *Client) Put(ctx context.Context, endpoint string, body any, headers map[string]string) (json.RawMessage, error) {
	return c.Request(ctx, endpoint, http.MethodPut, body, headers)
}

// Delete issues a DELETE request
func (c *Client) Delete(ctx context.Context, endpoint string, headers map[string]string) (json.RawMessage, error) {
	return c.Request(ctx, endpoint, http.MethodDelete, nil, headers)
}

// Request sends method to baseURL+endpoint and returns the raw JSON body.
// A 204 response yields a nil body and a nil error.
//
// Body handling:
//   - nil: no body
//   - *MultipartBody: sent with the form's own boundary Content-Type; any
//     caller Content-Type is ignored
//   - string, []byte: sent verbatim without a Content-Type
//   - anything else: JSON-encoded with Content-Type: application/json
func (c *Client) Request(ctx context.Context, endpoint, method string, body any, headers map[string]string) (json.RawMessage, error) {
	if method == "" {
		method = http.MethodGet
	}

	reader, contentType, multipart, err := encodeBody(body)
	if err != nil {
		return nil, err
	}

	url := c.joinURL(endpoint)
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if contentType != "" && !multipart {
		req.Header.Set("Content-Type", contentType)
	}
	for key, value := range headers {
		if multipart && http.CanonicalHeaderKey(key) == "Content-Type" {
			continue
		}
		req.Header.Set(key, value)
	}
	if multipart {
		req.Header.Set("Content-Type", contentType)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.APIRequestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.APIRequests.WithLabelValues(method, "error").Inc()
		c.log.Error("API request failed", "error", err, "method", method, "url", url)
		return nil, fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	metrics.APIRequests.WithLabelValues(method, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := decodeError(resp)
		c.log.Error("API request returned error status", "status", resp.StatusCode, "message", apiErr.Message, "method", method, "url", url)
		return nil, apiErr
	}

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		c.log.Error("Failed to read API response", "error", err, "method", method, "url", url)
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("failed to decode response from %s %s: invalid JSON", method, endpoint)
	}

	return json.RawMessage(data), nil
}

func (c *Client) joinURL(endpoint string) string {
	if strings.HasSuffix(c.baseURL, "/") && strings.HasPrefix(endpoint, "/") {
		return c.baseURL + endpoint[1:]
	}
	return c.baseURL + endpoint
}

func encodeBody(body any) (reader io.Reader, contentType string, multipart bool, err error) {
	switch b := body.(type) {
	case nil:
		return nil, "", false, nil
	case *MultipartBody:
		return bytes.NewReader(b.data), b.contentType, true, nil
	case string:
		return strings.NewReader(b), "", false, nil
	case []byte:
		return bytes.NewReader(b), "", false, nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, "", false, fmt.Errorf("failed to marshal request body: %w", err)
		}
		return bytes.NewReader(data), "application/json", false, nil
	}
}

func decodeError(resp *http.Response) *Error {
	var payload struct {
		Error string `json:"error"`
	}
	if data, err := io.ReadAll(resp.Body); err == nil {
		if json.Unmarshal(data, &payload) == nil && payload.Error != "" {
			return &Error{Status: resp.StatusCode, Message: payload.Error}
		}
	}
	return &Error{
		Status:  resp.StatusCode,
		Message: fmt.Sprintf("Request failed with status %d", resp.StatusCode),
	}
}
