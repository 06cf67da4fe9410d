package service

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// MailLog appends timestamped lines to a plain text file.
// The file is opened for every line so concurrent senders never share a handle;
// each line goes out in a single write on an O_APPEND descriptor.
type MailLog struct {
	path string
	now  func() time.Time
}

// NewMailLog creates a mail log writing to path
func NewMailLog(path string) *MailLog {
	return &MailLog{path: path, now: time.Now}
}

// Path returns the log file path
func (l *MailLog) Path() string {
	return l.path
}

// Append writes "[<timestamp>] <message>" as one line
func (l *MailLog) Append(message string) error {
	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open mail log: %w", err)
	}
	defer f.Close()

	line := fmt.Sprintf("[%s] %s\n", l.now().UTC().Format(time.RFC3339Nano), message)
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("failed to write mail log: %w", err)
	}
	return nil
}
