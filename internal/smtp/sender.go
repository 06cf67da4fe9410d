package smtp

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net"
	"net/mail"
	"net/smtp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vhvplatform/go-recovery-notifier/internal/domain"
)

// SMTPConfig holds SMTP configuration
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
}

// Sender submits messages to an SMTP server, one connection per message
type Sender struct {
	config SMTPConfig
	dialer *net.Dialer
}

// NewSender creates a new SMTP sender
func NewSender(config SMTPConfig) *Sender {
	return &Sender{
		config: config,
		dialer: &net.Dialer{},
	}
}

// Send delivers msg and returns its Message-ID as the acknowledgment
func (s *Sender) Send(ctx context.Context, msg *domain.EmailMessage) (string, error) {
	from, err := mail.ParseAddress(msg.From)
	if err != nil {
		return "", fmt.Errorf("invalid sender address %q: %w", msg.From, err)
	}
	to, err := mail.ParseAddress(msg.To)
	if err != nil {
		return "", fmt.Errorf("invalid recipient address %q: %w", msg.To, err)
	}

	messageID := fmt.Sprintf("<%s@%s>", uuid.NewString(), domainOf(from.Address, s.config.Host))
	data := buildMessage(msg, messageID, time.Now())

	addr := net.JoinHostPort(s.config.Host, fmt.Sprintf("%d", s.config.Port))

	conn, err := s.dial(ctx, addr)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return "", fmt.Errorf("failed to set deadline: %w", err)
		}
	}

	client, err := smtp.NewClient(conn, s.config.Host)
	if err != nil {
		return "", fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer client.Close()

	// Port 465 is already wrapped in TLS; everything else upgrades if offered
	if s.config.Port != 465 {
		if ok, _ := client.Extension("STARTTLS"); ok {
			tlsConfig := &tls.Config{
				ServerName: s.config.Host,
				MinVersion: tls.VersionTLS12,
			}
			if err := client.StartTLS(tlsConfig); err != nil {
				return "", fmt.Errorf("failed to start TLS: %w", err)
			}
		}
	}

	if s.config.Username != "" && s.config.Password != "" {
		auth := smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Host)
		if err := client.Auth(auth); err != nil {
			return "", fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}

	// The envelope takes the bare address; display names stay in the headers
	if err := client.Mail(from.Address); err != nil {
		return "", fmt.Errorf("failed to set sender: %w", err)
	}
	if err := client.Rcpt(to.Address); err != nil {
		return "", fmt.Errorf("failed to set recipient: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return "", fmt.Errorf("failed to get data writer: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return "", fmt.Errorf("failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to finish message: %w", err)
	}

	if err := client.Quit(); err != nil {
		return "", fmt.Errorf("failed to quit SMTP session: %w", err)
	}

	return messageID, nil
}

// dial opens a plain or implicit-TLS connection depending on the port
func (s *Sender) dial(ctx context.Context, addr string) (net.Conn, error) {
	if s.config.Port == 465 {
		tlsDialer := &tls.Dialer{
			NetDialer: s.dialer,
			Config: &tls.Config{
				ServerName: s.config.Host,
				MinVersion: tls.VersionTLS12,
			},
		}
		conn, err := tlsDialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("failed to dial TLS: %w", err)
		}
		return conn, nil
	}

	conn, err := s.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	return conn, nil
}

// buildMessage renders a plain-text RFC 5322 message
func buildMessage(msg *domain.EmailMessage, messageID string, date time.Time) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "From: %s\r\n", sanitizeHeader(msg.From))
	fmt.Fprintf(&buf, "To: %s\r\n", sanitizeHeader(msg.To))
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", sanitizeHeader(msg.Subject)))
	fmt.Fprintf(&buf, "Date: %s\r\n", date.Format(time.RFC1123Z))
	fmt.Fprintf(&buf, "Message-ID: %s\r\n", messageID)
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	buf.WriteString("\r\n")

	body := strings.ReplaceAll(msg.Body, "\r\n", "\n")
	buf.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))

	return buf.Bytes()
}

// sanitizeHeader strips line breaks so values cannot inject headers
func sanitizeHeader(v string) string {
	return strings.NewReplacer("\r", "", "\n", "").Replace(v)
}

func domainOf(address, fallback string) string {
	if at := strings.LastIndex(address, "@"); at >= 0 && at < len(address)-1 {
		return strings.Trim(address[at+1:], "> ")
	}
	return fallback
}
