package smtp

import (
	"context"
	"net"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/vhvplatform/go-recovery-notifier/internal/domain"
)

func TestBuildMessage(t *testing.T) {
	msg := &domain.EmailMessage{
		From:    "notifier@example.com",
		To:      "user@example.com",
		Subject: "Password changed",
		Body:    "Hello,\nyour password was changed.",
	}
	date := time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC)

	got := string(buildMessage(msg, "<id@example.com>", date))

	wantParts := []string{
		"From: notifier@example.com\r\n",
		"To: user@example.com\r\n",
		"Subject: Password changed\r\n",
		"Date: Sat, 17 Oct 2026 10:00:00 +0000\r\n",
		"Message-ID: <id@example.com>\r\n",
		"Content-Type: text/plain; charset=UTF-8\r\n",
		"\r\n\r\nHello,\r\nyour password was changed.",
	}
	for _, part := range wantParts {
		if !strings.Contains(got, part) {
			t.Errorf("message missing %q:\n%s", part, got)
		}
	}
}

func TestBuildMessage_HeaderInjection(t *testing.T) {
	msg := &domain.EmailMessage{
		From:    "notifier@example.com",
		To:      "user@example.com\r\nBcc: victim@example.com",
		Subject: "Hi\r\nBcc: other@example.com",
		Body:    "Body",
	}

	got := string(buildMessage(msg, "<id@example.com>", time.Now()))

	if strings.Contains(got, "\r\nBcc:") {
		t.Errorf("header injection not stripped:\n%s", got)
	}
}

func TestBuildMessage_EncodesNonASCIISubject(t *testing.T) {
	msg := &domain.EmailMessage{Subject: "Đổi mật khẩu"}

	got := string(buildMessage(msg, "<id@example.com>", time.Now()))

	if !strings.Contains(got, "Subject: =?utf-8?q?") {
		t.Errorf("subject not Q-encoded:\n%s", got)
	}
}

func TestDomainOf(t *testing.T) {
	tests := []struct {
		address string
		want    string
	}{
		{"notifier@example.com", "example.com"},
		{"Notifier <notifier@mail.example.com>", "mail.example.com"},
		{"no-at-sign", "smtp.example.com"},
		{"trailing@", "smtp.example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.address, func(t *testing.T) {
			if got := domainOf(tt.address, "smtp.example.com"); got != tt.want {
				t.Errorf("domainOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSend_ConnectionRefused(t *testing.T) {
	// Nothing listens on loopback port 1
	s := NewSender(SMTPConfig{Host: "127.0.0.1", Port: 1})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := s.Send(ctx, &domain.EmailMessage{From: "a@example.com", To: "b@example.com"})
	if err == nil {
		t.Fatal("Send() expected error for closed port")
	}
}

// fakeSMTPServer speaks just enough ESMTP for one submission per connection
type fakeSMTPServer struct {
	ln         net.Listener
	rejectAuth bool
	rejectRcpt bool

	mu       sync.Mutex
	commands []string
	data     string
}

func startFakeSMTPServer(t *testing.T, rejectAuth, rejectRcpt bool) *fakeSMTPServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	s := &fakeSMTPServer{ln: ln, rejectAuth: rejectAuth, rejectRcpt: rejectRcpt}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go s.serve(conn)
		}
	}()
	return s
}

func (s *fakeSMTPServer) port() int {
	return s.ln.Addr().(*net.TCPAddr).Port
}

func (s *fakeSMTPServer) serve(conn net.Conn) {
	defer conn.Close()
	tp := textproto.NewConn(conn)
	tp.PrintfLine("220 fake ESMTP ready")

	for {
		line, err := tp.ReadLine()
		if err != nil {
			return
		}
		s.mu.Lock()
		s.commands = append(s.commands, line)
		s.mu.Unlock()

		verb := strings.ToUpper(strings.SplitN(line, " ", 2)[0])
		switch verb {
		case "EHLO":
			tp.PrintfLine("250-fake.example.com")
			tp.PrintfLine("250 AUTH PLAIN")
		case "HELO":
			tp.PrintfLine("250 fake.example.com")
		case "AUTH":
			if s.rejectAuth {
				tp.PrintfLine("535 5.7.8 Authentication credentials invalid")
			} else {
				tp.PrintfLine("235 2.7.0 Authentication successful")
			}
		case "MAIL":
			tp.PrintfLine("250 2.1.0 OK")
		case "RCPT":
			if s.rejectRcpt {
				tp.PrintfLine("550 5.1.1 No such user")
			} else {
				tp.PrintfLine("250 2.1.5 OK")
			}
		case "DATA":
			tp.PrintfLine("354 End data with <CR><LF>.<CR><LF>")
			lines, err := tp.ReadDotLines()
			if err != nil {
				return
			}
			s.mu.Lock()
			s.data = strings.Join(lines, "\n")
			s.mu.Unlock()
			tp.PrintfLine("250 2.0.0 OK queued")
		case "QUIT":
			tp.PrintfLine("221 2.0.0 Bye")
			return
		default:
			tp.PrintfLine("502 5.5.2 Command not recognized")
		}
	}
}

func (s *fakeSMTPServer) seen(prefix string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.commands {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}

func (s *fakeSMTPServer) message() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data
}

func TestSend(t *testing.T) {
	tests := []struct {
		name       string
		from       string
		to         string
		rejectAuth bool
		rejectRcpt bool
		wantErr    string
		wantMail   string
		wantRcpt   string
	}{
		{
			name:     "bare addresses",
			from:     "no-reply@example.com",
			to:       "user@example.com",
			wantMail: "MAIL FROM:<no-reply@example.com>",
			wantRcpt: "RCPT TO:<user@example.com>",
		},
		{
			name:     "display names stay out of the envelope",
			from:     "Recovery <no-reply@example.com>",
			to:       "Jane Doe <user@example.com>",
			wantMail: "MAIL FROM:<no-reply@example.com>",
			wantRcpt: "RCPT TO:<user@example.com>",
		},
		{
			name:       "recipient rejected",
			from:       "no-reply@example.com",
			to:         "nobody@example.com",
			rejectRcpt: true,
			wantErr:    "failed to set recipient",
			wantMail:   "MAIL FROM:<no-reply@example.com>",
		},
		{
			name:       "authentication rejected",
			from:       "no-reply@example.com",
			to:         "user@example.com",
			rejectAuth: true,
			wantErr:    "SMTP authentication failed",
		},
		{
			name:    "invalid recipient address",
			from:    "no-reply@example.com",
			to:      "not an address",
			wantErr: "invalid recipient address",
		},
		{
			name:    "invalid sender address",
			from:    "Recovery <no-reply@example.com",
			to:      "user@example.com",
			wantErr: "invalid sender address",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := startFakeSMTPServer(t, tt.rejectAuth, tt.rejectRcpt)
			s := NewSender(SMTPConfig{
				Host:     "127.0.0.1",
				Port:     srv.port(),
				Username: "no-reply@example.com",
				Password: "secret",
			})

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			ack, err := s.Send(ctx, &domain.EmailMessage{
				From:    tt.from,
				To:      tt.to,
				Subject: "Password changed",
				Body:    "Your password was changed.",
			})

			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("Send() error = %v, want it to contain %q", err, tt.wantErr)
				}
				if ack != "" {
					t.Errorf("ack = %q on failure, want empty", ack)
				}
			} else {
				if err != nil {
					t.Fatalf("Send() error = %v", err)
				}
				if !strings.HasPrefix(ack, "<") || !strings.HasSuffix(ack, "@example.com>") {
					t.Errorf("ack = %q, want a Message-ID at example.com", ack)
				}
				msg := srv.message()
				if !strings.Contains(msg, "Message-ID: "+ack) {
					t.Errorf("Message-ID header does not match ack %q:\n%s", ack, msg)
				}
				if !strings.Contains(msg, "From: "+tt.from) {
					t.Errorf("From header lost the display name:\n%s", msg)
				}
				if !srv.seen("AUTH PLAIN") {
					t.Error("AUTH PLAIN was not sent")
				}
			}

			if tt.wantMail != "" && !srv.seen(tt.wantMail) {
				t.Errorf("server never saw %q", tt.wantMail)
			}
			if tt.wantRcpt != "" && !srv.seen(tt.wantRcpt) {
				t.Errorf("server never saw %q", tt.wantRcpt)
			}
		})
	}
}
