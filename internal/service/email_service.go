package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/vhvplatform/go-recovery-notifier/internal/domain"
	"github.com/vhvplatform/go-recovery-notifier/internal/metrics"
	"github.com/vhvplatform/go-recovery-notifier/internal/shared/logger"
)

// Reason reported when a send is skipped for lack of credentials
const ReasonMissingCredentials = "mail credentials not configured"

var errNoTransport = errors.New("no mail transport configured")

// Transport submits a single message for delivery and returns the
// transport's acknowledgment
type Transport interface {
	Send(ctx context.Context, msg *domain.EmailMessage) (string, error)
}

// EmailConfig holds email service configuration
type EmailConfig struct {
	Username string
	Password string
	From     string
}

// EmailService handles best-effort email notifications
type EmailService struct {
	config    EmailConfig
	transport Transport
	mailLog   *MailLog
	log       *logger.Logger
}

// NewEmailService creates a new email service
func NewEmailService(config EmailConfig, transport Transport, mailLog *MailLog, log *logger.Logger) *EmailService {
	return &EmailService{
		config:    config,
		transport: transport,
		mailLog:   mailLog,
		log:       log,
	}
}

// SendEmail attempts to deliver one plain-text email.
// It never returns an error: the caller inspects the outcome, and every
// branch is also recorded in the mail log.
func (s *EmailService) SendEmail(ctx context.Context, to, subject, body string) domain.Outcome {
	outcome := domain.Outcome{ID: uuid.NewString()}

	if s.config.Username == "" || s.config.Password == "" {
		s.record(fmt.Sprintf("WARNING: email credentials not configured, skipping email to %s", to))
		s.log.Warn("Email credentials missing, skipping send", "id", outcome.ID, "recipient", to)

		outcome.Status = domain.OutcomeSkipped
		outcome.Reason = ReasonMissingCredentials
		metrics.EmailOutcomes.WithLabelValues(string(outcome.Status)).Inc()
		return outcome
	}

	msg := &domain.EmailMessage{
		From:    s.config.From,
		To:      to,
		Subject: subject,
		Body:    body,
	}

	s.record(fmt.Sprintf("Attempting to send email to %s with subject %q", to, subject))

	ack, err := s.deliver(ctx, msg)
	if err != nil {
		s.record(fmt.Sprintf("ERROR: failed to send email to %s: %v", to, err))
		s.record(fmt.Sprintf("ERROR details: type=%T from=%s to=%s subject=%q", err, msg.From, to, subject))
		s.log.Error("Failed to send email", "error", err, "id", outcome.ID, "recipient", to)

		outcome.Status = domain.OutcomeFailed
		outcome.Err = err
		metrics.EmailOutcomes.WithLabelValues(string(outcome.Status)).Inc()
		return outcome
	}

	s.record(fmt.Sprintf("Email sent to %s: %s", to, ack))
	s.log.Info("Email sent", "id", outcome.ID, "recipient", to, "ack", ack)

	outcome.Status = domain.OutcomeSent
	outcome.Ack = ack
	metrics.EmailOutcomes.WithLabelValues(string(outcome.Status)).Inc()
	return outcome
}

// deliver hands the message to the transport, turning a panic into an error
func (s *EmailService) deliver(ctx context.Context, msg *domain.EmailMessage) (ack string, err error) {
	if s.transport == nil {
		return "", errNoTransport
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("mail transport panicked: %v", r)
		}
	}()

	return s.transport.Send(ctx, msg)
}

// record appends a line to the mail log; write failures go to the service log
func (s *EmailService) record(line string) {
	if s.mailLog == nil {
		return
	}
	if err := s.mailLog.Append(line); err != nil {
		s.log.Error("Failed to write mail log", "error", err, "path", s.mailLog.Path())
	}
}
