package domain

import "time"

// EmailMessage is a single plain-text email built per notifier call
type EmailMessage struct {
	From    string
	To      string
	Subject string
	Body    string
}

// OutcomeStatus represents the result of a notification attempt
type OutcomeStatus string

const (
	OutcomeSent    OutcomeStatus = "sent"
	OutcomeSkipped OutcomeStatus = "skipped"
	OutcomeFailed  OutcomeStatus = "failed"
)

// Outcome is what a notification attempt resolved to.
// Reason is set for skipped outcomes, Err for failed ones and Ack for sent ones.
type Outcome struct {
	ID     string
	Status OutcomeStatus
	Reason string
	Ack    string
	Err    error
}

// EventType represents the type of auth event
type EventType string

const (
	EventPasswordChanged EventType = "user.password_changed"
	EventPasswordReset   EventType = "user.password_reset"
)

// Event represents an auth event from RabbitMQ
type Event struct {
	Type      EventType      `json:"type"`
	UserID    string         `json:"user_id,omitempty"`
	Email     string         `json:"email,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}
