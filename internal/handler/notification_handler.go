package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vhvplatform/go-recovery-notifier/internal/domain"
	"github.com/vhvplatform/go-recovery-notifier/internal/shared/errors"
	"github.com/vhvplatform/go-recovery-notifier/internal/shared/logger"
)

// Notifier sends a best-effort email and reports what happened
type Notifier interface {
	SendEmail(ctx context.Context, to, subject, body string) domain.Outcome
}

// NotificationHandler handles HTTP requests for notifications
type NotificationHandler struct {
	notifier Notifier
	log      *logger.Logger
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(notifier Notifier, log *logger.Logger) *NotificationHandler {
	return &NotificationHandler{
		notifier: notifier,
		log:      log,
	}
}

// SendEmail handles email notification requests.
// The outcome is the payload, so a failed delivery still answers 200.
func (h *NotificationHandler) SendEmail(c *gin.Context) {
	var req domain.SendEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.NewValidationError("Invalid request", err))
		return
	}

	outcome := h.notifier.SendEmail(c.Request.Context(), req.To, req.Subject, req.Body)
	if outcome.Status != domain.OutcomeSent {
		h.log.Warn("Email not delivered", "id", outcome.ID, "status", outcome.Status, "recipient", req.To)
	}

	c.JSON(http.StatusOK, domain.NewSendEmailResponse(outcome))
}

// Health reports liveness
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// Ready reports readiness
func Ready(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// NotFound answers unknown routes with a NOT_FOUND error body
func NotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, errors.NewNotFoundError("Route not found", nil))
}
