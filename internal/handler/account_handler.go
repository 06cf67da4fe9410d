package handler

import (
	"context"
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/vhvplatform/go-recovery-notifier/internal/apiclient"
	"github.com/vhvplatform/go-recovery-notifier/internal/shared/errors"
	"github.com/vhvplatform/go-recovery-notifier/internal/shared/logger"
)

// BackendAPI is the subset of the backend client the account routes use
type BackendAPI interface {
	ChangePassword(ctx context.Context, req apiclient.ChangePasswordRequest) (*apiclient.MessageResponse, error)
	GetRecoveryGuide(ctx context.Context, id string) (*apiclient.RecoveryGuide, error)
}

// AccountHandler relays account and guide requests to the backend
type AccountHandler struct {
	api      BackendAPI
	notifier Notifier
	log      *logger.Logger
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(api BackendAPI, notifier Notifier, log *logger.Logger) *AccountHandler {
	return &AccountHandler{
		api:      api,
		notifier: notifier,
		log:      log,
	}
}

// ChangePassword forwards a password change and, on success, notifies the
// account owner without waiting for the email
func (h *AccountHandler) ChangePassword(c *gin.Context) {
	var req apiclient.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.NewValidationError("Invalid request", err))
		return
	}

	resp, err := h.api.ChangePassword(c.Request.Context(), req)
	if err != nil {
		h.respondBackendError(c, err)
		return
	}

	ctx := context.WithoutCancel(c.Request.Context())
	go func(to string) {
		outcome := h.notifier.SendEmail(ctx, to, "Your password was changed",
			"The password for your account was just changed. If you did not make this change, reset your password immediately and contact support.")
		h.log.Info("Password change notice processed", "id", outcome.ID, "status", outcome.Status)
	}(req.Email)

	c.JSON(http.StatusOK, resp)
}

// GetRecoveryGuide fetches a recovery guide by ID
func (h *AccountHandler) GetRecoveryGuide(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		c.JSON(http.StatusNotFound, errors.NewNotFoundError("Recovery guide not found", nil))
		return
	}

	guide, err := h.api.GetRecoveryGuide(c.Request.Context(), id)
	if err != nil {
		h.respondBackendError(c, err)
		return
	}

	c.JSON(http.StatusOK, guide)
}

// respondBackendError passes backend failures through with their status and
// message; anything else means the backend was unreachable
func (h *AccountHandler) respondBackendError(c *gin.Context, err error) {
	var apiErr *apiclient.Error
	if stderrors.As(err, &apiErr) {
		c.JSON(relayStatus(apiErr.Status), gin.H{"error": apiErr.Message})
		return
	}

	h.log.Error("Backend request failed", "error", err, "path", c.FullPath())
	c.JSON(http.StatusBadGateway, errors.NewInternalError("Backend unavailable", err))
}

// relayStatus keeps backend error statuses that can carry a body; anything
// below 400 is not an error the client can act on
func relayStatus(status int) int {
	if status < http.StatusBadRequest || status > 599 {
		return http.StatusBadGateway
	}
	return status
}
