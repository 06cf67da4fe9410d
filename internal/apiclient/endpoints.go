package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"
)

// ChangePasswordRequest is the body of POST /auth/change-password
type ChangePasswordRequest struct {
	Email           string `json:"email" binding:"required,email"`
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required"`
}

// MessageResponse is a plain acknowledgment from the backend
type MessageResponse struct {
	Message string `json:"message"`
}

// RecoveryGuide is a recovery guide as returned by GET /recovery-guides/:id
type RecoveryGuide struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Category    string     `json:"category,omitempty"`
	Steps       []string   `json:"steps,omitempty"`
	ImageURL    string     `json:"imageUrl,omitempty"`
	CreatedAt   *time.Time `json:"createdAt,omitempty"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

// ChangePassword changes the password of the account identified by req.Email
func (c *Client) ChangePassword(ctx context.Context, req ChangePasswordRequest) (*MessageResponse, error) {
	raw, err := c.Post(ctx, "/auth/change-password", req, nil)
	if err != nil {
		return nil, err
	}

	var resp MessageResponse
	if err := decode(raw, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetRecoveryGuide fetches one recovery guide by ID
func (c *Client) GetRecoveryGuide(ctx context.Context, id string) (*RecoveryGuide, error) {
	if id == "" {
		return nil, fmt.Errorf("recovery guide id is required")
	}

	raw, err := c.Get(ctx, "/recovery-guides/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, fmt.Errorf("recovery guide %s: empty response", id)
	}

	var guide RecoveryGuide
	if err := decode(raw, &guide); err != nil {
		return nil, err
	}
	return &guide, nil
}

// decode unmarshals raw into out; a nil body leaves out untouched
func decode(raw json.RawMessage, out any) error {
	if raw == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
