package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
)

func TestChangePassword(t *testing.T) {
	client, captured := newTestServer(t, http.StatusOK, `{"message":"Password changed successfully"}`)

	resp, err := client.ChangePassword(context.Background(), ChangePasswordRequest{
		Email:           "a@b.com",
		CurrentPassword: "x",
		NewPassword:     "y",
	})
	if err != nil {
		t.Fatalf("ChangePassword() error = %v", err)
	}
	if resp.Message != "Password changed successfully" {
		t.Errorf("Message = %q", resp.Message)
	}

	var sent map[string]string
	if err := json.Unmarshal(captured.Body, &sent); err != nil {
		t.Fatalf("request body is not JSON: %v", err)
	}
	want := map[string]string{"email": "a@b.com", "currentPassword": "x", "newPassword": "y"}
	for k, v := range want {
		if sent[k] != v {
			t.Errorf("body[%s] = %q, want %q", k, sent[k], v)
		}
	}
}

func TestChangePassword_InvalidCurrentPassword(t *testing.T) {
	client, _ := newTestServer(t, http.StatusBadRequest, `{"error":"Invalid current password"}`)

	_, err := client.ChangePassword(context.Background(), ChangePasswordRequest{
		Email:           "a@b.com",
		CurrentPassword: "x",
		NewPassword:     "y",
	})

	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.Message != "Invalid current password" {
		t.Errorf("error = %v, want Invalid current password", err)
	}
}

func TestChangePassword_NoContent(t *testing.T) {
	client, _ := newTestServer(t, http.StatusNoContent, "")

	resp, err := client.ChangePassword(context.Background(), ChangePasswordRequest{Email: "a@b.com"})
	if err != nil {
		t.Fatalf("ChangePassword() error = %v", err)
	}
	if resp.Message != "" {
		t.Errorf("Message = %q, want empty", resp.Message)
	}
}

func TestGetRecoveryGuide(t *testing.T) {
	client, captured := newTestServer(t, http.StatusOK, `{
		"id": "guide 42",
		"title": "After a flood",
		"description": "Steps to take once water recedes",
		"steps": ["Turn off power", "Document damage"],
		"createdAt": "2026-10-01T08:00:00Z"
	}`)

	guide, err := client.GetRecoveryGuide(context.Background(), "guide 42")
	if err != nil {
		t.Fatalf("GetRecoveryGuide() error = %v", err)
	}

	if captured.Path != "/recovery-guides/guide 42" {
		t.Errorf("Path = %q", captured.Path)
	}
	if guide.Title != "After a flood" || len(guide.Steps) != 2 {
		t.Errorf("unexpected guide: %+v", guide)
	}
	if guide.CreatedAt == nil || guide.CreatedAt.Year() != 2026 {
		t.Errorf("CreatedAt = %v", guide.CreatedAt)
	}
}

func TestGetRecoveryGuide_Errors(t *testing.T) {
	tests := []struct {
		name   string
		id     string
		status int
		body   string
	}{
		{"empty id", "", http.StatusOK, `{}`},
		{"not found", "missing", http.StatusNotFound, `{"error":"Recovery guide not found"}`},
		{"no content", "gone", http.StatusNoContent, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestServer(t, tt.status, tt.body)

			if _, err := client.GetRecoveryGuide(context.Background(), tt.id); err == nil {
				t.Error("GetRecoveryGuide() expected error")
			}
		})
	}
}
