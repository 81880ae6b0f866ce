package domain

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestRelayErrorIsMatchesByCode(t *testing.T) {
	wrapped := fmt.Errorf("resolve channels: %w", ErrNoChannelAvailable)
	if !errors.Is(wrapped, ErrNoChannelAvailable) {
		t.Error("wrapped sentinel does not match under errors.Is")
	}

	other := &RelayError{Code: "no_channel_available", Message: "different text", Status: 503}
	if !errors.Is(other, ErrNoChannelAvailable) {
		t.Error("same code must match regardless of message")
	}

	if errors.Is(ErrModelNotAllowed, ErrNoChannelAvailable) {
		t.Error("distinct codes must not match")
	}
}

func TestInvalidRequest(t *testing.T) {
	err := InvalidRequest("field %q is required", "model")
	if err.Status != http.StatusBadRequest {
		t.Errorf("Status = %d, want 400", err.Status)
	}
	if err.Code != "invalid_request_error" {
		t.Errorf("Code = %q", err.Code)
	}
	if err.Message != `field "model" is required` {
		t.Errorf("Message = %q", err.Message)
	}
}
