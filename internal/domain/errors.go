package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// RelayError is a business-condition failure that maps onto a stable error
// code and HTTP status in the wire response.
type RelayError struct {
	Code    string
	Message string
	Status  int
}

func (e *RelayError) Error() string {
	return e.Message
}

// Is makes two relay errors with the same code match under errors.Is, so
// sentinel instances can be wrapped with extra context.
func (e *RelayError) Is(target error) bool {
	var re *RelayError
	if errors.As(target, &re) {
		return e.Code == re.Code
	}
	return false
}

var (
	// ErrNoChannelAvailable signals that no enabled channel serves the
	// requested model.
	ErrNoChannelAvailable = &RelayError{
		Code:    "no_channel_available",
		Message: "no available channel for the requested model",
		Status:  http.StatusServiceUnavailable,
	}

	// ErrModelNotAllowed signals that the token's allow-list excludes the
	// requested model.
	ErrModelNotAllowed = &RelayError{
		Code:    "model_not_allowed",
		Message: "the requested model is not allowed for this key",
		Status:  http.StatusForbidden,
	}

	// ErrUpstreamUnreachable signals a network-level dispatch failure.
	ErrUpstreamUnreachable = &RelayError{
		Code:    "upstream_unreachable",
		Message: "failed to reach the upstream provider",
		Status:  http.StatusBadGateway,
	}
)

// InvalidRequest builds a 400 relay error for a malformed request.
func InvalidRequest(format string, args ...any) *RelayError {
	return &RelayError{
		Code:    "invalid_request_error",
		Message: fmt.Sprintf(format, args...),
		Status:  http.StatusBadRequest,
	}
}
