package relay

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cheluen/new-api-workers/internal/domain"
)

// errorBody is the OpenAI-compatible error envelope.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

// WriteError maps a relay error onto the wire. Unknown errors become an
// opaque 500 so internals never leak to callers.
func WriteError(w http.ResponseWriter, err error) {
	var re *domain.RelayError
	if !errors.As(err, &re) {
		re = &domain.RelayError{
			Code:    "internal_error",
			Message: "internal server error",
			Status:  http.StatusInternalServerError,
		}
	}

	errType := "api_error"
	if re.Status >= 400 && re.Status < 500 {
		errType = "invalid_request_error"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(re.Status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: errorDetail{
		Message: re.Message,
		Type:    errType,
		Code:    re.Code,
	}})
}
