// Package api provides the HTTP surface of the admission layer: the uniform
// response envelope and the operator endpoints (health, stats, unblock).
package api

import (
	"encoding/json"
	"net/http"

	"payment-gateway/internal/common/errors"
	"payment-gateway/internal/common/logging"
)

// ErrorBody is the error half of the uniform envelope.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Envelope is the uniform response shape for every endpoint behind the
// admission layer.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
}

// WriteJSON writes a success envelope with the given payload.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(Envelope{Success: true, Data: data}); err != nil {
		logging.Error("Failed to encode response", err)
	}
}

// WriteError maps err onto the uniform error envelope. Admission rejections
// become 429, authentication failures 401, malformed input 400; anything
// unexpected is reported as a 500 with a generic message.
func WriteError(w http.ResponseWriter, err error) {
	status := errors.HTTPStatus(err)
	code := errors.GetCode(err)

	message := "internal server error"
	if appErr, ok := err.(*errors.AppError); ok {
		message = appErr.Message
	}
	if status == http.StatusInternalServerError {
		// Never leak internal detail to the caller.
		message = "internal server error"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	encodeErr := json.NewEncoder(w).Encode(Envelope{
		Success: false,
		Error:   &ErrorBody{Code: code, Message: message},
	})
	if encodeErr != nil {
		logging.Error("Failed to encode error response", encodeErr)
	}
}
