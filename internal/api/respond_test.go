package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"payment-gateway/internal/common/errors"
)

func decode(t *testing.T, w *httptest.ResponseRecorder) Envelope {
	t.Helper()

	var envelope Envelope
	if err := json.NewDecoder(w.Body).Decode(&envelope); err != nil {
		t.Fatalf("Failed to decode envelope: %v", err)
	}
	return envelope
}

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})

	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected JSON content type, got %q", ct)
	}
	envelope := decode(t, w)
	if !envelope.Success || envelope.Error != nil {
		t.Errorf("Expected success envelope, got %+v", envelope)
	}
}

func TestWriteErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "rate limit",
			err:        errors.RateLimitError(errors.CodePaymentRateLimit, "too many payment attempts"),
			wantStatus: http.StatusTooManyRequests,
			wantCode:   errors.CodePaymentRateLimit,
		},
		{
			name:       "auth",
			err:        errors.AuthError(errors.CodeInvalidSignature, "request signature does not match"),
			wantStatus: http.StatusUnauthorized,
			wantCode:   errors.CodeInvalidSignature,
		},
		{
			name:       "validation",
			err:        errors.ValidationError("client_key is required"),
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "internal",
			err:        errors.InternalError("store exploded", nil),
			wantStatus: http.StatusInternalServerError,
			wantCode:   errors.CodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(w, tt.err)

			if w.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, w.Code)
			}
			envelope := decode(t, w)
			if envelope.Success {
				t.Error("Error envelope should not be successful")
			}
			if tt.wantCode != "" && envelope.Error.Code != tt.wantCode {
				t.Errorf("Expected code %s, got %s", tt.wantCode, envelope.Error.Code)
			}
		})
	}
}

func TestWriteErrorHidesInternalDetail(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, errors.InternalError("pgx: connection refused to 10.0.0.1", nil))

	envelope := decode(t, w)
	if envelope.Error.Message != "internal server error" {
		t.Errorf("Internal detail leaked to the caller: %q", envelope.Error.Message)
	}
}
