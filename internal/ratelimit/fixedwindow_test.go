package ratelimit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"payment-gateway/internal/api"
	"payment-gateway/internal/common/errors"
)

func clientFromHeader(r *http.Request) string {
	return r.Header.Get("X-Forwarded-For")
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) api.Envelope {
	t.Helper()
	var envelope api.Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("Failed to decode envelope: %v (body %q)", err, rec.Body.String())
	}
	return envelope
}

func doRequest(handler http.Handler, client string) *httptest.ResponseRecorder {
	r := httptest.NewRequest("POST", "/api/payments", nil)
	r.Header.Set("X-Forwarded-For", client)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, r)
	return rec
}

func TestPaymentPolicyRejectsOverQuota(t *testing.T) {
	limiter := NewFixedWindow(PaymentPolicy(), NewMemoryStore(), nil)
	handler := limiter.Middleware(clientFromHeader)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 10; i++ {
		if rec := doRequest(handler, "10.0.0.1"); rec.Code != http.StatusOK {
			t.Fatalf("Request %d should pass, got %d", i, rec.Code)
		}
	}

	rec := doRequest(handler, "10.0.0.1")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("Expected 429, got %d", rec.Code)
	}
	envelope := decodeEnvelope(t, rec)
	if envelope.Success {
		t.Error("Envelope should report failure")
	}
	if envelope.Error.Code != errors.CodePaymentRateLimit {
		t.Errorf("Expected code %s, got %s", errors.CodePaymentRateLimit, envelope.Error.Code)
	}

	// Another client is unaffected.
	if rec := doRequest(handler, "10.0.0.2"); rec.Code != http.StatusOK {
		t.Errorf("Unrelated client should pass, got %d", rec.Code)
	}
}

func TestGlobalPolicyExemptsHealthCheck(t *testing.T) {
	limiter := NewFixedWindow(GlobalPolicy(), NewMemoryStore(), nil)
	handler := limiter.Middleware(clientFromHeader)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 150; i++ {
		r := httptest.NewRequest("GET", "/health", nil)
		r.Header.Set("X-Forwarded-For", "10.0.0.1")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, r)
		if rec.Code != http.StatusOK {
			t.Fatalf("Health check %d should be exempt, got %d", i, rec.Code)
		}
	}
}

func TestAuthPolicyCountsOnlyFailures(t *testing.T) {
	limiter := NewFixedWindow(AuthPolicy(), NewMemoryStore(), nil)

	// The handler fails unless the request carries the right password.
	handler := limiter.Middleware(clientFromHeader)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Password") != "correct" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	attempt := func(password string) *httptest.ResponseRecorder {
		r := httptest.NewRequest("POST", "/api/auth/login", nil)
		r.Header.Set("X-Forwarded-For", "10.0.0.1")
		r.Header.Set("X-Password", password)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, r)
		return rec
	}

	// Four failures, then a success that must not count.
	for i := 0; i < 4; i++ {
		if rec := attempt("wrong"); rec.Code != http.StatusUnauthorized {
			t.Fatalf("Failed attempt %d should reach the handler, got %d", i, rec.Code)
		}
	}
	if rec := attempt("correct"); rec.Code != http.StatusOK {
		t.Fatalf("Successful attempt should pass, got %d", rec.Code)
	}

	// Fifth failure exhausts the quota; the next attempt is rejected up
	// front regardless of credentials.
	if rec := attempt("wrong"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("Fifth failure should reach the handler, got %d", rec.Code)
	}

	rec := attempt("correct")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("Expected 429 after five failures, got %d", rec.Code)
	}
	envelope := decodeEnvelope(t, rec)
	if envelope.Error.Code != errors.CodeAuthRateLimit {
		t.Errorf("Expected code %s, got %s", errors.CodeAuthRateLimit, envelope.Error.Code)
	}
}

func TestWebhookPolicyBudget(t *testing.T) {
	limiter := NewFixedWindow(WebhookPolicy(), NewMemoryStore(), nil)
	handler := limiter.Middleware(clientFromHeader)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 200; i++ {
		if rec := doRequest(handler, "10.0.0.1"); rec.Code != http.StatusOK {
			t.Fatalf("Webhook %d should pass, got %d", i, rec.Code)
		}
	}

	rec := doRequest(handler, "10.0.0.1")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("Expected 429, got %d", rec.Code)
	}
	if envelope := decodeEnvelope(t, rec); envelope.Error.Code != errors.CodeWebhookRateLimit {
		t.Errorf("Expected code %s, got %s", errors.CodeWebhookRateLimit, envelope.Error.Code)
	}
}

func TestPolicyInfo(t *testing.T) {
	info := AuthPolicy().Info()

	if info.Name != "auth" || info.Max != 5 {
		t.Errorf("Unexpected policy info: %+v", info)
	}
	if info.WindowMs != 15*60*1000 {
		t.Errorf("Expected 15m window, got %dms", info.WindowMs)
	}
	if info.Counts != "failures_only" {
		t.Errorf("Expected failures_only, got %s", info.Counts)
	}
}
