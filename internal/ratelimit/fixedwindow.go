package ratelimit

import (
	"context"
	"fmt"
	"net/http"

	"payment-gateway/internal/api"
	"payment-gateway/internal/common/errors"
	"payment-gateway/internal/common/logging"
)

// KeyFunc resolves the quota owner for a request.
type KeyFunc func(r *http.Request) string

// FixedWindowLimiter applies one named policy as a pure fixed-window counter
// keyed by client.
type FixedWindowLimiter struct {
	policy Policy
	store  CounterStore
	logger logging.Logger
}

// NewFixedWindow creates a limiter for the given policy.
func NewFixedWindow(policy Policy, store CounterStore, logger logging.Logger) *FixedWindowLimiter {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	return &FixedWindowLimiter{
		policy: policy,
		store:  store,
		logger: logger,
	}
}

// Policy returns the limiter's static configuration.
func (l *FixedWindowLimiter) Policy() Policy {
	return l.policy
}

func (l *FixedWindowLimiter) counterKey(clientKey string) string {
	return fmt.Sprintf("%s:%s", l.policy.Name, clientKey)
}

func (l *FixedWindowLimiter) rejection() *errors.AppError {
	return errors.RateLimitError(l.policy.Code,
		fmt.Sprintf("too many requests, retry in up to %s", l.policy.Window)).
		WithContext("policy", l.policy.Name)
}

// Allow charges one request against the quota and reports whether it fits
// the window. Only meaningful for CountAll policies; CountFailures policies
// are driven through the middleware, which observes response status.
func (l *FixedWindowLimiter) Allow(ctx context.Context, clientKey string) error {
	count, err := l.store.Incr(ctx, l.counterKey(clientKey), l.policy.Window)
	if err != nil {
		return errors.InternalError("rate limit counter unavailable", err)
	}

	if count > l.policy.Max {
		return l.rejection()
	}
	return nil
}

// RecordFailure charges one failed request against a CountFailures quota.
func (l *FixedWindowLimiter) RecordFailure(ctx context.Context, clientKey string) {
	if _, err := l.store.Incr(ctx, l.counterKey(clientKey), l.policy.Window); err != nil {
		l.logger.Error("Failed to record failed attempt", err,
			logging.String("policy", l.policy.Name),
			logging.String("client", clientKey),
		)
	}
}

// overQuota reports whether the client has already exhausted a
// CountFailures quota.
func (l *FixedWindowLimiter) overQuota(ctx context.Context, clientKey string) (bool, error) {
	count, err := l.store.Peek(ctx, l.counterKey(clientKey), l.policy.Window)
	if err != nil {
		return false, err
	}
	return count >= l.policy.Max, nil
}

// Middleware gates requests with this policy. For CountAll policies the
// request is charged up front; for CountFailures policies the quota is
// checked up front and charged only when the wrapped handler finishes with
// an error status.
func (l *FixedWindowLimiter) Middleware(keyFunc KeyFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if l.policy.Exempt != nil && l.policy.Exempt(r) {
				next.ServeHTTP(w, r)
				return
			}

			clientKey := keyFunc(r)
			ctx := r.Context()

			if l.policy.Mode == CountFailures {
				over, err := l.overQuota(ctx, clientKey)
				if err != nil {
					// Counter backend trouble must not take the API down.
					l.logger.Error("Rate limit check failed, admitting request", err,
						logging.String("policy", l.policy.Name))
					next.ServeHTTP(w, r)
					return
				}
				if over {
					api.WriteError(w, l.rejection())
					return
				}

				recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
				next.ServeHTTP(recorder, r)

				if recorder.status >= http.StatusBadRequest {
					l.RecordFailure(ctx, clientKey)
				}
				return
			}

			if err := l.Allow(ctx, clientKey); err != nil {
				if errors.IsType(err, errors.ErrTypeRateLimit) {
					api.WriteError(w, err)
					return
				}
				l.logger.Error("Rate limit check failed, admitting request", err,
					logging.String("policy", l.policy.Name))
			}

			next.ServeHTTP(w, r)
		})
	}
}

// statusRecorder captures the status code written by the wrapped handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}
