package ratelimit

import (
	"net/http"
	"strings"
	"time"

	"payment-gateway/internal/common/errors"
	"payment-gateway/internal/common/logging"
)

// DynamicLimiter selects between a test-mode and a live-mode preset based on
// the caller's API key, evaluated once per request from the key's literal
// prefix. Test keys get the tighter budget.
type DynamicLimiter struct {
	test *FixedWindowLimiter
	live *FixedWindowLimiter
}

// NewDynamic creates a dynamic limiter with the 20/min test and 60/min live
// presets sharing one counter store.
func NewDynamic(store CounterStore, logger logging.Logger) *DynamicLimiter {
	testPolicy := Policy{
		Name:   "dynamic_test",
		Window: time.Minute,
		Max:    20,
		Mode:   CountAll,
		Code:   errors.CodeRateLimitExceeded,
	}
	livePolicy := Policy{
		Name:   "dynamic_live",
		Window: time.Minute,
		Max:    60,
		Mode:   CountAll,
		Code:   errors.CodeRateLimitExceeded,
	}

	return &DynamicLimiter{
		test: NewFixedWindow(testPolicy, store, logger),
		live: NewFixedWindow(livePolicy, store, logger),
	}
}

// limiterFor picks the preset for a request from the raw API key header.
// Anything that is not recognizably a live key gets the test budget.
func (d *DynamicLimiter) limiterFor(r *http.Request) *FixedWindowLimiter {
	if strings.Contains(r.Header.Get("X-API-Key"), "_live_") {
		return d.live
	}
	return d.test
}

// Middleware gates requests with the preset matching their API key mode.
func (d *DynamicLimiter) Middleware(keyFunc KeyFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		testHandler := d.test.Middleware(keyFunc)(next)
		liveHandler := d.live.Middleware(keyFunc)(next)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if d.limiterFor(r) == d.live {
				liveHandler.ServeHTTP(w, r)
				return
			}
			testHandler.ServeHTTP(w, r)
		})
	}
}

// Policies returns the static configuration of both presets.
func (d *DynamicLimiter) Policies() []PolicyInfo {
	return []PolicyInfo{d.test.Policy().Info(), d.live.Policy().Info()}
}
