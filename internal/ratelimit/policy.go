// Package ratelimit implements the admission layer's named fixed-window
// policies and the cost-based point budget, applied as route middleware.
package ratelimit

import (
	"net/http"
	"time"

	"payment-gateway/internal/common/errors"
)

// CountMode selects which requests a policy counts against its quota.
type CountMode int

const (
	// CountAll counts every request.
	CountAll CountMode = iota
	// CountFailures counts only requests that finished with an error
	// status. Successful requests never consume quota.
	CountFailures
)

func (m CountMode) String() string {
	if m == CountFailures {
		return "failures_only"
	}
	return "all"
}

// Policy is an immutable fixed-window rate-limit definition. One instance
// exists per named policy for the process lifetime.
type Policy struct {
	Name   string
	Window time.Duration
	Max    int
	Mode   CountMode
	Code   string // rejection code surfaced in the error envelope

	// Exempt reports whether a request bypasses this policy entirely.
	Exempt func(r *http.Request) bool
}

// GlobalPolicy covers all traffic except the health check.
func GlobalPolicy() Policy {
	return Policy{
		Name:   "global",
		Window: 60 * time.Second,
		Max:    100,
		Mode:   CountAll,
		Code:   errors.CodeRateLimitExceeded,
		Exempt: func(r *http.Request) bool { return r.URL.Path == "/health" },
	}
}

// AuthPolicy throttles failed authentication attempts. Successful logins do
// not count toward the quota.
func AuthPolicy() Policy {
	return Policy{
		Name:   "auth",
		Window: 15 * time.Minute,
		Max:    5,
		Mode:   CountFailures,
		Code:   errors.CodeAuthRateLimit,
	}
}

// PaymentPolicy throttles payment operations.
func PaymentPolicy() Policy {
	return Policy{
		Name:   "payment",
		Window: 60 * time.Second,
		Max:    10,
		Mode:   CountAll,
		Code:   errors.CodePaymentRateLimit,
	}
}

// WebhookPolicy throttles inbound webhook deliveries.
func WebhookPolicy() Policy {
	return Policy{
		Name:   "webhook",
		Window: 60 * time.Second,
		Max:    200,
		Mode:   CountAll,
		Code:   errors.CodeWebhookRateLimit,
	}
}

// PolicyInfo is the static policy configuration exposed to the stats
// snapshot.
type PolicyInfo struct {
	Name     string `json:"name"`
	WindowMs int64  `json:"window_ms"`
	Max      int    `json:"max_requests"`
	Counts   string `json:"counts"`
}

// Info returns the policy's static configuration.
func (p Policy) Info() PolicyInfo {
	return PolicyInfo{
		Name:     p.Name,
		WindowMs: p.Window.Milliseconds(),
		Max:      p.Max,
		Counts:   p.Mode.String(),
	}
}
