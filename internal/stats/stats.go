// Package stats assembles the operator-facing snapshot of the admission
// layer: guard state, rate-limit policies, and cost-budget configuration.
package stats

import (
	"time"

	"payment-gateway/internal/guard"
	"payment-gateway/internal/ratelimit"
)

// Snapshot is the payload of GET /api/admin/stats.
type Snapshot struct {
	Timestamp time.Time              `json:"timestamp"`
	Uptime    string                 `json:"uptime"`
	Guard     guard.Stats            `json:"ddos_guard"`
	Policies  []ratelimit.PolicyInfo `json:"rate_limit_policies"`
	Cost      ratelimit.CostStats    `json:"cost_budget"`
}

// Reporter collects snapshots from the admission components. All sources
// are read-only; taking a snapshot never perturbs limiter state.
type Reporter struct {
	guard    *guard.Guard
	limiters []*ratelimit.FixedWindowLimiter
	dynamic  *ratelimit.DynamicLimiter
	cost     *ratelimit.CostLimiter
	started  time.Time
	now      func() time.Time
}

// NewReporter creates a Reporter over the given components. dynamic and
// cost may be nil when those limiters are disabled.
func NewReporter(g *guard.Guard, limiters []*ratelimit.FixedWindowLimiter,
	dynamic *ratelimit.DynamicLimiter, cost *ratelimit.CostLimiter) *Reporter {
	return &Reporter{
		guard:    g,
		limiters: limiters,
		dynamic:  dynamic,
		cost:     cost,
		started:  time.Now(),
		now:      time.Now,
	}
}

// Snapshot returns the current state of every admission component.
func (r *Reporter) Snapshot() Snapshot {
	now := r.now()

	policies := make([]ratelimit.PolicyInfo, 0, len(r.limiters)+2)
	for _, limiter := range r.limiters {
		policies = append(policies, limiter.Policy().Info())
	}
	if r.dynamic != nil {
		policies = append(policies, r.dynamic.Policies()...)
	}

	snapshot := Snapshot{
		Timestamp: now,
		Uptime:    now.Sub(r.started).Round(time.Second).String(),
		Guard:     r.guard.GetStats(),
		Policies:  policies,
	}
	if r.cost != nil {
		snapshot.Cost = r.cost.GetStats()
	}
	return snapshot
}
