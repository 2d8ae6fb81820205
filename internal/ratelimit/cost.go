package ratelimit

import (
	"fmt"
	"math"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"payment-gateway/internal/api"
	"payment-gateway/internal/common/errors"
	"payment-gateway/internal/common/logging"
)

// CostConfig configures the per-client point budget.
type CostConfig struct {
	MaxPoints   float64        // Budget ceiling per client
	RefillRate  float64        // Points refilled per second
	Costs       map[string]int // Per-endpoint cost, keyed by request path
	DefaultCost int            // Cost for endpoints without an entry
}

// DefaultCostConfig returns the production budget: 100 points, refilling at
// 10 points per second, one point per request unless configured otherwise.
func DefaultCostConfig() CostConfig {
	return CostConfig{
		MaxPoints:   100,
		RefillRate:  10,
		Costs:       make(map[string]int),
		DefaultCost: 1,
	}
}

type costBucket struct {
	limiter  *rate.Limiter
	lastUsed time.Time
}

// CostLimiter charges a configurable cost per endpoint against a per-client
// point budget that refills continuously with elapsed wall-clock time.
// Refill is lazy: each bucket settles its balance when a charge arrives,
// never on a timer. Independent of the fixed-window policies.
type CostLimiter struct {
	mu      sync.Mutex
	config  CostConfig
	buckets map[string]*costBucket
	logger  logging.Logger

	// now is replaceable in tests
	now func() time.Time
}

// NewCostLimiter creates a cost limiter with the given budget.
func NewCostLimiter(config CostConfig, logger logging.Logger) *CostLimiter {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	if config.DefaultCost <= 0 {
		config.DefaultCost = 1
	}

	return &CostLimiter{
		config:  config,
		buckets: make(map[string]*costBucket),
		logger:  logger,
		now:     time.Now,
	}
}

// CostFor returns the configured cost of an endpoint.
func (l *CostLimiter) CostFor(endpoint string) int {
	if cost, exists := l.config.Costs[endpoint]; exists {
		return cost
	}
	return l.config.DefaultCost
}

// Charge deducts the endpoint's cost from the client's budget. When the
// balance cannot cover the cost the request is rejected and the error
// carries the whole seconds to wait before the charge would fit.
func (l *CostLimiter) Charge(clientKey, endpoint string) error {
	cost := l.CostFor(endpoint)

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	bucket, exists := l.buckets[clientKey]
	if !exists {
		bucket = &costBucket{
			limiter: rate.NewLimiter(rate.Limit(l.config.RefillRate), int(l.config.MaxPoints)),
		}
		l.buckets[clientKey] = bucket
	}
	bucket.lastUsed = now

	reservation := bucket.limiter.ReserveN(now, cost)
	if !reservation.OK() {
		// Cost larger than the whole budget can never succeed.
		return errors.RateLimitError(errors.CodeCostLimitExceeded,
			fmt.Sprintf("endpoint cost %d exceeds the maximum budget", cost))
	}

	if delay := reservation.DelayFrom(now); delay > 0 {
		reservation.CancelAt(now)
		waitSeconds := int(math.Ceil(delay.Seconds()))
		return errors.RateLimitError(errors.CodeCostLimitExceeded,
			fmt.Sprintf("request cost exceeds available points, retry in %d seconds", waitSeconds)).
			WithContext("wait_seconds", waitSeconds)
	}

	return nil
}

// Points returns the client's current balance, for observability.
func (l *CostLimiter) Points(clientKey string) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	bucket, exists := l.buckets[clientKey]
	if !exists {
		return l.config.MaxPoints
	}
	return bucket.limiter.TokensAt(l.now())
}

// Sweep drops buckets idle longer than maxAge.
func (l *CostLimiter) Sweep(maxAge time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-maxAge)
	for key, bucket := range l.buckets {
		if bucket.lastUsed.Before(cutoff) {
			delete(l.buckets, key)
		}
	}
}

// Stats reports the static budget configuration and the tracked client
// count.
type CostStats struct {
	MaxPoints      float64 `json:"max_points"`
	RefillRate     float64 `json:"refill_rate_per_second"`
	DefaultCost    int     `json:"default_cost"`
	TrackedClients int     `json:"tracked_clients"`
}

// GetStats returns the cost limiter snapshot.
func (l *CostLimiter) GetStats() CostStats {
	l.mu.Lock()
	defer l.mu.Unlock()

	return CostStats{
		MaxPoints:      l.config.MaxPoints,
		RefillRate:     l.config.RefillRate,
		DefaultCost:    l.config.DefaultCost,
		TrackedClients: len(l.buckets),
	}
}

// Middleware charges each request its endpoint cost before the handler
// runs.
func (l *CostLimiter) Middleware(keyFunc KeyFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := l.Charge(keyFunc(r), r.URL.Path); err != nil {
				api.WriteError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
