// Package guard implements per-client abuse detection for the admission
// layer: sustained-rate tracking, burst detection and a time-boxed block
// list. It is the first gate every inbound request passes through.
package guard

import (
	"fmt"
	"math"
	"sync"
	"time"

	"payment-gateway/internal/common/errors"
	"payment-gateway/internal/common/logging"
)

// Config holds the abuse-detection thresholds.
type Config struct {
	MaxRequestsPerMinute int           // Sustained ceiling within the 60s activity window
	MaxRequestsPerSecond int           // Average rate ceiling within the activity window
	BurstThreshold       int           // Requests within one second that count as a burst
	SuspiciousThreshold  int           // Violations tolerated before an automatic block
	BlockDuration        time.Duration // How long abusive clients stay blocked
	CleanupInterval      time.Duration // Sweep cadence for stale records
	CleanupAge           time.Duration // Idle age after which records are evicted
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() Config {
	return Config{
		MaxRequestsPerMinute: 120,
		MaxRequestsPerSecond: 20,
		BurstThreshold:       50,
		SuspiciousThreshold:  3,
		BlockDuration:        15 * time.Minute,
		CleanupInterval:      60 * time.Second,
		CleanupAge:           5 * time.Minute,
	}
}

// activityRecord tracks a single client's request rate inside a rolling
// 60-second fixed window.
type activityRecord struct {
	windowStart time.Time
	count       int
	lastSeen    time.Time
	violations  int
}

// burstWindow keeps the request instants observed from one client within
// the last second. Entries older than one second are pruned on every read.
type burstWindow struct {
	timestamps []time.Time
}

func (b *burstWindow) prune(now time.Time) {
	cutoff := now.Add(-time.Second)
	kept := b.timestamps[:0]
	for _, ts := range b.timestamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	b.timestamps = kept
}

func (b *burstWindow) newest() time.Time {
	if len(b.timestamps) == 0 {
		return time.Time{}
	}
	return b.timestamps[len(b.timestamps)-1]
}

// Guard composes the activity tracker, burst detector and block list behind
// a single mutex so the check-then-act sequence for a client is indivisible.
type Guard struct {
	mu       sync.Mutex
	config   Config
	activity map[string]*activityRecord
	bursts   map[string]*burstWindow
	blocked  map[string]time.Time
	logger   logging.Logger

	// now is replaceable in tests
	now func() time.Time
}

// New creates a Guard with the given thresholds.
func New(config Config, logger logging.Logger) *Guard {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	return &Guard{
		config:   config,
		activity: make(map[string]*activityRecord),
		bursts:   make(map[string]*burstWindow),
		blocked:  make(map[string]time.Time),
		logger:   logger,
		now:      time.Now,
	}
}

// Admit decides whether a request from clientKey may proceed. A nil return
// admits the request; otherwise the returned error carries the rejection
// code and retry detail. Each rejection is terminal for the request.
func (g *Guard) Admit(clientKey string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()

	// Standing block wins over everything else.
	if until, exists := g.blocked[clientKey]; exists {
		if now.Before(until) {
			remaining := int(math.Ceil(until.Sub(now).Minutes()))
			return errors.RateLimitError(errors.CodeIPBlocked,
				fmt.Sprintf("IP temporarily blocked, try again in %d minutes", remaining)).
				WithContext("remaining_minutes", remaining)
		}
		// Block expired: the first request afterwards is admitted cleanly.
		delete(g.blocked, clientKey)
		if rec, ok := g.activity[clientKey]; ok {
			rec.violations = 0
		}
	}

	if err := g.checkBurst(clientKey, now); err != nil {
		return err
	}

	return g.checkActivity(clientKey, now)
}

// checkBurst appends the request instant to the client's one-second window
// and blocks the client outright when the window overflows.
func (g *Guard) checkBurst(clientKey string, now time.Time) error {
	window, exists := g.bursts[clientKey]
	if !exists {
		window = &burstWindow{}
		g.bursts[clientKey] = window
	}

	window.timestamps = append(window.timestamps, now)
	window.prune(now)

	if len(window.timestamps) > g.config.BurstThreshold {
		g.blocked[clientKey] = now.Add(g.config.BlockDuration)
		g.logger.Warn("Burst detected, client blocked",
			logging.String("client", clientKey),
			logging.Int("requests_in_window", len(window.timestamps)),
			logging.Duration("block_duration", g.config.BlockDuration),
		)
		return errors.RateLimitError(errors.CodeBurstDetected,
			"too many requests in a short period, IP temporarily blocked")
	}

	return nil
}

// checkActivity increments the client's 60-second counter and rejects when
// the sustained or average rate exceeds the configured ceilings. Repeated
// violations escalate to a block.
func (g *Guard) checkActivity(clientKey string, now time.Time) error {
	rec, exists := g.activity[clientKey]
	if !exists {
		rec = &activityRecord{windowStart: now}
		g.activity[clientKey] = rec
	}

	if now.Sub(rec.windowStart) > time.Minute {
		rec.windowStart = now
		rec.count = 0
	}

	rec.count++
	rec.lastSeen = now

	elapsed := now.Sub(rec.windowStart).Seconds()
	if elapsed < 1 {
		elapsed = 1
	}
	perSecond := float64(rec.count) / elapsed

	if rec.count > g.config.MaxRequestsPerMinute || perSecond > float64(g.config.MaxRequestsPerSecond) {
		rec.violations++

		if rec.violations > g.config.SuspiciousThreshold {
			g.blocked[clientKey] = now.Add(g.config.BlockDuration)
			g.logger.Warn("Repeated rate violations, client blocked",
				logging.String("client", clientKey),
				logging.Int("violations", rec.violations),
			)
		}

		return errors.RateLimitError(errors.CodeRateLimitExceeded,
			"request rate exceeded, slow down")
	}

	return nil
}

// Unblock clears block state for a client immediately, regardless of sweep
// timing. The burst window is dropped too so the pardoned client is not
// re-blocked by the same timestamps that earned the block. Used by the
// operator surface.
func (g *Guard) Unblock(clientKey string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.blocked, clientKey)
	delete(g.bursts, clientKey)
	if rec, ok := g.activity[clientKey]; ok {
		rec.violations = 0
	}

	g.logger.Info("Client manually unblocked", logging.String("client", clientKey))
}

// Sweep removes records idle beyond the cleanup age and blocks that have
// expired. It runs on the cleanup interval, independently of requests.
func (g *Guard) Sweep() {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	cutoff := now.Add(-g.config.CleanupAge)

	for key, rec := range g.activity {
		if rec.lastSeen.Before(cutoff) {
			delete(g.activity, key)
		}
	}

	for key, window := range g.bursts {
		if window.newest().Before(cutoff) {
			delete(g.bursts, key)
		}
	}

	for key, until := range g.blocked {
		if !now.Before(until) {
			delete(g.blocked, key)
		}
	}
}

// Stats is a read-only snapshot of the guard state and its thresholds.
type Stats struct {
	TrackedClients       int           `json:"tracked_clients"`
	BlockedClients       int           `json:"blocked_clients"`
	MaxRequestsPerMinute int           `json:"max_requests_per_minute"`
	MaxRequestsPerSecond int           `json:"max_requests_per_second"`
	BurstThreshold       int           `json:"burst_threshold"`
	BlockDuration        time.Duration `json:"block_duration"`
}

// GetStats returns current counts and the active thresholds. It never
// mutates guard state.
func (g *Guard) GetStats() Stats {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	blocked := 0
	for _, until := range g.blocked {
		if now.Before(until) {
			blocked++
		}
	}

	return Stats{
		TrackedClients:       len(g.activity),
		BlockedClients:       blocked,
		MaxRequestsPerMinute: g.config.MaxRequestsPerMinute,
		MaxRequestsPerSecond: g.config.MaxRequestsPerSecond,
		BurstThreshold:       g.config.BurstThreshold,
		BlockDuration:        g.config.BlockDuration,
	}
}

// CleanupInterval exposes the configured sweep cadence for the scheduler.
func (g *Guard) CleanupInterval() time.Duration {
	return g.config.CleanupInterval
}
