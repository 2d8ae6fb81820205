package stats

import (
	"testing"
	"time"

	"payment-gateway/internal/guard"
	"payment-gateway/internal/ratelimit"
)

func newTestReporter() *Reporter {
	store := ratelimit.NewMemoryStore()
	limiters := []*ratelimit.FixedWindowLimiter{
		ratelimit.NewFixedWindow(ratelimit.GlobalPolicy(), store, nil),
		ratelimit.NewFixedWindow(ratelimit.PaymentPolicy(), store, nil),
	}

	return NewReporter(
		guard.New(guard.DefaultConfig(), nil),
		limiters,
		ratelimit.NewDynamic(store, nil),
		ratelimit.NewCostLimiter(ratelimit.DefaultCostConfig(), nil),
	)
}

func TestSnapshotCollectsAllComponents(t *testing.T) {
	r := newTestReporter()

	snapshot := r.Snapshot()

	if snapshot.Guard.MaxRequestsPerMinute != 120 {
		t.Errorf("Expected guard thresholds in snapshot, got %+v", snapshot.Guard)
	}
	// Two fixed-window policies plus the two dynamic tiers.
	if len(snapshot.Policies) != 4 {
		t.Fatalf("Expected 4 policies, got %d", len(snapshot.Policies))
	}
	names := map[string]bool{}
	for _, p := range snapshot.Policies {
		names[p.Name] = true
	}
	for _, want := range []string{"global", "payment", "dynamic_test", "dynamic_live"} {
		if !names[want] {
			t.Errorf("Missing policy %q in snapshot: %v", want, names)
		}
	}
	if snapshot.Cost.MaxPoints != 100 {
		t.Errorf("Expected cost budget in snapshot, got %+v", snapshot.Cost)
	}
}

func TestSnapshotUptime(t *testing.T) {
	r := newTestReporter()
	r.started = time.Unix(1700000000, 0)
	r.now = func() time.Time { return time.Unix(1700000090, 0) }

	snapshot := r.Snapshot()
	if snapshot.Uptime != "1m30s" {
		t.Errorf("Expected uptime 1m30s, got %q", snapshot.Uptime)
	}
}

func TestSnapshotWithoutOptionalLimiters(t *testing.T) {
	r := NewReporter(guard.New(guard.DefaultConfig(), nil), nil, nil, nil)

	snapshot := r.Snapshot()
	if len(snapshot.Policies) != 0 {
		t.Errorf("Expected no policies, got %d", len(snapshot.Policies))
	}
	if snapshot.Cost.MaxPoints != 0 {
		t.Errorf("Expected zero cost stats, got %+v", snapshot.Cost)
	}
}
