package guard

import (
	"testing"
	"time"

	"payment-gateway/internal/common/errors"
)

// testClock drives the guard's clock manually.
type testClock struct {
	current time.Time
}

func newTestClock() *testClock {
	return &testClock{current: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) now() time.Time { return c.current }

func (c *testClock) advance(d time.Duration) { c.current = c.current.Add(d) }

func newTestGuard(config Config) (*Guard, *testClock) {
	clock := newTestClock()
	g := New(config, nil)
	g.now = clock.now
	return g, clock
}

// burstOnlyConfig disables the sustained-rate ceilings so burst behavior can
// be observed in isolation.
func burstOnlyConfig() Config {
	cfg := DefaultConfig()
	cfg.MaxRequestsPerMinute = 1 << 20
	cfg.MaxRequestsPerSecond = 1 << 20
	return cfg
}

func rejectionCode(t *testing.T, err error) string {
	t.Helper()
	if err == nil {
		t.Fatal("Expected a rejection, request was admitted")
	}
	return errors.GetCode(err)
}

func TestAdmitUnderThresholds(t *testing.T) {
	g, clock := newTestGuard(DefaultConfig())

	// 100 requests spread over a minute stays under both ceilings.
	for i := 0; i < 100; i++ {
		if err := g.Admit("10.0.0.1"); err != nil {
			t.Fatalf("Request %d should be admitted: %v", i, err)
		}
		clock.advance(600 * time.Millisecond)
	}
}

func TestActivityWindowReset(t *testing.T) {
	g, clock := newTestGuard(DefaultConfig())

	for i := 0; i < 100; i++ {
		if err := g.Admit("10.0.0.1"); err != nil {
			t.Fatalf("Request %d should be admitted: %v", i, err)
		}
		clock.advance(600 * time.Millisecond)
	}

	// After the window lapses the counter starts over.
	clock.advance(61 * time.Second)
	for i := 0; i < 100; i++ {
		if err := g.Admit("10.0.0.1"); err != nil {
			t.Fatalf("Post-reset request %d should be admitted: %v", i, err)
		}
		clock.advance(600 * time.Millisecond)
	}
}

func TestBurstDetectionBlocksClient(t *testing.T) {
	g, clock := newTestGuard(burstOnlyConfig())

	for i := 0; i < 50; i++ {
		if err := g.Admit("10.0.0.2"); err != nil {
			t.Fatalf("Request %d within burst budget should be admitted: %v", i, err)
		}
		clock.advance(10 * time.Millisecond)
	}

	// The 51st request inside the one-second window trips the detector.
	err := g.Admit("10.0.0.2")
	if code := rejectionCode(t, err); code != errors.CodeBurstDetected {
		t.Errorf("Expected %s, got %s", errors.CodeBurstDetected, code)
	}

	// Every request during the block is rejected as blocked.
	clock.advance(5 * time.Minute)
	err = g.Admit("10.0.0.2")
	if code := rejectionCode(t, err); code != errors.CodeIPBlocked {
		t.Errorf("Expected %s during block, got %s", errors.CodeIPBlocked, code)
	}

	// First request after expiry is admitted and block state clears.
	clock.advance(11 * time.Minute)
	if err := g.Admit("10.0.0.2"); err != nil {
		t.Errorf("Request after block expiry should be admitted: %v", err)
	}
	if got := g.GetStats().BlockedClients; got != 0 {
		t.Errorf("Expected 0 blocked clients after expiry, got %d", got)
	}
}

func TestBurstWindowPruning(t *testing.T) {
	g, clock := newTestGuard(burstOnlyConfig())

	// 40 requests, then a pause: the window empties and 40 more pass.
	for i := 0; i < 40; i++ {
		if err := g.Admit("10.0.0.3"); err != nil {
			t.Fatalf("Request %d should be admitted: %v", i, err)
		}
	}
	clock.advance(1100 * time.Millisecond)
	for i := 0; i < 40; i++ {
		if err := g.Admit("10.0.0.3"); err != nil {
			t.Fatalf("Request %d after pause should be admitted: %v", i, err)
		}
	}
}

func TestSustainedViolationsEscalateToBlock(t *testing.T) {
	g, clock := newTestGuard(DefaultConfig())

	// Fill the minute window right up to the ceiling.
	for i := 0; i < 120; i++ {
		if err := g.Admit("10.0.0.4"); err != nil {
			t.Fatalf("Request %d should be admitted: %v", i, err)
		}
		clock.advance(500 * time.Millisecond)
	}

	// Violations 1 through 3 reject without blocking.
	for i := 0; i < 3; i++ {
		err := g.Admit("10.0.0.4")
		if code := rejectionCode(t, err); code != errors.CodeRateLimitExceeded {
			t.Fatalf("Violation %d: expected %s, got %s", i+1, errors.CodeRateLimitExceeded, code)
		}
	}

	// The fourth violation exceeds the suspicious threshold and blocks.
	err := g.Admit("10.0.0.4")
	if code := rejectionCode(t, err); code != errors.CodeRateLimitExceeded {
		t.Fatalf("Expected %s on blocking violation, got %s", errors.CodeRateLimitExceeded, code)
	}

	err = g.Admit("10.0.0.4")
	if code := rejectionCode(t, err); code != errors.CodeIPBlocked {
		t.Errorf("Expected %s after escalation, got %s", errors.CodeIPBlocked, code)
	}
}

func TestManualUnblock(t *testing.T) {
	g, clock := newTestGuard(burstOnlyConfig())

	for i := 0; i < 51; i++ {
		g.Admit("10.0.0.5")
	}
	if err := g.Admit("10.0.0.5"); err == nil {
		t.Fatal("Client should be blocked")
	}

	g.Unblock("10.0.0.5")

	// Unblocking drops the burst window, so the client is admitted
	// immediately rather than tripping on its own stale timestamps.
	if err := g.Admit("10.0.0.5"); err != nil {
		t.Errorf("Unblocked client should be admitted: %v", err)
	}

	clock.advance(2 * time.Second)
	if err := g.Admit("10.0.0.5"); err != nil {
		t.Errorf("Unblocked client should stay admitted: %v", err)
	}
}

func TestIdempotentUnderThreshold(t *testing.T) {
	g, clock := newTestGuard(DefaultConfig())

	for i := 0; i < 30; i++ {
		if err := g.Admit("10.0.0.6"); err != nil {
			t.Fatalf("Request %d should be admitted: %v", i, err)
		}
		clock.advance(time.Second)
	}

	// A single logical client owns exactly one record of each kind.
	if len(g.activity) != 1 {
		t.Errorf("Expected 1 activity record, got %d", len(g.activity))
	}
	if len(g.bursts) != 1 {
		t.Errorf("Expected 1 burst window, got %d", len(g.bursts))
	}
	if g.activity["10.0.0.6"].count != 30 {
		t.Errorf("Expected monotonic count 30, got %d", g.activity["10.0.0.6"].count)
	}
}

func TestSweepEvictsIdleRecords(t *testing.T) {
	g, clock := newTestGuard(DefaultConfig())

	g.Admit("10.0.0.7")
	g.Admit("10.0.0.8")

	clock.advance(6 * time.Minute)
	g.Admit("10.0.0.9")
	g.Sweep()

	stats := g.GetStats()
	if stats.TrackedClients != 1 {
		t.Errorf("Expected 1 tracked client after sweep, got %d", stats.TrackedClients)
	}
}

func TestSweepDropsExpiredBlocks(t *testing.T) {
	g, clock := newTestGuard(burstOnlyConfig())

	for i := 0; i < 51; i++ {
		g.Admit("10.0.0.10")
	}
	if got := g.GetStats().BlockedClients; got != 1 {
		t.Fatalf("Expected 1 blocked client, got %d", got)
	}

	clock.advance(16 * time.Minute)
	g.Sweep()

	if _, exists := g.blocked["10.0.0.10"]; exists {
		t.Error("Sweep should remove expired block entries")
	}
}

func TestGetStatsDoesNotMutate(t *testing.T) {
	g, _ := newTestGuard(DefaultConfig())

	g.Admit("10.0.0.11")
	first := g.GetStats()
	second := g.GetStats()

	if first != second {
		t.Errorf("Stats snapshots differ without traffic: %+v vs %+v", first, second)
	}
	if first.TrackedClients != 1 {
		t.Errorf("Expected 1 tracked client, got %d", first.TrackedClients)
	}
	if first.MaxRequestsPerMinute != 120 || first.BurstThreshold != 50 {
		t.Errorf("Stats should report active thresholds: %+v", first)
	}
}
