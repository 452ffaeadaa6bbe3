package fairgroup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"go.uber.org/fairqueue/internal/clock"
	"go.uber.org/fairqueue/ticket"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func unlimitedConfig() Config {
	return Config{
		SharesCapacity: ticket.Ticket{Weight: 1000, Size: 1 << 20},
		WeightRate:     100,
		SizeRate:       64 << 10,
		RateFactor:     1 << 20, // effectively unlimited for a single test step
	}
}

func TestGrabAndReleaseNeverBlock(t *testing.T) {
	g := New(unlimitedConfig())

	prior := g.GrabCapacity(10)
	assert.Equal(t, uint64(0), prior)
	prior = g.GrabCapacity(5)
	assert.Equal(t, uint64(10), prior)

	g.ReleaseCapacity(15)
}

func TestCapacityDeficiencyBeforeReplenish(t *testing.T) {
	g := New(unlimitedConfig())

	want := g.GrabCapacity(100) + 100
	assert.Equal(t, uint64(100), g.CapacityDeficiency(want), "nothing granted until replenished")
}

func TestReplenishGrantsUpToCeil(t *testing.T) {
	cfg := Config{
		SharesCapacity:    ticket.Ticket{Weight: 1000, Size: 1 << 20},
		WeightRate:        100,
		SizeRate:          64 << 10,
		RateFactor:        10, // 10 * FixedPointFactor capacity units per RateResolution tick
		RateLimitDuration: 10 * RateResolution,
	}
	fc := clock.NewFake()
	g := New(cfg, WithClock(fc), WithReplenishThreshold(1))

	want := g.GrabCapacity(5) + 5
	assert.Equal(t, uint64(5), g.CapacityDeficiency(want))

	fc.Add(RateResolution)
	g.ReplenishCapacity(fc.Now())
	assert.Equal(t, uint64(0), g.CapacityDeficiency(want), "one tick at rate 10 should clear a deficiency of 5")
}

func TestReplenishNoOpWhenNotAdvanced(t *testing.T) {
	cfg := unlimitedConfig()
	fc := clock.NewFake()
	g := New(cfg, WithClock(fc))

	headBefore := g.capacityHead.Load()
	g.ReplenishCapacity(fc.Now())
	assert.Equal(t, headBefore, g.capacityHead.Load(), "now <= last replenished must no-op")
}

func TestReplenishBelowThresholdSkips(t *testing.T) {
	cfg := Config{
		SharesCapacity: ticket.Ticket{Weight: 1000, Size: 1 << 20},
		WeightRate:     100,
		SizeRate:       64 << 10,
		RateFactor:     0.0001, // tiny: rounds to extra < threshold for a short tick
	}
	fc := clock.NewFake()
	g := New(cfg, WithClock(fc), WithReplenishThreshold(5))

	fc.Add(time.Microsecond)
	before := g.capacityHead.Load()
	g.ReplenishCapacity(fc.Now())
	assert.Equal(t, before, g.capacityHead.Load())
}

func TestReplenishCeilingClampsBurst(t *testing.T) {
	cfg := Config{
		SharesCapacity:    ticket.Ticket{Weight: 1000, Size: 1 << 20},
		WeightRate:        100,
		SizeRate:          64 << 10,
		RateFactor:        1000,
		RateLimitDuration: RateResolution, // replenish_limit = 1000 * FixedPointFactor(ish) for one tick
	}
	fc := clock.NewFake()
	g := New(cfg, WithClock(fc))
	limit := g.replenishLimit

	// Let a long idle period pass: without the ceiling clamp this would
	// accumulate a huge burst credit.
	fc.Add(1000 * RateResolution)
	g.ReplenishCapacity(fc.Now())

	assert.LessOrEqual(t, g.capacityHead.Load(), limit)
}

func TestReplenishCASContentionOnlyOneWinner(t *testing.T) {
	cfg := Config{
		SharesCapacity:    ticket.Ticket{Weight: 1000, Size: 1 << 20},
		WeightRate:        100,
		SizeRate:          64 << 10,
		RateFactor:        10,
		RateLimitDuration: 1000 * RateResolution,
	}
	fc := clock.NewFake()
	g := New(cfg, WithClock(fc))

	fc.Add(RateResolution)
	now := fc.Now()

	// Simulate two shards replenishing for the same instant: the first
	// advances the replenished timestamp, so the second sees now <= last
	// replenished and returns before reaching the CAS; only the first
	// advances head.
	g.ReplenishCapacity(now)
	headAfterFirst := g.capacityHead.Load()
	g.ReplenishCapacity(now)
	assert.Equal(t, headAfterFirst, g.capacityHead.Load(), "second call for the same instant must no-op")
}

func TestStartReplenisherStopsCleanly(t *testing.T) {
	g := New(unlimitedConfig())
	fc := clock.NewFake()

	stop := g.StartReplenisher(fc, time.Millisecond)
	fc.Add(5 * time.Millisecond)
	stop()
}

func TestTicketCapacityScalesWithDenominator(t *testing.T) {
	g := New(Config{
		SharesCapacity: ticket.Ticket{Weight: 1000, Size: 1 << 20},
		WeightRate:     100,
		SizeRate:       64 << 10,
		RateFactor:     1,
	})

	cap := g.TicketCapacity(ticket.Ticket{Weight: 1, Size: 4096})
	require.Greater(t, cap, uint64(0))
}
