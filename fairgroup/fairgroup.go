// Copyright (c) 2026 Uber Technologies, Inc.
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

// Package fairgroup implements the process-wide, cross-shard capacity
// accountant that one or more fairqueue.Queue instances share: it holds
// the replenishable budget for the underlying rate-limited resource and
// arbitrates grabs against it with lock-free atomics.
package fairgroup

import (
	"math"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"go.uber.org/fairqueue/fqmetrics"
	"go.uber.org/fairqueue/internal/clock"
	"go.uber.org/fairqueue/rover"
	"go.uber.org/fairqueue/ticket"
)

// RateResolution is the sub-second time unit in which replenish_rate and
// replenish_limit are expressed. It is a fixed implementation choice, not
// an external interface: callers configure rates in per-second terms and
// never see ticks directly.
const RateResolution = time.Millisecond

// defaultReplenishThreshold is the minimum extra capacity, in fixed-point
// units, that a ReplenishCapacity call must compute before it bothers
// taking the CAS. Must be at least 1 to guarantee forward progress; 1 is
// also what Seastar's fair_group uses directly (flagged there as a
// too-frequent-replenish FIXME), which we keep as the default.
const defaultReplenishThreshold = 1

// Config describes a Fair Group's capacity and replenishment parameters,
// already validated and unit-converted (see fqconfig.GroupConfig for the
// YAML-facing equivalent with raw per-second rates).
type Config struct {
	// SharesCapacity is the maximum simultaneous in-flight budget.
	SharesCapacity ticket.Ticket

	// WeightRate and SizeRate are per-second rate components; divided by
	// RateResolution ticks per second to form cost_capacity.
	WeightRate float64
	SizeRate   float64

	// RateFactor is multiplied by ticket.FixedPointFactor to yield
	// replenish_rate (fixed-point capacity units per RateResolution tick).
	RateFactor float64

	// RateLimitDuration, multiplied by replenish_rate, yields
	// replenish_limit, the burst ceiling. Zero means unlimited.
	RateLimitDuration time.Duration
}

// Option configures a Group at construction.
type Option interface {
	apply(*Group)
}

type optionFunc func(*Group)

func (f optionFunc) apply(g *Group) { f(g) }

// WithLogger sets a zap Logger used for the group's debug/warn lines.
func WithLogger(logger *zap.Logger) Option {
	return optionFunc(func(g *Group) { g.logger = logger })
}

// WithMetrics sets the Tally-backed sink the group pushes capacity
// accounting counters to.
func WithMetrics(sink fqmetrics.Sink) Option {
	return optionFunc(func(g *Group) { g.metrics = sink })
}

// WithClock overrides the clock used to seed the initial replenished
// timestamp (the real clock by default). Tests that drive ReplenishCapacity
// with fake-clock timestamps need it: any timestamp at or before the seed
// is a no-op. It also lets StartReplenisher and New agree on "now" when
// both are handed the same fake clock.
func WithClock(clk clock.Clock) Option {
	return optionFunc(func(g *Group) { g.clk = clk })
}

// WithReplenishThreshold overrides the minimum extra-capacity threshold a
// replenishment must clear before it CASes the replenished timestamp.
func WithReplenishThreshold(threshold uint64) Option {
	return optionFunc(func(g *Group) {
		if threshold < 1 {
			threshold = 1
		}
		g.replenishThreshold = threshold
	})
}

// Group is the process-wide capacity accountant. It is safe for concurrent
// use by many fairqueue.Queue shards; apart from StartReplenisher, no
// method blocks or allocates.
type Group struct {
	sharesCapacity ticket.Ticket
	costCapacity   ticket.Ticket

	replenishRate      float64
	replenishLimit     uint64
	replenishThreshold uint64

	capacityTail rover.Rover
	capacityHead rover.Rover
	capacityCeil rover.Rover

	// replenished holds the last-replenished timestamp as UnixNano,
	// guarded by CompareAndSwap so exactly one shard advances it per
	// interval.
	replenished atomic.Int64

	logger  *zap.Logger
	metrics fqmetrics.Sink
	clk     clock.Clock
}

// New constructs a Group from cfg.
func New(cfg Config, opts ...Option) *Group {
	ticksPerSecond := float64(time.Second) / float64(RateResolution)

	costCapacity := ticket.Ticket{
		Weight: round32(cfg.WeightRate / ticksPerSecond),
		Size:   round32(cfg.SizeRate / ticksPerSecond),
	}

	replenishRate := cfg.RateFactor * ticket.FixedPointFactor

	// An unlimited limit is the largest gap WrappingDifference can report:
	// a ceil of math.MaxUint64 would read as -1 against head and grant
	// nothing.
	replenishLimit := uint64(math.MaxInt64)
	if cfg.RateLimitDuration > 0 {
		ticks := float64(cfg.RateLimitDuration) / float64(RateResolution)
		replenishLimit = uint64(math.Round(replenishRate * ticks))
	}

	g := &Group{
		sharesCapacity:     cfg.SharesCapacity,
		costCapacity:       costCapacity,
		replenishRate:      replenishRate,
		replenishLimit:     replenishLimit,
		replenishThreshold: defaultReplenishThreshold,
		logger:             zap.NewNop(),
		metrics:            fqmetrics.NoopSink(),
		clk:                clock.NewReal(),
	}
	for _, opt := range opts {
		opt.apply(g)
	}

	g.capacityCeil.Store(g.replenishLimit)
	g.replenished.Store(g.clk.Now().UnixNano())

	g.logger.Debug("created fair group",
		zap.Stringer("shares_capacity", g.sharesCapacity),
		zap.Stringer("cost_capacity", g.costCapacity),
		zap.Float64("replenish_rate", g.replenishRate),
		zap.Uint64("replenish_limit", g.replenishLimit),
		zap.Uint64("replenish_threshold", g.replenishThreshold),
	)

	return g
}

// SharesCapacity returns the configured maximum simultaneous in-flight
// budget, used by fairqueue to normalize request cost against share
// weight.
func (g *Group) SharesCapacity() ticket.Ticket {
	return g.sharesCapacity
}

// CostCapacity returns the per-rate-resolution cost budget, used by
// fairqueue's idle-return rebase to compute max_deviation.
func (g *Group) CostCapacity() ticket.Ticket {
	return g.costCapacity
}

// GrabCapacity atomically advances the tail rover by cap and returns the
// prior value. It never fails and never blocks.
func (g *Group) GrabCapacity(cap uint64) uint64 {
	prior := g.capacityTail.FetchAdd(cap)
	g.metrics.Counter("fairgroup.capacity.grabbed", int64(cap))
	return prior
}

// ReleaseCapacity atomically advances the ceil rover by cap, raising the
// headroom for future replenishment. Called on request completion.
func (g *Group) ReleaseCapacity(cap uint64) {
	g.capacityCeil.FetchAdd(cap)
	g.metrics.Counter("fairgroup.capacity.released", int64(cap))
}

// ReplenishCapacity is idempotent: it advances head toward tail based on
// elapsed time since the last replenishment, bounded by ceil. Any shard
// may call it on its own timer tick; the CAS on the replenished timestamp
// elects a single replenisher per interval so total capacity issuance is
// globally rate-limited without a lock.
func (g *Group) ReplenishCapacity(now time.Time) {
	ts := g.replenished.Load()
	if now.UnixNano() <= ts {
		return
	}

	delta := now.UnixNano() - ts
	ticks := float64(delta) / float64(RateResolution)
	extra := uint64(math.Round(g.replenishRate * ticks))
	if extra < g.replenishThreshold {
		return
	}

	if !g.replenished.CAS(ts, ts+delta) {
		// Another shard already replenished this interval.
		return
	}

	maxExtra := rover.WrappingDifference(g.capacityCeil.Load(), g.capacityHead.Load())
	if extra > maxExtra {
		extra = maxExtra
	}
	g.capacityHead.FetchAdd(extra)
	g.metrics.Gauge("fairgroup.capacity.head", float64(g.capacityHead.Load()))
}

// CapacityDeficiency returns how far past the currently granted frontier x
// lies: wdiff(x, head). Zero means the capacity at x has been granted.
func (g *Group) CapacityDeficiency(x uint64) uint64 {
	return rover.WrappingDifference(x, g.capacityHead.Load())
}

// TicketCapacity converts a ticket to fixed-point capacity against this
// group's cost_capacity.
func (g *Group) TicketCapacity(t ticket.Ticket) uint64 {
	return ticket.Capacity(t, g.costCapacity)
}

// StartReplenisher runs ReplenishCapacity on a timer loop until the
// returned stop func is called. It is a convenience for callers that don't
// already have a per-shard tick driving replenishment themselves; calling
// ReplenishCapacity directly from an existing shard loop is equally valid
// and is the only mode the core itself requires.
func (g *Group) StartReplenisher(clk clock.Clock, interval time.Duration) (stop func()) {
	done := make(chan struct{})
	stopped := make(chan struct{})

	go func() {
		defer close(stopped)
		timer := clk.Timer(interval)
		defer timer.Stop()
		for {
			select {
			case <-done:
				return
			case <-timer.C():
				g.ReplenishCapacity(clk.Now())
				timer.Reset(interval)
			}
		}
	}()

	return func() {
		close(done)
		<-stopped
	}
}

func round32(f float64) uint32 {
	if f <= 0 {
		return 0
	}
	return uint32(math.Round(f))
}
