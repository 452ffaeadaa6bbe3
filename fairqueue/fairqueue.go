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

// Package fairqueue implements the per-shard priority scheduler that sits
// on top of a fairgroup.Group: registered priority classes are served in
// proportion to their shares, tracked by a virtual-time cursor on a
// min-heap, while every dispatched request still has to clear the shared
// group's capacity budget.
//
// A Queue is single-owner: all of its methods are meant to be called from
// one goroutine (typically the shard's own event loop), the same way a
// connection-pool peer list or outbound throttle middleware assumes a
// single owner per shard and relies on a shared, lock-free accountant for
// any cross-shard coordination.
package fairqueue

import (
	"container/heap"
	"math"
	"time"

	"go.uber.org/zap"

	"go.uber.org/fairqueue/fairgroup"
	"go.uber.org/fairqueue/fqerrors"
	"go.uber.org/fairqueue/fqmetrics"
	"go.uber.org/fairqueue/ticket"
)

// Config describes a Fair Queue's fairness window and per-call dispatch
// budget.
type Config struct {
	// Tau bounds the idle-return rebase: a class returning from idle can
	// claim at most the service it would have accumulated over this
	// window, scaled by its shares.
	Tau time.Duration

	// ShardCount and DispatchBudget resolve the "maximum per-dispatch
	// cap" by configuration: each DispatchRequests call stops once it has
	// dispatched DispatchBudget/ShardCount capacity units. A single-shard
	// caller that leaves both at their zero value gets DispatchBudget ==
	// ShardCount == 1, i.e. no division.
	ShardCount     int
	DispatchBudget uint64
}

// Option configures a Queue at construction.
type Option interface {
	apply(*Queue)
}

type optionFunc func(*Queue)

func (f optionFunc) apply(q *Queue) { f(q) }

// WithLogger sets a zap Logger used for the queue's debug and warn lines
// (share-underflow clamping, runaway resets).
func WithLogger(logger *zap.Logger) Option {
	return optionFunc(func(q *Queue) { q.logger = logger })
}

// WithMetrics sets the Tally-backed sink the queue pushes queue-depth and
// dispatch counters to.
func WithMetrics(sink fqmetrics.Sink) Option {
	return optionFunc(func(q *Queue) { q.metrics = sink })
}

// Sink receives each entry as DispatchRequests dispatches it. It is
// invoked synchronously from within DispatchRequests and must not re-enter
// the Queue for the same entry.
type Sink func(*Entry)

// pendingReservation records a capacity grab that has not yet cleared the
// group's deficiency check: head is the capacity frontier the reservation
// is waiting on, ticket is the cost it reserved against.
type pendingReservation struct {
	head   uint64
	ticket ticket.Ticket
}

// Queue is a per-shard scheduler over a set of registered priority
// classes, bound to one fairgroup.Group for capacity accounting.
type Queue struct {
	group *fairgroup.Group
	tau   time.Duration

	dispatchBudget uint64 // DispatchBudget / ShardCount, precomputed

	classes map[uint32]*priorityClass
	heap    classHeap

	lastAccumulated float64
	pending         *pendingReservation

	resourcesExecuting ticket.Ticket
	resourcesQueued    ticket.Ticket
	requestsExecuting  int
	requestsQueued     int

	logger  *zap.Logger
	metrics fqmetrics.Sink
}

// New constructs a Queue bound to group.
func New(group *fairgroup.Group, cfg Config, opts ...Option) *Queue {
	shardCount := cfg.ShardCount
	if shardCount < 1 {
		shardCount = 1
	}
	dispatchBudget := cfg.DispatchBudget
	if dispatchBudget < 1 {
		dispatchBudget = 1
	}

	q := &Queue{
		group:          group,
		tau:            cfg.Tau,
		dispatchBudget: dispatchBudget / uint64(shardCount),
		classes:        make(map[uint32]*priorityClass),
		logger:         zap.NewNop(),
		metrics:        fqmetrics.NoopSink(),
	}
	if q.dispatchBudget < 1 {
		q.dispatchBudget = 1
	}
	for _, opt := range opts {
		opt.apply(q)
	}
	return q
}

// RegisterPriorityClass creates a new class with the given id and share
// weight (clamped to at least 1). It fails if id is already registered.
func (q *Queue) RegisterPriorityClass(id, shares uint32) error {
	if _, ok := q.classes[id]; ok {
		return fqerrors.ClassAlreadyRegisteredError{ClassID: id}
	}
	q.classes[id] = newPriorityClass(id, shares)
	return nil
}

// UnregisterPriorityClass removes a class. It fails if the class is not
// registered or its queue is still non-empty.
func (q *Queue) UnregisterPriorityClass(id uint32) error {
	pc, ok := q.classes[id]
	if !ok {
		return fqerrors.ClassNotRegisteredError{ClassID: id}
	}
	if !pc.queue.empty() {
		return fqerrors.ClassNotEmptyError{ClassID: id, Queued: pc.queue.len}
	}
	delete(q.classes, id)
	return nil
}

// UpdateSharesForClass replaces a class's share weight (clamped to at
// least 1), effective on the class's next dispatch-cost computation. A
// clamp to 1 from an invalid input is logged at Debug, not Warn: it is an
// expected, harmless input, not a fault.
func (q *Queue) UpdateSharesForClass(id, shares uint32) error {
	pc, ok := q.classes[id]
	if !ok {
		return fqerrors.ClassNotRegisteredError{ClassID: id}
	}
	if shares < 1 {
		q.logger.Debug("clamping priority class shares to 1", zap.Uint32("class_id", id), zap.Uint32("requested_shares", shares))
	}
	pc.updateShares(shares)
	return nil
}

// Enqueue appends ent to class id's FIFO, moving the class from idle to
// resident (applying the idle-return rebase if it was idle) and updating
// the queued counters.
func (q *Queue) Enqueue(id uint32, ent *Entry) error {
	pc, ok := q.classes[id]
	if !ok {
		return fqerrors.ClassNotRegisteredError{ClassID: id}
	}

	q.pushClassFromIdle(pc)
	ent.classID = id
	pc.queue.pushBack(ent)
	q.resourcesQueued = q.resourcesQueued.Add(ent.Ticket)
	q.requestsQueued++

	q.metrics.Counter("fairqueue.requests.queued", 1)
	return nil
}

// NotifyRequestFinished decrements the executing counters for desc and
// releases its capacity back to the group.
func (q *Queue) NotifyRequestFinished(desc ticket.Ticket) {
	q.resourcesExecuting = q.resourcesExecuting.Sub(desc)
	q.requestsExecuting--
	q.group.ReleaseCapacity(q.group.TicketCapacity(desc))

	q.metrics.Counter("fairqueue.requests.executing", -1)
	q.pushObservability()
}

// NotifyRequestCancelled decrements the queued ticket for ent and unlinks
// it from its class's FIFO, then zeroes the entry's ticket so any
// in-flight dispatch holding the same pointer cannot double-charge it.
func (q *Queue) NotifyRequestCancelled(ent *Entry) error {
	pc, ok := q.classes[ent.classID]
	if !ok {
		return fqerrors.ClassNotRegisteredError{ClassID: ent.classID}
	}
	if !ent.linked {
		return nil
	}

	q.resourcesQueued = q.resourcesQueued.Sub(ent.Ticket)
	q.requestsQueued--
	pc.queue.remove(ent)
	ent.Ticket = ticket.Ticket{}

	q.metrics.Counter("fairqueue.requests.queued", -1)
	return nil
}

// Waiters returns the number of entries currently queued across all
// classes.
func (q *Queue) Waiters() int { return q.requestsQueued }

// RequestsExecuting returns the number of entries currently dispatched
// but not yet reported finished.
func (q *Queue) RequestsExecuting() int { return q.requestsExecuting }

// ResourcesWaiting returns the sum of tickets currently queued.
func (q *Queue) ResourcesWaiting() ticket.Ticket { return q.resourcesQueued }

// ResourcesExecuting returns the sum of tickets currently executing.
func (q *Queue) ResourcesExecuting() ticket.Ticket { return q.resourcesExecuting }

// pushClass makes pc heap-resident if it is not already.
func (q *Queue) pushClass(pc *priorityClass) {
	if pc.queued {
		return
	}
	heap.Push(&q.heap, pc)
	pc.queued = true
}

// pushClassFromIdle makes pc heap-resident, first applying the
// idle-return rebase so a long-idle class cannot monopolize the queue on
// return.
func (q *Queue) pushClassFromIdle(pc *priorityClass) {
	if pc.queued {
		return
	}

	maxDeviation := q.group.CostCapacity().Normalize(q.group.SharesCapacity()) / float64(pc.shares) * q.tauTicks()
	if rebased := q.lastAccumulated - maxDeviation; rebased > pc.accumulated {
		pc.accumulated = rebased
	}
	q.pushClass(pc)
}

func (q *Queue) popClass(pc *priorityClass) {
	heap.Pop(&q.heap)
	pc.queued = false
}

func (q *Queue) peekClass() *priorityClass {
	if len(q.heap) == 0 {
		return nil
	}
	return q.heap[0]
}

// tauTicks returns Tau expressed in fairgroup.RateResolution ticks, the
// unit max_deviation is computed in.
func (q *Queue) tauTicks() float64 {
	return float64(q.tau) / float64(fairgroup.RateResolution)
}

// grabPendingCapacity resolves an outstanding pending reservation against
// ent. It returns whether dispatch of ent may proceed now.
func (q *Queue) grabPendingCapacity(ent *Entry) bool {
	if q.group.CapacityDeficiency(q.pending.head) > 0 {
		return false
	}

	if ent.Ticket.Equal(q.pending.ticket) {
		q.pending = nil
	} else {
		units := q.group.TicketCapacity(ent.Ticket)
		q.group.GrabCapacity(units)
		q.pending.head += units
	}
	return true
}

// grabCapacity attempts to reserve ent's capacity from the group. It
// returns whether dispatch of ent may proceed now; if not, a pending
// reservation has been recorded (unless one already existed and remains
// outstanding).
func (q *Queue) grabCapacity(ent *Entry) bool {
	if q.pending != nil {
		return q.grabPendingCapacity(ent)
	}

	units := q.group.TicketCapacity(ent.Ticket)
	wantHead := q.group.GrabCapacity(units) + units
	if q.group.CapacityDeficiency(wantHead) > 0 {
		q.pending = &pendingReservation{head: wantHead, ticket: ent.Ticket}
		return false
	}
	return true
}

// DispatchRequests pops and dispatches eligible entries, invoking sink for
// each, until the heap is empty, the group denies further capacity, or the
// per-call dispatch budget is exhausted.
func (q *Queue) DispatchRequests(sink Sink) {
	var dispatched uint64

	for len(q.heap) > 0 && dispatched < q.dispatchBudget {
		h := q.peekClass()
		if h.queue.empty() {
			q.popClass(h)
			continue
		}

		req := h.queue.front()
		if !q.grabCapacity(req) {
			break
		}

		if h.accumulated > q.lastAccumulated {
			q.lastAccumulated = h.accumulated
		}
		q.popClass(h)
		h.queue.popFront()

		q.resourcesExecuting = q.resourcesExecuting.Add(req.Ticket)
		q.resourcesQueued = q.resourcesQueued.Sub(req.Ticket)
		q.requestsExecuting++
		q.requestsQueued--
		q.metrics.Counter("fairqueue.requests.queued", -1)
		q.metrics.Counter("fairqueue.requests.executing", 1)

		q.advanceAccumulated(h, req)

		if !h.queue.empty() {
			q.pushClass(h)
		}

		dispatched += q.group.TicketCapacity(req.Ticket)
		q.pushObservability()
		sink(req)
	}
}

// advanceAccumulated advances h's virtual-time cursor by req's
// normalized cost, applying the runaway reset if the addition would
// overflow to a non-finite value.
func (q *Queue) advanceAccumulated(h *priorityClass, req *Entry) {
	reqCost := req.Ticket.Normalize(q.group.SharesCapacity()) / float64(h.shares)
	next := h.accumulated + reqCost
	if !math.IsInf(next, 0) {
		h.accumulated = next
		return
	}

	q.logger.Warn("runaway reset of priority class cursors", zap.Uint32("class_id", h.id))
	q.resetRunaway(h)
	h.accumulated += reqCost
	q.metrics.Counter("fairqueue.runaway_resets", 1)
}

// resetRunaway rebases every class's cursor to bound absolute magnitude
// while preserving relative order: every class still resident in the heap
// has h's pre-reset cursor subtracted from its own; every idle class,
// including h itself (already popped from the heap by this point), has
// its cursor zeroed outright, since an idle cursor carries no ordering
// relationship to the resident set.
func (q *Queue) resetRunaway(h *priorityClass) {
	base := h.accumulated
	for _, pc := range q.classes {
		if pc.queued {
			pc.accumulated -= base
		} else {
			pc.accumulated = 0
		}
	}
	q.lastAccumulated = 0
}

func (q *Queue) pushObservability() {
	q.metrics.Gauge("fairqueue.resources.queued.weight", float64(q.resourcesQueued.Weight))
	q.metrics.Gauge("fairqueue.resources.queued.size", float64(q.resourcesQueued.Size))
	q.metrics.Gauge("fairqueue.resources.executing.weight", float64(q.resourcesExecuting.Weight))
	q.metrics.Gauge("fairqueue.resources.executing.size", float64(q.resourcesExecuting.Size))
}
