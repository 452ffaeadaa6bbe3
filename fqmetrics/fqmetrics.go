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

// Package fqmetrics wires fairgroup and fairqueue to a Tally scope. It is
// deliberately thin: unlike a full metrics registry, a Sink just wraps the
// handful of counters/gauges/timers the scheduler core itself needs,
// following the same "take a tally.Scope and build what you need from it"
// pattern outbound throttle middleware elsewhere in this stack uses.
package fqmetrics

import (
	"time"

	"github.com/uber-go/tally"
)

// Sink is the metrics surface fairgroup.Group and fairqueue.Queue push to.
// The zero value is not usable; use NewSink or NoopSink.
type Sink struct {
	scope tally.Scope
}

// NewSink wraps a tally.Scope. A nil scope is treated as tally.NoopScope.
func NewSink(scope tally.Scope) Sink {
	if scope == nil {
		scope = tally.NoopScope
	}
	return Sink{scope: scope}
}

// NoopSink discards every metric, matching tally.NoopScope's defaults used
// when a caller doesn't supply WithMetrics.
func NoopSink() Sink {
	return NewSink(tally.NoopScope)
}

// Counter increments a named counter by delta.
func (s Sink) Counter(name string, delta int64) {
	s.scope.Counter(name).Inc(delta)
}

// Gauge sets a named gauge to value.
func (s Sink) Gauge(name string, value float64) {
	s.scope.Gauge(name).Update(value)
}

// Timer records a duration against a named timer.
func (s Sink) Timer(name string, d time.Duration) {
	s.scope.Timer(name).Record(d)
}
