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

package fqmetrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/uber-go/tally"
)

func TestSinkPushesToScope(t *testing.T) {
	scope := tally.NewTestScope("", map[string]string{})
	sink := NewSink(scope)

	sink.Counter("fairqueue.requests.queued", 3)
	sink.Gauge("fairqueue.resources.queued.weight", 42)
	sink.Timer("fairqueue.dispatch.latency", 10*time.Millisecond)

	snap := scope.Snapshot()
	assert.Equal(t, int64(3), snap.Counters()["fairqueue.requests.queued+"].Value())
	assert.Equal(t, float64(42), snap.Gauges()["fairqueue.resources.queued.weight+"].Value())
	assert.NotEmpty(t, snap.Timers())
}

func TestNoopSinkDiscardsMetrics(t *testing.T) {
	sink := NoopSink()
	assert.NotPanics(t, func() {
		sink.Counter("anything", 1)
		sink.Gauge("anything", 1)
		sink.Timer("anything", time.Second)
	})
}

func TestNewSinkTreatsNilScopeAsNoop(t *testing.T) {
	sink := NewSink(nil)
	assert.NotPanics(t, func() { sink.Counter("anything", 1) })
}
