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

// Package rover implements the wraparound monotonic counter shared by
// fairgroup's three capacity rovers (tail, head, ceil). A Rover only ever
// increases; two rovers are compared with WrappingDifference rather than
// ordinary subtraction so that eventual 64-bit wraparound never produces a
// spurious negative gap.
package rover

import "go.uber.org/atomic"

// Rover is an atomic, monotonically increasing counter.
type Rover struct {
	v atomic.Uint64
}

// Load returns the current value.
func (r *Rover) Load() uint64 {
	return r.v.Load()
}

// Store sets the value directly. Used only at construction; never used to
// decrease a rover that is live under concurrent FetchAdd calls.
func (r *Rover) Store(v uint64) {
	r.v.Store(v)
}

// FetchAdd atomically advances the rover by delta and returns the prior
// value, matching the fetch_add semantics fair_group relies on.
func (r *Rover) FetchAdd(delta uint64) uint64 {
	return r.v.Add(delta) - delta
}

// CompareAndSwap atomically sets the rover to new if its current value is
// old, reporting whether the swap happened. The replenishment CAS in
// fairgroup runs on its replenished timestamp, not on a Rover.
func (r *Rover) CompareAndSwap(old, new uint64) bool {
	return r.v.CAS(old, new)
}

// WrappingDifference returns max(a-b, 0) interpreted over signed overflow
// of the underlying 64-bit width: if a has wrapped past b, the difference
// is computed as though both were signed, so a rover that wraps around
// still compares correctly against one that hasn't yet.
func WrappingDifference(a, b uint64) uint64 {
	d := int64(a - b)
	if d < 0 {
		return 0
	}
	return uint64(d)
}
