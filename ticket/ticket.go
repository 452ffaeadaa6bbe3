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

// Package ticket defines the two-dimensional cost descriptor shared by the
// fairgroup and fairqueue packages: a (weight, size) pair describing how
// much of a rate-limited resource a request consumes.
package ticket

import (
	"fmt"
	"math"
)

// Ticket is a (weight, size) cost pair. Weight usually counts operations,
// size counts bytes. Both components are non-negative by construction;
// there is no invalid Ticket value.
type Ticket struct {
	Weight uint32
	Size   uint32
}

// Add returns the componentwise sum of t and o.
func (t Ticket) Add(o Ticket) Ticket {
	return Ticket{Weight: t.Weight + o.Weight, Size: t.Size + o.Size}
}

// Sub returns the componentwise wrapping difference of t and o: each
// component saturates at zero rather than underflowing.
func (t Ticket) Sub(o Ticket) Ticket {
	return Ticket{Weight: satSub32(t.Weight, o.Weight), Size: satSub32(t.Size, o.Size)}
}

// Equal reports whether t and o have identical components.
func (t Ticket) Equal(o Ticket) bool {
	return t.Weight == o.Weight && t.Size == o.Size
}

// Truthy reports whether either component is positive.
func (t Ticket) Truthy() bool {
	return t.Weight > 0 || t.Size > 0
}

// Normalize returns the scalar cost of t against denom: weight/denom.Weight
// + size/denom.Size. A zero denominator component is only valid when the
// matching numerator component is also zero; producing a zero-component
// denominator with a non-zero numerator is the caller's error to avoid.
func (t Ticket) Normalize(denom Ticket) float64 {
	var cost float64
	if t.Weight != 0 || denom.Weight != 0 {
		cost += float64(t.Weight) / float64(denom.Weight)
	}
	if t.Size != 0 || denom.Size != 0 {
		cost += float64(t.Size) / float64(denom.Size)
	}
	return cost
}

// String renders t as "weight:size", the same compact form
// fair_queue_ticket uses in its own fmt::ostream rendering, so it reads
// well in log lines.
func (t Ticket) String() string {
	return fmt.Sprintf("%d:%d", t.Weight, t.Size)
}

// FixedPointFactor scales a normalized float cost into the fixed-point
// capacity domain used by fairgroup's rovers, preserving sub-unit
// precision across long-running replenishment arithmetic.
const FixedPointFactor = 1 << 16

// Capacity converts a ticket into a fixed-point capacity scalar against a
// per-rate-resolution cost budget: round(t.Normalize(costCapacity) *
// FixedPointFactor). It tolerates a zero-component costCapacity only when
// t's matching component is also zero, same as Normalize.
func Capacity(t, costCapacity Ticket) uint64 {
	return uint64(math.Round(t.Normalize(costCapacity) * FixedPointFactor))
}

func satSub32(a, b uint32) uint32 {
	if b > a {
		return 0
	}
	return a - b
}
