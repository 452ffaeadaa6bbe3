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

package fairqueue

// priorityClass is one registered class's scheduling state: its share
// weight, its virtual-time cursor, and its FIFO of queued entries.
type priorityClass struct {
	id          uint32
	shares      uint32
	accumulated float64
	queue       entryList
	queued      bool // resident in the heap
}

func newPriorityClass(id, shares uint32) *priorityClass {
	return &priorityClass{id: id, shares: clampShares(shares)}
}

func (pc *priorityClass) updateShares(shares uint32) {
	pc.shares = clampShares(shares)
}

func clampShares(shares uint32) uint32 {
	if shares < 1 {
		return 1
	}
	return shares
}

// classHeap is a slice-backed min-heap over priorityClass.accumulated,
// implementing heap.Interface. Only Push/Pop/top access are used; nothing
// in the dispatch loop needs heap.Fix, because a class's cursor changes
// only while it is out of the heap (popped for dispatch, or idle before
// its rebase), and the runaway reset shifts every resident cursor by the
// same amount.
type classHeap []*priorityClass

func (h classHeap) Len() int            { return len(h) }
func (h classHeap) Less(i, j int) bool  { return h[i].accumulated < h[j].accumulated }
func (h classHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *classHeap) Push(x interface{}) { *h = append(*h, x.(*priorityClass)) }

func (h *classHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}
