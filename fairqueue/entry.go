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

import "go.uber.org/fairqueue/ticket"

// Entry is a caller-owned node carrying a ticket and whatever payload the
// caller needs. The Queue borrows an Entry by intrusive reference while it
// is enqueued (prev/next link it into its class's FIFO); ownership never
// transfers. A caller should treat prev/next as owned by the Queue and
// touch only Ticket and Value.
type Entry struct {
	// Ticket is this entry's cost. NotifyRequestCancelled zeroes it so a
	// cancelled entry can never be double-charged.
	Ticket ticket.Ticket

	// Value is the caller's back-reference, opaque to the Queue.
	Value interface{}

	classID uint32
	prev    *Entry
	next    *Entry
	linked  bool
}

// entryList is the intrusive per-class FIFO: O(1) push-back, front, and
// pop-front, and O(1) unlink-from-anywhere given the entry itself, with no
// allocation on any operation. Plain pointer fields stand in for a
// boost::intrusive-style hook, since this dependency set has no generic
// intrusive-container library.
type entryList struct {
	head, tail *Entry
	len        int
}

func (l *entryList) empty() bool {
	return l.len == 0
}

func (l *entryList) pushBack(e *Entry) {
	e.prev, e.next = l.tail, nil
	if l.tail != nil {
		l.tail.next = e
	} else {
		l.head = e
	}
	l.tail = e
	l.linkedSet(e, true)
	l.len++
}

func (l *entryList) front() *Entry {
	return l.head
}

func (l *entryList) popFront() *Entry {
	e := l.head
	if e == nil {
		return nil
	}
	l.unlink(e)
	return e
}

// remove unlinks e from wherever it sits in the list. e must currently be
// linked into this list.
func (l *entryList) remove(e *Entry) {
	l.unlink(e)
}

func (l *entryList) unlink(e *Entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		l.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		l.tail = e.prev
	}
	e.prev, e.next = nil, nil
	l.linkedSet(e, false)
	l.len--
}

func (l *entryList) linkedSet(e *Entry, linked bool) {
	e.linked = linked
}
