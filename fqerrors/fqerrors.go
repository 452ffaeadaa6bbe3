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

// Package fqerrors holds the error types fairqueue and fqconfig surface.
// The three class errors are precondition violations, not runtime
// failures: a caller that never registers a class twice, never touches an
// unregistered class, and never unregisters a non-empty class will never
// see one of them. InvalidConfigError is returned by fqconfig for a
// malformed or out-of-range configuration.
package fqerrors

import "fmt"

// ClassAlreadyRegisteredError is returned by RegisterPriorityClass when the
// given class id is already registered.
type ClassAlreadyRegisteredError struct {
	ClassID uint32
}

func (e ClassAlreadyRegisteredError) Error() string {
	return fmt.Sprintf("priority class %d is already registered", e.ClassID)
}

// ClassNotRegisteredError is returned when an operation names a class id
// that has not been registered (or has since been unregistered).
type ClassNotRegisteredError struct {
	ClassID uint32
}

func (e ClassNotRegisteredError) Error() string {
	return fmt.Sprintf("priority class %d is not registered", e.ClassID)
}

// ClassNotEmptyError is returned by UnregisterPriorityClass when the
// class's queue still holds entries.
type ClassNotEmptyError struct {
	ClassID uint32
	Queued  int
}

func (e ClassNotEmptyError) Error() string {
	return fmt.Sprintf("priority class %d has %d entries still queued", e.ClassID, e.Queued)
}

// InvalidConfigError is returned by an fqconfig Build method when a
// required field is missing or out of range.
type InvalidConfigError struct {
	Field  string
	Reason string
}

func (e InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config field %q: %s", e.Field, e.Reason)
}
