/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package trigger is the connector's single wait point: a level-triggered
// poller over every registered stream fd, plus a per-thread timer queue,
// so the whole bus runs on one goroutine blocked in one place (spec.md
// "Trigger Set" / "Poller" / "Timer queue").
package trigger

import "time"

// Interest is a bitmask of the conditions a registration cares about.
type Interest uint8

const (
	// Readable requests notification when the fd has data to read, a
	// pending Accept, or has reached EOF.
	Readable Interest = 1 << iota
	// Writable requests notification when the fd's outbound buffer has
	// room (edge would fire once; level fires as long as room exists).
	Writable
)

// Event reports one fd's readiness, as delivered by a single Wait call.
// Because the poller is level-triggered, a fd with unread data keeps
// reappearing in Wait's result until the caller drains it (spec.md
// "level-triggered, poll-based").
type Event struct {
	Fd       uintptr
	Readable bool
	Writable bool
	Error    bool
	Hup      bool
}

// Set is the trigger set: the registry of fds the connector's poll loop
// is currently waiting on.
type Set interface {
	// Register arms fd for the given interest set.
	Register(fd uintptr, interest Interest) error

	// Modify rearms fd with a new interest set (e.g. adding Writable once
	// a stream has buffered output to flush).
	Modify(fd uintptr, interest Interest) error

	// Unregister disarms fd. It is not an error to unregister a fd that
	// was already removed (e.g. by the kernel on close).
	Unregister(fd uintptr) error

	// Wait blocks up to timeout for at least one registered fd to become
	// ready, or for timeout to elapse (timeout <= 0 waits forever).
	// Implementations return no events and a nil error on a plain timeout.
	Wait(timeout time.Duration) ([]Event, error)

	// Close releases the underlying poller resource.
	Close() error
}
