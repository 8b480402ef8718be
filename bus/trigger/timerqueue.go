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

package trigger

import (
	"sync"
	"time"

	antlabstimer "github.com/antlabs/timer"
)

// TimerQueue arms and fires deadlines (the connector arms one per
// south-stream heartbeat) without blocking the
// connector's poll loop: the underlying wheel runs on its own goroutine,
// but every expiry is handed back through a channel the connector drains
// once per tick, preserving the single-thread ownership of session state
// (grounded on connector_timerqueue.cpp's per-thread queue).
type TimerQueue struct {
	mu     sync.Mutex
	wheel  antlabstimer.Timer
	fired  chan Expiry
	timers map[uint64]antlabstimer.Timer
	nextID uint64
}

// Expiry identifies one fired deadline by the ID returned from Arm.
type Expiry struct {
	ID uint64
}

// NewTimerQueue starts the underlying timing wheel.
func NewTimerQueue() *TimerQueue {
	q := &TimerQueue{
		wheel:  antlabstimer.NewTimer(),
		fired:  make(chan Expiry, 256),
		timers: make(map[uint64]antlabstimer.Timer),
	}
	go q.wheel.Run()
	return q
}

// Arm schedules a one-shot deadline after d and returns an ID usable
// with Cancel. The expiry is delivered asynchronously on Fired().
func (q *TimerQueue) Arm(d time.Duration) uint64 {
	q.mu.Lock()
	id := q.nextID
	q.nextID++
	q.mu.Unlock()

	t := q.wheel.AfterFunc(d, func() {
		q.mu.Lock()
		delete(q.timers, id)
		q.mu.Unlock()

		select {
		case q.fired <- Expiry{ID: id}:
		default:
		}
	})

	q.mu.Lock()
	q.timers[id] = t
	q.mu.Unlock()

	return id
}

// Cancel disarms a previously-Armed deadline; it is a no-op if the timer
// already fired or was never armed.
func (q *TimerQueue) Cancel(id uint64) {
	q.mu.Lock()
	t, ok := q.timers[id]
	delete(q.timers, id)
	q.mu.Unlock()

	if ok {
		t.Stop()
	}
}

// Fired is the channel the connector selects on (alongside the poller's
// Wait and the resolver's result channel) to learn about expired
// deadlines.
func (q *TimerQueue) Fired() <-chan Expiry {
	return q.fired
}

// Close stops the underlying wheel.
func (q *TimerQueue) Close() error {
	q.wheel.Stop()
	return nil
}
