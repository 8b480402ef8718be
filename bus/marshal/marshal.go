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

// Package marshal declares the per-role envelope rewriting contract the
// connector calls on every frame it routes: controller, segment and
// proxy each implement it with the direction and fan-out semantics
// spec.md §4.4/§4.6.3/§4.6.4 assign to their role.
package marshal

import (
	busuuid "github.com/nabbar/cloudbus/bus/uuid"
	"github.com/nabbar/cloudbus/bus/wire"
)

// Marshaler rewrites one frame's header as it crosses from one side of
// the bus to the other. Payload bytes are never touched by a Marshaler;
// only the 24-byte envelope is.
type Marshaler interface {
	// RouteSouth rewrites a north-received header for forwarding onto a
	// chosen south stream (target selects which fan-out slot, for
	// FULL_DUPLEX's per-target clock-seq mutation).
	RouteSouth(h wire.Header, target int) wire.Header

	// RouteNorth rewrites a south-received header for forwarding back to
	// the owning north stream.
	RouteNorth(h wire.Header) wire.Header

	// NewSession mints the session identifier used for a freshly arrived
	// north connection's first frame.
	NewSession() (busuuid.ID, error)

	// Framed reports whether the named side (north when isNorth, south
	// otherwise) of this role carries framed envelopes on the wire, as
	// opposed to the bare byte stream a terminating client or backend
	// speaks (spec.md §4.4's per-role framing contract). The connector
	// decodes wire.Header off a framed side and synthesizes one for an
	// unframed side instead.
	Framed(isNorth bool) bool
}

// fanOutEID derives the per-target session id for FULL_DUPLEX fan-out:
// target 0 keeps the original id, every other target gets the clock-seq
// field incremented that many times so CmpNode still matches but the
// full id differs (spec.md §4.9 step e).
func fanOutEID(base busuuid.ID, target int) busuuid.ID {
	id := base
	for i := 0; i < target; i++ {
		id = id.IncrementClockSeq()
	}
	return id
}
