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

// Package segment implements the Marshaler spec.md §4.6.3 assigns to
// the Segment role: it terminates one north connection per session
// (never fans out) and forwards 1:1 onto exactly one south stream, the
// inverse direction of Controller's fan-out.
package segment

import (
	busuuid "github.com/nabbar/cloudbus/bus/uuid"
	"github.com/nabbar/cloudbus/bus/wire"
)

// Marshaler is the Segment role's envelope rewriter: a strict 1:1
// relay, so neither RouteSouth nor RouteNorth mutate the session id.
type Marshaler struct{}

// New builds a Segment Marshaler.
func New() *Marshaler {
	return &Marshaler{}
}

// NewSession mints the session id for a connection this segment
// terminates directly (a segment can originate sessions when it is the
// outermost node in a chain, spec.md §4.6.3).
func (m *Marshaler) NewSession() (busuuid.ID, error) {
	return busuuid.NewV7()
}

// RouteSouth passes the header through unchanged; a segment has exactly
// one south stream per session (target is always 0).
func (m *Marshaler) RouteSouth(h wire.Header, _ int) wire.Header {
	return h
}

// RouteNorth passes the header through unchanged.
func (m *Marshaler) RouteNorth(h wire.Header) wire.Header {
	return h
}

// Framed is the inverse of Controller's contract: a segment's north
// side faces the framed backbone, while its south side terminates a
// raw backend connection (spec.md §4.6.3).
func (m *Marshaler) Framed(isNorth bool) bool {
	return isNorth
}
