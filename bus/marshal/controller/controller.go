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

// Package controller implements the Marshaler spec.md §4.4 assigns to
// the Controller role: it originates session identity on first contact
// and fans a single north frame out to one or more south streams.
package controller

import (
	busuuid "github.com/nabbar/cloudbus/bus/uuid"
	"github.com/nabbar/cloudbus/bus/wire"
)

// Marshaler is the Controller role's envelope rewriter. LegacyV4 selects
// the legacy random-uuid session identity (spec.md §6.2) instead of the
// default time-ordered v7; new deployments should leave it false.
type Marshaler struct {
	LegacyV4 bool
}

// New builds a Controller Marshaler.
func New(legacyV4 bool) *Marshaler {
	return &Marshaler{LegacyV4: legacyV4}
}

// NewSession mints the session id stamped on the first frame of a newly
// accepted north connection.
func (m *Marshaler) NewSession() (busuuid.ID, error) {
	if m.LegacyV4 {
		return busuuid.NewV4()
	}
	return busuuid.NewV7()
}

// RouteSouth stamps the fan-out target's derived session id (clock-seq
// mutated once per target index, spec.md §4.9 step e); every other
// header field, the INIT flag included, passes through unchanged.
func (m *Marshaler) RouteSouth(h wire.Header, target int) wire.Header {
	out := h
	id := h.EID
	for i := 0; i < target; i++ {
		id = id.IncrementClockSeq()
	}
	out.EID = id
	return out
}

// RouteNorth leaves the header otherwise unchanged; the connector is
// responsible for restamping h.EID with the session's canonical id
// (looked up via the connection table's FindBySouth, keyed by the south
// fd the reply arrived on, whichever fan-out target that is) before
// forwarding north.
func (m *Marshaler) RouteNorth(h wire.Header) wire.Header {
	return h
}

// Framed reports the Controller's framing contract: the north side
// terminates a raw client byte stream (spec.md §4.4), so only the south
// side (toward the framed backend/segment peers) carries envelopes.
func (m *Marshaler) Framed(isNorth bool) bool {
	return !isNorth
}
