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

// Package proxy implements the Marshaler spec.md §4.6.4 assigns to the
// Proxy role: a transparent pass-through that neither originates
// sessions nor fans out, relaying whatever identity it was handed by an
// upstream controller or segment.
package proxy

import (
	"errors"

	busuuid "github.com/nabbar/cloudbus/bus/uuid"
	"github.com/nabbar/cloudbus/bus/wire"
)

// ErrNotOriginator is returned by NewSession: a pure proxy never mints
// session identity, it only ever relays one it received.
var ErrNotOriginator = errors.New("proxy: does not originate sessions")

// Marshaler is the Proxy role's envelope rewriter.
type Marshaler struct{}

// New builds a Proxy Marshaler.
func New() *Marshaler {
	return &Marshaler{}
}

// NewSession always fails: see ErrNotOriginator.
func (m *Marshaler) NewSession() (busuuid.ID, error) {
	return busuuid.Nil, ErrNotOriginator
}

// RouteSouth passes the header through unchanged.
func (m *Marshaler) RouteSouth(h wire.Header, _ int) wire.Header {
	return h
}

// RouteNorth passes the header through unchanged.
func (m *Marshaler) RouteNorth(h wire.Header) wire.Header {
	return h
}

// Framed is true on both sides: a proxy never terminates raw bytes,
// it only ever relays already-framed envelopes (spec.md §4.6.4).
func (m *Marshaler) Framed(_ bool) bool {
	return true
}
