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

package session

import liberr "github.com/nabbar/cloudbus/errors"

// ErrInvalidTransition is returned by Advance when the requested state
// is not reachable from the session's current state.
var ErrInvalidTransition = liberr.New(uint16(liberr.MinPkgSession+1), "session: invalid state transition")

// allowed enumerates the state machine's edges (spec.md §4.1): a normal
// session walks HALF_OPEN -> OPEN -> HALF_CLOSED -> CLOSED; ABORT is the
// fast path out of any state straight to CLOSED (spec.md §4.9's
// abort-the-losers race never waits for the orderly half-close dance).
var allowed = map[State][]State{
	HalfOpen:   {Open, Closed},
	Open:       {HalfClosed, Closed},
	HalfClosed: {Closed},
	Closed:     {},
}

// Advance transitions s to next if the edge is legal, or returns
// ErrInvalidTransition.
func Advance(s State, next State) (State, error) {
	for _, ok := range allowed[s] {
		if ok == next {
			return next, nil
		}
	}
	return s, ErrInvalidTransition
}

// Abort is the fast path to CLOSED from any non-terminal state,
// bypassing HALF_CLOSED (spec.md §4.9 "abort the losers").
func Abort(s State) State {
	if s == Closed {
		return Closed
	}
	return Closed
}

// AdvanceSession moves a Table entry through Advance, recording
// UpdatedAt, and returns the new state.
func (t *Table) AdvanceSession(h Handle, next State) (State, error) {
	s, ok := t.Get(h)
	if !ok {
		return Closed, ErrInvalidTransition
	}

	n, err := Advance(s.State, next)
	if err != nil {
		return s.State, err
	}

	t.Update(h, func(s *Session) { s.State = n })
	return n, nil
}

// AbortSession forces h straight to CLOSED, regardless of its current
// state, for the half-duplex loser race.
func (t *Table) AbortSession(h Handle) {
	s, ok := t.Get(h)
	if !ok {
		return
	}
	s.State = Abort(s.State)
}
