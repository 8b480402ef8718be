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

// Package uuid generates and compares the session identifiers carried in
// the envelope header's eid field (spec.md §6.2).
package uuid

import (
	"crypto/rand"

	"github.com/google/uuid"
)

// ID is a 16-byte session identifier. It is a value type so sessions and
// xmsg headers can copy it without aliasing concerns.
type ID [16]byte

// Nil is the zero ID, used as a sentinel ("no session").
var Nil ID

// clockSeqMax bounds the full-duplex fan-out mutation in IncrementClockSeq;
// the variant bits (10xxxxxx) occupy the top two bits of byte 8, leaving 14
// usable bits for the "clock_seq_reserved" field referenced in spec.md §6.2
// and §4.9 step e.
const clockSeqMax = 0x3FFF

// NewV7 generates a time-ordered v7 UUID (spec.md §6.2, preferred form).
// It returns an error only if the system CSPRNG is unavailable, matching
// spec.md §4.9 step 1 ("Refuse to proceed if generation fails").
func NewV7() (ID, error) {
	u, err := uuid.NewV7()
	if err != nil {
		return Nil, err
	}
	var id ID
	copy(id[:], u[:])
	return id, nil
}

// NewV4 generates a legacy random v4 UUID (spec.md §6.2, controller-only
// legacy form).
func NewV4() (ID, error) {
	u, err := uuid.NewRandomFromReader(rand.Reader)
	if err != nil {
		return Nil, err
	}
	var id ID
	copy(id[:], u[:])
	return id, nil
}

// IsNil reports whether id is the zero value.
func (id ID) IsNil() bool {
	return id == Nil
}

// String renders the canonical 8-4-4-4-12 hex form.
func (id ID) String() string {
	var u uuid.UUID
	copy(u[:], id[:])
	return u.String()
}

// IncrementClockSeq mutates the clock-seq-reserved field (bytes 8-9,
// masked to 14 bits below the variant marker) so that each fan-out target
// in FULL_DUPLEX mode gets its own session id while the "node" bytes used
// by CmpNode stay identical (spec.md §4.9 step e, §6.2). It wraps at
// clockSeqMax rather than overflowing into the variant bits.
func (id ID) IncrementClockSeq() ID {
	out := id

	seq := (uint16(out[8])<<8 | uint16(out[9])) & clockSeqMax
	seq = (seq + 1) % (clockSeqMax + 1)

	out[8] = (out[8] & 0xC0) | byte(seq>>8)
	out[9] = byte(seq)

	return out
}

// CmpNode compares the last 6 "node" bytes only (spec.md §6.2
// uuidcmp_node), so two ids that differ only by the FULL_DUPLEX clock-seq
// mutation still match.
func CmpNode(a, b ID) bool {
	return a[10] == b[10] && a[11] == b[11] && a[12] == b[12] &&
		a[13] == b[13] && a[14] == b[14] && a[15] == b[15]
}
