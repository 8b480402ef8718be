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

// Package wire encodes and decodes the 24-byte envelope header carried in
// front of every frame on the bus (spec.md §6.1).
package wire

import (
	"encoding/binary"

	busuuid "github.com/nabbar/cloudbus/bus/uuid"
	"github.com/nabbar/cloudbus/errors"
)

// HeaderSize is the fixed on-wire size of Header, in bytes.
const HeaderSize = 24

// Frame types (type.op), spec.md §6.1.
const (
	OpData    uint8 = 0
	OpStop    uint8 = 1
	OpControl uint8 = 2
)

// Frame flags (type.flags), spec.md §6.1.
const (
	FlagInit  uint8 = 1 << 0
	FlagAbort uint8 = 1 << 1
)

// Version flags (version.flags), spec.md §6.1.
const (
	VersionFlagNone uint8 = 0
)

// CurrentVersion is the version.no this implementation emits.
const CurrentVersion uint8 = 1

// Header is the decoded form of the 24-byte envelope:
//
//	offset  size  field
//	0       16    eid            (session uuid)
//	16      2     len.seqno      (fragment sequence number, little endian)
//	18      2     len.length     (payload length, little endian)
//	20      1     version.no
//	21      1     version.flags
//	22      1     type.op
//	23      1     type.flags
type Header struct {
	EID          busuuid.ID
	SeqNo        uint16
	Length       uint16
	VersionNo    uint8
	VersionFlags uint8
	Op           uint8
	TypeFlags    uint8
}

// ErrShortHeader is returned by Decode when fewer than HeaderSize bytes
// are supplied.
var ErrShortHeader = errors.New(uint16(errors.MinPkgWire+1), "short header: need 24 bytes")

// Encode serializes h into a freshly allocated HeaderSize-byte slice.
func Encode(h Header) []byte {
	buf := make([]byte, HeaderSize)
	EncodeInto(buf, h)
	return buf
}

// EncodeInto serializes h into buf, which must be at least HeaderSize
// bytes long. It panics otherwise, since callers own buffer sizing
// (Encode allocates exactly HeaderSize).
func EncodeInto(buf []byte, h Header) {
	_ = buf[HeaderSize-1]

	copy(buf[0:16], h.EID[:])
	binary.LittleEndian.PutUint16(buf[16:18], h.SeqNo)
	binary.LittleEndian.PutUint16(buf[18:20], h.Length)
	buf[20] = h.VersionNo
	buf[21] = h.VersionFlags
	buf[22] = h.Op
	buf[23] = h.TypeFlags
}

// Decode parses a Header out of the first HeaderSize bytes of buf.
func Decode(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, ErrShortHeader
	}

	var h Header
	copy(h.EID[:], buf[0:16])
	h.SeqNo = binary.LittleEndian.Uint16(buf[16:18])
	h.Length = binary.LittleEndian.Uint16(buf[18:20])
	h.VersionNo = buf[20]
	h.VersionFlags = buf[21]
	h.Op = buf[22]
	h.TypeFlags = buf[23]

	return h, nil
}

// IsInit reports whether the INIT flag is set (first frame of a session).
func (h Header) IsInit() bool {
	return h.TypeFlags&FlagInit != 0
}

// IsAbort reports whether the ABORT flag is set (half-duplex fan-out
// loser cancellation, spec.md §4.9).
func (h Header) IsAbort() bool {
	return h.TypeFlags&FlagAbort != 0
}
