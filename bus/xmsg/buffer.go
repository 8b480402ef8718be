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

// Package xmsg buffers one envelope (header + payload) as it is assembled
// from or drained to a stream, with independent read ("get") and write
// ("put") cursors so a partially-read frame can keep accepting more bytes
// behind it (spec.md §4.3).
package xmsg

import (
	"io"

	"github.com/nabbar/cloudbus/bus/wire"
)

// BufInc is the first allocation; reserve doubles the capacity from there
// whenever more is needed than is left (spec.md §4.3 "BUFINC").
const BufInc = 4 * 1024

// openmode mirrors the classic iostream open mode bits, restricting Seek
// to the cursor(s) the buffer was built for.
type openmode uint8

const (
	modeIn openmode = 1 << iota
	modeOut
)

// Buffer accumulates one envelope. Bytes [0:put) are valid; bytes
// [0:get) have already been consumed by a reader. get never exceeds put.
type Buffer struct {
	buf  []byte
	get  int
	put  int
	mode openmode
}

// NewReader returns a Buffer positioned for reading a frame that will be
// filled in by successive Write calls (the stream fills it, the
// connector drains it) -- mode modeIn|modeOut, since both cursors move.
func NewReader() *Buffer {
	return &Buffer{mode: modeIn | modeOut}
}

// NewWriter returns a Buffer pre-loaded with payload, ready to be drained
// by Read calls (the connector fills it once, the stream drains it).
func NewWriter(payload []byte) *Buffer {
	b := &Buffer{buf: make([]byte, len(payload)), mode: modeOut}
	copy(b.buf, payload)
	b.put = len(payload)
	return b
}

// Reset empties the buffer, keeping its backing array.
func (b *Buffer) Reset() {
	b.get = 0
	b.put = 0
}

// Len returns the number of unread bytes.
func (b *Buffer) Len() int {
	return b.put - b.get
}

// Cap returns the backing array's capacity.
func (b *Buffer) Cap() int {
	return cap(b.buf)
}

// Buffered returns the unread bytes without advancing the get cursor.
func (b *Buffer) Buffered() []byte {
	return b.buf[b.get:b.put]
}

// reserve grows buf geometrically, doubling from BufInc, so at least n
// more bytes can be appended after put.
func (b *Buffer) reserve(n int) {
	need := b.put + n
	if need <= cap(b.buf) {
		return
	}

	grown := cap(b.buf)
	if grown == 0 {
		grown = BufInc
	}
	for grown < need {
		grown *= 2
	}

	nb := make([]byte, len(b.buf), grown)
	copy(nb, b.buf)
	b.buf = nb
}

// Write appends p, growing the buffer geometrically (io.Writer).
func (b *Buffer) Write(p []byte) (int, error) {
	b.reserve(len(p))
	b.buf = b.buf[:b.put+len(p)]
	n := copy(b.buf[b.put:], p)
	b.put += n
	return n, nil
}

// Read drains from the get cursor (io.Reader). It reports io.EOF and
// resets the get cursor to 0 once the buffer is fully drained, so a
// Buffer can be reused for the next frame without reallocation (spec.md
// §4.3 "EOF resets the get cursor").
func (b *Buffer) Read(p []byte) (int, error) {
	if b.get >= b.put {
		b.get = 0
		b.put = 0
		return 0, io.EOF
	}

	n := copy(p, b.buf[b.get:b.put])
	b.get += n
	return n, nil
}

// Tellg returns the current get (read) cursor position.
func (b *Buffer) Tellg() int { return b.get }

// Tellp returns the current put (write) cursor position.
func (b *Buffer) Tellp() int { return b.put }

// Seekg repositions the get cursor; it is rejected if the buffer was not
// opened for input movement.
func (b *Buffer) Seekg(pos int) bool {
	if b.mode&modeIn == 0 || pos < 0 || pos > b.put {
		return false
	}
	b.get = pos
	return true
}

// minimum header prefix sizes for each partially-decodable field, per
// spec.md §4.3: a field is only safe to read once this many bytes have
// accumulated in the header region.
const (
	eidReady     = 16
	seqLenReady  = 20
	versionReady = 22
	typeReady    = wire.HeaderSize
)

// HasEID reports whether enough bytes are buffered to read the eid field.
func (b *Buffer) HasEID() bool { return b.Len() >= eidReady }

// HasLen reports whether enough bytes are buffered to read len.seqno and
// len.length.
func (b *Buffer) HasLen() bool { return b.Len() >= seqLenReady }

// HasVersion reports whether enough bytes are buffered to read the
// version fields.
func (b *Buffer) HasVersion() bool { return b.Len() >= versionReady }

// HasType reports whether the full 24-byte header is buffered.
func (b *Buffer) HasType() bool { return b.Len() >= typeReady }

// DecodeHeader decodes the header from the buffered prefix, once HasType
// reports true; it does not advance any cursor.
func (b *Buffer) DecodeHeader() (wire.Header, error) {
	return wire.Decode(b.Buffered())
}

// Payload returns the bytes following the 24-byte header, up to put.
// Callers must check HasType and that Len() >= HeaderSize+length first.
func (b *Buffer) Payload(length int) []byte {
	start := b.get + wire.HeaderSize
	end := start + length
	if end > b.put {
		end = b.put
	}
	if start > b.put {
		return nil
	}
	return b.buf[start:end]
}
