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

package wire

import (
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Heartbeat is the CONTROL-frame payload armed per south stream when a
// node's configured heartbeat interval is non-zero (spec.md §4.13).
// It never advances a session's state machine and is forwarded
// best-effort, dropped like any other frame under backpressure.
type Heartbeat struct {
	SentAt time.Time `cbor:"1,keyasint"`
	Load   uint32    `cbor:"2,keyasint"`
}

// EncodeHeartbeat cbor-encodes h for use as a CONTROL frame's payload.
func EncodeHeartbeat(h Heartbeat) ([]byte, error) {
	return cbor.Marshal(h)
}

// DecodeHeartbeat parses a CONTROL frame's payload back into a
// Heartbeat.
func DecodeHeartbeat(b []byte) (Heartbeat, error) {
	var h Heartbeat
	err := cbor.Unmarshal(b, &h)
	return h, err
}
