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

// Package stream wraps one socket (or unix/tcp listener connection) with
// the nonblocking, buffered read/write shape the connector drives from
// its single poll loop (spec.md §4.5 "Stream" / "Socket buffer").
package stream

import (
	"errors"
	"io"
	"net"
	"sync"
	"syscall"
	"time"

	liberr "github.com/nabbar/cloudbus/errors"
)

// BufSizeCeiling bounds how much unflushed write data a Stream will
// accept before Write starts reporting ErrBackpressure (spec.md
// "BUFSIZE_CEILING", 256 MiB).
const BufSizeCeiling = 256 * 1024 * 1024

// readChunkSize is the size of one nonblocking read attempt.
const readChunkSize = 64 * 1024

var (
	// ErrBadSocket is returned by operations attempted on a Stream that
	// was never successfully connected (the BAD_SOCKET sentinel state).
	ErrBadSocket = liberr.New(uint16(liberr.MinPkgStream+1), "stream: bad socket")

	// ErrBackpressure is returned by Write when BufSizeCeiling would be
	// exceeded; callers must treat the session as unwritable until Flush
	// drains it (spec.md §4.9 write_prepare).
	ErrBackpressure = liberr.New(uint16(liberr.MinPkgStream+2), "stream: write buffer at capacity")
)

// Stream is a nonblocking, buffered duplex wrapper over one net.Conn.
// All methods except ReadChunk/Flush are safe to call from the
// connector's single goroutine without locking; Close may be called
// concurrently from a signal handler, hence the mutex.
type Stream struct {
	mu   sync.Mutex
	conn net.Conn
	bad  bool
	eof  bool
	err  error

	wbuf []byte // unflushed outbound bytes
	tellp int64
	tellg int64
}

// New wraps an already-established connection (e.g. from a listener's
// Accept, or a completed nonblocking Dial) as a Stream.
func New(conn net.Conn) *Stream {
	s := &Stream{conn: conn}
	s.applyNoDelay()
	return s
}

// Bad returns a Stream in the BAD_SOCKET sentinel state: every operation
// on it fails with ErrBadSocket until reset by assigning a fresh Stream.
func Bad() *Stream {
	return &Stream{bad: true}
}

// ConnectTCP dials addr (host:port) with a bounded timeout and wraps the
// result. The connection is left in blocking mode at the net.Conn layer;
// nonblocking behavior is achieved by the connector always using
// SetReadDeadline/SetWriteDeadline with a zero or near-zero timeout
// around ReadChunk/Flush rather than OS-level O_NONBLOCK, which Go's net
// package does not expose directly.
func ConnectTCP(addr string, timeout time.Duration) (*Stream, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, err
	}
	return New(conn), nil
}

// ConnectUnix dials a unix domain socket at path.
func ConnectUnix(path string, timeout time.Duration) (*Stream, error) {
	conn, err := net.DialTimeout("unix", path, timeout)
	if err != nil {
		return nil, err
	}
	return New(conn), nil
}

func (s *Stream) applyNoDelay() {
	if tc, ok := s.conn.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
	}
}

// Write appends p to the unflushed outbound buffer. It does not touch
// the socket; call Flush to push bytes out (spec.md "write/flush" split
// so a single poll-loop tick can write many small frames then flush
// once).
func (s *Stream) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.bad {
		return 0, ErrBadSocket
	}
	if len(s.wbuf)+len(p) > BufSizeCeiling {
		return 0, ErrBackpressure
	}

	s.wbuf = append(s.wbuf, p...)
	return len(p), nil
}

// Pending returns the number of unflushed outbound bytes.
func (s *Stream) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.wbuf)
}

// Flush pushes as many buffered outbound bytes to the socket as it will
// accept without blocking (a short deadline simulates O_NONBLOCK), and
// reports how many bytes were actually written.
func (s *Stream) Flush() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.bad {
		return 0, ErrBadSocket
	}
	if len(s.wbuf) == 0 {
		return 0, nil
	}

	_ = s.conn.SetWriteDeadline(time.Now().Add(time.Millisecond))
	n, err := s.conn.Write(s.wbuf)
	_ = s.conn.SetWriteDeadline(time.Time{})

	s.wbuf = s.wbuf[n:]
	s.tellp += int64(n)

	if err != nil && !isTimeout(err) {
		s.err = err
	}

	return n, err
}

// ReadChunk performs one nonblocking-style read and returns whatever
// bytes were available (possibly zero on a would-block condition).
func (s *Stream) ReadChunk() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.bad {
		return nil, ErrBadSocket
	}

	buf := make([]byte, readChunkSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(time.Millisecond))
	n, err := s.conn.Read(buf)
	_ = s.conn.SetReadDeadline(time.Time{})

	s.tellg += int64(n)

	if err == io.EOF {
		s.eof = true
		return buf[:n], nil
	}
	if err != nil && isTimeout(err) {
		return buf[:n], nil
	}
	if err != nil {
		s.err = err
		return buf[:n], err
	}

	return buf[:n], nil
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// Err returns the last non-timeout, non-EOF error observed.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// EOF reports whether the peer has closed its write side.
func (s *Stream) EOF() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eof
}

// Tellp returns the cumulative number of bytes flushed to the socket.
func (s *Stream) Tellp() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tellp
}

// Tellg returns the cumulative number of bytes read from the socket.
func (s *Stream) Tellg() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tellg
}

// Fd exposes the underlying file descriptor for registration with the
// poller (bus/trigger), when the connection is a *net.TCPConn or
// *net.UnixConn backed by an *os.File.
func (s *Stream) Fd() (uintptr, error) {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()

	sc, ok := conn.(syscall.Conn)
	if !ok {
		return 0, ErrBadSocket
	}

	raw, err := sc.SyscallConn()
	if err != nil {
		return 0, err
	}

	var fd uintptr
	err = raw.Control(func(f uintptr) { fd = f })
	return fd, err
}

// halfCloser is satisfied by *net.TCPConn and *net.UnixConn.
type halfCloser interface {
	CloseWrite() error
}

// CloseWrite half-closes the write side of the socket, leaving reads
// open, for the segment role's STOP-to-shutdown(WR) translation
// (spec.md §4.6.3). Streams backed by a connection type that cannot
// half-close fail with ErrBadSocket.
func (s *Stream) CloseWrite() error {
	s.mu.Lock()
	conn := s.conn
	bad := s.bad
	s.mu.Unlock()

	if bad || conn == nil {
		return ErrBadSocket
	}

	hc, ok := conn.(halfCloser)
	if !ok {
		return ErrBadSocket
	}
	return hc.CloseWrite()
}

// Close closes the underlying connection.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.bad || s.conn == nil {
		return nil
	}
	return s.conn.Close()
}
