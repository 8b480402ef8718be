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

//go:build linux

package trigger

import (
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// epollSet is the Linux epoll-backed Set. Level-triggered by construction:
// we never pass EPOLLET, so a fd with unconsumed data keeps being
// reported on every Wait call until the caller drains it.
type epollSet struct {
	mu  sync.Mutex
	fd  int
	buf []unix.EpollEvent
}

// NewPoller returns the platform trigger Set (epoll on Linux).
func NewPoller() (Set, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &epollSet{fd: fd, buf: make([]unix.EpollEvent, 256)}, nil
}

func toEpollEvents(i Interest) uint32 {
	var ev uint32
	if i&Readable != 0 {
		ev |= unix.EPOLLIN | unix.EPOLLRDHUP
	}
	if i&Writable != 0 {
		ev |= unix.EPOLLOUT
	}
	return ev
}

func (p *epollSet) Register(fd uintptr, interest Interest) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	ev := &unix.EpollEvent{Events: toEpollEvents(interest), Fd: int32(fd)}
	return unix.EpollCtl(p.fd, unix.EPOLL_CTL_ADD, int(fd), ev)
}

func (p *epollSet) Modify(fd uintptr, interest Interest) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	ev := &unix.EpollEvent{Events: toEpollEvents(interest), Fd: int32(fd)}
	return unix.EpollCtl(p.fd, unix.EPOLL_CTL_MOD, int(fd), ev)
}

func (p *epollSet) Unregister(fd uintptr) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := unix.EpollCtl(p.fd, unix.EPOLL_CTL_DEL, int(fd), nil)
	if err == unix.ENOENT {
		return nil
	}
	return err
}

func (p *epollSet) Wait(timeout time.Duration) ([]Event, error) {
	ms := -1
	if timeout > 0 {
		ms = int(timeout.Milliseconds())
	}

	n, err := unix.EpollWait(p.fd, p.buf, ms)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, err
	}

	out := make([]Event, 0, n)
	for i := 0; i < n; i++ {
		e := p.buf[i]
		out = append(out, Event{
			Fd:       uintptr(e.Fd),
			Readable: e.Events&(unix.EPOLLIN|unix.EPOLLRDHUP) != 0,
			Writable: e.Events&unix.EPOLLOUT != 0,
			Error:    e.Events&unix.EPOLLERR != 0,
			Hup:      e.Events&unix.EPOLLHUP != 0,
		})
	}
	return out, nil
}

func (p *epollSet) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return unix.Close(p.fd)
}
