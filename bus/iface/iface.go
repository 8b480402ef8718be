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

// Package iface describes the north and south interfaces a node listens
// on or dials out to: their transport, address book, and fan-out mode
// (spec.md §4.2 "Interface").
package iface

import (
	"sync"
	"time"
)

// Role distinguishes the client-facing side (north) from the
// backend-facing side (south) of a node.
type Role uint8

const (
	North Role = iota
	South
)

func (r Role) String() string {
	if r == North {
		return "north"
	}
	return "south"
}

// Mode is the fan-out discipline applied across a node's south
// interfaces (spec.md §4.9); the connector dials one address per
// interface and takes the mode of the first south interface for the
// session: HALF duplex races every candidate and
// aborts the losers on first byte; FULL duplex keeps every candidate
// open for the life of the session.
type Mode uint8

const (
	Half Mode = iota
	Full
)

func ParseMode(s string) Mode {
	if s == "full" {
		return Full
	}
	return Half
}

func (m Mode) String() string {
	if m == Full {
		return "full"
	}
	return "half"
}

// Transport is the dial/listen family for an interface's addresses.
type Transport uint8

const (
	TCP Transport = iota
	Unix
)

func (t Transport) String() string {
	if t == Unix {
		return "unix"
	}
	return "tcp"
}

// AddressRecord is one dialable (or bindable) endpoint behind an
// interface, with the weight select_stream uses to prefer
// lighter-loaded targets (spec.md §4.8, §4.15).
type AddressRecord struct {
	Addr       string
	Weight     uint32
	ResolvedAt time.Time
	TTL        time.Duration
}

// Expired reports whether this record's TTL has elapsed.
func (a AddressRecord) Expired(now time.Time) bool {
	if a.TTL <= 0 {
		return false
	}
	return now.Sub(a.ResolvedAt) > a.TTL
}

// PendingConnect is a callback queued against an interface awaiting
// address resolution, invoked once Interface.SetAddresses delivers a
// fresh set (spec.md §4.14's "pending-connect callback queue").
type PendingConnect func(addrs []AddressRecord)

// Interface is one named bus endpoint: a listen or dial target, its
// transport, its resolved address book, and (for south interfaces) its
// fan-out Mode.
type Interface struct {
	mu sync.Mutex

	name      string
	role      Role
	transport Transport
	uri       string
	mode      Mode

	addresses []AddressRecord
	pending   []PendingConnect
}

// New builds an Interface. uri is the raw configured address (spec.md
// §6.3 grammar): unix://path, tcp://ipv4:port, tcp://[ipv6]:port, or
// tcp://hostname:port.
func New(name string, role Role, transport Transport, uri string, mode Mode) *Interface {
	return &Interface{name: name, role: role, transport: transport, uri: uri, mode: mode}
}

func (i *Interface) Name() string        { return i.name }
func (i *Interface) Role() Role          { return i.role }
func (i *Interface) Protocol() Transport { return i.transport }
func (i *Interface) URI() string         { return i.uri }
func (i *Interface) Mode() Mode          { return i.mode }

// Addresses returns a snapshot of the currently known address book.
func (i *Interface) Addresses() []AddressRecord {
	i.mu.Lock()
	defer i.mu.Unlock()

	out := make([]AddressRecord, len(i.addresses))
	copy(out, i.addresses)
	return out
}

// SetAddresses replaces the address book (e.g. once the resolver
// delivers a fresh lookup) and drains every queued PendingConnect
// callback against the new set.
func (i *Interface) SetAddresses(addrs []AddressRecord) {
	i.mu.Lock()
	pending := i.pending
	i.addresses = addrs
	i.pending = nil
	i.mu.Unlock()

	for _, cb := range pending {
		cb(addrs)
	}
}

// AwaitAddresses queues cb to run once SetAddresses next delivers a
// result, or runs it immediately if addresses are already known.
func (i *Interface) AwaitAddresses(cb PendingConnect) {
	i.mu.Lock()
	if len(i.addresses) > 0 {
		addrs := make([]AddressRecord, len(i.addresses))
		copy(addrs, i.addresses)
		i.mu.Unlock()
		cb(addrs)
		return
	}

	i.pending = append(i.pending, cb)
	i.mu.Unlock()
}

// PruneExpired drops addresses whose TTL has elapsed; it returns the
// number of records removed, for logging/metrics.
func (i *Interface) PruneExpired(now time.Time) int {
	i.mu.Lock()
	defer i.mu.Unlock()

	kept := i.addresses[:0]
	removed := 0
	for _, a := range i.addresses {
		if a.Expired(now) {
			removed++
			continue
		}
		kept = append(kept, a)
	}
	i.addresses = kept
	return removed
}
