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

// Package session owns the connector's connection table: every active
// session's state machine, keyed by an (index, generation) handle. A
// handle resolves until its slot is removed or the table compacts;
// compaction bumps every surviving slot's generation, so a handle held
// across it no longer resolves and must be looked up again (spec.md
// §4.7 "Connection table", §9 "stable indices into arenas with
// generation counters").
package session

import (
	"time"

	"github.com/nabbar/cloudbus/bus/iface"
	busuuid "github.com/nabbar/cloudbus/bus/uuid"
)

// State is a session's position in the connector's lifecycle (spec.md
// §4.1 "connector state machine").
type State uint8

const (
	HalfOpen State = iota
	Open
	HalfClosed
	Closed
)

func (s State) String() string {
	switch s {
	case HalfOpen:
		return "HALF_OPEN"
	case Open:
		return "OPEN"
	case HalfClosed:
		return "HALF_CLOSED"
	case Closed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Handle is a stable reference into the Table's slot arena: Index
// addresses the slot, Generation must match the slot's current
// generation for the handle to still be valid. A Handle surviving past
// its slot's reuse (the classic ABA problem with raw indices) is simply
// rejected by Table.Get rather than aliasing the wrong session.
type Handle struct {
	Index      int
	Generation uint32
}

// Session is one multiplexed connection's state: its identity, its
// north stream, its south streams (more than one only under FULL_DUPLEX
// fan-out), and where it sits in the state machine.
type Session struct {
	EID   busuuid.ID
	North uintptr // north stream fd/handle
	South []uintptr
	Mode  iface.Mode // fan-out discipline governing this session's South set

	State     State
	CreatedAt time.Time
	UpdatedAt time.Time
}

type slot struct {
	session    Session
	generation uint32
	occupied   bool
}

// compactionSlack mirrors spec.md's "1/8 slack ratio beyond 32 or 1024"
// threshold: the table is compacted once free slots exceed max(32, len/8)
// past the 1024-entry mark, trading a little wasted memory for avoiding
// a compaction on every single close.
const (
	compactionMinThreshold = 32
	compactionSizeFloor    = 1024
)

// Table is the connector's single-threaded connection table. It is not
// safe for concurrent use; the connector owns it exclusively, matching
// spec.md's single-goroutine invariant.
type Table struct {
	slots []slot
	free  []int

	byNorth map[uintptr]int
	bySouth map[uintptr]int
}

// New builds an empty Table.
func New() *Table {
	return &Table{
		byNorth: make(map[uintptr]int),
		bySouth: make(map[uintptr]int),
	}
}

// Insert adds a new session and returns a Handle to it.
func (t *Table) Insert(s Session) Handle {
	s.CreatedAt = time.Now()
	s.UpdatedAt = s.CreatedAt

	var idx int
	if n := len(t.free); n > 0 {
		idx = t.free[n-1]
		t.free = t.free[:n-1]
		t.slots[idx].session = s
		t.slots[idx].occupied = true
	} else {
		idx = len(t.slots)
		t.slots = append(t.slots, slot{session: s, occupied: true})
	}

	t.byNorth[s.North] = idx
	for _, sfd := range s.South {
		t.bySouth[sfd] = idx
	}

	return Handle{Index: idx, Generation: t.slots[idx].generation}
}

// Get resolves a Handle to its Session, rejecting stale handles whose
// generation no longer matches (the slot was freed and reused since).
func (t *Table) Get(h Handle) (*Session, bool) {
	if h.Index < 0 || h.Index >= len(t.slots) {
		return nil, false
	}
	sl := &t.slots[h.Index]
	if !sl.occupied || sl.generation != h.Generation {
		return nil, false
	}
	return &sl.session, true
}

// Update rewrites the session at h, if still valid.
func (t *Table) Update(h Handle, fn func(*Session)) bool {
	s, ok := t.Get(h)
	if !ok {
		return false
	}
	fn(s)
	s.UpdatedAt = time.Now()
	return true
}

// FindByNorth implements find_by_north: the session whose north stream
// is fd, if any.
func (t *Table) FindByNorth(fd uintptr) (Handle, bool) {
	idx, ok := t.byNorth[fd]
	if !ok {
		return Handle{}, false
	}
	return Handle{Index: idx, Generation: t.slots[idx].generation}, true
}

// FindBySouth implements find_by_south: the session owning south stream
// fd, if any.
func (t *Table) FindBySouth(fd uintptr) (Handle, bool) {
	idx, ok := t.bySouth[fd]
	if !ok {
		return Handle{}, false
	}
	return Handle{Index: idx, Generation: t.slots[idx].generation}, true
}

// FindByUUIDAndSouth implements find_by_uuid_and_south: used when a
// FULL_DUPLEX fan-out mutates the clock-seq bytes per south target, so
// lookups must compare by node bytes rather than exact equality.
func (t *Table) FindByUUIDAndSouth(eid busuuid.ID, fd uintptr) (Handle, bool) {
	idx, ok := t.bySouth[fd]
	if !ok {
		return Handle{}, false
	}
	if !busuuid.CmpNode(t.slots[idx].session.EID, eid) {
		return Handle{}, false
	}
	return Handle{Index: idx, Generation: t.slots[idx].generation}, true
}

// RemoveSouth detaches one south fd from the session at h without
// evicting the session itself: used when a HALF_DUPLEX race's losing
// target is aborted while the winner keeps the session alive.
func (t *Table) RemoveSouth(h Handle, fd uintptr) bool {
	s, ok := t.Get(h)
	if !ok {
		return false
	}

	delete(t.bySouth, fd)
	for i, sfd := range s.South {
		if sfd == fd {
			s.South = append(s.South[:i], s.South[i+1:]...)
			break
		}
	}
	return true
}

// Remove evicts the session at h (no-op if already invalid), bumping
// its slot's generation so any outstanding Handle is invalidated, and
// triggers compaction if the free-slot slack has grown past threshold.
func (t *Table) Remove(h Handle) {
	s, ok := t.Get(h)
	if !ok {
		return
	}

	delete(t.byNorth, s.North)
	for _, sfd := range s.South {
		delete(t.bySouth, sfd)
	}

	sl := &t.slots[h.Index]
	sl.occupied = false
	sl.session = Session{}
	sl.generation++
	t.free = append(t.free, h.Index)

	t.maybeCompact()
}

// Len returns the number of occupied slots.
func (t *Table) Len() int {
	return len(t.slots) - len(t.free)
}

func (t *Table) maybeCompact() {
	total := len(t.slots)
	if total < compactionSizeFloor {
		return
	}

	slack := total / 8
	if slack < compactionMinThreshold {
		slack = compactionMinThreshold
	}
	if len(t.free) <= slack {
		return
	}

	t.compact()
}

// compact rebuilds the slot arena, dropping free slots entirely. Every
// Handle held elsewhere is invalidated by construction: each surviving
// slot's generation is bumped as it is copied, so a stale Handle's
// (Index, Generation) pair can never validate again even when the slot
// it named keeps the same Index after compaction, or a surviving
// session happens to have carried the same generation number the stale
// Handle was minted with. Callers must not hold a Handle across a call
// that can trigger compaction (Remove); FindBy* calls afterward always
// return fresh handles.
func (t *Table) compact() {
	newSlots := make([]slot, 0, t.Len())
	newByNorth := make(map[uintptr]int, len(t.byNorth))
	newBySouth := make(map[uintptr]int, len(t.bySouth))

	for _, sl := range t.slots {
		if !sl.occupied {
			continue
		}
		sl.generation++
		idx := len(newSlots)
		newSlots = append(newSlots, sl)
		newByNorth[sl.session.North] = idx
		for _, sfd := range sl.session.South {
			newBySouth[sfd] = idx
		}
	}

	t.slots = newSlots
	t.free = nil
	t.byNorth = newByNorth
	t.bySouth = newBySouth
}
