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

// Package connector is the engine: one goroutine, one poll loop, owning
// the connection table, every stream, the resolver and the timer queue
// exclusively, exactly as spec.md's concurrency model requires (no
// session state is ever touched from any other goroutine).
package connector

import (
	"context"
	"net"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/nabbar/cloudbus/bus/iface"
	"github.com/nabbar/cloudbus/bus/metrics"
	"github.com/nabbar/cloudbus/bus/resolver"
	"github.com/nabbar/cloudbus/bus/session"
	"github.com/nabbar/cloudbus/bus/stream"
	"github.com/nabbar/cloudbus/bus/trigger"
	busuuid "github.com/nabbar/cloudbus/bus/uuid"
	"github.com/nabbar/cloudbus/bus/wire"
	"github.com/nabbar/cloudbus/bus/xmsg"
	"github.com/nabbar/cloudbus/logger"
)

// dialTimeout bounds how long connecting to a south address may block
// the connector goroutine; spec.md's single-thread invariant makes a
// long-hanging dial here as bad as a blocking read.
const dialTimeout = 2 * time.Second

// pollTimeout bounds how long one Wait call blocks, so the loop always
// comes back around to check ctx.Done(), drain mode, the resolver
// channel and the timer queue even with no fd activity.
const pollTimeout = 200 * time.Millisecond

// maxRawPayload is the largest chunk of an unframed byte stream that can
// be carried as one DATA frame's payload: wire.Header.Length is a
// uint16, so 65535 minus the 24-byte header it never actually encodes
// for a raw peer, matching spec.md §8.3's 65511-byte boundary.
const maxRawPayload = 65535 - wire.HeaderSize

// Marshaler is the subset of bus/marshal's contract the connector
// depends on; satisfied by controller.Marshaler, segment.Marshaler and
// proxy.Marshaler.
type Marshaler interface {
	RouteSouth(h wire.Header, target int) wire.Header
	RouteNorth(h wire.Header) wire.Header
	NewSession() (busuuid.ID, error)
	Framed(isNorth bool) bool
}

// streamEntry binds a live stream.Stream plus its read-side xmsg state
// to the fd the poller reports readiness against. framed records which
// side of the role's framing contract this entry sits on (spec.md
// §4.4): a framed entry accumulates and decodes wire.Header envelopes
// in rx; an unframed entry's raw bytes are wrapped in a synthetic
// header by the connector itself, and rx is left nil.
type streamEntry struct {
	fd      uintptr
	sock    *stream.Stream
	isNorth bool
	ifName  string
	framed  bool
	rx      *xmsg.Buffer
}

// Connector is one node's (controller/segment/proxy) running engine.
type Connector struct {
	Role     string // "controller", "segment" or "proxy"
	Marshal  Marshaler
	North    *iface.Interface
	South    []*iface.Interface
	Poller   trigger.Set
	Timers   *trigger.TimerQueue
	Resolver *resolver.Resolver
	Table    *session.Table
	Metrics  *metrics.Collector
	Log      logger.Logger

	// RefusedRetryCount holds the configured refused_retry_count. The
	// connector stores it but does not read it: a south dial that fails,
	// refused or otherwise, is logged and its target skipped for that
	// session, with no retry and no address expiry.
	RefusedRetryCount int

	// HeartbeatInterval arms a recurring CONTROL frame per south stream
	// when non-zero (spec.md §4.13).
	HeartbeatInterval time.Duration

	streams    map[uintptr]*streamEntry
	drain      bool
	heartbeats map[uint64]uintptr // timer id -> south fd
}

// New builds a Connector. Callers still need to register at least one
// north interface's listening fd via RegisterNorth before calling Run.
func New(role string, m Marshaler, table *session.Table, met *metrics.Collector, res *resolver.Resolver, poller trigger.Set, timers *trigger.TimerQueue, log logger.Logger) *Connector {
	return &Connector{
		Role:              role,
		Marshal:           m,
		Table:             table,
		Metrics:           met,
		Resolver:          res,
		Poller:            poller,
		Timers:            timers,
		Log:               log,
		RefusedRetryCount: 1,
		streams:           make(map[uintptr]*streamEntry),
		heartbeats:        make(map[uint64]uintptr),
	}
}

// RegisterStream arms fd for readability (and, once it has pending
// output, writability) and remembers which interface/direction it
// belongs to, along with whether this role's framing contract treats
// this side as framed envelopes or a raw byte stream (spec.md §4.4).
func (c *Connector) RegisterStream(sock *stream.Stream, ifName string, isNorth bool) error {
	fd, err := sock.Fd()
	if err != nil {
		return err
	}

	if err := c.Poller.Register(fd, trigger.Readable); err != nil {
		return err
	}

	entry := &streamEntry{
		fd:      fd,
		sock:    sock,
		isNorth: isNorth,
		ifName:  ifName,
		framed:  c.Marshal.Framed(isNorth),
	}
	if entry.framed {
		entry.rx = xmsg.NewReader()
	}

	c.streams[fd] = entry
	return nil
}

// UnregisterStream disarms and forgets fd.
func (c *Connector) UnregisterStream(fd uintptr) {
	_ = c.Poller.Unregister(fd)
	delete(c.streams, fd)
}

// Drain puts the connector into drain mode (spec.md §6.5 SIGTERM/SIGHUP
// behavior): no new north sessions are accepted, but in-flight sessions
// are allowed to finish naturally.
func (c *Connector) Drain() {
	c.drain = true
}

// Draining reports whether the connector is in drain mode.
func (c *Connector) Draining() bool {
	return c.drain
}

// Run blocks, driving the poll loop until ctx is cancelled. It is meant
// to run on its own goroutine for the lifetime of the process; every
// other method on Connector must only be called from that same
// goroutine, or before Run starts.
func (c *Connector) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return c.shutdown()
		default:
		}

		events, err := c.Poller.Wait(pollTimeout)
		if err != nil {
			return err
		}

		for _, ev := range events {
			c.handleEvent(ev)
		}

		c.drainResolver()
		c.drainTimers()
	}
}

// shutdown tears down every resource the connector owns, collecting
// every failure rather than stopping at the first one: a stuck poller
// close should not hide a resolver goroutine that also failed to exit.
func (c *Connector) shutdown() error {
	var merr *multierror.Error

	for fd := range c.streams {
		c.UnregisterStream(fd)
	}
	if err := c.Timers.Close(); err != nil {
		merr = multierror.Append(merr, err)
	}
	if err := c.Resolver.Close(); err != nil {
		merr = multierror.Append(merr, err)
	}
	if err := c.Poller.Close(); err != nil {
		merr = multierror.Append(merr, err)
	}

	return merr.ErrorOrNil()
}

func (c *Connector) handleEvent(ev trigger.Event) {
	entry, ok := c.streams[ev.Fd]
	if !ok {
		return
	}

	if ev.Error || ev.Hup {
		c.closeStream(entry)
		return
	}

	if ev.Readable {
		c.readFrom(entry)
	}
	if ev.Writable {
		c.flushTo(entry)
	}
}

// readFrom drains one nonblocking chunk from entry's socket and routes
// any complete frames it contains. A proactive backpressure probe runs
// first: if the session's opposite-direction peer is already sitting at
// BufSizeCeiling, POLLIN is disabled on entry instead of consuming bytes
// from the kernel's socket buffer that could not be forwarded anyway
// (spec.md §4.8 "write_prepare ... disable POLLIN on nfd").
func (c *Connector) readFrom(entry *streamEntry) {
	if c.downstreamBlocked(entry) {
		c.blockReadable(entry)
		return
	}

	chunk, err := entry.sock.ReadChunk()
	if err != nil {
		c.closeStream(entry)
		return
	}

	eof := len(chunk) == 0 && entry.sock.EOF()

	if entry.framed {
		c.consumeFramed(entry, chunk, eof)
		return
	}
	c.consumeRaw(entry, chunk, eof)
}

// consumeFramed accumulates chunk into entry's xmsg.Buffer and decodes
// every complete frame the buffer now holds, looping until only a
// partial header or a fragment still short of its declared length is
// left (spec.md §8.3's fragmented-frame boundary case) -- the rest is
// simply left buffered for the next readiness notification.
func (c *Connector) consumeFramed(entry *streamEntry, chunk []byte, eof bool) {
	if len(chunk) > 0 {
		_, _ = entry.rx.Write(chunk)
	}

	for entry.rx.HasType() {
		h, err := entry.rx.DecodeHeader()
		if err != nil {
			break
		}

		need := wire.HeaderSize + int(h.Length)
		if entry.rx.Len() < need {
			break
		}

		payload := append([]byte(nil), entry.rx.Payload(int(h.Length))...)
		entry.rx.Seekg(entry.rx.Tellg() + need)

		if entry.isNorth {
			c.routeSouth(entry, h, payload)
		} else {
			c.routeNorth(entry, h, payload)
		}
	}

	if entry.rx.Len() == 0 {
		entry.rx.Reset()
	}

	if eof {
		c.closeStream(entry)
	}
}

// consumeRaw wraps an unframed peer's bytes in a synthetic DATA header
// per maxRawPayload-sized slice and an EOF in a synthetic STOP, so the
// rest of the routing pipeline never has to know this side carries no
// envelope on the wire (spec.md §4.4).
func (c *Connector) consumeRaw(entry *streamEntry, chunk []byte, eof bool) {
	for len(chunk) > 0 {
		n := len(chunk)
		if n > maxRawPayload {
			n = maxRawPayload
		}
		part := chunk[:n]
		chunk = chunk[n:]

		h := wire.Header{Op: wire.OpData, Length: uint16(len(part))}
		if !c.hasSession(entry) {
			h.TypeFlags |= wire.FlagInit
		}

		if entry.isNorth {
			c.routeSouth(entry, h, part)
		} else {
			c.routeNorth(entry, h, part)
		}
	}

	if eof {
		h := wire.Header{Op: wire.OpStop}
		if entry.isNorth {
			c.routeSouth(entry, h, nil)
		} else {
			c.routeNorth(entry, h, nil)
		}
		c.closeStream(entry)
	}
}

// hasSession reports whether entry is already bound to a session in the
// connection table.
func (c *Connector) hasSession(entry *streamEntry) bool {
	if entry.isNorth {
		_, ok := c.Table.FindByNorth(entry.fd)
		return ok
	}
	_, ok := c.Table.FindBySouth(entry.fd)
	return ok
}

// downstreamBlocked reports whether entry's session has an
// opposite-direction peer already sitting at or above BufSizeCeiling --
// the read-side half of spec.md's backpressure propagation.
func (c *Connector) downstreamBlocked(entry *streamEntry) bool {
	var (
		sh session.Handle
		ok bool
	)
	if entry.isNorth {
		sh, ok = c.Table.FindByNorth(entry.fd)
	} else {
		sh, ok = c.Table.FindBySouth(entry.fd)
	}
	if !ok {
		return false
	}
	sess, ok := c.Table.Get(sh)
	if !ok {
		return false
	}

	if entry.isNorth {
		for _, fd := range sess.South {
			if se, ok := c.streams[fd]; ok && se.sock.Pending() >= stream.BufSizeCeiling {
				return true
			}
		}
		return false
	}

	se, ok := c.streams[sess.North]
	return ok && se.sock.Pending() >= stream.BufSizeCeiling
}

// routeSouth forwards a north-originated frame onto the session's
// selected south stream(s): an INIT frame first dials every configured
// south target (spec.md §4.9), fanning out to all of them under
// FULL_DUPLEX or racing them under HALF_DUPLEX (the race is settled the
// moment the first reply arrives, in routeNorth below); subsequent
// frames on an already-open session reuse whichever south fds the table
// still holds for it, and apply the session's own state transition
// (most notably STOP, spec.md §4.1).
func (c *Connector) routeSouth(entry *streamEntry, h wire.Header, payload []byte) {
	if h.IsInit() {
		id, err := c.Marshal.NewSession()
		if err != nil {
			c.Log.Error("session id generation failed", err)
			return
		}
		h.EID = id

		targets := c.connectSouthTargets()
		if len(targets) == 0 {
			c.Log.Warn("no south target reachable for INIT", logger.Fields{"north": entry.ifName})
			return
		}

		mode := iface.Half
		if len(c.South) > 0 {
			mode = c.South[0].Mode()
		}

		fds := make([]uintptr, 0, len(targets))
		for _, t := range targets {
			fds = append(fds, t.fd)
		}

		c.Table.Insert(session.Session{EID: id, North: entry.fd, South: fds, Mode: mode})

		for i, t := range targets {
			out := c.Marshal.RouteSouth(h, i)
			c.writeFrame(t, out, payload)
		}
		return
	}

	sh, ok := c.Table.FindByNorth(entry.fd)
	if !ok {
		return
	}
	sess, ok := c.Table.Get(sh)
	if !ok {
		return
	}

	c.applyTransition(sh, h)

	for i, fd := range sess.South {
		se, ok := c.streams[fd]
		if !ok {
			continue
		}
		out := c.Marshal.RouteSouth(h, i)
		c.writeFrame(se, out, payload)
	}
}

// connectSouthTargets dials one address from every configured south
// interface whose address book is already populated, or whose resolver
// answer is available at once (a literal IP or a fresh cached lookup),
// kicking off a lazy resolution (and skipping the target for now) for
// any other (spec.md §4.8 "lazy DNS resolution").
func (c *Connector) connectSouthTargets() []*streamEntry {
	entries := make([]*streamEntry, 0, len(c.South))

	for _, target := range c.South {
		addrs := target.Addresses()
		if len(addrs) == 0 {
			if target.Protocol() == iface.Unix {
				addrs = []iface.AddressRecord{{Addr: strings.TrimPrefix(target.URI(), "unix://")}}
			} else {
				recs, ok := c.Resolver.Lookup(strings.TrimPrefix(target.URI(), "tcp://"))
				if !ok {
					continue
				}
				for _, r := range recs {
					addrs = append(addrs, iface.AddressRecord{Addr: r.Addr, Weight: r.Weight, ResolvedAt: r.ResolvedAt, TTL: r.TTL})
				}
				target.SetAddresses(addrs)
			}
		}

		addr := pickAddress(addrs)

		var sock *stream.Stream
		var err error
		if target.Protocol() == iface.Unix {
			sock, err = stream.ConnectUnix(addr.Addr, dialTimeout)
		} else {
			sock, err = stream.ConnectTCP(addr.Addr, dialTimeout)
		}
		if err != nil {
			c.Log.Warn("south dial failed", logger.Fields{"interface": target.Name(), "addr": addr.Addr})
			continue
		}

		if err := c.RegisterStream(sock, target.Name(), false); err != nil {
			_ = sock.Close()
			continue
		}

		fd, ferr := sock.Fd()
		if ferr != nil {
			continue
		}
		entries = append(entries, c.streams[fd])

		if c.HeartbeatInterval > 0 {
			c.armHeartbeat(fd)
		}
	}

	return entries
}

// armHeartbeat schedules the next CONTROL heartbeat for the south stream
// at fd (spec.md §4.13). Heartbeats never advance a session's state
// machine and are dropped like any other frame under backpressure.
func (c *Connector) armHeartbeat(fd uintptr) {
	id := c.Timers.Arm(c.HeartbeatInterval)
	c.heartbeats[id] = fd
}

// sendHeartbeat emits one CONTROL frame carrying the current load on
// entry's south stream.
func (c *Connector) sendHeartbeat(entry *streamEntry) {
	payload, err := wire.EncodeHeartbeat(wire.Heartbeat{SentAt: time.Now(), Load: uint32(len(c.streams))})
	if err != nil {
		return
	}
	c.writeFrame(entry, wire.Header{Op: wire.OpControl, Length: uint16(len(payload))}, payload)
}

// pickAddress applies select_stream's weight preference over one
// interface's address book (spec.md §4.15): the heaviest-weighted
// record wins, ties broken by whichever sorts first.
func pickAddress(addrs []iface.AddressRecord) iface.AddressRecord {
	best := addrs[0]
	for _, a := range addrs[1:] {
		if a.Weight > best.Weight {
			best = a
		}
	}
	return best
}

// hostOf strips a spec.md §6.3 URI down to the bare host the resolver
// caches results under.
func hostOf(uri string) string {
	s := strings.TrimPrefix(strings.TrimPrefix(uri, "tcp://"), "unix://")
	if host, _, err := net.SplitHostPort(s); err == nil {
		return host
	}
	return s
}

// routeNorth forwards a south-originated frame back to the owning north
// stream, restamping the envelope with the session's canonical id (a
// FULL_DUPLEX reply may have arrived on a target whose id carries a
// mutated clock-seq, spec.md §4.9 step e) and applying the session's
// state transition. Under HALF_DUPLEX, the frame that settles the
// HALF_OPEN -> OPEN race aborts every other south candidate (spec.md
// §4.9 step e, "race + abort losers"); an unknown south fd (no session
// found at all) gets an ABORT envelope written straight back.
func (c *Connector) routeNorth(entry *streamEntry, h wire.Header, payload []byte) {
	sh, ok := c.Table.FindBySouth(entry.fd)
	if !ok {
		c.abortUnknownSouth(entry, h)
		return
	}
	sess, ok := c.Table.Get(sh)
	if !ok {
		return
	}

	preState := sess.State
	newState := c.applyTransition(sh, h)

	if preState == session.HalfOpen && newState == session.Open &&
		sess.Mode == iface.Half && len(sess.South) > 1 {
		c.abortLosers(sh, sess, entry.fd)
	}

	out := c.Marshal.RouteNorth(h)
	out.EID = sess.EID

	northEntry, ok := c.streams[sess.North]
	if !ok {
		return
	}
	c.writeFrame(northEntry, out, payload)
}

// abortUnknownSouth writes an ABORT envelope back to entry when no
// session claims it (spec.md §4.6.2 step 4): a raw, unframed backend has
// no envelope to receive, so there is nothing to write back to.
func (c *Connector) abortUnknownSouth(entry *streamEntry, h wire.Header) {
	if !entry.framed {
		return
	}
	c.writeFrame(entry, wire.Header{EID: h.EID, Op: wire.OpStop, TypeFlags: wire.FlagAbort}, nil)
}

// applyTransition advances the session at h per hdr's opcode/flags and
// returns its resulting state: ABORT forces CLOSED regardless of
// current state; STOP walks toward HALF_CLOSED/CLOSED; any other frame
// on a still-HALF_OPEN session settles it to OPEN (the first reply in a
// HALF_DUPLEX race, or the first roundtrip otherwise). A frame that does
// not correspond to a legal edge is simply dropped, leaving state
// unchanged.
func (c *Connector) applyTransition(h session.Handle, hdr wire.Header) session.State {
	sess, ok := c.Table.Get(h)
	if !ok {
		return session.Closed
	}

	if hdr.IsAbort() {
		c.Table.AbortSession(h)
		return session.Closed
	}

	var next session.State
	switch {
	case hdr.Op == wire.OpStop:
		next = nextForStop(sess.State)
	case sess.State == session.HalfOpen:
		next = session.Open
	default:
		return sess.State
	}

	n, err := c.Table.AdvanceSession(h, next)
	if err != nil {
		return sess.State
	}
	return n
}

// nextForStop is STOP's target state given the session's current one: a
// STOP arriving before the session ever left HALF_OPEN drops it straight
// to CLOSED (no peer ever replied), an OPEN session's first STOP only
// half-closes, and a second STOP on an already HALF_CLOSED session
// closes it.
func nextForStop(s session.State) session.State {
	switch s {
	case session.Open:
		return session.HalfClosed
	default:
		return session.Closed
	}
}

// abortLosers writes an ABORT envelope to every south candidate of sess
// other than winner, then closes and drops each of them from the
// table's South set. It works off a snapshot of sess.South, since
// Table.RemoveSouth mutates that same slice in place as each loser is
// dropped.
func (c *Connector) abortLosers(h session.Handle, sess *session.Session, winner uintptr) {
	losers := make([]uintptr, 0, len(sess.South))
	for _, fd := range sess.South {
		if fd != winner {
			losers = append(losers, fd)
		}
	}

	eid := sess.EID
	for _, fd := range losers {
		if se, ok := c.streams[fd]; ok {
			c.writeFrame(se, wire.Header{EID: eid, Op: wire.OpStop, TypeFlags: wire.FlagAbort}, nil)
			_, _ = se.sock.Flush()
			c.UnregisterStream(se.fd)
			_ = se.sock.Close()
		}
		c.Table.RemoveSouth(h, fd)
	}
}

// writeFrame implements write_prepare: it buffers the frame, and only
// arms Writable interest on the poller once Write reports backpressure,
// so the common case (room available) never pays for an extra syscall.
// Unframed entries dispatch through writeRaw instead, which drops the
// envelope and forwards (or translates) payload bytes verbatim.
func (c *Connector) writeFrame(entry *streamEntry, h wire.Header, payload []byte) {
	if !entry.framed {
		c.writeRaw(entry, h, payload)
		return
	}

	buf := wire.Encode(h)
	buf = append(buf, payload...)

	if _, err := entry.sock.Write(buf); err == stream.ErrBackpressure {
		c.armBackpressure(entry)
		return
	}

	if _, err := entry.sock.Flush(); err != nil && err != stream.ErrBadSocket {
		c.armBackpressure(entry)
	}
}

// writeRaw forwards h's payload verbatim onto an unframed peer: a STOP
// envelope carries no payload of its own and instead becomes a
// half-close on entry's socket, translating the framed side's session
// teardown into the raw side's own EOF (spec.md §4.6.3's segment
// STOP-to-shutdown(WR) requirement).
func (c *Connector) writeRaw(entry *streamEntry, h wire.Header, payload []byte) {
	if h.Op == wire.OpStop {
		_ = entry.sock.CloseWrite()
		return
	}

	if len(payload) == 0 {
		return
	}

	if _, err := entry.sock.Write(payload); err == stream.ErrBackpressure {
		c.armBackpressure(entry)
		return
	}

	if _, err := entry.sock.Flush(); err != nil && err != stream.ErrBadSocket {
		c.armBackpressure(entry)
	}
}

// armBackpressure keeps both read and write interest armed on entry: the
// stream still has more to accept (hence POLLIN stays up) but also has
// unflushed output waiting for room on the wire.
func (c *Connector) armBackpressure(entry *streamEntry) {
	_ = c.Poller.Modify(entry.fd, trigger.Readable|trigger.Writable)
}

// blockReadable disables POLLIN on entry, preserving POLLOUT if entry
// itself still has unflushed output of its own -- the write side of
// spec.md's backpressure propagation (§4.6.1 step 3 / §4.8
// "write_prepare ... disable POLLIN on nfd").
func (c *Connector) blockReadable(entry *streamEntry) {
	interest := trigger.Interest(0)
	if entry.sock.Pending() > 0 {
		interest = trigger.Writable
	}
	_ = c.Poller.Modify(entry.fd, interest)
}

// rearm restores Readable interest on entry, re-adding Writable only if
// it still has output of its own queued.
func (c *Connector) rearm(entry *streamEntry) {
	interest := trigger.Readable
	if entry.sock.Pending() > 0 {
		interest |= trigger.Writable
	}
	_ = c.Poller.Modify(entry.fd, interest)
}

func (c *Connector) flushTo(entry *streamEntry) {
	if _, err := entry.sock.Flush(); err == nil && entry.sock.Pending() == 0 {
		_ = c.Poller.Modify(entry.fd, trigger.Readable)
		c.reenableIngress(entry)
	}
}

// reenableIngress is the "read-restart" cross-link: once entry (an
// egress target that was blocking its session's opposite-direction
// ingress) has fully drained, POLLIN is restored on that opposite-
// direction peer (spec.md §4.8).
func (c *Connector) reenableIngress(drained *streamEntry) {
	var (
		sh session.Handle
		ok bool
	)
	if drained.isNorth {
		sh, ok = c.Table.FindByNorth(drained.fd)
	} else {
		sh, ok = c.Table.FindBySouth(drained.fd)
	}
	if !ok {
		return
	}
	sess, ok := c.Table.Get(sh)
	if !ok {
		return
	}

	if drained.isNorth {
		for _, fd := range sess.South {
			if se, ok := c.streams[fd]; ok {
				c.rearm(se)
			}
		}
		return
	}

	if se, ok := c.streams[sess.North]; ok {
		c.rearm(se)
	}
}

// closeStream tears down entry and, if it belonged to a session, every
// other leg of that session too: a FULL_DUPLEX session's south fan-out
// is only as alive as its north stream, and vice versa.
func (c *Connector) closeStream(entry *streamEntry) {
	h, ok := c.Table.FindByNorth(entry.fd)
	if !ok {
		h, ok = c.Table.FindBySouth(entry.fd)
	}

	if ok {
		if sess, found := c.Table.Get(h); found {
			peers := make([]uintptr, 0, len(sess.South)+1)
			peers = append(peers, sess.North)
			peers = append(peers, sess.South...)

			c.Table.AbortSession(h)
			c.Table.Remove(h)

			for _, fd := range peers {
				if fd == entry.fd {
					continue
				}
				if se, ok := c.streams[fd]; ok {
					c.UnregisterStream(se.fd)
					_ = se.sock.Close()
				}
			}
		}
	}

	c.UnregisterStream(entry.fd)
	_ = entry.sock.Close()
}

func (c *Connector) drainResolver() {
	for {
		select {
		case res := <-c.Resolver.Results():
			c.applyResolverResult(res)
		default:
			return
		}
	}
}

// applyResolverResult delivers a completed lookup to the one south
// interface it was resolved for, matched by host (a result is never
// broadcast to every south interface, since distinct backends almost
// always name distinct hosts).
func (c *Connector) applyResolverResult(res resolver.Result) {
	if res.Err != nil || len(res.Records) == 0 {
		return
	}

	recs := make([]iface.AddressRecord, 0, len(res.Records))
	for _, r := range res.Records {
		recs = append(recs, iface.AddressRecord{
			Addr: r.Addr, Weight: r.Weight, ResolvedAt: r.ResolvedAt, TTL: r.TTL,
		})
	}

	for _, s := range c.South {
		if hostOf(s.URI()) == res.Host {
			s.SetAddresses(recs)
		}
	}
}

func (c *Connector) drainTimers() {
	for {
		select {
		case exp := <-c.Timers.Fired():
			c.handleTimerFired(exp)
		default:
			return
		}
	}
}

// handleTimerFired sends and re-arms a heartbeat if exp.ID still maps to
// a live south stream; a stream closed since the timer was armed is
// simply dropped.
func (c *Connector) handleTimerFired(exp trigger.Expiry) {
	fd, ok := c.heartbeats[exp.ID]
	if !ok {
		return
	}
	delete(c.heartbeats, exp.ID)

	if entry, ok := c.streams[fd]; ok {
		c.sendHeartbeat(entry)
		c.armHeartbeat(fd)
	}
}
