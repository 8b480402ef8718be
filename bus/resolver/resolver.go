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

// Package resolver turns a south interface's configured hostname into a
// weighted, TTL-bounded set of addresses, without ever blocking the
// connector's single goroutine: lookups run on their own goroutine and
// land in a buffered channel the connector drains once per tick
// (spec.md §4.8 "Resolver", "lazy DNS resolution with TTL+weight").
package resolver

import (
	"context"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/miekg/dns"

	"github.com/nabbar/cloudbus/atomic"
)

// DefaultTTL is used for literal addresses and whenever a DNS answer
// carries no usable TTL.
const DefaultTTL = 30 * time.Second

// Record is one resolved address, weighted for select_stream's
// load-aware fan-out (spec.md §4.8, §4.15).
type Record struct {
	Addr       string // host:port, dial-ready
	Weight     uint32
	ResolvedAt time.Time
	TTL        time.Duration
}

// Expired reports whether this record is past its TTL as of now.
func (r Record) Expired(now time.Time) bool {
	return now.Sub(r.ResolvedAt) > r.TTL
}

// Result is delivered on the Results() channel once a lookup completes.
type Result struct {
	Host    string
	Records []Record
	Err     error
}

// Resolver caches resolved addresses per host and refreshes them lazily:
// Lookup triggers a background resolution if the cache is empty or
// stale, and callers receive results asynchronously through Results(),
// the way dns-mapper delivers cached endpoints via its sync.Map-backed
// table and a background TimeCleaner sweep. The cache itself is the
// same atomic.MapTyped the dns-mapper pattern used, rather than a
// hand-rolled mutex-guarded map, since resolveAsync goroutines and the
// connector's drain tick touch it concurrently.
type Resolver struct {
	cache atomic.MapTyped[string, []Record]

	dnsClient *dns.Client
	dnsServer string

	results chan Result

	ttlDefault time.Duration

	ctx    context.Context
	cancel context.CancelFunc
}

// New builds a Resolver. dnsServer is an optional "host:port" of a
// recursive resolver to query via miekg/dns; when empty, only
// net.DefaultResolver (which honors /etc/resolv.conf and /etc/hosts) is
// used.
func New(dnsServer string, ttlDefault time.Duration) *Resolver {
	if ttlDefault <= 0 {
		ttlDefault = DefaultTTL
	}

	ctx, cancel := context.WithCancel(context.Background())

	r := &Resolver{
		cache:      atomic.NewMapTyped[string, []Record](),
		dnsClient:  &dns.Client{Timeout: 3 * time.Second},
		dnsServer:  dnsServer,
		results:    make(chan Result, 64),
		ttlDefault: ttlDefault,
		ctx:        ctx,
		cancel:     cancel,
	}

	return r
}

// Results is the channel the connector selects on, alongside the
// poller's Wait and the timer queue's Fired, to learn about completed
// lookups (spec.md §4.14 "delivers results via buffered channel drained
// once per connector tick").
func (r *Resolver) Results() <-chan Result {
	return r.results
}

// Lookup returns a cached, non-expired record set immediately if one
// exists; otherwise it starts a background resolution (delivered later
// on Results()) and returns ok=false.
func (r *Resolver) Lookup(hostport string) (recs []Record, ok bool) {
	host, port, err := net.SplitHostPort(hostport)
	if err != nil {
		host, port = hostport, ""
	}

	if ip := net.ParseIP(host); ip != nil {
		addr := hostport
		return []Record{{Addr: addr, Weight: 1, ResolvedAt: time.Now(), TTL: r.ttlDefault}}, true
	}

	cached, found := r.cache.Load(host)

	now := time.Now()
	if found && len(cached) > 0 && !cached[0].Expired(now) {
		return cached, true
	}

	go r.resolveAsync(host, port)
	return nil, false
}

// Expire removes every cached record for host out of band (spec.md §4.14
// "expire_address_of"). The connector does not call it: a refused south
// dial is logged and its target skipped.
func (r *Resolver) Expire(host string) {
	r.cache.Delete(host)
}

func (r *Resolver) resolveAsync(host, port string) {
	recs, err := r.resolve(host, port)
	if err == nil && len(recs) > 0 {
		r.cache.Store(host, recs)
	}

	select {
	case r.results <- Result{Host: host, Records: recs, Err: err}:
	case <-r.ctx.Done():
	}
}

func (r *Resolver) resolve(host, port string) ([]Record, error) {
	if r.dnsServer != "" {
		if recs, err := r.resolveViaDNS(host, port); err == nil && len(recs) > 0 {
			return recs, nil
		}
	}
	return r.resolveViaSystem(host, port)
}

func (r *Resolver) resolveViaDNS(host, port string) ([]Record, error) {
	fqdn := dns.Fqdn(host)
	var out []Record

	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		msg := new(dns.Msg)
		msg.SetQuestion(fqdn, qtype)
		msg.RecursionDesired = true

		in, _, err := r.dnsClient.Exchange(msg, r.dnsServer)
		if err != nil || in == nil {
			continue
		}

		for _, ans := range in.Answer {
			var ip net.IP
			var ttl uint32

			switch rr := ans.(type) {
			case *dns.A:
				ip = rr.A
				ttl = rr.Hdr.Ttl
			case *dns.AAAA:
				ip = rr.AAAA
				ttl = rr.Hdr.Ttl
			default:
				continue
			}

			ttlDur := time.Duration(ttl) * time.Second
			if ttlDur <= 0 {
				ttlDur = r.ttlDefault
			}

			out = append(out, Record{
				Addr:       net.JoinHostPort(ip.String(), port),
				Weight:     1,
				ResolvedAt: time.Now(),
				TTL:        ttlDur,
			})
		}
	}

	return out, nil
}

func (r *Resolver) resolveViaSystem(host, port string) ([]Record, error) {
	ctx, cancel := context.WithTimeout(r.ctx, 3*time.Second)
	defer cancel()

	ips, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, err
	}

	out := make([]Record, 0, len(ips))
	for _, ip := range ips {
		out = append(out, Record{
			Addr:       net.JoinHostPort(ip.String(), port),
			Weight:     1,
			ResolvedAt: time.Now(),
			TTL:        r.ttlDefault,
		})
	}
	return out, nil
}

// StartJanitor spawns the background sweep that drops cache entries
// whose TTL has elapsed, adapted from dns-mapper's TimeCleaner ticker
// pattern; call Close to stop it.
func (r *Resolver) StartJanitor(interval time.Duration) {
	if interval < time.Second {
		interval = DefaultTTL
	}

	go func() {
		tck := time.NewTicker(interval)
		defer tck.Stop()

		for {
			select {
			case <-tck.C:
				r.sweep()
			case <-r.ctx.Done():
				return
			}
		}
	}()
}

func (r *Resolver) sweep() {
	now := time.Now()

	var stale []string
	r.cache.Range(func(host string, recs []Record) bool {
		if len(recs) == 0 || recs[0].Expired(now) {
			stale = append(stale, host)
		}
		return true
	})
	for _, host := range stale {
		r.cache.Delete(host)
	}
}

// Close stops the janitor and any in-flight lookups from delivering.
func (r *Resolver) Close() error {
	r.cancel()
	return nil
}

// splitHostportLiteral is a small helper kept for callers that need to
// know whether a string is already host:port vs a bare host.
func splitHostportLiteral(s string) (host, port string) {
	if i := strings.LastIndex(s, ":"); i >= 0 {
		if _, err := strconv.Atoi(s[i+1:]); err == nil {
			return s[:i], s[i+1:]
		}
	}
	return s, ""
}
