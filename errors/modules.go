/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
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

package errors

// Package offsets, one per bus component, so each component's CodeError
// constants land in a disjoint range and CodeSlice()/GetTrace() output
// stays attributable to a component even once errors propagate up through
// several layers (spec.md §7's taxonomy is per-component: transport,
// protocol, resource and configuration errors can each originate in wire,
// stream, iface, connector, resolver, ...).
const (
	MinPkgWire      = 100
	MinPkgXMsg      = 200
	MinPkgStream    = 300
	MinPkgTrigger   = 400
	MinPkgIface     = 500
	MinPkgSession   = 600
	MinPkgMarshal   = 700
	MinPkgConnector = 800
	MinPkgResolver  = 900
	MinPkgMetrics   = 1000
	MinPkgConfig    = 1100
	MinPkgNode      = 1200

	MinAvailable = 2000
)
