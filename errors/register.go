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

package errors

// componentNames maps each bus component's MinPkg offset (modules.go) to
// the name logged alongside a CodeError's own message, so a bare code
// number printed far from its call site (a log line, a metrics label)
// still reads back to the component that raised it.
var componentNames = map[CodeError]string{
	MinPkgWire:      "wire",
	MinPkgXMsg:      "xmsg",
	MinPkgStream:    "stream",
	MinPkgTrigger:   "trigger",
	MinPkgIface:     "iface",
	MinPkgSession:   "session",
	MinPkgMarshal:   "marshal",
	MinPkgConnector: "connector",
	MinPkgResolver:  "resolver",
	MinPkgMetrics:   "metrics",
	MinPkgConfig:    "config",
	MinPkgNode:      "node",
}

// componentMessage resolves the bus component a CodeError was minted in
// from its offset (modules.go's disjoint per-component ranges) and
// formats it as "<component> error <code>", the message Message()
// returns for any code a component didn't register more specific text
// for via RegisterIdFctMessage. Each range is 100 codes wide; a code past
// the end of every range gets NullMessage, so Message() falls back to
// UnknownMessage.
func componentMessage(code CodeError) string {
	best := CodeError(0)
	name, ok := "", false
	for min, n := range componentNames {
		if code >= min && min >= best {
			best, name, ok = min, n, true
		}
	}
	if !ok {
		return UnknownMessage
	}
	if code >= best+100 {
		return NullMessage
	}
	return name + " error " + code.String()
}

func init() {
	for _, min := range []CodeError{
		MinPkgWire, MinPkgXMsg, MinPkgStream, MinPkgTrigger, MinPkgIface,
		MinPkgSession, MinPkgMarshal, MinPkgConnector, MinPkgResolver,
		MinPkgMetrics, MinPkgConfig, MinPkgNode,
	} {
		RegisterIdFctMessage(min, componentMessage)
	}
}
