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

// Package bootstrap wires one node's config, logger, resolver, metrics
// and connector together; it is shared by cmd/controller, cmd/segment
// and cmd/proxy so the three binaries differ only in which
// bus/marshal implementation they plug in.
package bootstrap

import (
	"net/url"
	"strings"

	"github.com/nabbar/cloudbus/bus/connector"
	"github.com/nabbar/cloudbus/bus/iface"
	"github.com/nabbar/cloudbus/bus/metrics"
	"github.com/nabbar/cloudbus/bus/node"
	"github.com/nabbar/cloudbus/bus/resolver"
	"github.com/nabbar/cloudbus/bus/session"
	"github.com/nabbar/cloudbus/bus/trigger"
	"github.com/nabbar/cloudbus/config"
	"github.com/nabbar/cloudbus/logger"
)

// Node bundles everything a cmd/* main needs to call Run on.
type Node struct {
	*node.Node
	Config *config.Config
	Log    logger.Logger
}

// Build loads cfgPath, constructs the shared bus plumbing, and returns a
// Node ready to Listen and Run. role names the binary ("controller",
// "segment" or "proxy") for logging and metrics labels.
func Build(role string, m connector.Marshaler, cfgPath string) (*Node, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	log := logger.New(cfg.LogLevel)
	if cfg.LogFile != "" {
		if err := log.SetFileOutput(cfg.LogFile); err != nil {
			return nil, err
		}
	}

	poller, err := trigger.NewPoller()
	if err != nil {
		return nil, err
	}
	timers := trigger.NewTimerQueue()
	res := resolver.New("", cfg.TTLDefault)
	tbl := session.New()
	met := metrics.New()

	c := connector.New(role, m, tbl, met, res, poller, timers, log)
	c.RefusedRetryCount = cfg.RefusedRetryCount
	c.HeartbeatInterval = cfg.Heartbeat

	for _, b := range cfg.Backend {
		network, addr, name := parseURI(b)
		c.South = append(c.South, iface.New(name, iface.South, transportOf(network), b, cfg.Mode))
		_ = addr
	}

	n := node.New(c, log)

	network, addr, name := parseURI(cfg.Bind)
	if err := n.Listen(network, addr, name); err != nil {
		return nil, err
	}

	return &Node{Node: n, Config: cfg, Log: log}, nil
}

func transportOf(network string) iface.Transport {
	if network == "unix" {
		return iface.Unix
	}
	return iface.TCP
}

// parseURI splits spec.md §6.3's address grammar (unix://path,
// tcp://host:port) into a net.Listen/net.Dial-compatible network and
// address pair, plus a short name for logging/metrics labels.
func parseURI(raw string) (network, addr, name string) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return "tcp", raw, raw
	}

	switch u.Scheme {
	case "unix":
		return "unix", u.Path, strings.TrimPrefix(u.Path, "/")
	default:
		return "tcp", u.Host, u.Host
	}
}
