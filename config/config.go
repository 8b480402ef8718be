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

// Package config loads one node's ini-format configuration file (spec.md
// §6.3): a [bus] section naming the bind address, one or more backend
// addresses, the fan-out mode, and the timing knobs the connector needs.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/nabbar/cloudbus/bus/iface"
	liberr "github.com/nabbar/cloudbus/errors"
	loglvl "github.com/nabbar/cloudbus/logger/level"
)

// Config is one node's fully-parsed configuration.
type Config struct {
	// Bind is this node's north-facing listen address, e.g.
	// "tcp://0.0.0.0:8443" or "unix:///run/cloudbus/ctrl.sock".
	Bind string

	// Backend lists the south-facing addresses this node dials.
	Backend []string

	// Mode is the fan-out discipline applied when Backend names more
	// than one address.
	Mode iface.Mode

	// Heartbeat is the CONTROL-frame interval armed per south stream;
	// zero disables heartbeats (spec.md §4.13).
	Heartbeat time.Duration

	// TTLDefault is used for resolved addresses that carry no DNS TTL,
	// and for literal IP addresses.
	TTLDefault time.Duration

	// RefusedRetryCount is read from refused_retry_count (default 1) and
	// copied onto the connector, which does not read it: a refused south
	// dial is not retried.
	RefusedRetryCount int

	LogLevel loglvl.Level
	LogFile  string
}

// ErrMissingBind is returned by Load when the [bus] section has no bind
// key.
var ErrMissingBind = liberr.New(uint16(liberr.MinPkgConfig+1), "config: missing bind address")

// Load reads and validates the ini file at path. An empty path falls
// back to the CONFIG_PATH environment variable, which spec.md §6.4
// has the CLI's -f/--file flag set — Load accepts either so tests and
// library callers can bypass the flag entirely.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("ini")

	v.SetDefault("bus.mode", "half")
	v.SetDefault("bus.heartbeat", "0s")
	v.SetDefault("bus.ttl_default_seconds", 30)
	v.SetDefault("bus.refused_retry_count", 1)
	v.SetDefault("log.level", "info")

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	bind := v.GetString("bus.bind")
	if bind == "" {
		return nil, ErrMissingBind
	}

	backend := splitList(v.GetString("bus.backend"))

	cfg := &Config{
		Bind:              bind,
		Backend:           backend,
		Mode:              iface.ParseMode(v.GetString("bus.mode")),
		Heartbeat:         v.GetDuration("bus.heartbeat"),
		TTLDefault:        time.Duration(v.GetInt("bus.ttl_default_seconds")) * time.Second,
		RefusedRetryCount: v.GetInt("bus.refused_retry_count"),
		LogLevel:          loglvl.Parse(v.GetString("log.level")),
		LogFile:           v.GetString("log.file"),
	}

	return cfg, nil
}

// splitList parses a comma-separated backend list, trimming whitespace
// and dropping empty entries.
func splitList(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
