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

// Package node wires one running process together: its Connector, its
// listening interfaces, and the OS signal handling spec.md §6.5
// assigns each role (SIGTERM/SIGHUP drain, SIGINT immediate exit, exit
// code carries the signal number).
package node

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nabbar/cloudbus/atomic"
	"github.com/nabbar/cloudbus/bus/connector"
	"github.com/nabbar/cloudbus/bus/stream"
	"github.com/nabbar/cloudbus/errors/pool"
	"github.com/nabbar/cloudbus/logger"
)

// Node owns the accept loop(s) for every listening interface and the
// single Connector goroutine driving all of them.
type Node struct {
	Connector *connector.Connector
	Log       logger.Logger

	listeners []net.Listener

	// draining is flipped from the signal-handling goroutine and polled
	// by the connector's accept loop; it is the one piece of state
	// legitimately shared across goroutines, hence atomic.Value rather
	// than a field guarded by the connector's own single-threaded
	// discipline.
	draining atomic.Value[bool]

	// acceptErrs collects non-fatal Accept errors across every listener
	// goroutine so Run can report them together once the node stops,
	// instead of a single-error field that only the last listener to
	// fail could populate.
	acceptErrs pool.Pool
}

// New builds a Node around an already-constructed Connector.
func New(c *connector.Connector, log logger.Logger) *Node {
	return &Node{Connector: c, Log: log, draining: atomic.NewValue[bool](), acceptErrs: pool.New()}
}

// Listen starts accepting on addr (network is "tcp" or "unix") and
// registers each accepted connection's fd with the connector's poller.
func (n *Node) Listen(network, addr, ifName string) error {
	ln, err := net.Listen(network, addr)
	if err != nil {
		return err
	}
	n.listeners = append(n.listeners, ln)

	go n.acceptLoop(ln, ifName)
	return nil
}

func (n *Node) acceptLoop(ln net.Listener, ifName string) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				n.acceptErrs.Add(fmt.Errorf("accept on %s: %w", ifName, err))
			}
			return
		}

		if n.draining.Load() {
			_ = conn.Close()
			continue
		}

		sock := stream.New(conn)
		if err := n.Connector.RegisterStream(sock, ifName, true); err != nil {
			n.Log.Error("failed to register accepted connection", err)
			_ = sock.Close()
		}
	}
}

// Run installs signal handling and blocks running the connector until
// a terminal signal arrives or ctx is cancelled; it returns the exit
// code spec.md §6.5 specifies (the raw signal number for a
// signal-triggered exit, 0 for a clean ctx cancellation).
func (n *Node) Run(ctx context.Context) int {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGINT)
	defer signal.Stop(sigCh)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- n.Connector.Run(runCtx) }()

	for {
		select {
		case sig := <-sigCh:
			switch sig {
			case syscall.SIGINT:
				n.Log.Warn("received SIGINT, exiting immediately")
				cancel()
				n.closeListeners()
				return int(syscall.SIGINT)
			case syscall.SIGTERM, syscall.SIGHUP:
				n.Log.Info("received drain signal, finishing in-flight sessions")
				n.draining.Store(true)
				n.Connector.Drain()
				n.closeListeners()

				select {
				case <-errCh:
				case <-time.After(30 * time.Second):
				}
				cancel()
				return int(sig.(syscall.Signal))
			}
		case <-errCh:
			n.closeListeners()
			return 0
		case <-ctx.Done():
			cancel()
			n.closeListeners()
			return 0
		}
	}
}

func (n *Node) closeListeners() {
	for _, ln := range n.listeners {
		_ = ln.Close()
	}

	if err := n.acceptErrs.Error(); err != nil {
		n.Log.Warn("listener errors during run", logger.Fields{"count": n.acceptErrs.Len(), "error": err.Error()})
	}
}

// Errors returns every non-fatal Accept error observed across this
// node's listeners since startup, combined into one error.
func (n *Node) Errors() error {
	return n.acceptErrs.Error()
}
