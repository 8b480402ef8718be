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

// Package logger wraps logrus with the leveled, field-based logging shape
// used across this repository: one process-wide logger per node, fed by
// one or two hooks (stderr always, an optional file when configured).
package logger

import (
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"

	loglvl "github.com/nabbar/cloudbus/logger/level"
)

// Logger is the leveled logging facade every bus component receives at
// construction (connector, resolver, metrics collector, node). It never
// exposes the underlying logrus.Logger so call sites stay small and
// mockable in tests.
type Logger interface {
	SetLevel(lvl loglvl.Level)
	Level() loglvl.Level

	WithField(key string, val interface{}) Entry
	WithFields(fields Fields) Entry

	Debug(msg string, fields ...Fields)
	Info(msg string, fields ...Fields)
	Warn(msg string, fields ...Fields)
	Error(msg string, err error, fields ...Fields)
	Fatal(msg string, err error, fields ...Fields)

	// SetFileOutput adds/replaces the file hook; pass "" to disable it.
	SetFileOutput(path string) error

	// Close releases the file hook, if any.
	Close() error
}

// Fields is a structured logging payload, attached to one log line.
type Fields map[string]interface{}

// Entry is a Logger bound to a fixed set of fields, for call sites that
// log several related lines (e.g. one per connector tick).
type Entry interface {
	Debug(msg string)
	Info(msg string)
	Warn(msg string)
	Error(msg string, err error)
}

type lgr struct {
	mu   sync.Mutex
	log  *logrus.Logger
	file *os.File
	path string
}

// New builds a Logger writing to stderr at the given level. Call
// SetFileOutput afterward to additionally tee to a file (spec.md §7
// "Logged at the node's log level").
func New(lvl loglvl.Level) Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(lvl.Logrus())
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	return &lgr{log: l}
}

func (o *lgr) SetLevel(lvl loglvl.Level) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.log.SetLevel(lvl.Logrus())
}

func (o *lgr) Level() loglvl.Level {
	o.mu.Lock()
	defer o.mu.Unlock()
	return loglvl.ParseFromUint32(uint32(o.log.GetLevel()))
}

func (o *lgr) SetFileOutput(path string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.file != nil {
		_ = o.file.Close()
		o.file = nil
	}

	o.path = path

	if path == "" {
		o.log.SetOutput(os.Stderr)
		return nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}

	o.file = f
	o.log.SetOutput(io.MultiWriter(os.Stderr, f))
	return nil
}

func (o *lgr) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.file == nil {
		return nil
	}

	err := o.file.Close()
	o.file = nil
	return err
}

func (o *lgr) entry() *logrus.Entry {
	o.mu.Lock()
	defer o.mu.Unlock()
	return logrus.NewEntry(o.log)
}

func (o *lgr) WithField(key string, val interface{}) Entry {
	return &entry{e: o.entry().WithField(key, val)}
}

func (o *lgr) WithFields(fields Fields) Entry {
	return &entry{e: o.entry().WithFields(logrus.Fields(fields))}
}

func (o *lgr) Debug(msg string, fields ...Fields) {
	o.withOptFields(fields).Debug(msg)
}

func (o *lgr) Info(msg string, fields ...Fields) {
	o.withOptFields(fields).Info(msg)
}

func (o *lgr) Warn(msg string, fields ...Fields) {
	o.withOptFields(fields).Warn(msg)
}

func (o *lgr) Error(msg string, err error, fields ...Fields) {
	o.withOptFields(fields).WithError(err).Error(msg)
}

func (o *lgr) Fatal(msg string, err error, fields ...Fields) {
	o.withOptFields(fields).WithError(err).Error(msg)
}

func (o *lgr) withOptFields(fields []Fields) *logrus.Entry {
	e := o.entry()
	for _, f := range fields {
		e = e.WithFields(logrus.Fields(f))
	}
	return e
}

type entry struct {
	e *logrus.Entry
}

func (o *entry) Debug(msg string) { o.e.Debug(msg) }
func (o *entry) Info(msg string)  { o.e.Info(msg) }
func (o *entry) Warn(msg string)  { o.e.Warn(msg) }
func (o *entry) Error(msg string, err error) {
	o.e.WithError(err).Error(msg)
}
