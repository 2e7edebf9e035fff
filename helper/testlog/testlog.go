// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

// Package testlog creates loggers backed by testing.T to ease debugging
// scheduler behavior from within a test.
package testlog

import (
	"log"

	hclog "github.com/hashicorp/go-hclog"
)

// Logger is the methods of testing.T (or testing.B) needed by the test
// logger.
type Logger interface {
	Logf(format string, args ...interface{})
}

// Writer implements io.Writer on top of a Logger.
type Writer struct {
	t Logger
}

// Write to an underlying Logger. Never returns an error.
func (w *Writer) Write(p []byte) (n int, err error) {
	w.t.Logf(string(p))
	return len(p), nil
}

// NewLog returns a new test logger. See https://golang.org/pkg/log/#New
func NewLog(t Logger, prefix string, flag int) *log.Logger {
	return log.New(&Writer{t}, prefix, flag)
}

// New returns a logger with a "TEST" prefix and microsecond timestamps.
func New(t Logger) *log.Logger {
	return NewLog(t, "TEST ", log.Lmicroseconds)
}

// HCLogger returns an hclog.Logger that writes through t, at debug level,
// for tests that exercise EvalContext.Debugf.
func HCLogger(t Logger) hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:   "nodeselect",
		Level:  hclog.Debug,
		Output: &Writer{t},
	})
}
