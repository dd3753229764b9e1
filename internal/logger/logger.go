/*
 * CCP - Wrapper for slog
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

// Package logger wraps log/slog the way firmware-facing trace calls
// expect: origin-tagged records with a best-effort severity, and a
// FATAL severity slog itself has no concept of.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// Origin tags every record emitted by this module, matching the
// external tracer contract's fixed origin=CCP convention.
const Origin = "CCP"

// Logger is the logging collaborator threaded through ccp.New. The
// zero value, like a nil *Logger, drops every record.
type Logger struct {
	s *slog.Logger
}

// New builds a Logger writing text records to out at the given level.
func New(out io.Writer, level slog.Level) *Logger {
	if out == nil {
		out = os.Stderr
	}
	h := slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})
	return &Logger{s: slog.New(h).With("origin", Origin)}
}

// Discard returns a Logger that drops every record.
func Discard() *Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1})
	return &Logger{s: slog.New(h)}
}

func (l *Logger) Warn(msg string, args ...any) {
	if l == nil || l.s == nil {
		return
	}
	l.s.Warn(msg, args...)
}

func (l *Logger) Error(msg string, args ...any) {
	if l == nil || l.s == nil {
		return
	}
	l.s.Error(msg, args...)
}

// Fatal logs at Error severity with a fatal=true attribute. slog has
// no distinct fatal level; the attribute lets a downstream handler
// escalate (e.g. to paging) without this package owning process exit.
func (l *Logger) Fatal(msg string, args ...any) {
	if l == nil || l.s == nil {
		return
	}
	l.s.Log(context.Background(), slog.LevelError, msg, append(args, "fatal", true)...)
}
