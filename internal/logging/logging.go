/*
Copyright © 2026 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

// Package logging provides the small logger seam shared by the resolver,
// cache, graph builder, and dev server. It extends externals.Logger's
// Warning/Debug shape with an Info level the server's request logging needs.
package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Logger is the shape every package in this module logs through.
type Logger interface {
	Info(format string, args ...any)
	Warning(format string, args ...any)
	Debug(format string, args ...any)
}

// StderrLogger writes Info/Warning to stderr and Debug to stderr only when
// Verbose is set (the build and serve commands set it from the dev flag).
type StderrLogger struct {
	mu      sync.Mutex
	out     io.Writer
	Verbose bool
}

// NewStderrLogger creates a Logger writing to os.Stderr.
func NewStderrLogger(verbose bool) *StderrLogger {
	return &StderrLogger{out: os.Stderr, Verbose: verbose}
}

func (l *StderrLogger) Info(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.out, format+"\n", args...)
}

func (l *StderrLogger) Warning(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.out, "warning: "+format+"\n", args...)
}

func (l *StderrLogger) Debug(format string, args ...any) {
	if !l.Verbose {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.out, "debug: "+format+"\n", args...)
}

// Nop discards everything. Useful as a default in tests and library callers
// that haven't wired a Logger.
type Nop struct{}

func (Nop) Info(string, ...any)    {}
func (Nop) Warning(string, ...any) {}
func (Nop) Debug(string, ...any)   {}
