// Package trace writes the rule-by-rule evaluation of each finding to stderr
// when --trace is set. All methods are no-ops when the writer is nil.
package trace

import (
	"fmt"
	"io"
	"sync"
)

const prefix = "[wpcc:trace]"

// Tracer writes sectioned trace output. Safe for use by concurrent
// classification workers; lines from different goroutines never interleave.
type Tracer struct {
	mu sync.Mutex
	w  io.Writer
}

// New returns a Tracer that writes to w. If w is nil, all methods no-op.
func New(w io.Writer) *Tracer {
	return &Tracer{w: w}
}

// Enabled returns true if the tracer has a non-nil writer.
func (t *Tracer) Enabled() bool {
	return t != nil && t.w != nil
}

// Section writes a section header: "\n[wpcc:trace] === name ===\n"
func (t *Tracer) Section(name string) {
	if !t.Enabled() {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.w, "\n%s === %s ===\n", prefix, name)
}

// Printf writes to the trace writer when enabled. Format and args are as in fmt.Printf.
func (t *Tracer) Printf(format string, args ...interface{}) {
	if !t.Enabled() {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.w, format, args...)
}

// Block writes several lines as one unit, each prefixed.
func (t *Tracer) Block(lines []string) {
	if !t.Enabled() || len(lines) == 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, l := range lines {
		fmt.Fprintf(t.w, "%s %s\n", prefix, l)
	}
}
