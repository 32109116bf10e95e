// Package diag defines the engine's diagnostic sink and the canonical
// textual renderings it produces (spec.md §4.9, generalizing the source's
// global diagnostic stream into an injected interface per spec.md §9).
package diag

import (
	"fmt"
	"strings"

	"tracevm/internal/inst"
	"tracevm/internal/profile"
)

// Sink receives the two events the engine reports: a trace becoming
// committed, and the engine halting.
type Sink interface {
	// TraceCommitted is called once, synchronously, when a trace closes
	// (spec.md §4.8 step 3), before the driver continues.
	TraceCommitted(headPC uint64, trace []inst.Instruction)
	// Halted is called once when the engine stops on HALT, with the final
	// profile snapshot and the final stack contents bottom-first.
	Halted(snapshot []profile.Entry, stack []inst.Cell)
}

// TraceText renders a committed trace in the canonical form:
// "head_pc: [\n<indented trace>\n]\n".
func TraceText(headPC uint64, trace []inst.Instruction) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d: [\n", headPC)
	for _, in := range trace {
		fmt.Fprintf(&b, "  %s\n", in)
	}
	b.WriteString("]\n")
	return b.String()
}

// ProfileText renders a profile snapshot in the canonical form:
// "jump_targets: { pc: count, … }", omitting zero entries (trivially true —
// Snapshot never holds a zero entry since Bump is its sole writer).
func ProfileText(snapshot []profile.Entry) string {
	var b strings.Builder
	b.WriteString("jump_targets: { ")
	for i, e := range snapshot {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%d: %d", e.PC, e.Count)
	}
	b.WriteString(" }")
	return b.String()
}

// StackText renders the final stack as a bracketed, comma-separated,
// bottom-first list of signed integers.
func StackText(cells []inst.Cell) string {
	var b strings.Builder
	b.WriteString("[")
	for i, c := range cells {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%d", c.AsInt())
	}
	b.WriteString("]")
	return b.String()
}

// Nop discards every event. Useful for tests and for embedders that don't
// care about trace/profile output.
type Nop struct{}

func (Nop) TraceCommitted(uint64, []inst.Instruction) {}
func (Nop) Halted([]profile.Entry, []inst.Cell)       {}

// Recording accumulates every rendered line in memory, for tests.
type Recording struct {
	lines []string
}

// NewRecording returns an empty Recording sink.
func NewRecording() *Recording { return &Recording{} }

func (r *Recording) TraceCommitted(headPC uint64, trace []inst.Instruction) {
	r.lines = append(r.lines, TraceText(headPC, trace))
}

func (r *Recording) Halted(snapshot []profile.Entry, stack []inst.Cell) {
	r.lines = append(r.lines, ProfileText(snapshot))
	r.lines = append(r.lines, StackText(stack))
}

// Strings returns every line recorded so far, in order.
func (r *Recording) Strings() []string {
	return r.lines
}
