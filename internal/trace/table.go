// Package trace holds committed traces and replays them, speculatively,
// in place of the base interpreter (spec.md §4.7).
package trace

import "tracevm/internal/inst"

// Table maps a head program counter to its committed trace.
type Table struct {
	traces map[uint64][]inst.Instruction
}

// NewTable returns an empty Table.
func NewTable() *Table {
	return &Table{traces: make(map[uint64][]inst.Instruction)}
}

// Has reports whether a trace exists for headPC.
func (t *Table) Has(headPC uint64) bool {
	_, ok := t.traces[headPC]
	return ok
}

// Get returns the trace committed for headPC, if any.
func (t *Table) Get(headPC uint64) ([]inst.Instruction, bool) {
	tr, ok := t.traces[headPC]
	return tr, ok
}

// Commit stores trace under headPC.
func (t *Table) Commit(headPC uint64, trace []inst.Instruction) {
	t.traces[headPC] = trace
}

// Len returns the number of committed traces.
func (t *Table) Len() int {
	return len(t.traces)
}
