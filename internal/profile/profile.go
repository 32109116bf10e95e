// Package profile implements the PC-keyed execution counter that drives
// trace-head selection.
package profile

import "sort"

// HotThreshold is the execution count a PC must reach to become a
// candidate trace head (spec.md §4.5; the canonical value between the
// source's conflicting 5-vs-10 revisions is 5, per spec.md §9).
const HotThreshold = 5

// Entry is a single (pc, count) pair, used for deterministic diagnostic
// dumps.
type Entry struct {
	PC    uint64
	Count uint64
}

// Counter maps a program counter to an execution count, defaulted to
// zero. It is updated in exactly two places, per spec.md §4.5: taking a
// JUMP increments the count at the jump target, and a trace exit (guard
// fired) increments the count at the fall-through PC.
type Counter struct {
	counts map[uint64]uint64
}

// New returns an empty Counter.
func New() *Counter {
	return &Counter{counts: make(map[uint64]uint64)}
}

// Bump increments the count at pc and returns the new value.
func (c *Counter) Bump(pc uint64) uint64 {
	c.counts[pc]++
	return c.counts[pc]
}

// Get returns the count at pc, defaulting to zero.
func (c *Counter) Get(pc uint64) uint64 {
	return c.counts[pc]
}

// IsHot reports whether pc has reached HotThreshold.
func (c *Counter) IsHot(pc uint64) bool {
	return c.Get(pc) >= HotThreshold
}

// Snapshot returns all (pc, count) entries sorted by PC, omitting none
// (every entry present in the map is non-zero, since Bump is the sole
// writer and always increments from a read-or-zero).
func (c *Counter) Snapshot() []Entry {
	out := make([]Entry, 0, len(c.counts))
	for pc, n := range c.counts {
		out = append(out, Entry{PC: pc, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PC < out[j].PC })
	return out
}
