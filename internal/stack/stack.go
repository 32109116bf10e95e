// Package stack implements the operand stack: a grow-upward sequence of
// 8-byte cells with protected bounds. Overflow and underflow are fatal,
// trapped conditions rather than silent memory corruption, matching the
// source implementation's guard-paged mmap region (spec.md §3, §5, §9).
package stack

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/edsrzf/mmap-go"

	"tracevm/internal/inst"
)

const cellBytes = 8

// DefaultCapacityCells matches spec.md §5's "~30-page region, ≈120 KiB"
// sizing note for a typical 4KiB page size.
const DefaultCapacityCells = (30 * 4096) / cellBytes

var (
	// ErrOverflow is returned when a push would exceed the stack's capacity.
	ErrOverflow = errors.New("stack: overflow")
	// ErrUnderflow is returned when an operation needs more cells than present.
	ErrUnderflow = errors.New("stack: underflow")
)

// Stack is an ordered sequence of cells, owned exclusively by one engine
// for the duration of a run. It is not safe for concurrent use.
type Stack struct {
	backing  mmap.MMap // non-nil when backed by an mmap'd region
	fallback []byte    // used when mmap is unavailable
	depth    int       // number of cells currently present
}

// New reserves a stack with room for capacityCells cells. It prefers an
// anonymous read/write mmap region (so the backing allocation mirrors the
// source's page-granularity reservation); if mmap.MapRegion fails (for
// example, because the platform or sandbox forbids it), it falls back to
// a plain Go byte slice of identical capacity. The bounds-checking
// behavior of push/pop/peek/set/truncate is identical either way — mmap
// buys allocation locality, not correctness.
func New(capacityCells int) (*Stack, error) {
	if capacityCells <= 0 {
		capacityCells = DefaultCapacityCells
	}
	size := capacityCells * cellBytes

	region, err := mmap.MapRegion(nil, size, mmap.RDWR, mmap.ANON, 0)
	if err != nil {
		return &Stack{fallback: make([]byte, size)}, nil
	}

	return &Stack{backing: region}, nil
}

func (s *Stack) buf() []byte {
	if s.backing != nil {
		return s.backing
	}
	return s.fallback
}

// Close releases the mmap'd region, if any. It is safe to call on a
// fallback-backed Stack (a no-op).
func (s *Stack) Close() error {
	if s.backing != nil {
		return s.backing.Unmap()
	}
	return nil
}

// Depth returns the number of cells currently on the stack.
func (s *Stack) Depth() int {
	return s.depth
}

// Cap returns the stack's capacity in cells.
func (s *Stack) Cap() int {
	return len(s.buf()) / cellBytes
}

// Push appends a cell, failing with ErrOverflow if the stack is full.
func (s *Stack) Push(c inst.Cell) error {
	if s.depth >= s.Cap() {
		return fmt.Errorf("%w: at depth %d", ErrOverflow, s.depth)
	}
	binary.LittleEndian.PutUint64(s.buf()[s.depth*cellBytes:], uint64(c))
	s.depth++
	return nil
}

// Pop removes and returns the top cell, failing with ErrUnderflow if empty.
func (s *Stack) Pop() (inst.Cell, error) {
	if s.depth == 0 {
		return 0, fmt.Errorf("%w: popping empty stack", ErrUnderflow)
	}
	s.depth--
	v := binary.LittleEndian.Uint64(s.buf()[s.depth*cellBytes:])
	return inst.Cell(v), nil
}

// Peek returns the cell k positions below top without removing it; k=0
// is the top of the stack.
func (s *Stack) Peek(k int) (inst.Cell, error) {
	if k < 0 || k >= s.depth {
		return 0, fmt.Errorf("%w: peek(%d) with depth %d", ErrUnderflow, k, s.depth)
	}
	idx := s.depth - 1 - k
	v := binary.LittleEndian.Uint64(s.buf()[idx*cellBytes:])
	return inst.Cell(v), nil
}

// Set writes the cell k positions below top; k=0 is the top of the stack.
func (s *Stack) Set(k int, c inst.Cell) error {
	if k < 0 || k >= s.depth {
		return fmt.Errorf("%w: set(%d) with depth %d", ErrUnderflow, k, s.depth)
	}
	idx := s.depth - 1 - k
	binary.LittleEndian.PutUint64(s.buf()[idx*cellBytes:], uint64(c))
	return nil
}

// Truncate removes the top k cells, failing with ErrUnderflow if fewer
// than k cells are present.
func (s *Stack) Truncate(k int) error {
	if k < 0 || k > s.depth {
		return fmt.Errorf("%w: truncate(%d) with depth %d", ErrUnderflow, k, s.depth)
	}
	s.depth -= k
	return nil
}

// Cells returns the current stack contents, bottom-first, for
// diagnostics (§4.9's bracketed final-stack dump). The returned slice is
// a fresh copy.
func (s *Stack) Cells() []inst.Cell {
	out := make([]inst.Cell, s.depth)
	for i := 0; i < s.depth; i++ {
		out[i] = inst.Cell(binary.LittleEndian.Uint64(s.buf()[i*cellBytes:]))
	}
	return out
}
