package stack_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"tracevm/internal/inst"
	"tracevm/internal/stack"
)

func newStack(t *testing.T, cap int) *stack.Stack {
	t.Helper()
	s, err := stack.New(cap)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, s.Close()) })
	return s
}

func TestPushPopRoundTrip(t *testing.T) {
	s := newStack(t, 4)
	require.NoError(t, s.Push(inst.IntCell(1)))
	require.NoError(t, s.Push(inst.IntCell(2)))
	require.Equal(t, 2, s.Depth())

	v, err := s.Pop()
	require.NoError(t, err)
	require.Equal(t, int64(2), v.AsInt())

	v, err = s.Pop()
	require.NoError(t, err)
	require.Equal(t, int64(1), v.AsInt())
}

func TestOverflowIsFatal(t *testing.T) {
	s := newStack(t, 2)
	require.NoError(t, s.Push(inst.IntCell(1)))
	require.NoError(t, s.Push(inst.IntCell(2)))
	err := s.Push(inst.IntCell(3))
	require.ErrorIs(t, err, stack.ErrOverflow)
}

func TestUnderflowIsFatal(t *testing.T) {
	s := newStack(t, 2)
	_, err := s.Pop()
	require.ErrorIs(t, err, stack.ErrUnderflow)
}

func TestPeekAndSet(t *testing.T) {
	s := newStack(t, 4)
	require.NoError(t, s.Push(inst.IntCell(10)))
	require.NoError(t, s.Push(inst.IntCell(20)))
	require.NoError(t, s.Push(inst.IntCell(30)))

	top, err := s.Peek(0)
	require.NoError(t, err)
	require.Equal(t, int64(30), top.AsInt())

	below, err := s.Peek(1)
	require.NoError(t, err)
	require.Equal(t, int64(20), below.AsInt())

	require.NoError(t, s.Set(1, inst.IntCell(99)))
	below, err = s.Peek(1)
	require.NoError(t, err)
	require.Equal(t, int64(99), below.AsInt())

	_, err = s.Peek(5)
	require.ErrorIs(t, err, stack.ErrUnderflow)
}

func TestTruncate(t *testing.T) {
	s := newStack(t, 4)
	require.NoError(t, s.Push(inst.IntCell(1)))
	require.NoError(t, s.Push(inst.IntCell(2)))
	require.NoError(t, s.Push(inst.IntCell(3)))

	require.NoError(t, s.Truncate(2))
	require.Equal(t, 1, s.Depth())

	err := s.Truncate(5)
	require.ErrorIs(t, err, stack.ErrUnderflow)
}

func TestCellsIsBottomFirstCopy(t *testing.T) {
	s := newStack(t, 4)
	require.NoError(t, s.Push(inst.IntCell(1)))
	require.NoError(t, s.Push(inst.IntCell(2)))

	cells := s.Cells()
	require.Equal(t, []inst.Cell{inst.IntCell(1), inst.IntCell(2)}, cells)

	cells[0] = inst.IntCell(999)
	fresh := s.Cells()
	require.Equal(t, int64(1), fresh[0].AsInt())
}
