package vm_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"tracevm/internal/asm"
	"tracevm/internal/diag"
	"tracevm/internal/program"
	"tracevm/internal/vm"
)

func runProgram(t *testing.T, src string, tracingEnabled bool) (*vm.Engine, []int64) {
	t.Helper()

	insts, err := asm.Parse(src)
	require.NoError(t, err)

	p, err := program.Load(insts)
	require.NoError(t, err)

	rec := diag.NewRecording()
	e, err := vm.NewEngine(p, tracingEnabled, rec)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, e.Close()) })

	require.NoError(t, e.Run(context.Background()))

	cells := e.FinalStack()
	out := make([]int64, len(cells))
	for i, c := range cells {
		out[i] = c.AsInt()
	}
	return e, out
}

const sumLoopSource = `
	push return_
	push 100
	jump sum_1_to_n

return_:
	halt

sum_1_to_n:
	push 0
ws:
	dup 1
	push 0
	ge
	jz we
	dup 1
	add
	swap 1
	push -1
	add
	swap 1
	jump ws
we:
	swap 1
	drop 1
	swap 1
	ret
`

func TestSumLoopWithoutTracing(t *testing.T) {
	_, stack := runProgram(t, sumLoopSource, false)
	require.Equal(t, []int64{5050}, stack)
}

func TestSumLoopWithTracingMatchesUntraced(t *testing.T) {
	e, stack := runProgram(t, sumLoopSource, true)
	require.Equal(t, []int64{5050}, stack)
	require.Greater(t, e.TraceCount(), 0)

	_, untraced := runProgram(t, sumLoopSource, false)
	require.Equal(t, untraced, stack)
}

func TestTrivialHalt(t *testing.T) {
	_, stack := runProgram(t, "halt", false)
	require.Equal(t, []int64{}, stack)
}

func TestIntegerIdentity(t *testing.T) {
	_, stack := runProgram(t, "push 7\nhalt", false)
	require.Equal(t, []int64{7}, stack)
}

func TestComparisons(t *testing.T) {
	_, stack := runProgram(t, "push 3\npush 3\neq\nhalt", false)
	require.Equal(t, []int64{1}, stack)

	_, stack = runProgram(t, "push 2\npush 5\nge\nhalt", false)
	require.Equal(t, []int64{0}, stack)
}

func TestSwapDrop(t *testing.T) {
	_, stack := runProgram(t, "push 1\npush 2\npush 3\nswap 2\ndrop 1\nhalt", false)
	require.Equal(t, []int64{3, 2}, stack)
}

func TestHotLoopCommitsTrace(t *testing.T) {
	src := `
	push 6
loop:
	dup 0
	push 0
	ge
	jz done
	push -1
	add
	jump loop
done:
	halt
`
	// The loop counts down from 6 to -1, jumping back to loop's head seven
	// times; after the fifth jump the head PC is hot, recording begins,
	// the trace closes on the next visit to head, and the remainder of
	// the countdown replays via the dispatcher (scenario 6).
	e, stack := runProgram(t, src, true)
	require.Equal(t, []int64{-1}, stack)
	require.Equal(t, 1, e.TraceCount())
}

func TestCancelledContextStopsRun(t *testing.T) {
	src := "push 1\nhalt"
	insts, err := asm.Parse(src)
	require.NoError(t, err)
	p, err := program.Load(insts)
	require.NoError(t, err)

	e, err := vm.NewEngine(p, false, diag.Nop{})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, e.Close()) })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = e.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
