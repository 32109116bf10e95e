package program_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"tracevm/internal/inst"
	"tracevm/internal/program"
)

func TestLoadResolvesForwardAndBackwardLabels(t *testing.T) {
	insts := []inst.Instruction{
		inst.JumpLabel("end"),
		inst.LabelDef("loop:"),
		inst.PushIntV(1),
		inst.JumpLabel("loop"),
		inst.LabelDef("end:"),
		inst.Halt_(),
	}

	p, err := program.Load(insts)
	require.NoError(t, err)
	require.Equal(t, 4, p.Len())

	first, ok := p.At(0)
	require.True(t, ok)
	require.Equal(t, inst.Jump, first.Kind)
	require.Equal(t, uint64(3), first.Operand.AsPC())
	require.Empty(t, first.Label)

	loopJump, ok := p.At(2)
	require.True(t, ok)
	require.Equal(t, inst.Jump, loopJump.Kind)
	require.Equal(t, uint64(1), loopJump.Operand.AsPC())

	last, ok := p.At(3)
	require.True(t, ok)
	require.Equal(t, inst.Halt, last.Kind)

	_, ok = p.At(4)
	require.False(t, ok)
}

func TestLoadDuplicateLabelFails(t *testing.T) {
	_, err := program.Load([]inst.Instruction{
		inst.LabelDef("x:"),
		inst.LabelDef("x:"),
		inst.Halt_(),
	})
	require.Error(t, err)
}

func TestLoadUndefinedLabelFails(t *testing.T) {
	_, err := program.Load([]inst.Instruction{
		inst.JumpLabel("nowhere"),
		inst.Halt_(),
	})
	require.Error(t, err)
}

func TestLoadLabelMissingColonFails(t *testing.T) {
	_, err := program.Load([]inst.Instruction{
		inst.LabelDef("x"),
		inst.Halt_(),
	})
	require.Error(t, err)
}

func TestLoadIsIdempotent(t *testing.T) {
	insts := []inst.Instruction{
		inst.LabelDef("loop:"),
		inst.PushIntV(1),
		inst.JumpLabel("loop"),
	}

	once, err := program.Load(insts)
	require.NoError(t, err)

	twice, err := program.Load(once.Instructions())
	require.NoError(t, err)

	require.Equal(t, once.Instructions(), twice.Instructions())
}
