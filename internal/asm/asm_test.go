package asm_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"tracevm/internal/asm"
	"tracevm/internal/inst"
)

func TestParseBasicMnemonics(t *testing.T) {
	src := `
		push 7  ; push a literal
		halt
	`
	insts, err := asm.Parse(src)
	require.NoError(t, err)
	require.Equal(t, []inst.Instruction{
		inst.PushIntV(7),
		inst.Halt_(),
	}, insts)
}

func TestParsePushLabelVsPushInt(t *testing.T) {
	src := `
	target:
		push target
		push -5
		halt
	`
	insts, err := asm.Parse(src)
	require.NoError(t, err)
	require.Equal(t, []inst.Instruction{
		inst.LabelDef("target:"),
		inst.PushLabelName("target"),
		inst.PushIntV(-5),
		inst.Halt_(),
	}, insts)
}

func TestParseKInstructions(t *testing.T) {
	src := `push 1
push 2
push 3
swap 2
drop 1
halt`
	insts, err := asm.Parse(src)
	require.NoError(t, err)
	require.Equal(t, []inst.Instruction{
		inst.PushIntV(1),
		inst.PushIntV(2),
		inst.PushIntV(3),
		inst.SwapK(2),
		inst.DropK(1),
		inst.Halt_(),
	}, insts)
}

func TestParseUnknownMnemonicFails(t *testing.T) {
	_, err := asm.Parse("bogus")
	require.Error(t, err)
}

func TestParseMissingOperandFails(t *testing.T) {
	_, err := asm.Parse("push")
	require.Error(t, err)
}
