// Package program implements the contract the core expects from an
// external parser/resolver: an ordered sequence of instructions with all
// label operands already reduced to numeric program counters.
package program

import (
	"fmt"
	"strings"

	"tracevm/internal/inst"
)

// Program is an ordered, immutable sequence of instructions after label
// resolution, indexed 0..N-1.
type Program struct {
	instructions []inst.Instruction
}

// Len returns the number of instructions in the program.
func (p *Program) Len() int {
	return len(p.instructions)
}

// At returns the instruction at pc and whether pc was in range.
func (p *Program) At(pc uint64) (inst.Instruction, bool) {
	if pc >= uint64(len(p.instructions)) {
		return inst.Instruction{}, false
	}
	return p.instructions[pc], true
}

// Instructions returns the underlying slice for diagnostics/printing.
// Callers must not mutate it.
func (p *Program) Instructions() []inst.Instruction {
	return p.instructions
}

// Load resolves label definitions and symbolic branch operands in insts
// into a Program whose instructions carry only numeric operands.
// LABEL instructions are stripped from the resulting Program, and each
// LABEL maps its name to the index, in that stripped Program, of the
// instruction that follows it; every JUMP/JZ/PUSH_LABEL operand is
// rewritten from name to the mapped index.
//
// Load fails if: a LABEL has no name, a label is defined more than once,
// a branch references an undefined label, or a LABEL's name does not end
// in ':'. A JUMP/JZ/PUSH_LABEL with no label name is taken as already
// resolved; Load does not detect one whose operand was never given.
//
// Load is idempotent: resolving an already-resolved program (no Label
// kind instructions, no symbolic operands) returns an equivalent program
// unchanged.
func Load(insts []inst.Instruction) (*Program, error) {
	labels := make(map[string]uint64, len(insts))
	out := make([]inst.Instruction, 0, len(insts))

	for _, in := range insts {
		if in.Kind != inst.Label {
			out = append(out, in)
			continue
		}

		name := in.Label
		if name == "" {
			return nil, fmt.Errorf("program: label definition missing name")
		}
		if !strings.HasSuffix(name, ":") {
			return nil, fmt.Errorf("program: label %q missing trailing ':'", name)
		}
		key := strings.TrimSuffix(name, ":")
		if _, dup := labels[key]; dup {
			return nil, fmt.Errorf("program: duplicate label %q", key)
		}
		labels[key] = uint64(len(out))
	}

	for i := range out {
		in := &out[i]
		switch in.Kind {
		case inst.Jump, inst.Jz, inst.PushLabel:
			if in.Label == "" {
				// Already resolved (idempotence): nothing to do.
				continue
			}
			pc, ok := labels[in.Label]
			if !ok {
				return nil, fmt.Errorf("program: undefined label %q", in.Label)
			}
			in.Operand = inst.PCCell(pc)
			in.Label = ""
		case inst.Dup, inst.Swap, inst.Drop, inst.PushInt:
			if in.Kind.RequiresOperand() && in.Label != "" {
				return nil, fmt.Errorf("program: %s does not accept a label operand", in.Kind)
			}
		}
	}

	return &Program{instructions: out}, nil
}
