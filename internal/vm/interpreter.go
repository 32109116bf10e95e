package vm

import (
	"fmt"

	"tracevm/internal/inst"
	"tracevm/internal/program"
	"tracevm/internal/stack"
)

// Interpreter is the classical fetch-dispatch-execute loop over the
// instruction set (spec.md §4.4). It advances one source instruction per
// Step call so the driver can interleave trace-recording hooks between
// steps (spec.md §4.6).
type Interpreter struct {
	s *stack.Stack
}

// NewInterpreter returns an Interpreter operating over s.
func NewInterpreter(s *stack.Stack) *Interpreter {
	return &Interpreter{s: s}
}

// StepResult reports the outcome of executing one instruction.
type StepResult struct {
	// NextPC is the program counter to execute next.
	NextPC uint64
	// Halted is true if the instruction was HALT.
	Halted bool
	// JumpTaken is true only when a JUMP instruction ran (profile accrual,
	// spec.md §4.5: "JUMP-only" hotness counting — RET and the taken
	// branch of JZ never bump the profile).
	JumpTaken bool
	// JumpTarget is the PC a JUMP transferred control to, valid only when
	// JumpTaken is true.
	JumpTarget uint64
}

// Step executes the instruction at pc, per spec.md §4.4's per-kind
// semantics. Encountering a guard kind is a fatal invariant violation:
// guards only ever appear inside a recorded trace, never in a loaded
// source program.
func (in *Interpreter) Step(p *program.Program, pc uint64) (StepResult, error) {
	i, ok := p.At(pc)
	if !ok {
		return StepResult{}, newFatal(kindMalformedProgram, errProgramFinished)
	}
	if i.Kind.IsGuard() {
		return StepResult{}, newFatal(kindUnexpectedInstr, errGuardOutsideTrace)
	}

	switch i.Kind {
	case inst.Halt:
		return StepResult{Halted: true}, nil

	case inst.Label:
		return StepResult{NextPC: pc + 1}, nil

	case inst.Jump:
		target := i.Operand.AsPC()
		return StepResult{NextPC: target, JumpTaken: true, JumpTarget: target}, nil

	case inst.Jz:
		c, err := in.s.Pop()
		if err != nil {
			return StepResult{}, wrapStackErr(err)
		}
		if !c.AsBool() {
			return StepResult{NextPC: i.Operand.AsPC()}, nil
		}
		return StepResult{NextPC: pc + 1}, nil

	case inst.Ret:
		r, err := in.s.Pop()
		if err != nil {
			return StepResult{}, wrapStackErr(err)
		}
		// Unlike JUMP, a RET's target does not bump the profile counter
		// (spec.md §4.5 names only JUMP-target entry and trace-exit PC as
		// profile update sites).
		return StepResult{NextPC: r.AsPC()}, nil

	case inst.Dup:
		k := int(i.Operand.AsPC())
		c, err := in.s.Peek(k)
		if err != nil {
			return StepResult{}, wrapStackErr(err)
		}
		if err := in.s.Push(c); err != nil {
			return StepResult{}, wrapStackErr(err)
		}
		return StepResult{NextPC: pc + 1}, nil

	case inst.Swap:
		k := int(i.Operand.AsPC())
		if k == 0 {
			return StepResult{}, newFatal(kindInvalidOperand, fmt.Errorf("vm: swap 0 is not allowed"))
		}
		top, err := in.s.Peek(0)
		if err != nil {
			return StepResult{}, wrapStackErr(err)
		}
		other, err := in.s.Peek(k)
		if err != nil {
			return StepResult{}, wrapStackErr(err)
		}
		if err := in.s.Set(0, other); err != nil {
			return StepResult{}, wrapStackErr(err)
		}
		if err := in.s.Set(k, top); err != nil {
			return StepResult{}, wrapStackErr(err)
		}
		return StepResult{NextPC: pc + 1}, nil

	case inst.Drop:
		k := int(i.Operand.AsPC())
		if err := in.s.Truncate(k); err != nil {
			return StepResult{}, wrapStackErr(err)
		}
		return StepResult{NextPC: pc + 1}, nil

	case inst.PushInt, inst.PushLabel:
		if err := in.s.Push(i.Operand); err != nil {
			return StepResult{}, wrapStackErr(err)
		}
		return StepResult{NextPC: pc + 1}, nil

	case inst.Eq:
		b, a, err := in.pop2()
		if err != nil {
			return StepResult{}, err
		}
		if err := in.s.Push(inst.BoolCell(a.AsInt() == b.AsInt())); err != nil {
			return StepResult{}, wrapStackErr(err)
		}
		return StepResult{NextPC: pc + 1}, nil

	case inst.Ge:
		b, a, err := in.pop2()
		if err != nil {
			return StepResult{}, err
		}
		if err := in.s.Push(inst.BoolCell(a.AsInt() >= b.AsInt())); err != nil {
			return StepResult{}, wrapStackErr(err)
		}
		return StepResult{NextPC: pc + 1}, nil

	case inst.Add:
		b, a, err := in.pop2()
		if err != nil {
			return StepResult{}, err
		}
		if err := in.s.Push(inst.IntCell(a.AsInt() + b.AsInt())); err != nil {
			return StepResult{}, wrapStackErr(err)
		}
		return StepResult{NextPC: pc + 1}, nil

	default:
		return StepResult{}, newFatal(kindMalformedProgram, errUnknownKind)
	}
}

func (in *Interpreter) pop2() (b, a inst.Cell, err error) {
	b, err = in.s.Pop()
	if err != nil {
		return 0, 0, wrapStackErr(err)
	}
	a, err = in.s.Pop()
	if err != nil {
		return 0, 0, wrapStackErr(err)
	}
	return b, a, nil
}

func wrapStackErr(err error) error {
	return newFatal(kindStackBounds, err)
}
