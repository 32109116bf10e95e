package trace

import (
	"errors"
	"fmt"

	"tracevm/internal/inst"
	"tracevm/internal/stack"
)

// ErrNonRecordableInTrace marks encountering HALT, LABEL, JUMP, JZ, or
// RET inside a recorded trace: these were rewritten or elided at record
// time, so seeing one during replay is a fatal invariant violation
// (spec.md §4.7, §7).
var ErrNonRecordableInTrace = errors.New("trace: non-recordable instruction encountered during replay")

// ErrTraceDidNotExit is a defensive backstop (spec.md §9's closing open
// question) for a hand-built or malformed trace that never fires a
// guard and never wraps back to a natural exit. No trace produced by the
// recorder should ever hit this given spec.md §8 invariant 3, but
// Run must not spin forever on one that does.
var ErrTraceDidNotExit = errors.New("trace: exceeded safety bound without exiting")

// traceStepSafetyFactor bounds total executed trace steps at
// len(trace) * traceStepSafetyFactor before Run gives up and reports
// ErrTraceDidNotExit. This is generous headroom, not a spec-mandated
// value.
const traceStepSafetyFactor = 1 << 20

// Run executes trace in a cyclic loop, per spec.md §4.7: at trace index
// j, it executes the instruction and advances j = (j+1) mod len(trace).
// Guards behave as follows:
//
//   - GUARD_0 p: pop c; if c is false, return p (exit).
//   - GUARD_1 p: pop c; if c is true, return p (exit).
//   - GUARD_RET p: pop r; if r != p, return r (exit); otherwise continue.
//
// Normal stack operations (DUP/SWAP/DROP/PUSH_INT/PUSH_LABEL/EQ/GE/ADD)
// apply exactly as in the base interpreter.
func Run(tr []inst.Instruction, s *stack.Stack) (exitPC uint64, err error) {
	if len(tr) == 0 {
		return 0, fmt.Errorf("trace: cannot run an empty trace")
	}

	maxSteps := len(tr) * traceStepSafetyFactor
	j := 0
	for steps := 0; ; steps++ {
		if steps >= maxSteps {
			return 0, ErrTraceDidNotExit
		}

		in := tr[j]
		switch in.Kind {
		case inst.PushInt, inst.PushLabel:
			if err := s.Push(in.Operand); err != nil {
				return 0, err
			}
		case inst.Dup:
			c, err := s.Peek(int(in.Operand.AsPC()))
			if err != nil {
				return 0, err
			}
			if err := s.Push(c); err != nil {
				return 0, err
			}
		case inst.Swap:
			k := int(in.Operand.AsPC())
			if k == 0 {
				return 0, fmt.Errorf("trace: swap 0 is not allowed")
			}
			top, err := s.Peek(0)
			if err != nil {
				return 0, err
			}
			other, err := s.Peek(k)
			if err != nil {
				return 0, err
			}
			if err := s.Set(0, other); err != nil {
				return 0, err
			}
			if err := s.Set(k, top); err != nil {
				return 0, err
			}
		case inst.Drop:
			if err := s.Truncate(int(in.Operand.AsPC())); err != nil {
				return 0, err
			}
		case inst.Eq:
			b, err := s.Pop()
			if err != nil {
				return 0, err
			}
			a, err := s.Pop()
			if err != nil {
				return 0, err
			}
			if err := s.Push(inst.BoolCell(a.AsInt() == b.AsInt())); err != nil {
				return 0, err
			}
		case inst.Ge:
			b, err := s.Pop()
			if err != nil {
				return 0, err
			}
			a, err := s.Pop()
			if err != nil {
				return 0, err
			}
			if err := s.Push(inst.BoolCell(a.AsInt() >= b.AsInt())); err != nil {
				return 0, err
			}
		case inst.Add:
			b, err := s.Pop()
			if err != nil {
				return 0, err
			}
			a, err := s.Pop()
			if err != nil {
				return 0, err
			}
			if err := s.Push(inst.IntCell(a.AsInt() + b.AsInt())); err != nil {
				return 0, err
			}
		case inst.Guard0:
			c, err := s.Pop()
			if err != nil {
				return 0, err
			}
			if !c.AsBool() {
				return in.Operand.AsPC(), nil
			}
		case inst.Guard1:
			c, err := s.Pop()
			if err != nil {
				return 0, err
			}
			if c.AsBool() {
				return in.Operand.AsPC(), nil
			}
		case inst.GuardRet:
			r, err := s.Pop()
			if err != nil {
				return 0, err
			}
			if r.AsPC() != in.Operand.AsPC() {
				return r.AsPC(), nil
			}
		default:
			return 0, fmt.Errorf("%w: %s", ErrNonRecordableInTrace, in.Kind)
		}

		j = (j + 1) % len(tr)
	}
}
