package vm

import (
	"context"

	"tracevm/internal/diag"
	"tracevm/internal/inst"
	"tracevm/internal/profile"
	"tracevm/internal/program"
	"tracevm/internal/recorder"
	"tracevm/internal/stack"
	"tracevm/internal/trace"
)

// Engine is the driver: the top-level loop arbitrating between base
// interpretation, recording, and trace dispatch (spec.md §4.8). An Engine
// is not safe for concurrent use from multiple goroutines.
type Engine struct {
	TracingEnabled bool

	prog   *program.Program
	s      *stack.Stack
	interp *Interpreter
	prof   *profile.Counter
	rec    *recorder.Recorder
	traces *trace.Table
	sink   diag.Sink

	pc uint64
}

// NewEngine builds an Engine ready to run prog over a freshly allocated
// stack. A nil sink is replaced with diag.Nop{}.
func NewEngine(prog *program.Program, tracingEnabled bool, sink diag.Sink) (*Engine, error) {
	s, err := stack.New(stack.DefaultCapacityCells)
	if err != nil {
		return nil, err
	}
	if sink == nil {
		sink = diag.Nop{}
	}
	return &Engine{
		TracingEnabled: tracingEnabled,
		prog:           prog,
		s:              s,
		interp:         NewInterpreter(s),
		prof:           profile.New(),
		rec:            recorder.New(),
		traces:         trace.NewTable(),
		sink:           sink,
	}, nil
}

// Close releases the engine's stack.
func (e *Engine) Close() error {
	return e.s.Close()
}

// FinalStack returns the stack's contents, bottom-first, valid once Run
// has returned with a nil error.
func (e *Engine) FinalStack() []inst.Cell {
	return e.s.Cells()
}

// TraceCount returns the number of committed traces, for tests that assert
// the trace table is non-empty.
func (e *Engine) TraceCount() int {
	return e.traces.Len()
}

// Run executes the program to completion (HALT) or until ctx is done or a
// fatal error occurs, implementing the five-step iteration order of
// spec.md §4.8.
func (e *Engine) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		// Step 1: recorder-length cap.
		if e.TracingEnabled && e.rec.Recording && e.rec.Len() >= recorder.MaxLen {
			e.rec.Abort()
			continue
		}

		// Step 2: start trigger.
		if e.TracingEnabled && !e.rec.Recording && e.prof.IsHot(e.pc) && !e.traces.Has(e.pc) && e.rec.Len() == 0 {
			e.rec.Begin(e.pc)
		}

		// Step 3: close trigger.
		if e.TracingEnabled && e.rec.Recording && e.pc == e.rec.HeadPC && e.rec.Len() > 0 {
			committed := e.rec.Commit()
			e.traces.Commit(e.pc, committed)
			e.sink.TraceCommitted(e.pc, committed)
			continue
		}

		// Step 4: trace dispatch.
		if e.TracingEnabled && !e.rec.Recording {
			if tr, ok := e.traces.Get(e.pc); ok {
				exitPC, err := trace.Run(tr, e.s)
				if err != nil {
					return err
				}
				e.prof.Bump(exitPC)
				e.pc = exitPC
				continue
			}
		}

		// Step 5: record-if-applicable, then execute one base instruction.
		halted, err := e.stepBase()
		if err != nil {
			return err
		}
		if halted {
			e.sink.Halted(e.prof.Snapshot(), e.s.Cells())
			return nil
		}
	}
}

// stepBase records the current instruction (if a recording is in
// progress) per the rewrite table in spec.md §4.6, then executes it via
// the base interpreter and advances pc.
func (e *Engine) stepBase() (halted bool, err error) {
	cur, ok := e.prog.At(e.pc)
	if !ok {
		return false, newFatal(kindMalformedProgram, errProgramFinished)
	}

	if e.TracingEnabled && e.rec.Recording {
		switch cur.Kind {
		case inst.Halt:
			e.rec.Abort()
		case inst.Label, inst.Jump:
			// nothing recorded.
		case inst.Jz:
			conditionTrue := e.peekWillFallThrough()
			e.rec.Append(recorder.RewriteJz(conditionTrue, cur.Operand.AsPC(), e.pc+1))
		case inst.Ret:
			r, peekErr := e.s.Peek(0)
			if peekErr == nil {
				e.rec.Append(recorder.RewriteRet(r.AsPC()))
			}
		default:
			e.rec.Append(cur)
		}
	}

	res, err := e.interp.Step(e.prog, e.pc)
	if err != nil {
		return false, err
	}
	if res.Halted {
		return true, nil
	}
	if res.JumpTaken {
		e.prof.Bump(res.JumpTarget)
	}
	e.pc = res.NextPC
	return false, nil
}

// peekWillFallThrough reports the condition a pending JZ is about to pop,
// without consuming it, so the recorder can classify the branch before
// the base interpreter's Step call performs the real pop.
func (e *Engine) peekWillFallThrough() bool {
	c, err := e.s.Peek(0)
	if err != nil {
		return false
	}
	return c.AsBool()
}
