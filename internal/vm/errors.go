package vm

import "errors"

// FatalError is implemented by every fatal invariant violation the
// engine can raise (spec.md §7), generalizing the teacher's
// package-level sentinel-error style into a queryable category so an
// embedder can recover the kind via errors.As without string matching
// (spec.md §9).
type FatalError interface {
	error
	Kind() string
}

type fatalError struct {
	kind string
	err  error
}

func (f *fatalError) Error() string { return f.err.Error() }
func (f *fatalError) Kind() string  { return f.kind }
func (f *fatalError) Unwrap() error { return f.err }

func newFatal(kind string, err error) *fatalError {
	return &fatalError{kind: kind, err: err}
}

var (
	// errProgramFinished signals the PC ran past the end of the program
	// without encountering HALT. Spec.md treats this like any other
	// malformed-program condition rather than a successful stop.
	errProgramFinished = errors.New("vm: ran out of instructions without halting")

	// errGuardOutsideTrace: a GUARD_* kind was encountered by the base
	// interpreter, which never executes guards (spec.md §4.4, §7).
	errGuardOutsideTrace = errors.New("vm: guard instruction encountered outside a trace")

	// errUnknownKind: an instruction kind the base interpreter does not
	// recognize (malformed program, spec.md §7).
	errUnknownKind = errors.New("vm: unrecognized instruction kind")
)

const (
	kindMalformedProgram = "malformed_program"
	kindStackBounds      = "stack_bounds"
	kindInvalidOperand   = "invalid_operand"
	kindUnexpectedInstr  = "unexpected_instruction"
)
