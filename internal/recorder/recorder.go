// Package recorder implements the trace recorder state machine: it
// begins recording when a hot target re-enters itself, accumulates a
// straight-line instruction sequence (rewriting conditional jumps and
// returns into guards), and commits or aborts based on the termination
// policy in spec.md §4.6.
package recorder

import "tracevm/internal/inst"

// MaxLen is the maximum length an in-progress trace buffer may reach
// before it is abandoned (spec.md §4.6/§4.8).
const MaxLen = 100

// Recorder holds the three fields named in spec.md §3's "Recorder
// state": whether a recording is in progress, the head PC it started
// at, and the in-progress trace buffer.
type Recorder struct {
	Recording bool
	HeadPC    uint64
	buffer    []inst.Instruction
}

// New returns an idle Recorder.
func New() *Recorder {
	return &Recorder{}
}

// Begin starts recording at headPC, clearing any previous buffer.
func (r *Recorder) Begin(headPC uint64) {
	r.Recording = true
	r.HeadPC = headPC
	r.buffer = r.buffer[:0]
}

// Len returns the number of instructions recorded so far.
func (r *Recorder) Len() int {
	return len(r.buffer)
}

// Abort discards the in-progress buffer and resets recorder state
// without committing (spec.md §4.6 Abort; §7 "not fatal — aborts the
// trace silently").
func (r *Recorder) Abort() {
	r.Recording = false
	r.HeadPC = 0
	r.buffer = r.buffer[:0]
}

// Append records one instruction as-is (the verbatim case in the
// per-instruction recording table).
func (r *Recorder) Append(in inst.Instruction) {
	r.buffer = append(r.buffer, in)
}

// Commit closes the in-progress recording and returns the committed
// trace (a fresh copy, safe to store independent of future recordings),
// resetting recorder state.
func (r *Recorder) Commit() []inst.Instruction {
	out := make([]inst.Instruction, len(r.buffer))
	copy(out, r.buffer)
	r.Recording = false
	r.HeadPC = 0
	r.buffer = r.buffer[:0]
	return out
}

// RewriteJz implements the JZ row of the per-instruction recording table
// in spec.md §4.6. conditionTrue is the popped condition as actually
// observed during recording; branchPC is JZ's branch-taken target;
// fallthroughPC is the instruction immediately after the JZ.
//
//   - condition true (control falls through to fallthroughPC): record
//     GUARD_0 branchPC — the branch target that was NOT taken, so a
//     later mismatch exits there.
//   - condition false (control branches to branchPC): record
//     GUARD_1 fallthroughPC — the fall-through that was NOT taken.
func RewriteJz(conditionTrue bool, branchPC, fallthroughPC uint64) inst.Instruction {
	if conditionTrue {
		return inst.Guard0At(branchPC)
	}
	return inst.Guard1At(fallthroughPC)
}

// RewriteRet implements the RET row: a RET popping return address r is
// recorded as GUARD_RET r, pinning the particular return PC observed
// during recording (spec.md §9: the guard-based form, not a DROP 1
// followed by a separate comparison).
func RewriteRet(r uint64) inst.Instruction {
	return inst.GuardRetAt(r)
}
