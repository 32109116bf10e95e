package diag

import (
	"go.uber.org/zap"

	"tracevm/internal/inst"
	"tracevm/internal/profile"
)

// ZapSink reports trace and halt events through a zap.SugaredLogger,
// structuring each event as a log field rather than a bare Printf, in
// keeping with the source's "emit a textual dump" requirement while
// giving an embedder queryable, leveled output (spec.md §9's "injected
// sink" note).
type ZapSink struct {
	log *zap.SugaredLogger
}

// NewZapSink wraps log. A nil log is replaced with zap.NewNop().
func NewZapSink(log *zap.Logger) *ZapSink {
	if log == nil {
		log = zap.NewNop()
	}
	return &ZapSink{log: log.Sugar()}
}

func (z *ZapSink) TraceCommitted(headPC uint64, trace []inst.Instruction) {
	z.log.Infow("trace committed",
		"head_pc", headPC,
		"trace", TraceText(headPC, trace),
		"length", len(trace),
	)
}

func (z *ZapSink) Halted(snapshot []profile.Entry, stack []inst.Cell) {
	z.log.Infow("halted",
		"jump_targets", ProfileText(snapshot),
		"final_stack", StackText(stack),
	)
}
