package models

import "time"

// Audit event kinds. One event is recorded for every signal, admission
// decision, sizing calculation, pyramid, stop move, and exit.
const (
	AuditSignal     = "signal"
	AuditAdmission  = "admission"
	AuditSizing     = "sizing"
	AuditEntry      = "entry"
	AuditPyramid    = "pyramid"
	AuditStopMove   = "stop_move"
	AuditExit       = "exit"
	AuditOutcome    = "outcome"
	AuditDrawdown   = "drawdown"
	AuditMarketSkip = "market_skip"
	AuditExecFail   = "exec_fail"
)

// AuditEvent is one append-only decision record. RunID plus Seq order all
// events of a single engine run; Detail carries every input and
// intermediate value needed to recompute the decision. Decimal values are
// stored as strings so replay is bit-for-bit.
type AuditEvent struct {
	RunID     string            `json:"run_id"`
	Seq       uint64            `json:"seq"`
	Time      time.Time         `json:"time"`
	Kind      string            `json:"kind"`
	Market    string            `json:"market"`
	System    string            `json:"system,omitempty"`
	Direction string            `json:"direction,omitempty"`
	Reason    string            `json:"reason,omitempty"`
	Detail    map[string]string `json:"detail,omitempty"`
}
