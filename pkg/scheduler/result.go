package scheduler

import (
	"ccsim/pkg/primitives"
	"ccsim/pkg/schedule"
)

// AbortEvent records one aborted incarnation.
type AbortEvent struct {
	TxID        primitives.TransactionID `json:"tx_id"`
	Incarnation int                      `json:"incarnation"`
	// Code is the DBError code of the abort reason, e.g. DEADLOCK_VICTIM.
	Code      string `json:"code"`
	Message   string `json:"message"`
	Restarted bool   `json:"restarted"`
}

// Result is the outcome of a run that did not fail fatally.
type Result struct {
	RunID     string
	Algorithm Algorithm
	Schedule  *schedule.Schedule
	// Output is Schedule rendered under the run's AbortedPolicy.
	Output      string
	Aborts      []AbortEvent
	Diagnostics []string
	// Committed lists transactions in commit order.
	Committed []primitives.TransactionID
}

// Clean reports whether every transaction committed on its first attempt.
func (r *Result) Clean() bool {
	return len(r.Aborts) == 0
}
