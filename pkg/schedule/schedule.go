package schedule

import (
	"slices"

	"ccsim/pkg/operation"
	"ccsim/pkg/primitives"
)

// Entry is one executed operation. Incarnation tells restarted attempts of the
// same transaction apart; RolledBack marks work undone by an abort.
type Entry struct {
	Op          operation.Operation
	Incarnation int
	RolledBack  bool
}

// Schedule is the execution order produced by one run. The scheduler owns it
// while the run is in progress; callers receive it read-only.
type Schedule struct {
	entries []Entry
}

func New() *Schedule {
	return &Schedule{entries: make([]Entry, 0)}
}

// Append records op as executed by the given incarnation of its transaction.
func (s *Schedule) Append(op operation.Operation, incarnation int) {
	s.entries = append(s.entries, Entry{Op: op, Incarnation: incarnation})
}

// RollBack marks every entry of tid's incarnation as rolled back and returns
// how many entries were marked.
func (s *Schedule) RollBack(tid primitives.TransactionID, incarnation int) int {
	marked := 0
	for i := range s.entries {
		e := &s.entries[i]
		if e.Op.TxID == tid && e.Incarnation == incarnation && !e.RolledBack {
			e.RolledBack = true
			marked++
		}
	}
	return marked
}

// Entries returns a copy of every entry, rolled back or not.
func (s *Schedule) Entries() []Entry {
	return slices.Clone(s.entries)
}

// Len returns the number of entries including rolled-back ones.
func (s *Schedule) Len() int {
	return len(s.entries)
}

// Operations returns the operations the policy makes visible, in execution order.
func (s *Schedule) Operations(policy AbortedPolicy) []operation.Operation {
	ops := make([]operation.Operation, 0, len(s.entries))
	for _, e := range s.entries {
		if e.RolledBack && policy == OmitAborted {
			continue
		}
		ops = append(ops, e.Op)
	}
	return ops
}

// Transactions returns the ids appearing in the schedule, ascending.
func (s *Schedule) Transactions() []primitives.TransactionID {
	ids := make([]primitives.TransactionID, 0)
	for _, e := range s.entries {
		ids = append(ids, e.Op.TxID)
	}
	slices.Sort(ids)
	return slices.Compact(ids)
}
