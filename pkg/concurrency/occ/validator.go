package occ

import (
	"log/slog"
	"slices"

	"ccsim/pkg/concurrency/transaction"
	dberr "ccsim/pkg/error"
	"ccsim/pkg/logging"
	"ccsim/pkg/primitives"
)

// commitRecord is what backward validation needs to remember about a
// committed transaction.
type commitRecord struct {
	tid      primitives.TransactionID
	commitTS primitives.Timestamp
	writeSet []primitives.ResourceID
}

// Validator performs serial backward validation. Read and write sets live on
// the transaction contexts; the validator keeps the committed history and the
// resource table that successful validations write into.
//
// A Validator belongs to one simulation run and is not safe for concurrent use.
type Validator struct {
	resources   *ResourceTable
	committed   []commitRecord
	commitOrder []primitives.TransactionID
	log         *slog.Logger
}

func NewValidator() *Validator {
	return &Validator{
		resources:   NewResourceTable(),
		committed:   make([]commitRecord, 0),
		commitOrder: make([]primitives.TransactionID, 0),
		log:         logging.WithComponent("validator"),
	}
}

// WithLogger routes validation records through log, typically a run-scoped
// logger carrying run_id and algorithm.
func (v *Validator) WithLogger(log *slog.Logger) *Validator {
	v.log = log.With("component", "validator")
	return v
}

// Begin opens the read phase of ctx at startTS.
func (v *Validator) Begin(ctx *transaction.TransactionContext, startTS primitives.Timestamp) {
	ctx.SetStartTS(startTS)
	ctx.SetStatus(transaction.TxActive)
}

// Read adds rid to the read set. No shared state is touched.
func (v *Validator) Read(ctx *transaction.TransactionContext, rid primitives.ResourceID) {
	v.resources.Touch(rid)
	ctx.RecordRead(rid)
}

// Write buffers a write to rid until validation succeeds.
func (v *Validator) Write(ctx *transaction.TransactionContext, rid primitives.ResourceID) {
	v.resources.Touch(rid)
	ctx.RecordWrite(rid)
}

// Validate checks ctx against every transaction that committed after ctx's
// read phase began. The first conflicting committer, in commit order, is
// reported.
//
// On success the buffered writes are applied, ctx is Committed and appended to
// the commit order. On failure ctx is Aborted and a CONFLICT_ABORT error is
// returned.
func (v *Validator) Validate(ctx *transaction.TransactionContext, commitTS primitives.Timestamp) error {
	ctx.SetStatus(transaction.TxValidating)

	for _, rec := range v.committed {
		if rec.commitTS <= ctx.StartTS() {
			continue
		}

		overlap := intersect(ctx.ReadSet(), rec.writeSet)
		if len(overlap) == 0 {
			continue
		}

		ctx.SetStatus(transaction.TxAborted)
		v.log.Debug("validation failed", "tx_id", int(ctx.ID), "against", rec.tid, "resources", overlap)
		return dberr.NewConflictAbortError(ctx.ID, rec.tid, resourceNames(overlap))
	}

	writes := ctx.WriteSet()
	v.resources.Apply(ctx.ID, writes)
	v.committed = append(v.committed, commitRecord{
		tid:      ctx.ID,
		commitTS: commitTS,
		writeSet: writes,
	})
	v.commitOrder = append(v.commitOrder, ctx.ID)
	ctx.SetStatus(transaction.TxCommitted)

	v.log.Debug("validation passed", "tx_id", int(ctx.ID), "commit_ts", commitTS, "writes", writes)
	return nil
}

// Discard drops ctx's buffered writes after a user abort.
func (v *Validator) Discard(ctx *transaction.TransactionContext) {
	ctx.SetStatus(transaction.TxAborted)
}

// CommitOrder returns the transactions in the order they passed validation.
func (v *Validator) CommitOrder() []primitives.TransactionID {
	return slices.Clone(v.commitOrder)
}

// Resources exposes the committed resource state.
func (v *Validator) Resources() *ResourceTable {
	return v.resources
}

// intersect expects both inputs sorted.
func intersect(a, b []primitives.ResourceID) []primitives.ResourceID {
	out := make([]primitives.ResourceID, 0)
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			out = append(out, a[i])
			i++
			j++
		case a[i] < b[j]:
			i++
		default:
			j++
		}
	}
	return out
}

func resourceNames(rids []primitives.ResourceID) []string {
	names := make([]string, len(rids))
	for i, rid := range rids {
		names[i] = string(rid)
	}
	return names
}
