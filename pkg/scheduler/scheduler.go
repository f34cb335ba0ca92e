package scheduler

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"ccsim/pkg/concurrency/transaction"
	dberr "ccsim/pkg/error"
	"ccsim/pkg/logging"
	"ccsim/pkg/operation"
	"ccsim/pkg/parser"
	"ccsim/pkg/primitives"
	"ccsim/pkg/schedule"
)

// engine runs one protocol over a parsed sequence.
type engine interface {
	run(ops []operation.Operation) error
	committed() []primitives.TransactionID
}

// Simulate parses input and runs it under alg.
func Simulate(input string, alg Algorithm, opts Options) (*Result, error) {
	ops, err := parser.Parse(input)
	if err != nil {
		return nil, err
	}
	return Run(ops, alg, opts)
}

// Run executes ops under alg and returns the resulting schedule. Parse, deadlock
// bound and incomplete-schedule failures are fatal: no Result is returned.
// Local aborts are reported in Result.Aborts and Result.Diagnostics.
func Run(ops []operation.Operation, alg Algorithm, opts Options) (*Result, error) {
	runID := uuid.NewString()
	rs := newRunState(logging.WithRun(runID, alg.String()))

	var eng engine
	switch alg {
	case TwoPhaseLocking:
		eng = newTwoPhase(rs, opts, ops)
	case Optimistic:
		eng = newOptimistic(rs, opts)
	default:
		return nil, dberr.New(dberr.ErrCategoryUser, dberr.CodeInvalidConfig, "unknown algorithm").
			WithDetail("%q is not one of twophase, occ", string(alg)).
			At("Run", "Scheduler")
	}

	start := time.Now()
	rs.log.Debug("run started", "operations", len(ops))

	if err := eng.run(ops); err != nil {
		rs.log.Warn("run failed", "error", err, "code", dberr.CodeOf(err))
		return nil, err
	}

	result := &Result{
		RunID:       runID,
		Algorithm:   alg,
		Schedule:    rs.sched,
		Output:      schedule.Format(rs.sched, opts.AbortedPolicy),
		Aborts:      rs.aborts,
		Diagnostics: rs.diagnostics,
		Committed:   eng.committed(),
	}

	rs.log.Info("run finished",
		"operations", len(ops),
		"scheduled", rs.sched.Len(),
		"committed", len(result.Committed),
		"aborts", len(result.Aborts),
		"elapsed", time.Since(start))
	return result, nil
}

// runState is what both protocols share for the duration of one run.
type runState struct {
	log         *slog.Logger
	registry    *transaction.TransactionRegistry
	sched       *schedule.Schedule
	aborts      []AbortEvent
	diagnostics []string
}

func newRunState(log *slog.Logger) *runState {
	return &runState{
		log:         log,
		registry:    transaction.NewTransactionRegistry(),
		sched:       schedule.New(),
		aborts:      make([]AbortEvent, 0),
		diagnostics: make([]string, 0),
	}
}

// emit appends op to the schedule for ctx's current incarnation.
func (rs *runState) emit(ctx *transaction.TransactionContext, op operation.Operation) {
	rs.sched.Append(op, ctx.Incarnation())
	rs.log.Debug("scheduled", "op", op.String(), "incarnation", ctx.Incarnation())
}

func (rs *runState) diag(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	rs.diagnostics = append(rs.diagnostics, msg)
	rs.log.Debug("diagnostic", "message", msg)
}

// recordAbort rolls back incarnation's entries and reports the abort.
func (rs *runState) recordAbort(tid primitives.TransactionID, incarnation int, cause error, restarted bool) {
	rs.sched.RollBack(tid, incarnation)

	event := AbortEvent{
		TxID:        tid,
		Incarnation: incarnation,
		Code:        dberr.CodeOf(cause),
		Message:     cause.Error(),
		Restarted:   restarted,
	}
	rs.aborts = append(rs.aborts, event)

	if restarted {
		rs.diag("%s aborted and restarted: %v", tid, cause)
	} else {
		rs.diag("%s aborted: %v", tid, cause)
	}
	rs.log.Info("transaction aborted", "tx_id", int(tid), "code", event.Code, "restarted", restarted)
}

// context returns the registered context for tid. Every id reaching an engine
// was registered when its first operation was read.
func (rs *runState) context(tid primitives.TransactionID) *transaction.TransactionContext {
	ctx, err := rs.registry.Get(tid)
	if err != nil {
		panic(err)
	}
	return ctx
}

// checkComplete fails the run if any transaction never reached a terminal state.
func (rs *runState) checkComplete() error {
	unfinished := rs.registry.Unfinished()
	if len(unfinished) == 0 {
		return nil
	}

	names := make([]string, len(unfinished))
	for i, ctx := range unfinished {
		names[i] = ctx.ID.String()
	}
	return dberr.NewIncompleteScheduleError(names)
}

// synthesize builds an operation emitted on behalf of source, such as an
// implicit lock or an unlock at commit.
func synthesize(kind operation.Kind, tid primitives.TransactionID, rid primitives.ResourceID, index int) operation.Operation {
	op := operation.New(kind, tid, rid)
	op.Index = index
	return op
}
