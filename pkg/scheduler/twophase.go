package scheduler

import (
	"slices"

	"ccsim/pkg/concurrency/lock"
	"ccsim/pkg/concurrency/transaction"
	dberr "ccsim/pkg/error"
	"ccsim/pkg/operation"
	"ccsim/pkg/primitives"
)

// twoPhase drives strict input-order 2PL. Every input operation is queued on
// its transaction; runnable transactions drain their queue until they block.
// After each step, blocked transactions are retried in the order they joined
// the run queue until nothing moves.
type twoPhase struct {
	*runState
	opts  Options
	locks *lock.LockManager

	// queue holds transactions with unfinished work, in the order they got it.
	queue []primitives.TransactionID

	// deferred maps a restarted deadlock victim to the other members of its
	// cycle. The victim replays only after all of them finished, so it cannot
	// rebuild the same cycle.
	deferred map[primitives.TransactionID][]primitives.TransactionID

	restarts    int
	bound       int
	clock       primitives.Timestamp
	commitOrder []primitives.TransactionID
}

func newTwoPhase(rs *runState, opts Options, ops []operation.Operation) *twoPhase {
	bound := opts.MaxDeadlockRestarts
	if bound <= 0 {
		bound = distinctTransactions(ops)
	}

	return &twoPhase{
		runState:    rs,
		opts:        opts,
		locks:       lock.NewLockManager().WithLogger(rs.log),
		queue:       make([]primitives.TransactionID, 0),
		deferred:    make(map[primitives.TransactionID][]primitives.TransactionID),
		bound:       bound,
		commitOrder: make([]primitives.TransactionID, 0),
	}
}

func (tp *twoPhase) run(ops []operation.Operation) error {
	for _, op := range ops {
		tp.clock++
		ctx, created := tp.registry.GetOrCreate(op.TxID)
		if created {
			ctx.SetStartTS(tp.clock)
		}

		if ctx.Status() == transaction.TxAborted {
			tp.diag("%s dropped: %s was aborted", op, op.TxID)
			continue
		}

		ctx.AppendProgram(op)
		ctx.Enqueue(op)
		tp.enqueue(op.TxID)

		if err := tp.settle(); err != nil {
			return err
		}
	}

	return tp.checkComplete()
}

func (tp *twoPhase) committed() []primitives.TransactionID {
	return tp.commitOrder
}

// settle runs queued transactions until a full pass makes no progress.
func (tp *twoPhase) settle() error {
	for {
		progressed := false

		for _, tid := range slices.Clone(tp.queue) {
			ctx := tp.context(tid)
			moved, err := tp.drain(ctx)
			if err != nil {
				return err
			}
			progressed = progressed || moved

			if ctx.IsFinished() || (ctx.Status() == transaction.TxActive && ctx.PendingCount() == 0) {
				tp.dequeue(tid)
			}
		}

		if !progressed {
			return nil
		}
	}
}

// drain executes ctx's pending operations until it blocks, finishes or runs
// out of work. A blocked transaction withdraws its request and retries it.
// The result reports whether anything changed.
func (tp *twoPhase) drain(ctx *transaction.TransactionContext) (bool, error) {
	if tp.isDeferred(ctx.ID) {
		return false, nil
	}

	if ctx.Status() == transaction.TxBlocked {
		tp.locks.CancelWait(ctx.ID)
		ctx.SetStatus(transaction.TxActive)
	}

	progressed := false
	for ctx.Status() == transaction.TxActive {
		op, ok := ctx.NextPending()
		if !ok {
			return progressed, nil
		}

		done, err := tp.execute(ctx, op)
		if err != nil {
			return progressed, err
		}
		if !done {
			ctx.PushFront(op)
			ctx.Block(op.Resource)
			resolved, err := tp.resolveDeadlocks()
			return progressed || resolved, err
		}
		progressed = true
	}
	return progressed, nil
}

// execute applies op. It returns false when op must wait for a lock.
func (tp *twoPhase) execute(ctx *transaction.TransactionContext, op operation.Operation) (bool, error) {
	switch op.Kind {
	case operation.Begin:
		tp.emit(ctx, op)
		return true, nil

	case operation.Read:
		return tp.acquire(ctx, op, lock.SharedLock)

	case operation.Write, operation.ExclusiveLock, operation.UpgradeLock:
		return tp.acquire(ctx, op, lock.ExclusiveLock)

	case operation.SharedLock:
		return tp.acquire(ctx, op, lock.SharedLock)

	case operation.Unlock:
		if tp.locks.Release(ctx.ID, op.Resource) {
			ctx.EnterShrinking()
			tp.emit(ctx, op)
		} else {
			tp.diag("%s ignored: %s holds no lock on %s", op, ctx.ID, op.Resource)
		}
		return true, nil

	case operation.Commit:
		tp.releaseAll(ctx, op.Index)
		ctx.SetStatus(transaction.TxCommitted)
		tp.emit(ctx, op)
		tp.commitOrder = append(tp.commitOrder, ctx.ID)
		return true, nil

	case operation.Abort:
		return true, tp.abort(ctx, op.Index, dberr.NewUserAbortError(ctx.ID), false)
	}

	tp.diag("%s ignored: unsupported operation", op)
	return true, nil
}

// acquire takes the lock op needs and, for reads and writes, performs the
// access. New grants are made visible as SL, XL or UPL tokens.
func (tp *twoPhase) acquire(ctx *transaction.TransactionContext, op operation.Operation, mode lock.LockType) (bool, error) {
	outcome, err := tp.locks.Acquire(ctx.ID, op.Resource, mode)
	if err != nil {
		if !dberr.HasCode(err, dberr.CodeProtocolViolation) {
			return false, err
		}
		return true, tp.abort(ctx, op.Index, err, false)
	}

	switch outcome {
	case lock.Blocked:
		return false, nil
	case lock.Granted:
		kind := operation.SharedLock
		if mode == lock.ExclusiveLock {
			kind = operation.ExclusiveLock
		}
		tp.emit(ctx, synthesize(kind, ctx.ID, op.Resource, op.Index))
	case lock.Upgraded:
		tp.emit(ctx, synthesize(operation.UpgradeLock, ctx.ID, op.Resource, op.Index))
	}

	switch op.Kind {
	case operation.Read:
		ctx.RecordRead(op.Resource)
		tp.emit(ctx, op)
	case operation.Write:
		ctx.RecordWrite(op.Resource)
		tp.emit(ctx, op)
	}
	return true, nil
}

// releaseAll frees every lock of ctx, emitting one UL per resource in
// acquisition order.
func (tp *twoPhase) releaseAll(ctx *transaction.TransactionContext, index int) {
	for _, rid := range tp.locks.ReleaseAll(ctx.ID) {
		tp.emit(ctx, synthesize(operation.Unlock, ctx.ID, rid, index))
	}
	ctx.EnterShrinking()
}

// abort ends ctx's current incarnation. With restart, the transaction's whole
// program is queued again as a new incarnation; exceeding the restart bound
// is fatal.
func (tp *twoPhase) abort(ctx *transaction.TransactionContext, index int, cause error, restart bool) error {
	incarnation := ctx.Incarnation()

	tp.releaseAll(ctx, index)
	tp.emit(ctx, synthesize(operation.Abort, ctx.ID, primitives.NoResource, index))
	if n := ctx.PendingCount(); n > 0 && !restart {
		tp.diag("%d queued operations of %s dropped", n, ctx.ID)
	}
	ctx.ClearPending()
	ctx.SetStatus(transaction.TxAborted)

	if restart {
		tp.restarts++
		if tp.restarts > tp.bound {
			return dberr.NewUnresolvableDeadlockError(tp.restarts, tp.bound)
		}
	}

	tp.recordAbort(ctx.ID, incarnation, cause, restart)

	if restart {
		ctx.Restart(tp.clock)
		tp.locks.Reset(ctx.ID)
		tp.dequeue(ctx.ID)
		tp.enqueue(ctx.ID)
	} else {
		tp.dequeue(ctx.ID)
	}
	return nil
}

// resolveDeadlocks aborts the highest id of each wait-for cycle until none
// is left. It reports whether any victim was chosen.
func (tp *twoPhase) resolveDeadlocks() (bool, error) {
	resolved := false
	for {
		dl, found := tp.locks.FindDeadlock()
		if !found {
			return resolved, nil
		}

		victim := tp.context(dl.Victim)
		members := make([]string, len(dl.Members))
		for i, tid := range dl.Members {
			members[i] = tid.String()
		}
		tp.log.Info("deadlock detected", "cycle", members, "victim", dl.Victim.String())

		index := -1
		if op, ok := victim.PeekPending(); ok {
			index = op.Index
		}

		cause := dberr.NewDeadlockVictimError(dl.Victim, members)
		if err := tp.abort(victim, index, cause, tp.opts.RestartAborted); err != nil {
			return resolved, err
		}
		if tp.opts.RestartAborted {
			tp.deferred[dl.Victim] = slices.DeleteFunc(dl.Members, func(tid primitives.TransactionID) bool {
				return tid == dl.Victim
			})
		}
		resolved = true
	}
}

// isDeferred reports whether tid still waits for the survivors of the
// deadlock it lost.
func (tp *twoPhase) isDeferred(tid primitives.TransactionID) bool {
	survivors, ok := tp.deferred[tid]
	if !ok {
		return false
	}
	for _, other := range survivors {
		if !tp.context(other).IsFinished() {
			return true
		}
	}
	delete(tp.deferred, tid)
	tp.log.Debug("restarted transaction resumes", "tx_id", int(tid))
	return false
}

func (tp *twoPhase) enqueue(tid primitives.TransactionID) {
	if !slices.Contains(tp.queue, tid) {
		tp.queue = append(tp.queue, tid)
	}
}

func (tp *twoPhase) dequeue(tid primitives.TransactionID) {
	tp.queue = slices.DeleteFunc(tp.queue, func(t primitives.TransactionID) bool {
		return t == tid
	})
}

func distinctTransactions(ops []operation.Operation) int {
	seen := make(map[primitives.TransactionID]struct{})
	for _, op := range ops {
		seen[op.TxID] = struct{}{}
	}
	return len(seen)
}
