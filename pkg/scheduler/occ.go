package scheduler

import (
	"ccsim/pkg/concurrency/occ"
	"ccsim/pkg/concurrency/transaction"
	dberr "ccsim/pkg/error"
	"ccsim/pkg/operation"
	"ccsim/pkg/primitives"
)

// optimistic drives OCC in input order. Validation failures are replayed
// after the input is exhausted, one transaction at a time, in abort order.
type optimistic struct {
	*runState
	opts      Options
	validator *occ.Validator

	// clock ticks once per processed operation.
	clock    primitives.Timestamp
	restarts []primitives.TransactionID
}

func newOptimistic(rs *runState, opts Options) *optimistic {
	return &optimistic{
		runState:  rs,
		opts:      opts,
		validator: occ.NewValidator().WithLogger(rs.log),
		restarts:  make([]primitives.TransactionID, 0),
	}
}

func (o *optimistic) run(ops []operation.Operation) error {
	for _, op := range ops {
		o.clock++
		ctx, created := o.registry.GetOrCreate(op.TxID)
		if created {
			o.validator.Begin(ctx, o.clock)
		}

		ctx.AppendProgram(op)
		o.execute(ctx, op)
	}

	if err := o.checkComplete(); err != nil {
		return err
	}

	// A replay runs alone, so nothing commits during its read phase and its
	// validation cannot fail.
	for i := 0; i < len(o.restarts); i++ {
		ctx := o.context(o.restarts[i])
		ctx.Restart(o.clock + 1)
		o.log.Debug("replaying transaction", "tx_id", int(ctx.ID), "incarnation", ctx.Incarnation())

		for {
			op, ok := ctx.NextPending()
			if !ok {
				break
			}
			o.clock++
			o.execute(ctx, op)
		}
	}
	return nil
}

func (o *optimistic) committed() []primitives.TransactionID {
	return o.validator.CommitOrder()
}

func (o *optimistic) execute(ctx *transaction.TransactionContext, op operation.Operation) {
	switch op.Kind {
	case operation.Begin:
		o.validator.Begin(ctx, o.clock)
		o.emit(ctx, op)

	case operation.Read:
		o.validator.Read(ctx, op.Resource)
		o.emit(ctx, op)

	case operation.Write:
		o.validator.Write(ctx, op.Resource)
		o.emit(ctx, op)

	case operation.SharedLock, operation.ExclusiveLock, operation.UpgradeLock, operation.Unlock:
		o.diag("%s ignored: optimistic concurrency control takes no locks", op)

	case operation.Commit:
		if err := o.validator.Validate(ctx, o.clock); err != nil {
			o.emit(ctx, synthesize(operation.Abort, ctx.ID, primitives.NoResource, op.Index))
			restart := o.opts.RestartAborted && dberr.HasCode(err, dberr.CodeConflictAbort)
			o.recordAbort(ctx.ID, ctx.Incarnation(), err, restart)
			if restart {
				o.restarts = append(o.restarts, ctx.ID)
			}
			return
		}
		o.emit(ctx, op)

	case operation.Abort:
		o.validator.Discard(ctx)
		o.emit(ctx, op)
		o.recordAbort(ctx.ID, ctx.Incarnation(), dberr.NewUserAbortError(ctx.ID), false)
	}
}
