package transaction

import (
	"fmt"
	"maps"
	"slices"

	"ccsim/pkg/operation"
	"ccsim/pkg/primitives"
)

// TransactionContext encapsulates all state for a single simulated transaction.
// It lives for one simulation run and is not safe for concurrent use.
type TransactionContext struct {
	ID primitives.TransactionID

	status TransactionStatus
	phase  LockPhase

	// incarnation counts restarts; 0 is the first attempt.
	incarnation int

	// startTS is the logical time the read phase began (first operation).
	startTS primitives.Timestamp

	readSet  map[primitives.ResourceID]struct{}
	writeSet map[primitives.ResourceID]struct{}

	// program holds every operation the input issued for this transaction, in
	// order. A restart replays it.
	program []operation.Operation

	// pending holds operations that arrived while the transaction was blocked.
	pending []operation.Operation

	blockedOn primitives.ResourceID
}

func NewTransactionContext(tid primitives.TransactionID) *TransactionContext {
	return &TransactionContext{
		ID:       tid,
		status:   TxActive,
		phase:    Growing,
		readSet:  make(map[primitives.ResourceID]struct{}),
		writeSet: make(map[primitives.ResourceID]struct{}),
		program:  make([]operation.Operation, 0),
		pending:  make([]operation.Operation, 0),
	}
}

func (tc *TransactionContext) Status() TransactionStatus {
	return tc.status
}

// SetStatus updates the transaction status. Leaving Blocked clears blockedOn.
func (tc *TransactionContext) SetStatus(status TransactionStatus) {
	tc.status = status
	if status != TxBlocked {
		tc.blockedOn = primitives.NoResource
	}
}

// IsFinished returns true once the transaction committed or aborted.
func (tc *TransactionContext) IsFinished() bool {
	return tc.status.IsFinal()
}

// Block marks the transaction as waiting for a resource.
func (tc *TransactionContext) Block(rid primitives.ResourceID) {
	tc.status = TxBlocked
	tc.blockedOn = rid
}

func (tc *TransactionContext) BlockedOn() primitives.ResourceID {
	return tc.blockedOn
}

func (tc *TransactionContext) Phase() LockPhase {
	return tc.phase
}

// EnterShrinking moves the transaction into its shrinking phase. It is idempotent.
func (tc *TransactionContext) EnterShrinking() {
	tc.phase = Shrinking
}

func (tc *TransactionContext) Incarnation() int {
	return tc.incarnation
}

func (tc *TransactionContext) StartTS() primitives.Timestamp {
	return tc.startTS
}

func (tc *TransactionContext) SetStartTS(ts primitives.Timestamp) {
	tc.startTS = ts
}

// RecordRead adds a resource to the read set.
func (tc *TransactionContext) RecordRead(rid primitives.ResourceID) {
	tc.readSet[rid] = struct{}{}
}

// RecordWrite adds a resource to the write set.
func (tc *TransactionContext) RecordWrite(rid primitives.ResourceID) {
	tc.writeSet[rid] = struct{}{}
}

// ReadSet returns the read set sorted by name.
func (tc *TransactionContext) ReadSet() []primitives.ResourceID {
	return slices.Sorted(maps.Keys(tc.readSet))
}

// WriteSet returns the write set sorted by name.
func (tc *TransactionContext) WriteSet() []primitives.ResourceID {
	return slices.Sorted(maps.Keys(tc.writeSet))
}

// HasRead reports whether rid is in the read set.
func (tc *TransactionContext) HasRead(rid primitives.ResourceID) bool {
	_, ok := tc.readSet[rid]
	return ok
}

// AppendProgram records an input operation issued by this transaction.
func (tc *TransactionContext) AppendProgram(op operation.Operation) {
	tc.program = append(tc.program, op)
}

// Program returns a copy of the operations issued so far.
func (tc *TransactionContext) Program() []operation.Operation {
	return slices.Clone(tc.program)
}

// Enqueue appends an operation that must wait until the transaction unblocks.
func (tc *TransactionContext) Enqueue(op operation.Operation) {
	tc.pending = append(tc.pending, op)
}

// PushFront puts an operation back at the head of the pending queue.
func (tc *TransactionContext) PushFront(op operation.Operation) {
	tc.pending = slices.Insert(tc.pending, 0, op)
}

// PeekPending returns the head of the pending queue without removing it.
func (tc *TransactionContext) PeekPending() (operation.Operation, bool) {
	if len(tc.pending) == 0 {
		return operation.Operation{}, false
	}
	return tc.pending[0], true
}

// NextPending removes and returns the head of the pending queue.
func (tc *TransactionContext) NextPending() (operation.Operation, bool) {
	if len(tc.pending) == 0 {
		return operation.Operation{}, false
	}
	op := tc.pending[0]
	tc.pending = tc.pending[1:]
	return op, true
}

// PendingCount returns the number of queued operations.
func (tc *TransactionContext) PendingCount() int {
	return len(tc.pending)
}

// ClearPending drops every queued operation.
func (tc *TransactionContext) ClearPending() {
	tc.pending = tc.pending[:0]
}

// Restart resets the transaction for a new incarnation and queues its whole
// program for replay. Read and write sets start empty again.
func (tc *TransactionContext) Restart(startTS primitives.Timestamp) {
	tc.incarnation++
	tc.status = TxActive
	tc.phase = Growing
	tc.blockedOn = primitives.NoResource
	tc.startTS = startTS
	clear(tc.readSet)
	clear(tc.writeSet)
	tc.pending = slices.Clone(tc.program)
}

// String returns a string representation of the transaction context
func (tc *TransactionContext) String() string {
	return fmt.Sprintf("Transaction %s [Status=%s, Phase=%s, Incarnation=%d, Reads=%v, Writes=%v]",
		tc.ID, tc.status, tc.phase, tc.incarnation, tc.ReadSet(), tc.WriteSet())
}
