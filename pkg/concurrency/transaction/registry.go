package transaction

import (
	"fmt"

	"ccsim/pkg/primitives"
)

// TransactionRegistry tracks every transaction seen in one run. Iteration
// follows first appearance in the input so results never depend on map order.
type TransactionRegistry struct {
	contexts map[primitives.TransactionID]*TransactionContext
	order    []primitives.TransactionID
}

// NewTransactionRegistry creates an empty registry.
func NewTransactionRegistry() *TransactionRegistry {
	return &TransactionRegistry{
		contexts: make(map[primitives.TransactionID]*TransactionContext),
		order:    make([]primitives.TransactionID, 0),
	}
}

// GetOrCreate returns the context for tid, creating it on first reference.
// The second result is true when the context was just created.
func (tr *TransactionRegistry) GetOrCreate(tid primitives.TransactionID) (*TransactionContext, bool) {
	if ctx, exists := tr.contexts[tid]; exists {
		return ctx, false
	}

	ctx := NewTransactionContext(tid)
	tr.contexts[tid] = ctx
	tr.order = append(tr.order, tid)
	return ctx, true
}

// Get retrieves a registered transaction.
func (tr *TransactionRegistry) Get(tid primitives.TransactionID) (*TransactionContext, error) {
	ctx, exists := tr.contexts[tid]
	if !exists {
		return nil, fmt.Errorf("transaction %s not found", tid)
	}
	return ctx, nil
}

// All returns every context in first-appearance order.
func (tr *TransactionRegistry) All() []*TransactionContext {
	all := make([]*TransactionContext, 0, len(tr.order))
	for _, tid := range tr.order {
		all = append(all, tr.contexts[tid])
	}
	return all
}

// WithStatus returns the contexts currently in the given status, in
// first-appearance order.
func (tr *TransactionRegistry) WithStatus(status TransactionStatus) []*TransactionContext {
	matched := make([]*TransactionContext, 0)
	for _, tid := range tr.order {
		if ctx := tr.contexts[tid]; ctx.Status() == status {
			matched = append(matched, ctx)
		}
	}
	return matched
}

// Active returns the transactions that can issue operations right now.
func (tr *TransactionRegistry) Active() []*TransactionContext {
	return tr.WithStatus(TxActive)
}

// Unfinished returns transactions that have not committed or aborted.
func (tr *TransactionRegistry) Unfinished() []*TransactionContext {
	unfinished := make([]*TransactionContext, 0)
	for _, tid := range tr.order {
		if ctx := tr.contexts[tid]; !ctx.IsFinished() {
			unfinished = append(unfinished, ctx)
		}
	}
	return unfinished
}

// Count returns the number of registered transactions.
func (tr *TransactionRegistry) Count() int {
	return len(tr.order)
}
