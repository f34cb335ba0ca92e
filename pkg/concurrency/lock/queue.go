package lock

import (
	"slices"

	"ccsim/pkg/primitives"
)

// WaitQueue keeps pending lock requests in two indexes:
//
//   - resourceWaitQueue: per-resource FIFO of requests. The order is the order
//     in which transactions blocked, which is also the order the scheduler
//     retries them in.
//   - transactionWaiting: reverse index from transaction to the resources it
//     waits for, used for cleanup on commit, abort and deadlock resolution.
type WaitQueue struct {
	resourceWaitQueue  map[primitives.ResourceID][]*LockRequest
	transactionWaiting map[primitives.TransactionID][]primitives.ResourceID
	seq                int
}

func NewWaitQueue() *WaitQueue {
	return &WaitQueue{
		resourceWaitQueue:  make(map[primitives.ResourceID][]*LockRequest),
		transactionWaiting: make(map[primitives.TransactionID][]primitives.ResourceID),
	}
}

// Add enqueues a request. A transaction already waiting on rid keeps its
// original place; Add then only reports false.
func (wq *WaitQueue) Add(tid primitives.TransactionID, rid primitives.ResourceID, lockType LockType) bool {
	if wq.alreadyInResourceQueue(tid, rid) {
		return false
	}

	wq.seq++
	wq.resourceWaitQueue[rid] = append(wq.resourceWaitQueue[rid], NewLockRequest(tid, lockType, wq.seq))
	wq.transactionWaiting[tid] = append(wq.transactionWaiting[tid], rid)
	return true
}

// RemoveRequest removes the (tid, rid) request from both indexes.
func (wq *WaitQueue) RemoveRequest(tid primitives.TransactionID, rid primitives.ResourceID) {
	wq.removeFromResourceQueue(tid, rid)
	wq.removeFromTransactionQueue(tid, rid)
}

// RemoveAllForTransaction drops every request tid has parked.
func (wq *WaitQueue) RemoveAllForTransaction(tid primitives.TransactionID) {
	for _, rid := range wq.GetResourcesRequestedFor(tid) {
		wq.RemoveRequest(tid, rid)
	}
}

// GetRequests returns the FIFO of requests waiting for rid.
func (wq *WaitQueue) GetRequests(rid primitives.ResourceID) []*LockRequest {
	return slices.Clone(wq.resourceWaitQueue[rid])
}

// GetResourcesRequestedFor returns the resources tid is waiting to lock.
func (wq *WaitQueue) GetResourcesRequestedFor(tid primitives.TransactionID) []primitives.ResourceID {
	return slices.Clone(wq.transactionWaiting[tid])
}

// IsWaiting reports whether tid has any parked request.
func (wq *WaitQueue) IsWaiting(tid primitives.TransactionID) bool {
	return len(wq.transactionWaiting[tid]) > 0
}

func (wq *WaitQueue) removeFromResourceQueue(tid primitives.TransactionID, rid primitives.ResourceID) {
	requestQueue, exists := wq.resourceWaitQueue[rid]
	if !exists {
		return
	}

	newQueue := slices.DeleteFunc(slices.Clone(requestQueue), func(req *LockRequest) bool {
		return req.TID == tid
	})
	updateOrDelete(wq.resourceWaitQueue, rid, newQueue)
}

func (wq *WaitQueue) removeFromTransactionQueue(tid primitives.TransactionID, rid primitives.ResourceID) {
	resources, exists := wq.transactionWaiting[tid]
	if !exists {
		return
	}

	updated := slices.DeleteFunc(slices.Clone(resources), func(r primitives.ResourceID) bool {
		return r == rid
	})
	updateOrDelete(wq.transactionWaiting, tid, updated)
}

func (wq *WaitQueue) alreadyInResourceQueue(tid primitives.TransactionID, rid primitives.ResourceID) bool {
	return slices.ContainsFunc(wq.resourceWaitQueue[rid], func(req *LockRequest) bool {
		return req.TID == tid
	})
}
