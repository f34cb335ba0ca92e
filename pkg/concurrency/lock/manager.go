package lock

import (
	"log/slog"
	"slices"

	dberr "ccsim/pkg/error"
	"ccsim/pkg/logging"
	"ccsim/pkg/primitives"
)

// LockManager is the two-phase locking façade used by the scheduler. It never
// blocks the caller: a request that cannot be granted is parked and reported
// as Blocked, and the scheduler decides when to retry it.
//
// A LockManager belongs to one simulation run and is not safe for concurrent use.
type LockManager struct {
	depGraph    *DependencyGraph
	waitQueue   *WaitQueue
	lockTable   *LockTable
	lockGrantor *LockGrantor
	shrinking   map[primitives.TransactionID]bool
	log         *slog.Logger
}

// Deadlock describes a wait-for cycle and the transaction chosen to break it.
type Deadlock struct {
	// Members are the cycle's transactions, ascending.
	Members []primitives.TransactionID
	// Victim is the youngest member, i.e. the highest id.
	Victim primitives.TransactionID
}

// NewLockManager creates and initializes a new LockManager instance.
func NewLockManager() *LockManager {
	lockTable := NewLockTable()
	waitQueue := NewWaitQueue()
	depGraph := NewDependencyGraph()

	return &LockManager{
		depGraph:    depGraph,
		waitQueue:   waitQueue,
		lockTable:   lockTable,
		lockGrantor: NewLockGrantor(lockTable, waitQueue, depGraph),
		shrinking:   make(map[primitives.TransactionID]bool),
		log:         logging.WithComponent("lock_manager"),
	}
}

// WithLogger routes lock records through log, typically a run-scoped logger
// carrying run_id and algorithm.
func (lm *LockManager) WithLogger(log *slog.Logger) *LockManager {
	lm.log = log.With("component", "lock_manager")
	return lm
}

// Acquire requests a lock on rid for tid.
//
// The order of checks is:
//
//  1. A sufficient lock already held returns AlreadyHeld, even when shrinking.
//  2. A shrinking transaction gets a PROTOCOL_VIOLATION error.
//  3. An exclusive request by the sole shared holder is an upgrade.
//  4. A compatible request is granted.
//  5. Anything else is parked and wait-for edges to every conflicting holder
//     replace the transaction's previous edges.
func (lm *LockManager) Acquire(tid primitives.TransactionID, rid primitives.ResourceID, lockType LockType) (Outcome, error) {
	if lm.lockTable.HasSufficientLock(tid, rid, lockType) {
		return AlreadyHeld, nil
	}

	if lm.shrinking[tid] {
		return Blocked, dberr.NewProtocolViolationError(tid, string(rid))
	}

	if lockType == ExclusiveLock && lm.lockTable.HasLockType(tid, rid, SharedLock) {
		if lm.lockGrantor.CanUpgradeLock(tid, rid) {
			lm.lockGrantor.UpgradeLock(tid, rid)
			lm.log.Debug("lock upgraded", "tx_id", int(tid), "resource", string(rid))
			return Upgraded, nil
		}
	} else if lm.lockGrantor.CanGrantImmediately(tid, rid, lockType) {
		lm.lockGrantor.GrantLock(tid, rid, lockType)
		lm.log.Debug("lock granted", "tx_id", int(tid), "resource", string(rid), "mode", lockType)
		return Granted, nil
	}

	lm.block(tid, rid, lockType)
	lm.log.Debug("lock request blocked", "tx_id", int(tid), "resource", string(rid),
		"mode", lockType, "waits_for", lm.depGraph.WaitsFor(tid))
	return Blocked, nil
}

func (lm *LockManager) block(tid primitives.TransactionID, rid primitives.ResourceID, lockType LockType) {
	lm.waitQueue.Add(tid, rid, lockType)
	lm.depGraph.RemoveOutgoing(tid)
	for _, holder := range lm.lockGrantor.ConflictingHolders(tid, rid, lockType) {
		lm.depGraph.AddEdge(tid, holder)
	}
}

// Release drops tid's lock on rid and moves tid into its shrinking phase.
// It reports whether a lock was actually held.
func (lm *LockManager) Release(tid primitives.TransactionID, rid primitives.ResourceID) bool {
	if !lm.lockTable.ReleaseLock(tid, rid) {
		return false
	}
	lm.shrinking[tid] = true
	return true
}

// ReleaseAll drops every lock and pending request of tid and removes it from
// the wait-for graph. Resources are returned in the order they were granted.
func (lm *LockManager) ReleaseAll(tid primitives.TransactionID) []primitives.ResourceID {
	released := lm.lockTable.ReleaseAllLocks(tid)
	lm.waitQueue.RemoveAllForTransaction(tid)
	lm.depGraph.RemoveTransaction(tid)
	lm.shrinking[tid] = true
	return released
}

// CancelWait withdraws tid's pending request so it can be retried.
func (lm *LockManager) CancelWait(tid primitives.TransactionID) {
	lm.waitQueue.RemoveAllForTransaction(tid)
	lm.depGraph.RemoveOutgoing(tid)
}

// Reset forgets tid's phase so a restarted incarnation starts growing again.
// The transaction must not hold locks.
func (lm *LockManager) Reset(tid primitives.TransactionID) {
	delete(lm.shrinking, tid)
}

// FindDeadlock checks the wait-for graph for a cycle. The victim is the cycle
// member with the highest id.
func (lm *LockManager) FindDeadlock() (Deadlock, bool) {
	cycle := lm.depGraph.FindCycle()
	if len(cycle) == 0 {
		return Deadlock{}, false
	}

	slices.Sort(cycle)
	return Deadlock{
		Members: cycle,
		Victim:  cycle[len(cycle)-1],
	}, true
}

// IsShrinking reports whether tid has released a lock.
func (lm *LockManager) IsShrinking(tid primitives.TransactionID) bool {
	return lm.shrinking[tid]
}

// Holders returns a snapshot of the locks on rid in grant order.
func (lm *LockManager) Holders(rid primitives.ResourceID) []Lock {
	locks := lm.lockTable.GetResourceLocks(rid)
	snapshot := make([]Lock, len(locks))
	for i, l := range locks {
		snapshot[i] = *l
	}
	return snapshot
}

// HeldBy returns the resources tid holds, in grant order.
func (lm *LockManager) HeldBy(tid primitives.TransactionID) []primitives.ResourceID {
	return lm.lockTable.HeldBy(tid)
}

// LockTypeHeld returns tid's mode on rid, if it holds one.
func (lm *LockManager) LockTypeHeld(tid primitives.TransactionID, rid primitives.ResourceID) (LockType, bool) {
	return lm.lockTable.LockTypeHeld(tid, rid)
}

// Waiters returns the requests parked on rid in FIFO order.
func (lm *LockManager) Waiters(rid primitives.ResourceID) []*LockRequest {
	return lm.waitQueue.GetRequests(rid)
}

// WaitsFor returns the transactions tid currently waits on.
func (lm *LockManager) WaitsFor(tid primitives.TransactionID) []primitives.TransactionID {
	return lm.depGraph.WaitsFor(tid)
}

// IsResourceLocked reports whether any transaction holds a lock on rid.
func (lm *LockManager) IsResourceLocked(rid primitives.ResourceID) bool {
	return lm.lockTable.IsResourceLocked(rid)
}
