package lock

import (
	"slices"

	"ccsim/pkg/primitives"
)

// LockGrantor holds the compatibility rules and performs grants.
type LockGrantor struct {
	lockTable *LockTable
	waitQueue *WaitQueue
	depGraph  *DependencyGraph
}

// NewLockGrantor creates a new lock grantor.
func NewLockGrantor(lockTable *LockTable, waitQueue *WaitQueue, depGraph *DependencyGraph) *LockGrantor {
	return &LockGrantor{
		lockTable: lockTable,
		waitQueue: waitQueue,
		depGraph:  depGraph,
	}
}

// CanGrantImmediately determines if a lock can be granted without waiting.
// For exclusive locks, no other transaction can hold any lock on the resource.
// For shared locks, no other transaction can hold an exclusive lock on the resource.
func (lg *LockGrantor) CanGrantImmediately(tid primitives.TransactionID, rid primitives.ResourceID, lockType LockType) bool {
	return len(lg.ConflictingHolders(tid, rid, lockType)) == 0
}

// CanUpgradeLock checks if tid is the sole holder of a shared lock on rid.
func (lg *LockGrantor) CanUpgradeLock(tid primitives.TransactionID, rid primitives.ResourceID) bool {
	if !lg.lockTable.HasLockType(tid, rid, SharedLock) {
		return false
	}

	return !slices.ContainsFunc(lg.lockTable.GetResourceLocks(rid), func(l *Lock) bool {
		return l.TID != tid
	})
}

// ConflictingHolders lists, ascending, the other transactions whose locks on
// rid are incompatible with the requested mode.
func (lg *LockGrantor) ConflictingHolders(tid primitives.TransactionID, rid primitives.ResourceID, lockType LockType) []primitives.TransactionID {
	holders := make([]primitives.TransactionID, 0)
	for _, lock := range lg.lockTable.GetResourceLocks(rid) {
		if lock.TID == tid {
			continue
		}
		if lockType == ExclusiveLock || lock.LockType == ExclusiveLock {
			holders = append(holders, lock.TID)
		}
	}
	slices.Sort(holders)
	return slices.Compact(holders)
}

// GrantLock grants a lock and clears the transaction's wait state.
func (lg *LockGrantor) GrantLock(tid primitives.TransactionID, rid primitives.ResourceID, lockType LockType) {
	lg.lockTable.AddLock(tid, rid, lockType)
	lg.clearWait(tid, rid)
}

// UpgradeLock turns tid's shared lock on rid into an exclusive one.
func (lg *LockGrantor) UpgradeLock(tid primitives.TransactionID, rid primitives.ResourceID) {
	lg.lockTable.UpgradeLock(tid, rid)
	lg.clearWait(tid, rid)
}

func (lg *LockGrantor) clearWait(tid primitives.TransactionID, rid primitives.ResourceID) {
	lg.waitQueue.RemoveRequest(tid, rid)
	lg.depGraph.RemoveOutgoing(tid)
}
