package lock

import (
	"slices"

	"ccsim/pkg/primitives"
)

// LockTable manages the mapping of resources to locks and transactions to their held locks.
type LockTable struct {
	resourceLocks    map[primitives.ResourceID][]*Lock
	transactionLocks map[primitives.TransactionID]map[primitives.ResourceID]LockType
	// acquired keeps each transaction's resources in grant order so releases
	// are emitted deterministically.
	acquired map[primitives.TransactionID][]primitives.ResourceID
	seq      int
}

func NewLockTable() *LockTable {
	return &LockTable{
		resourceLocks:    make(map[primitives.ResourceID][]*Lock),
		transactionLocks: make(map[primitives.TransactionID]map[primitives.ResourceID]LockType),
		acquired:         make(map[primitives.TransactionID][]primitives.ResourceID),
	}
}

// HasSufficientLock checks if the transaction already holds a lock at least as strong as requested.
func (lt *LockTable) HasSufficientLock(tid primitives.TransactionID, rid primitives.ResourceID, reqLockType LockType) bool {
	current, held := lt.LockTypeHeld(tid, rid)
	if !held {
		return false
	}
	return current == ExclusiveLock || reqLockType == SharedLock
}

// LockTypeHeld returns the mode tid holds on rid, if any.
func (lt *LockTable) LockTypeHeld(tid primitives.TransactionID, rid primitives.ResourceID) (LockType, bool) {
	txLocks, exists := lt.transactionLocks[tid]
	if !exists {
		return SharedLock, false
	}
	lockType, held := txLocks[rid]
	return lockType, held
}

func (lt *LockTable) HasLockType(tid primitives.TransactionID, rid primitives.ResourceID, lockType LockType) bool {
	current, held := lt.LockTypeHeld(tid, rid)
	return held && current == lockType
}

// GetResourceLocks returns the locks on rid in grant order.
func (lt *LockTable) GetResourceLocks(rid primitives.ResourceID) []*Lock {
	return lt.resourceLocks[rid]
}

// HeldBy returns the resources tid holds, in grant order.
func (lt *LockTable) HeldBy(tid primitives.TransactionID) []primitives.ResourceID {
	return slices.Clone(lt.acquired[tid])
}

func (lt *LockTable) AddLock(tid primitives.TransactionID, rid primitives.ResourceID, lockType LockType) {
	lt.seq++
	lt.resourceLocks[rid] = append(lt.resourceLocks[rid], NewLock(tid, lockType, lt.seq))

	if lt.transactionLocks[tid] == nil {
		lt.transactionLocks[tid] = make(map[primitives.ResourceID]LockType)
	}
	lt.transactionLocks[tid][rid] = lockType
	lt.acquired[tid] = append(lt.acquired[tid], rid)
}

func (lt *LockTable) IsResourceLocked(rid primitives.ResourceID) bool {
	return len(lt.resourceLocks[rid]) > 0
}

func (lt *LockTable) UpgradeLock(tid primitives.TransactionID, rid primitives.ResourceID) {
	for _, lock := range lt.resourceLocks[rid] {
		if lock.TID == tid {
			lock.LockType = ExclusiveLock
			break
		}
	}

	lt.transactionLocks[tid][rid] = ExclusiveLock
}

// ReleaseAllLocks drops every lock tid holds and returns the freed resources in grant order.
func (lt *LockTable) ReleaseAllLocks(tid primitives.TransactionID) []primitives.ResourceID {
	released := lt.HeldBy(tid)
	for _, rid := range released {
		lt.removeFromResource(tid, rid)
	}

	delete(lt.transactionLocks, tid)
	delete(lt.acquired, tid)
	return released
}

// ReleaseLock drops tid's lock on rid. It reports whether a lock was held.
func (lt *LockTable) ReleaseLock(tid primitives.TransactionID, rid primitives.ResourceID) bool {
	if _, held := lt.LockTypeHeld(tid, rid); !held {
		return false
	}

	lt.removeFromResource(tid, rid)

	txLocks := lt.transactionLocks[tid]
	delete(txLocks, rid)
	if len(txLocks) == 0 {
		delete(lt.transactionLocks, tid)
	}

	remaining := slices.DeleteFunc(slices.Clone(lt.acquired[tid]), func(r primitives.ResourceID) bool {
		return r == rid
	})
	updateOrDelete(lt.acquired, tid, remaining)
	return true
}

func (lt *LockTable) removeFromResource(tid primitives.TransactionID, rid primitives.ResourceID) {
	locks := slices.DeleteFunc(slices.Clone(lt.resourceLocks[rid]), func(l *Lock) bool {
		return l.TID == tid
	})
	updateOrDelete(lt.resourceLocks, rid, locks)
}
