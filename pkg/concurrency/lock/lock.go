package lock

import (
	"ccsim/pkg/primitives"
)

type LockType int

const (
	SharedLock LockType = iota
	ExclusiveLock
)

func (lt LockType) String() string {
	if lt == ExclusiveLock {
		return "EXCLUSIVE"
	}
	return "SHARED"
}

// Lock is a granted lock. GrantSeq orders grants within a run and replaces
// wall-clock grant times, which would make schedules irreproducible.
type Lock struct {
	TID      primitives.TransactionID
	LockType LockType
	GrantSeq int
}

// LockRequest is a pending request parked in the wait queue.
type LockRequest struct {
	TID      primitives.TransactionID
	LockType LockType
	Seq      int
}

func NewLock(tid primitives.TransactionID, lockType LockType, seq int) *Lock {
	return &Lock{
		TID:      tid,
		LockType: lockType,
		GrantSeq: seq,
	}
}

func NewLockRequest(tid primitives.TransactionID, lockType LockType, seq int) *LockRequest {
	return &LockRequest{
		TID:      tid,
		LockType: lockType,
		Seq:      seq,
	}
}

// Outcome is the result of a lock acquisition attempt.
type Outcome int

const (
	// AlreadyHeld means the transaction held a sufficient lock; nothing changed.
	AlreadyHeld Outcome = iota
	// Granted means a new shared or exclusive lock was granted.
	Granted
	// Upgraded means a shared lock became exclusive.
	Upgraded
	// Blocked means the request waits behind conflicting holders.
	Blocked
)

func (o Outcome) String() string {
	switch o {
	case AlreadyHeld:
		return "ALREADY_HELD"
	case Granted:
		return "GRANTED"
	case Upgraded:
		return "UPGRADED"
	case Blocked:
		return "BLOCKED"
	default:
		return "UNKNOWN"
	}
}
