package transaction

// TransactionStatus represents the current state of a simulated transaction
type TransactionStatus int

const (
	TxActive TransactionStatus = iota
	TxBlocked
	TxValidating
	TxCommitted
	TxAborted
)

func (ts TransactionStatus) String() string {
	switch ts {
	case TxActive:
		return "ACTIVE"
	case TxBlocked:
		return "BLOCKED"
	case TxValidating:
		return "VALIDATING"
	case TxCommitted:
		return "COMMITTED"
	case TxAborted:
		return "ABORTED"
	default:
		return "UNKNOWN"
	}
}

// IsFinal reports whether the status is Committed or Aborted.
func (ts TransactionStatus) IsFinal() bool {
	return ts == TxCommitted || ts == TxAborted
}

// LockPhase is the two-phase locking phase of a transaction.
type LockPhase int

const (
	// Growing transactions may acquire locks.
	Growing LockPhase = iota
	// Shrinking transactions have released a lock and may not acquire more.
	Shrinking
)

func (p LockPhase) String() string {
	if p == Shrinking {
		return "SHRINKING"
	}
	return "GROWING"
}
