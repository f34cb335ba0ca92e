package operation

import (
	"fmt"

	"ccsim/pkg/primitives"
)

// Kind is the closed set of operation codes understood by the simulator.
type Kind int

const (
	Read Kind = iota
	Write
	Commit
	Abort
	Begin
	SharedLock
	ExclusiveLock
	UpgradeLock
	Unlock
)

var codes = [...]string{
	Read:          "R",
	Write:         "W",
	Commit:        "C",
	Abort:         "A",
	Begin:         "S",
	SharedLock:    "SL",
	ExclusiveLock: "XL",
	UpgradeLock:   "UPL",
	Unlock:        "UL",
}

var byCode = func() map[string]Kind {
	m := make(map[string]Kind, len(codes))
	for k, c := range codes {
		m[c] = Kind(k)
	}
	return m
}()

// KindFromCode maps an operation code such as "SL" to its Kind.
func KindFromCode(code string) (Kind, bool) {
	k, ok := byCode[code]
	return k, ok
}

// String returns the wire code of the kind.
func (k Kind) String() string {
	if k < 0 || int(k) >= len(codes) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return codes[k]
}

// IsTerminal reports whether the kind ends a transaction.
func (k Kind) IsTerminal() bool {
	return k == Commit || k == Abort
}

// IsLock reports whether the kind acquires a lock.
func (k Kind) IsLock() bool {
	return k == SharedLock || k == ExclusiveLock || k == UpgradeLock
}

// NeedsResource reports whether the grammar requires a parenthesized resource.
func (k Kind) NeedsResource() bool {
	switch k {
	case Commit, Abort, Begin:
		return false
	default:
		return true
	}
}

// Operation is one unit of an input sequence or of a produced schedule.
type Operation struct {
	Kind     Kind
	TxID     primitives.TransactionID
	Resource primitives.ResourceID
	// Index is the position in the original input. Operations synthesized by
	// a scheduler carry the index of the input operation that caused them.
	Index int
}

// New builds an operation without a sequence index.
func New(kind Kind, tid primitives.TransactionID, resource primitives.ResourceID) Operation {
	return Operation{Kind: kind, TxID: tid, Resource: resource}
}

// String renders the operation in the wire grammar, e.g. "R1(A)" or "C2".
func (o Operation) String() string {
	if o.Resource == primitives.NoResource {
		return fmt.Sprintf("%s%d", o.Kind, int(o.TxID))
	}
	return fmt.Sprintf("%s%d(%s)", o.Kind, int(o.TxID), o.Resource)
}

// SameAs compares kind, transaction and resource, ignoring the index.
func (o Operation) SameAs(other Operation) bool {
	return o.Kind == other.Kind && o.TxID == other.TxID && o.Resource == other.Resource
}
