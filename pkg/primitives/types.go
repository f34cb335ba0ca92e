package primitives

import "fmt"

// TransactionID identifies a transaction within a single simulation run.
// Ids come straight from the input sequence, so they are only unique per run.
type TransactionID int

// InvalidTransactionID is never produced by the parser; ids start at 1.
const InvalidTransactionID TransactionID = 0

func (tid TransactionID) String() string {
	return fmt.Sprintf("T%d", int(tid))
}

// IsValid reports whether the id is positive.
func (tid TransactionID) IsValid() bool {
	return tid > InvalidTransactionID
}

// ResourceID names a data item (a table or a row, depending on the exercise).
type ResourceID string

// NoResource is used by operations that do not touch a data item.
const NoResource ResourceID = ""

func (r ResourceID) String() string {
	return string(r)
}

// Timestamp is a logical clock value used by the optimistic validator.
type Timestamp uint64

// InfiniteTimestamp marks a phase that has not happened yet.
const InfiniteTimestamp Timestamp = ^Timestamp(0)
