package error

import (
	"errors"
	"fmt"
)

// Error codes surfaced to callers. The first five are the simulator's error
// kinds; the rest describe non-fatal abort reasons.
const (
	CodeParse                = "PARSE_ERROR"
	CodeProtocolViolation    = "PROTOCOL_VIOLATION"
	CodeConflictAbort        = "CONFLICT_ABORT"
	CodeUnresolvableDeadlock = "UNRESOLVABLE_DEADLOCK"
	CodeIncompleteSchedule   = "INCOMPLETE_SCHEDULE"

	CodeDeadlockVictim = "DEADLOCK_VICTIM"
	CodeUserAbort      = "USER_ABORT"
	CodeInvalidConfig  = "INVALID_CONFIG"
	CodeGridTooLarge   = "GRID_TOO_LARGE"
)

// NewParseError reports a token that does not match the operation grammar.
func NewParseError(pos int, format string, args ...any) *DBError {
	return New(ErrCategoryUser, CodeParse, "malformed operation sequence").
		WithDetail("%s at position %d", fmt.Sprintf(format, args...), pos).
		At("Parse", "Parser")
}

// NewProtocolViolationError reports a lock request made after the
// transaction released a lock.
func NewProtocolViolationError(txn fmt.Stringer, resource string) *DBError {
	return New(ErrCategoryConcurrency, CodeProtocolViolation, "lock requested in shrinking phase").
		WithDetail("%s requested a lock on %s after releasing a lock", txn, resource).
		WithHint("move explicit unlocks after the transaction's last lock acquisition").
		At("AcquireLock", "LockManager")
}

// NewConflictAbortError reports a failed backward validation.
func NewConflictAbortError(txn, against fmt.Stringer, resources []string) *DBError {
	return New(ErrCategoryConcurrency, CodeConflictAbort, "validation failed").
		WithDetail("%s read %v written by %s, which committed after %s started", txn, resources, against, txn).
		At("Validate", "Validator")
}

// NewDeadlockVictimError reports the transaction chosen to break a wait-for cycle.
func NewDeadlockVictimError(victim fmt.Stringer, cycle []string) *DBError {
	return New(ErrCategoryConcurrency, CodeDeadlockVictim, "deadlock detected").
		WithDetail("aborted %s to break cycle %v", victim, cycle).
		At("DetectDeadlock", "LockManager")
}

// NewUnresolvableDeadlockError reports that deadlock resolution exceeded its bound.
func NewUnresolvableDeadlockError(restarts, bound int) *DBError {
	return New(ErrCategoryConcurrency, CodeUnresolvableDeadlock, "deadlock could not be resolved").
		WithDetail("%d deadlock restarts exceeded the limit of %d", restarts, bound).
		WithHint("reorder lock acquisitions so transactions request resources in the same order").
		At("Run", "Scheduler")
}

// NewIncompleteScheduleError reports transactions left without a terminal operation.
func NewIncompleteScheduleError(txns []string) *DBError {
	return New(ErrCategoryUser, CodeIncompleteSchedule, "transactions did not finish").
		WithDetail("%v never reached commit or abort", txns).
		WithHint("terminate every transaction with C<id> or A<id>").
		At("Run", "Scheduler")
}

// NewUserAbortError records an abort requested by the input itself.
func NewUserAbortError(txn fmt.Stringer) *DBError {
	return New(ErrCategoryUser, CodeUserAbort, "transaction aborted").
		WithDetail("%s issued an abort", txn).
		At("Abort", "Scheduler")
}

// NewGridTooLargeError reports a schedule too large to lay out as a grid.
func NewGridTooLargeError(rows, columns, limit int) *DBError {
	return New(ErrCategoryUser, CodeGridTooLarge, "schedule too large for grid view").
		WithDetail("%d operations across %d transactions exceed %d cells", rows, columns, limit).
		At("BuildGrid", "Schedule")
}

// HasCode reports whether err, or any error it wraps, is a DBError with the given code.
func HasCode(err error, code string) bool {
	var dbErr *DBError
	if !errors.As(err, &dbErr) {
		return false
	}
	return dbErr.Code == code
}

// CodeOf returns the code of the first DBError in err's chain, or "".
func CodeOf(err error) string {
	var dbErr *DBError
	if errors.As(err, &dbErr) {
		return dbErr.Code
	}
	return ""
}

// IsFatal reports whether err ends a simulation run.
func IsFatal(err error) bool {
	switch CodeOf(err) {
	case CodeParse, CodeUnresolvableDeadlock, CodeIncompleteSchedule, CodeInvalidConfig:
		return true
	}
	return false
}
