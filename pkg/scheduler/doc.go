// Package scheduler runs a parsed operation sequence under Two-Phase Locking
// or Optimistic Concurrency Control and produces the executed schedule.
//
// A run is single-threaded and deterministic. Blocking is a transaction
// state, not a suspended goroutine; a blocked transaction's later operations
// wait in its pending queue and are retried after locks are released.
//
// # Two-Phase Locking
//
// Reads and writes take shared and exclusive locks implicitly. Each new grant
// appears in the schedule as an SL, XL or UPL token before the access, and
// commit or abort releases every lock as UL tokens in acquisition order:
//
//	R1(A)W2(A)C1;C2  =>  SL1(A);R1(A);UL1(A);C1;XL2(A);W2(A);UL2(A);C2
//
// After every block the wait-for graph is searched for a cycle; the highest
// transaction id in a cycle is aborted and, with Options.RestartAborted, its
// operations are replayed as a new incarnation once the other members of the
// cycle have finished. More restarts than the bound
// fail the run with UNRESOLVABLE_DEADLOCK. Requesting a lock after releasing
// one aborts the transaction with PROTOCOL_VIOLATION and is never restarted.
//
// # Optimistic Concurrency Control
//
// Operations execute in input order without locks; lock tokens are ignored.
// Commit validates the transaction against everything that committed after
// it started. A transaction failing validation is aborted with
// CONFLICT_ABORT and, with restart enabled, replayed after the input ends.
//
// # Failures
//
// A transaction left without commit or abort fails the run with
// INCOMPLETE_SCHEDULE. Fatal errors return no Result; local aborts are listed
// in Result.Aborts and Result.Diagnostics.
package scheduler
