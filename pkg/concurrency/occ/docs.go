// Package occ implements Optimistic Concurrency Control with serial backward
// validation.
//
// A transaction runs in three phases:
//
//   - Read: reads and writes only grow the transaction's read and write sets.
//     Writes are buffered and invisible to everyone else.
//   - Validation: at commit, the read set is compared with the write set of
//     every transaction that committed after this one started. Any overlap
//     means the transaction may have read a stale value and it aborts.
//   - Write: on success the buffered writes are applied to the [ResourceTable]
//     and the transaction joins the commit order.
//
// Validations happen one at a time in the order commits appear in the input,
// so the outcome of a run depends only on its input.
package occ
