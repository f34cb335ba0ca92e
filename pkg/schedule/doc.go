// Package schedule holds the executed operation order of a simulation run and
// renders it back into the compact text grammar, e.g.
//
//	SL1(A);R1(A);UL1(A);C1;XL2(A);W2(A);UL2(A);C2
//
// Aborted work is either omitted or kept in place, depending on the
// [AbortedPolicy]. Only the omit policy guarantees that the rendered text
// parses back to the committed operations.
package schedule
