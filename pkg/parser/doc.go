// Package parser turns operation sequences into typed operations.
//
// The grammar is a repetition of
//
//	<code><digits>[(<resource>)][;]
//
// where <code> is one of R, W, C, A, S, SL, XL, UPL or UL, <digits> is a
// positive transaction id, and <resource> is a name made of letters, digits
// and underscores. Whitespace between tokens is ignored.
//
//	ops, err := parser.Parse("R1(A)W2(A)C1;C2;")
//
// Besides the token grammar, Parse rejects sequences in which a transaction
// keeps issuing operations after its commit or abort.
package parser
