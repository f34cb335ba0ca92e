package occ

import (
	"bytes"
	"log/slog"
	"slices"
	"strings"
	"testing"

	"ccsim/pkg/concurrency/transaction"
	dberr "ccsim/pkg/error"
	"ccsim/pkg/primitives"
)

func TestValidateWithoutConcurrentCommitters(t *testing.T) {
	v := NewValidator()
	t1 := transaction.NewTransactionContext(1)

	v.Begin(t1, 1)
	v.Read(t1, "A")
	v.Write(t1, "B")

	if err := v.Validate(t1, 3); err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	if t1.Status() != transaction.TxCommitted {
		t.Errorf("Expected COMMITTED, got %v", t1.Status())
	}

	b, _ := v.Resources().Get("B")
	if b.LastCommittedWriter != 1 || b.Version != 1 {
		t.Errorf("Write to B not applied: %+v", b)
	}
	a, _ := v.Resources().Get("A")
	if a.Version != 0 {
		t.Error("Reads must not change resource versions")
	}
}

func TestValidateConflictWithLaterCommitter(t *testing.T) {
	v := NewValidator()
	t1 := transaction.NewTransactionContext(1)
	t2 := transaction.NewTransactionContext(2)

	// R1(A) R2(B) W1(B) W2(A) C1 C2
	v.Begin(t1, 1)
	v.Read(t1, "A")
	v.Begin(t2, 2)
	v.Read(t2, "B")
	v.Write(t1, "B")
	v.Write(t2, "A")

	if err := v.Validate(t1, 5); err != nil {
		t.Fatalf("T1 should commit: %v", err)
	}

	err := v.Validate(t2, 6)
	if !dberr.HasCode(err, dberr.CodeConflictAbort) {
		t.Fatalf("Expected CONFLICT_ABORT, got %v", err)
	}
	if t2.Status() != transaction.TxAborted {
		t.Errorf("Expected ABORTED, got %v", t2.Status())
	}

	a, _ := v.Resources().Get("A")
	if a.Version != 0 {
		t.Error("Aborted writes must be discarded")
	}
	if !slices.Equal(v.CommitOrder(), []primitives.TransactionID{1}) {
		t.Errorf("Expected commit order [1], got %v", v.CommitOrder())
	}
}

func TestValidateIgnoresEarlierCommitters(t *testing.T) {
	v := NewValidator()
	t1 := transaction.NewTransactionContext(1)
	t2 := transaction.NewTransactionContext(2)

	v.Begin(t1, 1)
	v.Write(t1, "A")
	if err := v.Validate(t1, 2); err != nil {
		t.Fatal(err)
	}

	// T2 starts after T1 committed, so T1's write is already visible to it.
	v.Begin(t2, 3)
	v.Read(t2, "A")
	if err := v.Validate(t2, 4); err != nil {
		t.Errorf("T2 should not conflict with an earlier committer: %v", err)
	}
}

func TestBlindWritesDoNotConflict(t *testing.T) {
	v := NewValidator()
	t1 := transaction.NewTransactionContext(1)
	t2 := transaction.NewTransactionContext(2)

	v.Begin(t1, 1)
	v.Begin(t2, 2)
	v.Write(t1, "A")
	v.Write(t2, "A")

	if err := v.Validate(t1, 3); err != nil {
		t.Fatal(err)
	}
	if err := v.Validate(t2, 4); err != nil {
		t.Errorf("Write-write overlap is not a backward validation conflict: %v", err)
	}

	a, _ := v.Resources().Get("A")
	if a.LastCommittedWriter != 2 || a.Version != 2 {
		t.Errorf("Expected T2 as last writer at version 2, got %+v", a)
	}
}

func TestDiscard(t *testing.T) {
	v := NewValidator()
	t1 := transaction.NewTransactionContext(1)
	v.Begin(t1, 1)
	v.Write(t1, "A")
	v.Discard(t1)

	if t1.Status() != transaction.TxAborted {
		t.Errorf("Expected ABORTED, got %v", t1.Status())
	}
	if len(v.CommitOrder()) != 0 {
		t.Error("Discarded transaction must not commit")
	}
	r, ok := v.Resources().Get("A")
	if !ok {
		t.Fatal("Expected A to be known")
	}
	if r.Version != 0 || r.LastCommittedWriter != primitives.InvalidTransactionID {
		t.Errorf("Discarded write must not be applied, got %+v", r)
	}
}

func TestIntersect(t *testing.T) {
	got := intersect(
		[]primitives.ResourceID{"A", "C", "D"},
		[]primitives.ResourceID{"B", "C", "D", "E"},
	)
	if !slices.Equal(got, []primitives.ResourceID{"C", "D"}) {
		t.Errorf("Expected [C D], got %v", got)
	}
}

func TestValidatorLogsThroughRunLogger(t *testing.T) {
	var buf bytes.Buffer
	runLog := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})).
		With("run_id", "r1", "algorithm", "occ")
	v := NewValidator().WithLogger(runLog)

	t1 := transaction.NewTransactionContext(1)
	t2 := transaction.NewTransactionContext(2)
	v.Begin(t1, 1)
	v.Begin(t2, 2)
	v.Read(t1, "A")
	v.Write(t2, "A")

	if err := v.Validate(t2, 3); err != nil {
		t.Fatalf("Expected T2 to commit, got %v", err)
	}
	if err := v.Validate(t1, 4); err == nil {
		t.Fatal("Expected T1 to fail validation")
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 log lines, got %d: %q", len(lines), buf.String())
	}
	for _, line := range lines {
		if !strings.Contains(line, "run_id=r1") || !strings.Contains(line, "algorithm=occ") {
			t.Errorf("Expected run attributes in %q", line)
		}
	}
	if !strings.Contains(lines[1], "validation failed") || !strings.Contains(lines[1], "tx_id=1") {
		t.Errorf("Expected failed validation of T1, got %q", lines[1])
	}
}
