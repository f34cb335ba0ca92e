package transaction

import (
	"slices"
	"testing"

	"ccsim/pkg/operation"
	"ccsim/pkg/primitives"
)

// TestTransactionStatus_String tests the string representation of transaction statuses
func TestTransactionStatus_String(t *testing.T) {
	tests := []struct {
		status   TransactionStatus
		expected string
	}{
		{TxActive, "ACTIVE"},
		{TxBlocked, "BLOCKED"},
		{TxValidating, "VALIDATING"},
		{TxCommitted, "COMMITTED"},
		{TxAborted, "ABORTED"},
		{TransactionStatus(999), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if result := tt.status.String(); result != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, result)
			}
		})
	}
}

func TestTransactionStatus_IsFinal(t *testing.T) {
	final := map[TransactionStatus]bool{
		TxActive:     false,
		TxBlocked:    false,
		TxValidating: false,
		TxCommitted:  true,
		TxAborted:    true,
	}
	for status, expected := range final {
		if status.IsFinal() != expected {
			t.Errorf("%s: expected IsFinal=%v", status, expected)
		}
	}
}

func TestNewTransactionContext(t *testing.T) {
	ctx := NewTransactionContext(7)

	if ctx.ID != 7 {
		t.Errorf("Expected transaction ID 7, got %v", ctx.ID)
	}
	if ctx.Status() != TxActive {
		t.Errorf("Expected status TxActive, got %v", ctx.Status())
	}
	if ctx.Phase() != Growing {
		t.Errorf("Expected Growing phase, got %v", ctx.Phase())
	}
	if ctx.Incarnation() != 0 {
		t.Errorf("Expected incarnation 0, got %d", ctx.Incarnation())
	}
	if len(ctx.ReadSet()) != 0 || len(ctx.WriteSet()) != 0 {
		t.Error("Expected empty read and write sets")
	}
}

func TestTransactionContext_BlockAndUnblock(t *testing.T) {
	ctx := NewTransactionContext(1)

	ctx.Block("A")
	if ctx.Status() != TxBlocked || ctx.BlockedOn() != "A" {
		t.Fatalf("Expected BLOCKED on A, got %s on %q", ctx.Status(), ctx.BlockedOn())
	}

	ctx.SetStatus(TxActive)
	if ctx.BlockedOn() != primitives.NoResource {
		t.Error("Leaving BLOCKED should clear blockedOn")
	}
}

func TestTransactionContext_SetsAreSortedAndDeduplicated(t *testing.T) {
	ctx := NewTransactionContext(1)
	ctx.RecordRead("C")
	ctx.RecordRead("A")
	ctx.RecordRead("C")
	ctx.RecordWrite("B")

	if got := ctx.ReadSet(); !slices.Equal(got, []primitives.ResourceID{"A", "C"}) {
		t.Errorf("Expected read set [A C], got %v", got)
	}
	if got := ctx.WriteSet(); !slices.Equal(got, []primitives.ResourceID{"B"}) {
		t.Errorf("Expected write set [B], got %v", got)
	}
	if !ctx.HasRead("A") || ctx.HasRead("B") {
		t.Error("HasRead mismatch")
	}
}

func TestTransactionContext_PendingQueue(t *testing.T) {
	ctx := NewTransactionContext(2)
	w := operation.New(operation.Write, 2, "A")
	c := operation.New(operation.Commit, 2, primitives.NoResource)

	ctx.Enqueue(c)
	ctx.PushFront(w)

	if ctx.PendingCount() != 2 {
		t.Fatalf("Expected 2 pending, got %d", ctx.PendingCount())
	}

	head, _ := ctx.PeekPending()
	if !head.SameAs(w) || ctx.PendingCount() != 2 {
		t.Error("PeekPending should return the head without removing it")
	}

	first, ok := ctx.NextPending()
	if !ok || !first.SameAs(w) {
		t.Errorf("Expected %s first, got %s", w, first)
	}
	second, _ := ctx.NextPending()
	if !second.SameAs(c) {
		t.Errorf("Expected %s second, got %s", c, second)
	}
	if _, ok := ctx.NextPending(); ok {
		t.Error("Queue should be empty")
	}
}

func TestTransactionContext_Restart(t *testing.T) {
	ctx := NewTransactionContext(3)
	r := operation.New(operation.Read, 3, "A")
	w := operation.New(operation.Write, 3, "B")
	ctx.AppendProgram(r)
	ctx.AppendProgram(w)
	ctx.RecordRead("A")
	ctx.EnterShrinking()
	ctx.SetStatus(TxAborted)

	ctx.Restart(10)

	if ctx.Status() != TxActive || ctx.Phase() != Growing {
		t.Errorf("Restart should reset to ACTIVE/GROWING, got %s/%s", ctx.Status(), ctx.Phase())
	}
	if ctx.Incarnation() != 1 {
		t.Errorf("Expected incarnation 1, got %d", ctx.Incarnation())
	}
	if ctx.StartTS() != 10 {
		t.Errorf("Expected start timestamp 10, got %d", ctx.StartTS())
	}
	if len(ctx.ReadSet()) != 0 {
		t.Error("Restart should clear the read set")
	}
	if ctx.PendingCount() != 2 {
		t.Errorf("Restart should queue the program, got %d pending", ctx.PendingCount())
	}
	if len(ctx.Program()) != 2 {
		t.Error("Restart should keep the program")
	}
}

func TestTransactionRegistry_Order(t *testing.T) {
	reg := NewTransactionRegistry()

	for _, tid := range []primitives.TransactionID{3, 1, 2, 1, 3} {
		reg.GetOrCreate(tid)
	}

	if reg.Count() != 3 {
		t.Fatalf("Expected 3 transactions, got %d", reg.Count())
	}
	ids := make([]primitives.TransactionID, 0, reg.Count())
	for _, ctx := range reg.All() {
		ids = append(ids, ctx.ID)
	}
	if !slices.Equal(ids, []primitives.TransactionID{3, 1, 2}) {
		t.Errorf("Expected first-appearance order [3 1 2], got %v", ids)
	}

	_, created := reg.GetOrCreate(1)
	if created {
		t.Error("GetOrCreate should not recreate an existing transaction")
	}
}

func TestTransactionRegistry_Filters(t *testing.T) {
	reg := NewTransactionRegistry()
	t1, _ := reg.GetOrCreate(1)
	t2, _ := reg.GetOrCreate(2)
	reg.GetOrCreate(3)

	t1.SetStatus(TxCommitted)
	t2.Block("A")

	if got := reg.WithStatus(TxBlocked); len(got) != 1 || got[0].ID != 2 {
		t.Errorf("Expected only T2 blocked, got %v", got)
	}
	if got := reg.Active(); len(got) != 1 || got[0].ID != 3 {
		t.Errorf("Expected only T3 active, got %v", got)
	}
	unfinished := reg.Unfinished()
	if len(unfinished) != 2 || unfinished[0].ID != 2 || unfinished[1].ID != 3 {
		t.Errorf("Expected T2 and T3 unfinished, got %v", unfinished)
	}

	if _, err := reg.Get(9); err == nil {
		t.Error("Expected error for unknown transaction")
	}
	if ctx, err := reg.Get(1); err != nil || ctx != t1 {
		t.Error("Get should return the registered context")
	}
}
