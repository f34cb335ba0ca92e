package lock

import (
	"slices"
	"testing"

	"ccsim/pkg/primitives"
)

func TestLockTableAddAndQuery(t *testing.T) {
	lt := NewLockTable()

	lt.AddLock(1, "A", SharedLock)
	lt.AddLock(2, "A", SharedLock)
	lt.AddLock(1, "B", ExclusiveLock)

	if !lt.IsResourceLocked("A") {
		t.Error("A should be locked")
	}
	if got := len(lt.GetResourceLocks("A")); got != 2 {
		t.Errorf("Expected 2 locks on A, got %d", got)
	}
	if !lt.HasLockType(1, "B", ExclusiveLock) {
		t.Error("T1 should hold exclusive lock on B")
	}
	if !slices.Equal(lt.HeldBy(1), []primitives.ResourceID{"A", "B"}) {
		t.Errorf("Expected grant order [A B], got %v", lt.HeldBy(1))
	}

	locks := lt.GetResourceLocks("A")
	if locks[0].GrantSeq >= locks[1].GrantSeq {
		t.Error("GrantSeq should increase with each grant")
	}
}

func TestHasSufficientLock(t *testing.T) {
	lt := NewLockTable()
	lt.AddLock(1, "A", SharedLock)
	lt.AddLock(1, "B", ExclusiveLock)

	tests := []struct {
		name string
		tid  primitives.TransactionID
		rid  primitives.ResourceID
		req  LockType
		want bool
	}{
		{"shared covers shared", 1, "A", SharedLock, true},
		{"shared does not cover exclusive", 1, "A", ExclusiveLock, false},
		{"exclusive covers shared", 1, "B", SharedLock, true},
		{"exclusive covers exclusive", 1, "B", ExclusiveLock, true},
		{"nothing held", 2, "A", SharedLock, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := lt.HasSufficientLock(tt.tid, tt.rid, tt.req); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestLockTableUpgrade(t *testing.T) {
	lt := NewLockTable()
	lt.AddLock(1, "A", SharedLock)
	lt.UpgradeLock(1, "A")

	if !lt.HasLockType(1, "A", ExclusiveLock) {
		t.Error("Lock should be exclusive after upgrade")
	}
	if lt.GetResourceLocks("A")[0].LockType != ExclusiveLock {
		t.Error("Resource index should reflect the upgrade")
	}
	if len(lt.HeldBy(1)) != 1 {
		t.Error("Upgrade should not duplicate the resource")
	}
}

func TestLockTableRelease(t *testing.T) {
	lt := NewLockTable()
	lt.AddLock(1, "A", SharedLock)
	lt.AddLock(1, "B", ExclusiveLock)
	lt.AddLock(1, "C", SharedLock)
	lt.AddLock(2, "A", SharedLock)

	if !lt.ReleaseLock(1, "B") {
		t.Fatal("ReleaseLock should report a held lock")
	}
	if lt.ReleaseLock(1, "B") {
		t.Error("Second release should report nothing held")
	}
	if lt.IsResourceLocked("B") {
		t.Error("B should be free")
	}

	released := lt.ReleaseAllLocks(1)
	if !slices.Equal(released, []primitives.ResourceID{"A", "C"}) {
		t.Errorf("Expected [A C], got %v", released)
	}
	if _, held := lt.LockTypeHeld(1, "A"); held {
		t.Error("T1 should hold nothing")
	}
	if got := lt.GetResourceLocks("A"); len(got) != 1 || got[0].TID != 2 {
		t.Error("T2's lock on A should survive")
	}
	if again := lt.ReleaseAllLocks(1); len(again) != 0 {
		t.Error("Releasing twice should free nothing")
	}
}
