package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dberr "ccsim/pkg/error"
	"ccsim/pkg/primitives"
	"ccsim/pkg/schedule"
)

func simulate2PL(t *testing.T, input string, opts Options) *Result {
	t.Helper()
	res, err := Simulate(input, TwoPhaseLocking, opts)
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

func TestTwoPhase_Scenarios(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		want      string
		committed []primitives.TransactionID
	}{
		{
			name:      "write waits for reader to commit",
			input:     "R1(A)W2(A)C1;C2;",
			want:      "SL1(A);R1(A);UL1(A);C1;XL2(A);W2(A);UL2(A);C2",
			committed: []primitives.TransactionID{1, 2},
		},
		{
			name:      "upgrade waits for other reader",
			input:     "R1(A)R2(A)W1(A)C1;C2;",
			want:      "SL1(A);R1(A);SL2(A);R2(A);UL2(A);C2;UPL1(A);W1(A);UL1(A);C1",
			committed: []primitives.TransactionID{2, 1},
		},
		{
			name:      "no conflict",
			input:     "R1(A)R2(B)W1(A)W2(B)C1C2",
			want:      "SL1(A);R1(A);SL2(B);R2(B);UPL1(A);W1(A);UPL2(B);W2(B);UL1(A);C1;UL2(B);C2",
			committed: []primitives.TransactionID{1, 2},
		},
		{
			name:      "explicit locks and unlock",
			input:     "SL1(A)R1(A)UL1(A)W2(A)C1C2",
			want:      "SL1(A);R1(A);UL1(A);XL2(A);W2(A);C1;UL2(A);C2",
			committed: []primitives.TransactionID{1, 2},
		},
		{
			name:      "begin markers are kept",
			input:     "S1;R1(A);C1",
			want:      "S1;SL1(A);R1(A);UL1(A);C1",
			committed: []primitives.TransactionID{1},
		},
		{
			name:      "release order follows acquisition",
			input:     "W1(B)R1(A)C1",
			want:      "XL1(B);W1(B);SL1(A);R1(A);UL1(B);UL1(A);C1",
			committed: []primitives.TransactionID{1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := simulate2PL(t, tt.input, DefaultOptions())
			assert.Equal(t, tt.want, res.Output)
			assert.Equal(t, tt.committed, res.Committed)
			assert.True(t, res.Clean())
			assertLockDiscipline(t, res.Schedule)
		})
	}
}

func TestTwoPhase_DeadlockVictimRestarted(t *testing.T) {
	res := simulate2PL(t, "R1(A)R2(B)W1(B)W2(A)C1;C2", DefaultOptions())

	assert.Equal(t,
		"SL1(A);R1(A);XL1(B);W1(B);UL1(A);UL1(B);C1;SL2(B);R2(B);XL2(A);W2(A);UL2(B);UL2(A);C2",
		res.Output)
	assert.Equal(t, []primitives.TransactionID{1, 2}, res.Committed)

	require.Len(t, res.Aborts, 1)
	ev := res.Aborts[0]
	assert.Equal(t, primitives.TransactionID(2), ev.TxID)
	assert.Equal(t, 0, ev.Incarnation)
	assert.Equal(t, dberr.CodeDeadlockVictim, ev.Code)
	assert.True(t, ev.Restarted)
	assertLockDiscipline(t, res.Schedule)
}

func TestTwoPhase_DoubleUpgradeDeadlock(t *testing.T) {
	opts := DefaultOptions()
	opts.AbortedPolicy = schedule.FlagAborted

	res := simulate2PL(t, "R1(A)R2(A)W1(A)W2(A)C1;C2;", opts)

	assert.Equal(t,
		"SL1(A);R1(A);SL2(A);R2(A);UL2(A);A2;UPL1(A);W1(A);UL1(A);C1;SL2(A);R2(A);UPL2(A);W2(A);UL2(A);C2",
		res.Output)
	assert.Equal(t,
		"SL1(A);R1(A);UPL1(A);W1(A);UL1(A);C1;SL2(A);R2(A);UPL2(A);W2(A);UL2(A);C2",
		schedule.Format(res.Schedule, schedule.OmitAborted))

	require.Len(t, res.Aborts, 1)
	assert.Equal(t, primitives.TransactionID(2), res.Aborts[0].TxID, "the higher id is the victim")
	assertLockDiscipline(t, res.Schedule)
}

func TestTwoPhase_VictimNotRestarted(t *testing.T) {
	opts := DefaultOptions()
	opts.RestartAborted = false

	res := simulate2PL(t, "R1(A)R2(B)W1(B)W2(A)C1;C2", opts)

	assert.Equal(t, "SL1(A);R1(A);XL1(B);W1(B);UL1(A);UL1(B);C1", res.Output)
	assert.Equal(t, []primitives.TransactionID{1}, res.Committed)
	require.Len(t, res.Aborts, 1)
	assert.False(t, res.Aborts[0].Restarted)
	assert.Contains(t, res.Diagnostics, "C2 dropped: T2 was aborted")
}

const repeatedDeadlock = "R1(A)R3(B)R2(C)W1(B)W3(A)C1W2(A)W3(C)C2C3"

func TestTwoPhase_RepeatedDeadlockWithinBound(t *testing.T) {
	res := simulate2PL(t, repeatedDeadlock, DefaultOptions())

	require.Len(t, res.Aborts, 2)
	for _, ev := range res.Aborts {
		assert.Equal(t, primitives.TransactionID(3), ev.TxID)
		assert.True(t, ev.Restarted)
	}
	assert.Equal(t, 0, res.Aborts[0].Incarnation)
	assert.Equal(t, 1, res.Aborts[1].Incarnation)
	assert.Equal(t, []primitives.TransactionID{1, 2, 3}, res.Committed)
	assertLockDiscipline(t, res.Schedule)
}

func TestTwoPhase_DeadlockBoundExceeded(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxDeadlockRestarts = 1

	res, err := Simulate(repeatedDeadlock, TwoPhaseLocking, opts)

	assert.Nil(t, res)
	require.Error(t, err)
	assert.True(t, dberr.HasCode(err, dberr.CodeUnresolvableDeadlock))
	assert.True(t, dberr.IsFatal(err))
}

func TestTwoPhase_ProtocolViolation(t *testing.T) {
	res := simulate2PL(t, "XL1(A);UL1(A);XL1(B);C1;R2(A);C2", DefaultOptions())

	assert.Equal(t, "SL2(A);R2(A);UL2(A);C2", res.Output)
	assert.Equal(t, []primitives.TransactionID{2}, res.Committed)

	require.Len(t, res.Aborts, 1)
	assert.Equal(t, dberr.CodeProtocolViolation, res.Aborts[0].Code)
	assert.False(t, res.Aborts[0].Restarted, "protocol violations are never restarted")
	assert.Contains(t, res.Diagnostics, "C1 dropped: T1 was aborted")

	flagged := schedule.Format(res.Schedule, schedule.FlagAborted)
	assert.Equal(t, "XL1(A);UL1(A);A1;SL2(A);R2(A);UL2(A);C2", flagged)
}

func TestTwoPhase_UserAbort(t *testing.T) {
	res := simulate2PL(t, "W1(A)R2(A)A1;C2", DefaultOptions())

	assert.Equal(t, "SL2(A);R2(A);UL2(A);C2", res.Output)
	assert.Equal(t,
		"XL1(A);W1(A);UL1(A);A1;SL2(A);R2(A);UL2(A);C2",
		schedule.Format(res.Schedule, schedule.FlagAborted))
	require.Len(t, res.Aborts, 1)
	assert.Equal(t, dberr.CodeUserAbort, res.Aborts[0].Code)
}

func TestTwoPhase_UnlockWithoutLock(t *testing.T) {
	res := simulate2PL(t, "UL1(A)C1", DefaultOptions())

	assert.Equal(t, "C1", res.Output)
	assert.Contains(t, res.Diagnostics, "UL1(A) ignored: T1 holds no lock on A")
}

func TestTwoPhase_Incomplete(t *testing.T) {
	tests := []string{
		"R1(A)W2(A)C2",
		"R1(A)",
		"S1",
	}

	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			res, err := Simulate(input, TwoPhaseLocking, DefaultOptions())
			assert.Nil(t, res)
			assert.True(t, dberr.HasCode(err, dberr.CodeIncompleteSchedule), "got %v", err)
		})
	}
}
