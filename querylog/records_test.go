package querylog_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"querylog-demo/internal/testutil"
	"querylog-demo/querylog"
)

func TestQuery_NegativeElapsedIsNotCorrected(t *testing.T) {
	t.Parallel()

	clock := testutil.NewClock()
	l := querylog.New(querylog.WithClock(clock.Now))

	// A non-monotonic clock may step backwards between start and end.
	l.QueryStart("SELECT 1")
	clock.Advance(-2 * time.Millisecond)
	l.QueryEnd("SELECT 1")

	entries := l.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, -2*time.Millisecond, entries[0].TimeElapsed())
}

func TestTransaction_OutcomeIsExclusive(t *testing.T) {
	t.Parallel()

	clock := testutil.NewClock()
	l := querylog.New(querylog.WithClock(clock.Now))

	l.TxnBegin()
	l.TxnCommit()
	l.TxnBegin()
	l.TxnRollback()

	entries := l.Entries()
	require.Len(t, entries, 2)

	committed := entries[0].(*querylog.Transaction)
	assert.True(t, committed.Committed())
	assert.False(t, committed.RolledBack())

	rolled := entries[1].(*querylog.Transaction)
	assert.False(t, rolled.Committed())
	assert.True(t, rolled.RolledBack())
}

func TestTransaction_EmptyHasZeroCost(t *testing.T) {
	t.Parallel()

	clock := testutil.NewClock()
	l := querylog.New(querylog.WithClock(clock.Now))

	l.TxnBegin()
	clock.Advance(time.Hour) // wall time alone never counts
	l.TxnCommit()

	entries := l.Entries()
	require.Len(t, entries, 1)
	assert.Zero(t, entries[0].TimeElapsed())
	assert.Zero(t, entries[0].Count())
	assert.Empty(t, entries[0].Queries())
}
