package workload_test

import (
	"context"
	"database/sql"
	"log/slog"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"querylog-demo/internal/workload"
	"querylog-demo/querylog"
)

const testWorkload = `
name: runner-test
setup:
  - CREATE TABLE orders (id INTEGER, total REAL)
steps:
  - query: INSERT INTO orders VALUES (1, 9.99)
  - bucket: reporting
  - txn:
      - query: UPDATE orders SET total = 19.99 WHERE id = 1
      - query: SELECT count(*) FROM orders
  - query: SELECT * FROM orders
`

func runWorkload(t *testing.T, sessions int) []*querylog.QueryLog {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	w, err := workload.Parse([]byte(testWorkload))
	require.NoError(t, err)

	logger := slog.New(slog.DiscardHandler)
	r := workload.NewRunner(db, w, logger, 0, func() *querylog.QueryLog {
		return querylog.New(querylog.WithLogger(logger))
	})
	require.NoError(t, r.Setup(context.Background()))

	logs, err := r.Run(context.Background(), sessions)
	require.NoError(t, err)
	return logs
}

func TestRunner_RecordsWorkloadShape(t *testing.T) {
	t.Parallel()

	logs := runWorkload(t, 1)
	require.Len(t, logs, 1)
	l := logs[0]

	entries := l.Entries()
	require.Len(t, entries, 3, "insert, transaction, select")

	ins, ok := entries[0].(*querylog.Query)
	require.True(t, ok)
	assert.Equal(t, "INSERT INTO orders VALUES (1, 9.99)", ins.SQL())
	assert.Equal(t, "default", ins.Bucket())

	txn, ok := entries[1].(*querylog.Transaction)
	require.True(t, ok)
	assert.True(t, txn.Committed())
	assert.Equal(t, 2, txn.Count())
	assert.Equal(t, "reporting", txn.Bucket(), "bucket switch applies before the transaction ends")

	sel, ok := entries[2].(*querylog.Query)
	require.True(t, ok)
	assert.Equal(t, "SELECT * FROM orders", sel.SQL())
	assert.Equal(t, "reporting", sel.Bucket())

	assert.Equal(t, 4, l.Count())
}

func TestRunner_IndependentSessions(t *testing.T) {
	t.Parallel()

	logs := runWorkload(t, 3)
	require.Len(t, logs, 3)

	seen := make(map[string]bool)
	for _, l := range logs {
		assert.Equal(t, 4, l.Count(), "each session records the full workload")
		assert.False(t, seen[l.SessionID()], "sessions have distinct recorders")
		seen[l.SessionID()] = true
	}
}

func TestRunner_StatementErrorAborts(t *testing.T) {
	t.Parallel()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	w, err := workload.Parse([]byte("name: bad\nsteps:\n  - query: SELECT * FROM nope\n"))
	require.NoError(t, err)

	r := workload.NewRunner(db, w, slog.New(slog.DiscardHandler), 0, func() *querylog.QueryLog {
		return querylog.New()
	})
	_, err = r.Run(context.Background(), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such table")
}
