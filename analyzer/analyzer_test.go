package analyzer_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"querylog-demo/analyzer"
	"querylog-demo/internal/testutil"
	"querylog-demo/querylog"
)

// record runs one query through the recorder with the given elapsed time.
func record(l *querylog.QueryLog, clock *testutil.Clock, sql string, elapsed time.Duration) {
	l.QueryStart(sql)
	clock.Advance(elapsed)
	l.QueryEnd(sql)
}

func TestAnalyzer_SortedQueries(t *testing.T) {
	t.Parallel()

	clock := testutil.NewClock()
	l := querylog.New(querylog.WithClock(clock.Now))

	record(l, clock, "SELECT 1", 0)
	record(l, clock, "SELECT 2", 3*time.Millisecond)
	record(l, clock, "SELECT 1", 1*time.Millisecond)

	// Nested queries are flattened in; the transaction itself is not an entry.
	l.TxnBegin()
	record(l, clock, "SELECT 3", 5*time.Millisecond)
	l.TxnCommit()

	sorted := analyzer.New(l).SortedQueries()
	require.Len(t, sorted, 4, "every leaf query appears, nested ones included")

	elapsed := make([]time.Duration, len(sorted))
	for i, q := range sorted {
		elapsed[i] = q.TimeElapsed()
	}
	assert.Equal(t, []time.Duration{
		5 * time.Millisecond,
		3 * time.Millisecond,
		1 * time.Millisecond,
		0,
	}, elapsed)
	assert.Equal(t, "SELECT 3", sorted[0].SQL())
	assert.Equal(t, "SELECT 2", sorted[1].SQL())
}

func TestAnalyzer_FastestAndSlowestExecutions(t *testing.T) {
	t.Parallel()

	const stmt = "SELECT * FROM foo WHERE id = ?"

	clock := testutil.NewClock()
	l := querylog.New(querylog.WithClock(clock.Now))

	record(l, clock, stmt, 5*time.Millisecond)
	record(l, clock, "SELECT unrelated", 1*time.Millisecond)
	record(l, clock, stmt, 2*time.Millisecond)
	record(l, clock, stmt, 2*time.Millisecond) // tie with the previous one
	record(l, clock, stmt, 8*time.Millisecond)

	a := analyzer.New(l)

	fastest := a.FastestExecutions(stmt)
	require.Len(t, fastest, 4)
	for _, q := range fastest {
		assert.Equal(t, stmt, q.SQL(), "only exact statement matches are included")
	}
	assert.Equal(t, []time.Duration{
		2 * time.Millisecond,
		2 * time.Millisecond,
		5 * time.Millisecond,
		8 * time.Millisecond,
	}, elapsedOf(fastest))

	slowest := a.SlowestExecutions(stmt)
	require.Len(t, slowest, 4)
	for i := range fastest {
		assert.Same(t, fastest[i], slowest[len(slowest)-1-i],
			"slowest must be the exact reverse of fastest, ties included")
	}
}

func TestAnalyzer_FastestExecutions_NoMatch(t *testing.T) {
	t.Parallel()

	clock := testutil.NewClock()
	l := querylog.New(querylog.WithClock(clock.Now))
	record(l, clock, "SELECT 1", time.Millisecond)

	a := analyzer.New(l)
	assert.Empty(t, a.FastestExecutions("SELECT 2"))
	// Matching is exact text, placeholders and whitespace included.
	assert.Empty(t, a.FastestExecutions("select 1"))
	assert.Empty(t, a.FastestExecutions("SELECT 1 "))
}

func TestAnalyzer_TotaledQueries(t *testing.T) {
	t.Parallel()

	const stmt = "SELECT * FROM foo"

	clock := testutil.NewClock()
	l := querylog.New(querylog.WithClock(clock.Now))

	record(l, clock, stmt, 5*time.Millisecond)
	record(l, clock, stmt, 2*time.Millisecond)

	// Queries inside transactions are totaled too.
	l.TxnBegin()
	record(l, clock, stmt, 3*time.Millisecond)
	record(l, clock, "INSERT INTO foo VALUES (1)", time.Millisecond)
	l.TxnCommit()

	totals := analyzer.New(l).TotaledQueries()
	require.Len(t, totals, 2)

	foo := totals[stmt]
	require.NotNil(t, foo)
	assert.Equal(t, 3, foo.Count)
	assert.Equal(t, 10*time.Millisecond, foo.TimeElapsed)
	require.Len(t, foo.Queries, 3)
	assert.Equal(t, []time.Duration{
		5 * time.Millisecond,
		2 * time.Millisecond,
		3 * time.Millisecond,
	}, elapsedOf(foo.Queries), "executions are kept in execution order")

	ins := totals["INSERT INTO foo VALUES (1)"]
	require.NotNil(t, ins)
	assert.Equal(t, 1, ins.Count)

	// Count agrees with the execution filter for every statement.
	a := analyzer.New(l)
	for stmtText, tot := range totals {
		assert.Len(t, a.FastestExecutions(stmtText), tot.Count)
	}
}

func TestAnalyzer_TotaledQueriesByBucket(t *testing.T) {
	t.Parallel()

	clock := testutil.NewClock()
	l := querylog.New(querylog.WithClock(clock.Now))

	record(l, clock, "SELECT 1", time.Millisecond)
	l.SetBucket("reporting")
	record(l, clock, "SELECT 1", 2*time.Millisecond)
	record(l, clock, "SELECT 2", 3*time.Millisecond)

	// A query started under one bucket but finished under another lands in
	// the bucket current at completion.
	l.SetBucket("default")
	l.QueryStart("SELECT 3")
	clock.Advance(time.Millisecond)
	l.SetBucket("reporting")
	l.QueryEnd("SELECT 3")

	byBucket := analyzer.New(l).TotaledQueriesByBucket()
	require.Len(t, byBucket, 2)

	require.Contains(t, byBucket, "default")
	require.Contains(t, byBucket, "reporting")
	assert.Len(t, byBucket["default"], 1)
	assert.Equal(t, 1, byBucket["default"]["SELECT 1"].Count)

	reporting := byBucket["reporting"]
	require.Len(t, reporting, 3)
	assert.Equal(t, 1, reporting["SELECT 1"].Count)
	assert.Equal(t, 2*time.Millisecond, reporting["SELECT 1"].TimeElapsed)
	assert.Equal(t, 1, reporting["SELECT 3"].Count)
}

func TestAnalyzer_EmptyLog(t *testing.T) {
	t.Parallel()

	a := analyzer.New(querylog.New())
	assert.Empty(t, a.SortedQueries())
	assert.Empty(t, a.TotaledQueries())
	assert.Empty(t, a.TotaledQueriesByBucket())
}

func elapsedOf(qs []*querylog.Query) []time.Duration {
	out := make([]time.Duration, len(qs))
	for i, q := range qs {
		out[i] = q.TimeElapsed()
	}
	return out
}
