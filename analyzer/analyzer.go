// Package analyzer derives sorted, filtered, and totaled views from a
// completed query log. It only reads the log; callers must not record into
// the log concurrently with an analysis call.
package analyzer

import (
	"sort"
	"time"

	"querylog-demo/querylog"
)

// Analyzer produces reports over one recorded session.
type Analyzer struct {
	log *querylog.QueryLog
}

// New creates an Analyzer over the given log.
func New(log *querylog.QueryLog) *Analyzer {
	return &Analyzer{log: log}
}

// Totals aggregates the executions of one statement text: how many times it
// ran, its summed elapsed time, and the individual executions in execution
// order.
type Totals struct {
	Count       int
	TimeElapsed time.Duration
	Queries     []*querylog.Query
}

// leafQueries flattens every query across the whole log, both top-level ones
// and those nested inside transactions, in execution order. Transactions are
// never returned themselves; the Entry interface hands out their leaves.
func (a *Analyzer) leafQueries() []*querylog.Query {
	var out []*querylog.Query
	for _, e := range a.log.Entries() {
		out = append(out, e.Queries()...)
	}
	return out
}

// SortedQueries returns every recorded query ordered by elapsed time,
// slowest first. Ties keep execution order (the sort is stable).
func (a *Analyzer) SortedQueries() []*querylog.Query {
	qs := a.leafQueries()
	sort.SliceStable(qs, func(i, j int) bool {
		return qs[i].TimeElapsed() > qs[j].TimeElapsed()
	})
	return qs
}

// FastestExecutions returns the executions whose statement text exactly
// equals sql (no normalization, placeholder syntax included), fastest first.
// Ties keep execution order.
func (a *Analyzer) FastestExecutions(sql string) []*querylog.Query {
	var qs []*querylog.Query
	for _, q := range a.leafQueries() {
		if q.SQL() == sql {
			qs = append(qs, q)
		}
	}
	sort.SliceStable(qs, func(i, j int) bool {
		return qs[i].TimeElapsed() < qs[j].TimeElapsed()
	})
	return qs
}

// SlowestExecutions returns the exact reverse of FastestExecutions for the
// same statement text. It is implemented as a reversal rather than an
// independent descending sort so the two orderings mirror each other even
// through ties.
func (a *Analyzer) SlowestExecutions(sql string) []*querylog.Query {
	qs := a.FastestExecutions(sql)
	for i, j := 0, len(qs)-1; i < j; i, j = i+1, j-1 {
		qs[i], qs[j] = qs[j], qs[i]
	}
	return qs
}

// TotaledQueries aggregates every recorded query by exact statement text.
func (a *Analyzer) TotaledQueries() map[string]*Totals {
	totals := make(map[string]*Totals)
	for _, q := range a.leafQueries() {
		accumulate(totals, q)
	}
	return totals
}

// TotaledQueriesByBucket aggregates like TotaledQueries but keyed first by
// the bucket each query was stamped with at completion, then by statement
// text.
func (a *Analyzer) TotaledQueriesByBucket() map[string]map[string]*Totals {
	buckets := make(map[string]map[string]*Totals)
	for _, q := range a.leafQueries() {
		totals, ok := buckets[q.Bucket()]
		if !ok {
			totals = make(map[string]*Totals)
			buckets[q.Bucket()] = totals
		}
		accumulate(totals, q)
	}
	return buckets
}

func accumulate(totals map[string]*Totals, q *querylog.Query) {
	t, ok := totals[q.SQL()]
	if !ok {
		t = &Totals{}
		totals[q.SQL()] = t
	}
	t.Count++
	t.TimeElapsed += q.TimeElapsed()
	t.Queries = append(t.Queries, q)
}
