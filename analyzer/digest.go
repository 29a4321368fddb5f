package analyzer

import (
	"github.com/pingcap/tidb/pkg/parser"
)

// DigestTotals is Totals plus the normalized statement the digest was
// computed from, so reports can show a readable representative of the group.
type DigestTotals struct {
	Totals
	NormalizedSQL string
}

// TotaledQueriesByDigest aggregates every recorded query by statement digest:
// statements that differ only in literals (and whitespace) share a digest and
// are totaled together. Exact-text totals remain available through
// TotaledQueries.
func (a *Analyzer) TotaledQueriesByDigest() map[string]*DigestTotals {
	totals := make(map[string]*DigestTotals)
	for _, q := range a.leafQueries() {
		normalized := parser.Normalize(q.SQL())
		digest := parser.DigestNormalized(normalized).String()
		t, ok := totals[digest]
		if !ok {
			t = &DigestTotals{NormalizedSQL: normalized}
			totals[digest] = t
		}
		t.Count++
		t.TimeElapsed += q.TimeElapsed()
		t.Queries = append(t.Queries, q)
	}
	return totals
}
