package querylog

import "time"

// Query is a single completed SQL statement execution: statement text,
// positional bind parameters, timing, and the bucket it was finalized under.
// A Query is constructed only when its end event fires and is immutable from
// then on.
type Query struct {
	bucket    string
	sql       string
	params    []string
	startedAt time.Time
	endedAt   time.Time
}

// Bucket returns the bucket label stamped onto the query at completion time.
func (q *Query) Bucket() string { return q.bucket }

// SQL returns the statement text exactly as it was handed to the recorder.
func (q *Query) SQL() string { return q.sql }

// Params returns the positional bind values, in bind order.
func (q *Query) Params() []string { return q.params }

// StartedAt returns the wall-clock time at which the statement started.
func (q *Query) StartedAt() time.Time { return q.startedAt }

// EndedAt returns the wall-clock time at which the statement finished.
func (q *Query) EndedAt() time.Time { return q.endedAt }

// TimeElapsed returns end minus start. The clock is not assumed monotonic, so
// a negative duration is possible and is reported as-is.
func (q *Query) TimeElapsed() time.Duration { return q.endedAt.Sub(q.startedAt) }

// Count returns 1. It exists so that a Query and a Transaction can be counted
// uniformly through the Entry interface.
func (q *Query) Count() int { return 1 }

// Queries returns the query itself as a one-element slice, mirroring a
// Transaction's list of contained queries.
func (q *Query) Queries() []*Query { return []*Query{q} }

// pendingQuery is the open, not-yet-finalized counterpart of Query. It lives
// only inside the recorder between the start and end events.
type pendingQuery struct {
	sql       string
	params    []string
	startedAt time.Time
}

// finalize completes the pending query at the given instant under the given
// bucket, producing the immutable record.
func (p *pendingQuery) finalize(endedAt time.Time, bucket string) *Query {
	return &Query{
		bucket:    bucket,
		sql:       p.sql,
		params:    p.params,
		startedAt: p.startedAt,
		endedAt:   endedAt,
	}
}
