package querylog

import "time"

// Transaction is a completed transaction span: the queries executed inside it
// in execution order, the commit/rollback outcome, timing, and the bucket it
// was finalized under. Like Query, a Transaction is constructed only when the
// commit or rollback event fires and is immutable from then on.
type Transaction struct {
	bucket    string
	startedAt time.Time
	endedAt   time.Time
	committed bool
	queries   []*Query
}

// Bucket returns the bucket label stamped onto the transaction at completion.
func (t *Transaction) Bucket() string { return t.bucket }

// StartedAt returns the wall-clock time of the begin event.
func (t *Transaction) StartedAt() time.Time { return t.startedAt }

// EndedAt returns the wall-clock time of the commit or rollback event.
func (t *Transaction) EndedAt() time.Time { return t.endedAt }

// Committed reports whether the transaction ended with a commit.
func (t *Transaction) Committed() bool { return t.committed }

// RolledBack reports whether the transaction ended with a rollback.
func (t *Transaction) RolledBack() bool { return !t.committed }

// TimeElapsed returns the sum of the elapsed times of the contained queries.
// It is deliberately not EndedAt minus StartedAt: wall-clock gaps between
// statements inside the transaction (application-side work) do not count
// toward its reported cost.
func (t *Transaction) TimeElapsed() time.Duration {
	var total time.Duration
	for _, q := range t.queries {
		total += q.TimeElapsed()
	}
	return total
}

// Count returns the number of contained queries, not 1.
func (t *Transaction) Count() int { return len(t.queries) }

// Queries returns the contained queries in execution order.
func (t *Transaction) Queries() []*Query { return t.queries }

// openTransaction is the open counterpart of Transaction, accumulating
// completed queries between the begin event and commit/rollback.
type openTransaction struct {
	startedAt time.Time
	queries   []*Query
}

func (o *openTransaction) add(q *Query) {
	o.queries = append(o.queries, q)
}

// finalize completes the open transaction at the given instant with the given
// outcome and bucket.
func (o *openTransaction) finalize(endedAt time.Time, committed bool, bucket string) *Transaction {
	return &Transaction{
		bucket:    bucket,
		startedAt: o.startedAt,
		endedAt:   endedAt,
		committed: committed,
		queries:   o.queries,
	}
}
