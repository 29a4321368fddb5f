package querylog

import "time"

// Entry is the shared capability of the two record kinds the log holds. A
// bare Query and a Transaction expose the same surface (total elapsed time,
// statement count, flat list of constituent statements), so consumers can
// harvest leaf queries without switching on the concrete type.
type Entry interface {
	// Bucket returns the bucket label stamped at finalization time.
	Bucket() string
	// TimeElapsed returns the entry's total cost. For a Transaction this is
	// the sum over its contained queries, not its wall-clock span.
	TimeElapsed() time.Duration
	// Count returns the number of constituent statements.
	Count() int
	// Queries returns the constituent statements in execution order. A bare
	// Query returns itself.
	Queries() []*Query
}

var (
	_ Entry = (*Query)(nil)
	_ Entry = (*Transaction)(nil)
)
