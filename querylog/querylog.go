// Package querylog records executed SQL statements and transactions for one
// data-access session. The recorder receives begin/end events from an
// instrumentation hook, timestamps them, and appends completed records to an
// ordered log: bare queries interleaved with transactions, each transaction
// an opaque bundle of the queries that ran inside it. The analyzer package
// derives sorted and aggregated views from a finished log.
package querylog

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// DefaultBucket is the bucket label a new recorder starts with.
const DefaultBucket = "default"

// QueryLog records the statement and transaction lifecycle events of a single
// session. It is driven entirely by external calls that are assumed to be
// strictly sequential; it carries no locking of its own.
//
// At most one query and one transaction are open at a time. A query that ends
// while a transaction is open is appended to that transaction rather than to
// the top-level log. Completed records are stamped with the bucket label that
// is current at the moment they are finalized, not the one current when they
// started.
type QueryLog struct {
	sessionID   string
	bucket      string
	entries     []Entry
	pending     *pendingQuery
	open        *openTransaction
	passthrough Tracer
	logger      *slog.Logger
	now         func() time.Time
}

// Option configures a QueryLog.
type Option func(*QueryLog)

// WithBucket sets the initial bucket label.
func WithBucket(name string) Option {
	return func(l *QueryLog) { l.bucket = name }
}

// WithLogger sets the logger used for protocol-violation warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(l *QueryLog) { l.logger = logger }
}

// WithPassthrough installs a secondary tracer that every event is forwarded
// to before it is recorded.
func WithPassthrough(t Tracer) Option {
	return func(l *QueryLog) { l.passthrough = t }
}

// WithClock overrides the time source. Tests use this to make elapsed times
// deterministic.
func WithClock(now func() time.Time) Option {
	return func(l *QueryLog) { l.now = now }
}

// New creates an empty recorder for one session.
func New(opts ...Option) *QueryLog {
	l := &QueryLog{
		sessionID: uuid.NewString(),
		bucket:    DefaultBucket,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// SessionID returns the identifier assigned to this recording session.
func (l *QueryLog) SessionID() string { return l.sessionID }

// Bucket returns the current bucket label.
func (l *QueryLog) Bucket() string { return l.bucket }

// SetBucket changes the bucket label stamped onto records finalized from now
// on. Already-completed records are not relabeled.
func (l *QueryLog) SetBucket(name string) { l.bucket = name }

// SetPassthrough installs (or, with nil, removes) the secondary tracer that
// events are forwarded to.
func (l *QueryLog) SetPassthrough(t Tracer) { l.passthrough = t }

// QueryStart opens a new query record. A query that is still open from a
// previous start is silently discarded without being recorded.
func (l *QueryLog) QueryStart(sql string, params ...string) {
	if l.passthrough != nil {
		l.passthrough.QueryStart(sql, params...)
	}
	l.pending = &pendingQuery{sql: sql, params: params, startedAt: l.now()}
}

// QueryEnd finalizes the open query: its end time is now and its bucket is
// the recorder's current bucket. The finished query goes into the open
// transaction if there is one, otherwise straight into the log. The arguments
// are ignored; only the record captured at start time matters. Without an
// open query this warns and does nothing.
func (l *QueryLog) QueryEnd(sql string, params ...string) {
	if l.passthrough != nil {
		l.passthrough.QueryEnd(sql, params...)
	}
	if l.pending == nil {
		l.logger.Warn("query end without an open query", "session", l.sessionID, "sql", sql)
		return
	}
	q := l.pending.finalize(l.now(), l.bucket)
	l.pending = nil
	if l.open != nil {
		l.open.add(q)
		return
	}
	l.entries = append(l.entries, q)
}

// TxnBegin opens a new transaction record. An already-open transaction is
// silently discarded, matching the query overwrite behavior.
func (l *QueryLog) TxnBegin() {
	if l.passthrough != nil {
		l.passthrough.TxnBegin()
	}
	l.open = &openTransaction{startedAt: l.now()}
}

// TxnCommit finalizes the open transaction as committed and appends it to the
// log. Without an open transaction this warns and does nothing.
func (l *QueryLog) TxnCommit() {
	if l.passthrough != nil {
		l.passthrough.TxnCommit()
	}
	l.closeTxn(true)
}

// TxnRollback finalizes the open transaction as rolled back and appends it to
// the log. Without an open transaction this warns and does nothing.
func (l *QueryLog) TxnRollback() {
	if l.passthrough != nil {
		l.passthrough.TxnRollback()
	}
	l.closeTxn(false)
}

func (l *QueryLog) closeTxn(committed bool) {
	if l.open == nil {
		l.logger.Warn("transaction end without an open transaction",
			"session", l.sessionID, "committed", committed)
		return
	}
	t := l.open.finalize(l.now(), committed, l.bucket)
	l.open = nil
	l.entries = append(l.entries, t)
}

// Entries returns the completed top-level records in completion order.
func (l *QueryLog) Entries() []Entry { return l.entries }

// TimeElapsed returns the summed cost of every entry in the log, each entry
// using its own definition of elapsed time.
func (l *QueryLog) TimeElapsed() time.Duration {
	var total time.Duration
	for _, e := range l.entries {
		total += e.TimeElapsed()
	}
	return total
}

// Count returns the number of recorded statements. A transaction contributes
// the number of queries it contains, not 1.
func (l *QueryLog) Count() int {
	var n int
	for _, e := range l.entries {
		n += e.Count()
	}
	return n
}

// Reset empties the log. An in-flight query or transaction is left open and
// will be recorded normally when its end event arrives.
func (l *QueryLog) Reset() { l.entries = nil }

var _ Tracer = (*QueryLog)(nil)
