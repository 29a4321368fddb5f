package querylog

import "log/slog"

// Tracer is the statement lifecycle contract between a data-access layer and
// anything that wants to observe it. The instrumentation hook calls these
// methods in the order things actually happen at runtime; implementations
// must never interrupt the caller's database work, so none of them return an
// error.
type Tracer interface {
	// QueryStart fires when a statement begins executing.
	QueryStart(sql string, params ...string)
	// QueryEnd fires when the statement finishes. The arguments are repeated
	// for symmetry with QueryStart; observers that captured them at start
	// time may ignore them here.
	QueryEnd(sql string, params ...string)
	// TxnBegin fires when a transaction is opened.
	TxnBegin()
	// TxnCommit fires when the open transaction commits.
	TxnCommit()
	// TxnRollback fires when the open transaction rolls back.
	TxnRollback()
}

// LogTracer is a Tracer that writes every event to an slog logger at debug
// level. It is the default passthrough target: installing it alongside a
// QueryLog reproduces plain statement logging while the recorder captures
// statistics.
type LogTracer struct {
	logger *slog.Logger
}

// NewLogTracer returns a LogTracer writing to the given logger, or to
// slog.Default() when logger is nil.
func NewLogTracer(logger *slog.Logger) *LogTracer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogTracer{logger: logger}
}

// QueryStart implements Tracer.
func (t *LogTracer) QueryStart(sql string, params ...string) {
	t.logger.Debug("query start", "sql", sql, "params", params)
}

// QueryEnd implements Tracer.
func (t *LogTracer) QueryEnd(sql string, _ ...string) {
	t.logger.Debug("query end", "sql", sql)
}

// TxnBegin implements Tracer.
func (t *LogTracer) TxnBegin() { t.logger.Debug("txn begin") }

// TxnCommit implements Tracer.
func (t *LogTracer) TxnCommit() { t.logger.Debug("txn commit") }

// TxnRollback implements Tracer.
func (t *LogTracer) TxnRollback() { t.logger.Debug("txn rollback") }

var _ Tracer = (*LogTracer)(nil)
