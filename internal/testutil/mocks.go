// Package testutil provides shared test helpers: a tracer mock that records
// the event stream it receives, and a manual clock for deterministic elapsed
// times.
package testutil

import (
	"fmt"
	"sync"
	"time"

	"querylog-demo/querylog"
)

// === Tracer mock ===

// MockTracer implements querylog.Tracer and records every event it receives
// as a printable string, in order. It is safe for concurrent use so tests can
// share one mock across sessions.
type MockTracer struct {
	mu     sync.Mutex
	Events []string
}

// QueryStart implements the interface method for testing.
func (m *MockTracer) QueryStart(sql string, params ...string) {
	m.record(fmt.Sprintf("query_start %s %v", sql, params))
}

// QueryEnd implements the interface method for testing.
func (m *MockTracer) QueryEnd(sql string, _ ...string) {
	m.record("query_end " + sql)
}

// TxnBegin implements the interface method for testing.
func (m *MockTracer) TxnBegin() { m.record("txn_begin") }

// TxnCommit implements the interface method for testing.
func (m *MockTracer) TxnCommit() { m.record("txn_commit") }

// TxnRollback implements the interface method for testing.
func (m *MockTracer) TxnRollback() { m.record("txn_rollback") }

func (m *MockTracer) record(event string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, event)
}

// Recorded returns a copy of the events received so far.
func (m *MockTracer) Recorded() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.Events))
	copy(out, m.Events)
	return out
}

var _ querylog.Tracer = (*MockTracer)(nil)

// === Manual clock ===

// Clock is a hand-driven time source. Each Advance moves the reported time
// forward, so a test controls exactly how long each recorded query "took".
type Clock struct {
	now time.Time
}

// NewClock starts a clock at a fixed, arbitrary instant.
func NewClock() *Clock {
	return &Clock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

// Now returns the current manual time. Pass this method as the recorder's
// clock.
func (c *Clock) Now() time.Time { return c.now }

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) { c.now = c.now.Add(d) }
