// Package instrument wires a database/sql handle to a statement tracer. Every
// query and transaction run through the wrapper emits the corresponding
// lifecycle events, so pointing it at a querylog.QueryLog records the session
// while pointing it at querylog.LogTracer reproduces plain statement logging.
package instrument

import (
	"context"
	"database/sql"
	"fmt"

	"querylog-demo/querylog"
)

// DB wraps a *sql.DB and reports statement lifecycle events to a tracer.
type DB struct {
	*sql.DB
	tracer querylog.Tracer
}

// WrapDB instruments the given handle. The tracer must not be nil.
func WrapDB(db *sql.DB, tracer querylog.Tracer) *DB {
	return &DB{DB: db, tracer: tracer}
}

// QueryContext executes a query, emitting start and end events around it.
func (d *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	params := renderParams(args)
	d.tracer.QueryStart(query, params...)
	rows, err := d.DB.QueryContext(ctx, query, args...)
	d.tracer.QueryEnd(query, params...)
	return rows, err
}

// QueryRowContext executes a single-row query, emitting start and end events
// around it. The row's own Scan error surfaces later, as with sql.DB.
func (d *DB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	params := renderParams(args)
	d.tracer.QueryStart(query, params...)
	row := d.DB.QueryRowContext(ctx, query, args...)
	d.tracer.QueryEnd(query, params...)
	return row
}

// ExecContext executes a statement, emitting start and end events around it.
func (d *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	params := renderParams(args)
	d.tracer.QueryStart(query, params...)
	res, err := d.DB.ExecContext(ctx, query, args...)
	d.tracer.QueryEnd(query, params...)
	return res, err
}

// BeginTx opens a transaction and emits the begin event. When opening fails
// no event is emitted, since no transaction ever existed.
func (d *DB) BeginTx(ctx context.Context, opts *sql.TxOptions) (*Tx, error) {
	tx, err := d.DB.BeginTx(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	d.tracer.TxnBegin()
	return &Tx{tx: tx, tracer: d.tracer}, nil
}

// Tx wraps a *sql.Tx so that statements inside the transaction and its final
// outcome are reported to the tracer.
type Tx struct {
	tx     *sql.Tx
	tracer querylog.Tracer
}

// QueryContext executes a query inside the transaction, emitting start and
// end events around it.
func (t *Tx) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	params := renderParams(args)
	t.tracer.QueryStart(query, params...)
	rows, err := t.tx.QueryContext(ctx, query, args...)
	t.tracer.QueryEnd(query, params...)
	return rows, err
}

// ExecContext executes a statement inside the transaction, emitting start and
// end events around it.
func (t *Tx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	params := renderParams(args)
	t.tracer.QueryStart(query, params...)
	res, err := t.tx.ExecContext(ctx, query, args...)
	t.tracer.QueryEnd(query, params...)
	return res, err
}

// Commit commits the transaction and emits the commit event. The event fires
// even when the database reports an error, mirroring what the session
// attempted.
func (t *Tx) Commit() error {
	err := t.tx.Commit()
	t.tracer.TxnCommit()
	return err
}

// Rollback rolls the transaction back and emits the rollback event.
func (t *Tx) Rollback() error {
	err := t.tx.Rollback()
	t.tracer.TxnRollback()
	return err
}

// renderParams formats positional bind values as strings for the tracer.
func renderParams(args []any) []string {
	if len(args) == 0 {
		return nil
	}
	params := make([]string, len(args))
	for i, a := range args {
		params[i] = fmt.Sprint(a)
	}
	return params
}
