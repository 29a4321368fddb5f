package workload

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"querylog-demo/instrument"
	"querylog-demo/querylog"
)

// Runner replays a workload against a database, one recorder per session.
// Sessions run concurrently but each session drives its own recorder
// sequentially, so the single-writer model of querylog holds.
type Runner struct {
	db       *sql.DB
	workload *Workload
	logger   *slog.Logger
	limiter  *rate.Limiter // shared across sessions, nil when unpaced
	recorder func() *querylog.QueryLog
}

// NewRunner creates a Runner. newRecorder is called once per session to
// build that session's QueryLog; statementsPerSec of 0 disables pacing.
func NewRunner(db *sql.DB, w *Workload, logger *slog.Logger, statementsPerSec float64, newRecorder func() *querylog.QueryLog) *Runner {
	var limiter *rate.Limiter
	if statementsPerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(statementsPerSec), 1)
	}
	return &Runner{
		db:       db,
		workload: w,
		logger:   logger,
		limiter:  limiter,
		recorder: newRecorder,
	}
}

// Setup runs the workload's setup statements, outside any recording.
func (r *Runner) Setup(ctx context.Context) error {
	for _, stmt := range r.workload.Setup {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("setup %q: %w", stmt, err)
		}
	}
	return nil
}

// Run replays the workload in the given number of sessions and returns each
// session's recorder, in session order.
func (r *Runner) Run(ctx context.Context, sessions int) ([]*querylog.QueryLog, error) {
	logs := make([]*querylog.QueryLog, sessions)
	g, ctx := errgroup.WithContext(ctx)
	for i := range sessions {
		g.Go(func() error {
			rec := r.recorder()
			logs[i] = rec
			if err := r.runSession(ctx, rec); err != nil {
				return fmt.Errorf("session %s: %w", rec.SessionID(), err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return logs, nil
}

func (r *Runner) runSession(ctx context.Context, rec *querylog.QueryLog) error {
	db := instrument.WrapDB(r.db, rec)
	for _, step := range r.workload.Steps {
		switch {
		case step.Bucket != "":
			rec.SetBucket(step.Bucket)
		case len(step.Txn) > 0:
			if err := r.runTxn(ctx, db, rec, step); err != nil {
				return err
			}
		default:
			if err := r.runStatement(ctx, db.QueryContext, step); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Runner) runTxn(ctx context.Context, db *instrument.DB, rec *querylog.QueryLog, step Step) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, inner := range step.Txn {
		if inner.Bucket != "" {
			rec.SetBucket(inner.Bucket)
			continue
		}
		if err := r.runStatement(ctx, tx.QueryContext, inner); err != nil {
			// The statement failed; give the database its rollback and
			// surface the original error.
			_ = tx.Rollback()
			return err
		}
	}
	if step.Rollback {
		return tx.Rollback()
	}
	return tx.Commit()
}

type queryFunc func(ctx context.Context, query string, args ...any) (*sql.Rows, error)

// runStatement executes one statement through the instrumented handle and
// drains the result, so the end event covers the full fetch.
func (r *Runner) runStatement(ctx context.Context, query queryFunc, step Step) error {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	args := make([]any, len(step.Params))
	for i, p := range step.Params {
		args[i] = p
	}
	rows, err := query(ctx, step.Query, args...)
	if err != nil {
		return fmt.Errorf("execute %q: %w", step.Query, err)
	}
	var n int
	for rows.Next() {
		n++
	}
	if err := rows.Err(); err != nil {
		rows.Close() //nolint:errcheck
		return fmt.Errorf("drain %q: %w", step.Query, err)
	}
	if err := rows.Close(); err != nil {
		return fmt.Errorf("close rows for %q: %w", step.Query, err)
	}
	r.logger.Debug("statement replayed", "sql", step.Query, "rows", n)
	if step.Think > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(step.Think)):
		}
	}
	return nil
}
