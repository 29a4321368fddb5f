// Package main is the entry point for the querylog-demo binary: it replays a
// YAML workload against a database through the instrumented handle, then
// prints the analyzer's reports for each recorded session.
package main

import (
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"text/tabwriter"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/cobra"

	"querylog-demo/analyzer"
	"querylog-demo/internal/config"
	"querylog-demo/internal/workload"
	"querylog-demo/querylog"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var top int

	cmd := &cobra.Command{
		Use:           "querylog-demo",
		Short:         "Replay a SQL workload and report query statistics",
		Long:          "Replays a YAML-defined SQL workload through an instrumented database handle and prints sorted and totaled query statistics per session.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.LoadDotEnv(".env"); err != nil {
				return err
			}
			cfg := config.LoadFromEnv()
			applyFlagOverrides(cmd, cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd, cfg, top)
		},
	}

	cmd.Flags().String("workload", "", "path to the YAML workload file")
	cmd.Flags().String("driver", "", "database driver (sqlite3 or mysql)")
	cmd.Flags().String("dsn", "", "database DSN")
	cmd.Flags().String("bucket", "", "initial bucket label")
	cmd.Flags().Bool("passthrough", false, "also log every statement as it runs")
	cmd.Flags().Float64("rate", 0, "replay pace in statements per second (0 = unpaced)")
	cmd.Flags().Int("sessions", 0, "number of independent replay sessions")
	cmd.Flags().String("log-level", "", "log level (debug, info, warn, error)")
	cmd.Flags().IntVar(&top, "top", 10, "number of slowest queries to print")

	return cmd
}

// applyFlagOverrides layers changed flags over the environment config.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("workload") {
		cfg.WorkloadPath, _ = cmd.Flags().GetString("workload")
	}
	if cmd.Flags().Changed("driver") {
		cfg.Driver, _ = cmd.Flags().GetString("driver")
	}
	if cmd.Flags().Changed("dsn") {
		cfg.DSN, _ = cmd.Flags().GetString("dsn")
	}
	if cmd.Flags().Changed("bucket") {
		cfg.Bucket, _ = cmd.Flags().GetString("bucket")
	}
	if cmd.Flags().Changed("passthrough") {
		cfg.Passthrough, _ = cmd.Flags().GetBool("passthrough")
	}
	if cmd.Flags().Changed("rate") {
		cfg.ReplayRate, _ = cmd.Flags().GetFloat64("rate")
	}
	if cmd.Flags().Changed("sessions") {
		cfg.Sessions, _ = cmd.Flags().GetInt("sessions")
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel, _ = cmd.Flags().GetString("log-level")
	}
}

func run(cmd *cobra.Command, cfg *config.Config, top int) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))

	w, err := workload.Load(cfg.WorkloadPath)
	if err != nil {
		return err
	}

	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return fmt.Errorf("open %s database: %w", cfg.Driver, err)
	}
	defer db.Close() //nolint:errcheck
	if cfg.Driver == "sqlite3" {
		// A :memory: SQLite database exists per connection; keep the pool at
		// one connection so every session sees the setup statements.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(cmd.Context()); err != nil {
		return fmt.Errorf("ping %s database: %w", cfg.Driver, err)
	}

	newRecorder := func() *querylog.QueryLog {
		opts := []querylog.Option{
			querylog.WithBucket(cfg.Bucket),
			querylog.WithLogger(logger),
		}
		if cfg.Passthrough {
			opts = append(opts, querylog.WithPassthrough(querylog.NewLogTracer(logger)))
		}
		return querylog.New(opts...)
	}

	runner := workload.NewRunner(db, w, logger, cfg.ReplayRate, newRecorder)
	if err := runner.Setup(cmd.Context()); err != nil {
		return err
	}
	logger.Info("replaying workload", "name", w.Name, "sessions", cfg.Sessions, "rate", cfg.ReplayRate)

	logs, err := runner.Run(cmd.Context(), cfg.Sessions)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, l := range logs {
		printReport(out, l, top)
	}
	return nil
}

func printReport(out io.Writer, l *querylog.QueryLog, top int) {
	a := analyzer.New(l)

	fmt.Fprintf(out, "\nsession %s: %d statements, %s total\n",
		l.SessionID(), l.Count(), l.TimeElapsed())

	fmt.Fprintf(out, "\nslowest queries\n")
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "elapsed\tbucket\tsql")
	sorted := a.SortedQueries()
	if len(sorted) > top {
		sorted = sorted[:top]
	}
	for _, q := range sorted {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", q.TimeElapsed(), q.Bucket(), q.SQL())
	}
	tw.Flush() //nolint:errcheck

	fmt.Fprintf(out, "\ntotals by statement\n")
	tw = tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "count\telapsed\tsql")
	totals := a.TotaledQueries()
	for _, stmt := range sortedKeys(totals) {
		t := totals[stmt]
		fmt.Fprintf(tw, "%d\t%s\t%s\n", t.Count, t.TimeElapsed, stmt)
	}
	tw.Flush() //nolint:errcheck

	fmt.Fprintf(out, "\ntotals by digest\n")
	tw = tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "count\telapsed\tnormalized sql")
	digests := a.TotaledQueriesByDigest()
	for _, d := range sortedDigestKeys(digests) {
		t := digests[d]
		fmt.Fprintf(tw, "%d\t%s\t%s\n", t.Count, t.TimeElapsed, t.NormalizedSQL)
	}
	tw.Flush() //nolint:errcheck

	byBucket := a.TotaledQueriesByBucket()
	buckets := make([]string, 0, len(byBucket))
	for b := range byBucket {
		buckets = append(buckets, b)
	}
	sort.Strings(buckets)
	for _, b := range buckets {
		fmt.Fprintf(out, "\nbucket %q\n", b)
		tw = tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "count\telapsed\tsql")
		for _, stmt := range sortedKeys(byBucket[b]) {
			t := byBucket[b][stmt]
			fmt.Fprintf(tw, "%d\t%s\t%s\n", t.Count, t.TimeElapsed, stmt)
		}
		tw.Flush() //nolint:errcheck
	}
}

// sortedKeys orders statement keys by total elapsed time, slowest first, so
// report output is deterministic.
func sortedKeys(totals map[string]*analyzer.Totals) []string {
	keys := make([]string, 0, len(totals))
	for k := range totals {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if totals[keys[i]].TimeElapsed != totals[keys[j]].TimeElapsed {
			return totals[keys[i]].TimeElapsed > totals[keys[j]].TimeElapsed
		}
		return keys[i] < keys[j]
	})
	return keys
}

func sortedDigestKeys(totals map[string]*analyzer.DigestTotals) []string {
	keys := make([]string, 0, len(totals))
	for k := range totals {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if totals[keys[i]].TimeElapsed != totals[keys[j]].TimeElapsed {
			return totals[keys[i]].TimeElapsed > totals[keys[j]].TimeElapsed
		}
		return keys[i] < keys[j]
	})
	return keys
}
