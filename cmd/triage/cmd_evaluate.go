package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/piyushigoyal/claimtriage/internal/models"
	"github.com/piyushigoyal/claimtriage/internal/orchestration"
	"github.com/piyushigoyal/claimtriage/internal/reporting"
	"github.com/piyushigoyal/claimtriage/internal/telemetry"
)

type evaluateOptions struct {
	root        *rootOptions
	policies    string
	strategies  []string
	claimFilter []string
	rows        string
	parallel    bool
	workers     int
	output      string
	format      string
	junit       string
	minScore    float64
	auditLog    string
	auditSQLite string
	cache       bool
	metricsFile string
	traceFile   string
	interpret   bool
	verbose     bool
	progressN   int
}

func newEvaluateCommand(root *rootOptions) *cobra.Command {
	opts := &evaluateOptions{root: root}
	cmd := &cobra.Command{
		Use:   "evaluate <claims.csv>",
		Short: "Evaluate decision strategies against labelled claims",
		Long: `Run one or more decision strategies over a labelled claims file and rank
them by overall score.

Every claim must carry ground_truth_severity and ground_truth_action.
Strategy failures never stop the run: the claim is escalated by the
fail-safe path and counted as a failure.

Exit codes: 0 on success, 1 when the best strategy scores below --min-score,
2 on configuration or runtime errors.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return evaluateCommandE(cmd, opts, args[0])
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.policies, "policies", "", "Policies CSV used for coverage checks and the agent's policy lookup")
	f.StringArrayVar(&opts.strategies, "strategy", nil, "Strategy to evaluate (rule_based, single_shot, agent); repeatable, default all")
	f.StringArrayVar(&opts.claimFilter, "claim", nil, "Only evaluate claims whose ID or type matches this glob (repeatable)")
	f.StringVar(&opts.rows, "rows", "", "Only evaluate valid claims START-END of the file (1-based, inclusive)")
	f.BoolVar(&opts.parallel, "parallel", false, "Process claims concurrently")
	f.IntVar(&opts.workers, "workers", 0, "Number of concurrent workers (requires --parallel)")
	f.StringVarP(&opts.output, "output", "o", "", "Write the JSON report to this file")
	f.StringVar(&opts.format, "format", "table", "Output format: table, json, markdown or html")
	f.StringVar(&opts.junit, "junit", "", "Write JUnit XML results to this file")
	f.Float64Var(&opts.minScore, "min-score", 0, "Fail with exit code 1 when the best overall score is below this")
	f.StringVar(&opts.auditLog, "audit-log", "", "Audit log file (default from config)")
	f.StringVar(&opts.auditSQLite, "audit-sqlite", "", "Also write audit entries to this SQLite database")
	f.BoolVar(&opts.cache, "cache", false, "Cache model decisions between runs")
	f.StringVar(&opts.metricsFile, "metrics-file", "", "Write Prometheus metrics in text format to this file")
	f.StringVar(&opts.traceFile, "trace-file", "", "Write OpenTelemetry spans as JSON to this file")
	f.BoolVar(&opts.interpret, "interpret", false, "Print a plain-language interpretation of the results")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "Print a line per claim")
	f.IntVar(&opts.progressN, "progress-every", orchestration.DefaultProgressInterval, "Report progress every N claims")

	return cmd
}

func evaluateCommandE(cmd *cobra.Command, opts *evaluateOptions, claimsPath string) error {
	switch opts.format {
	case "table", "json", "markdown", "html":
	default:
		return fmt.Errorf("unsupported format %q: must be table, json, markdown or html", opts.format)
	}
	if opts.minScore < 0 || opts.minScore > 1 {
		return fmt.Errorf("--min-score must be between 0 and 1, got %v", opts.minScore)
	}

	cfg, err := opts.root.loadConfig()
	if err != nil {
		return err
	}

	claims, err := loadClaims(claimsPath, opts.rows)
	if err != nil {
		return err
	}
	claims, err = orchestration.FilterClaims(claims, opts.claimFilter)
	if err != nil {
		return err
	}
	if len(claims) == 0 {
		return fmt.Errorf("no claims match the --claim filters")
	}

	policies, err := loadPolicies(opts.policies)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.traceFile != "" {
		shutdownTracing, err := setupTraceFile(opts.traceFile)
		if err != nil {
			return err
		}
		defer func() {
			if err := shutdownTracing(context.Background()); err != nil {
				slog.Warn("Flushing traces failed", "error", err)
			}
		}()
	}

	log, closeLog, err := openAuditLog(ctx, cfg, sinkOptions{path: opts.auditLog, sqliteDSN: opts.auditSQLite})
	if err != nil {
		return err
	}
	defer func() {
		if err := closeLog(context.Background()); err != nil {
			slog.Error("Flushing audit log failed", "error", err)
		}
	}()

	metrics := telemetry.NewMetrics()
	strategies, shutdown, err := buildStrategies(ctx, opts.strategies, strategyDeps{
		cfg:      cfg,
		policies: policies,
		log:      log,
		metrics:  metrics,
		cache:    openCache(cfg, opts.cache),
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			slog.Warn("Engine shutdown failed", "error", err)
		}
	}()

	harnessOpts := []orchestration.Option{
		orchestration.WithPolicies(policies),
		orchestration.WithAuditLog(log),
		orchestration.WithMetrics(metrics),
		orchestration.WithProgressInterval(opts.progressN),
	}
	if cmd.Flags().Changed("parallel") || opts.workers > 0 {
		harnessOpts = append(harnessOpts, orchestration.WithParallel(opts.parallel, opts.workers))
	}
	harness := orchestration.NewHarness(cfg.Harness, harnessOpts...)

	progressOut := cmd.ErrOrStderr()
	if opts.verbose {
		harness.OnProgress(verboseProgressListener(progressOut))
	} else {
		harness.OnProgress(simpleProgressListener(progressOut))
	}

	report, runErr := harness.Evaluate(ctx, strategies, claims)
	if report == nil {
		return fmt.Errorf("evaluation failed: %w", runErr)
	}

	if err := writeReport(cmd, report, opts); err != nil {
		return err
	}
	if opts.metricsFile != "" {
		if err := metrics.WriteTextfile(opts.metricsFile); err != nil {
			return fmt.Errorf("writing metrics: %w", err)
		}
	}
	if err := log.Flush(ctx); err != nil {
		slog.Error("Flushing audit log failed", "error", err)
	}

	if runErr != nil {
		return runErr
	}

	if best, ok := report.Best(); ok && opts.minScore > 0 && best.Composite < opts.minScore {
		return &QualityGateError{Strategy: best.Strategy, Score: best.Composite, Min: opts.minScore}
	}
	return nil
}

func writeReport(cmd *cobra.Command, report *models.ComparisonReport, opts *evaluateOptions) error {
	out := cmd.OutOrStdout()
	switch opts.format {
	case "json":
		if err := reporting.WriteJSON(out, report); err != nil {
			return err
		}
	case "markdown":
		fmt.Fprint(out, reporting.Markdown(report))
	case "html":
		page, err := reporting.HTML(report)
		if err != nil {
			return err
		}
		_, _ = out.Write(page)
	default:
		fmt.Fprintln(out)
		reporting.WriteTable(out, report)
		if opts.verbose {
			fmt.Fprintln(out)
			for _, r := range report.Ranking {
				reporting.WriteConfusion(out, report.Results[r.Strategy])
			}
		}
	}

	if opts.interpret {
		fmt.Fprintln(out)
		fmt.Fprint(out, reporting.FormatSummaryReport(report))
	}

	if opts.output != "" {
		if err := saveReport(report, opts.output); err != nil {
			return fmt.Errorf("failed to save output: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Results saved to: %s\n", opts.output)
	}
	if opts.junit != "" {
		if err := reporting.WriteJUnitXML(report, opts.junit); err != nil {
			return fmt.Errorf("failed to write JUnit XML: %w", err)
		}
	}
	return nil
}

func saveReport(report *models.ComparisonReport, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := reporting.WriteJSON(f, report); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func setupTraceFile(path string) (func(context.Context) error, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating trace file: %w", err)
	}
	shutdown, err := telemetry.SetupTracing(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return func(ctx context.Context) error {
		err := shutdown(ctx)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		return err
	}, nil
}
