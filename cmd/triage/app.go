package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/piyushigoyal/claimtriage/internal/audit"
	"github.com/piyushigoyal/claimtriage/internal/audit/blobstore"
	"github.com/piyushigoyal/claimtriage/internal/audit/sqlstore"
	"github.com/piyushigoyal/claimtriage/internal/cache"
	"github.com/piyushigoyal/claimtriage/internal/config"
	"github.com/piyushigoyal/claimtriage/internal/dataset"
	"github.com/piyushigoyal/claimtriage/internal/execution"
	"github.com/piyushigoyal/claimtriage/internal/labels"
	"github.com/piyushigoyal/claimtriage/internal/models"
	"github.com/piyushigoyal/claimtriage/internal/policy"
	"github.com/piyushigoyal/claimtriage/internal/risk"
	"github.com/piyushigoyal/claimtriage/internal/strategy"
	"github.com/piyushigoyal/claimtriage/internal/telemetry"
	"github.com/piyushigoyal/claimtriage/internal/tools"
	"github.com/piyushigoyal/claimtriage/internal/triage"
)

var allStrategies = []string{strategy.NameRuleBased, strategy.NameSingleShot, strategy.NameAgent}

// sinkOptions are the audit destinations a command writes to.
type sinkOptions struct {
	path      string
	sqliteDSN string
	noBlob    bool
}

// openAuditLog creates the in-memory log and its durable sinks. Flags win
// over configuration. The returned close function flushes every sink.
func openAuditLog(ctx context.Context, cfg config.Config, opts sinkOptions) (*audit.Log, func(context.Context) error, error) {
	path := opts.path
	if path == "" {
		path = cfg.Audit.Path
	}
	dsn := opts.sqliteDSN
	if dsn == "" {
		dsn = cfg.Audit.SQLiteDSN
	}

	var sinks []audit.Sink
	closeAll := func() {
		for _, s := range sinks {
			_ = s.Close()
		}
	}

	if path != "" {
		fs, err := audit.OpenFile(path)
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, fs)
	}
	if dsn != "" {
		store, err := sqlstore.OpenSQLite(dsn)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("opening audit database: %w", err)
		}
		sinks = append(sinks, store)
	}
	if !opts.noBlob && cfg.Audit.BlobAccountURL != "" && cfg.Audit.BlobContainer != "" {
		bs, err := blobstore.New(cfg.Audit.BlobAccountURL, cfg.Audit.BlobContainer, "audit")
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("connecting audit blob container: %w", err)
		}
		sinks = append(sinks, bs)
	}

	// Continue an existing file log so decision history and the override
	// rate cover earlier runs.
	var prior []audit.Entry
	if path != "" {
		entries, err := audit.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			closeAll()
			return nil, nil, fmt.Errorf("reading existing audit log: %w", err)
		}
		prior = entries
	}

	log, err := audit.Resume(ctx, prior, sinks...)
	if err != nil {
		closeAll()
		return nil, nil, err
	}
	return log, log.Close, nil
}

// loadClaims reads claims, reporting and skipping invalid rows.
func loadClaims(path, rows string) ([]models.Claim, error) {
	claims, invalid, err := dataset.LoadClaims(path)
	if err != nil {
		return nil, fmt.Errorf("loading claims: %w", err)
	}
	for _, v := range invalid {
		slog.Warn("Skipping invalid claim row", "error", v)
	}
	if rows != "" {
		start, end, err := parseRows(rows)
		if err != nil {
			return nil, err
		}
		if claims, err = dataset.SelectRange(claims, start, end); err != nil {
			return nil, fmt.Errorf("invalid --rows %q: %w", rows, err)
		}
	}
	if len(claims) == 0 {
		return nil, fmt.Errorf("no valid claims in %s", path)
	}
	return claims, nil
}

// parseRows reads "START-END" or a single row number.
func parseRows(rows string) (start, end int, err error) {
	lo, hi, found := strings.Cut(rows, "-")
	if !found {
		hi = lo
	}
	if start, err = strconv.Atoi(strings.TrimSpace(lo)); err != nil {
		return 0, 0, fmt.Errorf("invalid --rows %q: want START-END", rows)
	}
	if end, err = strconv.Atoi(strings.TrimSpace(hi)); err != nil {
		return 0, 0, fmt.Errorf("invalid --rows %q: want START-END", rows)
	}
	return start, end, nil
}

// loadPolicies reads the policy directory. An empty path yields an empty
// directory, so every lookup misses.
func loadPolicies(path string) (*policy.Directory, error) {
	if path == "" {
		return policy.NewDirectory(nil), nil
	}
	dir, err := policy.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading policies: %w", err)
	}
	return dir, nil
}

// strategyDeps carries what strategies are built from.
type strategyDeps struct {
	cfg      config.Config
	policies *policy.Directory
	log      *audit.Log
	metrics  *telemetry.Metrics
	cache    *cache.Cache
}

// buildStrategies constructs the named strategies, each wrapped with panic
// recovery, the inference cache, auditing and telemetry. The returned
// function shuts down the model engine, if one was started.
func buildStrategies(ctx context.Context, names []string, deps strategyDeps) ([]strategy.Strategy, func(context.Context) error, error) {
	if len(names) == 0 {
		names = allStrategies
	}

	scorer := risk.NewScorer(deps.cfg.Risk)
	var engine execution.Engine
	shutdown := func(ctx context.Context) error {
		if engine == nil {
			return nil
		}
		return engine.Shutdown(ctx)
	}

	needsEngine := slices.ContainsFunc(names, func(n string) bool { return n != strategy.NameRuleBased })
	var vocab labels.Vocabulary
	if needsEngine {
		var err error
		if vocab, err = labels.FromConfig(deps.cfg.Labels); err != nil {
			return nil, nil, err
		}
		if engine, err = execution.New(deps.cfg.Engine); err != nil {
			return nil, nil, fmt.Errorf("creating %s engine: %w", deps.cfg.Engine.Type, err)
		}
		slog.Debug("Model engine ready", "engine", engine.Name(), "model", deps.cfg.Engine.Model)
	}

	out := make([]strategy.Strategy, 0, len(names))
	seen := map[string]bool{}
	for _, raw := range names {
		name := strings.TrimSpace(raw)
		if seen[name] {
			continue
		}
		seen[name] = true

		var s strategy.Strategy
		switch name {
		case strategy.NameRuleBased:
			s = strategy.NewRuleBased(scorer, triage.NewPolicy(deps.cfg.Triage))
		case strategy.NameSingleShot:
			s = strategy.NewSingleShot(engine, vocab, deps.cfg)
		case strategy.NameAgent:
			registry, err := tools.NewRegistry(deps.policies, scorer, deps.log)
			if err != nil {
				_ = shutdown(ctx)
				return nil, nil, fmt.Errorf("building agent tools: %w", err)
			}
			slog.Debug("Agent tools registered", "tools", registry.Names(), "policies", deps.policies.Len())
			s = strategy.NewAgent(engine, registry, vocab, deps.cfg)
		default:
			_ = shutdown(ctx)
			return nil, nil, fmt.Errorf("unknown strategy %q (available: %s)", name, strings.Join(allStrategies, ", "))
		}

		s = strategy.Guard(s)
		s = cache.Wrap(s, deps.cache)
		s = strategy.WithAudit(s, deps.log)
		s = telemetry.Instrument(s, deps.metrics)
		out = append(out, s)
	}
	return out, shutdown, nil
}

// openCache returns the inference cache when enabled by flag or config.
func openCache(cfg config.Config, flag bool) *cache.Cache {
	enabled := flag || (cfg.Cache.Enabled != nil && *cfg.Cache.Enabled)
	if !enabled {
		return nil
	}
	return cache.New(cfg.Cache.Dir)
}
