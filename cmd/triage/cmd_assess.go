package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/piyushigoyal/claimtriage/internal/models"
	"github.com/piyushigoyal/claimtriage/internal/orchestration"
	"github.com/piyushigoyal/claimtriage/internal/policy"
	"github.com/piyushigoyal/claimtriage/internal/spinner"
	"github.com/piyushigoyal/claimtriage/internal/strategy"
)

type assessOptions struct {
	root     *rootOptions
	policies string
	strategy string
	claims   []string
	rows     string
	auditLog string
	cache    bool
	jsonOut  bool
}

func newAssessCommand(root *rootOptions) *cobra.Command {
	opts := &assessOptions{root: root}
	cmd := &cobra.Command{
		Use:   "assess <claims.csv>",
		Short: "Decide severity and action for claims with one strategy",
		Long: `Run a single strategy over claims and print each decision. Ground truth
labels, if present, are ignored. Every decision is written to the audit log.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return assessCommandE(cmd, opts, args[0])
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.policies, "policies", "", "Policies CSV")
	f.StringVar(&opts.strategy, "strategy", strategy.NameRuleBased, "Strategy to use (rule_based, single_shot, agent)")
	f.StringArrayVar(&opts.claims, "claim", nil, "Only assess claims whose ID or type matches this glob (repeatable)")
	f.StringVar(&opts.rows, "rows", "", "Only assess valid claims START-END of the file (1-based, inclusive)")
	f.StringVar(&opts.auditLog, "audit-log", "", "Audit log file (default from config)")
	f.BoolVar(&opts.cache, "cache", false, "Cache model decisions between runs")
	f.BoolVar(&opts.jsonOut, "json", false, "Print decisions as JSON lines")

	return cmd
}

func assessCommandE(cmd *cobra.Command, opts *assessOptions, claimsPath string) error {
	cfg, err := opts.root.loadConfig()
	if err != nil {
		return err
	}
	claims, err := loadClaims(claimsPath, opts.rows)
	if err != nil {
		return err
	}
	claims, err = orchestration.FilterClaims(claims, opts.claims)
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

	ctx := cmd.Context()
	log, closeLog, err := openAuditLog(ctx, cfg, sinkOptions{path: opts.auditLog})
	if err != nil {
		return err
	}
	defer func() {
		if err := closeLog(context.Background()); err != nil {
			slog.Error("Flushing audit log failed", "error", err)
		}
	}()

	strategies, shutdown, err := buildStrategies(ctx, []string{opts.strategy}, strategyDeps{
		cfg:      cfg,
		policies: policies,
		log:      log,
		cache:    openCache(cfg, opts.cache),
	})
	if err != nil {
		return err
	}
	defer func() { _ = shutdown(context.Background()) }()
	s := strategies[0]

	out := cmd.OutOrStdout()
	showSpinner := !opts.jsonOut && spinner.Enabled(cmd.ErrOrStderr())
	failed := 0
	for i, c := range claims {
		stop := func() {}
		if showSpinner {
			stop = spinner.Start(cmd.ErrOrStderr(), fmt.Sprintf("Assessing %s (%d/%d) with %s", c.ID, i+1, len(claims), s.Name()))
		}
		d := s.ProcessClaim(ctx, c, lookupPolicy(ctx, policies, c))
		stop()
		if !d.Success {
			failed++
		}
		if opts.jsonOut {
			if err := json.NewEncoder(out).Encode(d); err != nil {
				return err
			}
			continue
		}
		printDecision(out, c, d)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d claims could not be decided and were escalated", failed, len(claims))
	}
	return nil
}

func lookupPolicy(ctx context.Context, dir *policy.Directory, c models.Claim) *models.Policy {
	p, err := dir.Lookup(ctx, c.PolicyID)
	if err != nil {
		if !errors.Is(err, policy.ErrNotFound) {
			slog.Warn("Policy lookup failed", "claim_id", c.ID, "error", err)
		}
		return nil
	}
	return p
}

func printDecision(w io.Writer, c models.Claim, d models.Decision) {
	icon := "✓"
	if !d.Success {
		icon = "✗"
	}
	fmt.Fprintf(w, "%s %s  %s  $%.2f\n", icon, c.ID, c.Type, c.Amount)
	fmt.Fprintf(w, "    Severity: %s   Action: %s", d.Severity, d.Action)
	if d.RiskScore != nil {
		fmt.Fprintf(w, "   Risk: %.3f", *d.RiskScore)
		if d.Risk != nil {
			fmt.Fprintf(w, " (%s)", d.Risk.Tier)
		}
	}
	fmt.Fprintln(w)
	if d.Risk != nil && len(d.Risk.Factors) > 0 {
		fmt.Fprintf(w, "    Factors: %s\n", strings.Join(d.Risk.Factors, "; "))
	}
	if d.Rationale != "" {
		fmt.Fprintf(w, "    %s\n", firstLine(d.Rationale))
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
