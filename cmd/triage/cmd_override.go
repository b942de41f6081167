package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/piyushigoyal/claimtriage/internal/audit"
	"github.com/piyushigoyal/claimtriage/internal/models"
	"github.com/piyushigoyal/claimtriage/internal/wizard"
)

type overrideOptions struct {
	root     *rootOptions
	claimID  string
	severity string
	action   string
	reason   string
	reviewer string
	auditLog string
}

func newOverrideCommand(root *rootOptions) *cobra.Command {
	opts := &overrideOptions{root: root}
	cmd := &cobra.Command{
		Use:   "override",
		Short: "Record a human override of a claim decision",
		Long: `Replace the latest automated decision for a claim with a reviewer's
severity and action. The original decision is read from the audit log and
both are recorded in a human_override entry.

When required flags are missing an interactive form collects them.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return overrideCommandE(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.claimID, "claim", "", "Claim ID")
	f.StringVar(&opts.severity, "severity", "", "New severity (low, medium, high, critical)")
	f.StringVar(&opts.action, "action", "", "New action (approve, investigate, deny, escalate)")
	f.StringVar(&opts.reason, "reason", "", "Why the decision is overridden")
	f.StringVar(&opts.reviewer, "reviewer", os.Getenv("USER"), "Reviewer name")
	f.StringVar(&opts.auditLog, "audit-log", "", "Audit log file (default from config)")

	return cmd
}

func overrideCommandE(cmd *cobra.Command, opts *overrideOptions) error {
	cfg, err := opts.root.loadConfig()
	if err != nil {
		return err
	}

	o := wizard.Override{
		ClaimID:  opts.claimID,
		Severity: models.Severity(opts.severity),
		Action:   models.Action(opts.action),
		Reason:   opts.reason,
		Reviewer: opts.reviewer,
	}
	if !o.Complete() {
		filled, err := wizard.RunOverrideForm(cmd.InOrStdin(), cmd.OutOrStdout(), o)
		if err != nil {
			return err
		}
		o = *filled
	}
	if err := o.Validate(); err != nil {
		return err
	}

	log, closeLog, err := openAuditLog(cmd.Context(), cfg, sinkOptions{path: opts.auditLog})
	if err != nil {
		return err
	}

	original, ok := log.LatestDecision(o.ClaimID)
	if !ok {
		_ = closeLog(context.Background())
		return fmt.Errorf("no recorded decision for claim %s; assess it first", o.ClaimID)
	}

	replacement := o.Apply(original)
	log.Append(audit.HumanOverride(o.ClaimID, original, replacement, o.Reason, o.Reviewer))

	if err := closeLog(cmd.Context()); err != nil {
		return fmt.Errorf("writing audit log: %w", err)
	}
	slog.Debug("Override recorded", "claim_id", o.ClaimID, "decision_id", replacement.ID)

	fmt.Fprintf(cmd.OutOrStdout(), "Override recorded for %s: %s/%s → %s/%s\n",
		o.ClaimID, original.Severity, original.Action, replacement.Severity, replacement.Action)
	return nil
}
