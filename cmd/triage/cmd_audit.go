package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/piyushigoyal/claimtriage/internal/audit"
)

func newAuditCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect and verify the audit log",
	}
	cmd.AddCommand(newAuditQueryCommand())
	cmd.AddCommand(newAuditStatsCommand())
	cmd.AddCommand(newAuditVerifyCommand())
	return cmd
}

func newAuditQueryCommand() *cobra.Command {
	var (
		claimID   string
		entryType string
		decisions bool
		limit     int
	)
	cmd := &cobra.Command{
		Use:   "query <log.jsonl>",
		Short: "Print audit entries as JSON lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := replayFile(args[0])
			if err != nil {
				return err
			}

			var entries []audit.Entry
			if decisions {
				if claimID == "" {
					return fmt.Errorf("--decisions requires --claim")
				}
				entries = log.Decisions(claimID)
			} else {
				entries = log.Query(audit.Filter{Type: audit.EntryType(entryType), ClaimID: claimID})
			}
			if limit > 0 && len(entries) > limit {
				entries = entries[len(entries)-limit:]
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, e := range entries {
				if err := enc.Encode(e); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&claimID, "claim", "", "Only entries for this claim")
	cmd.Flags().StringVar(&entryType, "type", "", "Only entries of this type (tool_call, agent_step, human_override, evaluation_result, error)")
	cmd.Flags().BoolVar(&decisions, "decisions", false, "Only the decision history of --claim")
	cmd.Flags().IntVar(&limit, "limit", 0, "Print at most the last N entries")
	return cmd
}

func newAuditStatsCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "stats <log.jsonl>",
		Short: "Summarise processed claims, overrides and tool usage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := replayFile(args[0])
			if err != nil {
				return err
			}
			summary := log.Summary()
			tools := log.ToolCallStats()

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{"summary": summary, "tool_calls": tools, "entries": log.Len()})
			}

			avg := time.Duration(summary.AverageProcessingTime * float64(time.Second))
			fmt.Fprintf(out, "Entries:              %d\n", log.Len())
			fmt.Fprintf(out, "Claims processed:     %d\n", summary.TotalClaimsProcessed)
			fmt.Fprintf(out, "Avg processing time:  %v\n", avg.Round(time.Millisecond))
			fmt.Fprintf(out, "Human overrides:      %d\n", summary.TotalOverrides)
			fmt.Fprintf(out, "Override rate:        %.1f%%\n", summary.OverrideRate*100)
			fmt.Fprintf(out, "Tool calls:           %d\n", tools.Total)

			names := make([]string, 0, len(tools.ByTool))
			for name := range tools.ByTool {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Fprintf(out, "  %-20s %d\n", name, tools.ByTool[name])
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}

func newAuditVerifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <log.jsonl>",
		Short: "Check the audit log hash chain for tampering",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res := audit.Verify(args[0])
			if !res.Valid {
				if res.ErrorLine > 0 {
					return fmt.Errorf("audit log %s is invalid at line %d: %s", args[0], res.ErrorLine, res.Error)
				}
				return fmt.Errorf("audit log %s is invalid: %s", args[0], res.Error)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ %s: %d entries, hash chain intact\n", args[0], res.Lines)
			return nil
		},
	}
}

func replayFile(path string) (*audit.Log, error) {
	entries, err := audit.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return audit.Replay(entries), nil
}
