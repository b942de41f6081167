package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/piyushigoyal/claimtriage/internal/generate"
)

func newGenerateCommand() *cobra.Command {
	var (
		claims int
		seed   int64
		outDir string
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a synthetic labelled claims data set",
		Long: `Generate synthetic claims and their policies, labelled with ground-truth
severity and action. The same --seed always produces the same claims.

Writes claims.csv, policies.csv and manifest.yaml into --out-dir.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := generate.Options{Claims: claims, Seed: seed}
			ds, err := generate.Generate(opts)
			if err != nil {
				return err
			}
			if err := generate.Write(ds, opts, outDir); err != nil {
				return err
			}

			m := generate.NewManifest(ds, opts)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "✓ Saved %d claims to %s\n", m.Claims, filepath.Join(outDir, generate.ClaimsFile))
			fmt.Fprintf(out, "✓ Saved %d policies to %s\n", m.Policies, filepath.Join(outDir, generate.PoliciesFile))
			fmt.Fprintln(out, "\nSeverity distribution:")
			printDistribution(cmd, m.Severities)
			fmt.Fprintln(out, "\nAction distribution:")
			printDistribution(cmd, m.Actions)
			return nil
		},
	}
	cmd.Flags().IntVar(&claims, "claims", generate.DefaultClaims, "Number of claims to generate")
	cmd.Flags().Int64Var(&seed, "seed", 42, "Random seed")
	cmd.Flags().StringVar(&outDir, "out-dir", "data", "Output directory")
	return cmd
}

func printDistribution(cmd *cobra.Command, counts map[string]int) {
	for _, label := range sortedKeys(counts) {
		fmt.Fprintf(cmd.OutOrStdout(), "  %-12s %d\n", label, counts[label])
	}
}
