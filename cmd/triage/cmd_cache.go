package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/piyushigoyal/claimtriage/internal/cache"
)

func newCacheCommand(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the model decision cache",
		Long: `Manage the model decision cache.

The cache stores decisions from the single_shot and agent strategies so a
repeated evaluation of the same claims does not call the model again. Entries
are keyed by strategy, model, claim and policy content.`,
	}
	cmd.AddCommand(newCacheClearCommand(root))
	return cmd
}

func newCacheClearCommand(root *rootOptions) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached decision",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if dir == "" {
				cfg, err := root.loadConfig()
				if err != nil {
					return err
				}
				dir = cfg.Cache.Dir
			}
			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving cache directory: %w", err)
			}
			if err := cache.New(absDir).Clear(); err != nil {
				return fmt.Errorf("clearing cache: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cache cleared: %s\n", absDir)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "cache-dir", "", "Cache directory to clear (default from config)")
	return cmd
}
