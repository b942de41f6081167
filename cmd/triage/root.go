package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/piyushigoyal/claimtriage/internal/config"
)

var version = "dev"

type rootOptions struct {
	debug     bool
	logFormat string
	configDir string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "triage",
		Short: "Risk scoring, triage decisions and strategy evaluation for insurance claims",
		Long: `triage scores insurance claims for risk, assigns a severity and a handling
action, and records every decision in a tamper-evident audit log.

It can also evaluate several decision strategies (rule-based, single-shot
model, tool-using agent) against labelled claims and rank them.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "text", "Log format: text or json")
	cmd.PersistentFlags().StringVar(&opts.configDir, "config-dir", ".", "Directory to start the "+config.FileName+" search from")
	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return setupLogging(opts)
	}

	// Add subcommands
	cmd.AddCommand(newEvaluateCommand(opts))
	cmd.AddCommand(newAssessCommand(opts))
	cmd.AddCommand(newOverrideCommand(opts))
	cmd.AddCommand(newAuditCommand())
	cmd.AddCommand(newCompareCommand())
	cmd.AddCommand(newGenerateCommand())
	cmd.AddCommand(newCacheCommand(opts))

	return cmd
}

func setupLogging(opts *rootOptions) error {
	level := slog.LevelInfo
	if opts.debug {
		level = slog.LevelDebug
	}
	switch opts.logFormat {
	case "text", "":
		slog.SetLogLoggerLevel(level)
	case "json":
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	default:
		return fmt.Errorf("unsupported log format %q: must be text or json", opts.logFormat)
	}
	return nil
}

func (o *rootOptions) loadConfig() (config.Config, error) {
	cfg, err := config.Load(o.configDir)
	if err != nil {
		return config.Config{}, fmt.Errorf("loading configuration: %w", err)
	}
	return cfg, nil
}

func execute(args []string) error {
	rootCmd := newRootCommand()
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}
