// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the litreview CLI.
package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/pdiddy/litreview/internal/config"
	"github.com/pdiddy/litreview/internal/observability"
	"github.com/pdiddy/litreview/internal/store"
	"github.com/pdiddy/litreview/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// Resolved once per invocation by PersistentPreRunE.
var (
	cfg      types.Config
	logger   zerolog.Logger
	registry *prometheus.Registry
	metrics  *observability.Metrics
)

// rootCmd is the base command for the litreview CLI.
var rootCmd = &cobra.Command{
	Use:   "litreview",
	Short: "Track a systematic literature review through the PRISMA flow",
	Long: `litreview keeps the paper database of a systematic literature review and
moves papers through the PRISMA 2020 lifecycle.

PDF acquisition is human-in-the-loop: "acquire list" exports the papers
awaiting a PDF together with the filename each download should be saved
under, and "acquire ingest" matches the files found in the PDF directory
back to their papers. "report" renders the PRISMA flow statistics.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentPreRunE = setup
	rootCmd.PersistentFlags().String("config", "", "config file (default: ./litreview.yaml or ~/.config/litreview/litreview.yaml)")
	rootCmd.PersistentFlags().String("env-file", ".env", "dotenv file loaded before configuration")
	rootCmd.PersistentFlags().String("secrets-dir", ".secrets", "directory of one-secret-per-file credentials")
	rootCmd.PersistentFlags().String("log-level", "", "override logging.level")
}

func setup(cmd *cobra.Command, args []string) error {
	flags := rootCmd.PersistentFlags()
	opts := config.Options{}
	opts.ConfigFile, _ = flags.GetString("config")
	opts.EnvFile, _ = flags.GetString("env-file")
	opts.SecretsDir, _ = flags.GetString("secrets-dir")

	v, src, err := config.New(opts)
	if err != nil {
		return err
	}
	if level, _ := flags.GetString("log-level"); level != "" {
		v.Set("logging.level", level)
	}
	cfg, err = config.Load(v)
	if err != nil {
		return err
	}

	logger = observability.NewLogger(cfg.Logging)
	if src.ConfigFile != "" {
		logger.Debug().Str("file", src.ConfigFile).Msg("using config file")
	}
	if src.EnvFile != "" {
		logger.Debug().Str("file", src.EnvFile).Msg("loaded env file")
	}
	if len(src.Secrets) > 0 {
		sort.Strings(src.Secrets)
		logger.Debug().Strs("secrets", src.Secrets).Msg("loaded secrets")
	}
	for _, w := range src.Warnings {
		logger.Warn().Err(w).Msg("secrets")
	}

	registry = prometheus.NewRegistry()
	metrics = observability.NewMetrics(registry, cfg.Metrics.Namespace)
	return nil
}

// openStore opens the configured paper store.
func openStore() (*store.Store, error) {
	st, err := store.Open(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("opening store %s: %w", cfg.Store.Path, err)
	}
	return st, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
