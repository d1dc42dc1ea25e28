// Package cmd implements the undertow CLI command tree.
// This file defines the root command and registers all global persistent flags.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/undertow/internal/app"
	"github.com/derickschaefer/undertow/internal/config"
)

// globalFlags holds the parsed values of all persistent (global) flags.
// Commands read from this struct via the deps they receive.
var globalFlags struct {
	APIKey       string
	RefreshToken string
	Timeout      string
	Concurrency  int
	Rate         float64
	ListenAddr   string
	Debug        bool
}

// rootCmd is the base command. Running `undertow` with no subcommand
// prints help.
var rootCmd = &cobra.Command{
	Use:   "undertow",
	Short: "undertow — hidden-layoff early-warning indicator service",
	Long: `undertow pulls FRED and Indeed Hiring Lab data on a cron cadence,
computes a set of labor-market stress indicators, and publishes a
versioned snapshot for its HTTP API.

Get a free FRED API key at: https://fred.stlouisfed.org/docs/api/api_key.html

Quick start:
  undertow config init        # create a template config.json to fill in
  undertow refresh             # run one refresh cycle now
  undertow serve                # start the HTTP API and cron scheduler
  undertow status                # show recent run history`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called by main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// buildDeps resolves config, applies CLI flag overrides, and opens the
// store plus every collaborator. Callers must call deps.Close().
func buildDeps() (*app.Deps, error) {
	cfg, err := config.Load(globalFlags.APIKey, globalFlags.RefreshToken)
	if err != nil {
		return nil, err
	}

	cfg.Debug = globalFlags.Debug
	if cfg.Debug {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}
	if globalFlags.Timeout != "" {
		if d, err2 := time.ParseDuration(globalFlags.Timeout); err2 == nil {
			cfg.Timeout = d
		}
	}
	if globalFlags.Concurrency > 0 {
		cfg.Concurrency = globalFlags.Concurrency
	}
	if globalFlags.Rate > 0 {
		cfg.Rate = globalFlags.Rate
	}
	if globalFlags.ListenAddr != "" {
		cfg.ListenAddr = globalFlags.ListenAddr
	}

	return app.New(cfg)
}

func init() {
	pf := rootCmd.PersistentFlags()

	pf.StringVar(&globalFlags.APIKey, "api-key", "",
		"FRED API key (overrides env FRED_API_KEY and config.json)")
	pf.StringVar(&globalFlags.RefreshToken, "refresh-token", "",
		"shared secret required by POST /api/refresh (overrides env REFRESH_TOKEN)")
	pf.StringVar(&globalFlags.Timeout, "timeout", "",
		"HTTP request timeout (e.g. 12s, 30s); kept in the resolved config only, upstream fetches use a fixed 12s per-attempt timeout")
	pf.IntVar(&globalFlags.Concurrency, "concurrency", 0,
		"max parallel FRED series fetches (default: 8)")
	pf.Float64Var(&globalFlags.Rate, "rate", 0,
		"max FRED API requests per second (default: 5.0)")
	pf.StringVar(&globalFlags.ListenAddr, "listen", "",
		"HTTP listen address for `undertow serve` (default: :8080)")
	pf.BoolVar(&globalFlags.Debug, "debug", false,
		"log HTTP requests and responses (API key redacted)")
}
