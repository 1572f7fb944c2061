// Package cmd implements the ledgerctl commands.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"artifactlive.org/internal/config"
	"artifactlive.org/internal/obs"
	"artifactlive.org/internal/store"
)

var (
	envFile    string
	dsn        string
	sqlitePath string
	logLevel   string
	cfg        config.Config
)

var rootCmd = &cobra.Command{
	Use:   "ledgerctl",
	Short: "Operate the artifactlive ledger",
	Long: `ledgerctl manages the ledger database and inspects an owner's books.

Examples:
  ledgerctl migrate up
  ledgerctl --sqlite ./books.db provision --owner shop-a
  ledgerctl provision --owner shop-a
  ledgerctl report trial-balance --owner shop-a
  ledgerctl fees --price 100 --weight heavy
  ledgerctl smoke`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(envFile); err != nil {
			return err
		}
		if dsn == "" && sqlitePath == "" {
			dsn, sqlitePath = cfg.PGDSN, cfg.SQLitePath
		}
		level := cfg.LogLevel
		if logLevel != "" {
			level = logLevel
		}
		obs.Configure(os.Stderr, level)
		return nil
	},
}

// Execute runs the root command until it finishes or the process is
// interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", ".env file to load (default ./.env when present)")
	rootCmd.PersistentFlags().StringVar(&dsn, "dsn", "", "PostgreSQL DSN (default $"+config.EnvPGDSN+")")
	rootCmd.PersistentFlags().StringVar(&sqlitePath, "sqlite", "", "SQLite database file (default $"+config.EnvSQLitePath+")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(provisionCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(feesCmd)
	rootCmd.AddCommand(smokeCmd)
	rootCmd.AddCommand(healthCmd)
}

// backendOptions reflects the --dsn and --sqlite flags over the loaded config.
func backendOptions() store.Options {
	return store.Options{PGDSN: dsn, SQLitePath: sqlitePath, Pricing: cfg.Pricing}
}

// openBackend requires a database; commands that can run in memory call
// store.Open directly.
func openBackend(ctx context.Context) (*store.Backend, error) {
	if dsn == "" && sqlitePath == "" {
		return nil, fmt.Errorf("missing database: provide --dsn, --sqlite, %s or %s", config.EnvPGDSN, config.EnvSQLitePath)
	}
	return store.Open(ctx, backendOptions())
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
