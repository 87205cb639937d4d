package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/Shugur-Network/feedsync/internal/config"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	cfgFile string         // Path to custom config file (optional)
	cfg     *config.Config // Global reference to loaded configuration
)

// rootCmd defines the main CLI command for feedsync
var rootCmd = &cobra.Command{
	Use:   "feedsync",
	Short: "feedsync mirrors Nostr relays into a local feed store",
	Long:  `Subscribes to Nostr relays on behalf of one account, validates and persists what arrives, and serves paginated feeds from the local store.`,
	Example: `
  feedsync start --config /path/to/config.yaml
  feedsync feed home --size 20
  feedsync feed topic golang --until 1700000000
  feedsync config show`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}

		// .env is optional; FEEDSYNC_* variables may also come from the shell.
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to read .env: %w", err)
		}

		if cfgFile != "" {
			absPath, err := filepath.Abs(cfgFile)
			if err != nil {
				return fmt.Errorf("failed to resolve config path: %w", err)
			}
			cfgFile = absPath
		}

		var err error
		cfg, err = config.Load(cfgFile, nil)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		flags := cmd.Flags()
		if flags.Changed("account") {
			cfg.Account.Pubkey, _ = flags.GetString("account")
		}
		if flags.Changed("db-driver") {
			cfg.Database.Driver, _ = flags.GetString("db-driver")
		}
		if flags.Changed("db-dsn") {
			cfg.Database.DSN, _ = flags.GetString("db-dsn")
		}
		if flags.Changed("metrics-port") {
			cfg.Metrics.Port, _ = flags.GetInt("metrics-port")
		}
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		if err := cmd.Help(); err != nil {
			fmt.Fprintf(os.Stderr, "Error displaying help: %v\n", err)
		}
	},
}

// Execute runs the root command with the provided context
func Execute(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Path to custom config file (optional)")
	rootCmd.PersistentFlags().String("account", "", "Account public key, hex or npub")
	rootCmd.PersistentFlags().String("db-driver", "", "Database driver (pgx or sqlite3)")
	rootCmd.PersistentFlags().String("db-dsn", "", "Database DSN or sqlite file path")
	rootCmd.PersistentFlags().Int("metrics-port", 2112, "Port for Prometheus metrics and health")

	rootCmd.AddCommand(newStartCmd(), newFeedCmd(), newConfigCmd(), newVersionCmd())
}
