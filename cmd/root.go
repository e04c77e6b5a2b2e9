// Package cmd defines the CLI commands of the ingestion binary.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	cfgFile string
	envFile string
}

// newRootCmd creates the root command and its subcommands.
func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "ccnews",
		Short: "Backfill CC-NEWS articles mentioning tracked companies.",
		Long: `ccnews streams CC-NEWS WARC samples listed in per-session manifests,
keeps English articles that mention one to three tracked companies, and
writes deduplicated Parquet partitions plus per-sample diagnostics.`,
		SilenceUsage: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return loadEnv(opts.envFile)
		},
	}
	cmd.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "config file (default ./ccnews.yaml, /etc/ccnews, $HOME/.ccnews)")
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before configuration")
	cmd.AddCommand(newRunCmd(opts))
	return cmd
}

// loadEnv loads a dotenv file without overriding the real environment. A
// missing file is ignored.
func loadEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Execute is the main entry point.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "ccnews:", err)
		stop()
		os.Exit(1)
	}
}
