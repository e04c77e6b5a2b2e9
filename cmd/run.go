package cmd

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/ccnews-ingest/internal/app"
	"github.com/JakeFAU/ccnews-ingest/internal/config"
	"github.com/JakeFAU/ccnews-ingest/internal/dispatcher"
	"github.com/JakeFAU/ccnews-ingest/internal/logging"
)

// runner is the part of *app.App the run command drives.
type runner interface {
	Run(ctx context.Context, year int) (dispatcher.Summary, error)
	Close(ctx context.Context)
}

// newApp is the application factory. It's a variable so tests can swap it.
var newApp = func(ctx context.Context, cfg config.Config, bucket string, logger *zap.Logger) (runner, error) {
	return app.New(ctx, cfg, bucket, logger)
}

const closeTimeout = 30 * time.Second

func newRunCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run <year> <bucket> [log_level]",
		Short: "Backfill every trading date of a year",
		Long: `Reads the trading calendar for <year>, then processes each month in
parallel. Manifests are read from and outputs written to <bucket>.
log_level is one of DEBUG, INFO, WARNING, ERROR (default INFO).`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBackfill(cmd.Context(), opts, args)
		},
	}
}

func runBackfill(ctx context.Context, opts *rootOptions, args []string) error {
	year, err := strconv.Atoi(args[0])
	if err != nil || year < 1 {
		return fmt.Errorf("invalid year %q", args[0])
	}
	bucket := args[1]
	level := ""
	if len(args) == 3 {
		level = args[2]
	}

	cfg, err := config.Load(opts.cfgFile)
	if err != nil {
		return err
	}
	logger, err := logging.New(level, cfg.Logging.Development)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cfg, bucket, logger)
	if err != nil {
		_ = logger.Sync() //nolint:errcheck // best-effort flush
		return fmt.Errorf("initialize services: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		a.Close(closeCtx)
	}()

	summary, err := a.Run(ctx, year)
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		logger.Warn("Some months failed", zap.String("event", "run_partial"), zap.Int("months_failed", summary.Failed))
	}
	return nil
}
