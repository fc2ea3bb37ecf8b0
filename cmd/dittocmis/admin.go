package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/marmos91/dittocmis/internal/logger"
	"github.com/marmos91/dittocmis/pkg/config"
	"github.com/marmos91/dittocmis/pkg/gc"
	"github.com/spf13/cobra"
)

func newInitCommand(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a sample configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := a.configPath
			if path == "" {
				var err error
				if path, err = config.InitConfig(force); err != nil {
					return err
				}
			} else if err := config.InitConfigToPath(path, force); err != nil {
				return err
			}

			_, err := fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", path)
			return err
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing configuration file")
	return cmd
}

func newGCCommand(a *app) *cobra.Command {
	var (
		dryRun bool
		watch  bool
		minAge time.Duration
	)

	cmd := &cobra.Command{
		Use:   "gc",
		Short: "Delete content blobs no document references",
		Long: `Delete content blobs no document references.

Without --watch a single collection runs and its statistics are printed.
With --watch the collector runs every gc.interval until interrupted, and
the metrics server is started when metrics are enabled.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			if err := a.open(cmd.Context()); err != nil {
				return err
			}
			defer func() {
				if closeErr := a.close(); closeErr != nil && err == nil {
					err = closeErr
				}
			}()

			gcCfg := a.cfg.GC
			if cmd.Flags().Changed("dry-run") {
				gcCfg.DryRun = dryRun
			}
			if cmd.Flags().Changed("min-age") {
				gcCfg.MinAge = minAge
			}

			if watch {
				gcCfg.Enabled = true
				return a.watchGC(cmd, gcCfg)
			}

			collector, err := a.repo.NewCollector(gcCfg, a.metrics)
			if err != nil {
				return err
			}

			stats, err := collector.RunNow(a.principalContext(cmd.Context()))
			if err != nil {
				return err
			}
			return a.printStats(cmd, stats)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report orphans without deleting them")
	cmd.Flags().BoolVar(&watch, "watch", false, "Keep collecting periodically until interrupted")
	cmd.Flags().DurationVar(&minAge, "min-age", 0, "Keep unreferenced content younger than this (0 collects all)")
	return cmd
}

// watchGC runs the periodic collector, and the metrics server if enabled,
// until SIGINT or SIGTERM.
func (a *app) watchGC(cmd *cobra.Command, cfg gc.Config) error {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	collector, err := a.repo.NewCollector(cfg, a.metrics)
	if err != nil {
		return err
	}

	metricsErr := make(chan error, 1)
	if a.metrics.Server != nil {
		go func() {
			metricsErr <- a.metrics.Server.Start(ctx)
		}()
	}

	collector.Start()
	logger.Info("Garbage collector running every %s, press Ctrl+C to stop", cfg.Interval)

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case runErr = <-metricsErr:
		logger.Error("Metrics server stopped: %v", runErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := collector.Stop(shutdownCtx); err != nil {
		runErr = errors.Join(runErr, err)
	}
	if a.metrics.Server != nil {
		if err := a.metrics.Server.Stop(shutdownCtx); err != nil {
			runErr = errors.Join(runErr, err)
		}
	}
	return runErr
}

func (a *app) printStats(cmd *cobra.Command, stats *gc.Stats) error {
	if a.jsonOutput {
		orphaned := make([]string, 0, len(stats.Orphaned))
		for _, id := range stats.Orphaned {
			orphaned = append(orphaned, string(id))
		}
		return a.printJSON(cmd.OutOrStdout(), map[string]any{
			"referenced": stats.ReferencedCount,
			"existing":   stats.ExistingCount,
			"orphaned":   orphaned,
			"skipped":    stats.SkippedCount,
			"deleted":    stats.DeletedCount,
			"failed":     stats.FailedCount,
			"dryRun":     stats.DryRun,
			"duration":   stats.Duration().String(),
		})
	}

	w := cmd.OutOrStdout()
	if stats.DryRun {
		for _, id := range stats.Orphaned {
			fmt.Fprintf(w, "orphan %s\n", id)
		}
	}
	_, err := fmt.Fprintln(w, stats.Summary())
	return err
}
