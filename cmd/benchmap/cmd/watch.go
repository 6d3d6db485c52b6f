package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/beetlebugorg/benchmap/internal/ingest"
	"github.com/beetlebugorg/benchmap/internal/watcher"
	"github.com/beetlebugorg/benchmap/pkg/benchmap"
)

var (
	watchView    View
	watchPoll    bool
	watchMetrics string
)

// watchCmd keeps one viewport live while packs change on disk
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Hold a viewport open and reload when packs or the priority file change",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runWatch(ctx, cmd.OutOrStdout())
	},
}

func init() {
	watchCmd.Flags().Float64Var(&watchView.Lat, "lat", 0, "viewport center latitude")
	watchCmd.Flags().Float64Var(&watchView.Lon, "lon", 0, "viewport center longitude")
	watchCmd.Flags().Float64Var(&watchView.LatSpan, "span", 0.1, "viewport latitude span in degrees")
	watchCmd.Flags().BoolVar(&watchPoll, "poll", false, "poll instead of using filesystem events")
	watchCmd.Flags().StringVar(&watchMetrics, "metrics-addr", "", "serve Prometheus metrics on this address")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(ctx context.Context, out io.Writer) error {
	if watchView.LatSpan <= 0 {
		return fmt.Errorf("--span must be positive")
	}
	if watchMetrics == "" {
		watchMetrics = cfg.Metrics.Addr
	}

	surface := newConsoleSurface(out, watchView.Region(), false)
	s := newSession(ctx, surface, func(r benchmap.RefreshReport) { printReport(out, r) })
	defer s.close()

	if watchMetrics != "" {
		if _, err := s.serveMetrics(ctx, watchMetrics); err != nil {
			return fmt.Errorf("metrics listener: %w", err)
		}
	}

	reload := func() {
		if _, err := s.load(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Warn("reload failed", "error", err)
		}
		priority, err := ingest.ReadPriorityFile(cfg.Data.PriorityFile)
		if err != nil {
			log.Warn("priority file unreadable", "path", cfg.Data.PriorityFile, "error", err)
			return
		}
		if err := s.setPriority(ctx, priority); err != nil && !errors.Is(err, context.Canceled) {
			log.Warn("set priority failed", "error", err)
		}
	}
	reload()

	w, err := watcher.New(cfg.Data.PacksDir,
		watcher.WithFiles(cfg.Data.PriorityFile, cfg.Data.Manifest),
		watcher.WithPollInterval(cfg.Data.PollInterval),
		watcher.WithForcePoll(watchPoll),
		watcher.WithOnError(func(err error) { log.Warn("watcher", "error", err) }),
	)
	if err != nil {
		return err
	}
	if err := w.Start(); err != nil {
		return fmt.Errorf("watch %s: %w", cfg.Data.PacksDir, err)
	}
	defer w.Stop()

	log.Info("watching packs", "dir", w.Dir(), "polling", w.IsPolling())

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.Changed():
			log.Info("pack change detected, reloading")
			reload()
		}
	}
}
