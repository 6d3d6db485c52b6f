package cmd

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/beetlebugorg/benchmap/pkg/benchmap"
)

var (
	simScript      string
	simJSON        bool
	simVerbose     bool
	simMetricsAddr string
	simHold        bool
)

// simulateCmd replays a viewport script against the engine
var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Replay a YAML viewport script and report refresh statistics",
	Long: `simulate loads the configured packs, then pans and zooms a console
render surface as described by a YAML script. Each refresh is printed as it
happens; a summary with latency quantiles follows.

Example script:

  priority: [AA1234]
  start: {lat: 36.16, lon: -86.78, lat_span: 2.0}
  steps:
    - zoom: 0.05
    - pan: {lat: 0.01, lon: 0.0}
      repeat: 10
      wait: 50ms
    - tap: [AA1234, AA1235]`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runSimulate(ctx, cmd.OutOrStdout())
	},
}

func init() {
	simulateCmd.Flags().StringVarP(&simScript, "script", "f", "", "viewport script (YAML)")
	simulateCmd.Flags().BoolVar(&simJSON, "json", false, "print the summary as JSON")
	simulateCmd.Flags().BoolVarP(&simVerbose, "verbose", "v", false, "print every marker added and removed")
	simulateCmd.Flags().StringVar(&simMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	simulateCmd.Flags().BoolVar(&simHold, "hold", false, "keep serving metrics after the script finishes")
	_ = simulateCmd.MarkFlagRequired("script")
	rootCmd.AddCommand(simulateCmd)
}

func runSimulate(ctx context.Context, out io.Writer) error {
	script, err := LoadScript(simScript)
	if err != nil {
		return err
	}
	if len(script.States) > 0 && len(stateList) == 0 {
		cfg.Data.States = script.States
	}
	if simMetricsAddr == "" {
		simMetricsAddr = cfg.Metrics.Addr
	}

	surface := newConsoleSurface(out, script.Start.Region(), simVerbose && !simJSON)
	var onRefresh func(benchmap.RefreshReport)
	if !simJSON {
		onRefresh = func(r benchmap.RefreshReport) { printReport(out, r) }
	}

	s := newSession(ctx, surface, onRefresh)
	defer s.close()

	if simMetricsAddr != "" {
		if _, err := s.serveMetrics(ctx, simMetricsAddr); err != nil {
			return fmt.Errorf("metrics listener: %w", err)
		}
	}

	start := time.Now()
	stats, loadErr := s.load(ctx)
	if loadErr != nil {
		log.Warn("continuing with empty dataset", "error", loadErr)
	}

	priority, err := readPriority(script.Priority)
	if err != nil {
		return err
	}
	if err := s.setPriority(ctx, priority); err != nil {
		return err
	}
	if err := s.settle(ctx); err != nil {
		return err
	}

	steps, err := runSteps(ctx, s, script, out, !simJSON)
	if err != nil {
		return err
	}
	if err := s.settle(ctx); err != nil {
		return err
	}

	report := buildReport(stats, steps, s.Reports(), s.engine.Stats(), time.Since(start))
	if simJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else {
		report.print(out)
	}

	if simHold && simMetricsAddr != "" {
		<-ctx.Done()
	}
	return nil
}

// runSteps executes every script step and returns how many ran.
func runSteps(ctx context.Context, s *session, script *Script, out io.Writer, echo bool) (int, error) {
	ran := 0
	for _, st := range script.Steps {
		for i := 0; i < st.Times(); i++ {
			if err := ctx.Err(); err != nil {
				return ran, err
			}
			if err := runStep(ctx, s, st, out, echo); err != nil {
				return ran, err
			}
			ran++

			if st.Wait > 0 {
				select {
				case <-time.After(st.Wait):
				case <-ctx.Done():
					return ran, ctx.Err()
				}
			}
		}
	}
	return ran, nil
}

func runStep(ctx context.Context, s *session, st Step, out io.Writer, echo bool) error {
	switch {
	case st.moves():
		return s.moveTo(ctx, st.Apply(s.surface.CurrentVisibleRegion()))

	case st.Priority != nil:
		return s.setPriority(ctx, st.Priority)

	case st.Tap != nil:
		members, err := s.tap(ctx, st.Tap)
		if err != nil {
			return err
		}
		if echo {
			fmt.Fprintf(out, "tap %d ids -> %d members\n", len(st.Tap), len(members))
			for _, m := range members {
				fmt.Fprintf(out, "  %s %s %s\n", m.ID, m.Name, dimColor(m.Marker))
			}
		}
		return nil

	case st.Settle:
		return s.settle(ctx)
	}
	return nil
}
