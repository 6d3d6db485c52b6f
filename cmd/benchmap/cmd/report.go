package cmd

import (
	"fmt"
	"io"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/beetlebugorg/benchmap/internal/ingest"
	"github.com/beetlebugorg/benchmap/pkg/benchmap"
)

// LatencySummary describes refresh durations in milliseconds.
type LatencySummary struct {
	Count int     `json:"count"`
	Mean  float64 `json:"mean_ms"`
	P50   float64 `json:"p50_ms"`
	P90   float64 `json:"p90_ms"`
	P99   float64 `json:"p99_ms"`
	Max   float64 `json:"max_ms"`
}

// SimulationReport is the result of one simulate run.
type SimulationReport struct {
	Load      ingest.LoadStats `json:"load"`
	Steps     int              `json:"steps"`
	Refreshes int              `json:"refreshes"`
	Added     int              `json:"added"`
	Removed   int              `json:"removed"`
	CapHits   int              `json:"cap_hits"`
	Resets    int              `json:"resets"`
	Visible   int              `json:"visible"`
	Modes     map[string]int   `json:"modes"`
	Latency   LatencySummary   `json:"latency"`
	Elapsed   time.Duration    `json:"elapsed_ns"`
}

// summarizeLatency computes quantiles over refresh durations.
func summarizeLatency(reports []benchmap.RefreshReport) LatencySummary {
	if len(reports) == 0 {
		return LatencySummary{}
	}

	ms := make([]float64, len(reports))
	for i, r := range reports {
		ms[i] = float64(r.Duration.Microseconds()) / 1000
	}
	sort.Float64s(ms)

	return LatencySummary{
		Count: len(ms),
		Mean:  stat.Mean(ms, nil),
		P50:   stat.Quantile(0.5, stat.Empirical, ms, nil),
		P90:   stat.Quantile(0.9, stat.Empirical, ms, nil),
		P99:   stat.Quantile(0.99, stat.Empirical, ms, nil),
		Max:   ms[len(ms)-1],
	}
}

// buildReport folds refresh reports and engine stats into a summary.
func buildReport(load ingest.LoadStats, steps int, reports []benchmap.RefreshReport, stats benchmap.Stats, elapsed time.Duration) SimulationReport {
	modes := make(map[string]int)
	for _, r := range reports {
		modes[r.Mode.String()]++
	}
	return SimulationReport{
		Load:      load,
		Steps:     steps,
		Refreshes: stats.Refreshes,
		Added:     stats.Added,
		Removed:   stats.Removed,
		CapHits:   stats.CapHits,
		Resets:    stats.Resets,
		Visible:   stats.Visible,
		Modes:     modes,
		Latency:   summarizeLatency(reports),
		Elapsed:   elapsed,
	}
}

func (r SimulationReport) print(w io.Writer) {
	fmt.Fprintf(w, "\nPacks:      %d (%d points, %d rows skipped, %d duplicates, %d failed)\n",
		r.Load.Packs, r.Load.Points, r.Load.Skipped, r.Load.Duplicates, r.Load.Failed)
	fmt.Fprintf(w, "Steps:      %d in %v\n", r.Steps, r.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(w, "Refreshes:  %d (%s, %s)\n", r.Refreshes,
		addColor(fmt.Sprintf("+%d", r.Added)), removeColor(fmt.Sprintf("-%d", r.Removed)))
	fmt.Fprintf(w, "Cap hits:   %d\n", r.CapHits)
	fmt.Fprintf(w, "Resets:     %d\n", r.Resets)
	fmt.Fprintf(w, "Visible:    %d\n", r.Visible)

	names := make([]string, 0, len(r.Modes))
	for m := range r.Modes {
		names = append(names, m)
	}
	sort.Strings(names)
	for _, m := range names {
		fmt.Fprintf(w, "  %-14s %d\n", m, r.Modes[m])
	}

	l := r.Latency
	fmt.Fprintf(w, "Latency:    mean %.3fms  p50 %.3fms  p90 %.3fms  p99 %.3fms  max %.3fms\n",
		l.Mean, l.P50, l.P90, l.P99, l.Max)
}
