package cmd

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/fatih/color"

	"github.com/beetlebugorg/benchmap/pkg/benchmap"
)

var (
	addColor    = color.New(color.FgGreen).SprintFunc()
	removeColor = color.New(color.FgRed).SprintFunc()
	resetColor  = color.New(color.FgYellow, color.Bold).SprintFunc()
	dimColor    = color.New(color.Faint).SprintFunc()
)

// consoleSurface is a RenderSurface that keeps markers in memory and prints
// each refresh as one line. Marker calls arrive on the engine loop; the
// region and marker set are also read from the command goroutine, hence the
// lock.
type consoleSurface struct {
	out     io.Writer
	verbose bool

	mu      sync.Mutex
	region  benchmap.Region
	markers map[string]benchmap.PointRecord
}

func newConsoleSurface(out io.Writer, region benchmap.Region, verbose bool) *consoleSurface {
	return &consoleSurface{
		out:     out,
		verbose: verbose,
		region:  region,
		markers: make(map[string]benchmap.PointRecord),
	}
}

func (s *consoleSurface) AddMarkers(points []benchmap.PointRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range points {
		s.markers[p.Key()] = p
		if s.verbose {
			fmt.Fprintf(s.out, "  %s %s %.5f,%.5f %s\n", addColor("+"), p.ID, p.Latitude, p.Longitude, dimColor(p.Name))
		}
	}
}

func (s *consoleSurface) RemoveMarkers(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.markers, id)
		if s.verbose {
			fmt.Fprintf(s.out, "  %s %s\n", removeColor("-"), id)
		}
	}
}

func (s *consoleSurface) CurrentVisibleRegion() benchmap.Region {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.region
}

func (s *consoleSurface) setRegion(r benchmap.Region) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.region = r
}

// Len returns the number of markers on the surface.
func (s *consoleSurface) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.markers)
}

// Markers returns the markers on the surface ordered by id.
func (s *consoleSurface) Markers() []benchmap.PointRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]benchmap.PointRecord, 0, len(s.markers))
	for _, p := range s.markers {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// printReport writes a one-line summary of a refresh.
func printReport(w io.Writer, r benchmap.RefreshReport) {
	line := fmt.Sprintf("refresh %-16s %-13s %s %s visible=%d",
		r.Reason, r.Mode,
		addColor(fmt.Sprintf("+%d", len(r.Delta.ToAdd))),
		removeColor(fmt.Sprintf("-%d", len(r.Delta.ToRemove))),
		r.Visible)
	if r.Reset {
		line += " " + resetColor(fmt.Sprintf("reset(-%d)", r.ResetRemoved))
	}
	if r.Delta.Capped {
		line += fmt.Sprintf(" deferred=%d", r.Delta.Deferred)
	}
	fmt.Fprintf(w, "%s %s\n", line, dimColor(r.Duration))
}
