package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/beetlebugorg/benchmap/pkg/benchmap"
)

var (
	queryView     View
	queryPriority []string
	queryList     bool
	queryJSON     bool
	queryFit      bool
)

// queryResult is the JSON form of a one-shot query.
type queryResult struct {
	Region  benchmap.Region        `json:"region"`
	Mode    string                 `json:"mode"`
	Visible int                    `json:"visible"`
	Capped  bool                   `json:"capped"`
	Markers []benchmap.PointRecord `json:"markers,omitempty"`
}

// queryCmd answers which markers one viewport shows
var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Show which markers a single viewport would display",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runQuery(cmd.Context(), cmd.OutOrStdout())
	},
}

func init() {
	queryCmd.Flags().Float64Var(&queryView.Lat, "lat", 0, "viewport center latitude")
	queryCmd.Flags().Float64Var(&queryView.Lon, "lon", 0, "viewport center longitude")
	queryCmd.Flags().Float64Var(&queryView.LatSpan, "span", 0.1, "viewport latitude span in degrees")
	queryCmd.Flags().Float64Var(&queryView.LonSpan, "lon-span", 0, "viewport longitude span (default same as --span)")
	queryCmd.Flags().StringSliceVar(&queryPriority, "priority", nil, "priority ids (default from data.priority_file)")
	queryCmd.Flags().BoolVarP(&queryList, "list", "l", false, "list the markers")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "print JSON")
	queryCmd.Flags().BoolVar(&queryFit, "fit", false, "center the viewport on the loaded data instead of --lat/--lon")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(ctx context.Context, out io.Writer) error {
	if queryView.LatSpan <= 0 {
		return fmt.Errorf("--span must be positive")
	}

	var last benchmap.RefreshReport
	surface := newConsoleSurface(io.Discard, queryView.Region(), false)
	s := newSession(ctx, surface, func(r benchmap.RefreshReport) { last = r })
	defer s.close()

	if _, err := s.load(ctx); err != nil {
		return err
	}
	if queryFit {
		if err := s.fit(ctx); err != nil {
			return err
		}
	}
	priority, err := readPriority(queryPriority)
	if err != nil {
		return err
	}
	if err := s.setPriority(ctx, priority); err != nil {
		return err
	}
	if err := s.settle(ctx); err != nil {
		return err
	}

	// last is written on the loop; settle's Call orders it before this read.
	res := queryResult{
		Region:  last.Region,
		Mode:    last.Mode.String(),
		Visible: surface.Len(),
		Capped:  s.engine.Stats().CapHits > 0,
	}
	if queryList || queryJSON {
		res.Markers = surface.Markers()
	}

	if queryJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	fmt.Fprintf(out, "%d markers (%s)\n", res.Visible, res.Mode)
	if queryList {
		for _, p := range res.Markers {
			fmt.Fprintf(out, "%-8s %10.5f %11.5f  %s\n", p.ID, p.Latitude, p.Longitude, p.Name)
		}
	}
	return nil
}
