package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/beetlebugorg/benchmap/pkg/benchmap"
)

type mapView struct {
	region benchmap.Region
}

func (m *mapView) AddMarkers(points []benchmap.PointRecord) {}
func (m *mapView) RemoveMarkers(ids []string) {}

func (m *mapView) CurrentVisibleRegion() benchmap.Region {
	return m.region
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	view := &mapView{region: benchmap.Region{
		CenterLat: 36.0,
		CenterLon: -86.0,
		Span:      benchmap.Span{LatitudeDelta: 2, LongitudeDelta: 2},
	}}

	opts := benchmap.DefaultEngineOptions()
	opts.QuietInterval = 100 * time.Millisecond
	opts.AddCap = 500
	opts.OnRefresh = func(r benchmap.RefreshReport) {
		fmt.Printf("%-20s %-13s +%-4d -%-4d visible=%-5d deferred=%d\n",
			r.Reason, r.Mode, len(r.Delta.ToAdd), len(r.Delta.ToRemove), r.Visible, r.Delta.Deferred)
	}
	engine := benchmap.NewEngine(view, opts)
	go engine.Run(ctx)

	// 40,000 points on a 200x200 grid around the start region
	var points []benchmap.PointRecord
	for i := 0; i < 200; i++ {
		for j := 0; j < 200; j++ {
			points = append(points, benchmap.PointRecord{
				ID:        fmt.Sprintf("P%03d%03d", i, j),
				Latitude:  35.0 + float64(i)*0.01,
				Longitude: -87.0 + float64(j)*0.01,
			})
		}
	}

	loaded := engine.LoadAsync(ctx, func(context.Context) ([]benchmap.PointRecord, error) {
		return points, nil
	})
	if err := <-loaded; err != nil {
		log.Fatal(err)
	}

	post := func(fn func(*benchmap.Engine)) {
		if err := engine.Post(fn); err != nil {
			log.Fatal(err)
		}
	}

	// Zoomed out with a priority set: only priority points show.
	post(func(e *benchmap.Engine) { e.SetPriority([]string{"P100100", "P050150"}) })
	time.Sleep(200 * time.Millisecond)

	// Zoom in; the add cap spreads the work over several refreshes.
	post(func(e *benchmap.Engine) {
		view.region.Span = benchmap.Span{LatitudeDelta: 0.2, LongitudeDelta: 0.2}
		e.OnRegionChanged()
	})
	time.Sleep(time.Second)

	// A burst of small pans coalesces into one refresh.
	for i := 0; i < 10; i++ {
		post(func(e *benchmap.Engine) {
			view.region.CenterLon += 0.005
			e.OnRegionChanged()
		})
		time.Sleep(10 * time.Millisecond)
	}
	time.Sleep(300 * time.Millisecond)

	s := engine.Stats()
	fmt.Printf("\nRefreshes: %d  Added: %d  Removed: %d  Cap hits: %d\n", s.Refreshes, s.Added, s.Removed, s.CapHits)
}
