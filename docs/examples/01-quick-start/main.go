package main

import (
	"context"
	"fmt"
	"log"

	"github.com/beetlebugorg/benchmap/pkg/benchmap"
)

// mapView stands in for a real map widget.
type mapView struct {
	region  benchmap.Region
	markers map[string]benchmap.PointRecord
}

func (m *mapView) AddMarkers(points []benchmap.PointRecord) {
	for _, p := range points {
		m.markers[p.Key()] = p
	}
}

func (m *mapView) RemoveMarkers(ids []string) {
	for _, id := range ids {
		delete(m.markers, id)
	}
}

func (m *mapView) CurrentVisibleRegion() benchmap.Region {
	return m.region
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	view := &mapView{
		// Downtown Nashville, zoomed in
		region: benchmap.Region{
			CenterLat: 36.16,
			CenterLon: -86.78,
			Span:      benchmap.Span{LatitudeDelta: 0.05, LongitudeDelta: 0.05},
		},
		markers: make(map[string]benchmap.PointRecord),
	}

	engine := benchmap.NewEngine(view, benchmap.DefaultEngineOptions())
	go engine.Run(ctx)

	points := []benchmap.PointRecord{
		{ID: "GF2165", Latitude: 36.1627, Longitude: -86.7816, Name: "CAPITOL"},
		{ID: "GF2170", Latitude: 36.1590, Longitude: -86.7760, Name: "BROADWAY"},
		{ID: "GF3001", Latitude: 35.0456, Longitude: -85.3097, Name: "CHATTANOOGA"},
	}

	// Engine state lives on its loop; Call runs there and waits.
	err := engine.Loop().Call(ctx, func() {
		engine.SetDataset(benchmap.Generation{}, points)
		engine.Flush()
	})
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Visible markers: %d\n", engine.VisibleCount())
	for id, p := range view.markers {
		fmt.Printf("  %s %s (%.4f, %.4f)\n", id, p.Name, p.Latitude, p.Longitude)
	}
}
