package main

import (
	"context"
	"fmt"
	"log"

	"github.com/beetlebugorg/benchmap/pkg/benchmap"
)

type mapView struct{}

func (mapView) AddMarkers(points []benchmap.PointRecord) {}
func (mapView) RemoveMarkers(ids []string) {}
func (mapView) CurrentVisibleRegion() benchmap.Region { return benchmap.Region{} }

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	engine := benchmap.NewEngine(mapView{}, benchmap.DefaultEngineOptions())
	go engine.Run(ctx)

	points := []benchmap.PointRecord{
		{ID: "HV4489", Latitude: 36.10, Longitude: -86.70, Name: "RESET 1", Marker: "DISK", LastRecoveredYear: 2011},
		{ID: "HV4490", Latitude: 36.10, Longitude: -86.70, Name: "RESET 2", Marker: "DISK"},
		{ID: "HV4488", Latitude: 36.10, Longitude: -86.70, Name: "AZ MK", Marker: "ROD", LastRecoveredYear: 1987},
	}

	var members []benchmap.PointRecord
	err := engine.Loop().Call(ctx, func() {
		engine.SetDataset(benchmap.Generation{}, points)

		// The renderer reports cluster members in any order, possibly with
		// ids it no longer has data for.
		members = engine.OnClusterTapped([]string{"hv4490", "HV4488", "GONE01", "HV4489"})
	})
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Cluster of %d:\n", len(members))
	for _, p := range members {
		year := "unknown"
		if p.LastRecoveredYear > 0 {
			year = fmt.Sprint(p.LastRecoveredYear)
		}
		fmt.Printf("  %s  %-8s %-5s last recovered %s\n", p.ID, p.Name, p.Marker, year)
	}

	if p, ok := engine.Lookup(" hv4489 "); ok {
		fmt.Printf("\nLookup: %s is %s\n", p.ID, p.Name)
	}
}
