// Package benchmap keeps a map's survey-benchmark markers in sync with the
// viewport.
//
// This package is designed for map applications that show tens of thousands
// of points. It never redraws the full dataset: each refresh computes the
// minimal set of markers to add and remove for the current viewport, and
// refreshes are debounced against rapid pan and zoom events.
//
// # Basic Usage
//
//	engine := benchmap.NewEngine(surface, benchmap.DefaultEngineOptions())
//	go engine.Run(ctx)
//
//	engine.Post(func(e *benchmap.Engine) {
//	    e.SetDataset(benchmap.Generation{}, points)
//	    e.SetPriority([]string{"AB1234", "CD5678"})
//	})
//
// The surface implements RenderSurface and calls OnRegionChanged (on the
// engine loop) whenever the user pans or zooms.
//
// # Refresh Pipeline
//
// A refresh runs once the viewport has been quiet for QuietInterval:
//
//	// 1. Drop everything if the dataset or priority set changed
//	// 2. Inflate the visible region by ViewportMargin on each side
//	// 3. Choose eligible points with ViewportPolicy
//	//      zoomed in:                 every point
//	//      zoomed out, priority set:  priority points only
//	//      zoomed out, no priority:   nothing
//	// 4. Query the R-tree SpatialIndex for the padded rectangle
//	// 5. Reconciler diffs against the visible set and sends
//	//    RemoveMarkers then AddMarkers, at most AddCap additions per pass
//
// # Threading
//
// All engine state lives on a single Loop. Dataset loading may run on another
// goroutine (Engine.LoadAsync); the finished Dataset is swapped in on the loop,
// so a refresh never sees a half-built index.
//
// # Cluster Selection
//
// When the renderer groups markers into a cluster and the user taps it:
//
//	members := engine.OnClusterTapped(clusterIDs)
//	// members are sorted by id and stable across taps
//
// # Performance
//
// - Spatial index bulk loaded once per dataset generation
// - Viewport queries are O(log n + k) with the R-tree
// - Refresh work is bounded by the query size and AddCap
package benchmap
