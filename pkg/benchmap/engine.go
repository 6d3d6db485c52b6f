package benchmap

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// RenderSurface is the map view the engine keeps in sync. Implementations
// exist per platform; the engine depends only on this interface.
type RenderSurface interface {
	MarkerSink

	// CurrentVisibleRegion returns the area the user currently sees.
	CurrentVisibleRegion() Region
}

// RefreshReport describes one completed refresh.
type RefreshReport struct {
	Reason       Reason
	Region       Region
	Padded       Bounds
	Mode         Mode
	Delta        Delta
	Visible      int           // Tracked visible ids after the refresh
	Reset        bool          // The signature changed and tracked ids were dropped
	ResetRemoved int           // Markers removed by the reset
	Signature    Signature     // Signature the refresh ran against
	Duration     time.Duration // Wall time spent in the refresh
}

// Stats holds cumulative engine counters.
type Stats struct {
	Refreshes    int
	Added        int
	Removed      int
	CapHits      int
	Resets       int
	Visible      int
	DatasetSize  int
	PrioritySize int
	Generation   Generation
	LastReason   Reason
	LastDuration time.Duration
}

// Engine is the viewport-driven marker synchronization engine.
//
// The engine owns a Loop. SetDataset, SetPriority, OnRegionChanged,
// OnClusterTapped and Flush must be called on that loop (for example from
// inside a function passed to Loop.Post, or from the render surface's
// callbacks when the surface itself runs on the loop). VisibleCount and
// Stats may be called from any goroutine.
//
// Example:
//
//	engine := benchmap.NewEngine(surface, benchmap.DefaultEngineOptions())
//	go engine.Run(ctx)
//
//	engine.LoadAsync(ctx, func(ctx context.Context) ([]benchmap.PointRecord, error) {
//	    return loadPoints(ctx)
//	})
//
//	// From the renderer's region-changed callback, on the loop:
//	engine.OnRegionChanged()
type Engine struct {
	opts    EngineOptions
	surface RenderSurface
	log     *slog.Logger
	loop    *Loop

	policy     ViewportPolicy
	reconciler *Reconciler
	debouncer  *Debouncer
	resolver   *ClusterResolver

	dataset      *Dataset
	priority     PrioritySet
	priorityIDs  []string
	priorityHash uint64
	applied      Signature

	visible atomic.Int64
	mu      sync.Mutex
	stats   Stats
}

// NewEngine creates an engine that renders onto surface.
func NewEngine(surface RenderSurface, opts EngineOptions) *Engine {
	opts = opts.withDefaults()

	e := &Engine{
		opts:       opts,
		surface:    surface,
		log:        opts.Logger,
		loop:       opts.Loop,
		policy:     ViewportPolicy{Threshold: opts.ZoomThreshold},
		reconciler: NewReconciler(surface, opts.AddCap),
		dataset:    EmptyDataset(),
	}
	e.resolver = NewClusterResolver(e.dataset.Store())
	e.debouncer = NewDebouncer(opts.QuietInterval, opts.Scheduler, e.refresh)

	return e
}

// Loop returns the loop the engine must be driven from.
func (e *Engine) Loop() *Loop {
	return e.loop
}

// Run drives the engine loop until ctx is done.
func (e *Engine) Run(ctx context.Context) error {
	return e.loop.Run(ctx)
}

// Post queues fn to run on the engine loop with the engine as argument.
func (e *Engine) Post(fn func(*Engine)) error {
	return e.loop.Post(func() { fn(e) })
}

// SetDataset builds and installs a new dataset generation. If gen is the
// zero generation, one is computed from points. Building the spatial index
// happens on the calling goroutine; use LoadAsync for large datasets.
func (e *Engine) SetDataset(gen Generation, points []PointRecord) {
	e.InstallDataset(NewDataset(gen, points))
}

// InstallDataset swaps in a fully built dataset and schedules a refresh.
func (e *Engine) InstallDataset(ds *Dataset) {
	if ds == nil {
		ds = EmptyDataset()
	}
	e.dataset = ds
	e.resolver = NewClusterResolver(ds.Store())

	e.mu.Lock()
	e.stats.DatasetSize = ds.Len()
	e.stats.Generation = ds.Generation()
	e.mu.Unlock()

	e.log.Info("dataset installed",
		"points", ds.Len(),
		"skipped", ds.Skipped(),
		"generation", fmt.Sprintf("%d/%016x", ds.Generation().Count, ds.Generation().Hash))

	e.debouncer.Notify(ReasonDataset)
}

// LoadAsync runs load on a new goroutine, builds the dataset there, and
// installs it on the loop. If load fails the engine installs an empty
// dataset and keeps running. If ctx is done by the time the install reaches
// the loop, the current dataset is kept. The returned channel receives the
// load error (or nil) once the dataset is installed, then closes.
func (e *Engine) LoadAsync(ctx context.Context, load func(context.Context) ([]PointRecord, error)) <-chan error {
	done := make(chan error, 1)

	go func() {
		defer close(done)

		points, err := load(ctx)
		ds := EmptyDataset()
		if err != nil {
			e.log.Warn("dataset load failed; continuing with empty dataset", "error", err)
		} else {
			ds = NewDataset(Generation{}, points)
		}

		installed := make(chan struct{})
		if perr := e.loop.Post(func() {
			defer close(installed)
			if ctx.Err() != nil {
				return
			}
			e.InstallDataset(ds)
		}); perr != nil {
			done <- perr
			return
		}

		select {
		case <-installed:
			if err == nil {
				err = ctx.Err()
			}
			done <- err
		case <-e.loop.Done():
			done <- ErrLoopStopped
		case <-ctx.Done():
			done <- ctx.Err()
		}
	}()

	return done
}

// SetPriority replaces the priority set and schedules a refresh.
func (e *Engine) SetPriority(ids []string) {
	e.priority = NewPrioritySet(ids...)
	e.priorityIDs = e.priority.IDs()
	e.priorityHash = e.priority.Hash()

	e.mu.Lock()
	e.stats.PrioritySize = e.priority.Len()
	e.mu.Unlock()

	e.debouncer.Notify(ReasonPriority)
}

// OnRegionChanged is wired to the render surface's region-changed callback.
func (e *Engine) OnRegionChanged() {
	e.debouncer.Notify(ReasonRegion)
}

// OnClusterTapped returns the members of a tapped cluster ordered by id.
func (e *Engine) OnClusterTapped(memberIDs []string) []PointRecord {
	return e.resolver.Resolve(memberIDs)
}

// Lookup returns the point with id from the current dataset.
func (e *Engine) Lookup(id string) (PointRecord, bool) {
	return e.dataset.Store().Lookup(id)
}

// DatasetBounds returns the extent of the installed dataset, or the zero
// Bounds when it is empty.
func (e *Engine) DatasetBounds() Bounds {
	return e.dataset.Bounds()
}

// Flush runs a pending debounced refresh immediately. It reports whether a
// refresh ran.
func (e *Engine) Flush() bool {
	return e.debouncer.Flush()
}

// Pending reports whether a debounced refresh is waiting to run.
func (e *Engine) Pending() bool {
	return e.debouncer.Pending()
}

// VisibleCount returns the number of markers the engine believes are on the
// surface. Safe for concurrent use.
func (e *Engine) VisibleCount() int {
	return int(e.visible.Load())
}

// Stats returns a snapshot of the engine counters. Safe for concurrent use.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

// refresh is the debounced callback. It reads every input at fire time.
func (e *Engine) refresh(reason Reason) {
	start := time.Now()
	ds := e.dataset

	// A marker's decoration depends on the dataset and priority membership;
	// when either changed, everything on screen is stale.
	sig := Signature{Dataset: ds.Generation(), Priority: e.priorityHash}
	reset, resetRemoved := false, 0
	if sig != e.applied {
		stale := e.reconciler.Reset()
		if len(stale) > 0 {
			e.surface.RemoveMarkers(stale)
		}
		reset, resetRemoved = true, len(stale)
		e.applied = sig
	}

	region := e.surface.CurrentVisibleRegion()
	padded := region.PaddedBounds(e.opts.ViewportMargin)
	mode := e.policy.Mode(region.Span, e.priority.Len() > 0)
	pred := e.policy.Predicate(region.Span, e.priority)

	delta := e.reconciler.Refresh(e.eligible(mode, pred, ds, padded), padded)

	visible := e.reconciler.VisibleCount()
	e.visible.Store(int64(visible))

	report := RefreshReport{
		Reason:       reason,
		Region:       region,
		Padded:       padded,
		Mode:         mode,
		Delta:        delta,
		Visible:      visible,
		Reset:        reset,
		ResetRemoved: resetRemoved,
		Signature:    sig,
		Duration:     time.Since(start),
	}
	e.record(report)

	e.log.Debug("refresh",
		"reason", reason.String(),
		"mode", mode.String(),
		"added", len(delta.ToAdd),
		"removed", len(delta.ToRemove),
		"retained", delta.Retained,
		"deferred", delta.Deferred,
		"visible", visible,
		"duration", report.Duration)

	if delta.Capped && e.opts.DrainBacklog {
		e.debouncer.Notify(ReasonBacklog)
	}

	if e.opts.OnRefresh != nil {
		e.opts.OnRefresh(report)
	}
}

// eligible returns the points that pass pred. mode only picks where
// candidates come from; points outside padded are filtered again by the
// reconciler.
func (e *Engine) eligible(mode Mode, pred Predicate, ds *Dataset, padded Bounds) iter.Seq[PointRecord] {
	var candidates iter.Seq[PointRecord]
	switch mode {
	case ModeNone:
		return func(func(PointRecord) bool) {}

	case ModePriorityOnly:
		// Zoomed out the viewport is large and the priority set is small;
		// look priority points up directly instead of scanning the index.
		ids := e.priorityIDs
		store := ds.Store()
		candidates = func(yield func(PointRecord) bool) {
			for _, id := range ids {
				p, ok := store.Lookup(id)
				if !ok || !padded.ContainsPoint(p) {
					continue
				}
				if !yield(p) {
					return
				}
			}
		}

	default:
		candidates = ds.Index().Query(padded)
	}

	return func(yield func(PointRecord) bool) {
		for p := range candidates {
			if !pred(p) {
				continue
			}
			if !yield(p) {
				return
			}
		}
	}
}

func (e *Engine) record(r RefreshReport) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stats.Refreshes++
	e.stats.Added += len(r.Delta.ToAdd)
	e.stats.Removed += len(r.Delta.ToRemove) + r.ResetRemoved
	if r.Delta.Capped {
		e.stats.CapHits++
	}
	if r.Reset {
		e.stats.Resets++
	}
	e.stats.Visible = r.Visible
	e.stats.LastReason = r.Reason
	e.stats.LastDuration = r.Duration
}
