package benchmap

import (
	"log/slog"
	"time"
)

// DefaultViewportMargin is the fraction of the visible span added on each
// side of the viewport before querying, so small pans do not churn markers.
const DefaultViewportMargin = 0.3

// EngineOptions configures an Engine.
type EngineOptions struct {
	// ZoomThreshold is the latitude span in degrees at or above which only
	// priority points are shown. Default: 0.25
	ZoomThreshold float64

	// QuietInterval is the debounce delay after the last change before a
	// refresh runs. Default: 200ms
	QuietInterval time.Duration

	// ViewportMargin inflates the visible region by this fraction of its
	// span on each axis. Default: 0.3. Negative values are treated as zero.
	ViewportMargin float64

	// AddCap limits how many markers a single refresh adds. Default: 2500
	AddCap int

	// DrainBacklog schedules another refresh whenever one hits AddCap, so
	// deferred points appear without waiting for the user to pan.
	// Default: true
	DrainBacklog bool

	// Loop is the single thread the engine runs on. If nil, the engine
	// creates one; run it with Engine.Run.
	Loop *Loop

	// Scheduler delays debounced refreshes. If nil, Loop is used.
	Scheduler Scheduler

	// Logger receives debug and warning output. If nil, logging is
	// discarded.
	Logger *slog.Logger

	// OnRefresh is called on the loop after every refresh.
	OnRefresh func(RefreshReport)
}

// DefaultEngineOptions returns engine options with defaults.
func DefaultEngineOptions() EngineOptions {
	return EngineOptions{
		ZoomThreshold:  DefaultZoomThreshold,
		QuietInterval:  DefaultQuietInterval,
		ViewportMargin: DefaultViewportMargin,
		AddCap:         DefaultAddCap,
		DrainBacklog:   true,
	}
}

// withDefaults fills zero values that have no meaningful zero setting.
func (o EngineOptions) withDefaults() EngineOptions {
	if o.ZoomThreshold <= 0 {
		o.ZoomThreshold = DefaultZoomThreshold
	}
	if o.QuietInterval <= 0 {
		o.QuietInterval = DefaultQuietInterval
	}
	if o.ViewportMargin < 0 {
		o.ViewportMargin = 0
	}
	if o.AddCap <= 0 {
		o.AddCap = DefaultAddCap
	}
	if o.Loop == nil {
		o.Loop = NewLoop()
	}
	if o.Scheduler == nil {
		o.Scheduler = o.Loop
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	return o
}
