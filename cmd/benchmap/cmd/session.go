package cmd

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/beetlebugorg/benchmap/internal/ingest"
	"github.com/beetlebugorg/benchmap/internal/metrics"
	"github.com/beetlebugorg/benchmap/pkg/benchmap"
)

// session runs one engine on its own loop against a console surface.
type session struct {
	engine   *benchmap.Engine
	surface  *consoleSurface
	source   *ingest.Source
	registry *prometheus.Registry
	metrics  *metrics.Metrics

	mu      sync.Mutex
	reports []benchmap.RefreshReport

	cancel context.CancelFunc
	done   chan error
}

// newSession starts an engine configured from cfg. onRefresh, if set, runs
// on the engine loop after every refresh.
func newSession(ctx context.Context, surface *consoleSurface, onRefresh func(benchmap.RefreshReport)) *session {
	s := &session{
		surface:  surface,
		source:   cfg.Source(cfg.NewPackCache(), log),
		registry: prometheus.NewRegistry(),
		done:     make(chan error, 1),
	}
	s.metrics = metrics.New(s.registry)

	opts := cfg.EngineOptions(log)
	opts.OnRefresh = func(r benchmap.RefreshReport) {
		s.mu.Lock()
		s.reports = append(s.reports, r)
		s.mu.Unlock()

		s.metrics.Observe(r)
		if onRefresh != nil {
			onRefresh(r)
		}
	}
	s.engine = benchmap.NewEngine(surface, opts)

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	go func() {
		s.done <- s.engine.Run(runCtx)
	}()

	return s
}

// load reads the configured packs and installs them. A failed load leaves
// the engine with an empty dataset; the error is still returned.
func (s *session) load(ctx context.Context) (ingest.LoadStats, error) {
	var stats ingest.LoadStats
	errc := s.engine.LoadAsync(ctx, func(ctx context.Context) ([]benchmap.PointRecord, error) {
		points, st, err := s.source.Load(ctx)
		stats = st
		return points, err
	})
	err := <-errc
	s.metrics.ObserveLoad(stats, err)
	s.metrics.ObserveStats(s.engine.Stats())
	return stats, err
}

// call runs fn on the engine loop and waits for it.
func (s *session) call(ctx context.Context, fn func(*benchmap.Engine)) error {
	return s.engine.Loop().Call(ctx, func() { fn(s.engine) })
}

// settle runs pending refreshes immediately, including backlog drains,
// until nothing is waiting.
func (s *session) settle(ctx context.Context) error {
	for {
		ran := false
		if err := s.call(ctx, func(e *benchmap.Engine) { ran = e.Flush() }); err != nil {
			return err
		}
		if !ran {
			s.metrics.ObserveStats(s.engine.Stats())
			return nil
		}
	}
}

// moveTo changes the surface region and tells the engine.
func (s *session) moveTo(ctx context.Context, r benchmap.Region) error {
	return s.call(ctx, func(e *benchmap.Engine) {
		s.surface.setRegion(r)
		e.OnRegionChanged()
	})
}

// fit recenters the surface on the loaded dataset, keeping the current span.
func (s *session) fit(ctx context.Context) error {
	return s.call(ctx, func(e *benchmap.Engine) {
		if e.Stats().DatasetSize == 0 {
			return
		}
		r := s.surface.CurrentVisibleRegion()
		r.CenterLat, r.CenterLon = e.DatasetBounds().Center()
		s.surface.setRegion(r)
		e.OnRegionChanged()
	})
}

func (s *session) setPriority(ctx context.Context, ids []string) error {
	return s.call(ctx, func(e *benchmap.Engine) { e.SetPriority(ids) })
}

func (s *session) tap(ctx context.Context, ids []string) ([]benchmap.PointRecord, error) {
	var members []benchmap.PointRecord
	err := s.call(ctx, func(e *benchmap.Engine) { members = e.OnClusterTapped(ids) })
	return members, err
}

// Reports returns a copy of every refresh report so far.
func (s *session) Reports() []benchmap.RefreshReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]benchmap.RefreshReport(nil), s.reports...)
}

// close stops the engine loop.
func (s *session) close() {
	s.cancel()
	<-s.done
}

// serveMetrics exposes the session registry on addr until ctx is done.
// It returns the bound address, so ":0" picks a free port.
func (s *session) serveMetrics(ctx context.Context, addr string) (string, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(s.registry))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server stopped", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("serving metrics", "addr", ln.Addr().String())
	return ln.Addr().String(), nil
}

// readPriority returns ids from the flag list, or from the configured
// priority file when the list is empty.
func readPriority(ids []string) ([]string, error) {
	if len(ids) > 0 {
		return ids, nil
	}
	return ingest.ReadPriorityFile(cfg.Data.PriorityFile)
}
