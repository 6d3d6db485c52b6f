package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/beetlebugorg/benchmap/pkg/benchmap"
)

// Source loads the enabled state packs from a directory into one point
// list. It is the loader handed to Engine.LoadAsync and re-run by the
// watcher whenever pack files change.
type Source struct {
	Dir      string
	Codes    []string // Enabled state codes; empty means every pack in Dir
	Strict   bool     // Only accept known state codes
	Manifest string   // Optional manifest.json path; packs are verified against it
	Options  LoadOptions
	Logger   *slog.Logger
}

// LoadStats summarizes one Source.Load.
type LoadStats struct {
	Packs      int
	Points     int
	Skipped    int // Rows rejected while parsing
	Duplicates int // Ids dropped because an earlier pack had them
	Failed     int // Packs that failed to verify or load
}

// Load scans Dir, verifies packs against the manifest when one is set, and
// loads the rest in parallel. Packs that fail are logged and left out; Load
// only returns an error when the directory cannot be read, a requested code
// does not exist, or every selected pack failed.
func (s *Source) Load(ctx context.Context) ([]benchmap.PointRecord, LoadStats, error) {
	var stats LoadStats
	log := s.logger()

	all, err := ScanDir(s.Dir, s.Strict)
	if err != nil {
		return nil, stats, err
	}
	packs, err := SelectPacks(all, s.Codes)
	if err != nil {
		return nil, stats, err
	}

	if s.Manifest != "" {
		m, err := ReadManifest(s.Manifest)
		if err != nil {
			return nil, stats, err
		}
		verified := packs[:0:0]
		for _, p := range packs {
			entry, err := m.Lookup(p.Code)
			if err == nil {
				err = VerifyPack(p, entry)
			}
			if err != nil {
				log.Warn("pack failed verification", "pack", p.Code, "error", err)
				stats.Failed++
				continue
			}
			verified = append(verified, p)
		}
		packs = verified
	}

	set, errs := LoadPacksParallel(ctx, packs, s.Options)
	for _, err := range errs {
		log.Warn("pack failed to load", "error", err)
	}
	if set == nil {
		return nil, stats, errors.Join(errs...)
	}
	stats.Failed += len(errs)

	points, dups := set.Points()
	stats.Packs = len(set.Packs)
	stats.Points = len(points)
	stats.Skipped = set.Skipped()
	stats.Duplicates = dups

	if len(set.Packs) == 0 && stats.Failed > 0 {
		return nil, stats, fmt.Errorf("no packs loaded from %s (%d failed)", s.Dir, stats.Failed)
	}

	log.Info("packs loaded",
		"packs", stats.Packs,
		"points", stats.Points,
		"skipped", stats.Skipped,
		"duplicates", stats.Duplicates,
		"failed", stats.Failed)

	return points, stats, nil
}

// LoadFunc adapts Load to the loader signature Engine.LoadAsync expects.
func (s *Source) LoadFunc() func(context.Context) ([]benchmap.PointRecord, error) {
	return func(ctx context.Context) ([]benchmap.PointRecord, error) {
		points, _, err := s.Load(ctx)
		return points, err
	}
}

func (s *Source) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return s.Logger
}
