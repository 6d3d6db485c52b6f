package ingest

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/beetlebugorg/benchmap/pkg/benchmap"
)

// LoadedPack is a parsed state pack.
type LoadedPack struct {
	Pack    Pack
	Points  []benchmap.PointRecord
	Rows    int
	Skipped int
}

// PackSet is the result of loading several packs, in request order.
type PackSet struct {
	Packs []*LoadedPack
}

// LoadOptions controls parallel loading behavior and error handling.
type LoadOptions struct {
	// Parallel enables concurrent pack loading.
	Parallel bool

	// Workers is the number of concurrent loaders.
	// If 0, defaults to runtime.NumCPU(). Only used when Parallel is true.
	Workers int

	// SkipErrors keeps loading when a pack fails; failures are collected.
	// When false, the first error stops loading and is returned alone.
	SkipErrors bool

	// Progress is called after each pack is processed with the number of
	// packs done so far and the total. Calls are serialized.
	Progress func(loaded, total int)

	// ErrorLog receives one line per failed pack.
	ErrorLog io.Writer

	// Cache, if set, is consulted before parsing each pack.
	Cache *PackCache
}

// DefaultLoadOptions returns load options with sensible defaults.
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{
		Parallel:   true,
		Workers:    runtime.NumCPU(),
		SkipErrors: true,
	}
}

// LoadPack parses one pack from disk. Records whose state column is empty
// take the pack's code.
func LoadPack(p Pack) (*LoadedPack, error) {
	result, err := ReadFile(p.Path)
	if err != nil {
		return nil, err
	}
	for i := range result.Points {
		if result.Points[i].State == "" {
			result.Points[i].State = p.Code
		}
	}
	return &LoadedPack{
		Pack:    p,
		Points:  result.Points,
		Rows:    result.Rows,
		Skipped: result.Skipped,
	}, nil
}

// LoadPacksParallel loads packs concurrently with a bounded worker group.
//
// Results keep the order of packs regardless of completion order. With
// SkipErrors the returned set holds every pack that loaded and the slice
// holds one error per failure; without it the first failure cancels the
// remaining work and is returned alone with a nil set.
//
// Example:
//
//	set, errs := ingest.LoadPacksParallel(ctx, packs, ingest.LoadOptions{
//	    Parallel:   true,
//	    SkipErrors: true,
//	    Progress: func(loaded, total int) {
//	        fmt.Printf("\rLoading: %d/%d", loaded, total)
//	    },
//	})
func LoadPacksParallel(ctx context.Context, packs []Pack, opts LoadOptions) (*PackSet, []error) {
	if len(packs) == 0 {
		return &PackSet{Packs: []*LoadedPack{}}, nil
	}

	if !opts.Parallel {
		return loadPacksSerial(ctx, packs, opts)
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(packs) {
		workers = len(packs)
	}

	results := make([]*LoadedPack, len(packs))
	failures := make([]error, len(packs))

	var mu sync.Mutex
	done := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := range packs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			loaded, err := loadOne(packs[i], opts.Cache)

			mu.Lock()
			done++
			if opts.Progress != nil {
				opts.Progress(done, len(packs))
			}
			if err != nil {
				err = fmt.Errorf("%s: %w", packs[i].Path, err)
				if opts.ErrorLog != nil {
					fmt.Fprintf(opts.ErrorLog, "Error loading pack: %v\n", err)
				}
			}
			mu.Unlock()

			if err != nil {
				if !opts.SkipErrors {
					return err
				}
				failures[i] = err
				return nil
			}
			results[i] = loaded
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, []error{err}
	}
	if err := ctx.Err(); err != nil {
		return nil, []error{err}
	}

	set := &PackSet{Packs: make([]*LoadedPack, 0, len(packs))}
	var errs []error
	for i := range packs {
		if failures[i] != nil {
			errs = append(errs, failures[i])
			continue
		}
		if results[i] != nil {
			set.Packs = append(set.Packs, results[i])
		}
	}
	return set, errs
}

// loadPacksSerial loads packs one at a time (fallback when Parallel=false).
func loadPacksSerial(ctx context.Context, packs []Pack, opts LoadOptions) (*PackSet, []error) {
	set := &PackSet{Packs: make([]*LoadedPack, 0, len(packs))}
	var errs []error

	for i, p := range packs {
		if err := ctx.Err(); err != nil {
			return nil, []error{err}
		}

		loaded, err := loadOne(p, opts.Cache)
		if opts.Progress != nil {
			opts.Progress(i+1, len(packs))
		}
		if err != nil {
			err = fmt.Errorf("%s: %w", p.Path, err)
			if opts.ErrorLog != nil {
				fmt.Fprintf(opts.ErrorLog, "Error loading pack: %v\n", err)
			}
			if !opts.SkipErrors {
				return nil, []error{err}
			}
			errs = append(errs, err)
			continue
		}

		set.Packs = append(set.Packs, loaded)
	}

	return set, errs
}

func loadOne(p Pack, cache *PackCache) (*LoadedPack, error) {
	if cache == nil {
		return LoadPack(p)
	}
	return cache.Get(p, func() (*LoadedPack, error) {
		return LoadPack(p)
	})
}

// Points merges the packs' records in pack order. When an id appears in
// more than one pack the first occurrence wins; the number of dropped
// duplicates is returned.
func (s *PackSet) Points() ([]benchmap.PointRecord, int) {
	total := 0
	for _, lp := range s.Packs {
		total += len(lp.Points)
	}

	seen := make(map[string]struct{}, total)
	points := make([]benchmap.PointRecord, 0, total)
	dups := 0
	for _, lp := range s.Packs {
		for _, p := range lp.Points {
			key := p.Key()
			if _, ok := seen[key]; ok {
				dups++
				continue
			}
			seen[key] = struct{}{}
			points = append(points, p)
		}
	}
	return points, dups
}

// Skipped returns the number of rows rejected across all packs.
func (s *PackSet) Skipped() int {
	n := 0
	for _, lp := range s.Packs {
		n += lp.Skipped
	}
	return n
}
