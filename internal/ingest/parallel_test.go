package ingest

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// writePack writes a pack with n rows whose ids are prefix + index.
func writePack(t *testing.T, dir, code, prefix string, n int) Pack {
	t.Helper()
	var b strings.Builder
	b.WriteString(sampleHeader)
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "d,s,%s%04d,n,%f,%f,,c,DISK,s,2001,GOOD,NGS,\n", prefix, i, 36+float64(i)*0.001, -86.0)
	}
	path := writeFile(t, dir, code+".csv", b.String())
	packs, err := ScanDir(filepath.Dir(path), false)
	if err != nil {
		t.Fatalf("ScanDir failed: %v", err)
	}
	for _, p := range packs {
		if p.Code == code {
			return p
		}
	}
	t.Fatalf("Pack %s not found", code)
	return Pack{}
}

func TestLoadPack(t *testing.T) {
	p := writePack(t, t.TempDir(), "TN", "TN", 5)

	loaded, err := LoadPack(p)
	if err != nil {
		t.Fatalf("LoadPack failed: %v", err)
	}
	if len(loaded.Points) != 5 {
		t.Fatalf("Expected 5 points, got %d", len(loaded.Points))
	}
	if loaded.Points[0].State != "TN" {
		t.Errorf("Expected empty state column to default to TN, got %q", loaded.Points[0].State)
	}
}

func TestLoadPacksParallelOrder(t *testing.T) {
	dir := t.TempDir()
	packs := []Pack{
		writePack(t, dir, "TN", "TN", 50),
		writePack(t, dir, "KY", "KY", 10),
		writePack(t, dir, "AL", "AL", 30),
	}

	var mu sync.Mutex
	var progress []int
	set, errs := LoadPacksParallel(context.Background(), packs, LoadOptions{
		Parallel: true,
		Workers:  3,
		Progress: func(loaded, total int) {
			mu.Lock()
			defer mu.Unlock()
			if total != 3 {
				t.Errorf("Expected total 3, got %d", total)
			}
			progress = append(progress, loaded)
		},
	})
	if len(errs) != 0 {
		t.Fatalf("Expected no errors, got %v", errs)
	}
	if len(set.Packs) != 3 {
		t.Fatalf("Expected 3 packs, got %d", len(set.Packs))
	}
	for i, code := range []string{"TN", "KY", "AL"} {
		if set.Packs[i].Pack.Code != code {
			t.Errorf("Position %d: expected %s, got %s", i, code, set.Packs[i].Pack.Code)
		}
	}
	if len(progress) != 3 || progress[2] != 3 {
		t.Errorf("Expected progress 1..3, got %v", progress)
	}

	points, dups := set.Points()
	if len(points) != 90 || dups != 0 {
		t.Errorf("Expected 90 points and no duplicates, got %d and %d", len(points), dups)
	}
}

func TestLoadPacksSkipErrors(t *testing.T) {
	dir := t.TempDir()
	good := writePack(t, dir, "TN", "TN", 3)
	bad := Pack{Code: "KY", Path: filepath.Join(dir, "missing.csv")}

	var log bytes.Buffer
	set, errs := LoadPacksParallel(context.Background(), []Pack{bad, good}, LoadOptions{
		Parallel:   true,
		SkipErrors: true,
		ErrorLog:   &log,
	})

	if len(errs) != 1 {
		t.Fatalf("Expected 1 error, got %d", len(errs))
	}
	if len(set.Packs) != 1 || set.Packs[0].Pack.Code != "TN" {
		t.Errorf("Expected only TN to load, got %+v", set.Packs)
	}
	if !strings.Contains(log.String(), "missing.csv") {
		t.Errorf("Expected error log to name the file, got %q", log.String())
	}
}

func TestLoadPacksStopOnError(t *testing.T) {
	dir := t.TempDir()
	bad := Pack{Code: "KY", Path: filepath.Join(dir, "missing.csv")}

	for _, parallel := range []bool{true, false} {
		set, errs := LoadPacksParallel(context.Background(), []Pack{bad, writePack(t, dir, "TN", "TN", 1)}, LoadOptions{
			Parallel:   parallel,
			SkipErrors: false,
		})
		if set != nil {
			t.Errorf("parallel=%v: expected nil set on failure", parallel)
		}
		if len(errs) != 1 {
			t.Errorf("parallel=%v: expected exactly 1 error, got %d", parallel, len(errs))
		}
	}
}

func TestLoadPacksSerialMatchesParallel(t *testing.T) {
	dir := t.TempDir()
	packs := []Pack{
		writePack(t, dir, "TN", "X", 20),
		writePack(t, dir, "KY", "X", 30), // overlaps TN's ids X0000..X0019
	}

	serial, _ := LoadPacksParallel(context.Background(), packs, LoadOptions{Parallel: false})
	parallel, _ := LoadPacksParallel(context.Background(), packs, LoadOptions{Parallel: true, Workers: 2})

	sp, sdups := serial.Points()
	pp, pdups := parallel.Points()
	if len(sp) != 30 || sdups != 20 {
		t.Errorf("Expected 30 unique points and 20 duplicates, got %d and %d", len(sp), sdups)
	}
	if len(pp) != len(sp) || pdups != sdups {
		t.Errorf("Parallel result differs: %d/%d vs %d/%d", len(pp), pdups, len(sp), sdups)
	}
	// First occurrence wins: X0000 comes from TN
	if sp[0].State != "TN" {
		t.Errorf("Expected first pack to win duplicates, got state %s", sp[0].State)
	}
}

func TestLoadPacksCancelled(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	set, errs := LoadPacksParallel(ctx, []Pack{writePack(t, dir, "TN", "TN", 1)}, DefaultLoadOptions())
	if set != nil || len(errs) != 1 {
		t.Errorf("Expected cancellation error, got set=%v errs=%v", set, errs)
	}
}

func TestLoadPacksEmpty(t *testing.T) {
	set, errs := LoadPacksParallel(context.Background(), nil, DefaultLoadOptions())
	if set == nil || len(set.Packs) != 0 || len(errs) != 0 {
		t.Errorf("Expected empty set, got %v %v", set, errs)
	}
}

func TestLoadPacksUsesCache(t *testing.T) {
	dir := t.TempDir()
	packs := []Pack{writePack(t, dir, "TN", "TN", 5)}
	cache := NewPackCache(0)
	opts := LoadOptions{Parallel: true, Cache: cache}

	LoadPacksParallel(context.Background(), packs, opts)
	LoadPacksParallel(context.Background(), packs, opts)

	stats := cache.Stats()
	if stats.Misses != 1 || stats.Hits != 1 {
		t.Errorf("Expected 1 miss and 1 hit, got %d and %d", stats.Misses, stats.Hits)
	}
}
