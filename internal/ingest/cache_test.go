package ingest

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/beetlebugorg/benchmap/pkg/benchmap"
)

func fakePack(code string, points int) (Pack, *LoadedPack) {
	p := Pack{Code: code, Path: "/packs/" + code + ".csv", Bytes: int64(points), ModTime: time.Unix(1700000000, 0)}
	loaded := &LoadedPack{Pack: p, Points: make([]benchmap.PointRecord, points)}
	for i := range loaded.Points {
		loaded.Points[i] = benchmap.PointRecord{ID: fmt.Sprintf("%s%04d", code, i)}
	}
	return p, loaded
}

func TestPackCacheBasic(t *testing.T) {
	cache := NewPackCache(1024 * 1024)
	p, loaded := fakePack("TN", 10)

	calls := 0
	loader := func() (*LoadedPack, error) {
		calls++
		return loaded, nil
	}

	got, err := cache.Get(p, loader)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != loaded {
		t.Error("Expected loader result on miss")
	}

	got, _ = cache.Get(p, loader)
	if got != loaded {
		t.Error("Expected cached pack on hit")
	}
	if calls != 1 {
		t.Errorf("Expected loader to run once, ran %d times", calls)
	}

	stats := cache.Stats()
	if stats.PackCount != 1 || stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
}

func TestPackCacheLRUEviction(t *testing.T) {
	_, one := fakePack("AA", 10)
	size := estimatePackMemory(one)

	// Room for two packs of this size
	cache := NewPackCache(size*2 + size/2)

	pa, la := fakePack("AA", 10)
	pb, lb := fakePack("BB", 10)
	pc, lc := fakePack("CC", 10)

	cache.Add(pa, la)
	cache.Add(pb, lb)

	// Touch AA so BB becomes least recently used
	cache.Get(pa, func() (*LoadedPack, error) { return nil, errors.New("unexpected load") })

	cache.Add(pc, lc)

	stats := cache.Stats()
	if stats.PackCount != 2 {
		t.Errorf("Expected 2 packs after eviction, got %d", stats.PackCount)
	}
	if stats.UsedMemory > stats.MaxMemory {
		t.Errorf("Used memory %d exceeds limit %d", stats.UsedMemory, stats.MaxMemory)
	}

	reloaded := false
	cache.Get(pb, func() (*LoadedPack, error) {
		reloaded = true
		return lb, nil
	})
	if !reloaded {
		t.Error("Expected BB to have been evicted")
	}
}

func TestPackCacheTooLarge(t *testing.T) {
	cache := NewPackCache(100)
	p, loaded := fakePack("TX", 100)

	if err := cache.Add(p, loaded); err == nil {
		t.Error("Expected error adding pack larger than cache")
	}

	got, err := cache.Get(p, func() (*LoadedPack, error) { return loaded, nil })
	if err != nil || got != loaded {
		t.Errorf("Expected oversized pack returned uncached, got %v %v", got, err)
	}
	if cache.Stats().PackCount != 0 {
		t.Error("Expected oversized pack not to be cached")
	}
}

func TestPackCacheModifiedFileMisses(t *testing.T) {
	cache := NewPackCache(0)
	p, loaded := fakePack("TN", 5)
	cache.Add(p, loaded)

	changed := p
	changed.ModTime = p.ModTime.Add(time.Second)

	missed := false
	cache.Get(changed, func() (*LoadedPack, error) {
		missed = true
		return loaded, nil
	})
	if !missed {
		t.Error("Expected a changed modification time to miss")
	}
}

func TestPackCacheLoaderError(t *testing.T) {
	cache := NewPackCache(0)
	p, _ := fakePack("TN", 1)
	boom := errors.New("boom")

	if _, err := cache.Get(p, func() (*LoadedPack, error) { return nil, boom }); !errors.Is(err, boom) {
		t.Errorf("Expected wrapped loader error, got %v", err)
	}
	if cache.Stats().PackCount != 0 {
		t.Error("Expected failed load not to be cached")
	}
}

func TestPackCacheRemoveAndClear(t *testing.T) {
	cache := NewPackCache(0)
	pa, la := fakePack("AA", 1)
	pb, lb := fakePack("BB", 1)
	cache.Add(pa, la)
	cache.Add(pb, lb)

	cache.Remove(pa.Path)
	if cache.Stats().PackCount != 1 {
		t.Errorf("Expected 1 pack after Remove, got %d", cache.Stats().PackCount)
	}

	cache.Clear()
	stats := cache.Stats()
	if stats.PackCount != 0 || stats.UsedMemory != 0 {
		t.Errorf("Expected empty cache after Clear, got %+v", stats)
	}
}
