package ingest

import (
	"container/list"
	"fmt"
	"sync"
	"time"
)

// PackCache keeps parsed packs in memory with LRU eviction.
//
// Toggling a state off and back on, or reloading after an unrelated file
// changed, then reuses the parsed records instead of re-reading the CSV.
// Entries are keyed by path, size and modification time, so an edited file
// always misses.
//
// Memory estimation is approximate, based on record count and string sizes.
//
// Example:
//
//	cache := ingest.NewPackCache(256 * 1024 * 1024) // 256MB limit
//
//	loaded, err := cache.Get(pack, func() (*ingest.LoadedPack, error) {
//	    return ingest.LoadPack(pack)
//	})
type PackCache struct {
	maxMemory  int64 // Maximum memory in bytes, 0 for unlimited
	usedMemory int64
	entries    map[string]*cacheEntry
	lru        *list.List // Most recent at front
	hits       int
	misses     int
	mu         sync.Mutex
}

type cacheEntry struct {
	key          string
	pack         *LoadedPack
	memorySize   int64
	element      *list.Element
	lastAccessed time.Time
	accessCount  int
}

// CacheStats holds cache counters.
type CacheStats struct {
	PackCount   int   // Number of packs currently cached
	UsedMemory  int64 // Estimated memory usage in bytes
	MaxMemory   int64 // Maximum memory limit in bytes
	TotalAccess int   // Accesses across all cached packs
	Hits        int
	Misses      int
}

// NewPackCache creates a cache with the given memory limit in bytes. Zero
// means unlimited.
func NewPackCache(maxMemoryBytes int64) *PackCache {
	return &PackCache{
		maxMemory: maxMemoryBytes,
		entries:   make(map[string]*cacheEntry),
		lru:       list.New(),
	}
}

// Get returns the cached parse of p, or calls loader and caches its result.
// A pack too large for the cache is returned without being cached.
func (c *PackCache) Get(p Pack, loader func() (*LoadedPack, error)) (*LoadedPack, error) {
	key := cacheKey(p)

	c.mu.Lock()
	if entry, ok := c.entries[key]; ok {
		entry.lastAccessed = time.Now()
		entry.accessCount++
		c.lru.MoveToFront(entry.element)
		c.hits++
		c.mu.Unlock()
		return entry.pack, nil
	}
	c.misses++
	c.mu.Unlock()

	loaded, err := loader()
	if err != nil {
		return nil, fmt.Errorf("load pack %s: %w", p.Code, err)
	}

	// Too large to cache is not an error for the caller
	_ = c.Add(p, loaded)
	return loaded, nil
}

// Add stores a parsed pack, evicting least-recently-used packs to make room.
func (c *PackCache) Add(p Pack, loaded *LoadedPack) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(p)
	if entry, ok := c.entries[key]; ok {
		c.usedMemory -= entry.memorySize
		entry.pack = loaded
		entry.memorySize = estimatePackMemory(loaded)
		entry.lastAccessed = time.Now()
		entry.accessCount++
		c.usedMemory += entry.memorySize
		c.lru.MoveToFront(entry.element)
		return nil
	}

	memSize := estimatePackMemory(loaded)
	if c.maxMemory > 0 && memSize > c.maxMemory {
		return fmt.Errorf("pack %s too large for cache (%d bytes > %d bytes max)",
			p.Code, memSize, c.maxMemory)
	}

	if c.maxMemory > 0 {
		for c.usedMemory+memSize > c.maxMemory && c.lru.Len() > 0 {
			c.evictLRU()
		}
	}

	entry := &cacheEntry{
		key:          key,
		pack:         loaded,
		memorySize:   memSize,
		lastAccessed: time.Now(),
		accessCount:  1,
	}
	entry.element = c.lru.PushFront(entry)
	c.entries[key] = entry
	c.usedMemory += memSize

	return nil
}

// evictLRU removes the least recently used pack. Must be called with c.mu
// locked.
func (c *PackCache) evictLRU() {
	elem := c.lru.Back()
	if elem == nil {
		return
	}

	entry := elem.Value.(*cacheEntry)
	c.lru.Remove(elem)
	delete(c.entries, entry.key)
	c.usedMemory -= entry.memorySize
}

// Remove drops every cached version of the pack at path.
func (c *PackCache) Remove(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, entry := range c.entries {
		if entry.pack != nil && entry.pack.Pack.Path == path {
			c.lru.Remove(entry.element)
			delete(c.entries, key)
			c.usedMemory -= entry.memorySize
		}
	}
}

// Clear removes all packs from the cache.
func (c *PackCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*cacheEntry)
	c.lru.Init()
	c.usedMemory = 0
}

// Stats returns cache statistics.
func (c *PackCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	totalAccess := 0
	for _, entry := range c.entries {
		totalAccess += entry.accessCount
	}

	return CacheStats{
		PackCount:   len(c.entries),
		UsedMemory:  c.usedMemory,
		MaxMemory:   c.maxMemory,
		TotalAccess: totalAccess,
		Hits:        c.hits,
		Misses:      c.misses,
	}
}

func cacheKey(p Pack) string {
	return fmt.Sprintf("%s|%d|%d", p.Path, p.Bytes, p.ModTime.UnixNano())
}

// estimatePackMemory approximates the in-memory size of a parsed pack:
// a fixed overhead per pack and per record plus the record's string data.
func estimatePackMemory(loaded *LoadedPack) int64 {
	if loaded == nil {
		return 0
	}

	size := int64(1024)
	for _, p := range loaded.Points {
		size += 256
		size += int64(len(p.ID) + len(p.Name) + len(p.Marker) + len(p.Setting) +
			len(p.LastCondition) + len(p.LastRecoveredBy) + len(p.DataDate) +
			len(p.DataSource) + len(p.OrthoHeight) + len(p.State) + len(p.County))
	}
	return size
}
