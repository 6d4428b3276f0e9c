// atlas_manager.go - PS-side texture atlas bump allocator and pointer-offset cache (§3, §4.2)
//
// Grounded on the same "stable identity, bounded probe" shape as
// dynamic_atlas.go's BlockType->slot map, generalized from a small
// fixed-grid atlas to a 16 MiB bump allocator with open-addressed
// probing instead of a Go map, because the PL texture cache needs a
// plain byte offset rather than a map lookup on every column.
package main

import "sync"

// ptrCacheEntry is one slot of the bounded-probe hash table.
type ptrCacheEntry struct {
	occupied  bool
	sourceKey uint64
	size      uint32
	offset    uint32
}

// PointerOffsetCache maps (sourceKey, size) -> atlas offset with a
// bounded linear probe, a full second-pass scan on probe exhaustion,
// and a home-bucket-replace fallback that always succeeds (§4.2).
type PointerOffsetCache struct {
	entries []ptrCacheEntry
	count   int

	// Single-entry "last used" fast path for repeated consecutive lookups.
	lastKey    uint64
	lastSize   uint32
	lastOffset uint32
	lastValid  bool
}

func NewPointerOffsetCache() *PointerOffsetCache {
	return &PointerOffsetCache{entries: make([]ptrCacheEntry, PTR_CACHE_CAPACITY)}
}

// avalancheHash mixes a 64-bit pointer-ish key with a 32-bit size into
// a well-distributed 32-bit home bucket. A splitmix64-style avalanche:
// cheap, branch-free, and good enough that texture-lump addresses
// (which tend to cluster on allocator page boundaries) don't collapse
// into a handful of buckets.
func avalancheHash(key uint64, size uint32) uint32 {
	h := key ^ (uint64(size) * 0x9E3779B97F4A7C15)
	h ^= h >> 33
	h *= 0xFF51AFD7ED558CCD
	h ^= h >> 33
	h *= 0xC4CEB9FE1A85EC53
	h ^= h >> 33
	return uint32(h) & (PTR_CACHE_CAPACITY - 1)
}

// Lookup returns the cached offset for (sourceKey, size), if present.
func (c *PointerOffsetCache) Lookup(sourceKey uint64, size uint32) (uint32, bool) {
	if c.lastValid && c.lastKey == sourceKey && c.lastSize == size {
		return c.lastOffset, true
	}

	home := avalancheHash(sourceKey, size)
	for i := uint32(0); i < PTR_CACHE_PROBE_LIMIT; i++ {
		idx := (home + i) % PTR_CACHE_CAPACITY
		e := &c.entries[idx]
		if !e.occupied {
			return 0, false
		}
		if e.sourceKey == sourceKey && e.size == size {
			c.lastKey, c.lastSize, c.lastOffset, c.lastValid = sourceKey, size, e.offset, true
			return e.offset, true
		}
	}
	// Probe budget exhausted without a conclusive empty slot: fall
	// back to a full-table scan before giving up.
	for idx := range c.entries {
		e := &c.entries[idx]
		if e.occupied && e.sourceKey == sourceKey && e.size == size {
			c.lastKey, c.lastSize, c.lastOffset, c.lastValid = sourceKey, size, e.offset, true
			return e.offset, true
		}
	}
	return 0, false
}

// insertResult distinguishes a clean insert from a home-bucket replace,
// so the caller can bump the failed-insert counter appropriately.
type insertResult int

const (
	insertedEmpty insertResult = iota
	insertedViaReplace
)

// Insert records sourceKey/size -> offset. Returns insertedViaReplace
// when no empty slot was found within the probe budget or the
// second-pass scan, meaning an existing, unrelated mapping at the home
// bucket was evicted to guarantee forward progress (§4.2, §7).
func (c *PointerOffsetCache) Insert(sourceKey uint64, size, offset uint32) insertResult {
	home := avalancheHash(sourceKey, size)

	for i := uint32(0); i < PTR_CACHE_PROBE_LIMIT; i++ {
		idx := (home + i) % PTR_CACHE_CAPACITY
		e := &c.entries[idx]
		if !e.occupied {
			*e = ptrCacheEntry{occupied: true, sourceKey: sourceKey, size: size, offset: offset}
			c.count++
			c.lastKey, c.lastSize, c.lastOffset, c.lastValid = sourceKey, size, offset, true
			return insertedEmpty
		}
	}

	// Second pass: scan the whole table for any empty slot at all.
	for idx := range c.entries {
		e := &c.entries[idx]
		if !e.occupied {
			*e = ptrCacheEntry{occupied: true, sourceKey: sourceKey, size: size, offset: offset}
			c.count++
			c.lastKey, c.lastSize, c.lastOffset, c.lastValid = sourceKey, size, offset, true
			return insertedEmpty
		}
	}

	// Table saturated: replace the home bucket. Insert still succeeds.
	c.entries[home] = ptrCacheEntry{occupied: true, sourceKey: sourceKey, size: size, offset: offset}
	c.lastKey, c.lastSize, c.lastOffset, c.lastValid = sourceKey, size, offset, true
	return insertedViaReplace
}

func (c *PointerOffsetCache) Clear() {
	for i := range c.entries {
		c.entries[i] = ptrCacheEntry{}
	}
	c.count = 0
	c.lastValid = false
}

func (c *PointerOffsetCache) Count() int { return c.count }

// AtlasAllocator is a monotonically increasing 16-byte-aligned cursor
// into the texture atlas region. Wrapping resets it to zero and
// invalidates every atlas-bound cache in one coordinated step (§3).
type AtlasAllocator struct {
	cursor uint32
	size   uint32
}

func NewAtlasAllocator(size uint32) *AtlasAllocator {
	return &AtlasAllocator{size: size}
}

func align16(n uint32) uint32 {
	return (n + ATLAS_ALIGN - 1) &^ (ATLAS_ALIGN - 1)
}

// reserve returns the aligned offset for a payload of the given size,
// and whether the allocator wrapped to make room for it. A zero-size
// request landing exactly on the boundary does not wrap (§8 boundary case).
func (a *AtlasAllocator) reserve(size uint32) (offset uint32, wrapped bool) {
	aligned := align16(a.cursor)
	if aligned+size > a.size {
		a.cursor = 0
		aligned = 0
		wrapped = true
	}
	a.cursor = aligned + size
	return aligned, wrapped
}

func (a *AtlasAllocator) Reset() { a.cursor = 0 }

// AtlasManager combines the allocator and the pointer-offset cache
// behind the upload()/reset() contract of §4.2, exclusively owned by
// the command-builder component (§3 Ownership).
type AtlasManager struct {
	mu        sync.Mutex
	region    *SharedRegion
	allocator *AtlasAllocator
	cache     *PointerOffsetCache
	perf      *PerfCounters

	// onWrap fires after a coordinated wrap, reusing the colormap-load
	// path to clear the raster kernel's on-chip atlas-bound caches (§4.2).
	onWrap func()
}

func NewAtlasManager(region *SharedRegion, perf *PerfCounters) *AtlasManager {
	return &AtlasManager{
		region:    region,
		allocator: NewAtlasAllocator(region.Size()),
		cache:     NewPointerOffsetCache(),
		perf:      perf,
	}
}

// Upload returns the atlas offset for (sourceKey, size), copying
// payload into the atlas at the next aligned cursor position on a
// cache miss. payload's length must equal size.
func (m *AtlasManager) Upload(sourceKey uint64, payload []byte) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	size := uint32(len(payload))
	m.perf.AddCacheLookup()
	if offset, ok := m.cache.Lookup(sourceKey, size); ok {
		m.perf.AddCacheHit()
		return offset, nil
	}
	m.perf.AddCacheMiss()

	offset, wrapped := m.allocator.reserve(size)
	if wrapped {
		m.cache.Clear()
		m.perf.AddCacheWrap()
		if m.onWrap != nil {
			m.onWrap()
		}
	}

	if err := m.region.CopyInAt(payload, offset); err != nil {
		return 0, err
	}
	m.perf.AddAtlasUploadBytes(len(payload))

	if m.cache.Insert(sourceKey, size, offset) == insertedViaReplace {
		m.perf.AddCacheFailedInsert()
	}
	m.perf.SetCacheEntries(m.cache.Count())

	return offset, nil
}

// Reset performs the full level-transition reset (§4.2): cursor to
// zero, cache cleared, last-used fast path invalidated.
func (m *AtlasManager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.allocator.Reset()
	m.cache.Clear()
	m.perf.SetCacheEntries(0)
}

func (m *AtlasManager) SetOnWrap(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onWrap = fn
}
