// perf_counters.go - process-wide perf counter record (§3, §4.6, §9)
//
// "Cyclic structure and global state" (§9): the perf record is
// process-wide mutable state, modeled as a single-owner structure with
// an atomic snapshot+reset primitive rather than scattered package
// globals, the same shape the teacher uses for its VSync/frame-index
// state in video_vga.go and video_compositor.go (atomic.Bool,
// atomic.Int64, atomic.Uint64 fields read/written without a mutex).
package main

import "sync/atomic"

// PerfSample is a point-in-time, zeroed-on-read snapshot of PerfCounters.
type PerfSample struct {
	QueuedColumns    uint64
	QueuedSpans      uint64
	FlushCount       uint64
	MidFrameFlushes  uint64
	MaxBatchSize     uint64
	AtlasUploadBytes uint64
	CmdUploadBytes   uint64

	CacheLookups      uint64
	CacheHits         uint64
	CacheMisses       uint64
	CacheFailedInserts uint64
	CacheWraps        uint64
	CacheEntries      uint64

	PLWaitNanos       uint64
	PresentScaleNanos uint64
}

// PerfCounters is the single owning instance of the process-wide counter
// set. Every queue/flush/cache/wait path bumps a counter here; the cost
// on hot paths is one atomic add.
type PerfCounters struct {
	queuedColumns    atomic.Uint64
	queuedSpans      atomic.Uint64
	flushCount       atomic.Uint64
	midFrameFlushes  atomic.Uint64
	maxBatchSize     atomic.Uint64
	atlasUploadBytes atomic.Uint64
	cmdUploadBytes   atomic.Uint64

	cacheLookups       atomic.Uint64
	cacheHits          atomic.Uint64
	cacheMisses        atomic.Uint64
	cacheFailedInserts atomic.Uint64
	cacheWraps         atomic.Uint64
	cacheEntries       atomic.Uint64

	plWaitNanos       atomic.Uint64
	presentScaleNanos atomic.Uint64
}

func NewPerfCounters() *PerfCounters { return &PerfCounters{} }

func (p *PerfCounters) AddQueuedColumn()       { p.queuedColumns.Add(1) }
func (p *PerfCounters) AddQueuedSpan()         { p.queuedSpans.Add(1) }
func (p *PerfCounters) AddFlush()              { p.flushCount.Add(1) }
func (p *PerfCounters) AddMidFrameFlush()      { p.midFrameFlushes.Add(1) }
func (p *PerfCounters) AddAtlasUploadBytes(n int) { p.atlasUploadBytes.Add(uint64(n)) }
func (p *PerfCounters) AddCmdUploadBytes(n int)   { p.cmdUploadBytes.Add(uint64(n)) }

func (p *PerfCounters) ObserveBatchSize(n int) {
	for {
		cur := p.maxBatchSize.Load()
		if uint64(n) <= cur {
			return
		}
		if p.maxBatchSize.CompareAndSwap(cur, uint64(n)) {
			return
		}
	}
}

func (p *PerfCounters) AddCacheLookup()       { p.cacheLookups.Add(1) }
func (p *PerfCounters) AddCacheHit()          { p.cacheHits.Add(1) }
func (p *PerfCounters) AddCacheMiss()         { p.cacheMisses.Add(1) }
func (p *PerfCounters) AddCacheFailedInsert() { p.cacheFailedInserts.Add(1) }
func (p *PerfCounters) AddCacheWrap()         { p.cacheWraps.Add(1) }

func (p *PerfCounters) SetCacheEntries(n int) { p.cacheEntries.Store(uint64(n)) }

func (p *PerfCounters) AddPLWaitNanos(n int64)       { p.plWaitNanos.Add(uint64(n)) }
func (p *PerfCounters) AddPresentScaleNanos(n int64) { p.presentScaleNanos.Add(uint64(n)) }

// SampleAndReset returns the accumulated counters and atomically zeros
// the record (cache entry count, a gauge rather than a counter, is left
// as-is — it reflects current cache occupancy, not accumulated events).
func (p *PerfCounters) SampleAndReset() PerfSample {
	return PerfSample{
		QueuedColumns:      p.queuedColumns.Swap(0),
		QueuedSpans:        p.queuedSpans.Swap(0),
		FlushCount:         p.flushCount.Swap(0),
		MidFrameFlushes:    p.midFrameFlushes.Swap(0),
		MaxBatchSize:       p.maxBatchSize.Swap(0),
		AtlasUploadBytes:   p.atlasUploadBytes.Swap(0),
		CmdUploadBytes:     p.cmdUploadBytes.Swap(0),
		CacheLookups:       p.cacheLookups.Swap(0),
		CacheHits:          p.cacheHits.Swap(0),
		CacheMisses:        p.cacheMisses.Swap(0),
		CacheFailedInserts: p.cacheFailedInserts.Swap(0),
		CacheWraps:         p.cacheWraps.Swap(0),
		CacheEntries:       p.cacheEntries.Load(),
		PLWaitNanos:        p.plWaitNanos.Swap(0),
		PresentScaleNanos:  p.presentScaleNanos.Swap(0),
	}
}
