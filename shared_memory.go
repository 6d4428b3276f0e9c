// shared_memory.go - shared DDR region map for the raster/present pipeline
//
// Models the six physical regions of §6: FB_OUT, VIDEO_BUF, CMD_BUF,
// TEX_ATLAS, COLORMAP, SHARED_BRAM. Each region is backed by a plain Go
// slice by default (cacheable, test-friendly) or, when IE_MMAP_BACKING
// is set, an mmap'd region obtained through golang.org/x/sys/unix —
// modeling the non-cacheable PL-visible DDR windows described in §9.
// Address resolution mirrors machine_bus.go's IORegion range lookup:
// a read/write at an absolute address walks the region table to find
// the one whose [Base, Base+Size) contains it.
package main

import (
	"encoding/binary"
	"fmt"
)

// SharedRegion is one named, base-addressed slice of the physical map.
type SharedRegion struct {
	Name string
	Base uint32
	data []byte
	closer func() error
}

func (r *SharedRegion) Size() uint32 { return uint32(len(r.data)) }

// Bytes returns the region's backing slice for bulk copy operations
// (command builder flush, atlas upload) that must never touch the
// device memory one field at a time.
func (r *SharedRegion) Bytes() []byte { return r.data }

func (r *SharedRegion) contains(addr uint32) bool {
	return addr >= r.Base && addr < r.Base+r.Size()
}

func (r *SharedRegion) Close() error {
	if r.closer != nil {
		return r.closer()
	}
	return nil
}

// newSharedRegion allocates a region backed by mmap when requested and
// supported, falling back to a plain Go slice otherwise.
func newSharedRegion(name string, base, size uint32, mmapBacked bool) *SharedRegion {
	if mmapBacked {
		if data, closer, ok := newMmapBacking(size); ok {
			return &SharedRegion{Name: name, Base: base, data: data, closer: closer}
		}
	}
	return &SharedRegion{Name: name, Base: base, data: make([]byte, size)}
}

// SharedMemory is the PS/PL shared memory map: the six physical
// regions of §6, addressable both by name (for the owning component's
// bulk-copy fast path) and by absolute address (for register-level
// pointer resolution inside the coprocessor kernels).
type SharedMemory struct {
	FBOut     *SharedRegion
	VideoBuf  *SharedRegion
	CmdBuf    *SharedRegion
	TexAtlas  *SharedRegion
	Colormap  *SharedRegion
	SharedBRAM *SharedRegion

	regions []*SharedRegion
}

// NewSharedMemory builds the physical map using the given config's base
// addresses (§6, overridable via environment — see config.go).
func NewSharedMemory(cfg *Config) *SharedMemory {
	mmapBacked := cfg.MmapBacking
	sm := &SharedMemory{
		FBOut:      newSharedRegion("FB_OUT", cfg.FBOutBase, FB_OUT_SIZE, mmapBacked),
		VideoBuf:   newSharedRegion("VIDEO_BUF", cfg.VideoBufBase, VIDEO_BUF_SIZE, mmapBacked),
		CmdBuf:     newSharedRegion("CMD_BUF", cfg.CmdBufBase, MAX_COMMANDS*DRAW_CMD_BYTES, mmapBacked),
		TexAtlas:   newSharedRegion("TEX_ATLAS", cfg.TexAtlasBase, TEX_ATLAS_SIZE, mmapBacked),
		Colormap:   newSharedRegion("COLORMAP", cfg.ColormapBase, COLORMAP_REGION_LEN, mmapBacked),
		SharedBRAM: newSharedRegion("SHARED_BRAM", cfg.SharedBRAMBase, SHARED_BRAM_SIZE, mmapBacked),
	}
	sm.regions = []*SharedRegion{sm.FBOut, sm.VideoBuf, sm.CmdBuf, sm.TexAtlas, sm.Colormap, sm.SharedBRAM}
	return sm
}

// Close releases any mmap-backed regions. Safe to call on a plain-slice map.
func (sm *SharedMemory) Close() error {
	for _, r := range sm.regions {
		if err := r.Close(); err != nil {
			return err
		}
	}
	return nil
}

func (sm *SharedMemory) resolve(addr uint32) (*SharedRegion, uint32, bool) {
	for _, r := range sm.regions {
		if r.contains(addr) {
			return r, addr - r.Base, true
		}
	}
	return nil, 0, false
}

func (sm *SharedMemory) Read8(addr uint32) uint8 {
	r, off, ok := sm.resolve(addr)
	if !ok {
		return 0
	}
	return r.data[off]
}

func (sm *SharedMemory) Write8(addr uint32, v uint8) {
	r, off, ok := sm.resolve(addr)
	if !ok {
		return
	}
	r.data[off] = v
}

func (sm *SharedMemory) Read32(addr uint32) uint32 {
	r, off, ok := sm.resolve(addr)
	if !ok || off+4 > r.Size() {
		return 0
	}
	return binary.LittleEndian.Uint32(r.data[off : off+4])
}

func (sm *SharedMemory) Write32(addr uint32, v uint32) {
	r, off, ok := sm.resolve(addr)
	if !ok || off+4 > r.Size() {
		return
	}
	binary.LittleEndian.PutUint32(r.data[off:off+4], v)
}

// ReadBlock returns a copy of n bytes at absolute address addr, or nil
// if the range is not fully contained in a single region. Used by the
// raster/present kernels' burst reads (texture cache fill, colormap
// load), which always land on one region by construction.
func (sm *SharedMemory) ReadBlock(addr uint32, n int) []byte {
	r, off, ok := sm.resolve(addr)
	if !ok || uint64(off)+uint64(n) > uint64(r.Size()) {
		return nil
	}
	out := make([]byte, n)
	copy(out, r.data[off:off+uint32(n)])
	return out
}

// WriteBlock bulk-copies data to absolute address addr, the DMA_OUT
// write path.
func (sm *SharedMemory) WriteBlock(addr uint32, data []byte) error {
	r, off, ok := sm.resolve(addr)
	if !ok {
		return fmt.Errorf("shared memory: no region contains address %#x", addr)
	}
	return r.CopyInAt(data, off)
}

// CopyIn bulk-copies src into the named region at byte offset 0,
// the single-contiguous-copy path flush_batch relies on.
func (r *SharedRegion) CopyIn(src []byte) error {
	return r.CopyInAt(src, 0)
}

// CopyInAt bulk-copies src into the region at the given byte offset,
// the single-contiguous-copy path atlas upload relies on.
func (r *SharedRegion) CopyInAt(src []byte, offset uint32) error {
	if uint64(offset)+uint64(len(src)) > uint64(len(r.data)) {
		return fmt.Errorf("shared region %s: copy of %d bytes at offset %d exceeds capacity %d", r.Name, len(src), offset, len(r.data))
	}
	copy(r.data[offset:], src)
	return nil
}
