// raster_kernel.go - PL raster kernel: on-chip BRAM, caches, DMA (§4.3)
//
// Register dispatch mirrors CoprocessorManager.HandleWrite/dispatchCmd
// (coprocessor_manager.go): writing KREG_CONTROL with the START bit
// set triggers mode dispatch exactly like writing COPROC_CMD triggers
// dispatchCmd, and the actual kernel work runs through the shared
// CoprocKernel state machine (coproc_kernel.go) instead of a direct
// synchronous call, so wait_for_batch's fence has something to poll.
package main

import (
	"context"
	"sync"
)

type texCacheLine struct {
	valid bool
	tag   uint32 // tex_off of the column currently resident
	data  [COLUMN_BYTES]byte
}

type flatCacheLine struct {
	valid bool
	tag   uint32 // tex_off of the flat currently resident
	data  [FLAT_BYTES]byte
}

// rasterRegisters is the register-level half of RasterKernel, kept in
// its own struct purely for clarity; there is exactly one instance,
// embedded directly.
type rasterRegisters struct {
	fbPtr       uint32
	texAtlasPtr uint32
	colormapPtr uint32
	cmdSrcPtr   uint32
	mode        uint32
	numCommands uint32
}

// RasterKernel implements the PL raster kernel of §4.3: indexed
// column/span drawing with colormap lighting, an on-chip framebuffer,
// and a direct-mapped texture column cache plus a single-slot flat cache.
type RasterKernel struct {
	*CoprocKernel

	mem     *SharedMemory
	cfg     *Config
	backend RasterBackend
	perf    *PerfCounters

	mu  sync.Mutex
	reg rasterRegisters

	colormap [COLORMAP_SIZE]byte
	fb       [SCREEN_PIXELS]byte
	texCache [TEX_CACHE_LINES]texCacheLine
	flat     flatCacheLine
}

func NewRasterKernel(mem *SharedMemory, cfg *Config, perf *PerfCounters) *RasterKernel {
	return &RasterKernel{
		CoprocKernel: NewCoprocKernel("raster", perf),
		mem:          mem,
		cfg:          cfg,
		backend:      selectRasterBackend(cfg.RasterBackend),
		perf:         perf,
	}
}

// HandleWrite is the AXI-Lite-like register write path (§6). Writing
// KREG_CONTROL with KCTL_START set dispatches the current KREG_MODE.
func (k *RasterKernel) HandleWrite(addr uint32, val uint32) {
	off := addr - k.cfg.RasterBase
	k.mu.Lock()
	switch off {
	case KREG_FB_PTR_LO:
		k.reg.fbPtr = val
	case KREG_TEX_ATLAS_PTR:
		k.reg.texAtlasPtr = val
	case KREG_COLORMAP_PTR:
		k.reg.colormapPtr = val
	case KREG_CMD_SRC_PTR:
		k.reg.cmdSrcPtr = val
	case KREG_MODE:
		k.reg.mode = val
	case KREG_NUM_COMMANDS:
		k.reg.numCommands = val
	}
	start := off == KREG_CONTROL && val&KCTL_START != 0
	reg := k.reg
	k.mu.Unlock()
	if start {
		k.dispatch(reg)
	}
}

// HandleRead is the AXI-Lite-like register read path (§6).
func (k *RasterKernel) HandleRead(addr uint32) uint32 {
	off := addr - k.cfg.RasterBase
	if off == KREG_CONTROL {
		return k.ControlRead()
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	switch off {
	case KREG_FB_PTR_LO:
		return k.reg.fbPtr
	case KREG_TEX_ATLAS_PTR:
		return k.reg.texAtlasPtr
	case KREG_COLORMAP_PTR:
		return k.reg.colormapPtr
	case KREG_CMD_SRC_PTR:
		return k.reg.cmdSrcPtr
	case KREG_MODE:
		return k.reg.mode
	case KREG_NUM_COMMANDS:
		return k.reg.numCommands
	default:
		return 0
	}
}

func (k *RasterKernel) dispatch(reg rasterRegisters) {
	var fn func()
	switch reg.mode {
	case MODE_LOAD_COLORMAP:
		fn = func() { k.loadColormap(reg.colormapPtr) }
	case MODE_CLEAR_FB:
		fn = k.clearFBRegisterMode
	case MODE_DRAW_BATCH:
		fn = func() { k.drawBatch(reg.cmdSrcPtr, reg.numCommands, reg.texAtlasPtr) }
	case MODE_DMA_OUT:
		fn = func() { k.dmaOut(reg.fbPtr) }
	case MODE_DRAW_AND_DMA:
		fn = func() {
			k.drawBatch(reg.cmdSrcPtr, reg.numCommands, reg.texAtlasPtr)
			k.dmaOut(reg.fbPtr)
		}
	default:
		fn = func() {}
	}
	k.CoprocKernel.Start(context.Background(), fn)
}

// loadColormap bursts 8 KiB from the DDR colormap image into on-chip
// BRAM and invalidates both texture caches (§4.3).
func (k *RasterKernel) loadColormap(ptr uint32) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if block := k.mem.ReadBlock(ptr, COLORMAP_SIZE); block != nil {
		copy(k.colormap[:], block)
	}
	k.invalidateTextureCachesLocked()
}

// clearFBRegisterMode implements MODE_CLEAR_FB exactly as §4.3 lists
// it: zero the framebuffer, invalidate only the flat cache.
func (k *RasterKernel) clearFBRegisterMode() {
	k.mu.Lock()
	defer k.mu.Unlock()
	for i := range k.fb {
		k.fb[i] = 0
	}
	k.flat.valid = false
}

// ClearFramebuffer is the §4.1 command-builder entry point: it clears
// synchronously (no register handshake) and invalidates both on-chip
// texture caches in addition to the framebuffer, a broader sweep than
// MODE_CLEAR_FB's flat-only invalidation because the command builder
// also resets the atlas allocator in the same call and any surviving
// column cache line would otherwise point at now-stale atlas offsets.
func (k *RasterKernel) ClearFramebuffer() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	for i := range k.fb {
		k.fb[i] = 0
	}
	k.invalidateTextureCachesLocked()
	return nil
}

func (k *RasterKernel) invalidateTextureCachesLocked() {
	for i := range k.texCache {
		k.texCache[i] = texCacheLine{}
	}
	k.flat.valid = false
}

// drawBatch executes numCommands records starting at cmdSrc, fetched
// SUBBATCH_SIZE at a time to mirror the PL's burst-fetch granularity.
func (k *RasterKernel) drawBatch(cmdSrc, numCommands, texAtlasPtr uint32) {
	for start := uint32(0); start < numCommands; start += SUBBATCH_SIZE {
		end := start + SUBBATCH_SIZE
		if end > numCommands {
			end = numCommands
		}
		for i := start; i < end; i++ {
			raw := k.mem.ReadBlock(cmdSrc+i*DRAW_CMD_BYTES, DRAW_CMD_BYTES)
			if raw == nil {
				continue
			}
			cmd := DecodeWords([16]byte(raw[:16]), [16]byte(raw[16:32]))
			k.execute(cmd, texAtlasPtr)
		}
	}
}

func (k *RasterKernel) execute(cmd DrawCommand, texAtlasPtr uint32) {
	k.mu.Lock()
	defer k.mu.Unlock()

	switch cmd.Kind {
	case CMD_KIND_COLUMN:
		line := k.fillColumnCacheLocked(cmd.TexOff, texAtlasPtr)
		k.backend.DrawColumn(k.fb[:], &line.data, &k.colormap, cmd)
	case CMD_KIND_SPAN:
		flat := k.fillFlatCacheLocked(cmd.TexOff, texAtlasPtr)
		k.backend.DrawSpan(k.fb[:], &flat.data, &k.colormap, cmd)
	}
}

func (k *RasterKernel) fillColumnCacheLocked(texOff, texAtlasPtr uint32) *texCacheLine {
	idx := (texOff >> 7) & TEX_CACHE_INDEX_MASK
	line := &k.texCache[idx]
	if line.valid && line.tag == texOff {
		return line
	}
	if block := k.mem.ReadBlock(texAtlasPtr+texOff, COLUMN_BYTES); block != nil {
		copy(line.data[:], block)
	}
	line.tag = texOff
	line.valid = true
	return line
}

func (k *RasterKernel) fillFlatCacheLocked(texOff, texAtlasPtr uint32) *flatCacheLine {
	if k.flat.valid && k.flat.tag == texOff {
		return &k.flat
	}
	if block := k.mem.ReadBlock(texAtlasPtr+texOff, FLAT_BYTES); block != nil {
		copy(k.flat.data[:], block)
	}
	k.flat.tag = texOff
	k.flat.valid = true
	return &k.flat
}

// dmaOut writes the indexed framebuffer (or its 168-row view area in
// legacy mode) out to fbPtr. Shared-buffer handoff uses the full
// 200-row stride; legacy mode stops at SCREEN_VIEW_ROWS so the PS can
// still write its HUD directly into rows 168..199 of the same region (§4.3, §9).
func (k *RasterKernel) dmaOut(fbPtr uint32) {
	k.mu.Lock()
	rows := SCREEN_VIEW_ROWS
	if k.cfg.SharedBRAMHandoff {
		rows = SCREEN_HEIGHT
	}
	out := make([]byte, rows*SCREEN_WIDTH)
	copy(out, k.fb[:rows*SCREEN_WIDTH])
	k.mu.Unlock()

	k.mem.WriteBlock(fbPtr, out)
}

// SubmitDrawAndDMA implements the RasterKernel (command_builder.go)
// interface: program the registers for a combined DRAW_BATCH+DMA_OUT
// handshake and trigger it, exactly the sequence flush_batch relies on.
func (k *RasterKernel) SubmitDrawAndDMA(numCommands int) error {
	fbPtr := k.cfg.PresentSourceBase()
	base := k.cfg.RasterBase
	k.HandleWrite(base+KREG_TEX_ATLAS_PTR, k.cfg.TexAtlasBase)
	k.HandleWrite(base+KREG_CMD_SRC_PTR, k.cfg.CmdBufBase)
	k.HandleWrite(base+KREG_FB_PTR_LO, fbPtr)
	k.HandleWrite(base+KREG_NUM_COMMANDS, uint32(numCommands))
	k.HandleWrite(base+KREG_MODE, MODE_DRAW_AND_DMA)
	k.HandleWrite(base+KREG_CONTROL, KCTL_START)
	return nil
}

// LoadColormap drives MODE_LOAD_COLORMAP from the DDR colormap image
// at its configured base address. main calls it once at startup, after
// seeding the colormap region.
func (k *RasterKernel) LoadColormap() {
	base := k.cfg.RasterBase
	k.HandleWrite(base+KREG_COLORMAP_PTR, k.cfg.ColormapBase)
	k.HandleWrite(base+KREG_MODE, MODE_LOAD_COLORMAP)
	k.HandleWrite(base+KREG_CONTROL, KCTL_START)
	k.WaitDone()
}
