// raster_kernel_test.go - colormap load, draw batch, DMA row counts (§8)
package main

import "testing"

func newTestRasterSetup(sharedHandoff bool) (*SharedMemory, *Config, *RasterKernel) {
	cfg := LoadConfig()
	cfg.SharedBRAMHandoff = sharedHandoff
	cfg.RasterBackend = "sw"
	mem := NewSharedMemory(cfg)
	return mem, cfg, NewRasterKernel(mem, cfg, NewPerfCounters())
}

func TestRasterKernel_LoadColormapInvalidatesCaches(t *testing.T) {
	mem, _, k := newTestRasterSetup(true)
	var region [COLORMAP_REGION_LEN]byte
	for i := range region[:COLORMAP_SIZE] {
		region[i] = byte(i)
	}
	mem.Colormap.CopyIn(region[:])

	// Warm a texture cache line directly, then load the colormap and
	// confirm the invalidation swept it.
	k.mu.Lock()
	k.texCache[3] = texCacheLine{valid: true, tag: 3}
	k.mu.Unlock()

	k.LoadColormap()

	k.mu.Lock()
	defer k.mu.Unlock()
	if k.texCache[3].valid {
		t.Fatal("expected LoadColormap to invalidate the texture column cache")
	}
	if k.colormap[10] != 10 {
		t.Fatalf("expected colormap byte 10 == 10, got %d", k.colormap[10])
	}
}

func TestRasterKernel_ClearFramebufferZeroesAndInvalidatesBothCaches(t *testing.T) {
	_, _, k := newTestRasterSetup(true)
	k.mu.Lock()
	k.fb[0] = 0xFF
	k.flat.valid = true
	k.texCache[0].valid = true
	k.mu.Unlock()

	if err := k.ClearFramebuffer(); err != nil {
		t.Fatalf("ClearFramebuffer: %v", err)
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	if k.fb[0] != 0 {
		t.Fatal("expected framebuffer byte 0 cleared")
	}
	if k.flat.valid || k.texCache[0].valid {
		t.Fatal("expected both on-chip caches invalidated")
	}
}

func TestRasterKernel_DMARowCount_SharedHandoffVsLegacy(t *testing.T) {
	for _, tc := range []struct {
		name string
		shared bool
		wantRows int
	}{
		{"shared handoff writes all 200 rows", true, SCREEN_HEIGHT},
		{"legacy mode writes only the 168 view rows", false, SCREEN_VIEW_ROWS},
	} {
		t.Run(tc.name, func(t *testing.T) {
			mem, cfg, k := newTestRasterSetup(tc.shared)
			k.mu.Lock()
			for i := range k.fb {
				k.fb[i] = 0xAA
			}
			k.mu.Unlock()

			dst := cfg.VideoBufBase
			if tc.shared {
				dst = cfg.SharedBRAMBase
			}
			k.dmaOut(dst)

			out := mem.ReadBlock(dst, SCREEN_PIXELS)
			nonZero := 0
			for _, b := range out {
				if b == 0xAA {
					nonZero++
				}
			}
			if nonZero != tc.wantRows*SCREEN_WIDTH {
				t.Fatalf("expected %d written bytes, got %d", tc.wantRows*SCREEN_WIDTH, nonZero)
			}
		})
	}
}

func TestRasterKernel_DrawBatchAndDMAProducesNonEmptyFrame(t *testing.T) {
	mem, cfg, k := newTestRasterSetup(true)

	var region [COLORMAP_REGION_LEN]byte
	for light := 0; light < 32; light++ {
		for c := 0; c < 256; c++ {
			region[light*256+c] = byte(c)
		}
	}
	mem.Colormap.CopyIn(region[:])
	k.LoadColormap()

	column := make([]byte, COLUMN_BYTES)
	for i := range column {
		column[i] = byte(i + 1)
	}
	mem.TexAtlas.CopyIn(column)

	cmd := DrawCommand{Kind: CMD_KIND_COLUMN, Light: 0, X1: 5, Y1: 10, Y2: 20, Frac: 0, Step: 1 << 16, TexOff: 0}
	wire := cmd.Encode()
	mem.CmdBuf.CopyIn(wire[:])

	k.HandleWrite(cfg.RasterBase+KREG_TEX_ATLAS_PTR, cfg.TexAtlasBase)
	k.HandleWrite(cfg.RasterBase+KREG_CMD_SRC_PTR, cfg.CmdBufBase)
	k.HandleWrite(cfg.RasterBase+KREG_FB_PTR_LO, cfg.SharedBRAMBase)
	k.HandleWrite(cfg.RasterBase+KREG_NUM_COMMANDS, 1)
	k.HandleWrite(cfg.RasterBase+KREG_MODE, MODE_DRAW_AND_DMA)
	k.HandleWrite(cfg.RasterBase+KREG_CONTROL, KCTL_START)
	if err := k.WaitDone(); err != nil {
		t.Fatalf("WaitDone: %v", err)
	}

	out := mem.ReadBlock(cfg.SharedBRAMBase, SCREEN_PIXELS)
	if out[10*SCREEN_WIDTH+5] == 0 {
		t.Fatal("expected the drawn column pixel to be non-zero after draw+DMA")
	}
}

// TestRasterKernel_DrawBatchClampsOutOfRangeLightDefensively submits a
// malformed wire command (light=255) directly, bypassing the command
// builder's own clamp, to exercise the raster kernel's required
// defensive re-clamp (§9) and confirm it resolves against light 31's
// colormap row instead of indexing out of bounds.
func TestRasterKernel_DrawBatchClampsOutOfRangeLightDefensively(t *testing.T) {
	mem, cfg, k := newTestRasterSetup(true)

	var region [COLORMAP_REGION_LEN]byte
	for c := 0; c < 256; c++ {
		region[MAX_LIGHT_LEVEL*256+c] = byte(255 - c)
	}
	mem.Colormap.CopyIn(region[:])
	k.LoadColormap()

	column := make([]byte, COLUMN_BYTES)
	for i := range column {
		column[i] = byte(i)
	}
	mem.TexAtlas.CopyIn(column)

	cmd := DrawCommand{Kind: CMD_KIND_COLUMN, Light: 255, X1: 3, Y1: 7, Y2: 7, Frac: 0, Step: 0, TexOff: 0}
	wire := cmd.Encode()
	mem.CmdBuf.CopyIn(wire[:])

	k.HandleWrite(cfg.RasterBase+KREG_TEX_ATLAS_PTR, cfg.TexAtlasBase)
	k.HandleWrite(cfg.RasterBase+KREG_CMD_SRC_PTR, cfg.CmdBufBase)
	k.HandleWrite(cfg.RasterBase+KREG_FB_PTR_LO, cfg.SharedBRAMBase)
	k.HandleWrite(cfg.RasterBase+KREG_NUM_COMMANDS, 1)
	k.HandleWrite(cfg.RasterBase+KREG_MODE, MODE_DRAW_AND_DMA)
	k.HandleWrite(cfg.RasterBase+KREG_CONTROL, KCTL_START)
	if err := k.WaitDone(); err != nil {
		t.Fatalf("WaitDone: %v", err)
	}

	out := mem.ReadBlock(cfg.SharedBRAMBase, SCREEN_PIXELS)
	want := byte(255 - 0) // texel 0 through light row 31's identity-reversed mapping
	if got := out[7*SCREEN_WIDTH+3]; got != want {
		t.Fatalf("expected defensively-clamped light row value %d, got %d", want, got)
	}
}
