package main

import "time"

// Screen geometry. The whole pipeline is fixed to the classic 320x200
// indexed-color mode; nothing downstream is resolution independent.
const (
	SCREEN_WIDTH      = 320
	SCREEN_HEIGHT     = 200
	SCREEN_VIEW_ROWS  = 168 // legacy-mode DMA height, leaves room for the HUD band
	SCREEN_PIXELS     = SCREEN_WIDTH * SCREEN_HEIGHT
	PRESENT_SCALE     = 5
	PRESENT_WIDTH     = SCREEN_WIDTH * PRESENT_SCALE  // 1600
	PRESENT_MAX_ROWS  = 1000                          // 200 * 5, full-height present surface
	FLAT_SIZE         = 64
	FLAT_BYTES        = FLAT_SIZE * FLAT_SIZE // 4096
	COLUMN_BYTES      = 128
	ATLAS_ALIGN       = 16
)

// Physical address map (defaults; overridable via environment, see config.go).
const (
	FB_OUT_DEFAULT      = 0x10000000 // 8 MiB output frame region (1600x1000 x 4B, or 2B)
	FB_OUT_SIZE         = 8 * 1024 * 1024
	VIDEO_BUF_DEFAULT   = 0x10800000 // 64 KiB composed indexed frame (320x200)
	VIDEO_BUF_SIZE      = 64 * 1024
	CMD_BUF_DEFAULT     = 0x10810000 // MAX_COMMANDS * 32B command region
	TEX_ATLAS_DEFAULT   = 0x11000000 // 16 MiB texture atlas region
	TEX_ATLAS_SIZE      = 16 * 1024 * 1024
	COLORMAP_DEFAULT    = 0x12000000 // 8 KiB colormap + 768B RGB palette immediately after
	COLORMAP_SIZE       = 32 * 256
	RGB_PALETTE_SIZE    = 256 * 3
	COLORMAP_REGION_LEN = COLORMAP_SIZE + RGB_PALETTE_SIZE
	SHARED_BRAM_DEFAULT = 0x12004000 // on-chip-backed raster->present handoff region
	SHARED_BRAM_SIZE    = SCREEN_PIXELS
)

// AXI-Lite-like register map, byte offsets from a kernel's base.
// Both the raster kernel and the present kernel share this layout;
// the present kernel additionally uses the lane and format scalars.
const (
	KREG_CONTROL        = 0x00
	KREG_FB_PTR_LO      = 0x10
	KREG_FB_PTR_HI      = 0x14
	KREG_LANE1_PTR_LO   = 0x50
	KREG_LANE1_PTR_HI   = 0x54
	KREG_LANE2_PTR_LO   = 0x58
	KREG_LANE2_PTR_HI   = 0x5C
	KREG_LANE3_PTR_LO   = 0x60
	KREG_LANE3_PTR_HI   = 0x64
	KREG_TEX_ATLAS_PTR  = 0x1C
	KREG_COLORMAP_PTR   = 0x28
	KREG_CMD_SRC_PTR    = 0x34
	KREG_MODE           = 0x40
	KREG_NUM_COMMANDS   = 0x48
	KREG_PRESENT_SCALE  = 0x70
	KREG_PRESENT_ROWS   = 0x74
	KREG_PRESENT_LANES  = 0x78
	KREG_PRESENT_FORMAT = 0x7C
	KREG_PRESENT_STRIDE = 0x80
	KREG_SHARPEN_EN     = 0x84
	KREG_SHARPEN_STR    = 0x88

	KREG_END = KREG_SHARPEN_STR + 0x3
)

// Control register bits (KREG_CONTROL).
const (
	KCTL_START = 1 << 0
	KCTL_DONE  = 1 << 1
	KCTL_IDLE  = 1 << 2
)

// Kernel mode register values (KREG_MODE).
const (
	MODE_LOAD_COLORMAP = 0
	MODE_CLEAR_FB      = 1
	MODE_DRAW_BATCH    = 2
	MODE_DMA_OUT       = 3
	MODE_DRAW_AND_DMA  = 4
	MODE_PRESENT       = 5
)

// Present kernel output format (KREG_PRESENT_FORMAT).
const (
	PRESENT_FORMAT_XRGB8888 = 0
	PRESENT_FORMAT_RGB565   = 1
)

// DrawCommand kind (byte 0 of the wire record).
const (
	CMD_KIND_COLUMN = 0
	CMD_KIND_SPAN   = 1
)

// Command-side limits.
const (
	MAX_COMMANDS    = 4096
	DRAW_CMD_BYTES  = 32
	SUBBATCH_SIZE   = 64 // command fetch granularity inside the raster kernel
	MAX_LIGHT_LEVEL = 31
)

// Texture caches on the raster kernel.
const (
	TEX_CACHE_LINES     = 256
	TEX_CACHE_LINE_SIZE = COLUMN_BYTES
	TEX_CACHE_INDEX_MASK = TEX_CACHE_LINES - 1
)

// Pointer-offset cache (atlas manager, PS side).
const (
	PTR_CACHE_CAPACITY    = 16384
	PTR_CACHE_PROBE_LIMIT = 64
)

// Kernel polling budgets (§5 Cancellation and timeouts).
const (
	WAIT_IDLE_POLL_ITERATIONS = 100_000
	WAIT_DONE_POLL_ITERATIONS = 1_000_000
	KERNEL_POLL_INTERVAL      = 0 // unused; WaitIdle/WaitDone sleep pollQuantum (coproc_kernel.go) between polls
)

// Present orchestrator queue depth and worker budget.
const (
	PRESENT_QUEUE_DEPTH = 3
)

// Sharpening.
const (
	SHARPEN_SHIFT = 8
)

// perfSampleInterval is how often the headless CLI path prints a perf line.
const perfSampleInterval = time.Second
