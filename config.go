// config.go - environment-driven configuration for the raster/present pipeline
//
// Read once at construction time with os.Getenv, matching the
// teacher's convention (runtime_ipc.go's XDG_RUNTIME_DIR,
// psg_player.go's PSG_DEBUG) rather than a flags/viper config layer.
package main

import (
	"os"
	"strconv"
	"strings"
)

// Config holds the recognized environment options of §6.
type Config struct {
	RasterBase     uint32
	PresentBase    uint32
	SwapIPs        bool
	SharedBRAMHandoff bool
	Composite      bool
	HUDOverlay     bool
	FBScanoutPhys  uint32
	MmapBacking    bool
	RasterBackend  string
	PresentBackend string
	PresentUsePL   bool
	PresentScale   int
	PresentLanes   int
	PresentFormat  uint32

	FBOutBase      uint32
	VideoBufBase   uint32
	CmdBufBase     uint32
	TexAtlasBase   uint32
	ColormapBase   uint32
	SharedBRAMBase uint32
}

const (
	defaultRasterBase  = 0xF3000000
	defaultPresentBase = 0xF3000100
)

// LoadConfig reads the documented environment options, applying the
// defaults from §6 when unset.
func LoadConfig() *Config {
	cfg := &Config{
		RasterBase:        getEnvHex32("RASTER_BASE", defaultRasterBase),
		PresentBase:       getEnvHex32("PRESENT_BASE", defaultPresentBase),
		SwapIPs:           getEnvBool("SWAP_IPS", false),
		SharedBRAMHandoff: getEnvBool("SHARED_BRAM_HANDOFF", true),
		Composite:         getEnvBool("COMPOSITE", true),
		HUDOverlay:        getEnvBool("HUD_OVERLAY", true),
		FBScanoutPhys:     getEnvHex32("FB_SCANOUT_PHYS", 0),
		MmapBacking:       getEnvBool("IE_MMAP_BACKING", false),
		RasterBackend:     getEnvString("RASTER_BACKEND", "sw"),
		PresentBackend:    getEnvString("PRESENT_BACKEND", "sw"),
		PresentUsePL:      getEnvBool("PL_SCALE", false),
		PresentScale:      int(getEnvHex32("PRESENT_SCALE_FACTOR", 1)),
		PresentLanes:      int(getEnvHex32("PL_LANES", 1)),
		PresentFormat:     getEnvHex32("PRESENT_FORMAT", PRESENT_FORMAT_XRGB8888),

		FBOutBase:      FB_OUT_DEFAULT,
		VideoBufBase:   VIDEO_BUF_DEFAULT,
		CmdBufBase:     CMD_BUF_DEFAULT,
		TexAtlasBase:   TEX_ATLAS_DEFAULT,
		ColormapBase:   COLORMAP_DEFAULT,
		SharedBRAMBase: SHARED_BRAM_DEFAULT,
	}

	if cfg.SwapIPs {
		cfg.RasterBase, cfg.PresentBase = cfg.PresentBase, cfg.RasterBase
	}

	return cfg
}

func getEnvBool(name string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(name)))
	if v == "" {
		return def
	}
	return v == "1" || v == "true" || v == "yes" || v == "on"
}

func getEnvHex32(name string, def uint32) uint32 {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	v = strings.TrimPrefix(strings.ToLower(v), "0x")
	n, err := strconv.ParseUint(v, 16, 32)
	if err != nil {
		return def
	}
	return uint32(n)
}

func getEnvString(name, def string) string {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	return v
}

func rasterDebugEnabled() bool  { return getEnvBool("RASTER_DEBUG", false) }
func presentDebugEnabled() bool { return getEnvBool("PRESENT_DEBUG", false) }

// presentDebugPath is the PNG dump destination used when PRESENT_DEBUG is set.
func presentDebugPath() string { return getEnvString("PRESENT_DEBUG_PATH", "/tmp/present_debug.png") }

// PresentSourceBase resolves the DDR region the raster->present handoff
// uses. COMPOSITE forces the PS-composed VIDEO_BUF region regardless of
// SharedBRAMHandoff (§6: "force present source to the composed indexed
// region"); otherwise SharedBRAMHandoff selects the on-chip-backed
// SHARED_BRAM handoff region. Shared by the raster kernel's DMA target,
// the engine loop's readback, and the orchestrator's present source so
// all three agree on where the frame actually lives.
func (c *Config) PresentSourceBase() uint32 {
	if c.SharedBRAMHandoff && !c.Composite {
		return c.SharedBRAMBase
	}
	return c.VideoBufBase
}
