// main.go - entry point for the raster/present coprocessor pipeline (§6)
//
// There is no engine thread in this repo (the game engine that would
// drive queue_column/queue_span from real scene data is explicitly out
// of scope); main drives the same component sequence a real engine
// thread would with a synthetic scene generator, so every stage of the
// pipeline (command builder, raster kernel, present kernel, present
// orchestrator, display boundary) is genuinely exercised end to end.
package main

import (
	"fmt"
	"os"
	"time"
)

func main() {
	opt, err := parseCLIArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr, "usage: raster-pipeline [tcp [:port]|screen|headless] [bench-sw|bench-hw] "+
			"[native320|fullres] [<scale>] [async-present|sync-present] [pl-scale] [pl-lanes <1|4>] "+
			"[no-client] [bench-headless]")
		os.Exit(1)
	}

	cfg := LoadConfig()
	opt.applyToConfig(cfg)

	mem := NewSharedMemory(cfg)
	defer mem.Close()

	perf := NewPerfCounters()
	raster := NewRasterKernel(mem, cfg, perf)
	present := NewPresentKernel(mem, cfg, perf)
	atlas := NewAtlasManager(mem.TexAtlas, perf)
	builder := NewCommandBuilder(mem.CmdBuf, raster, atlas, perf)

	seedColormapAndPalette(mem)
	raster.LoadColormap()
	present.LoadPalette()

	display, err := NewDisplayBoundary(opt.Output, opt.TCPAddr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "main: display init failed: %v\n", err)
		os.Exit(1)
	}

	orch := NewPresentOrchestrator(mem, cfg, present, perf, display)
	defer orch.Close()

	if cfg.HUDOverlay {
		orch.SetHUDBand(syntheticHUDBand(cfg.PresentScale))
	}

	var status *PerfStatusLine
	if opt.BenchHeadless || opt.Output == "headless" {
		status = NewPerfStatusLine(perf, perfSampleInterval)
		status.Start()
	}

	gen := newSceneGenerator(atlas)
	frameN := 0
	for opt.FrameCount == 0 || frameN < opt.FrameCount {
		if err := runFrame(builder, raster, mem, cfg, orch, gen, frameN); err != nil {
			fmt.Fprintf(os.Stderr, "main: frame %d: %v\n", frameN, err)
		}
		frameN++
		if !opt.Async {
			// sync-present: drain the orchestrator's queue before the next
			// frame is generated, rather than letting it absorb bursts.
			for orch.QueueLen() > 0 {
				time.Sleep(time.Millisecond)
			}
		}
	}

	if status != nil {
		status.Stop()
	}
}

// runFrame drives one command-builder/raster-kernel cycle and submits
// the resulting indexed frame to the present orchestrator.
func runFrame(b *CommandBuilder, raster *RasterKernel, mem *SharedMemory, cfg *Config, orch *PresentOrchestrator, gen *sceneGenerator, frameN int) error {
	if err := b.StartFrame(); err != nil {
		return err
	}

	for _, cmd := range gen.next(frameN) {
		var err error
		if cmd.Kind == CMD_KIND_COLUMN {
			err = b.QueueColumn(int(cmd.X1), int(cmd.Y1), int(cmd.Y2), cmd.Frac, cmd.Step, cmd.TexOff, cmd.Light)
		} else {
			err = b.QueueSpan(int(cmd.Y1), int(cmd.X1), int(cmd.X2), cmd.Frac, cmd.Step, cmd.TexOff, cmd.Light)
		}
		if err != nil {
			return err
		}
	}

	if err := b.FlushBatch(); err != nil {
		return err
	}
	if err := b.WaitForBatch(); err != nil {
		return err
	}

	srcPtr := cfg.PresentSourceBase()
	raw := mem.ReadBlock(srcPtr, SCREEN_PIXELS)
	if raw == nil {
		return fmt.Errorf("frame %d: could not read back indexed frame", frameN)
	}
	var snap frameSnapshot
	copy(snap[:], raw)
	return orch.Submit(snap)
}

// seedColormapAndPalette writes a synthetic colormap and RGB palette
// into the shared COLORMAP region so the raster and present kernels
// have something non-zero to load on startup.
func seedColormapAndPalette(mem *SharedMemory) {
	var region [COLORMAP_REGION_LEN]byte
	for light := 0; light < 32; light++ {
		for c := 0; c < 256; c++ {
			region[light*256+c] = byte((c * (32 - light)) / 32)
		}
	}
	paletteOff := COLORMAP_SIZE
	for i := 0; i < 256; i++ {
		region[paletteOff+i*3+0] = byte(i)
		region[paletteOff+i*3+1] = byte(255 - i)
		region[paletteOff+i*3+2] = byte((i * 7) & 0xFF)
	}
	mem.Colormap.CopyIn(region[:])
}

// syntheticHUDBand builds a small alpha-keyed overlay strip (a single
// opaque horizontal band) demonstrating the HUD compositing path.
func syntheticHUDBand(scale int) []byte {
	if scale <= 0 {
		scale = 1
	}
	width := SCREEN_WIDTH * scale * 4
	rows := 4 * scale
	band := make([]byte, width*rows)
	for y := 0; y < rows; y++ {
		for x := 0; x < SCREEN_WIDTH*scale; x++ {
			o := y*width + x*4
			band[o] = 0x20
			band[o+1] = 0x20
			band[o+2] = 0xC0
			band[o+3] = 0xFF
		}
	}
	return band
}
