// present_kernel.go - PL present kernel: palette expansion and upscale (§4.4)
//
// The real datapath streams one row at a time to keep the pack stage
// at II=1; this software model computes a full intermediate color
// image per present() call instead of row-streaming, which is
// immaterial to the emitted bytes (the running-divide expansion and
// the five-tap sharpen are both purely local operations) but far
// simpler to read and test. The running-divide (q, r) state is kept
// exactly as specified: per output pixel, r advances by one lane-step
// and wraps at the scale factor, rather than dividing per pixel.
package main

import (
	"context"
	"sync"
	"time"
)

type presentRegisters struct {
	srcPtr      uint32
	lanePtr     [4]uint32 // lane 0 is KREG_FB_PTR_LO; lanes 1-3 are KREG_LANE1..3_PTR_LO
	colormapPtr uint32
	mode        uint32
	scale       uint32
	rows        uint32
	lanes       uint32
	format      uint32
	strideBytes uint32
	sharpenEn   uint32
	sharpenStr  uint32
}

// PresentKernel implements the PL present kernel of §4.4: palette
// BRAM plus an equivalent RGB565 table, and the two-stage
// index-to-color / pack-and-expand row pipeline.
type PresentKernel struct {
	*CoprocKernel

	mem  *SharedMemory
	cfg  *Config
	perf *PerfCounters

	mu  sync.Mutex
	reg presentRegisters

	palette [256][3]byte
	rgb565  [256]uint16
}

func NewPresentKernel(mem *SharedMemory, cfg *Config, perf *PerfCounters) *PresentKernel {
	return &PresentKernel{
		CoprocKernel: NewCoprocKernel("present", perf),
		mem:          mem,
		cfg:          cfg,
		perf:         perf,
	}
}

func (k *PresentKernel) HandleWrite(addr uint32, val uint32) {
	off := addr - k.cfg.PresentBase
	k.mu.Lock()
	switch off {
	case KREG_FB_PTR_LO:
		k.reg.lanePtr[0] = val
	case KREG_LANE1_PTR_LO:
		k.reg.lanePtr[1] = val
	case KREG_LANE2_PTR_LO:
		k.reg.lanePtr[2] = val
	case KREG_LANE3_PTR_LO:
		k.reg.lanePtr[3] = val
	case KREG_COLORMAP_PTR:
		k.reg.colormapPtr = val
	case KREG_CMD_SRC_PTR:
		k.reg.srcPtr = val
	case KREG_MODE:
		k.reg.mode = val
	case KREG_PRESENT_SCALE:
		k.reg.scale = val
	case KREG_PRESENT_ROWS:
		k.reg.rows = val
	case KREG_PRESENT_LANES:
		k.reg.lanes = val
	case KREG_PRESENT_FORMAT:
		k.reg.format = val
	case KREG_PRESENT_STRIDE:
		k.reg.strideBytes = val
	case KREG_SHARPEN_EN:
		k.reg.sharpenEn = val
	case KREG_SHARPEN_STR:
		k.reg.sharpenStr = val
	}
	start := off == KREG_CONTROL && val&KCTL_START != 0
	reg := k.reg
	k.mu.Unlock()
	if start {
		k.dispatch(reg)
	}
}

func (k *PresentKernel) HandleRead(addr uint32) uint32 {
	off := addr - k.cfg.PresentBase
	if off == KREG_CONTROL {
		return k.ControlRead()
	}
	return 0
}

func (k *PresentKernel) dispatch(reg presentRegisters) {
	var fn func()
	switch reg.mode {
	case MODE_LOAD_COLORMAP:
		fn = func() { k.loadPalette(reg.colormapPtr) }
	case MODE_PRESENT:
		fn = func() { k.present(reg) }
	default:
		fn = func() {}
	}
	k.CoprocKernel.Start(context.Background(), fn)
}

// loadPalette loads the 256-entry RGB palette from the colormap DDR
// image (the 768 bytes immediately following the 8 KiB colormap) and
// refreshes the RGB565 equivalent table (§4.4).
func (k *PresentKernel) loadPalette(ptr uint32) {
	block := k.mem.ReadBlock(ptr+COLORMAP_SIZE, RGB_PALETTE_SIZE)
	if block == nil {
		return
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	for i := 0; i < 256; i++ {
		r, g, b := block[i*3], block[i*3+1], block[i*3+2]
		k.palette[i] = [3]byte{r, g, b}
		k.rgb565[i] = pack565(r, g, b)
	}
}

// currentPalette returns a copy of the on-chip RGB palette, for the
// orchestrator's CPU-side fast path (§4.5) which bypasses the PL
// present kernel entirely but still needs the same palette image.
func (k *PresentKernel) currentPalette() [256][3]byte {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.palette
}

func pack565(r, g, b byte) uint16 {
	return (uint16(r)>>3)<<11 | (uint16(g)>>2)<<5 | uint16(b)>>3
}

// LoadPalette drives MODE_LOAD_COLORMAP from the kernel's configured
// colormap DDR image, blocking until the kernel reports done. main
// calls it once at startup, after seeding the colormap region.
func (k *PresentKernel) LoadPalette() {
	base := k.cfg.PresentBase
	k.HandleWrite(base+KREG_COLORMAP_PTR, k.cfg.ColormapBase)
	k.HandleWrite(base+KREG_MODE, MODE_LOAD_COLORMAP)
	k.HandleWrite(base+KREG_CONTROL, KCTL_START)
	k.WaitDone()
}

// present reads the indexed frame, expands it through the palette,
// optionally sharpens, and packs the result into the destination
// region(s) at the configured scale, lane count, and output format.
func (k *PresentKernel) present(reg presentRegisters) {
	rows := int(reg.rows)
	if rows == 0 {
		rows = SCREEN_HEIGHT
	}
	scale := int(reg.scale)
	if scale == 0 {
		scale = 1
	}
	lanes := 1
	if reg.lanes == 4 {
		lanes = 4
	}

	start := time.Now()
	indexed := k.mem.ReadBlock(reg.srcPtr, rows*SCREEN_WIDTH)
	if indexed == nil {
		return
	}

	k.mu.Lock()
	palette := k.palette
	rgb565 := k.rgb565
	k.mu.Unlock()

	sharpen := reg.sharpenEn != 0
	strength := int(reg.sharpenStr)

	if reg.format == PRESENT_FORMAT_RGB565 {
		img := expandIndexedRGB565(indexed, rows, rgb565)
		if sharpen {
			img = sharpenRGB565(img, rows, strength)
		}
		outWidth := SCREEN_WIDTH * scale
		rowBytes := outWidth * 2
		stride := int(reg.strideBytes)
		if stride < rowBytes {
			stride = rowBytes
		}
		k.packExpandRGB565(img, rows, scale, lanes, stride, reg.lanePtr)
	} else {
		img := expandIndexedXRGB8888(indexed, rows, palette)
		if sharpen {
			img = sharpenXRGB8888(img, rows, strength)
		}
		outWidth := SCREEN_WIDTH * scale
		rowBytes := outWidth * 4
		stride := int(reg.strideBytes)
		if stride < rowBytes {
			stride = rowBytes
		}
		k.packExpandXRGB8888(img, rows, scale, lanes, stride, reg.lanePtr)
		// PRESENT_DEBUG dump only covers the untiled single-lane case,
		// where one contiguous read back from the destination pointer
		// is the whole frame.
		if presentDebugEnabled() && lanes == 1 && stride == rowBytes {
			if full := k.mem.ReadBlock(reg.lanePtr[0], rows*scale*rowBytes); full != nil {
				DumpPresentPNG(presentDebugPath(), full, outWidth, rows*scale)
			}
		}
	}
	k.perf.AddPresentScaleNanos(time.Since(start).Nanoseconds())
}

func expandIndexedXRGB8888(indexed []byte, rows int, palette [256][3]byte) []uint32 {
	out := make([]uint32, rows*SCREEN_WIDTH)
	for i, idx := range indexed {
		c := palette[idx]
		out[i] = uint32(c[0])<<16 | uint32(c[1])<<8 | uint32(c[2])
	}
	return out
}

func expandIndexedRGB565(indexed []byte, rows int, rgb565 [256]uint16) []uint16 {
	out := make([]uint16, rows*SCREEN_WIDTH)
	for i, idx := range indexed {
		out[i] = rgb565[idx]
	}
	return out
}

// sharpenXRGB8888 applies the five-tap ring filter of §4.4 per channel
// with saturation; border pixels reuse the center as their missing
// neighbor rather than wrapping or clamping out of range.
func sharpenXRGB8888(img []uint32, rows, strength int) []uint32 {
	out := make([]uint32, len(img))
	for y := 0; y < rows; y++ {
		for x := 0; x < SCREEN_WIDTH; x++ {
			i := y*SCREEN_WIDTH + x
			c := img[i]
			left, right, above, below := c, c, c, c
			if x > 0 {
				left = img[i-1]
			}
			if x < SCREEN_WIDTH-1 {
				right = img[i+1]
			}
			if y > 0 {
				above = img[i-SCREEN_WIDTH]
			}
			if y < rows-1 {
				below = img[i+SCREEN_WIDTH]
			}
			out[i] = sharpenPixel32(c, left, right, above, below, strength)
		}
	}
	return out
}

func sharpenPixel32(c, left, right, above, below uint32, strength int) uint32 {
	r := sharpenChannel(byte(c>>16), byte(left>>16), byte(right>>16), byte(above>>16), byte(below>>16), strength)
	g := sharpenChannel(byte(c>>8), byte(left>>8), byte(right>>8), byte(above>>8), byte(below>>8), strength)
	b := sharpenChannel(byte(c), byte(left), byte(right), byte(above), byte(below), strength)
	return uint32(r)<<16 | uint32(g)<<8 | uint32(b)
}

func sharpenRGB565(img []uint16, rows, strength int) []uint16 {
	out := make([]uint16, len(img))
	for y := 0; y < rows; y++ {
		for x := 0; x < SCREEN_WIDTH; x++ {
			i := y*SCREEN_WIDTH + x
			c := img[i]
			left, right, above, below := c, c, c, c
			if x > 0 {
				left = img[i-1]
			}
			if x < SCREEN_WIDTH-1 {
				right = img[i+1]
			}
			if y > 0 {
				above = img[i-SCREEN_WIDTH]
			}
			if y < rows-1 {
				below = img[i+SCREEN_WIDTH]
			}
			out[i] = sharpenPixel565(c, left, right, above, below, strength)
		}
	}
	return out
}

func sharpenPixel565(c, left, right, above, below uint16, strength int) uint16 {
	cr, cg, cb := unpack565(c)
	lr, lg, lb := unpack565(left)
	rr, rg, rb := unpack565(right)
	ar, ag, ab := unpack565(above)
	br, bg, bb := unpack565(below)
	r := sharpenChannel(cr, lr, rr, ar, br, strength)
	g := sharpenChannel(cg, lg, rg, ag, bg, strength)
	b := sharpenChannel(cb, lb, rb, ab, bb, strength)
	return pack565(r, g, b)
}

func unpack565(v uint16) (r, g, b byte) {
	r = byte((v>>11)&0x1F) << 3
	g = byte((v>>5)&0x3F) << 2
	b = byte(v&0x1F) << 3
	return
}

// sharpenChannel computes out = c + ((c - avg(neighbors)) * strength) >> 8
// with saturation to [0, 255].
func sharpenChannel(c, left, right, above, below byte, strength int) byte {
	avg := (int(left) + int(right) + int(above) + int(below)) / 4
	delta := (int(c) - avg) * strength >> SHARPEN_SHIFT
	v := int(c) + delta
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}

// expandRowUint32 replicates one source row scale-fold using the
// running-divide state of §4.4: r advances by one lane-step per output
// pixel and wraps at the scale factor, never dividing per pixel.
func expandRowUint32(src []uint32, scale int) []uint32 {
	out := make([]uint32, len(src)*scale)
	q, r := 0, 0
	for o := range out {
		out[o] = src[q]
		r++
		if r >= scale {
			r -= scale
			q++
		}
	}
	return out
}

func expandRowUint16(src []uint16, scale int) []uint16 {
	out := make([]uint16, len(src)*scale)
	q, r := 0, 0
	for o := range out {
		out[o] = src[q]
		r++
		if r >= scale {
			r -= scale
			q++
		}
	}
	return out
}

// packExpandXRGB8888 performs the pack-and-expand stage: horizontal
// running-divide replication, then fan-out across 1 or 4 lanes. Each
// lane writes to its own pointer base plus the row's absolute byte
// offset, so four equal pointer registers yield one contiguous image
// and distinct registers would yield four independent banks (§4.4).
func (k *PresentKernel) packExpandXRGB8888(img []uint32, rows, scale, lanes, strideBytes int, lanePtr [4]uint32) {
	outWidth := SCREEN_WIDTH * scale
	rowBytes := outWidth * 4
	quarter := rowBytes / lanes
	for y := 0; y < rows; y++ {
		srcRow := img[y*SCREEN_WIDTH : (y+1)*SCREEN_WIDTH]
		expanded := expandRowUint32(srcRow, scale)
		rowBuf := make([]byte, rowBytes)
		for x, v := range expanded {
			o := x * 4
			rowBuf[o] = byte(v)
			rowBuf[o+1] = byte(v >> 8)
			rowBuf[o+2] = byte(v >> 16)
			rowBuf[o+3] = 0
		}
		for lane := 0; lane < lanes; lane++ {
			chunk := rowBuf[lane*quarter : (lane+1)*quarter]
			dst := lanePtr[lane] + uint32(y*strideBytes+lane*quarter)
			k.mem.WriteBlock(dst, chunk)
		}
	}
}

func (k *PresentKernel) packExpandRGB565(img []uint16, rows, scale, lanes, strideBytes int, lanePtr [4]uint32) {
	outWidth := SCREEN_WIDTH * scale
	rowBytes := outWidth * 2
	quarter := rowBytes / lanes
	for y := 0; y < rows; y++ {
		srcRow := img[y*SCREEN_WIDTH : (y+1)*SCREEN_WIDTH]
		expanded := expandRowUint16(srcRow, scale)
		rowBuf := make([]byte, rowBytes)
		for x, v := range expanded {
			o := x * 2
			rowBuf[o] = byte(v)
			rowBuf[o+1] = byte(v >> 8)
		}
		for lane := 0; lane < lanes; lane++ {
			chunk := rowBuf[lane*quarter : (lane+1)*quarter]
			dst := lanePtr[lane] + uint32(y*strideBytes+lane*quarter)
			k.mem.WriteBlock(dst, chunk)
		}
	}
}

// SubmitPresent programs the present kernel's registers for one
// PRESENT invocation and triggers it asynchronously.
func (k *PresentKernel) SubmitPresent(srcPtr uint32, rows, scale, lanes, format, strideBytes int, sharpenEnable bool, sharpenStrength int, lanePtr [4]uint32) {
	base := k.cfg.PresentBase
	k.HandleWrite(base+KREG_CMD_SRC_PTR, srcPtr)
	k.HandleWrite(base+KREG_FB_PTR_LO, lanePtr[0])
	k.HandleWrite(base+KREG_LANE1_PTR_LO, lanePtr[1])
	k.HandleWrite(base+KREG_LANE2_PTR_LO, lanePtr[2])
	k.HandleWrite(base+KREG_LANE3_PTR_LO, lanePtr[3])
	k.HandleWrite(base+KREG_PRESENT_ROWS, uint32(rows))
	k.HandleWrite(base+KREG_PRESENT_SCALE, uint32(scale))
	k.HandleWrite(base+KREG_PRESENT_LANES, uint32(lanes))
	k.HandleWrite(base+KREG_PRESENT_FORMAT, uint32(format))
	k.HandleWrite(base+KREG_PRESENT_STRIDE, uint32(strideBytes))
	sharpenVal := uint32(0)
	if sharpenEnable {
		sharpenVal = 1
	}
	k.HandleWrite(base+KREG_SHARPEN_EN, sharpenVal)
	k.HandleWrite(base+KREG_SHARPEN_STR, uint32(sharpenStrength))
	k.HandleWrite(base+KREG_MODE, MODE_PRESENT)
	k.HandleWrite(base+KREG_CONTROL, KCTL_START)
}
