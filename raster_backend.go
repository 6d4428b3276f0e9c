// raster_backend.go - selectable column/span execution strategy (§4.3, §6)
//
// RasterBackend factors the inner draw loop out of RasterKernel so the
// kernel's register protocol, on-chip caches, and DMA policy stay the
// same regardless of which backend actually walks pixels. The default
// softRasterBackend is a direct line-for-line translation of §4.3's
// column/span equations; raster_vulkan_backend.go supplies an
// alternate bench-hw backend behind a build tag, falling back to this
// one exactly as voodoo_vulkan.go falls back to a software blit path
// when no compatible GPU is present.
package main

// RasterBackend executes one DrawCommand against the on-chip state
// owned by RasterKernel. Implementations must not retain fb, column,
// colormap, or flat beyond the call.
type RasterBackend interface {
	// DrawColumn walks y1..y2 inclusive, reading 128 texels from
	// column and writing through colormap into fb (a 320x200 indexed
	// framebuffer, row-major).
	DrawColumn(fb []byte, column *[COLUMN_BYTES]byte, colormap *[COLORMAP_SIZE]byte, cmd DrawCommand)

	// DrawSpan walks x1..x2 inclusive, reading from the 64x64 flat
	// texture and writing through colormap into fb.
	DrawSpan(fb []byte, flat *[FLAT_BYTES]byte, colormap *[COLORMAP_SIZE]byte, cmd DrawCommand)
}

// softRasterBackend is the bench-sw backend: a plain Go loop, no SIMD,
// no GPU dispatch. Selected by default and whenever RASTER_BACKEND is
// unset or "sw" (§6).
type softRasterBackend struct{}

func newSoftRasterBackend() *softRasterBackend { return &softRasterBackend{} }

func (softRasterBackend) DrawColumn(fb []byte, column *[COLUMN_BYTES]byte, colormap *[COLORMAP_SIZE]byte, cmd DrawCommand) {
	frac := cmd.Frac
	base := int(clampLight(cmd.Light)) * 256
	x1 := int(cmd.X1)
	for y := int(cmd.Y1); y <= int(cmd.Y2); y++ {
		texel := column[(frac>>16)&127]
		fb[y*SCREEN_WIDTH+x1] = colormap[base+int(texel)]
		frac += cmd.Step
	}
}

func (softRasterBackend) DrawSpan(fb []byte, flat *[FLAT_BYTES]byte, colormap *[COLORMAP_SIZE]byte, cmd DrawCommand) {
	pos := cmd.Frac
	base := int(clampLight(cmd.Light)) * 256
	y := int(cmd.Y1)
	for x := int(cmd.X1); x <= int(cmd.X2); x++ {
		spot := ((pos >> 26) | ((pos >> 4) & 0x0fc0)) & 0xFFF
		fb[y*SCREEN_WIDTH+x] = colormap[base+int(flat[spot])]
		pos += cmd.Step
	}
}

// selectRasterBackend picks the backend named by RASTER_BACKEND
// ("sw" or "hw"), falling back to software when hw support was not
// compiled in or the environment variable names neither.
func selectRasterBackend(name string) RasterBackend {
	if name == "hw" {
		if hw := newHardwareRasterBackend(); hw != nil {
			return hw
		}
	}
	return newSoftRasterBackend()
}
