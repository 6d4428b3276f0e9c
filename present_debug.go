// present_debug.go - golden-image dump for the 5x present pipeline
//
// Grounded on the teacher's debug_snapshot.go convention of an
// env-gated dump path rather than an always-on feature; here the
// output is a PNG via golang.org/x/image/draw's nearest-neighbor
// scaler, used in tests to cross-check the present kernel's own
// running-divide expansion against an independent reference scaler.
package main

import (
	"bufio"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"

	"golang.org/x/image/draw"
)

// DumpPresentPNG writes pixels (packed XRGB8888, width x height) to
// path as a PNG, for visual inspection when PRESENT_DEBUG is set.
func DumpPresentPNG(path string, pixels []byte, width, height int) error {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			o := (y*width + x) * 4
			img.SetNRGBA(x, y, color.NRGBA{R: pixels[o+2], G: pixels[o+1], B: pixels[o], A: 0xFF})
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("present debug: create %s: %w", path, err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("present debug: encode %s: %w", path, err)
	}
	return w.Flush()
}

// NearestNeighborReference expands a native 320xH indexed-via-palette
// XRGB8888 image by an independent nearest-neighbor scaler
// (golang.org/x/image/draw), used by tests as a golden reference for
// the present kernel's own running-divide expansion.
func NearestNeighborReference(pixels []byte, width, height, scale int) []byte {
	src := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			o := (y*width + x) * 4
			src.SetNRGBA(x, y, color.NRGBA{R: pixels[o+2], G: pixels[o+1], B: pixels[o], A: 0xFF})
		}
	}

	dstW, dstH := width*scale, height*scale
	dst := image.NewNRGBA(image.Rect(0, 0, dstW, dstH))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	out := make([]byte, dstW*dstH*4)
	for y := 0; y < dstH; y++ {
		for x := 0; x < dstW; x++ {
			c := dst.NRGBAAt(x, y)
			o := (y*dstW + x) * 4
			out[o] = c.B
			out[o+1] = c.G
			out[o+2] = c.R
			out[o+3] = 0
		}
	}
	return out
}
