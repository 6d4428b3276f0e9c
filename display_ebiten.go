//go:build !headless

// display_ebiten.go - windowed screen display boundary (§6 "screen")
//
// Generalized from video_backend_ebiten.go's EbitenOutput: a
// mutex-guarded frame buffer updated by the present path and drawn by
// Ebiten's own loop on its own goroutine, with the same first-Draw
// rendezvous channel so newScreenDisplay doesn't return before a
// window actually exists.
package main

import (
	"fmt"
	"image"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

type screenDisplay struct {
	mu         sync.Mutex
	width      int
	height     int
	frame      []byte
	ready      chan struct{}
	readyOnce  sync.Once
	fullscreen bool
}

func newScreenDisplay() (DisplayBoundary, error) {
	d := &screenDisplay{
		width:  SCREEN_WIDTH,
		height: SCREEN_HEIGHT,
		frame:  make([]byte, SCREEN_WIDTH*SCREEN_HEIGHT*4),
		ready:  make(chan struct{}),
	}
	ebiten.SetWindowSize(SCREEN_WIDTH*PRESENT_SCALE, SCREEN_HEIGHT*PRESENT_SCALE)
	ebiten.SetWindowTitle("raster/present pipeline")
	ebiten.SetWindowResizable(true)
	go func() {
		if err := ebiten.RunGame(d); err != nil {
			fmt.Printf("screen display: ebiten exited: %v\n", err)
		}
	}()
	<-d.ready
	return d, nil
}

func (d *screenDisplay) Present(pixels []byte, width, height int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if width != d.width || height != d.height || len(d.frame) != len(pixels) {
		d.width, d.height = width, height
		d.frame = make([]byte, len(pixels))
	}
	copy(d.frame, pixels)
	return nil
}

func (d *screenDisplay) Close() error { return nil }

// Update implements ebiten.Game: toggles fullscreen on F11, otherwise
// does nothing (all state changes arrive via Present).
func (d *screenDisplay) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyF11) {
		d.mu.Lock()
		d.fullscreen = !d.fullscreen
		d.mu.Unlock()
		ebiten.SetFullscreen(d.fullscreen)
	}
	return nil
}

// Draw implements ebiten.Game: blits the current packed XRGB8888
// frame (little-endian, so B,G,R,X in memory) into an RGBA ebiten
// image by swapping the R and B bytes and forcing alpha opaque.
func (d *screenDisplay) Draw(screen *ebiten.Image) {
	d.mu.Lock()
	width, height := d.width, d.height
	frame := make([]byte, len(d.frame))
	copy(frame, d.frame)
	d.mu.Unlock()

	d.readyOnce.Do(func() { close(d.ready) })
	if width == 0 || height == 0 || len(frame) < width*height*4 {
		return
	}

	rgba := make([]byte, width*height*4)
	for i := 0; i < width*height; i++ {
		o := i * 4
		rgba[o] = frame[o+2]
		rgba[o+1] = frame[o+1]
		rgba[o+2] = frame[o]
		rgba[o+3] = 0xFF
	}
	img := ebiten.NewImageFromImage(&image.RGBA{
		Pix:    rgba,
		Stride: width * 4,
		Rect:   image.Rect(0, 0, width, height),
	})
	screen.DrawImage(img, nil)
}

func (d *screenDisplay) Layout(outsideWidth, outsideHeight int) (int, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.width, d.height
}
