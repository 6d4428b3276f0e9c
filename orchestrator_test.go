// orchestrator_test.go - bounded queue, HUD compositing, CPU/PL present selection (§4.5, §8)
package main

import (
	"testing"
	"time"
)

// recordingDisplay hands each presented frame to a channel so tests can
// synchronize with the orchestrator's worker goroutine instead of sleeping.
type recordingDisplay struct {
	frames chan []byte
	w, h   int
}

func newRecordingDisplay() *recordingDisplay {
	return &recordingDisplay{frames: make(chan []byte)}
}

func (d *recordingDisplay) Present(pixels []byte, width, height int) error {
	d.w, d.h = width, height
	buf := make([]byte, len(pixels))
	copy(buf, pixels)
	d.frames <- buf
	return nil
}

func (d *recordingDisplay) Close() error { close(d.frames); return nil }

func newTestOrchestrator(usePL bool) (*PresentOrchestrator, *recordingDisplay, *Config) {
	cfg := LoadConfig()
	cfg.PresentUsePL = usePL
	cfg.SharedBRAMHandoff = true
	cfg.PresentScale = 1
	cfg.PresentLanes = 1
	mem := NewSharedMemory(cfg)
	perf := NewPerfCounters()
	present := NewPresentKernel(mem, cfg, perf)
	loadIdentityGrayscalePalette(mem, cfg)
	present.LoadPalette()
	disp := newRecordingDisplay()
	return NewPresentOrchestrator(mem, cfg, present, perf, disp), disp, cfg
}

func solidFrame(idx byte) frameSnapshot {
	var f frameSnapshot
	for i := range f {
		f[i] = idx
	}
	return f
}

func TestPresentOrchestrator_SubmitAndPresentViaCPU(t *testing.T) {
	o, disp, _ := newTestOrchestrator(false)
	defer o.Close()

	if err := o.Submit(solidFrame(5)); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	select {
	case frame := <-disp.frames:
		if frame[0] != 5 || frame[1] != 5 || frame[2] != 5 {
			t.Fatalf("expected palette[5] grayscale pixel, got %v", frame[0:3])
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for presented frame")
	}
}

func TestPresentOrchestrator_SubmitAndPresentViaPL(t *testing.T) {
	o, disp, _ := newTestOrchestrator(true)
	defer o.Close()

	if err := o.Submit(solidFrame(9)); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	select {
	case frame := <-disp.frames:
		if frame[0] != 9 || frame[1] != 9 || frame[2] != 9 {
			t.Fatalf("expected palette[9] grayscale pixel via PL path, got %v", frame[0:3])
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for presented frame")
	}
}

func TestPresentOrchestrator_QueueBackpressureBlocksSubmitWhenFull(t *testing.T) {
	o, disp, _ := newTestOrchestrator(false)
	defer o.Close()

	// The display's unbuffered channel means the worker's first pop
	// blocks mid-present until read, letting PRESENT_QUEUE_DEPTH more
	// frames queue up; one additional Submit beyond that must block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < PRESENT_QUEUE_DEPTH+2; i++ {
			o.Submit(solidFrame(byte(i)))
		}
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("expected the final Submit to block while the queue is full")
	case <-time.After(100 * time.Millisecond):
	}

	// Drain frames until the blocked Submit above can proceed.
	for i := 0; i < PRESENT_QUEUE_DEPTH+2; i++ {
		select {
		case <-disp.frames:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out draining frame %d", i)
		}
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("expected blocked Submit to unblock once frames drained")
	}
}

func TestPresentOrchestrator_CloseIsIdempotentAndDrainsQueue(t *testing.T) {
	o, disp, _ := newTestOrchestrator(false)
	if err := o.Submit(solidFrame(1)); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	<-disp.frames
	o.Close()

	if err := o.Submit(solidFrame(2)); err == nil {
		t.Fatal("expected Submit on a closed orchestrator to error")
	}
	o.Close() // must not panic or deadlock on a second Close
}

func TestPresentOrchestrator_QueueLenReflectsPendingFrames(t *testing.T) {
	o, disp, _ := newTestOrchestrator(false)
	defer o.Close()
	defer func() {
		for len(disp.frames) > 0 {
			<-disp.frames
		}
	}()

	if o.QueueLen() != 0 {
		t.Fatalf("expected empty queue initially, got %d", o.QueueLen())
	}
}

func TestPresentOrchestrator_CompositeHUDBlitsOnlyOpaquePixels(t *testing.T) {
	o, disp, cfg := newTestOrchestrator(false)
	defer o.Close()
	cfg.HUDOverlay = true

	outWidth := SCREEN_WIDTH * 4
	band := make([]byte, outWidth*2) // 2-row band
	// first pixel opaque (bytes 1,2,3), second pixel transparent (alpha 0, skipped).
	band[0], band[1], band[2], band[3] = 1, 2, 3, 0xFF
	band[4], band[5], band[6], band[7] = 9, 9, 9, 0
	o.SetHUDBand(band)

	if err := o.Submit(solidFrame(0)); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	select {
	case frame := <-disp.frames:
		rows := SCREEN_HEIGHT
		startRow := rows - 2
		off := startRow * outWidth
		if frame[off] != 1 || frame[off+1] != 2 || frame[off+2] != 3 {
			t.Fatalf("expected opaque HUD pixel blitted at row %d, got %v", startRow, frame[off:off+4])
		}
		if frame[off+4] == 9 {
			t.Fatal("expected transparent HUD pixel to leave the underlying frame untouched")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for presented frame")
	}
}
