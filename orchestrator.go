// orchestrator.go - present orchestrator: bounded queue + worker (§4.5)
//
// The PS-side half of the teacher's producer/consumer shape
// (coprocessor_manager.go's cmdEnqueue/cmdWait: a lock, a ring of
// slots, and a deadline-based wait) reworked as a true bounded
// blocking queue with two condition variables rather than a polling
// loop, since here the producer (engine thread) and the single
// worker both genuinely block rather than poll a register.
package main

import (
	"fmt"
	"sync"
)

type frameSnapshot = [SCREEN_PIXELS]byte

// PresentOrchestrator owns the bounded depth-3 queue of indexed-frame
// snapshots and the single worker that drains it, per §4.5 and §5's
// "engine thread may block only on wait_for_batch and the present
// queue when full" rule.
type PresentOrchestrator struct {
	mu      sync.Mutex
	notFull *sync.Cond
	notEmpty *sync.Cond
	queue   []frameSnapshot
	closed  bool

	mem     *SharedMemory
	cfg     *Config
	present *PresentKernel
	perf    *PerfCounters
	display DisplayBoundary

	hudMu   sync.Mutex
	hudBand []byte // alpha-keyed RGBA band, nil disables overlay

	wg sync.WaitGroup
}

func NewPresentOrchestrator(mem *SharedMemory, cfg *Config, present *PresentKernel, perf *PerfCounters, display DisplayBoundary) *PresentOrchestrator {
	o := &PresentOrchestrator{
		queue:   make([]frameSnapshot, 0, PRESENT_QUEUE_DEPTH),
		mem:     mem,
		cfg:     cfg,
		present: present,
		perf:    perf,
		display: display,
	}
	o.notFull = sync.NewCond(&o.mu)
	o.notEmpty = sync.NewCond(&o.mu)
	o.wg.Add(1)
	go o.run()
	return o
}

// Submit copies frame into a free queue slot, blocking while the
// queue is full (natural backpressure) and signaling the worker.
func (o *PresentOrchestrator) Submit(frame frameSnapshot) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for len(o.queue) >= PRESENT_QUEUE_DEPTH && !o.closed {
		o.notFull.Wait()
	}
	if o.closed {
		return fmt.Errorf("present orchestrator: closed")
	}
	o.queue = append(o.queue, frame)
	o.notEmpty.Signal()
	return nil
}

// Close stops the worker after draining any queued frames. Blocks
// until the worker goroutine has exited.
func (o *PresentOrchestrator) Close() {
	o.mu.Lock()
	o.closed = true
	o.notEmpty.Broadcast()
	o.notFull.Broadcast()
	o.mu.Unlock()
	o.wg.Wait()
}

// SetHUDBand installs the alpha-keyed overlay blitted onto the final
// packed-color frame in shared-handoff mode when HUD_OVERLAY is set.
// A nil band disables the overlay step entirely.
func (o *PresentOrchestrator) SetHUDBand(band []byte) {
	o.hudMu.Lock()
	o.hudBand = band
	o.hudMu.Unlock()
}

// QueueLen reports the current number of queued, not-yet-presented
// frames, used by the CLI's sync-present mode to drain between frames.
func (o *PresentOrchestrator) QueueLen() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.queue)
}

func (o *PresentOrchestrator) run() {
	defer o.wg.Done()
	for {
		o.mu.Lock()
		for len(o.queue) == 0 && !o.closed {
			o.notEmpty.Wait()
		}
		if len(o.queue) == 0 && o.closed {
			o.mu.Unlock()
			return
		}
		frame := o.queue[0]
		o.queue = o.queue[1:]
		o.notFull.Signal()
		o.mu.Unlock()

		o.presentFrame(frame)
	}
}

// presentFrame consumes one snapshot: either a CPU-side palette
// expansion fast path, or (when PresentUsePL is set) a PL present
// invocation, then hands the result to the display boundary.
func (o *PresentOrchestrator) presentFrame(frame frameSnapshot) {
	// The engine-submitted snapshot is always the full 200-row indexed
	// frame; which DDR region it lands in depends only on the routing
	// mode, not on how much of it the PL subsequently reads back (§4.5).
	rows := SCREEN_HEIGHT
	srcPtr := o.cfg.PresentSourceBase()
	if err := o.mem.WriteBlock(srcPtr, frame[:rows*SCREEN_WIDTH]); err != nil {
		return
	}

	scale := o.cfg.PresentScale
	if scale == 0 {
		scale = 1
	}
	lanes := o.cfg.PresentLanes
	if lanes != 4 {
		lanes = 1
	}

	var outBuf []byte
	if o.cfg.PresentUsePL {
		outBuf = o.presentViaPL(srcPtr, rows, scale, lanes)
	} else {
		outBuf = o.presentViaCPU(frame, rows, scale)
	}
	if outBuf == nil {
		return
	}

	if o.cfg.SharedBRAMHandoff && o.cfg.HUDOverlay {
		o.compositeHUD(outBuf, scale)
	}

	o.display.Present(outBuf, SCREEN_WIDTH*scale, rows*scale)
}

// presentViaPL drives the PL present kernel and reads the result back
// from the output region it wrote, for the display boundary to consume.
func (o *PresentOrchestrator) presentViaPL(srcPtr uint32, rows, scale, lanes int) []byte {
	dst := o.cfg.FBOutBase
	lanePtr := [4]uint32{dst, dst, dst, dst}
	o.present.SubmitPresent(srcPtr, rows, scale, lanes, int(PRESENT_FORMAT_XRGB8888), 0, false, 0, lanePtr)
	if err := o.present.WaitDone(); err != nil {
		return nil
	}
	outWidth := SCREEN_WIDTH * scale
	return o.mem.ReadBlock(dst, rows*scale*outWidth*4)
}

// presentViaCPU is the fast path: palette expansion plus nearest
// neighbor vertical/horizontal replication without a PL round trip,
// mirroring blendFrameScaled's Bresenham-style integer upscale instead
// of per-pixel division.
func (o *PresentOrchestrator) presentViaCPU(frame frameSnapshot, rows, scale int) []byte {
	palette := o.present.currentPalette()
	outWidth := SCREEN_WIDTH * scale
	outHeight := rows * scale
	out := make([]byte, outWidth*outHeight*4)

	for oy := 0; oy < outHeight; oy++ {
		sy := oy / scale
		rowOut := out[oy*outWidth*4 : (oy+1)*outWidth*4]
		q, r := 0, 0
		for ox := 0; ox < outWidth; ox++ {
			idx := frame[sy*SCREEN_WIDTH+q]
			c := palette[idx]
			dstOff := ox * 4
			rowOut[dstOff] = c[2]
			rowOut[dstOff+1] = c[1]
			rowOut[dstOff+2] = c[0]
			rowOut[dstOff+3] = 0
			r++
			if r >= scale {
				r -= scale
				q++
			}
		}
	}
	return out
}

// compositeHUD alpha-key blits the installed HUD band onto the bottom
// rows of outBuf (one XRGB8888 pixel per 4 bytes), the same
// nonzero-alpha-copies-pixel rule video_compositor.go's blendStrip uses.
func (o *PresentOrchestrator) compositeHUD(outBuf []byte, scale int) {
	o.hudMu.Lock()
	band := o.hudBand
	o.hudMu.Unlock()
	if band == nil {
		return
	}
	outWidth := SCREEN_WIDTH * scale * 4
	bandRows := len(band) / outWidth
	if bandRows <= 0 {
		return
	}
	startRow := len(outBuf)/outWidth - bandRows
	if startRow < 0 {
		return
	}
	for i := 0; i < bandRows*outWidth; i += 4 {
		if band[i+3] != 0 {
			dst := startRow*outWidth + i
			copy(outBuf[dst:dst+4], band[i:i+4])
		}
	}
}
