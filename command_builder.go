// command_builder.go - PS-side command staging and batch submission (§4.1)
//
// Grounded on cmdEnqueue/cmdWait in coprocessor_manager.go: draw
// commands accumulate in a host-local structure and are only made
// visible to the PL kernel in one bulk operation, with a deadline-based
// wait rather than a busy spin for the fence. Here the "ring" is a
// flat staging slice (§3 CommandBatch) instead of a ring buffer, because
// a frame's commands are always fully consumed by the following flush.
package main

import (
	"fmt"
	"sync"
)

// RasterKernel is the narrow surface the command builder needs from
// the raster kernel: issuing an async combined draw+DMA submission,
// waiting for it to complete, and a synchronous framebuffer clear.
// raster_kernel.go provides the concrete implementation; this
// interface keeps the two components testable in isolation.
type RasterKernel interface {
	SubmitDrawAndDMA(numCommands int) error
	WaitDone() error
	ClearFramebuffer() error
}

// CommandBuilder owns the atlas allocator, the pointer-offset cache
// (both via AtlasManager), the command staging buffer, and the perf
// counters, per §3's ownership rule.
type CommandBuilder struct {
	mu sync.Mutex

	commands []DrawCommand
	cmdBuf   *SharedRegion
	raster   RasterKernel
	atlas    *AtlasManager
	perf     *PerfCounters
}

func NewCommandBuilder(cmdBuf *SharedRegion, raster RasterKernel, atlas *AtlasManager, perf *PerfCounters) *CommandBuilder {
	return &CommandBuilder{
		commands: make([]DrawCommand, 0, MAX_COMMANDS),
		cmdBuf:   cmdBuf,
		raster:   raster,
		atlas:    atlas,
		perf:     perf,
	}
}

// StartFrame fences any prior PL submission, then resets the batch
// command count to zero. It never touches the indexed framebuffer;
// HUD persistence across frames depends on that.
func (b *CommandBuilder) StartFrame() error {
	if err := b.raster.WaitDone(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.commands = b.commands[:0]
	return nil
}

// QueueColumn clamps and appends a kind=0 record. A batch at capacity
// is flushed (and counted as a mid-frame flush) before the new record
// is appended, rather than dropped.
func (b *CommandBuilder) QueueColumn(x int, y1, y2 int, frac, step, texOff uint32, light uint8) error {
	cx1, cy1, cy2, ok := clampColumn(x, y1, y2)
	if !ok {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.commands) >= MAX_COMMANDS {
		if err := b.flushLocked(true); err != nil {
			return err
		}
	}
	b.commands = append(b.commands, DrawCommand{
		Kind: CMD_KIND_COLUMN, Light: clampLight(light),
		X1: cx1, X2: 0, Y1: cy1, Y2: cy2,
		Frac: frac, Step: step, TexOff: texOff,
	})
	b.perf.AddQueuedColumn()
	return nil
}

// QueueSpan clamps and appends a kind=1 record with the same
// overflow contract as QueueColumn.
func (b *CommandBuilder) QueueSpan(y int, x1, x2 int, pos, step, texOff uint32, light uint8) error {
	cy, cx1, cx2, ok := clampSpan(y, x1, x2)
	if !ok {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.commands) >= MAX_COMMANDS {
		if err := b.flushLocked(true); err != nil {
			return err
		}
	}
	b.commands = append(b.commands, DrawCommand{
		Kind: CMD_KIND_SPAN, Light: clampLight(light),
		X1: cx1, X2: cx2, Y1: cy, Y2: 0,
		Frac: pos, Step: step, TexOff: texOff,
	})
	b.perf.AddQueuedSpan()
	return nil
}

// FlushBatch copies the staged batch to PL-visible memory in one
// contiguous write and issues the combined draw+DMA command
// asynchronously, fencing any previous in-flight submission first.
func (b *CommandBuilder) FlushBatch() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.flushLocked(false)
}

func (b *CommandBuilder) flushLocked(midFrame bool) error {
	if len(b.commands) == 0 {
		return nil
	}
	if err := b.raster.WaitDone(); err != nil {
		return err
	}

	buf := make([]byte, len(b.commands)*DRAW_CMD_BYTES)
	for i, c := range b.commands {
		wire := c.Encode()
		copy(buf[i*DRAW_CMD_BYTES:], wire[:])
	}
	if err := b.cmdBuf.CopyIn(buf); err != nil {
		return fmt.Errorf("%w: %v", ErrBatchOverflow, err)
	}
	b.perf.AddCmdUploadBytes(len(buf))
	b.perf.AddFlush()
	if midFrame {
		b.perf.AddMidFrameFlush()
	}
	b.perf.ObserveBatchSize(len(b.commands))

	n := len(b.commands)
	b.commands = b.commands[:0]
	return b.raster.SubmitDrawAndDMA(n)
}

// WaitForBatch blocks until the currently in-flight PL submission
// signals completion. Idempotent if none is in flight.
func (b *CommandBuilder) WaitForBatch() error {
	return b.raster.WaitDone()
}

// ClearFramebuffer synchronously clears the on-chip indexed
// framebuffer and invalidates the atlas and texture caches.
func (b *CommandBuilder) ClearFramebuffer() error {
	if err := b.raster.ClearFramebuffer(); err != nil {
		return err
	}
	b.atlas.Reset()
	return nil
}

// Reset empties the staging buffer and resets the atlas. It does not
// wait for a submission already in flight. Used on level transitions
// alongside the atlas manager's own Reset.
func (b *CommandBuilder) Reset() {
	b.mu.Lock()
	b.commands = b.commands[:0]
	b.mu.Unlock()
	b.atlas.Reset()
}
