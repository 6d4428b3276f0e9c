// coproc_kernel.go - shared start/done/idle register state machine (§5, §7)
//
// Both PL kernels (raster, present) expose the same three-bit control
// register protocol: the PS sets START, the kernel clears IDLE while
// it runs and sets DONE when finished. CoprocKernel is that protocol
// factored out once, generalized from CoprocessorManager's per-CPU-type
// worker table (coprocessor_manager.go) down to a single fixed worker:
// one kernel invocation at a time, tracked with a done channel exactly
// like CoprocWorker.done, and waited on with the same
// deadline-plus-sleep polling loop cmdWait uses instead of a busy spin.
//
// Concurrent submission to the same kernel is forbidden by §5; here
// that rule is enforced structurally with a single-ticket
// golang.org/x/sync/semaphore.Weighted rather than merely documented,
// so a second Start call blocks until the in-flight invocation
// releases instead of corrupting kernel state.
package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// pollQuantum is the sleep granularity of WaitIdle/WaitDone, scaled
// against the §5 iteration budgets so WAIT_IDLE_POLL_ITERATIONS and
// WAIT_DONE_POLL_ITERATIONS translate into a concrete wall-clock
// timeout instead of a literal spin count.
const pollQuantum = 100 * time.Microsecond

// CoprocKernel is the control-register state machine shared by the
// raster and present kernels. It owns no domain state; raster_kernel.go
// and present_kernel.go embed one and drive it with their own mode
// dispatch functions.
type CoprocKernel struct {
	name string
	sem  *semaphore.Weighted
	perf *PerfCounters

	mu      sync.Mutex
	control uint32
	done    chan struct{}
}

func NewCoprocKernel(name string, perf *PerfCounters) *CoprocKernel {
	return &CoprocKernel{
		name: name,
		sem:  semaphore.NewWeighted(1),
		perf: perf,
		// Reset state: nothing has ever been submitted, so IDLE and
		// DONE both read true and a first WaitDone/WaitIdle (the fence
		// at the top of start_frame) returns immediately rather than
		// waiting out a full polling budget for an invocation that
		// will never complete.
		control: KCTL_IDLE | KCTL_DONE,
	}
}

// ControlRead returns the current value of KREG_CONTROL.
func (k *CoprocKernel) ControlRead() uint32 {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.control
}

// Start begins one kernel invocation: acquires the single-issue
// semaphore (blocking if a prior invocation has not yet signaled
// DONE), clears DONE/IDLE, sets START, and runs fn on its own
// goroutine exactly as the PL would execute asynchronously to the PS.
// fn's return marks the invocation DONE and IDLE and releases the
// semaphore for the next Start.
func (k *CoprocKernel) Start(ctx context.Context, fn func()) error {
	if err := k.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("%s: acquire kernel: %w", k.name, err)
	}

	k.mu.Lock()
	k.control = KCTL_START
	done := make(chan struct{})
	k.done = done
	k.mu.Unlock()

	go func() {
		defer k.sem.Release(1)
		fn()
		k.mu.Lock()
		k.control = KCTL_DONE | KCTL_IDLE
		k.mu.Unlock()
		close(done)
	}()
	return nil
}

// AckDone clears DONE so a subsequent Start re-arms the register
// protocol from a clean state (§5: DONE is read-and-clear by convention).
func (k *CoprocKernel) AckDone() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.control &^= KCTL_DONE
}

// WaitIdle blocks until IDLE is set or the §5 polling budget elapses.
func (k *CoprocKernel) WaitIdle() error {
	return k.waitBit(KCTL_IDLE, WAIT_IDLE_POLL_ITERATIONS)
}

// WaitDone blocks until DONE is set or the §5 polling budget elapses,
// recording the elapsed wait in the PL-wait perf counter either way.
func (k *CoprocKernel) WaitDone() error {
	start := time.Now()
	err := k.waitBit(KCTL_DONE, WAIT_DONE_POLL_ITERATIONS)
	k.perf.AddPLWaitNanos(time.Since(start).Nanoseconds())
	return err
}

func (k *CoprocKernel) waitBit(bit uint32, budget int) error {
	deadline := time.Now().Add(time.Duration(budget) * pollQuantum)
	for {
		k.mu.Lock()
		set := k.control&bit != 0
		k.mu.Unlock()
		if set {
			return nil
		}
		if time.Now().After(deadline) {
			k.mu.Lock()
			k.control &^= KCTL_START
			k.mu.Unlock()
			return fmt.Errorf("%s: %w (waiting for bit %#x)", k.name, ErrKernelTimeout, bit)
		}
		time.Sleep(pollQuantum)
	}
}

// Done returns the channel closed when the current invocation
// finishes, or nil if no invocation has ever been started. Present so
// callers that prefer select-based waiting (rather than WaitDone's
// polling loop) can compose it with a context deadline or shutdown signal.
func (k *CoprocKernel) Done() <-chan struct{} {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.done
}
