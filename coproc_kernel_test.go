// coproc_kernel_test.go - start/done/idle register protocol (§5, §8)
package main

import (
	"context"
	"testing"
	"time"
)

func TestCoprocKernel_InitialStateIsDoneAndIdle(t *testing.T) {
	k := NewCoprocKernel("test", NewPerfCounters())
	if k.ControlRead()&KCTL_DONE == 0 {
		t.Fatal("expected DONE set before any invocation, so an initial WaitDone does not time out")
	}
	if err := k.WaitDone(); err != nil {
		t.Fatalf("WaitDone on a never-started kernel should return immediately: %v", err)
	}
}

func TestCoprocKernel_StartClearsIdleUntilDone(t *testing.T) {
	k := NewCoprocKernel("test", NewPerfCounters())
	release := make(chan struct{})
	go k.Start(context.Background(), func() { <-release })

	// Give the goroutine a moment to set START/clear IDLE.
	time.Sleep(10 * time.Millisecond)
	if k.ControlRead()&KCTL_IDLE != 0 {
		t.Fatal("expected IDLE clear while the kernel is running")
	}

	close(release)
	if err := k.WaitDone(); err != nil {
		t.Fatalf("WaitDone: %v", err)
	}
	if k.ControlRead()&(KCTL_DONE|KCTL_IDLE) != (KCTL_DONE | KCTL_IDLE) {
		t.Fatalf("expected DONE|IDLE after completion, got %#x", k.ControlRead())
	}
}

func TestCoprocKernel_SecondStartBlocksUntilFirstReleases(t *testing.T) {
	k := NewCoprocKernel("test", NewPerfCounters())
	release := make(chan struct{})
	started := make(chan struct{})

	go k.Start(context.Background(), func() {
		close(started)
		<-release
	})
	<-started

	secondDone := make(chan struct{})
	go func() {
		k.Start(context.Background(), func() {})
		close(secondDone)
	}()

	select {
	case <-secondDone:
		t.Fatal("second Start returned before the first invocation released")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	select {
	case <-secondDone:
	case <-time.After(time.Second):
		t.Fatal("second Start never completed after the first released")
	}
}

func TestCoprocKernel_WaitDoneTimesOutWithoutStart(t *testing.T) {
	k := NewCoprocKernel("test", NewPerfCounters())
	k.mu.Lock()
	k.control = 0 // force the "running, never completing" state
	k.mu.Unlock()

	err := k.waitBit(KCTL_DONE, 5)
	if err == nil {
		t.Fatal("expected a timeout error")
	}
}

func TestCoprocKernel_AckDoneClearsDoneBit(t *testing.T) {
	k := NewCoprocKernel("test", NewPerfCounters())
	k.AckDone()
	if k.ControlRead()&KCTL_DONE != 0 {
		t.Fatal("expected AckDone to clear the DONE bit")
	}
}
