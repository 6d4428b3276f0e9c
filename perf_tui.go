// perf_tui.go - headless perf status line (§4.6 "perf counters must be
// observable without a GUI")
//
// Grounded on terminal_host.go's use of golang.org/x/term for raw-mode
// stdin handling: here the same package's non-interactive surface
// (IsTerminal, GetSize) gates whether a single self-overwriting status
// line is safe to print, rather than spamming a non-terminal (piped
// output, a log file) with carriage returns.
package main

import (
	"fmt"
	"os"
	"time"

	"golang.org/x/term"
)

// PerfStatusLine periodically samples a PerfCounters record and prints
// a one-line summary, in place on a real terminal or one line per tick
// when stdout isn't a terminal.
type PerfStatusLine struct {
	perf     *PerfCounters
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
}

func NewPerfStatusLine(perf *PerfCounters, interval time.Duration) *PerfStatusLine {
	return &PerfStatusLine{
		perf:     perf,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (s *PerfStatusLine) Start() {
	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		isTTY := term.IsTerminal(int(os.Stdout.Fd()))
		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				s.printOnce(isTTY)
			}
		}
	}()
}

func (s *PerfStatusLine) Stop() {
	close(s.stop)
	<-s.done
}

func (s *PerfStatusLine) printOnce(isTTY bool) {
	sample := s.perf.SampleAndReset()
	line := fmt.Sprintf(
		"cols=%d spans=%d flush=%d midframe=%d maxbatch=%d cache=%d/%d wraps=%d plwait=%dus present=%dus",
		sample.QueuedColumns, sample.QueuedSpans, sample.FlushCount, sample.MidFrameFlushes,
		sample.MaxBatchSize, sample.CacheHits, sample.CacheLookups, sample.CacheWraps,
		sample.PLWaitNanos/1000, sample.PresentScaleNanos/1000,
	)

	if !isTTY {
		fmt.Fprintln(os.Stdout, line)
		return
	}

	width := 80
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		width = w
	}
	if len(line) > width {
		line = line[:width]
	} else if pad := width - len(line); pad > 0 {
		line += fmt.Sprintf("%*s", pad, "")
	}
	fmt.Fprintf(os.Stdout, "\r%s", line)
}
