// perf_counters_test.go - sample_and_reset idempotence and accumulation (§8)
package main

import "testing"

func TestPerfCounters_SampleAndResetZeroesCounters(t *testing.T) {
	p := NewPerfCounters()
	p.AddQueuedColumn()
	p.AddQueuedColumn()
	p.AddFlush()
	p.AddCmdUploadBytes(128)

	sample := p.SampleAndReset()
	if sample.QueuedColumns != 2 || sample.FlushCount != 1 || sample.CmdUploadBytes != 128 {
		t.Fatalf("unexpected first sample: %+v", sample)
	}

	second := p.SampleAndReset()
	if second.QueuedColumns != 0 || second.FlushCount != 0 || second.CmdUploadBytes != 0 {
		t.Fatalf("expected counters zeroed after sample, got %+v", second)
	}
}

func TestPerfCounters_CacheEntriesIsAGaugeNotACounter(t *testing.T) {
	p := NewPerfCounters()
	p.SetCacheEntries(42)
	first := p.SampleAndReset()
	if first.CacheEntries != 42 {
		t.Fatalf("expected gauge value 42, got %d", first.CacheEntries)
	}
	second := p.SampleAndReset()
	if second.CacheEntries != 42 {
		t.Fatalf("expected gauge to survive a sample_and_reset (not a counter), got %d", second.CacheEntries)
	}
}

func TestPerfCounters_ObserveBatchSizeTracksMaximum(t *testing.T) {
	p := NewPerfCounters()
	p.ObserveBatchSize(10)
	p.ObserveBatchSize(3)
	p.ObserveBatchSize(25)
	sample := p.SampleAndReset()
	if sample.MaxBatchSize != 25 {
		t.Fatalf("expected max batch size 25, got %d", sample.MaxBatchSize)
	}
}

func TestPerfCounters_SampleAndResetIsIdempotentWhenCalledTwiceInARow(t *testing.T) {
	p := NewPerfCounters()
	first := p.SampleAndReset()
	second := p.SampleAndReset()
	if first != second {
		t.Fatalf("two consecutive samples of an untouched counter set should be equal: %+v vs %+v", first, second)
	}
}
