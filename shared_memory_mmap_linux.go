//go:build linux

package main

import "golang.org/x/sys/unix"

// newMmapBacking maps an anonymous, shared region of the given size,
// modeling a non-cacheable PL-visible DDR window (§9) without requiring
// an actual FPGA-backed device file. Returns ok=false on any mmap
// failure so the caller can fall back to a plain Go slice.
func newMmapBacking(size uint32) ([]byte, func() error, bool) {
	data, err := unix.Mmap(-1, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_ANON)
	if err != nil {
		return nil, nil, false
	}
	closer := func() error {
		return unix.Munmap(data)
	}
	return data, closer, true
}
