//go:build !vulkan

package main

// newHardwareRasterBackend reports no hardware backend is available
// in builds without the vulkan tag; selectRasterBackend falls back to
// software.
func newHardwareRasterBackend() RasterBackend { return nil }
