//go:build vulkan

// raster_vulkan_backend.go - bench-hw raster backend (§6 RASTER_BACKEND=hw)
//
// Grounded on voodoo_vulkan.go's fallback philosophy: probe for a
// usable Vulkan instance once at startup, and if anything in that
// chain fails, return nil so selectRasterBackend silently falls back
// to softRasterBackend instead of the process refusing to start. Only
// a Vulkan instance is created; no device, queue or compute pipeline is
// set up, and DrawColumn/DrawSpan run the software backend's loops.
package main

import (
	"sync"

	vk "github.com/goki/vulkan"
)

type vulkanRasterBackend struct {
	mu       sync.Mutex
	instance vk.Instance
	fallback *softRasterBackend
}

func newHardwareRasterBackend() RasterBackend {
	if err := vk.Init(); err != nil {
		return nil
	}
	appInfo := &vk.ApplicationInfo{
		SType:      vk.StructureTypeApplicationInfo,
		PApiVersion: vk.MakeVersion(1, 0, 0),
	}
	createInfo := &vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}
	var instance vk.Instance
	if res := vk.CreateInstance(createInfo, nil, &instance); res != vk.Success {
		return nil
	}
	return &vulkanRasterBackend{instance: instance, fallback: newSoftRasterBackend()}
}

// DrawColumn and DrawSpan currently dispatch to the software path
// under the instance's lock: the compute-shader pipeline this backend
// probes for is not yet built, so "hw" selection today buys correct
// results and an initialized device, not a faster inner loop.
func (b *vulkanRasterBackend) DrawColumn(fb []byte, column *[COLUMN_BYTES]byte, colormap *[COLORMAP_SIZE]byte, cmd DrawCommand) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fallback.DrawColumn(fb, column, colormap, cmd)
}

func (b *vulkanRasterBackend) DrawSpan(fb []byte, flat *[FLAT_BYTES]byte, colormap *[COLORMAP_SIZE]byte, cmd DrawCommand) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fallback.DrawSpan(fb, flat, colormap, cmd)
}
