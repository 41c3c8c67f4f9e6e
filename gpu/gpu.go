//go:build !nogpu

// Package gpu registers the wgpu blend accelerator.
//
// Import this package to run constant-alpha mixer blends of 8-bit planes
// on a Vulkan compute pipeline. Devices created with vpp.TargetGPU offer
// those blends to the accelerator first.
//
// If GPU initialization fails (no Vulkan device available), the
// accelerator stays registered but declines every job, and blending runs
// on the CPU worker pool.
//
// Usage:
//
//	import _ "github.com/gogpu/vpp/gpu" // enable GPU blending
package gpu

import (
	"github.com/gogpu/vpp"
	gpuimpl "github.com/gogpu/vpp/internal/gpu"
)

func init() {
	accel := &gpuimpl.BlendAccelerator{}
	if err := vpp.RegisterAccelerator(accel); err != nil {
		vpp.Logger().WithError(err).Warn("vpp: GPU accelerator not available")
	}
}

// SetDeviceProvider configures the GPU accelerator to use a shared GPU device
// from an external provider (e.g., gogpu). This avoids creating a separate
// GPU instance next to a renderer that already owns one.
//
// The provider must expose HalDevice() and HalQueue(). Providers that also
// implement gpucontext.DeviceProvider and report a software adapter are
// refused, leaving blending on the CPU.
func SetDeviceProvider(provider any) error {
	return vpp.SetAcceleratorDeviceProvider(provider)
}
