//go:build !nogpu

// Package gpu implements the vpp GPU accelerator on wgpu/hal compute
// shaders.
//
// This is an internal package. Users enable it with a blank import of
// github.com/gogpu/vpp/gpu, which registers a BlendAccelerator with vpp.
//
// # Blending
//
// The accelerator handles 8-bit constant-alpha plane blends
// (vpp.AccelBlend8), the hot path of I420 alpha blending in the mixer.
// Each vpp.BlendJob is uploaded as one uint32 per sample, blended by the
// blend8 compute shader with the same integer formula as the CPU kernel,
//
//	out = (dst*(256-a) + src*a) >> 8
//
// and read back through a mapped staging buffer.
//
// # Fallback
//
// If no Vulkan adapter can be opened, Init still succeeds and every Blend
// returns vpp.ErrFallbackToCPU, so the mixer keeps running on the CPU.
//
// # Device Sharing
//
// SetDeviceProvider switches the accelerator to a device owned by another
// component (for example a gogpu application) instead of opening its own.
package gpu
