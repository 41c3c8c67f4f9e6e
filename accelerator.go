package vpp

import (
	"errors"
	"sync"
)

// ErrFallbackToCPU indicates the accelerator cannot handle this job.
// The caller falls back to the CPU kernel.
var ErrFallbackToCPU = errors.New("vpp: falling back to CPU")

// AcceleratedOp describes operation types for capability checking.
type AcceleratedOp uint32

const (
	// AccelBlend8 is constant-alpha blending of 8-bit sample planes.
	AccelBlend8 AcceleratedOp = 1 << iota
)

// BlendJob describes one plane blend: Height rows of Width 8-bit samples,
//
//	Dst[y*DstStride+x] = (Dst*(256-Alpha) + Src[y*SrcStride+x]*Alpha) >> 8
//
// Dst and Src start at the first sample of the blended window.
type BlendJob struct {
	Dst       []byte
	DstStride int
	Src       []byte
	SrcStride int

	Width, Height int
	Alpha         uint8
}

// GPUAccelerator is an optional GPU acceleration provider.
//
// When registered via RegisterAccelerator and a Device is created with
// TargetGPU, eligible kernels are offered to the accelerator first. If it
// returns ErrFallbackToCPU or any other error, the kernel runs on the CPU.
//
// Implementations live in GPU backend packages. Users opt in via blank
// import:
//
//	import _ "github.com/gogpu/vpp/gpu" // enables GPU acceleration
type GPUAccelerator interface {
	// Name returns the accelerator name (e.g., "wgpu").
	Name() string

	// Init initializes GPU resources. Called once during registration.
	Init() error

	// Close releases GPU resources.
	Close()

	// CanAccelerate reports whether the accelerator supports op.
	CanAccelerate(op AcceleratedOp) bool

	// Blend runs a plane blend and returns once Dst holds the result.
	// Returns ErrFallbackToCPU if the job cannot be accelerated.
	Blend(job BlendJob) error
}

// DeviceProviderAware is an optional interface for accelerators that can
// share a GPU device with an external provider.
type DeviceProviderAware interface {
	SetDeviceProvider(provider any) error
}

var (
	accelMu sync.RWMutex
	accel   GPUAccelerator
)

// RegisterAccelerator registers a GPU accelerator.
//
// Only one accelerator can be registered. Subsequent calls replace the
// previous one, which is closed. Init is called during registration; if it
// fails the accelerator is not registered and the error is returned.
func RegisterAccelerator(a GPUAccelerator) error {
	if a == nil {
		return errors.New("vpp: accelerator must not be nil")
	}
	if err := a.Init(); err != nil {
		return err
	}
	propagateLogger(a, Logger())

	accelMu.Lock()
	old := accel
	accel = a
	accelMu.Unlock()
	if old != nil {
		old.Close()
	}
	return nil
}

// UnregisterAccelerator removes and closes the registered accelerator.
func UnregisterAccelerator() {
	accelMu.Lock()
	old := accel
	accel = nil
	accelMu.Unlock()
	if old != nil {
		old.Close()
	}
}

// Accelerator returns the registered accelerator, or nil if none.
func Accelerator() GPUAccelerator {
	accelMu.RLock()
	a := accel
	accelMu.RUnlock()
	return a
}

// SetAcceleratorDeviceProvider passes a device provider to the registered
// accelerator. If no accelerator is registered or it doesn't support device
// sharing, this is a no-op.
func SetAcceleratorDeviceProvider(provider any) error {
	a := Accelerator()
	if a == nil {
		return nil
	}
	if dpa, ok := a.(DeviceProviderAware); ok {
		return dpa.SetDeviceProvider(provider)
	}
	return nil
}
