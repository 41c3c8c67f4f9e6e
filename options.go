package vpp

// DeviceOption configures a Device during creation.
//
// Example:
//
//	// CPU device with profiling timestamps on every event
//	dev, err := vpp.NewDevice(vpp.WithProfiling(true))
//
//	// Prefer the registered GPU accelerator
//	import _ "github.com/gogpu/vpp/gpu"
//	dev, err := vpp.NewDevice(vpp.WithTarget(vpp.TargetGPU))
type DeviceOption func(*deviceOptions)

// deviceOptions holds optional configuration for Device creation.
type deviceOptions struct {
	target    Target
	profiling bool
	workers   int
}

// defaultDeviceOptions returns the default device options.
func defaultDeviceOptions() deviceOptions {
	return deviceOptions{
		target:  TargetCPU,
		workers: 0, // GOMAXPROCS
	}
}

// WithTarget selects the execution target. TargetGPU routes eligible kernels
// to the registered accelerator; everything else still runs on the CPU pool.
func WithTarget(t Target) DeviceOption {
	return func(o *deviceOptions) {
		o.target = t
	}
}

// WithProfiling records start and end timestamps on every event.
func WithProfiling(on bool) DeviceOption {
	return func(o *deviceOptions) {
		o.profiling = on
	}
}

// WithWorkers sets the number of CPU workers. Zero or negative means
// GOMAXPROCS.
func WithWorkers(n int) DeviceOption {
	return func(o *deviceOptions) {
		o.workers = n
	}
}
