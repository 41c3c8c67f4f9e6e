package vpp

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/gogpu/vpp/internal/parallel"
	"github.com/gogpu/vpp/internal/pool"
)

// pooledPerSize is the number of freed buffers kept per length.
const pooledPerSize = 8

// Target is the execution target a Device dispatches to.
type Target uint8

const (
	// TargetCPU runs every kernel on the worker pool.
	TargetCPU Target = iota

	// TargetGPU offers eligible kernels to the registered accelerator
	// first and falls back to the worker pool.
	TargetGPU
)

// String returns the target name.
func (t Target) String() string {
	switch t {
	case TargetCPU:
		return "cpu"
	case TargetGPU:
		return "gpu"
	default:
		return fmt.Sprintf("Target(%d)", uint8(t))
	}
}

// Device is the execution queue every operation dispatches onto. It is
// created once per session and shared by all operations.
//
// Device is safe for concurrent use.
type Device struct {
	target    Target
	profiling bool
	pool      *parallel.WorkerPool
	buffers   *pool.Pool

	mu      sync.Mutex
	pending map[*Event]struct{}
	closed  atomic.Bool
}

// NewDevice creates a device and starts its workers.
func NewDevice(opts ...DeviceOption) (*Device, error) {
	o := defaultDeviceOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.target > TargetGPU {
		return nil, invalidf("unknown target %d", o.target)
	}

	d := &Device{
		target:    o.target,
		profiling: o.profiling,
		pool:      parallel.NewWorkerPool(o.workers),
		buffers:   pool.New(pooledPerSize),
		pending:   make(map[*Event]struct{}),
	}

	log := Logger().WithFields(logrus.Fields{
		"target":    d.target,
		"workers":   d.pool.Workers(),
		"profiling": d.profiling,
	})
	if d.target == TargetGPU {
		if a := Accelerator(); a != nil {
			log = log.WithField("accelerator", a.Name())
		} else {
			log.Warn("vpp: no accelerator registered, GPU target runs on CPU")
		}
	}
	log.Info("vpp: device created")
	return d, nil
}

// Target returns the execution target.
func (d *Device) Target() Target { return d.target }

// Version returns the format set version the device implements.
func (d *Device) Version() string { return Version }

// Profiling reports whether events carry timestamps.
func (d *Device) Profiling() bool { return d.profiling }

// Workers returns the number of CPU workers.
func (d *Device) Workers() int { return d.pool.Workers() }

// Sync waits for every dispatch submitted before the call.
func (d *Device) Sync(ctx context.Context) error {
	d.mu.Lock()
	events := make([]*Event, 0, len(d.pending))
	for e := range d.pending {
		events = append(events, e)
	}
	d.mu.Unlock()
	return WaitAll(ctx, events...)
}

// Close waits for outstanding dispatches and stops the workers. Dispatches
// issued after Close fail with ErrClosed.
func (d *Device) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := d.Sync(context.Background())
	d.pool.Close()
	d.buffers.Drain()
	Logger().Debug("vpp: device closed")
	return err
}

// accelerator returns the registered accelerator when the device targets
// the GPU and the accelerator supports op.
func (d *Device) accelerator(op AcceleratedOp) GPUAccelerator {
	if d.target != TargetGPU {
		return nil
	}
	a := Accelerator()
	if a == nil || !a.CanAccelerate(op) {
		return nil
	}
	return a
}

func (d *Device) track(e *Event) {
	d.mu.Lock()
	d.pending[e] = struct{}{}
	d.mu.Unlock()
}

func (d *Device) untrack(e *Event) {
	d.mu.Lock()
	delete(d.pending, e)
	d.mu.Unlock()
}
