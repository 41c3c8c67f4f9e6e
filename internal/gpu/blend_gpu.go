//go:build !nogpu

package gpu

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"unsafe"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/sirupsen/logrus"

	"github.com/gogpu/vpp"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"
)

// blendParamsSize is the size of the Params uniform in blend8ShaderSource.
const blendParamsSize = 16

// errSoftwareAdapter rejects shared devices that emulate the GPU on the CPU.
var errSoftwareAdapter = errors.New("gpu: software adapter, blending stays on the CPU pool")

// BlendAccelerator runs constant-alpha plane blends on a wgpu/hal compute
// pipeline. It implements the vpp.GPUAccelerator interface.
type BlendAccelerator struct {
	mu sync.Mutex

	instance hal.Instance
	device   hal.Device
	queue    hal.Queue

	shader     hal.ShaderModule
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipeline   hal.ComputePipeline

	adapter        string
	gpuReady       bool
	externalDevice bool // true when using shared device (don't destroy on Close)
}

var _ vpp.GPUAccelerator = (*BlendAccelerator)(nil)

func (a *BlendAccelerator) Name() string { return "wgpu-blend" }

func (a *BlendAccelerator) CanAccelerate(op vpp.AcceleratedOp) bool {
	return op&vpp.AccelBlend8 != 0
}

// Init opens a Vulkan device. A missing GPU is not an error: the
// accelerator stays registered and declines every job.
func (a *BlendAccelerator) Init() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.initGPU(); err != nil {
		logger().WithError(err).Warn("gpu: GPU init failed, using CPU fallback")
	}
	return nil
}

// Ready reports whether blends run on the GPU.
func (a *BlendAccelerator) Ready() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.gpuReady
}

// Adapter returns the name of the adapter in use, or "" before a device is
// open.
func (a *BlendAccelerator) Adapter() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.adapter
}

// SetLogger implements the logger hook vpp.SetLogger propagates through.
func (a *BlendAccelerator) SetLogger(l logrus.FieldLogger) { setLogger(l) }

func (a *BlendAccelerator) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.releaseLocked()
}

func (a *BlendAccelerator) releaseLocked() {
	a.destroyPipelines()
	if !a.externalDevice {
		if a.device != nil {
			a.device.Destroy()
		}
		if a.instance != nil {
			a.instance.Destroy()
		}
	}
	// Shared resources are not ours to destroy.
	a.device = nil
	a.instance = nil
	a.queue = nil
	a.adapter = ""
	a.gpuReady = false
	a.externalDevice = false
}

// SetDeviceProvider switches the accelerator to use a shared GPU device
// from an external provider (e.g., gogpu). The provider must implement
// HalDevice() any and HalQueue() any returning hal.Device and hal.Queue.
// Providers that also implement gpucontext.DeviceProvider and report a
// software adapter are refused.
func (a *BlendAccelerator) SetDeviceProvider(provider any) error {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	name := "shared"
	if dp, ok := provider.(gpucontext.DeviceProvider); ok {
		info := dp.AdapterInfo()
		if info.Type == gpucontext.AdapterTypeSoftware {
			return errSoftwareAdapter
		}
		if info.Name != "" {
			name = info.Name
		}
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return fmt.Errorf("gpu: provider does not expose HAL types")
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return fmt.Errorf("gpu: provider HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return fmt.Errorf("gpu: provider HalQueue is not hal.Queue")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.releaseLocked()
	a.device = device
	a.queue = queue
	a.adapter = name
	a.externalDevice = true

	if err := a.createPipelines(); err != nil {
		return fmt.Errorf("gpu: create pipelines with shared device: %w", err)
	}
	a.gpuReady = true
	logger().WithField("adapter", name).Info("gpu: switched to shared GPU device")
	return nil
}

// Blend runs job on the GPU and writes the result back into job.Dst.
func (a *BlendAccelerator) Blend(job vpp.BlendJob) error {
	if job.Width <= 0 || job.Height <= 0 {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.gpuReady {
		return vpp.ErrFallbackToCPU
	}
	if err := a.dispatch(job); err != nil {
		return fmt.Errorf("gpu: blend %dx%d: %w", job.Width, job.Height, err)
	}
	return nil
}

func makeBlendParams(w, h uint32, alpha uint8) []byte {
	b := make([]byte, blendParamsSize)
	binary.LittleEndian.PutUint32(b[0:], w)
	binary.LittleEndian.PutUint32(b[4:], h)
	binary.LittleEndian.PutUint32(b[8:], uint32(alpha))
	return b
}

func (a *BlendAccelerator) dispatch(job vpp.BlendJob) error {
	w, h := uint32(job.Width), uint32(job.Height) //nolint:gosec // plane dimensions fit uint32
	size := uint64(w) * uint64(h) * 4

	dstWords := packSamples(job.Dst, job.DstStride, job.Width, job.Height)
	srcWords := packSamples(job.Src, job.SrcStride, job.Width, job.Height)

	var bufs []hal.Buffer
	defer func() {
		for _, b := range bufs {
			a.device.DestroyBuffer(b)
		}
	}()
	create := func(label string, n uint64, usage gputypes.BufferUsage) (hal.Buffer, error) {
		b, err := a.device.CreateBuffer(&hal.BufferDescriptor{Label: label, Size: n, Usage: usage})
		if err != nil {
			return nil, fmt.Errorf("create %s buffer: %w", label, err)
		}
		bufs = append(bufs, b)
		return b, nil
	}

	paramsBuf, err := create("blend_params", blendParamsSize, gputypes.BufferUsageUniform|gputypes.BufferUsageCopyDst)
	if err != nil {
		return err
	}
	srcBuf, err := create("blend_src", size, gputypes.BufferUsageStorage|gputypes.BufferUsageCopyDst)
	if err != nil {
		return err
	}
	dstBuf, err := create("blend_dst", size,
		gputypes.BufferUsageStorage|gputypes.BufferUsageCopySrc|gputypes.BufferUsageCopyDst)
	if err != nil {
		return err
	}
	stagingBuf, err := create("blend_staging", size, gputypes.BufferUsageMapRead|gputypes.BufferUsageCopyDst)
	if err != nil {
		return err
	}

	if err := a.queue.WriteBuffer(paramsBuf, 0, makeBlendParams(w, h, job.Alpha)); err != nil {
		return fmt.Errorf("write params: %w", err)
	}
	if err := a.queue.WriteBuffer(srcBuf, 0, srcWords); err != nil {
		return fmt.Errorf("write src: %w", err)
	}
	if err := a.queue.WriteBuffer(dstBuf, 0, dstWords); err != nil {
		return fmt.Errorf("write dst: %w", err)
	}

	bg, err := a.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label: "blend_bind", Layout: a.bindLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{Buffer: paramsBuf.NativeHandle(), Offset: 0, Size: blendParamsSize}},
			{Binding: 1, Resource: gputypes.BufferBinding{Buffer: srcBuf.NativeHandle(), Offset: 0, Size: size}},
			{Binding: 2, Resource: gputypes.BufferBinding{Buffer: dstBuf.NativeHandle(), Offset: 0, Size: size}},
		},
	})
	if err != nil {
		return fmt.Errorf("create bind group: %w", err)
	}
	defer a.device.DestroyBindGroup(bg)

	if err := a.encodeAndSubmit(bg, dstBuf, stagingBuf, w, h, size); err != nil {
		return err
	}

	m, err := a.device.MapBuffer(stagingBuf, 0, size)
	if err != nil {
		return fmt.Errorf("map staging buffer: %w", err)
	}
	readback := unsafe.Slice((*byte)(m.Ptr), size) //nolint:gosec // mapped range is size bytes
	unpackSamples(readback, job.Dst, job.DstStride, job.Width, job.Height)
	if err := a.device.UnmapBuffer(stagingBuf); err != nil {
		return fmt.Errorf("unmap staging buffer: %w", err)
	}

	logger().WithFields(logrus.Fields{
		"width":  job.Width,
		"height": job.Height,
		"alpha":  job.Alpha,
	}).Debug("gpu: blend dispatched")
	return nil
}

// encodeAndSubmit records one compute pass plus the staging copy, submits
// it, and waits for the queue to drain.
func (a *BlendAccelerator) encodeAndSubmit(bg hal.BindGroup, dstBuf, stagingBuf hal.Buffer, w, h uint32, size uint64) error {
	encoder, err := a.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "blend_encoder"})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("blend"); err != nil {
		return fmt.Errorf("begin encoding: %w", err)
	}

	pass := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: "blend_pass"})
	pass.SetPipeline(a.pipeline)
	pass.SetBindGroup(0, bg, nil)
	pass.Dispatch((w+blendWorkgroup-1)/blendWorkgroup, (h+blendWorkgroup-1)/blendWorkgroup, 1)
	pass.End()

	encoder.CopyBufferToBuffer(dstBuf, stagingBuf, []hal.BufferCopy{
		{SrcOffset: 0, DstOffset: 0, Size: size},
	})
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("end encoding: %w", err)
	}
	defer a.device.FreeCommandBuffer(cmdBuf)

	if _, err := a.queue.Submit([]hal.CommandBuffer{cmdBuf}); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	if err := a.device.WaitIdle(); err != nil {
		return fmt.Errorf("wait for GPU: %w", err)
	}
	return nil
}

func (a *BlendAccelerator) initGPU() error {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return fmt.Errorf("vulkan backend not available")
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return fmt.Errorf("create instance: %w", err)
	}
	a.instance = instance
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		return fmt.Errorf("no GPU adapters found")
	}
	selected := &adapters[0]
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	return a.openAdapter(selected)
}

// openAdapter opens a device on adapter and builds the pipeline.
func (a *BlendAccelerator) openAdapter(adapter *hal.ExposedAdapter) error {
	openDev, err := adapter.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		return fmt.Errorf("open device: %w", err)
	}
	a.device = openDev.Device
	a.queue = openDev.Queue
	if err := a.createPipelines(); err != nil {
		a.device.Destroy()
		a.device = nil
		a.queue = nil
		return fmt.Errorf("create pipelines: %w", err)
	}
	a.adapter = adapter.Info.Name
	a.gpuReady = true
	logger().WithField("adapter", a.adapter).Info("gpu: blend accelerator initialized")
	return nil
}

func (a *BlendAccelerator) createPipelines() error {
	code, err := compileShader(blend8ShaderSource)
	if err != nil {
		return err
	}
	shader, err := a.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "blend8",
		Source: hal.ShaderSource{SPIRV: code},
	})
	if err != nil {
		return fmt.Errorf("create blend8 shader module: %w", err)
	}
	a.shader = shader

	bindLayout, err := a.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "blend_bind_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{Binding: 0, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}},
			{Binding: 1, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage}},
			{Binding: 2, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage}},
		},
	})
	if err != nil {
		return fmt.Errorf("create blend bind group layout: %w", err)
	}
	a.bindLayout = bindLayout

	pipeLayout, err := a.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label: "blend_pipe_layout", BindGroupLayouts: []hal.BindGroupLayout{a.bindLayout},
	})
	if err != nil {
		return fmt.Errorf("create blend pipeline layout: %w", err)
	}
	a.pipeLayout = pipeLayout

	pipeline, err := a.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label: "blend_pipeline", Layout: a.pipeLayout,
		Compute: hal.ComputeState{Module: a.shader, EntryPoint: "main"},
	})
	if err != nil {
		return fmt.Errorf("create blend compute pipeline: %w", err)
	}
	a.pipeline = pipeline
	return nil
}

func (a *BlendAccelerator) destroyPipelines() {
	if a.device == nil {
		return
	}
	if a.pipeline != nil {
		a.device.DestroyComputePipeline(a.pipeline)
		a.pipeline = nil
	}
	if a.pipeLayout != nil {
		a.device.DestroyPipelineLayout(a.pipeLayout)
		a.pipeLayout = nil
	}
	if a.bindLayout != nil {
		a.device.DestroyBindGroupLayout(a.bindLayout)
		a.bindLayout = nil
	}
	if a.shader != nil {
		a.device.DestroyShaderModule(a.shader)
		a.shader = nil
	}
}
