//go:build webgpu

package accel

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/openfluke/webgpu/wgpu"
)

// WebGPUShaderWorkgroup is the @workgroup_size every WGSL entry point run by
// the WebGPU backend must declare. Launches dispatch ceil(global/64) groups.
const WebGPUShaderWorkgroup = 64

// maxScalarArgs is the number of 32-bit scalar slots in the uniform block
// bound at @binding(1).
const maxScalarArgs = 8

// WebGPUBackend drives the default WebGPU adapter. Argument 0 of every
// kernel binds the storage buffer at @group(0) @binding(0); scalar arguments
// are packed, in argument order, into a uniform block at @binding(1).
// It is enabled with the "webgpu" build tag.
type WebGPUBackend struct{}

// NewWebGPUBackend returns the WebGPU backend.
func NewWebGPUBackend() *WebGPUBackend {
	return &WebGPUBackend{}
}

func init() {
	Register("webgpu", func() Backend { return NewWebGPUBackend() })
}

func (b *WebGPUBackend) Info() BackendInfo {
	return BackendInfo{
		Name:        "webgpu",
		Version:     "wgpu-native",
		Description: "WebGPU backend (github.com/openfluke/webgpu)",
	}
}

func (b *WebGPUBackend) Available() bool {
	ctx, err := b.NewContext(0)
	if err != nil {
		return false
	}
	_ = ctx.Close()
	return true
}

func (b *WebGPUBackend) Devices() ([]DeviceInfo, error) {
	ctx, err := b.NewContext(0)
	if err != nil {
		return nil, err
	}
	defer func() { _ = ctx.Close() }()
	return []DeviceInfo{ctx.Device()}, nil
}

func (b *WebGPUBackend) NewContext(deviceIndex int) (Context, error) {
	if deviceIndex != 0 {
		return nil, fmt.Errorf("%w: webgpu exposes the default adapter only, got index %d", ErrDeviceNotFound, deviceIndex)
	}

	inst := wgpu.CreateInstance(nil)
	if inst == nil {
		return nil, fmt.Errorf("%w: CreateInstance returned nil", ErrBackendUnavailable)
	}

	adapter, err := inst.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil || adapter == nil {
		inst.Release()
		return nil, fmt.Errorf("%w: request adapter: %v", ErrBackendUnavailable, err)
	}

	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{})
	if err != nil || device == nil {
		adapter.Release()
		inst.Release()
		return nil, fmt.Errorf("%w: request device: %v", ErrBackendUnavailable, err)
	}

	info := adapter.GetInfo()
	limits := adapter.GetLimits()

	maxWG := int(limits.Limits.MaxComputeInvocationsPerWorkgroup)
	if x := int(limits.Limits.MaxComputeWorkgroupSizeX); x < maxWG {
		maxWG = x
	}

	return &wgContext{
		inst:    inst,
		adapter: adapter,
		device:  device,
		queue:   device.GetQueue(),
		info: DeviceInfo{
			Name:             strings.TrimSpace(info.Name),
			Vendor:           fmt.Sprintf("0x%04x", info.VendorId),
			Driver:           strings.TrimSpace(info.DriverDescription),
			MemoryMB:         int(limits.Limits.MaxBufferSize / (1 << 20)),
			ComputeCap:       info.BackendType.String(),
			MaxWorkGroupSize: maxWG,
		},
	}, nil
}

type wgContext struct {
	inst    *wgpu.Instance
	adapter *wgpu.Adapter
	device  *wgpu.Device
	queue   *wgpu.Queue
	info    DeviceInfo
}

func (c *wgContext) Device() DeviceInfo {
	return c.info
}

func (c *wgContext) NewQueue() (Queue, error) {
	return &wgQueue{ctx: c}, nil
}

func (c *wgContext) NewProgram(source string) (Program, error) {
	return &wgProgram{ctx: c, source: source}, nil
}

func (c *wgContext) NewHostBuffer(flags MemFlags, host []byte) (Buffer, error) {
	if err := flags.Validate(); err != nil {
		return nil, err
	}
	if len(host) == 0 || len(host)%4 != 0 {
		return nil, ErrInvalidHostPtr
	}

	buf, err := c.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "mcprice_storage",
		Size:  uint64(len(host)),
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}

	// WebGPU cannot adopt host memory; seed the device copy instead.
	if flags&(MemUseHostPtr|MemCopyHostPtr) != 0 {
		c.queue.WriteBuffer(buf, 0, host)
	}

	return &wgBuffer{buf: buf, size: len(host), flags: flags}, nil
}

func (c *wgContext) Close() error {
	c.device.Release()
	c.adapter.Release()
	c.inst.Release()
	return nil
}

func (c *wgContext) poll(maxIter int) {
	for i := 0; i < maxIter; i++ {
		if c.device.Poll(true, nil) {
			return
		}
		time.Sleep(100 * time.Microsecond)
	}
}

type wgProgram struct {
	ctx    *wgContext
	source string
	module *wgpu.ShaderModule
	log    string
	tried  bool
}

func (p *wgProgram) Build(_ string) error {
	p.tried = true
	p.log = ""

	module, err := p.ctx.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "mcprice_shader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: p.source},
	})
	if err != nil {
		p.log = err.Error()
		return fmt.Errorf("%w: %v", ErrBuildProgramFailure, err)
	}

	p.module = module
	return nil
}

func (p *wgProgram) BuildLog() (string, error) {
	if !p.tried {
		return "", ErrProgramNotBuilt
	}
	return p.log, nil
}

func (p *wgProgram) Kernel(name string) (Kernel, error) {
	if p.module == nil {
		return nil, ErrProgramNotBuilt
	}

	dev := p.ctx.device
	bgl, err := dev.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: name + "_bgl",
		Entries: []wgpu.BindGroupLayoutEntry{
			{Binding: 0, Visibility: wgpu.ShaderStageCompute, Buffer: wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeStorage}},
			{Binding: 1, Visibility: wgpu.ShaderStageCompute, Buffer: wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform}},
		},
	})
	if err != nil {
		return nil, err
	}

	pl, err := dev.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            name + "_pl",
		BindGroupLayouts: []*wgpu.BindGroupLayout{bgl},
	})
	if err != nil {
		bgl.Release()
		return nil, err
	}
	defer pl.Release()

	pipeline, err := dev.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  name + "_pipeline",
		Layout: pl,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     p.module,
			EntryPoint: name,
		},
	})
	if err != nil {
		bgl.Release()
		return nil, fmt.Errorf("%w: %v", ErrInvalidKernelName, err)
	}

	return &wgKernel{ctx: p.ctx, name: name, bgl: bgl, pipeline: pipeline}, nil
}

func (p *wgProgram) Close() error {
	if p.module != nil {
		p.module.Release()
		p.module = nil
	}
	return nil
}

type wgKernel struct {
	ctx      *wgContext
	name     string
	bgl      *wgpu.BindGroupLayout
	pipeline *wgpu.ComputePipeline
	storage  *wgBuffer
	scalars  [maxScalarArgs]uint32
}

func (k *wgKernel) Name() string {
	return k.name
}

func (k *wgKernel) WorkGroupSize() (int, error) {
	return k.ctx.info.MaxWorkGroupSize, nil
}

func (k *wgKernel) SetArg(index int, value any) error {
	if index == 0 {
		b, ok := value.(*wgBuffer)
		if !ok {
			return fmt.Errorf("%w: argument 0 must be a WebGPU buffer, got %T", ErrInvalidMemObject, value)
		}
		k.storage = b
		return nil
	}
	if index < 0 || index > maxScalarArgs {
		return fmt.Errorf("%w: %d", ErrInvalidArgIndex, index)
	}

	switch v := value.(type) {
	case float32:
		k.scalars[index-1] = math.Float32bits(v)
	case int32:
		k.scalars[index-1] = uint32(v)
	default:
		return fmt.Errorf("%w: argument %d has type %T", ErrInvalidArgValue, index, value)
	}
	return nil
}

func (k *wgKernel) Close() error {
	k.pipeline.Release()
	k.bgl.Release()
	return nil
}

type wgBuffer struct {
	buf   *wgpu.Buffer
	size  int
	flags MemFlags
}

func (b *wgBuffer) Size() int {
	return b.size
}

func (b *wgBuffer) Flags() MemFlags {
	return b.flags
}

func (b *wgBuffer) Close() error {
	b.buf.Release()
	return nil
}

type wgQueue struct {
	ctx       *wgContext
	transient []*wgpu.Buffer
}

func (q *wgQueue) EnqueueKernel(k Kernel, globalSize int) error {
	wk, ok := k.(*wgKernel)
	if !ok {
		return fmt.Errorf("%w: kernel is not a WebGPU kernel", ErrInvalidValue)
	}
	if globalSize <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidWorkSize, globalSize)
	}
	if wk.storage == nil {
		return fmt.Errorf("%w: argument 0 of %q", ErrInvalidKernelArgs, wk.name)
	}
	if !wk.storage.flags.DeviceWritable() {
		return fmt.Errorf("%w: argument 0 has flags %s", ErrReadOnlyBuffer, wk.storage.flags)
	}

	dev := q.ctx.device

	params := make([]byte, 4*maxScalarArgs)
	for i, v := range wk.scalars {
		params[4*i] = byte(v)
		params[4*i+1] = byte(v >> 8)
		params[4*i+2] = byte(v >> 16)
		params[4*i+3] = byte(v >> 24)
	}

	uniform, err := dev.CreateBuffer(&wgpu.BufferDescriptor{
		Label: wk.name + "_params",
		Size:  uint64(len(params)),
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return err
	}
	q.transient = append(q.transient, uniform)
	q.ctx.queue.WriteBuffer(uniform, 0, params)

	bg, err := dev.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  wk.name + "_bg",
		Layout: wk.bgl,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: wk.storage.buf, Offset: 0, Size: wk.storage.buf.GetSize()},
			{Binding: 1, Buffer: uniform, Offset: 0, Size: uniform.GetSize()},
		},
	})
	if err != nil {
		return err
	}
	defer bg.Release()

	enc, err := dev.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}
	pass := enc.BeginComputePass(nil)
	pass.SetPipeline(wk.pipeline)
	pass.SetBindGroup(0, bg, nil)
	pass.DispatchWorkgroups(uint32((globalSize+WebGPUShaderWorkgroup-1)/WebGPUShaderWorkgroup), 1, 1)
	pass.End()

	cb, err := enc.Finish(nil)
	enc.Release()
	if err != nil {
		return err
	}
	q.ctx.queue.Submit(cb)
	cb.Release()

	return nil
}

// EnqueueReadBuffer always completes before returning; WebGPU only exposes
// buffer contents through a mapped staging copy.
func (q *wgQueue) EnqueueReadBuffer(b Buffer, _ bool, dst []byte) error {
	wb, ok := b.(*wgBuffer)
	if !ok {
		return ErrInvalidMemObject
	}
	if len(dst) == 0 {
		return nil
	}
	if len(dst) > wb.size {
		return fmt.Errorf("%w: read of %d bytes from %d-byte buffer", ErrInvalidValue, len(dst), wb.size)
	}

	dev := q.ctx.device
	size := uint64((len(dst) + 3) &^ 3)

	readback, err := dev.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "mcprice_readback",
		Size:  size,
		Usage: wgpu.BufferUsageCopyDst | wgpu.BufferUsageMapRead,
	})
	if err != nil {
		return err
	}
	defer readback.Release()

	enc, err := dev.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}
	enc.CopyBufferToBuffer(wb.buf, 0, readback, 0, size)
	cb, err := enc.Finish(nil)
	enc.Release()
	if err != nil {
		return err
	}
	q.ctx.queue.Submit(cb)
	cb.Release()

	done := false
	status := wgpu.BufferMapAsyncStatusSuccess
	readback.MapAsync(wgpu.MapModeRead, 0, size, func(s wgpu.BufferMapAsyncStatus) {
		status = s
		done = true
	})
	for i := 0; i < 10000 && !done; i++ {
		dev.Poll(true, nil)
	}
	if !done || status != wgpu.BufferMapAsyncStatusSuccess {
		return fmt.Errorf("accel: map readback buffer: status %v", status)
	}

	copy(dst, readback.GetMappedRange(0, uint(size)))
	readback.Unmap()

	q.release()
	return nil
}

func (q *wgQueue) Finish() error {
	q.ctx.poll(1000)
	q.release()
	return nil
}

func (q *wgQueue) release() {
	for _, b := range q.transient {
		b.Release()
	}
	q.transient = nil
}

func (q *wgQueue) Close() error {
	return q.Finish()
}
