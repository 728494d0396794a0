//go:build opencl

package accel

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/jgillich/go-opencl/cl"
)

// OpenCLBackend drives OpenCL devices through the system ICD loader.
// It is enabled with the "opencl" build tag.
type OpenCLBackend struct{}

// NewOpenCLBackend returns the OpenCL backend.
func NewOpenCLBackend() *OpenCLBackend {
	return &OpenCLBackend{}
}

func init() {
	Register("opencl", func() Backend { return NewOpenCLBackend() })
}

func (b *OpenCLBackend) Info() BackendInfo {
	return BackendInfo{
		Name:        "opencl",
		Version:     "1.2",
		Description: "OpenCL backend (github.com/jgillich/go-opencl)",
	}
}

func (b *OpenCLBackend) Available() bool {
	devices, err := clDevices()
	return err == nil && len(devices) > 0
}

// clDevices flattens the devices of every platform, default device first.
func clDevices() ([]*cl.Device, error) {
	platforms, err := cl.GetPlatforms()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	var devices []*cl.Device
	for _, p := range platforms {
		devs, err := p.GetDevices(cl.DeviceTypeAll)
		if err != nil {
			continue
		}
		devices = append(devices, devs...)
	}

	if len(devices) == 0 {
		return nil, ErrBackendUnavailable
	}
	return devices, nil
}

func clDeviceInfo(d *cl.Device) DeviceInfo {
	return DeviceInfo{
		Name:             d.Name(),
		Vendor:           d.Vendor(),
		Driver:           d.DriverVersion(),
		MemoryMB:         int(d.GlobalMemSize() / (1 << 20)),
		ComputeCap:       d.Version(),
		ComputeUnits:     d.MaxComputeUnits(),
		MaxWorkGroupSize: d.MaxWorkGroupSize(),
	}
}

func (b *OpenCLBackend) Devices() ([]DeviceInfo, error) {
	devices, err := clDevices()
	if err != nil {
		return nil, err
	}

	infos := make([]DeviceInfo, len(devices))
	for i, d := range devices {
		infos[i] = clDeviceInfo(d)
	}
	return infos, nil
}

func (b *OpenCLBackend) NewContext(deviceIndex int) (Context, error) {
	devices, err := clDevices()
	if err != nil {
		return nil, err
	}
	if deviceIndex < 0 || deviceIndex >= len(devices) {
		return nil, fmt.Errorf("%w: index %d of %d", ErrDeviceNotFound, deviceIndex, len(devices))
	}

	device := devices[deviceIndex]
	ctx, err := cl.CreateContext([]*cl.Device{device})
	if err != nil {
		return nil, err
	}

	return &clContext{ctx: ctx, device: device, info: clDeviceInfo(device)}, nil
}

type clContext struct {
	ctx    *cl.Context
	device *cl.Device
	info   DeviceInfo
}

func (c *clContext) Device() DeviceInfo {
	return c.info
}

func (c *clContext) NewQueue() (Queue, error) {
	q, err := c.ctx.CreateCommandQueue(c.device, 0)
	if err != nil {
		return nil, err
	}
	return &clQueue{queue: q}, nil
}

func (c *clContext) NewProgram(source string) (Program, error) {
	p, err := c.ctx.CreateProgramWithSource([]string{source})
	if err != nil {
		return nil, err
	}
	return &clProgram{ctx: c, program: p}, nil
}

func clMemFlags(f MemFlags) cl.MemFlag {
	var out cl.MemFlag
	if f&MemReadWrite != 0 {
		out |= cl.MemReadWrite
	}
	if f&MemWriteOnly != 0 {
		out |= cl.MemWriteOnly
	}
	if f&MemReadOnly != 0 {
		out |= cl.MemReadOnly
	}
	if f&MemUseHostPtr != 0 {
		out |= cl.MemUseHostPtr
	}
	if f&MemAllocHostPtr != 0 {
		out |= cl.MemAllocHostPtr
	}
	if f&MemCopyHostPtr != 0 {
		out |= cl.MemCopyHostPtr
	}
	return out
}

func (c *clContext) NewHostBuffer(flags MemFlags, host []byte) (Buffer, error) {
	if err := flags.Validate(); err != nil {
		return nil, err
	}
	if len(host) == 0 {
		return nil, ErrInvalidHostPtr
	}

	var ptr unsafe.Pointer
	if flags&(MemUseHostPtr|MemCopyHostPtr) != 0 {
		ptr = unsafe.Pointer(&host[0])
	}

	mem, err := c.ctx.CreateBufferUnsafe(clMemFlags(flags), len(host), ptr)
	if err != nil {
		return nil, err
	}
	return &clBuffer{mem: mem, size: len(host), flags: flags}, nil
}

func (c *clContext) Close() error {
	c.ctx.Release()
	return nil
}

type clProgram struct {
	ctx     *clContext
	program *cl.Program
	log     string
	logErr  error
}

func (p *clProgram) Build(options string) error {
	p.log, p.logErr = "", nil

	err := p.program.BuildProgram([]*cl.Device{p.ctx.device}, options)
	if err == nil {
		return nil
	}

	var be cl.BuildError
	if errors.As(err, &be) {
		p.log = be.Message
	} else {
		p.logErr = fmt.Errorf("%w: %v", ErrBuildLogUnavailable, err)
	}
	return fmt.Errorf("%w: %v", ErrBuildProgramFailure, err)
}

func (p *clProgram) BuildLog() (string, error) {
	if p.logErr != nil {
		return "", p.logErr
	}
	return p.log, nil
}

func (p *clProgram) Kernel(name string) (Kernel, error) {
	k, err := p.program.CreateKernel(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKernelName, err)
	}
	return &clKernel{kernel: k, device: p.ctx.device, name: name}, nil
}

func (p *clProgram) Close() error {
	p.program.Release()
	return nil
}

type clKernel struct {
	kernel *cl.Kernel
	device *cl.Device
	name   string
}

func (k *clKernel) Name() string {
	return k.name
}

func (k *clKernel) WorkGroupSize() (int, error) {
	return k.kernel.WorkGroupSize(k.device)
}

func (k *clKernel) SetArg(index int, value any) error {
	switch v := value.(type) {
	case *clBuffer:
		return k.kernel.SetArg(index, v.mem)
	case Buffer:
		return fmt.Errorf("%w: argument %d is not an OpenCL buffer", ErrInvalidMemObject, index)
	case float32, int32:
		return k.kernel.SetArg(index, v)
	default:
		return fmt.Errorf("%w: argument %d has type %T", ErrInvalidArgValue, index, value)
	}
}

func (k *clKernel) Close() error {
	k.kernel.Release()
	return nil
}

type clBuffer struct {
	mem   *cl.MemObject
	size  int
	flags MemFlags
}

func (b *clBuffer) Size() int {
	return b.size
}

func (b *clBuffer) Flags() MemFlags {
	return b.flags
}

func (b *clBuffer) Close() error {
	b.mem.Release()
	return nil
}

type clQueue struct {
	queue *cl.CommandQueue
}

func (q *clQueue) EnqueueKernel(k Kernel, globalSize int) error {
	ck, ok := k.(*clKernel)
	if !ok {
		return fmt.Errorf("%w: kernel is not an OpenCL kernel", ErrInvalidValue)
	}
	if globalSize <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidWorkSize, globalSize)
	}

	ev, err := q.queue.EnqueueNDRangeKernel(ck.kernel, nil, []int{globalSize}, nil, nil)
	if err != nil {
		return err
	}
	ev.Release()
	return nil
}

func (q *clQueue) EnqueueReadBuffer(b Buffer, blocking bool, dst []byte) error {
	cb, ok := b.(*clBuffer)
	if !ok {
		return ErrInvalidMemObject
	}
	if len(dst) == 0 {
		return nil
	}

	ev, err := q.queue.EnqueueReadBuffer(cb.mem, blocking, 0, len(dst), unsafe.Pointer(&dst[0]), nil)
	if err != nil {
		return err
	}
	ev.Release()
	return nil
}

func (q *clQueue) Finish() error {
	return q.queue.Finish()
}

func (q *clQueue) Close() error {
	err := q.queue.Finish()
	q.queue.Release()
	return err
}
