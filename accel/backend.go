package accel

import (
	"sort"
	"sync"
)

// Backend is implemented by accelerator backends (host CPU, OpenCL, WebGPU).
// It is responsible for device discovery and context creation.
type Backend interface {
	Info() BackendInfo
	Available() bool
	Devices() ([]DeviceInfo, error)
	NewContext(deviceIndex int) (Context, error)
}

// Context represents a backend-specific execution context tied to one device.
type Context interface {
	Device() DeviceInfo
	// NewQueue creates an in-order command queue without special properties.
	NewQueue() (Queue, error)
	// NewProgram creates an unbuilt program from source text.
	NewProgram(source string) (Program, error)
	// NewHostBuffer wraps caller-owned host memory as a device buffer. With
	// MemUseHostPtr the device and the host share the same storage; the caller
	// must keep host alive and untouched until the buffer is closed.
	NewHostBuffer(flags MemFlags, host []byte) (Buffer, error)
	Close() error
}

// Program is a compute program created from source text.
type Program interface {
	// Build compiles the program for the context's device, blocking until done.
	Build(options string) error
	// BuildLog returns the compiler output of the last Build.
	BuildLog() (string, error)
	// Kernel resolves a named entry point of a built program.
	Kernel(name string) (Kernel, error)
	Close() error
}

// Kernel is a resolved entry point with positional arguments.
type Kernel interface {
	Name() string
	// WorkGroupSize reports the maximum work-group size usable for this kernel
	// on the context's device.
	WorkGroupSize() (int, error)
	// SetArg binds a Buffer, float32 or int32 to a parameter position.
	SetArg(index int, value any) error
	Close() error
}

// Buffer is a device-visible memory object.
type Buffer interface {
	Size() int
	Flags() MemFlags
	Close() error
}

// Queue is an in-order command queue.
type Queue interface {
	// EnqueueKernel launches a one-dimensional range of globalSize work-items
	// and lets the runtime choose the local size.
	EnqueueKernel(k Kernel, globalSize int) error
	// EnqueueReadBuffer copies the buffer into dst. A blocking read returns
	// after every previously enqueued command has completed.
	EnqueueReadBuffer(b Buffer, blocking bool, dst []byte) error
	// Finish blocks until all enqueued commands have completed.
	Finish() error
	Close() error
}

// Factory constructs a backend on demand.
type Factory func() Backend

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register makes a backend available under name. Passing a nil factory
// removes the registration.
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if f == nil {
		delete(registry, name)
		return
	}
	registry[name] = f
}

// Lookup constructs the backend registered under name.
func Lookup(name string) (Backend, error) {
	registryMu.RLock()
	f := registry[name]
	registryMu.RUnlock()

	if f == nil {
		return nil, ErrNoBackend
	}
	return f(), nil
}

// Names lists the registered backend names in sorted order.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
