package accel

import "errors"

var (
	// ErrNoBackend is returned when a backend name is not registered.
	ErrNoBackend = errors.New("accel: no backend registered")

	// ErrBackendUnavailable is returned when the backend is registered but not available
	// on the current system (e.g., no device, driver missing).
	ErrBackendUnavailable = errors.New("accel: backend unavailable")

	// ErrDeviceNotFound is returned for an out-of-range device index.
	ErrDeviceNotFound = errors.New("accel: device not found")

	// ErrBuildProgramFailure is returned when a program fails to compile.
	ErrBuildProgramFailure = errors.New("accel: build program failure")

	// ErrBuildLogUnavailable is returned when no build log was captured.
	ErrBuildLogUnavailable = errors.New("accel: build log unavailable")

	// ErrProgramNotBuilt is returned when kernels are requested from an unbuilt program.
	ErrProgramNotBuilt = errors.New("accel: program not built")

	// ErrInvalidKernelName is returned when the entry point is not declared by the program.
	ErrInvalidKernelName = errors.New("accel: invalid kernel name")

	// ErrInvalidKernelDefinition is returned when a declared kernel does not match
	// the implementation registered for it.
	ErrInvalidKernelDefinition = errors.New("accel: invalid kernel definition")

	// ErrInvalidArgIndex is returned when an argument index is out of range.
	ErrInvalidArgIndex = errors.New("accel: invalid argument index")

	// ErrInvalidArgValue is returned when an argument value has the wrong kind.
	ErrInvalidArgValue = errors.New("accel: invalid argument value")

	// ErrInvalidKernelArgs is returned when a kernel is launched with unbound arguments.
	ErrInvalidKernelArgs = errors.New("accel: kernel arguments not set")

	// ErrInvalidMemObject is returned for buffers that do not belong to the context
	// or have been closed.
	ErrInvalidMemObject = errors.New("accel: invalid memory object")

	// ErrInvalidHostPtr is returned when a host-pointer buffer has no backing memory.
	ErrInvalidHostPtr = errors.New("accel: invalid host pointer")

	// ErrInvalidValue is returned for contradictory flags or bad sizes.
	ErrInvalidValue = errors.New("accel: invalid value")

	// ErrInvalidWorkSize is returned for a non-positive global work size.
	ErrInvalidWorkSize = errors.New("accel: invalid global work size")

	// ErrReadOnlyBuffer is returned when a kernel output is bound to a buffer
	// the device may not write.
	ErrReadOnlyBuffer = errors.New("accel: kernel output bound to read-only buffer")

	// ErrOutOfHostMemory is returned when host-side allocation fails.
	ErrOutOfHostMemory = errors.New("accel: out of host memory")

	// ErrClosed is returned when an object is used after Close.
	ErrClosed = errors.New("accel: object closed")
)
