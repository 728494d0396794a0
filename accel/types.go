package accel

import "strings"

// DeviceInfo describes a compute device.
type DeviceInfo struct {
	Name             string
	Vendor           string
	Driver           string
	MemoryMB         int
	ComputeCap       string
	ComputeUnits     int
	MaxWorkGroupSize int
}

// BackendInfo describes a backend implementation.
type BackendInfo struct {
	Name        string
	Version     string
	Description string
}

// MemFlags describes how a buffer may be accessed by the device and where
// its storage comes from.
type MemFlags uint32

const (
	MemReadWrite MemFlags = 1 << iota
	MemWriteOnly
	MemReadOnly
	MemUseHostPtr
	MemAllocHostPtr
	MemCopyHostPtr
)

// DeviceWritable reports whether kernels may write the buffer.
func (f MemFlags) DeviceWritable() bool {
	return f&(MemReadWrite|MemWriteOnly) != 0
}

// Validate rejects access-mode combinations that contradict each other.
func (f MemFlags) Validate() error {
	access := 0
	for _, m := range []MemFlags{MemReadWrite, MemWriteOnly, MemReadOnly} {
		if f&m != 0 {
			access++
		}
	}
	if access > 1 {
		return ErrInvalidValue
	}
	if f&MemUseHostPtr != 0 && f&(MemAllocHostPtr|MemCopyHostPtr) != 0 {
		return ErrInvalidValue
	}
	return nil
}

func (f MemFlags) String() string {
	names := []struct {
		flag MemFlags
		name string
	}{
		{MemReadWrite, "read_write"},
		{MemWriteOnly, "write_only"},
		{MemReadOnly, "read_only"},
		{MemUseHostPtr, "use_host_ptr"},
		{MemAllocHostPtr, "alloc_host_ptr"},
		{MemCopyHostPtr, "copy_host_ptr"},
	}

	var parts []string
	for _, n := range names {
		if f&n.flag != 0 {
			parts = append(parts, n.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// ArgKind is the kind of a kernel parameter.
type ArgKind uint8

const (
	// ArgOutput is a global buffer the kernel writes.
	ArgOutput ArgKind = iota
	// ArgInput is a global buffer the kernel only reads.
	ArgInput
	// ArgFloat32 is a scalar float.
	ArgFloat32
	// ArgInt32 is a scalar int.
	ArgInt32
)

func (k ArgKind) String() string {
	switch k {
	case ArgOutput:
		return "output buffer"
	case ArgInput:
		return "input buffer"
	case ArgFloat32:
		return "float"
	case ArgInt32:
		return "int"
	default:
		return "unknown"
	}
}

// IsBuffer reports whether the argument is bound to a Buffer.
func (k ArgKind) IsBuffer() bool {
	return k == ArgOutput || k == ArgInput
}
