package mcprice

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the dispatch pipeline.
var (
	// ErrZeroWorkgroup is returned when the device reports a work-group size of zero.
	ErrZeroWorkgroup = errors.New("mcprice: zero workgroup size")

	// ErrShortBuffer is returned when a result buffer holds fewer values
	// than the lanes being reduced.
	ErrShortBuffer = errors.New("mcprice: result buffer shorter than workgroup")

	// ErrNoLanes is returned when the sample target is smaller than one
	// sample per lane.
	ErrNoLanes = errors.New("mcprice: sample target yields zero samples per lane")

	// ErrLaneOverflow is returned when the per-lane sample count does not fit
	// the kernel's 32-bit argument.
	ErrLaneOverflow = errors.New("mcprice: per-lane sample count exceeds int32")

	// ErrInvalidParams is returned by Params.Validate.
	ErrInvalidParams = errors.New("mcprice: invalid simulation parameters")

	// ErrReleased is returned when a released ResultBuffer is read.
	ErrReleased = errors.New("mcprice: result buffer released")
)

// Kind groups failure codes by the stage that produced them.
type Kind int

const (
	KindSourceLoad Kind = iota + 1
	KindInvalidInput
	KindResourceAcquisition
	KindCompilation
	KindResolution
	KindAllocation
	KindSizingQuery
	KindExecution
)

func (k Kind) String() string {
	switch k {
	case KindSourceLoad:
		return "source load"
	case KindInvalidInput:
		return "invalid input"
	case KindResourceAcquisition:
		return "resource acquisition"
	case KindCompilation:
		return "compilation"
	case KindResolution:
		return "resolution"
	case KindAllocation:
		return "allocation"
	case KindSizingQuery:
		return "sizing query"
	case KindExecution:
		return "execution"
	default:
		return "unknown"
	}
}

// Code identifies a fatal pipeline condition.
type Code int

const (
	CodeSourceLoadFailed Code = iota + 1
	CodeInvalidParameters
	CodeDeviceUnavailable
	CodeContextCreationFailed
	CodeQueueCreationFailed
	CodeBuildFailed
	CodeKernelResolutionFailed
	CodeWorkgroupQueryFailed
	CodeAllocationFailed
	CodeBufferCreationFailed
	CodeArgumentBindFailed
	CodeEnqueueFailed
	CodeReadbackFailed
)

var codeNames = map[Code]string{
	CodeSourceLoadFailed:       "SourceLoadFailed",
	CodeInvalidParameters:      "InvalidParameters",
	CodeDeviceUnavailable:      "DeviceUnavailable",
	CodeContextCreationFailed:  "ContextCreationFailed",
	CodeQueueCreationFailed:    "QueueCreationFailed",
	CodeBuildFailed:            "BuildFailed",
	CodeKernelResolutionFailed: "KernelResolutionFailed",
	CodeWorkgroupQueryFailed:   "WorkgroupQueryFailed",
	CodeAllocationFailed:       "AllocationFailed",
	CodeBufferCreationFailed:   "BufferCreationFailed",
	CodeArgumentBindFailed:     "ArgumentBindFailed",
	CodeEnqueueFailed:          "EnqueueFailed",
	CodeReadbackFailed:         "ReadbackFailed",
}

func (c Code) String() string {
	if s, ok := codeNames[c]; ok {
		return s
	}
	return fmt.Sprintf("Code(%d)", int(c))
}

// Kind reports the stage class of c.
func (c Code) Kind() Kind {
	switch c {
	case CodeSourceLoadFailed:
		return KindSourceLoad
	case CodeInvalidParameters:
		return KindInvalidInput
	case CodeDeviceUnavailable, CodeContextCreationFailed, CodeQueueCreationFailed:
		return KindResourceAcquisition
	case CodeBuildFailed:
		return KindCompilation
	case CodeKernelResolutionFailed:
		return KindResolution
	case CodeAllocationFailed, CodeBufferCreationFailed:
		return KindAllocation
	case CodeWorkgroupQueryFailed:
		return KindSizingQuery
	case CodeArgumentBindFailed, CodeEnqueueFailed, CodeReadbackFailed:
		return KindExecution
	default:
		return 0
	}
}

// Error is a fatal pipeline condition. Status is the underlying failure
// reported by the backend or the OS.
type Error struct {
	Code   Code
	Msg    string
	Status error

	// BuildLog is the compiler output of a failed build, when retrieved.
	BuildLog string

	// Notice replaces the build log when it could not be retrieved.
	Notice string
}

func (e *Error) Error() string {
	if e.Status == nil {
		return e.Msg
	}
	return fmt.Sprintf("%s: %v", e.Msg, e.Status)
}

func (e *Error) Unwrap() error {
	return e.Status
}

// IsCode reports whether err carries the given code.
func IsCode(err error, c Code) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == c
}

// CodeOf returns the code carried by err, or zero.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return 0
}
