package mcprice

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-mcprice/internal/hostmem"
)

const (
	// ElementBytes is the size of one result value.
	ElementBytes = 4

	// PadElements is the element multiple the result buffer is padded to.
	PadElements = 64

	// BufferAlign is the host block alignment and allocation granule.
	BufferAlign = hostmem.PageSize
)

// Sizing derives the launch geometry and result buffer size from the
// device work-group size.
type Sizing struct {
	TotalSamples  int64
	WorkgroupSize int

	// LaneCount is the number of samples each lane simulates, TotalSamples/WorkgroupSize.
	LaneCount int64

	// PaddedLen is the smallest multiple of PadElements not below WorkgroupSize.
	PaddedLen int

	// BufferBytes is PaddedLen*ElementBytes, the device buffer size.
	BufferBytes int

	// AllocBytes is BufferBytes rounded up to BufferAlign, the host block size.
	AllocBytes int
}

// NewSizing computes the sizing for total samples split over w lanes.
func NewSizing(total int64, w int) (Sizing, error) {
	if w <= 0 {
		return Sizing{}, check(ErrZeroWorkgroup, CodeWorkgroupQueryFailed, "could not size dispatch for workgroup size %d", w)
	}

	padded := hostmem.RoundUp(w, PadElements)
	bytes := padded * ElementBytes

	s := Sizing{
		TotalSamples:  total,
		WorkgroupSize: w,
		LaneCount:     total / int64(w),
		PaddedLen:     padded,
		BufferBytes:   bytes,
		AllocBytes:    hostmem.RoundUp(bytes, BufferAlign),
	}

	switch {
	case s.LaneCount <= 0:
		return s, check(fmt.Errorf("%w: %d samples over %d lanes", ErrNoLanes, total, w),
			CodeInvalidParameters, "invalid sample target")
	case s.LaneCount > math.MaxInt32:
		return s, check(fmt.Errorf("%w: %d", ErrLaneOverflow, s.LaneCount),
			CodeInvalidParameters, "invalid sample target")
	}

	return s, nil
}

// SimulatedSamples is the number of paths the launch actually runs.
func (s Sizing) SimulatedSamples() int64 {
	return s.LaneCount * int64(s.WorkgroupSize)
}
