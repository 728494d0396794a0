package mcprice

import (
	"errors"
	"fmt"
	"testing"

	"github.com/cwbudde/algo-mcprice/accel"
)

func TestCodeKind(t *testing.T) {
	t.Parallel()

	cases := map[Code]Kind{
		CodeSourceLoadFailed:       KindSourceLoad,
		CodeInvalidParameters:      KindInvalidInput,
		CodeDeviceUnavailable:      KindResourceAcquisition,
		CodeContextCreationFailed:  KindResourceAcquisition,
		CodeQueueCreationFailed:    KindResourceAcquisition,
		CodeBuildFailed:            KindCompilation,
		CodeKernelResolutionFailed: KindResolution,
		CodeWorkgroupQueryFailed:   KindSizingQuery,
		CodeAllocationFailed:       KindAllocation,
		CodeBufferCreationFailed:   KindAllocation,
		CodeArgumentBindFailed:     KindExecution,
		CodeEnqueueFailed:          KindExecution,
		CodeReadbackFailed:         KindExecution,
	}

	for code, want := range cases {
		if got := code.Kind(); got != want {
			t.Fatalf("%s.Kind() = %s, want %s", code, got, want)
		}
		if code.String() == fmt.Sprintf("Code(%d)", int(code)) {
			t.Fatalf("code %d has no name", int(code))
		}
	}

	if got := Code(99).String(); got != "Code(99)" {
		t.Fatalf("unknown code string = %q", got)
	}
}

func TestCheck(t *testing.T) {
	t.Parallel()

	if err := check(nil, CodeEnqueueFailed, "unused"); err != nil {
		t.Fatalf("check(nil) = %v", err)
	}

	err := check(accel.ErrInvalidWorkSize, CodeEnqueueFailed, "could not enqueue %q", "k")
	if !IsCode(err, CodeEnqueueFailed) {
		t.Fatalf("IsCode(%v, EnqueueFailed) = false", err)
	}
	if !errors.Is(err, accel.ErrInvalidWorkSize) {
		t.Fatalf("status not unwrapped from %v", err)
	}
	if want := `could not enqueue "k": ` + accel.ErrInvalidWorkSize.Error(); err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}

	wrapped := fmt.Errorf("outer: %w", err)
	if CodeOf(wrapped) != CodeEnqueueFailed {
		t.Fatalf("CodeOf(wrapped) = %s", CodeOf(wrapped))
	}
	if CodeOf(errors.New("plain")) != 0 {
		t.Fatal("CodeOf(plain) != 0")
	}
}

func TestCheckAllocation(t *testing.T) {
	t.Parallel()

	if err := checkAllocation(make([]byte, 1), "unused"); err != nil {
		t.Fatalf("checkAllocation(non-empty) = %v", err)
	}

	err := checkAllocation(nil, "could not create output buffer")
	if !IsCode(err, CodeAllocationFailed) || !errors.Is(err, accel.ErrOutOfHostMemory) {
		t.Fatalf("checkAllocation(nil) = %v", err)
	}
}
