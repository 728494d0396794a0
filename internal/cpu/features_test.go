package cpu

import (
	"runtime"
	"strings"
	"testing"
)

func TestDetectFeaturesArchitecture(t *testing.T) {
	t.Parallel()

	f := DetectFeatures()
	if f.Architecture != runtime.GOARCH {
		t.Fatalf("Architecture = %q, want %q", f.Architecture, runtime.GOARCH)
	}

	if runtime.GOARCH != "amd64" && runtime.GOARCH != "386" && (f.HasSSE2 || f.HasAVX2) {
		t.Fatalf("x86 features reported on %s: %+v", runtime.GOARCH, f)
	}
}

func TestFeaturesString(t *testing.T) {
	t.Parallel()

	f := Features{Architecture: "amd64", HasSSE2: true, HasAVX2: true}
	if got := f.String(); got != "amd64+sse2+avx2" {
		t.Fatalf("String() = %q", got)
	}

	bare := Features{Architecture: "wasm"}
	if got := bare.String(); got != "wasm" {
		t.Fatalf("String() = %q", got)
	}

	if !strings.HasPrefix(DetectFeatures().String(), runtime.GOARCH) {
		t.Fatal("detected feature string does not start with GOARCH")
	}
}
