package main

import (
	"reflect"
	"testing"

	mcprice "github.com/cwbudde/algo-mcprice"
)

func TestParseSizes(t *testing.T) {
	t.Parallel()

	got := parseSizes(" 64, 0,abc,,256,-3,128 ")
	want := []int{64, 256, 128}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("parseSizes = %v, want %v", got, want)
	}
}

func TestBenchmarkSize(t *testing.T) {
	t.Parallel()

	res, err := benchmarkSize(mcprice.DefaultParams(), 1<<14, 64, 2, 1, 1, 0)
	if err != nil {
		t.Fatalf("benchmarkSize: %v", err)
	}
	if res.workgroup != 64 || res.workers != 2 || res.nsPerOp <= 0 || res.price <= 0 {
		t.Fatalf("unexpected result %+v", res)
	}
}
