package util

import (
	"math"
	"testing"
)

func TestClamp01(t *testing.T) {
	cases := map[float64]float64{
		-0.5:        0,
		0:           0,
		0.3:         0.3,
		1:           1,
		7:           1,
		math.NaN():  0,
		math.Inf(1): 1,
	}
	for in, want := range cases {
		if got := Clamp01(in); got != want {
			t.Fatalf("Clamp01(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestIsFinite(t *testing.T) {
	if IsFinite(math.NaN()) || IsFinite(math.Inf(-1)) {
		t.Fatalf("non-finite reported finite")
	}
	if !IsFinite(0.25) {
		t.Fatalf("finite reported non-finite")
	}
}
