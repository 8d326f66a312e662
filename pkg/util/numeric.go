package util

import "math"

func IsFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// Clamp01 bounds x to [0, 1]. NaN maps to 0.
func Clamp01(x float64) float64 {
	return Clamp(x, 0, 1)
}

// Clamp bounds x to [lo, hi]. NaN maps to lo.
func Clamp(x, lo, hi float64) float64 {
	switch {
	case math.IsNaN(x), x < lo:
		return lo
	case x > hi:
		return hi
	default:
		return x
	}
}
