package math

import (
	gomath "math"

	"golang.org/x/exp/constraints"
)

const (
	PI            float32 = 3.14159265358979323846
	DEG2RAD       float32 = PI / 180.0
	FLOAT_EPSILON float32 = 1.192092896e-07
)

// Clamp returns the value `f` clamped to the range [low, high].
// It works for any numeric type (integers and floats).
func Clamp[T constraints.Ordered](f, low, high T) T {
	if f < low {
		return low
	}
	if f > high {
		return high
	}
	return f
}

// Abs returns the absolute value of any signed number.
func Abs[T constraints.Signed | constraints.Float](v T) T {
	if v < 0 {
		return -v
	}
	return v
}

func DegToRad(degrees float32) float32 {
	return degrees * DEG2RAD
}

func ksqrt(x float32) float32 {
	return float32(gomath.Sqrt(float64(x)))
}

func ksin(x float32) float32 {
	return float32(gomath.Sin(float64(x)))
}

func kcos(x float32) float32 {
	return float32(gomath.Cos(float64(x)))
}

func ktan(x float32) float32 {
	return float32(gomath.Tan(float64(x)))
}
