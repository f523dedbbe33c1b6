package utils

import "math"

// ScaleToUnit divides x in place by its L2 norm and returns that norm.
// A zero vector is left untouched and 0 is returned.
func ScaleToUnit(x []float32) float64 {
	var sq float64
	for _, v := range x {
		sq += float64(v) * float64(v)
	}
	if sq == 0 {
		return 0
	}
	n := math.Sqrt(sq)
	inv := 1 / n
	for i, v := range x {
		x[i] = float32(float64(v) * inv)
	}
	return n
}
