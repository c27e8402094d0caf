// Package utils contains small numeric helpers shared by the services.
package utils

import (
	"math"
	"math/rand"
)

// RandomBetween returns a uniformly distributed integer in [min, max],
// both bounds inclusive. Arguments are swapped if given out of order.
func RandomBetween(min, max int) int {
	if max < min {
		min, max = max, min
	}
	return rand.Intn(max-min+1) + min
}

// SafeDivide divides a by b and returns 0 when the divisor is zero so
// callers never have to guard against division by zero themselves.
func SafeDivide(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

// Round rounds v to the given number of decimal places.
func Round(v float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(v*factor) / factor
}
