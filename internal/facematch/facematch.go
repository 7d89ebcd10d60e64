// Package facematch compares biometric face templates against a fixed
// operating threshold.
package facematch

import (
	"fmt"
	"math"
)

const (
	// TemplateDim is the fixed dimension of enrolled face templates.
	TemplateDim = 128

	// MatchThreshold is the maximum Euclidean distance for two templates to be
	// considered the same person. Stricter than the embedding model's generic
	// default (~0.6) so false acceptance loses to false rejection.
	MatchThreshold = 0.45
)

// Template is a fixed-dimension face feature vector.
type Template []float32

// EuclideanDistance computes the Euclidean norm of the elementwise difference
// between two templates. Mismatched dimensions are a programmer error and panic.
func EuclideanDistance(a, b Template) float64 {
	if len(a) != len(b) {
		panic(fmt.Sprintf("template dimension mismatch: %d vs %d", len(a), len(b)))
	}

	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// IsMatch reports whether a distance classifies as the same person.
func IsMatch(distance float64) bool {
	return distance <= MatchThreshold
}
