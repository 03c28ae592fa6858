package facematch

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Distance computes the Euclidean (L2) distance between two descriptors.
// Returns SentinelDistance if the lengths differ.
func Distance(a, b Descriptor) float64 {
	if len(a) != len(b) {
		return SentinelDistance
	}
	return floats.Distance(a, b, 2)
}

// Average computes the element-wise mean of the descriptors.
// The length of the first descriptor wins; descriptors of another length are ignored.
// Returns an empty descriptor for empty input.
func Average(descriptors []Descriptor) Descriptor {
	if len(descriptors) == 0 {
		return Descriptor{}
	}

	result := make(Descriptor, len(descriptors[0]))
	count := 0
	for _, d := range descriptors {
		if len(d) != len(result) {
			continue
		}
		floats.Add(result, d)
		count++
	}

	floats.Scale(1/float64(count), result)
	return result
}

// Score converts a distance to a 0-100 display percentage.
func Score(distance float64) int {
	return max(0, int(math.Round((1-distance)*100)))
}
