// Package facematch provides the face matching engine shared between CLI and web handlers.
// Every call site (identify, attendance, enrollment, CLI) goes through the same primitives,
// so thresholds and tie-breaking behave identically everywhere.
//
// All functions in this package are pure: no I/O, no shared state, safe for concurrent use.
package facematch

// SentinelDistance is returned when two descriptors cannot be compared (different lengths).
// It is worse than any plausible genuine match, so malformed descriptors never win.
const SentinelDistance = 1.0

// Descriptor is a fixed-length face embedding produced by the external recognition model.
type Descriptor []float64

// Candidate is an enrolled identity as seen by the matcher: an opaque ID and its reference descriptors
type Candidate struct {
	ID          string
	Descriptors []Descriptor
}

// NewDescriptor converts a float32 embedding (as returned by the model service) to a Descriptor.
func NewDescriptor(v []float32) Descriptor {
	d := make(Descriptor, len(v))
	for i, x := range v {
		d[i] = float64(x)
	}
	return d
}

// Float32 returns a float32 copy of the descriptor, used for vector storage.
func (d Descriptor) Float32() []float32 {
	out := make([]float32, len(d))
	for i, x := range d {
		out[i] = float32(x)
	}
	return out
}
