package facematch

import "math"

// Match is the result of resolving a single query against a candidate pool.
// Index is the position of the winning candidate in the input slice, or -1 if none won.
type Match struct {
	Index    int
	ID       string
	Distance float64
}

// Found reports whether any candidate won.
func (m Match) Found() bool {
	return m.Index >= 0
}

// Accepted reports whether a candidate won and its distance is within threshold.
// The resolver never applies a threshold itself; identification and uniqueness
// checks use the same primitive with different bounds.
func (m Match) Accepted(threshold float64) bool {
	return m.Found() && m.Distance <= threshold
}

// Score returns the display percentage for the match distance.
func (m Match) Score() int {
	return Score(m.Distance)
}

// candidateDistance returns the minimum distance from query to any reference descriptor.
// ok is false if the candidate has no references.
func candidateDistance(query Descriptor, references []Descriptor) (float64, bool) {
	if len(references) == 0 {
		return 0, false
	}
	best := math.Inf(1)
	for _, ref := range references {
		if d := Distance(query, ref); d < best {
			best = d
		}
	}
	return best, true
}

// Resolve finds the candidate closest to query.
//
// A candidate scores its own minimum over all reference descriptors (an identity matches
// if any stored view matches). The global minimum wins; ties go to the first candidate
// in input order. A candidate must beat SentinelDistance to be returned.
// An empty pool yields Match{Index: -1, Distance: SentinelDistance}.
func Resolve(query Descriptor, candidates []Candidate) Match {
	best := Match{Index: -1, Distance: SentinelDistance}

	for i := range candidates {
		d, ok := candidateDistance(query, candidates[i].Descriptors)
		if !ok {
			continue
		}
		if d < best.Distance {
			best = Match{Index: i, ID: candidates[i].ID, Distance: d}
		}
	}

	return best
}
