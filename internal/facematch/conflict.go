package facematch

import "math"

// Default conflict policy constants.
const (
	// DefaultStrictThreshold is the distance the winning candidate must reach on at least one sample
	DefaultStrictThreshold = 0.38
	// DefaultSupportThreshold is the looser distance at which a sample counts as a vote
	DefaultSupportThreshold = 0.42
)

// ConflictPolicy controls when a multi-sample enrollment is considered a duplicate.
type ConflictPolicy struct {
	StrictThreshold  float64 `yaml:"strict_threshold"`
	SupportThreshold float64 `yaml:"support_threshold"`
	MinSupportHits   int     `yaml:"min_support_hits"`
}

// MinSupportHitsFor scales the support requirement with the number of captured samples:
// floor(n/3) clamped to [2, 3].
func MinSupportHitsFor(sampleCount int) int {
	return min(max(sampleCount/3, 2), 3)
}

// DefaultConflictPolicy returns the default policy for an enrollment with sampleCount samples.
func DefaultConflictPolicy(sampleCount int) ConflictPolicy {
	return ConflictPolicy{
		StrictThreshold:  DefaultStrictThreshold,
		SupportThreshold: DefaultSupportThreshold,
		MinSupportHits:   MinSupportHitsFor(sampleCount),
	}
}

// Conflict is the result of checking a sample set against a candidate pool.
// Index/ID identify the strongest candidate even when IsConflict is false, so callers
// can show near misses. Index is -1 if no candidate could be evaluated.
type Conflict struct {
	Index       int
	ID          string
	Distance    float64
	Score       int
	SupportHits int
	IsConflict  bool
}

// Found reports whether any candidate was evaluated.
func (c Conflict) Found() bool {
	return c.Index >= 0
}

// DetectConflict decides whether a set of samples, taken together, duplicates an existing identity.
//
// Each sample votes for every candidate within SupportThreshold. The candidate with the most
// votes wins; ties go to the lower best distance, then to input order. The verdict is a
// conflict only if the winner has at least one sample within StrictThreshold AND at least
// MinSupportHits votes.
func DetectConflict(samples []Descriptor, candidates []Candidate, policy ConflictPolicy) Conflict {
	result := Conflict{Index: -1, Distance: SentinelDistance}
	if len(samples) == 0 {
		return result
	}

	for i := range candidates {
		if len(candidates[i].Descriptors) == 0 {
			continue
		}

		hits := 0
		bestDistance := math.Inf(1)
		for _, sample := range samples {
			d, _ := candidateDistance(sample, candidates[i].Descriptors)
			if d <= policy.SupportThreshold {
				hits++
			}
			if d < bestDistance {
				bestDistance = d
			}
		}

		if result.Found() && !beats(hits, bestDistance, result.SupportHits, result.Distance) {
			continue
		}
		result = Conflict{
			Index:       i,
			ID:          candidates[i].ID,
			Distance:    bestDistance,
			SupportHits: hits,
		}
	}

	if !result.Found() {
		return result
	}

	result.Score = Score(result.Distance)
	result.IsConflict = result.Distance <= policy.StrictThreshold && result.SupportHits >= policy.MinSupportHits
	return result
}

// beats reports whether a challenger outranks the current leader.
func beats(hits int, distance float64, leaderHits int, leaderDistance float64) bool {
	if hits != leaderHits {
		return hits > leaderHits
	}
	return distance < leaderDistance
}
