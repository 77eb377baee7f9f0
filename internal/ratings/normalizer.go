// Package ratings fuses multi-source ratings into one canonical 0-10 score.
package ratings

import (
	"math"

	"movie-recommender/internal/models"
)

// Default per-source weights. Absent sources have their weight redistributed
// proportionally across the present ones.
var defaultWeights = map[models.RatingSource]float64{
	models.SourceCommunity:   0.40,
	models.SourceIndustry:    0.35,
	models.SourceCriticsAgg:  0.15,
	models.SourceAudienceAgg: 0.10,
}

// percentSources rate on a 0-100 scale and are rescaled to 0-10.
var percentSources = map[models.RatingSource]bool{
	models.SourceCriticsAgg:  true,
	models.SourceAudienceAgg: true,
}

const (
	// defaultVoteFloor is the vote count at which a source earns full
	// confidence; below it the source's weight is damped log-scaled.
	defaultVoteFloor = 500

	// minConfidence keeps a thinly-voted source from vanishing entirely.
	minConfidence = 0.1
)

// Normalizer computes canonical scores from per-source ratings. The zero
// value is not usable; construct with NewNormalizer.
type Normalizer struct {
	weights   map[models.RatingSource]float64
	voteFloor int
}

// NewNormalizer creates a Normalizer with the default weights and vote floor.
func NewNormalizer() *Normalizer {
	return &Normalizer{weights: defaultWeights, voteFloor: defaultVoteFloor}
}

// NewNormalizerWithConfig creates a Normalizer with custom weights and vote
// floor. Nil weights or a non-positive floor fall back to defaults.
func NewNormalizerWithConfig(weights map[models.RatingSource]float64, voteFloor int) *Normalizer {
	if weights == nil {
		weights = defaultWeights
	}
	if voteFloor <= 0 {
		voteFloor = defaultVoteFloor
	}
	return &Normalizer{weights: weights, voteFloor: voteFloor}
}

// Rescale converts a source rating to the canonical 0-10 scale.
func Rescale(source models.RatingSource, value float64) float64 {
	if percentSources[source] {
		value /= 10
	}
	if value < 0 {
		return 0
	}
	if value > 10 {
		return 10
	}
	return value
}

// Normalize fuses the given rating sources into a canonical score in [0,10].
// The second return is false when no recognized source is present, in which
// case the caller must rank by popularity instead.
//
// A source backed by fewer votes than the floor has its weight damped by a
// log-scaled confidence multiplier, so a 9.8 from a dozen votes cannot
// dominate an 8.5 from two million.
func (n *Normalizer) Normalize(sources map[models.RatingSource]models.Rating) (float64, bool) {
	var weightSum, scoreSum float64
	for source, rating := range sources {
		base, ok := n.weights[source]
		if !ok {
			continue
		}
		w := base * n.confidence(rating.VoteCount)
		scoreSum += w * Rescale(source, rating.Value)
		weightSum += w
	}
	if weightSum == 0 {
		return 0, false
	}

	score := scoreSum / weightSum
	if score < 0 {
		score = 0
	}
	if score > 10 {
		score = 10
	}
	return score, true
}

// confidence maps a vote count to [minConfidence, 1].
func (n *Normalizer) confidence(votes int) float64 {
	if votes >= n.voteFloor {
		return 1
	}
	c := math.Log1p(float64(votes)) / math.Log1p(float64(n.voteFloor))
	if c < minConfidence {
		return minConfidence
	}
	return c
}
