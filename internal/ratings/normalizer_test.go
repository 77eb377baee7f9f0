package ratings

import (
	"math"
	"testing"

	"movie-recommender/internal/models"
)

const highVotes = 100000

func allSources() map[models.RatingSource]models.Rating {
	return map[models.RatingSource]models.Rating{
		models.SourceCommunity:   {Value: 8.4, VoteCount: 12000},
		models.SourceIndustry:    {Value: 8.8, VoteCount: 2100000},
		models.SourceCriticsAgg:  {Value: 87, VoteCount: highVotes},
		models.SourceAudienceAgg: {Value: 91, VoteCount: highVotes},
	}
}

func TestNormalizeBlendsAllSources(t *testing.T) {
	n := NewNormalizer()
	score, ok := n.Normalize(allSources())
	if !ok {
		t.Fatal("expected a defined score")
	}
	want := 0.4*8.4 + 0.35*8.8 + 0.15*8.7 + 0.10*9.1
	if math.Abs(score-want) > 0.01 {
		t.Fatalf("score = %.4f, want %.4f", score, want)
	}
}

func TestNormalizeDeterministic(t *testing.T) {
	n := NewNormalizer()
	first, _ := n.Normalize(allSources())
	for i := 0; i < 20; i++ {
		again, _ := n.Normalize(allSources())
		if again != first {
			t.Fatalf("run %d: %.10f != %.10f", i, again, first)
		}
	}
}

func TestMissingSourcesRenormalize(t *testing.T) {
	n := NewNormalizer()
	score, ok := n.Normalize(map[models.RatingSource]models.Rating{
		models.SourceCommunity: {Value: 8.0, VoteCount: highVotes},
		models.SourceIndustry:  {Value: 9.0, VoteCount: highVotes},
	})
	if !ok {
		t.Fatal("expected a defined score")
	}
	// Weights renormalize to 0.4/0.75 and 0.35/0.75.
	want := (0.4/0.75)*8.0 + (0.35/0.75)*9.0
	if math.Abs(score-want) > 1e-9 {
		t.Fatalf("score = %.6f, want %.6f", score, want)
	}
}

func TestNoSourcesUndefined(t *testing.T) {
	n := NewNormalizer()
	if _, ok := n.Normalize(nil); ok {
		t.Fatal("empty sources must yield an undefined score")
	}
	if _, ok := n.Normalize(map[models.RatingSource]models.Rating{
		"unknown_source": {Value: 9.9, VoteCount: highVotes},
	}); ok {
		t.Fatal("unrecognized sources must yield an undefined score")
	}
}

func TestScoreAlwaysInRange(t *testing.T) {
	n := NewNormalizer()
	cases := []map[models.RatingSource]models.Rating{
		{models.SourceCommunity: {Value: 0, VoteCount: 1}},
		{models.SourceCommunity: {Value: 10, VoteCount: highVotes}},
		{models.SourceCriticsAgg: {Value: 100, VoteCount: highVotes}},
		{models.SourceCriticsAgg: {Value: 250, VoteCount: highVotes}}, // out-of-range input
		{models.SourceIndustry: {Value: -3, VoteCount: 50}},
		allSources(),
	}
	for i, sources := range cases {
		score, ok := n.Normalize(sources)
		if !ok {
			t.Fatalf("case %d: undefined", i)
		}
		if score < 0 || score > 10 {
			t.Fatalf("case %d: score %.4f outside [0,10]", i, score)
		}
	}
}

func TestLowVoteSourceDamped(t *testing.T) {
	n := NewNormalizer()

	// A near-perfect community score from 10 votes vs a solid industry
	// score from millions: the thin source must not dominate.
	score, ok := n.Normalize(map[models.RatingSource]models.Rating{
		models.SourceCommunity: {Value: 9.9, VoteCount: 10},
		models.SourceIndustry:  {Value: 7.0, VoteCount: 2000000},
	})
	if !ok {
		t.Fatal("expected a defined score")
	}

	// Undamped blend would be (0.4*9.9+0.35*7.0)/0.75 = 8.547.
	if score >= 8.0 {
		t.Fatalf("thin source dominated: score %.4f", score)
	}
	if score < 7.0 {
		t.Fatalf("damping overshot below the trusted source: %.4f", score)
	}
}

func TestRescale(t *testing.T) {
	cases := []struct {
		source models.RatingSource
		in     float64
		want   float64
	}{
		{models.SourceCommunity, 8.4, 8.4},
		{models.SourceIndustry, 8.8, 8.8},
		{models.SourceCriticsAgg, 87, 8.7},
		{models.SourceAudienceAgg, 91, 9.1},
		{models.SourceCriticsAgg, 130, 10}, // clamped
		{models.SourceCommunity, -1, 0},    // clamped
	}
	for _, c := range cases {
		if got := Rescale(c.source, c.in); math.Abs(got-c.want) > 1e-9 {
			t.Fatalf("Rescale(%s, %.1f) = %.4f, want %.4f", c.source, c.in, got, c.want)
		}
	}
}
