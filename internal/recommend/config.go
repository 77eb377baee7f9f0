package recommend

import "time"

// Config holds the engine's blending and sizing knobs. The strategy split
// is a heuristic default, not a tuned constant; deployments override it
// through configuration.
type Config struct {
	// Blend weights for the four candidate strategies. Strategies that
	// cannot run have their weight redistributed across the rest.
	CollaborativeWeight float64
	ContentWeight       float64
	PopularityWeight    float64
	DiversityWeight     float64

	// DiversityFraction of output slots reserved for content outside the
	// user's top-2 genres.
	DiversityFraction float64

	// DefaultLimit caps result size when the caller passes none.
	DefaultLimit int

	// RequestTimeout bounds candidate gathering; strategies that miss the
	// deadline are dropped, not waited for.
	RequestTimeout time.Duration

	// LikedItemCap bounds how many of the user's liked items seed
	// content-based scoring.
	LikedItemCap int

	// CandidateFetchCap bounds how many collaborative candidate records
	// are resolved per request.
	CandidateFetchCap int

	// MinVoteCountMovies and MinVoteCountTV filter discover results for
	// genre-based candidates.
	MinVoteCountMovies int
	MinVoteCountTV     int
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		CollaborativeWeight: 0.40,
		ContentWeight:       0.30,
		PopularityWeight:    0.20,
		DiversityWeight:     0.10,
		DiversityFraction:   0.10,
		DefaultLimit:        10,
		RequestTimeout:      10 * time.Second,
		LikedItemCap:        10,
		CandidateFetchCap:   30,
		MinVoteCountMovies:  100,
		MinVoteCountTV:      50,
	}
}
