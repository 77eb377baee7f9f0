package models

import "time"

// MediaType distinguishes movies from TV shows.
type MediaType string

const (
	MediaMovie MediaType = "movie"
	MediaTV    MediaType = "tv"
)

// Valid reports whether mt is a recognized media type.
func (mt MediaType) Valid() bool {
	return mt == MediaMovie || mt == MediaTV
}

// RatingSource names the external rating systems we aggregate.
type RatingSource string

const (
	SourceCommunity   RatingSource = "community"    // TMDB vote average (0-10)
	SourceIndustry    RatingSource = "industry"     // IMDb rating (0-10)
	SourceCriticsAgg  RatingSource = "critics_agg"  // Rotten Tomatoes critics (0-100)
	SourceAudienceAgg RatingSource = "audience_agg" // Metacritic / audience aggregate (0-100)
)

// Rating is a single source's rating with its supporting vote count.
type Rating struct {
	Value     float64 `json:"value"`
	VoteCount int     `json:"vote_count"`
}

// ContentItem is the canonical representation of a movie or TV show,
// merged from the metadata, ratings and video providers.
type ContentItem struct {
	ID             string                  `json:"id"` // provider-qualified, e.g. "tmdb:movie:603"
	MediaType      MediaType               `json:"media_type"`
	Title          string                  `json:"title"`
	ReleaseDate    string                  `json:"release_date"` // YYYY-MM-DD
	RuntimeMinutes int                     `json:"runtime_minutes"`
	Genres         []string                `json:"genres"`
	Cast           []string                `json:"cast"` // ordered, top billing first
	Directors      []string                `json:"directors"`
	Keywords       []string                `json:"keywords"`
	IMDbID         string                  `json:"imdb_id,omitempty"`
	RatingSources  map[RatingSource]Rating `json:"rating_sources,omitempty"`
	CanonicalScore float64                 `json:"canonical_score"` // 0-10, 0 means undefined
	HasScore       bool                    `json:"has_score"`
	Popularity     float64                 `json:"popularity"`
	TrailerURL     string                  `json:"trailer_url,omitempty"`
	PosterURL      string                  `json:"poster_url,omitempty"`
	Overview       string                  `json:"overview,omitempty"`
}

// ReleaseYear returns the four-digit release year, or 0 if unknown.
func (c *ContentItem) ReleaseYear() int {
	if len(c.ReleaseDate) < 4 {
		return 0
	}
	t, err := time.Parse("2006", c.ReleaseDate[:4])
	if err != nil {
		return 0
	}
	return t.Year()
}

// Video is a candidate trailer video from the video provider.
type Video struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Channel   string `json:"channel"`
	ViewCount int64  `json:"view_count"`
}

// Recommendation is a scored content item returned to callers.
type Recommendation struct {
	Content ContentItem `json:"content"`
	Score   float64     `json:"score"`
	Reason  string      `json:"reason"`
}
