package models

import "time"

// InteractionAction enumerates the user signals the engine learns from.
type InteractionAction string

const (
	ActionSearch       InteractionAction = "search"
	ActionView         InteractionAction = "view"
	ActionFavorite     InteractionAction = "favorite"
	ActionClickTrailer InteractionAction = "click_trailer"
	ActionClickSimilar InteractionAction = "click_similar"
)

// Valid reports whether a is a recognized interaction action.
func (a InteractionAction) Valid() bool {
	switch a {
	case ActionSearch, ActionView, ActionFavorite, ActionClickTrailer, ActionClickSimilar:
		return true
	}
	return false
}

// InteractionEvent is an append-only record of a user acting on content.
// The ID deduplicates replays of the same event.
type InteractionEvent struct {
	ID        string            `json:"id"`
	ContentID string            `json:"content_id"`
	MediaType MediaType         `json:"media_type"`
	Action    InteractionAction `json:"action"`
	Timestamp time.Time         `json:"timestamp"`
}

// SearchEntry records one search query for keyword preference mining.
type SearchEntry struct {
	Query     string    `json:"query"`
	MediaType MediaType `json:"media_type"`
	Timestamp time.Time `json:"timestamp"`
}

// ProfileStats are running counters kept on each profile.
type ProfileStats struct {
	TotalSearches     int `json:"total_searches"`
	TotalInteractions int `json:"total_interactions"`
	MoviesViewed      int `json:"movies_viewed"`
	TVShowsViewed     int `json:"tv_shows_viewed"`
}

// UserProfile holds everything known about one user's taste. Weights are
// reinforced monotonically by interactions and only reset by an explicit
// user-initiated clear.
type UserProfile struct {
	UserID             string             `json:"user_id"`
	GenreWeights       map[string]float64 `json:"genre_weights"`
	ActorWeights       map[string]float64 `json:"actor_weights"`
	DirectorWeights    map[string]float64 `json:"director_weights"`
	ContentTypeWeights map[string]float64 `json:"content_type_weights"`
	InteractionHistory []InteractionEvent `json:"interaction_history"`
	SearchHistory      []SearchEntry      `json:"search_history"`
	Favorites          []string           `json:"favorites"`
	Stats              ProfileStats       `json:"stats"`
	FirstSeen          time.Time          `json:"first_seen"`
	LastActive         time.Time          `json:"last_active"`
}

// NewUserProfile creates an empty profile for a user.
func NewUserProfile(userID string) *UserProfile {
	now := time.Now().UTC()
	return &UserProfile{
		UserID:             userID,
		GenreWeights:       map[string]float64{},
		ActorWeights:       map[string]float64{},
		DirectorWeights:    map[string]float64{},
		ContentTypeWeights: map[string]float64{string(MediaMovie): 0, string(MediaTV): 0},
		FirstSeen:          now,
		LastActive:         now,
	}
}

// IsFavorite reports whether contentID is in the user's favorites.
func (p *UserProfile) IsFavorite(contentID string) bool {
	for _, id := range p.Favorites {
		if id == contentID {
			return true
		}
	}
	return false
}

// HasSeen reports whether the user has any interaction with contentID.
func (p *UserProfile) HasSeen(contentID string) bool {
	for _, ev := range p.InteractionHistory {
		if ev.ContentID == contentID {
			return true
		}
	}
	return false
}

// TopGenres returns the user's n highest-weighted genres.
func (p *UserProfile) TopGenres(n int) []string {
	type gw struct {
		genre  string
		weight float64
	}
	sorted := make([]gw, 0, len(p.GenreWeights))
	for g, w := range p.GenreWeights {
		sorted = append(sorted, gw{g, w})
	}
	// Insertion sort keeps ties in deterministic order for small maps.
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0; j-- {
			a, b := sorted[j-1], sorted[j]
			if b.weight > a.weight || (b.weight == a.weight && b.genre < a.genre) {
				sorted[j-1], sorted[j] = b, a
			}
		}
	}
	if n > len(sorted) {
		n = len(sorted)
	}
	out := make([]string, 0, n)
	for _, e := range sorted[:n] {
		out = append(out, e.genre)
	}
	return out
}

// PreferredMediaType returns the media type the user interacts with most,
// defaulting to movies.
func (p *UserProfile) PreferredMediaType() MediaType {
	if p.ContentTypeWeights[string(MediaTV)] > p.ContentTypeWeights[string(MediaMovie)] {
		return MediaTV
	}
	return MediaMovie
}
