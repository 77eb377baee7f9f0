// Package tmdb is the metadata source client (The Movie Database).
package tmdb

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"movie-recommender/internal/models"
	"movie-recommender/internal/providers"
)

// Provider is the rate-limiter / breaker key for this client.
const Provider = "tmdb"

// Client is the TMDB API client.
type Client struct {
	apiKey    string
	baseURL   string
	transport *providers.Transport
}

// NewClient creates a new TMDB API client.
func NewClient(apiKey, baseURL string, transport *providers.Transport) *Client {
	return &Client{
		apiKey:    apiKey,
		baseURL:   strings.TrimRight(baseURL, "/"),
		transport: transport,
	}
}

// ---- TMDB Response Types (internal, not exposed to consumers) ----

// ListResponse is the shape of TMDB search/discover/trending/similar results.
type ListResponse struct {
	Page         int      `json:"page"`
	Results      []Result `json:"results"`
	TotalPages   int      `json:"total_pages"`
	TotalResults int      `json:"total_results"`
}

// Result is one entry in a TMDB result list. Movies carry title/release_date,
// TV shows carry name/first_air_date.
type Result struct {
	ID           int     `json:"id"`
	Title        string  `json:"title"`
	Name         string  `json:"name"`
	ReleaseDate  string  `json:"release_date"`
	FirstAirDate string  `json:"first_air_date"`
	Overview     string  `json:"overview"`
	MediaType    string  `json:"media_type"`
	Popularity   float64 `json:"popularity"`
	VoteAverage  float64 `json:"vote_average"`
	VoteCount    int     `json:"vote_count"`
	GenreIDs     []int   `json:"genre_ids"`
	PosterPath   string  `json:"poster_path"`
}

// DisplayTitle returns the movie title or TV name, whichever is set.
func (r Result) DisplayTitle() string {
	if r.Title != "" {
		return r.Title
	}
	return r.Name
}

// Genre is a TMDB genre.
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// CastMember is one cast credit.
type CastMember struct {
	Name  string `json:"name"`
	Order int    `json:"order"`
}

// CrewMember is one crew credit.
type CrewMember struct {
	Name string `json:"name"`
	Job  string `json:"job"`
}

// Credits holds cast and crew for a title.
type Credits struct {
	Cast []CastMember `json:"cast"`
	Crew []CrewMember `json:"crew"`
}

// Keyword is a TMDB keyword tag.
type Keyword struct {
	Name string `json:"name"`
}

// KeywordList wraps the two shapes TMDB uses for keywords (movies use
// "keywords", TV uses "results").
type KeywordList struct {
	Keywords []Keyword `json:"keywords"`
	Results  []Keyword `json:"results"`
}

// All returns the keywords regardless of which field was populated.
func (k KeywordList) All() []Keyword {
	if len(k.Keywords) > 0 {
		return k.Keywords
	}
	return k.Results
}

// ExternalIDs carries industry identifiers for a title.
type ExternalIDs struct {
	IMDbID string `json:"imdb_id"`
}

// Detail is the detailed movie/TV payload with credits, keywords and
// external IDs appended.
type Detail struct {
	ID             int         `json:"id"`
	Title          string      `json:"title"`
	Name           string      `json:"name"`
	Overview       string      `json:"overview"`
	ReleaseDate    string      `json:"release_date"`
	FirstAirDate   string      `json:"first_air_date"`
	Runtime        int         `json:"runtime"`
	EpisodeRunTime []int       `json:"episode_run_time"`
	Popularity     float64     `json:"popularity"`
	VoteAverage    float64     `json:"vote_average"`
	VoteCount      int         `json:"vote_count"`
	Genres         []Genre     `json:"genres"`
	PosterPath     string      `json:"poster_path"`
	IMDbID         string      `json:"imdb_id"`
	ExternalIDs    ExternalIDs `json:"external_ids"`
	Credits        Credits     `json:"credits"`
	Keywords       KeywordList `json:"keywords"`
}

// DisplayTitle returns the movie title or TV name, whichever is set.
func (d *Detail) DisplayTitle() string {
	if d.Title != "" {
		return d.Title
	}
	return d.Name
}

// RuntimeMinutes normalizes movie runtime and TV episode runtime.
func (d *Detail) RuntimeMinutes() int {
	if d.Runtime > 0 {
		return d.Runtime
	}
	if len(d.EpisodeRunTime) > 0 {
		return d.EpisodeRunTime[0]
	}
	return 0
}

// IndustryID returns the IMDb id from whichever field carried it.
func (d *Detail) IndustryID() string {
	if d.IMDbID != "" {
		return d.IMDbID
	}
	return d.ExternalIDs.IMDbID
}

// DiscoverFilter holds the supported discover criteria.
type DiscoverFilter struct {
	GenreIDs     []int
	SortBy       string // e.g. "vote_average.desc", "popularity.desc"
	VoteCountGTE int
}

// ---- Client Methods ----

func mediaPath(mt models.MediaType) string {
	if mt == models.MediaTV {
		return "tv"
	}
	return "movie"
}

// Search searches movies or TV shows by free-text query.
func (c *Client) Search(ctx context.Context, query string, mt models.MediaType) ([]Result, error) {
	u := fmt.Sprintf("%s/search/%s?api_key=%s&query=%s",
		c.baseURL, mediaPath(mt), c.apiKey, url.QueryEscape(query))

	slog.Debug("tmdb search", "media_type", mt, "query", query)
	var resp ListResponse
	if err := c.transport.GetJSON(ctx, u, 1, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// Details fetches full details for one title, with credits, keywords and
// external IDs in a single call.
func (c *Client) Details(ctx context.Context, id int, mt models.MediaType) (*Detail, error) {
	u := fmt.Sprintf("%s/%s/%d?api_key=%s&append_to_response=credits,keywords,external_ids",
		c.baseURL, mediaPath(mt), id, c.apiKey)

	slog.Debug("tmdb details", "media_type", mt, "id", id)
	var d Detail
	if err := c.transport.GetJSON(ctx, u, 1, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// Trending returns trending movies and TV shows for the window ("day" or
// "week").
func (c *Client) Trending(ctx context.Context, window string) ([]Result, error) {
	if window != "week" {
		window = "day"
	}
	u := fmt.Sprintf("%s/trending/all/%s?api_key=%s", c.baseURL, window, c.apiKey)

	slog.Debug("tmdb trending", "window", window)
	var resp ListResponse
	if err := c.transport.GetJSON(ctx, u, 1, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// Popular returns currently popular titles of the given media type.
func (c *Client) Popular(ctx context.Context, mt models.MediaType) ([]Result, error) {
	u := fmt.Sprintf("%s/%s/popular?api_key=%s", c.baseURL, mediaPath(mt), c.apiKey)

	slog.Debug("tmdb popular", "media_type", mt)
	var resp ListResponse
	if err := c.transport.GetJSON(ctx, u, 1, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// Discover returns titles matching the filter criteria.
func (c *Client) Discover(ctx context.Context, mt models.MediaType, f DiscoverFilter) ([]Result, error) {
	params := url.Values{}
	params.Set("api_key", c.apiKey)
	if len(f.GenreIDs) > 0 {
		ids := make([]string, len(f.GenreIDs))
		for i, id := range f.GenreIDs {
			ids[i] = fmt.Sprintf("%d", id)
		}
		params.Set("with_genres", strings.Join(ids, "|"))
	}
	if f.SortBy != "" {
		params.Set("sort_by", f.SortBy)
	}
	if f.VoteCountGTE > 0 {
		params.Set("vote_count.gte", fmt.Sprintf("%d", f.VoteCountGTE))
	}
	u := fmt.Sprintf("%s/discover/%s?%s", c.baseURL, mediaPath(mt), params.Encode())

	slog.Debug("tmdb discover", "media_type", mt, "genres", f.GenreIDs)
	var resp ListResponse
	if err := c.transport.GetJSON(ctx, u, 1, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// Similar returns titles similar to the given one.
func (c *Client) Similar(ctx context.Context, id int, mt models.MediaType) ([]Result, error) {
	u := fmt.Sprintf("%s/%s/%d/similar?api_key=%s", c.baseURL, mediaPath(mt), id, c.apiKey)

	slog.Debug("tmdb similar", "media_type", mt, "id", id)
	var resp ListResponse
	if err := c.transport.GetJSON(ctx, u, 1, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// Recommendations returns TMDB's own recommendations for the given title.
func (c *Client) Recommendations(ctx context.Context, id int, mt models.MediaType) ([]Result, error) {
	u := fmt.Sprintf("%s/%s/%d/recommendations?api_key=%s", c.baseURL, mediaPath(mt), id, c.apiKey)

	slog.Debug("tmdb recommendations", "media_type", mt, "id", id)
	var resp ListResponse
	if err := c.transport.GetJSON(ctx, u, 1, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}
