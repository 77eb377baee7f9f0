// Package omdb is the ratings source client (Open Movie Database). It
// contributes the industry, critics and audience rating kinds merged into
// each canonical content record.
package omdb

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"movie-recommender/internal/models"
	"movie-recommender/internal/providers"
)

// Provider is the rate-limiter / breaker key for this client.
const Provider = "omdb"

// Client is the OMDB API client.
type Client struct {
	apiKey    string
	baseURL   string
	transport *providers.Transport
}

// NewClient creates a new OMDB API client.
func NewClient(apiKey, baseURL string, transport *providers.Transport) *Client {
	return &Client{
		apiKey:    apiKey,
		baseURL:   strings.TrimRight(baseURL, "/"),
		transport: transport,
	}
}

// ---- OMDB Response Types ----

// rawRating is one entry of OMDB's Ratings array.
type rawRating struct {
	Source string `json:"Source"`
	Value  string `json:"Value"`
}

// response is the OMDB title lookup payload. OMDB signals errors in-band
// with Response=False.
type response struct {
	Title      string      `json:"Title"`
	Year       string      `json:"Year"`
	IMDbID     string      `json:"imdbID"`
	IMDbRating string      `json:"imdbRating"`
	IMDbVotes  string      `json:"imdbVotes"`
	Metascore  string      `json:"Metascore"`
	Ratings    []rawRating `json:"Ratings"`
	Response   string      `json:"Response"`
	Error      string      `json:"Error"`
}

// Ratings is the normalized lookup result: each known rating kind on its
// native scale, plus the IMDb id for fragment merging.
type Ratings struct {
	Title   string
	Year    int
	IMDbID  string
	Sources map[models.RatingSource]models.Rating
}

// ---- Client Methods ----

// LookupByIMDbID fetches ratings for a title by its IMDb id.
func (c *Client) LookupByIMDbID(ctx context.Context, imdbID string) (*Ratings, error) {
	u := fmt.Sprintf("%s/?apikey=%s&i=%s", c.baseURL, c.apiKey, url.QueryEscape(imdbID))
	slog.Debug("omdb lookup", "imdb_id", imdbID)
	return c.lookup(ctx, u)
}

// LookupByTitle fetches ratings for a title by name, optionally narrowed by
// release year.
func (c *Client) LookupByTitle(ctx context.Context, title string, year int) (*Ratings, error) {
	u := fmt.Sprintf("%s/?apikey=%s&t=%s", c.baseURL, c.apiKey, url.QueryEscape(title))
	if year > 0 {
		u += fmt.Sprintf("&y=%d", year)
	}
	slog.Debug("omdb lookup", "title", title, "year", year)
	return c.lookup(ctx, u)
}

func (c *Client) lookup(ctx context.Context, u string) (*Ratings, error) {
	var resp response
	if err := c.transport.GetJSON(ctx, u, 1, &resp); err != nil {
		return nil, err
	}
	if resp.Response == "False" {
		// OMDB returns 200 with an in-band error for unknown titles.
		return nil, fmt.Errorf("omdb: %s: %w", resp.Error, providers.ErrNotFound)
	}
	return c.normalize(&resp), nil
}

// normalize converts OMDB's stringly-typed payload into typed ratings on
// their native scales. Unparseable fields are skipped, not fatal.
func (c *Client) normalize(resp *response) *Ratings {
	out := &Ratings{
		Title:   resp.Title,
		IMDbID:  resp.IMDbID,
		Sources: make(map[models.RatingSource]models.Rating),
	}
	if y, err := strconv.Atoi(firstDigits(resp.Year)); err == nil {
		out.Year = y
	}

	votes := parseVotes(resp.IMDbVotes)
	if v, err := strconv.ParseFloat(resp.IMDbRating, 64); err == nil {
		out.Sources[models.SourceIndustry] = models.Rating{Value: v, VoteCount: votes}
	}
	if v, err := strconv.ParseFloat(resp.Metascore, 64); err == nil {
		out.Sources[models.SourceAudienceAgg] = models.Rating{Value: v, VoteCount: votes}
	}
	for _, r := range resp.Ratings {
		if r.Source != "Rotten Tomatoes" {
			continue
		}
		pct := strings.TrimSuffix(r.Value, "%")
		if v, err := strconv.ParseFloat(pct, 64); err == nil {
			out.Sources[models.SourceCriticsAgg] = models.Rating{Value: v, VoteCount: votes}
		}
	}
	return out
}

// parseVotes parses OMDB vote counts like "2,100,233".
func parseVotes(s string) int {
	n, err := strconv.Atoi(strings.ReplaceAll(s, ",", ""))
	if err != nil {
		return 0
	}
	return n
}

// firstDigits trims year ranges like "2008-2013" down to the leading year.
func firstDigits(s string) string {
	for i, r := range s {
		if r < '0' || r > '9' {
			return s[:i]
		}
	}
	return s
}
