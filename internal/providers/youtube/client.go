// Package youtube is the video source client, used to attach official
// trailers to content records. YouTube bills searches at 100 quota units of
// a 10000/day budget, so every search goes through the weighted bucket.
package youtube

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
const Provider = "youtube"

// SearchCost is the quota-unit weight of one search call.
const SearchCost = 100

// Client is the YouTube Data API client.
type Client struct {
	apiKey    string
	baseURL   string
	transport *providers.Transport
}

// NewClient creates a new YouTube API client.
func NewClient(apiKey, baseURL string, transport *providers.Transport) *Client {
	return &Client{
		apiKey:    apiKey,
		baseURL:   strings.TrimRight(baseURL, "/"),
		transport: transport,
	}
}

// ---- YouTube Response Types ----

type searchResponse struct {
	Items []searchItem `json:"items"`
}

type searchItem struct {
	ID struct {
		VideoID string `json:"videoId"`
	} `json:"id"`
	Snippet struct {
		Title        string `json:"title"`
		ChannelTitle string `json:"channelTitle"`
	} `json:"snippet"`
}

type videosResponse struct {
	Items []struct {
		ID         string `json:"id"`
		Statistics struct {
			ViewCount string `json:"viewCount"`
		} `json:"statistics"`
	} `json:"items"`
}

// ---- Client Methods ----

// Search returns candidate videos for a free-text query.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]models.Video, error) {
	if maxResults <= 0 {
		maxResults = 5
	}
	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("part", "snippet")
	params.Set("q", query)
	params.Set("type", "video")
	params.Set("order", "relevance")
	params.Set("maxResults", strconv.Itoa(maxResults))
	u := fmt.Sprintf("%s/search?%s", c.baseURL, params.Encode())

	slog.Debug("youtube search", "query", query)
	var resp searchResponse
	if err := c.transport.GetJSON(ctx, u, SearchCost, &resp); err != nil {
		return nil, err
	}

	videos := make([]models.Video, 0, len(resp.Items))
	for _, item := range resp.Items {
		videos = append(videos, models.Video{
			ID:      item.ID.VideoID,
			Title:   item.Snippet.Title,
			Channel: item.Snippet.ChannelTitle,
		})
	}
	return videos, nil
}

// FindTrailer searches for an official trailer and returns its watch URL.
// Among results whose title mentions "trailer" or "official" the most-viewed
// one wins; with no keyword match the first search result is used. The
// statistics lookup only costs 1 unit, so it rides along with every search.
func (c *Client) FindTrailer(ctx context.Context, title string, mt models.MediaType) (string, error) {
	query := fmt.Sprintf("%s %s trailer official", title, mt)
	videos, err := c.Search(ctx, query, 5)
	if err != nil {
		return "", err
	}
	if len(videos) == 0 {
		return "", fmt.Errorf("youtube: no trailer for %q: %w", title, providers.ErrNotFound)
	}

	ids := make([]string, 0, len(videos))
	for _, v := range videos {
		ids = append(ids, v.ID)
	}
	if views, err := c.VideoDetails(ctx, ids); err == nil {
		for i := range videos {
			videos[i].ViewCount = views[videos[i].ID]
		}
	} else {
		slog.Debug("video statistics unavailable, keeping relevance order", "error", err)
	}

	best := -1
	for i, v := range videos {
		lower := strings.ToLower(v.Title)
		if !strings.Contains(lower, "trailer") && !strings.Contains(lower, "official") {
			continue
		}
		if best < 0 || v.ViewCount > videos[best].ViewCount {
			best = i
		}
	}
	if best < 0 {
		best = 0
	}
	return watchURL(videos[best].ID), nil
}

// VideoDetails fetches view statistics for the given video ids. Listing
// videos costs 1 unit, unlike searches.
func (c *Client) VideoDetails(ctx context.Context, ids []string) (map[string]int64, error) {
	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("part", "statistics")
	params.Set("id", strings.Join(ids, ","))
	u := fmt.Sprintf("%s/videos?%s", c.baseURL, params.Encode())

	slog.Debug("youtube video details", "count", len(ids))
	var resp videosResponse
	if err := c.transport.GetJSON(ctx, u, 1, &resp); err != nil {
		return nil, err
	}

	views := make(map[string]int64, len(resp.Items))
	for _, item := range resp.Items {
		if n, err := strconv.ParseInt(item.Statistics.ViewCount, 10, 64); err == nil {
			views[item.ID] = n
		}
	}
	return views, nil
}

func watchURL(id string) string {
	return "https://www.youtube.com/watch?v=" + id
}
