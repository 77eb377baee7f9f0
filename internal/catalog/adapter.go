// Package catalog is the content source adapter. It fronts the metadata,
// ratings and video providers with the cache manager, normalizes their
// divergent payloads into canonical ContentItem records, and merges
// fragments from different providers onto one record.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"movie-recommender/internal/cache"
	"movie-recommender/internal/models"
	"movie-recommender/internal/providers"
	"movie-recommender/internal/providers/omdb"
	"movie-recommender/internal/providers/tmdb"
	"movie-recommender/internal/ratings"
)

const (
	searchCacheTTL   = 15 * time.Minute
	detailCacheTTL   = 30 * time.Minute
	trendingCacheTTL = 30 * time.Minute
	trailerCacheTTL  = 24 * time.Hour

	// titleMatchThreshold accepts a ratings fragment matched by title+year
	// when the normalized edit-distance ratio reaches this value. Tunable,
	// not load-bearing.
	titleMatchThreshold = 0.6

	maxCastLength   = 10
	posterBaseW500  = "https://image.tmdb.org/t/p/w500"
	maxSearchResult = 10
)

// MetadataSource is the metadata provider contract (TMDB-shaped).
type MetadataSource interface {
	Search(ctx context.Context, query string, mt models.MediaType) ([]tmdb.Result, error)
	Details(ctx context.Context, id int, mt models.MediaType) (*tmdb.Detail, error)
	Trending(ctx context.Context, window string) ([]tmdb.Result, error)
	Popular(ctx context.Context, mt models.MediaType) ([]tmdb.Result, error)
	Discover(ctx context.Context, mt models.MediaType, f tmdb.DiscoverFilter) ([]tmdb.Result, error)
	Similar(ctx context.Context, id int, mt models.MediaType) ([]tmdb.Result, error)
	Recommendations(ctx context.Context, id int, mt models.MediaType) ([]tmdb.Result, error)
}

// RatingsSource is the ratings provider contract (OMDB-shaped).
type RatingsSource interface {
	LookupByIMDbID(ctx context.Context, imdbID string) (*omdb.Ratings, error)
	LookupByTitle(ctx context.Context, title string, year int) (*omdb.Ratings, error)
}

// VideoSource is the trailer provider contract (YouTube-shaped).
type VideoSource interface {
	FindTrailer(ctx context.Context, title string, mt models.MediaType) (string, error)
}

// Adapter aggregates the three provider capabilities behind the cache.
type Adapter struct {
	metadata   MetadataSource
	ratingsSrc RatingsSource
	videos     VideoSource
	cache      *cache.Manager
	normalizer *ratings.Normalizer
}

// NewAdapter creates an Adapter. The ratings and video sources are optional;
// a nil source simply leaves those fragments off the records.
func NewAdapter(metadata MetadataSource, ratingsSrc RatingsSource, videos VideoSource,
	cm *cache.Manager, n *ratings.Normalizer) *Adapter {
	return &Adapter{
		metadata:   metadata,
		ratingsSrc: ratingsSrc,
		videos:     videos,
		cache:      cm,
		normalizer: n,
	}
}

// normalizeQuery canonicalizes a query for cache keying.
func normalizeQuery(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}

// Search returns canonical ids of candidates matching the query, best first.
func (a *Adapter) Search(ctx context.Context, query string, mt models.MediaType) ([]string, error) {
	key := fmt.Sprintf("tmdb:search:%s:%s", mt, normalizeQuery(query))
	v, err := a.cache.GetOrFetch(ctx, key, searchCacheTTL, func(ctx context.Context) (any, error) {
		results, err := a.metadata.Search(ctx, query, mt)
		if err != nil {
			return nil, err
		}
		if len(results) > maxSearchResult {
			results = results[:maxSearchResult]
		}
		ids := make([]string, 0, len(results))
		for _, r := range results {
			ids = append(ids, FormatID(mt, r.ID))
		}
		return ids, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}

// ByID returns the fully merged canonical record for a content id. This is
// the fetchDetails operation: metadata from TMDB, ratings merged from OMDB,
// trailer from YouTube, canonical score from the normalizer.
func (a *Adapter) ByID(ctx context.Context, id string) (*models.ContentItem, error) {
	mt, tmdbID, err := ParseID(id)
	if err != nil {
		return nil, err
	}

	key := "content:detail:" + id
	v, err := a.cache.GetOrFetch(ctx, key, detailCacheTTL, func(ctx context.Context) (any, error) {
		return a.buildItem(ctx, id, tmdbID, mt)
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.ContentItem), nil
}

// buildItem assembles one ContentItem from all providers. Only the metadata
// fragment is required; each other source failing is isolated and logged,
// never fatal to the record.
func (a *Adapter) buildItem(ctx context.Context, id string, tmdbID int, mt models.MediaType) (*models.ContentItem, error) {
	d, err := a.metadata.Details(ctx, tmdbID, mt)
	if err != nil {
		return nil, err
	}

	item := &models.ContentItem{
		ID:             id,
		MediaType:      mt,
		Title:          d.DisplayTitle(),
		Overview:       d.Overview,
		RuntimeMinutes: d.RuntimeMinutes(),
		Popularity:     d.Popularity,
		IMDbID:         d.IndustryID(),
		RatingSources:  map[models.RatingSource]models.Rating{},
	}
	if d.ReleaseDate != "" {
		item.ReleaseDate = d.ReleaseDate
	} else {
		item.ReleaseDate = d.FirstAirDate
	}
	for _, g := range d.Genres {
		item.Genres = append(item.Genres, g.Name)
	}
	for _, c := range d.Credits.Cast {
		item.Cast = append(item.Cast, c.Name)
		if len(item.Cast) == maxCastLength {
			break
		}
	}
	for _, c := range d.Credits.Crew {
		if c.Job == "Director" {
			item.Directors = append(item.Directors, c.Name)
		}
	}
	for _, k := range d.Keywords.All() {
		item.Keywords = append(item.Keywords, k.Name)
	}
	if d.PosterPath != "" {
		item.PosterURL = posterBaseW500 + d.PosterPath
	}
	if d.VoteCount > 0 {
		item.RatingSources[models.SourceCommunity] = models.Rating{
			Value:     d.VoteAverage,
			VoteCount: d.VoteCount,
		}
	}

	a.mergeRatings(ctx, item)
	a.attachTrailer(ctx, item)

	item.CanonicalScore, item.HasScore = a.normalizer.Normalize(item.RatingSources)
	return item, nil
}

// mergeRatings folds the ratings provider's fragment onto the record,
// keyed by IMDb id when available, else by fuzzy title+year match.
func (a *Adapter) mergeRatings(ctx context.Context, item *models.ContentItem) {
	if a.ratingsSrc == nil {
		return
	}

	var frag *omdb.Ratings
	var err error
	if item.IMDbID != "" {
		frag, err = a.ratingsSrc.LookupByIMDbID(ctx, item.IMDbID)
	} else {
		frag, err = a.ratingsSrc.LookupByTitle(ctx, item.Title, item.ReleaseYear())
		if err == nil && TitleSimilarity(frag.Title, item.Title) < titleMatchThreshold {
			slog.Debug("rejecting ratings fragment on weak title match",
				"want", item.Title, "got", frag.Title)
			return
		}
	}
	if err != nil {
		if !errors.Is(err, providers.ErrNotFound) {
			slog.Warn("ratings source failed, continuing without",
				"content_id", item.ID, "error", err)
		}
		return
	}

	if item.IMDbID == "" {
		item.IMDbID = frag.IMDbID
	}
	for source, r := range frag.Sources {
		item.RatingSources[source] = r
	}
}

// attachTrailer resolves a trailer URL, cached independently of the record
// because video quota is the scarcest.
func (a *Adapter) attachTrailer(ctx context.Context, item *models.ContentItem) {
	if a.videos == nil {
		return
	}
	key := "youtube:trailer:" + item.ID
	v, err := a.cache.GetOrFetch(ctx, key, trailerCacheTTL, func(ctx context.Context) (any, error) {
		return a.videos.FindTrailer(ctx, item.Title, item.MediaType)
	})
	if err != nil {
		if !errors.Is(err, providers.ErrNotFound) {
			slog.Warn("video source failed, continuing without trailer",
				"content_id", item.ID, "error", err)
		}
		return
	}
	item.TrailerURL = v.(string)
}

// Lookup resolves a free-text query to the best-matching full record.
func (a *Adapter) Lookup(ctx context.Context, mt models.MediaType, query string) (*models.ContentItem, error) {
	ids, err := a.Search(ctx, query, mt)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no results for %q: %w", query, providers.ErrNotFound)
	}
	return a.ByID(ctx, ids[0])
}

// listItem builds a lightweight record from a list-level result: no cast,
// crew or cross-provider merge, just what TMDB's list payloads carry.
func (a *Adapter) listItem(r tmdb.Result, mt models.MediaType) models.ContentItem {
	if r.MediaType != "" && models.MediaType(r.MediaType).Valid() {
		mt = models.MediaType(r.MediaType)
	}
	item := models.ContentItem{
		ID:            FormatID(mt, r.ID),
		MediaType:     mt,
		Title:         r.DisplayTitle(),
		Overview:      r.Overview,
		Genres:        GenreNames(r.GenreIDs),
		Popularity:    r.Popularity,
		RatingSources: map[models.RatingSource]models.Rating{},
	}
	if r.ReleaseDate != "" {
		item.ReleaseDate = r.ReleaseDate
	} else {
		item.ReleaseDate = r.FirstAirDate
	}
	if r.PosterPath != "" {
		item.PosterURL = posterBaseW500 + r.PosterPath
	}
	if r.VoteCount > 0 {
		item.RatingSources[models.SourceCommunity] = models.Rating{
			Value:     r.VoteAverage,
			VoteCount: r.VoteCount,
		}
	}
	item.CanonicalScore, item.HasScore = a.normalizer.Normalize(item.RatingSources)
	return item
}

func (a *Adapter) cachedList(ctx context.Context, key string, ttl time.Duration,
	fetch func(ctx context.Context) ([]tmdb.Result, []models.MediaType, error)) ([]models.ContentItem, error) {
	v, err := a.cache.GetOrFetch(ctx, key, ttl, func(ctx context.Context) (any, error) {
		results, types, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		items := make([]models.ContentItem, 0, len(results))
		for i, r := range results {
			items = append(items, a.listItem(r, types[i]))
		}
		return items, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]models.ContentItem), nil
}

func uniform(n int, mt models.MediaType) []models.MediaType {
	types := make([]models.MediaType, n)
	for i := range types {
		types[i] = mt
	}
	return types
}

// Trending returns trending content for the window ("day" or "week").
func (a *Adapter) Trending(ctx context.Context, window string) ([]models.ContentItem, error) {
	return a.cachedList(ctx, "tmdb:trending:"+window, trendingCacheTTL,
		func(ctx context.Context) ([]tmdb.Result, []models.MediaType, error) {
			results, err := a.metadata.Trending(ctx, window)
			if err != nil {
				return nil, nil, err
			}
			return results, uniform(len(results), models.MediaMovie), nil
		})
}

// Popular returns currently popular titles of the given media type.
func (a *Adapter) Popular(ctx context.Context, mt models.MediaType) ([]models.ContentItem, error) {
	return a.cachedList(ctx, fmt.Sprintf("tmdb:popular:%s", mt), trendingCacheTTL,
		func(ctx context.Context) ([]tmdb.Result, []models.MediaType, error) {
			results, err := a.metadata.Popular(ctx, mt)
			if err != nil {
				return nil, nil, err
			}
			return results, uniform(len(results), mt), nil
		})
}

// DiscoverByGenres returns well-rated titles in the given genres.
func (a *Adapter) DiscoverByGenres(ctx context.Context, mt models.MediaType, genres []string, minVotes int) ([]models.ContentItem, error) {
	ids := GenreIDs(genres)
	if len(ids) == 0 {
		return nil, nil
	}
	key := fmt.Sprintf("tmdb:discover:%s:%s:%d", mt, normalizeQuery(strings.Join(genres, ",")), minVotes)
	return a.cachedList(ctx, key, trendingCacheTTL,
		func(ctx context.Context) ([]tmdb.Result, []models.MediaType, error) {
			results, err := a.metadata.Discover(ctx, mt, tmdb.DiscoverFilter{
				GenreIDs:     ids,
				SortBy:       "vote_average.desc",
				VoteCountGTE: minVotes,
			})
			if err != nil {
				return nil, nil, err
			}
			return results, uniform(len(results), mt), nil
		})
}

// Similar returns content similar to the given id, blending the metadata
// provider's similar and recommendations endpoints.
func (a *Adapter) Similar(ctx context.Context, id string) ([]models.ContentItem, error) {
	mt, tmdbID, err := ParseID(id)
	if err != nil {
		return nil, err
	}
	return a.cachedList(ctx, "tmdb:similar:"+id, trendingCacheTTL,
		func(ctx context.Context) ([]tmdb.Result, []models.MediaType, error) {
			similar, err := a.metadata.Similar(ctx, tmdbID, mt)
			if err != nil {
				return nil, nil, err
			}
			// The recommendations endpoint often surfaces better picks;
			// failures there are isolated.
			if recs, err := a.metadata.Recommendations(ctx, tmdbID, mt); err == nil {
				similar = append(similar, recs...)
			} else {
				slog.Warn("recommendations endpoint failed", "content_id", id, "error", err)
			}

			seen := make(map[int]bool, len(similar))
			deduped := similar[:0]
			for _, r := range similar {
				if seen[r.ID] || r.ID == tmdbID {
					continue
				}
				seen[r.ID] = true
				deduped = append(deduped, r)
			}
			return deduped, uniform(len(deduped), mt), nil
		})
}
