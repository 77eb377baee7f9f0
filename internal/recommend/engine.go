// Package recommend blends collaborative, content-based, popularity and
// diversity signals into ranked recommendations. Candidate gathering runs
// concurrently under the request deadline; strategies that fail or return
// nothing are dropped and their blend weight redistributed.
package recommend

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"movie-recommender/internal/models"
	"movie-recommender/internal/profile"
	"movie-recommender/internal/similarity"
)

// Catalog is the slice of the content adapter the engine consumes.
type Catalog interface {
	ByID(ctx context.Context, id string) (*models.ContentItem, error)
	Trending(ctx context.Context, window string) ([]models.ContentItem, error)
	Popular(ctx context.Context, mt models.MediaType) ([]models.ContentItem, error)
	DiscoverByGenres(ctx context.Context, mt models.MediaType, genres []string, minVotes int) ([]models.ContentItem, error)
	Similar(ctx context.Context, id string) ([]models.ContentItem, error)
}

// Reason strings surfaced with each recommendation.
const (
	ReasonNeighbors = "liked by users with similar taste"
	ReasonSimilar   = "similar to titles you enjoyed"
	ReasonTrending  = "trending now"
	ReasonDiversity = "something outside your usual genres"
)

// Strategy indices into candidate score vectors.
const (
	stratCollaborative = iota
	stratContent
	stratPopularity
	stratDiversity
	stratCount
)

var reasonByStrategy = [stratCount]string{
	ReasonNeighbors, ReasonSimilar, ReasonTrending, ReasonDiversity,
}

// actionAffinity maps an interaction to how strongly it signals liking.
var actionAffinity = map[models.InteractionAction]float64{
	models.ActionFavorite:     1.0,
	models.ActionClickTrailer: 0.7,
	models.ActionClickSimilar: 0.6,
	models.ActionView:         0.5,
	models.ActionSearch:       0.2,
}

// Options adjusts a single Recommend call.
type Options struct {
	Limit            int
	ExcludeFavorites bool
}

// Engine produces recommendations for users.
type Engine struct {
	catalog  Catalog
	profiles profile.Store
	sim      *similarity.Engine
	cfg      Config
}

// NewEngine creates an Engine.
func NewEngine(catalog Catalog, profiles profile.Store, sim *similarity.Engine, cfg Config) *Engine {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = DefaultConfig().DefaultLimit
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultConfig().RequestTimeout
	}
	return &Engine{catalog: catalog, profiles: profiles, sim: sim, cfg: cfg}
}

// candidate accumulates one content item's per-strategy scores, each in [0,1].
type candidate struct {
	item    models.ContentItem
	scores  [stratCount]float64
	outside bool // no overlap with the user's top-2 genres
}

type scored struct {
	item  models.ContentItem
	score float64
}

// Recommend returns up to opts.Limit ranked recommendations for the user.
// Users without history, and users whose profile cannot be loaded, get the
// cold-start ranking instead of an error.
func (e *Engine) Recommend(ctx context.Context, userID string, opts Options) ([]models.Recommendation, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = e.cfg.DefaultLimit
	}
	ctx, cancel := context.WithTimeout(ctx, e.cfg.RequestTimeout)
	defer cancel()

	p, err := e.profiles.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, profile.ErrNotFound) {
			slog.Warn("profile load failed, serving cold start", "user_id", userID, "error", err)
		}
		return e.coldStart(ctx, limit)
	}
	if len(p.InteractionHistory) == 0 {
		return e.coldStart(ctx, limit)
	}

	var (
		collab    []scored
		similar   []scored
		popular   []scored
		different []scored
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		collab = e.collaborative(gctx, p)
		return nil
	})
	g.Go(func() error {
		similar = e.contentBased(gctx, p)
		return nil
	})
	g.Go(func() error {
		popular = e.trendingCandidates(gctx)
		return nil
	})
	g.Go(func() error {
		different = e.diversityCandidates(gctx, p)
		return nil
	})
	g.Wait()

	byStrategy := [stratCount][]scored{collab, similar, popular, different}
	cands := e.blend(p, opts, byStrategy)
	if len(cands) == 0 {
		return e.coldStart(ctx, limit)
	}

	weights := e.activeWeights(byStrategy)
	ranked := rankCandidates(cands, weights)
	slots := int(float64(limit) * e.cfg.DiversityFraction)
	ranked = enforceDiversity(ranked, limit, slots, weights)

	out := make([]models.Recommendation, 0, len(ranked))
	for _, c := range ranked {
		out = append(out, models.Recommendation{
			Content: c.item,
			Score:   blended(c, weights),
			Reason:  reason(c, weights),
		})
	}
	return out, nil
}

// coldStart ranks trending content by canonical score, then popularity.
func (e *Engine) coldStart(ctx context.Context, limit int) ([]models.Recommendation, error) {
	items, err := e.catalog.Trending(ctx, "day")
	if err != nil {
		return nil, err
	}
	ranked := make([]models.ContentItem, len(items))
	copy(ranked, items)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.HasScore != b.HasScore {
			return a.HasScore
		}
		if a.CanonicalScore != b.CanonicalScore {
			return a.CanonicalScore > b.CanonicalScore
		}
		return a.Popularity > b.Popularity
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	out := make([]models.Recommendation, 0, len(ranked))
	for _, item := range ranked {
		out = append(out, models.Recommendation{
			Content: item,
			Score:   item.CanonicalScore / 10,
			Reason:  ReasonTrending,
		})
	}
	return out, nil
}

// collaborative predicts scores from neighbors' interactions: for each
// content id, the similarity-weighted mean of the neighbors' affinities.
func (e *Engine) collaborative(ctx context.Context, p *models.UserProfile) []scored {
	pool, err := e.profiles.All(ctx)
	if err != nil {
		slog.Warn("neighbor pool unavailable, skipping collaborative signal", "error", err)
		return nil
	}
	neighbors := e.sim.SelectNeighbors(p, pool)
	if len(neighbors) == 0 {
		return nil
	}

	num := map[string]float64{}
	den := map[string]float64{}
	for _, n := range neighbors {
		for id, aff := range profileAffinities(n.Profile) {
			num[id] += n.Similarity * aff
			den[id] += n.Similarity
		}
	}

	predicted := make([]scored, 0, len(num))
	for id, v := range num {
		predicted = append(predicted, scored{
			item:  models.ContentItem{ID: id},
			score: v / den[id],
		})
	}
	sort.Slice(predicted, func(i, j int) bool {
		if predicted[i].score != predicted[j].score {
			return predicted[i].score > predicted[j].score
		}
		return predicted[i].item.ID < predicted[j].item.ID
	})
	if len(predicted) > e.cfg.CandidateFetchCap {
		predicted = predicted[:e.cfg.CandidateFetchCap]
	}

	// Resolve candidate records; failures drop the candidate only.
	out := predicted[:0]
	for _, c := range predicted {
		item, err := e.catalog.ByID(ctx, c.item.ID)
		if err != nil {
			slog.Debug("dropping unresolvable candidate", "content_id", c.item.ID, "error", err)
			continue
		}
		c.item = *item
		out = append(out, c)
	}
	return out
}

// profileAffinities collapses a profile's interactions to one affinity per
// content id, keeping the strongest signal.
func profileAffinities(p *models.UserProfile) map[string]float64 {
	aff := make(map[string]float64, len(p.InteractionHistory)+len(p.Favorites))
	for _, ev := range p.InteractionHistory {
		if a := actionAffinity[ev.Action]; a > aff[ev.ContentID] {
			aff[ev.ContentID] = a
		}
	}
	for _, id := range p.Favorites {
		aff[id] = actionAffinity[models.ActionFavorite]
	}
	return aff
}

// contentBased scores candidates by similarity to the items the user liked,
// boosted by the user's genre affinity.
func (e *Engine) contentBased(ctx context.Context, p *models.UserProfile) []scored {
	seeds := e.likedItems(p)
	if len(seeds) == 0 {
		return nil
	}

	best := map[string]scored{}
	for _, seedID := range seeds {
		seed, err := e.catalog.ByID(ctx, seedID)
		if err != nil {
			slog.Debug("skipping unresolvable seed", "content_id", seedID, "error", err)
			continue
		}
		related, err := e.catalog.Similar(ctx, seedID)
		if err != nil {
			slog.Debug("similar lookup failed for seed", "content_id", seedID, "error", err)
			continue
		}
		for _, cand := range related {
			sim := e.sim.ContentSimilarity(seed, &cand)
			score := 0.7*sim + 0.3*genreAffinity(p, cand.Genres)
			if prev, ok := best[cand.ID]; !ok || score > prev.score {
				best[cand.ID] = scored{item: cand, score: score}
			}
		}
	}

	out := make([]scored, 0, len(best))
	for _, c := range best {
		out = append(out, c)
	}
	return out
}

// likedItems returns seed content ids: favorites first, then the strongest
// recent interactions, deduplicated and capped.
func (e *Engine) likedItems(p *models.UserProfile) []string {
	seen := map[string]bool{}
	seeds := make([]string, 0, e.cfg.LikedItemCap)
	add := func(id string) {
		if id == "" || seen[id] || len(seeds) >= e.cfg.LikedItemCap {
			return
		}
		seen[id] = true
		seeds = append(seeds, id)
	}
	for _, id := range p.Favorites {
		add(id)
	}
	// Most recent interactions first.
	for i := len(p.InteractionHistory) - 1; i >= 0; i-- {
		ev := p.InteractionHistory[i]
		if actionAffinity[ev.Action] >= actionAffinity[models.ActionView] {
			add(ev.ContentID)
		}
	}
	return seeds
}

// genreAffinity returns the share of the user's total genre weight covered
// by the given genres, in [0,1].
func genreAffinity(p *models.UserProfile, genres []string) float64 {
	var total, hit float64
	for _, w := range p.GenreWeights {
		total += w
	}
	if total == 0 {
		return 0
	}
	for _, g := range genres {
		hit += p.GenreWeights[g]
	}
	if hit > total {
		hit = total
	}
	return hit / total
}

// trendingCandidates scores the trending list by popularity, normalized to
// the window's maximum.
func (e *Engine) trendingCandidates(ctx context.Context) []scored {
	items, err := e.catalog.Trending(ctx, "day")
	if err != nil {
		slog.Warn("trending unavailable, skipping popularity signal", "error", err)
		return nil
	}
	var maxPop float64
	for _, item := range items {
		if item.Popularity > maxPop {
			maxPop = item.Popularity
		}
	}
	out := make([]scored, 0, len(items))
	for _, item := range items {
		s := 0.0
		if maxPop > 0 {
			s = item.Popularity / maxPop
		}
		out = append(out, scored{item: item, score: s})
	}
	return out
}

// diversityCandidates surfaces well-rated content outside the user's top-2
// genres: the user's lesser genres when they have any, otherwise the weekly
// trending and popular lists filtered to unfamiliar genres.
func (e *Engine) diversityCandidates(ctx context.Context, p *models.UserProfile) []scored {
	topSet := map[string]bool{}
	for _, g := range p.TopGenres(2) {
		topSet[g] = true
	}
	mt := p.PreferredMediaType()

	var pool []models.ContentItem
	if others := beyondTopGenres(p, 2, 3); len(others) > 0 {
		minVotes := e.cfg.MinVoteCountMovies
		if mt == models.MediaTV {
			minVotes = e.cfg.MinVoteCountTV
		}
		items, err := e.catalog.DiscoverByGenres(ctx, mt, others, minVotes)
		if err != nil {
			slog.Debug("genre discovery failed, falling back to trending", "error", err)
		} else {
			pool = items
		}
	}
	if len(pool) == 0 {
		week, werr := e.catalog.Trending(ctx, "week")
		popular, perr := e.catalog.Popular(ctx, mt)
		if werr != nil && perr != nil {
			slog.Warn("diversity pool unavailable, skipping diversity signal",
				"trending_error", werr, "popular_error", perr)
			return nil
		}
		pool = append(pool, week...)
		pool = append(pool, popular...)
	}

	out := make([]scored, 0, len(pool))
	for _, item := range pool {
		if overlapsGenres(item.Genres, topSet) {
			continue
		}
		s := item.Popularity / 1000
		if item.HasScore {
			s = item.CanonicalScore / 10
		}
		if s > 1 {
			s = 1
		}
		out = append(out, scored{item: item, score: s})
	}
	return out
}

// beyondTopGenres returns up to n genres ranked after the user's top `skip`.
func beyondTopGenres(p *models.UserProfile, skip, n int) []string {
	top := p.TopGenres(skip + n)
	if len(top) <= skip {
		return nil
	}
	return top[skip:]
}

func overlapsGenres(genres []string, set map[string]bool) bool {
	for _, g := range genres {
		if set[g] {
			return true
		}
	}
	return false
}

// blend merges the strategies' candidates into one map, keeping each item's
// maximum score per strategy and filtering content the user already knows.
func (e *Engine) blend(p *models.UserProfile, opts Options, byStrategy [stratCount][]scored) map[string]*candidate {
	topSet := map[string]bool{}
	for _, g := range p.TopGenres(2) {
		topSet[g] = true
	}

	cands := map[string]*candidate{}
	for strat, list := range byStrategy {
		for _, s := range list {
			id := s.item.ID
			if id == "" || p.HasSeen(id) {
				continue
			}
			if opts.ExcludeFavorites && p.IsFavorite(id) {
				continue
			}
			c, ok := cands[id]
			if !ok {
				c = &candidate{item: s.item, outside: !overlapsGenres(s.item.Genres, topSet)}
				cands[id] = c
			}
			if s.score > c.scores[strat] {
				c.scores[strat] = s.score
			}
			// Prefer the richer record when strategies disagree.
			if len(s.item.Genres) > len(c.item.Genres) {
				c.item = s.item
				c.outside = !overlapsGenres(s.item.Genres, topSet)
			}
		}
	}
	return cands
}

// activeWeights renormalizes the blend weights over the strategies that
// produced candidates, so a missing signal never drags scores toward zero.
func (e *Engine) activeWeights(byStrategy [stratCount][]scored) [stratCount]float64 {
	base := [stratCount]float64{
		e.cfg.CollaborativeWeight,
		e.cfg.ContentWeight,
		e.cfg.PopularityWeight,
		e.cfg.DiversityWeight,
	}
	var sum float64
	for i, list := range byStrategy {
		if len(list) == 0 {
			base[i] = 0
		}
		sum += base[i]
	}
	if sum == 0 {
		return base
	}
	for i := range base {
		base[i] /= sum
	}
	return base
}

func blended(c *candidate, weights [stratCount]float64) float64 {
	var s float64
	for i, w := range weights {
		s += w * c.scores[i]
	}
	return s
}

// reason names the strategy contributing most to the candidate's score.
func reason(c *candidate, weights [stratCount]float64) string {
	best := 0
	for i := 1; i < stratCount; i++ {
		if weights[i]*c.scores[i] > weights[best]*c.scores[best] {
			best = i
		}
	}
	return reasonByStrategy[best]
}

// rankCandidates orders candidates by blended score, breaking ties by
// canonical score, then id for determinism.
func rankCandidates(cands map[string]*candidate, weights [stratCount]float64) []*candidate {
	ranked := make([]*candidate, 0, len(cands))
	for _, c := range cands {
		ranked = append(ranked, c)
	}
	sort.Slice(ranked, func(i, j int) bool {
		a, b := blended(ranked[i], weights), blended(ranked[j], weights)
		if a != b {
			return a > b
		}
		if ranked[i].item.CanonicalScore != ranked[j].item.CanonicalScore {
			return ranked[i].item.CanonicalScore > ranked[j].item.CanonicalScore
		}
		return ranked[i].item.ID < ranked[j].item.ID
	})
	return ranked
}

// enforceDiversity guarantees `slots` of the top `limit` results sit outside
// the user's top-2 genres, promoting the best outside candidates over the
// lowest-ranked inside ones when needed.
func enforceDiversity(ranked []*candidate, limit, slots int, weights [stratCount]float64) []*candidate {
	if len(ranked) > limit {
		extras := ranked[limit:]
		ranked = ranked[:limit]

		have := 0
		for _, c := range ranked {
			if c.outside {
				have++
			}
		}
		for i := len(ranked) - 1; i >= 0 && have < slots; i-- {
			if ranked[i].outside {
				continue
			}
			promoted := false
			for j, c := range extras {
				if c == nil || !c.outside {
					continue
				}
				ranked[i] = c
				extras[j] = nil
				have++
				promoted = true
				break
			}
			if !promoted {
				break
			}
		}
		// Substitutions land at the bottom; restore score order.
		sort.SliceStable(ranked, func(i, j int) bool {
			return blended(ranked[i], weights) > blended(ranked[j], weights)
		})
	}
	return ranked
}
