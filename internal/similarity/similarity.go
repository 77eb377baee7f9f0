// Package similarity computes user-user and content-content similarity
// signals for the recommendation engine. All computation is in-process and
// non-blocking.
package similarity

import (
	"math"
	"sort"

	"movie-recommender/internal/models"
)

// Feature namespaces keep genre and actor dimensions from colliding when
// user weight maps are merged into one sparse vector.
const (
	nsGenre       = "genre:"
	nsActor       = "actor:"
	nsDirector    = "director:"
	nsContentType = "type:"
)

// FeatureWeights controls how much each categorical feature set contributes
// to content similarity.
type FeatureWeights struct {
	Genres    float64
	Cast      float64
	Directors float64
	Keywords  float64
}

// DefaultFeatureWeights favors genre overlap, then cast, directors, keywords.
func DefaultFeatureWeights() FeatureWeights {
	return FeatureWeights{Genres: 0.40, Cast: 0.25, Directors: 0.20, Keywords: 0.15}
}

// NeighborParams controls neighbor selection for collaborative filtering.
type NeighborParams struct {
	TopK   int
	MinSim float64
}

// DefaultNeighborParams returns the default selection parameters.
func DefaultNeighborParams() NeighborParams {
	return NeighborParams{TopK: 50, MinSim: 0.3}
}

// Neighbor is a user selected by similarity for collaborative filtering.
type Neighbor struct {
	Profile    *models.UserProfile
	Similarity float64
}

// Engine computes similarities with configured weights and parameters.
type Engine struct {
	features  FeatureWeights
	neighbors NeighborParams
}

// NewEngine creates an Engine with the given configuration.
func NewEngine(features FeatureWeights, neighbors NeighborParams) *Engine {
	if neighbors.TopK <= 0 {
		neighbors.TopK = DefaultNeighborParams().TopK
	}
	return &Engine{features: features, neighbors: neighbors}
}

// userVector merges a profile's weight maps into one sparse vector with
// namespaced dimensions.
func userVector(p *models.UserProfile) map[string]float64 {
	v := make(map[string]float64,
		len(p.GenreWeights)+len(p.ActorWeights)+len(p.DirectorWeights)+len(p.ContentTypeWeights))
	for k, w := range p.GenreWeights {
		v[nsGenre+k] = w
	}
	for k, w := range p.ActorWeights {
		v[nsActor+k] = w
	}
	for k, w := range p.DirectorWeights {
		v[nsDirector+k] = w
	}
	for k, w := range p.ContentTypeWeights {
		v[nsContentType+k] = w
	}
	return v
}

// UserSimilarity returns the cosine similarity of the two users' sparse
// preference vectors, in [-1,1]. Missing dimensions are zero. Identical
// vectors yield exactly 1.
func (e *Engine) UserSimilarity(a, b *models.UserProfile) float64 {
	va, vb := userVector(a), userVector(b)

	var dot, na, nb float64
	for k, x := range va {
		y := vb[k]
		dot += x * y
		na += x * x
	}
	for _, y := range vb {
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	if dot == na && na == nb {
		// Identical vectors: avoid sqrt rounding away from exact 1.
		return 1
	}

	cos := dot / (math.Sqrt(na) * math.Sqrt(nb))
	if cos > 1 {
		return 1
	}
	if cos < -1 {
		return -1
	}
	return cos
}

// jaccard returns |x∩y| / |x∪y| for two string sets. Returns -1 when both
// sets are empty so callers can skip the feature.
func jaccard(x, y []string) float64 {
	if len(x) == 0 && len(y) == 0 {
		return -1
	}
	set := make(map[string]bool, len(x))
	for _, s := range x {
		set[s] = true
	}
	inter := 0
	seen := make(map[string]bool, len(y))
	for _, s := range y {
		if seen[s] {
			continue
		}
		seen[s] = true
		if set[s] {
			inter++
		}
	}
	union := len(set) + len(seen) - inter
	if union == 0 {
		return -1
	}
	return float64(inter) / float64(union)
}

// ContentSimilarity returns the weighted Jaccard overlap of the two items'
// categorical feature sets, in [0,1]. Features empty on both sides are
// skipped and their weight redistributed. Self-similarity is exactly 1.
func (e *Engine) ContentSimilarity(x, y *models.ContentItem) float64 {
	if x.ID == y.ID {
		return 1
	}

	type feature struct {
		weight float64
		a, b   []string
	}
	features := []feature{
		{e.features.Genres, x.Genres, y.Genres},
		{e.features.Cast, x.Cast, y.Cast},
		{e.features.Directors, x.Directors, y.Directors},
		{e.features.Keywords, x.Keywords, y.Keywords},
	}

	var num, den float64
	for _, f := range features {
		j := jaccard(f.a, f.b)
		if j < 0 {
			continue
		}
		num += f.weight * j
		den += f.weight
	}
	if den == 0 {
		return 0
	}
	sim := num / den
	if sim > 1 {
		return 1
	}
	return sim
}

// SelectNeighbors returns the top-K candidates by similarity to target,
// filtered to similarity >= MinSim. Ties are broken by higher total
// interaction count: more data makes a more trustworthy neighbor.
func (e *Engine) SelectNeighbors(target *models.UserProfile, candidates []*models.UserProfile) []Neighbor {
	neighbors := make([]Neighbor, 0, len(candidates))
	for _, c := range candidates {
		if c.UserID == target.UserID {
			continue
		}
		sim := e.UserSimilarity(target, c)
		if sim < e.neighbors.MinSim {
			continue
		}
		neighbors = append(neighbors, Neighbor{Profile: c, Similarity: sim})
	}

	sort.Slice(neighbors, func(i, j int) bool {
		if neighbors[i].Similarity != neighbors[j].Similarity {
			return neighbors[i].Similarity > neighbors[j].Similarity
		}
		return len(neighbors[i].Profile.InteractionHistory) > len(neighbors[j].Profile.InteractionHistory)
	})

	if len(neighbors) > e.neighbors.TopK {
		neighbors = neighbors[:e.neighbors.TopK]
	}
	return neighbors
}
