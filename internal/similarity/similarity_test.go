package similarity

import (
	"fmt"
	"math"
	"testing"

	"movie-recommender/internal/models"
)

func newEngine() *Engine {
	return NewEngine(DefaultFeatureWeights(), DefaultNeighborParams())
}

func profileWithGenres(userID string, genres map[string]float64) *models.UserProfile {
	p := models.NewUserProfile(userID)
	p.GenreWeights = genres
	return p
}

func TestUserSelfSimilarityIsOne(t *testing.T) {
	e := newEngine()
	p := profileWithGenres("u1", map[string]float64{"Action": 3, "Drama": 1})
	p.ActorWeights["Keanu Reeves"] = 2

	if got := e.UserSimilarity(p, p); got != 1.0 {
		t.Fatalf("self similarity = %v, want exactly 1", got)
	}
}

func TestIdenticalWeightVectorsExactlyOne(t *testing.T) {
	e := newEngine()
	a := profileWithGenres("a", map[string]float64{"Action": 2.5, "Comedy": 1.5, "Horror": 0.5})
	b := profileWithGenres("b", map[string]float64{"Action": 2.5, "Comedy": 1.5, "Horror": 0.5})

	if got := e.UserSimilarity(a, b); got != 1.0 {
		t.Fatalf("identical vectors similarity = %v, want exactly 1", got)
	}
}

func TestOrthogonalUsersZero(t *testing.T) {
	e := newEngine()
	a := profileWithGenres("a", map[string]float64{"Action": 5})
	b := profileWithGenres("b", map[string]float64{"Romance": 5})

	if got := e.UserSimilarity(a, b); got != 0 {
		t.Fatalf("disjoint users similarity = %v, want 0", got)
	}
}

func TestEmptyProfileZero(t *testing.T) {
	e := newEngine()
	a := models.NewUserProfile("a")
	b := profileWithGenres("b", map[string]float64{"Action": 5})

	if got := e.UserSimilarity(a, b); got != 0 {
		t.Fatalf("empty profile similarity = %v, want 0", got)
	}
}

func TestUserSimilarityBounded(t *testing.T) {
	e := newEngine()
	a := profileWithGenres("a", map[string]float64{"Action": 100, "Drama": 0.001})
	b := profileWithGenres("b", map[string]float64{"Action": 0.001, "Drama": 100, "Comedy": 42})
	got := e.UserSimilarity(a, b)
	if got < -1 || got > 1 {
		t.Fatalf("similarity %v outside [-1,1]", got)
	}
}

func item(id string, genres, cast, directors, keywords []string) *models.ContentItem {
	return &models.ContentItem{
		ID: id, Genres: genres, Cast: cast, Directors: directors, Keywords: keywords,
	}
}

func TestContentSelfSimilarityIsOne(t *testing.T) {
	e := newEngine()
	x := item("tmdb:movie:603", []string{"Action", "Sci-Fi"}, []string{"Keanu Reeves"}, []string{"Wachowski"}, []string{"dystopia"})
	if got := e.ContentSimilarity(x, x); got != 1.0 {
		t.Fatalf("self similarity = %v, want exactly 1", got)
	}
}

func TestContentSimilarityDisjointZero(t *testing.T) {
	e := newEngine()
	x := item("a", []string{"Action"}, []string{"A"}, []string{"B"}, []string{"war"})
	y := item("b", []string{"Romance"}, []string{"C"}, []string{"D"}, []string{"love"})
	if got := e.ContentSimilarity(x, y); got != 0 {
		t.Fatalf("disjoint items similarity = %v, want 0", got)
	}
}

func TestContentSimilarityWeightedBlend(t *testing.T) {
	e := newEngine()
	// Same genres, half-overlapping cast, no directors/keywords on either
	// side (weight redistributed over genres and cast).
	x := item("a", []string{"Action", "Thriller"}, []string{"A", "B"}, nil, nil)
	y := item("b", []string{"Action", "Thriller"}, []string{"B", "C"}, nil, nil)

	// genres jaccard = 1, cast jaccard = 1/3; weights 0.40 and 0.25.
	want := (0.40*1 + 0.25*(1.0/3)) / 0.65
	got := e.ContentSimilarity(x, y)
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("similarity = %.6f, want %.6f", got, want)
	}
}

func TestContentSimilarityEmptyFeatureSkipped(t *testing.T) {
	e := newEngine()
	x := item("a", []string{"Drama"}, nil, nil, nil)
	y := item("b", []string{"Drama"}, nil, nil, nil)
	if got := e.ContentSimilarity(x, y); got != 1.0 {
		t.Fatalf("genre-only identical items = %v, want 1", got)
	}
}

func TestSelectNeighborsFiltersAndRanks(t *testing.T) {
	e := newEngine()
	target := profileWithGenres("me", map[string]float64{"Action": 4, "Drama": 2})

	alike := profileWithGenres("alike", map[string]float64{"Action": 4, "Drama": 2})
	close1 := profileWithGenres("close", map[string]float64{"Action": 4, "Drama": 1})
	far := profileWithGenres("far", map[string]float64{"Romance": 9})

	got := e.SelectNeighbors(target, []*models.UserProfile{far, close1, alike})
	if len(got) != 2 {
		t.Fatalf("expected 2 neighbors, got %d", len(got))
	}
	if got[0].Profile.UserID != "alike" {
		t.Fatalf("best neighbor = %s", got[0].Profile.UserID)
	}
	for _, n := range got {
		if n.Similarity < 0.3 {
			t.Fatalf("neighbor %s below min similarity: %v", n.Profile.UserID, n.Similarity)
		}
	}
}

func TestSelectNeighborsTieBrokenByInteractions(t *testing.T) {
	e := newEngine()
	target := profileWithGenres("me", map[string]float64{"Action": 1})

	quiet := profileWithGenres("quiet", map[string]float64{"Action": 1})
	busy := profileWithGenres("busy", map[string]float64{"Action": 1})
	busy.InteractionHistory = []models.InteractionEvent{
		{ID: "e1", ContentID: "c1", Action: models.ActionView},
		{ID: "e2", ContentID: "c2", Action: models.ActionView},
	}

	got := e.SelectNeighbors(target, []*models.UserProfile{quiet, busy})
	if len(got) != 2 || got[0].Profile.UserID != "busy" {
		t.Fatalf("expected busy neighbor first, got %+v", got)
	}
}

func TestSelectNeighborsCapsAtTopK(t *testing.T) {
	e := NewEngine(DefaultFeatureWeights(), NeighborParams{TopK: 3, MinSim: 0.3})
	target := profileWithGenres("me", map[string]float64{"Action": 1})

	var candidates []*models.UserProfile
	for i := 0; i < 10; i++ {
		candidates = append(candidates,
			profileWithGenres(fmt.Sprintf("u%d", i), map[string]float64{"Action": 1}))
	}
	if got := e.SelectNeighbors(target, candidates); len(got) != 3 {
		t.Fatalf("expected 3 neighbors, got %d", len(got))
	}
}

func TestSelectNeighborsExcludesSelf(t *testing.T) {
	e := newEngine()
	target := profileWithGenres("me", map[string]float64{"Action": 1})
	for _, n := range e.SelectNeighbors(target, []*models.UserProfile{target}) {
		if n.Profile.UserID == "me" {
			t.Fatal("target selected as its own neighbor")
		}
	}
}
