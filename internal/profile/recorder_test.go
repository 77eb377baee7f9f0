package profile

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"movie-recommender/internal/models"
)

type fakeResolver struct {
	items map[string]*models.ContentItem
}

func (f *fakeResolver) ByID(ctx context.Context, id string) (*models.ContentItem, error) {
	if item, ok := f.items[id]; ok {
		return item, nil
	}
	return nil, ErrNotFound
}

func matrixResolver() *fakeResolver {
	return &fakeResolver{items: map[string]*models.ContentItem{
		"tmdb:movie:603": {
			ID:        "tmdb:movie:603",
			MediaType: models.MediaMovie,
			Title:     "The Matrix",
			Genres:    []string{"Action", "Science Fiction"},
			Cast:      []string{"Keanu Reeves", "Laurence Fishburne"},
			Directors: []string{"Lana Wachowski", "Lilly Wachowski"},
		},
	}}
}

func waitForProfile(t *testing.T, store Store, userID string, check func(*models.UserProfile) bool) *models.UserProfile {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		p, err := store.Get(context.Background(), userID)
		if err == nil && check(p) {
			return p
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("profile did not reach expected state")
	return nil
}

func TestRecordReinforcesWeights(t *testing.T) {
	store := NewMemoryStore()
	rec := NewRecorder(store, nil, matrixResolver())
	defer rec.Close()

	err := rec.Record("u1", models.InteractionEvent{
		ContentID: "tmdb:movie:603",
		MediaType: models.MediaMovie,
		Action:    models.ActionView,
	})
	if err != nil {
		t.Fatal(err)
	}

	p := waitForProfile(t, store, "u1", func(p *models.UserProfile) bool {
		return p.Stats.TotalInteractions == 1
	})
	if p.GenreWeights["Action"] != 1 || p.GenreWeights["Science Fiction"] != 1 {
		t.Fatalf("genre weights not reinforced: %+v", p.GenreWeights)
	}
	if p.ActorWeights["Keanu Reeves"] != 1 {
		t.Fatalf("actor weights not reinforced: %+v", p.ActorWeights)
	}
	if p.DirectorWeights["Lana Wachowski"] != 1 {
		t.Fatalf("director weights not reinforced: %+v", p.DirectorWeights)
	}
	if p.ContentTypeWeights["movie"] != 1 {
		t.Fatalf("content type weight not reinforced: %+v", p.ContentTypeWeights)
	}
}

func TestRecordSameEventIDAppliedOnce(t *testing.T) {
	store := NewMemoryStore()
	rec := NewRecorder(store, nil, matrixResolver())
	defer rec.Close()

	ev := models.InteractionEvent{
		ID:        "event-1",
		ContentID: "tmdb:movie:603",
		MediaType: models.MediaMovie,
		Action:    models.ActionView,
	}
	for i := 0; i < 5; i++ {
		if err := rec.Record("u1", ev); err != nil {
			t.Fatal(err)
		}
	}

	p := waitForProfile(t, store, "u1", func(p *models.UserProfile) bool {
		return p.Stats.TotalInteractions >= 1
	})
	// Give duplicate deliveries a chance to (incorrectly) apply.
	time.Sleep(50 * time.Millisecond)
	p, _ = store.Get(context.Background(), "u1")
	if p.Stats.TotalInteractions != 1 {
		t.Fatalf("duplicate event applied: %d interactions", p.Stats.TotalInteractions)
	}
	if len(p.InteractionHistory) != 1 {
		t.Fatalf("history length = %d", len(p.InteractionHistory))
	}
}

func TestFavoriteActionAddsToFavorites(t *testing.T) {
	store := NewMemoryStore()
	rec := NewRecorder(store, nil, matrixResolver())
	defer rec.Close()

	_ = rec.Record("u1", models.InteractionEvent{
		ContentID: "tmdb:movie:603",
		MediaType: models.MediaMovie,
		Action:    models.ActionFavorite,
	})

	p := waitForProfile(t, store, "u1", func(p *models.UserProfile) bool {
		return len(p.Favorites) == 1
	})
	if !p.IsFavorite("tmdb:movie:603") {
		t.Fatalf("favorites = %v", p.Favorites)
	}
}

func TestRecordValidation(t *testing.T) {
	rec := NewRecorder(NewMemoryStore(), nil, nil)
	defer rec.Close()

	if err := rec.Record("", models.InteractionEvent{ContentID: "c", Action: models.ActionView}); err == nil {
		t.Fatal("expected error for missing user id")
	}
	if err := rec.Record("u", models.InteractionEvent{ContentID: "c", Action: "party"}); err == nil {
		t.Fatal("expected error for unknown action")
	}
	if err := rec.Record("u", models.InteractionEvent{Action: models.ActionView}); err == nil {
		t.Fatal("expected error for missing content id")
	}
}

func TestHistoryTrimmedToCap(t *testing.T) {
	store := NewMemoryStore()
	rec := NewRecorder(store, nil, nil)
	defer rec.Close()

	for i := 0; i < maxInteractionHistory+20; i++ {
		_ = rec.Record("u1", models.InteractionEvent{
			ContentID: "tmdb:movie:603",
			MediaType: models.MediaMovie,
			Action:    models.ActionView,
		})
	}
	rec.Close()

	p, err := store.Get(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(p.InteractionHistory) != maxInteractionHistory {
		t.Fatalf("history length = %d, want %d", len(p.InteractionHistory), maxInteractionHistory)
	}
	if p.Stats.TotalInteractions != maxInteractionHistory+20 {
		t.Fatalf("stats lost events: %d", p.Stats.TotalInteractions)
	}
}

func TestRecordSearchTracksHistory(t *testing.T) {
	store := NewMemoryStore()
	rec := NewRecorder(store, nil, nil)
	defer rec.Close()
	ctx := context.Background()

	for i := 0; i < maxSearchHistory+10; i++ {
		if err := rec.RecordSearch(ctx, "u1", "the matrix", models.MediaMovie); err != nil {
			t.Fatal(err)
		}
	}

	p, err := store.Get(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(p.SearchHistory) != maxSearchHistory {
		t.Fatalf("search history length = %d", len(p.SearchHistory))
	}
	if p.Stats.TotalSearches != maxSearchHistory+10 {
		t.Fatalf("search count = %d", p.Stats.TotalSearches)
	}
}

type fakeEventLog struct {
	mu   sync.Mutex
	seen map[string]bool
}

func newFakeEventLog() *fakeEventLog {
	return &fakeEventLog{seen: map[string]bool{}}
}

func (f *fakeEventLog) Append(ctx context.Context, userID string, ev models.InteractionEvent) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.seen[ev.ID] {
		return false, nil
	}
	f.seen[ev.ID] = true
	return true, nil
}

func (f *fakeEventLog) History(ctx context.Context, userID string, limit int) ([]models.InteractionEvent, error) {
	return nil, nil
}

func (f *fakeEventLog) PruneOlderThan(ctx context.Context, retention time.Duration) (int64, error) {
	return 0, nil
}

func TestSearchesDoNotOverwriteConcurrentInteractions(t *testing.T) {
	store := NewMemoryStore()
	rec := NewRecorder(store, nil, nil)

	const n = 50
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			_ = rec.Record("u1", models.InteractionEvent{
				ContentID: fmt.Sprintf("tmdb:movie:%d", i),
				MediaType: models.MediaMovie,
				Action:    models.ActionView,
			})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			_ = rec.RecordSearch(context.Background(), "u1", "heat", models.MediaMovie)
		}
	}()
	wg.Wait()
	rec.Close()

	p, err := store.Get(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	if p.Stats.TotalInteractions != n {
		t.Fatalf("interactions lost: got %d, want %d", p.Stats.TotalInteractions, n)
	}
	if p.Stats.TotalSearches != n {
		t.Fatalf("searches lost: got %d, want %d", p.Stats.TotalSearches, n)
	}
}

func TestCloseConcurrentWithRecord(t *testing.T) {
	rec := NewRecorder(NewMemoryStore(), nil, nil)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				_ = rec.Record("u1", models.InteractionEvent{
					ContentID: "tmdb:movie:603",
					MediaType: models.MediaMovie,
					Action:    models.ActionView,
				})
			}
		}()
	}
	rec.Close()
	wg.Wait()

	if err := rec.Record("u1", models.InteractionEvent{
		ContentID: "tmdb:movie:603",
		MediaType: models.MediaMovie,
		Action:    models.ActionView,
	}); err == nil {
		t.Fatal("Record after Close should fail")
	}
}

func TestDurableLogDedupsReplayAfterHistoryTrim(t *testing.T) {
	store := NewMemoryStore()
	log := newFakeEventLog()
	rec := NewRecorder(store, log, nil)
	defer rec.Close()

	ev := models.InteractionEvent{
		ID:        "replayed",
		ContentID: "tmdb:movie:603",
		MediaType: models.MediaMovie,
		Action:    models.ActionView,
	}
	if err := rec.Record("u1", ev); err != nil {
		t.Fatal(err)
	}
	waitForProfile(t, store, "u1", func(p *models.UserProfile) bool {
		return p.Stats.TotalInteractions == 1
	})

	// Simulate the event falling off the trimmed in-profile history.
	p, err := store.Get(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	p.InteractionHistory = nil
	if err := store.Put(context.Background(), p); err != nil {
		t.Fatal(err)
	}

	if err := rec.Record("u1", ev); err != nil {
		t.Fatal(err)
	}
	time.Sleep(50 * time.Millisecond)

	p, _ = store.Get(context.Background(), "u1")
	if p.Stats.TotalInteractions != 1 {
		t.Fatalf("replayed event double-applied: %d interactions", p.Stats.TotalInteractions)
	}
}

func TestCleanupPrunesOldEntries(t *testing.T) {
	store := NewMemoryStore()
	rec := NewRecorder(store, nil, nil)
	defer rec.Close()
	ctx := context.Background()

	old := time.Now().UTC().Add(-100 * 24 * time.Hour)
	p := models.NewUserProfile("u1")
	p.InteractionHistory = []models.InteractionEvent{
		{ID: "old", ContentID: "a", Action: models.ActionView, Timestamp: old},
		{ID: "new", ContentID: "b", Action: models.ActionView, Timestamp: time.Now().UTC()},
	}
	p.SearchHistory = []models.SearchEntry{
		{Query: "old", Timestamp: old},
		{Query: "new", Timestamp: time.Now().UTC()},
	}
	if err := store.Put(ctx, p); err != nil {
		t.Fatal(err)
	}

	if err := rec.Cleanup(ctx, 90*24*time.Hour); err != nil {
		t.Fatal(err)
	}

	got, _ := store.Get(ctx, "u1")
	if len(got.InteractionHistory) != 1 || got.InteractionHistory[0].ID != "new" {
		t.Fatalf("interactions after cleanup: %+v", got.InteractionHistory)
	}
	if len(got.SearchHistory) != 1 || got.SearchHistory[0].Query != "new" {
		t.Fatalf("searches after cleanup: %+v", got.SearchHistory)
	}
}
