package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"movie-recommender/internal/models"
)

const (
	maxInteractionHistory = 100
	maxSearchHistory      = 50
	topCastWeighted       = 5

	recordQueueSize = 256
	applyTimeout    = 10 * time.Second
)

// ContentResolver supplies content metadata for preference learning.
// Implemented by the catalog adapter.
type ContentResolver interface {
	ByID(ctx context.Context, id string) (*models.ContentItem, error)
}

type job struct {
	userID string
	event  models.InteractionEvent
}

// Recorder applies interaction events to user profiles asynchronously, so
// recording never blocks a response path. Events are idempotent by id:
// applying the same event twice changes nothing.
type Recorder struct {
	store    Store
	events   EventLog // optional durable log, may be nil
	resolver ContentResolver

	ch chan job
	wg sync.WaitGroup

	// mu guards closed and every send on ch, so Close can never close the
	// channel between a closed-check and a send.
	mu     sync.Mutex
	closed bool

	// applyMu serializes read-modify-write cycles on profiles. Every path
	// that does Get-mutate-Put (worker applies, overflow applies, search
	// recording, cleanup) must hold it, or concurrent writers overwrite
	// each other's updates.
	applyMu sync.Mutex
}

// NewRecorder creates a Recorder and starts its worker. The event log may
// be nil when no durable store is configured.
func NewRecorder(store Store, events EventLog, resolver ContentResolver) *Recorder {
	r := &Recorder{
		store:    store,
		events:   events,
		resolver: resolver,
		ch:       make(chan job, recordQueueSize),
	}
	r.wg.Add(1)
	go r.worker()
	return r
}

func (r *Recorder) worker() {
	defer r.wg.Done()
	for j := range r.ch {
		r.apply(j.userID, j.event)
	}
}

// Close drains pending events and stops the worker. Safe to call more than
// once and concurrently with Record.
func (r *Recorder) Close() {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.ch)
	}
	r.mu.Unlock()
	r.wg.Wait()
}

// Record queues an interaction event for the user. The event gets a uuid if
// the caller did not assign one. Never blocks: when the queue is full the
// event is applied on its own goroutine instead of being dropped.
func (r *Recorder) Record(userID string, ev models.InteractionEvent) error {
	if userID == "" {
		return fmt.Errorf("user id is required")
	}
	if !ev.Action.Valid() {
		return fmt.Errorf("unknown interaction action %q", ev.Action)
	}
	if ev.ContentID == "" {
		return fmt.Errorf("content id is required")
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return fmt.Errorf("recorder is closed")
	}
	select {
	case r.ch <- job{userID: userID, event: ev}:
	default:
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			r.apply(userID, ev)
		}()
	}
	r.mu.Unlock()
	return nil
}

// apply folds one event into the user's profile and the durable log.
func (r *Recorder) apply(userID string, ev models.InteractionEvent) {
	r.applyMu.Lock()
	defer r.applyMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), applyTimeout)
	defer cancel()

	// The durable log goes first: its id key still detects a replay after
	// the trimmed in-profile history has forgotten the event.
	if r.events != nil {
		applied, err := r.events.Append(ctx, userID, ev)
		if err != nil {
			slog.Error("failed to append interaction event", "user_id", userID, "error", err)
		} else if !applied {
			return
		}
	}

	p, err := r.store.Get(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		p = models.NewUserProfile(userID)
	} else if err != nil {
		slog.Error("failed to load profile for interaction", "user_id", userID, "error", err)
		return
	}

	// Idempotent by event id even without a durable log.
	for _, prev := range p.InteractionHistory {
		if prev.ID == ev.ID {
			return
		}
	}

	p.InteractionHistory = append(p.InteractionHistory, ev)
	if len(p.InteractionHistory) > maxInteractionHistory {
		p.InteractionHistory = p.InteractionHistory[len(p.InteractionHistory)-maxInteractionHistory:]
	}

	p.Stats.TotalInteractions++
	switch ev.MediaType {
	case models.MediaMovie:
		p.Stats.MoviesViewed++
	case models.MediaTV:
		p.Stats.TVShowsViewed++
	}
	p.ContentTypeWeights[string(ev.MediaType)]++
	p.LastActive = ev.Timestamp

	if ev.Action == models.ActionFavorite && !p.IsFavorite(ev.ContentID) {
		p.Favorites = append(p.Favorites, ev.ContentID)
	}

	r.reinforceWeights(ctx, p, ev)

	if err := r.store.Put(ctx, p); err != nil {
		slog.Error("failed to store profile", "user_id", userID, "error", err)
		return
	}
	slog.Debug("recorded interaction",
		"user_id", userID, "content_id", ev.ContentID, "action", ev.Action)
}

// reinforceWeights bumps the profile's feature weights from the content's
// metadata. Resolution failures only cost the weight update, never the
// event itself.
func (r *Recorder) reinforceWeights(ctx context.Context, p *models.UserProfile, ev models.InteractionEvent) {
	if r.resolver == nil {
		return
	}
	item, err := r.resolver.ByID(ctx, ev.ContentID)
	if err != nil {
		slog.Warn("could not resolve content for preference update",
			"content_id", ev.ContentID, "error", err)
		return
	}
	for _, g := range item.Genres {
		p.GenreWeights[g]++
	}
	cast := item.Cast
	if len(cast) > topCastWeighted {
		cast = cast[:topCastWeighted]
	}
	for _, actor := range cast {
		p.ActorWeights[actor]++
	}
	for _, d := range item.Directors {
		p.DirectorWeights[d]++
	}
}

// RecordSearch tracks a search query on the user's profile.
func (r *Recorder) RecordSearch(ctx context.Context, userID, query string, mt models.MediaType) error {
	r.applyMu.Lock()
	defer r.applyMu.Unlock()

	p, err := r.store.Get(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		p = models.NewUserProfile(userID)
	} else if err != nil {
		return err
	}

	p.SearchHistory = append(p.SearchHistory, models.SearchEntry{
		Query:     query,
		MediaType: mt,
		Timestamp: time.Now().UTC(),
	})
	if len(p.SearchHistory) > maxSearchHistory {
		p.SearchHistory = p.SearchHistory[len(p.SearchHistory)-maxSearchHistory:]
	}
	p.Stats.TotalSearches++
	p.ContentTypeWeights[string(mt)]++
	p.LastActive = time.Now().UTC()

	return r.store.Put(ctx, p)
}

// Cleanup prunes interactions and searches past the retention window from
// every profile and from the durable log.
func (r *Recorder) Cleanup(ctx context.Context, retention time.Duration) error {
	r.applyMu.Lock()
	defer r.applyMu.Unlock()

	cutoff := time.Now().UTC().Add(-retention)

	profiles, err := r.store.All(ctx)
	if err != nil {
		return err
	}
	for _, p := range profiles {
		kept := p.InteractionHistory[:0]
		for _, ev := range p.InteractionHistory {
			if ev.Timestamp.After(cutoff) {
				kept = append(kept, ev)
			}
		}
		p.InteractionHistory = kept

		searches := p.SearchHistory[:0]
		for _, s := range p.SearchHistory {
			if s.Timestamp.After(cutoff) {
				searches = append(searches, s)
			}
		}
		p.SearchHistory = searches

		if err := r.store.Put(ctx, p); err != nil {
			return err
		}
	}

	if r.events != nil {
		n, err := r.events.PruneOlderThan(ctx, retention)
		if err != nil {
			return err
		}
		slog.Info("pruned interaction events", "count", n)
	}
	return nil
}
