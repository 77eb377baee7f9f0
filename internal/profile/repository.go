package profile

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"movie-recommender/internal/models"
)

// EventLog is the durable append-only interaction log contract. Append
// reports whether the event id was new; replays return false.
type EventLog interface {
	Append(ctx context.Context, userID string, ev models.InteractionEvent) (bool, error)
	History(ctx context.Context, userID string, limit int) ([]models.InteractionEvent, error)
	PruneOlderThan(ctx context.Context, retention time.Duration) (int64, error)
}

// EventRepository is the durable append-only interaction log in PostgreSQL.
// Events are keyed by their uuid so replaying a delivery is a no-op: the
// same event is never recorded twice.
type EventRepository struct {
	db *sql.DB
}

// NewEventRepository creates an EventRepository.
func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Append stores one interaction event. Returns false when the event id was
// already recorded.
func (r *EventRepository) Append(ctx context.Context, userID string, ev models.InteractionEvent) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO interaction_events (id, user_id, content_id, media_type, action, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`, ev.ID, userID, ev.ContentID, string(ev.MediaType), string(ev.Action), ev.Timestamp)
	if err != nil {
		return false, fmt.Errorf("failed to append interaction event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read append result: %w", err)
	}
	return n > 0, nil
}

// History returns a user's events, oldest first, up to limit.
func (r *EventRepository) History(ctx context.Context, userID string, limit int) ([]models.InteractionEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, content_id, media_type, action, created_at
		FROM interaction_events
		WHERE user_id = $1
		ORDER BY created_at ASC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query interaction events: %w", err)
	}
	defer rows.Close()

	var events []models.InteractionEvent
	for rows.Next() {
		var ev models.InteractionEvent
		var mediaType, action string
		if err := rows.Scan(&ev.ID, &ev.ContentID, &mediaType, &action, &ev.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan interaction event: %w", err)
		}
		ev.MediaType = models.MediaType(mediaType)
		ev.Action = models.InteractionAction(action)
		events = append(events, ev)
	}
	return events, rows.Err()
}

// PruneOlderThan deletes events past the retention window and returns how
// many were removed.
func (r *EventRepository) PruneOlderThan(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-retention)
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM interaction_events WHERE created_at < $1
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune interaction events: %w", err)
	}
	return res.RowsAffected()
}
