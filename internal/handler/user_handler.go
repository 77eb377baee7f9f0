package handler

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v3"

	"movie-recommender/internal/models"
	"movie-recommender/internal/profile"
)

// UserHandler handles HTTP requests for user profiles and interactions.
type UserHandler struct {
	store    profile.Store
	recorder *profile.Recorder
	events   profile.EventLog // may be nil when no durable log is configured
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(store profile.Store, rec *profile.Recorder, events profile.EventLog) *UserHandler {
	return &UserHandler{store: store, recorder: rec, events: events}
}

// InteractionRequest is the payload for recording an interaction. EventID is
// optional; callers that retry deliveries should set it so replays dedupe.
type InteractionRequest struct {
	EventID   string `json:"event_id"`
	ContentID string `json:"content_id"`
	MediaType string `json:"media_type"`
	Action    string `json:"action"`
}

// RecordInteraction queues an interaction event for the user. The event is
// applied asynchronously, so a 202 only acknowledges acceptance.
func (h *UserHandler) RecordInteraction(c fiber.Ctx) error {
	userID := c.Params("userId")
	if userID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "user ID is required"})
	}

	var req InteractionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	ev := models.InteractionEvent{
		ID:        req.EventID,
		ContentID: req.ContentID,
		MediaType: models.MediaType(req.MediaType),
		Action:    models.InteractionAction(req.Action),
	}
	if err := h.recorder.Record(userID, ev); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "accepted"})
}

// GetInteractions returns a user's interaction events, oldest first. Served
// from the durable log when one is configured, else from the profile's
// trimmed in-memory history.
func (h *UserHandler) GetInteractions(c fiber.Ctx) error {
	userID := c.Params("userId")
	limit := fiber.Query(c, "limit", 50)

	if h.events != nil {
		events, err := h.events.History(c.Context(), userID, limit)
		if err != nil {
			slog.Error("failed to query interaction log", "user_id", userID, "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to load interactions"})
		}
		if events == nil {
			events = []models.InteractionEvent{}
		}
		return c.JSON(fiber.Map{"user_id": userID, "interactions": events})
	}

	p, err := h.store.Get(c.Context(), userID)
	if err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "user not found"})
		}
		slog.Error("failed to load profile", "user_id", userID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to load interactions"})
	}
	history := p.InteractionHistory
	if len(history) > limit {
		history = history[:limit]
	}
	return c.JSON(fiber.Map{"user_id": userID, "interactions": history})
}

// GetStats returns a user's profile statistics.
func (h *UserHandler) GetStats(c fiber.Ctx) error {
	userID := c.Params("userId")

	p, err := h.store.Get(c.Context(), userID)
	if err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "user not found"})
		}
		slog.Error("failed to load profile", "user_id", userID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to load profile"})
	}

	return c.JSON(fiber.Map{
		"user_id":        p.UserID,
		"stats":          p.Stats,
		"top_genres":     p.TopGenres(5),
		"preferred_type": p.PreferredMediaType(),
		"favorites":      len(p.Favorites),
		"first_seen":     p.FirstSeen,
		"last_active":    p.LastActive,
	})
}

// DeleteProfile removes a user's profile on explicit request.
func (h *UserHandler) DeleteProfile(c fiber.Ctx) error {
	userID := c.Params("userId")

	if err := h.store.Delete(c.Context(), userID); err != nil {
		slog.Error("failed to delete profile", "user_id", userID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to delete profile"})
	}
	return c.SendStatus(fiber.StatusNoContent)
}
