package handler

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v3"

	"movie-recommender/internal/catalog"
	"movie-recommender/internal/models"
	"movie-recommender/internal/profile"
	"movie-recommender/internal/providers"
	"movie-recommender/internal/ratelimit"
)

// ContentHandler handles HTTP requests for content lookup and discovery.
type ContentHandler struct {
	catalog  *catalog.Adapter
	recorder *profile.Recorder
}

// NewContentHandler creates a new ContentHandler.
func NewContentHandler(cat *catalog.Adapter, rec *profile.Recorder) *ContentHandler {
	return &ContentHandler{catalog: cat, recorder: rec}
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Health returns service health status.
func Health(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"service": "movie-recommender",
	})
}

// providerError maps provider failures onto HTTP statuses.
func providerError(c fiber.Ctx, err error, fallback string) error {
	var quota *ratelimit.WouldBlockError
	var qerr *providers.QuotaError
	switch {
	case errors.Is(err, providers.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "content not found"})
	case errors.As(err, &quota), errors.As(err, &qerr):
		return c.Status(fiber.StatusTooManyRequests).JSON(ErrorResponse{Error: "provider quota exhausted, try again later"})
	}
	slog.Error(fallback, "error", err)
	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: fallback})
}

// Lookup resolves a free-text query to the best-matching content record.
// When a user_id is supplied the search lands on that user's profile.
func (h *ContentHandler) Lookup(c fiber.Ctx) error {
	query := c.Query("q")
	if query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "query parameter q is required"})
	}
	mt := models.MediaType(c.Query("media_type", string(models.MediaMovie)))
	if !mt.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "media_type must be movie or tv"})
	}

	item, err := h.catalog.Lookup(c.Context(), mt, query)
	if err != nil {
		return providerError(c, err, "lookup failed")
	}

	if userID := c.Query("user_id"); userID != "" {
		if err := h.recorder.RecordSearch(c.Context(), userID, query, mt); err != nil {
			slog.Warn("failed to record search", "user_id", userID, "error", err)
		}
	}

	return c.JSON(item)
}

// GetContent returns the merged record for one content id.
func (h *ContentHandler) GetContent(c fiber.Ctx) error {
	item, err := h.catalog.ByID(c.Context(), c.Params("id"))
	if err != nil {
		if _, _, perr := catalog.ParseID(c.Params("id")); perr != nil {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid content ID"})
		}
		return providerError(c, err, "failed to retrieve content")
	}
	return c.JSON(item)
}

// Similar returns content similar to the given id.
func (h *ContentHandler) Similar(c fiber.Ctx) error {
	items, err := h.catalog.Similar(c.Context(), c.Params("id"))
	if err != nil {
		if _, _, perr := catalog.ParseID(c.Params("id")); perr != nil {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid content ID"})
		}
		return providerError(c, err, "failed to retrieve similar content")
	}
	return c.JSON(fiber.Map{"results": items})
}

// Trending returns trending content for a window ("day" or "week").
func (h *ContentHandler) Trending(c fiber.Ctx) error {
	window := c.Query("window", "day")
	if window != "day" && window != "week" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "window must be day or week"})
	}

	items, err := h.catalog.Trending(c.Context(), window)
	if err != nil {
		return providerError(c, err, "failed to retrieve trending content")
	}
	return c.JSON(fiber.Map{"window": window, "results": items})
}

// ByGenre returns well-rated content in a genre.
func (h *ContentHandler) ByGenre(c fiber.Ctx) error {
	genre := c.Params("name")
	mt := models.MediaType(c.Query("media_type", string(models.MediaMovie)))
	if !mt.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "media_type must be movie or tv"})
	}
	minVotes := fiber.Query(c, "min_votes", 100)

	items, err := h.catalog.DiscoverByGenres(c.Context(), mt, []string{genre}, minVotes)
	if err != nil {
		return providerError(c, err, "failed to discover by genre")
	}
	if items == nil {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "unknown genre"})
	}
	return c.JSON(fiber.Map{"genre": genre, "results": items})
}
