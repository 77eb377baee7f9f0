package handler

import (
	"log/slog"

	"github.com/gofiber/fiber/v3"

	"movie-recommender/internal/recommend"
)

// RecommendationHandler handles HTTP requests for recommendations.
type RecommendationHandler struct {
	engine *recommend.Engine
}

// NewRecommendationHandler creates a new RecommendationHandler.
func NewRecommendationHandler(engine *recommend.Engine) *RecommendationHandler {
	return &RecommendationHandler{engine: engine}
}

// GetRecommendations returns ranked recommendations for a user.
func (h *RecommendationHandler) GetRecommendations(c fiber.Ctx) error {
	userID := c.Params("userId")
	if userID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "user ID is required"})
	}

	limit := fiber.Query(c, "limit", 0)
	if limit < 0 || limit > 50 {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "limit must be between 1 and 50"})
	}

	recs, err := h.engine.Recommend(c.Context(), userID, recommend.Options{
		Limit:            limit,
		ExcludeFavorites: fiber.Query(c, "exclude_favorites", false),
	})
	if err != nil {
		slog.Error("failed to build recommendations", "user_id", userID, "error", err)
		return providerError(c, err, "failed to build recommendations")
	}

	return c.JSON(fiber.Map{
		"user_id":         userID,
		"recommendations": recs,
	})
}
