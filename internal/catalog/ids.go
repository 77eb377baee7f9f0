package catalog

import (
	"fmt"
	"strconv"
	"strings"

	"movie-recommender/internal/models"
)

// Content ids are provider-qualified: "tmdb:movie:603", "tmdb:tv:1396".

// FormatID builds a canonical content id from a TMDB numeric id.
func FormatID(mt models.MediaType, tmdbID int) string {
	return fmt.Sprintf("tmdb:%s:%d", mt, tmdbID)
}

// ParseID splits a canonical content id back into media type and TMDB id.
func ParseID(id string) (models.MediaType, int, error) {
	parts := strings.Split(id, ":")
	if len(parts) != 3 || parts[0] != "tmdb" {
		return "", 0, fmt.Errorf("malformed content id %q", id)
	}
	mt := models.MediaType(parts[1])
	if !mt.Valid() {
		return "", 0, fmt.Errorf("unknown media type in content id %q", id)
	}
	n, err := strconv.Atoi(parts[2])
	if err != nil {
		return "", 0, fmt.Errorf("malformed content id %q: %w", id, err)
	}
	return mt, n, nil
}
