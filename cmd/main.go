package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"

	"movie-recommender/internal/cache"
	"movie-recommender/internal/catalog"
	"movie-recommender/internal/config"
	"movie-recommender/internal/database"
	"movie-recommender/internal/handler"
	"movie-recommender/internal/profile"
	"movie-recommender/internal/providers"
	"movie-recommender/internal/providers/omdb"
	"movie-recommender/internal/providers/tmdb"
	"movie-recommender/internal/providers/youtube"
	"movie-recommender/internal/ratelimit"
	"movie-recommender/internal/ratings"
	"movie-recommender/internal/recommend"
	"movie-recommender/internal/similarity"
)

const providerTimeout = 15 * time.Second

func main() {
	// Structured logging
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Connect to PostgreSQL (non-fatal; the durable event log is optional)
	var events profile.EventLog
	db, err := database.NewPostgres(cfg.DB)
	if err != nil {
		slog.Warn("PostgreSQL unavailable, running without the event log", "error", err)
	} else {
		defer db.Close()
		events = profile.NewEventRepository(db)
	}

	// Connect to Redis (non-fatal; profiles fall back to memory)
	var store profile.Store
	rdb, err := database.NewRedis(cfg.Redis)
	if err != nil {
		slog.Warn("Redis unavailable, keeping profiles in memory", "error", err)
		store = profile.NewMemoryStore()
	} else {
		store = profile.NewRedisStore(rdb)
	}

	// Provider rate limits
	limits := ratelimit.NewRegistry()
	limits.Register(tmdb.Provider, ratelimit.Quota{Capacity: cfg.TMDB.QuotaCapacity, Window: cfg.TMDB.QuotaWindow})
	limits.Register(omdb.Provider, ratelimit.Quota{Capacity: cfg.OMDB.QuotaCapacity, Window: cfg.OMDB.QuotaWindow})
	limits.Register(youtube.Provider, ratelimit.Quota{Capacity: cfg.YouTube.QuotaCapacity, Window: cfg.YouTube.QuotaWindow})

	// Provider clients
	retry := providers.DefaultRetryPolicy()
	tmdbClient := tmdb.NewClient(cfg.TMDB.APIKey, cfg.TMDB.BaseURL,
		providers.NewTransport(tmdb.Provider, limits, retry, providerTimeout))

	var ratingsSrc catalog.RatingsSource
	if cfg.OMDB.APIKey != "" {
		ratingsSrc = omdb.NewClient(cfg.OMDB.APIKey, cfg.OMDB.BaseURL,
			providers.NewTransport(omdb.Provider, limits, retry, providerTimeout))
	} else {
		slog.Warn("no OMDB API key, records will carry community ratings only")
	}

	var videos catalog.VideoSource
	if cfg.YouTube.APIKey != "" {
		videos = youtube.NewClient(cfg.YouTube.APIKey, cfg.YouTube.BaseURL,
			providers.NewTransport(youtube.Provider, limits, retry, providerTimeout))
	} else {
		slog.Warn("no YouTube API key, records will carry no trailers")
	}

	// Content aggregation and recommendation layers
	adapter := catalog.NewAdapter(tmdbClient, ratingsSrc, videos, cache.NewManager(), ratings.NewNormalizer())
	recorder := profile.NewRecorder(store, events, adapter)
	defer recorder.Close()

	engine := recommend.NewEngine(adapter, store,
		similarity.NewEngine(similarity.DefaultFeatureWeights(), similarity.DefaultNeighborParams()),
		recommend.Config{
			CollaborativeWeight: cfg.Engine.CollaborativeWeight,
			ContentWeight:       cfg.Engine.ContentWeight,
			PopularityWeight:    cfg.Engine.PopularityWeight,
			DiversityWeight:     cfg.Engine.DiversityWeight,
			DiversityFraction:   cfg.Engine.DiversityFraction,
			DefaultLimit:        cfg.Engine.DefaultLimit,
			RequestTimeout:      cfg.Engine.RequestTimeout,
			LikedItemCap:        recommend.DefaultConfig().LikedItemCap,
			CandidateFetchCap:   recommend.DefaultConfig().CandidateFetchCap,
			MinVoteCountMovies:  recommend.DefaultConfig().MinVoteCountMovies,
			MinVoteCountTV:      recommend.DefaultConfig().MinVoteCountTV,
		})

	contentHandler := handler.NewContentHandler(adapter, recorder)
	recHandler := handler.NewRecommendationHandler(engine)
	userHandler := handler.NewUserHandler(store, recorder, events)

	// Retention cleanup loop
	retention := time.Duration(cfg.Engine.RetentionDays) * 24 * time.Hour
	cleanupCtx, stopCleanup := context.WithCancel(context.Background())
	defer stopCleanup()
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-cleanupCtx.Done():
				return
			case <-ticker.C:
				if err := recorder.Cleanup(cleanupCtx, retention); err != nil {
					slog.Error("retention cleanup failed", "error", err)
				}
			}
		}
	}()

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Movie Recommender",
		ServerHeader: "Movie-Recommender",
		ErrorHandler: func(c fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			slog.Error("unhandled error", "error", err, "status", code)
			return c.Status(code).JSON(handler.ErrorResponse{Error: err.Error()})
		},
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New())

	// API routes
	api := app.Group("/api/v1")
	api.Get("/health", handler.Health)
	api.Get("/content/lookup", contentHandler.Lookup)
	api.Get("/trending", contentHandler.Trending)
	api.Get("/content/genre/:name", contentHandler.ByGenre)
	api.Get("/content/:id", contentHandler.GetContent)
	api.Get("/content/:id/similar", contentHandler.Similar)
	api.Get("/recommendations/:userId", recHandler.GetRecommendations)
	api.Post("/users/:userId/interactions", userHandler.RecordInteraction)
	api.Get("/users/:userId/interactions", userHandler.GetInteractions)
	api.Get("/users/:userId/stats", userHandler.GetStats)
	api.Delete("/users/:userId/profile", userHandler.DeleteProfile)

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		slog.Info("shutting down movie recommender...")
		_ = app.Shutdown()
	}()

	// Start server
	addr := ":" + cfg.Port
	slog.Info("starting movie recommender", "addr", addr)
	if err := app.Listen(addr); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
