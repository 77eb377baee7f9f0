package database

import (
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"

	"movie-recommender/internal/config"
)

// NewPostgres creates a new PostgreSQL connection and runs migrations.
func NewPostgres(cfg config.DBConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)

	slog.Info("connected to PostgreSQL", "db", cfg.DBName)

	if err := runMigrations(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

func runMigrations(db *sql.DB) error {
	migrations := []string{
		// Append-only interaction log. The uuid primary key makes event
		// replays no-ops.
		`CREATE TABLE IF NOT EXISTS interaction_events (
			id UUID PRIMARY KEY,
			user_id VARCHAR(255) NOT NULL,
			content_id VARCHAR(100) NOT NULL,
			media_type VARCHAR(10) NOT NULL,
			action VARCHAR(20) NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		)`,
		// Indexes for common query patterns
		`CREATE INDEX IF NOT EXISTS idx_interaction_events_user_id ON interaction_events(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_interaction_events_created_at ON interaction_events(created_at)`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}

	slog.Info("database migrations completed")
	return nil
}
