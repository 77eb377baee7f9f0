package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the recommender service.
type Config struct {
	DB      DBConfig
	Redis   RedisConfig
	TMDB    ProviderConfig
	OMDB    ProviderConfig
	YouTube ProviderConfig
	Engine  EngineConfig
	Port    string
}

// DBConfig holds PostgreSQL configuration.
type DBConfig struct {
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	SSLRootCert string
}

// DSN returns the PostgreSQL connection string.
func (d DBConfig) DSN() string {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
	if d.SSLRootCert != "" {
		dsn += fmt.Sprintf(" sslrootcert=%s", d.SSLRootCert)
	}
	return dsn
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// ProviderConfig holds one external provider's API configuration plus its
// local quota, expressed as capacity units per window.
type ProviderConfig struct {
	APIKey        string
	BaseURL       string
	QuotaCapacity int
	QuotaWindow   time.Duration
}

// EngineConfig holds the recommendation engine's tunables.
type EngineConfig struct {
	CollaborativeWeight float64
	ContentWeight       float64
	PopularityWeight    float64
	DiversityWeight     float64
	DiversityFraction   float64
	DefaultLimit        int
	RequestTimeout      time.Duration
	RetentionDays       int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	dbPort, _ := strconv.Atoi(getEnv("DB_PORT", "5432"))
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))

	cfg := &Config{
		DB: DBConfig{
			Host:        getEnv("DB_HOST", "localhost"),
			Port:        dbPort,
			User:        getEnv("DB_USER", "postgres"),
			Password:    getEnv("DB_PASSWORD", "postgres"),
			DBName:      getEnv("DB_NAME", "movie_recommender"),
			SSLMode:     getEnv("DB_SSLMODE", "disable"),
			SSLRootCert: getEnv("DB_SSLROOTCERT", ""),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		TMDB: ProviderConfig{
			APIKey:        getEnv("TMDB_API_KEY", ""),
			BaseURL:       getEnv("TMDB_BASE_URL", "https://api.themoviedb.org/3"),
			QuotaCapacity: getEnvInt("TMDB_QUOTA_CAPACITY", 40),
			QuotaWindow:   getEnvDuration("TMDB_QUOTA_WINDOW", 10*time.Second),
		},
		OMDB: ProviderConfig{
			APIKey:        getEnv("OMDB_API_KEY", ""),
			BaseURL:       getEnv("OMDB_BASE_URL", "https://www.omdbapi.com"),
			QuotaCapacity: getEnvInt("OMDB_QUOTA_CAPACITY", 1000),
			QuotaWindow:   getEnvDuration("OMDB_QUOTA_WINDOW", 24*time.Hour),
		},
		YouTube: ProviderConfig{
			APIKey:        getEnv("YOUTUBE_API_KEY", ""),
			BaseURL:       getEnv("YOUTUBE_BASE_URL", "https://www.googleapis.com/youtube/v3"),
			QuotaCapacity: getEnvInt("YOUTUBE_QUOTA_CAPACITY", 10000),
			QuotaWindow:   getEnvDuration("YOUTUBE_QUOTA_WINDOW", 24*time.Hour),
		},
		Engine: EngineConfig{
			CollaborativeWeight: getEnvFloat("BLEND_COLLABORATIVE", 0.40),
			ContentWeight:       getEnvFloat("BLEND_CONTENT", 0.30),
			PopularityWeight:    getEnvFloat("BLEND_POPULARITY", 0.20),
			DiversityWeight:     getEnvFloat("BLEND_DIVERSITY", 0.10),
			DiversityFraction:   getEnvFloat("DIVERSITY_FRACTION", 0.10),
			DefaultLimit:        getEnvInt("RECOMMEND_DEFAULT_LIMIT", 10),
			RequestTimeout:      getEnvDuration("RECOMMEND_TIMEOUT", 10*time.Second),
			RetentionDays:       getEnvInt("RETENTION_DAYS", 90),
		},
		Port: getEnv("SERVER_PORT", "8080"),
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
