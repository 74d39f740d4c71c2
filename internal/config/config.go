// Package config loads and validates environment variables at startup.
// Fail-fast: if a required variable is missing, the process exits with an error.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration for the matching service.
type Config struct {
	Port               string
	DatabaseURL        string
	RedisURL           string
	MatchLimit         int // default Kanban board match count per user
	IngestPollSeconds  int // how often the ingest worker polls for queued runs
	SweepIntervalHours int // how often the dedup sweep re-scans stored jobs
	ErrorBufferSize    int // capacity of the in-memory recent-error ring
}

// Load reads environment variables and returns a validated Config.
// A .env file in the working directory is honoured when present; real
// environment variables always win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}

	port := os.Getenv("MATCHING_PORT")
	if port == "" {
		port = "8083"
	}

	matchLimit, err := positiveInt("MATCH_LIMIT", 20)
	if err != nil {
		return nil, err
	}

	pollSeconds, err := positiveInt("INGEST_POLL_SECONDS", 15)
	if err != nil {
		return nil, err
	}

	sweepHours, err := positiveInt("SWEEP_INTERVAL_HOURS", 6)
	if err != nil {
		return nil, err
	}

	bufferSize, err := positiveInt("ERROR_BUFFER_SIZE", 100)
	if err != nil {
		return nil, err
	}

	return &Config{
		Port:               port,
		DatabaseURL:        dbURL,
		RedisURL:           redisURL,
		MatchLimit:         matchLimit,
		IngestPollSeconds:  pollSeconds,
		SweepIntervalHours: sweepHours,
		ErrorBufferSize:    bufferSize,
	}, nil
}

func positiveInt(name string, fallback int) (int, error) {
	s := os.Getenv(name)
	if s == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", name, s)
	}
	return v, nil
}
