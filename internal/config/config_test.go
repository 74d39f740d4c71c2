package config_test

import (
	"testing"

	"jobmate/matching-service/internal/config"
)

func TestLoad_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "redis://localhost:6379")

	if _, err := config.Load(); err == nil {
		t.Fatal("expected error when DATABASE_URL is unset")
	}
}

func TestLoad_RequiresRedisURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/jobmate")
	t.Setenv("REDIS_URL", "")

	if _, err := config.Load(); err == nil {
		t.Fatal("expected error when REDIS_URL is unset")
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/jobmate")
	t.Setenv("REDIS_URL", "redis://localhost:6379")
	t.Setenv("MATCHING_PORT", "")
	t.Setenv("MATCH_LIMIT", "")
	t.Setenv("INGEST_POLL_SECONDS", "")
	t.Setenv("SWEEP_INTERVAL_HOURS", "")
	t.Setenv("ERROR_BUFFER_SIZE", "")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8083" {
		t.Errorf("Port = %q, want 8083", cfg.Port)
	}
	if cfg.MatchLimit != 20 {
		t.Errorf("MatchLimit = %d, want 20", cfg.MatchLimit)
	}
	if cfg.IngestPollSeconds != 15 {
		t.Errorf("IngestPollSeconds = %d, want 15", cfg.IngestPollSeconds)
	}
	if cfg.SweepIntervalHours != 6 {
		t.Errorf("SweepIntervalHours = %d, want 6", cfg.SweepIntervalHours)
	}
	if cfg.ErrorBufferSize != 100 {
		t.Errorf("ErrorBufferSize = %d, want 100", cfg.ErrorBufferSize)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/jobmate")
	t.Setenv("REDIS_URL", "redis://localhost:6379")
	t.Setenv("MATCHING_PORT", "9090")
	t.Setenv("MATCH_LIMIT", "5")
	t.Setenv("SWEEP_INTERVAL_HOURS", "12")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("Port = %q, want 9090", cfg.Port)
	}
	if cfg.MatchLimit != 5 {
		t.Errorf("MatchLimit = %d, want 5", cfg.MatchLimit)
	}
	if cfg.SweepIntervalHours != 12 {
		t.Errorf("SweepIntervalHours = %d, want 12", cfg.SweepIntervalHours)
	}
}

func TestLoad_RejectsNonPositiveIntegers(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/jobmate")
	t.Setenv("REDIS_URL", "redis://localhost:6379")

	for _, bad := range []string{"0", "-3", "six"} {
		t.Setenv("MATCH_LIMIT", bad)
		if _, err := config.Load(); err == nil {
			t.Errorf("MATCH_LIMIT=%q: expected error", bad)
		}
	}
}
