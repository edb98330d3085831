package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadAppliesEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
server:
  port: "9090"
redis:
  addr: localhost:6379
  ttl: 1h
catalog:
  client_id: from-file
  cache_ttl: 10m
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("SPOTIFY_CLIENT_ID", "from-env")
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" || cfg.Redis.Addr != "localhost:6379" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.Catalog.ClientID != "from-env" || cfg.Auth.JWTSecret != "s3cret" {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
	if got := TTLDuration(cfg.Redis.TTL, 0); got != time.Hour {
		t.Fatalf("expected 1h ttl, got %s", got)
	}
}

func TestLoadBundledConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "config", "config.yaml"))
	if err != nil {
		t.Fatalf("load bundled config: %v", err)
	}
	if cfg.Quiz.LeaderboardLimit != 50 {
		t.Fatalf("expected leaderboard limit 50, got %d", cfg.Quiz.LeaderboardLimit)
	}
}

func TestTTLDuration(t *testing.T) {
	if got := TTLDuration("", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback, got %s", got)
	}
	if got := TTLDuration("soon", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback for garbage, got %s", got)
	}
	if got := TTLDuration("0s", time.Minute); got != 0 {
		t.Fatalf("expected explicit zero, got %s", got)
	}
}
