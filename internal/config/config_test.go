package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaultsAndEnv(t *testing.T) {
	t.Setenv("EXAM_REDIS_PASSWORD", "s3cret")
	path := writeConfig(t, `
server:
  port: "9090"
log:
  level: debug
redis:
  addr: localhost:6379
  password: ${EXAM_REDIS_PASSWORD}
storage:
  backend: redis
questions:
  owner: acme
  repo: chem-bank
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Redis.Password != "s3cret" {
		t.Fatalf("expected env expansion, got %q", cfg.Redis.Password)
	}
	if cfg.Questions.Source != SourceGitHub || cfg.SQLite.Path == "" {
		t.Fatalf("expected defaults, got %+v", cfg.Questions)
	}
	if len(cfg.Topics) != 14 || cfg.Topics[0].ID != "topic1" || cfg.Topics[13].ID != "elective3" {
		t.Fatalf("expected default catalogue, got %d topics", len(cfg.Topics))
	}
	if cfg.LogLevel() != slog.LevelDebug {
		t.Fatalf("expected debug level, got %v", cfg.LogLevel())
	}
}

func TestLoadCustomTopics(t *testing.T) {
	path := writeConfig(t, `
questions:
  source: postgres
postgres:
  url: postgres://exam@localhost/exam
topics:
  - id: t1
    name: Only topic
    file: T1.json
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Topics) != 1 || cfg.Topics[0].File != "T1.json" {
		t.Fatalf("expected custom topic list, got %+v", cfg.Topics)
	}
	if cfg.Storage.Backend != StorageMemory {
		t.Fatalf("expected memory storage default, got %q", cfg.Storage.Backend)
	}
}

func TestLoadRejectsInvalidCombinations(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "redis without addr", body: "storage:\n  backend: redis\nquestions:\n  owner: a\n  repo: b\n"},
		{name: "unknown backend", body: "storage:\n  backend: mongo\nquestions:\n  owner: a\n  repo: b\n"},
		{name: "github without repo", body: "questions:\n  owner: a\n"},
		{name: "postgres without url", body: "questions:\n  source: postgres\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tc.body)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestTTLDuration(t *testing.T) {
	if got := TTLDuration("", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback, got %v", got)
	}
	if got := TTLDuration("90s", time.Minute); got != 90*time.Second {
		t.Fatalf("expected 90s, got %v", got)
	}
	if got := TTLDuration("soon", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback for garbage, got %v", got)
	}
}
