package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestParseEnv_Defaults(t *testing.T) {
	cfg, err := ParseEnv()
	if err != nil {
		t.Fatalf("ParseEnv: %v", err)
	}
	if cfg.Addr != ":8080" || cfg.HistoryMode != HistoryModeMemory || cfg.HistoryLimit != 20 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.ActionTimeout != 30*time.Second || cfg.ReactionTimeout != 15*time.Second {
		t.Fatalf("unexpected timeouts: %s %s", cfg.ActionTimeout, cfg.ReactionTimeout)
	}
}

func TestParseEnv_Overrides(t *testing.T) {
	t.Setenv("COUP_HISTORY_MODE", " SQLite ")
	t.Setenv("COUP_HISTORY_SQLITE_PATH", "/tmp/x/../coup.db")
	t.Setenv("COUP_REACTION_TIMEOUT", "5s")
	t.Setenv("COUP_ALLOWED_ORIGINS", "http://a.test,http://b.test")

	cfg, err := ParseEnv()
	if err != nil {
		t.Fatalf("ParseEnv: %v", err)
	}
	if cfg.HistoryMode != HistoryModeSQLite {
		t.Fatalf("mode = %q", cfg.HistoryMode)
	}
	path, err := cfg.SQLitePath()
	if err != nil || path != filepath.Clean("/tmp/coup.db") {
		t.Fatalf("SQLitePath = %q, %v", path, err)
	}
	if cfg.ReactionTimeout != 5*time.Second {
		t.Fatalf("reaction timeout = %s", cfg.ReactionTimeout)
	}
	if !cfg.OriginAllowed("http://b.test") || cfg.OriginAllowed("http://evil.test") {
		t.Fatalf("origin filter wrong: %v", cfg.AllowedOrigins)
	}
}

func TestParseEnv_RejectsUnknownMode(t *testing.T) {
	t.Setenv("COUP_HISTORY_MODE", "redis")
	if _, err := ParseEnv(); err == nil {
		t.Fatalf("expected error for unknown history mode")
	}
}
