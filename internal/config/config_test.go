package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TOKEN_KEY", "test-key")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Fatalf("expected default addr :8080, got %s", cfg.Addr)
	}
	if cfg.TurnTimeLimit != 10 {
		t.Fatalf("expected default turn limit 10, got %d", cfg.TurnTimeLimit)
	}
	if cfg.MatchGameType != "memory" {
		t.Fatalf("expected default match game memory, got %s", cfg.MatchGameType)
	}
	if cfg.LogJSON {
		t.Fatal("expected text logs by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("TOKEN_KEY", "test-key")
	t.Setenv("ADDR", ":9000")
	t.Setenv("TURN_TIME_LIMIT", "30")
	t.Setenv("LOG_JSON", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9000" || cfg.TurnTimeLimit != 30 || !cfg.LogJSON {
		t.Fatalf("expected overrides applied, got %+v", cfg)
	}
}
