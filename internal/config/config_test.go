package config

import "testing"

func TestLoadEmbeddedDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Extractor.URL != "http://localhost:8000" {
		t.Errorf("expected default extractor URL, got %q", cfg.Extractor.URL)
	}
	if cfg.Extractor.MaxImageSize != 1280 {
		t.Errorf("expected max image size 1280, got %d", cfg.Extractor.MaxImageSize)
	}
	if cfg.Identify.MaxDistance != 0.50 {
		t.Errorf("expected identify max distance 0.50, got %v", cfg.Identify.MaxDistance)
	}
	if cfg.Identify.SearchLimit != 5 {
		t.Errorf("expected identify search limit 5, got %d", cfg.Identify.SearchLimit)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("EXTRACTOR_URL", "http://faces:9000")
	t.Setenv("DATABASE_MAX_OPEN_CONNS", "10")
	t.Setenv("WEB_PORT", "9999")

	cfg := Load()

	if cfg.Extractor.URL != "http://faces:9000" {
		t.Errorf("expected env extractor URL, got %q", cfg.Extractor.URL)
	}
	if cfg.Database.MaxOpenConns != 10 {
		t.Errorf("expected 10 max open conns, got %d", cfg.Database.MaxOpenConns)
	}
	if cfg.Web.Port != 9999 {
		t.Errorf("expected port 9999, got %d", cfg.Web.Port)
	}
}

func TestEnvIntInvalid(t *testing.T) {
	t.Setenv("DATABASE_MAX_IDLE_CONNS", "not-a-number")

	cfg := Load()
	if cfg.Database.MaxIdleConns != 5 {
		t.Errorf("expected fallback to default 5, got %d", cfg.Database.MaxIdleConns)
	}
}
