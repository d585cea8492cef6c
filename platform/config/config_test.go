package config

import (
	"testing"
	"time"
)

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_ACCESS_SECRET", "secret")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when DATABASE_URL is empty")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/inspection")
	t.Setenv("JWT_ACCESS_SECRET", "secret")
	t.Setenv("CORS_ORIGINS", "http://localhost:3000")
	t.Setenv("AUDIT_SINK", "database")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.GetVerifyTimeout() != 3*time.Second {
		t.Fatalf("expected default verify timeout of 3s, got %s", cfg.GetVerifyTimeout())
	}
	if cfg.GetMinIOMaxFileSize() != 10*1024*1024 {
		t.Fatalf("expected 10MiB upload limit, got %d", cfg.GetMinIOMaxFileSize())
	}
	if cfg.GetDefaultSessionTimeout() != 15*time.Minute {
		t.Fatalf("expected 15m default session timeout, got %s", cfg.GetDefaultSessionTimeout())
	}
	if cfg.IsSMSEnabled() || cfg.IsMinIOEnabled() || cfg.IsTracingEnabled() {
		t.Fatalf("optional integrations must be disabled without configuration")
	}
}

func TestLoadRejectsAMQPSinkWithoutURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/inspection")
	t.Setenv("JWT_ACCESS_SECRET", "secret")
	t.Setenv("AUDIT_SINK", "amqp")
	t.Setenv("AMQP_URL", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for amqp sink without AMQP_URL")
	}
}
