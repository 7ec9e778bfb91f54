package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/hms_test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != "8000" {
		t.Errorf("Port = %q, want 8000", cfg.Port)
	}
	if !cfg.IsDev() {
		t.Error("default env should be development")
	}
	if cfg.RootRoleName != "ADMIN" {
		t.Errorf("RootRoleName = %q", cfg.RootRoleName)
	}
	if cfg.OverrideTTL() != 15*time.Minute {
		t.Errorf("OverrideTTL = %v, want 15m", cfg.OverrideTTL())
	}
	if cfg.OverrideMaxPerHour != 10 {
		t.Errorf("OverrideMaxPerHour = %d", cfg.OverrideMaxPerHour)
	}
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing DATABASE_URL")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/hms_test")
	t.Setenv("PORT", "9999")
	t.Setenv("ENV", "production")
	t.Setenv("OVERRIDE_TTL_MINUTES", "5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != "9999" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if !cfg.IsProduction() {
		t.Error("expected production mode")
	}
	if cfg.OverrideTTL() != 5*time.Minute {
		t.Errorf("OverrideTTL = %v", cfg.OverrideTTL())
	}
}

func TestValidate(t *testing.T) {
	base := Config{
		Env:                "production",
		DatabaseURL:        "postgres://localhost/hms",
		AuthSigningKey:     "secret",
		RootRoleName:       "ADMIN",
		OverrideTTLMinutes: 15,
		OverrideMaxPerHour: 10,
	}

	if err := base.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	noKey := base
	noKey.AuthSigningKey = ""
	if err := noKey.Validate(); err == nil {
		t.Error("production without signing key must be rejected")
	}

	devNoKey := noKey
	devNoKey.Env = "development"
	if err := devNoKey.Validate(); err != nil {
		t.Errorf("development without signing key should pass: %v", err)
	}

	badTTL := base
	badTTL.OverrideTTLMinutes = 0
	if err := badTTL.Validate(); err == nil {
		t.Error("zero TTL must be rejected")
	}

	noRoot := base
	noRoot.RootRoleName = ""
	if err := noRoot.Validate(); err == nil {
		t.Error("empty root role must be rejected")
	}
}
