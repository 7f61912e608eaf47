package config

import (
	"testing"
	"time"
)

func TestInitializeDefaults(t *testing.T) {
	if err := Initialize(); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	if got := GetString("listen"); got != ":7000" {
		t.Errorf("listen default = %q, want :7000", got)
	}
	if got := GetDuration("jwt-ttl"); got != 7*24*time.Hour {
		t.Errorf("jwt-ttl default = %v, want 168h", got)
	}
	if got := GetString("log-level"); got != "info" {
		t.Errorf("log-level default = %q, want info", got)
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("TRACKD_LISTEN", ":9999")
	t.Setenv("TRACKD_JWT_SECRET", "env-secret")

	if err := Initialize(); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	if got := GetString("listen"); got != ":9999" {
		t.Errorf("listen = %q, want env override :9999", got)
	}
	if got := GetString("jwt-secret"); got != "env-secret" {
		t.Errorf("jwt-secret = %q, want env override", got)
	}
}

func TestSetOverridesAll(t *testing.T) {
	if err := Initialize(); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	Set("db", "/tmp/override.db")
	if got := GetString("db"); got != "/tmp/override.db" {
		t.Errorf("db = %q, want explicit Set value", got)
	}
}
