package config

import (
	"strings"
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("JWKS_URL", "https://auth.example.com/jwks")
	t.Setenv("GOOGLE_CLIENT_ID", "client")
	t.Setenv("GOOGLE_CLIENT_SECRET", "secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)
	for _, key := range []string{"PORT", "DATA_DIR", "SYNC_DAYS_BACK", "SYNC_BATCH_SIZE", "SYNC_BATCH_INTERVAL", "HTTP_TIMEOUT"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.DataDir != "data" {
		t.Errorf("DataDir = %q, want data", cfg.DataDir)
	}
	if cfg.SyncDaysBack != 90 || cfg.SyncBatchSize != 50 {
		t.Errorf("sync tuning = (%d, %d), want (90, 50)", cfg.SyncDaysBack, cfg.SyncBatchSize)
	}
	if cfg.SyncBatchInterval != 200*time.Millisecond {
		t.Errorf("SyncBatchInterval = %v, want 200ms", cfg.SyncBatchInterval)
	}
	if cfg.HTTPTimeout != 30*time.Second {
		t.Errorf("HTTPTimeout = %v, want 30s", cfg.HTTPTimeout)
	}
	if cfg.GoogleTokenEndpoint != "https://oauth2.googleapis.com/token" {
		t.Errorf("GoogleTokenEndpoint = %q", cfg.GoogleTokenEndpoint)
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("PORT", "9090")
	t.Setenv("SYNC_DAYS_BACK", "30")
	t.Setenv("SYNC_BATCH_INTERVAL", "1s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9090" || cfg.SyncDaysBack != 30 || cfg.SyncBatchInterval != time.Second {
		t.Errorf("overrides not applied: %+v", cfg)
	}
}

func TestLoadMissingRequired(t *testing.T) {
	t.Setenv("JWKS_URL", "")
	t.Setenv("GOOGLE_CLIENT_ID", "client")
	t.Setenv("GOOGLE_CLIENT_SECRET", "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected an error for missing required variables")
	}
	for _, want := range []string{"JWKS_URL", "GOOGLE_CLIENT_SECRET"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not name %s", err, want)
		}
	}
	if strings.Contains(err.Error(), "GOOGLE_CLIENT_ID") {
		t.Errorf("error %q names a variable that was set", err)
	}
}

func TestLoadBadValuesFallBack(t *testing.T) {
	setRequired(t)
	t.Setenv("SYNC_BATCH_SIZE", "not-a-number")
	t.Setenv("HTTP_TIMEOUT", "soon")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SyncBatchSize != 50 || cfg.HTTPTimeout != 30*time.Second {
		t.Errorf("bad values did not fall back: (%d, %v)", cfg.SyncBatchSize, cfg.HTTPTimeout)
	}
}
