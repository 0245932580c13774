package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.AppPort != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.AppPort)
	}
	if cfg.AccessTokenTTL != 15*time.Minute {
		t.Fatalf("expected 15m access TTL, got %v", cfg.AccessTokenTTL)
	}
	if cfg.RefreshTokenTTL != 7*24*time.Hour {
		t.Fatalf("expected 7d refresh TTL, got %v", cfg.RefreshTokenTTL)
	}
	if !cfg.CookieSecure {
		t.Fatal("expected secure cookies by default")
	}
	if cfg.MaxUploadBytes != 256<<20 {
		t.Fatalf("expected 256MiB upload cap, got %d", cfg.MaxUploadBytes)
	}
	if cfg.FFProbePath != "ffprobe" {
		t.Fatalf("expected ffprobe default, got %q", cfg.FFProbePath)
	}
	if cfg.ObjectStore.Region != "us-east-1" {
		t.Fatalf("unexpected default region %q", cfg.ObjectStore.Region)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("VIDEOTUBE_PORT", "9090")
	t.Setenv("VIDEOTUBE_DATABASE_URL", "postgres://db.internal:26257/videotube")
	t.Setenv("VIDEOTUBE_TOKEN_SECRET", "super-secret")
	t.Setenv("VIDEOTUBE_ACCESS_TOKEN_TTL", "5m")
	t.Setenv("VIDEOTUBE_COOKIE_SECURE", "false")
	t.Setenv("VIDEOTUBE_MAX_UPLOAD_BYTES", "1048576")
	t.Setenv("VIDEOTUBE_S3_BUCKET", "media-bucket")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.AppPort != 9090 {
		t.Fatalf("expected port 9090, got %d", cfg.AppPort)
	}
	if cfg.DatabaseURL != "postgres://db.internal:26257/videotube" {
		t.Fatalf("unexpected database URL %q", cfg.DatabaseURL)
	}
	if cfg.TokenSecret != "super-secret" {
		t.Fatalf("unexpected token secret %q", cfg.TokenSecret)
	}
	if cfg.AccessTokenTTL != 5*time.Minute {
		t.Fatalf("expected 5m access TTL, got %v", cfg.AccessTokenTTL)
	}
	if cfg.CookieSecure {
		t.Fatal("expected insecure cookies when disabled")
	}
	if cfg.MaxUploadBytes != 1<<20 {
		t.Fatalf("expected 1MiB upload cap, got %d", cfg.MaxUploadBytes)
	}
	if cfg.ObjectStore.Bucket != "media-bucket" {
		t.Fatalf("unexpected bucket %q", cfg.ObjectStore.Bucket)
	}
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("VIDEOTUBE_PORT", "not-a-number")
	t.Setenv("VIDEOTUBE_ACCESS_TOKEN_TTL", "soon")
	t.Setenv("VIDEOTUBE_COOKIE_SECURE", "maybe")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.AppPort != 8080 {
		t.Fatalf("expected the default port for malformed input, got %d", cfg.AppPort)
	}
	if cfg.AccessTokenTTL != 15*time.Minute {
		t.Fatalf("expected the default TTL for malformed input, got %v", cfg.AccessTokenTTL)
	}
	if !cfg.CookieSecure {
		t.Fatal("expected the default for a malformed bool")
	}
}
