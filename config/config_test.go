package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_RequiresSecretAndDSN(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("MYSQL_DSN", "")

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "JWT_SECRET") {
		t.Fatalf("expected JWT_SECRET error, got %v", err)
	}

	t.Setenv("JWT_SECRET", "secret")
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "MYSQL_DSN") {
		t.Fatalf("expected MYSQL_DSN error, got %v", err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("MYSQL_DSN", "user:pass@tcp(localhost:3306)/auth?parseTime=true")
	t.Setenv("HTTP_PORT", "")
	t.Setenv("JWT_EXPIRATION", "")
	t.Setenv("JWT_EXPIRATION_REFRESH", "")
	t.Setenv("RESEND_COOLDOWN_SECONDS", "")
	t.Setenv("CODE_LENGTH", "")
	t.Setenv("CODE_ALPHABET", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.HTTPPort != "8181" {
		t.Fatalf("expected default port 8181, got %q", cfg.HTTPPort)
	}
	if cfg.JWTExpiration != "2h" {
		t.Fatalf("expected default access lifetime 2h, got %q", cfg.JWTExpiration)
	}
	if cfg.JWTExpirationRefresh != "3M" {
		t.Fatalf("expected default refresh lifetime 3M, got %q", cfg.JWTExpirationRefresh)
	}
	if cfg.ResendCooldown != 7*time.Second {
		t.Fatalf("expected a 7s cool-down, got %v", cfg.ResendCooldown)
	}
	if cfg.CodeLength != 4 {
		t.Fatalf("expected 4-character codes, got %d", cfg.CodeLength)
	}
	if cfg.CodeAlphabet != DefaultCodeAlphabet {
		t.Fatalf("expected the default alphabet, got %q", cfg.CodeAlphabet)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("MYSQL_DSN", "dsn")
	t.Setenv("RESEND_COOLDOWN_SECONDS", "30")
	t.Setenv("CODE_LENGTH", "6")
	t.Setenv("JWT_EXPIRATION", "15m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.ResendCooldown != 30*time.Second {
		t.Fatalf("expected a 30s cool-down, got %v", cfg.ResendCooldown)
	}
	if cfg.CodeLength != 6 {
		t.Fatalf("expected 6-character codes, got %d", cfg.CodeLength)
	}
	if cfg.JWTExpiration != "15m" {
		t.Fatalf("expected a 15m access lifetime, got %q", cfg.JWTExpiration)
	}
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("TEST_STRING", "value")
	if got := getEnv("TEST_STRING", "default"); got != "value" {
		t.Fatalf("expected value, got %q", got)
	}
	if got := getEnv("MISSING_STRING", "default"); got != "default" {
		t.Fatalf("expected default, got %q", got)
	}

	t.Setenv("TEST_SECONDS", "12")
	if got := getSecondsEnv("TEST_SECONDS", 5*time.Second); got != 12*time.Second {
		t.Fatalf("expected 12s, got %v", got)
	}
	t.Setenv("TEST_SECONDS", "invalid")
	if got := getSecondsEnv("TEST_SECONDS", 5*time.Second); got != 5*time.Second {
		t.Fatalf("expected default duration, got %v", got)
	}

	t.Setenv("TEST_INT", "42")
	if got := getIntEnv("TEST_INT", 5); got != 42 {
		t.Fatalf("expected 42, got %d", got)
	}
	t.Setenv("TEST_INT", "invalid")
	if got := getIntEnv("TEST_INT", 5); got != 5 {
		t.Fatalf("expected default int, got %d", got)
	}
}
