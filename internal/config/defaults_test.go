package config

import (
	"testing"
	"time"
)

func TestApplyDefaults_Logging(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "INFO" {
		t.Errorf("expected default log level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("expected default log format 'text', got %q", cfg.Logging.Format)
	}
}

func TestApplyDefaults_Upload(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Upload.ChunkSize != 10*1024*1024 {
		t.Errorf("expected default chunk size 10MiB, got %d", cfg.Upload.ChunkSize)
	}
	if cfg.Upload.ExpiryDaysFree != 5 {
		t.Errorf("expected default free-tier expiry of 5 days, got %d", cfg.Upload.ExpiryDaysFree)
	}
}

func TestApplyDefaults_ShutdownTimeout(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("expected default shutdown timeout 10s, got %v", cfg.ShutdownTimeout)
	}
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := &Config{
		Logging: LoggingConfig{Level: "DEBUG", Format: "json", Output: "stderr"},
	}
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("expected explicit log level to be preserved, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("expected explicit log format to be preserved, got %q", cfg.Logging.Format)
	}
}

func TestValidate_RejectsMatchingAuthSecrets(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Auth.AccessTokenSecret = "same-secret"
	cfg.Auth.RefreshTokenSecret = "same-secret"
	cfg.Database.DSN = "unused"

	if err := Validate(cfg); err == nil {
		t.Fatal("expected validation error for matching auth secrets")
	}
}

func TestValidate_RequiresDSNForPostgres(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Database.Driver = "postgres"
	cfg.Auth.AccessTokenSecret = "a"
	cfg.Auth.RefreshTokenSecret = "b"

	if err := Validate(cfg); err == nil {
		t.Fatal("expected validation error for postgres driver with empty dsn")
	}
}
