// Package config loads the static configuration for the vaultfs server:
// logging, database connection, storage tiers, upload/download tuning,
// quota defaults, rate limiting, and the optional S3 archive mirror.
//
// Configuration sources, highest precedence first:
//  1. Environment variables (VAULTFS_*), for keys the configuration file sets
//  2. Configuration file (YAML)
//  3. Default values
//
// No CLI flag feeds a configuration value; vaultfsd's --config flag only
// selects the file. When no configuration file is found, Load returns the
// defaults unchanged: environment variables are not read and Validate is
// not run.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/vaultfs/vaultfs/internal/bytesize"
)

// Config is the top-level configuration for vaultfsd.
type Config struct {
	Logging         LoggingConfig         `mapstructure:"logging" yaml:"logging"`
	ShutdownTimeout time.Duration         `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`
	HTTP            HTTPConfig            `mapstructure:"http" yaml:"http"`
	Database        DatabaseConfig        `mapstructure:"database" yaml:"database"`
	Volatile        VolatileConfig        `mapstructure:"volatile" yaml:"volatile"`
	Storage         StorageConfig         `mapstructure:"storage" yaml:"storage"`
	Archive         ArchiveConfig         `mapstructure:"archive" yaml:"archive"`
	Metrics         MetricsConfig         `mapstructure:"metrics" yaml:"metrics"`
	Tracing         TracingConfig         `mapstructure:"tracing" yaml:"tracing"`
	Auth            AuthConfig            `mapstructure:"auth" yaml:"auth"`
	Upload          UploadConfig          `mapstructure:"upload" yaml:"upload"`
	RateLimit       RateLimitConfig       `mapstructure:"rate_limit" yaml:"rate_limit"`
	Lifecycle       LifecycleConfig       `mapstructure:"lifecycle" yaml:"lifecycle"`
	Admin           AdminConfig           `mapstructure:"admin" yaml:"admin"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// HTTPConfig controls the public-facing HTTP listener.
type HTTPConfig struct {
	Address string `mapstructure:"address" validate:"required" yaml:"address"`
}

// DatabaseConfig configures the durable metadata store (SQLite or Postgres).
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver" validate:"required,oneof=sqlite postgres" yaml:"driver"`
	DSN      string `mapstructure:"dsn" yaml:"dsn"`
	Path     string `mapstructure:"path" yaml:"path,omitempty"`
	MaxOpen  int    `mapstructure:"max_open_conns" yaml:"max_open_conns"`
	MaxIdle  int    `mapstructure:"max_idle_conns" yaml:"max_idle_conns"`
}

// VolatileConfig configures the Badger-backed ephemeral store.
type VolatileConfig struct {
	Path string `mapstructure:"path" validate:"required" yaml:"path"`
}

// StorageConfig configures the two-tier filesystem layout.
type StorageConfig struct {
	HotPath  string            `mapstructure:"hot_path" validate:"required" yaml:"hot_path"`
	ColdPath string            `mapstructure:"cold_path" validate:"required" yaml:"cold_path"`
	TempPath string            `mapstructure:"temp_path" validate:"required" yaml:"temp_path"`
}

// ArchiveConfig holds the settings archive.Open reads to build the optional
// S3 disaster-recovery mirror. The mirror is write-only: vaultfs never reads
// a blob back from it. vaultfsd does not call archive.Open, so enabling this
// section has no effect on a running server.
type ArchiveConfig struct {
	Enabled   bool   `mapstructure:"enabled" yaml:"enabled"`
	Bucket    string `mapstructure:"bucket" yaml:"bucket,omitempty"`
	Region    string `mapstructure:"region" yaml:"region,omitempty"`
	Prefix    string `mapstructure:"prefix" yaml:"prefix,omitempty"`
	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint,omitempty"`
	// AccessKeyID and SecretAccessKey pin the mirror to explicit static
	// credentials, bypassing the default AWS credential chain. Typically
	// set when Endpoint points at a self-hosted S3-compatible target
	// rather than real AWS.
	AccessKeyID     string `mapstructure:"access_key_id" yaml:"access_key_id,omitempty"`
	SecretAccessKey string `mapstructure:"secret_access_key" yaml:"secret_access_key,omitempty"`
}

// MetricsConfig configures the Prometheus metrics endpoint.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	Port    int  `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
}

// TracingConfig configures the in-process OpenTelemetry tracer. There is no
// OTLP exporter wired up: sampled spans carry trace/span IDs into the log
// line the way spec's logging-first observability model expects, without a
// gRPC collector dependency.
type TracingConfig struct {
	Enabled        bool    `mapstructure:"enabled" yaml:"enabled"`
	ServiceName    string  `mapstructure:"service_name" yaml:"service_name,omitempty"`
	ServiceVersion string  `mapstructure:"service_version" yaml:"service_version,omitempty"`
	SampleRate     float64 `mapstructure:"sample_rate" validate:"omitempty,min=0,max=1" yaml:"sample_rate"`
}

// AuthConfig configures JWT issuance/verification.
type AuthConfig struct {
	AccessTokenSecret   string        `mapstructure:"access_token_secret" validate:"required" yaml:"access_token_secret"`
	RefreshTokenSecret  string        `mapstructure:"refresh_token_secret" validate:"required" yaml:"refresh_token_secret"`
	AccessTokenTTL      time.Duration `mapstructure:"access_token_ttl" yaml:"access_token_ttl"`
	RefreshTokenTTL     time.Duration `mapstructure:"refresh_token_ttl" yaml:"refresh_token_ttl"`
	BcryptCost          int           `mapstructure:"bcrypt_cost" validate:"omitempty,min=10,max=16" yaml:"bcrypt_cost"`
}

// UploadConfig tunes chunked-upload behavior.
type UploadConfig struct {
	ChunkSize      bytesize.ByteSize `mapstructure:"chunk_size" yaml:"chunk_size"`
	SessionTTL     time.Duration     `mapstructure:"session_ttl" yaml:"session_ttl"`
	ExpiryDaysFree int               `mapstructure:"expiry_days_free" yaml:"expiry_days_free"`
	ExtensionDays  int               `mapstructure:"extension_days" yaml:"extension_days"`
}

// RateLimitConfig tunes the sliding-window limiter and abuse gate.
type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled" yaml:"enabled"`
	UploadPerMinute   int  `mapstructure:"upload_per_minute" yaml:"upload_per_minute"`
	DownloadPerMinute int  `mapstructure:"download_per_minute" yaml:"download_per_minute"`
	AuthPerMinute     int  `mapstructure:"auth_per_minute" yaml:"auth_per_minute"`
	AbuseThreshold    int  `mapstructure:"abuse_threshold" yaml:"abuse_threshold"`
}

// LifecycleConfig tunes the background workers.
type LifecycleConfig struct {
	ExpirySweepInterval    time.Duration `mapstructure:"expiry_sweep_interval" yaml:"expiry_sweep_interval"`
	MigrationSweepInterval time.Duration `mapstructure:"migration_sweep_interval" yaml:"migration_sweep_interval"`
	CleanupSweepInterval   time.Duration `mapstructure:"cleanup_sweep_interval" yaml:"cleanup_sweep_interval"`
	ColdMigrationThreshold time.Duration `mapstructure:"cold_migration_threshold" yaml:"cold_migration_threshold"`
	HotPromotionDownloads  int64         `mapstructure:"hot_promotion_downloads" yaml:"hot_promotion_downloads"`
	HotPromotionWithin     time.Duration `mapstructure:"hot_promotion_within" yaml:"hot_promotion_within"`
	BatchSize              int           `mapstructure:"batch_size" yaml:"batch_size"`
	OrphanChunkMaxAge      time.Duration `mapstructure:"orphan_chunk_max_age" yaml:"orphan_chunk_max_age"`
	TerminalSessionTTL     time.Duration `mapstructure:"terminal_session_ttl" yaml:"terminal_session_ttl"`
}

// AdminConfig holds an admin account's email and password hash. It is
// loaded and saved with the rest of the configuration; no component reads it,
// so no admin account is created from it.
type AdminConfig struct {
	Email        string `mapstructure:"email" yaml:"email,omitempty"`
	PasswordHash string `mapstructure:"password_hash" yaml:"password_hash,omitempty"`
}

// Load reads configuration from file, environment, and defaults, applying
// missing values and validating the result.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	found, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	cfg := GetDefaultConfig()
	if !found {
		return cfg, nil
	}

	if err := v.Unmarshal(cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// SaveConfig writes cfg to path in YAML form, restricted to owner
// read/write since it may carry secrets (token signing keys, password hash).
func SaveConfig(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("VAULTFS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}
	v.AddConfigPath(defaultConfigDir())
	v.SetConfigName("config")
	v.SetConfigType("yaml")
}

func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}
	return true, nil
}

func defaultConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "vaultfs")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "vaultfs")
}

// GetDefaultConfigPath returns the default config file location.
func GetDefaultConfigPath() string {
	return filepath.Join(defaultConfigDir(), "config.yaml")
}

func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(byteSizeDecodeHook())
}

func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(bytesize.ByteSize(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return bytesize.ParseByteSize(v)
		case int:
			return bytesize.ByteSize(v), nil
		case int64:
			return bytesize.ByteSize(v), nil
		default:
			return data, nil
		}
	}
}
