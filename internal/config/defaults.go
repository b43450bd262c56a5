package config

import (
	"strings"
	"time"

	"github.com/vaultfs/vaultfs/internal/bytesize"
)

// ApplyDefaults fills any zero-valued field with its default. Called after
// unmarshaling a partial config file or environment overrides.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyHTTPDefaults(&cfg.HTTP)
	applyDatabaseDefaults(&cfg.Database)
	applyVolatileDefaults(&cfg.Volatile)
	applyStorageDefaults(&cfg.Storage)
	applyMetricsDefaults(&cfg.Metrics)
	applyTracingDefaults(&cfg.Tracing)
	applyAuthDefaults(&cfg.Auth)
	applyUploadDefaults(&cfg.Upload)
	applyRateLimitDefaults(&cfg.RateLimit)
	applyLifecycleDefaults(&cfg.Lifecycle)

	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)
	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyHTTPDefaults(cfg *HTTPConfig) {
	if cfg.Address == "" {
		cfg.Address = ":8080"
	}
}

func applyDatabaseDefaults(cfg *DatabaseConfig) {
	if cfg.Driver == "" {
		cfg.Driver = "sqlite"
	}
	if cfg.Driver == "sqlite" && cfg.Path == "" {
		cfg.Path = "/var/lib/vaultfs/vaultfs.db"
	}
	if cfg.MaxOpen == 0 {
		cfg.MaxOpen = 25
	}
	if cfg.MaxIdle == 0 {
		cfg.MaxIdle = 5
	}
}

func applyVolatileDefaults(cfg *VolatileConfig) {
	if cfg.Path == "" {
		cfg.Path = "/var/lib/vaultfs/volatile"
	}
}

func applyStorageDefaults(cfg *StorageConfig) {
	if cfg.HotPath == "" {
		cfg.HotPath = "/var/lib/vaultfs/storage/hot"
	}
	if cfg.ColdPath == "" {
		cfg.ColdPath = "/var/lib/vaultfs/storage/cold"
	}
	if cfg.TempPath == "" {
		cfg.TempPath = "/var/lib/vaultfs/storage/tmp"
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Port == 0 {
		cfg.Port = 9090
	}
}

func applyTracingDefaults(cfg *TracingConfig) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "vaultfs"
	}
	if cfg.ServiceVersion == "" {
		cfg.ServiceVersion = "dev"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}
}

func applyAuthDefaults(cfg *AuthConfig) {
	if cfg.AccessTokenTTL == 0 {
		cfg.AccessTokenTTL = 15 * time.Minute
	}
	if cfg.RefreshTokenTTL == 0 {
		cfg.RefreshTokenTTL = 30 * 24 * time.Hour
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
}

func applyUploadDefaults(cfg *UploadConfig) {
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = 10 * bytesize.MiB
	}
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = 24 * time.Hour
	}
	if cfg.ExpiryDaysFree == 0 {
		cfg.ExpiryDaysFree = 5
	}
	if cfg.ExtensionDays == 0 {
		cfg.ExtensionDays = 5
	}
}

func applyRateLimitDefaults(cfg *RateLimitConfig) {
	if cfg.UploadPerMinute == 0 {
		cfg.UploadPerMinute = 10
	}
	if cfg.DownloadPerMinute == 0 {
		cfg.DownloadPerMinute = 60
	}
	if cfg.AuthPerMinute == 0 {
		cfg.AuthPerMinute = 5
	}
	if cfg.AbuseThreshold == 0 {
		cfg.AbuseThreshold = 20
	}
}

func applyLifecycleDefaults(cfg *LifecycleConfig) {
	if cfg.ExpirySweepInterval == 0 {
		cfg.ExpirySweepInterval = 10 * time.Minute
	}
	if cfg.MigrationSweepInterval == 0 {
		cfg.MigrationSweepInterval = 30 * time.Minute
	}
	if cfg.CleanupSweepInterval == 0 {
		cfg.CleanupSweepInterval = time.Hour
	}
	if cfg.ColdMigrationThreshold == 0 {
		cfg.ColdMigrationThreshold = 7 * 24 * time.Hour
	}
	if cfg.HotPromotionDownloads == 0 {
		cfg.HotPromotionDownloads = 5
	}
	if cfg.HotPromotionWithin == 0 {
		cfg.HotPromotionWithin = 7 * 24 * time.Hour
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 100
	}
	if cfg.OrphanChunkMaxAge == 0 {
		cfg.OrphanChunkMaxAge = time.Hour
	}
	if cfg.TerminalSessionTTL == 0 {
		cfg.TerminalSessionTTL = 7 * 24 * time.Hour
	}
}

// GetDefaultConfig returns a Config with every field set to its default.
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
