package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vaultfs/vaultfs/internal/access"
	"github.com/vaultfs/vaultfs/internal/accounts"
	"github.com/vaultfs/vaultfs/internal/config"
	"github.com/vaultfs/vaultfs/internal/download"
	"github.com/vaultfs/vaultfs/internal/events"
	"github.com/vaultfs/vaultfs/internal/foldertree"
	"github.com/vaultfs/vaultfs/internal/httpapi"
	"github.com/vaultfs/vaultfs/internal/httpapi/auth"
	"github.com/vaultfs/vaultfs/internal/lifecycle"
	"github.com/vaultfs/vaultfs/internal/logger"
	"github.com/vaultfs/vaultfs/internal/metrics"
	"github.com/vaultfs/vaultfs/internal/quota"
	"github.com/vaultfs/vaultfs/internal/ratelimit"
	"github.com/vaultfs/vaultfs/internal/storage"
	"github.com/vaultfs/vaultfs/internal/store"
	"github.com/vaultfs/vaultfs/internal/tracing"
	"github.com/vaultfs/vaultfs/internal/upload"
	"github.com/vaultfs/vaultfs/internal/volatile"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the vaultfs server",
	Long: `Start the vaultfs HTTP API, serving chunked uploads and range-aware
downloads, and the three background lifecycle workers (expiry, migration,
cleanup).

Examples:
  vaultfsd start
  vaultfsd start --config /etc/vaultfs/config.yaml
  VAULTFS_LOGGING_LEVEL=DEBUG vaultfsd start`,
	RunE: runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return err
	}

	if err := logger.Init(logger.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Output: cfg.Logging.Output}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	metadataStore, err := store.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open metadata store: %w", err)
	}

	volat, err := volatile.Open(cfg.Volatile.Path)
	if err != nil {
		return fmt.Errorf("failed to open volatile store: %w", err)
	}
	defer func() {
		if err := volat.Close(); err != nil {
			logger.Error("volatile store close error", "error", err)
		}
	}()

	blocks, err := storage.Open(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to open storage backend: %w", err)
	}

	tracingShutdown, err := tracing.Init(context.Background(), tracing.Config{
		Enabled:        cfg.Tracing.Enabled,
		ServiceName:    cfg.Tracing.ServiceName,
		ServiceVersion: cfg.Tracing.ServiceVersion,
		SampleRate:     cfg.Tracing.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer func() {
		if err := tracingShutdown(context.Background()); err != nil {
			logger.Error("tracing shutdown error", "error", err)
		}
	}()

	registry := metrics.New()
	sink := events.NewLogMetricsSink(registry)

	quotaAccountant := quota.New(metadataStore, metadataStore)
	accessPolicy := access.New(metadataStore)
	accountsSvc := accounts.New(metadataStore)

	jwtSvc, err := auth.NewService(auth.Config{
		Secret:               cfg.Auth.AccessTokenSecret,
		AccessTokenDuration:  cfg.Auth.AccessTokenTTL,
		RefreshTokenDuration: cfg.Auth.RefreshTokenTTL,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize JWT service: %w", err)
	}

	uploadEngine := upload.New(metadataStore, metadataStore, quotaAccountant, volat, blocks, sink, upload.Config{
		ChunkSize:      int64(cfg.Upload.ChunkSize),
		SessionTTL:     cfg.Upload.SessionTTL,
		ExpiryDaysFree: cfg.Upload.ExpiryDaysFree,
	})
	downloadEngine := download.New(metadataStore, accessPolicy, quotaAccountant, blocks, volat, sink, download.Config{
		ExtensionDays: cfg.Upload.ExtensionDays,
	})
	folderTree := foldertree.New(metadataStore, blocks, quotaAccountant)

	var limiter *ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		limiter = ratelimit.New(volat, sink, ratelimit.Limits{
			UploadPerMinute:   cfg.RateLimit.UploadPerMinute,
			DownloadPerMinute: cfg.RateLimit.DownloadPerMinute,
			AuthPerMinute:     cfg.RateLimit.AuthPerMinute,
			AbuseThreshold:    cfg.RateLimit.AbuseThreshold,
		})
	}

	workers := lifecycle.New(metadataStore, metadataStore, metadataStore, blocks, metadataStore, quotaAccountant, volat, sink, cfg.Lifecycle)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	workers.Start(ctx)
	defer workers.Stop()

	router := httpapi.NewRouter(httpapi.Dependencies{
		Accounts:  accountsSvc,
		AuthSvc:   jwtSvc,
		Upload:    uploadEngine,
		Download:  downloadEngine,
		Folders:   folderTree,
		RateLimit: limiter,
	})

	httpServer := &http.Server{
		Addr:    cfg.HTTP.Address,
		Handler: router,
	}

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", registry.Handler())
		metricsServer = &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Metrics.Port),
			Handler: metricsMux,
		}
		go func() {
			logger.Info("vaultfsd metrics listening", "address", metricsServer.Addr)
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server error", "error", err)
			}
		}()
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("vaultfsd listening", "address", cfg.HTTP.Address)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logger.Info("shutdown signal received, draining connections")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
		if metricsServer != nil {
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("metrics server shutdown error", "error", err)
			}
		}
		cancel()

	case err := <-serverErr:
		cancel()
		if err != nil {
			logger.Error("server error", "error", err)
			return err
		}
	}

	logger.Info("vaultfsd stopped")
	return nil
}
