// Package metrics exposes the Prometheus instrumentation for vaultfs. All
// metrics funnel through a single Registry so the HTTP server can expose
// them on one endpoint and so tests can assert on collected values without
// touching the global default registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry groups every metric vaultfs collects. A nil *Registry is valid
// and every method on it is a no-op, so callers can pass metrics.NewNop()
// when the metrics server is disabled with zero overhead.
type Registry struct {
	enabled bool
	reg     *prometheus.Registry

	uploadChunks      *prometheus.CounterVec
	uploadDuration    *prometheus.HistogramVec
	uploadBytes       *prometheus.HistogramVec
	downloadsTotal    *prometheus.CounterVec
	downloadDuration  *prometheus.HistogramVec
	downloadBytes     *prometheus.HistogramVec
	storageOperations *prometheus.CounterVec
	migrationsTotal   *prometheus.CounterVec
	rateLimitRejects  *prometheus.CounterVec
	quotaUsageBytes   *prometheus.GaugeVec
	activeSessions    prometheus.Gauge
	lifecycleSwept    *prometheus.CounterVec
}

// New creates a Registry backed by a fresh prometheus.Registry and
// registers every collector against it.
func New() *Registry {
	reg := prometheus.NewRegistry()
	return &Registry{
		enabled: true,
		reg:     reg,
		uploadChunks: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "vaultfs_upload_chunks_total",
			Help: "Chunks accepted by the upload engine, by outcome",
		}, []string{"outcome"}),
		uploadDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vaultfs_upload_chunk_duration_milliseconds",
			Help:    "Time to write one chunk to the storage backend",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 5000},
		}, []string{"tier"}),
		uploadBytes: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vaultfs_upload_chunk_bytes",
			Help:    "Distribution of chunk sizes written",
			Buckets: []float64{4096, 65536, 1048576, 4194304, 10485760, 52428800},
		}, []string{"tier"}),
		downloadsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "vaultfs_downloads_total",
			Help: "Completed downloads, by status code",
		}, []string{"status"}),
		downloadDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vaultfs_download_duration_milliseconds",
			Help:    "Time to serve a download request",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 5000},
		}, []string{"tier"}),
		downloadBytes: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vaultfs_download_bytes",
			Help:    "Distribution of bytes streamed per download",
			Buckets: []float64{4096, 65536, 1048576, 10485760, 104857600, 1073741824},
		}, []string{"tier"}),
		storageOperations: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "vaultfs_storage_operations_total",
			Help: "Filesystem operations performed by StorageBackend",
		}, []string{"operation", "tier", "outcome"}),
		migrationsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "vaultfs_tier_migrations_total",
			Help: "Files moved between tiers by the migration worker",
		}, []string{"direction"}),
		rateLimitRejects: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "vaultfs_rate_limit_rejections_total",
			Help: "Requests rejected by the sliding-window limiter",
		}, []string{"limit_type"}),
		quotaUsageBytes: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "vaultfs_quota_usage_bytes",
			Help: "Last observed per-user storage usage",
		}, []string{"role"}),
		activeSessions: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "vaultfs_active_upload_sessions",
			Help: "Upload sessions currently pending or uploading",
		}),
		lifecycleSwept: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "vaultfs_lifecycle_swept_total",
			Help: "Records processed by a lifecycle worker run",
		}, []string{"worker"}),
	}
}

// NewNop returns a disabled Registry whose methods are all no-ops.
func NewNop() *Registry { return &Registry{} }

// ObserveChunkWrite records a completed (or failed) chunk write.
func (r *Registry) ObserveChunkWrite(tier string, size int64, d time.Duration, ok bool) {
	if r == nil || !r.enabled {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	r.uploadChunks.WithLabelValues(outcome).Inc()
	r.uploadDuration.WithLabelValues(tier).Observe(float64(d.Milliseconds()))
	r.uploadBytes.WithLabelValues(tier).Observe(float64(size))
}

// ObserveDownload records a completed download response.
func (r *Registry) ObserveDownload(tier string, status int, bytes int64, d time.Duration) {
	if r == nil || !r.enabled {
		return
	}
	r.downloadsTotal.WithLabelValues(statusLabel(status)).Inc()
	r.downloadDuration.WithLabelValues(tier).Observe(float64(d.Milliseconds()))
	r.downloadBytes.WithLabelValues(tier).Observe(float64(bytes))
}

// ObserveStorageOp records one StorageBackend call.
func (r *Registry) ObserveStorageOp(operation, tier string, ok bool) {
	if r == nil || !r.enabled {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	r.storageOperations.WithLabelValues(operation, tier, outcome).Inc()
}

// ObserveMigration records one tier migration.
func (r *Registry) ObserveMigration(direction string) {
	if r == nil || !r.enabled {
		return
	}
	r.migrationsTotal.WithLabelValues(direction).Inc()
}

// ObserveRateLimitReject records a rejection from the rate limiter.
func (r *Registry) ObserveRateLimitReject(limitType string) {
	if r == nil || !r.enabled {
		return
	}
	r.rateLimitRejects.WithLabelValues(limitType).Inc()
}

// SetQuotaUsage records the last-observed storage usage for a role.
func (r *Registry) SetQuotaUsage(role string, bytes int64) {
	if r == nil || !r.enabled {
		return
	}
	r.quotaUsageBytes.WithLabelValues(role).Set(float64(bytes))
}

// SetActiveSessions records the current count of in-flight upload sessions.
func (r *Registry) SetActiveSessions(n int) {
	if r == nil || !r.enabled {
		return
	}
	r.activeSessions.Set(float64(n))
}

// ObserveLifecycleSweep records how many records a worker processed in one
// run.
func (r *Registry) ObserveLifecycleSweep(worker string, processed int) {
	if r == nil || !r.enabled {
		return
	}
	r.lifecycleSwept.WithLabelValues(worker).Add(float64(processed))
}

// Handler returns the HTTP handler that exposes this registry's metrics in
// Prometheus text format. Returns nil when metrics are disabled.
func (r *Registry) Handler() http.Handler {
	if r == nil || !r.enabled {
		return nil
	}
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

func statusLabel(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "success"
	case status >= 400 && status < 500:
		return "client_error"
	default:
		return "server_error"
	}
}
