package events

import (
	"context"

	"github.com/vaultfs/vaultfs/internal/logger"
	"github.com/vaultfs/vaultfs/internal/metrics"
)

// LogMetricsSink is the default Sink: it logs every event at info level
// through internal/logger and forwards a handful of well-known event names
// to Prometheus counters through internal/metrics. Unrecognized event names
// are logged but otherwise ignored by the metrics side.
type LogMetricsSink struct {
	metrics *metrics.Registry
}

// NewLogMetricsSink builds a Sink writing to the package logger and reg.
// reg may be nil (metrics disabled).
func NewLogMetricsSink(reg *metrics.Registry) *LogMetricsSink {
	return &LogMetricsSink{metrics: reg}
}

// Emit implements Sink.
func (s *LogMetricsSink) Emit(ctx context.Context, event Event) {
	args := []any{
		logger.Operation(event.Name),
	}
	if event.UserID != "" {
		args = append(args, logger.UserID(event.UserID))
	}
	if event.FileID != "" {
		args = append(args, logger.FileID(event.FileID))
	}
	if event.SessionID != "" {
		args = append(args, logger.SessionID(event.SessionID))
	}
	for k, v := range event.Fields {
		args = append(args, k, v)
	}
	logger.InfoCtx(ctx, "event", args...)

	s.observeMetric(event)
}

func (s *LogMetricsSink) observeMetric(event Event) {
	if s.metrics == nil {
		return
	}
	switch event.Name {
	case "ratelimit.rejected":
		limitType, _ := event.Fields["limitType"].(string)
		s.metrics.ObserveRateLimitReject(limitType)
	case "lifecycle.swept":
		worker, _ := event.Fields["worker"].(string)
		processed, _ := event.Fields["processed"].(int)
		s.metrics.ObserveLifecycleSweep(worker, processed)
	case "file.migrated":
		direction, _ := event.Fields["direction"].(string)
		s.metrics.ObserveMigration(direction)
	}
}
