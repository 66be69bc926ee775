// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	CommandsTotal       *prometheus.CounterVec
	UpstreamRequests    *prometheus.CounterVec
	ClipsTriaged        *prometheus.CounterVec
	EditChannelsDeleted prometheus.Counter
	SweepFailures       prometheus.Counter

	// Histograms (seconds)
	UpstreamDuration *prometheus.HistogramVec
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		CommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{Name: "clipbot_commands_total", Help: "Slash commands handled, by command and outcome"}, []string{"command", "outcome"})
		UpstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{Name: "clipbot_upstream_requests_total", Help: "Outbound adapter calls, by provider and result kind"}, []string{"provider", "result"})
		ClipsTriaged = promauto.NewCounterVec(prometheus.CounterOpts{Name: "clipbot_clips_triaged_total", Help: "Clip triage button presses, by action"}, []string{"action"})
		EditChannelsDeleted = promauto.NewCounter(prometheus.CounterOpts{Name: "clipbot_edit_channels_deleted_total", Help: "Empty clip edit channels removed by the sweeper"})
		SweepFailures = promauto.NewCounter(prometheus.CounterOpts{Name: "clipbot_sweep_failures_total", Help: "Per-channel errors during the edit channel sweep"})
		UpstreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{Name: "clipbot_upstream_duration_seconds", Help: "Outbound adapter call duration seconds", Buckets: prometheus.DefBuckets}, []string{"provider"})
	})
}

// ObserveUpstream records one adapter call. Safe to call before Init.
func ObserveUpstream(provider, result string, d time.Duration) {
	if UpstreamRequests != nil {
		UpstreamRequests.WithLabelValues(provider, result).Inc()
	}
	if UpstreamDuration != nil {
		UpstreamDuration.WithLabelValues(provider).Observe(d.Seconds())
	}
}

// CountCommand records one handled slash command.
func CountCommand(command, outcome string) {
	if CommandsTotal != nil {
		CommandsTotal.WithLabelValues(command, outcome).Inc()
	}
}

// CountClipAction records one clip triage action (move, delete).
func CountClipAction(action string) {
	if ClipsTriaged != nil {
		ClipsTriaged.WithLabelValues(action).Inc()
	}
}

// CountChannelDeleted records one swept edit channel.
func CountChannelDeleted() {
	if EditChannelsDeleted != nil {
		EditChannelsDeleted.Inc()
	}
}

// CountSweepFailure records one per-channel sweep error.
func CountSweepFailure() {
	if SweepFailures != nil {
		SweepFailures.Inc()
	}
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding the correlation id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	v := ctx.Value(corrKey)
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
