package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OutcomeOK       = "ok"
	OutcomeError    = "error"
	OutcomeConflict = "conflict"
)

// Recorder owns a private registry so tests can build as many as they like.
type Recorder struct {
	registry        *prometheus.Registry
	recomputes      *prometheus.CounterVec
	recomputeTime   prometheus.Histogram
	writeConflicts  prometheus.Counter
	skippedInnings  *prometheus.CounterVec
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		recomputes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fairplay_recomputes_total",
			Help: "Snapshot recomputes by outcome.",
		}, []string{"outcome"}),
		recomputeTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fairplay_recompute_duration_seconds",
			Help:    "Time spent recomputing one player snapshot.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
		writeConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fairplay_snapshot_write_conflicts_total",
			Help: "Conditional snapshot writes that lost to a newer write.",
		}),
		skippedInnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fairplay_skipped_innings_total",
			Help: "Malformed innings skipped during extraction.",
		}, []string{"reason"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fairplay_http_requests_total",
			Help: "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fairplay_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	r.registry.MustRegister(r.recomputes, r.recomputeTime, r.writeConflicts, r.skippedInnings, r.requests, r.requestDuration)
	return r
}

func (r *Recorder) RecordRecompute(outcome string, d time.Duration) {
	if r == nil {
		return
	}
	r.recomputes.WithLabelValues(outcome).Inc()
	r.recomputeTime.Observe(d.Seconds())
}

func (r *Recorder) RecordWriteConflict() {
	if r == nil {
		return
	}
	r.writeConflicts.Inc()
}

func (r *Recorder) RecordSkippedInning(reason string) {
	if r == nil {
		return
	}
	r.skippedInnings.WithLabelValues(reason).Inc()
}

func (r *Recorder) RecordRequest(method, route string, status int, d time.Duration) {
	if r == nil {
		return
	}
	r.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.requestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
