// Package metrics holds the gallery's Prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	encodeTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gallery_wav_encode_total",
		Help: "Container encodings by result",
	}, []string{"source", "status"}) // status: ok, passthrough, malformed, invalid_format

	encodeBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gallery_wav_container_bytes",
		Help:    "Size of encoded WAV containers in bytes",
		Buckets: prometheus.ExponentialBuckets(1024, 4, 8), // 1KB to ~16MB
	})

	narrationTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gallery_narrations_total",
		Help: "Narration requests by outcome",
	}, []string{"status"}) // status: ready, failed, cancelled

	narrationLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gallery_narration_latency_seconds",
		Help:    "Time from narration request to playable reference",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
	})

	storyTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gallery_stories_generated_total",
		Help: "Story generation requests by outcome",
	}, []string{"status"})

	liveReferences = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gallery_playback_references",
		Help: "Number of playback references currently held",
	})

	releasedReferences = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gallery_playback_references_released_total",
		Help: "Released playback references by reason",
	}, []string{"reason"}) // reason: released, replaced, session, expired

	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gallery_active_sessions",
		Help: "Number of open visitor sessions",
	})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gallery_http_request_duration_seconds",
		Help:    "HTTP request latency by route and status class",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method", "code"})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordEncode records one container encoding attempt.
func RecordEncode(source, status string, size int) {
	encodeTotal.WithLabelValues(source, status).Inc()
	if status == "ok" {
		encodeBytes.Observe(float64(size))
	}
}

// RecordNarration records the outcome of a narration request started at start.
func RecordNarration(status string, start time.Time) {
	narrationTotal.WithLabelValues(status).Inc()
	if status == "ready" {
		narrationLatency.Observe(time.Since(start).Seconds())
	}
}

// RecordStory records the outcome of a story generation.
func RecordStory(status string) {
	storyTotal.WithLabelValues(status).Inc()
}

// ReferenceAcquired increments the live reference gauge.
func ReferenceAcquired() {
	liveReferences.Inc()
}

// ReferenceReleased decrements the live reference gauge.
func ReferenceReleased(reason string) {
	liveReferences.Dec()
	releasedReferences.WithLabelValues(reason).Inc()
}

// SessionOpened increments the session gauge.
func SessionOpened() {
	activeSessions.Inc()
}

// SessionClosed decrements the session gauge.
func SessionClosed() {
	activeSessions.Dec()
}

// ObserveHTTP records one served request.
func ObserveHTTP(route, method string, code int, elapsed time.Duration) {
	httpDuration.WithLabelValues(route, method, statusClass(code)).Observe(elapsed.Seconds())
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
