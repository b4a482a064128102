package service

import (
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/EduPulseAI/engagement-service/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation for the pipeline and
// provides lightweight snapshots for the ops API.
type MetricsService struct {
	registry          *prometheus.Registry
	handler           http.Handler
	eventsConsumed    *prometheus.CounterVec
	eventsMalformed   *prometheus.CounterVec
	eventsDroppedLate prometheus.Counter
	scoresEmitted     prometheus.Counter
	alertsTriggered   prometheus.Counter
	patternsDetected  *prometheus.CounterVec
	applyDuration     prometheus.Histogram
	emitDuration      prometheus.Histogram
	activeAggregates  prometheus.Gauge

	consumedCount    uint64
	malformedCount   uint64
	droppedLateCount uint64
	emittedCount     uint64
	alertsCount      uint64
	aggregateCount   int64
}

// NewMetricsService registers the pipeline collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	eventsConsumed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "events_consumed_total",
		Help: "Total events consumed per inbound stream",
	}, []string{"stream"})

	eventsMalformed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "events_malformed_total",
		Help: "Total records skipped because they could not be decoded or validated",
	}, []string{"stream"})

	eventsDroppedLate := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "events_dropped_late_total",
		Help: "Total events dropped for arriving after their window's grace period",
	})

	scoresEmitted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "engagement_scores_emitted_total",
		Help: "Total engagement scores emitted",
	})

	alertsTriggered := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "engagement_alerts_triggered_total",
		Help: "Total scores that crossed the alert threshold",
	})

	patternsDetected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "behavioral_patterns_detected_total",
		Help: "Total non-normal behavioral patterns detected",
	}, []string{"pattern"})

	applyDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "aggregate_apply_duration_seconds",
		Help:    "Duration of apply-and-score per event",
		Buckets: prometheus.DefBuckets,
	})

	emitDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "score_emit_duration_seconds",
		Help:    "Duration of score emission to the sinks",
		Buckets: prometheus.DefBuckets,
	})

	activeAggregates := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "active_aggregates",
		Help: "Number of live (student, window) aggregates across all shards",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(eventsConsumed, eventsMalformed, eventsDroppedLate, scoresEmitted,
		alertsTriggered, patternsDetected, applyDuration, emitDuration, activeAggregates, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:          registry,
		handler:           handler,
		eventsConsumed:    eventsConsumed,
		eventsMalformed:   eventsMalformed,
		eventsDroppedLate: eventsDroppedLate,
		scoresEmitted:     scoresEmitted,
		alertsTriggered:   alertsTriggered,
		patternsDetected:  patternsDetected,
		applyDuration:     applyDuration,
		emitDuration:      emitDuration,
		activeAggregates:  activeAggregates,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// RecordConsumed counts a successfully decoded inbound event.
func (m *MetricsService) RecordConsumed(stream string) {
	if m == nil {
		return
	}
	m.eventsConsumed.WithLabelValues(stream).Inc()
	atomic.AddUint64(&m.consumedCount, 1)
}

// RecordMalformed counts a skipped inbound record.
func (m *MetricsService) RecordMalformed(stream string) {
	if m == nil {
		return
	}
	m.eventsMalformed.WithLabelValues(stream).Inc()
	atomic.AddUint64(&m.malformedCount, 1)
}

// RecordDroppedLate counts an event dropped by the grace-period check.
func (m *MetricsService) RecordDroppedLate() {
	if m == nil {
		return
	}
	m.eventsDroppedLate.Inc()
	atomic.AddUint64(&m.droppedLateCount, 1)
}

// RecordScoreEmitted counts an emitted score and, when the alert threshold was
// crossed, the alert.
func (m *MetricsService) RecordScoreEmitted(alert bool) {
	if m == nil {
		return
	}
	m.scoresEmitted.Inc()
	atomic.AddUint64(&m.emittedCount, 1)
	if alert {
		m.alertsTriggered.Inc()
		atomic.AddUint64(&m.alertsCount, 1)
	}
}

// RecordPattern counts a detected non-normal behavioral pattern.
func (m *MetricsService) RecordPattern(pattern models.BehavioralPattern) {
	if m == nil || pattern == models.PatternNormal {
		return
	}
	m.patternsDetected.WithLabelValues(string(pattern)).Inc()
}

// ObserveApply records the duration of one apply-and-score pass.
func (m *MetricsService) ObserveApply(duration time.Duration) {
	if m == nil {
		return
	}
	m.applyDuration.Observe(duration.Seconds())
}

// ObserveEmit records the duration of one score emission.
func (m *MetricsService) ObserveEmit(duration time.Duration) {
	if m == nil {
		return
	}
	m.emitDuration.Observe(duration.Seconds())
}

// AddAggregates adjusts the live aggregate gauge by delta.
func (m *MetricsService) AddAggregates(delta int) {
	if m == nil {
		return
	}
	m.activeAggregates.Add(float64(delta))
	atomic.AddInt64(&m.aggregateCount, int64(delta))
}

// Snapshot returns aggregated metrics suitable for the ops API.
func (m *MetricsService) Snapshot() models.PipelineStats {
	if m == nil {
		return models.PipelineStats{}
	}
	return models.PipelineStats{
		EventsConsumed:    atomic.LoadUint64(&m.consumedCount),
		EventsMalformed:   atomic.LoadUint64(&m.malformedCount),
		EventsDroppedLate: atomic.LoadUint64(&m.droppedLateCount),
		ScoresEmitted:     atomic.LoadUint64(&m.emittedCount),
		AlertsTriggered:   atomic.LoadUint64(&m.alertsCount),
		ActiveAggregates:  atomic.LoadInt64(&m.aggregateCount),
		Goroutines:        runtime.NumGoroutine(),
		GeneratedAt:       time.Now().UTC(),
	}
}
