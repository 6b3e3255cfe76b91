// Package metrics provides Prometheus metrics for the recognition pipeline
// and the attendance ledger.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Face result labels.
const (
	ResultKnown   = "known"
	ResultUnknown = "unknown"
)

// Metrics contains all Prometheus metrics of the attendance pipeline.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	FramesRead         prometheus.Counter
	FramesSampled      prometheus.Counter
	Faces              *prometheus.CounterVec
	RecognitionLatency prometheus.Histogram
	Marks              prometheus.Counter
	PersistErrors      prometheus.Counter
	GallerySize        prometheus.Gauge
	ActiveSessions     prometheus.Gauge
}

// New creates the metrics and registers them on registry.
func New(registry prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register attendance metrics: %w", err)
	}
	return m, nil
}

func (m *Metrics) initMetrics() {
	m.FramesRead = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chamada_frames_read_total",
		Help: "Total number of frames read from video sources",
	})

	m.FramesSampled = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chamada_frames_sampled_total",
		Help: "Total number of frames passed to the recognizer",
	})

	m.Faces = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chamada_faces_total",
		Help: "Total number of detected faces by identification result",
	}, []string{"result"})

	m.RecognitionLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "chamada_recognition_duration_seconds",
		Help:    "Latency of detect-and-identify calls in seconds",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
	})

	m.Marks = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chamada_attendance_marks_total",
		Help: "Total number of new attendance marks",
	})

	m.PersistErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chamada_ledger_persist_errors_total",
		Help: "Total number of failed attendance file writes",
	})

	m.GallerySize = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chamada_gallery_identities",
		Help: "Number of identities currently loaded in the gallery",
	})

	m.ActiveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chamada_active_sessions",
		Help: "Number of video sessions currently running",
	})
}

func (m *Metrics) IncFramesRead() {
	if m != nil {
		m.FramesRead.Inc()
	}
}

func (m *Metrics) IncFramesSampled() {
	if m != nil {
		m.FramesSampled.Inc()
	}
}

// ObserveFace counts one identified face.
func (m *Metrics) ObserveFace(known bool) {
	if m == nil {
		return
	}
	if known {
		m.Faces.WithLabelValues(ResultKnown).Inc()
		return
	}
	m.Faces.WithLabelValues(ResultUnknown).Inc()
}

// ObserveRecognition records how long one recognizer call took.
func (m *Metrics) ObserveRecognition(d time.Duration) {
	if m != nil {
		m.RecognitionLatency.Observe(d.Seconds())
	}
}

func (m *Metrics) IncMarks() {
	if m != nil {
		m.Marks.Inc()
	}
}

func (m *Metrics) IncPersistErrors() {
	if m != nil {
		m.PersistErrors.Inc()
	}
}

func (m *Metrics) SetGallerySize(n int) {
	if m != nil {
		m.GallerySize.Set(float64(n))
	}
}

func (m *Metrics) SessionStarted() {
	if m != nil {
		m.ActiveSessions.Inc()
	}
}

func (m *Metrics) SessionFinished() {
	if m != nil {
		m.ActiveSessions.Dec()
	}
}

// Describe implements the prometheus.Collector interface.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.FramesRead.Describe(ch)
	m.FramesSampled.Describe(ch)
	m.Faces.Describe(ch)
	m.RecognitionLatency.Describe(ch)
	m.Marks.Describe(ch)
	m.PersistErrors.Describe(ch)
	m.GallerySize.Describe(ch)
	m.ActiveSessions.Describe(ch)
}

// Collect implements the prometheus.Collector interface.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.FramesRead.Collect(ch)
	m.FramesSampled.Collect(ch)
	m.Faces.Collect(ch)
	m.RecognitionLatency.Collect(ch)
	m.Marks.Collect(ch)
	m.PersistErrors.Collect(ch)
	m.GallerySize.Collect(ch)
	m.ActiveSessions.Collect(ch)
}
