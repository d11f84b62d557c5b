package core

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "fileconv"

// Metrics holds the conversion counters. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	filesParsed       *prometheus.CounterVec
	conversions       *prometheus.CounterVec
	conversionSeconds *prometheus.HistogramVec
	duplicatesRemoved prometheus.Counter
	cellsFilled       prometheus.Counter
	activeSessions    prometheus.Gauge
	sessionsExpired   prometheus.Counter
}

// NewMetrics registers the conversion metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		filesParsed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "files_parsed_total",
			Help:      "Uploaded files parsed, by source extension and result.",
		}, []string{"extension", "result"}),
		conversions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "conversions_total",
			Help:      "Clean and serialize runs, by export format and result.",
		}, []string{"format", "result"}),
		conversionSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "conversion_duration_seconds",
			Help:      "Time spent cleaning and serializing one file.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"format"}),
		duplicatesRemoved: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "duplicate_rows_removed_total",
			Help:      "Rows dropped by duplicate removal.",
		}),
		cellsFilled: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "missing_cells_filled_total",
			Help:      "Missing cells replaced by the fill value.",
		}),
		activeSessions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "active_sessions",
			Help:      "Upload sessions currently held in memory.",
		}),
		sessionsExpired: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "sessions_expired_total",
			Help:      "Upload sessions removed by the sweeper.",
		}),
	}
}

// resultLabel classifies err for the "result" label.
func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrUnsupportedFormat):
		return "unsupported"
	case errors.Is(err, ErrParseFailure):
		return "parse_failure"
	default:
		return "error"
	}
}

func (m *Metrics) observeParse(ext string, err error) {
	if m == nil {
		return
	}
	if ext != ExtCSV && ext != ExtXLSX {
		ext = "other"
	}
	m.filesParsed.WithLabelValues(ext, resultLabel(err)).Inc()
}

func (m *Metrics) observeConversion(format ExportFormat, err error, d time.Duration) {
	if m == nil {
		return
	}
	label := format.Extension()
	m.conversions.WithLabelValues(label, resultLabel(err)).Inc()
	if err == nil {
		m.conversionSeconds.WithLabelValues(label).Observe(d.Seconds())
	}
}

func (m *Metrics) observeCleaning(r CleanReport) {
	if m == nil {
		return
	}
	m.duplicatesRemoved.Add(float64(r.DuplicatesRemoved))
	m.cellsFilled.Add(float64(r.CellsFilled))
}

func (m *Metrics) setActiveSessions(n int) {
	if m == nil {
		return
	}
	m.activeSessions.Set(float64(n))
}

func (m *Metrics) addExpiredSessions(n int) {
	if m == nil {
		return
	}
	m.sessionsExpired.Add(float64(n))
}
