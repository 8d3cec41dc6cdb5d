package logs

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts what the log service receives.
type Metrics struct {
	records         *prometheus.CounterVec
	malformed       prometheus.Counter
	archiveFailures prometheus.Counter
	streamDrops     prometheus.Counter
}

// NewMetrics registers the service collectors on reg, reusing collectors that
// are already registered there.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gaia",
			Subsystem: "logservice",
			Name:      "records_total",
			Help:      "Log lines received, by severity",
		}, []string{"severity"}),
		malformed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gaia",
			Subsystem: "logservice",
			Name:      "malformed_records_total",
			Help:      "Log lines that did not match the record format",
		}),
		archiveFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gaia",
			Subsystem: "logservice",
			Name:      "archive_failures_total",
			Help:      "Log lines that could not be archived",
		}),
		streamDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gaia",
			Subsystem: "logservice",
			Name:      "stream_dropped_total",
			Help:      "Log lines not streamed because the viewer queue was full",
		}),
	}
	if reg == nil {
		return m
	}
	if err := reg.Register(m.records); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				m.records = existing
			}
		}
	}
	for _, counter := range []*prometheus.Counter{&m.malformed, &m.archiveFailures, &m.streamDrops} {
		if err := reg.Register(*counter); err != nil {
			if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
				if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
					*counter = existing
				}
			}
		}
	}
	return m
}

func (m *Metrics) observe(severity string, malformed bool) {
	if m == nil {
		return
	}
	m.records.With(prometheus.Labels{"severity": severity}).Inc()
	if malformed {
		m.malformed.Inc()
	}
}

func (m *Metrics) archiveFailed() {
	if m == nil {
		return
	}
	m.archiveFailures.Inc()
}

func (m *Metrics) streamDropped() {
	if m == nil {
		return
	}
	m.streamDrops.Inc()
}
