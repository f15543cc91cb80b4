package audit

import "github.com/prometheus/client_golang/prometheus"

const (
	namespace = "fieldops"
	subsystem = "audit"
)

// Metrics counts what happened to audit records after their unit of work.
type Metrics struct {
	records       *prometheus.CounterVec
	writeFailures prometheus.Counter
	spooled       prometheus.Counter
	replayed      prometheus.Counter
	lost          prometheus.Counter
	spoolDepth    prometheus.Gauge
}

// NewMetrics builds the audit metrics and registers them with reg when it is non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "records_total",
			Help:      "Number of audit records committed with their operation, by action",
		}, []string{"action"}),
		writeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "write_failures_total",
			Help:      "Number of audit inserts that failed inside a committed operation",
		}),
		spooled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "spooled_total",
			Help:      "Number of audit records written to the durable spool",
		}),
		replayed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "replayed_total",
			Help:      "Number of spooled audit records replayed into the ledger",
		}),
		lost: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "records_lost_total",
			Help:      "Number of audit records that could be neither stored nor spooled",
		}),
		spoolDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "spool_depth",
			Help:      "Number of audit records waiting in the spool",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.Collectors()...)
	}
	return m
}

// Collectors returns every audit metric.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.records, m.writeFailures, m.spooled, m.replayed, m.lost, m.spoolDepth}
}
