package ftsearch

import "github.com/prometheus/client_golang/prometheus"

// metricsCollectors holds the engine's Prometheus instruments. Unlike the
// teacher's metrics.go, which builds its collectors as package-level vars
// and registers them in init(), these are built per-Engine and registered
// only if a config.registerer was supplied: a library has no business
// touching the default global registry just because it was imported.
type metricsCollectors struct {
	documentsAdded   prometheus.Counter
	documentsDeleted prometheus.Counter
	segmentsRollover *prometheus.CounterVec
	logBytes         *prometheus.GaugeVec
}

func newMetricsCollectors() *metricsCollectors {
	return &metricsCollectors{
		documentsAdded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ftsearch_documents_added_total",
			Help: "Documents successfully added to the engine.",
		}),
		documentsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ftsearch_documents_deleted_total",
			Help: "Documents tombstoned via RemoveDocument.",
		}),
		segmentsRollover: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ftsearch_segments_rollover_total",
			Help: "New segments opened, by index type.",
		}, []string{"type"}),
		logBytes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ftsearch_log_bytes",
			Help: "Current size of each intake log, by index type.",
		}, []string{"type"}),
	}
}

func (m *metricsCollectors) register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.documentsAdded, m.documentsDeleted, m.segmentsRollover, m.logBytes} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
