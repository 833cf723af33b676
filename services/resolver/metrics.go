package resolver

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "streamscan"

var (
	cyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "resolution_cycles_total",
		Help:      "Resolution cycles by result (applied, stale)",
	}, []string{"result"})

	liveReadFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "live_read_failures_total",
		Help:      "streamedBuilders reads that ended in an unknown outcome",
	})

	retrievalFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "retrieval_failures_total",
		Help:      "Failed event log syncs by event name",
	}, []string{"event"})

	eligibleBuilders = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "eligible_builders",
		Help:      "Size of the eligible builder set of the last applied cycle",
	})

	candidateBuilders = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "candidate_builders",
		Help:      "Distinct addresses seen in AddBuilder events",
	})

	syncedBlock = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "synced_block_number",
		Help:      "Last block covered by the event log, by event name",
	}, []string{"event"})
)
