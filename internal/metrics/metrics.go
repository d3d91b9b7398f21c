// Package metrics holds the Prometheus collectors shared by the bus,
// persister, supervisor, and store, grounded in the teacher's pervasive use
// of prometheus/client_golang for runtime observability.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// BusDispatched counts every message the bus dispatcher has fanned out.
	BusDispatched = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "myiot",
		Subsystem: "bus",
		Name:      "dispatched_total",
		Help:      "Total number of messages dispatched by the bus.",
	})

	// BusSubscriberSendFailures counts per-subscriber mailbox send failures.
	BusSubscriberSendFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "myiot",
		Subsystem: "bus",
		Name:      "subscriber_send_failures_total",
		Help:      "Total number of failed sends to a subscriber mailbox.",
	})

	// PersisterFlushSeconds observes the duration of each committer flush.
	PersisterFlushSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "myiot",
		Subsystem: "persister",
		Name:      "flush_seconds",
		Help:      "Duration of each persister commit transaction.",
		Buckets:   prometheus.DefBuckets,
	})

	// PersisterFlushSize observes how many messages each flush committed.
	PersisterFlushSize = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "myiot",
		Subsystem: "persister",
		Name:      "flush_size",
		Help:      "Number of messages committed per persister flush.",
		Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	})

	// PersisterFlushFailures counts dropped batches after a failed transaction.
	PersisterFlushFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "myiot",
		Subsystem: "persister",
		Name:      "flush_failures_total",
		Help:      "Total number of persister batches dropped after a failed commit.",
	})

	// StoreSizeBytes reports the embedded database's on-disk size.
	StoreSizeBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "myiot",
		Subsystem: "store",
		Name:      "size_bytes",
		Help:      "Size of the store's database file in bytes.",
	})

	// SupervisorRestarts counts task restarts, partitioned by task name.
	SupervisorRestarts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "myiot",
		Subsystem: "supervisor",
		Name:      "restarts_total",
		Help:      "Total number of times a supervised task has been restarted.",
	}, []string{"task"})
)

// Register registers every collector in this package with reg. Called once
// from the wiring layer with a prometheus.Registry of the operator's choice.
func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		BusDispatched,
		BusSubscriberSendFailures,
		PersisterFlushSeconds,
		PersisterFlushSize,
		PersisterFlushFailures,
		StoreSizeBytes,
		SupervisorRestarts,
	)
}
