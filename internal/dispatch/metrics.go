package dispatch

import "github.com/prometheus/client_golang/prometheus"

var (
	DispatchDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dispatch_depth",
			Help: "Approximate number of ready tasks per kind",
		},
		[]string{"kind"},
	)
	DispatchProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_processed_total",
			Help: "Total tasks processed grouped by outcome",
		},
		[]string{"kind", "status"},
	)
	DispatchDLQSize = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dispatch_dlq_size",
			Help: "Number of tasks parked in the dead letter queue",
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(DispatchDepth, DispatchProcessedTotal, DispatchDLQSize)
}
