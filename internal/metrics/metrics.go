package metrics

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	ControllerOpsCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ryu_ofctl_controller_ops_count",
			Help: "Number of controller REST operations, partitioned by operation.",
		},
		[]string{"operation"},
	)

	ControllerOpsErrorCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ryu_ofctl_controller_ops_error_count",
			Help: "Number of failed controller REST operations, partitioned by operation and failure kind (status code or \"connection\").",
		},
		[]string{"operation", "kind"},
	)

	ControllerOpsLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ryu_ofctl_controller_ops_latency_milliseconds",
			Help:    "Latency of controller REST operations, partitioned by operation.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 14),
		},
		[]string{"operation"},
	)

	Registry = prometheus.NewRegistry()
)

func init() {
	for _, c := range []prometheus.Collector{ControllerOpsCount, ControllerOpsErrorCount, ControllerOpsLatency} {
		if err := Registry.Register(c); err != nil {
			slog.Error("Failed to register controller metric", "error", err)
		}
	}
}

// WriteTextfile dumps the registry in the node_exporter textfile format.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, Registry)
}
