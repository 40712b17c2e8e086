package exec

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	partitions   *prometheus.CounterVec
	rows         *prometheus.CounterVec
	taskDuration *prometheus.HistogramVec
	taskFailures *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	return &metrics{
		partitions: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "segments_executor_partitions_total",
			Help: "Total number of partitions processed by the executor.",
		}, []string{"task"}),
		rows: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "segments_executor_rows_total",
			Help: "Total number of rows processed by the executor.",
		}, []string{"task"}),
		taskDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "segments_executor_task_duration_seconds",
			Help:    "Time taken to run a task across all partitions.",
			Buckets: prometheus.DefBuckets,
		}, []string{"task"}),
		taskFailures: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "segments_executor_task_failures_total",
			Help: "Total number of tasks which failed in at least one partition.",
		}, []string{"task"}),
	}
}
