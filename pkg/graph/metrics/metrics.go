package metrics

import (
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// System metrics
	SystemMemoryUsage = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ndex_system_memory_bytes",
		Help: "Current system memory usage",
	})

	SystemGoroutines = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ndex_system_goroutines",
		Help: "Number of goroutines",
	})

	// Operation metrics
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ndex_operation_duration_seconds",
			Help:    "Duration of network operations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	OperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ndex_operation_errors_total",
			Help: "Total number of failed network operations",
		},
		[]string{"operation", "error_type"},
	)

	Rollbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ndex_rollbacks_total",
			Help: "Units of work rolled back",
		},
		[]string{"operation"},
	)

	// Import metrics
	EntitiesCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ndex_entities_created_total",
			Help: "Entities created by build and merge",
		},
		[]string{"class"},
	)

	EntitiesReused = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ndex_entities_reused_total",
			Help: "Entities matched by an equivalence policy during merge",
		},
		[]string{"class", "policy"},
	)

	SkippedReferences = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ndex_skipped_references_total",
		Help: "Unresolved references dropped by lenient imports",
	})

	// Document pipeline metrics
	PipelineDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "ndex_pipeline_duration_seconds",
			Help: "Time spent loading and preparing import documents",
		},
		[]string{"status"},
	)

	DocumentsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ndex_pipeline_documents_total",
			Help: "Import documents processed by the pipeline",
		},
		[]string{"status"},
	)

	// Closure metrics
	ClosureSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ndex_closure_entities",
			Help:    "Number of entities in computed closures",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		},
		[]string{"collection"},
	)
)

// UpdateSystemMetrics updates system-level metrics
func UpdateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	SystemMemoryUsage.Set(float64(m.Alloc))
	SystemGoroutines.Set(float64(runtime.NumGoroutine()))
}

// ObserveOperation records the duration of an operation and its failure kind
func ObserveOperation(operation string, start time.Time, errorType string) {
	OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if errorType != "" {
		OperationErrors.WithLabelValues(operation, errorType).Inc()
	}
}
