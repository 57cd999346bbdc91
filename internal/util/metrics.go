package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ImportJobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "import_jobs_total",
		Help: "Total number of bulk import jobs by final status",
	}, []string{"status"})

	ImportValidationRejectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "import_validation_rejected_total",
		Help: "Total number of uploads blocked by row validation",
	})

	ImportRowsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "import_rows_total",
		Help: "Total number of imported rows by result",
	}, []string{"result"})

	ImportRowLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "import_row_latency_seconds",
		Help:    "Latency of importing a single row",
		Buckets: prometheus.DefBuckets,
	})

	ImportJobDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "import_job_duration_seconds",
		Help:    "Duration of a whole bulk import job",
		Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 300},
	})

	ImportVariantsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "import_variants_created_total",
		Help: "Total number of product variants written by imports",
	})

	StockMovementsWrittenTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stock_movements_written_total",
		Help: "Total number of stock movements written by imports",
	})

	NotificationsSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_sent_total",
		Help: "Total number of outbound notifications by channel and result",
	}, []string{"channel", "result"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
