package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// APILatency measures API request latency
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agrinova_api_request_latency_seconds",
			Help:    "API request latency in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		},
		[]string{"endpoint", "method", "status"},
	)

	// Recommendations counts crop recommendation results by branch (rule or fallback)
	Recommendations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agrinova_crop_recommendations_total",
			Help: "Total number of crop recommendations returned",
		},
		[]string{"branch"},
	)

	// ChatReplies counts chatbot replies
	ChatReplies = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agrinova_chat_replies_total",
			Help: "Total number of chatbot replies",
		},
		[]string{"persona", "result"},
	)

	// PendingReplies tracks scheduled but undelivered chat replies
	PendingReplies = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "agrinova_chat_pending_replies",
			Help: "Number of chat replies waiting for their delay to elapse",
		},
	)

	// SensorTicks counts simulated sensor feed steps
	SensorTicks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agrinova_sensor_ticks_total",
			Help: "Total number of sensor feed steps",
		},
		[]string{"publish"},
	)

	// CartOperations counts cart mutations
	CartOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agrinova_cart_operations_total",
			Help: "Total number of cart operations",
		},
		[]string{"operation"},
	)

	// StorageLatency measures key-value and product storage latency
	StorageLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agrinova_storage_latency_seconds",
			Help:    "Storage operation latency in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
		},
		[]string{"operation"},
	)
)
