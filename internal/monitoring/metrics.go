package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
)

var (
	// Risk engine metrics
	decisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "riskpipe_decisions_total",
			Help: "Total number of trade decisions by outcome",
		},
		[]string{"symbol", "outcome"},
	)

	cooldownsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "riskpipe_cooldowns_total",
			Help: "Total number of cooldown activations by trigger",
		},
		[]string{"trigger"},
	)

	portfolioVaR = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "riskpipe_portfolio_var",
			Help: "Most recently computed portfolio VaR in dollars",
		},
	)

	// Executor metrics
	ordersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "riskpipe_orders_total",
			Help: "Total aggregated orders submitted to the broker",
		},
		[]string{"symbol", "side", "status"},
	)

	batchSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "riskpipe_batch_size",
			Help:    "Distribution of drained batch sizes",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100},
		},
	)

	queueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "riskpipe_queue_depth",
			Help: "Orders currently waiting for the next batch window",
		},
	)

	// Error metrics
	errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "riskpipe_errors_total",
			Help: "Total number of errors by type",
		},
		[]string{"type"},
	)
)

func init() {
	prometheus.MustRegister(decisionsTotal)
	prometheus.MustRegister(cooldownsTotal)
	prometheus.MustRegister(portfolioVaR)
	prometheus.MustRegister(ordersTotal)
	prometheus.MustRegister(batchSize)
	prometheus.MustRegister(queueDepth)
	prometheus.MustRegister(errorsTotal)
}

// MetricsHandler handles the Prometheus metrics endpoint
type MetricsHandler struct{}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler() *MetricsHandler {
	return &MetricsHandler{}
}

// ServeHTTP serves the Prometheus metrics endpoint
func (m *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// RecordDecision records a risk decision outcome
func RecordDecision(symbol, outcome string) {
	decisionsTotal.WithLabelValues(symbol, outcome).Inc()
}

// RecordCooldown records a cooldown activation
func RecordCooldown(trigger string) {
	cooldownsTotal.WithLabelValues(trigger).Inc()
}

// SetVaR updates the portfolio VaR gauge
func SetVaR(value float64) {
	portfolioVaR.Set(value)
}

// RecordOrder records an aggregated order submission result
func RecordOrder(symbol, side, status string) {
	ordersTotal.WithLabelValues(symbol, side, status).Inc()
}

// RecordBatch records a drained batch size
func RecordBatch(size int) {
	batchSize.Observe(float64(size))
}

// SetQueueDepth updates the pending-order gauge
func SetQueueDepth(depth int) {
	queueDepth.Set(float64(depth))
}

// QueueDepthValue reads the pending-order gauge back, so tests can
// assert the gauge tracks the queue.
func QueueDepthValue() float64 {
	var m dto.Metric
	if err := queueDepth.Write(&m); err != nil {
		return 0
	}
	return m.GetGauge().GetValue()
}

// RecordError records an error metric
func RecordError(errorType string) {
	errorsTotal.WithLabelValues(errorType).Inc()
}
