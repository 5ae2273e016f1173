package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics owned by the cart engine.
type Metrics struct {
	ItemsAdded        prometheus.Counter
	OperationDuration *prometheus.HistogramVec
}

// New registers cart metrics against the given registerer. Tests pass a
// throwaway prometheus.NewRegistry() so suites never collide on registration.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ItemsAdded: factory.NewCounter(prometheus.CounterOpts{
			Name: "items_added",
			Help: "running count of items added to cart",
		}),
		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cart_operation_duration_seconds",
			Help:    "Latency of cart engine operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.5, 1},
		}, []string{"operation"}),
	}
}

// AddItems bumps the items_added counter by n. Best-effort observability:
// this can never fail a cart operation.
func (m *Metrics) AddItems(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ItemsAdded.Add(float64(n))
}

// ObserveOperation records one engine operation's duration.
func (m *Metrics) ObserveOperation(operation string, d time.Duration) {
	if m == nil {
		return
	}
	m.OperationDuration.WithLabelValues(operation).Observe(d.Seconds())
}
