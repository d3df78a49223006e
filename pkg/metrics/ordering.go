package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "tableside"

// Flow labels for submitted orders.
const (
	FlowEmployee = "employee"
	FlowCustomer = "customer"
)

// OrderingMetrics counts order submissions, catalog cascade deletes and orphan headers.
type OrderingMetrics struct {
	submitted      *prometheus.CounterVec
	submitFailures *prometheus.CounterVec
	catalogDeletes *prometheus.CounterVec
	orphans        prometheus.Counter
}

// NewOrderingMetrics registers the ordering metrics. A nil registerer yields a no-op recorder.
func NewOrderingMetrics(reg prometheus.Registerer) *OrderingMetrics {
	if reg == nil {
		return &OrderingMetrics{}
	}
	m := &OrderingMetrics{
		submitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_submitted_total",
			Help:      "Orders written by submission, by flow.",
		}, []string{"flow"}),
		submitFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_submit_failures_total",
			Help:      "Rejected or failed order submissions, by reason.",
		}, []string{"reason"}),
		catalogDeletes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_deletes_total",
			Help:      "Catalog cascade deletes, by entity and result.",
		}, []string{"entity", "result"}),
		orphans: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orphan_orders_detected_total",
			Help:      "Active order headers found without items.",
		}),
	}
	reg.MustRegister(m.submitted, m.submitFailures, m.catalogDeletes, m.orphans)
	return m
}

func (m *OrderingMetrics) IncSubmitted(flow string) {
	if m == nil || m.submitted == nil {
		return
	}
	m.submitted.WithLabelValues(normalizeLabel(flow)).Inc()
}

func (m *OrderingMetrics) IncSubmitFailure(reason string) {
	if m == nil || m.submitFailures == nil {
		return
	}
	m.submitFailures.WithLabelValues(normalizeLabel(reason)).Inc()
}

// ObserveCatalogDelete records a delete; result is "ok", "error" or "in_flight".
func (m *OrderingMetrics) ObserveCatalogDelete(entity, result string) {
	if m == nil || m.catalogDeletes == nil {
		return
	}
	m.catalogDeletes.WithLabelValues(normalizeLabel(entity), normalizeLabel(result)).Inc()
}

func (m *OrderingMetrics) AddOrphans(n int) {
	if m == nil || m.orphans == nil || n <= 0 {
		return
	}
	m.orphans.Add(float64(n))
}
