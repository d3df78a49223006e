package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestOrderingMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOrderingMetrics(reg)

	m.IncSubmitted(FlowEmployee)
	m.IncSubmitted(FlowEmployee)
	m.IncSubmitFailure("invalid_lines")
	m.ObserveCatalogDelete("modifier_group", "ok")
	m.AddOrphans(3)
	m.AddOrphans(0)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "tableside_orders_submitted_total", "flow", FlowEmployee); err != nil || got != 2 {
		t.Fatalf("expected 2 employee submissions, got %v err=%v", got, err)
	}
	if got, err := fetchCounterValue(mfs, "tableside_order_submit_failures_total", "reason", "invalid_lines"); err != nil || got != 1 {
		t.Fatalf("expected 1 failure, got %v err=%v", got, err)
	}
	if got, err := fetchCounterValue(mfs, "tableside_catalog_deletes_total", "entity", "modifier_group"); err != nil || got != 1 {
		t.Fatalf("expected 1 delete, got %v err=%v", got, err)
	}
	mf := findMetricFamily(mfs, "tableside_orphan_orders_detected_total")
	if mf == nil || mf.GetMetric()[0].GetCounter().GetValue() != 3 {
		t.Fatalf("expected 3 orphans, got %v", mf)
	}
}

func TestNilOrderingMetricsIsSafe(t *testing.T) {
	var m *OrderingMetrics
	m.IncSubmitted(FlowCustomer)
	m.ObserveCatalogDelete("category", "error")

	NewOrderingMetrics(nil).AddOrphans(1)
}
