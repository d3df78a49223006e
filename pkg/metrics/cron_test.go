package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCronJobMetricsRecordsRuns(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)
	fixed := time.Date(2026, 3, 1, 4, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return fixed }

	m.ObserveRun("outbox-retention", 250*time.Millisecond, nil)
	m.ObserveRun("outbox-retention", time.Second, errors.New("db down"))
	m.ObserveRun("orphan-order-report", 10*time.Millisecond, errors.New("timeout"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("outbox-retention", cronResultSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("outbox-retention", cronResultFailure)))
	assert.Equal(t, float64(fixed.Unix()), testutil.ToFloat64(m.lastSuccess.WithLabelValues("outbox-retention")))

	mfs, err := reg.Gather()
	require.NoError(t, err)
	series, err := findSeries(mfs, "tableside_cron_job_duration_seconds", map[string]string{"job": "outbox-retention"})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), series.GetHistogram().GetSampleCount())
	assert.InDelta(t, 1.25, series.GetHistogram().GetSampleSum(), 1e-9)

	// a job that never succeeded exports no freshness gauge
	_, err = findSeries(mfs, "tableside_cron_job_last_success_timestamp_seconds", map[string]string{"job": "orphan-order-report"})
	assert.Error(t, err)
}

func TestNilCronJobMetricsIsNoop(t *testing.T) {
	m := NewCronJobMetrics(nil)
	assert.Nil(t, m)
	assert.NotPanics(t, func() { m.ObserveRun("x", time.Second, nil) })
}
