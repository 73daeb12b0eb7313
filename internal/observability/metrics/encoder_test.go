package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMetrics(t *testing.T) (*EncoderMetrics, *prometheus.Registry) {
	t.Helper()
	registry := prometheus.NewRegistry()
	m, err := NewEncoderMetrics(registry)
	require.NoError(t, err)
	return m, registry
}

func TestNewEncoderMetricsRejectsDoubleRegistration(t *testing.T) {
	t.Parallel()
	_, registry := newTestMetrics(t)
	_, err := NewEncoderMetrics(registry)
	assert.Error(t, err)
}

func TestTaskLifecycle(t *testing.T) {
	t.Parallel()
	m, registry := newTestMetrics(t)

	m.TaskStarted()
	m.TaskStarted()
	assert.InDelta(t, 2.0, testutil.ToFloat64(m.tasksInFlight), 0)

	m.TaskFinished("success", 0.5, 4096)
	m.TaskFinished("bad_source", 0.01, 0)

	assert.InDelta(t, 0.0, testutil.ToFloat64(m.tasksInFlight), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.tasksTotal.WithLabelValues("success")), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.tasksTotal.WithLabelValues("bad_source")), 0)
	assert.InDelta(t, 4096.0, testutil.ToFloat64(m.bytesWrittenTotal), 0)

	families, err := registry.Gather()
	require.NoError(t, err)
	hist := findFamily(families, "wavenc_output_file_bytes")
	require.NotNil(t, hist)
	require.Len(t, hist.GetMetric(), 1)
	assert.Equal(t, uint64(1), hist.GetMetric()[0].GetHistogram().GetSampleCount())
}

func TestBatchGauges(t *testing.T) {
	t.Parallel()
	m, _ := newTestMetrics(t)

	m.SetQueueDepth(7)
	m.SetInProgress(3)
	m.RecordRejected("wave-format")
	m.RecordRejected("wave-format")
	m.RecordDiskCheck(1<<30, 1<<20)

	assert.InDelta(t, 7.0, testutil.ToFloat64(m.queueDepth), 0)
	assert.InDelta(t, 3.0, testutil.ToFloat64(m.inProgress), 0)
	assert.InDelta(t, 2.0, testutil.ToFloat64(m.rejectedTotal.WithLabelValues("wave-format")), 0)
	assert.InDelta(t, float64(1<<30), testutil.ToFloat64(m.diskFreeBytes), 0)
	assert.InDelta(t, float64(1<<20), testutil.ToFloat64(m.diskNeededBytes), 0)
}

func findFamily(families []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, f := range families {
		if f.GetName() == name {
			return f
		}
	}
	return nil
}
