package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/fieldsync/internal/models"
)

func gather(t *testing.T, reg *prometheus.Registry) map[string]float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)

	out := make(map[string]float64)
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				out[mf.GetName()] += m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				out[mf.GetName()] = m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				out[mf.GetName()] = float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	return out
}

func TestSync_Records(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)

	m.Pushed(models.EntityObservation)
	m.Pushed(models.EntityTrial)
	m.Failed(models.EntityTrial)
	m.Merged(models.EntityGermplasm, 3)
	m.Conflict()
	m.Pending(4)
	m.Cycle(ResultOK, 150*time.Millisecond)

	got := gather(t, reg)
	assert.Equal(t, 2.0, got["fieldsync_sync_pushed_documents_total"])
	assert.Equal(t, 1.0, got["fieldsync_sync_push_failures_total"])
	assert.Equal(t, 3.0, got["fieldsync_sync_merged_documents_total"])
	assert.Equal(t, 1.0, got["fieldsync_sync_conflicts_total"])
	assert.Equal(t, 4.0, got["fieldsync_sync_pending_documents"])
	assert.Equal(t, 1.0, got["fieldsync_sync_cycles_total"])
	assert.Equal(t, 1.0, got["fieldsync_sync_cycle_duration_seconds"])
}

func TestNew_DoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)

	_, err = New(reg)
	assert.Error(t, err)
}

func TestSync_NilIsNoop(t *testing.T) {
	var m *Sync
	assert.NotPanics(t, func() {
		m.Pushed(models.EntityTrial)
		m.Failed(models.EntityTrial)
		m.Merged(models.EntityTrial, 1)
		m.Conflict()
		m.Pending(1)
		m.Cycle(ResultError, time.Second)
	})
}
