package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func TestRecorder_ObserveGrantIncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	r, err := New(reg)
	require.NoError(t, err)

	r.ObserveGrant("harq")
	r.ObserveGrant("harq")

	families, err := reg.Gather()
	require.NoError(t, err)
	require.True(t, counterValue(families, "pucch_grants_total", "harq") == 2)
}

func TestRecorder_NilRecorderIsNoOp(t *testing.T) {
	var r *Recorder
	require.NotPanics(t, func() {
		r.ObserveGrant("harq")
		r.ObserveFailure("resource_busy")
		r.ObserveMerge()
		r.ObserveCodeRate(0.5)
		r.ObserveDeltaPRI(3)
	})
}

func counterValue(families []*dto.MetricFamily, name, label string) float64 {
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetValue() == label {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return -1
}
