package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	require.NotNil(t, r)
	assert.NotNil(t, r.SolvesTotal)
	assert.NotNil(t, r.SolveIterations)
	assert.NotNil(t, r.SolveDuration)
	assert.NotNil(t, r.FinalMaxResidual)
	assert.NotNil(t, r.GetPrometheusRegistry())
}

func TestDefaultRegistry(t *testing.T) {
	assert.Same(t, DefaultRegistry(), DefaultRegistry())
}

func TestRecordSolve(t *testing.T) {
	r := NewRegistry()

	r.RecordSolve("sparse", "CONVERGED", 3, 1e-9, 2*time.Millisecond)
	r.RecordSolve("sparse", "CONVERGED", 4, 1e-8, 3*time.Millisecond)
	r.RecordSolve("dense", "DIVERGED", 7, 0.5, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.SolvesTotal.WithLabelValues("CONVERGED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.SolvesTotal.WithLabelValues("DIVERGED")))
	assert.Equal(t, 0.5, testutil.ToFloat64(r.FinalMaxResidual))
	assert.Equal(t, 1, testutil.CollectAndCount(r.SolveIterations))

	families, err := r.GetPrometheusRegistry().Gather()
	require.NoError(t, err)
	var found bool
	for _, f := range families {
		if f.GetName() != "loadflow_solve_iterations" {
			continue
		}
		found = true
		require.Len(t, f.GetMetric(), 1)
		h := f.GetMetric()[0].GetHistogram()
		assert.Equal(t, uint64(3), h.GetSampleCount())
		assert.Equal(t, 14.0, h.GetSampleSum())
	}
	assert.True(t, found)
}

func TestRecordJacobianAndErrors(t *testing.T) {
	r := NewRegistry()

	r.RecordJacobian(12)
	r.RecordLinearSolveError()
	r.RecordLinearSolveError()

	assert.Equal(t, 12.0, testutil.ToFloat64(r.JacobianNonZeros))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.LinearSolveErrors))
}

func TestNilRegistryIsNoop(t *testing.T) {
	var r *Registry
	assert.NotPanics(t, func() {
		r.RecordSolve("sparse", "CONVERGED", 1, 0, time.Millisecond)
		r.RecordJacobian(4)
		r.RecordLinearSolveError()
	})
}

func TestGatherMetricNames(t *testing.T) {
	r := NewRegistry()
	r.RecordSolve("sparse", "CONVERGED", 2, 0, time.Millisecond)

	families, err := r.GetPrometheusRegistry().Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"loadflow_solves_total",
		"loadflow_solve_iterations",
		"loadflow_solve_duration_seconds",
		"loadflow_final_max_residual",
	} {
		assert.True(t, names[want], "missing %s", want)
	}
}
