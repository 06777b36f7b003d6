package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds the solver metrics on a private Prometheus registry.
type Registry struct {
	registry *prometheus.Registry

	SolvesTotal       *prometheus.CounterVec
	SolveIterations   prometheus.Histogram
	SolveDuration     *prometheus.HistogramVec
	FinalMaxResidual  prometheus.Gauge
	JacobianNonZeros  prometheus.Gauge
	LinearSolveErrors prometheus.Counter
}

var (
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the process wide registry.
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

func NewRegistry() *Registry {
	r := &Registry{registry: prometheus.NewRegistry()}
	r.initSolverMetrics()
	return r
}

func (r *Registry) initSolverMetrics() {
	r.SolvesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "loadflow_solves_total",
			Help: "Total number of Newton-Raphson solves by final status",
		},
		[]string{"status"},
	)

	r.SolveIterations = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "loadflow_solve_iterations",
			Help:    "Newton-Raphson iterations per solve",
			Buckets: []float64{0, 1, 2, 3, 5, 8, 13, 21, 34},
		},
	)

	r.SolveDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "loadflow_solve_duration_seconds",
			Help:    "Solve duration in seconds",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.1, 1.0, 10.0},
		},
		[]string{"solver"},
	)

	r.FinalMaxResidual = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "loadflow_final_max_residual",
			Help: "Largest absolute mismatch at the end of the last solve",
		},
	)

	r.JacobianNonZeros = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "loadflow_jacobian_nonzeros",
			Help: "Structural non-zeros of the last Jacobian",
		},
	)

	r.LinearSolveErrors = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "loadflow_linear_solve_errors_total",
			Help: "Linear solves that failed on a singular Jacobian",
		},
	)
}

// RecordSolve observes one finished solve. A nil registry is a no-op so
// callers can leave metrics disabled.
func (r *Registry) RecordSolve(solver, status string, iterations int, maxResidual float64, duration time.Duration) {
	if r == nil {
		return
	}
	r.SolvesTotal.WithLabelValues(status).Inc()
	r.SolveIterations.Observe(float64(iterations))
	r.SolveDuration.WithLabelValues(solver).Observe(duration.Seconds())
	r.FinalMaxResidual.Set(maxResidual)
}

func (r *Registry) RecordJacobian(nonZeros int) {
	if r == nil {
		return
	}
	r.JacobianNonZeros.Set(float64(nonZeros))
}

func (r *Registry) RecordLinearSolveError() {
	if r == nil {
		return
	}
	r.LinearSolveErrors.Inc()
}

// GetPrometheusRegistry returns the underlying Prometheus registry.
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
