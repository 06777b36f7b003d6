package analysis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"slices"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/floats"

	"github.com/edp1096/toy-loadflow/internal/metrics"
	"github.com/edp1096/toy-loadflow/pkg/equations"
	"github.com/edp1096/toy-loadflow/pkg/lferrors"
	"github.com/edp1096/toy-loadflow/pkg/matrix"
)

type Status int

const (
	Initialized Status = iota
	Iterating
	Converged
	Diverged
	MaxIterationsReached
	Aborted
)

func (s Status) String() string {
	switch s {
	case Initialized:
		return "INITIALIZED"
	case Iterating:
		return "ITERATING"
	case Converged:
		return "CONVERGED"
	case Diverged:
		return "DIVERGED"
	case MaxIterationsReached:
		return "MAX_ITERATIONS_REACHED"
	case Aborted:
		return "ABORTED"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Diagnostic explains how a solve ended.
type Diagnostic struct {
	FinalIteration    int
	MaxResidual       float64
	OffendingEquation string
	Reason            string
}

// Result is the outcome of one solve. X always holds the last finite state
// reached, whatever the status.
type Result struct {
	Session    uuid.UUID
	Status     Status
	X          []float64
	Iterations int
	Duration   time.Duration
	Diagnostic Diagnostic
}

type Option func(*NewtonRaphson)

func WithLogger(l *slog.Logger) Option {
	return func(nr *NewtonRaphson) {
		if l != nil {
			nr.logger = l
		}
	}
}

func WithMetrics(r *metrics.Registry) Option {
	return func(nr *NewtonRaphson) { nr.metrics = r }
}

// NewtonRaphson solves target − eval(x) = 0 over an indexed equation
// context.
type NewtonRaphson struct {
	cfg     Config
	logger  *slog.Logger
	metrics *metrics.Registry
}

func NewNewtonRaphson(cfg Config, opts ...Option) (*NewtonRaphson, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	nr := &NewtonRaphson{
		cfg:    cfg,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(nr)
	}
	return nr, nil
}

func (nr *NewtonRaphson) Config() Config { return nr.cfg }

// Solve runs Newton-Raphson from x0, which holds one value per variable of
// eqs in column order. Concurrent calls on one solver are independent
// sessions. Invalid inputs are returned as errors; numerical
// failure is reported through Result.Status.
func (nr *NewtonRaphson) Solve(ctx context.Context, eqs *equations.Context, x0 []float64) (*Result, error) {
	if !eqs.IsIndexed() {
		return nil, lferrors.Config("solve", "equation context", errors.New("context not indexed"))
	}
	if len(x0) != eqs.NumVariables() {
		return nil, lferrors.Config("solve", "initial state",
			fmt.Errorf("length %d, want %d", len(x0), eqs.NumVariables()))
	}
	if !allFinite(x0) {
		return nil, lferrors.Config("solve", "initial state", errors.New("non-finite value"))
	}

	ev, err := equations.NewEvaluator(eqs, nr.cfg.Workers)
	if err != nil {
		return nil, err
	}

	n := eqs.NumUnknowns()
	ls, err := matrix.New(nr.cfg.LinearSolver, n)
	if err != nil {
		return nil, err
	}
	defer ls.Destroy()

	if r, ok := ls.(interface{ Reserve(i, j int) }); ok {
		for row := range n {
			for _, col := range eqs.Pattern(row) {
				r.Reserve(row, col)
			}
		}
	}
	nr.metrics.RecordJacobian(eqs.NumNonZeros())

	res := &Result{Session: uuid.New(), X: slices.Clone(x0)}
	log := nr.logger.With("session", res.Session.String())
	log.Info("newton-raphson started",
		"equations", eqs.NumEquations(),
		"unknowns", n,
		"nonzeros", eqs.NumNonZeros(),
		"solver", string(nr.cfg.LinearSolver))

	start := time.Now()
	status := Iterating
	f := make([]float64, n)
	values := make([]float64, eqs.NumNonZeros())

	for iter := 0; ; iter++ {
		res.Diagnostic.FinalIteration = iter

		if err := ctx.Err(); err != nil {
			status = Aborted
			res.Diagnostic.Reason = err.Error()
			break
		}

		if err := ev.Residuals(ctx, res.X, f); err != nil {
			return nil, fmt.Errorf("iteration %d: %w", iter, err)
		}

		maxResidual, row := maxAbs(f)
		res.Diagnostic.MaxResidual = maxResidual
		if row >= 0 {
			res.Diagnostic.OffendingEquation = eqs.Equations()[row].String()
		}
		log.Debug("newton-raphson iteration",
			"iteration", iter,
			"max_residual", maxResidual,
			"equation", res.Diagnostic.OffendingEquation)

		if math.IsNaN(maxResidual) || math.IsInf(maxResidual, 0) {
			status = Diverged
			res.Diagnostic.Reason = "non-finite residual"
			break
		}
		if maxResidual < nr.cfg.Tolerance {
			status = Converged
			break
		}
		if iter >= nr.cfg.MaxIterations {
			status = MaxIterationsReached
			res.Diagnostic.Reason = fmt.Sprintf("no convergence after %d iterations", iter)
			break
		}

		if err := ev.Jacobian(ctx, res.X, values); err != nil {
			return nil, fmt.Errorf("iteration %d: %w", iter, err)
		}

		ls.Clear()
		for row := range n {
			for k, col := range eqs.Pattern(row) {
				ls.AddElement(row, col, values[eqs.Slot(row, k)])
			}
			ls.AddRHS(row, f[row])
		}
		if iter == 0 && log.Enabled(ctx, slog.LevelDebug) {
			s := ls.Summary()
			log.Debug("jacobian loaded",
				"size", s.Size,
				"nonzeros", s.NonZeros,
				"density_pct", s.Density,
				"largest", s.LargestAbs,
				"smallest_diag", s.SmallestDiag)
		}

		dx, err := ls.Solve()
		if err != nil {
			if errors.Is(err, matrix.ErrSingular) {
				nr.metrics.RecordLinearSolveError()
				status = Diverged
				res.Diagnostic.Reason = err.Error()
				break
			}
			return nil, fmt.Errorf("iteration %d: %w", iter, err)
		}
		if !allFinite(dx) {
			status = Diverged
			res.Diagnostic.Reason = "non-finite update"
			break
		}

		floats.Add(res.X[:n], dx)
		res.Iterations = iter + 1
	}

	res.Status = status
	res.Duration = time.Since(start)
	nr.metrics.RecordSolve(string(nr.cfg.LinearSolver), res.Status.String(),
		res.Iterations, res.Diagnostic.MaxResidual, res.Duration)

	attrs := []any{
		"status", res.Status.String(),
		"iterations", res.Iterations,
		"max_residual", res.Diagnostic.MaxResidual,
		"duration", res.Duration,
	}
	if res.Status == Converged {
		log.Info("newton-raphson finished", attrs...)
	} else {
		log.Warn("newton-raphson finished", append(attrs,
			"equation", res.Diagnostic.OffendingEquation,
			"reason", res.Diagnostic.Reason)...)
	}
	return res, nil
}

// maxAbs returns the infinity norm of f and the row holding it, -1 for an
// empty vector. A NaN entry wins.
func maxAbs(f []float64) (float64, int) {
	if len(f) == 0 {
		return 0, -1
	}
	if floats.HasNaN(f) {
		for i, v := range f {
			if math.IsNaN(v) {
				return math.NaN(), i
			}
		}
	}
	norm := floats.Norm(f, math.Inf(1))
	for i, v := range f {
		if math.Abs(v) == norm {
			return norm, i
		}
	}
	return norm, 0
}

func allFinite(x []float64) bool {
	for _, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
