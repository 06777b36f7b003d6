package equations

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Evaluator computes residuals and Jacobian values of an indexed context.
// Rows are split into chunks handled by up to Workers goroutines; each row
// writes only its own output slots so no locking is needed.
type Evaluator struct {
	ctx     *Context
	Workers int
}

func NewEvaluator(c *Context, workers int) (*Evaluator, error) {
	if !c.IsIndexed() {
		return nil, fmt.Errorf("evaluator: context not indexed")
	}
	if workers < 1 {
		workers = 1
	}
	return &Evaluator{ctx: c, Workers: workers}, nil
}

// Residuals writes Target − Eval(x) of every equation into f[row].
func (ev *Evaluator) Residuals(ctx context.Context, x, f []float64) error {
	eqs := ev.ctx.Equations()
	if len(f) != len(eqs) {
		return fmt.Errorf("residuals: buffer length %d, want %d", len(f), len(eqs))
	}
	return ev.forEachRow(ctx, func(row int) error {
		f[row] = eqs[row].Residual(x)
		return nil
	})
}

// Jacobian writes ∂eval(row)/∂x(col) for every pattern entry into
// values[Slot(row, k)].
func (ev *Evaluator) Jacobian(ctx context.Context, x, values []float64) error {
	if len(values) != ev.ctx.NumNonZeros() {
		return fmt.Errorf("jacobian: buffer length %d, want %d", len(values), ev.ctx.NumNonZeros())
	}
	eqs := ev.ctx.Equations()
	return ev.forEachRow(ctx, func(row int) error {
		eq := eqs[row]
		for k, col := range ev.ctx.Pattern(row) {
			d, err := eq.Der(ev.ctx.VariableAt(col), x)
			if err != nil {
				return err
			}
			values[ev.ctx.Slot(row, k)] = d
		}
		return nil
	})
}

func (ev *Evaluator) forEachRow(ctx context.Context, fn func(row int) error) error {
	n := ev.ctx.NumEquations()
	if ev.Workers <= 1 || n < 2*ev.Workers {
		for row := range n {
			if err := fn(row); err != nil {
				return err
			}
		}
		return nil
	}

	g, _ := errgroup.WithContext(ctx)
	chunk := (n + ev.Workers - 1) / ev.Workers
	for start := 0; start < n; start += chunk {
		end := min(start+chunk, n)
		g.Go(func() error {
			for row := start; row < end; row++ {
				if err := fn(row); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return g.Wait()
}
