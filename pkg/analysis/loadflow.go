package analysis

import (
	"context"
	"fmt"
	"math"

	"github.com/edp1096/toy-loadflow/internal/consts"
	"github.com/edp1096/toy-loadflow/pkg/ac"
	"github.com/edp1096/toy-loadflow/pkg/equations"
	"github.com/edp1096/toy-loadflow/pkg/network"
)

// BusState is a voltage magnitude (p.u.) and angle (rad) used to warm start
// a load flow.
type BusState struct {
	V   float64
	Phi float64
}

type BusResult struct {
	ID        string
	Type      network.BusType
	InService bool
	V         float64 // p.u.
	Phi       float64 // rad
	P         float64 // computed injection, p.u.
	Q         float64
}

type BranchResult struct {
	ID           string
	Open1, Open2 bool
	P1, Q1, I1   float64
	P2, Q2, I2   float64
}

// Losses is the active power consumed by the branch.
func (b BranchResult) Losses() float64 { return b.P1 + b.P2 }

// Report is the load flow outcome in network terms.
type Report struct {
	Status     Status
	Iterations int
	Diagnostic Diagnostic
	Buses      []BusResult
	Branches   []BranchResult

	SlackP, SlackQ  float64
	TotalGeneration float64
	TotalLoad       float64
	TotalLosses     float64
	Disconnected    []string
}

// LoadFlow runs an AC load flow on one network snapshot.
type LoadFlow struct {
	BaseAnalysis
	opts    []Option
	system  *ac.System
	initial map[string]BusState
	result  *Result
	report  *Report
}

func NewLoadFlow(cfg Config, opts ...Option) (*LoadFlow, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &LoadFlow{BaseAnalysis: *NewBaseAnalysis(cfg), opts: opts}, nil
}

// Setup builds the equation system. Configuration errors such as a
// degenerate branch surface here, before any iteration.
func (lf *LoadFlow) Setup(net *network.Network) error {
	sys, err := ac.BuildSystem(net)
	if err != nil {
		return fmt.Errorf("load flow setup: %w", err)
	}
	lf.Network = net
	lf.system = sys
	lf.result, lf.report = nil, nil
	return nil
}

// SetInitialState warm starts the next Execute from the given bus states,
// keyed by bus ID. Buses absent from the map start flat.
func (lf *LoadFlow) SetInitialState(states map[string]BusState) {
	lf.initial = states
}

// State returns the bus states of the last solve, suitable for
// SetInitialState.
func (lf *LoadFlow) State() map[string]BusState {
	if lf.report == nil {
		return nil
	}
	states := make(map[string]BusState, len(lf.report.Buses))
	for _, b := range lf.report.Buses {
		if b.InService {
			states[b.ID] = BusState{V: b.V, Phi: b.Phi}
		}
	}
	return states
}

func (lf *LoadFlow) System() *ac.System { return lf.system }

func (lf *LoadFlow) Result() *Result { return lf.result }

func (lf *LoadFlow) Report() *Report { return lf.report }

func (lf *LoadFlow) Execute(ctx context.Context) error {
	if lf.system == nil {
		return fmt.Errorf("load flow: Setup not called")
	}
	if lf.Config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, lf.Config.Timeout)
		defer cancel()
	}

	nr, err := NewNewtonRaphson(lf.Config, lf.opts...)
	if err != nil {
		return err
	}

	warm := !lf.Config.FlatStart && len(lf.initial) > 0
	x0, err := lf.initialState(warm)
	if err != nil {
		return err
	}
	res, err := nr.Solve(ctx, lf.system.Context, x0)
	if err != nil {
		return fmt.Errorf("load flow: %w", err)
	}

	// A warm start far from the solution may fail where a flat start succeeds.
	if warm && (res.Status == Diverged || res.Status == MaxIterationsReached) {
		nr.logger.Warn("warm start failed, retrying from flat start", "status", res.Status.String())
		if x0, err = lf.initialState(false); err != nil {
			return err
		}
		if res, err = nr.Solve(ctx, lf.system.Context, x0); err != nil {
			return fmt.Errorf("load flow: %w", err)
		}
	}

	lf.result = res
	lf.report = lf.buildReport(res)
	lf.storeResults()
	return nil
}

func (lf *LoadFlow) initialState(warm bool) ([]float64, error) {
	net := lf.Network
	return lf.system.Context.NewStateVector(func(v *equations.Variable) float64 {
		bus := net.Buses()[v.Bus()]
		if bus.Type == network.Slack {
			if v.Type() == equations.VarBusV {
				return bus.TargetV
			}
			return bus.TargetPhi
		}
		if warm {
			if s, ok := lf.initial[bus.ID]; ok {
				if v.Type() == equations.VarBusV {
					return s.V
				}
				return s.Phi
			}
		}
		if v.Type() == equations.VarBusV {
			if bus.Type == network.PV {
				return bus.TargetV
			}
			return consts.FLAT_V
		}
		return consts.FLAT_PHI
	})
}

func (lf *LoadFlow) buildReport(res *Result) *Report {
	net := lf.Network
	x := res.X
	rep := &Report{
		Status:     res.Status,
		Iterations: res.Iterations,
		Diagnostic: res.Diagnostic,
		Buses:      make([]BusResult, len(net.Buses())),
		Branches:   make([]BranchResult, 0, len(lf.system.Flows)),
	}

	for i, bus := range net.Buses() {
		br := BusResult{ID: bus.ID, Type: bus.Type}
		if v, ph, ok := lf.system.BusVariables(bus.Num); ok {
			br.InService = true
			br.V = x[v.Column()]
			br.Phi = x[ph.Column()]
			br.P = bus.ShuntG * br.V * br.V
			br.Q = -bus.ShuntB * br.V * br.V
		} else {
			rep.Disconnected = append(rep.Disconnected, bus.ID)
		}
		rep.Buses[i] = br
	}

	for _, fl := range lf.system.Flows {
		r := BranchResult{
			ID:    fl.Branch.ID,
			Open1: fl.Branch.Open1,
			Open2: fl.Branch.Open2,
			P1:    evalOrZero(fl.P1, x),
			Q1:    evalOrZero(fl.Q1, x),
			I1:    evalOrZero(fl.I1, x),
			P2:    evalOrZero(fl.P2, x),
			Q2:    evalOrZero(fl.Q2, x),
			I2:    evalOrZero(fl.I2, x),
		}
		n1, n2 := net.Bus1(fl.Branch).Num, net.Bus2(fl.Branch).Num
		rep.Buses[n1].P += r.P1
		rep.Buses[n1].Q += r.Q1
		rep.Buses[n2].P += r.P2
		rep.Buses[n2].Q += r.Q2
		rep.TotalLosses += r.Losses()
		rep.Branches = append(rep.Branches, r)
	}

	for i, bus := range net.Buses() {
		b := rep.Buses[i]
		if !b.InService {
			continue
		}
		rep.TotalLoad += bus.LoadP
		if bus.Type == network.Slack {
			rep.SlackP = b.P + bus.LoadP
			rep.SlackQ = b.Q + bus.LoadQ
			rep.TotalGeneration += rep.SlackP
		} else {
			rep.TotalGeneration += bus.GenP
		}
	}
	return rep
}

func evalOrZero(t equations.Term, x []float64) float64 {
	if t == nil {
		return 0
	}
	return t.Eval(x)
}

func (lf *LoadFlow) storeResults() {
	lf.resetResults()
	rep := lf.report
	for _, b := range rep.Buses {
		if !b.InService {
			continue
		}
		lf.StoreResult(busKey("V", b.ID), b.V)
		lf.StoreResult(busKey("PHI", b.ID), consts.ToDegrees(b.Phi))
		lf.StoreResult(busKey("P", b.ID), b.P)
		lf.StoreResult(busKey("Q", b.ID), b.Q)
	}
	for _, br := range rep.Branches {
		lf.StoreResult(busKey("P1", br.ID), br.P1)
		lf.StoreResult(busKey("Q1", br.ID), br.Q1)
		lf.StoreResult(busKey("I1", br.ID), br.I1)
		lf.StoreResult(busKey("P2", br.ID), br.P2)
		lf.StoreResult(busKey("Q2", br.ID), br.Q2)
		lf.StoreResult(busKey("I2", br.ID), br.I2)
	}
	lf.StoreResult("ITERATIONS", float64(rep.Iterations))
	lf.StoreResult("LOSSES", rep.TotalLosses)
	if math.IsNaN(rep.Diagnostic.MaxResidual) {
		return
	}
	lf.StoreResult("MAX_RESIDUAL", rep.Diagnostic.MaxResidual)
}
