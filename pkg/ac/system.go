package ac

import (
	"fmt"

	"github.com/edp1096/toy-loadflow/pkg/equations"
	"github.com/edp1096/toy-loadflow/pkg/network"
)

// BranchFlows keeps the flow terms of an in-service branch for result
// reporting. Terms of an open side are nil.
type BranchFlows struct {
	Branch *network.Branch
	Closed *ClosedBranch
	Open   *OpenBranchContext

	P1, Q1, I1 equations.Term
	P2, Q2, I2 equations.Term
}

// System is the AC equation system of one network snapshot.
type System struct {
	Network *network.Network
	Context *equations.Context
	Flows   []*BranchFlows

	inService []bool
	vVars     []*equations.Variable
	phVars    []*equations.Variable
}

// BuildSystem registers variables, equations and terms for every bus
// energized from the slack bus through closed branches. Buses outside that
// component are out of service and get neither variables nor equations.
func BuildSystem(net *network.Network) (*System, error) {
	if err := net.Validate(); err != nil {
		return nil, err
	}

	chars := make([]*network.BranchCharacteristics, len(net.Branches()))
	for i, br := range net.Branches() {
		bc, err := network.NewBranchCharacteristics(br.Params)
		if err != nil {
			return nil, fmt.Errorf("branch %s: %w", br.ID, err)
		}
		chars[i] = bc
	}

	s := &System{
		Network:   net,
		Context:   equations.NewContext(),
		Flows:     make([]*BranchFlows, 0, len(net.Branches())),
		inService: energizedBuses(net),
		vVars:     make([]*equations.Variable, len(net.Buses())),
		phVars:    make([]*equations.Variable, len(net.Buses())),
	}

	if err := s.createVariables(); err != nil {
		return nil, err
	}
	if err := s.createBusEquations(); err != nil {
		return nil, err
	}

	for i, br := range net.Branches() {
		if err := s.addBranch(br, chars[i]); err != nil {
			return nil, fmt.Errorf("branch %s: %w", br.ID, err)
		}
	}

	if err := s.Context.Index(); err != nil {
		return nil, fmt.Errorf("network %s: %w", net.Name, err)
	}
	return s, nil
}

func energizedBuses(net *network.Network) []bool {
	inService := make([]bool, len(net.Buses()))
	slack, _ := net.SlackBus()

	adjacency := make([][]int, len(net.Buses()))
	for _, br := range net.Branches() {
		if br.Open1 || br.Open2 {
			continue
		}
		n1, n2 := net.Bus1(br).Num, net.Bus2(br).Num
		adjacency[n1] = append(adjacency[n1], n2)
		adjacency[n2] = append(adjacency[n2], n1)
	}

	queue := []int{slack.Num}
	inService[slack.Num] = true
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, m := range adjacency[n] {
			if !inService[m] {
				inService[m] = true
				queue = append(queue, m)
			}
		}
	}
	return inService
}

func (s *System) createVariables() error {
	for _, bus := range s.Network.Buses() {
		if !s.inService[bus.Num] {
			continue
		}
		get := s.Context.Variable
		if bus.Type == network.Slack {
			get = s.Context.FixVariable
		}
		v, err := get(bus.Num, equations.VarBusV)
		if err != nil {
			return err
		}
		ph, err := get(bus.Num, equations.VarBusPhi)
		if err != nil {
			return err
		}
		s.vVars[bus.Num], s.phVars[bus.Num] = v, ph
	}
	return nil
}

func (s *System) createBusEquations() error {
	for _, bus := range s.Network.Buses() {
		if !s.inService[bus.Num] || bus.Type == network.Slack {
			continue
		}

		p, err := s.Context.Equation(bus.Num, equations.EqBusP)
		if err != nil {
			return err
		}
		p.Target = bus.NetP()

		switch bus.Type {
		case network.PV:
			eq, err := s.Context.Equation(bus.Num, equations.EqBusV)
			if err != nil {
				return err
			}
			eq.Target = bus.TargetV
			if err := eq.AddTerm(NewBusVoltageTerm(s.vVars[bus.Num])); err != nil {
				return err
			}
		default:
			eq, err := s.Context.Equation(bus.Num, equations.EqBusQ)
			if err != nil {
				return err
			}
			eq.Target = bus.NetQ()
		}

		if bus.ShuntG != 0 {
			if err := s.addTerm(bus.Num, equations.EqBusP, NewBusShuntTerm(s.vVars[bus.Num], bus.ShuntG, bus.ShuntB, ActivePower)); err != nil {
				return err
			}
		}
		if bus.ShuntB != 0 {
			if err := s.addTerm(bus.Num, equations.EqBusQ, NewBusShuntTerm(s.vVars[bus.Num], bus.ShuntG, bus.ShuntB, ReactivePower)); err != nil {
				return err
			}
		}
	}
	return nil
}

// addTerm registers t on (bus, typ) when that equation exists; slack and PV
// buses have no equation for some quantities.
func (s *System) addTerm(bus int, typ equations.EquationType, t equations.Term) error {
	eq, ok := s.Context.LookupEquation(bus, typ)
	if !ok {
		return nil
	}
	return eq.AddTerm(t)
}

func (s *System) addBranch(br *network.Branch, bc *network.BranchCharacteristics) error {
	n1, n2 := s.Network.Bus1(br).Num, s.Network.Bus2(br).Num
	flows := &BranchFlows{Branch: br}

	switch {
	case br.IsDisconnected():
		return nil

	case !br.Open1 && !br.Open2:
		if !s.inService[n1] {
			return nil
		}
		closed := NewClosedBranch(bc, s.vVars[n1], s.phVars[n1], s.vVars[n2], s.phVars[n2])
		flows.Closed = closed
		flows.P1 = NewClosedBranchTerm(closed, ActivePower, Side1)
		flows.Q1 = NewClosedBranchTerm(closed, ReactivePower, Side1)
		flows.I1 = NewClosedBranchTerm(closed, CurrentMagnitude, Side1)
		flows.P2 = NewClosedBranchTerm(closed, ActivePower, Side2)
		flows.Q2 = NewClosedBranchTerm(closed, ReactivePower, Side2)
		flows.I2 = NewClosedBranchTerm(closed, CurrentMagnitude, Side2)

	case br.Open2:
		if !s.inService[n1] {
			return nil
		}
		open, err := NewOpenBranchSide2Context(bc, s.vVars[n1])
		if err != nil {
			return err
		}
		flows.Open = open
		flows.P1 = NewOpenBranchTerm(open, ActivePower)
		flows.Q1 = NewOpenBranchTerm(open, ReactivePower)
		flows.I1 = NewOpenBranchTerm(open, CurrentMagnitude)

	default:
		if !s.inService[n2] {
			return nil
		}
		open, err := NewOpenBranchSide1Context(bc, s.vVars[n2])
		if err != nil {
			return err
		}
		flows.Open = open
		flows.P2 = NewOpenBranchTerm(open, ActivePower)
		flows.Q2 = NewOpenBranchTerm(open, ReactivePower)
		flows.I2 = NewOpenBranchTerm(open, CurrentMagnitude)
	}

	if flows.P1 != nil {
		if err := s.addTerm(n1, equations.EqBusP, flows.P1); err != nil {
			return err
		}
		if err := s.addTerm(n1, equations.EqBusQ, flows.Q1); err != nil {
			return err
		}
	}
	if flows.P2 != nil {
		if err := s.addTerm(n2, equations.EqBusP, flows.P2); err != nil {
			return err
		}
		if err := s.addTerm(n2, equations.EqBusQ, flows.Q2); err != nil {
			return err
		}
	}

	s.Flows = append(s.Flows, flows)
	return nil
}

func (s *System) InService(bus int) bool { return s.inService[bus] }

// BusVariables returns the magnitude and angle variables of an in-service
// bus.
func (s *System) BusVariables(bus int) (v, ph *equations.Variable, ok bool) {
	if !s.inService[bus] {
		return nil, nil, false
	}
	return s.vVars[bus], s.phVars[bus], true
}
