package network

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/edp1096/toy-loadflow/pkg/lferrors"
)

var validate = validator.New()

type BusType int

const (
	PQ BusType = iota // Load bus
	PV                // Voltage controlled bus
	Slack             // Reference bus
)

func (t BusType) String() string {
	switch t {
	case PQ:
		return "PQ"
	case PV:
		return "PV"
	case Slack:
		return "SLACK"
	default:
		return "UNKNOWN"
	}
}

func ParseBusType(s string) (BusType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "PQ", "LOAD":
		return PQ, nil
	case "PV", "GEN":
		return PV, nil
	case "SLACK", "REF", "SWING":
		return Slack, nil
	default:
		return PQ, fmt.Errorf("unknown bus type %q", s)
	}
}

// Bus is a network node. Powers are per-unit on the system base, TargetV
// is per-unit and TargetPhi is in radians.
type Bus struct {
	Num       int
	ID        string  `validate:"required"`
	NominalV  float64 `validate:"gt=0"` // kV
	Type      BusType `validate:"gte=0,lte=2"`
	TargetV   float64 `validate:"gte=0"`
	TargetPhi float64
	GenP      float64
	GenQ      float64
	LoadP     float64
	LoadQ     float64
	ShuntG    float64
	ShuntB    float64
}

// NetP is the scheduled active injection (generation minus load).
func (b *Bus) NetP() float64 { return b.GenP - b.LoadP }

// NetQ is the scheduled reactive injection (generation minus load).
func (b *Bus) NetQ() float64 { return b.GenQ - b.LoadQ }

// Branch is a two-port element between Bus1 and Bus2. Open1/Open2 mark a
// disconnected terminal.
type Branch struct {
	Num    int
	ID     string `validate:"required"`
	Bus1   string `validate:"required"`
	Bus2   string `validate:"required,nefield=Bus1"`
	Open1  bool
	Open2  bool
	Params BranchParameters
}

// IsDisconnected reports a branch open on both sides; it carries no term.
func (br *Branch) IsDisconnected() bool { return br.Open1 && br.Open2 }

// Network is the finalized snapshot consumed by the engine.
type Network struct {
	Name     string
	buses    []*Bus
	branches []*Branch
	busMap   map[string]int
}

func New(name string) *Network {
	return &Network{
		Name:     name,
		buses:    make([]*Bus, 0),
		branches: make([]*Branch, 0),
		busMap:   make(map[string]int),
	}
}

func (n *Network) AddBus(b *Bus) error {
	if err := validate.Struct(b); err != nil {
		return lferrors.Config("add bus", b.ID, fmt.Errorf("%w: %v", lferrors.ErrInvalidNetwork, err))
	}
	if _, exists := n.busMap[b.ID]; exists {
		return lferrors.Config("add bus", b.ID, lferrors.ErrDuplicateBus)
	}
	b.Num = len(n.buses)
	n.busMap[b.ID] = b.Num
	n.buses = append(n.buses, b)
	return nil
}

func (n *Network) AddBranch(br *Branch) error {
	if err := validate.Struct(br); err != nil {
		return lferrors.Config("add branch", br.ID, fmt.Errorf("%w: %v", lferrors.ErrInvalidNetwork, err))
	}
	for _, id := range []string{br.Bus1, br.Bus2} {
		if _, exists := n.busMap[id]; !exists {
			return lferrors.Config("add branch", br.ID, fmt.Errorf("%w: %s", lferrors.ErrUnknownBus, id))
		}
	}
	br.Num = len(n.branches)
	n.branches = append(n.branches, br)
	return nil
}

func (n *Network) Buses() []*Bus { return n.buses }

func (n *Network) Branches() []*Branch { return n.branches }

func (n *Network) Bus(id string) (*Bus, bool) {
	num, ok := n.busMap[id]
	if !ok {
		return nil, false
	}
	return n.buses[num], true
}

func (n *Network) Bus1(br *Branch) *Bus { return n.buses[n.busMap[br.Bus1]] }

func (n *Network) Bus2(br *Branch) *Bus { return n.buses[n.busMap[br.Bus2]] }

// SlackBus returns the single reference bus.
func (n *Network) SlackBus() (*Bus, error) {
	var slack *Bus
	for _, b := range n.buses {
		if b.Type != Slack {
			continue
		}
		if slack != nil {
			return nil, lferrors.Config("slack bus", n.Name,
				fmt.Errorf("%w: more than one slack bus (%s, %s)", lferrors.ErrInvalidNetwork, slack.ID, b.ID))
		}
		slack = b
	}
	if slack == nil {
		return nil, lferrors.Config("slack bus", n.Name, fmt.Errorf("%w: no slack bus", lferrors.ErrInvalidNetwork))
	}
	return slack, nil
}

// Validate checks the snapshot as a whole: bus count, one slack bus and
// voltage targets for slack/PV buses.
func (n *Network) Validate() error {
	if len(n.buses) == 0 {
		return lferrors.Config("validate", n.Name, fmt.Errorf("%w: no bus", lferrors.ErrInvalidNetwork))
	}
	if _, err := n.SlackBus(); err != nil {
		return err
	}

	var errs []error
	for _, b := range n.buses {
		if b.Type != PQ && b.TargetV <= 0 {
			errs = append(errs, fmt.Errorf("bus %s: %s bus needs a positive target voltage", b.ID, b.Type))
		}
	}
	if len(errs) > 0 {
		return lferrors.Config("validate", n.Name, fmt.Errorf("%w: %w", lferrors.ErrInvalidNetwork, errors.Join(errs...)))
	}
	return nil
}
