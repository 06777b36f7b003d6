package netlist

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/edp1096/toy-loadflow/internal/consts"
	"github.com/edp1096/toy-loadflow/pkg/analysis"
	"github.com/edp1096/toy-loadflow/pkg/network"
)

// Case is a parsed case file: the network snapshot and the solver settings
// found in it.
type Case struct {
	Network *network.Network
	Solver  analysis.Config
}

// Angle is an angle in radians. In a case file it is written in degrees,
// either as a bare number or with a "deg" or "rad" suffix.
type Angle float64

var angleRe = regexp.MustCompile(`^([-+]?\d*\.?\d+(?:[eE][-+]?\d+)?)\s*(deg|rad)?$`)

func ParseAngle(val string) (Angle, error) {
	matches := angleRe.FindStringSubmatch(strings.TrimSpace(val))
	if matches == nil {
		return 0, fmt.Errorf("invalid angle format: %s", val)
	}

	num, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return 0, err
	}
	if matches[2] == "rad" {
		return Angle(num), nil
	}
	return Angle(consts.ToRadians(num)), nil
}

func (a *Angle) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: angle must be a scalar", node.Line)
	}
	v, err := ParseAngle(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*a = v
	return nil
}

type caseFile struct {
	Name     string           `yaml:"name"`
	Solver   *analysis.Config `yaml:"solver"`
	Buses    []caseBus        `yaml:"buses"`
	Branches []caseBranch     `yaml:"branches"`
}

type caseBus struct {
	ID       string  `yaml:"id"`
	NominalV float64 `yaml:"nominal_v"`
	Type     string  `yaml:"type"`
	V        float64 `yaml:"v"`
	Angle    Angle   `yaml:"angle"`
	GenP     float64 `yaml:"gen_p"`
	GenQ     float64 `yaml:"gen_q"`
	LoadP    float64 `yaml:"load_p"`
	LoadQ    float64 `yaml:"load_q"`
	ShuntG   float64 `yaml:"shunt_g"`
	ShuntB   float64 `yaml:"shunt_b"`
}

type caseBranch struct {
	ID         string  `yaml:"id"`
	Bus1       string  `yaml:"bus1"`
	Bus2       string  `yaml:"bus2"`
	Open1      bool    `yaml:"open1"`
	Open2      bool    `yaml:"open2"`
	R          float64 `yaml:"r"`
	X          float64 `yaml:"x"`
	G1         float64 `yaml:"g1"`
	B1         float64 `yaml:"b1"`
	G2         float64 `yaml:"g2"`
	B2         float64 `yaml:"b2"`
	RatedU1    float64 `yaml:"rated_u1"`
	RatedU2    float64 `yaml:"rated_u2"`
	Ratio      float64 `yaml:"ratio"`
	PhaseShift Angle   `yaml:"phase_shift"`
}

func ParseFile(path string) (*Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading case file: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse decodes a YAML case. Unknown keys are rejected so that typos do not
// silently fall back to defaults.
func Parse(input []byte) (*Case, error) {
	solver := analysis.DefaultConfig()
	cf := caseFile{Solver: &solver}

	dec := yaml.NewDecoder(bytes.NewReader(input))
	dec.KnownFields(true)
	if err := dec.Decode(&cf); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty case file")
		}
		return nil, fmt.Errorf("decoding case file: %w", err)
	}
	if cf.Solver == nil {
		cf.Solver = &solver
	}
	if err := cf.Solver.Validate(); err != nil {
		return nil, err
	}

	name := cf.Name
	if name == "" {
		name = "case"
	}
	net := network.New(name)

	for i, b := range cf.Buses {
		typ, err := network.ParseBusType(b.Type)
		if err != nil {
			return nil, fmt.Errorf("bus %d (%s): %w", i, b.ID, err)
		}
		err = net.AddBus(&network.Bus{
			ID:        b.ID,
			NominalV:  b.NominalV,
			Type:      typ,
			TargetV:   b.V,
			TargetPhi: float64(b.Angle),
			GenP:      b.GenP,
			GenQ:      b.GenQ,
			LoadP:     b.LoadP,
			LoadQ:     b.LoadQ,
			ShuntG:    b.ShuntG,
			ShuntB:    b.ShuntB,
		})
		if err != nil {
			return nil, fmt.Errorf("bus %d: %w", i, err)
		}
	}

	for i, br := range cf.Branches {
		err := net.AddBranch(&network.Branch{
			ID:    br.ID,
			Bus1:  br.Bus1,
			Bus2:  br.Bus2,
			Open1: br.Open1,
			Open2: br.Open2,
			Params: network.BranchParameters{
				R:          br.R,
				X:          br.X,
				G1:         br.G1,
				B1:         br.B1,
				G2:         br.G2,
				B2:         br.B2,
				RatedU1:    br.RatedU1,
				RatedU2:    br.RatedU2,
				Ratio:      br.Ratio,
				PhaseShift: float64(br.PhaseShift),
			},
		})
		if err != nil {
			return nil, fmt.Errorf("branch %d: %w", i, err)
		}
	}

	return &Case{Network: net, Solver: *cf.Solver}, nil
}
