package equations

import "fmt"

type VariableType int

const (
	VarBusV   VariableType = iota // Bus voltage magnitude (p.u.)
	VarBusPhi                     // Bus voltage phase angle (rad)
)

func (t VariableType) String() string {
	switch t {
	case VarBusV:
		return "BUS_V"
	case VarBusPhi:
		return "BUS_PHI"
	default:
		return "UNKNOWN"
	}
}

type VariableKey struct {
	Bus  int
	Type VariableType
}

// Variable is a scalar unknown of the state vector. Instances are owned by
// a Context, one per key, so pointer equality is key equality.
type Variable struct {
	key    VariableKey
	column int
	fixed  bool
}

func (v *Variable) Key() VariableKey { return v.key }
func (v *Variable) Bus() int { return v.key.Bus }
func (v *Variable) Type() VariableType { return v.key.Type }
func (v *Variable) Fixed() bool { return v.fixed }

// Column is the slot of the variable in the state vector, -1 before the
// context is indexed. Unknown variables have columns below
// Context.NumUnknowns and double as Jacobian columns.
func (v *Variable) Column() int { return v.column }

func (v *Variable) String() string {
	return fmt.Sprintf("Variable(bus=%d, type=%s, column=%d)", v.key.Bus, v.key.Type, v.column)
}
