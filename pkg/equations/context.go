package equations

import (
	"fmt"
	"slices"

	"github.com/edp1096/toy-loadflow/pkg/lferrors"
)

// Context is the registry of equations and variables of one solve session.
// It hands out one instance per key and, once indexed, a stable row per
// equation and column per variable.
type Context struct {
	equations []*Equation
	eqMap     map[EquationKey]*Equation
	variables []*Variable
	varMap    map[VariableKey]*Variable

	indexed     bool
	numUnknowns int
	columns     []*Variable // by column
	pattern     [][]int     // by row, sorted unknown columns
	slotStart   []int       // by row, offset into the Jacobian value buffer
}

func NewContext() *Context {
	return &Context{
		equations: make([]*Equation, 0),
		eqMap:     make(map[EquationKey]*Equation),
		variables: make([]*Variable, 0),
		varMap:    make(map[VariableKey]*Variable),
	}
}

// Equation returns the equation for (bus, typ), creating it on first use.
func (c *Context) Equation(bus int, typ EquationType) (*Equation, error) {
	key := EquationKey{Bus: bus, Type: typ}
	if eq, exists := c.eqMap[key]; exists {
		return eq, nil
	}
	if c.indexed {
		return nil, lferrors.Config("equation", fmt.Sprintf("bus %d %s", bus, typ), lferrors.ErrFrozenContext)
	}
	eq := &Equation{key: key, row: -1, ctx: c}
	c.eqMap[key] = eq
	c.equations = append(c.equations, eq)
	return eq, nil
}

// Variable returns the variable for (bus, typ), creating it on first use.
func (c *Context) Variable(bus int, typ VariableType) (*Variable, error) {
	key := VariableKey{Bus: bus, Type: typ}
	if v, exists := c.varMap[key]; exists {
		return v, nil
	}
	if c.indexed {
		return nil, lferrors.Config("variable", fmt.Sprintf("bus %d %s", bus, typ), lferrors.ErrFrozenContext)
	}
	v := &Variable{key: key, column: -1}
	c.varMap[key] = v
	c.variables = append(c.variables, v)
	return v, nil
}

// FixVariable returns the variable for (bus, typ) and excludes it from the
// unknowns: it keeps a state vector slot but never a Jacobian column.
func (c *Context) FixVariable(bus int, typ VariableType) (*Variable, error) {
	v, err := c.Variable(bus, typ)
	if err != nil {
		return nil, err
	}
	if c.indexed && !v.fixed {
		return nil, lferrors.Config("fix variable", v.String(), lferrors.ErrFrozenContext)
	}
	v.fixed = true
	return v, nil
}

func (c *Context) LookupEquation(bus int, typ EquationType) (*Equation, bool) {
	eq, ok := c.eqMap[EquationKey{Bus: bus, Type: typ}]
	return eq, ok
}

func (c *Context) LookupVariable(bus int, typ VariableType) (*Variable, bool) {
	v, ok := c.varMap[VariableKey{Bus: bus, Type: typ}]
	return v, ok
}

// Index freezes the context. Rows follow equation registration order,
// columns follow variable registration order with unknowns first and fixed
// variables after them. The system must be square.
func (c *Context) Index() error {
	if c.indexed {
		return lferrors.Config("index", "", lferrors.ErrFrozenContext)
	}

	unknowns := 0
	for _, v := range c.variables {
		if !v.fixed {
			unknowns++
		}
	}
	if unknowns != len(c.equations) {
		return lferrors.Config("index", "",
			fmt.Errorf("%w: %d equations, %d unknowns", lferrors.ErrUnbalancedSystem, len(c.equations), unknowns))
	}

	for row, eq := range c.equations {
		eq.row = row
	}

	c.columns = make([]*Variable, len(c.variables))
	unknownCol, fixedCol := 0, unknowns
	for _, v := range c.variables {
		if v.fixed {
			v.column = fixedCol
			fixedCol++
		} else {
			v.column = unknownCol
			unknownCol++
		}
		c.columns[v.column] = v
	}

	c.pattern = make([][]int, len(c.equations))
	c.slotStart = make([]int, len(c.equations)+1)
	for row, eq := range c.equations {
		cols := make([]int, 0)
		for _, t := range eq.terms {
			for _, v := range t.Variables() {
				if v.fixed || slices.Contains(cols, v.column) {
					continue
				}
				cols = append(cols, v.column)
			}
		}
		slices.Sort(cols)
		c.pattern[row] = cols
		c.slotStart[row+1] = c.slotStart[row] + len(cols)
	}

	c.numUnknowns = unknowns
	c.indexed = true
	return nil
}

func (c *Context) IsIndexed() bool { return c.indexed }

func (c *Context) Equations() []*Equation { return c.equations }

func (c *Context) Variables() []*Variable { return c.variables }

func (c *Context) NumEquations() int { return len(c.equations) }

func (c *Context) NumUnknowns() int { return c.numUnknowns }

// NumVariables is the state vector length.
func (c *Context) NumVariables() int { return len(c.variables) }

// VariableAt returns the variable owning a state vector column.
func (c *Context) VariableAt(column int) *Variable { return c.columns[column] }

// Pattern returns the sorted Jacobian columns of row.
func (c *Context) Pattern(row int) []int { return c.pattern[row] }

// NumNonZeros is the Jacobian value buffer length.
func (c *Context) NumNonZeros() int {
	if !c.indexed {
		return 0
	}
	return c.slotStart[len(c.equations)]
}

// Slot is the offset of (row, k-th pattern column) in the value buffer.
func (c *Context) Slot(row, k int) int { return c.slotStart[row] + k }

// NewStateVector allocates x and fills every slot with init(v).
func (c *Context) NewStateVector(init func(v *Variable) float64) ([]float64, error) {
	if !c.indexed {
		return nil, fmt.Errorf("state vector: context not indexed")
	}
	x := make([]float64, len(c.variables))
	for _, v := range c.variables {
		x[v.column] = init(v)
	}
	return x, nil
}
