package ac

import "fmt"

// Quantity selects what a branch term evaluates.
type Quantity int

const (
	ActivePower Quantity = iota
	ReactivePower
	CurrentMagnitude
)

func (q Quantity) String() string {
	switch q {
	case ActivePower:
		return "P"
	case ReactivePower:
		return "Q"
	case CurrentMagnitude:
		return "I"
	default:
		return "?"
	}
}

type Side int

const (
	Side1 Side = 1
	Side2 Side = 2
)

func (s Side) Other() Side {
	if s == Side1 {
		return Side2
	}
	return Side1
}

func termName(kind string, q Quantity, s Side) string {
	return fmt.Sprintf("%s%s%d", kind, q, s)
}
