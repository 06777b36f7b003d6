package analysis

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/edp1096/toy-loadflow/pkg/matrix"
)

var validate = validator.New()

// Config holds the Newton-Raphson settings. It is read from the solver
// section of a case file and may be overridden from the command line.
type Config struct {
	MaxIterations int           `yaml:"max_iterations" validate:"gte=1"`
	Tolerance     float64       `yaml:"tolerance" validate:"gt=0"`
	LinearSolver  matrix.Kind   `yaml:"linear_solver" validate:"omitempty,oneof=sparse dense"`
	Workers       int           `yaml:"workers" validate:"gte=0"`
	Timeout       time.Duration `yaml:"timeout" validate:"gte=0"`
	FlatStart     bool          `yaml:"flat_start"`
}

func DefaultConfig() Config {
	return Config{
		MaxIterations: 30,
		Tolerance:     1e-6,
		LinearSolver:  matrix.KindSparse,
		Workers:       1,
		FlatStart:     true,
	}
}

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid solver config: %w", err)
	}
	return nil
}
