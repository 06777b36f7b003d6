package lferrors

import (
	"errors"
	"fmt"
)

// Contract violations. They are never recoverable within a solve.
var (
	ErrDegenerateBranch = errors.New("degenerate branch")
	ErrUnknownVariable  = errors.New("unknown variable")
	ErrDuplicateTerm    = errors.New("duplicate term registration")
	ErrDuplicateBus     = errors.New("duplicate bus")
	ErrUnknownBus       = errors.New("unknown bus")
	ErrFrozenContext    = errors.New("equation context already indexed")
	ErrUnbalancedSystem = errors.New("equation count does not match unknown count")
	ErrInvalidNetwork   = errors.New("invalid network")
)

// ConfigurationError reports a model-construction or input contract
// violation detected before or during a solve.
type ConfigurationError struct {
	Op      string
	Subject string
	Err     error
}

func (e *ConfigurationError) Error() string {
	if e.Subject == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Subject, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

func Config(op, subject string, err error) error {
	return &ConfigurationError{Op: op, Subject: subject, Err: err}
}

// IsConfiguration reports whether err is, or wraps, a ConfigurationError.
func IsConfiguration(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
