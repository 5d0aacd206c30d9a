package swarm

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is matched by every *ConfigurationError.
	ErrConfiguration = errors.New("swarm: invalid configuration")

	// ErrNumerical is matched by every *NumericalError.
	ErrNumerical = errors.New("swarm: numerical failure")
)

// ConfigurationError reports an invalid parameter or initial state.
type ConfigurationError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("swarm: invalid %s (%v): %s", e.Field, e.Value, e.Reason)
}

// Is reports whether target is ErrConfiguration.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// NumericalError reports a degenerate geometric situation that aborts a run:
// two fish at the same position, or a desired direction that cannot be
// normalized. Other is the partner fish for pair failures and -1 otherwise.
type NumericalError struct {
	Step   int
	Fish   int
	Other  int
	Reason string
	Err    error
}

func (e *NumericalError) Error() string {
	if e.Other >= 0 {
		return fmt.Sprintf("swarm: step %d: fish %d and %d: %s", e.Step, e.Fish, e.Other, e.Reason)
	}
	return fmt.Sprintf("swarm: step %d: fish %d: %s", e.Step, e.Fish, e.Reason)
}

// Is reports whether target is ErrNumerical.
func (e *NumericalError) Is(target error) bool {
	return target == ErrNumerical
}

func (e *NumericalError) Unwrap() error {
	return e.Err
}
