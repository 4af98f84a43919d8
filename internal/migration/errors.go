package migration

import (
	"errors"
	"fmt"
)

var (
	// ErrDeployStep matches every failure of a deployment step.
	ErrDeployStep = errors.New("deployment step failed")
	// ErrLocked is returned when another migration holds the network lock.
	ErrLocked = errors.New("migration already in progress")
	// ErrSymbolTaken is returned when the symbol preflight finds an existing token.
	ErrSymbolTaken = errors.New("token symbol already exists on network")
)

// StepError reports which step of the sequence aborted the migration.
type StepError struct {
	Step int
	Unit string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("deployment step %d (%s) failed: %v", e.Step, e.Unit, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

func (e *StepError) Is(target error) bool {
	return target == ErrDeployStep
}
