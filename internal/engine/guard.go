package engine

import (
	"errors"
	"fmt"
)

// ErrNotReconciled is returned when the live loop is started before offline
// progress has been reconciled.
var ErrNotReconciled = errors.New("engine: offline progress not reconciled")

// guard calls fn, turning a panic inside a collaborator into an error so one
// subsystem cannot stop the clock.
func guard(name string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: panic: %v", name, r)
		}
	}()
	if err := fn(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}
