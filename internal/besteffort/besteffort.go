// Package besteffort runs operations whose failure must not fail the run,
// such as cleanup deletes and server teardown, while keeping every discarded
// error visible in the logs.
package besteffort

import (
	"errors"

	"todoperf/pkg/logging"
)

// Class matches the errors an operation is allowed to drop.
type Class func(error) bool

// Any matches every error.
func Any(error) bool { return true }

// Is matches errors wrapping target.
func Is(target error) Class {
	return func(err error) bool { return errors.Is(err, target) }
}

// Run executes fn. An error matching one of classes is logged as a warning
// under subsystem and discarded; with no classes every error is discarded.
// Errors matching no class are returned unchanged.
func Run(subsystem, what string, fn func() error, classes ...Class) error {
	err := fn()
	if err == nil {
		return nil
	}

	if len(classes) == 0 {
		classes = []Class{Any}
	}
	for _, matches := range classes {
		if matches(err) {
			logging.Warn(subsystem, "Ignoring failure to %s: %v", what, err)
			return nil
		}
	}
	return err
}

// Counter runs many best-effort operations and keeps the number of failures
// it discarded.
type Counter struct {
	Subsystem string
	Failed    int
	Succeeded int
}

// Run executes fn like the package-level Run, discarding every error.
func (c *Counter) Run(what string, fn func() error) {
	if err := fn(); err != nil {
		c.Failed++
		logging.Debug(c.Subsystem, "Ignoring failure to %s: %v", what, err)
		return
	}
	c.Succeeded++
}
