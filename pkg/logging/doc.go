// Package logging provides the structured logging used across todoperf.
//
// It wraps Go's standard slog package with a small subsystem-oriented API so
// that every log line carries the component that produced it:
//
//	logging.InitForCLI(logging.LevelInfo, os.Stderr)
//
//	logging.Info("Sweep", "Testing with %d pre-existing %s", size, kind)
//	logging.Debug("TodoAPI", "%s %s -> %d", method, url, status)
//	logging.Warn("Instance", "Shutdown endpoint unreachable")
//	logging.Error("Results", err, "Failed to write %s", path)
//
// Subsystems in use: Bootstrap, Config, Instance, Sweep, Sampler, Results,
// Relations, TodoAPI and BestEffort.
//
// Until InitForCLI is called, messages go to the global slog default logger.
// The helpers are safe for concurrent use.
package logging
