// Package instance starts, probes and stops the Todo Manager server.
//
// A Manager either spawns the configured server command in its own process
// group or, when no command is configured, attaches to a server that is
// already running. In both cases the readiness path is polled until the
// server answers 200 OK.
//
// Teardown requests the shutdown endpoint first. A spawned server is then
// sent SIGTERM, given the shutdown timeout to exit, and finally killed
// together with every child in its process group. Teardown failures are
// logged and never returned, so a run's results survive a messy exit.
package instance
