// Package app bootstraps and runs a benchmark.
//
// NewApplication configures logging and loads the harness configuration.
// Run then executes the run end to end:
//
//  1. Terminate stale server processes from earlier runs
//  2. Start or attach to the Todo Manager server
//  3. Sweep every selected entity kind and export its results
//  4. Run the relationship benchmark when selected
//  5. Write the run manifest and stop the server
//
// Results of a kind are exported even when its sweep fails part way, and the
// server is stopped whatever the outcome.
package app
