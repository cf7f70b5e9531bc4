// Package results collects measurement samples and exports them.
//
// A Recorder keeps samples in insertion order, both grouped per operation and
// as a single time series. Document derives the exported form, and Export
// writes it as <kind>_results.json. No deduplication or statistics are
// applied; the exported numbers are the raw samples.
package results
