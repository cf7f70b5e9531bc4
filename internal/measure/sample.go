// Package measure samples latency, CPU and resident memory around a single
// operation.
package measure

import "time"

// Operation names a measured call.
type Operation string

// Operations measured by the data-set sweep.
const (
	OpCreate Operation = "Create"
	OpUpdate Operation = "Update"
	OpDelete Operation = "Delete"
)

// Sample is the measurement of one call. Samples are never mutated after
// Measure returns them.
type Sample struct {
	Operation Operation
	// Size is the number of entities that existed when the call was made.
	Size     int
	Duration time.Duration
	// CPUPercent is the CPU consumed by the probed process between priming
	// and the end of the call, relative to wall time.
	CPUPercent float64
	// MemoryDeltaMB is the absolute change of resident memory across the call.
	MemoryDeltaMB float64
	Timestamp     time.Time
}

// DurationMs returns Duration as fractional milliseconds.
func (s Sample) DurationMs() float64 {
	return float64(s.Duration) / float64(time.Millisecond)
}
