package measure

import (
	"errors"
	"time"
)

// ErrUnsupported is returned by NewProcessProbe on platforms without procfs.
var ErrUnsupported = errors.New("process probe is not supported on this platform")

// Usage is a snapshot of a process's accumulated CPU time and resident memory.
type Usage struct {
	CPUTime time.Duration
	RSS     uint64
}

// Probe reads the current usage of a process.
type Probe interface {
	Usage() (Usage, error)
}

// NopProbe reports zero usage. Samples taken with it carry latency only.
type NopProbe struct{}

// Usage implements Probe.
func (NopProbe) Usage() (Usage, error) {
	return Usage{}, nil
}
