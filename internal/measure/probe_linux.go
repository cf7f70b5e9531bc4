//go:build linux

package measure

import (
	"fmt"
	"time"

	"github.com/prometheus/procfs"
)

// ProcProbe reads /proc/<pid>/stat.
type ProcProbe struct {
	fs  procfs.FS
	pid int
}

// NewProcessProbe returns a probe for pid; pid 0 probes the current process.
func NewProcessProbe(pid int) (Probe, error) {
	fs, err := procfs.NewDefaultFS()
	if err != nil {
		return nil, fmt.Errorf("failed to open procfs: %w", err)
	}
	p := &ProcProbe{fs: fs, pid: pid}
	if _, err := p.Usage(); err != nil {
		return nil, err
	}
	return p, nil
}

// Usage implements Probe.
func (p *ProcProbe) Usage() (Usage, error) {
	var (
		proc procfs.Proc
		err  error
	)
	if p.pid == 0 {
		proc, err = p.fs.Self()
	} else {
		proc, err = p.fs.Proc(p.pid)
	}
	if err != nil {
		return Usage{}, fmt.Errorf("failed to open process %d: %w", p.pid, err)
	}

	stat, err := proc.Stat()
	if err != nil {
		return Usage{}, fmt.Errorf("failed to read process stat: %w", err)
	}
	return Usage{
		CPUTime: time.Duration(stat.CPUTime() * float64(time.Second)),
		RSS:     uint64(stat.ResidentMemory()),
	}, nil
}
