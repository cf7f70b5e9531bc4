//go:build !linux

package measure

// NewProcessProbe always fails outside Linux.
func NewProcessProbe(pid int) (Probe, error) {
	return nil, ErrUnsupported
}
