package measure

import (
	"math"
	"time"

	"todoperf/pkg/logging"
)

const bytesPerMB = 1024 * 1024

// Sampler wraps single calls with a measurement.
type Sampler struct {
	probe      Probe
	primeDelay time.Duration
	now        func() time.Time
	sleep      func(time.Duration)

	probeFailed bool
}

// Option configures a Sampler.
type Option func(*Sampler)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Sampler) { s.now = now }
}

// WithSleep replaces time.Sleep for the priming delay.
func WithSleep(sleep func(time.Duration)) Option {
	return func(s *Sampler) { s.sleep = sleep }
}

// NewSampler returns a sampler reading usage from probe. A nil probe samples
// latency only.
func NewSampler(probe Probe, primeDelay time.Duration, opts ...Option) *Sampler {
	if probe == nil {
		probe = NopProbe{}
	}
	s := &Sampler{
		probe:      probe,
		primeDelay: primeDelay,
		now:        time.Now,
		sleep:      time.Sleep,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Measure runs fn exactly once and measures it. The error of fn is returned
// unchanged together with the sample, so callers decide whether a failed call
// still counts.
func Measure[T any](s *Sampler, op Operation, size int, fn func() (T, error)) (T, Sample, error) {
	primed := s.usage()
	primedAt := s.now()
	if s.primeDelay > 0 {
		s.sleep(s.primeDelay)
	}

	before := s.usage()
	start := s.now()
	result, err := fn()
	end := s.now()
	after := s.usage()

	sample := Sample{
		Operation:     op,
		Size:          size,
		Duration:      end.Sub(start),
		CPUPercent:    cpuPercent(primed.CPUTime, after.CPUTime, end.Sub(primedAt)),
		MemoryDeltaMB: math.Abs(float64(after.RSS)-float64(before.RSS)) / bytesPerMB,
		Timestamp:     end,
	}
	logging.Debug("Sampler", "%s at size %d took %s (cpu %.2f%%, mem %.3f MB)",
		op, size, sample.Duration, sample.CPUPercent, sample.MemoryDeltaMB)
	return result, sample, err
}

// usage returns a zero snapshot when the probe fails so the sample still
// carries its latency. The first failure is logged.
func (s *Sampler) usage() Usage {
	u, err := s.probe.Usage()
	if err != nil {
		if !s.probeFailed {
			logging.Warn("Sampler", "Process probe failed, CPU and memory will read zero: %v", err)
			s.probeFailed = true
		}
		return Usage{}
	}
	return u
}

func cpuPercent(from, to time.Duration, wall time.Duration) float64 {
	if wall <= 0 || to <= from {
		return 0
	}
	return 100 * float64(to-from) / float64(wall)
}
