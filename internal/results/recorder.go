package results

import (
	"sync"

	"todoperf/internal/measure"
)

// Recorder accumulates the samples of one sweep.
type Recorder struct {
	mu     sync.RWMutex
	byOp   map[measure.Operation][]measure.Sample
	series []measure.Sample
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		byOp: make(map[measure.Operation][]measure.Sample),
	}
}

// Add appends sample to its operation list and to the time series.
func (r *Recorder) Add(sample measure.Sample) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byOp[sample.Operation] = append(r.byOp[sample.Operation], sample)
	r.series = append(r.series, sample)
}

// Samples returns a copy of the samples recorded for op.
func (r *Recorder) Samples(op measure.Operation) []measure.Sample {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]measure.Sample(nil), r.byOp[op]...)
}

// Series returns a copy of every sample in insertion order.
func (r *Recorder) Series() []measure.Sample {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]measure.Sample(nil), r.series...)
}

// Len returns the number of recorded samples.
func (r *Recorder) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.series)
}
