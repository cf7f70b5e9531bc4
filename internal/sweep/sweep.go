package sweep

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"todoperf/internal/besteffort"
	"todoperf/internal/config"
	"todoperf/internal/measure"
	"todoperf/internal/payload"
	"todoperf/internal/results"
	"todoperf/internal/todoapi"
	"todoperf/pkg/logging"

	"github.com/briandowns/spinner"
)

// ErrNotEmpty is returned by Clear when entities remain after every pass.
var ErrNotEmpty = errors.New("collection is not empty after clearing")

// Sleeper pauses for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the default Sleeper.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Options tune a Sweeper.
type Options struct {
	// Quiet disables the filler progress spinner.
	Quiet bool
	// Progress receives the spinner; defaults to stderr.
	Progress io.Writer
	// Sleep replaces the settle pauses.
	Sleep Sleeper
}

// Sweeper runs the size sweep of one entity kind.
type Sweeper struct {
	entity  *todoapi.Entity
	gen     *payload.Generator
	sampler *measure.Sampler
	sizes   []int
	cfg     config.SweepConfig
	opts    Options
}

// New returns a sweeper over sizes for entity.
func New(entity *todoapi.Entity, gen *payload.Generator, sampler *measure.Sampler, sizes []int, cfg config.SweepConfig, opts Options) *Sweeper {
	if opts.Sleep == nil {
		opts.Sleep = Sleep
	}
	if opts.Progress == nil {
		opts.Progress = os.Stderr
	}
	if cfg.ClearPasses < 1 {
		cfg.ClearPasses = 1
	}
	return &Sweeper{
		entity:  entity,
		gen:     gen,
		sampler: sampler,
		sizes:   sizes,
		cfg:     cfg,
		opts:    opts,
	}
}

// Run sweeps every size in order and records the samples in rec. On a
// transport failure or cancellation the sweep stops and the error is
// returned; samples gathered so far stay in rec.
func (s *Sweeper) Run(ctx context.Context, rec *results.Recorder) error {
	kind := s.entity.Kind()
	logging.Info("Sweep", "Sweeping %s over %d sizes", kind, len(s.sizes))

	for _, size := range s.sizes {
		if err := s.RunSize(ctx, size, rec); err != nil {
			return fmt.Errorf("%s sweep stopped at size %d: %w", kind, size, err)
		}
	}

	logging.Info("Sweep", "Finished %s sweep with %d samples", kind, rec.Len())
	return nil
}

// RunSize measures one size.
func (s *Sweeper) RunSize(ctx context.Context, size int, rec *results.Recorder) error {
	kind := s.entity.Kind()
	logging.Info("Sweep", "Testing %s with %d pre-existing objects", kind, size)

	if err := s.Clear(ctx); err != nil {
		if !errors.Is(err, ErrNotEmpty) {
			return err
		}
		logging.Warn("Sweep", "Measuring %s at size %d on a collection that is not empty", kind, size)
	}
	if err := s.opts.Sleep(ctx, s.cfg.SettleAfterClear); err != nil {
		return err
	}

	if size > 1 {
		if _, err := s.Fill(ctx, size-1); err != nil {
			return err
		}
	}
	if err := s.opts.Sleep(ctx, s.cfg.SettleAfterFill); err != nil {
		return err
	}

	return s.measureCRUD(ctx, size, rec)
}

func (s *Sweeper) measureCRUD(ctx context.Context, size int, rec *results.Recorder) error {
	kind := s.entity.Kind()

	body, err := s.gen.Create()
	if err != nil {
		return err
	}
	resp, sample, err := measure.Measure(s.sampler, measure.OpCreate, size, func() (*todoapi.Response, error) {
		return s.entity.Create(ctx, body)
	})
	if err != nil {
		return err
	}
	rec.Add(sample)

	if !resp.OK() {
		logging.Warn("Sweep", "Create %s at size %d returned %d, skipping update and delete", kind, size, resp.StatusCode)
		return nil
	}
	id, err := s.entity.CreatedID(resp)
	if err != nil {
		logging.Warn("Sweep", "Create %s at size %d returned no id, skipping update and delete: %v", kind, size, err)
		return nil
	}

	if err := s.opts.Sleep(ctx, s.cfg.SettleBetweenOps); err != nil {
		return err
	}

	update, err := s.gen.Update()
	if err != nil {
		return err
	}
	resp, sample, err = measure.Measure(s.sampler, measure.OpUpdate, size, func() (*todoapi.Response, error) {
		return s.entity.Update(ctx, id, update)
	})
	if err != nil {
		return err
	}
	rec.Add(sample)
	if !resp.OK() {
		logging.Warn("Sweep", "Update %s %s at size %d returned %d", kind, id, size, resp.StatusCode)
	}

	if err := s.opts.Sleep(ctx, s.cfg.SettleBetweenOps); err != nil {
		return err
	}

	resp, sample, err = measure.Measure(s.sampler, measure.OpDelete, size, func() (*todoapi.Response, error) {
		return s.entity.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	rec.Add(sample)
	if !resp.OK() {
		logging.Warn("Sweep", "Delete %s %s at size %d returned %d", kind, id, size, resp.StatusCode)
	}

	logging.Info("Sweep", "Size %d: create/update/delete measured for %s", size, kind)
	return nil
}

// Clear deletes every entity of the kind, repeating list and delete until the
// collection is empty or the configured passes are spent. List and delete
// failures are logged and discarded; only cancellation is returned, and
// ErrNotEmpty when entities remain.
func (s *Sweeper) Clear(ctx context.Context) error {
	kind := s.entity.Kind()

	for pass := 1; pass <= s.cfg.ClearPasses; pass++ {
		ids, listed := s.listIDs(ctx)
		if err := ctx.Err(); err != nil {
			return err
		}
		if listed && len(ids) == 0 {
			return nil
		}

		deletes := besteffort.Counter{Subsystem: "Sweep"}
		for _, id := range ids {
			deletes.Run("delete "+kind+" "+id, func() error {
				resp, err := s.entity.Delete(ctx, id)
				if err != nil {
					return err
				}
				if !resp.OK() {
					return &todoapi.StatusError{Method: "DELETE", Path: "/" + kind + "/" + id, StatusCode: resp.StatusCode}
				}
				return nil
			})
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		logging.Debug("Sweep", "Clear pass %d for %s: %d deleted, %d failed", pass, kind, deletes.Succeeded, deletes.Failed)
	}

	ids, listed := s.listIDs(ctx)
	if err := ctx.Err(); err != nil {
		return err
	}
	if listed && len(ids) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %d %s left after %d passes", ErrNotEmpty, len(ids), kind, s.cfg.ClearPasses)
}

// listIDs reports false when the collection could not be listed.
func (s *Sweeper) listIDs(ctx context.Context) ([]string, bool) {
	var ids []string
	listed := true
	_ = besteffort.Run("Sweep", "list "+s.entity.Kind(), func() error {
		var err error
		ids, err = s.entity.ListIDs(ctx)
		if err != nil {
			listed = false
		}
		return err
	})
	return ids, listed
}

// Fill creates n filler entities and returns how many the server accepted.
// Rejected creates are counted and logged; transport failures other than a
// cancelled context are logged too.
func (s *Sweeper) Fill(ctx context.Context, n int) (int, error) {
	kind := s.entity.Kind()

	var spin *spinner.Spinner
	if !s.opts.Quiet {
		spin = spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(s.opts.Progress))
		spin.Suffix = fmt.Sprintf(" Creating %d %s...", n, kind)
		spin.Start()
		defer spin.Stop()
	}

	creates := besteffort.Counter{Subsystem: "Sweep"}
	for i := 0; i < n; i++ {
		body, err := s.gen.Create()
		if err != nil {
			return creates.Succeeded, err
		}
		creates.Run("create filler "+kind, func() error {
			resp, err := s.entity.Create(ctx, body)
			if err != nil {
				return err
			}
			if !resp.OK() {
				return &todoapi.StatusError{Method: "POST", Path: "/" + kind, StatusCode: resp.StatusCode}
			}
			return nil
		})
		if err := ctx.Err(); err != nil {
			return creates.Succeeded, err
		}
		if spin != nil && (i+1)%100 == 0 {
			spin.Lock()
			spin.Suffix = fmt.Sprintf(" Creating %s %d/%d...", kind, i+1, n)
			spin.Unlock()
		}
	}

	if creates.Failed > 0 {
		logging.Warn("Sweep", "%d of %d filler %s could not be created", creates.Failed, n, kind)
	}
	logging.Debug("Sweep", "Created %d filler %s", creates.Succeeded, kind)
	return creates.Succeeded, nil
}
