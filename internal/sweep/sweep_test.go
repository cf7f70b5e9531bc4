package sweep

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"todoperf/internal/config"
	"todoperf/internal/measure"
	"todoperf/internal/payload"
	"todoperf/internal/results"
	"todoperf/internal/todoapi"
	"todoperf/internal/todoapi/todoapitest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedSleeps struct {
	pauses []time.Duration
}

func (r *recordedSleeps) sleep(ctx context.Context, d time.Duration) error {
	r.pauses = append(r.pauses, d)
	return ctx.Err()
}

func newSweeper(t *testing.T, baseURL string, sizes []int, sleeps *recordedSleeps) *Sweeper {
	t.Helper()

	entityCfg := config.DefaultEntities()[config.KindTodos]
	gen, err := payload.NewGenerator(entityCfg)
	require.NoError(t, err)

	entity := todoapi.NewClient(baseURL, 5*time.Second).Entity(config.KindTodos, entityCfg)
	sampler := measure.NewSampler(measure.NopProbe{}, 0)
	opts := Options{Quiet: true}
	if sleeps != nil {
		opts.Sleep = sleeps.sleep
	} else {
		opts.Sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	}
	return New(entity, gen, sampler, sizes, config.DefaultConfig().Sweep, opts)
}

func sizesOf(samples []measure.Sample) []int {
	out := make([]int, 0, len(samples))
	for _, s := range samples {
		out = append(out, s.Size)
	}
	return out
}

func TestSweeper_OneSamplePerOperationAndSize(t *testing.T) {
	srv := todoapitest.NewServer(config.KindTodos)
	defer srv.Close()

	rec := results.NewRecorder()
	require.NoError(t, newSweeper(t, srv.URL, []int{1, 5, 10}, nil).Run(context.Background(), rec))

	for _, op := range []measure.Operation{measure.OpCreate, measure.OpUpdate, measure.OpDelete} {
		assert.Equal(t, []int{1, 5, 10}, sizesOf(rec.Samples(op)), "operation %s", op)
	}
	assert.Equal(t, 9, rec.Len())

	var ops []measure.Operation
	for _, s := range rec.Series()[:3] {
		ops = append(ops, s.Operation)
	}
	assert.Equal(t, []measure.Operation{measure.OpCreate, measure.OpUpdate, measure.OpDelete}, ops)
}

func TestSweeper_SizeFiveCreatesFourFillers(t *testing.T) {
	srv := todoapitest.NewServer(config.KindTodos)
	defer srv.Close()

	rec := results.NewRecorder()
	sleeps := &recordedSleeps{}
	require.NoError(t, newSweeper(t, srv.URL, []int{5}, sleeps).Run(context.Background(), rec))

	assert.Equal(t, 5, srv.Calls("POST /todos"), "4 fillers and 1 measured create")
	assert.Equal(t, 1, srv.Calls("PUT /todos/:id"))
	assert.Equal(t, 1, srv.Calls("DELETE /todos/:id"))
	assert.Equal(t, []int{5, 5, 5}, sizesOf(rec.Series()))
	// the measured entity is gone, the fillers remain
	assert.Equal(t, 4, srv.Count(config.KindTodos))

	sweep := config.DefaultConfig().Sweep
	assert.Equal(t, []time.Duration{
		sweep.SettleAfterClear,
		sweep.SettleAfterFill,
		sweep.SettleBetweenOps,
		sweep.SettleBetweenOps,
	}, sleeps.pauses)
}

func TestSweeper_SizeOneSkipsFilling(t *testing.T) {
	srv := todoapitest.NewServer(config.KindTodos)
	defer srv.Close()

	srv.Seed(config.KindTodos, 3)
	rec := results.NewRecorder()
	sleeps := &recordedSleeps{}
	require.NoError(t, newSweeper(t, srv.URL, []int{1}, sleeps).Run(context.Background(), rec))

	assert.Equal(t, 1, srv.Calls("POST /todos"))
	assert.Equal(t, 0, srv.Count(config.KindTodos))

	// the fill settle pause is kept even without fillers
	sweep := config.DefaultConfig().Sweep
	assert.Equal(t, []time.Duration{
		sweep.SettleAfterClear,
		sweep.SettleAfterFill,
		sweep.SettleBetweenOps,
		sweep.SettleBetweenOps,
	}, sleeps.pauses)
}

func TestSweeper_FailedCreateSkipsUpdateAndDelete(t *testing.T) {
	srv := todoapitest.NewServer(config.KindTodos)
	defer srv.Close()

	// size 1 has no fillers, so the first POST is its measured create
	srv.CreateStatus = func(_ string, n int) int {
		if n == 1 {
			return http.StatusInternalServerError
		}
		return 0
	}

	rec := results.NewRecorder()
	require.NoError(t, newSweeper(t, srv.URL, []int{1, 2}, nil).Run(context.Background(), rec))

	assert.Equal(t, []int{1, 2}, sizesOf(rec.Samples(measure.OpCreate)))
	assert.Equal(t, []int{2}, sizesOf(rec.Samples(measure.OpUpdate)))
	assert.Equal(t, []int{2}, sizesOf(rec.Samples(measure.OpDelete)))
}

func TestSweeper_Clear(t *testing.T) {
	srv := todoapitest.NewServer(config.KindTodos)
	defer srv.Close()

	srv.Seed(config.KindTodos, 7)
	s := newSweeper(t, srv.URL, []int{1}, nil)

	require.NoError(t, s.Clear(context.Background()))
	assert.Equal(t, 0, srv.Count(config.KindTodos))
	assert.Equal(t, 7, srv.Calls("DELETE /todos/:id"))

	ids, err := s.entity.ListIDs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestSweeper_ClearReportsLeftovers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			_, _ = w.Write([]byte(`{"todos":[{"id":"1"},{"id":"2"}]}`))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := newSweeper(t, srv.URL, []int{1}, nil).Clear(context.Background())
	assert.ErrorIs(t, err, ErrNotEmpty)
}

func TestSweeper_ClearToleratesListFailures(t *testing.T) {
	var lists atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if lists.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"todos":[]}`))
	}))
	defer srv.Close()

	require.NoError(t, newSweeper(t, srv.URL, []int{1}, nil).Clear(context.Background()))
	assert.Equal(t, int32(2), lists.Load())
}

func TestSweeper_TransportErrorReturnsPartialSamples(t *testing.T) {
	var posts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			_, _ = w.Write([]byte(`{"todos":[]}`))
		case http.MethodPost:
			if posts.Add(1) > 1 {
				conn, _, err := w.(http.Hijacker).Hijack()
				if err == nil {
					_ = conn.Close()
				}
				return
			}
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id":"1"}`))
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer srv.Close()

	rec := results.NewRecorder()
	err := newSweeper(t, srv.URL, []int{1, 2}, nil).Run(context.Background(), rec)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "size 2")
	assert.Equal(t, 3, rec.Len())
	assert.Equal(t, []int{1, 1, 1}, sizesOf(rec.Series()))
}

func TestSweeper_Cancelled(t *testing.T) {
	srv := todoapitest.NewServer(config.KindTodos)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := results.NewRecorder()
	err := newSweeper(t, srv.URL, []int{1, 5}, nil).Run(ctx, rec)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Zero(t, rec.Len())
}

func TestFill_CountsRejectedCreates(t *testing.T) {
	srv := todoapitest.NewServer(config.KindTodos)
	defer srv.Close()

	srv.CreateStatus = func(_ string, n int) int {
		if n%2 == 0 {
			return http.StatusBadRequest
		}
		return 0
	}

	created, err := newSweeper(t, srv.URL, []int{1}, nil).Fill(context.Background(), 6)
	require.NoError(t, err)
	assert.Equal(t, 3, created)
	assert.Equal(t, 3, srv.Count(config.KindTodos))
}

func TestSleep(t *testing.T) {
	require.NoError(t, Sleep(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Sleep(ctx, time.Hour), context.Canceled)
}
