package scenario

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	apperrors "optpricer/internal/errors"
	"optpricer/internal/logging"
	"optpricer/internal/market"
	"optpricer/internal/metrics"
	"optpricer/internal/models"
	"optpricer/internal/pricing"
	"optpricer/internal/results"
	"optpricer/internal/shift"
	"optpricer/internal/workerpool"
)

// Runner evaluates portfolios over scenario grids.
type Runner struct {
	// Workers bounds parallelism; 0 means runtime.NumCPU() and 1 evaluates
	// inline on the calling goroutine.
	Workers int
	Logger  zerolog.Logger
	Metrics *metrics.Metrics
	// Evaluate defaults to pricing.Evaluate.
	Evaluate pricing.EvaluateFunc
}

// NewRunner creates a runner.
func NewRunner(workers int, logger zerolog.Logger) *Runner {
	return &Runner{
		Workers:  workers,
		Logger:   logger,
		Evaluate: pricing.Evaluate,
	}
}

// Price values the portfolio under the baseline only.
func (r *Runner) Price(ctx context.Context, p *models.Portfolio, baseline market.Environment, measures []pricing.Measure) (*results.ResultSet, error) {
	return r.Run(ctx, p, baseline, nil, measures)
}

// Run evaluates every instrument at every grid point. Either every point
// succeeds and the full result set is returned, or the run fails as a whole:
// scheduling stops at the first failure and the failure with the lowest flat
// grid index among those observed is returned as a *GridError.
func (r *Runner) Run(ctx context.Context, p *models.Portfolio, baseline market.Environment, axes []shift.Axis, measures []pricing.Measure) (*results.ResultSet, error) {
	start := time.Now()
	runID := uuid.NewString()
	logger := logging.WithRunID(r.Logger, runID)

	rs, err := r.run(ctx, logger, runID, p, baseline, axes, measures)
	if err != nil {
		kind := apperrors.KindName(err)
		r.Metrics.ObserveFailure(kind, time.Since(start))
		logging.LogRunFailed(logger, kind, time.Since(start), err)
		return nil, err
	}

	r.Metrics.ObserveSuccess(rs.Points(), len(rs.Instruments), time.Since(start))
	logging.LogRunComplete(logger, rs.Points(), time.Since(start))
	return rs, nil
}

func (r *Runner) run(ctx context.Context, logger zerolog.Logger, runID string, p *models.Portfolio, baseline market.Environment, axes []shift.Axis, measures []pricing.Measure) (*results.ResultSet, error) {
	measures, err := checkMeasures(measures)
	if err != nil {
		return nil, err
	}
	grid, err := NewGrid(axes)
	if err != nil {
		return nil, err
	}

	if p == nil {
		return nil, apperrors.NewValidationError("portfolio", nil, "must not be nil")
	}

	evaluate := r.Evaluate
	if evaluate == nil {
		evaluate = pricing.Evaluate
	}
	positions := p.Positions()
	agg := results.NewAggregator(grid.Size(), len(positions), measures)

	evalPoint := func(flat int) error {
		coord := grid.Coordinate(flat)
		env, err := grid.Environment(baseline, coord)
		if err != nil {
			return apperrors.NewGridError(coord, -1, "", err)
		}
		for i, pos := range positions {
			res, err := evaluate(pos.Instrument, env)
			if err != nil {
				return apperrors.NewGridError(coord, i, pos.ID, err)
			}
			agg.Put(flat, i, res.ForSize(pos.Size))
		}
		return nil
	}

	workers := r.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > grid.Size() {
		workers = grid.Size()
	}
	logging.LogRunStart(logger, grid.Shape(), len(positions), workers)

	if workers == 1 {
		err = runInline(ctx, grid.Size(), evalPoint)
	} else {
		err = runPooled(ctx, logger, workers, grid.Size(), evalPoint)
	}
	if err != nil {
		return nil, err
	}

	labels := make([]results.InstrumentLabel, len(positions))
	for i, pos := range positions {
		labels[i] = results.InstrumentLabel{
			ID:         pos.ID,
			Underlying: pos.Instrument.Underlying(),
			Kind:       string(pos.Instrument.Kind()),
			Size:       pos.Size,
		}
	}
	return agg.Build(runID, grid.Labels(), labels), nil
}

func runInline(ctx context.Context, size int, evalPoint func(int) error) error {
	for flat := 0; flat < size; flat++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := evalPoint(flat); err != nil {
			return err
		}
	}
	return nil
}

// firstFailure keeps the failure with the lowest flat index.
type firstFailure struct {
	mu     sync.Mutex
	index  int
	err    error
	failed atomic.Bool
}

func (f *firstFailure) record(flat int, err error) {
	f.mu.Lock()
	if f.err == nil || flat < f.index {
		f.index = flat
		f.err = err
	}
	f.mu.Unlock()
	f.failed.Store(true)
}

func runPooled(ctx context.Context, logger zerolog.Logger, workers, size int, evalPoint func(int) error) error {
	pool := workerpool.New(workers)
	pool.Start()

	var (
		failure firstFailure
		done    atomic.Int64
	)
	for flat := 0; flat < size; flat++ {
		if failure.failed.Load() {
			break
		}
		flat := flat
		err := pool.Submit(ctx, func() {
			if failure.failed.Load() || ctx.Err() != nil {
				return
			}
			if err := evalPoint(flat); err != nil {
				failure.record(flat, err)
				return
			}
			done.Add(1)
		})
		if err != nil {
			break
		}
	}
	pool.Stop()

	stats := pool.Stats()
	logger.Debug().
		Int("workers", stats.Workers).
		Uint64("tasks_submitted", stats.TasksTotal).
		Int64("points_done", done.Load()).
		Msg("Worker pool drained")

	if failure.err != nil {
		return failure.err
	}
	if int(done.Load()) < size {
		if err := ctx.Err(); err != nil {
			return err
		}
		return context.Canceled
	}
	return nil
}

func checkMeasures(measures []pricing.Measure) ([]pricing.Measure, error) {
	names := make([]string, len(measures))
	for i, m := range measures {
		names[i] = string(m)
	}
	return pricing.ParseMeasures(names)
}
