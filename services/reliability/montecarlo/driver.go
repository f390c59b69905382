// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package montecarlo

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/AleutianAI/corelife/pkg/logging"
	"github.com/AleutianAI/corelife/services/reliability/aging"
	"github.com/AleutianAI/corelife/services/reliability/grid"
	"github.com/AleutianAI/corelife/services/reliability/stats"
)

// =============================================================================
// RESULT
// =============================================================================

// StopReason records why a run ended.
type StopReason string

const (
	// StopCompleted means fixed mode ran all NumOfTests trials.
	StopCompleted StopReason = "completed"

	// StopConverged means the half-width reached Threshold.
	StopConverged StopReason = "converged"

	// StopMaxTrials means confidence mode hit MaxTrials first.
	StopMaxTrials StopReason = "max_trials"

	// StopCancelled means the context ended between batches.
	StopCancelled StopReason = "cancelled"

	// StopFailed means a trial returned an error. Sums exclude its batch.
	StopFailed StopReason = "failed"
)

// Result summarizes a run.
type Result struct {
	Variant    string        `json:"variant"`
	Trials     int           `json:"trials"`
	Batches    int           `json:"batches"`
	SumTTF     float64       `json:"sum_ttf"`
	SumTTFx2   float64       `json:"sum_ttf_x2"`
	Mean       float64       `json:"mean"`
	StdDev     float64       `json:"std_dev"`
	HalfWidth  float64       `json:"half_width"`
	StopReason StopReason    `json:"stop_reason"`
	Duration   time.Duration `json:"duration"`
}

// Progress is reported after every batch.
type Progress struct {
	Batch     int
	Trials    int
	Sums      stats.Sums
	HalfWidth float64

	// Precision is the value compared against Threshold: HalfWidth, or
	// HalfWidth/Mean with RelativeThreshold.
	Precision float64
}

// =============================================================================
// DRIVER
// =============================================================================

// Option configures a Driver.
type Option func(*Driver)

// WithModel replaces the default Weibull aging model.
func WithModel(m aging.Model) Option {
	return func(d *Driver) { d.model = m }
}

// WithThermal replaces the default coupled thermal model.
func WithThermal(t aging.Thermal) Option {
	return func(d *Driver) { d.thermal = t }
}

// WithEvaluator replaces the default Student t evaluator.
func WithEvaluator(e stats.Evaluator) Option {
	return func(d *Driver) { d.evaluator = e }
}

// WithLogger sets the logger. Default: logging.Nop().
func WithLogger(l *logging.Logger) Option {
	return func(d *Driver) { d.logger = l }
}

// WithProgress registers a callback run on the driver goroutine after
// every batch.
func WithProgress(fn func(Progress)) Option {
	return func(d *Driver) { d.progress = fn }
}

// Driver runs trial batches and decides when to stop.
//
// Description:
//
//	A Driver is built once per configuration and may Run several times;
//	every Run starts from empty sums. Runners (trial state, neighbor
//	graph, RNG) are pooled and reused across trials of a run.
//
// Thread Safety: Run may be called concurrently; runs share nothing but
// the runner pool.
type Driver struct {
	cfg     Config
	geom    grid.Geometry
	variant Variant
	workers int
	shards  int

	model     aging.Model
	thermal   aging.Thermal
	evaluator stats.Evaluator
	logger    *logging.Logger
	progress  func(Progress)

	runners sync.Pool
}

// NewDriver validates cfg and builds a driver.
//
// Inputs:
//   - cfg: Simulation parameters. Validated with Config.Validate.
//   - opts: Model, evaluator and logging overrides.
//
// Outputs:
//   - *Driver: Ready to Run.
//   - error: Wraps ErrInvalidConfig for a degenerate configuration.
func NewDriver(cfg Config, opts ...Option) (*Driver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	geom, _ := grid.NewGeometry(cfg.Rows, cfg.Cols)
	variant, _ := LookupVariant(cfg.Variant)

	d := &Driver{
		cfg:     cfg,
		geom:    geom,
		variant: variant,
		workers: cfg.Workers,
		shards:  cfg.Shards,
		model:   aging.DefaultWeibullModel(),
		thermal: aging.DefaultCoupledThermal(),
	}
	if d.workers == 0 {
		d.workers = runtime.GOMAXPROCS(0)
	}
	if d.shards == 0 {
		d.shards = runtime.GOMAXPROCS(0)
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = logging.Nop()
	}
	if d.evaluator == nil {
		level := cfg.ConfInt
		if !(level > 0 && level < 1) {
			level = 0.95
		}
		ev, err := stats.NewStudentT(level)
		if err != nil {
			return nil, err
		}
		d.evaluator = ev
	}

	d.runners.New = func() any {
		return newRunner(&d.cfg, d.geom, d.variant, d.model, d.thermal, d.shards)
	}
	return d, nil
}

// Config returns the validated configuration.
func (d *Driver) Config() Config { return d.cfg }

// Variant returns the selected variant.
func (d *Driver) Variant() Variant { return d.variant }

// Run executes trials until the stopping rule fires.
//
// Description:
//
//	Fixed mode runs exactly NumOfTests trials in batches of BatchSize.
//	Confidence mode runs full batches and stops once the precision is at
//	most Threshold, or once MaxTrials trials have run. ctx is checked
//	before each batch; a batch in flight always completes.
//
// Inputs:
//   - ctx: Cancellation and tracing context.
//
// Outputs:
//   - *Result: The sums and statistics so far. Never nil, even on error.
//   - error: ctx.Err() wrapped on cancellation, or a wrapped
//     ErrModelOutput if the aging model misbehaved.
func (d *Driver) Run(ctx context.Context) (*Result, error) {
	ctx, span := startRunSpan(ctx, &d.cfg)
	defer span.End()

	start := time.Now()
	acc := stats.NewAccumulator()
	res := &Result{Variant: d.variant.Name}
	logger := d.logger.With("variant", d.variant.Name, "seed", d.cfg.Seed)
	progressLog := &rate.Sometimes{First: 1, Interval: 5 * time.Second}

	logger.Info("run started",
		"grid", fmt.Sprintf("%dx%d", d.cfg.Rows, d.cfg.Cols),
		"min_cores", d.cfg.MinCores,
		"fixed", d.cfg.UseNumOfTests,
		"workers", d.workers,
	)

	finish := func(reason StopReason, err error) (*Result, error) {
		sums := acc.Snapshot()
		res.Trials = sums.N
		res.SumTTF = sums.Sum
		res.SumTTFx2 = sums.SumSq
		res.Mean = sums.Mean()
		res.StdDev = sums.StdDev()
		if d.cfg.UseNumOfTests || res.Batches == 0 {
			res.HalfWidth = d.evaluator.HalfWidth(sums.Sum, sums.SumSq, sums.N)
		}
		res.StopReason = reason
		res.Duration = time.Since(start)

		setRunSpanResult(span, res)
		recordRun(ctx, res)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			logger.Warn("run stopped", "reason", reason, "trials", res.Trials, "error", err)
			return res, err
		}
		logger.Info("run finished",
			"reason", reason,
			"trials", res.Trials,
			"mean_ttf", res.Mean,
			"half_width", res.HalfWidth,
			"duration", res.Duration,
		)
		return res, nil
	}

	for {
		size := d.nextBatchSize(acc.Snapshot().N)
		if size == 0 {
			return finish(StopCompleted, nil)
		}
		if err := ctx.Err(); err != nil {
			return finish(StopCancelled, fmt.Errorf("run cancelled after %d trials: %w", acc.Snapshot().N, err))
		}

		first := acc.Snapshot().N
		batchStart := time.Now()
		outcomes, err := d.runBatch(ctx, res.Batches, first, size)
		if err != nil {
			return finish(StopFailed, err)
		}
		var batch stats.Sums
		for _, o := range outcomes {
			batch = batch.Add(o.TTF)
		}
		acc.Merge(batch)
		res.Batches++
		recordBatch(ctx, d.variant.Name, outcomes, time.Since(batchStart))

		sums := acc.Snapshot()
		p := Progress{Batch: res.Batches, Trials: sums.N, Sums: sums}
		if !d.cfg.UseNumOfTests {
			p.HalfWidth = d.evaluator.HalfWidth(sums.Sum, sums.SumSq, sums.N)
			p.Precision = d.precision(p.HalfWidth, sums.Mean())
			res.HalfWidth = p.HalfWidth
			halfWidthGauge.WithLabelValues(d.variant.Name).Set(p.HalfWidth)
		}
		d.report(logger, progressLog, p)

		if d.cfg.UseNumOfTests {
			continue
		}
		if p.Precision <= d.cfg.Threshold {
			return finish(StopConverged, nil)
		}
		if d.cfg.MaxTrials > 0 && sums.N >= d.cfg.MaxTrials {
			return finish(StopMaxTrials, nil)
		}
	}
}

// nextBatchSize returns the size of the next batch, or 0 when fixed mode
// is done.
func (d *Driver) nextBatchSize(done int) int {
	size := d.cfg.BatchSize
	if d.cfg.UseNumOfTests {
		return min(size, d.cfg.NumOfTests-done)
	}
	if d.cfg.MaxTrials > 0 {
		size = min(size, d.cfg.MaxTrials-done)
	}
	return size
}

// precision is the quantity compared against Threshold. A zero
// half-width is exact even when the mean is zero.
func (d *Driver) precision(halfWidth, mean float64) float64 {
	if !d.cfg.RelativeThreshold || halfWidth == 0 {
		return halfWidth
	}
	if mean == 0 {
		return math.Inf(1)
	}
	return halfWidth / math.Abs(mean)
}

func (d *Driver) report(logger *logging.Logger, sometimes *rate.Sometimes, p Progress) {
	logger.Debug("batch finished", "batch", p.Batch, "trials", p.Trials, "half_width", p.HalfWidth)
	sometimes.Do(func() {
		logger.Info("progress",
			"batch", p.Batch,
			"trials", p.Trials,
			"mean_ttf", p.Sums.Mean(),
			"precision", p.Precision,
		)
	})
	if d.progress != nil {
		d.progress(p)
	}
}

// runBatch runs trials [first, first+size) and returns their outcomes in
// trial order.
func (d *Driver) runBatch(ctx context.Context, batch, first, size int) ([]Outcome, error) {
	_, span := tracer.Start(ctx, "montecarlo.Driver.runBatch",
		trace.WithAttributes(
			attribute.Int("montecarlo.batch", batch),
			attribute.Int("montecarlo.first_trial", first),
			attribute.Int("montecarlo.size", size),
		),
	)
	defer span.End()

	out := make([]Outcome, size)
	var g errgroup.Group
	g.SetLimit(d.workers)

	runRange := func(lo, hi int) error {
		r := d.runners.Get().(*runner)
		defer d.runners.Put(r)
		for i := lo; i < hi; i++ {
			o, err := r.run(first + i)
			if err != nil {
				return err
			}
			out[i] = o
		}
		return nil
	}

	if d.variant.Granularity == Chunked {
		chunk := (size + d.workers - 1) / d.workers
		for lo := 0; lo < size; lo += chunk {
			hi := min(lo+chunk, size)
			g.Go(func() error { return runRange(lo, hi) })
		}
	} else {
		for i := 0; i < size; i++ {
			g.Go(func() error { return runRange(i, i+1) })
		}
	}

	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return out, nil
}
