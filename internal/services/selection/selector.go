// Package selection runs a batch of fits on a bounded worker pool and ranks
// the candidates under several criteria.
package selection

import (
	"context"
	"runtime"
	"sync/atomic"
	"time"

	"BubbleScope/internal/domain/models"
	domsvc "BubbleScope/internal/domain/service"
	"BubbleScope/internal/services/lppl"
	"BubbleScope/internal/services/optimizer"
	"BubbleScope/internal/services/quality"
	"BubbleScope/pkg/logger"

	"golang.org/x/sync/errgroup"
)

var _ domsvc.Selector = (*Selector)(nil)

// Option configures Selector.
type Option func(*Selector)

// WithWorkers bounds the number of concurrent fits. 1 runs sequentially.
func WithWorkers(n int) Option {
	return func(s *Selector) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithFitter replaces the default optimizer.
func WithFitter(f domsvc.Fitter) Option {
	return func(s *Selector) { s.fitter = f }
}

// WithEvaluator replaces the default quality evaluator.
func WithEvaluator(e domsvc.QualityEvaluator) Option {
	return func(s *Selector) { s.eval = e }
}

// WithStabilityRadius sets the normalized parameter distance under which two
// candidates count as neighbours.
func WithStabilityRadius(r float64) Option {
	return func(s *Selector) { s.radius = r }
}

// WithDefaultTimeout is the per-fit timeout used when the strategy has no budget.
func WithDefaultTimeout(d time.Duration) Option {
	return func(s *Selector) { s.defaultTimeout = d }
}

func WithLogger(l *logger.Logger) Option {
	return func(s *Selector) { s.log = l }
}

type Selector struct {
	fitter         domsvc.Fitter
	eval           domsvc.QualityEvaluator
	workers        int
	radius         float64
	defaultTimeout time.Duration
	log            *logger.Logger
}

func New(opts ...Option) *Selector {
	s := &Selector{
		fitter:         optimizer.New(),
		eval:           quality.NewEvaluator(quality.DefaultThresholds()),
		workers:        runtime.GOMAXPROCS(0),
		radius:         0.05,
		defaultTimeout: 2 * time.Second,
		log:            logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run fits every seed and ranks the results. Candidates keep seed order
// regardless of scheduling. When ctx is cancelled no new fit starts; the
// remaining seeds are recorded as not started and Cancelled is set.
func (s *Selector) Run(ctx context.Context, plan models.FitPlan, data *models.NormalizedSeries, seeds []models.ParameterVector) *models.SelectionResult {
	started := time.Now()
	timeout := plan.Strategy.PerFitTimeout()
	if timeout <= 0 {
		timeout = s.defaultTimeout
	}

	cands := make([]models.FittingCandidate, len(seeds))
	var skipped atomic.Bool

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, seed := range seeds {
		if gctx.Err() != nil {
			skipped.Store(true)
			cands[i] = notStarted(i, seed)
			continue
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				skipped.Store(true)
				cands[i] = notStarted(i, seed)
				return nil
			}
			c := s.fitter.Fit(data, seed, plan.Bounds, time.Now().Add(timeout))
			c.Index = i
			c.Seed = seed
			cands[i] = c
			return nil
		})
	}
	_ = g.Wait()

	in := models.AssessmentInput{Samples: data.Len(), Range: plan.Range, MinConfidence: plan.Strategy.MinQuality}
	for i := range cands {
		cands[i].Quality = s.eval.Evaluate(cands[i], in)
	}

	res := rank(cands, s.radius)
	res.Strategy = plan.Strategy.Name
	res.Cancelled = skipped.Load()

	s.log.Info("selection finished",
		logger.String("strategy", string(plan.Strategy.Name)),
		logger.Int("total", res.Stats.Total),
		logger.Int("converged", res.Stats.Converged),
		logger.Int("usable", res.Stats.Usable),
		logger.Bool("cancelled", res.Cancelled),
		logger.Duration("elapsed", time.Since(started)),
	)
	return res
}

func notStarted(i int, seed models.ParameterVector) models.FittingCandidate {
	return models.FittingCandidate{Index: i, Seed: seed, FailureReason: models.FailNotStarted}
}

// eligible reports whether a candidate enters any ranking.
func eligible(c models.FittingCandidate) bool {
	return c.Converged && lppl.InBounds(c.Params)
}
