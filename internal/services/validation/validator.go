package validation

import (
	"context"
	"fmt"
	"math"

	"BubbleScope/internal/domain/models"
	"BubbleScope/internal/domain/repository"
	domsvc "BubbleScope/internal/domain/service"
	"BubbleScope/internal/services/features"
	"BubbleScope/internal/services/optimizer"
	"BubbleScope/internal/services/paramspace"
	"BubbleScope/pkg/logger"
)

var _ domsvc.EpisodeValidator = (*Validator)(nil)

// Cutoff limits in days before the crash.
const (
	MinCutoffDays = 30
	MaxCutoffDays = 100
)

// PassingScore is the feasibility score a run needs to pass.
const PassingScore = 60

type Validator struct {
	selector domsvc.Selector
	trials   int
	seed     uint64
	log      *logger.Logger
}

type Option func(*Validator)

// WithTrials overrides the strategy's trial count for reproduction fits.
func WithTrials(n int) Option {
	return func(v *Validator) { v.trials = n }
}

func WithSeed(seed uint64) Option {
	return func(v *Validator) { v.seed = seed }
}

func WithLogger(l *logger.Logger) Option {
	return func(v *Validator) { v.log = l }
}

func New(selector domsvc.Selector, opts ...Option) *Validator {
	v := &Validator{selector: selector, seed: 1, log: logger.Nop()}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate walks the stages in order. A failing stage is recorded in the
// report and stops the walk; the report always comes back.
func (v *Validator) Validate(ctx context.Context, ep models.Episode, series models.PriceSeries, opts models.ValidationOptions) *models.ValidationReport {
	rep := &models.ValidationReport{EpisodeID: ep.ID}
	fail := func(format string, args ...interface{}) *models.ValidationReport {
		rep.Errors = append(rep.Errors, fmt.Sprintf(format, args...))
		rep.Passed = false
		v.log.Warn("validation stopped",
			logger.String("episode", ep.ID),
			logger.String("stage", string(rep.Stage)),
			logger.Strings("errors", rep.Errors),
		)
		return rep
	}

	window := series.Slice(ep.Start, ep.End.AddDate(0, 0, 1))
	pre, post := Split(window, ep.CrashDate)
	if pre.Len() == 0 {
		return fail("no samples before crash date %s", ep.CrashDate.Format("2006-01-02"))
	}
	rep.Stage = models.StageDataLoaded

	rep.Stats = Stats(pre, post)
	if post.Len() == 0 {
		rep.Errors = append(rep.Errors, "no samples after crash date, decline unknown")
	}
	rep.Stage = models.StageBubbleAnalyzed

	rep.Feasibility = Feasibility(rep.Stats)
	if opts.Fit {
		rep.Reproduction = v.reproduce(ctx, ep, pre, opts)
	}
	rep.Stage = models.StagePredictionScored

	if opts.CrossCheck && ep.Expected != nil {
		rep.CrossCheck = CrossCheck(rep.Stats, ep.Expected)
		rep.Stage = models.StageCrossChecked
	}

	rep.Passed = rep.Feasibility.Score >= PassingScore
	if r := rep.Reproduction; r != nil && (r.Error != "" || r.Quality == "poor") {
		rep.Passed = false
	}
	for _, c := range rep.CrossCheck {
		if !c.Passed {
			rep.Passed = false
		}
	}
	rep.Stage = models.StageCompleted

	v.log.Info("validation completed",
		logger.String("episode", ep.ID),
		logger.Int("feasibility", rep.Feasibility.Score),
		logger.Bool("passed", rep.Passed),
	)
	return rep
}

// CutoffDays clamps the requested cutoff into the accepted window.
func CutoffDays(requested, episodeDefault int) int {
	d := requested
	if d == 0 {
		d = episodeDefault
	}
	return int(math.Min(math.Max(float64(d), MinCutoffDays), MaxCutoffDays))
}

func (v *Validator) reproduce(ctx context.Context, ep models.Episode, pre models.PriceSeries, opts models.ValidationOptions) *models.Reproduction {
	cutoff := ep.CrashDate.AddDate(0, 0, -CutoffDays(opts.CutoffDays, ep.CutoffDays))
	r := &models.Reproduction{Attempted: true, Cutoff: cutoff, Quality: "poor"}

	segment := pre.Slice(ep.Start, cutoff)
	data, err := optimizer.Normalize(segment)
	if err != nil {
		r.Error = err.Error()
		return r
	}

	strategy := opts.Strategy
	if strategy == "" {
		strategy = models.StrategyConservative
	}
	market := features.Characterize(segment, string(repository.TF1d), ep.BubbleType)
	plan, err := paramspace.Plan(string(strategy), &market)
	if err != nil {
		r.Error = err.Error()
		return r
	}
	n := plan.Strategy.Trials
	if v.trials > 0 {
		n = v.trials
	}

	res := v.selector.Run(ctx, plan, data, paramspace.Guesses(plan, data, n, v.seed))
	best, ok := res.Selected()
	if !ok {
		best, ok = res.Winner(models.CriterionBestFit)
	}
	if !ok {
		r.Error = "no convergent fit for the pre-cutoff segment"
		return r
	}

	r.Selected = &best
	r.BetaWithin = math.Abs(best.Params.Beta-ep.Beta) <= ep.BetaTol
	r.OmegaWithin = math.Abs(best.Params.Omega-ep.Omega) <= ep.OmegaTol
	matched := 0
	for _, ok := range []bool{r.BetaWithin, r.OmegaWithin} {
		if ok {
			matched++
		}
	}
	r.MatchRatio = float64(matched) / 2
	r.Quality = ReproductionQuality(r.MatchRatio)
	return r
}
