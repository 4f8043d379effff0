package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"BubbleScope/internal/domain/models"
	domrepo "BubbleScope/internal/domain/repository"
	domsvc "BubbleScope/internal/domain/service"
	"BubbleScope/internal/services/features"
	"BubbleScope/internal/services/optimizer"
	"BubbleScope/internal/services/paramspace"
	"BubbleScope/pkg/cache"
	"BubbleScope/pkg/logger"
	"BubbleScope/pkg/metrics"
)

// ErrNoPriceSource is returned when a symbol is requested but no price
// store is configured.
var ErrNoPriceSource = errors.New("no price source configured")

// FitSeriesDeps are the collaborators of FitSeriesUseCase. Store,
// Publisher and Cache are optional.
type FitSeriesDeps struct {
	Prices    domrepo.PriceSource
	Selector  domsvc.Selector
	History   *paramspace.FittingHistory
	Store     domrepo.SelectionStore
	Publisher domrepo.ResultPublisher
	Cache     domrepo.ResultCache
	Metrics   domrepo.Metrics
	Log       *logger.Logger
}

// FitSeriesUseCase runs the fitting pipeline for one series, escalating
// through strategies on request.
type FitSeriesUseCase struct {
	deps            FitSeriesDeps
	seed            uint64
	defaultStrategy models.Strategy
	inflightWait    time.Duration
	now             func() time.Time
}

type FitSeriesOption func(*FitSeriesUseCase)

// WithSeed fixes the seed of the initial guess sampler.
func WithSeed(seed uint64) FitSeriesOption {
	return func(uc *FitSeriesUseCase) { uc.seed = seed }
}

func WithDefaultStrategy(s models.Strategy) FitSeriesOption {
	return func(uc *FitSeriesUseCase) { uc.defaultStrategy = s }
}

// WithInflightWait bounds how long a request waits for an identical fit
// already running elsewhere before fitting itself.
func WithInflightWait(d time.Duration) FitSeriesOption {
	return func(uc *FitSeriesUseCase) { uc.inflightWait = d }
}

func NewFitSeriesUseCase(deps FitSeriesDeps, opts ...FitSeriesOption) *FitSeriesUseCase {
	if deps.History == nil {
		deps.History = paramspace.NewFittingHistory(0)
	}
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.Nop{}
	}
	uc := &FitSeriesUseCase{
		deps:            deps,
		seed:            1,
		defaultStrategy: models.StrategyConservative,
		inflightWait:    5 * time.Second,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

type FitSeriesParams struct {
	Symbol    string
	From      time.Time
	To        time.Time
	Timeframe domrepo.Timeframe
	// Series, when set, is fitted instead of loading Symbol from the store.
	Series            *models.PriceSeries
	Strategy          string
	BubbleType        models.BubbleType
	Market            *models.MarketCharacteristics
	Trials            int
	AutoEscalate      bool
	NoCache           bool
	IncludeCandidates bool
}

func (uc *FitSeriesUseCase) FitSeries(ctx context.Context, p FitSeriesParams) (*models.FitReport, error) {
	started := uc.now()
	defer func() { uc.deps.Metrics.RecordLatency("fit_series", time.Since(started).Seconds()) }()

	if p.Strategy == "" {
		p.Strategy = string(uc.defaultStrategy)
	}
	if _, err := paramspace.Lookup(p.Strategy); err != nil {
		return nil, err
	}
	if p.Timeframe == "" {
		p.Timeframe = domrepo.DefaultTimeframe()
	}

	series, err := uc.loadSeries(ctx, p)
	if err != nil {
		return nil, err
	}
	data, err := optimizer.Normalize(series)
	if err != nil {
		uc.deps.Metrics.RecordError("data")
		return nil, err
	}

	market := p.Market
	if market == nil {
		m := features.Characterize(series, string(p.Timeframe), p.BubbleType)
		market = &m
	}

	key := ""
	if uc.deps.Cache != nil && !p.NoCache {
		key = requestKey(series, p, *market)
		if rep := uc.cached(ctx, key); rep != nil {
			return present(rep, p.IncludeCandidates), nil
		}
		locked, err := uc.deps.Cache.Lock(ctx, key)
		if err != nil {
			uc.deps.Log.Warn("result cache lock failed", logger.Error(err))
		}
		if !locked && err == nil {
			if rep := uc.awaitInflight(ctx, key); rep != nil {
				return present(rep, p.IncludeCandidates), nil
			}
		}
		if locked {
			defer func() {
				if err := uc.deps.Cache.Unlock(context.WithoutCancel(ctx), key); err != nil {
					uc.deps.Log.Warn("result cache unlock failed", logger.Error(err))
				}
			}()
		}
	}

	rep, err := uc.run(ctx, series, data, *market, p)
	if err != nil {
		return nil, err
	}
	uc.persist(context.WithoutCancel(ctx), rep, data, key)
	return present(rep, p.IncludeCandidates), nil
}

func (uc *FitSeriesUseCase) loadSeries(ctx context.Context, p FitSeriesParams) (models.PriceSeries, error) {
	if p.Series != nil {
		s := *p.Series
		if s.Symbol == "" {
			s.Symbol = p.Symbol
		}
		return s, nil
	}
	if p.Symbol == "" {
		return models.PriceSeries{}, models.NewDataError("symbol or inline series required")
	}
	if p.From.After(p.To) && !p.To.IsZero() {
		return models.PriceSeries{}, models.NewDataError("from must be <= to")
	}
	if uc.deps.Prices == nil {
		return models.PriceSeries{}, ErrNoPriceSource
	}
	s, err := uc.deps.Prices.GetSeries(ctx, p.Symbol, p.From, p.To, p.Timeframe)
	if err != nil {
		uc.deps.Metrics.RecordError("price_source")
		return models.PriceSeries{}, fmt.Errorf("load series: %w", err)
	}
	return s, nil
}

// run executes the escalation state machine. Without AutoEscalate exactly
// one strategy runs.
func (uc *FitSeriesUseCase) run(ctx context.Context, series models.PriceSeries, data *models.NormalizedSeries, market models.MarketCharacteristics, p FitSeriesParams) (*models.FitReport, error) {
	current := models.Strategy(p.Strategy)
	var (
		path    []models.Strategy
		reasons []models.EscalationReason
		res     *models.SelectionResult
	)
	for {
		plan, err := paramspace.Plan(string(current), &market)
		if err != nil {
			return nil, err
		}
		if p.Trials > 0 {
			plan.Strategy.Trials = p.Trials
		}

		t0 := uc.now()
		res = uc.deps.Selector.Run(ctx, plan, data, paramspace.Guesses(plan, data, plan.Strategy.Trials, uc.seed))
		elapsed := uc.now().Sub(t0)
		path = append(path, current)

		reason, accepted := paramspace.Diagnose(res)
		rec := models.HistoryRecord{
			At:              t0,
			Strategy:        current,
			BubbleType:      market.BubbleType,
			Success:         accepted,
			ConvergenceTime: elapsed,
		}
		if best, ok := res.Selected(); ok {
			rec.Quality = best.RSquared
		}
		uc.deps.History.Record(rec)
		uc.deps.Metrics.RecordFit(string(current), res.Stats.Converged, res.Stats.Usable, elapsed.Seconds())

		if accepted || !p.AutoEscalate || res.Cancelled || ctx.Err() != nil {
			break
		}
		next, err := paramspace.Escalate(current, reason)
		if err != nil {
			break
		}
		uc.deps.Log.Info("escalating strategy",
			logger.String("symbol", series.Symbol),
			logger.String("from", string(current)),
			logger.String("to", string(next)),
			logger.String("reason", string(reason)),
		)
		uc.deps.Metrics.RecordEscalation(string(current), string(next))
		reasons = append(reasons, reason)
		current = next
	}
	if reason, accepted := paramspace.Diagnose(res); !accepted {
		reasons = append(reasons, reason)
	}

	rep := buildReport(series, data, market, res, path, reasons)
	rep.RunID = uuid.NewString()
	rep.CreatedAt = uc.now().UTC()

	fields := []logger.Field{
		logger.String("run_id", rep.RunID),
		logger.String("symbol", rep.Symbol),
		logger.String("strategy", string(rep.Strategy)),
		logger.Int("converged", rep.Stats.Converged),
		logger.Int("usable", rep.Stats.Usable),
	}
	if rep.Primary != nil {
		fields = append(fields,
			logger.Float64("r_squared", rep.Primary.RSquared),
			logger.Float64("tc", rep.Primary.Params.Tc),
		)
	}
	uc.deps.Log.Info("fit completed", fields...)
	return rep, nil
}

// persist stores, publishes and caches a finished report. Failures are
// logged and counted only.
func (uc *FitSeriesUseCase) persist(ctx context.Context, rep *models.FitReport, data *models.NormalizedSeries, key string) {
	if uc.deps.Store != nil && rep.Primary != nil {
		if err := uc.deps.Store.Store(ctx, storedSelection(rep, data)); err != nil {
			uc.deps.Metrics.RecordError("store")
			uc.deps.Log.Error("store selection failed", logger.String("run_id", rep.RunID), logger.Error(err))
		}
	}
	if uc.deps.Publisher != nil {
		if err := uc.deps.Publisher.Publish(ctx, rep); err != nil {
			uc.deps.Metrics.RecordError("publish")
			uc.deps.Log.Error("publish report failed", logger.String("run_id", rep.RunID), logger.Error(err))
		}
	}
	if key != "" && !rep.Cancelled {
		if err := uc.deps.Cache.Set(ctx, key, rep); err != nil {
			uc.deps.Metrics.RecordError("cache")
			uc.deps.Log.Warn("cache report failed", logger.String("run_id", rep.RunID), logger.Error(err))
		}
	}
}

func (uc *FitSeriesUseCase) cached(ctx context.Context, key string) *models.FitReport {
	rep, err := uc.deps.Cache.Get(ctx, key)
	if err != nil {
		uc.deps.Metrics.RecordError("cache")
		uc.deps.Log.Warn("result cache read failed", logger.Error(err))
		return nil
	}
	if rep == nil {
		return nil
	}
	out := *rep
	out.Cached = true
	return &out
}

// awaitInflight polls the cache while another caller fits the same request.
func (uc *FitSeriesUseCase) awaitInflight(ctx context.Context, key string) *models.FitReport {
	if uc.inflightWait <= 0 {
		return nil
	}
	deadline := time.NewTimer(uc.inflightWait)
	defer deadline.Stop()
	tick := time.NewTicker(200 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-deadline.C:
			return nil
		case <-tick.C:
			if rep := uc.cached(ctx, key); rep != nil {
				return rep
			}
		}
	}
}

func buildReport(series models.PriceSeries, data *models.NormalizedSeries, market models.MarketCharacteristics, res *models.SelectionResult, path []models.Strategy, reasons []models.EscalationReason) *models.FitReport {
	rep := &models.FitReport{
		Symbol:     series.Symbol,
		Strategy:   res.Strategy,
		Path:       path,
		Reasons:    reasons,
		Samples:    data.Len(),
		Start:      data.Start,
		End:        data.End,
		Market:     market,
		Stats:      res.Stats,
		Candidates: res.Candidates,
		Cancelled:  res.Cancelled,
	}
	if len(res.Winners) > 0 {
		rep.Winners = make(map[models.Criterion]models.FittingCandidate, len(res.Winners))
		for crit := range res.Winners {
			if c, ok := res.Winner(crit); ok {
				rep.Winners[crit] = c
			}
		}
	}
	if best, ok := res.Selected(); ok {
		rep.Primary = &best
		cd := data.CriticalDate(best.Params.Tc)
		rep.CriticalDate = &cd
		rep.DaysToCritical = cd.Sub(data.End).Hours() / 24
	}
	return rep
}

func storedSelection(rep *models.FitReport, data *models.NormalizedSeries) *models.StoredSelection {
	c := rep.Primary
	return &models.StoredSelection{
		RunID:      rep.RunID,
		Symbol:     rep.Symbol,
		Strategy:   rep.Strategy,
		Params:     c.Params,
		RSquared:   c.RSquared,
		RMSE:       c.RMSE,
		Quality:    c.Quality.Quality,
		Confidence: c.Quality.Confidence,
		IsUsable:   c.Quality.IsUsable,
		Critical:   data.CriticalDate(c.Params.Tc),
		WindowEnd:  data.End,
		CreatedAt:  rep.CreatedAt,
	}
}

// present returns a shallow copy without the candidate population unless
// it was requested.
func present(rep *models.FitReport, withCandidates bool) *models.FitReport {
	out := *rep
	if !withCandidates {
		out.Candidates = nil
	}
	return &out
}

// requestKey identifies a request by the series content and every option
// that changes the result.
func requestKey(series models.PriceSeries, p FitSeriesParams, m models.MarketCharacteristics) string {
	b, _ := json.Marshal(struct {
		Points   []models.PricePoint          `json:"p"`
		Strategy string                       `json:"s"`
		Trials   int                          `json:"n"`
		Auto     bool                         `json:"a"`
		Market   models.MarketCharacteristics `json:"m"`
	}{series.Points, p.Strategy, p.Trials, p.AutoEscalate, m})
	return cache.Key(series.Symbol, cache.Hash(b))
}
