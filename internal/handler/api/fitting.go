package api

import (
	"context"
	"errors"
	"time"

	"github.com/labstack/echo/v4"

	"BubbleScope/internal/domain/models"
	domrepo "BubbleScope/internal/domain/repository"
	"BubbleScope/internal/service/metrics"
	"BubbleScope/internal/services/paramspace"
	"BubbleScope/internal/usecase"
	xhttp "BubbleScope/pkg/http"
	xlogger "BubbleScope/pkg/logger"
	"BubbleScope/pkg/util"
)

type Fitter interface {
	FitSeries(ctx context.Context, p usecase.FitSeriesParams) (*models.FitReport, error)
}

type EpisodeValidator interface {
	Validate(ctx context.Context, p usecase.ValidateEpisodeParams) (*models.ValidationReport, error)
	Episodes() []models.Episode
}

type ResultReader interface {
	HistoryStats(f models.HistoryFilter) models.HistoryStats
	LatestResult(ctx context.Context, symbol string, limit int) ([]*models.StoredSelection, error)
}

// FittingHandler serves the fitting, validation and result endpoints.
type FittingHandler struct {
	logger   *xlogger.Logger
	fit      Fitter
	validate EpisodeValidator
	results  ResultReader
	limit    echo.MiddlewareFunc
}

type Option func(*FittingHandler)

// WithRateLimit guards the fitting endpoints with mw.
func WithRateLimit(mw echo.MiddlewareFunc) Option {
	return func(h *FittingHandler) { h.limit = mw }
}

func NewFittingHandler(logger *xlogger.Logger, fit Fitter, validate EpisodeValidator, results ResultReader, opts ...Option) *FittingHandler {
	metrics.Register()
	if logger == nil {
		logger = xlogger.Nop()
	}
	h := &FittingHandler{logger: logger, fit: fit, validate: validate, results: results}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *FittingHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")

	var heavy []echo.MiddlewareFunc
	if h.limit != nil {
		heavy = append(heavy, h.limit)
	}
	g.POST("/fit", h.Fit, heavy...)
	g.POST("/validate/:episode", h.Validate, heavy...)

	g.GET("/strategies", h.Strategies)
	g.GET("/episodes", h.Episodes)
	g.GET("/history/stats", h.HistoryStats)
	g.GET("/results/:symbol", h.LatestResult)
}

func (h *FittingHandler) Fit(c echo.Context) error {
	defer observe("fit", time.Now())

	req := &models.FitRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return h.badRequest(c, "fit", verr)
	}
	from, err := util.ParseTimeDefault(req.From, time.Time{})
	if err != nil {
		return h.fail(c, "fit", xhttp.BadRequestError(err.Error()).WithParam("field", "from"))
	}
	to, err := util.ParseTimeDefault(req.To, time.Time{})
	if err != nil {
		return h.fail(c, "fit", xhttp.BadRequestError(err.Error()).WithParam("field", "to"))
	}

	p := usecase.FitSeriesParams{
		Symbol:            req.Symbol,
		From:              from,
		To:                to,
		Timeframe:         domrepo.NormalizeTimeframe(req.Timeframe),
		Strategy:          req.Strategy,
		BubbleType:        models.BubbleType(req.BubbleType),
		Market:            req.Market,
		Trials:            req.Trials,
		AutoEscalate:      req.AutoEscalate,
		NoCache:           req.NoCache,
		IncludeCandidates: req.Candidates,
	}
	if len(req.Points) > 0 {
		p.Series = &models.PriceSeries{Symbol: req.Symbol, Points: req.Points}
	}

	rep, err := h.fit.FitSeries(c.Request().Context(), p)
	if err != nil {
		h.logger.Warn("fit failed", xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		return h.fail(c, "fit", err)
	}
	h.logger.Info("fit done",
		xlogger.String("run_id", rep.RunID),
		xlogger.String("symbol", rep.Symbol),
		xlogger.String("strategy", string(rep.Strategy)),
		xlogger.Bool("usable", rep.Usable()),
		xlogger.Bool("cached", rep.Cached),
	)
	return xhttp.SuccessResponse(c, rep)
}

func (h *FittingHandler) Validate(c echo.Context) error {
	defer observe("validate", time.Now())

	req := &models.ValidateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return h.badRequest(c, "validate", verr)
	}
	rep, err := h.validate.Validate(c.Request().Context(), usecase.ValidateEpisodeParams{
		EpisodeID:  req.Episode,
		Fit:        req.Fit == nil || *req.Fit,
		CrossCheck: req.CrossCheck == nil || *req.CrossCheck,
		CutoffDays: req.CutoffDays,
		Strategy:   models.Strategy(req.Strategy),
	})
	if err != nil {
		return h.fail(c, "validate", err)
	}
	return xhttp.SuccessResponse(c, rep)
}

func (h *FittingHandler) Strategies(c echo.Context) error {
	rows := paramspace.Strategies()
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *FittingHandler) Episodes(c echo.Context) error {
	rows := h.validate.Episodes()
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *FittingHandler) HistoryStats(c echo.Context) error {
	req := &models.HistoryStatsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return h.badRequest(c, "history_stats", verr)
	}
	st := h.results.HistoryStats(models.HistoryFilter{
		BubbleType: models.BubbleType(req.BubbleType),
		Strategy:   models.Strategy(req.Strategy),
	})
	return xhttp.SuccessResponse(c, st)
}

func (h *FittingHandler) LatestResult(c echo.Context) error {
	defer observe("latest_result", time.Now())

	req := &models.LatestResultRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return h.badRequest(c, "latest_result", verr)
	}
	rows, err := h.results.LatestResult(c.Request().Context(), req.Symbol, req.Limit)
	if err != nil {
		return h.fail(c, "latest_result", err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *FittingHandler) badRequest(c echo.Context, endpoint string, verr []xhttp.ValidationError) error {
	metrics.APIErrors.WithLabelValues(endpoint, "ERR_VALIDATION").Inc()
	return xhttp.BadRequestResponse(c, verr)
}

func (h *FittingHandler) fail(c echo.Context, endpoint string, err error) error {
	appErr := toAppError(err)
	metrics.APIErrors.WithLabelValues(endpoint, appErr.Code).Inc()
	if appErr.Status >= 500 {
		h.logger.Error("request failed", xlogger.String("endpoint", endpoint), xlogger.Error(err))
	}
	return xhttp.AppErrorResponse(c, appErr)
}

// toAppError maps domain errors onto HTTP errors.
func toAppError(err error) *xhttp.AppError {
	var appErr *xhttp.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	var de *models.DataError
	switch {
	case errors.As(err, &de):
		e := xhttp.UnprocessableError("ERR_DATA", de.Reason).WithError(err)
		if de.Index >= 0 {
			e.WithParam("index", de.Index)
		}
		return e
	case errors.Is(err, models.ErrUnknownStrategy):
		return xhttp.BadRequestError(err.Error()).WithError(err)
	case errors.Is(err, models.ErrEpisodeNotFound):
		return xhttp.NotFoundError(err.Error()).WithError(err)
	case errors.Is(err, usecase.ErrNoPriceSource), errors.Is(err, usecase.ErrNoStore):
		return xhttp.ServiceUnavailableError(err.Error()).WithError(err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return xhttp.ServiceUnavailableError("request cancelled").WithError(err)
	default:
		return xhttp.InternalError("Something went wrong").WithError(err)
	}
}

func observe(endpoint string, start time.Time) {
	metrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}
