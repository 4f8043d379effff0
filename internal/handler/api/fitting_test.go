package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BubbleScope/internal/domain/models"
	"BubbleScope/internal/service/ratelimit"
	"BubbleScope/internal/usecase"
	xhttp "BubbleScope/pkg/http"
)

type stubFitter struct {
	got usecase.FitSeriesParams
	err error
}

func (s *stubFitter) FitSeries(_ context.Context, p usecase.FitSeriesParams) (*models.FitReport, error) {
	s.got = p
	if s.err != nil {
		return nil, s.err
	}
	return &models.FitReport{RunID: "run-1", Symbol: p.Symbol, Strategy: models.StrategyConservative}, nil
}

type stubValidator struct {
	got usecase.ValidateEpisodeParams
	err error
}

func (s *stubValidator) Validate(_ context.Context, p usecase.ValidateEpisodeParams) (*models.ValidationReport, error) {
	s.got = p
	if s.err != nil {
		return nil, s.err
	}
	return &models.ValidationReport{}, nil
}

func (s *stubValidator) Episodes() []models.Episode {
	return []models.Episode{{ID: "1987-10"}, {ID: "2000-03"}}
}

type stubResults struct {
	filter models.HistoryFilter
	symbol string
	limit  int
	err    error
}

func (s *stubResults) HistoryStats(f models.HistoryFilter) models.HistoryStats {
	s.filter = f
	return models.HistoryStats{TotalAttempts: 3, SuccessRate: 2.0 / 3}
}

func (s *stubResults) LatestResult(_ context.Context, symbol string, limit int) ([]*models.StoredSelection, error) {
	s.symbol, s.limit = symbol, limit
	if s.err != nil {
		return nil, s.err
	}
	return []*models.StoredSelection{{RunID: "run-1", Symbol: symbol}}, nil
}

type fixture struct {
	e   *echo.Echo
	fit *stubFitter
	val *stubValidator
	res *stubResults
}

func newFixture(opts ...Option) *fixture {
	f := &fixture{e: echo.New(), fit: &stubFitter{}, val: &stubValidator{}, res: &stubResults{}}
	NewFittingHandler(nil, f.fit, f.val, f.res, opts...).RegisterRoutes(f.e)
	return f
}

func (f *fixture) do(method, target, body string) (*httptest.ResponseRecorder, xhttp.APIResponse) {
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
		r.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, r)

	var env xhttp.APIResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	return rec, env
}

func pointsJSON(n int) string {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf(`{"time":%q,"price":%d}`, start.AddDate(0, 0, i).Format(time.RFC3339), 100+i)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func TestFitInlineSeries(t *testing.T) {
	f := newFixture()
	body := `{"symbol":"SPX","strategy":"extensive","auto_escalate":true,"include_candidates":true,"points":` + pointsJSON(5) + `}`

	rec, env := f.do(http.MethodPost, "/api/fit", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 200, env.Status)

	require.NotNil(t, f.fit.got.Series)
	assert.Len(t, f.fit.got.Series.Points, 5)
	assert.Equal(t, "extensive", f.fit.got.Strategy)
	assert.True(t, f.fit.got.AutoEscalate)
	assert.True(t, f.fit.got.IncludeCandidates)
	assert.Equal(t, "1d", string(f.fit.got.Timeframe))
	assert.Contains(t, rec.Body.String(), `"run_id":"run-1"`)
}

func TestFitBySymbolParsesDates(t *testing.T) {
	f := newFixture()
	rec, _ := f.do(http.MethodPost, "/api/fit", `{"symbol":"SPX","from":"2019-01-02","to":"2020-02-19","timeframe":"1w"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, f.fit.got.Series)
	assert.Equal(t, time.Date(2019, 1, 2, 0, 0, 0, 0, time.UTC), f.fit.got.From)
	assert.Equal(t, time.Date(2020, 2, 19, 0, 0, 0, 0, time.UTC), f.fit.got.To)
	assert.Equal(t, "1w", string(f.fit.got.Timeframe))

	rec, _ = f.do(http.MethodPost, "/api/fit", `{"symbol":"SPX","from":"last tuesday"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFitRequestValidation(t *testing.T) {
	f := newFixture()
	cases := map[string]string{
		"no symbol or points": `{}`,
		"bad strategy":        `{"symbol":"SPX","strategy":"reckless"}`,
		"bad timeframe":       `{"symbol":"SPX","timeframe":"1h"}`,
		"too many trials":     `{"symbol":"SPX","trials":100000}`,
		"negative price":      `{"points":[{"time":"2020-01-01T00:00:00Z","price":-1}]}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec, _ := f.do(http.MethodPost, "/api/fit", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestFitErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{&models.DataError{Reason: "non-positive price", Index: 7}, http.StatusUnprocessableEntity, "ERR_DATA"},
		{fmt.Errorf("plan: %w", models.ErrUnknownStrategy), http.StatusBadRequest, "ERR_BAD_REQUEST"},
		{usecase.ErrNoPriceSource, http.StatusServiceUnavailable, "ERR_UNAVAILABLE"},
		{context.DeadlineExceeded, http.StatusServiceUnavailable, "ERR_UNAVAILABLE"},
		{fmt.Errorf("boom"), http.StatusInternalServerError, "ERR_INTERNAL"},
	}
	for _, tc := range cases {
		f := newFixture()
		f.fit.err = tc.err
		rec, _ := f.do(http.MethodPost, "/api/fit", `{"symbol":"SPX"}`)
		assert.Equal(t, tc.status, rec.Code, tc.err.Error())
		assert.Contains(t, rec.Body.String(), tc.code)
	}
}

func TestDataErrorCarriesIndex(t *testing.T) {
	e := toAppError(&models.DataError{Reason: "timestamps not increasing", Index: 3})
	assert.Equal(t, 3, e.Params["index"])
	e = toAppError(models.NewDataError("fewer than 100 samples"))
	assert.Nil(t, e.Params)
}

func TestValidateEpisodeOptions(t *testing.T) {
	f := newFixture()
	rec, _ := f.do(http.MethodPost, "/api/validate/2000-03", `{"fit":false,"cutoff_days":45}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "2000-03", f.val.got.EpisodeID)
	assert.False(t, f.val.got.Fit)
	assert.True(t, f.val.got.CrossCheck)
	assert.Equal(t, 45, f.val.got.CutoffDays)

	rec, _ = f.do(http.MethodPost, "/api/validate/1987-10", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, f.val.got.Fit)
	assert.True(t, f.val.got.CrossCheck)

	rec, _ = f.do(http.MethodPost, "/api/validate/1987-10", `{"cutoff_days":5}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestValidateUnknownEpisode(t *testing.T) {
	f := newFixture()
	f.val.err = fmt.Errorf("%w: %q", models.ErrEpisodeNotFound, "1929-10")
	rec, _ := f.do(http.MethodPost, "/api/validate/1929-10", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListings(t *testing.T) {
	f := newFixture()

	rec, env := f.do(http.MethodGet, "/api/strategies", "")
	require.Equal(t, http.StatusOK, rec.Code)
	data, ok := env.Data.(map[string]interface{})
	require.True(t, ok)
	assert.EqualValues(t, 3, data["total"])
	assert.Contains(t, rec.Body.String(), `"name":"emergency"`)

	rec, env = f.do(http.MethodGet, "/api/episodes", "")
	require.Equal(t, http.StatusOK, rec.Code)
	data = env.Data.(map[string]interface{})
	assert.EqualValues(t, 2, data["total"])
}

func TestHistoryStats(t *testing.T) {
	f := newFixture()
	rec, _ := f.do(http.MethodGet, "/api/history/stats?strategy=extensive&bubble_type=tech", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.StrategyExtensive, f.res.filter.Strategy)
	assert.Equal(t, models.BubbleTech, f.res.filter.BubbleType)
	assert.Contains(t, rec.Body.String(), `"total_attempts":3`)

	rec, _ = f.do(http.MethodGet, "/api/history/stats?strategy=bogus", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLatestResult(t *testing.T) {
	f := newFixture()
	rec, _ := f.do(http.MethodGet, "/api/results/SPX?limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "SPX", f.res.symbol)
	assert.Equal(t, 5, f.res.limit)

	rec, _ = f.do(http.MethodGet, "/api/results/SPX", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 10, f.res.limit)

	rec, _ = f.do(http.MethodGet, "/api/results/SPX?limit=9999", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	f.res.err = usecase.ErrNoStore
	rec, _ = f.do(http.MethodGet, "/api/results/SPX", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestFitRateLimited(t *testing.T) {
	lim := ratelimit.New(0.001, 1, time.Minute)
	f := newFixture(WithRateLimit(lim.Middleware()))

	rec, _ := f.do(http.MethodPost, "/api/fit", `{"symbol":"SPX"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rec, _ = f.do(http.MethodPost, "/api/fit", `{"symbol":"SPX"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// Listings are not throttled.
	rec, _ = f.do(http.MethodGet, "/api/strategies", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
