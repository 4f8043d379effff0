package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BubbleScope/internal/domain/models"
	xhttp "BubbleScope/pkg/http"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestReadCSVWithHeader(t *testing.T) {
	in := `Date,Open,High,Low,Close,Adj Close,Volume
1987-10-14,314.5,314.5,305.2,305.2,305.2,207400000
1987-10-15,305.2,305.2,298.1,298.1,298.1,263200000
# holiday
1987-10-16,null,null,null,null,null,null
1987-10-19,282.7,282.7,224.8,224.8,224.8,604300000
`
	s, err := readCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, s.Points, 3)
	assert.Equal(t, 224.8, s.Points[2].Price)
	assert.Equal(t, time.Date(1987, 10, 19, 0, 0, 0, 0, time.UTC), s.Points[2].Time)
}

func TestReadCSVWithoutHeader(t *testing.T) {
	s, err := readCSV(strings.NewReader("2000-03-09,4900\n2000-03-10,5048.62\n"))
	require.NoError(t, err)
	require.Len(t, s.Points, 2)
	assert.Equal(t, 5048.62, s.Points[1].Price)
}

func TestReadCSVErrors(t *testing.T) {
	_, err := readCSV(strings.NewReader("date,close\n"))
	assert.EqualError(t, err, "no rows after header")

	_, err = readCSV(strings.NewReader("2000-03-09,4900\n2000-03-10,lots\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")

	_, err = readCSV(strings.NewReader("yesterday,4900\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad date")
}

func TestLoadCSVSymbolFromFileName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nasdaq.csv")
	require.NoError(t, os.WriteFile(path, []byte("2000-03-09,4900\n"), 0o600))
	s, err := loadCSV(path, "")
	require.NoError(t, err)
	assert.Equal(t, "NASDAQ", s.Symbol)
}

func TestStrategiesCommand(t *testing.T) {
	out, err := run(t, "strategies")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[1], "conservative"))
	assert.True(t, strings.HasPrefix(lines[3], "emergency"))

	out, err = run(t, "episodes")
	require.NoError(t, err)
	assert.Contains(t, out, "1987-10")
	assert.Contains(t, out, "2000-03")
}

// writeBubble writes a noise-free accelerating series long enough to fit.
func writeBubble(t *testing.T, n int) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("date,close\n")
	start := time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		x := float64(i) / float64(n)
		p := 100 * math.Exp(0.8*x*x) * (1 + 0.01*math.Cos(12*x))
		fmt.Fprintf(&b, "%s,%.4f\n", start.AddDate(0, 0, i).Format("2006-01-02"), p)
	}
	path := filepath.Join(t.TempDir(), "test.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o600))
	return path
}

func TestFitLocal(t *testing.T) {
	path := writeBubble(t, 150)
	out, err := run(t, "fit", "--csv", path, "--trials", "4", "--log-level", "error")
	require.NoError(t, err)

	var rep models.FitReport
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.Equal(t, "TEST", rep.Symbol)
	assert.Equal(t, models.StrategyConservative, rep.Strategy)
	assert.Equal(t, 150, rep.Samples)
	assert.NotEmpty(t, rep.RunID)
}

func TestFitRequiresInput(t *testing.T) {
	_, err := run(t, "fit")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--csv is required")

	path := writeBubble(t, 10)
	_, err = run(t, "fit", "--csv", path, "--strategy", "reckless")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid request")
}

func TestFitAndValidateRemote(t *testing.T) {
	var gotFit models.FitRequest
	var gotValidate models.ValidateRequest
	e := echo.New()
	e.POST("/api/fit", func(c echo.Context) error {
		if err := c.Bind(&gotFit); err != nil {
			return err
		}
		return xhttp.SuccessResponse(c, &models.FitReport{RunID: "remote-1", Symbol: gotFit.Symbol})
	})
	e.POST("/api/validate/:episode", func(c echo.Context) error {
		if err := c.Bind(&gotValidate); err != nil {
			return err
		}
		return xhttp.SuccessResponse(c, &models.ValidationReport{})
	})
	srv := httptest.NewServer(e)
	defer srv.Close()

	out, err := run(t, "fit", "--remote", srv.URL, "--symbol", "SPX", "--from", "2019-01-01", "--auto-escalate")
	require.NoError(t, err)
	assert.Contains(t, out, `"run_id": "remote-1"`)
	assert.Equal(t, "SPX", gotFit.Symbol)
	assert.Equal(t, "2019-01-01", gotFit.From)
	assert.True(t, gotFit.AutoEscalate)
	assert.Empty(t, gotFit.Points)

	_, err = run(t, "validate", "2000-03", "--remote", srv.URL, "--no-fit", "--cutoff-days", "45")
	require.NoError(t, err)
	assert.Equal(t, "2000-03", gotValidate.Episode)
	require.NotNil(t, gotValidate.Fit)
	assert.False(t, *gotValidate.Fit)
	assert.True(t, *gotValidate.CrossCheck)
	assert.Equal(t, 45, gotValidate.CutoffDays)
}

func TestValidateLocalNeedsCSV(t *testing.T) {
	_, err := run(t, "validate", "1987-10")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--csv is required")

	_, err = run(t, "validate")
	assert.Error(t, err)
}

func TestRemoteErrorsSurface(t *testing.T) {
	e := echo.New()
	e.POST("/api/validate/:episode", func(c echo.Context) error {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("historical episode not found"))
	})
	srv := httptest.NewServer(e)
	defer srv.Close()

	_, err := run(t, "validate", "1929-10", "--remote", srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), fmt.Sprint(http.StatusNotFound))
}
