package main

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"BubbleScope/internal/domain/models"
	domrepo "BubbleScope/internal/domain/repository"
	"BubbleScope/internal/usecase"
	xhttp "BubbleScope/pkg/http"
	applogger "BubbleScope/pkg/logger"
)

type fitOpts struct {
	csv        string
	symbol     string
	from, to   string
	timeframe  string
	strategy   string
	bubble     string
	trials     int
	escalate   bool
	candidates bool
}

func newFitCmd(g *globalOpts) *cobra.Command {
	o := &fitOpts{}
	cmd := &cobra.Command{
		Use:   "fit",
		Short: "Fit a price series and print the report as JSON",
		Example: `  bubblectl fit --csv spx.csv --strategy extensive --auto-escalate
  bubblectl fit --remote http://localhost:8080 --symbol SPX --from 2019-01-01`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := o.request(g.remote != "")
			if err != nil {
				return err
			}

			var rep *models.FitReport
			if g.remote != "" {
				rep = &models.FitReport{}
				err = g.client().Do(cmd.Context(), http.MethodPost, "/api/fit", nil, req, rep)
			} else {
				rep, err = o.local(cmd, g, req)
			}
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), rep)
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.csv, "csv", "", "CSV file with date and close columns")
	f.StringVar(&o.symbol, "symbol", "", "symbol; defaults to the CSV file name")
	f.StringVar(&o.from, "from", "", "first date (remote symbol lookups)")
	f.StringVar(&o.to, "to", "", "last date (remote symbol lookups)")
	f.StringVar(&o.timeframe, "timeframe", "1d", "series resolution: 1d or 1w")
	f.StringVar(&o.strategy, "strategy", "", "conservative, extensive or emergency")
	f.StringVar(&o.bubble, "bubble-type", "", "tech, financial_crisis, commodity or unknown")
	f.IntVar(&o.trials, "trials", 0, "override the strategy's trial count")
	f.BoolVar(&o.escalate, "auto-escalate", false, "escalate to wider strategies until a usable fit")
	f.BoolVar(&o.candidates, "candidates", false, "include every candidate in the report")
	return cmd
}

func (o *fitOpts) request(remote bool) (*models.FitRequest, error) {
	if o.csv == "" && !(remote && o.symbol != "") {
		return nil, errors.New("--csv is required unless --remote and --symbol are given")
	}
	req := &models.FitRequest{
		Symbol:       o.symbol,
		From:         o.from,
		To:           o.to,
		Timeframe:    o.timeframe,
		Strategy:     o.strategy,
		BubbleType:   o.bubble,
		Trials:       o.trials,
		AutoEscalate: o.escalate,
		Candidates:   o.candidates,
	}
	if o.csv != "" {
		s, err := loadCSV(o.csv, o.symbol)
		if err != nil {
			return nil, err
		}
		req.Symbol, req.Points = s.Symbol, s.Points
	}
	if errs := xhttp.Validate(req); errs != nil {
		return nil, invalid(errs)
	}
	return req, nil
}

func (o *fitOpts) local(cmd *cobra.Command, g *globalOpts, req *models.FitRequest) (*models.FitReport, error) {
	cfg, l, err := g.load()
	if err != nil {
		return nil, err
	}
	uc := usecase.NewFitSeriesUseCase(usecase.FitSeriesDeps{
		Selector: g.selector(cfg, l),
		Log:      l,
	},
		usecase.WithSeed(cfg.Fitting.Seed),
		usecase.WithDefaultStrategy(models.Strategy(cfg.Fitting.DefaultStrategy)),
	)

	l.Info("fitting", applogger.String("symbol", req.Symbol), applogger.Int("samples", len(req.Points)))
	return uc.FitSeries(cmd.Context(), usecase.FitSeriesParams{
		Symbol:            req.Symbol,
		Timeframe:         domrepo.NormalizeTimeframe(req.Timeframe),
		Series:            &models.PriceSeries{Symbol: req.Symbol, Points: req.Points},
		Strategy:          req.Strategy,
		BubbleType:        models.BubbleType(req.BubbleType),
		Trials:            req.Trials,
		AutoEscalate:      req.AutoEscalate,
		IncludeCandidates: req.Candidates,
	})
}

func invalid(errs []xhttp.ValidationError) error {
	msgs := make([]error, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, errors.New(e.Message))
	}
	return fmt.Errorf("invalid request: %w", errors.Join(msgs...))
}
