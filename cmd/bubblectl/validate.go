package main

import (
	"errors"
	"net/http"

	"github.com/spf13/cobra"

	"BubbleScope/internal/domain/models"
	"BubbleScope/internal/usecase"
	xhttp "BubbleScope/pkg/http"
)

type validateOpts struct {
	csv        string
	noFit      bool
	noCross    bool
	cutoffDays int
	strategy   string
}

func newValidateCmd(g *globalOpts) *cobra.Command {
	o := &validateOpts{}
	cmd := &cobra.Command{
		Use:   "validate <episode>",
		Short: "Replay a documented crash and score the reproduction",
		Example: `  bubblectl validate 1987-10 --csv sp500_1985_1988.csv
  bubblectl validate 2000-03 --remote http://localhost:8080`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := &models.ValidateRequest{
				Episode:    args[0],
				Fit:        boolPtr(!o.noFit),
				CrossCheck: boolPtr(!o.noCross),
				CutoffDays: o.cutoffDays,
				Strategy:   o.strategy,
			}
			if errs := xhttp.Validate(req); errs != nil {
				return invalid(errs)
			}

			var (
				rep *models.ValidationReport
				err error
			)
			if g.remote != "" {
				rep = &models.ValidationReport{}
				err = g.client().Do(cmd.Context(), http.MethodPost, "/api/validate/"+req.Episode, nil, req, rep)
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
	f.StringVar(&o.csv, "csv", "", "CSV with the episode's daily closes (required without --remote)")
	f.BoolVar(&o.noFit, "no-fit", false, "skip the reproduction fit")
	f.BoolVar(&o.noCross, "no-cross-check", false, "skip the comparison with published statistics")
	f.IntVar(&o.cutoffDays, "cutoff-days", 0, "days before the crash to stop the fit window (30-100)")
	f.StringVar(&o.strategy, "strategy", "", "fitting strategy for the reproduction")
	return cmd
}

func (o *validateOpts) local(cmd *cobra.Command, g *globalOpts, req *models.ValidateRequest) (*models.ValidationReport, error) {
	if o.csv == "" {
		return nil, errors.New("--csv is required without --remote")
	}
	cfg, l, err := g.load()
	if err != nil {
		return nil, err
	}
	s, err := loadCSV(o.csv, "")
	if err != nil {
		return nil, err
	}

	v := usecase.NewValidateEpisodeUseCase(nil, g.validator(cfg, l), l)
	return v.Validate(cmd.Context(), usecase.ValidateEpisodeParams{
		EpisodeID:  req.Episode,
		Fit:        *req.Fit,
		CrossCheck: *req.CrossCheck,
		CutoffDays: req.CutoffDays,
		Strategy:   models.Strategy(req.Strategy),
		Series:     &s,
	})
}

func boolPtr(b bool) *bool { return &b }
