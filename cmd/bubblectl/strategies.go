package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"BubbleScope/internal/services/paramspace"
	"BubbleScope/internal/services/validation"
)

func newStrategiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "strategies",
		Short: "List fitting strategies in escalation order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tTIER\tSAMPLING\tTRIALS\tBUDGET\tMIN R²")
			for _, s := range paramspace.Strategies() {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%.2f\n", s.Name, s.Tier, s.Sampling, s.Trials, s.TimeBudget, s.MinQuality)
			}
			return tw.Flush()
		},
	}
}

func newEpisodesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "episodes",
		Short: "List documented crash episodes usable with validate",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tSYMBOL\tSTART\tCRASH")
			for _, ep := range validation.Episodes() {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", ep.ID, ep.Name, ep.Symbol,
					ep.Start.Format("2006-01-02"), ep.CrashDate.Format("2006-01-02"))
			}
			return tw.Flush()
		},
	}
}
