package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/stitts-dev/squad-optimizer/internal/optimizer"
	"github.com/stitts-dev/squad-optimizer/pkg/types"
)

func newFormationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "formations",
		Short: "List the supported formations and their position quotas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "FORMATION\tPOSITION\tCOUNT")
			for _, f := range optimizer.Formations() {
				formation, err := optimizer.GetFormation(f.ID)
				if err != nil {
					return err
				}
				for _, category := range formation.Categories() {
					fmt.Fprintf(w, "%s\t%s\t%d\n", f.ID, category, f.Requirements[category])
				}
			}
			return w.Flush()
		},
	}
}

func newWeightsCmd() *cobra.Command {
	weights := types.DefaultScoringWeights()

	cmd := &cobra.Command{
		Use:   "weights",
		Short: "Print the metric weights behind each position's score",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := optimizer.ValidateWeights(weights); err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "POSITION\tMETRIC\tGROUP\tBASE\tWEIGHT")
			for _, family := range optimizer.MetricWeights(weights) {
				for _, m := range family.Metrics {
					fmt.Fprintf(w, "%s\t%s\t%s\t%.0f\t%.2f\n", family.Position, m.Metric, m.Group, m.Base, m.Weight)
				}
			}
			return w.Flush()
		},
	}

	cmd.Flags().Float64Var(&weights.Attack, "attack", 1, "Multiplier for attacking metrics")
	cmd.Flags().Float64Var(&weights.Defense, "defense", 1, "Multiplier for defensive metrics")
	return cmd
}
