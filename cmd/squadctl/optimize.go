package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/stitts-dev/squad-optimizer/internal/optimizer"
	"github.com/stitts-dev/squad-optimizer/internal/repository"
	"github.com/stitts-dev/squad-optimizer/pkg/types"
)

type optimizeFlags struct {
	pool      string
	budget    float64
	formation string
	attack    float64
	defense   float64
	timeout   time.Duration
	nodeLimit int64
	asJSON    bool
}

func newOptimizeCmd(opts *cliOptions) *cobra.Command {
	flags := &optimizeFlags{}

	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Select the highest scoring squad from a candidate file",
		Example: `  squadctl optimize --pool players.yaml
  squadctl optimize --pool players.yaml --budget 250 --formation 3-5-2 --attack 1.5 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOptimize(cmd, opts, flags)
		},
	}

	cmd.Flags().StringVar(&flags.pool, "pool", "", "Candidate file (YAML or JSON)")
	cmd.Flags().Float64Var(&flags.budget, "budget", 300, "Total market value available")
	cmd.Flags().StringVar(&flags.formation, "formation", optimizer.Formation433, "Formation ID")
	cmd.Flags().Float64Var(&flags.attack, "attack", 1, "Multiplier for attacking positions")
	cmd.Flags().Float64Var(&flags.defense, "defense", 1, "Multiplier for defensive positions")
	cmd.Flags().DurationVar(&flags.timeout, "timeout", 30*time.Second, "Solver time limit (0 for none)")
	cmd.Flags().Int64Var(&flags.nodeLimit, "node-limit", 0, "Branch-and-bound node limit (0 for none)")
	cmd.Flags().BoolVar(&flags.asJSON, "json", false, "Print the squad as JSON")
	_ = cmd.MarkFlagRequired("pool")

	return cmd
}

func runOptimize(cmd *cobra.Command, opts *cliOptions, flags *optimizeFlags) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	pool, err := repository.NewFileSource(flags.pool).LoadCandidates(ctx)
	if err != nil {
		return err
	}

	engine, err := optimizer.NewEngine(optimizer.EngineConfig{
		MaxConcurrentSolves: 1,
		SolveTimeout:        flags.timeout,
		NodeLimit:           flags.nodeLimit,
	}, opts.log)
	if err != nil {
		return err
	}

	report, err := engine.Optimize(ctx, optimizer.OptimizeInput{
		Pool:      pool,
		Budget:    flags.budget,
		Formation: flags.formation,
		Weights:   types.ScoringWeights{Attack: flags.attack, Defense: flags.defense},
	})
	if err != nil {
		return fmt.Errorf("optimization failed: %w", err)
	}

	if flags.asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	return printReport(cmd.OutOrStdout(), report)
}

func printReport(out io.Writer, report *types.SquadReport) error {
	fmt.Fprintf(out, "Formation %s, budget %.2f (attack x%.2f, defense x%.2f)\n\n",
		report.Formation, report.Budget, report.Weights.Attack, report.Weights.Defense)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PLAYER\tPOSITION\tSCORE\tADJUSTED\tVALUE\tRATIO")
	for _, p := range report.Players {
		ratio := "n/a"
		if p.Ratio != nil {
			ratio = fmt.Sprintf("%.3f", *p.Ratio)
		}
		fmt.Fprintf(w, "%s\t%s\t%.2f\t%.2f\t%.2f\t%s\n",
			p.DisplayName, p.Position, p.BaseScore, p.AdjustedScore, p.MarketValue, ratio)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	avg := "n/a"
	if report.AverageCostRatio != nil {
		avg = fmt.Sprintf("%.3f", *report.AverageCostRatio)
	}
	_, err := fmt.Fprintf(out, "\nTotal score %.2f, total cost %.2f, remaining %.2f, cost per point %s (%d nodes, %dms)\n",
		report.TotalScore, report.TotalCost, report.BudgetRemaining, avg, report.Nodes, report.SolveTimeMs)
	return err
}
