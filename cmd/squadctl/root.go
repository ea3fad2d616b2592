package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/stitts-dev/squad-optimizer/pkg/logger"
)

// cliOptions carries the persistent flags shared by every command.
type cliOptions struct {
	verbose bool
	log     *logrus.Logger
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}

	root := &cobra.Command{
		Use:   "squadctl",
		Short: "Pick the best 11-player squad under a budget",
		Long: `squadctl runs the squad optimizer against a local candidate file.

The candidate file is YAML (or JSON) holding either a list of candidates or a
document with a "candidates" key. Each candidate needs an id, a position, a
performance_score and a market_value.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.verbose {
				opts.log = logger.InitLogger("debug", true)
				opts.log.SetOutput(cmd.ErrOrStderr())
				return
			}
			opts.log = logger.NewDiscardLogger()
		},
	}

	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log solver progress to stderr")

	root.AddCommand(
		newOptimizeCmd(opts),
		newFormationsCmd(),
		newWeightsCmd(),
	)
	return root
}
