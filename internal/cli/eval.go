package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/matzehuels/analogplace/pkg/config"
	"github.com/matzehuels/analogplace/pkg/pipeline"
)

// evalCommand creates the eval command.
func (c *CLI) evalCommand() *cobra.Command {
	var (
		flags  solveFlags
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "eval [problem.toml]",
		Short: "Evaluate the objective at the initial placement",
		Long: `Evaluate the objective at the initial placement.

The eval command builds the kernel, places cells with the configured init
policy and evaluates every objective term once without running a solver.
It is useful for checking weights and problem files.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.config(cmd)
			if err != nil {
				return err
			}
			cfg.Solver.Method = config.MethodNone
			return c.runEval(cmd.Context(), args[0], cfg, asJSON)
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the breakdown as JSON")

	return cmd
}

func (c *CLI) runEval(ctx context.Context, input string, cfg config.Config, asJSON bool) error {
	cfg.Cache.Backend = config.CacheNone
	runner := c.newRunner(ctx, cfg.Cache)
	defer runner.Close()

	res, err := runner.Execute(ctx, pipeline.Options{
		ProblemPath: input,
		Config:      cfg,
		Logger:      c.Logger,
	})
	if err != nil {
		return err
	}

	if asJSON {
		return writeJSON("-", res.Breakdown)
	}
	printSuccess("Evaluated %s", input)
	printStats(res.Stats, false)
	printBreakdown(res.Breakdown)
	return nil
}
