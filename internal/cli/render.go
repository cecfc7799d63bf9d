package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/analogplace/pkg/config"
	"github.com/matzehuels/analogplace/pkg/pipeline"
)

// renderCommand creates the render command for drawing the kernel's task
// graphs.
func (c *CLI) renderCommand() *cobra.Command {
	var (
		flags  solveFlags
		ro     pipeline.RenderOptions
		output string
	)

	cmd := &cobra.Command{
		Use:   "render [problem.toml]",
		Short: "Render the objective or gradient task graph with Graphviz",
		Long: `Render the objective or gradient task graph with Graphviz.

Graphs:
  objective   operator evaluation and family sums
  gradient    partial accumulation and gradient reduction

Tasks on one rank belong to the same wave and may run concurrently. The
graphs depend on the problem and on the executor chunk size, not on the
solver's progress, so nothing is solved.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ro.Validate(); err != nil {
				return err
			}
			cfg, err := flags.config(cmd)
			if err != nil {
				return err
			}
			return c.runRender(cmd.Context(), args[0], cfg, flags.refresh, ro, output)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file, - for stdout (default: <input>.<graph>.<format>)")
	cmd.Flags().StringVarP(&ro.Graph, "graph", "g", pipeline.GraphObjective, "graph: "+strings.Join(pipeline.ValidGraphs, ", "))
	cmd.Flags().StringVarP(&ro.Format, "format", "f", pipeline.FormatSVG, "output format: "+strings.Join(pipeline.ValidFormats, ", "))
	cmd.Flags().BoolVar(&ro.Detailed, "detailed", false, "label tasks with kind and wave")

	return cmd
}

func (c *CLI) runRender(ctx context.Context, input string, cfg config.Config, refresh bool, ro pipeline.RenderOptions, output string) error {
	runner := c.newRunner(ctx, cfg.Cache)
	defer runner.Close()

	prog := newProgress(c.Logger)
	data, hit, err := runner.Render(ctx, pipeline.Options{
		ProblemPath: input,
		Config:      cfg,
		Refresh:     refresh,
		Logger:      c.Logger,
	}, ro)
	if err != nil {
		return fmt.Errorf("render %s graph: %w", ro.Graph, err)
	}
	prog.done(fmt.Sprintf("Rendered %s graph", ro.Graph))

	if output == "-" {
		fmt.Print(string(data))
		return nil
	}
	outputPath := output
	if outputPath == "" {
		base := strings.TrimSuffix(input, filepath.Ext(input))
		outputPath = fmt.Sprintf("%s.%s.%s", base, ro.Graph, ro.Format)
	}
	if err := writeFile(outputPath, data); err != nil {
		return err
	}

	printSuccess("Render complete")
	printFile(outputPath)
	if hit {
		printDetail("%s", iconCached)
	}
	return nil
}
