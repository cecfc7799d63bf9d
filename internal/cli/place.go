package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/analogplace/pkg/config"
	"github.com/matzehuels/analogplace/pkg/errors"
	"github.com/matzehuels/analogplace/pkg/nlp"
	"github.com/matzehuels/analogplace/pkg/pipeline"
)

// placementFile is the JSON document written by the place command.
type placementFile struct {
	Problem    string          `json:"problem"`
	RunID      string          `json:"run_id"`
	Status     string          `json:"status,omitempty"`
	Iterations int             `json:"iterations"`
	Breakdown  nlp.Breakdown   `json:"breakdown"`
	Cells      []placementCell `json:"cells"`
}

type placementCell struct {
	Name string `json:"name"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
}

// placeCommand creates the place command.
func (c *CLI) placeCommand() *cobra.Command {
	var (
		flags  solveFlags
		output string
	)

	cmd := &cobra.Command{
		Use:   "place [problem.toml]",
		Short: "Compute a placement for a problem file",
		Long: `Compute a placement for a problem file.

The place command builds the objective for every net, cell pair, cell,
symmetry group and signal path segment, minimizes it with the selected
solver and writes the rounded cell locations as JSON.

Results are cached, keyed by the problem contents and solver settings.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.config(cmd)
			if err != nil {
				return err
			}
			return c.runPlace(cmd.Context(), args[0], cfg, flags.refresh, output)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file, - for stdout (default: <input>.placement.json)")

	return cmd
}

// runPlace solves the problem and writes the placement.
func (c *CLI) runPlace(ctx context.Context, input string, cfg config.Config, refresh bool, output string) error {
	runner := c.newRunner(ctx, cfg.Cache)
	defer runner.Close()

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Placing with %s...", cfg.Solver.Method))
	spinner.Start()

	res, err := runner.Execute(ctx, pipeline.Options{
		ProblemPath: input,
		Config:      cfg,
		Refresh:     refresh,
		Logger:      c.Logger,
	})
	if err != nil {
		spinner.StopWithError("Placement failed")
		if errors.Is(err, errors.ErrCodeCanceled) {
			return context.Canceled
		}
		return err
	}
	spinner.Stop()

	outputPath := output
	if outputPath == "" {
		outputPath = strings.TrimSuffix(input, filepath.Ext(input)) + ".placement.json"
	}
	if err := writeJSON(outputPath, newPlacementFile(input, res)); err != nil {
		return err
	}
	if outputPath == "-" {
		return nil
	}

	printSuccess("Placement complete")
	printFile(outputPath)
	printStats(res.Stats, res.CacheInfo.PlacementHit)
	printBreakdown(res.Breakdown)
	printNewline()
	printNextStep("Inspect the gradient tasks", fmt.Sprintf("%s render --graph gradient %s", appName, input))

	return nil
}

func newPlacementFile(input string, res *pipeline.Result) placementFile {
	f := placementFile{
		Problem:    input,
		RunID:      res.RunID,
		Iterations: res.Stats.Iterations,
		Breakdown:  res.Breakdown,
		Cells:      make([]placementCell, res.DB.NumCells()),
	}
	if res.Driver.Status != 0 {
		f.Status = res.Driver.Status.String()
	}
	for i := range f.Cells {
		cell := res.DB.Cell(i)
		f.Cells[i] = placementCell{Name: cell.Name, X: cell.Loc.X, Y: cell.Loc.Y}
	}
	return f
}

// writeJSON writes v indented to path, or to stdout when path is "-".
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode %s", path)
	}
	data = append(data, '\n')
	if path == "-" {
		_, err = os.Stdout.Write(data)
		return err
	}
	return writeFile(path, data)
}

func writeFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write output %s: %w", path, err)
	}
	return nil
}
