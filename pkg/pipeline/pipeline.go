// Package pipeline runs the load → solve → write-back flow shared by every
// entry point.
//
// # Stages
//
//  1. Load: read the TOML problem and derive signal path segments
//  2. Solve: build the kernel, drive the configured optimizer and write the
//     placement back into the database
//  3. Render: optionally draw the objective or gradient task graph with Graphviz
//
// Solved placements and rendered artifacts are cached by a hash of the
// problem file and every setting that affects the result.
//
// # Usage
//
//	runner := pipeline.NewRunner(c, nil, logger)
//	res, err := runner.Execute(ctx, pipeline.Options{ProblemPath: "ota.toml"})
//	if err != nil {
//	    return err
//	}
//	fmt.Println(res.Breakdown)
package pipeline

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/analogplace/pkg/config"
	"github.com/matzehuels/analogplace/pkg/db"
	"github.com/matzehuels/analogplace/pkg/driver"
	"github.com/matzehuels/analogplace/pkg/errors"
	"github.com/matzehuels/analogplace/pkg/nlp"
)

// Format constants for rendered artifacts.
const (
	FormatDOT = "dot"
	FormatSVG = "svg"
)

// Task graph names accepted by [Runner.Render].
const (
	GraphObjective = "objective"
	GraphGradient  = "gradient"
)

// ValidFormats lists the artifact formats.
var ValidFormats = []string{FormatDOT, FormatSVG}

// ValidGraphs lists the renderable graphs.
var ValidGraphs = []string{GraphObjective, GraphGradient}

// =============================================================================
// Options
// =============================================================================

// Options configures one pipeline run.
type Options struct {
	// ProblemPath is the TOML problem file. Ignored when Problem is set.
	ProblemPath string
	// Problem holds the raw problem file contents.
	Problem []byte

	// Config holds solver settings. A zero Config is completed with defaults.
	Config config.Config

	// Refresh skips cache lookups but still stores the result.
	Refresh bool

	Logger *log.Logger

	validated bool
}

// ValidateAndSetDefaults checks required fields and applies defaults.
// It is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.ProblemPath == "" && len(o.Problem) == 0 {
		return errors.New(errors.ErrCodeInvalidInput, "problem path or contents required")
	}
	if o.ProblemPath != "" && len(o.Problem) == 0 {
		if err := errors.ValidatePath(o.ProblemPath); err != nil {
			return err
		}
	}
	if err := o.Config.ValidateAndSetDefaults(); err != nil {
		return err
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

// =============================================================================
// Results
// =============================================================================

// Result contains the outputs of a pipeline run.
type Result struct {
	// DB holds the problem with cell locations written back.
	DB *db.Database
	// ProblemHash is the content hash of the problem file.
	ProblemHash string
	RunID       string

	Breakdown nlp.Breakdown
	Driver    driver.Result

	Stats     Stats
	CacheInfo CacheInfo
}

// Stats contains run statistics.
type Stats struct {
	Cells      int
	Nets       int
	Operators  int
	Iterations int
	LoadTime   time.Duration
	SolveTime  time.Duration
}

// CacheInfo tracks which stages hit the cache.
type CacheInfo struct {
	PlacementHit bool
	RenderHit    bool
}
