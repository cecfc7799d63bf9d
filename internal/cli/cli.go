// Package cli implements the analogplace command-line interface.
//
// Commands load a TOML problem file, run the placement pipeline and report
// the objective breakdown. The CLI is built using cobra and logs through
// charmbracelet/log.
//
// # Commands
//
// The main commands are:
//   - place: Solve a problem and write the placement as JSON
//   - eval: Evaluate the initial placement without iterating
//   - render: Draw the objective or gradient task graph with Graphviz
//   - cache: Manage the placement cache
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging.
package cli

import (
	"context"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/analogplace/pkg/buildinfo"
	"github.com/matzehuels/analogplace/pkg/cache"
	"github.com/matzehuels/analogplace/pkg/config"
	"github.com/matzehuels/analogplace/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for display.
const appName = "analogplace"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Analogplace places analog circuit cells by nonlinear optimization",
		Long:         `Analogplace computes a global placement for analog integrated circuits by minimizing a smooth objective of wirelength, overlap, boundary, symmetry and signal-path penalties.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())

	root.AddCommand(c.placeCommand())
	root.AddCommand(c.evalCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use. An unavailable cache
// backend degrades to no caching.
func (c *CLI) newRunner(ctx context.Context, cfg config.Cache) *pipeline.Runner {
	store, err := cache.New(ctx, cfg)
	if err != nil {
		c.Logger.Warn("cache disabled", "backend", cfg.Backend, "err", err)
		store = cache.NewNullCache()
	}
	return pipeline.NewRunner(store, cache.NewScopedKeyer(nil, buildinfo.Version+":"), c.Logger)
}
