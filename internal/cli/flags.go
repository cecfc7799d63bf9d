package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/analogplace/pkg/config"
)

// solveFlags holds the flags shared by every command that builds a kernel.
// Flags the user did not set leave the config file's values alone.
type solveFlags struct {
	configPath string
	method     string
	iterations int
	seed       uint64
	initPolicy string
	executor   string
	workers    int
	alpha      float64
	sharedAxis bool
	escalate   bool
	noCache    bool
	refresh    bool
}

func (f *solveFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVarP(&f.configPath, "config", "c", "", "solver config file (TOML)")
	fs.StringVarP(&f.method, "method", "m", "", "solver method: lbfgs (default), cg, gd, neldermead, none")
	fs.IntVarP(&f.iterations, "iterations", "n", 0, "maximum solver iterations")
	fs.Uint64Var(&f.seed, "seed", 0, "initial placement seed")
	fs.StringVar(&f.initPolicy, "init", "", "initial placement: random (default), normal")
	fs.StringVar(&f.executor, "executor", "", "task executor: pool (default), serial")
	fs.IntVarP(&f.workers, "workers", "j", 0, "pool workers (default: GOMAXPROCS)")
	fs.Float64Var(&f.alpha, "alpha", 0, "smoothing coefficient")
	fs.BoolVar(&f.sharedAxis, "shared-axis", false, "share one symmetry axis across groups")
	fs.BoolVar(&f.escalate, "escalate", false, "escalate penalty weights while violations persist")
	fs.BoolVar(&f.noCache, "no-cache", false, "disable caching")
	fs.BoolVar(&f.refresh, "refresh", false, "ignore cached results")
}

// config loads the config file, if any, and applies the flags the user set.
func (f *solveFlags) config(cmd *cobra.Command) (config.Config, error) {
	var cfg config.Config
	if f.configPath != "" {
		loaded, err := config.Load(f.configPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
		cfg.Invalidate()
	}

	changed := cmd.Flags().Changed
	if changed("method") {
		cfg.Solver.Method = f.method
	}
	if changed("iterations") {
		cfg.Solver.MaxIterations = f.iterations
	}
	if changed("seed") {
		cfg.Init.Seed = f.seed
	}
	if changed("init") {
		cfg.Init.Policy = f.initPolicy
	}
	if changed("executor") {
		cfg.Exec.Executor = f.executor
	}
	if changed("workers") {
		cfg.Exec.Workers = f.workers
	}
	if changed("alpha") {
		cfg.Alpha = f.alpha
	}
	if changed("shared-axis") {
		cfg.SharedSymAxis = f.sharedAxis
	}
	if changed("escalate") {
		cfg.Escalate.Enabled = f.escalate
	}
	if f.noCache {
		cfg.Cache.Backend = config.CacheNone
	}

	if err := cfg.ValidateAndSetDefaults(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}
