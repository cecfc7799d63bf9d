package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/analogplace/pkg/cache"
	"github.com/matzehuels/analogplace/pkg/db"
	"github.com/matzehuels/analogplace/pkg/driver"
	"github.com/matzehuels/analogplace/pkg/errors"
	"github.com/matzehuels/analogplace/pkg/nlp"
	"github.com/matzehuels/analogplace/pkg/observability"
	"github.com/matzehuels/analogplace/pkg/sigpath"
)

// Runner executes pipelines against a shared cache.
//
// The Runner holds no per-run state; one Runner may serve concurrent runs
// with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner. A nil cache disables caching, a nil keyer
// selects [cache.DefaultKeyer] and a nil logger selects log.Default.
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Cache: c, Keyer: keyer, Logger: logger}
}

// Problem is a loaded problem ready for a kernel.
type Problem struct {
	DB       *db.Database
	Segments []sigpath.Segment
	Hash     string
}

// Load reads and decodes the problem named by opts.
func (r *Runner) Load(ctx context.Context, opts Options) (*Problem, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	start := time.Now()
	observability.Pipeline().OnLoadStart(ctx, opts.ProblemPath)

	p, err := load(opts)
	cells := 0
	if p != nil {
		cells = p.DB.NumCells()
	}
	observability.Pipeline().OnLoadComplete(ctx, opts.ProblemPath, cells, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func load(opts Options) (*Problem, error) {
	data := opts.Problem
	if len(data) == 0 {
		raw, err := os.ReadFile(opts.ProblemPath)
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "problem file %s", opts.ProblemPath)
		}
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read problem %s", opts.ProblemPath)
		}
		data = raw
	}
	d, err := db.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return &Problem{DB: d, Segments: sigpath.Default.Decompose(d), Hash: cache.Hash(data)}, nil
}

// NewKernel returns a kernel for p configured from opts. The gradient graph
// is built only when the configured method needs it.
func (r *Runner) NewKernel(p *Problem, opts Options, extra ...nlp.Option) (*nlp.Kernel, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	kopts := append([]nlp.Option{
		nlp.WithConfig(opts.Config),
		nlp.WithLogger(opts.Logger),
		nlp.WithFirstOrder(driver.FirstOrder(opts.Config.Solver.Method)),
	}, extra...)
	return nlp.NewKernel(p.DB, p.Segments, kopts...)
}

// placementRecord is the cached form of a solve.
type placementRecord struct {
	Locations  []db.Point    `json:"locations"`
	Breakdown  nlp.Breakdown `json:"breakdown"`
	Iterations int           `json:"iterations"`
	RunID      string        `json:"run_id"`
}

// Execute loads the problem and solves it, reusing a cached placement when
// one exists for the same problem and settings.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	loadStart := time.Now()
	p, err := r.Load(ctx, opts)
	if err != nil {
		return nil, err
	}
	res := &Result{DB: p.DB, ProblemHash: p.Hash}
	res.Stats.LoadTime = time.Since(loadStart)
	res.Stats.Cells = p.DB.NumCells()
	res.Stats.Nets = p.DB.NumNets()
	r.Logger.Info("loaded problem",
		"cells", res.Stats.Cells,
		"nets", res.Stats.Nets,
		"segments", len(p.Segments),
		"duration", res.Stats.LoadTime)

	key := r.Keyer.PlacementKey(p.Hash, cache.PlacementOpts(opts.Config))
	if !opts.Refresh {
		if rec, ok := r.cachedPlacement(ctx, key, p.DB.NumCells()); ok {
			for i, loc := range rec.Locations {
				p.DB.SetCellLoc(i, loc)
			}
			res.RunID = rec.RunID
			res.Breakdown = rec.Breakdown
			res.Stats.Iterations = rec.Iterations
			res.CacheInfo.PlacementHit = true
			r.Logger.Info("placement from cache", "run", rec.RunID)
			return res, nil
		}
	}

	solveStart := time.Now()
	k, err := r.NewKernel(p, opts)
	if err != nil {
		return nil, err
	}
	opt, err := driver.New(driver.FromConfig(opts.Config.Solver), driver.WithLogger(opts.Logger))
	if err != nil {
		return nil, err
	}
	var d nlp.Driver
	if opt != nil {
		d = opt
	}
	b, err := k.Solve(ctx, d)
	if err != nil {
		return nil, err
	}
	res.RunID = k.RunID()
	res.Breakdown = b
	if opt != nil {
		res.Driver = opt.Result()
	}
	res.Stats.Operators = k.Operators().Len()
	res.Stats.Iterations = k.Iteration()
	res.Stats.SolveTime = time.Since(solveStart)

	r.storePlacement(ctx, key, opts, placementRecord{
		Locations:  locations(p.DB),
		Breakdown:  b,
		Iterations: res.Stats.Iterations,
		RunID:      res.RunID,
	})
	return res, nil
}

func (r *Runner) cachedPlacement(ctx context.Context, key string, cells int) (placementRecord, bool) {
	var rec placementRecord
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil {
		r.Logger.Warn("cache read failed", "err", err)
		return rec, false
	}
	if !hit {
		observability.Cache().OnCacheMiss(ctx, "placement")
		return rec, false
	}
	if err := json.Unmarshal(data, &rec); err != nil || len(rec.Locations) != cells {
		observability.Cache().OnCacheMiss(ctx, "placement")
		return rec, false
	}
	observability.Cache().OnCacheHit(ctx, "placement")
	return rec, true
}

func (r *Runner) storePlacement(ctx context.Context, key string, opts Options, rec placementRecord) {
	data, err := json.Marshal(rec)
	if err != nil {
		return
	}
	ttl, _ := opts.Config.Cache.TTLDuration()
	if err := r.Cache.Set(ctx, key, data, ttl); err != nil {
		r.Logger.Warn("cache write failed", "err", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, "placement", len(data))
}

func locations(r db.Reader) []db.Point {
	locs := make([]db.Point, r.NumCells())
	for i := range locs {
		locs[i] = r.Cell(i).Loc
	}
	return locs
}

// Close releases the cache.
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
