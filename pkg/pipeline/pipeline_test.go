package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/matzehuels/analogplace/pkg/cache"
	"github.com/matzehuels/analogplace/pkg/config"
	"github.com/matzehuels/analogplace/pkg/errors"
	"github.com/matzehuels/analogplace/pkg/observability"
)

func exampleProblem(t *testing.T) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "..", "examples", "ota.toml"))
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func fastConfig() config.Config {
	var c config.Config
	c.Exec.Executor = config.ExecutorSerial
	c.Solver.MaxIterations = 15
	c.Cache.Backend = config.CacheNone
	return c
}

func fileRunner(t *testing.T) *Runner {
	t.Helper()
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return NewRunner(c, nil, nil)
}

func TestOptionsValidate(t *testing.T) {
	var empty Options
	if err := empty.ValidateAndSetDefaults(); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("empty Options error = %v, want INVALID_INPUT", err)
	}

	o := Options{Problem: []byte("x"), Config: fastConfig()}
	if err := o.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	if o.Logger == nil || o.Config.Solver.Method != config.MethodLBFGS {
		t.Errorf("defaults not applied: %+v", o.Config.Solver)
	}
	if err := o.ValidateAndSetDefaults(); err != nil {
		t.Errorf("second ValidateAndSetDefaults() error = %v", err)
	}

	bad := Options{ProblemPath: "p.toml", Config: config.Config{Alpha: -1}}
	if err := bad.ValidateAndSetDefaults(); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("negative alpha error = %v, want INVALID_CONFIG", err)
	}
}

func TestExecuteCachesPlacement(t *testing.T) {
	ctx := context.Background()
	r := fileRunner(t)
	opts := Options{Problem: exampleProblem(t), Config: fastConfig()}

	first, err := r.Execute(ctx, opts)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if first.CacheInfo.PlacementHit {
		t.Error("first run hit the cache")
	}
	if first.Stats.Cells != 5 || first.Stats.Operators == 0 || first.RunID == "" {
		t.Errorf("Stats = %+v, RunID = %q", first.Stats, first.RunID)
	}
	if first.Breakdown.Total <= 0 {
		t.Errorf("Breakdown = %+v", first.Breakdown)
	}

	second, err := r.Execute(ctx, opts)
	if err != nil {
		t.Fatal(err)
	}
	if !second.CacheInfo.PlacementHit {
		t.Error("second run missed the cache")
	}
	if second.RunID != first.RunID || second.Breakdown != first.Breakdown {
		t.Errorf("cached result = %+v, want %+v", second.Breakdown, first.Breakdown)
	}
	if !slices.Equal(locations(second.DB), locations(first.DB)) {
		t.Errorf("cached locations %v, want %v", locations(second.DB), locations(first.DB))
	}

	opts.Refresh = true
	third, err := r.Execute(ctx, opts)
	if err != nil {
		t.Fatal(err)
	}
	if third.CacheInfo.PlacementHit {
		t.Error("refresh run hit the cache")
	}

	seeded := Options{Problem: opts.Problem, Config: fastConfig()}
	seeded.Config.Init.Seed = 99
	fourth, err := r.Execute(ctx, seeded)
	if err != nil {
		t.Fatal(err)
	}
	if fourth.CacheInfo.PlacementHit {
		t.Error("a different seed hit the cache")
	}
}

func TestExecuteWritesBackFromOffset(t *testing.T) {
	res, err := NewRunner(nil, nil, nil).Execute(context.Background(),
		Options{Problem: exampleProblem(t), Config: fastConfig()})
	if err != nil {
		t.Fatal(err)
	}
	minX, minY := 1<<30, 1<<30
	for i := 0; i < res.DB.NumCells(); i++ {
		c := res.DB.Cell(i)
		minX = min(minX, c.Loc.X+c.BBox.XLo)
		minY = min(minY, c.Loc.Y+c.BBox.YLo)
	}
	if minX != 1000 || minY != 1000 {
		t.Errorf("placement low corner = (%d, %d), want (1000, 1000)", minX, minY)
	}
}

func TestExecuteMethodNone(t *testing.T) {
	cfg := fastConfig()
	cfg.Solver.Method = config.MethodNone
	res, err := NewRunner(nil, nil, nil).Execute(context.Background(), Options{Problem: exampleProblem(t), Config: cfg})
	if err != nil {
		t.Fatal(err)
	}
	if res.Stats.Iterations != 0 {
		t.Errorf("Iterations = %d, want 0", res.Stats.Iterations)
	}
}

func TestExecuteErrors(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	ctx := context.Background()

	_, err := r.Execute(ctx, Options{ProblemPath: filepath.Join(t.TempDir(), "missing.toml")})
	if !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("missing file error = %v, want FILE_NOT_FOUND", err)
	}
	_, err = r.Execute(ctx, Options{Problem: []byte("[[cells]]\nname = 3\n")})
	if !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("malformed problem error = %v, want INVALID_FORMAT", err)
	}
}

func TestRender(t *testing.T) {
	ctx := context.Background()
	r := fileRunner(t)
	opts := Options{Problem: exampleProblem(t), Config: fastConfig()}

	data, hit, err := r.Render(ctx, opts, RenderOptions{Graph: GraphObjective, Format: FormatDOT})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if hit || !strings.Contains(string(data), "sum-all") {
		t.Errorf("Render() = hit %v:\n%s", hit, data)
	}
	if _, hit, _ := r.Render(ctx, opts, RenderOptions{Graph: GraphObjective, Format: FormatDOT}); !hit {
		t.Error("second Render() missed the cache")
	}

	grad, _, err := r.Render(ctx, opts, RenderOptions{Graph: GraphGradient, Format: FormatDOT})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(grad), "sum-grad") {
		t.Error("gradient graph lacks its sink task")
	}
}

func TestRenderOptionsValidate(t *testing.T) {
	tests := []struct {
		ro      RenderOptions
		wantErr bool
	}{
		{RenderOptions{Graph: GraphObjective}, false},
		{RenderOptions{Graph: GraphGradient, Format: FormatDOT}, false},
		{RenderOptions{Graph: "placement"}, true},
		{RenderOptions{Graph: GraphGradient, Format: "pdf"}, true},
	}
	for _, tt := range tests {
		ro := tt.ro
		if err := ro.Validate(); (err != nil) != tt.wantErr {
			t.Errorf("Validate(%+v) error = %v, wantErr %v", tt.ro, err, tt.wantErr)
		}
	}
	ro := RenderOptions{Graph: GraphObjective}
	_ = ro.Validate()
	if ro.Format != FormatSVG {
		t.Errorf("default format = %q, want svg", ro.Format)
	}
}

type loadRecorder struct {
	observability.NoopPipelineHooks
	mu    sync.Mutex
	cells []int
}

func (l *loadRecorder) OnLoadComplete(_ context.Context, _ string, cells int, _ time.Duration, _ error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cells = append(l.cells, cells)
}

func TestPipelineHooks(t *testing.T) {
	rec := &loadRecorder{}
	observability.SetPipelineHooks(rec)
	t.Cleanup(observability.Reset)

	if _, err := NewRunner(nil, nil, nil).Execute(context.Background(),
		Options{Problem: exampleProblem(t), Config: fastConfig()}); err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(rec.cells, []int{5}) {
		t.Errorf("OnLoadComplete cells = %v, want [5]", rec.cells)
	}
}
