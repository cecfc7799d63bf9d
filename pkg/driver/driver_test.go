package driver

import (
	"context"
	"math"
	"testing"

	"github.com/matzehuels/analogplace/pkg/config"
	"github.com/matzehuels/analogplace/pkg/db"
	"github.com/matzehuels/analogplace/pkg/errors"
	"github.com/matzehuels/analogplace/pkg/nlp"
)

// bowl is a shifted quadratic with its minimum at center.
type bowl struct {
	center []float64
	x      []float64
	iter   int
	budget int
	failAt int
	evals  int
}

func newBowl(center ...float64) *bowl {
	return &bowl{center: center, x: make([]float64, len(center)), budget: 1000}
}

func (b *bowl) EvaluateObjective(context.Context) (nlp.Breakdown, error) {
	b.evals++
	if b.failAt > 0 && b.evals >= b.failAt {
		return nlp.Breakdown{}, errors.New(errors.ErrCodeInternal, "operator failed")
	}
	var f float64
	for i, c := range b.center {
		d := b.x[i] - c
		f += float64(i+1) * d * d
	}
	return nlp.Breakdown{Total: f}, nil
}

func (b *bowl) EvaluateGradient(context.Context) ([]float64, error) {
	g := make([]float64, len(b.x))
	for i, c := range b.center {
		g[i] = 2 * float64(i+1) * (b.x[i] - c)
	}
	return g, nil
}

func (b *bowl) CurrentVariables() []float64 { return append([]float64(nil), b.x...) }

func (b *bowl) SetVariables(x []float64) error {
	if len(x) != len(b.x) {
		return errors.New(errors.ErrCodeInvalidInput, "length %d, want %d", len(x), len(b.x))
	}
	copy(b.x, x)
	return nil
}

func (b *bowl) StopConditionSatisfied() bool { return b.iter >= b.budget }
func (b *bowl) NextIteration(float64)        { b.iter++ }

func TestOptimizerConverges(t *testing.T) {
	tests := []struct {
		method string
		tol    float64
	}{
		{config.MethodLBFGS, 1e-4},
		{config.MethodCG, 1e-4},
		{config.MethodGD, 1e-3},
		{config.MethodNelderMead, 1e-2},
	}
	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			p := newBowl(3, -1.5)
			res, err := Run(context.Background(), p, Settings{Method: tt.method, MaxIterations: 500, GradientThreshold: 1e-8})
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			for i, c := range p.center {
				if math.Abs(p.x[i]-c) > tt.tol {
					t.Errorf("x[%d] = %v, want %v", i, p.x[i], c)
				}
			}
			if p.iter == 0 || res.Iterations < p.iter {
				t.Errorf("Result.Iterations = %d, problem saw %d", res.Iterations, p.iter)
			}
			if res.Objective > 1e-3 {
				t.Errorf("Result.Objective = %v, want near 0", res.Objective)
			}
		})
	}
}

func TestOptimizerHonorsStopCondition(t *testing.T) {
	p := newBowl(30, -20, 7)
	p.budget = 2
	res, err := Run(context.Background(), p, Settings{Method: config.MethodGD, MaxIterations: 100})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if p.iter != 2 {
		t.Errorf("iterations = %d, want 2", p.iter)
	}
	if res.Status != StopConditionReached {
		t.Errorf("Status = %v, want %v", res.Status, StopConditionReached)
	}
}

func TestOptimizerEvaluationError(t *testing.T) {
	p := newBowl(1, 2)
	p.failAt = 3
	_, err := Run(context.Background(), p, Settings{Method: config.MethodLBFGS, MaxIterations: 50})
	if !errors.Is(err, errors.ErrCodeInternal) {
		t.Errorf("Run() error = %v, want the evaluation error", err)
	}
}

func TestOptimizerCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, newBowl(1, 2), Settings{Method: config.MethodLBFGS, MaxIterations: 50})
	if err == nil {
		t.Error("Run() on a canceled context succeeded")
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		s       Settings
		nilOpt  bool
		wantErr bool
	}{
		{Settings{Method: config.MethodLBFGS, MaxIterations: 1}, false, false},
		{Settings{Method: config.MethodNone}, true, false},
		{Settings{Method: "newton", MaxIterations: 1}, true, true},
		{Settings{Method: config.MethodCG}, true, true},
	}
	for _, tt := range tests {
		o, err := New(tt.s)
		if (err != nil) != tt.wantErr {
			t.Errorf("New(%+v) error = %v, wantErr %v", tt.s, err, tt.wantErr)
		}
		if (o == nil) != tt.nilOpt {
			t.Errorf("New(%+v) = %v, want nil %v", tt.s, o, tt.nilOpt)
		}
	}
}

func TestFirstOrder(t *testing.T) {
	for m, want := range map[string]bool{
		config.MethodLBFGS:      true,
		config.MethodCG:         true,
		config.MethodGD:         true,
		config.MethodNelderMead: false,
		config.MethodNone:       false,
	} {
		if got := FirstOrder(m); got != want {
			t.Errorf("FirstOrder(%q) = %v, want %v", m, got, want)
		}
	}
}

func TestDriveKernel(t *testing.T) {
	d := db.New()
	a := d.AddCell(db.Cell{Name: "A", BBox: db.Box{XHi: 10, YHi: 10}})
	b := d.AddCell(db.Cell{Name: "B", BBox: db.Box{XHi: 10, YHi: 10}})
	c := d.AddCell(db.Cell{Name: "C", BBox: db.Box{XHi: 10, YHi: 20}})
	pa := d.AddPin(db.Pin{Name: "A.o", Cell: a, Mid: db.Point{X: 10, Y: 5}})
	pb := d.AddPin(db.Pin{Name: "B.i", Cell: b, Mid: db.Point{X: 0, Y: 5}})
	pc := d.AddPin(db.Pin{Name: "C.i", Cell: c, Mid: db.Point{X: 0, Y: 10}})
	d.AddNet(db.Net{Name: "n", Pins: []int{pa, pb, pc}, Weight: 1})
	d.AddSymGroup(db.SymGroup{Name: "g", Pairs: []db.SymPair{{A: a, B: b}}})

	cfg := config.Default()
	cfg.Invalidate()
	cfg.Exec.Executor = config.ExecutorSerial
	cfg.Solver.MaxIterations = 50

	k, err := nlp.NewKernel(d, nil, nlp.WithConfig(cfg))
	if err != nil {
		t.Fatal(err)
	}
	if err := k.Prepare(); err != nil {
		t.Fatal(err)
	}
	start, err := k.EvaluateObjective(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	o, err := New(FromConfig(cfg.Solver))
	if err != nil {
		t.Fatal(err)
	}
	if err := o.Drive(context.Background(), k); err != nil {
		t.Fatalf("Drive() error = %v", err)
	}
	end, err := k.EvaluateObjective(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !(end.Total < start.Total) {
		t.Errorf("objective %v after Drive, want below starting %v", end.Total, start.Total)
	}
	if k.Iteration() == 0 || k.Iteration() > cfg.Solver.MaxIterations {
		t.Errorf("kernel iterations = %d, want in (0, %d]", k.Iteration(), cfg.Solver.MaxIterations)
	}
	if math.Abs(o.Result().Objective-end.Total) > 1e-9 {
		t.Errorf("Result().Objective = %v, want %v", o.Result().Objective, end.Total)
	}
}
