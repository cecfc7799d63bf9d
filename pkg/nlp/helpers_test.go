package nlp

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/diff/fd"

	"github.com/matzehuels/analogplace/pkg/config"
	"github.com/matzehuels/analogplace/pkg/db"
	"github.com/matzehuels/analogplace/pkg/sigpath"
)

// fixture returns a four-cell problem exercising every operator family:
// two nets, one symmetry group with a pair and a self-symmetric cell, and
// one signal path through B.
func fixture() *db.Database {
	d := db.New()
	a := d.AddCell(db.Cell{Name: "A", BBox: db.Box{XHi: 20, YHi: 10}})
	b := d.AddCell(db.Cell{Name: "B", BBox: db.Box{XHi: 20, YHi: 10}})
	c := d.AddCell(db.Cell{Name: "C", BBox: db.Box{XLo: 5, YLo: 5, XHi: 15, YHi: 25}})
	e := d.AddCell(db.Cell{Name: "D", BBox: db.Box{XHi: 10, YHi: 10}})

	ao := d.AddPin(db.Pin{Name: "A.o", Cell: a, Mid: db.Point{X: 18, Y: 5}})
	bi := d.AddPin(db.Pin{Name: "B.i", Cell: b, Mid: db.Point{X: 2, Y: 5}})
	bo := d.AddPin(db.Pin{Name: "B.o", Cell: b, Mid: db.Point{X: 18, Y: 7}})
	ci := d.AddPin(db.Pin{Name: "C.i", Cell: c, Mid: db.Point{X: 10, Y: 6}})
	d.AddPin(db.Pin{Name: "C.o", Cell: c, Mid: db.Point{X: 10, Y: 24}})
	di := d.AddPin(db.Pin{Name: "D.i", Cell: e, Mid: db.Point{X: 5, Y: 5}})

	d.AddNet(db.Net{Name: "n0", Pins: []int{ao, bi}, Weight: 1})
	d.AddNet(db.Net{Name: "n1", Pins: []int{bo, ci, di}, Weight: 2})
	d.AddSymGroup(db.SymGroup{Name: "g", Pairs: []db.SymPair{{A: a, B: b}}, SelfSyms: []int{c}})
	d.AddSignalPath(db.SignalPath{Name: "p", Pins: []int{ao, bi, bo, ci}})
	d.SetParams(db.Params{BoundarySet: true, Boundary: db.Box{XHi: 60, YHi: 40}, LayoutOffset: 100})
	return d
}

// prepared returns a kernel for d with its tasks constructed and the
// variables set to x (or left at the init placement when x is nil).
func prepared(t *testing.T, d *db.Database, x []float64, opts ...Option) *Kernel {
	t.Helper()
	k, err := NewKernel(d, sigpath.Default.Decompose(d), opts...)
	if err != nil {
		t.Fatalf("NewKernel() error = %v", err)
	}
	if err := k.InitProblem(); err != nil {
		t.Fatalf("InitProblem() error = %v", err)
	}
	if x == nil {
		if err := k.InitPlace(); err != nil {
			t.Fatalf("InitPlace() error = %v", err)
		}
	} else if err := k.SetVariables(x); err != nil {
		t.Fatalf("SetVariables() error = %v", err)
	}
	if err := k.BuildOperators(); err != nil {
		t.Fatalf("BuildOperators() error = %v", err)
	}
	if err := k.ConstructTasks(); err != nil {
		t.Fatalf("ConstructTasks() error = %v", err)
	}
	return k
}

// generic is a vector for fixture with no coordinate ties, partial overlaps
// and one cell protruding from the boundary.
func generic() []float64 {
	return []float64{
		// x: A, B, C, D
		3.1, 9.7, 15.3, 40.2,
		// y: A, B, C, D
		2.3, 4.9, 1.1, 26.4,
		// axis
		11.7,
	}
}

func serialConfig() config.Config {
	c := config.Default()
	c.Invalidate()
	c.Exec.Executor = config.ExecutorSerial
	return c
}

// dense scatters an operator's partials into a vector of m.Len().
func dense(m IndexMap, ps []Partial) []float64 {
	g := make([]float64, m.Len())
	for _, p := range ps {
		g[m.PositionOf(p.ID, p.Orient)] += p.Value
	}
	return g
}

// checkGradient compares analytic against a forward-difference gradient of f.
func checkGradient(t *testing.T, name string, f func([]float64) float64, x, analytic []float64) {
	t.Helper()
	num := fd.Gradient(nil, f, x, &fd.Settings{Formula: fd.Forward, Step: 1e-7})
	for i := range num {
		tol := 1e-4 * math.Max(1, math.Abs(analytic[i]))
		if math.Abs(num[i]-analytic[i]) > tol {
			t.Errorf("%s: d/dx[%d] = %v, finite difference %v", name, i, analytic[i], num[i])
		}
	}
}
