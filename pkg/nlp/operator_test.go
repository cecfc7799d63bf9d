package nlp

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/matzehuels/analogplace/pkg/geom"
	"github.com/matzehuels/analogplace/pkg/sigpath"
)

func TestRamp(t *testing.T) {
	const a = 0.5
	tests := []struct {
		t, want, grad float64
	}{
		{-1, 0, 0},
		{0, 0, 0},
		{0.25, 0.0625, 0.5},
		{0.5, 0.25, 1},
		{2, 1.75, 1},
	}
	for _, tt := range tests {
		if got := ramp(tt.t, a); math.Abs(got-tt.want) > 1e-15 {
			t.Errorf("ramp(%v) = %v, want %v", tt.t, got, tt.want)
		}
		if got := rampGrad(tt.t, a); math.Abs(got-tt.grad) > 1e-15 {
			t.Errorf("rampGrad(%v) = %v, want %v", tt.t, got, tt.grad)
		}
	}
	// Both branches meet at t = a.
	if l, r := ramp(a-1e-12, a), ramp(a+1e-12, a); math.Abs(l-r) > 1e-11 {
		t.Errorf("ramp discontinuous at a: %v vs %v", l, r)
	}
}

// twoCells returns variables for two cells with cell 0 at (x0, y0) and
// cell 1 at (x1, y1).
func twoCells(x0, y0, x1, y1 float64) *Variables {
	v := NewVariables(IndexMap{NumCells: 2})
	v.Set(0, OrientX, x0)
	v.Set(0, OrientY, y0)
	v.Set(1, OrientX, x1)
	v.Set(1, OrientY, y1)
	return v
}

func TestOverlapOperator(t *testing.T) {
	w := NewWeights(1)
	tests := []struct {
		name     string
		x1, y1   float64
		positive bool
	}{
		{"disjoint in x", 5, 0, false},
		{"disjoint in y", 0, 3, false},
		{"touching", 4, 0, false},
		{"intersecting", 2, 1, true},
		{"contained", 0.5, 0.5, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := twoCells(0, 0, tt.x1, tt.y1)
			op := newOverlapOp("ovl", v.Get, w, 0, 1, 4, 2, 3, 1)
			got := op.Evaluate()
			if tt.positive && !(got > 0) {
				t.Errorf("Evaluate() = %v, want > 0", got)
			}
			if !tt.positive && got != 0 {
				t.Errorf("Evaluate() = %v, want exactly 0", got)
			}
			op.ComputePartials()
			if !tt.positive {
				for _, p := range op.Partials() {
					if p.Value != 0 {
						t.Errorf("partial %+v, want 0 for disjoint cells", p)
					}
				}
			}
		})
	}
}

func TestOverlapCoincidentCells(t *testing.T) {
	w := NewWeights(1)
	v := twoCells(2, 3, 2, 3)
	op := newOverlapOp("ovl", v.Get, w, 0, 1, 4, 4, 4, 4)
	if got := op.Evaluate(); !(got > 0) {
		t.Fatalf("Evaluate() = %v, want > 0", got)
	}
	op.ComputePartials()
	g := dense(v.Index(), op.Partials())
	for _, o := range []Orient{OrientX, OrientY} {
		gi, gj := g[v.Index().PositionOf(0, o)], g[v.Index().PositionOf(1, o)]
		if gi == 0 || gj == 0 {
			t.Errorf("%v partials = (%v, %v), want both nonzero", o, gi, gj)
		}
		if gi != -gj {
			t.Errorf("%v partials = (%v, %v), want opposite", o, gi, gj)
		}
	}
}

func TestOverlapContinuous(t *testing.T) {
	w := NewWeights(1)
	prev := math.NaN()
	// Slide cell 1 leftwards across cell 0's right edge at x = 4.
	for i := 0; i <= 200; i++ {
		x := 4.1 - float64(i)*0.001
		v := twoCells(0, 0, x, 0.5)
		got := newOverlapOp("ovl", v.Get, w, 0, 1, 4, 2, 3, 1).Evaluate()
		if !math.IsNaN(prev) && math.Abs(got-prev) > 1e-3 {
			t.Fatalf("jump at x=%v: %v -> %v", x, prev, got)
		}
		prev = got
	}
}

func TestBoundaryOperator(t *testing.T) {
	w := NewWeights(1)
	region := geom.NewBox(0, 0, 10, 10)
	tests := []struct {
		name     string
		x, y     float64
		positive bool
	}{
		{"inside", 2, 3, false},
		{"flush corner", 0, 0, false},
		{"flush far corner", 8, 7, false},
		{"left", -0.5, 3, true},
		{"right", 9, 3, true},
		{"below", 2, -4, true},
		{"above", 2, 8, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := twoCells(tt.x, tt.y, 0, 0)
			op := newBoundaryOp("oob", v.Get, w, 0, 2, 3, region)
			got := op.Evaluate()
			if tt.positive && !(got > 0) {
				t.Errorf("Evaluate() = %v, want > 0", got)
			}
			if !tt.positive && got != 0 {
				t.Errorf("Evaluate() = %v, want exactly 0", got)
			}
		})
	}
}

func TestAsymmetryOperator(t *testing.T) {
	w := NewWeights(1)
	m := IndexMap{NumCells: 3, NumSymGroups: 1, MultiSymGroup: true}
	pairs := []symPairRef{{a: 0, b: 1, width: 2}}
	selfs := []selfSymRef{{cell: 2, width: 4}}

	mirrored := func() *Variables {
		v := NewVariables(m)
		v.Set(0, OrientSym, 10)
		// Pair centers at 7 and 13, self cell centered on 10.
		v.Set(0, OrientX, 6)
		v.Set(1, OrientX, 12)
		v.Set(0, OrientY, 3)
		v.Set(1, OrientY, 3)
		v.Set(2, OrientX, 8)
		v.Set(2, OrientY, 9)
		return v
	}

	tests := []struct {
		name   string
		mutate func(v *Variables)
		zero   bool
	}{
		{"mirrored", func(*Variables) {}, true},
		{"self cell free in y", func(v *Variables) { v.Set(2, OrientY, -5) }, true},
		{"pair y mismatch", func(v *Variables) { v.Set(1, OrientY, 3.5) }, false},
		{"pair shifted", func(v *Variables) { v.Set(1, OrientX, 12.25) }, false},
		{"axis moved", func(v *Variables) { v.Set(0, OrientSym, 10.5) }, false},
		{"self off axis", func(v *Variables) { v.Set(2, OrientX, 7) }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := mirrored()
			tt.mutate(v)
			got := newAsymmetryOp("asym", v.Get, w, 0, pairs, selfs).Evaluate()
			if tt.zero && got != 0 {
				t.Errorf("Evaluate() = %v, want exactly 0", got)
			}
			if !tt.zero && !(got > 0) {
				t.Errorf("Evaluate() = %v, want > 0", got)
			}
		})
	}
}

func TestCosineOperator(t *testing.T) {
	w := NewWeights(1)
	w.SetLambda(FamilyCosine, 3)
	m := IndexMap{NumCells: 3}
	pin := func(cell int) pinRef { return pinRef{cell: cell} }

	tests := []struct {
		name string
		pos  [3]r2.Vec
		want float64
	}{
		{"straight", [3]r2.Vec{{X: 0}, {X: 5}, {X: 9}}, 0},
		{"right angle", [3]r2.Vec{{X: 0}, {X: 5}, {X: 5, Y: 4}}, 3},
		{"reversed", [3]r2.Vec{{X: 0}, {X: 5}, {X: 1}}, 6},
		{"degenerate", [3]r2.Vec{{X: 5}, {X: 5}, {X: 9}}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewVariables(m)
			for i, p := range tt.pos {
				v.Set(i, OrientX, p.X)
				v.Set(i, OrientY, p.Y)
			}
			op := newCosineOp("cos", v.Get, w, pin(0), pin(1), pin(1), pin(2))
			if got := op.Evaluate(); math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("Evaluate() = %v, want %v", got, tt.want)
			}
			if tt.name == "degenerate" {
				op.ComputePartials()
				if len(op.Partials()) != 0 {
					t.Errorf("Partials() = %v, want none", op.Partials())
				}
			}
		})
	}
}

func TestWirelengthOperator(t *testing.T) {
	const a = 0.5
	w := NewWeights(a)

	v := twoCells(1, 2, 7, 5)
	single := newWirelengthOp("single", v.Get, w, []pinRef{{cell: 0}})
	if got := single.Evaluate(); got != 0 {
		t.Errorf("single-pin Evaluate() = %v, want 0", got)
	}
	single.ComputePartials()
	if len(single.Partials()) != 0 {
		t.Errorf("single-pin Partials() = %v, want none", single.Partials())
	}

	off := r2.Vec{X: 0.5, Y: 0.25}
	op := newWirelengthOp("pair", v.Get, w, []pinRef{{cell: 0, off: off}, {cell: 1}})
	op.SetWeight(2)
	lse := func(p, q float64) float64 {
		return a*math.Log(math.Exp(p/a)+math.Exp(q/a)) + a*math.Log(math.Exp(-p/a)+math.Exp(-q/a))
	}
	want := 2 * (lse(1.5, 7) + lse(2.25, 5))
	if got := op.Evaluate(); math.Abs(got-want) > 1e-12 {
		t.Errorf("Evaluate() = %v, want %v", got, want)
	}

	// The surrogate bounds the exact half-perimeter from above.
	hpwl := 2 * ((7 - 1.5) + (5 - 2.25))
	slack := 2 * 2 * (2 * a * math.Log(2))
	if got := op.Evaluate(); got < hpwl || got > hpwl+slack {
		t.Errorf("Evaluate() = %v, want within [%v, %v]", got, hpwl, hpwl+slack)
	}
}

func TestOperatorGradients(t *testing.T) {
	d := fixture()
	segs := sigpath.Default.Decompose(d)
	scale, err := geom.ScaleFactor(d.TotalCellArea())
	if err != nil {
		t.Fatal(err)
	}
	region, err := geom.Boundary(d.Params(), scale)
	if err != nil {
		t.Fatal(err)
	}

	for _, alpha := range []float64{1, 0.3} {
		m := IndexMap{NumCells: d.NumCells(), NumSymGroups: d.NumSymGroups(), MultiSymGroup: true}
		vars := NewVariables(m)
		x := generic()
		if err := vars.Assign(x); err != nil {
			t.Fatal(err)
		}
		w := NewWeights(alpha)
		w.SetLambda(FamilyOverlap, 2.5)
		w.SetLambda(FamilyCosine, 0.7)

		ops, err := Build(d, segs, scale, region, vars, w)
		if err != nil {
			t.Fatalf("Build() error = %v", err)
		}
		for _, f := range Families {
			if len(ops.Family(f)) == 0 {
				t.Errorf("no %s operators built", f)
			}
			for _, op := range ops.Family(f) {
				if err := vars.Assign(x); err != nil {
					t.Fatal(err)
				}
				op.ComputePartials()
				analytic := dense(m, op.Partials())
				eval := func(y []float64) float64 {
					_ = vars.Assign(y)
					return op.Evaluate()
				}
				checkGradient(t, op.Name(), eval, x, analytic)
			}
		}
	}
}
