package nlp

import (
	"math"
	"slices"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/matzehuels/analogplace/pkg/config"
	"github.com/matzehuels/analogplace/pkg/geom"
)

func TestRandomInit(t *testing.T) {
	m := IndexMap{NumCells: 5, NumSymGroups: 2, MultiSymGroup: true}
	region := geom.NewBox(0, 0, 10, 20)

	place := func(seed uint64) []float64 {
		v := NewVariables(m)
		RandomInit{Seed: seed}.Place(v, region, nil, 5)
		return v.Copy()
	}

	a, b := place(6), place(6)
	if !slices.Equal(a, b) {
		t.Errorf("same seed gave %v and %v", a, b)
	}
	if slices.Equal(a, place(7)) {
		t.Error("different seeds gave the same placement")
	}

	v := NewVariables(m)
	if err := v.Assign(a); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < m.NumCells; i++ {
		// x steps are 10/5 = 2, y steps are 20/5 = 4.
		x, y := v.Get(i, OrientX), v.Get(i, OrientY)
		if x < 0 || x > 8 || math.Mod(x, 2) != 0 {
			t.Errorf("cell %d x = %v, want a multiple of 2 in [0, 8]", i, x)
		}
		if y < 0 || y > 16 || math.Mod(y, 4) != 0 {
			t.Errorf("cell %d y = %v, want a multiple of 4 in [0, 16]", i, y)
		}
	}
	for g := 0; g < m.NumSymGroups; g++ {
		if got := v.Get(g, OrientSym); got != 5 {
			t.Errorf("axis %d = %v, want 5", g, got)
		}
	}
}

func TestNormalInit(t *testing.T) {
	m := IndexMap{NumCells: 400, NumSymGroups: 1, MultiSymGroup: true}
	region := geom.NewBox(0, 0, 40, 20)
	v := NewVariables(m)
	NormalInit{Seed: 1, StdDevRatio: 0.1}.Place(v, region, nil, 3)

	var mx, my float64
	for i := 0; i < m.NumCells; i++ {
		mx += v.Get(i, OrientX)
		my += v.Get(i, OrientY)
	}
	mx /= float64(m.NumCells)
	my /= float64(m.NumCells)
	// Standard errors are 4/20 and 2/20.
	if math.Abs(mx-20) > 1 || math.Abs(my-10) > 0.5 {
		t.Errorf("mean = (%v, %v), want near (20, 10)", mx, my)
	}
	if got := v.Get(0, OrientSym); got != 3 {
		t.Errorf("axis = %v, want 3", got)
	}

	w := NewVariables(m)
	NormalInit{Seed: 1, StdDevRatio: 0.1}.Place(w, region, nil, 3)
	if !slices.Equal(v.Copy(), w.Copy()) {
		t.Error("NormalInit is not deterministic for a fixed seed")
	}
}

func TestNormalInitStaysInside(t *testing.T) {
	m := IndexMap{NumCells: 200}
	region := geom.NewBox(0, 0, 40, 20)
	sizes := make([]r2.Vec, m.NumCells)
	for i := range sizes {
		sizes[i] = r2.Vec{X: float64(1 + i%5), Y: float64(1 + i%3)}
	}
	// One cell wider than the region is pinned to the low corner in x.
	sizes[7] = r2.Vec{X: 50, Y: 2}

	v := NewVariables(m)
	NormalInit{Seed: 1, StdDevRatio: 1}.Place(v, region, sizes, 0)
	for i := 0; i < m.NumCells; i++ {
		lo := r2.Vec{X: v.Get(i, OrientX), Y: v.Get(i, OrientY)}
		if i == 7 {
			if lo.X != region.Min.X || lo.Y < region.Min.Y || lo.Y+2 > region.Max.Y {
				t.Errorf("oversized cell at %v, want x = %v and y inside", lo, region.Min.X)
			}
			continue
		}
		if !region.Contains(lo, sizes[i].X, sizes[i].Y) {
			t.Errorf("cell %d at %v size %v outside %s", i, lo, sizes[i], region)
		}
	}
}

func TestInitFromConfig(t *testing.T) {
	cfg := serialConfig()
	if _, ok := InitFromConfig(cfg.Init).(RandomInit); !ok {
		t.Errorf("default init = %T, want RandomInit", InitFromConfig(cfg.Init))
	}
	cfg.Init.Policy = config.InitNormal
	if p, ok := InitFromConfig(cfg.Init).(NormalInit); !ok || p.Seed != cfg.Init.Seed {
		t.Errorf("normal init = %#v", InitFromConfig(cfg.Init))
	}
}
