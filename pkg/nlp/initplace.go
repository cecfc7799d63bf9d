package nlp

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/matzehuels/analogplace/pkg/geom"
)

// InitPlacement produces the starting variable vector. It receives the
// scaled placement region, the scaled cell sizes indexed by cell and the
// default symmetry axis.
type InitPlacement interface {
	Place(v *Variables, region geom.Box, sizes []r2.Vec, axis float64)
}

// InitFunc adapts a function to [InitPlacement].
type InitFunc func(v *Variables, region geom.Box, sizes []r2.Vec, axis float64)

func (f InitFunc) Place(v *Variables, region geom.Box, sizes []r2.Vec, axis float64) {
	f(v, region, sizes, axis)
}

// RandomInit drops every cell on a coarse random grid: each coordinate is
// k·(region.Max / numCells) for a uniform k in [0, numCells).
type RandomInit struct {
	Seed uint64
}

func (p RandomInit) Place(v *Variables, region geom.Box, _ []r2.Vec, axis float64) {
	n := v.Index().NumCells
	if n > 0 {
		rng := rand.New(rand.NewPCG(p.Seed, p.Seed))
		xStep := region.Max.X / float64(n)
		yStep := region.Max.Y / float64(n)
		for i := 0; i < n; i++ {
			v.Set(i, OrientX, float64(rng.IntN(n))*xStep)
			v.Set(i, OrientY, float64(rng.IntN(n))*yStep)
		}
	}
	placeAxes(v, axis)
}

// NormalInit scatters cells normally around the region center with a
// standard deviation of StdDevRatio times the region size. Draws are clamped
// so each cell lies inside the region; a cell larger than the region is
// pinned to its low corner.
type NormalInit struct {
	Seed        uint64
	StdDevRatio float64
}

func (p NormalInit) Place(v *Variables, region geom.Box, sizes []r2.Vec, axis float64) {
	rng := rand.New(rand.NewPCG(p.Seed, p.Seed))
	c := region.Center()
	sx, sy := p.StdDevRatio*region.Width(), p.StdDevRatio*region.Height()
	for i := 0; i < v.Index().NumCells; i++ {
		var size r2.Vec
		if i < len(sizes) {
			size = sizes[i]
		}
		x := c.X - size.X/2 + rng.NormFloat64()*sx
		y := c.Y - size.Y/2 + rng.NormFloat64()*sy
		v.Set(i, OrientX, clamp(x, region.Min.X, region.Max.X-size.X))
		v.Set(i, OrientY, clamp(y, region.Min.Y, region.Max.Y-size.Y))
	}
	placeAxes(v, axis)
}

// clamp limits x to [lo, hi], preferring lo when the range is empty.
func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(x, hi))
}

func placeAxes(v *Variables, axis float64) {
	for g := 0; g < v.Index().NumSymGroups; g++ {
		v.Set(g, OrientSym, axis)
	}
}
