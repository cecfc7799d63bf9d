// Package geom provides the scaled floating-point geometry used by the solver.
//
// Database geometry is integral; the solver works in a scaled continuous frame
// where the total cell area is normalized to 100. [Box] wraps gonum's
// [r2.Box] with the few helpers the placer needs.
package geom

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/matzehuels/analogplace/pkg/db"
	"github.com/matzehuels/analogplace/pkg/errors"
)

// NormalizedArea is the total cell area after scaling.
const NormalizedArea = 100.0

// AutoBoundaryAspect is the share of the tolerant area given to the x extent
// (squared) when no boundary is declared.
const AutoBoundaryAspect = 0.85

// Box is an axis-aligned rectangle in the scaled frame.
type Box struct {
	r2.Box
}

// NewBox returns the box with the given corners.
func NewBox(xLo, yLo, xHi, yHi float64) Box {
	return Box{r2.Box{Min: r2.Vec{X: xLo, Y: yLo}, Max: r2.Vec{X: xHi, Y: yHi}}}
}

// Width returns the x extent.
func (b Box) Width() float64 { return b.Max.X - b.Min.X }

// Height returns the y extent.
func (b Box) Height() float64 { return b.Max.Y - b.Min.Y }

// Center returns the box midpoint.
func (b Box) Center() r2.Vec { return r2.Scale(0.5, r2.Add(b.Min, b.Max)) }

// Contains reports whether the rectangle at lo with size w×h lies inside b.
func (b Box) Contains(lo r2.Vec, w, h float64) bool {
	return lo.X >= b.Min.X && lo.Y >= b.Min.Y && lo.X+w <= b.Max.X && lo.Y+h <= b.Max.Y
}

func (b Box) String() string {
	return fmt.Sprintf("(%g, %g) -> (%g, %g)", b.Min.X, b.Min.Y, b.Max.X, b.Max.Y)
}

// ScaleBox converts a database box into the scaled frame.
func ScaleBox(b db.Box, scale float64) Box {
	return NewBox(float64(b.XLo)*scale, float64(b.YLo)*scale, float64(b.XHi)*scale, float64(b.YHi)*scale)
}

// ScalePoint converts a database point into the scaled frame.
func ScalePoint(p db.Point, scale float64) r2.Vec {
	return r2.Vec{X: float64(p.X) * scale, Y: float64(p.Y) * scale}
}

// ScaleFactor returns sqrt(NormalizedArea / totalArea).
// A non-positive total area is a degeneracy.
func ScaleFactor(totalArea float64) (float64, error) {
	if !(totalArea > 0) || math.IsInf(totalArea, 0) {
		return 0, errors.New(errors.ErrCodeDegenerate, "total cell area %v is not positive", totalArea)
	}
	return math.Sqrt(NormalizedArea / totalArea), nil
}

// Boundary returns the scaled placement region for params. A declared boundary
// is scaled; otherwise an origin-anchored region is sized from the tolerated
// white space. The result must have positive width and height.
func Boundary(p db.Params, scale float64) (Box, error) {
	var b Box
	if p.BoundarySet {
		b = ScaleBox(p.Boundary, scale)
	} else {
		tolerant := NormalizedArea * (1 + p.MaxWhiteSpace)
		xHi := math.Sqrt(tolerant * AutoBoundaryAspect)
		b = NewBox(0, 0, xHi, tolerant/xHi)
	}
	if !(b.Width() > 0) || !(b.Height() > 0) {
		return Box{}, errors.New(errors.ErrCodeDegenerate, "boundary %s has zero extent", b)
	}
	return b, nil
}
