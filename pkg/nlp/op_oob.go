package nlp

import "github.com/matzehuels/analogplace/pkg/geom"

// boundaryOp penalizes a cell protruding from the placement region by the
// smoothed protrusion on each of the four sides.
type boundaryOp struct {
	base
	cell   int
	width  float64
	height float64
	region geom.Box
}

func newBoundaryOp(name string, get VarAccessor, w *Weights, cell int, width, height float64, region geom.Box) *boundaryOp {
	return &boundaryOp{base: newBase(name, get, w), cell: cell, width: width, height: height, region: region}
}

func (op *boundaryOp) Family() Family { return FamilyBoundary }

// protrusions returns how far the cell sticks out on the low x, high x,
// low y and high y sides.
func (op *boundaryOp) protrusions() [4]float64 {
	p := op.pos(op.cell)
	return [4]float64{
		op.region.Min.X - p.X,
		p.X + op.width - op.region.Max.X,
		op.region.Min.Y - p.Y,
		p.Y + op.height - op.region.Max.Y,
	}
}

func (op *boundaryOp) Evaluate() float64 {
	a := op.w.Alpha()
	var sum float64
	for _, t := range op.protrusions() {
		sum += ramp(t, a)
	}
	return op.weight * op.w.Lambda(FamilyBoundary) * sum
}

func (op *boundaryOp) ComputePartials() {
	op.resetPartials()
	a := op.w.Alpha()
	s := op.weight * op.w.Lambda(FamilyBoundary)
	t := op.protrusions()
	op.add(op.cell, OrientX, s*(rampGrad(t[1], a)-rampGrad(t[0], a)))
	op.add(op.cell, OrientY, s*(rampGrad(t[3], a)-rampGrad(t[2], a)))
}
