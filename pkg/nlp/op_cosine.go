package nlp

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// minSegmentLength is the vector length below which a segment has no
// defined direction and the cosine term vanishes.
const minSegmentLength = 1e-12

// cosineOp penalizes a bend through an intermediate cell. With
// v1 = midA - src and v2 = tgt - midB the value is λ·(1 - cos(v1, v2)).
type cosineOp struct {
	base
	src, midA, midB, tgt pinRef
}

func newCosineOp(name string, get VarAccessor, w *Weights, src, midA, midB, tgt pinRef) *cosineOp {
	return &cosineOp{base: newBase(name, get, w), src: src, midA: midA, midB: midB, tgt: tgt}
}

func (op *cosineOp) Family() Family { return FamilyCosine }

func (op *cosineOp) vectors() (v1, v2 r2.Vec) {
	v1 = r2.Sub(op.pinPos(op.midA), op.pinPos(op.src))
	v2 = r2.Sub(op.pinPos(op.tgt), op.pinPos(op.midB))
	return v1, v2
}

func (op *cosineOp) Evaluate() float64 {
	v1, v2 := op.vectors()
	n1, n2 := r2.Norm(v1), r2.Norm(v2)
	if n1 < minSegmentLength || n2 < minSegmentLength {
		return 0
	}
	cos := r2.Dot(v1, v2) / (n1 * n2)
	return op.weight * op.w.Lambda(FamilyCosine) * (1 - cos)
}

func (op *cosineOp) ComputePartials() {
	op.resetPartials()
	v1, v2 := op.vectors()
	n1, n2 := r2.Norm(v1), r2.Norm(v2)
	if n1 < minSegmentLength || n2 < minSegmentLength {
		return
	}
	k := -op.weight * op.w.Lambda(FamilyCosine)
	cos := r2.Dot(v1, v2) / (n1 * n2)
	// d cos / d v1 and d cos / d v2, scaled to d value.
	g1 := r2.Scale(k, r2.Sub(r2.Scale(1/(n1*n2), v2), r2.Scale(cos/(n1*n1), v1)))
	g2 := r2.Scale(k, r2.Sub(r2.Scale(1/(n1*n2), v1), r2.Scale(cos/(n2*n2), v2)))
	if math.IsNaN(g1.X + g1.Y + g2.X + g2.Y) {
		return
	}

	op.addVec(op.midA.cell, g1)
	op.addVec(op.src.cell, r2.Scale(-1, g1))
	op.addVec(op.tgt.cell, g2)
	op.addVec(op.midB.cell, r2.Scale(-1, g2))
}

func (op *cosineOp) addVec(cell int, g r2.Vec) {
	op.add(cell, OrientX, g.X)
	op.add(cell, OrientY, g.Y)
}
