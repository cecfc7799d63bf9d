package nlp

// symPairRef is a mirrored pair with the width of its first cell.
type symPairRef struct {
	a, b  int
	width float64
}

// selfSymRef is a cell centered on the axis.
type selfSymRef struct {
	cell  int
	width float64
}

// asymmetryOp penalizes a symmetry group's deviation from its axis s:
//
//	λ·( Σ_pairs ((xa+xb+w)/2 - s)² + (ya-yb)²  +  Σ_self (x+w/2 - s)² )
type asymmetryOp struct {
	base
	group int
	pairs []symPairRef
	selfs []selfSymRef
}

func newAsymmetryOp(name string, get VarAccessor, w *Weights, group int, pairs []symPairRef, selfs []selfSymRef) *asymmetryOp {
	return &asymmetryOp{base: newBase(name, get, w), group: group, pairs: pairs, selfs: selfs}
}

func (op *asymmetryOp) Family() Family { return FamilyAsymmetry }

func (op *asymmetryOp) Evaluate() float64 {
	s := op.get(op.group, OrientSym)
	var sum float64
	for _, p := range op.pairs {
		pa, pb := op.pos(p.a), op.pos(p.b)
		dx := (pa.X+pb.X+p.width)/2 - s
		dy := pa.Y - pb.Y
		sum += dx*dx + dy*dy
	}
	for _, c := range op.selfs {
		dx := op.get(c.cell, OrientX) + c.width/2 - s
		sum += dx * dx
	}
	return op.weight * op.w.Lambda(FamilyAsymmetry) * sum
}

func (op *asymmetryOp) ComputePartials() {
	op.resetPartials()
	s := op.get(op.group, OrientSym)
	k := op.weight * op.w.Lambda(FamilyAsymmetry)
	var ds float64
	for _, p := range op.pairs {
		pa, pb := op.pos(p.a), op.pos(p.b)
		dx := (pa.X+pb.X+p.width)/2 - s
		dy := pa.Y - pb.Y
		op.add(p.a, OrientX, k*dx)
		op.add(p.b, OrientX, k*dx)
		op.add(p.a, OrientY, 2*k*dy)
		op.add(p.b, OrientY, -2*k*dy)
		ds -= 2 * k * dx
	}
	for _, c := range op.selfs {
		dx := op.get(c.cell, OrientX) + c.width/2 - s
		op.add(c.cell, OrientX, 2*k*dx)
		ds -= 2 * k * dx
	}
	op.add(op.group, OrientSym, ds)
}
