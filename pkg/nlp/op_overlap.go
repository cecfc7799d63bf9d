package nlp

// overlapOp penalizes the smoothed intersection of two cells:
//
//	λ·ramp(ox, α)·ramp(oy, α)
//
// where ox and oy are the signed overlap lengths on each axis. The value is
// exactly zero once the boxes are disjoint on either axis.
type overlapOp struct {
	base
	i, j   int
	wi, hi float64
	wj, hj float64
}

func newOverlapOp(name string, get VarAccessor, w *Weights, i, j int, wi, hi, wj, hj float64) *overlapOp {
	return &overlapOp{base: newBase(name, get, w), i: i, j: j, wi: wi, hi: hi, wj: wj, hj: hj}
}

func (op *overlapOp) Family() Family { return FamilyOverlap }

// span returns the overlap of [a, a+la) and [b, b+lb) and its derivatives
// with respect to a and b. Ties break toward different ends so coincident
// intervals of equal length still get a separating subgradient.
func span(a, la, b, lb float64) (o, da, db float64) {
	if a+la <= b+lb {
		o, da = a+la, 1
	} else {
		o, db = b+lb, 1
	}
	if a > b {
		o -= a
		da--
	} else {
		o -= b
		db--
	}
	return o, da, db
}

func (op *overlapOp) Evaluate() float64 {
	pi, pj := op.pos(op.i), op.pos(op.j)
	ox, _, _ := span(pi.X, op.wi, pj.X, op.wj)
	if ox <= 0 {
		return 0
	}
	oy, _, _ := span(pi.Y, op.hi, pj.Y, op.hj)
	a := op.w.Alpha()
	return op.weight * op.w.Lambda(FamilyOverlap) * ramp(ox, a) * ramp(oy, a)
}

func (op *overlapOp) ComputePartials() {
	op.resetPartials()
	pi, pj := op.pos(op.i), op.pos(op.j)
	ox, dxi, dxj := span(pi.X, op.wi, pj.X, op.wj)
	oy, dyi, dyj := span(pi.Y, op.hi, pj.Y, op.hj)
	if ox <= 0 || oy <= 0 {
		return
	}
	a := op.w.Alpha()
	s := op.weight * op.w.Lambda(FamilyOverlap)
	gx := s * rampGrad(ox, a) * ramp(oy, a)
	gy := s * ramp(ox, a) * rampGrad(oy, a)
	op.add(op.i, OrientX, gx*dxi)
	op.add(op.j, OrientX, gx*dxj)
	op.add(op.i, OrientY, gy*dyi)
	op.add(op.j, OrientY, gy*dyj)
}
