package nlp

import "math"

// wirelengthOp is the log-sum-exp surrogate of a net's half-perimeter
// wirelength. On each axis it sums a smooth max and a smooth -min of the
// pin coordinates:
//
//	α·log Σ exp(c/α) + α·log Σ exp(-c/α)
type wirelengthOp struct {
	base
	pins []pinRef
	buf  []float64
}

func newWirelengthOp(name string, get VarAccessor, w *Weights, pins []pinRef) *wirelengthOp {
	return &wirelengthOp{base: newBase(name, get, w), pins: pins, buf: make([]float64, len(pins))}
}

func (op *wirelengthOp) Family() Family { return FamilyWirelength }

func (op *wirelengthOp) coords(o Orient) []float64 {
	for i, p := range op.pins {
		c := op.get(p.cell, o)
		if o == OrientX {
			c += p.off.X
		} else {
			c += p.off.Y
		}
		op.buf[i] = c
	}
	return op.buf
}

func (op *wirelengthOp) Evaluate() float64 {
	if len(op.pins) < 2 {
		return 0
	}
	a := op.w.Alpha()
	var sum float64
	for _, o := range [...]Orient{OrientX, OrientY} {
		c := op.coords(o)
		sum += smoothMax(c, a)
		sum += smoothMax(negated(c), a)
	}
	return op.weight * op.w.Lambda(FamilyWirelength) * sum
}

func (op *wirelengthOp) ComputePartials() {
	op.resetPartials()
	if len(op.pins) < 2 {
		return
	}
	a := op.w.Alpha()
	scale := op.weight * op.w.Lambda(FamilyWirelength)
	for _, o := range [...]Orient{OrientX, OrientY} {
		c := op.coords(o)
		hi, lo := softmaxAt(c, a)
		for i, p := range op.pins {
			op.add(p.cell, o, scale*(hi[i]-lo[i]))
		}
	}
}

// smoothMax returns α·log Σ exp(c/α), shifted by max(c) for stability.
func smoothMax(c []float64, a float64) float64 {
	m := c[0]
	for _, v := range c[1:] {
		m = math.Max(m, v)
	}
	var s float64
	for _, v := range c {
		s += math.Exp((v - m) / a)
	}
	return m + a*math.Log(s)
}

// negated flips the sign of c in place and returns it.
func negated(c []float64) []float64 {
	for i := range c {
		c[i] = -c[i]
	}
	return c
}

// softmaxAt returns the softmax weights of c/α and of -c/α, the
// derivatives of the smooth max and smooth -min terms.
func softmaxAt(c []float64, a float64) (hi, lo []float64) {
	hi = make([]float64, len(c))
	lo = make([]float64, len(c))
	mx, mn := c[0], c[0]
	for _, v := range c[1:] {
		mx = math.Max(mx, v)
		mn = math.Min(mn, v)
	}
	var sh, sl float64
	for i, v := range c {
		hi[i] = math.Exp((v - mx) / a)
		lo[i] = math.Exp((mn - v) / a)
		sh += hi[i]
		sl += lo[i]
	}
	for i := range c {
		hi[i] /= sh
		lo[i] /= sl
	}
	return hi, lo
}
