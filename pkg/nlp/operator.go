package nlp

import "gonum.org/v1/gonum/spatial/r2"

// Partial is one operator's derivative with respect to one variable.
type Partial struct {
	ID     int
	Orient Orient
	Value  float64
}

// Operator is a single differentiable penalty term bound to a few variables.
//
// Evaluate and ComputePartials read the variable vector through the
// operator's accessor and must not write shared state. ComputePartials
// overwrites the buffer returned by Partials; an operator may list the
// same variable more than once and consumers sum the entries.
type Operator interface {
	Family() Family
	Evaluate() float64
	ComputePartials()
	Partials() []Partial
	// SetWeight sets the per-instance multiplier (a net's weight for
	// wirelength, 1 for the other families).
	SetWeight(w float64)
	// Name identifies the operator in logs and task graph output.
	Name() string
}

// base carries the bindings shared by every operator kind.
type base struct {
	name    string
	get     VarAccessor
	w       *Weights
	weight  float64
	partial []Partial
}

func newBase(name string, get VarAccessor, w *Weights) base {
	return base{name: name, get: get, w: w, weight: 1}
}

func (b *base) Name() string        { return b.name }
func (b *base) SetWeight(w float64) { b.weight = w }
func (b *base) Partials() []Partial { return b.partial }
func (b *base) resetPartials()      { b.partial = b.partial[:0] }
func (b *base) add(id int, o Orient, v float64) {
	b.partial = append(b.partial, Partial{ID: id, Orient: o, Value: v})
}

// pos returns the absolute position of a cell's low corner.
func (b *base) pos(cell int) r2.Vec {
	return r2.Vec{X: b.get(cell, OrientX), Y: b.get(cell, OrientY)}
}

// pinRef locates a pin as an offset from its cell's low corner.
type pinRef struct {
	cell int
	off  r2.Vec
}

func (b *base) pinPos(p pinRef) r2.Vec { return r2.Add(b.pos(p.cell), p.off) }

// ramp is the C1 smoothing of max(0, t) with transition width a:
// 0 for t <= 0, t²/2a on (0, a) and t - a/2 beyond.
func ramp(t, a float64) float64 {
	switch {
	case t <= 0:
		return 0
	case t < a:
		return t * t / (2 * a)
	default:
		return t - a/2
	}
}

// rampGrad is the derivative of ramp with respect to t.
func rampGrad(t, a float64) float64 {
	switch {
	case t <= 0:
		return 0
	case t < a:
		return t / a
	default:
		return 1
	}
}
