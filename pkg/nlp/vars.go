package nlp

import (
	"github.com/matzehuels/analogplace/pkg/errors"
)

// VarAccessor reads one variable by entity id and orientation.
// Operators hold ids only and read positions through an accessor.
type VarAccessor func(id int, o Orient) float64

// Variables is the solver's variable vector together with its index map.
type Variables struct {
	index IndexMap
	x     []float64
}

// NewVariables returns a zeroed vector sized for m.
func NewVariables(m IndexMap) *Variables {
	return &Variables{index: m, x: make([]float64, m.Len())}
}

// Index returns the index map.
func (v *Variables) Index() IndexMap { return v.index }

// Len returns the vector length.
func (v *Variables) Len() int { return len(v.x) }

// Get returns the variable for (id, o).
func (v *Variables) Get(id int, o Orient) float64 { return v.x[v.index.PositionOf(id, o)] }

// Set assigns the variable for (id, o).
func (v *Variables) Set(id int, o Orient, val float64) { v.x[v.index.PositionOf(id, o)] = val }

// Accessor returns Get as a [VarAccessor].
func (v *Variables) Accessor() VarAccessor { return v.Get }

// Copy returns a copy of the raw vector.
func (v *Variables) Copy() []float64 { return append([]float64(nil), v.x...) }

// Assign overwrites the vector with x. The length must match.
func (v *Variables) Assign(x []float64) error {
	if len(x) != len(v.x) {
		return errors.New(errors.ErrCodeInvalidInput, "variable vector length %d, want %d", len(x), len(v.x))
	}
	copy(v.x, x)
	return nil
}

// Translate shifts every cell coordinate by (dx, dy) and every axis by dx.
func (v *Variables) Translate(dx, dy float64) {
	n := v.index.NumCells
	for i := range v.x {
		switch {
		case i < n:
			v.x[i] += dx
		case i < 2*n:
			v.x[i] += dy
		default:
			v.x[i] += dx
		}
	}
}
