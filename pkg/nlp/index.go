package nlp

import "fmt"

// Orient selects which coordinate of an entity a variable holds.
type Orient int

const (
	OrientX Orient = iota
	OrientY
	// OrientSym addresses a symmetry group's axis; the id is the group index.
	OrientSym
)

func (o Orient) String() string {
	switch o {
	case OrientX:
		return "x"
	case OrientY:
		return "y"
	case OrientSym:
		return "sym"
	}
	return fmt.Sprintf("Orient(%d)", int(o))
}

// IndexMap maps (entity, orientation) pairs to positions in the variable
// vector. The layout is all x coordinates by cell id, then all y
// coordinates, then the symmetry axes.
//
// With MultiSymGroup false every group shares a single axis variable.
type IndexMap struct {
	NumCells      int
	NumSymGroups  int
	MultiSymGroup bool
}

// NumAxes returns the number of distinct symmetry-axis variables.
func (m IndexMap) NumAxes() int {
	switch {
	case m.NumSymGroups == 0:
		return 0
	case m.MultiSymGroup:
		return m.NumSymGroups
	default:
		return 1
	}
}

// Len returns the variable vector length.
func (m IndexMap) Len() int { return 2*m.NumCells + m.NumAxes() }

// PositionOf returns the vector position of the id's orient coordinate.
// It panics if id is out of range for the orientation.
func (m IndexMap) PositionOf(id int, o Orient) int {
	switch o {
	case OrientX, OrientY:
		if id < 0 || id >= m.NumCells {
			panic(fmt.Sprintf("nlp: cell id %d out of range [0, %d)", id, m.NumCells))
		}
		if o == OrientX {
			return id
		}
		return id + m.NumCells
	case OrientSym:
		if id < 0 || id >= m.NumSymGroups {
			panic(fmt.Sprintf("nlp: symmetry group id %d out of range [0, %d)", id, m.NumSymGroups))
		}
		if m.MultiSymGroup {
			return 2*m.NumCells + id
		}
		return 2 * m.NumCells
	}
	panic(fmt.Sprintf("nlp: unknown orientation %d", int(o)))
}
