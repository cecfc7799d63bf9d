package db

import (
	"fmt"

	"github.com/matzehuels/analogplace/pkg/errors"
)

// Point is a location in database units.
type Point struct {
	X, Y int
}

// Box is an axis-aligned rectangle in database units. The high corner is
// exclusive in the sense that XLen = XHi - XLo.
type Box struct {
	XLo, YLo, XHi, YHi int
}

// XLen returns the width of the box.
func (b Box) XLen() int { return b.XHi - b.XLo }

// YLen returns the height of the box.
func (b Box) YLen() int { return b.YHi - b.YLo }

// Area returns the box area as a float to avoid integer overflow on large layouts.
func (b Box) Area() float64 { return float64(b.XLen()) * float64(b.YLen()) }

// String formats the box as "(xLo, yLo) -> (xHi, yHi)".
func (b Box) String() string {
	return fmt.Sprintf("(%d, %d) -> (%d, %d)", b.XLo, b.YLo, b.XHi, b.YHi)
}

// Cell is a placeable device or sub-block.
type Cell struct {
	Name string
	BBox Box   // Bounding box in the cell-local frame
	Loc  Point // Placed location, written back by the solver
}

// Pin belongs to exactly one cell.
type Pin struct {
	Name string
	Cell int   // Owning cell index
	Mid  Point // Pin shape midpoint in the cell-local frame
}

// Net connects a set of pins. Pin order is irrelevant.
type Net struct {
	Name   string
	Pins   []int
	Weight float64
}

// SymPair is a pair of cells mirrored about the group's symmetry axis.
// Both cells are expected to have the same width.
type SymPair struct {
	A, B int
}

// SymGroup is a set of mirrored pairs and self-symmetric cells sharing one axis.
type SymGroup struct {
	Name     string
	Pairs    []SymPair
	SelfSyms []int
}

// SignalPath is an ordered chain of pins along a critical signal:
// source pin, then an (input, output) pin pair for every intermediate cell,
// then the sink pin.
type SignalPath struct {
	Name string
	Pins []int
}

// Params are global placement parameters.
type Params struct {
	// BoundarySet reports whether Boundary constrains the placement.
	BoundarySet bool
	// Boundary is the placement region when BoundarySet is true.
	Boundary Box
	// MaxWhiteSpace is the tolerated white space ratio used to size an
	// automatic boundary.
	MaxWhiteSpace float64
	// LayoutOffset is the coordinate the leftmost/bottommost cell is moved to
	// on write-back.
	LayoutOffset int
}

// Reader is the read-only view of the database used by the solver.
type Reader interface {
	NumCells() int
	Cell(i int) Cell
	NumPins() int
	Pin(i int) Pin
	NumNets() int
	Net(i int) Net
	NumSymGroups() int
	SymGroup(i int) SymGroup
	NumSignalPaths() int
	SignalPath(i int) SignalPath
	Params() Params
	// TotalCellArea is the sum of cell bounding-box areas in database units.
	TotalCellArea() float64
}

// Writer receives final placement coordinates.
type Writer interface {
	SetCellLoc(i int, loc Point)
}

// ReadWriter is both a [Reader] and a [Writer].
type ReadWriter interface {
	Reader
	Writer
}

// Database is the in-memory placement database.
// The zero value is an empty, usable database.
type Database struct {
	cells  []Cell
	pins   []Pin
	nets   []Net
	groups []SymGroup
	paths  []SignalPath
	params Params
}

// New returns an empty database with default parameters.
func New() *Database {
	return &Database{}
}

// AddCell appends a cell and returns its index.
func (d *Database) AddCell(c Cell) int {
	d.cells = append(d.cells, c)
	return len(d.cells) - 1
}

// AddPin appends a pin and returns its index.
func (d *Database) AddPin(p Pin) int {
	d.pins = append(d.pins, p)
	return len(d.pins) - 1
}

// AddNet appends a net and returns its index.
func (d *Database) AddNet(n Net) int {
	d.nets = append(d.nets, n)
	return len(d.nets) - 1
}

// AddSymGroup appends a symmetry group and returns its index.
func (d *Database) AddSymGroup(g SymGroup) int {
	d.groups = append(d.groups, g)
	return len(d.groups) - 1
}

// AddSignalPath appends a signal path and returns its index.
func (d *Database) AddSignalPath(p SignalPath) int {
	d.paths = append(d.paths, p)
	return len(d.paths) - 1
}

// SetParams replaces the global parameters.
func (d *Database) SetParams(p Params) { d.params = p }

func (d *Database) NumCells() int               { return len(d.cells) }
func (d *Database) Cell(i int) Cell             { return d.cells[i] }
func (d *Database) NumPins() int                { return len(d.pins) }
func (d *Database) Pin(i int) Pin               { return d.pins[i] }
func (d *Database) NumNets() int                { return len(d.nets) }
func (d *Database) Net(i int) Net               { return d.nets[i] }
func (d *Database) NumSymGroups() int           { return len(d.groups) }
func (d *Database) SymGroup(i int) SymGroup     { return d.groups[i] }
func (d *Database) NumSignalPaths() int         { return len(d.paths) }
func (d *Database) SignalPath(i int) SignalPath { return d.paths[i] }
func (d *Database) Params() Params              { return d.params }
func (d *Database) SetCellLoc(i int, loc Point) { d.cells[i].Loc = loc }

// TotalCellArea returns the sum of all cell bounding-box areas.
func (d *Database) TotalCellArea() float64 {
	var area float64
	for _, c := range d.cells {
		area += c.BBox.Area()
	}
	return area
}

// Validate checks referential integrity: every pin, net, group and path
// index must point at an existing entity, and every cell must have a
// non-degenerate bounding box. The first violation is returned as a
// precondition error naming the entity.
func (d *Database) Validate() error {
	for i, c := range d.cells {
		if c.BBox.XLen() <= 0 || c.BBox.YLen() <= 0 {
			return errors.Precondition("cell", i, "degenerate bounding box %s", c.BBox)
		}
	}
	for i, p := range d.pins {
		if p.Cell < 0 || p.Cell >= len(d.cells) {
			return errors.Precondition("pin", i, "owner cell %d out of range [0, %d)", p.Cell, len(d.cells))
		}
	}
	for i, n := range d.nets {
		if n.Weight < 0 {
			return errors.Precondition("net", i, "negative weight %v", n.Weight)
		}
		for _, p := range n.Pins {
			if p < 0 || p >= len(d.pins) {
				return errors.Precondition("net", i, "pin %d out of range [0, %d)", p, len(d.pins))
			}
		}
	}
	for i, g := range d.groups {
		for _, pair := range g.Pairs {
			if !d.validCell(pair.A) || !d.validCell(pair.B) {
				return errors.Precondition("symmetry group", i, "pair (%d, %d) out of range [0, %d)", pair.A, pair.B, len(d.cells))
			}
		}
		for _, c := range g.SelfSyms {
			if !d.validCell(c) {
				return errors.Precondition("symmetry group", i, "self-symmetric cell %d out of range [0, %d)", c, len(d.cells))
			}
		}
	}
	for i, p := range d.paths {
		for _, pin := range p.Pins {
			if pin < 0 || pin >= len(d.pins) {
				return errors.Precondition("signal path", i, "pin %d out of range [0, %d)", pin, len(d.pins))
			}
		}
	}
	return nil
}

func (d *Database) validCell(i int) bool { return i >= 0 && i < len(d.cells) }

// Clone returns a deep copy of the database.
func (d *Database) Clone() *Database {
	c := &Database{
		cells:  append([]Cell(nil), d.cells...),
		pins:   append([]Pin(nil), d.pins...),
		nets:   make([]Net, len(d.nets)),
		groups: make([]SymGroup, len(d.groups)),
		paths:  make([]SignalPath, len(d.paths)),
		params: d.params,
	}
	for i, n := range d.nets {
		n.Pins = append([]int(nil), n.Pins...)
		c.nets[i] = n
	}
	for i, g := range d.groups {
		g.Pairs = append([]SymPair(nil), g.Pairs...)
		g.SelfSyms = append([]int(nil), g.SelfSyms...)
		c.groups[i] = g
	}
	for i, p := range d.paths {
		p.Pins = append([]int(nil), p.Pins...)
		c.paths[i] = p
	}
	return c
}

var _ ReadWriter = (*Database)(nil)
