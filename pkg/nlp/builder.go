package nlp

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/matzehuels/analogplace/pkg/db"
	"github.com/matzehuels/analogplace/pkg/errors"
	"github.com/matzehuels/analogplace/pkg/geom"
	"github.com/matzehuels/analogplace/pkg/sigpath"
)

// Operators holds every operator instance grouped by family, each family in
// construction order.
type Operators struct {
	families [numFamilies][]Operator
}

// Family returns the operators of f.
func (o *Operators) Family(f Family) []Operator { return o.families[f] }

// Len returns the total number of operators.
func (o *Operators) Len() int {
	var n int
	for _, ops := range o.families {
		n += len(ops)
	}
	return n
}

// All returns every operator, family by family.
func (o *Operators) All() []Operator {
	all := make([]Operator, 0, o.Len())
	for _, ops := range o.families {
		all = append(all, ops...)
	}
	return all
}

func (o *Operators) add(op Operator) { o.families[op.Family()] = append(o.families[op.Family()], op) }

// builder translates database entities into operators. It holds the scaled
// inputs shared by every operator constructor.
type builder struct {
	r      db.Reader
	scale  float64
	region geom.Box
	get    VarAccessor
	w      *Weights
	ops    *Operators
}

// Build creates one operator per net, unordered cell pair, cell, symmetry
// group and signal-path segment, in that order. Every operator reads vars
// through its accessor and w for its hyperparameters.
//
// Build validates the references it follows; the first violation is returned
// as a precondition error naming the offending entity.
func Build(r db.Reader, segs []sigpath.Segment, scale float64, region geom.Box, vars *Variables, w *Weights) (*Operators, error) {
	m := vars.Index()
	if m.NumCells != r.NumCells() || m.NumSymGroups != r.NumSymGroups() {
		return nil, errors.New(errors.ErrCodePrecondition,
			"variables sized for %d cells and %d groups, database has %d and %d",
			m.NumCells, m.NumSymGroups, r.NumCells(), r.NumSymGroups())
	}
	if !(scale > 0) {
		return nil, errors.New(errors.ErrCodeDegenerate, "scale factor %v is not positive", scale)
	}

	b := &builder{r: r, scale: scale, region: region, get: vars.Accessor(), w: w, ops: &Operators{}}
	if err := b.checkCells(); err != nil {
		return nil, err
	}
	for _, step := range []func() error{
		b.wirelength,
		b.overlap,
		b.boundary,
		b.asymmetry,
		func() error { return b.cosine(segs) },
	} {
		if err := step(); err != nil {
			return nil, err
		}
	}
	return b.ops, nil
}

func (b *builder) checkCells() error {
	for i := 0; i < b.r.NumCells(); i++ {
		if box := b.r.Cell(i).BBox; box.XLen() <= 0 || box.YLen() <= 0 {
			return errors.Precondition("cell", i, "degenerate bounding box %s", box)
		}
	}
	return nil
}

// size returns a cell's scaled width and height.
func (b *builder) size(cell int) (float64, float64) {
	box := b.r.Cell(cell).BBox
	return float64(box.XLen()) * b.scale, float64(box.YLen()) * b.scale
}

// pin resolves a pin to its owning cell and scaled offset from the cell's
// low corner.
func (b *builder) pin(entity string, id, pin int) (pinRef, error) {
	if pin < 0 || pin >= b.r.NumPins() {
		return pinRef{}, errors.Precondition(entity, id, "pin %d out of range [0, %d)", pin, b.r.NumPins())
	}
	p := b.r.Pin(pin)
	if p.Cell < 0 || p.Cell >= b.r.NumCells() {
		return pinRef{}, errors.Precondition("pin", pin, "owner cell %d out of range [0, %d)", p.Cell, b.r.NumCells())
	}
	lo := db.Point{X: b.r.Cell(p.Cell).BBox.XLo, Y: b.r.Cell(p.Cell).BBox.YLo}
	off := r2.Sub(geom.ScalePoint(p.Mid, b.scale), geom.ScalePoint(lo, b.scale))
	return pinRef{cell: p.Cell, off: off}, nil
}

func (b *builder) cell(entity string, id, cell int) error {
	if cell < 0 || cell >= b.r.NumCells() {
		return errors.Precondition(entity, id, "cell %d out of range [0, %d)", cell, b.r.NumCells())
	}
	return nil
}

func (b *builder) wirelength() error {
	for i := 0; i < b.r.NumNets(); i++ {
		net := b.r.Net(i)
		if net.Weight < 0 {
			return errors.Precondition("net", i, "negative weight %v", net.Weight)
		}
		pins := make([]pinRef, 0, len(net.Pins))
		for _, p := range net.Pins {
			ref, err := b.pin("net", i, p)
			if err != nil {
				return err
			}
			pins = append(pins, ref)
		}
		op := newWirelengthOp(fmt.Sprintf("hpwl[%s]", net.Name), b.get, b.w, pins)
		op.SetWeight(net.Weight)
		b.ops.add(op)
	}
	return nil
}

func (b *builder) overlap() error {
	n := b.r.NumCells()
	for i := 0; i < n; i++ {
		wi, hi := b.size(i)
		for j := i + 1; j < n; j++ {
			wj, hj := b.size(j)
			b.ops.add(newOverlapOp(fmt.Sprintf("ovl[%d,%d]", i, j), b.get, b.w, i, j, wi, hi, wj, hj))
		}
	}
	return nil
}

func (b *builder) boundary() error {
	for i := 0; i < b.r.NumCells(); i++ {
		w, h := b.size(i)
		b.ops.add(newBoundaryOp(fmt.Sprintf("oob[%d]", i), b.get, b.w, i, w, h, b.region))
	}
	return nil
}

func (b *builder) asymmetry() error {
	for g := 0; g < b.r.NumSymGroups(); g++ {
		grp := b.r.SymGroup(g)
		pairs := make([]symPairRef, 0, len(grp.Pairs))
		for _, p := range grp.Pairs {
			if err := b.cell("symmetry group", g, p.A); err != nil {
				return err
			}
			if err := b.cell("symmetry group", g, p.B); err != nil {
				return err
			}
			if p.A == p.B {
				return errors.Precondition("symmetry group", g, "cell %d paired with itself", p.A)
			}
			w, _ := b.size(p.A)
			if wb, _ := b.size(p.B); wb != w {
				return errors.Precondition("symmetry group", g, "pair (%d, %d) has unequal widths %v and %v", p.A, p.B, w, wb)
			}
			pairs = append(pairs, symPairRef{a: p.A, b: p.B, width: w})
		}
		selfs := make([]selfSymRef, 0, len(grp.SelfSyms))
		for _, c := range grp.SelfSyms {
			if err := b.cell("symmetry group", g, c); err != nil {
				return err
			}
			w, _ := b.size(c)
			selfs = append(selfs, selfSymRef{cell: c, width: w})
		}
		b.ops.add(newAsymmetryOp(fmt.Sprintf("asym[%d]", g), b.get, b.w, g, pairs, selfs))
	}
	return nil
}

func (b *builder) cosine(segs []sigpath.Segment) error {
	for i, s := range segs {
		var refs [4]pinRef
		for k, p := range s.Pins() {
			ref, err := b.pin("signal path segment", i, p)
			if err != nil {
				return err
			}
			refs[k] = ref
		}
		b.ops.add(newCosineOp(fmt.Sprintf("cos[%d]", i), b.get, b.w, refs[0], refs[1], refs[2], refs[3]))
	}
	return nil
}
