package nlp

import (
	"math"

	"github.com/matzehuels/analogplace/pkg/db"
	"github.com/matzehuels/analogplace/pkg/errors"
)

// Placement converts the solved variables into database cell locations.
//
// The placement is shifted so its lowest x and y land on the layout offset,
// divided by scale and rounded half away from zero. Each location is the
// cell's origin, so the cell's local bounding-box corner is subtracted.
func Placement(r db.Reader, v *Variables, scale float64) []db.Point {
	n := r.NumCells()
	if n == 0 {
		return nil
	}
	minX, minY := math.Inf(1), math.Inf(1)
	for i := 0; i < n; i++ {
		minX = math.Min(minX, v.Get(i, OrientX))
		minY = math.Min(minY, v.Get(i, OrientY))
	}
	offset := float64(r.Params().LayoutOffset)
	locs := make([]db.Point, n)
	for i := range locs {
		box := r.Cell(i).BBox
		xLo := int(math.Round((v.Get(i, OrientX)-minX)/scale + offset))
		yLo := int(math.Round((v.Get(i, OrientY)-minY)/scale + offset))
		locs[i] = db.Point{X: xLo - box.XLo, Y: yLo - box.YLo}
	}
	return locs
}

// WriteBack stores the current placement in the database and ends the
// solve.
func (k *Kernel) WriteBack() error {
	if k.vars == nil || k.state == StateTerminal {
		return errors.New(errors.ErrCodeInvalidState, "write back: kernel is %s", k.state)
	}
	for i, loc := range Placement(k.db, k.vars, k.scale) {
		k.db.SetCellLoc(i, loc)
	}
	k.state = StateTerminal
	return nil
}
