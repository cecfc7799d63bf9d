package db

import (
	"bytes"
	"io"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/analogplace/pkg/errors"
)

// problemFile mirrors the TOML problem layout.
type problemFile struct {
	Params      paramsFile       `toml:"params"`
	Cells       []cellFile       `toml:"cells"`
	Pins        []pinFile        `toml:"pins"`
	Nets        []netFile        `toml:"nets"`
	SymGroups   []symGroupFile   `toml:"sym_groups"`
	SignalPaths []signalPathFile `toml:"signal_paths"`
}

type paramsFile struct {
	Boundary      []int   `toml:"boundary"`
	MaxWhiteSpace float64 `toml:"max_white_space"`
	LayoutOffset  int     `toml:"layout_offset"`
}

type cellFile struct {
	Name string `toml:"name"`
	BBox []int  `toml:"bbox"`
}

type pinFile struct {
	Name string `toml:"name"`
	Cell string `toml:"cell"`
	Mid  []int  `toml:"mid"`
}

type netFile struct {
	Name   string   `toml:"name"`
	Pins   []string `toml:"pins"`
	Weight *float64 `toml:"weight"`
}

type symGroupFile struct {
	Name  string     `toml:"name"`
	Pairs [][]string `toml:"pairs"`
	Self  []string   `toml:"self"`
}

type signalPathFile struct {
	Name string   `toml:"name"`
	Pins []string `toml:"pins"`
}

// Load reads a TOML problem file from disk.
func Load(path string) (*Database, error) {
	if err := errors.ValidatePath(path); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "problem file %s", path)
	}
	if err != nil {
		return nil, err
	}
	return Decode(bytes.NewReader(data))
}

// Decode reads a TOML problem description and validates it.
func Decode(r io.Reader) (*Database, error) {
	var pf problemFile
	if _, err := toml.NewDecoder(r).Decode(&pf); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode problem")
	}

	d := New()
	params, err := pf.Params.toParams()
	if err != nil {
		return nil, err
	}
	d.SetParams(params)

	cellIdx := make(map[string]int, len(pf.Cells))
	for _, c := range pf.Cells {
		if err := errors.ValidateName("cell", c.Name); err != nil {
			return nil, err
		}
		if _, dup := cellIdx[c.Name]; dup {
			return nil, errors.New(errors.ErrCodeInvalidInput, "duplicate cell %q", c.Name)
		}
		box, err := toBox("cell "+c.Name+" bbox", c.BBox)
		if err != nil {
			return nil, err
		}
		cellIdx[c.Name] = d.AddCell(Cell{Name: c.Name, BBox: box})
	}

	pinIdx := make(map[string]int, len(pf.Pins))
	for _, p := range pf.Pins {
		if err := errors.ValidateName("pin", p.Name); err != nil {
			return nil, err
		}
		if _, dup := pinIdx[p.Name]; dup {
			return nil, errors.New(errors.ErrCodeInvalidInput, "duplicate pin %q", p.Name)
		}
		owner, ok := cellIdx[p.Cell]
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidInput, "pin %q: unknown cell %q", p.Name, p.Cell)
		}
		if len(p.Mid) != 2 {
			return nil, errors.New(errors.ErrCodeInvalidInput, "pin %q: mid must have 2 coordinates, got %d", p.Name, len(p.Mid))
		}
		pinIdx[p.Name] = d.AddPin(Pin{Name: p.Name, Cell: owner, Mid: Point{X: p.Mid[0], Y: p.Mid[1]}})
	}

	for _, n := range pf.Nets {
		if err := errors.ValidateName("net", n.Name); err != nil {
			return nil, err
		}
		pins, err := resolve(pinIdx, "net "+n.Name, "pin", n.Pins)
		if err != nil {
			return nil, err
		}
		weight := 1.0
		if n.Weight != nil {
			weight = *n.Weight
		}
		d.AddNet(Net{Name: n.Name, Pins: pins, Weight: weight})
	}

	for _, g := range pf.SymGroups {
		if err := errors.ValidateName("symmetry group", g.Name); err != nil {
			return nil, err
		}
		group := SymGroup{Name: g.Name}
		for _, pair := range g.Pairs {
			if len(pair) != 2 {
				return nil, errors.New(errors.ErrCodeInvalidInput, "symmetry group %q: pair must name 2 cells, got %d", g.Name, len(pair))
			}
			cells, err := resolve(cellIdx, "symmetry group "+g.Name, "cell", pair)
			if err != nil {
				return nil, err
			}
			group.Pairs = append(group.Pairs, SymPair{A: cells[0], B: cells[1]})
		}
		selfs, err := resolve(cellIdx, "symmetry group "+g.Name, "cell", g.Self)
		if err != nil {
			return nil, err
		}
		group.SelfSyms = selfs
		d.AddSymGroup(group)
	}

	for _, p := range pf.SignalPaths {
		if err := errors.ValidateName("signal path", p.Name); err != nil {
			return nil, err
		}
		pins, err := resolve(pinIdx, "signal path "+p.Name, "pin", p.Pins)
		if err != nil {
			return nil, err
		}
		d.AddSignalPath(SignalPath{Name: p.Name, Pins: pins})
	}

	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

func (p paramsFile) toParams() (Params, error) {
	params := Params{
		MaxWhiteSpace: p.MaxWhiteSpace,
		LayoutOffset:  p.LayoutOffset,
	}
	if err := errors.ValidateNonNegative("params.max_white_space", p.MaxWhiteSpace); err != nil {
		return Params{}, err
	}
	if len(p.Boundary) > 0 {
		box, err := toBox("params.boundary", p.Boundary)
		if err != nil {
			return Params{}, err
		}
		params.BoundarySet = true
		params.Boundary = box
	}
	return params, nil
}

func toBox(field string, v []int) (Box, error) {
	if len(v) != 4 {
		return Box{}, errors.New(errors.ErrCodeInvalidInput, "%s must be [xLo, yLo, xHi, yHi], got %d values", field, len(v))
	}
	return Box{XLo: v[0], YLo: v[1], XHi: v[2], YHi: v[3]}, nil
}

func resolve(index map[string]int, owner, kind string, names []string) ([]int, error) {
	out := make([]int, 0, len(names))
	for _, name := range names {
		i, ok := index[name]
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidInput, "%s: unknown %s %q", owner, kind, name)
		}
		out = append(out, i)
	}
	return out, nil
}
