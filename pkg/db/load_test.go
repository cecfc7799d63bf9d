package db

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/analogplace/pkg/errors"
)

const sampleProblem = `
[params]
max_white_space = 0.25
layout_offset = 1000
boundary = [0, 0, 400, 300]

[[cells]]
name = "M1"
bbox = [0, 0, 100, 60]

[[cells]]
name = "M2"
bbox = [0, 0, 100, 60]

[[cells]]
name = "M3"
bbox = [10, 10, 90, 50]

[[pins]]
name = "M1.d"
cell = "M1"
mid = [50, 55]

[[pins]]
name = "M2.d"
cell = "M2"
mid = [50, 55]

[[pins]]
name = "M3.g"
cell = "M3"
mid = [50, 15]

[[pins]]
name = "M3.d"
cell = "M3"
mid = [50, 45]

[[nets]]
name = "out"
pins = ["M1.d", "M2.d"]

[[nets]]
name = "bias"
pins = ["M2.d", "M3.g"]
weight = 2.5

[[sym_groups]]
name = "dp"
pairs = [["M1", "M2"]]
self = ["M3"]

[[signal_paths]]
name = "main"
pins = ["M1.d", "M3.g", "M3.d", "M2.d"]
`

func TestDecode(t *testing.T) {
	d, err := Decode(strings.NewReader(sampleProblem))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if d.NumCells() != 3 || d.NumPins() != 4 || d.NumNets() != 2 {
		t.Fatalf("counts = %d cells, %d pins, %d nets", d.NumCells(), d.NumPins(), d.NumNets())
	}
	if got := d.Cell(2).BBox; got != (Box{10, 10, 90, 50}) {
		t.Errorf("M3 bbox = %v", got)
	}
	if got := d.Pin(2).Cell; got != 2 {
		t.Errorf("M3.g owner = %d, want 2", got)
	}
	if got := d.Net(0).Weight; got != 1 {
		t.Errorf("default net weight = %v, want 1", got)
	}
	if got := d.Net(1).Weight; got != 2.5 {
		t.Errorf("bias weight = %v, want 2.5", got)
	}

	g := d.SymGroup(0)
	if len(g.Pairs) != 1 || g.Pairs[0] != (SymPair{0, 1}) {
		t.Errorf("pairs = %v", g.Pairs)
	}
	if len(g.SelfSyms) != 1 || g.SelfSyms[0] != 2 {
		t.Errorf("self syms = %v", g.SelfSyms)
	}

	p := d.Params()
	if !p.BoundarySet || p.Boundary != (Box{0, 0, 400, 300}) {
		t.Errorf("boundary = %v (set %v)", p.Boundary, p.BoundarySet)
	}
	if p.LayoutOffset != 1000 || p.MaxWhiteSpace != 0.25 {
		t.Errorf("params = %+v", p)
	}
	if d.NumSignalPaths() != 1 || len(d.SignalPath(0).Pins) != 4 {
		t.Errorf("signal paths = %d", d.NumSignalPaths())
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		code errors.Code
	}{
		{"bad toml", "[[cells]\nname=", errors.ErrCodeInvalidFormat},
		{"unknown cell", "[[pins]]\nname = \"p\"\ncell = \"X\"\nmid = [0, 0]\n", errors.ErrCodeInvalidInput},
		{"bad bbox", "[[cells]]\nname = \"A\"\nbbox = [0, 0, 1]\n", errors.ErrCodeInvalidInput},
		{"duplicate cell", "[[cells]]\nname = \"A\"\nbbox = [0, 0, 1, 1]\n[[cells]]\nname = \"A\"\nbbox = [0, 0, 1, 1]\n", errors.ErrCodeInvalidInput},
		{"degenerate cell", "[[cells]]\nname = \"A\"\nbbox = [0, 0, 0, 1]\n", errors.ErrCodePrecondition},
		{"unknown net pin", "[[nets]]\nname = \"n\"\npins = [\"q\"]\n", errors.ErrCodeInvalidInput},
		{"negative white space", "[params]\nmax_white_space = -1.0\n", errors.ErrCodeInvalidConfig},
		{"short pair", "[[cells]]\nname = \"A\"\nbbox = [0, 0, 1, 1]\n[[sym_groups]]\nname = \"g\"\npairs = [[\"A\"]]\n", errors.ErrCodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.doc))
			if !errors.Is(err, tt.code) {
				t.Errorf("Decode() error = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "problem.toml")
	if err := os.WriteFile(path, []byte(sampleProblem), 0o644); err != nil {
		t.Fatal(err)
	}
	d, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if d.NumCells() != 3 {
		t.Errorf("NumCells() = %d, want 3", d.NumCells())
	}

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	if !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("Load(missing) error = %v, want FILE_NOT_FOUND", err)
	}
}
