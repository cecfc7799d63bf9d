// Package sigpath decomposes declared signal paths into segments.
//
// A signal path is an ordered pin chain [src, in1, out1, in2, out2, ..., sink].
// Each [Segment] covers one intermediate cell: the wire entering it and the
// wire leaving it. The placer penalizes the angle between those two wires so
// the signal flows straight through the cell.
package sigpath

import "github.com/matzehuels/analogplace/pkg/db"

// Segment is four pins spanning three cells. Source belongs to the first
// cell, MidA and MidB to the second and Target to the third.
type Segment struct {
	Source int
	MidA   int
	MidB   int
	Target int
}

// Pins returns the segment's pins in path order.
func (s Segment) Pins() [4]int {
	return [4]int{s.Source, s.MidA, s.MidB, s.Target}
}

// Decomposer produces the segment list for a database.
type Decomposer interface {
	Decompose(r db.Reader) []Segment
}

// DecomposerFunc adapts a function to [Decomposer].
type DecomposerFunc func(r db.Reader) []Segment

// Decompose calls f(r).
func (f DecomposerFunc) Decompose(r db.Reader) []Segment { return f(r) }

// Default is the decomposer used when none is configured.
var Default Decomposer = PathDecomposer{}

// PathDecomposer slides a two-pin stride window over every declared path.
//
// A window is skipped when its middle pins sit on different cells or when
// the three cells are not distinct, since the angle is then undefined.
// Windows referencing unknown pins are emitted unchanged so that problem
// validation reports them.
type PathDecomposer struct{}

// Decompose returns the segments of all signal paths in declaration order.
func (PathDecomposer) Decompose(r db.Reader) []Segment {
	var segs []Segment
	for i := 0; i < r.NumSignalPaths(); i++ {
		segs = append(segs, Split(r, r.SignalPath(i).Pins)...)
	}
	return segs
}

// Split decomposes a single pin chain.
func Split(r db.Reader, pins []int) []Segment {
	var segs []Segment
	for k := 0; k+3 < len(pins); k += 2 {
		seg := Segment{Source: pins[k], MidA: pins[k+1], MidB: pins[k+2], Target: pins[k+3]}
		if !inRange(r, seg) {
			segs = append(segs, seg)
			continue
		}
		src := r.Pin(seg.Source).Cell
		mid := r.Pin(seg.MidA).Cell
		tgt := r.Pin(seg.Target).Cell
		if r.Pin(seg.MidB).Cell != mid {
			continue
		}
		if src == mid || mid == tgt || src == tgt {
			continue
		}
		segs = append(segs, seg)
	}
	return segs
}

func inRange(r db.Reader, s Segment) bool {
	n := r.NumPins()
	for _, p := range s.Pins() {
		if p < 0 || p >= n {
			return false
		}
	}
	return true
}
