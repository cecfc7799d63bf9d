package nlp

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// DefaultChunkSize is the number of operators whose partials one accumulate
// task scatters.
const DefaultChunkSize = 256

// Breakdown is the objective split by family.
type Breakdown struct {
	Hpwl  float64 `json:"hpwl"`
	Ovl   float64 `json:"ovl"`
	Oob   float64 `json:"oob"`
	Asym  float64 `json:"asym"`
	Cos   float64 `json:"cos"`
	Total float64 `json:"total"`
}

// Family returns the total of f.
func (b Breakdown) Family(f Family) float64 {
	switch f {
	case FamilyWirelength:
		return b.Hpwl
	case FamilyOverlap:
		return b.Ovl
	case FamilyBoundary:
		return b.Oob
	case FamilyAsymmetry:
		return b.Asym
	case FamilyCosine:
		return b.Cos
	}
	return 0
}

func (b *Breakdown) set(f Family, v float64) {
	switch f {
	case FamilyWirelength:
		b.Hpwl = v
	case FamilyOverlap:
		b.Ovl = v
	case FamilyBoundary:
		b.Oob = v
	case FamilyAsymmetry:
		b.Asym = v
	case FamilyCosine:
		b.Cos = v
	}
}

func (b Breakdown) String() string {
	return fmt.Sprintf("obj: %g hpwl: %g ovl: %g oob: %g asym: %g cos: %g", b.Total, b.Hpwl, b.Ovl, b.Oob, b.Asym, b.Cos)
}

// chunk is a contiguous run of one family's operators with its own list of
// scattered partials.
type chunk struct {
	ops     []Operator
	entries []entry
}

// entry is one partial scattered to a variable position.
type entry struct {
	pos int
	val float64
}

// evaluator owns the objective and gradient task graphs together with the
// buffers their tasks write. Every buffer has exactly one writing task per
// pass; readers are ordered after it by graph edges.
type evaluator struct {
	ops   *Operators
	index IndexMap

	values    [numFamilies][]float64
	breakdown Breakdown

	chunks  [numFamilies][]*chunk
	famGrad [numFamilies][]float64
	grad    []float64

	objective *TaskGraph
	gradient  *TaskGraph
}

// newEvaluator builds the objective graph and, when firstOrder is set, the
// gradient graph.
func newEvaluator(ops *Operators, index IndexMap, chunkSize int, firstOrder bool) *evaluator {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	e := &evaluator{ops: ops, index: index}
	for _, f := range Families {
		e.values[f] = make([]float64, len(ops.Family(f)))
	}
	e.objective = e.buildObjective()
	if firstOrder {
		e.gradient = e.buildGradient(chunkSize)
	}
	return e
}

// buildObjective wires evaluate -> sum-family -> sum-all.
func (e *evaluator) buildObjective() *TaskGraph {
	g := NewTaskGraph()
	sumAll := g.Add("sum-all", TaskSumAll, func() {
		var total float64
		for _, f := range Families {
			total += e.breakdown.Family(f)
		}
		e.breakdown.Total = total
	})
	for _, f := range Families {
		vals := e.values[f]
		sum := g.Add("sum-"+f.String(), TaskSumFamily, func() {
			e.breakdown.set(f, floats.Sum(vals))
		})
		for i, op := range e.ops.Family(f) {
			ev := g.Add("eval-"+op.Name(), TaskEvaluate, func() { vals[i] = op.Evaluate() })
			g.Precede(ev, sum)
		}
		g.Precede(sum, sumAll)
	}
	return g
}

// buildGradient wires, per family:
//
//	clear-f -> accumulate-f-k -> reduce-f -> sum-grad
//	partials(op) -> accumulate-f-k
//
// plus clear-all -> sum-grad. Each chunk keeps a sparse list of its partials
// and chunks are folded in chunk order, so the result does not depend on
// scheduling and memory grows with the number of partials.
func (e *evaluator) buildGradient(chunkSize int) *TaskGraph {
	n := e.index.Len()
	e.grad = make([]float64, n)
	g := NewTaskGraph()

	sumGrad := g.Add("sum-grad", TaskSumGrad, func() {
		for _, f := range Families {
			floats.Add(e.grad, e.famGrad[f])
		}
	})
	clearAll := g.Add("clear-grad", TaskClearGrad, func() { clear(e.grad) })
	g.Precede(clearAll, sumGrad)

	for _, f := range Families {
		ops := e.ops.Family(f)
		fam := make([]float64, n)
		e.famGrad[f] = fam
		for lo := 0; lo < len(ops); lo += chunkSize {
			e.chunks[f] = append(e.chunks[f], &chunk{ops: ops[lo:min(lo+chunkSize, len(ops))]})
		}
		chunks := e.chunks[f]

		clr := g.Add("clear-"+f.String(), TaskClearGrad, func() { clear(fam) })
		reduce := g.Add("reduce-"+f.String(), TaskReduceGrad, func() {
			for _, c := range chunks {
				for _, en := range c.entries {
					fam[en.pos] += en.val
				}
			}
		})
		g.Precede(clr, reduce)
		g.Precede(reduce, sumGrad)

		for k, c := range chunks {
			acc := g.Add(fmt.Sprintf("accumulate-%s-%d", f, k), TaskAccumulate, func() {
				c.entries = c.entries[:0]
				for _, op := range c.ops {
					for _, p := range op.Partials() {
						c.entries = append(c.entries, entry{pos: e.index.PositionOf(p.ID, p.Orient), val: p.Value})
					}
				}
			})
			g.Precede(clr, acc)
			g.Precede(acc, reduce)
			for _, op := range c.ops {
				pt := g.Add("partials-"+op.Name(), TaskPartials, op.ComputePartials)
				g.Precede(pt, acc)
			}
		}
	}
	return g
}
