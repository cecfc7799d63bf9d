package nlp

import (
	"math"

	"github.com/matzehuels/analogplace/pkg/errors"
)

// SolveState is the read-only view of a solve that policies inspect.
type SolveState interface {
	// Iteration is the number of completed outer iterations.
	Iteration() int
	// History holds the objective total recorded at each completed iteration.
	History() []float64
	// Breakdown is the most recent objective evaluation.
	Breakdown() Breakdown
}

// StopCondition decides whether the outer solver should terminate.
// An error means the condition could not be evaluated; the kernel then
// keeps iterating and leaves termination to the driver's own budget.
type StopCondition interface {
	ShouldStop(s SolveState) (bool, error)
}

// StopFunc adapts a function to [StopCondition].
type StopFunc func(s SolveState) (bool, error)

func (f StopFunc) ShouldStop(s SolveState) (bool, error) { return f(s) }

// StopAfterIterations stops once N iterations have completed.
type StopAfterIterations struct {
	N int
}

func (c StopAfterIterations) ShouldStop(s SolveState) (bool, error) {
	if c.N <= 0 {
		return false, errors.New(errors.ErrCodeInvalidConfig, "iteration budget %d is not positive", c.N)
	}
	return s.Iteration() >= c.N, nil
}

// StopOnPlateau stops when the objective changed by less than RelTol,
// relative to its magnitude, over the last Window iterations.
type StopOnPlateau struct {
	Window int
	RelTol float64
}

func (c StopOnPlateau) ShouldStop(s SolveState) (bool, error) {
	if c.Window <= 0 {
		return false, errors.New(errors.ErrCodeInvalidConfig, "plateau window %d is not positive", c.Window)
	}
	h := s.History()
	if len(h) <= c.Window {
		return false, nil
	}
	last, prev := h[len(h)-1], h[len(h)-1-c.Window]
	scale := math.Max(math.Abs(prev), 1)
	return math.Abs(prev-last) <= c.RelTol*scale, nil
}

// AnyStop stops as soon as one of its conditions does. A failing condition
// is skipped; its error is returned only if no other condition stops.
type AnyStop []StopCondition

func (a AnyStop) ShouldStop(s SolveState) (bool, error) {
	var firstErr error
	for _, c := range a {
		stop, err := c.ShouldStop(s)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if stop {
			return true, nil
		}
	}
	return false, firstErr
}
