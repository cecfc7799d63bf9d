package driver

import (
	"context"
	"io"
	"math"
	"time"

	"github.com/charmbracelet/log"
	"gonum.org/v1/gonum/optimize"

	"github.com/matzehuels/analogplace/pkg/config"
	"github.com/matzehuels/analogplace/pkg/errors"
	"github.com/matzehuels/analogplace/pkg/nlp"
)

// StopConditionReached is the status reported when the problem's stop
// policy ended the run.
var StopConditionReached = optimize.NewStatus("StopConditionReached", false, nil)

// Settings selects the method and the limits of a run.
type Settings struct {
	// Method is one of the gradient methods or neldermead.
	Method string
	// MaxIterations bounds the number of accepted steps.
	MaxIterations int
	// GradientThreshold ends the run when the gradient's infinity norm
	// drops below it. Ignored by Nelder-Mead.
	GradientThreshold float64
}

// FromConfig returns the driver settings of a solver configuration.
func FromConfig(s config.Solver) Settings {
	return Settings{Method: s.Method, MaxIterations: s.MaxIterations, GradientThreshold: s.GradientThreshold}
}

// FirstOrder reports whether method needs the gradient graph.
func FirstOrder(method string) bool {
	switch method {
	case config.MethodNelderMead, config.MethodNone:
		return false
	}
	return true
}

// Result summarizes a finished run.
type Result struct {
	Status          optimize.Status
	Objective       float64
	Iterations      int
	FuncEvaluations int
	GradEvaluations int
	Runtime         time.Duration
}

// Optimizer implements [nlp.Driver] on top of gonum's optimize package.
type Optimizer struct {
	settings Settings
	logger   *log.Logger
	result   Result
}

// Option configures an [Optimizer].
type Option func(*Optimizer)

// WithLogger sets the logger. The default discards output.
func WithLogger(l *log.Logger) Option { return func(o *Optimizer) { o.logger = l } }

// New returns an optimizer for s. The method "none" yields a nil
// optimizer and no error, so the kernel evaluates its initial placement
// only.
func New(s Settings, opts ...Option) (*Optimizer, error) {
	if s.Method == config.MethodNone {
		return nil, nil
	}
	if _, err := method(s.Method); err != nil {
		return nil, err
	}
	if s.MaxIterations <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "driver: iteration budget %d is not positive", s.MaxIterations)
	}
	o := &Optimizer{settings: s}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return o, nil
}

// Result returns the summary of the last Drive call.
func (o *Optimizer) Result() Result { return o.result }

func method(name string) (optimize.Method, error) {
	switch name {
	case config.MethodLBFGS, "":
		return &optimize.LBFGS{}, nil
	case config.MethodCG:
		return &optimize.CG{}, nil
	case config.MethodGD:
		return &optimize.GradientDescent{}, nil
	case config.MethodNelderMead:
		return &optimize.NelderMead{}, nil
	}
	return nil, errors.New(errors.ErrCodeInvalidConfig, "driver: unknown method %q", name)
}

// Drive minimizes p starting from its current variables. On return the
// problem holds the best accepted point, or its starting point when no
// step was accepted. Failures of the method itself, such as a line search
// that cannot make progress, end the run without an error.
func (o *Optimizer) Drive(ctx context.Context, p nlp.Problem) error {
	m, err := method(o.settings.Method)
	if err != nil {
		return err
	}
	x0 := p.CurrentVariables()
	if len(x0) == 0 {
		return nil
	}

	// Evaluation errors stop the run through Status, which gonum consults
	// after every evaluation.
	var evalErr error
	fail := func(err error) {
		if evalErr == nil {
			evalErr = err
		}
	}
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			if err := p.SetVariables(x); err != nil {
				fail(err)
				return math.Inf(1)
			}
			b, err := p.EvaluateObjective(ctx)
			if err != nil {
				fail(err)
				return math.Inf(1)
			}
			return b.Total
		},
		Status: func() (optimize.Status, error) {
			switch {
			case evalErr != nil:
				return optimize.Failure, evalErr
			case ctx.Err() != nil:
				return optimize.Failure, ctx.Err()
			case p.StopConditionSatisfied():
				return StopConditionReached, nil
			}
			return optimize.NotTerminated, nil
		},
	}
	if FirstOrder(o.settings.Method) {
		problem.Grad = func(grad, x []float64) {
			if err := p.SetVariables(x); err != nil {
				fail(err)
				return
			}
			g, err := p.EvaluateGradient(ctx)
			if err != nil {
				fail(err)
				return
			}
			copy(grad, g)
		}
	}

	settings := &optimize.Settings{
		GradientThreshold: o.settings.GradientThreshold,
		// The stop policy owns the budget; this is a backstop one past it
		// because the starting point counts as a major iteration.
		MajorIterations: o.settings.MaxIterations + 1,
		Recorder:        &iterationRecorder{p: p, logger: o.logger},
	}

	res, err := optimize.Minimize(problem, x0, settings, m)
	switch {
	case evalErr != nil:
		return evalErr
	case ctx.Err() != nil:
		return errors.Wrap(errors.ErrCodeCanceled, ctx.Err(), "driver: solve canceled")
	case res == nil:
		return errors.Wrap(errors.ErrCodeInternal, err, "driver: %s", o.settings.Method)
	case err != nil:
		o.logger.Warn("optimizer stopped early", "method", o.settings.Method, "status", res.Status, "err", err)
	}

	o.result = Result{
		Status:          res.Status,
		Objective:       res.F,
		Iterations:      max(res.MajorIterations-1, 0),
		FuncEvaluations: res.FuncEvaluations,
		GradEvaluations: res.GradEvaluations,
		Runtime:         res.Runtime,
	}
	best := res.X
	if math.IsInf(res.F, 1) || math.IsNaN(res.F) {
		best = x0
	}
	if err := p.SetVariables(best); err != nil {
		return err
	}
	o.logger.Debug("optimizer finished", "method", o.settings.Method, "status", res.Status,
		"iterations", o.result.Iterations, "evals", res.FuncEvaluations)
	return nil
}

// iterationRecorder forwards accepted steps to the problem. The starting
// location is reported as the first major iteration and is skipped.
type iterationRecorder struct {
	p      nlp.Problem
	logger *log.Logger
}

func (r *iterationRecorder) Init() error { return nil }

func (r *iterationRecorder) Record(loc *optimize.Location, op optimize.Operation, stats *optimize.Stats) error {
	if op != optimize.MajorIteration || stats.MajorIterations <= 1 {
		return nil
	}
	r.p.NextIteration(loc.F)
	r.logger.Debug("iteration", "n", stats.MajorIterations-1, "f", loc.F)
	return nil
}

// Run minimizes p with settings s and returns the run summary.
func Run(ctx context.Context, p nlp.Problem, s Settings) (Result, error) {
	o, err := New(s)
	if err != nil || o == nil {
		return Result{}, err
	}
	if err := o.Drive(ctx, p); err != nil {
		return Result{}, err
	}
	return o.Result(), nil
}

var _ nlp.Driver = (*Optimizer)(nil)
