package nlp

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/matzehuels/analogplace/pkg/config"
	"github.com/matzehuels/analogplace/pkg/db"
	"github.com/matzehuels/analogplace/pkg/errors"
	"github.com/matzehuels/analogplace/pkg/geom"
	"github.com/matzehuels/analogplace/pkg/observability"
	"github.com/matzehuels/analogplace/pkg/sigpath"
)

// State is the kernel's lifecycle stage.
type State int

const (
	StateUninitialized State = iota
	StateProblemInitialized
	StateOperatorsBuilt
	StateTasksConstructed
	StateEvaluating
	StateTerminal
)

var stateNames = [...]string{
	"uninitialized", "problem-initialized", "operators-built",
	"tasks-constructed", "evaluating", "terminal",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// Problem is the interface an outer iterative solver drives. The solver
// must not call SetVariables while an evaluation is running.
type Problem interface {
	EvaluateObjective(ctx context.Context) (Breakdown, error)
	EvaluateGradient(ctx context.Context) ([]float64, error)
	CurrentVariables() []float64
	SetVariables(x []float64) error
	StopConditionSatisfied() bool
	// NextIteration marks the end of one outer iteration whose accepted
	// point has objective f.
	NextIteration(f float64)
}

// Driver runs an iterative optimization over a [Problem]. On return the
// problem's variables hold the solution the driver settled on.
type Driver interface {
	Drive(ctx context.Context, p Problem) error
}

// Kernel orchestrates one solve: problem sizing, initial placement,
// operator construction, task graph evaluation and write-back.
type Kernel struct {
	db   db.ReadWriter
	segs []sigpath.Segment

	cfg        config.Config
	stop       StopCondition
	init       InitPlacement
	exec       Executor
	logger     *log.Logger
	firstOrder bool
	runID      string

	state    State
	scale    float64
	boundary geom.Box
	axis     float64
	index    IndexMap
	vars     *Variables
	weights  *Weights
	ops      *Operators
	eval     *evaluator

	iter    int
	history []float64
	last    Breakdown
}

// Option configures a [Kernel].
type Option func(*Kernel)

// WithConfig replaces the default configuration.
func WithConfig(c config.Config) Option { return func(k *Kernel) { k.cfg = c } }

// WithStopCondition overrides the stop policy derived from the config.
func WithStopCondition(s StopCondition) Option { return func(k *Kernel) { k.stop = s } }

// WithInitPlacement overrides the init policy derived from the config.
func WithInitPlacement(p InitPlacement) Option { return func(k *Kernel) { k.init = p } }

// WithExecutor overrides the executor derived from the config.
func WithExecutor(e Executor) Option { return func(k *Kernel) { k.exec = e } }

// WithLogger sets the logger. The default discards output.
func WithLogger(l *log.Logger) Option { return func(k *Kernel) { k.logger = l } }

// WithFirstOrder controls whether the gradient graph is built.
// It is enabled by default.
func WithFirstOrder(on bool) Option { return func(k *Kernel) { k.firstOrder = on } }

// WithRunID sets the identifier reported to hooks and logs.
func WithRunID(id string) Option { return func(k *Kernel) { k.runID = id } }

// NewKernel returns a kernel for the placement database rw and the signal
// path segments segs. Policies not set by options are derived from the
// configuration.
func NewKernel(rw db.ReadWriter, segs []sigpath.Segment, opts ...Option) (*Kernel, error) {
	k := &Kernel{db: rw, segs: segs, cfg: config.Default(), firstOrder: true}
	for _, opt := range opts {
		opt(k)
	}
	if err := k.cfg.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	if k.logger == nil {
		k.logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if k.runID == "" {
		k.runID = uuid.NewString()
	}
	if k.stop == nil {
		k.stop = StopFromConfig(k.cfg.Solver)
	}
	if k.init == nil {
		k.init = InitFromConfig(k.cfg.Init)
	}
	if k.exec == nil {
		e, err := NewExecutor(k.cfg.Exec.Executor, k.cfg.Exec.Workers)
		if err != nil {
			return nil, err
		}
		k.exec = e
	}
	return k, nil
}

// StopFromConfig returns the iteration budget, combined with a plateau
// check when a plateau window is configured.
func StopFromConfig(s config.Solver) StopCondition {
	budget := StopAfterIterations{N: s.MaxIterations}
	if s.PlateauWindow > 0 {
		return AnyStop{budget, StopOnPlateau{Window: s.PlateauWindow, RelTol: s.PlateauTol}}
	}
	return budget
}

// InitFromConfig returns the configured init policy.
func InitFromConfig(c config.Init) InitPlacement {
	if c.Policy == config.InitNormal {
		return NormalInit{Seed: c.Seed, StdDevRatio: c.StdDevRatio}
	}
	return RandomInit{Seed: c.Seed}
}

func (k *Kernel) require(op string, states ...State) error {
	for _, s := range states {
		if k.state == s {
			return nil
		}
	}
	return errors.New(errors.ErrCodeInvalidState, "%s: kernel is %s", op, k.state)
}

// InitProblem sets hyperparameters, computes scale and boundary and sizes
// the variable vector. Symmetry axes start at the boundary's x midpoint.
func (k *Kernel) InitProblem() error {
	if err := k.require("init problem", StateUninitialized); err != nil {
		return err
	}
	k.weights = NewWeights(k.cfg.Alpha)
	for _, f := range Families {
		k.weights.SetLambda(f, k.cfg.Lambda.Of(f.String()))
	}

	scale, err := geom.ScaleFactor(k.db.TotalCellArea())
	if err != nil {
		return err
	}
	params := k.db.Params()
	boundary, err := geom.Boundary(params, scale)
	if err != nil {
		return err
	}
	if !params.BoundarySet {
		k.logger.Info("automatically set boundary", "boundary", boundary)
	}
	k.scale, k.boundary = scale, boundary
	k.axis = (boundary.Min.X + boundary.Max.X) / 2

	k.index = IndexMap{
		NumCells:      k.db.NumCells(),
		NumSymGroups:  k.db.NumSymGroups(),
		MultiSymGroup: !k.cfg.SharedSymAxis,
	}
	k.vars = NewVariables(k.index)
	placeAxes(k.vars, k.axis)
	k.state = StateProblemInitialized
	k.logger.Debug("problem initialized", "run", k.runID, "scale", scale, "variables", k.vars.Len())
	return nil
}

// InitPlace overwrites the variables with the init policy's placement.
func (k *Kernel) InitPlace() error {
	if k.state < StateProblemInitialized || k.state == StateTerminal {
		return errors.New(errors.ErrCodeInvalidState, "init place: kernel is %s", k.state)
	}
	sizes := make([]r2.Vec, k.db.NumCells())
	for i := range sizes {
		box := k.db.Cell(i).BBox
		sizes[i] = r2.Vec{X: float64(box.XLen()) * k.scale, Y: float64(box.YLen()) * k.scale}
	}
	k.init.Place(k.vars, k.boundary, sizes, k.axis)
	return nil
}

// BuildOperators instantiates every operator.
func (k *Kernel) BuildOperators() error {
	if err := k.require("build operators", StateProblemInitialized); err != nil {
		return err
	}
	ops, err := Build(k.db, k.segs, k.scale, k.boundary, k.vars, k.weights)
	if err != nil {
		return err
	}
	k.ops = ops
	k.state = StateOperatorsBuilt
	k.logger.Debug("operators built",
		"hpwl", len(ops.Family(FamilyWirelength)),
		"ovl", len(ops.Family(FamilyOverlap)),
		"oob", len(ops.Family(FamilyBoundary)),
		"asym", len(ops.Family(FamilyAsymmetry)),
		"cos", len(ops.Family(FamilyCosine)))
	return nil
}

// ConstructTasks builds the objective and, in first-order mode, the
// gradient task graphs.
func (k *Kernel) ConstructTasks() error {
	if err := k.require("construct tasks", StateOperatorsBuilt); err != nil {
		return err
	}
	k.eval = newEvaluator(k.ops, k.index, k.cfg.Exec.ChunkSize, k.firstOrder)
	if _, err := k.eval.objective.Order(); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "objective task graph")
	}
	if k.eval.gradient != nil {
		if _, err := k.eval.gradient.Order(); err != nil {
			return errors.Wrap(errors.ErrCodeInternal, err, "gradient task graph")
		}
	}
	k.state = StateTasksConstructed
	k.logger.Debug("tasks constructed", "objective", k.eval.objective.Len(), "executor", k.exec)
	return nil
}

// EvaluateObjective runs the objective graph on the current variables.
func (k *Kernel) EvaluateObjective(ctx context.Context) (Breakdown, error) {
	if err := k.require("evaluate objective", StateTasksConstructed, StateEvaluating); err != nil {
		return Breakdown{}, err
	}
	start := time.Now()
	if err := k.exec.Run(ctx, k.eval.objective); err != nil {
		return Breakdown{}, err
	}
	k.state = StateEvaluating
	k.last = k.eval.breakdown
	k.logger.Debug(k.last.String(), "iter", k.iter)
	observability.Solver().OnEvaluate(ctx, k.runID, k.iter, k.last.Total, time.Since(start))
	return k.last, nil
}

// EvaluateGradient runs the gradient graph and returns a fresh gradient
// vector of variable-vector length.
func (k *Kernel) EvaluateGradient(ctx context.Context) ([]float64, error) {
	if err := k.require("evaluate gradient", StateTasksConstructed, StateEvaluating); err != nil {
		return nil, err
	}
	if k.eval.gradient == nil {
		return nil, errors.New(errors.ErrCodeInvalidState, "evaluate gradient: kernel built without first-order support")
	}
	if err := k.exec.Run(ctx, k.eval.gradient); err != nil {
		return nil, err
	}
	k.state = StateEvaluating
	return append([]float64(nil), k.eval.grad...), nil
}

// CurrentVariables returns a copy of the variable vector.
func (k *Kernel) CurrentVariables() []float64 {
	if k.vars == nil {
		return nil
	}
	return k.vars.Copy()
}

// SetVariables replaces the variable vector. The length must match.
func (k *Kernel) SetVariables(x []float64) error {
	if k.vars == nil || k.state == StateTerminal {
		return errors.New(errors.ErrCodeInvalidState, "set variables: kernel is %s", k.state)
	}
	return k.vars.Assign(x)
}

// StopConditionSatisfied consults the stop policy. A policy that fails or
// panics is logged and treated as not satisfied.
func (k *Kernel) StopConditionSatisfied() (stop bool) {
	defer func() {
		if r := recover(); r != nil {
			k.logger.Warn("stop condition panicked; continuing", "panic", r)
			stop = false
		}
	}()
	stop, err := k.stop.ShouldStop(k)
	if err != nil {
		k.logger.Warn("stop condition failed; continuing", "err", err)
		return false
	}
	return stop
}

// NextIteration records the accepted objective f and advances the
// iteration counter. With escalation enabled, the multipliers of violation
// families dominating the latest evaluation grow.
func (k *Kernel) NextIteration(f float64) {
	k.iter++
	k.history = append(k.history, f)
	if !k.cfg.Escalate.Enabled || !(k.last.Total > 0) {
		return
	}
	for _, f := range []Family{FamilyOverlap, FamilyBoundary, FamilyAsymmetry} {
		if k.last.Family(f)/k.last.Total > k.cfg.Escalate.Threshold {
			w := k.weights.Lambda(f) * k.cfg.Escalate.Factor
			k.weights.SetLambda(f, w)
			k.logger.Debug("escalated penalty", "family", f, "lambda", w, "iter", k.iter)
		}
	}
}

func (k *Kernel) Iteration() int       { return k.iter }
func (k *Kernel) History() []float64   { return k.history }
func (k *Kernel) Breakdown() Breakdown { return k.last }

// State returns the lifecycle stage.
func (k *Kernel) State() State { return k.state }

// Scale returns the database-to-solver scale factor.
func (k *Kernel) Scale() float64 { return k.scale }

// Boundary returns the scaled placement region.
func (k *Kernel) Boundary() geom.Box { return k.boundary }

// RunID returns the solve identifier.
func (k *Kernel) RunID() string { return k.runID }

// Weights returns the shared hyperparameters.
func (k *Kernel) Weights() *Weights { return k.weights }

// Operators returns the built operators, or nil before BuildOperators.
func (k *Kernel) Operators() *Operators { return k.ops }

// ObjectiveGraph returns the objective task graph, or nil before
// ConstructTasks.
func (k *Kernel) ObjectiveGraph() *TaskGraph {
	if k.eval == nil {
		return nil
	}
	return k.eval.objective
}

// GradientGraph returns the gradient task graph, or nil when absent.
func (k *Kernel) GradientGraph() *TaskGraph {
	if k.eval == nil {
		return nil
	}
	return k.eval.gradient
}

// Prepare runs every stage up to task construction.
func (k *Kernel) Prepare() error {
	for _, step := range []func() error{k.InitProblem, k.InitPlace, k.BuildOperators, k.ConstructTasks} {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

// Solve drives a complete solve. With a nil driver the initial placement
// is evaluated once; otherwise the driver iterates first. The final
// placement is written back to the database.
func (k *Kernel) Solve(ctx context.Context, d Driver) (b Breakdown, err error) {
	start := time.Now()
	observability.Solver().OnSolveStart(ctx, k.runID, k.db.NumCells(), k.db.NumNets())
	defer func() {
		observability.Solver().OnSolveComplete(ctx, k.runID, k.iter, b.Total, time.Since(start), err)
	}()

	if err := k.Prepare(); err != nil {
		return Breakdown{}, err
	}
	if d != nil {
		if err := d.Drive(ctx, k); err != nil {
			return Breakdown{}, err
		}
	}
	b, err = k.EvaluateObjective(ctx)
	if err != nil {
		return Breakdown{}, err
	}
	if err := k.WriteBack(); err != nil {
		return Breakdown{}, err
	}
	k.logger.Info("solve finished", "run", k.runID, "iterations", k.iter, "objective", b.Total, "elapsed", time.Since(start).Round(time.Millisecond))
	return b, nil
}

var (
	_ Problem    = (*Kernel)(nil)
	_ SolveState = (*Kernel)(nil)
)
