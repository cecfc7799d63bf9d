package nlp

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/analogplace/pkg/errors"
)

// Executor runs every task of a graph, respecting its edges. Once a wave of
// tasks has started it runs to completion; cancellation is observed between
// waves. A panicking task is reported as an internal error naming the task.
type Executor interface {
	Run(ctx context.Context, g *TaskGraph) error
}

// SerialExecutor runs tasks one at a time in topological order.
type SerialExecutor struct{}

func (SerialExecutor) Run(ctx context.Context, g *TaskGraph) error {
	order, err := g.Order()
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "order tasks")
	}
	if err := ctx.Err(); err != nil {
		return errors.Wrap(errors.ErrCodeCanceled, err, "task graph")
	}
	for _, t := range order {
		if err := runTask(t); err != nil {
			return err
		}
	}
	return nil
}

// PoolExecutor runs each wave of independent tasks on a bounded number of
// goroutines. Workers <= 0 uses one worker per CPU.
type PoolExecutor struct {
	Workers int
}

func (p PoolExecutor) workers() int {
	if p.Workers <= 0 {
		return runtime.NumCPU()
	}
	return p.Workers
}

func (p PoolExecutor) Run(ctx context.Context, g *TaskGraph) error {
	levels, err := g.Levels()
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "order tasks")
	}
	n := p.workers()
	for _, wave := range levels {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(errors.ErrCodeCanceled, err, "task graph")
		}
		var eg errgroup.Group
		eg.SetLimit(n)
		// Tasks are small; hand each goroutine a contiguous batch.
		size := (len(wave) + n - 1) / n
		for lo := 0; lo < len(wave); lo += size {
			batch := wave[lo:min(lo+size, len(wave))]
			eg.Go(func() error {
				for _, t := range batch {
					if err := runTask(t); err != nil {
						return err
					}
				}
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return err
		}
	}
	return nil
}

func runTask(t *Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.New(errors.ErrCodeInternal, "task %s (%s) panicked: %v", t.Name, t.Kind, r)
		}
	}()
	if t.Run != nil {
		t.Run()
	}
	return nil
}

// NewExecutor returns the executor registered under name ("serial" or "pool").
func NewExecutor(name string, workers int) (Executor, error) {
	switch name {
	case "", "pool":
		return PoolExecutor{Workers: workers}, nil
	case "serial":
		return SerialExecutor{}, nil
	}
	return nil, errors.New(errors.ErrCodeInvalidConfig, "unknown executor %q", name)
}

var (
	_ Executor = SerialExecutor{}
	_ Executor = PoolExecutor{}
)

func (p PoolExecutor) String() string { return fmt.Sprintf("pool(%d)", p.workers()) }
func (SerialExecutor) String() string { return "serial" }
