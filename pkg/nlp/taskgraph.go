package nlp

import (
	"fmt"
	"sync"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// TaskKind classifies the work a task performs.
type TaskKind int

const (
	TaskEvaluate TaskKind = iota
	TaskSumFamily
	TaskSumAll
	TaskClearGrad
	TaskPartials
	TaskAccumulate
	TaskReduceGrad
	TaskSumGrad
)

var taskKindNames = [...]string{
	TaskEvaluate:   "evaluate",
	TaskSumFamily:  "sum-family",
	TaskSumAll:     "sum-all",
	TaskClearGrad:  "clear-grad",
	TaskPartials:   "partials",
	TaskAccumulate: "accumulate",
	TaskReduceGrad: "reduce-grad",
	TaskSumGrad:    "sum-grad",
}

func (k TaskKind) String() string {
	if k < 0 || int(k) >= len(taskKindNames) {
		return fmt.Sprintf("TaskKind(%d)", int(k))
	}
	return taskKindNames[k]
}

// Task is one node of a [TaskGraph].
type Task struct {
	ID   int64
	Name string
	Kind TaskKind
	Run  func()
}

// TaskGraph is a DAG of tasks. An edge u -> v means v runs after u finished
// and observes u's writes.
type TaskGraph struct {
	g     *simple.DirectedGraph
	tasks []*Task

	mu     sync.Mutex
	order  []*Task
	levels [][]*Task
}

// NewTaskGraph returns an empty graph.
func NewTaskGraph() *TaskGraph {
	return &TaskGraph{g: simple.NewDirectedGraph()}
}

// Add appends a task and returns it.
func (tg *TaskGraph) Add(name string, kind TaskKind, run func()) *Task {
	t := &Task{ID: int64(len(tg.tasks)), Name: name, Kind: kind, Run: run}
	tg.tasks = append(tg.tasks, t)
	tg.g.AddNode(simple.Node(t.ID))
	tg.invalidate()
	return t
}

// Precede records that before must finish before after starts.
func (tg *TaskGraph) Precede(before, after *Task) {
	if tg.g.HasEdgeFromTo(before.ID, after.ID) {
		return
	}
	tg.g.SetEdge(tg.g.NewEdge(simple.Node(before.ID), simple.Node(after.ID)))
	tg.invalidate()
}

func (tg *TaskGraph) invalidate() {
	tg.mu.Lock()
	tg.order, tg.levels = nil, nil
	tg.mu.Unlock()
}

// Len returns the number of tasks.
func (tg *TaskGraph) Len() int { return len(tg.tasks) }

// Tasks returns the tasks in insertion order.
func (tg *TaskGraph) Tasks() []*Task { return tg.tasks }

// Task returns the task with the given id.
func (tg *TaskGraph) Task(id int64) *Task { return tg.tasks[id] }

// Predecessors returns the tasks t directly depends on.
func (tg *TaskGraph) Predecessors(t *Task) []*Task { return tg.resolve(tg.g.To(t.ID)) }

// Successors returns the tasks that directly depend on t.
func (tg *TaskGraph) Successors(t *Task) []*Task { return tg.resolve(tg.g.From(t.ID)) }

func (tg *TaskGraph) resolve(it graph.Nodes) []*Task {
	nodes := graph.NodesOf(it)
	out := make([]*Task, len(nodes))
	for i, n := range nodes {
		out[i] = tg.tasks[n.ID()]
	}
	return out
}

// NumEdges returns the number of dependency edges.
func (tg *TaskGraph) NumEdges() int { return tg.g.Edges().Len() }

// Order returns the tasks in a deterministic topological order. A cycle is
// reported as an error.
func (tg *TaskGraph) Order() ([]*Task, error) {
	tg.mu.Lock()
	defer tg.mu.Unlock()
	if tg.order != nil {
		return tg.order, nil
	}
	sorted, err := topo.SortStabilized(tg.g, nil)
	if err != nil {
		return nil, fmt.Errorf("task graph: %w", err)
	}
	tg.order = make([]*Task, len(sorted))
	for i, n := range sorted {
		tg.order[i] = tg.tasks[n.ID()]
	}
	return tg.order, nil
}

// Levels partitions the tasks into waves: every task's predecessors lie in
// earlier waves. Tasks within a wave are independent.
func (tg *TaskGraph) Levels() ([][]*Task, error) {
	order, err := tg.Order()
	if err != nil {
		return nil, err
	}
	tg.mu.Lock()
	defer tg.mu.Unlock()
	if tg.levels != nil {
		return tg.levels, nil
	}
	depth := make([]int, len(tg.tasks))
	var levels [][]*Task
	for _, t := range order {
		d := 0
		for _, p := range graph.NodesOf(tg.g.To(t.ID)) {
			d = max(d, depth[p.ID()]+1)
		}
		depth[t.ID] = d
		if d == len(levels) {
			levels = append(levels, nil)
		}
		levels[d] = append(levels[d], t)
	}
	tg.levels = levels
	return levels, nil
}
