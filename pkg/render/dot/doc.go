// Package dot renders the kernel's task graphs with Graphviz.
//
// [TaskGraph] draws an objective or gradient task graph top to bottom, one
// rank per wave of tasks that may run concurrently. Aggregation tasks are
// filled by kind so family sums and gradient reductions stand out.
//
//	src, err := dot.TaskGraph(k.ObjectiveGraph(), dot.Options{})
//	svg, err := dot.RenderSVG(ctx, src)
package dot
