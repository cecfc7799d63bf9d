// Package pkg provides the core libraries of the analogplace placer.
//
// # Overview
//
// Analogplace computes a global placement for analog circuits by minimizing
// a smooth penalty objective with a gradient-based solver. The pkg
// directory is organized into four areas:
//
//  1. Model: [db] (cells, pins, nets, symmetry groups, signal paths),
//     [geom] (scaling and the placement boundary) and [sigpath]
//     (signal path segments)
//  2. Solver: [nlp] (variables, operators, task graphs and the kernel) and
//     [driver] (gonum optimizers)
//  3. Infrastructure: [config], [cache], [errors], [observability] and
//     [buildinfo]
//  4. Orchestration: [pipeline] (load → solve → write back) and [render]
//
// # Architecture
//
// The typical data flow:
//
//	TOML problem file
//	         ↓
//	    [db] package (problem database)
//	         ↓
//	    [nlp] package (operators + task graphs)
//	         ↓
//	    [driver] package (optimizer loop)
//	         ↓
//	    cell locations, JSON or Graphviz output
//
// # Quick Start
//
//	runner := pipeline.NewRunner(cache.NewNullCache(), nil, logger)
//	res, err := runner.Execute(ctx, pipeline.Options{ProblemPath: "ota.toml"})
//	if err != nil {
//	    return err
//	}
//	fmt.Println(res.Breakdown)
//
// [db]: github.com/matzehuels/analogplace/pkg/db
// [geom]: github.com/matzehuels/analogplace/pkg/geom
// [sigpath]: github.com/matzehuels/analogplace/pkg/sigpath
// [nlp]: github.com/matzehuels/analogplace/pkg/nlp
// [driver]: github.com/matzehuels/analogplace/pkg/driver
// [config]: github.com/matzehuels/analogplace/pkg/config
// [cache]: github.com/matzehuels/analogplace/pkg/cache
// [errors]: github.com/matzehuels/analogplace/pkg/errors
// [observability]: github.com/matzehuels/analogplace/pkg/observability
// [buildinfo]: github.com/matzehuels/analogplace/pkg/buildinfo
// [pipeline]: github.com/matzehuels/analogplace/pkg/pipeline
// [render]: github.com/matzehuels/analogplace/pkg/render
package pkg
