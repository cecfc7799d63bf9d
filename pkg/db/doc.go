// Package db holds the placement database consumed by the analog placer.
//
// The database owns cells, pins, nets, symmetry groups, declared signal paths
// and the global placement parameters. The solver only reads from it through
// [Reader] and writes final cell locations back through [Writer].
//
// # Coordinates
//
// All geometry is stored in integer database units. A cell's bounding box and
// its pins' midpoints share the cell-local frame; the placed location of a cell
// is the translation applied to that frame, so the placed low corner of a cell
// is Loc + BBox.Lo.
//
// # Problem Files
//
// [Load] and [Decode] read a TOML problem description:
//
//	[params]
//	max_white_space = 0.3
//	layout_offset = 1000
//
//	[[cells]]
//	name = "M1"
//	bbox = [0, 0, 200, 120]
//
//	[[pins]]
//	name = "M1.d"
//	cell = "M1"
//	mid = [100, 110]
//
//	[[nets]]
//	name = "out"
//	pins = ["M1.d", "M2.d"]
//
//	[[sym_groups]]
//	name = "dp"
//	pairs = [["M1", "M2"]]
//
// Names are resolved to indices while loading; indices follow declaration order.
package db
