// Package render groups the output renderers for solver artifacts.
//
// The [dot] subpackage converts the kernel's task graphs to
// Graphviz DOT and renders them to SVG.
//
// [dot]: github.com/matzehuels/analogplace/pkg/render/dot
package render
