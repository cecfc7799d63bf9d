package dot

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/analogplace/pkg/errors"
	"github.com/matzehuels/analogplace/pkg/nlp"
)

// Options configures task graph rendering.
type Options struct {
	// Detailed adds the task kind and wave number to each label.
	Detailed bool
}

var kindColors = map[nlp.TaskKind]string{
	nlp.TaskSumFamily:  "lightblue",
	nlp.TaskAccumulate: "lightblue",
	nlp.TaskReduceGrad: "lightblue",
	nlp.TaskClearGrad:  "lightgrey",
	nlp.TaskSumAll:     "gold",
	nlp.TaskSumGrad:    "gold",
}

// TaskGraph converts g to DOT. Tasks of one wave share a rank.
func TaskGraph(g *nlp.TaskGraph, opts Options) (string, error) {
	levels, err := g.Levels()
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, err, "render task graph")
	}

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.15,0.05\"];\n")
	buf.WriteString("  ranksep=0.4;\n")
	buf.WriteString("  nodesep=0.2;\n")

	for wave, tasks := range levels {
		buf.WriteString("\n  { rank=same;")
		for _, t := range tasks {
			fmt.Fprintf(&buf, " t%d;", t.ID)
		}
		buf.WriteString(" }\n")
		for _, t := range tasks {
			fmt.Fprintf(&buf, "  t%d [%s];\n", t.ID, strings.Join(taskAttrs(t, wave, opts.Detailed), ", "))
		}
	}

	buf.WriteString("\n")
	for _, t := range g.Tasks() {
		for _, s := range g.Successors(t) {
			fmt.Fprintf(&buf, "  t%d -> t%d;\n", t.ID, s.ID)
		}
	}
	buf.WriteString("}\n")
	return buf.String(), nil
}

func taskAttrs(t *nlp.Task, wave int, detailed bool) []string {
	label := t.Name
	if detailed {
		label = fmt.Sprintf("%s\n%s, wave %d", t.Name, t.Kind, wave)
	}
	attrs := []string{fmt.Sprintf("label=%q", label)}
	if c, ok := kindColors[t.Kind]; ok {
		attrs = append(attrs, "fillcolor="+c)
	}
	return attrs
}

// RenderSVG lays out src with the dot engine and renders it as SVG.
func RenderSVG(ctx context.Context, src string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "init graphviz")
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(src))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse DOT")
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.SetLayout(graphviz.DOT).Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "render SVG")
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.-]+)\s+([0-9.-]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's fixed pt dimensions with a viewBox
// anchored at the origin so the SVG scales in browsers.
func normalizeViewBox(svg []byte) []byte {
	m := viewBoxRe.FindSubmatch(svg)
	if m == nil {
		return svg
	}
	w, _ := strconv.ParseFloat(string(m[3]), 64)
	h, _ := strconv.ParseFloat(string(m[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}
	tag := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`, w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(tag))
}
