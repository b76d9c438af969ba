package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/recipegraph/pkg/graph"
)

// Options configures node-link diagram rendering.
type Options struct {
	// Detailed adds the community label and roles to node labels.
	Detailed bool
	// Quantities labels edges with their quantity.
	Quantities bool
	// RankDir is the Graphviz rank direction. Empty means "LR".
	RankDir string
}

// palette holds fill colors indexed by community label modulo its length.
var palette = []string{
	"#8dd3c7", "#ffffb3", "#bebada", "#fb8072", "#80b1d3", "#fdb462",
	"#b3de69", "#fccde5", "#d9d9d9", "#bc80bd", "#ccebc5", "#ffed6f",
}

// CommunityColor returns the fill color used for a community label.
func CommunityColor(label int) string {
	if label < 0 {
		return "white"
	}
	return palette[label%len(palette)]
}

// ToDOT converts a graph to Graphviz DOT. Nodes and edges are emitted in
// graph order, so equal graphs produce identical output.
func ToDOT(g *graph.Graph, opts Options) string {
	rankdir := opts.RankDir
	if rankdir == "" {
		rankdir = "LR"
	}

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	fmt.Fprintf(&buf, "  rankdir=%s;\n", rankdir)
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [style=\"rounded,filled\", fontsize=14, margin=\"0.15,0.05\"];\n")
	buf.WriteString("  edge [color=\"#555555\", arrowsize=0.6];\n")
	buf.WriteString("  ranksep=0.6;\n")
	buf.WriteString("  nodesep=0.25;\n")
	buf.WriteString("\n")

	for _, n := range g.Nodes() {
		fmt.Fprintf(&buf, "  %q [%s];\n", n.Name, strings.Join(nodeAttrs(n, opts.Detailed), ", "))
	}

	buf.WriteString("\n")
	for _, e := range g.Edges() {
		attrs := []string{fmt.Sprintf("penwidth=%.2f", penWidth(e.Quantity))}
		if opts.Quantities {
			attrs = append(attrs, fmt.Sprintf("label=%q", strconv.Itoa(e.Quantity)))
		}
		fmt.Fprintf(&buf, "  %q -> %q [%s];\n", g.Node(e.From).Name, g.Node(e.To).Name, strings.Join(attrs, ", "))
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeAttrs(n *graph.Node, detailed bool) []string {
	label := n.Name
	if detailed {
		label = fmt.Sprintf("%s\n%s", n.Name, n.Role)
		if n.Community != graph.Unassigned {
			label += fmt.Sprintf("\ncommunity: %d", n.Community)
		}
	}
	shape := "ellipse"
	if n.IsProduct() {
		shape = "box"
	}
	return []string{
		fmt.Sprintf("label=%q", label),
		"shape=" + shape,
		fmt.Sprintf("fillcolor=%q", CommunityColor(n.Community)),
	}
}

// penWidth grows logarithmically so a quantity of 100 does not swamp the
// diagram.
func penWidth(qty int) float64 {
	return 1 + math.Log2(float64(max(qty, 1)))/2
}

// RenderSVG renders DOT source to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox rewrites the root element so the SVG scales to its
// container instead of using Graphviz's point-based width and height.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	root := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(root))
}
