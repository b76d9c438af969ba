// Package nodelink renders a labeled recipe graph as a node-link diagram.
//
// # Usage
//
// Convert a graph to DOT, then render it to SVG with Graphviz:
//
//	dot := nodelink.ToDOT(g, nodelink.Options{Quantities: true})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// # Appearance
//
// Products are drawn as rounded boxes and pure ingredients as ellipses.
// Nodes are filled with a color chosen by their community label, so nodes
// of one community share a color; unassigned nodes are white. Edges point
// from a product to its ingredients and grow thicker with the quantity.
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz], which runs Graphviz
// in-process, so no external binary is needed.
package nodelink
