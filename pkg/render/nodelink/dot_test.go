package nodelink

import (
	"context"
	"strings"
	"testing"

	"github.com/matzehuels/recipegraph/pkg/graph"
	"github.com/matzehuels/recipegraph/pkg/recipe"
)

func sampleGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g, report := graph.Build([]recipe.Record{
		{Product: "Rotor", Ingredients: recipe.Ingredients{{Name: "Screw", Quantity: 25}, {Name: "Iron Rod", Quantity: 5}}},
		{Product: "Screw", Ingredients: recipe.Ingredients{{Name: "Iron Rod", Quantity: 1}}},
	})
	if len(report.Skipped) > 0 {
		t.Fatalf("skipped: %v", report.Skipped)
	}
	return g
}

func TestToDOT(t *testing.T) {
	g := sampleGraph(t)
	rotor, _ := g.Lookup("Rotor")
	g.SetCommunity(rotor, 1)

	dot := ToDOT(g, Options{Quantities: true})
	for _, want := range []string{
		"digraph G {",
		"rankdir=LR;",
		`"Rotor" [label="Rotor", shape=box, fillcolor="` + CommunityColor(1) + `"];`,
		`"Iron Rod" [label="Iron Rod", shape=ellipse, fillcolor="white"];`,
		`"Screw" [label="Screw", shape=box`,
		`"Rotor" -> "Screw" [penwidth=`,
		`label="25"`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %q\n%s", want, dot)
		}
	}
	if ToDOT(g, Options{Quantities: true}) != dot {
		t.Error("ToDOT should be deterministic")
	}
}

func TestToDOTDetailed(t *testing.T) {
	g := sampleGraph(t)
	g.SetCommunity(0, 3)
	dot := ToDOT(g, Options{Detailed: true, RankDir: "TB"})
	if !strings.Contains(dot, `community: 3`) {
		t.Errorf("detailed label missing community:\n%s", dot)
	}
	if !strings.Contains(dot, "rankdir=TB;") {
		t.Error("RankDir not applied")
	}
	if strings.Contains(dot, `label="25"`) {
		t.Error("quantities should be omitted by default")
	}
}

func TestCommunityColor(t *testing.T) {
	if CommunityColor(graph.Unassigned) != "white" {
		t.Error("unassigned nodes should be white")
	}
	if CommunityColor(0) != CommunityColor(len(palette)) {
		t.Error("palette should wrap")
	}
	if CommunityColor(0) == CommunityColor(1) {
		t.Error("adjacent labels should differ")
	}
}

func TestPenWidth(t *testing.T) {
	if penWidth(1) != 1 {
		t.Errorf("penWidth(1) = %v, want 1", penWidth(1))
	}
	if penWidth(16) != 3 {
		t.Errorf("penWidth(16) = %v, want 3", penWidth(16))
	}
	if penWidth(0) != 1 {
		t.Errorf("penWidth(0) = %v, want 1", penWidth(0))
	}
}

func TestNormalizeViewBox(t *testing.T) {
	in := []byte(`<svg width="100pt" height="50pt" viewBox="0.00 0.00 100.00 50.00" xmlns="http://www.w3.org/2000/svg"><g/></svg>`)
	out := string(normalizeViewBox(in))
	if !strings.Contains(out, `viewBox="0 0 100.00 50.00" width="100" height="50"`) {
		t.Errorf("normalizeViewBox = %s", out)
	}
	if got := normalizeViewBox([]byte("<svg><g/></svg>")); string(got) != "<svg><g/></svg>" {
		t.Errorf("svg without viewBox should be unchanged, got %s", got)
	}
}

func TestRenderSVG(t *testing.T) {
	if testing.Short() {
		t.Skip("graphviz rendering in short mode")
	}
	svg, err := RenderSVG(context.Background(), ToDOT(sampleGraph(t), Options{}))
	if err != nil {
		t.Fatalf("RenderSVG: %v", err)
	}
	if !strings.Contains(string(svg), "<svg") || !strings.Contains(string(svg), "Rotor") {
		t.Errorf("unexpected SVG output: %.200s", svg)
	}
}
