package graph

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/recipegraph/pkg/recipe"
)

func TestMarshal(t *testing.T) {
	g, _ := Build([]recipe.Record{rec("A", "X", 1, "Y", 2)})
	g.SetCommunity(0, 1)

	data, err := Marshal(g)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var out wireGraph
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(out.Nodes) != 3 || len(out.Edges) != 2 {
		t.Fatalf("got %d nodes, %d edges", len(out.Nodes), len(out.Edges))
	}
	if out.Nodes[0].ID != "A" || out.Nodes[0].Community != 1 || out.Nodes[0].Roles[0] != "product" {
		t.Errorf("node[0] = %+v", out.Nodes[0])
	}
	if out.Nodes[1].Community != Unassigned {
		t.Errorf("node[1] community = %d, want %d", out.Nodes[1].Community, Unassigned)
	}
	if out.Edges[1] != (wireEdge{From: "A", To: "Y", Quantity: 2}) {
		t.Errorf("edge[1] = %+v", out.Edges[1])
	}
}

func TestMarshalEmpty(t *testing.T) {
	data, err := Marshal(New())
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	s := string(data)
	if !strings.Contains(s, `"nodes": []`) || !strings.Contains(s, `"edges": []`) {
		t.Errorf("empty graph JSON = %s", s)
	}
}

func TestRoundTripFile(t *testing.T) {
	g, _ := Build([]recipe.Record{
		rec("A", "X", 1, "Y", 2),
		rec("B", "X", 1),
		rec("X", "Ore", 3),
	})
	g.SetCommunity(1, 2)
	g.Meta()["method"] = "modularity"

	path := filepath.Join(t.TempDir(), "graph.json")
	if err := WriteFile(g, path); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	a, _ := Marshal(g)
	b, _ := Marshal(got)
	if !bytes.Equal(a, b) {
		t.Errorf("round trip mismatch:\n%s\n%s", a, b)
	}
	x, _ := got.NodeByName("X")
	if !x.IsProduct() || !x.IsIngredient() || x.Community != 2 {
		t.Errorf("X = %+v", x)
	}
}

func TestReadErrors(t *testing.T) {
	tests := []struct {
		name string
		json string
		want error
	}{
		{"unknown edge endpoint", `{"nodes":[{"id":"A","roles":["product"]}],"edges":[{"from":"A","to":"B","quantity":1}]}`, ErrUnknownNode},
		{"empty id", `{"nodes":[{"id":"","roles":[]}],"edges":[]}`, ErrInvalidNodeID},
		{"bad quantity", `{"nodes":[{"id":"A"},{"id":"B"}],"edges":[{"from":"A","to":"B","quantity":0}]}`, ErrInvalidQuantity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tt.json))
			if !errors.Is(err, tt.want) {
				t.Errorf("Read error = %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := Read(strings.NewReader(`{"nodes":[{"id":"A","roles":["widget"]}]}`)); err == nil {
		t.Error("expected error for unknown role")
	}
	if _, err := Read(strings.NewReader(`not json`)); err == nil {
		t.Error("expected decode error")
	}
	if _, err := ReadFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}
