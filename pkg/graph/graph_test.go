package graph

import (
	"errors"
	"slices"
	"testing"
)

func TestUpsert(t *testing.T) {
	g := New()
	a, err := g.Upsert("A", RoleIngredient)
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	again, err := g.Upsert("A", RoleProduct)
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if a != again {
		t.Errorf("Upsert returned %d then %d, want stable ID", a, again)
	}
	n := g.Node(a)
	if !n.IsProduct() || !n.IsIngredient() {
		t.Errorf("role = %v, want product+ingredient", n.Role)
	}
	if _, err := g.Upsert("A", RoleIngredient); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if !n.IsProduct() {
		t.Error("re-adding as ingredient dropped the product role")
	}
	if n.Community != Unassigned {
		t.Errorf("Community = %d, want Unassigned", n.Community)
	}
	if g.NodeCount() != 1 {
		t.Errorf("NodeCount = %d, want 1", g.NodeCount())
	}
	if _, err := g.Upsert("", RoleProduct); !errors.Is(err, ErrInvalidNodeID) {
		t.Errorf("Upsert(\"\") error = %v, want ErrInvalidNodeID", err)
	}
}

func TestSetEdge(t *testing.T) {
	g := New()
	a, _ := g.Upsert("A", RoleProduct)
	x, _ := g.Upsert("X", RoleIngredient)

	if err := g.SetEdge(a, x, 1); err != nil {
		t.Fatalf("SetEdge: %v", err)
	}
	if err := g.SetEdge(a, x, 5); err != nil {
		t.Fatalf("SetEdge: %v", err)
	}
	e, ok := g.Edge(a, x)
	if !ok || e.Quantity != 5 {
		t.Errorf("Edge = %+v, %v, want quantity 5", e, ok)
	}
	if g.EdgeCount() != 1 {
		t.Errorf("EdgeCount = %d, want 1", g.EdgeCount())
	}
	if _, ok := g.Edge(x, a); ok {
		t.Error("reverse edge should not exist")
	}

	tests := []struct {
		name     string
		from, to NodeID
		qty      int
		want     error
	}{
		{"unknown from", 9, x, 1, ErrUnknownNode},
		{"unknown to", a, -1, 1, ErrUnknownNode},
		{"zero quantity", a, x, 0, ErrInvalidQuantity},
		{"negative quantity", a, x, -2, ErrInvalidQuantity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := g.SetEdge(tt.from, tt.to, tt.qty); !errors.Is(err, tt.want) {
				t.Errorf("SetEdge error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestAdjacency(t *testing.T) {
	g := New()
	a, _ := g.Upsert("A", RoleProduct)
	y, _ := g.Upsert("Y", RoleIngredient)
	x, _ := g.Upsert("X", RoleIngredient)
	b, _ := g.Upsert("B", RoleProduct)
	g.SetEdge(a, y, 2)
	g.SetEdge(a, x, 1)
	g.SetEdge(b, x, 3)

	if got := g.IngredientNames(a); !slices.Equal(got, []string{"Y", "X"}) {
		t.Errorf("IngredientNames(A) = %v, want [Y X]", got)
	}
	if got := g.OutDegree(a); got != 2 {
		t.Errorf("OutDegree(A) = %d, want 2", got)
	}
	if got := g.InDegree(x); got != 2 {
		t.Errorf("InDegree(X) = %d, want 2", got)
	}
	in := g.In(x)
	if len(in) != 2 || in[0].From != a || in[1].From != b {
		t.Errorf("In(X) = %+v", in)
	}
	if got := g.Products(); !slices.Equal(got, []NodeID{a, b}) {
		t.Errorf("Products = %v, want [%d %d]", got, a, b)
	}
	if got := g.TotalQuantity(); got != 6 {
		t.Errorf("TotalQuantity = %d, want 6", got)
	}
	if g.Out(99) != nil || g.IngredientNames(99) != nil {
		t.Error("unknown node should have no adjacency")
	}
}

func TestCommunities(t *testing.T) {
	g := New()
	a, _ := g.Upsert("A", RoleProduct)
	b, _ := g.Upsert("B", RoleProduct)
	g.SetCommunity(a, 0)
	g.SetCommunity(b, 3)
	g.SetCommunity(42, 1)

	labels := g.Labels()
	if labels["A"] != 0 || labels["B"] != 3 {
		t.Errorf("Labels = %v", labels)
	}
	if got := g.CommunityCount(); got != 2 {
		t.Errorf("CommunityCount = %d, want 2", got)
	}
	g.ResetCommunities()
	for _, n := range g.Nodes() {
		if n.Community != Unassigned {
			t.Errorf("%s community = %d after reset", n.Name, n.Community)
		}
	}
}

func TestClone(t *testing.T) {
	g := New()
	a, _ := g.Upsert("A", RoleProduct)
	x, _ := g.Upsert("X", RoleIngredient)
	g.SetEdge(a, x, 1)
	g.Meta()["method"] = "modularity"

	c := g.Clone()
	c.SetCommunity(a, 7)
	c.SetEdge(a, x, 9)
	y, _ := c.Upsert("Y", RoleIngredient)
	c.SetEdge(a, y, 1)
	c.Meta()["method"] = "common"

	if g.Node(a).Community != Unassigned {
		t.Error("clone label leaked into original")
	}
	if e, _ := g.Edge(a, x); e.Quantity != 1 {
		t.Errorf("original quantity = %d, want 1", e.Quantity)
	}
	if g.NodeCount() != 2 || g.OutDegree(a) != 1 {
		t.Errorf("original changed: %d nodes, out-degree %d", g.NodeCount(), g.OutDegree(a))
	}
	if g.Meta()["method"] != "modularity" {
		t.Errorf("original meta = %v", g.Meta())
	}
}

func TestRoleString(t *testing.T) {
	tests := []struct {
		role Role
		want string
	}{
		{0, "none"},
		{RoleProduct, "product"},
		{RoleIngredient, "ingredient"},
		{RoleProduct | RoleIngredient, "product+ingredient"},
	}
	for _, tt := range tests {
		if got := tt.role.String(); got != tt.want {
			t.Errorf("Role(%d).String() = %q, want %q", tt.role, got, tt.want)
		}
	}
}
