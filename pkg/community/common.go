package community

import (
	"github.com/matzehuels/recipegraph/pkg/graph"
	"github.com/matzehuels/recipegraph/pkg/overlap"
)

// Layer is the graph of product pairs sharing exactly Count ingredients.
// Every node in Graph is a product labeled with Index, and every edge A→B
// carries Count as its quantity.
type Layer struct {
	Index int
	Count int
	Graph *graph.Graph
}

// Layering groups products by shared-ingredient count. Layer 0 has the
// highest count.
type Layering struct {
	Layers []Layer
	// Labels maps each product that shares an ingredient with another
	// product to a layer index. A product in several layers keeps the
	// lowest-count layer.
	Labels map[string]int
}

// ClusterByCommonIngredients layers the products of g by how many
// ingredients they share with other products.
func ClusterByCommonIngredients(g *graph.Graph) *Layering {
	return ClusterOverlap(overlap.Compute(g))
}

// ClusterOverlap builds the layering from a precomputed co-ingredient map.
// Groups with a non-positive count and pairs with an empty name are
// skipped, so a hand-built Result cannot produce a malformed layer.
func ClusterOverlap(res overlap.Result) *Layering {
	l := &Layering{Labels: make(map[string]int)}
	for _, grp := range res.Groups {
		if grp.Count <= 0 {
			continue
		}
		idx := len(l.Layers)
		lg := graph.New()
		for _, pair := range grp.Pairs {
			if err := addPair(lg, pair, grp.Count, idx); err != nil {
				continue
			}
			l.Labels[pair.A] = idx
			l.Labels[pair.B] = idx
		}
		if lg.NodeCount() == 0 {
			continue
		}
		lg.Meta()["count"] = grp.Count
		l.Layers = append(l.Layers, Layer{Index: idx, Count: grp.Count, Graph: lg})
	}
	return l
}

// addPair adds A→B with quantity count to a layer graph. It checks both
// names before touching lg, so a rejected pair leaves no node behind.
func addPair(lg *graph.Graph, p overlap.Pair, count, label int) error {
	if p.A == "" || p.B == "" {
		return graph.ErrInvalidNodeID
	}
	a, err := lg.Upsert(p.A, graph.RoleProduct)
	if err != nil {
		return err
	}
	b, err := lg.Upsert(p.B, graph.RoleProduct)
	if err != nil {
		return err
	}
	if err := lg.SetEdge(a, b, count); err != nil {
		return err
	}
	lg.SetCommunity(a, label)
	lg.SetCommunity(b, label)
	return nil
}

// Apply resets every label in g and then writes the product labels.
func (l *Layering) Apply(g *graph.Graph) {
	g.ResetCommunities()
	for name, label := range l.Labels {
		if id, ok := g.Lookup(name); ok {
			g.SetCommunity(id, label)
		}
	}
}
