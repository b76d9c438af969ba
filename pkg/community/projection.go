package community

import "github.com/matzehuels/recipegraph/pkg/graph"

// projection is the undirected view of a graph. Edge quantities in both
// directions between the same pair are summed; self-loops are dropped.
type projection struct {
	adj    []map[int]float64
	degree []float64
	total  float64 // m, the sum of undirected edge weights
}

func project(g *graph.Graph) projection {
	n := g.NodeCount()
	p := projection{
		adj:    make([]map[int]float64, n),
		degree: make([]float64, n),
	}
	for i := range p.adj {
		p.adj[i] = make(map[int]float64)
	}
	for _, e := range g.Edges() {
		u, v := int(e.From), int(e.To)
		if u == v {
			continue
		}
		w := float64(e.Quantity)
		p.adj[u][v] += w
		p.adj[v][u] += w
		p.degree[u] += w
		p.degree[v] += w
		p.total += w
	}
	return p
}
