package community

import (
	rgerrors "github.com/matzehuels/recipegraph/pkg/errors"
	"github.com/matzehuels/recipegraph/pkg/graph"
)

// Modularity returns Q of the partition given by labels over the undirected
// projection of g:
//
//	Q = Σ_c [ L_c/m − (D_c/2m)² ]
//
// where L_c is the weight inside community c and D_c the summed degree of
// its nodes. Nodes missing from labels, or labeled [graph.Unassigned], each
// count as their own community.
func Modularity(g *graph.Graph, labels map[string]int) (float64, error) {
	p := project(g)
	if p.total == 0 {
		return 0, rgerrors.New(rgerrors.ErrCodeEmptyGraph, "modularity is undefined for a graph without edges")
	}

	// Singletons get negative keys so they never collide with real labels.
	comm := make([]int, g.NodeCount())
	for i, n := range g.Nodes() {
		label, ok := labels[n.Name]
		if !ok || label == graph.Unassigned {
			label = -2 - i
		}
		comm[i] = label
	}

	inside := make(map[int]float64)
	degree := make(map[int]float64)
	for u, nbrs := range p.adj {
		degree[comm[u]] += p.degree[u]
		for v, w := range nbrs {
			if u < v && comm[u] == comm[v] {
				inside[comm[u]] += w
			}
		}
	}

	twoM := 2 * p.total
	var q float64
	for c, d := range degree {
		frac := d / twoM
		q += inside[c]/p.total - frac*frac
	}
	return q, nil
}
