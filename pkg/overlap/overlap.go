// Package overlap computes the ingredients shared by every pair of products
// in a recipe graph.
//
// Products are compared by the names of their direct ingredients. Each
// unordered pair is reported once, in canonical order (A < B by name), and
// pairs sharing nothing are omitted:
//
//	res := overlap.Compute(g)
//	for _, grp := range res.Groups {
//	    fmt.Println(grp.Count, len(grp.Pairs))
//	}
package overlap

import (
	"cmp"
	"slices"

	"github.com/matzehuels/recipegraph/pkg/graph"
)

// Pair is two products and the ingredients they have in common.
type Pair struct {
	A      string   `json:"a"`
	B      string   `json:"b"`
	Shared []string `json:"shared"`
}

// Count returns the number of shared ingredients.
func (p Pair) Count() int { return len(p.Shared) }

// Group holds every pair with exactly Count shared ingredients.
type Group struct {
	Count int    `json:"count"`
	Pairs []Pair `json:"pairs"`
}

// Result is the co-ingredient map of a graph.
type Result struct {
	// Groups is ordered by Count, highest first. Pairs within a group are
	// ordered by (A, B).
	Groups []Group `json:"groups"`

	index map[[2]string][]string
}

// Compute derives the co-ingredient map from the current graph. The cost is
// quadratic in the number of products.
func Compute(g *graph.Graph) Result {
	type product struct {
		name string
		set  map[string]struct{}
	}

	ids := g.Products()
	products := make([]product, len(ids))
	for i, id := range ids {
		set := make(map[string]struct{}, g.OutDegree(id))
		for _, name := range g.IngredientNames(id) {
			set[name] = struct{}{}
		}
		products[i] = product{name: g.Node(id).Name, set: set}
	}

	byCount := make(map[int][]Pair)
	index := make(map[[2]string][]string)
	for i := range products {
		for j := i + 1; j < len(products); j++ {
			p, q := products[i], products[j]
			if len(q.set) < len(p.set) {
				p, q = q, p
			}
			var shared []string
			for name := range p.set {
				if _, ok := q.set[name]; ok {
					shared = append(shared, name)
				}
			}
			if len(shared) == 0 {
				continue
			}
			slices.Sort(shared)
			pair := Pair{A: products[i].name, B: products[j].name, Shared: shared}
			byCount[len(shared)] = append(byCount[len(shared)], pair)
			index[[2]string{pair.A, pair.B}] = shared
		}
	}

	res := Result{index: index}
	for count, pairs := range byCount {
		res.Groups = append(res.Groups, Group{Count: count, Pairs: pairs})
	}
	slices.SortFunc(res.Groups, func(a, b Group) int { return cmp.Compare(b.Count, a.Count) })
	return res
}

// Lookup returns the ingredients shared by p and q in either order.
func (r Result) Lookup(p, q string) ([]string, bool) {
	if q < p {
		p, q = q, p
	}
	shared, ok := r.index[[2]string{p, q}]
	return shared, ok
}

// ByCount returns the pairs keyed by shared-ingredient count.
func (r Result) ByCount() map[int][]Pair {
	out := make(map[int][]Pair, len(r.Groups))
	for _, g := range r.Groups {
		out[g.Count] = g.Pairs
	}
	return out
}

// PairCount returns the total number of reported pairs.
func (r Result) PairCount() int {
	n := 0
	for _, g := range r.Groups {
		n += len(g.Pairs)
	}
	return n
}
