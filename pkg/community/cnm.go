package community

import (
	"slices"

	rgerrors "github.com/matzehuels/recipegraph/pkg/errors"
	"github.com/matzehuels/recipegraph/pkg/graph"
)

// Merge is one step of the dendrogram: community From was absorbed into
// community Into, changing modularity by DeltaQ to the cumulative Q.
// Communities are named by their lowest original node ID.
type Merge struct {
	Into   int     `json:"into"`
	From   int     `json:"from"`
	DeltaQ float64 `json:"delta_q"`
	Q      float64 `json:"q"`
}

// Result is the outcome of a modularity detection run.
type Result struct {
	// Communities lists node IDs per community. Community i has label i;
	// communities are ordered by their lowest member.
	Communities [][]graph.NodeID `json:"communities"`
	// Labels maps every node name to its community label.
	Labels map[string]int `json:"labels"`
	// Q is the modularity of the returned partition.
	Q float64 `json:"q"`
	// InitialQ is the modularity of the all-singletons partition.
	InitialQ float64 `json:"initial_q"`
	// Merges is the dendrogram in merge order. In full-dendrogram mode it
	// extends past the chosen cut.
	Merges []Merge `json:"merges"`
	// Level is the number of merges applied to reach the returned partition.
	Level int `json:"level"`
}

// Apply overwrites the community label of every node in g. Nodes unknown to
// the result become [graph.Unassigned].
func (r *Result) Apply(g *graph.Graph) {
	for _, n := range g.Nodes() {
		label, ok := r.Labels[n.Name]
		if !ok {
			label = graph.Unassigned
		}
		n.Community = label
	}
}

// Option configures [DetectModularity].
type Option func(*options)

type options struct {
	full bool
}

// WithFullDendrogram keeps merging past the first non-positive gain until no
// connected communities remain, then cuts the dendrogram at the level with
// the highest Q. Ties keep the earliest level.
func WithFullDendrogram() Option {
	return func(o *options) { o.full = true }
}

// DetectModularity partitions g with Clauset–Newman–Moore greedy modularity
// maximization. The graph is treated as undirected with edge quantities as
// weights. It fails with EMPTY_GRAPH when the graph has no weighted edges.
//
// The result is deterministic: equal gains are resolved toward the pair with
// the lowest community indices, and the lower index survives each merge.
func DetectModularity(g *graph.Graph, opts ...Option) (*Result, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	p := project(g)
	if p.total == 0 {
		return nil, rgerrors.New(rgerrors.ErrCodeEmptyGraph,
			"modularity is undefined for a graph without edges (%d nodes)", g.NodeCount())
	}

	s := newState(p)
	q0 := s.q
	for {
		best := s.global.top()
		if best == nil {
			break
		}
		if best.dq <= 0 && !o.full {
			break
		}
		s.merge(best.row, best.col, best.dq)
	}

	level := len(s.merges)
	q := s.q
	if o.full {
		level, q = 0, q0
		for i, m := range s.merges {
			if m.Q > q {
				level, q = i+1, m.Q
			}
		}
	}

	res := &Result{
		Q:        q,
		InitialQ: q0,
		Merges:   s.merges,
		Level:    level,
	}
	res.Communities = replay(g.NodeCount(), s.merges[:level])
	res.Labels = make(map[string]int, g.NodeCount())
	for label, members := range res.Communities {
		for _, id := range members {
			res.Labels[g.Node(id).Name] = label
		}
	}
	return res, nil
}

// state is the mutable CNM bookkeeping. Community IDs are the original node
// IDs; a merged-away community's row is discarded.
type state struct {
	a      []float64
	rows   []*row
	global *maxima
	q      float64
	merges []Merge
}

func newState(p projection) *state {
	n := len(p.adj)
	s := &state{
		a:      make([]float64, n),
		rows:   make([]*row, n),
		global: newMaxima(),
	}
	twoM := 2 * p.total
	for i := range n {
		s.a[i] = p.degree[i] / twoM
		s.q -= s.a[i] * s.a[i]
	}
	for i := range n {
		r := newRow()
		for j, w := range p.adj[i] {
			r.set(i, j, w/p.total-2*s.a[i]*s.a[j])
		}
		s.rows[i] = r
		s.global.refresh(i, r)
	}
	return s
}

// merge joins communities i and j. The lower index survives.
func (s *state) merge(i, j int, dq float64) {
	into, from := ordered(i, j)
	ri, rj := s.rows[into], s.rows[from]

	touched := make(map[int]struct{})
	for _, k := range rj.cols() {
		if k == into {
			continue
		}
		djk, _ := rj.get(k)
		next := djk - 2*s.a[into]*s.a[k]
		if dik, ok := ri.get(k); ok {
			next = dik + djk
		}
		ri.set(into, k, next)
		rk := s.rows[k]
		rk.remove(from)
		rk.set(k, into, next)
		touched[k] = struct{}{}
	}
	for _, k := range ri.cols() {
		if k == from {
			continue
		}
		if _, ok := rj.get(k); ok {
			continue
		}
		dik, _ := ri.get(k)
		next := dik - 2*s.a[from]*s.a[k]
		ri.set(into, k, next)
		s.rows[k].set(k, into, next)
		touched[k] = struct{}{}
	}
	ri.remove(from)

	s.a[into] += s.a[from]
	s.a[from] = 0
	s.rows[from] = nil

	s.global.refresh(from, nil)
	s.global.refresh(into, ri)
	for k := range touched {
		s.global.refresh(k, s.rows[k])
	}

	s.q += dq
	s.merges = append(s.merges, Merge{Into: into, From: from, DeltaQ: dq, Q: s.q})
}

// replay applies merges to n singleton communities and returns the resulting
// communities, each sorted, ordered by lowest member.
func replay(n int, merges []Merge) [][]graph.NodeID {
	members := make([][]graph.NodeID, n)
	for i := range members {
		members[i] = []graph.NodeID{graph.NodeID(i)}
	}
	for _, m := range merges {
		members[m.Into] = append(members[m.Into], members[m.From]...)
		members[m.From] = nil
	}
	var out [][]graph.NodeID
	for _, c := range members {
		if len(c) == 0 {
			continue
		}
		slices.Sort(c)
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b []graph.NodeID) int { return int(a[0] - b[0]) })
	return out
}
