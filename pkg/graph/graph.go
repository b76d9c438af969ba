package graph

import (
	"errors"
	"maps"
	"slices"
	"strings"
)

var (
	// ErrInvalidNodeID is returned when a node name is empty.
	ErrInvalidNodeID = errors.New("node ID must not be empty")

	// ErrUnknownNode is returned by [Graph.SetEdge] when an endpoint does not
	// exist in the graph.
	ErrUnknownNode = errors.New("unknown node")

	// ErrInvalidQuantity is returned by [Graph.SetEdge] when the quantity is
	// not positive.
	ErrInvalidQuantity = errors.New("edge quantity must be positive")
)

// Unassigned is the community label of a node no detector has labeled.
const Unassigned = -1

// Metadata stores arbitrary key-value pairs attached to the graph, such as
// the detection method that produced the current labels.
type Metadata map[string]any

// NodeID is the dense index of a node. IDs are assigned in insertion order
// and never change.
type NodeID int

// Role records how a name is used by the recipes. A node can be both a
// product and an ingredient.
type Role uint8

const (
	// RoleIngredient marks a name consumed by at least one recipe.
	RoleIngredient Role = 1 << iota
	// RoleProduct marks a name that is the product of at least one recipe.
	RoleProduct
)

// Has reports whether r includes all flags in other.
func (r Role) Has(other Role) bool { return r&other == other }

// Strings returns the role names in a stable order.
func (r Role) Strings() []string {
	var out []string
	if r.Has(RoleProduct) {
		out = append(out, "product")
	}
	if r.Has(RoleIngredient) {
		out = append(out, "ingredient")
	}
	return out
}

// String implements fmt.Stringer.
func (r Role) String() string {
	if r == 0 {
		return "none"
	}
	return strings.Join(r.Strings(), "+")
}

// ParseRole is the inverse of [Role.Strings] for a single name.
func ParseRole(s string) (Role, bool) {
	switch s {
	case "product":
		return RoleProduct, true
	case "ingredient":
		return RoleIngredient, true
	}
	return 0, false
}

// Node is a product or ingredient in the graph.
type Node struct {
	ID        NodeID
	Name      string
	Role      Role
	Community int
}

// IsProduct reports whether the node is the product of some recipe.
func (n *Node) IsProduct() bool { return n.Role.Has(RoleProduct) }

// IsIngredient reports whether the node is consumed by some recipe.
func (n *Node) IsIngredient() bool { return n.Role.Has(RoleIngredient) }

// Edge is a directed product → ingredient dependency.
type Edge struct {
	From     NodeID
	To       NodeID
	Quantity int
}

type edgeKey struct{ from, to NodeID }

// Graph is a directed, weighted dependency graph of products and
// ingredients. The zero value is not usable; use [New].
type Graph struct {
	nodes  []*Node
	byName map[string]NodeID
	edges  []Edge
	edgeAt map[edgeKey]int
	out    [][]int // node -> indices into edges, insertion order
	in     [][]int
	meta   Metadata
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		byName: make(map[string]NodeID),
		edgeAt: make(map[edgeKey]int),
		meta:   Metadata{},
	}
}

// Meta returns the graph-level metadata map. It is never nil.
func (g *Graph) Meta() Metadata { return g.meta }

// Upsert returns the ID of the node called name, creating it if needed, and
// adds role to its role flags. Re-adding an existing node never removes a
// role.
func (g *Graph) Upsert(name string, role Role) (NodeID, error) {
	if name == "" {
		return 0, ErrInvalidNodeID
	}
	if id, ok := g.byName[name]; ok {
		g.nodes[id].Role |= role
		return id, nil
	}
	id := NodeID(len(g.nodes))
	g.nodes = append(g.nodes, &Node{ID: id, Name: name, Role: role, Community: Unassigned})
	g.byName[name] = id
	g.out = append(g.out, nil)
	g.in = append(g.in, nil)
	return id, nil
}

// Lookup returns the ID of the node called name.
func (g *Graph) Lookup(name string) (NodeID, bool) {
	id, ok := g.byName[name]
	return id, ok
}

// Node returns the node with the given ID, or nil if out of range. The
// returned pointer refers to the graph's node, so label changes are visible
// to the graph.
func (g *Graph) Node(id NodeID) *Node {
	if id < 0 || int(id) >= len(g.nodes) {
		return nil
	}
	return g.nodes[id]
}

// NodeByName returns the node called name.
func (g *Graph) NodeByName(name string) (*Node, bool) {
	id, ok := g.byName[name]
	if !ok {
		return nil, false
	}
	return g.nodes[id], true
}

// SetEdge creates the edge from → to with the given quantity, or overwrites
// the quantity of an existing edge.
func (g *Graph) SetEdge(from, to NodeID, qty int) error {
	if g.Node(from) == nil || g.Node(to) == nil {
		return ErrUnknownNode
	}
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	k := edgeKey{from, to}
	if i, ok := g.edgeAt[k]; ok {
		g.edges[i].Quantity = qty
		return nil
	}
	i := len(g.edges)
	g.edges = append(g.edges, Edge{From: from, To: to, Quantity: qty})
	g.edgeAt[k] = i
	g.out[from] = append(g.out[from], i)
	g.in[to] = append(g.in[to], i)
	return nil
}

// Edge returns the edge from → to.
func (g *Graph) Edge(from, to NodeID) (Edge, bool) {
	i, ok := g.edgeAt[edgeKey{from, to}]
	if !ok {
		return Edge{}, false
	}
	return g.edges[i], true
}

// Out returns the outgoing edges of a node in insertion order.
func (g *Graph) Out(id NodeID) []Edge {
	if g.Node(id) == nil {
		return nil
	}
	out := make([]Edge, len(g.out[id]))
	for i, ei := range g.out[id] {
		out[i] = g.edges[ei]
	}
	return out
}

// In returns the incoming edges of a node in insertion order.
func (g *Graph) In(id NodeID) []Edge {
	if g.Node(id) == nil {
		return nil
	}
	in := make([]Edge, len(g.in[id]))
	for i, ei := range g.in[id] {
		in[i] = g.edges[ei]
	}
	return in
}

// OutDegree returns the number of ingredients of a node.
func (g *Graph) OutDegree(id NodeID) int {
	if g.Node(id) == nil {
		return 0
	}
	return len(g.out[id])
}

// InDegree returns the number of products consuming a node.
func (g *Graph) InDegree(id NodeID) int {
	if g.Node(id) == nil {
		return 0
	}
	return len(g.in[id])
}

// Nodes returns all nodes ordered by ID. The pointers refer to the graph's
// nodes.
func (g *Graph) Nodes() []*Node { return slices.Clone(g.nodes) }

// Edges returns a copy of all edges in insertion order.
func (g *Graph) Edges() []Edge { return slices.Clone(g.edges) }

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// TotalQuantity returns the sum of all edge quantities.
func (g *Graph) TotalQuantity() int {
	total := 0
	for _, e := range g.edges {
		total += e.Quantity
	}
	return total
}

// Products returns the IDs of all nodes with the product role, ordered by
// name.
func (g *Graph) Products() []NodeID {
	var ids []NodeID
	for _, n := range g.nodes {
		if n.IsProduct() {
			ids = append(ids, n.ID)
		}
	}
	slices.SortFunc(ids, func(a, b NodeID) int {
		return strings.Compare(g.nodes[a].Name, g.nodes[b].Name)
	})
	return ids
}

// IngredientNames returns the names of a node's ingredients in insertion
// order.
func (g *Graph) IngredientNames(id NodeID) []string {
	if g.Node(id) == nil {
		return nil
	}
	names := make([]string, len(g.out[id]))
	for i, ei := range g.out[id] {
		names[i] = g.nodes[g.edges[ei].To].Name
	}
	return names
}

// Labels returns the community label of every node keyed by name.
func (g *Graph) Labels() map[string]int {
	labels := make(map[string]int, len(g.nodes))
	for _, n := range g.nodes {
		labels[n.Name] = n.Community
	}
	return labels
}

// SetCommunity sets the label of one node. Unknown IDs are ignored.
func (g *Graph) SetCommunity(id NodeID, label int) {
	if n := g.Node(id); n != nil {
		n.Community = label
	}
}

// ResetCommunities marks every node [Unassigned].
func (g *Graph) ResetCommunities() {
	for _, n := range g.nodes {
		n.Community = Unassigned
	}
}

// CommunityCount returns the number of distinct assigned labels.
func (g *Graph) CommunityCount() int {
	seen := make(map[int]struct{})
	for _, n := range g.nodes {
		if n.Community != Unassigned {
			seen[n.Community] = struct{}{}
		}
	}
	return len(seen)
}

// Clone returns a deep copy of the graph, labels and metadata included.
func (g *Graph) Clone() *Graph {
	c := &Graph{
		nodes:  make([]*Node, len(g.nodes)),
		byName: maps.Clone(g.byName),
		edges:  slices.Clone(g.edges),
		edgeAt: maps.Clone(g.edgeAt),
		out:    make([][]int, len(g.out)),
		in:     make([][]int, len(g.in)),
		meta:   maps.Clone(g.meta),
	}
	for i, n := range g.nodes {
		cp := *n
		c.nodes[i] = &cp
	}
	for i := range g.out {
		c.out[i] = slices.Clone(g.out[i])
		c.in[i] = slices.Clone(g.in[i])
	}
	return c
}
