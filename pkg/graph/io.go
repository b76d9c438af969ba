package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// wireGraph is the node-link JSON representation of a [Graph].
type wireGraph struct {
	Nodes []wireNode `json:"nodes"`
	Edges []wireEdge `json:"edges"`
	Meta  Metadata   `json:"meta,omitempty"`
}

type wireNode struct {
	ID        string   `json:"id"`
	Roles     []string `json:"roles"`
	Community int      `json:"community"`
}

type wireEdge struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Quantity int    `json:"quantity"`
}

// Marshal converts a graph to JSON bytes. Nodes and edges keep insertion
// order, so output is deterministic.
func Marshal(g *Graph) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(g, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile writes a graph to a JSON file.
func WriteFile(g *Graph, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := Write(g, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Write writes a graph as indented JSON to w.
func Write(g *Graph, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(toWire(g)); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ReadFile reads a JSON file written by [WriteFile].
func ReadFile(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Read(f)
}

// Read decodes a JSON graph from r.
func Read(r io.Reader) (*Graph, error) {
	var data wireGraph
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return fromWire(data)
}

func toWire(g *Graph) wireGraph {
	out := wireGraph{
		Nodes: make([]wireNode, 0, len(g.nodes)),
		Edges: make([]wireEdge, 0, len(g.edges)),
	}
	if len(g.meta) > 0 {
		out.Meta = g.meta
	}
	for _, n := range g.nodes {
		roles := n.Role.Strings()
		if roles == nil {
			roles = []string{}
		}
		out.Nodes = append(out.Nodes, wireNode{ID: n.Name, Roles: roles, Community: n.Community})
	}
	for _, e := range g.edges {
		out.Edges = append(out.Edges, wireEdge{
			From:     g.nodes[e.From].Name,
			To:       g.nodes[e.To].Name,
			Quantity: e.Quantity,
		})
	}
	return out
}

func fromWire(data wireGraph) (*Graph, error) {
	g := New()
	for k, v := range data.Meta {
		g.meta[k] = v
	}
	for _, n := range data.Nodes {
		var role Role
		for _, s := range n.Roles {
			r, ok := ParseRole(s)
			if !ok {
				return nil, fmt.Errorf("node %q: unknown role %q", n.ID, s)
			}
			role |= r
		}
		id, err := g.Upsert(n.ID, role)
		if err != nil {
			return nil, fmt.Errorf("node: %w", err)
		}
		g.nodes[id].Community = n.Community
	}
	for _, e := range data.Edges {
		from, ok := g.Lookup(e.From)
		if !ok {
			return nil, fmt.Errorf("edge %s->%s: %w: %s", e.From, e.To, ErrUnknownNode, e.From)
		}
		to, ok := g.Lookup(e.To)
		if !ok {
			return nil, fmt.Errorf("edge %s->%s: %w: %s", e.From, e.To, ErrUnknownNode, e.To)
		}
		if err := g.SetEdge(from, to, e.Quantity); err != nil {
			return nil, fmt.Errorf("edge %s->%s: %w", e.From, e.To, err)
		}
	}
	return g, nil
}
