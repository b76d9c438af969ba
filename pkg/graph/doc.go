// Package graph provides the weighted product/ingredient dependency graph
// and the builder that constructs it from recipe records.
//
// # Overview
//
// Every product and every ingredient becomes a [Node], identified by its
// name. Each recipe contributes directed edges from the product to each of
// its ingredients, weighted by the quantity consumed:
//
//	Circuit Board --2--> Iron Ingot
//	Circuit Board --1--> Copper Ingot
//
// Names are compared by exact string equality. [Graph.Upsert] returns the
// existing [NodeID] for a known name and only ever adds role flags, so a
// name that first appears as an ingredient and later as a product ends up
// with both roles.
//
// # Building
//
// [Build] consumes records in order. Malformed records are skipped and
// reported in the returned [Report]; products without ingredients become
// isolated nodes and are listed in [Report.Isolated]. Setting the same
// (product, ingredient) edge twice overwrites its quantity:
//
//	g, report := graph.Build(records)
//	for _, err := range report.Skipped {
//	    logger.Warn("skipped record", "err", err)
//	}
//
// # Communities
//
// Nodes carry a mutable Community label, initially [Unassigned]. The
// community detectors never write labels themselves; their results are
// applied to a graph the caller owns. Use [Graph.Clone] to keep separate
// labelings of the same graph.
//
// # Serialization
//
// Graphs use a node-link JSON format:
//
//	{
//	  "nodes": [{"id": "A", "roles": ["product"], "community": 0}],
//	  "edges": [{"from": "A", "to": "X", "quantity": 1}]
//	}
//
// # Concurrency
//
// A Graph is not safe for concurrent use. Callers must synchronize access if
// multiple goroutines read or modify the same graph.
package graph
