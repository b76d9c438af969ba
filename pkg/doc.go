// Package pkg provides the core libraries for recipegraph.
//
// # Overview
//
// Recipegraph reads production recipes (a product and the quantity of each
// ingredient it consumes), builds a weighted product → ingredient graph and
// partitions it into communities. The pkg directory is organized by stage:
//
//  1. [recipe] - Recipe records, the raw export parser, record files
//  2. [graph] - The dependency graph, its builder and JSON wire format
//  3. [overlap] - Ingredients shared by every pair of products
//  4. [community] - Greedy modularity (CNM) and shared-ingredient layering
//  5. [pipeline] - Orchestration (load → build → detect → render) with caching
//
// Supporting packages: [cache] (file, Redis and null backends), [store]
// (MongoDB record store), [render/nodelink] (DOT and SVG output),
// [observability] (hooks and Prometheus), [config], [errors] and
// [buildinfo].
//
// # Architecture
//
//	record files / MongoDB
//	         ↓
//	    [recipe] records
//	         ↓
//	    [graph] Build
//	         ↓
//	    [community] DetectModularity | ClusterByCommonIngredients
//	         ↓
//	    labeled graph → JSON / DOT / SVG / HTTP
//
// # Quick Start
//
//	records, _, err := recipe.ReadFile("recipes.json")
//	g, report := graph.Build(records)
//	res, err := community.DetectModularity(g)
//	res.Apply(g)
//
// Or through the pipeline, which adds caching and rendering:
//
//	runner := pipeline.NewRunner(nil, nil, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Inputs:  []string{"recipes.json"},
//	    Formats: []string{pipeline.FormatSVG},
//	})
package pkg
