// Package community partitions a recipe graph into communities.
//
// Two independent detectors are provided and the caller chooses between
// them:
//
//   - [DetectModularity] runs Clauset–Newman–Moore greedy modularity
//     maximization over the undirected, weighted projection of the graph.
//   - [ClusterByCommonIngredients] groups products into layers by how many
//     ingredients they share with another product.
//
// Detectors never modify the graph they read. Their results are written with
// an explicit Apply on a graph the caller owns:
//
//	res, err := community.DetectModularity(g)
//	if err != nil {
//	    return err // EMPTY_GRAPH when g has no edges
//	}
//	res.Apply(g)
//
// [Modularity] scores any labeling, which is useful to compare the output of
// the two detectors.
package community
