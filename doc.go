// Package nbc implements nonparametric Bayes classification for two classes
// using thresholded kernel density estimation with an Epanechnikov kernel.
//
// Given a labeled reference population and a set of query points each
// carrying a prior probability, the classifier decides per query point
// whether its positive-class posterior density exceeds its negative-class
// posterior density with enough certainty, labeling it positive, negative,
// or unknown. A dual-tree traversal over two KD-trees prunes the pairwise
// kernel evaluations: node pairs that provably contribute nothing are
// excluded, node pairs entirely within kernel range are folded in exactly
// through moment statistics, and only the remainder recurses down to exact
// point-level evaluation.
//
// Basic usage:
//
//	cfg := nbc.DefaultConfig()
//	cfg.BandwidthPos = 1.0
//	cfg.BandwidthNeg = 1.0
//	result, err := nbc.Classify(refData, refPos, queryData, priors, cfg)
//	// result.Labels[i] is LabelPos, LabelNeg, or LabelEither (unknown)
//	// result.DensityPos[i], result.DensityNeg[i] are the density estimates
//
// # Algorithm selection
//
// By default (Algorithm: "auto"), Classify uses the pruned dual-tree
// traversal, which typically touches a small fraction of the query-reference
// pairs. Set Config.Algorithm to force a strategy:
//
//	cfg.Algorithm = nbc.AlgorithmBrute     // every pair, O(n·m)
//	cfg.Algorithm = nbc.AlgorithmDualTree  // pruned traversal
package nbc
