package nbc

import (
	"math/bits"
	"sort"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// refEntry is one still-unresolved reference subtree for a query subtree,
// with the Delta bounding its possible contribution and its recursion
// priority.
type refEntry struct {
	node  int
	delta Delta
	order float64
}

// engine drives the recursive dual-tree traversal. Each query node owns a
// Postponed and a SummaryResult; each query point owns a PointResult. A
// traversal branch is the only writer of the state under its query subtree,
// so independent subtrees run on separate goroutines with no locking; the
// reference tree is read-only throughout.
type engine struct {
	params *Params
	policy Policy
	qt     StatTree
	rt     StatTree
	log    *zap.Logger

	postponed []Postponed
	summary   []SummaryResult
	results   []PointResult

	// Goroutines are spawned for the first parallelDepth levels of the
	// query-tree recursion; below that the recursion is sequential.
	parallelDepth int

	pairsConsidered atomic.Int64
	exclusions      atomic.Int64
	inclusions      atomic.Int64
	leafVisits      atomic.Int64
	terminations    atomic.Int64
}

func newEngine(params *Params, policy Policy, qt, rt StatTree, workers int, log *zap.Logger) *engine {
	numNodes := qt.NodeCount()
	dim := qt.NumFeatures()

	postponed := make([]Postponed, numNodes)
	summary := make([]SummaryResult, numNodes)
	for i := range postponed {
		postponed[i] = NewPostponed(dim)
		summary[i] = NewSummaryResult()
	}

	results := make([]PointResult, qt.NumPoints())
	for i := range results {
		results[i] = NewPointResult()
	}

	parallelDepth := 0
	if workers > 1 {
		parallelDepth = bits.Len(uint(workers - 1))
	}

	return &engine{
		params:        params,
		policy:        policy,
		qt:            qt,
		rt:            rt,
		log:           log,
		postponed:     postponed,
		summary:       summary,
		results:       results,
		parallelDepth: parallelDepth,
	}
}

func (e *engine) qview(id int) NodeView {
	return NodeView{Bound: e.qt.NodeBound(id), Stat: e.qt.NodeStat(id)}
}

func (e *engine) rview(id int) NodeView {
	return NodeView{Bound: e.rt.NodeBound(id), Stat: e.rt.NodeStat(id)}
}

// run executes the traversal and the final postprocess sweep, returning the
// whole-run counters. The sweep is single-threaded: workers never touch
// GlobalResult.
func (e *engine) run() (GlobalResult, error) {
	var global GlobalResult
	if e.qt.NumPoints() == 0 {
		return global, nil
	}

	qv := e.qview(0)
	rv := e.rview(0)
	post := &e.postponed[0]

	delta, outcome := e.policy.ConsiderPairIntrinsic(qv, rv, post)
	e.pairsConsidered.Add(1)

	var rset []refEntry
	switch outcome {
	case PairExclude:
		e.exclusions.Add(1)
	case PairInclude:
		e.inclusions.Add(1)
	case PairApproximate:
		rset = []refEntry{{node: 0, delta: delta, order: e.policy.Heuristic(qv, rv)}}
	}

	if err := e.dual(0, rset, 0); err != nil {
		return global, err
	}
	if err := e.finalizeNode(0, &global); err != nil {
		return global, err
	}

	e.log.Debug("dual-tree traversal complete",
		zap.Int64("pairs_considered", e.pairsConsidered.Load()),
		zap.Int64("exclusions", e.exclusions.Load()),
		zap.Int64("inclusions", e.inclusions.Load()),
		zap.Int64("leaf_visits", e.leafVisits.Load()),
		zap.Int64("query_terminations", e.terminations.Load()),
		zap.Int("count_pos", global.CountPos),
		zap.Int("count_unknown", global.CountUnknown))

	return global, nil
}

// dual processes the contribution of the reference subtrees in rset to the
// query subtree rooted at qi. rset holds every reference subtree still
// unresolved for qi; everything else has already been excluded, folded into
// a Postponed, or evaluated exactly.
func (e *engine) dual(qi int, rset []refEntry, depth int) error {
	qv := e.qview(qi)
	post := &e.postponed[qi]

	// Nothing left to resolve below this subtree.
	if len(rset) == 0 && post.IsEmpty() {
		return nil
	}

	// Bound the subtree's eventual results: resolved work so far, plus the
	// pending postponed contribution, plus the deltas of everything still
	// unresolved. This is what the termination test sees.
	mu := e.summary[qi]
	if !post.IsEmpty() {
		if _, err := mu.ApplyPostponed(e.params, post, qv.Bound); err != nil {
			return err
		}
	}
	for _, re := range rset {
		mu.ApplyDelta(re.delta)
	}

	cont, err := e.policy.ConsiderQueryTermination(qv, mu, post)
	if err != nil {
		return err
	}
	if !cont {
		// Label resolved for the whole subtree; the postponed label is
		// pushed to the points in the final sweep. Remaining reference
		// subtrees are dropped, leaving densities partial.
		e.terminations.Add(1)
		return nil
	}

	if e.qt.Node(qi).IsLeaf {
		return e.baseCase(qi, rset)
	}

	left, right := e.qt.ChildNodes(qi)

	if !post.IsEmpty() {
		if err := e.postponed[left].Merge(post); err != nil {
			return err
		}
		if err := e.postponed[right].Merge(post); err != nil {
			return err
		}
		post.Reset()
	}

	lset := e.childEntries(left, rset)
	rsetRight := e.childEntries(right, rset)

	if depth < e.parallelDepth {
		var g errgroup.Group
		g.Go(func() error { return e.dual(left, lset, depth+1) })
		g.Go(func() error { return e.dual(right, rsetRight, depth+1) })
		if err := g.Wait(); err != nil {
			return err
		}
	} else {
		if err := e.dual(left, lset, depth+1); err != nil {
			return err
		}
		if err := e.dual(right, rsetRight, depth+1); err != nil {
			return err
		}
	}

	s := &e.summary[qi]
	s.StartReaccumulate()
	s.AccumulateSummary(e.summary[left])
	s.AccumulateSummary(e.summary[right])
	s.FinishReaccumulate()
	return nil
}

// childEntries re-filters the parent's reference set against one query
// child, splitting internal reference nodes one level. Exclusions drop out,
// inclusions fold into the child's Postponed, and the rest carry fresh
// deltas, ordered by the recursion heuristic.
func (e *engine) childEntries(qc int, rset []refEntry) []refEntry {
	qv := e.qview(qc)
	post := &e.postponed[qc]

	var out []refEntry
	consider := func(ri int) {
		rv := e.rview(ri)
		delta, outcome := e.policy.ConsiderPairIntrinsic(qv, rv, post)
		e.pairsConsidered.Add(1)
		switch outcome {
		case PairExclude:
			e.exclusions.Add(1)
		case PairInclude:
			e.inclusions.Add(1)
		case PairApproximate:
			if e.policy.ConsiderPairExtrinsic(qv, rv, delta, e.summary[qc], GlobalResult{}) {
				out = append(out, refEntry{node: ri, delta: delta, order: e.policy.Heuristic(qv, rv)})
			}
		}
	}

	for _, re := range rset {
		if e.rt.Node(re.node).IsLeaf {
			consider(re.node)
		} else {
			l, r := e.rt.ChildNodes(re.node)
			consider(l)
			consider(r)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].order < out[j].order })
	return out
}

// baseCase handles a query leaf: apply the pending postponed contribution to
// each point exactly, then evaluate the remaining reference subtrees per
// point, nearest-first, re-testing dominance as exact density accumulates.
func (e *engine) baseCase(qi int, rset []refEntry) error {
	e.leafVisits.Add(1)
	post := &e.postponed[qi]
	visitor := NewPairVisitor(e.params)

	// suffix[i] bounds the contribution of entries i..end; entry i is
	// evaluated with suffix[i+1] as its unapplied remainder.
	suffix := make([]SummaryResult, len(rset)+1)
	suffix[len(rset)] = SummaryResult{Label: LabelEither}
	for i := len(rset) - 1; i >= 0; i-- {
		s := suffix[i+1]
		s.ApplyDelta(rset[i].delta)
		suffix[i] = s
	}

	for _, idx := range e.qt.LeafPoints(qi) {
		result := &e.results[idx]
		vec := e.qt.PointVec(idx)

		if !post.IsEmpty() {
			if err := result.ApplyPostponed(e.params, post, vec); err != nil {
				return err
			}
		}

		piPos := e.qt.PointPrior(idx)
		piNeg := 1 - piPos

		for i, re := range rset {
			if result.Label != LabelEither {
				break
			}
			if err := e.visitPoint(vec, piPos, piNeg, re.node, suffix[i+1], visitor, result); err != nil {
				return err
			}
		}
	}
	post.Reset()

	s := &e.summary[qi]
	s.StartReaccumulate()
	for _, idx := range e.qt.LeafPoints(qi) {
		s.AccumulateResult(&e.results[idx])
	}
	s.FinishReaccumulate()
	return nil
}

// visitPoint evaluates one reference subtree for one query point,
// descending nearer children first. unapplied bounds everything not yet
// evaluated for this point outside the current subtree; while one child is
// being visited, the sibling's possible contribution is added to it.
func (e *engine) visitPoint(vec []float64, piPos, piNeg float64, ri int, unapplied SummaryResult, visitor *PairVisitor, result *PointResult) error {
	rv := e.rview(ri)

	if !visitor.StartVisitingQueryPoint(vec, rv, result) {
		return nil
	}

	if e.rt.Node(ri).IsLeaf {
		for _, rIdx := range e.rt.LeafPoints(ri) {
			visitor.VisitPair(vec, e.rt.PointVec(rIdx), e.rt.PointPos(rIdx))
		}
		return visitor.FinishVisitingQueryPoint(vec, piPos, piNeg, unapplied, result)
	}

	left, right := e.rt.ChildNodes(ri)
	first, second := left, right
	if e.rt.NodeBound(right).MinDistSqPoint(vec) < e.rt.NodeBound(left).MinDistSqPoint(vec) {
		first, second = right, left
	}

	firstUnapplied := unapplied
	firstUnapplied.ApplyDelta(e.pointDelta(second, vec))
	if err := e.visitPoint(vec, piPos, piNeg, first, firstUnapplied, visitor, result); err != nil {
		return err
	}
	if result.Label != LabelEither {
		return nil
	}
	return e.visitPoint(vec, piPos, piNeg, second, unapplied, visitor, result)
}

// pointDelta bounds what a reference node could still contribute to a single
// query point.
func (e *engine) pointDelta(ri int, vec []float64) Delta {
	stat := e.rt.NodeStat(ri)
	var hiPos, hiNeg float64
	if stat.CountPos > 0 {
		hiPos = float64(stat.CountPos) *
			e.params.KernelPos.EvalUnnormOnSq(stat.BoundPos.MinDistSqPoint(vec))
	}
	if stat.CountNeg > 0 {
		hiNeg = float64(stat.CountNeg) *
			e.params.KernelNeg.EvalUnnormOnSq(stat.BoundNeg.MinDistSqPoint(vec))
	}
	return Delta{
		DensityPos: Interval{Lo: 0, Hi: hiPos},
		DensityNeg: Interval{Lo: 0, Hi: hiNeg},
	}
}

// finalizeNode pushes remaining postponed contributions down to the leaves,
// runs the final per-point dominance test, and tallies the run counters.
// Runs on one goroutine after all traversal workers have completed.
func (e *engine) finalizeNode(qi int, global *GlobalResult) error {
	post := &e.postponed[qi]

	if e.qt.Node(qi).IsLeaf {
		for _, idx := range e.qt.LeafPoints(qi) {
			result := &e.results[idx]
			vec := e.qt.PointVec(idx)

			if !post.IsEmpty() {
				if err := result.ApplyPostponed(e.params, post, vec); err != nil {
					return err
				}
			}

			piPos := e.qt.PointPrior(idx)
			if err := result.Postprocess(e.params, piPos, 1-piPos); err != nil {
				return err
			}
			global.ApplyResult(result)
		}
		post.Reset()

		s := &e.summary[qi]
		s.StartReaccumulate()
		for _, idx := range e.qt.LeafPoints(qi) {
			s.AccumulateResult(&e.results[idx])
		}
		s.FinishReaccumulate()
		return nil
	}

	left, right := e.qt.ChildNodes(qi)
	if !post.IsEmpty() {
		if err := e.postponed[left].Merge(post); err != nil {
			return err
		}
		if err := e.postponed[right].Merge(post); err != nil {
			return err
		}
		post.Reset()
	}

	if err := e.finalizeNode(left, global); err != nil {
		return err
	}
	if err := e.finalizeNode(right, global); err != nil {
		return err
	}

	s := &e.summary[qi]
	s.StartReaccumulate()
	s.AccumulateSummary(e.summary[left])
	s.AccumulateSummary(e.summary[right])
	s.FinishReaccumulate()
	return nil
}
