package nbc

import "github.com/pkg/errors"

// Params holds everything the pruning policy needs at traversal time: the
// per-class kernels, the threshold constants with the numeric tolerance
// folded in, and the reference class counts.
//
// The threshold constants absorb both the decision threshold and the kernel
// normalization, so the dominance test reduces to
//
//	ConstPos.Lo · densityPos.Lo · piPos.Lo > ConstNeg.Hi · densityNeg.Hi · piNeg.Hi
//
// (and symmetrically for the negative class).
type Params struct {
	KernelPos EpanKernel
	KernelNeg EpanKernel
	ConstPos  Interval
	ConstNeg  Interval
	Threshold float64
	Dim       int
	CountAll  int
	CountPos  int
	CountNeg  int
}

// NewParams returns Params for the given kernels and threshold. The
// threshold constants are not usable until ComputeConsts has run with the
// reference class counts.
func NewParams(kernelPos, kernelNeg EpanKernel, threshold float64, dim int) *Params {
	return &Params{
		KernelPos: kernelPos,
		KernelNeg: kernelNeg,
		Threshold: threshold,
		Dim:       dim,
	}
}

// ComputeConsts finalizes the threshold constants once the reference class
// counts are known (after the reference tree statistic is built). The
// tolerance ε = min(threshold, 1-threshold)·1e-3 widens each constant into an
// interval so that borderline queries stay unknown rather than flipping on
// rounding.
func (p *Params) ComputeConsts(countPos, countNeg int) error {
	if countPos == 0 || countNeg == 0 {
		return errors.Errorf("nbc: reference set must contain both classes, got %d positive and %d negative", countPos, countNeg)
	}

	t := p.Threshold
	epsilon := min(t, 1-t) * 1e-3

	normPos := p.KernelPos.NormConstant(p.Dim) * float64(countPos)
	p.ConstPos = Interval{Lo: (1 - t - epsilon) / normPos, Hi: (1 - t + epsilon) / normPos}
	p.CountPos = countPos

	normNeg := p.KernelNeg.NormConstant(p.Dim) * float64(countNeg)
	p.ConstNeg = Interval{Lo: (t - epsilon) / normNeg, Hi: (t + epsilon) / normNeg}
	p.CountNeg = countNeg

	p.CountAll = countPos + countNeg
	return nil
}

// maxBandwidthSq returns the larger of the two squared bandwidths: outside
// this distance no reference point of either class contributes.
func (p *Params) maxBandwidthSq() float64 {
	return max(p.KernelPos.BandwidthSq(), p.KernelNeg.BandwidthSq())
}

// minBandwidthSq returns the smaller of the two squared bandwidths: inside
// this distance every reference point of both classes contributes with a
// positive kernel value, so moments may be folded in exactly.
func (p *Params) minBandwidthSq() float64 {
	return min(p.KernelPos.BandwidthSq(), p.KernelNeg.BandwidthSq())
}

// PairOutcome is the three-way decision for a (query node, reference node)
// pair.
type PairOutcome int

const (
	// PairExclude: the pair contributes nothing; do not recurse.
	PairExclude PairOutcome = iota
	// PairInclude: the contribution was folded into the query node's
	// Postponed exactly; do not recurse.
	PairInclude
	// PairApproximate: undecided; recurse into children using the Delta.
	PairApproximate
)

// NodeView is the read-only view of a tree node that the pruning policy
// sees: the node's own bounding box plus its statistic.
type NodeView struct {
	Bound Bound
	Stat  *NodeStat
}

// Policy is the capability set driving the dual-tree traversal engine:
// intrinsic and extrinsic pair tests, query-subtree termination, and the
// recursion-priority heuristic. The engine is generic over this interface so
// other dual-tree problems can reuse it with a different policy.
type Policy interface {
	// ConsiderPairIntrinsic decides a pair from node geometry alone. On
	// PairInclude the reference contribution has been folded into
	// postponed; on PairApproximate the Delta bounds what the pair could
	// still contribute.
	ConsiderPairIntrinsic(q, r NodeView, postponed *Postponed) (Delta, PairOutcome)

	// ConsiderPairExtrinsic is a secondary gate evaluated with
	// already-accumulated summary context. Returning false prunes the pair.
	ConsiderPairExtrinsic(q, r NodeView, delta Delta, summary SummaryResult, global GlobalResult) bool

	// ConsiderQueryTermination reports whether recursion into the query
	// subtree should continue, given bounds on its eventual results. When
	// it returns false with a resolved outcome, the label has been
	// recorded in postponed.
	ConsiderQueryTermination(q NodeView, summary SummaryResult, postponed *Postponed) (bool, error)

	// Heuristic orders sibling pair recursion; smaller values are visited
	// first.
	Heuristic(q, r NodeView) float64
}

// classifierPolicy is the Policy for thresholded kernel-density
// classification.
type classifierPolicy struct {
	params *Params
}

func newClassifierPolicy(params *Params) *classifierPolicy {
	return &classifierPolicy{params: params}
}

func (c *classifierPolicy) ConsiderPairIntrinsic(q, r NodeView, postponed *Postponed) (Delta, PairOutcome) {
	p := c.params

	// Upper bound on the kernel value per class, at the closest possible
	// approach between the class bound and the query bound.
	var dDensityPosHi float64
	if r.Stat.CountPos > 0 {
		distSqPosLo := r.Stat.BoundPos.MinDistSq(q.Bound)
		dDensityPosHi = p.KernelPos.EvalUnnormOnSq(distSqPosLo)
	}

	var dDensityNegHi float64
	if r.Stat.CountNeg > 0 {
		distSqNegLo := r.Stat.BoundNeg.MinDistSq(q.Bound)
		dDensityNegHi = p.KernelNeg.EvalUnnormOnSq(distSqNegLo)
	}

	if dDensityPosHi == 0 && dDensityNegHi == 0 {
		return Delta{}, PairExclude
	}

	// Combined inclusion: when every reference point is within the
	// saturating range of both kernels for every query point in the pair,
	// fold the class moments in exactly and stop recursing this pair.
	if r.Bound.MaxDistSq(q.Bound) < p.minBandwidthSq() {
		if r.Stat.CountPos > 0 {
			postponed.MomentPos.Add(r.Stat.MomentPos)
		}
		if r.Stat.CountNeg > 0 {
			postponed.MomentNeg.Add(r.Stat.MomentNeg)
		}
		return Delta{}, PairInclude
	}

	return Delta{
		DensityPos: Interval{Lo: 0, Hi: float64(r.Stat.CountPos) * dDensityPosHi},
		DensityNeg: Interval{Lo: 0, Hi: float64(r.Stat.CountNeg) * dDensityNegHi},
	}, PairApproximate
}

// ConsiderPairExtrinsic always permits continuation. It is the extension
// point for global pruning policies (budget limits, result-aware cutoffs).
func (c *classifierPolicy) ConsiderPairExtrinsic(q, r NodeView, delta Delta, summary SummaryResult, global GlobalResult) bool {
	return true
}

func (c *classifierPolicy) ConsiderQueryTermination(q NodeView, summary SummaryResult, postponed *Postponed) (bool, error) {
	p := c.params

	if summary.Label.Resolved() {
		label, err := postponed.Label.Narrow(summary.Label)
		if err != nil {
			return false, err
		}
		postponed.Label = label
		return false, nil
	}

	if p.ConstPos.Lo*summary.DensityPos.Lo*q.Stat.PiPos.Lo >
		p.ConstNeg.Hi*summary.DensityNeg.Hi*q.Stat.PiNeg.Hi {
		label, err := postponed.Label.Narrow(LabelPos)
		if err != nil {
			return false, err
		}
		postponed.Label = label
		return false, nil
	}

	if p.ConstNeg.Lo*summary.DensityNeg.Lo*q.Stat.PiNeg.Lo >
		p.ConstPos.Hi*summary.DensityPos.Hi*q.Stat.PiPos.Hi {
		label, err := postponed.Label.Narrow(LabelNeg)
		if err != nil {
			return false, err
		}
		postponed.Label = label
		return false, nil
	}

	return true, nil
}

// Heuristic returns the squared distance from the reference bound to the
// query bound's midpoint, so geometrically closer pairs are recursed first
// and exclusion/inclusion hits happen early.
func (c *classifierPolicy) Heuristic(q, r NodeView) float64 {
	return r.Bound.MinToMidSq(q.Bound)
}
