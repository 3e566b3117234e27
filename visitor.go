package nbc

// PairVisitor is the exact leaf-level evaluator, invoked only for pairs the
// pruning policy could not resolve. It accumulates kernel values into local
// scalars over one reference leaf and folds them into the query point's
// result at the end, so the per-pair inner loop touches no shared state.
type PairVisitor struct {
	params     *Params
	densityPos float64
	densityNeg float64
}

// NewPairVisitor returns a visitor bound to the run's parameters.
func NewPairVisitor(params *Params) *PairVisitor {
	return &PairVisitor{params: params}
}

// StartVisitingQueryPoint decides whether the reference node needs exact
// per-point evaluation for query point q. It applies the point-level
// analogues of the node-pair tests: skip if the point's label is already
// resolved, exclude if the node is entirely out of kernel range, and fold
// the node's moments in exactly if it is entirely within saturating range.
// Returns true only when per-point evaluation must proceed.
func (v *PairVisitor) StartVisitingQueryPoint(q []float64, r NodeView, result *PointResult) bool {
	if result.Label != LabelEither {
		return false
	}

	p := v.params

	if r.Bound.MinDistSqPoint(q) > p.maxBandwidthSq() {
		return false
	}

	if r.Bound.MaxDistSqPoint(q) < p.minBandwidthSq() {
		if r.Stat.CountPos > 0 {
			result.DensityPos += r.Stat.MomentPos.ComputeKernelSum(p.KernelPos, q)
		}
		if r.Stat.CountNeg > 0 {
			result.DensityNeg += r.Stat.MomentNeg.ComputeKernelSum(p.KernelNeg, q)
		}
		return false
	}

	v.densityPos = 0
	v.densityNeg = 0
	return true
}

// VisitPair evaluates one exact query-reference point pair.
func (v *PairVisitor) VisitPair(q, rVec []float64, rPos bool) {
	d := distSq(q, rVec)
	if rPos {
		v.densityPos += v.params.KernelPos.EvalUnnormOnSq(d)
	} else {
		v.densityNeg += v.params.KernelNeg.EvalUnnormOnSq(d)
	}
}

// FinishVisitingQueryPoint folds the accumulated leaf contribution into the
// query point's result and re-tests dominance using the point's exact
// densities combined with bounds on contributions still unapplied. A
// resolved label lets the caller skip the remaining reference subtrees for
// this point.
func (v *PairVisitor) FinishVisitingQueryPoint(q []float64, piPos, piNeg float64, unapplied SummaryResult, result *PointResult) error {
	p := v.params

	result.DensityPos += v.densityPos
	result.DensityNeg += v.densityNeg

	totalDensityPos := unapplied.DensityPos.AddValue(result.DensityPos)
	totalDensityNeg := unapplied.DensityNeg.AddValue(result.DensityNeg)

	if p.ConstPos.Lo*totalDensityPos.Lo*piPos > p.ConstNeg.Hi*totalDensityNeg.Hi*piNeg {
		label, err := result.Label.Narrow(LabelPos)
		if err != nil {
			return err
		}
		result.Label = label
	} else if p.ConstNeg.Lo*totalDensityNeg.Lo*piNeg > p.ConstPos.Hi*totalDensityPos.Hi*piPos {
		label, err := result.Label.Narrow(LabelNeg)
		if err != nil {
			return err
		}
		result.Label = label
	}

	return nil
}
