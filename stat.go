package nbc

import "github.com/pkg/errors"

// Label is a bit-flag set of still-possible classification outcomes for a
// query point or query subtree.
//
// Labels combine in two directions with different operators: merging sibling
// subtrees takes the union of possible outcomes (Widen, bitwise OR), while
// applying new evidence intersects (Narrow, bitwise AND). A Narrow that
// produces LabelNeither means two mutually exclusive conclusions were reached
// for the same points; that is a defect, never a valid outcome.
type Label uint8

const (
	LabelNeither Label = 0
	LabelPos     Label = 1
	LabelNeg     Label = 2
	LabelEither  Label = LabelPos | LabelNeg
)

// Narrow intersects l with new evidence. Returns ErrLabelContradiction if
// the intersection is empty.
func (l Label) Narrow(evidence Label) (Label, error) {
	out := l & evidence
	if out == LabelNeither {
		return out, errors.Wrapf(ErrLabelContradiction, "narrow %v with %v", l, evidence)
	}
	return out, nil
}

// Widen unions l with a sibling's possible outcomes.
func (l Label) Widen(sibling Label) Label {
	return l | sibling
}

// Resolved reports whether the label has been narrowed to a single class.
func (l Label) Resolved() bool {
	return l == LabelPos || l == LabelNeg
}

func (l Label) String() string {
	switch l {
	case LabelNeither:
		return "neither"
	case LabelPos:
		return "positive"
	case LabelNeg:
		return "negative"
	default:
		return "either"
	}
}

// NodeStat is the per-node aggregate attached to every tree node: one moment
// and one bound per class, per-class counts, and (meaningful on query nodes)
// interval bounds on the priors of the points below. The statistic is
// commutative and associative, so it is computed bottom-up in any order and
// is immutable once the tree is built.
//
// Reference nodes use the moments, bounds, and counts; query nodes use the
// prior intervals. Both live in the same type so a single point set carrying
// both a class and a prior can serve as query and reference at once.
type NodeStat struct {
	MomentPos MomentInfo
	MomentNeg MomentInfo
	BoundPos  Bound
	BoundNeg  Bound
	CountPos  int
	CountNeg  int
	PiPos     Interval
	PiNeg     Interval
}

// NewNodeStat returns an empty statistic over dim dimensions.
func NewNodeStat(dim int) NodeStat {
	return NodeStat{
		MomentPos: NewMomentInfo(dim),
		MomentNeg: NewMomentInfo(dim),
		BoundPos:  NewBound(dim),
		BoundNeg:  NewBound(dim),
		PiPos:     EmptyInterval(),
		PiNeg:     EmptyInterval(),
	}
}

// AccumulatePoint folds a single point into the statistic.
func (s *NodeStat) AccumulatePoint(vec []float64, pos bool, prior float64) {
	if pos {
		s.MomentPos.AddPoint(vec)
		s.BoundPos.WidenPoint(vec)
		s.CountPos++
	} else {
		s.MomentNeg.AddPoint(vec)
		s.BoundNeg.WidenPoint(vec)
		s.CountNeg++
	}
	s.PiPos = s.PiPos.WidenValue(prior)
	s.PiNeg = s.PiNeg.WidenValue(1 - prior)
}

// AccumulateStat folds a child node's statistic into the statistic.
func (s *NodeStat) AccumulateStat(child *NodeStat) {
	s.MomentPos.Add(child.MomentPos)
	s.MomentNeg.Add(child.MomentNeg)
	s.BoundPos.Widen(child.BoundPos)
	s.BoundNeg.Widen(child.BoundNeg)
	s.CountPos += child.CountPos
	s.CountNeg += child.CountNeg
	s.PiPos = s.PiPos.Widen(child.PiPos)
	s.PiNeg = s.PiNeg.Widen(child.PiNeg)
}

// Postponed is a lazily-batched contribution attached to a query subtree:
// moments of reference sets already resolved for every point below, plus a
// narrowed label constraint. It is pushed down the query tree and folded into
// individual point results only when a leaf is reached.
type Postponed struct {
	MomentPos MomentInfo
	MomentNeg MomentInfo
	Label     Label
}

// NewPostponed returns an empty postponed contribution over dim dimensions.
func NewPostponed(dim int) Postponed {
	return Postponed{
		MomentPos: NewMomentInfo(dim),
		MomentNeg: NewMomentInfo(dim),
		Label:     LabelEither,
	}
}

// Reset clears the contribution after it has been applied.
func (p *Postponed) Reset() {
	p.MomentPos.Reset()
	p.MomentNeg.Reset()
	p.Label = LabelEither
}

// IsEmpty reports whether applying p would be a no-op.
func (p *Postponed) IsEmpty() bool {
	return p.Label == LabelEither && p.MomentPos.IsEmpty() && p.MomentNeg.IsEmpty()
}

// Merge folds another postponed contribution into p. Moments add; labels
// narrow (both constraints must hold).
func (p *Postponed) Merge(other *Postponed) error {
	label, err := p.Label.Narrow(other.Label)
	if err != nil {
		return err
	}
	p.Label = label
	p.MomentPos.Add(other.MomentPos)
	p.MomentNeg.Add(other.MomentNeg)
	return nil
}

// Delta is a speculative per-node-pair density-bound increment: how much
// density an unresolved reference subtree could still contribute to a query
// subtree. Deltas are transient; the caller that produced one consumes it
// immediately and never stores it.
type Delta struct {
	DensityPos Interval
	DensityNeg Interval
}

// PointResult is the exact per-query-point accumulator. Densities only grow
// (kernel contributions are non-negative); the label only narrows.
type PointResult struct {
	DensityPos float64
	DensityNeg float64
	Label      Label
}

// NewPointResult returns the initial state: no density, either class possible.
func NewPointResult() PointResult {
	return PointResult{Label: LabelEither}
}

// ApplyPostponed folds a postponed contribution into the point's result,
// evaluating the batched moments exactly at the point's own location.
func (r *PointResult) ApplyPostponed(params *Params, p *Postponed, vec []float64) error {
	label, err := r.Label.Narrow(p.Label)
	if err != nil {
		return err
	}
	r.Label = label
	if !p.MomentPos.IsEmpty() {
		r.DensityPos += p.MomentPos.ComputeKernelSum(params.KernelPos, vec)
	}
	if !p.MomentNeg.IsEmpty() {
		r.DensityNeg += p.MomentNeg.ComputeKernelSum(params.KernelNeg, vec)
	}
	return nil
}

// Postprocess runs the final dominance test on the point's exact densities
// once its subtree recursion has completed.
func (r *PointResult) Postprocess(params *Params, piPos, piNeg float64) error {
	if params.ConstPos.Lo*r.DensityPos*piPos > params.ConstNeg.Hi*r.DensityNeg*piNeg {
		label, err := r.Label.Narrow(LabelPos)
		if err != nil {
			return errors.Wrapf(err, "postprocess densities [%g, %g]", r.DensityPos, r.DensityNeg)
		}
		r.Label = label
	} else if params.ConstNeg.Lo*r.DensityNeg*piNeg > params.ConstPos.Hi*r.DensityPos*piPos {
		label, err := r.Label.Narrow(LabelNeg)
		if err != nil {
			return errors.Wrapf(err, "postprocess densities [%g, %g]", r.DensityPos, r.DensityNeg)
		}
		r.Label = label
	}
	return nil
}

// SummaryResult bounds the eventual results of every point in a query
// subtree: per-class density intervals plus the union of possible labels.
// It is refreshed bottom-up (StartReaccumulate / Accumulate /
// FinishReaccumulate) whenever descendant results change, and widened
// top-down by ApplyDelta while recursion over a pair is still in flight.
type SummaryResult struct {
	DensityPos Interval
	DensityNeg Interval
	Label      Label
}

// NewSummaryResult returns the horizontal initial state: zero density
// accumulated so far, either label possible.
func NewSummaryResult() SummaryResult {
	return SummaryResult{Label: LabelEither}
}

// StartReaccumulate resets to the identity of a bottom-up reduce: empty
// density sets and no possible labels.
func (s *SummaryResult) StartReaccumulate() {
	s.DensityPos = EmptyInterval()
	s.DensityNeg = EmptyInterval()
	s.Label = LabelNeither
}

// AccumulateResult widens the summary to cover one point's result.
func (s *SummaryResult) AccumulateResult(r *PointResult) {
	s.DensityPos = s.DensityPos.WidenValue(r.DensityPos)
	s.DensityNeg = s.DensityNeg.WidenValue(r.DensityNeg)
	s.Label = s.Label.Widen(r.Label)
}

// AccumulateSummary widens the summary to cover a child subtree's summary.
func (s *SummaryResult) AccumulateSummary(child SummaryResult) {
	s.DensityPos = s.DensityPos.Widen(child.DensityPos)
	s.DensityNeg = s.DensityNeg.Widen(child.DensityNeg)
	s.Label = s.Label.Widen(child.Label)
}

// FinishReaccumulate completes a bottom-up pass. No normalization is needed
// for density bounds; the hook exists for symmetry with StartReaccumulate.
func (s *SummaryResult) FinishReaccumulate() {}

// ApplyDelta widens the summary by a speculative pair increment.
func (s *SummaryResult) ApplyDelta(d Delta) {
	s.DensityPos = s.DensityPos.Add(d.DensityPos)
	s.DensityNeg = s.DensityNeg.Add(d.DensityNeg)
}

// ApplySummary joins another summary's contribution into s: density bounds
// add, labels narrow.
func (s *SummaryResult) ApplySummary(other SummaryResult) error {
	label, err := s.Label.Narrow(other.Label)
	if err != nil {
		return err
	}
	s.Label = label
	s.DensityPos = s.DensityPos.Add(other.DensityPos)
	s.DensityNeg = s.DensityNeg.Add(other.DensityNeg)
	return nil
}

// ApplyPostponed folds a postponed contribution into the summary using
// interval kernel sums against the query node's bound. Reports whether the
// summary changed.
func (s *SummaryResult) ApplyPostponed(params *Params, p *Postponed, queryBound Bound) (bool, error) {
	changed := false

	if p.Label != LabelEither {
		label, err := s.Label.Narrow(p.Label)
		if err != nil {
			return false, err
		}
		s.Label = label
		changed = true
	}
	if !p.MomentPos.IsEmpty() {
		rng, err := p.MomentPos.ComputeKernelSumRange(params.KernelPos, queryBound)
		if err != nil {
			return false, err
		}
		s.DensityPos = s.DensityPos.Add(rng)
		changed = true
	}
	if !p.MomentNeg.IsEmpty() {
		rng, err := p.MomentNeg.ComputeKernelSumRange(params.KernelNeg, queryBound)
		if err != nil {
			return false, err
		}
		s.DensityNeg = s.DensityNeg.Add(rng)
		changed = true
	}

	return changed, nil
}

// GlobalResult holds whole-run counters. Only the top-level driver mutates
// it, folding per-branch results in a single-threaded pass after workers
// complete.
type GlobalResult struct {
	CountPos     int
	CountUnknown int
}

// Accumulate merges another branch's counters.
func (g *GlobalResult) Accumulate(other GlobalResult) {
	g.CountPos += other.CountPos
	g.CountUnknown += other.CountUnknown
}

// ApplyResult tallies one finalized point result.
func (g *GlobalResult) ApplyResult(r *PointResult) {
	switch r.Label {
	case LabelPos:
		g.CountPos++
	case LabelEither:
		g.CountUnknown++
	}
}
