package nbc

import (
	"math"
	"testing"
)

// testParams returns finalized Params for balanced classes.
func testParams(t *testing.T, bandwidth, threshold float64, dim, countPos, countNeg int) *Params {
	t.Helper()
	p := NewParams(NewEpanKernel(bandwidth), NewEpanKernel(bandwidth), threshold, dim)
	if err := p.ComputeConsts(countPos, countNeg); err != nil {
		t.Fatalf("ComputeConsts: %v", err)
	}
	return p
}

// refNodeView builds a reference NodeView from labeled points.
func refNodeView(pts [][]float64, pos []bool) NodeView {
	dim := len(pts[0])
	stat := NewNodeStat(dim)
	bound := NewBound(dim)
	for i, p := range pts {
		stat.AccumulatePoint(p, pos[i], 0)
		bound.WidenPoint(p)
	}
	return NodeView{Bound: bound, Stat: &stat}
}

// queryNodeView builds a query NodeView from points with priors.
func queryNodeView(pts [][]float64, priors []float64) NodeView {
	dim := len(pts[0])
	stat := NewNodeStat(dim)
	bound := NewBound(dim)
	for i, p := range pts {
		stat.AccumulatePoint(p, false, priors[i])
		bound.WidenPoint(p)
	}
	return NodeView{Bound: bound, Stat: &stat}
}

func TestParams_ComputeConsts(t *testing.T) {
	p := testParams(t, 1.0, 0.5, 2, 10, 10)

	// Balanced classes and threshold 0.5: the constants coincide.
	if math.Abs(p.ConstPos.Lo-p.ConstNeg.Lo) > 1e-15 || math.Abs(p.ConstPos.Hi-p.ConstNeg.Hi) > 1e-15 {
		t.Errorf("balanced constants differ: %+v vs %+v", p.ConstPos, p.ConstNeg)
	}

	// ε = min(t, 1-t)·1e-3 = 5e-4; norm = (π/2)·10.
	norm := math.Pi / 2 * 10
	wantLo := (0.5 - 5e-4) / norm
	wantHi := (0.5 + 5e-4) / norm
	if math.Abs(p.ConstPos.Lo-wantLo) > 1e-15 {
		t.Errorf("ConstPos.Lo = %g, want %g", p.ConstPos.Lo, wantLo)
	}
	if math.Abs(p.ConstPos.Hi-wantHi) > 1e-15 {
		t.Errorf("ConstPos.Hi = %g, want %g", p.ConstPos.Hi, wantHi)
	}
	if p.CountAll != 20 {
		t.Errorf("CountAll = %d, want 20", p.CountAll)
	}
}

func TestParams_ComputeConstsRejectsSingleClass(t *testing.T) {
	p := NewParams(NewEpanKernel(1), NewEpanKernel(1), 0.5, 2)
	if err := p.ComputeConsts(10, 0); err == nil {
		t.Error("expected error for reference set with no negative points")
	}
	if err := p.ComputeConsts(0, 10); err == nil {
		t.Error("expected error for reference set with no positive points")
	}
}

func TestConsiderPairIntrinsic_Exclusion(t *testing.T) {
	params := testParams(t, 1.0, 0.5, 2, 2, 2)
	policy := newClassifierPolicy(params)

	q := queryNodeView([][]float64{{0, 0}, {1, 1}}, []float64{0.5, 0.5})
	// Reference points far outside the bandwidth of every query point.
	r := refNodeView([][]float64{{50, 50}, {51, 51}, {52, 50}, {50, 52}},
		[]bool{true, true, false, false})

	post := NewPostponed(2)
	_, outcome := policy.ConsiderPairIntrinsic(q, r, &post)
	if outcome != PairExclude {
		t.Errorf("outcome = %v, want PairExclude", outcome)
	}
	if !post.IsEmpty() {
		t.Error("exclusion must not touch the postponed contribution")
	}
}

func TestConsiderPairIntrinsic_Inclusion(t *testing.T) {
	params := testParams(t, 10.0, 0.5, 2, 2, 2)
	policy := newClassifierPolicy(params)

	// Everything within saturating range of the wide kernel.
	q := queryNodeView([][]float64{{0, 0}, {0.5, 0.5}}, []float64{0.5, 0.5})
	r := refNodeView([][]float64{{1, 1}, {1.5, 1}, {1, 1.5}, {0.5, 1}},
		[]bool{true, true, false, false})

	post := NewPostponed(2)
	_, outcome := policy.ConsiderPairIntrinsic(q, r, &post)
	if outcome != PairInclude {
		t.Errorf("outcome = %v, want PairInclude", outcome)
	}
	if post.MomentPos.Count != 2 || post.MomentNeg.Count != 2 {
		t.Errorf("postponed moments = (%d, %d), want (2, 2)", post.MomentPos.Count, post.MomentNeg.Count)
	}
	if post.Label != LabelEither {
		t.Errorf("inclusion must not narrow the label, got %v", post.Label)
	}
}

func TestConsiderPairIntrinsic_ApproximateDelta(t *testing.T) {
	params := testParams(t, 2.0, 0.5, 2, 3, 1)
	policy := newClassifierPolicy(params)

	q := queryNodeView([][]float64{{0, 0}}, []float64{0.5})
	// Positive points partially in range; negative point out of range.
	r := refNodeView([][]float64{{1.5, 0}, {1.6, 0}, {1.7, 0}, {30, 30}},
		[]bool{true, true, true, false})

	post := NewPostponed(2)
	delta, outcome := policy.ConsiderPairIntrinsic(q, r, &post)
	if outcome != PairApproximate {
		t.Fatalf("outcome = %v, want PairApproximate", outcome)
	}

	// Delta lower bounds are zero; the positive upper bound is
	// count · kernel at the closest approach.
	if delta.DensityPos.Lo != 0 || delta.DensityNeg.Lo != 0 {
		t.Errorf("delta lower bounds = (%g, %g), want (0, 0)", delta.DensityPos.Lo, delta.DensityNeg.Lo)
	}
	wantHi := 3 * params.KernelPos.EvalUnnormOnSq(1.5*1.5)
	if math.Abs(delta.DensityPos.Hi-wantHi) > 1e-12 {
		t.Errorf("DensityPos.Hi = %g, want %g", delta.DensityPos.Hi, wantHi)
	}
	if delta.DensityNeg.Hi != 0 {
		t.Errorf("DensityNeg.Hi = %g, want 0 (out of range)", delta.DensityNeg.Hi)
	}
}

func TestConsiderQueryTermination_ResolvedLabelStops(t *testing.T) {
	params := testParams(t, 1.0, 0.5, 2, 2, 2)
	policy := newClassifierPolicy(params)

	q := queryNodeView([][]float64{{0, 0}}, []float64{0.5})
	summary := NewSummaryResult()
	summary.Label = LabelNeg

	post := NewPostponed(2)
	cont, err := policy.ConsiderQueryTermination(q, summary, &post)
	if err != nil {
		t.Fatalf("ConsiderQueryTermination: %v", err)
	}
	if cont {
		t.Error("resolved summary label should stop recursion")
	}
	if post.Label != LabelNeg {
		t.Errorf("postponed label = %v, want neg", post.Label)
	}
}

func TestConsiderQueryTermination_Dominance(t *testing.T) {
	params := testParams(t, 1.0, 0.5, 2, 10, 10)
	policy := newClassifierPolicy(params)

	q := queryNodeView([][]float64{{0, 0}}, []float64{0.5})

	// Positive density provably dominant.
	summary := NewSummaryResult()
	summary.DensityPos = Interval{Lo: 8, Hi: 10}
	summary.DensityNeg = Interval{Lo: 0, Hi: 0.1}

	post := NewPostponed(2)
	cont, err := policy.ConsiderQueryTermination(q, summary, &post)
	if err != nil {
		t.Fatalf("ConsiderQueryTermination: %v", err)
	}
	if cont || post.Label != LabelPos {
		t.Errorf("cont = %v, label = %v; want stop with pos", cont, post.Label)
	}

	// Overlapping bounds: keep recursing.
	summary = NewSummaryResult()
	summary.DensityPos = Interval{Lo: 1, Hi: 10}
	summary.DensityNeg = Interval{Lo: 1, Hi: 10}
	post = NewPostponed(2)
	cont, err = policy.ConsiderQueryTermination(q, summary, &post)
	if err != nil {
		t.Fatalf("ConsiderQueryTermination: %v", err)
	}
	if !cont {
		t.Error("ambiguous bounds should continue recursing")
	}
	if post.Label != LabelEither {
		t.Errorf("ambiguous case must not narrow the label, got %v", post.Label)
	}
}

func TestHeuristic_PrefersCloserReferenceNodes(t *testing.T) {
	params := testParams(t, 1.0, 0.5, 2, 2, 2)
	policy := newClassifierPolicy(params)

	q := queryNodeView([][]float64{{0, 0}, {1, 1}}, []float64{0.5, 0.5})
	near := refNodeView([][]float64{{2, 2}, {3, 3}}, []bool{true, false})
	far := refNodeView([][]float64{{20, 20}, {21, 21}}, []bool{true, false})

	if policy.Heuristic(q, near) >= policy.Heuristic(q, far) {
		t.Error("closer reference node should order first")
	}
}

func TestConsiderPairExtrinsic_AlwaysContinues(t *testing.T) {
	params := testParams(t, 1.0, 0.5, 2, 2, 2)
	policy := newClassifierPolicy(params)

	q := queryNodeView([][]float64{{0, 0}}, []float64{0.5})
	r := refNodeView([][]float64{{1, 1}, {2, 2}}, []bool{true, false})

	if !policy.ConsiderPairExtrinsic(q, r, Delta{}, NewSummaryResult(), GlobalResult{}) {
		t.Error("default extrinsic gate should always permit continuation")
	}
}
