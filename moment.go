package nbc

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// MomentInfo is the sufficient statistic for a set of points under the
// Epanechnikov kernel: point count, component-wise coordinate sum, and sum of
// squared norms. Because the kernel is quadratic in distance, the total
// kernel value contributed by the whole set at any query location is a closed
// form over these three quantities; no individual point need be revisited.
//
// MomentInfo is commutative and associative under Add, so subtree statistics
// may be merged in any order. The empty state (Count == 0) is absorbing.
type MomentInfo struct {
	Mass  []float64
	SumSq float64
	Count int
}

// NewMomentInfo returns an empty moment over dim dimensions.
func NewMomentInfo(dim int) MomentInfo {
	return MomentInfo{Mass: make([]float64, dim)}
}

// Reset clears the moment to the empty state without reallocating.
func (m *MomentInfo) Reset() {
	for i := range m.Mass {
		m.Mass[i] = 0
	}
	m.SumSq = 0
	m.Count = 0
}

// AddPoint accumulates a single point.
func (m *MomentInfo) AddPoint(vec []float64) {
	floats.Add(m.Mass, vec)
	m.SumSq += floats.Dot(vec, vec)
	m.Count++
}

// Add merges another moment into m.
func (m *MomentInfo) Add(other MomentInfo) {
	if other.Count == 0 {
		return
	}
	floats.Add(m.Mass, other.Mass)
	m.SumSq += other.SumSq
	m.Count += other.Count
}

// IsEmpty reports whether the moment summarizes no points.
func (m *MomentInfo) IsEmpty() bool {
	return m.Count == 0
}

// ComputeKernelSum returns the exact total unnormalized kernel value
// contributed by every summarized point, evaluated at the query point q.
// Valid only when every summarized point lies within the kernel bandwidth of
// q (the Inclusion precondition); the caller establishes that via bound
// checks before folding the moment in.
//
// Derivation: Σ(1 - |q - r|²/h²) over reference points r expands to
// count - (count·q·q - 2·q·Σr + Σ|r|²)/h².
func (m *MomentInfo) ComputeKernelSum(k EpanKernel, q []float64) float64 {
	quadratic := float64(m.Count)*floats.Dot(q, q) -
		2*floats.Dot(q, m.Mass) + m.SumSq
	return float64(m.Count) - quadratic*k.InvBandwidthSq()
}

// kernelSumAtDistSq evaluates the same closed form given a squared distance
// from the query location to the moment's centroid, plus the centroid's
// self-dot-product.
func (m *MomentInfo) kernelSumAtDistSq(k EpanKernel, distSq, centerDotCenter float64) float64 {
	quadratic := (distSq-centerDotCenter)*float64(m.Count) + m.SumSq
	return float64(m.Count) - quadratic*k.InvBandwidthSq()
}

// ComputeKernelSumRange returns an interval guaranteed to contain the exact
// kernel sum for every query point inside queryBound, by evaluating the
// closed form at the maximum and minimum possible squared distance between
// the bound and the moment's centroid. Returns ErrEmptyMoment when the
// moment has no points.
func (m *MomentInfo) ComputeKernelSumRange(k EpanKernel, queryBound Bound) (Interval, error) {
	if m.Count == 0 {
		return Interval{}, errors.WithStack(ErrEmptyMoment)
	}

	center := make([]float64, len(m.Mass))
	floats.AddScaled(center, 1/float64(m.Count), m.Mass)
	centerDotCenter := floats.Dot(m.Mass, m.Mass) / float64(m.Count) / float64(m.Count)

	return Interval{
		Lo: m.kernelSumAtDistSq(k, queryBound.MaxDistSqPoint(center), centerDotCenter),
		Hi: m.kernelSumAtDistSq(k, queryBound.MinDistSqPoint(center), centerDotCenter),
	}, nil
}
