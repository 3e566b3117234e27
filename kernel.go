package nbc

import "math"

// EpanKernel is the Epanechnikov kernel: for squared distance d² and
// bandwidth h, the unnormalized value is max(0, 1 - d²/h²). Its quadratic
// form in d² is what makes closed-form moment pruning possible: the sum of
// kernel values over a point set is expressible from the set's count, vector
// sum, and sum of squared norms alone.
type EpanKernel struct {
	bandwidth   float64
	bandwidthSq float64
	invBwSq     float64
}

// NewEpanKernel returns an Epanechnikov kernel with the given bandwidth.
// The bandwidth must be positive; Config validation enforces this before
// kernels are constructed.
func NewEpanKernel(bandwidth float64) EpanKernel {
	return EpanKernel{
		bandwidth:   bandwidth,
		bandwidthSq: bandwidth * bandwidth,
		invBwSq:     1 / (bandwidth * bandwidth),
	}
}

// Bandwidth returns h.
func (k EpanKernel) Bandwidth() float64 { return k.bandwidth }

// BandwidthSq returns h².
func (k EpanKernel) BandwidthSq() float64 { return k.bandwidthSq }

// InvBandwidthSq returns 1/h².
func (k EpanKernel) InvBandwidthSq() float64 { return k.invBwSq }

// EvalUnnormOnSq evaluates the unnormalized kernel at squared distance dsq.
func (k EpanKernel) EvalUnnormOnSq(dsq float64) float64 {
	v := 1 - dsq*k.invBwSq
	if v < 0 {
		return 0
	}
	return v
}

// NormConstant returns the integral of the unnormalized kernel over
// dim-dimensional space: 2·V_dim(h)/(dim+2), where V_dim(h) is the volume
// of the dim-ball of radius h. Dividing kernel sums by this constant (times
// the point count) turns them into density estimates.
func (k EpanKernel) NormConstant(dim int) float64 {
	return 2 * sphereVolume(k.bandwidth, dim) / float64(dim+2)
}

// sphereVolume returns the volume of the dim-dimensional ball of radius r:
// π^(dim/2) / Γ(dim/2 + 1) · r^dim.
func sphereVolume(r float64, dim int) float64 {
	return math.Pow(math.Pi, float64(dim)/2) / math.Gamma(float64(dim)/2+1) *
		math.Pow(r, float64(dim))
}
