package nbc

// distSq returns the squared Euclidean distance between two points of equal
// dimensionality. The classifier is Euclidean-only: the closed-form moment
// pruning depends on the kernel being a function of squared Euclidean
// distance.
func distSq(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
