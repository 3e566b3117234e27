package nbc

// Bound is an axis-aligned box: one closed interval per dimension. Node
// statistics grow a Bound monotonically while the tree is built and treat it
// as immutable afterwards. A freshly created Bound is empty (covers nothing).
type Bound struct {
	dims []Interval
}

// NewBound returns an empty bound over dim dimensions.
func NewBound(dim int) Bound {
	dims := make([]Interval, dim)
	for d := range dims {
		dims[d] = EmptyInterval()
	}
	return Bound{dims: dims}
}

// Dim returns the dimensionality of the bound.
func (b Bound) Dim() int { return len(b.dims) }

// IsEmpty reports whether the bound covers no points yet.
func (b Bound) IsEmpty() bool {
	return len(b.dims) == 0 || b.dims[0].IsEmpty()
}

// WidenPoint grows the bound to cover the point p.
func (b Bound) WidenPoint(p []float64) {
	for d := range b.dims {
		b.dims[d] = b.dims[d].WidenValue(p[d])
	}
}

// Widen grows the bound to cover other.
func (b Bound) Widen(other Bound) {
	for d := range b.dims {
		b.dims[d] = b.dims[d].Widen(other.dims[d])
	}
}

// MinDistSqPoint returns the minimum squared Euclidean distance from p to
// any point inside the bound. Zero if p is inside.
func (b Bound) MinDistSqPoint(p []float64) float64 {
	var sum float64
	for d, iv := range b.dims {
		var gap float64
		if p[d] < iv.Lo {
			gap = iv.Lo - p[d]
		} else if p[d] > iv.Hi {
			gap = p[d] - iv.Hi
		}
		sum += gap * gap
	}
	return sum
}

// MaxDistSqPoint returns the maximum squared Euclidean distance from p to
// any point inside the bound.
func (b Bound) MaxDistSqPoint(p []float64) float64 {
	var sum float64
	for d, iv := range b.dims {
		lo := p[d] - iv.Lo
		if lo < 0 {
			lo = -lo
		}
		hi := p[d] - iv.Hi
		if hi < 0 {
			hi = -hi
		}
		gap := lo
		if hi > gap {
			gap = hi
		}
		sum += gap * gap
	}
	return sum
}

// MinDistSq returns the minimum squared Euclidean distance between any point
// in b and any point in other. Zero if the boxes overlap.
func (b Bound) MinDistSq(other Bound) float64 {
	var sum float64
	for d := range b.dims {
		g1 := b.dims[d].Lo - other.dims[d].Hi
		g2 := other.dims[d].Lo - b.dims[d].Hi
		var gap float64
		if g1 > gap {
			gap = g1
		}
		if g2 > gap {
			gap = g2
		}
		sum += gap * gap
	}
	return sum
}

// MaxDistSq returns the maximum squared Euclidean distance between any point
// in b and any point in other.
func (b Bound) MaxDistSq(other Bound) float64 {
	var sum float64
	for d := range b.dims {
		g1 := b.dims[d].Hi - other.dims[d].Lo
		g2 := other.dims[d].Hi - b.dims[d].Lo
		gap := g1
		if g2 > gap {
			gap = g2
		}
		sum += gap * gap
	}
	return sum
}

// MinToMidSq returns the minimum squared distance from b to the midpoint of
// other. Used as the recursion-priority heuristic: geometrically closer
// sibling pairs are visited first.
func (b Bound) MinToMidSq(other Bound) float64 {
	var sum float64
	for d := range b.dims {
		mid := other.dims[d].Mid()
		var gap float64
		if mid < b.dims[d].Lo {
			gap = b.dims[d].Lo - mid
		} else if mid > b.dims[d].Hi {
			gap = mid - b.dims[d].Hi
		}
		sum += gap * gap
	}
	return sum
}
