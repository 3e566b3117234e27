package nbc

import "math"

// Interval is a closed range [Lo, Hi] of float64 values. It is the basic
// carrier of bound arithmetic throughout the classifier: density bounds,
// prior bounds, and threshold constants are all Intervals.
//
// The zero value is the degenerate interval [0, 0]. Use EmptyInterval for
// the identity of union-style accumulation.
type Interval struct {
	Lo, Hi float64
}

// EmptyInterval returns the empty set: union with anything yields the other
// operand. It is the starting value for bottom-up reaccumulation.
func EmptyInterval() Interval {
	return Interval{Lo: math.Inf(1), Hi: math.Inf(-1)}
}

// IsEmpty reports whether the interval is the empty set.
func (iv Interval) IsEmpty() bool {
	return iv.Lo > iv.Hi
}

// WidenValue grows the interval to cover the scalar v.
func (iv Interval) WidenValue(v float64) Interval {
	if v < iv.Lo {
		iv.Lo = v
	}
	if v > iv.Hi {
		iv.Hi = v
	}
	return iv
}

// Widen grows the interval to cover other (set union of the hulls).
func (iv Interval) Widen(other Interval) Interval {
	if other.Lo < iv.Lo {
		iv.Lo = other.Lo
	}
	if other.Hi > iv.Hi {
		iv.Hi = other.Hi
	}
	return iv
}

// Add returns the interval sum {a+b : a in iv, b in other}.
func (iv Interval) Add(other Interval) Interval {
	return Interval{Lo: iv.Lo + other.Lo, Hi: iv.Hi + other.Hi}
}

// AddValue shifts both endpoints by v.
func (iv Interval) AddValue(v float64) Interval {
	return Interval{Lo: iv.Lo + v, Hi: iv.Hi + v}
}

// Contains reports whether v lies within the interval.
func (iv Interval) Contains(v float64) bool {
	return v >= iv.Lo && v <= iv.Hi
}

// Mid returns the midpoint. Undefined for empty intervals.
func (iv Interval) Mid() float64 {
	return 0.5 * (iv.Lo + iv.Hi)
}

// Width returns Hi - Lo, or 0 for empty intervals.
func (iv Interval) Width() float64 {
	if iv.IsEmpty() {
		return 0
	}
	return iv.Hi - iv.Lo
}
