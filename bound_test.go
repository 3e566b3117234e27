package nbc

import (
	"math"
	"testing"
)

func boundFromPoints(dim int, pts ...[]float64) Bound {
	b := NewBound(dim)
	for _, p := range pts {
		b.WidenPoint(p)
	}
	return b
}

func TestBound_GrowsToCoverPoints(t *testing.T) {
	b := NewBound(2)
	if !b.IsEmpty() {
		t.Fatal("new bound should be empty")
	}

	b.WidenPoint([]float64{1, 5})
	b.WidenPoint([]float64{3, 2})

	if b.IsEmpty() {
		t.Fatal("bound should not be empty after adding points")
	}
	if b.MinDistSqPoint([]float64{2, 3}) != 0 {
		t.Error("interior point should have zero min distance")
	}
}

func TestBound_MinMaxDistSqPoint(t *testing.T) {
	// Box [0,2]×[0,2].
	b := boundFromPoints(2, []float64{0, 0}, []float64{2, 2})

	tests := []struct {
		name    string
		p       []float64
		wantMin float64
		wantMax float64
	}{
		{"inside", []float64{1, 1}, 0, 2},        // max to corner: 1+1
		{"right of box", []float64{5, 1}, 9, 26}, // min: 3², max: 5²+1²
		{"corner diagonal", []float64{4, 4}, 8, 32},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := b.MinDistSqPoint(tt.p); math.Abs(got-tt.wantMin) > 1e-12 {
				t.Errorf("MinDistSqPoint = %g, want %g", got, tt.wantMin)
			}
			if got := b.MaxDistSqPoint(tt.p); math.Abs(got-tt.wantMax) > 1e-12 {
				t.Errorf("MaxDistSqPoint = %g, want %g", got, tt.wantMax)
			}
		})
	}
}

func TestBound_MinMaxDistSqBound(t *testing.T) {
	a := boundFromPoints(2, []float64{0, 0}, []float64{1, 1})
	b := boundFromPoints(2, []float64{4, 0}, []float64{5, 1})

	// Gap of 3 along x, overlap along y.
	if got := a.MinDistSq(b); math.Abs(got-9) > 1e-12 {
		t.Errorf("MinDistSq = %g, want 9", got)
	}
	// Farthest corners: (0,0) to (5,1) or (0,1) to (5,0): 25+1.
	if got := a.MaxDistSq(b); math.Abs(got-26) > 1e-12 {
		t.Errorf("MaxDistSq = %g, want 26", got)
	}

	// Overlapping boxes have zero min distance.
	c := boundFromPoints(2, []float64{0.5, 0.5}, []float64{2, 2})
	if got := a.MinDistSq(c); got != 0 {
		t.Errorf("overlapping MinDistSq = %g, want 0", got)
	}
}

func TestBound_DistanceBoundsContainAllPairs(t *testing.T) {
	aPts := [][]float64{{0, 0}, {1, 0.5}, {0.2, 1}}
	bPts := [][]float64{{3, 3}, {4, 2.5}, {3.5, 4}}
	a := boundFromPoints(2, aPts...)
	b := boundFromPoints(2, bPts...)

	lo := a.MinDistSq(b)
	hi := a.MaxDistSq(b)
	for _, p := range aPts {
		for _, q := range bPts {
			d := distSq(p, q)
			if d < lo-1e-12 || d > hi+1e-12 {
				t.Errorf("pair distance %g outside [%g, %g]", d, lo, hi)
			}
		}
	}
}

func TestBound_MinToMidSq(t *testing.T) {
	a := boundFromPoints(2, []float64{0, 0}, []float64{2, 2})
	b := boundFromPoints(2, []float64{6, 0}, []float64{8, 2})

	// Midpoint of b is (7, 1); distance from a along x is 5.
	if got := a.MinToMidSq(b); math.Abs(got-25) > 1e-12 {
		t.Errorf("MinToMidSq = %g, want 25", got)
	}
	// Midpoint inside the other box.
	if got := a.MinToMidSq(a); got != 0 {
		t.Errorf("MinToMidSq to own midpoint = %g, want 0", got)
	}
}

func TestBound_WidenBound(t *testing.T) {
	a := boundFromPoints(2, []float64{0, 0}, []float64{1, 1})
	b := boundFromPoints(2, []float64{5, -2}, []float64{6, 0})
	a.Widen(b)

	for _, p := range [][]float64{{0, 0}, {1, 1}, {5, -2}, {6, 0}} {
		if a.MinDistSqPoint(p) != 0 {
			t.Errorf("widened bound should cover %v", p)
		}
	}
}
