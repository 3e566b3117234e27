package nbc

import (
	"math"
	"testing"
)

func TestEpanKernel_EvalUnnormOnSq(t *testing.T) {
	k := NewEpanKernel(2.0)

	tests := []struct {
		name string
		dsq  float64
		want float64
	}{
		{"at zero distance", 0, 1},
		{"halfway in squared space", 2, 0.5},
		{"at bandwidth", 4, 0},
		{"beyond bandwidth", 9, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := k.EvalUnnormOnSq(tt.dsq); math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("EvalUnnormOnSq(%g) = %g, want %g", tt.dsq, got, tt.want)
			}
		})
	}
}

func TestEpanKernel_NormConstant(t *testing.T) {
	// 1D: ∫(1 - x²/h²) over [-h, h] = 4h/3.
	k1 := NewEpanKernel(1.5)
	if got, want := k1.NormConstant(1), 4*1.5/3; math.Abs(got-want) > 1e-12 {
		t.Errorf("NormConstant(1) = %g, want %g", got, want)
	}

	// 2D: 2·πh²/4 = πh²/2.
	k2 := NewEpanKernel(2.0)
	if got, want := k2.NormConstant(2), math.Pi*4/2; math.Abs(got-want) > 1e-12 {
		t.Errorf("NormConstant(2) = %g, want %g", got, want)
	}
}

func TestEpanKernel_BandwidthAccessors(t *testing.T) {
	k := NewEpanKernel(3.0)
	if k.Bandwidth() != 3 {
		t.Errorf("Bandwidth() = %g, want 3", k.Bandwidth())
	}
	if k.BandwidthSq() != 9 {
		t.Errorf("BandwidthSq() = %g, want 9", k.BandwidthSq())
	}
	if math.Abs(k.InvBandwidthSq()-1.0/9) > 1e-15 {
		t.Errorf("InvBandwidthSq() = %g, want 1/9", k.InvBandwidthSq())
	}
}
