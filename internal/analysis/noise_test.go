package analysis

import (
	"math"
	"testing"
)

func TestNoiseFloor(t *testing.T) {
	tests := []struct {
		name   string
		powers []float64
		want   float64
	}{
		{"empty", nil, DefaultNoiseFloor},
		{"too few samples", []float64{-50, -60, -70}, DefaultNoiseFloor},
		{"five samples quartile", []float64{-100, -60, -100, -90, -70}, -100},
		{"eight samples", []float64{-10, -20, -30, -40, -50, -60, -70, -80}, -60},
		{"unsorted input left intact", []float64{-30, -90, -60, -120}, -90},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NoiseFloor(tt.powers); got != tt.want {
				t.Errorf("NoiseFloor(%v) = %.1f, want %.1f", tt.powers, got, tt.want)
			}
		})
	}
}

func TestNoiseFloor_DoesNotMutateInput(t *testing.T) {
	powers := []float64{-30, -90, -60, -120, -45}
	NoiseFloor(powers)
	if powers[0] != -30 || powers[3] != -120 {
		t.Errorf("input slice was reordered: %v", powers)
	}
}

func TestSlope(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{"single value", []float64{-60}, 0},
		{"rising line", []float64{0, 1, 2, 3, 4}, 1},
		{"falling line", []float64{10, 8, 6, 4}, -2},
		{"flat line", []float64{-70, -70, -70}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Slope(tt.values); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Slope(%v) = %f, want %f", tt.values, got, tt.want)
			}
		})
	}
}
