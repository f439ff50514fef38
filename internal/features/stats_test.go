package features

import (
	"math"
	"testing"
)

func TestQuantileLinear(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		p      float64
		want   float64
	}{
		{"median odd", []float64{3, 1, 5, 2, 4}, 0.5, 3},
		{"median even interpolates", []float64{1, 2, 3, 4}, 0.5, 2.5},
		{"p80 of five", []float64{10, 20, 30, 40, 50}, 0.8, 42},
		{"p0 is min", []float64{7, 3, 9}, 0, 3},
		{"p1 is max", []float64{7, 3, 9}, 1, 9},
		{"single value", []float64{5}, 0.8, 5},
		{"two values", []float64{10, 20}, 0.25, 12.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := quantileLinear(tt.values, tt.p)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("quantileLinear(%v, %v) = %v, want %v", tt.values, tt.p, got, tt.want)
			}
		})
	}
}

func TestQuantileLinearDoesNotMutateInput(t *testing.T) {
	values := []float64{3, 1, 2}
	quantileLinear(values, 0.5)
	if values[0] != 3 || values[1] != 1 || values[2] != 2 {
		t.Errorf("input slice was reordered: %v", values)
	}
}

func TestSampleStd(t *testing.T) {
	if got := sampleStd([]float64{5}); got != nil {
		t.Errorf("std of one sample should be nil, got %v", *got)
	}
	if got := sampleStd(nil); got != nil {
		t.Errorf("std of no samples should be nil, got %v", *got)
	}

	got := sampleStd([]float64{2, 4})
	if got == nil {
		t.Fatal("std of two samples should be defined")
	}
	if math.Abs(*got-math.Sqrt2) > 1e-9 {
		t.Errorf("sampleStd([2 4]) = %v, want sqrt(2)", *got)
	}

	// Sample (N−1), not population (N): [1,2,3,4] → sqrt(5/3).
	got = sampleStd([]float64{1, 2, 3, 4})
	if math.Abs(*got-math.Sqrt(5.0/3.0)) > 1e-9 {
		t.Errorf("sampleStd([1 2 3 4]) = %v, want sqrt(5/3)", *got)
	}
}

func TestMean(t *testing.T) {
	if got := mean([]float64{1, 2, 3}); got != 2 {
		t.Errorf("mean = %v, want 2", got)
	}
}

func TestStableMode(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		want   string
	}{
		{"clear winner", []string{"x", "y", "y"}, "y"},
		{"tie broken by first encountered", []string{"a", "b", "b", "a"}, "a"},
		{"all tied", []string{"c", "b", "a"}, "c"},
		{"single", []string{"only"}, "only"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stableMode(tt.values); got != tt.want {
				t.Errorf("stableMode(%v) = %q, want %q", tt.values, got, tt.want)
			}
		})
	}
}

func TestRound2(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{13.404, 13.4},
		{13.406, 13.41},
		{26.8, 26.8},
		{33.335, 33.34},
	}
	for _, tt := range tests {
		if got := round2(tt.in); got != tt.want {
			t.Errorf("round2(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
