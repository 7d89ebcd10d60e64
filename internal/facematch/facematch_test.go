package facematch

import (
	"math"
	"testing"
)

func testTemplate(fill float32) Template {
	t := make(Template, TemplateDim)
	for i := range t {
		t[i] = fill
	}
	return t
}

func TestEuclideanDistanceIdentical(t *testing.T) {
	a := testTemplate(0.5)
	if d := EuclideanDistance(a, a); d != 0 {
		t.Errorf("distance to self = %v, want 0", d)
	}
}

func TestEuclideanDistanceSymmetric(t *testing.T) {
	a := make(Template, TemplateDim)
	b := make(Template, TemplateDim)
	for i := range a {
		a[i] = float32(i) / TemplateDim
		b[i] = float32(TemplateDim-i) / TemplateDim
	}

	if d1, d2 := EuclideanDistance(a, b), EuclideanDistance(b, a); d1 != d2 {
		t.Errorf("distance not symmetric: %v vs %v", d1, d2)
	}
}

func TestEuclideanDistanceKnownValue(t *testing.T) {
	a := testTemplate(0)
	b := testTemplate(0)
	b[0] = 3
	b[1] = 4

	if d := EuclideanDistance(a, b); math.Abs(d-5) > 1e-9 {
		t.Errorf("distance = %v, want 5", d)
	}
}

func TestEuclideanDistanceDimensionMismatchPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on dimension mismatch")
		}
	}()
	EuclideanDistance(make(Template, TemplateDim), make(Template, TemplateDim-1))
}

func TestIsMatchBoundary(t *testing.T) {
	tests := []struct {
		distance float64
		want     bool
	}{
		{0, true},
		{0.44, true},
		{0.45, true},
		{0.450001, false},
		{0.6, false},
	}

	for _, tt := range tests {
		if got := IsMatch(tt.distance); got != tt.want {
			t.Errorf("IsMatch(%v) = %v, want %v", tt.distance, got, tt.want)
		}
	}
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"José Álvarez", "jose alvarez"},
		{"  Priya   Sharma ", "priya sharma"},
		{"JIŘÍ", "jiri"},
	}

	for _, tt := range tests {
		if got := NormalizeName(tt.in); got != tt.want {
			t.Errorf("NormalizeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
