package shared

import (
	"encoding/json"
	"math"
	"testing"
)

func TestPhaseFromAngle(t *testing.T) {
	p := PhaseFromAngle(math.Pi / 2)
	if math.Abs(p.Re) > 1e-12 || math.Abs(p.Im-1) > 1e-12 {
		t.Errorf("expected (0, 1), got (%.6f, %.6f)", p.Re, p.Im)
	}
	if math.Abs(p.Abs()-1) > 1e-12 {
		t.Errorf("expected unit magnitude, got %.6f", p.Abs())
	}
}

func TestPhaseAngleNormalized(t *testing.T) {
	for _, angle := range []float64{-1.0, 0, 1.0, 3.5, 7.0, -10.0} {
		got := PhaseFromAngle(angle).Angle()
		if got < 0 || got >= TwoPi {
			t.Errorf("angle %.2f: expected normalized result, got %.6f", angle, got)
		}
		want := NormalizeAngle(angle)
		if math.Abs(got-want) > 1e-9 {
			t.Errorf("angle %.2f: expected %.6f, got %.6f", angle, want, got)
		}
	}
}

func TestPhaseArithmetic(t *testing.T) {
	a := PhaseFromAngle(1.0)
	b := PhaseFromAngle(0.5)

	// Multiplication adds angles on the unit circle.
	product := a.Mul(b)
	if math.Abs(product.Angle()-1.5) > 1e-9 {
		t.Errorf("expected product angle 1.5, got %.6f", product.Angle())
	}

	// Conjugate product recovers the angle difference.
	diff := a.Mul(b.Conj())
	if math.Abs(diff.Angle()-0.5) > 1e-9 {
		t.Errorf("expected difference angle 0.5, got %.6f", diff.Angle())
	}

	if got := a.Rotate(0.5).Angle(); math.Abs(got-1.5) > 1e-9 {
		t.Errorf("expected rotated angle 1.5, got %.6f", got)
	}

	scaled := a.Scale(0.25)
	if math.Abs(scaled.Abs()-0.25) > 1e-12 {
		t.Errorf("expected magnitude 0.25, got %.6f", scaled.Abs())
	}
	if math.Abs(scaled.Abs2()-0.0625) > 1e-12 {
		t.Errorf("expected squared magnitude 0.0625, got %.6f", scaled.Abs2())
	}

	sum := Phase{Re: 1, Im: 2}.Add(Phase{Re: 3, Im: -1})
	if sum.Re != 4 || sum.Im != 1 {
		t.Errorf("expected (4, 1), got (%.1f, %.1f)", sum.Re, sum.Im)
	}
}

func TestPhaseNormalize(t *testing.T) {
	p := Phase{Re: 3, Im: 4}.Normalize()
	if math.Abs(p.Abs()-1) > 1e-12 {
		t.Errorf("expected unit magnitude, got %.6f", p.Abs())
	}

	// The zero phase has no direction; it normalizes to the unit default.
	if got := ZeroPhase().Normalize(); got != UnitPhase() {
		t.Errorf("expected unit phase, got %+v", got)
	}

	if !ZeroPhase().IsZero() {
		t.Error("expected zero phase to report zero")
	}
	if UnitPhase().IsZero() {
		t.Error("expected unit phase to report non-zero")
	}
}

func TestNormalizeAngle(t *testing.T) {
	cases := []struct{ in, want float64 }{
		{0, 0},
		{TwoPi, 0},
		{-math.Pi, math.Pi},
		{3 * math.Pi, math.Pi},
		{TwoPi + 0.5, 0.5},
	}
	for _, tc := range cases {
		if got := NormalizeAngle(tc.in); math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("NormalizeAngle(%.4f): expected %.4f, got %.4f", tc.in, tc.want, got)
		}
	}
}

func TestWrapAngleDelta(t *testing.T) {
	cases := []struct{ in, want float64 }{
		{0.5, 0.5},
		{-0.5, -0.5},
		{TwoPi - 0.1, -0.1},
		{-(TwoPi - 0.1), 0.1},
		{math.Pi, math.Pi},
	}
	for _, tc := range cases {
		if got := WrapAngleDelta(tc.in); math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("WrapAngleDelta(%.4f): expected %.4f, got %.4f", tc.in, tc.want, got)
		}
	}
}

func TestPhaseJSONRoundTrip(t *testing.T) {
	original := Phase{Re: 0.6, Im: -0.8}
	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded Phase
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decoded != original {
		t.Errorf("expected %+v, got %+v", original, decoded)
	}
}

func TestCloneHelpers(t *testing.T) {
	meta := map[string]interface{}{"a": 1}
	cloned := CloneMetadata(meta)
	cloned["a"] = 2
	if meta["a"] != 1 {
		t.Error("expected metadata clone to be independent")
	}
	if CloneMetadata(nil) != nil {
		t.Error("expected nil metadata to clone to nil")
	}

	floats := []float64{1, 2, 3}
	fcloned := CloneFloats(floats)
	fcloned[0] = 99
	if floats[0] != 1 {
		t.Error("expected float clone to be independent")
	}
}

func TestFormatCoherence(t *testing.T) {
	if got := FormatCoherence(0.98765); got != "0.988" {
		t.Errorf("expected 0.988, got %q", got)
	}
}
