package variation

import (
	"math"
	"strings"
	"testing"

	"github.com/chewxy/math32"
)

func TestKindString(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{Linear, "linear"},
		{Sinusoidal, "sinusoidal"},
		{Spherical, "spherical"},
		{Horseshoe, "horseshoe"},
		{Handkerchief, "handkerchief"},
		{Diamond, "diamond"},
		{Kind(-1), "Unknown(-1)"},
		{kindCount, "Unknown(12)"},
	}

	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("Kind(%d).String() = %q, want %q", int(tt.kind), got, tt.want)
		}
	}
}

func TestParse(t *testing.T) {
	for _, k := range All() {
		got, err := Parse(strings.ToUpper(k.String()))
		if err != nil {
			t.Fatalf("Parse(%q) error: %v", k, err)
		}
		if got != k {
			t.Errorf("Parse(%q) = %v, want %v", k, got, k)
		}
	}

	if got, err := Parse(" identity "); err != nil || got != Identity {
		t.Errorf("Parse(identity) = %v, %v; want Linear, nil", got, err)
	}

	if _, err := Parse("julia"); err == nil {
		t.Error("Parse(julia) should fail")
	}
}

func TestTextRoundTrip(t *testing.T) {
	var k Kind
	if err := k.UnmarshalText([]byte("handkerchief")); err != nil {
		t.Fatalf("UnmarshalText: %v", err)
	}
	if k != Handkerchief {
		t.Errorf("got %v, want handkerchief", k)
	}
	if _, err := Kind(99).MarshalText(); err == nil {
		t.Error("MarshalText on undefined kind should fail")
	}
}

func TestEveryKindHasWGSL(t *testing.T) {
	for _, k := range All() {
		x, y := k.WGSL()
		if x == "" || y == "" {
			t.Errorf("%v: missing WGSL expression", k)
		}
	}
	if x, y := Kind(42).WGSL(); x != "" || y != "" {
		t.Error("undefined kind should have no WGSL")
	}
}

func TestIdentity(t *testing.T) {
	pts := [][2]float32{{0, 0}, {0.5, -0.25}, {-3, 7}}
	for _, p := range pts {
		x, y := Identity.Apply(p[0], p[1])
		if x != p[0] || y != p[1] {
			t.Errorf("Identity.Apply(%v) = (%v, %v)", p, x, y)
		}
	}
}

func TestApplyKnownValues(t *testing.T) {
	const eps = 1e-5
	x, y := float32(0.6), float32(0.8) // r = 1
	r := float32(1)
	theta := math32.Atan2(x, y)

	tests := []struct {
		kind   Kind
		wx, wy float32
	}{
		{Sinusoidal, math32.Sin(x), math32.Sin(y)},
		{Spherical, x, y},
		{Horseshoe, (x - y) * (x + y), 2 * x * y},
		{Polar, theta / math32.Pi, 0},
		{Handkerchief, r * math32.Sin(theta+r), r * math32.Cos(theta-r)},
		{Hyperbolic, math32.Sin(theta), math32.Cos(theta)},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			gx, gy := tt.kind.Apply(x, y)
			if math.Abs(float64(gx-tt.wx)) > eps || math.Abs(float64(gy-tt.wy)) > eps {
				t.Errorf("Apply = (%v, %v), want (%v, %v)", gx, gy, tt.wx, tt.wy)
			}
		})
	}
}

func TestSphericalAtOriginIsNotFinite(t *testing.T) {
	x, y := Spherical.Apply(0, 0)
	if !math32.IsNaN(x) && !math32.IsInf(x, 0) {
		t.Errorf("Spherical at origin x = %v, want NaN or Inf", x)
	}
	if !math32.IsNaN(y) && !math32.IsInf(y, 0) {
		t.Errorf("Spherical at origin y = %v, want NaN or Inf", y)
	}
}

func BenchmarkApply(b *testing.B) {
	for _, k := range []Kind{Linear, Horseshoe, Handkerchief, Swirl} {
		b.Run(k.String(), func(b *testing.B) {
			x, y := float32(0.3), float32(-0.2)
			for i := 0; i < b.N; i++ {
				x, y = k.Apply(x*0.5+0.1, y*0.5-0.1)
			}
			_, _ = x, y
		})
	}
}
