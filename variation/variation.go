// Package variation defines the closed set of nonlinear R² -> R² mappings
// ("variations") that a flame function applies after its affine
// pre-transform.
//
// Every variation is available in two equivalent forms: a float32 host
// implementation ([Kind.Apply]) used by the CPU sampler, and a pair of WGSL
// expressions ([Kind.WGSL]) spliced into the generated compute kernel. Both
// forms are written against the same derived quantities:
//
//	r     = sqrt(x² + y²)
//	theta = atan2(x, y)
//
// Note the argument order of theta: it follows the flam3 convention, not
// the usual atan2(y, x).
package variation

import (
	"fmt"
	"strings"

	"github.com/chewxy/math32"
)

// Kind identifies one variation. The zero value is Linear, the identity.
type Kind int

const (
	// Linear is the identity mapping (x, y).
	Linear Kind = iota

	// Sinusoidal maps to (sin x, sin y).
	Sinusoidal

	// Spherical maps to (x/r, y/r).
	Spherical

	// Swirl rotates by r².
	Swirl

	// Horseshoe maps to ((x-y)(x+y)/r, 2xy/r).
	Horseshoe

	// Polar maps to (theta/π, r-1).
	Polar

	// Handkerchief maps to (r sin(theta+r), r cos(theta-r)).
	Handkerchief

	// Heart maps to (r sin(theta r), -r cos(theta r)).
	Heart

	// Disc maps to (theta/π sin(πr), theta/π cos(πr)).
	Disc

	// Spiral maps to ((cos theta + sin r)/r, (sin theta - cos r)/r).
	Spiral

	// Hyperbolic maps to (sin theta / r, r cos theta).
	Hyperbolic

	// Diamond maps to (sin theta cos r, cos theta sin r).
	Diamond

	// kindCount is the number of defined kinds.
	kindCount
)

// Identity is the neutral variation for composition.
const Identity = Linear

var names = [kindCount]string{
	Linear:       "linear",
	Sinusoidal:   "sinusoidal",
	Spherical:    "spherical",
	Swirl:        "swirl",
	Horseshoe:    "horseshoe",
	Polar:        "polar",
	Handkerchief: "handkerchief",
	Heart:        "heart",
	Disc:         "disc",
	Spiral:       "spiral",
	Hyperbolic:   "hyperbolic",
	Diamond:      "diamond",
}

// wgslExprs holds the WGSL source of each component. Expressions may refer
// to x, y, r, theta and the PI constant declared by the kernel header.
var wgslExprs = [kindCount][2]string{
	Linear:       {"x", "y"},
	Sinusoidal:   {"sin(x)", "sin(y)"},
	Spherical:    {"x * sqrt(1.0 / (r * r))", "y * sqrt(1.0 / (r * r))"},
	Swirl:        {"x * sin(r * r) - y * cos(r * r)", "x * cos(r * r) + y * sin(r * r)"},
	Horseshoe:    {"(x - y) * (x + y) / r", "2.0 * x * y / r"},
	Polar:        {"theta / PI", "r - 1.0"},
	Handkerchief: {"r * sin(theta + r)", "r * cos(theta - r)"},
	Heart:        {"r * sin(theta * r)", "-r * cos(theta * r)"},
	Disc:         {"theta / PI * sin(PI * r)", "theta / PI * cos(PI * r)"},
	Spiral:       {"(cos(theta) + sin(r)) / r", "(sin(theta) - cos(r)) / r"},
	Hyperbolic:   {"sin(theta) / r", "r * cos(theta)"},
	Diamond:      {"sin(theta) * cos(r)", "cos(theta) * sin(r)"},
}

// All returns every defined variation in declaration order.
func All() []Kind {
	out := make([]Kind, kindCount)
	for i := range out {
		out[i] = Kind(i)
	}
	return out
}

// Valid reports whether k is a defined variation.
func (k Kind) Valid() bool {
	return k >= 0 && k < kindCount
}

// String returns the lower-case name used in scene files.
func (k Kind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
	return names[k]
}

// Parse looks a variation up by name. Matching is case-insensitive and
// accepts "identity" as an alias for linear.
func Parse(name string) (Kind, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "identity" {
		return Linear, nil
	}
	for i, s := range names {
		if s == n {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("variation: unknown variation %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("variation: cannot marshal %s", k)
	}
	return []byte(names[k]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	v, err := Parse(string(text))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// WGSL returns the WGSL expressions of the x and y components.
// It returns empty strings for an undefined kind.
func (k Kind) WGSL() (exprX, exprY string) {
	if !k.Valid() {
		return "", ""
	}
	e := wgslExprs[k]
	return e[0], e[1]
}

// Apply evaluates the variation at (x, y) in float32, mirroring the WGSL
// kernel. Degenerate inputs (r = 0 for the divisive variations) produce
// Inf or NaN exactly like the GPU does; callers drop non-finite points.
func (k Kind) Apply(x, y float32) (float32, float32) {
	r := math32.Sqrt(x*x + y*y)
	theta := math32.Atan2(x, y)

	switch k {
	case Linear:
		return x, y
	case Sinusoidal:
		return math32.Sin(x), math32.Sin(y)
	case Spherical:
		inv := math32.Sqrt(1 / (r * r))
		return x * inv, y * inv
	case Swirl:
		s, c := math32.Sincos(r * r)
		return x*s - y*c, x*c + y*s
	case Horseshoe:
		return (x - y) * (x + y) / r, 2 * x * y / r
	case Polar:
		return theta / math32.Pi, r - 1
	case Handkerchief:
		return r * math32.Sin(theta+r), r * math32.Cos(theta-r)
	case Heart:
		s, c := math32.Sincos(theta * r)
		return r * s, -r * c
	case Disc:
		s, c := math32.Sincos(math32.Pi * r)
		t := theta / math32.Pi
		return t * s, t * c
	case Spiral:
		st, ct := math32.Sincos(theta)
		sr, cr := math32.Sincos(r)
		return (ct + sr) / r, (st - cr) / r
	case Hyperbolic:
		st, ct := math32.Sincos(theta)
		return st / r, r * ct
	case Diamond:
		st, ct := math32.Sincos(theta)
		sr, cr := math32.Sincos(r)
		return st * cr, ct * sr
	default:
		return x, y
	}
}
