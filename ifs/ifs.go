// Package ifs describes an iterated function system as a list of flame
// functions: an affine pre-transform, a variation, a selection weight and
// a colour.
//
// Given a variation V, a function with coefficients a..f maps
//
//	F(x, y) = V(a·x + b·y + c, d·x + e·y + f)
//
// A list of functions with distinct names and positive weights defines
// one IFS. The list is validated once, before any kernel is generated.
package ifs

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"

	"github.com/gogpu/flame/variation"
)

// ErrConfiguration is matched (via errors.Is) by every ConfigurationError.
var ErrConfiguration = errors.New("flame: invalid configuration")

// ConfigurationError reports an invalid function list or render setting.
// It is raised before any dispatch is issued.
type ConfigurationError struct {
	// Field names the offending setting, e.g. "functions[1].weight".
	Field string

	// Reason is a short human-readable description.
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return "flame: configuration: " + e.Reason
	}
	return fmt.Sprintf("flame: configuration: %s: %s", e.Field, e.Reason)
}

// Is makes errors.Is(err, ErrConfiguration) succeed.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// Configf builds a ConfigurationError.
func Configf(field, format string, args ...any) error {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Color is an 8-bit RGB triple. Colours are accumulated as integers, so
// the per-pixel average of a single function reproduces it exactly.
type Color struct {
	R, G, B uint8
}

// RGB is shorthand for Color{r, g, b}.
func RGB(r, g, b uint8) Color { return Color{R: r, G: g, B: b} }

// Common colours.
var (
	Cyan    = RGB(0, 255, 255)
	Magenta = RGB(255, 0, 255)
	Black   = RGB(0, 0, 0)
	White   = RGB(255, 255, 255)
)

// Function is one member of an IFS.
type Function struct {
	// Name is a unique identifier, also used as the WGSL function name.
	Name string `json:"name"`

	// Params holds the affine coefficients a, b, c, d, e, f.
	Params [6]float64 `json:"params"`

	// Weight is the relative selection weight; it must be positive.
	Weight float64 `json:"weight"`

	// Variation is applied after the affine pre-transform.
	Variation variation.Kind `json:"variation"`

	// Color is added to every pixel this function lands on.
	Color Color `json:"color"`
}

// Affine applies the pre-transform to (x, y).
func (f *Function) Affine(x, y float64) (float64, float64) {
	p := &f.Params
	return p[0]*x + p[1]*y + p[2], p[3]*x + p[4]*y + p[5]
}

// Validate checks a function list: it must be non-empty, names must be
// unique WGSL identifiers, weights positive and finite, variations known.
func Validate(fns []Function) error {
	if len(fns) == 0 {
		return Configf("functions", "list is empty")
	}

	seen := make(map[string]int, len(fns))
	for i := range fns {
		f := &fns[i]
		field := fmt.Sprintf("functions[%d]", i)

		if !isIdent(f.Name) {
			return Configf(field+".name", "%q is not a valid identifier", f.Name)
		}
		if j, dup := seen[f.Name]; dup {
			return Configf(field+".name", "%q already used by functions[%d]", f.Name, j)
		}
		seen[f.Name] = i

		if math.IsNaN(f.Weight) || math.IsInf(f.Weight, 0) || f.Weight <= 0 {
			return Configf(field+".weight", "must be positive and finite, got %v", f.Weight)
		}
		for k, p := range f.Params {
			if math.IsNaN(p) || math.IsInf(p, 0) {
				return Configf(fmt.Sprintf("%s.params[%d]", field, k), "must be finite, got %v", p)
			}
		}
		if !f.Variation.Valid() {
			return Configf(field+".variation", "unknown variation %s", f.Variation)
		}
	}
	return nil
}

// isIdent reports whether s is usable as a WGSL identifier. Names with a
// leading double underscore are reserved by WGSL.
func isIdent(s string) bool {
	if s == "" || len(s) >= 2 && s[0] == '_' && s[1] == '_' || s == "_" {
		return false
	}
	for i, c := range s {
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return !reserved[s]
}

// reserved lists the WGSL keywords and reserved words, the predeclared
// type generators naga refuses to shadow, the builtins the kernel calls and
// the identifiers the generated kernel already declares.
var reserved = func() map[string]bool {
	m := make(map[string]bool)
	for _, group := range [][]string{
		// keywords
		strings.Fields(`alias break case const const_assert continue continuing
			default diagnostic discard else enable false fn for if let loop
			override requires return struct switch true var while`),

		// reserved words
		strings.Fields(`NULL Self abstract active alignas alignof as asm
			asm_fragment async attribute auto await become binding_array cast
			catch class co_await co_return co_yield coherent column_major common
			compile compile_fragment concept const_cast consteval constexpr
			constinit crate debugger decltype delete demote demote_to_helper do
			dynamic_cast enum explicit export extends extern external
			fallthrough filter final finally friend from fxgroup get goto
			groupshared highp impl implements import inline instanceof interface
			layout lowp macro macro_rules match mediump meta mod module move mut
			mutable namespace new nil noexcept noinline nointerpolation
			non_coherent noncoherent noperspective null nullptr of operator
			package packoffset partition pass patch pixelfragment precise
			precision premerge priv protected pub public readonly ref regardless
			register reinterpret_cast require resource restrict self set shared
			sizeof smooth snorm static static_assert static_cast std subroutine
			super target template this thread_local throw trait try type typedef
			typeid typename typeof union unless unorm unsafe unsized use using
			varying virtual volatile wgsl where with writeonly yield`),

		// predeclared types
		strings.Fields(`array atomic bool f16 f32 i32 u32 ptr bitcast
			vec2 vec3 vec4 vec2i vec3i vec4i vec2u vec3u vec4u vec2f vec3f vec4f
			vec2h vec3h vec4h
			mat2x2 mat2x3 mat2x4 mat3x2 mat3x3 mat3x4 mat4x2 mat4x3 mat4x4
			mat2x2f mat2x3f mat2x4f mat3x2f mat3x3f mat3x4f mat4x2f mat4x3f mat4x4f
			mat2x2h mat2x3h mat2x4h mat3x2h mat3x3h mat3x4h mat4x2h mat4x3h mat4x4h
			sampler sampler_comparison texture_1d texture_2d texture_2d_array
			texture_3d texture_cube texture_cube_array texture_multisampled_2d
			texture_external texture_storage_1d texture_storage_2d
			texture_storage_2d_array texture_storage_3d texture_depth_2d
			texture_depth_2d_array texture_depth_cube texture_depth_cube_array
			texture_depth_multisampled_2d`),

		// builtins
		strings.Fields(`sin cos tan atan atan2 sqrt exp exp2 log log2 pow
			floor abs min max clamp select atomicAdd atomicMax atomicLoad
			atomicStore`),

		// kernel
		strings.Fields(`main select_function plot add_wide rand pcg seed_walker rng_state
			FrameUniforms PI ITERATIONS WARMUP u hist p q c k gid step x y r
			theta`),
	} {
		for _, w := range group {
			m[w] = true
		}
	}
	return m
}()

// RandomParams draws six affine coefficients uniformly from [-1, 1).
func RandomParams(rng *rand.Rand) [6]float64 {
	var p [6]float64
	for i := range p {
		p[i] = rng.Float64()*2 - 1
	}
	return p
}

// DefaultFunctions returns the two-function demo system: a horseshoe with
// weight 5 in cyan and a handkerchief with weight 1 in magenta, both with
// random affine coefficients drawn from rng.
func DefaultFunctions(rng *rand.Rand) []Function {
	return []Function{
		{
			Name:      "f1",
			Params:    RandomParams(rng),
			Weight:    5,
			Variation: variation.Horseshoe,
			Color:     Cyan,
		},
		{
			Name:      "f2",
			Params:    RandomParams(rng),
			Weight:    1,
			Variation: variation.Handkerchief,
			Color:     Magenta,
		},
	}
}
