package flame

import (
	"math/rand/v2"
	"strconv"

	"github.com/gogpu/flame/ifs"
	"github.com/gogpu/flame/variation"
)

// Function is one map of the system; see ifs.Function.
type Function = ifs.Function

// Color is an 8-bit RGB triple.
type Color = ifs.Color

// Variation names the nonlinear part of a Function.
type Variation = variation.Kind

// Predefined colours.
var (
	Cyan    = ifs.Cyan
	Magenta = ifs.Magenta
	Black   = ifs.Black
	White   = ifs.White
)

// DefaultFunctions returns the two-function demo system: a horseshoe with
// weight 5 in cyan and a handkerchief with weight 1 in magenta, with
// affine coefficients drawn from rng.
func DefaultFunctions(rng *rand.Rand) []Function { return ifs.DefaultFunctions(rng) }

// RandomFunctions returns n functions with random coefficients, cycling
// through the variations and a small palette.
func RandomFunctions(rng *rand.Rand, n int) []Function {
	kinds := variation.All()
	palette := []Color{ifs.Cyan, ifs.Magenta, ifs.RGB(0xff, 0xc0, 0x40), ifs.RGB(0x60, 0xff, 0x80)}
	fns := make([]Function, n)
	for i := range fns {
		fns[i] = Function{
			Name:      "f" + strconv.Itoa(i+1),
			Params:    ifs.RandomParams(rng),
			Weight:    1 + rng.Float64()*4,
			Variation: kinds[rng.IntN(len(kinds))],
			Color:     palette[i%len(palette)],
		}
	}
	return fns
}
