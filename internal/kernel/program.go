// Package kernel compiles a validated list of flame functions into an
// executable iteration kernel.
//
// A Program carries two renderings of the same compilation. The host form
// (Select, Apply, Color) is evaluated by the CPU sampler; the kernel form
// (WGSL) is a complete compute shader run by the GPU backend. Both use the
// same cumulative selection table and the same per-walker random stream,
// so a walker follows the same orbit on either backend up to float
// rounding.
package kernel

import (
	"fmt"

	"github.com/gogpu/flame/ifs"
)

// Default iteration counts per walker per frame.
const (
	DefaultIterations = 10000
	DefaultWarmup     = 20
)

// Options tunes the generated kernel.
type Options struct {
	// Iterations is the number of chaos-game steps per walker per frame.
	// Zero selects DefaultIterations.
	Iterations int

	// Warmup is the number of leading steps whose points are not plotted.
	// Zero selects DefaultWarmup; use a negative value for no warmup.
	Warmup int
}

func (o Options) resolve() (iters, warmup int, err error) {
	iters, warmup = o.Iterations, o.Warmup
	if iters == 0 {
		iters = DefaultIterations
	}
	switch {
	case warmup == 0:
		warmup = DefaultWarmup
	case warmup < 0:
		warmup = 0
	}
	if iters < 0 {
		return 0, 0, ifs.Configf("iterations", "must be positive, got %d", iters)
	}
	if warmup >= iters {
		return 0, 0, ifs.Configf("warmup", "%d leaves no plotted steps out of %d", warmup, iters)
	}
	return iters, warmup, nil
}

// Program is a compiled IFS. It is immutable and safe for concurrent use.
type Program struct {
	fns     []ifs.Function
	cdf     []float32
	coeffs  [][6]float32
	iters   int
	warmup  int
	wgsl    string
	plotted uint64
}

// Compile validates fns and builds the selection table and the kernel
// source. The returned error is an *ifs.ConfigurationError.
func Compile(fns []ifs.Function, opts Options) (*Program, error) {
	if err := ifs.Validate(fns); err != nil {
		return nil, err
	}
	iters, warmup, err := opts.resolve()
	if err != nil {
		return nil, err
	}

	p := &Program{
		fns:     append([]ifs.Function(nil), fns...),
		cdf:     cumulative(fns),
		coeffs:  make([][6]float32, len(fns)),
		iters:   iters,
		warmup:  warmup,
		plotted: uint64(iters - warmup),
	}
	for i := range fns {
		for k, v := range fns[i].Params {
			p.coeffs[i][k] = float32(v)
		}
	}
	p.wgsl = generate(p)
	return p, nil
}

// cumulative normalises the weights and returns the running sums with the
// final entry forced to exactly 1.
func cumulative(fns []ifs.Function) []float32 {
	var total float64
	for i := range fns {
		total += fns[i].Weight
	}

	cdf := make([]float32, len(fns))
	var run float64
	for i := range fns {
		run += fns[i].Weight / total
		cdf[i] = float32(run)
	}
	cdf[len(cdf)-1] = 1
	return cdf
}

// Len returns the number of functions.
func (p *Program) Len() int { return len(p.fns) }

// Function returns a copy of the i-th function.
func (p *Program) Function(i int) ifs.Function { return p.fns[i] }

// CDF returns a copy of the cumulative selection table.
func (p *Program) CDF() []float32 { return append([]float32(nil), p.cdf...) }

// Iterations returns the step count per walker per frame.
func (p *Program) Iterations() int { return p.iters }

// Warmup returns the number of unplotted leading steps.
func (p *Program) Warmup() int { return p.warmup }

// PlottedPerWalker returns the number of plot attempts a walker makes per
// frame.
func (p *Program) PlottedPerWalker() uint64 { return p.plotted }

// Select returns the smallest index i with r < CDF[i]. It falls back to
// the last function when no bucket matches, which only happens for r >= 1.
func (p *Program) Select(r float32) int {
	for i, c := range p.cdf {
		if r < c {
			return i
		}
	}
	return len(p.cdf) - 1
}

// Apply evaluates function i at (x, y) in float32.
func (p *Program) Apply(i int, x, y float32) (float32, float32) {
	c := &p.coeffs[i]
	ax := c[0]*x + c[1]*y + c[2]
	ay := c[3]*x + c[4]*y + c[5]
	return p.fns[i].Variation.Apply(ax, ay)
}

// Color returns the colour of function i.
func (p *Program) Color(i int) ifs.Color { return p.fns[i].Color }

// WGSL returns the generated compute shader.
func (p *Program) WGSL() string { return p.wgsl }

// String describes the program for logs.
func (p *Program) String() string {
	return fmt.Sprintf("kernel.Program{functions: %d, iterations: %d, warmup: %d}",
		len(p.fns), p.iters, p.warmup)
}
