package cpu

import (
	"context"
	"fmt"
	"image"
	"math"
	"slices"
	"testing"

	"github.com/gogpu/flame/ifs"
	"github.com/gogpu/flame/internal/accum"
	"github.com/gogpu/flame/internal/filter"
	"github.com/gogpu/flame/internal/kernel"
	"github.com/gogpu/flame/internal/pipeline"
	"github.com/gogpu/flame/internal/resource"
	"github.com/gogpu/flame/variation"
)

const (
	testSize       = 32
	testResolution = 16
	testIterations = 1000
	testWarmup     = 20
)

// contractive returns two linear maps that keep every point inside
// [-0.75, 0.75]², so an identity camera sees every plotted point.
func contractive() []ifs.Function {
	return []ifs.Function{
		{
			Name:      "up",
			Params:    [6]float64{0.5, 0, 0.25, 0, 0.5, 0.25},
			Weight:    5,
			Variation: variation.Linear,
			Color:     ifs.Cyan,
		},
		{
			Name:      "down",
			Params:    [6]float64{0.5, 0, -0.25, 0, 0.5, -0.25},
			Weight:    1,
			Variation: variation.Linear,
			Color:     ifs.Magenta,
		},
	}
}

func newTestBackend(t *testing.T, fns []ifs.Function) *Backend {
	t.Helper()
	return newSizedBackend(t, fns, testSize, testIterations)
}

func newSizedBackend(t *testing.T, fns []ifs.Function, size, iterations int) *Backend {
	t.Helper()
	prog, err := kernel.Compile(fns, kernel.Options{Iterations: iterations, Warmup: testWarmup})
	if err != nil {
		t.Fatal(err)
	}
	b, err := New(prog, Config{Width: size, Height: size, Workers: 4})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func frame(index uint64, seed uint32, state accum.State) *pipeline.FrameInput {
	return sizedFrame(index, seed, state, testSize, testResolution)
}

func sizedFrame(index uint64, seed uint32, state accum.State, size, res uint32) *pipeline.FrameInput {
	return &pipeline.FrameInput{
		Index: index,
		State: state,
		Uniforms: resource.FrameUniforms{
			Width:      size,
			Height:     size,
			RNGSeed:    seed,
			Resolution: res,
			Gamma:      2.2,
			Background: [4]float32{0, 0, 0, 1},
		},
	}
}

func run(t *testing.T, b *Backend, in *pipeline.FrameInput) {
	t.Helper()
	if err := pipeline.NewScheduler(b, slogger).RunFrame(context.Background(), in); err != nil {
		t.Fatal(err)
	}
}

func snapshot(t *testing.T, b *Backend) pipeline.Snapshot {
	t.Helper()
	s, err := b.Snapshot(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	return s
}

const plotsPerFrame = testResolution * testResolution * (testIterations - testWarmup)

// =============================================================================
// Accumulation properties
// =============================================================================

func TestHitConservation(t *testing.T) {
	b := newTestBackend(t, contractive())

	const frames = 3
	for i := range uint64(frames) {
		run(t, b, frame(i, uint32(100+i), accum.Accumulating))
	}

	s := snapshot(t, b)
	if s.Stats.TotalHits != frames*plotsPerFrame {
		t.Errorf("TotalHits = %d, want %d", s.Stats.TotalHits, frames*plotsPerFrame)
	}
	if s.Stats.Dropped != 0 {
		t.Errorf("Dropped = %d, want 0", s.Stats.Dropped)
	}
	if s.Stats.Frames != frames {
		t.Errorf("Frames = %d, want %d", s.Stats.Frames, frames)
	}
}

func TestOutOfViewCamera(t *testing.T) {
	b := newTestBackend(t, contractive())

	in := frame(0, 1, accum.Accumulating)
	in.Uniforms.XOffset = 10
	run(t, b, in)

	s := snapshot(t, b)
	for i, v := range s.Accumulator {
		if v != 0 {
			t.Fatalf("Accumulator[%d] = %d, want 0", i, v)
		}
	}
	if s.Stats.MaxHits != 0 {
		t.Errorf("MaxHits = %d, want 0", s.Stats.MaxHits)
	}
	if s.Stats.Dropped != plotsPerFrame {
		t.Errorf("Dropped = %d, want %d", s.Stats.Dropped, plotsPerFrame)
	}

	// Every pixel is background.
	img := image.NewRGBA(image.Rect(0, 0, testSize, testSize))
	if err := b.Present(img); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < len(img.Pix); i += 4 {
		if img.Pix[i] != 0 || img.Pix[i+1] != 0 || img.Pix[i+2] != 0 || img.Pix[i+3] != 0xff {
			t.Fatalf("pixel %d = %v, want opaque black", i/4, img.Pix[i:i+4])
		}
	}
}

func TestNonFinitePointsAreDropped(t *testing.T) {
	// Spherical at the origin is non-finite; a map collapsing to the
	// origin makes every point NaN or Inf.
	fns := []ifs.Function{{
		Name:      "collapse",
		Params:    [6]float64{0, 0, 0, 0, 0, 0},
		Weight:    1,
		Variation: variation.Spherical,
		Color:     ifs.White,
	}}
	b := newTestBackend(t, fns)
	run(t, b, frame(0, 9, accum.Accumulating))

	s := snapshot(t, b)
	if s.Stats.TotalHits != 0 {
		t.Errorf("TotalHits = %d, want 0", s.Stats.TotalHits)
	}
	if s.Stats.Dropped != plotsPerFrame {
		t.Errorf("Dropped = %d, want %d", s.Stats.Dropped, plotsPerFrame)
	}
}

func TestMaxHitsMonotone(t *testing.T) {
	b := newTestBackend(t, contractive())

	var prev uint32
	for i := range uint64(4) {
		run(t, b, frame(i, uint32(7*i+1), accum.Accumulating))
		s := snapshot(t, b)

		if s.Stats.MaxHits < prev {
			t.Fatalf("frame %d: MaxHits fell from %d to %d", i, prev, s.Stats.MaxHits)
		}
		prev = s.Stats.MaxHits

		var peak uint64
		for p := 0; p < len(s.Accumulator); p += resource.Channels {
			peak = max(peak, s.Accumulator[p])
		}
		if uint64(s.Stats.MaxHits) != peak {
			t.Fatalf("frame %d: MaxHits = %d, accumulator peak = %d", i, s.Stats.MaxHits, peak)
		}
	}
}

func TestResetIdempotence(t *testing.T) {
	const seed = 4242

	fresh := newTestBackend(t, contractive())
	run(t, fresh, frame(0, seed, accum.Clearing))
	want := snapshot(t, fresh)

	used := newTestBackend(t, contractive())
	for i := range uint64(3) {
		run(t, used, frame(i, uint32(i+1), accum.Accumulating))
	}
	run(t, used, frame(3, seed, accum.Clearing))
	afterReset := snapshot(t, used)

	run(t, used, frame(4, seed, accum.Clearing))
	afterSecondReset := snapshot(t, used)

	for name, got := range map[string]pipeline.Snapshot{"reset": afterReset, "second reset": afterSecondReset} {
		if !slices.Equal(got.Accumulator, want.Accumulator) {
			t.Errorf("%s: accumulator differs from a fresh clearing frame", name)
		}
		if got.Stats != want.Stats {
			t.Errorf("%s: stats = %+v, want %+v", name, got.Stats, want.Stats)
		}
	}
	if want.Stats.Frames != 1 {
		t.Errorf("Frames after clearing = %d, want 1", want.Stats.Frames)
	}
}

// pointAttractor maps every point to (0.01, 0.01), which an identity camera
// on an 8×8 image bins into pixel (4, 4).
func pointAttractor(colors ...ifs.Color) []ifs.Function {
	fns := make([]ifs.Function, len(colors))
	for i, c := range colors {
		fns[i] = ifs.Function{
			Name:      fmt.Sprintf("f%d", i),
			Params:    [6]float64{0, 0, 0.01, 0, 0, 0.01},
			Weight:    float64(5 - 4*i),
			Variation: variation.Linear,
			Color:     c,
		}
	}
	return fns
}

// hotResolution puts more than 2³²/255 hits into one pixel per frame.
const (
	hotSize       = 8
	hotResolution = 48
	hotIterations = 10000
	hotPlots      = hotResolution * hotResolution * (hotIterations - testWarmup)
)

func TestColourAveragingExact(t *testing.T) {
	tests := []struct {
		name   string
		fns    []ifs.Function
		size   int
		iters  int
		res    uint32
		frames int
	}{
		{"spread", contractive(), testSize, testIterations, testResolution, 2},
		{"hot pixel", pointAttractor(ifs.Cyan, ifs.Magenta), hotSize, hotIterations, hotResolution, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.res == hotResolution && testing.Short() {
				t.Skip("skipping hot pixel accumulation in short mode")
			}
			b := newSizedBackend(t, tt.fns, tt.size, tt.iters)
			for i := range tt.frames {
				run(t, b, sizedFrame(uint64(i), uint32(77+i), accum.Accumulating, uint32(tt.size), tt.res))
			}

			s := snapshot(t, b)
			for p := 0; p < len(s.Accumulator); p += resource.Channels {
				hits, r, g, bl := s.Accumulator[p], s.Accumulator[p+1], s.Accumulator[p+2], s.Accumulator[p+3]
				// cyan = (0, 255, 255), magenta = (255, 0, 255)
				if bl != 255*hits {
					t.Fatalf("pixel %d: blue sum %d, want %d", p/4, bl, 255*hits)
				}
				if r+g != 255*hits || r%255 != 0 {
					t.Fatalf("pixel %d: red %d + green %d inconsistent with %d hits", p/4, r, g, hits)
				}
			}
		})
	}
}

func TestColourSumsPastUint32(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping hot pixel accumulation in short mode")
	}
	b := newSizedBackend(t, pointAttractor(ifs.White), hotSize, hotIterations)
	run(t, b, sizedFrame(0, 5, accum.Clearing, hotSize, hotResolution))

	s := snapshot(t, b)
	px := (4*hotSize + 4) * resource.Channels
	hits := s.Accumulator[px]
	if hits != hotPlots {
		t.Fatalf("hits = %d, want %d", hits, hotPlots)
	}
	if 255*hits <= math.MaxUint32 {
		t.Fatalf("colour sum %d does not exceed 32 bits", 255*hits)
	}
	for c := 1; c < resource.Channels; c++ {
		if got := s.Accumulator[px+c]; got != 255*hits {
			t.Errorf("channel %d sum = %d, want %d", c, got, 255*hits)
		}
	}

	img := image.NewRGBA(image.Rect(0, 0, hotSize, hotSize))
	if err := b.Present(img); err != nil {
		t.Fatal(err)
	}
	if got := img.RGBAAt(4, 4); got.R != 255 || got.G != 255 || got.B != 255 {
		t.Errorf("hot pixel = %v, want white", got)
	}
}

// TestTwoFunctionScene checks that the share of hits landing from each
// function matches the selection weights, 5:1.
func TestTwoFunctionScene(t *testing.T) {
	b := newTestBackend(t, contractive())
	for i := range uint64(2) {
		run(t, b, frame(i, uint32(31+i), accum.Accumulating))
	}

	s := snapshot(t, b)
	var hits, green uint64
	for p := 0; p < len(s.Accumulator); p += resource.Channels {
		hits += s.Accumulator[p]
		green += s.Accumulator[p+2]
	}
	cyanShare := float64(green) / 255 / float64(hits)
	if math.Abs(cyanShare-5.0/6) > 0.01 {
		t.Errorf("cyan share = %.4f, want 5/6 within 1%%", cyanShare)
	}

	img := image.NewRGBA(image.Rect(0, 0, testSize, testSize))
	if err := b.Present(img); err != nil {
		t.Fatal(err)
	}
	lit := 0
	for i := 0; i < len(img.Pix); i += 4 {
		if img.Pix[i+2] > 0 {
			lit++
		}
	}
	if lit == 0 {
		t.Error("presented image is entirely background")
	}
}

// TestHorseshoeHandkerchiefScene runs the demo system with fixed
// coefficients. Both affine maps contract by 0.5 around a small offset, so
// every point stays within radius 0.7 and the identity camera sees all of
// them; cyan must then own 5/6 of the colour mass.
func TestHorseshoeHandkerchiefScene(t *testing.T) {
	fns := []ifs.Function{
		{
			Name:      "f1",
			Params:    [6]float64{0.5, 0, 0.1, 0, 0.5, 0.1},
			Weight:    5,
			Variation: variation.Horseshoe,
			Color:     ifs.Cyan,
		},
		{
			Name:      "f2",
			Params:    [6]float64{0.5, 0, -0.1, 0, 0.5, -0.1},
			Weight:    1,
			Variation: variation.Handkerchief,
			Color:     ifs.Magenta,
		},
	}
	b := newTestBackend(t, fns)
	run(t, b, frame(0, 11, accum.Clearing))
	run(t, b, frame(1, 12, accum.Accumulating))

	s := snapshot(t, b)
	if s.Stats.TotalHits != 2*plotsPerFrame || s.Stats.Dropped != 0 {
		t.Fatalf("TotalHits = %d, Dropped = %d; want %d, 0", s.Stats.TotalHits, s.Stats.Dropped, 2*plotsPerFrame)
	}

	var red, green uint64
	for p := 0; p < len(s.Accumulator); p += resource.Channels {
		red += s.Accumulator[p+1]
		green += s.Accumulator[p+2]
	}
	cyanShare := float64(green) / float64(red+green)
	if math.Abs(cyanShare-5.0/6) > 0.01 {
		t.Errorf("cyan share = %.4f, want 5/6 within 1%%", cyanShare)
	}
}

func TestDeterministicPerSeed(t *testing.T) {
	a := newTestBackend(t, contractive())
	b := newTestBackend(t, contractive())
	run(t, a, frame(0, 555, accum.Accumulating))
	run(t, b, frame(0, 555, accum.Accumulating))

	if !slices.Equal(snapshot(t, a).Accumulator, snapshot(t, b).Accumulator) {
		t.Error("same seed produced different accumulators")
	}
}

// =============================================================================
// Configuration
// =============================================================================

func TestNewRejectsBadSize(t *testing.T) {
	prog, err := kernel.Compile(contractive(), kernel.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := New(prog, Config{Width: 0, Height: 10}); err == nil {
		t.Error("New accepted a zero width")
	}
	if _, err := New(prog, Config{Width: 4, Height: 4, Filter: filter.Box(-1)}); err == nil {
		t.Error("New accepted a negative filter radius")
	}
}

func TestBeginFrameRejectsSizeMismatch(t *testing.T) {
	b := newTestBackend(t, contractive())
	in := frame(0, 1, accum.Accumulating)
	in.Uniforms.Width = testSize * 2
	if err := b.BeginFrame(context.Background(), in); err == nil {
		t.Error("BeginFrame accepted mismatched uniforms")
	}
}

func TestFilteredFrame(t *testing.T) {
	prog, err := kernel.Compile(contractive(), kernel.Options{Iterations: 200, Warmup: 20})
	if err != nil {
		t.Fatal(err)
	}
	b, err := New(prog, Config{Width: testSize, Height: testSize, Filter: filter.Gaussian(1)})
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	run(t, b, frame(0, 3, accum.Accumulating))

	// Filtering smooths O but leaves the accumulator untouched.
	var sum uint64
	s := snapshot(t, b)
	for p := 0; p < len(s.Accumulator); p += resource.Channels {
		sum += s.Accumulator[p]
	}
	if sum != testResolution*testResolution*180 {
		t.Errorf("TotalHits = %d, want %d", sum, testResolution*testResolution*180)
	}
}

func BenchmarkSample(b *testing.B) {
	prog, err := kernel.Compile(contractive(), kernel.Options{Iterations: 1000})
	if err != nil {
		b.Fatal(err)
	}
	be, err := New(prog, Config{Width: 256, Height: 256})
	if err != nil {
		b.Fatal(err)
	}
	defer be.Close()

	in := frame(0, 1, accum.Accumulating)
	in.Uniforms.Width, in.Uniforms.Height = 256, 256
	ctx := context.Background()
	for i := 0; i < b.N; i++ {
		if err := be.BeginFrame(ctx, in); err != nil {
			b.Fatal(err)
		}
		be.sample()
	}
}
