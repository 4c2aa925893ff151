package flame

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"

	"github.com/gogpu/flame/ifs"
	"github.com/gogpu/flame/internal/filter"
	"github.com/gogpu/flame/internal/kernel"
	"github.com/gogpu/flame/internal/resource"
	"github.com/gogpu/flame/internal/tonemap"
)

// Camera maps attractor space onto the image. A point (x, y) lands on
// pixel ((x·2^LogScale + XOffset + 1)/2 · width, (y·2^LogScale + YOffset + 1)/2 · height).
type Camera struct {
	LogScale float32 `json:"log_scale"`
	XOffset  float32 `json:"x_offset"`
	YOffset  float32 `json:"y_offset"`
}

// Filter is the smoothing applied to the accumulator before tone mapping.
type Filter = filter.Filter

// FilterNone returns the identity filter.
func FilterNone() Filter { return filter.None() }

// FilterBox returns a box filter of the given radius.
func FilterBox(radius int) Filter { return filter.Box(radius) }

// FilterGaussian returns a Gaussian filter of the given standard deviation.
func FilterGaussian(sigma float64) Filter { return filter.Gaussian(sigma) }

// ParseFilter parses "none", "box:R" or "gaussian:SIGMA".
func ParseFilter(s string) (Filter, error) {
	name, arg, _ := strings.Cut(strings.ToLower(strings.TrimSpace(s)), ":")
	switch name {
	case "", "none":
		return FilterNone(), nil
	case "box":
		r, err := strconv.Atoi(arg)
		if err != nil {
			return Filter{}, ifs.Configf("filter", "box radius %q: %v", arg, err)
		}
		return FilterBox(r), nil
	case "gaussian":
		sigma, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return Filter{}, ifs.Configf("filter", "gaussian sigma %q: %v", arg, err)
		}
		return FilterGaussian(sigma), nil
	default:
		return Filter{}, ifs.Configf("filter", "unknown filter %q", s)
	}
}

// Config holds the settings fixed for the life of a Renderer.
type Config struct {
	// Width and Height are the presentation size in pixels.
	Width, Height int

	// Resolution is the number of walkers per side; res² walkers run
	// every frame. It is independent of the image size.
	Resolution int

	// Camera is the initial camera; see Renderer.SetCamera.
	Camera Camera

	// Iterations is the number of chaos-game steps per walker per frame,
	// of which the first Warmup are not plotted.
	Iterations int
	Warmup     int

	// Gamma is the display gamma of the tone mapper.
	Gamma float32

	// Background fills pixels no walker has reached.
	Background color.RGBA

	Filter Filter

	// Supersample accumulates at Supersample× the presentation size and
	// scales the tone-mapped frame down for display. 0 means 1.
	Supersample int
}

// DefaultConfig returns a 512×512 render with 256×256 walkers.
func DefaultConfig() Config {
	return Config{
		Width:       512,
		Height:      512,
		Resolution:  256,
		Iterations:  kernel.DefaultIterations,
		Warmup:      kernel.DefaultWarmup,
		Gamma:       tonemap.DefaultGamma,
		Background:  color.RGBA{A: 0xff},
		Filter:      FilterNone(),
		Supersample: 1,
	}
}

// maxDimension bounds the accumulation size on either axis.
const maxDimension = 16384

// Validate reports the first invalid setting as a ConfigurationError.
func (c *Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return ifs.Configf("size", "must be positive, got %dx%d", c.Width, c.Height)
	}
	if c.Resolution <= 0 {
		return ifs.Configf("resolution", "must be positive, got %d", c.Resolution)
	}
	if c.Supersample < 0 {
		return ifs.Configf("supersample", "must not be negative, got %d", c.Supersample)
	}
	if w, h := c.accumSize(); w > maxDimension || h > maxDimension {
		return ifs.Configf("supersample", "accumulation size %dx%d exceeds %d", w, h, maxDimension)
	}
	if !(c.Gamma > 0) || math.IsInf(float64(c.Gamma), 0) {
		return ifs.Configf("gamma", "must be positive and finite, got %v", c.Gamma)
	}
	for name, v := range map[string]float32{
		"camera.log_scale": c.Camera.LogScale,
		"camera.x_offset":  c.Camera.XOffset,
		"camera.y_offset":  c.Camera.YOffset,
	} {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return ifs.Configf(name, "must be finite, got %v", v)
		}
	}
	return c.Filter.Validate()
}

func (c *Config) supersample() int { return max(c.Supersample, 1) }

// accumSize returns the size of the accumulation buffers.
func (c *Config) accumSize() (int, int) {
	k := c.supersample()
	return c.Width * k, c.Height * k
}

func (c *Config) kernelOptions() kernel.Options {
	return kernel.Options{Iterations: c.Iterations, Warmup: c.Warmup}
}

func (c *Config) tonemapBackground() [4]float32 {
	return [4]float32{
		float32(c.Background.R) / 255,
		float32(c.Background.G) / 255,
		float32(c.Background.B) / 255,
		1,
	}
}

// uniforms builds the frame constants for cam and seed.
func (c *Config) uniforms(cam Camera, seed uint32) resource.FrameUniforms {
	w, h := c.accumSize()
	return resource.FrameUniforms{
		Width:      uint32(w),
		Height:     uint32(h),
		RNGSeed:    seed,
		Resolution: uint32(c.Resolution),
		LogScale:   cam.LogScale,
		XOffset:    cam.XOffset,
		YOffset:    cam.YOffset,
		Gamma:      c.Gamma,
		Background: c.tonemapBackground(),
	}
}

func (c Camera) String() string {
	return fmt.Sprintf("scale 2^%g offset (%g, %g)", c.LogScale, c.XOffset, c.YOffset)
}
