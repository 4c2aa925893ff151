package filter

import (
	"fmt"
	"math"

	"github.com/gogpu/flame/ifs"
	"github.com/gogpu/flame/internal/parallel"
	"github.com/gogpu/flame/internal/resource"
)

// Kind selects the filter shape.
type Kind uint8

const (
	// KindNone copies A to O unchanged.
	KindNone Kind = iota

	// KindBox averages a (2r+1)² neighbourhood.
	KindBox

	// KindGaussian weighs neighbours by a Gaussian of the given sigma.
	KindGaussian
)

// Filter describes the filter stage. The zero value is None.
type Filter struct {
	Kind   Kind
	Radius int     // box
	Sigma  float64 // gaussian
}

// None returns the identity filter.
func None() Filter { return Filter{} }

// Box returns a box filter of the given radius.
func Box(radius int) Filter { return Filter{Kind: KindBox, Radius: radius} }

// Gaussian returns a Gaussian filter with standard deviation sigma.
func Gaussian(sigma float64) Filter { return Filter{Kind: KindGaussian, Sigma: sigma} }

// String formats the filter for logs and flags.
func (f Filter) String() string {
	switch f.Kind {
	case KindNone:
		return "none"
	case KindBox:
		return fmt.Sprintf("box(%d)", f.Radius)
	case KindGaussian:
		return fmt.Sprintf("gaussian(%g)", f.Sigma)
	default:
		return fmt.Sprintf("Kind(%d)", f.Kind)
	}
}

// Validate rejects negative sizes and kernels longer than the device
// tap buffer.
func (f Filter) Validate() error {
	switch f.Kind {
	case KindNone:
		return nil
	case KindBox:
		if f.Radius < 0 {
			return ifs.Configf("filter.radius", "must not be negative, got %d", f.Radius)
		}
		if 2*f.Radius+1 > resource.MaxFilterTaps {
			return ifs.Configf("filter.radius", "%d exceeds the %d-tap limit", f.Radius, resource.MaxFilterTaps)
		}
	case KindGaussian:
		if math.IsNaN(f.Sigma) || math.IsInf(f.Sigma, 0) || f.Sigma < 0 {
			return ifs.Configf("filter.sigma", "must be finite and not negative, got %v", f.Sigma)
		}
		if KernelSize(f.Sigma) > resource.MaxFilterTaps {
			return ifs.Configf("filter.sigma", "%v exceeds the %d-tap limit", f.Sigma, resource.MaxFilterTaps)
		}
	default:
		return ifs.Configf("filter.kind", "unknown filter kind %d", f.Kind)
	}
	return nil
}

// Taps returns the 1-D kernel. The identity filter has the single tap [1].
func (f Filter) Taps() []float32 {
	switch f.Kind {
	case KindBox:
		return BoxKernel(f.Radius)
	case KindGaussian:
		return kernels.get(f.Sigma)
	default:
		return []float32{1}
	}
}

// Identity reports whether the filter leaves A unchanged.
func (f Filter) Identity() bool { return len(f.Taps()) == 1 }

// rowChunk is the number of rows handed to one pool invocation.
const rowChunk = 8

// Apply filters the accumulator src into dst. Both hold width*height
// pixels of resource.Channels values; scratch must be as large as dst.
// src, scratch and dst must not overlap.
func (f Filter) Apply(pool *parallel.Pool, dst, scratch []float32, src []uint64, width, height int) {
	n := width * height * resource.Channels
	src, dst, scratch = src[:n], dst[:n], scratch[:n]

	taps := f.Taps()
	if len(taps) == 1 {
		pool.DispatchRange(n, resource.LinearWorkgroup*resource.Channels, func(lo, hi int) {
			for i := lo; i < hi; i++ {
				dst[i] = float32(src[i])
			}
		})
		return
	}

	half := len(taps) / 2
	stride := width * resource.Channels

	// Horizontal: src -> scratch.
	pool.DispatchRange(height, rowChunk, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			row := y * stride
			for x := 0; x < width; x++ {
				var acc [resource.Channels]float32
				for t, w := range taps {
					sx := x + t - half
					if sx < 0 || sx >= width {
						continue
					}
					s := row + sx*resource.Channels
					for c := range acc {
						acc[c] += w * float32(src[s+c])
					}
				}
				copy(scratch[row+x*resource.Channels:], acc[:])
			}
		}
	})

	// Vertical: scratch -> dst.
	pool.DispatchRange(height, rowChunk, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 0; x < width; x++ {
				var acc [resource.Channels]float32
				for t, w := range taps {
					sy := y + t - half
					if sy < 0 || sy >= height {
						continue
					}
					s := sy*stride + x*resource.Channels
					for c := range acc {
						acc[c] += w * scratch[s+c]
					}
				}
				copy(dst[y*stride+x*resource.Channels:], acc[:])
			}
		}
	})
}
