// Package tonemap turns the filtered histogram into displayable pixels
// with the log-density mapping of the fractal flame algorithm.
//
// For a pixel with h hits and colour sums (r, g, b), and the frame-wide
// maximum hit count M:
//
//	avg        = (r, g, b) / h / 255
//	brightness = log(h+1) / log(M+1)
//	pixel      = pow(avg * brightness, 1/gamma)
//
// Pixels without hits show the background colour. When M is zero every
// pixel is background.
package tonemap

import (
	"image"
	"image/color"

	"github.com/chewxy/math32"

	"github.com/gogpu/flame/internal/parallel"
	"github.com/gogpu/flame/internal/resource"
)

// DefaultGamma is the display gamma applied when none is configured.
const DefaultGamma = 2.2

// Params are the frame-constant inputs of the mapping.
type Params struct {
	// Gamma must be positive.
	Gamma float32

	// Background is the linear RGBA colour of empty pixels, in [0, 1].
	Background [4]float32
}

// Mapper caches the per-frame constants.
type Mapper struct {
	invGamma float32
	invLogM  float32
	bg       color.RGBA
}

// NewMapper prepares the mapping for a frame whose accumulator peaks at
// maxHits.
func NewMapper(p Params, maxHits uint32) Mapper {
	m := Mapper{
		invGamma: 1 / p.Gamma,
		bg: color.RGBA{
			R: quantize(p.Background[0]),
			G: quantize(p.Background[1]),
			B: quantize(p.Background[2]),
			A: 0xff,
		},
	}
	if maxHits > 0 {
		m.invLogM = 1 / math32.Log(float32(maxHits)+1)
	}
	return m
}

// Pixel maps one output cell to an opaque colour.
func (m Mapper) Pixel(hits, r, g, b float32) color.RGBA {
	if !(hits > 0) || m.invLogM == 0 {
		return m.bg
	}

	brightness := math32.Log(hits+1) * m.invLogM
	scale := brightness / (hits * 255)
	return color.RGBA{
		R: quantize(math32.Pow(r*scale, m.invGamma)),
		G: quantize(math32.Pow(g*scale, m.invGamma)),
		B: quantize(math32.Pow(b*scale, m.invGamma)),
		A: 0xff,
	}
}

func quantize(v float32) uint8 {
	switch {
	case !(v > 0):
		return 0
	case v >= 1:
		return 0xff
	default:
		return uint8(v*255 + 0.5)
	}
}

// Apply tone-maps out (width*height cells of resource.Channels floats)
// into dst, whose bounds must be width×height.
func Apply(pool *parallel.Pool, dst *image.RGBA, out []float32, maxHits uint32, p Params) {
	m := NewMapper(p, maxHits)
	w, h := dst.Rect.Dx(), dst.Rect.Dy()

	pool.DispatchRange(h, 16, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			row := dst.Pix[y*dst.Stride:]
			for x := 0; x < w; x++ {
				c := out[(y*w+x)*resource.Channels:]
				px := m.Pixel(c[0], c[1], c[2], c[3])
				o := row[x*4 : x*4+4 : x*4+4]
				o[0], o[1], o[2], o[3] = px.R, px.G, px.B, px.A
			}
		}
	})
}
