package tonemap

import (
	"image"

	xdraw "golang.org/x/image/draw"
)

// Downsample scales src onto the whole of dst with a Catmull-Rom filter.
// It is used to reduce a supersampled frame to presentation size.
func Downsample(dst, src *image.RGBA) {
	if dst.Rect.Eq(src.Rect) {
		copy(dst.Pix, src.Pix)
		return
	}
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
}
