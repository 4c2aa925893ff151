// Package hud draws a small statistics overlay onto a rendered frame.
//
// Glyphs are rasterized with golang.org/x/image/font/opentype from the Go
// Regular face. Line widths come from a HarfBuzz shaping pass over the
// same font so the backing panel fits the kerned text.
package hud

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"

	"github.com/go-text/typesetting/di"
	gtfont "github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	textlang "golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DefaultSize is the glyph size in pixels.
const DefaultSize = 13

const padding = 4

// Stats is what the overlay reports.
type Stats struct {
	Backend string
	FPS     float64
	Frames  uint64
	Samples uint64 // points plotted since the last reset
}

// Lines formats s into overlay lines.
func (s Stats) Lines() []string {
	p := message.NewPrinter(textlang.English)
	return []string{
		p.Sprintf("%s  %.1f fps", s.Backend, s.FPS),
		p.Sprintf("frames %d", s.Frames),
		p.Sprintf("samples %d", s.Samples),
	}
}

// Overlay draws text lines in the top-left corner of an image. It is safe
// for concurrent use.
type Overlay struct {
	mu     sync.Mutex
	face   font.Face
	shaper shaping.HarfbuzzShaper
	gtFace *gtfont.Face
	size   float64
	line   int
	ascent int
}

// New returns an overlay with glyphs of the given pixel size. A
// non-positive size selects DefaultSize.
func New(size float64) (*Overlay, error) {
	if size <= 0 {
		size = DefaultSize
	}
	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("hud: parse font: %w", err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("hud: create face: %w", err)
	}
	gtFace, err := gtfont.ParseTTF(bytes.NewReader(goregular.TTF))
	if err != nil {
		return nil, fmt.Errorf("hud: parse font for shaping: %w", err)
	}

	m := face.Metrics()
	return &Overlay{
		face:   face,
		gtFace: gtFace,
		size:   size,
		line:   m.Height.Ceil(),
		ascent: m.Ascent.Ceil(),
	}, nil
}

// Measure returns the shaped advance of s in pixels.
func (o *Overlay) Measure(s string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.measure(s)
}

func (o *Overlay) measure(s string) int {
	if s == "" {
		return 0
	}
	runes := []rune(s)
	out := o.shaper.Shape(shaping.Input{
		Text:      runes,
		RunStart:  0,
		RunEnd:    len(runes),
		Direction: di.DirectionLTR,
		Face:      o.gtFace,
		Size:      fixed.Int26_6(o.size * 64),
		Script:    language.Latin,
		Language:  language.NewLanguage("en"),
	})
	return out.Advance.Ceil()
}

// Bounds returns the panel rectangle Draw would fill for lines.
func (o *Overlay) Bounds(lines []string) image.Rectangle {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.bounds(lines)
}

func (o *Overlay) bounds(lines []string) image.Rectangle {
	if len(lines) == 0 {
		return image.Rectangle{}
	}
	w := 0
	for _, l := range lines {
		w = max(w, o.measure(l))
	}
	return image.Rect(0, 0, w+2*padding, len(lines)*o.line+2*padding)
}

var panel = image.NewUniform(color.RGBA{A: 0xa0})

// Draw renders lines over a translucent panel at the top-left of dst.
func (o *Overlay) Draw(dst *image.RGBA, lines []string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	r := o.bounds(lines).Add(dst.Rect.Min).Intersect(dst.Rect)
	if r.Empty() {
		return
	}
	draw.Draw(dst, r, panel, image.Point{}, draw.Over)

	// Glyphs are clipped to the panel.
	d := font.Drawer{Dst: dst.SubImage(r).(*image.RGBA), Src: image.White, Face: o.face}
	for i, l := range lines {
		d.Dot = fixed.P(dst.Rect.Min.X+padding, dst.Rect.Min.Y+padding+o.ascent+i*o.line)
		d.DrawString(l)
	}
}
