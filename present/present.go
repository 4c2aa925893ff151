// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package present uploads rendered frames to a window through
// gpucontext.TextureDrawer.
//
// The texture is created on the first frame and updated in place after
// that. A size change recreates it.
//
//	app.OnDraw(func(dc *gogpu.Context) {
//	    r.Frame(ctx)
//	    p.Present(dc.AsTextureDrawer(), r.Image())
//	})
package present

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/gogpu/gpucontext"
)

// Presentation errors.
var (
	// ErrNoTextureCreator is returned when the draw context cannot create
	// textures.
	ErrNoTextureCreator = errors.New("present: draw context has no texture creator")

	// ErrNotDrawable is returned when the created texture is not a
	// gpucontext.Texture.
	ErrNotDrawable = errors.New("present: texture is not drawable")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("present: presenter is closed")
)

type textureCreator interface {
	NewTextureFromRGBA(width, height int, data []byte) (any, error)
}

// creatorAdapter exposes a gpucontext.TextureCreator as a textureCreator.
type creatorAdapter struct{ c gpucontext.TextureCreator }

func (a creatorAdapter) NewTextureFromRGBA(width, height int, data []byte) (any, error) {
	return a.c.NewTextureFromRGBA(width, height, data)
}

type textureDestroyer interface {
	Destroy()
}

// Presenter keeps one texture in sync with the rendered image.
type Presenter struct {
	mu      sync.Mutex
	texture any
	size    image.Point
	closed  bool
	uploads int
}

// New returns an empty presenter.
func New() *Presenter { return &Presenter{} }

// Present uploads img and draws it at the origin of dc.
func (p *Presenter) Present(dc gpucontext.TextureDrawer, img *image.RGBA) error {
	tex, err := p.upload(func() textureCreator {
		if c := dc.TextureCreator(); c != nil {
			return creatorAdapter{c}
		}
		return nil
	}, img)
	if err != nil {
		return err
	}
	gpuTex, ok := tex.(gpucontext.Texture)
	if !ok {
		return ErrNotDrawable
	}
	return dc.DrawTexture(gpuTex, 0, 0)
}

// upload creates or updates the texture for img and returns it.
func (p *Presenter) upload(creator func() textureCreator, img *image.RGBA) (any, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrClosed
	}

	size := img.Rect.Size()
	data := pixels(img)

	if p.texture != nil && size == p.size {
		if updater, ok := p.texture.(gpucontext.TextureUpdater); ok {
			if err := updater.UpdateData(data); err != nil {
				return nil, fmt.Errorf("present: update texture: %w", err)
			}
			p.uploads++
			return p.texture, nil
		}
	}

	c := creator()
	if c == nil {
		return nil, ErrNoTextureCreator
	}
	tex, err := c.NewTextureFromRGBA(size.X, size.Y, data)
	if err != nil {
		return nil, fmt.Errorf("present: create texture: %w", err)
	}
	// Frames are opaque; alpha is not premultiplied against anything.
	if pt, ok := tex.(interface{ SetPremultiplied(bool) }); ok {
		pt.SetPremultiplied(false)
	}

	p.destroyTexture()
	p.texture = tex
	p.size = size
	p.uploads++
	return tex, nil
}

// pixels returns the tightly packed pixel bytes of img.
func pixels(img *image.RGBA) []byte {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	if img.Stride == w*4 {
		return img.Pix[:w*h*4]
	}
	out := make([]byte, w*h*4)
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride:]
		copy(out[y*w*4:(y+1)*w*4], row[:w*4])
	}
	return out
}

// Uploads returns how many times pixel data was sent to a texture.
func (p *Presenter) Uploads() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.uploads
}

func (p *Presenter) destroyTexture() {
	if p.texture == nil {
		return
	}
	if d, ok := p.texture.(textureDestroyer); ok {
		d.Destroy()
	}
	p.texture = nil
}

// Close releases the texture. Further Present calls fail with ErrClosed.
func (p *Presenter) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	p.destroyTexture()
	return nil
}
