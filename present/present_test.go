// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package present

import (
	"errors"
	"image"
	"testing"
)

// mockTexture implements the texture interfaces for testing.
type mockTexture struct {
	width, height int
	data          []byte
	destroyed     bool
	updated       int
	premultiplied *bool
}

func (m *mockTexture) UpdateData(data []byte) error {
	m.data = append(m.data[:0], data...)
	m.updated++
	return nil
}

func (m *mockTexture) Destroy() { m.destroyed = true }

func (m *mockTexture) SetPremultiplied(v bool) { m.premultiplied = &v }

// mockCreator records created textures.
type mockCreator struct {
	textures []*mockTexture
	failNext bool
}

func (m *mockCreator) NewTextureFromRGBA(width, height int, data []byte) (any, error) {
	if m.failNext {
		m.failNext = false
		return nil, errors.New("mock texture creation failed")
	}
	tex := &mockTexture{width: width, height: height, data: append([]byte(nil), data...)}
	m.textures = append(m.textures, tex)
	return tex, nil
}

func (m *mockCreator) get() textureCreator { return m }

func solid(w, h int, v byte) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

func TestUploadCreatesThenUpdates(t *testing.T) {
	p := New()
	c := &mockCreator{}

	tex, err := p.upload(c.get, solid(4, 2, 1))
	if err != nil {
		t.Fatalf("first upload: %v", err)
	}
	if len(c.textures) != 1 {
		t.Fatalf("created %d textures, want 1", len(c.textures))
	}
	mt := tex.(*mockTexture)
	if mt.width != 4 || mt.height != 2 {
		t.Errorf("texture is %dx%d, want 4x2", mt.width, mt.height)
	}
	if mt.premultiplied == nil || *mt.premultiplied {
		t.Error("texture should be marked straight alpha")
	}

	if _, err := p.upload(c.get, solid(4, 2, 9)); err != nil {
		t.Fatalf("second upload: %v", err)
	}
	if len(c.textures) != 1 {
		t.Errorf("same-size frame created a new texture")
	}
	if mt.updated != 1 || mt.data[0] != 9 {
		t.Errorf("texture not updated in place: updated=%d data[0]=%d", mt.updated, mt.data[0])
	}
	if p.Uploads() != 2 {
		t.Errorf("Uploads() = %d, want 2", p.Uploads())
	}
}

func TestUploadResizeRecreates(t *testing.T) {
	p := New()
	c := &mockCreator{}

	if _, err := p.upload(c.get, solid(4, 4, 0)); err != nil {
		t.Fatal(err)
	}
	if _, err := p.upload(c.get, solid(8, 4, 0)); err != nil {
		t.Fatal(err)
	}
	if len(c.textures) != 2 {
		t.Fatalf("created %d textures, want 2", len(c.textures))
	}
	if !c.textures[0].destroyed {
		t.Error("old texture not destroyed after resize")
	}
	if c.textures[1].destroyed {
		t.Error("new texture destroyed")
	}
}

func TestUploadErrors(t *testing.T) {
	t.Run("no creator", func(t *testing.T) {
		p := New()
		_, err := p.upload(func() textureCreator { return nil }, solid(2, 2, 0))
		if !errors.Is(err, ErrNoTextureCreator) {
			t.Errorf("err = %v, want ErrNoTextureCreator", err)
		}
	})
	t.Run("creation fails", func(t *testing.T) {
		p := New()
		c := &mockCreator{failNext: true}
		if _, err := p.upload(c.get, solid(2, 2, 0)); err == nil {
			t.Error("expected creation error")
		}
		// The next frame retries.
		if _, err := p.upload(c.get, solid(2, 2, 0)); err != nil {
			t.Errorf("retry: %v", err)
		}
	})
	t.Run("closed", func(t *testing.T) {
		p := New()
		c := &mockCreator{}
		if _, err := p.upload(c.get, solid(2, 2, 0)); err != nil {
			t.Fatal(err)
		}
		if err := p.Close(); err != nil {
			t.Fatal(err)
		}
		if !c.textures[0].destroyed {
			t.Error("Close did not destroy the texture")
		}
		if _, err := p.upload(c.get, solid(2, 2, 0)); !errors.Is(err, ErrClosed) {
			t.Errorf("err = %v, want ErrClosed", err)
		}
		if err := p.Close(); err != nil {
			t.Errorf("second Close: %v", err)
		}
	})
}

func TestPixelsPacksSubImage(t *testing.T) {
	img := solid(4, 4, 0)
	img.Pix[(1*img.Stride)+1*4] = 7 // (1,1).R
	sub := img.SubImage(image.Rect(1, 1, 3, 3)).(*image.RGBA)

	got := pixels(sub)
	if len(got) != 2*2*4 {
		t.Fatalf("len = %d, want 16", len(got))
	}
	if got[0] != 7 {
		t.Errorf("first pixel R = %d, want 7", got[0])
	}
}
