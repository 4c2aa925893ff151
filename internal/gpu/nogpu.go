//go:build nogpu

package gpu

import (
	"github.com/gogpu/flame/internal/filter"
	"github.com/gogpu/flame/internal/kernel"
	"github.com/gogpu/flame/internal/pipeline"
)

// Device is never opened in nogpu builds.
type Device struct {
	Name string
}

// Acquire always fails in nogpu builds.
func Acquire() (*Device, error) { return nil, ErrNoDevice }

// Shared always fails in nogpu builds.
func Shared(any) (*Device, error) { return nil, ErrNoDevice }

// Release is a no-op.
func (d *Device) Release() {}

// Config sizes the backend.
type Config struct {
	Width, Height int
	Filter        filter.Filter
}

// Backend is never constructed in nogpu builds.
type Backend struct {
	pipeline.Backend
}

// New always fails in nogpu builds.
func New(*Device, *kernel.Program, Config) (*Backend, error) { return nil, ErrNoDevice }
