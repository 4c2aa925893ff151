package flame

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gogpu/flame/internal/cpu"
	"github.com/gogpu/flame/internal/gpu"
	"github.com/gogpu/flame/internal/kernel"
	"github.com/gogpu/flame/internal/pipeline"
)

// BackendKind selects the device frames run on.
type BackendKind uint8

const (
	// BackendAuto uses the GPU if a device can be opened when the
	// Renderer is created, and the CPU otherwise.
	BackendAuto BackendKind = iota

	// BackendCPU runs the passes on a goroutine pool.
	BackendCPU

	// BackendGPU runs the passes as compute shaders. NewRenderer fails
	// with ErrDeviceUnavailable if no device can be opened.
	BackendGPU
)

// String returns "auto", "cpu" or "gpu".
func (k BackendKind) String() string {
	switch k {
	case BackendAuto:
		return "auto"
	case BackendCPU:
		return "cpu"
	case BackendGPU:
		return "gpu"
	default:
		return fmt.Sprintf("BackendKind(%d)", k)
	}
}

// ParseBackend parses the names returned by BackendKind.String.
func ParseBackend(s string) (BackendKind, error) {
	switch strings.ToLower(s) {
	case "auto", "":
		return BackendAuto, nil
	case "cpu":
		return BackendCPU, nil
	case "gpu":
		return BackendGPU, nil
	}
	return 0, fmt.Errorf("flame: unknown backend %q", s)
}

// openedBackend is a backend plus the device it may own.
type openedBackend struct {
	pipeline.Backend
	device *gpu.Device
}

func (b *openedBackend) release() {
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
}

func openBackend(prog *kernel.Program, cfg *Config, o *options) (*openedBackend, error) {
	w, h := cfg.accumSize()

	if o.backend == BackendCPU {
		return openCPU(prog, w, h, cfg, o)
	}

	b, err := openGPU(prog, w, h, cfg, o)
	if err == nil {
		return b, nil
	}
	if o.backend == BackendGPU || errors.Is(err, ErrConfiguration) {
		return nil, err
	}
	Logger().Warn("flame: GPU unavailable, falling back to CPU", "err", err)
	return openCPU(prog, w, h, cfg, o)
}

func openCPU(prog *kernel.Program, w, h int, cfg *Config, o *options) (*openedBackend, error) {
	b, err := cpu.New(prog, cpu.Config{
		Width:   w,
		Height:  h,
		Filter:  cfg.Filter,
		Workers: o.workers,
	})
	if err != nil {
		return nil, err
	}
	Logger().Info("flame: backend selected", "backend", b.Name(), "width", w, "height", h)
	return &openedBackend{Backend: b}, nil
}

func openGPU(prog *kernel.Program, w, h int, cfg *Config, o *options) (*openedBackend, error) {
	var (
		dev *gpu.Device
		err error
	)
	if o.provider != nil {
		dev, err = gpu.Shared(o.provider)
	} else {
		dev, err = gpu.Acquire()
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}

	b, err := gpu.New(dev, prog, gpu.Config{Width: w, Height: h, Filter: cfg.Filter})
	if err != nil {
		dev.Release()
		if errors.Is(err, ErrConfiguration) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}
	Logger().Info("flame: backend selected", "backend", b.Name(), "adapter", dev.Name, "width", w, "height", h)
	return &openedBackend{Backend: b, device: dev}, nil
}
