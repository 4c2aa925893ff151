package flame

import (
	"time"

	"github.com/gogpu/gpucontext"
)

// Option configures a Renderer during creation.
//
// Example:
//
//	r, err := flame.NewRenderer(cfg, fns,
//	    flame.WithBackend(flame.BackendCPU),
//	    flame.WithSeed(42),
//	)
type Option func(*options)

type options struct {
	backend    BackendKind
	seed       uint64
	seeded     bool
	workers    int
	provider   gpucontext.DeviceProvider
	queueDepth int
	hud        bool
	clock      func() time.Time
}

// DefaultQueueDepth is the number of frames that may wait for the device.
const DefaultQueueDepth = 2

func defaultOptions() options {
	return options{
		backend:    BackendAuto,
		queueDepth: DefaultQueueDepth,
		clock:      time.Now,
	}
}

// WithBackend selects where frames run. The default is BackendAuto.
func WithBackend(b BackendKind) Option {
	return func(o *options) {
		o.backend = b
	}
}

// WithSeed fixes the seed of the per-frame random seeds, making a
// sequence of frames reproducible. Without it the seed is random.
func WithSeed(seed uint64) Option {
	return func(o *options) {
		o.seed = seed
		o.seeded = true
	}
}

// WithWorkers sets the goroutine count of the CPU backend. Zero or
// negative means GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithDeviceProvider renders on the device of a host application, such as
// a gogpu window, instead of opening one. The provider must expose its HAL
// device and queue (HalDevice() any, HalQueue() any); the device stays
// owned by the host.
func WithDeviceProvider(p gpucontext.DeviceProvider) Option {
	return func(o *options) {
		o.provider = p
	}
}

// WithQueueDepth bounds how many frames Frame may queue before it blocks.
// Values below 1 mean 1.
func WithQueueDepth(n int) Option {
	return func(o *options) {
		o.queueDepth = max(n, 1)
	}
}

// WithHUD draws frame statistics over the top-left corner of Image.
func WithHUD(enabled bool) Option {
	return func(o *options) {
		o.hud = enabled
	}
}

// WithClock replaces time.Now for frame rate measurement.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.clock = now
		}
	}
}
