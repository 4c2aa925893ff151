package flame

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/gogpu/flame/internal/accum"
	"github.com/gogpu/flame/internal/hud"
	"github.com/gogpu/flame/internal/kernel"
	"github.com/gogpu/flame/internal/pipeline"
	"github.com/gogpu/flame/internal/tonemap"
)

// fpsSmoothing is the weight of the newest frame in the FPS average.
const fpsSmoothing = 0.1

// Stats summarises the accumulator since the last reset.
type Stats = pipeline.Stats

// Snapshot is a copy of the accumulator; see Renderer.Snapshot.
type Snapshot = pipeline.Snapshot

// Renderer drives frames of one function system. Its methods are safe
// for concurrent use.
type Renderer struct {
	cfg  Config
	opts options
	prog *kernel.Program

	backend *openedBackend
	sched   *pipeline.Scheduler
	queue   *pipeline.Queue
	overlay *hud.Overlay

	latch accum.Latch

	// Frame building.
	buildMu sync.Mutex
	machine *accum.Machine
	rng     *rand.Rand
	index   uint64
	camera  Camera

	// Owned by the queue consumer; also taken by Snapshot.
	runMu   sync.Mutex
	work    *image.RGBA // accumulation size
	back    *image.RGBA // presentation size; aliases work without supersampling
	frames  uint64
	samples uint64
	last    time.Time

	imgMu sync.RWMutex
	front *image.RGBA
	fps   float64

	closeOnce sync.Once
	closeErr  error
}

// NewRenderer compiles fns and opens a backend for cfg.
//
// It returns a ConfigurationError if cfg or fns are invalid, and
// ErrDeviceUnavailable if BackendGPU was requested and no device could be
// opened.
func NewRenderer(cfg Config, fns []Function, opts ...Option) (*Renderer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	prog, err := kernel.Compile(fns, cfg.kernelOptions())
	if err != nil {
		return nil, err
	}

	seed := o.seed
	if !o.seeded {
		seed = rand.Uint64()
	}

	r := &Renderer{
		cfg:    cfg,
		opts:   o,
		prog:   prog,
		rng:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		camera: cfg.Camera,
		front:  image.NewRGBA(image.Rect(0, 0, cfg.Width, cfg.Height)),
	}
	r.machine = accum.NewMachine(&r.latch)
	// The first frame starts from a clean accumulator.
	r.latch.Request()

	w, h := cfg.accumSize()
	r.work = image.NewRGBA(image.Rect(0, 0, w, h))
	r.back = r.work
	if cfg.supersample() > 1 {
		r.back = image.NewRGBA(r.front.Rect)
	}

	if o.hud {
		if r.overlay, err = hud.New(0); err != nil {
			return nil, err
		}
	}

	r.backend, err = openBackend(prog, &cfg, &o)
	if err != nil {
		return nil, err
	}
	r.sched = pipeline.NewScheduler(r.backend, Logger)
	r.queue = pipeline.NewQueue(o.queueDepth, r.run)

	Logger().Debug("flame: renderer ready",
		"functions", prog.Len(),
		"resolution", cfg.Resolution,
		"iterations", prog.Iterations(),
		"warmup", prog.Warmup(),
		"supersample", cfg.supersample(),
		"camera", cfg.Camera.String())
	return r, nil
}

// Frame queues one frame and returns without waiting for it. The reset
// latch and the camera are read now; later changes apply to later frames.
// Frame blocks only while the queue is full, until ctx is done.
//
// A frame that failed on the device stops the renderer: that error is
// returned by every later Frame, Flush and Close.
func (r *Renderer) Frame(ctx context.Context) error {
	r.buildMu.Lock()
	in := pipeline.FrameInput{
		Index:    r.index,
		Uniforms: r.cfg.uniforms(r.camera, r.rng.Uint32()),
		State:    r.machine.Begin(),
	}
	r.index++
	r.buildMu.Unlock()

	return r.translate(r.queue.Submit(ctx, in))
}

// run executes one frame on the queue consumer.
func (r *Renderer) run(ctx context.Context, in *pipeline.FrameInput) error {
	r.runMu.Lock()
	defer r.runMu.Unlock()

	if err := r.sched.RunFrame(ctx, in); err != nil {
		return err
	}
	if err := r.backend.Present(r.work); err != nil {
		return fmt.Errorf("flame: present frame %d: %w", in.Index, err)
	}

	if in.State == accum.Clearing {
		r.frames, r.samples = 0, 0
	}
	res := uint64(r.cfg.Resolution)
	r.frames++
	r.samples += res * res * r.prog.PlottedPerWalker()

	if r.back != r.work {
		tonemap.Downsample(r.back, r.work)
	}
	fps := r.tick()
	if r.overlay != nil {
		r.overlay.Draw(r.back, hud.Stats{
			Backend: r.backend.Name(),
			FPS:     fps,
			Frames:  r.frames,
			Samples: r.samples,
		}.Lines())
	}

	r.imgMu.Lock()
	copy(r.front.Pix, r.back.Pix)
	r.fps = fps
	r.imgMu.Unlock()
	return nil
}

// tick updates the frame rate estimate from the interval since the last
// completed frame.
func (r *Renderer) tick() float64 {
	now := r.opts.clock()
	defer func() { r.last = now }()

	r.imgMu.RLock()
	fps := r.fps
	r.imgMu.RUnlock()

	if r.last.IsZero() {
		return fps
	}
	dt := now.Sub(r.last).Seconds()
	if dt <= 0 {
		return fps
	}
	if fps == 0 {
		return 1 / dt
	}
	return fps + fpsSmoothing*(1/dt-fps)
}

// Reset clears the accumulator on the next frame. Any number of calls
// before that frame collapse into one reset.
func (r *Renderer) Reset() { r.latch.Request() }

// SetCamera changes the camera from the next frame on. The accumulator is
// not cleared; combine with Reset to discard the old view.
func (r *Renderer) SetCamera(c Camera) {
	r.buildMu.Lock()
	r.camera = c
	r.buildMu.Unlock()
}

// Camera returns the camera the next frame will use.
func (r *Renderer) Camera() Camera {
	r.buildMu.Lock()
	defer r.buildMu.Unlock()
	return r.camera
}

// FPS returns the smoothed rate of completed frames per second.
func (r *Renderer) FPS() float64 {
	r.imgMu.RLock()
	defer r.imgMu.RUnlock()
	return r.fps
}

// Image returns a copy of the last completed frame at presentation size.
func (r *Renderer) Image() *image.RGBA {
	r.imgMu.RLock()
	defer r.imgMu.RUnlock()
	img := image.NewRGBA(r.front.Rect)
	copy(img.Pix, r.front.Pix)
	return img
}

// Flush waits until every frame queued so far has completed.
func (r *Renderer) Flush(ctx context.Context) error {
	return r.translate(r.queue.Flush(ctx))
}

// Snapshot waits for queued frames and copies the accumulator.
func (r *Renderer) Snapshot(ctx context.Context) (Snapshot, error) {
	if err := r.Flush(ctx); err != nil {
		return Snapshot{}, err
	}
	r.runMu.Lock()
	defer r.runMu.Unlock()
	return r.backend.Snapshot(ctx)
}

// Config returns the configuration the renderer was created with.
func (r *Renderer) Config() Config { return r.cfg }

// Backend returns the kind of backend frames run on.
func (r *Renderer) Backend() BackendKind {
	if r.backend.device != nil {
		return BackendGPU
	}
	return BackendCPU
}

// Functions returns a copy of the function list.
func (r *Renderer) Functions() []Function {
	fns := make([]Function, r.prog.Len())
	for i := range fns {
		fns[i] = r.prog.Function(i)
	}
	return fns
}

// Kernel returns the generated WGSL of the sampling pass.
func (r *Renderer) Kernel() string { return r.prog.WGSL() }

// Close waits for queued frames, then releases the backend. It returns
// the first frame error, if any. Close is idempotent.
func (r *Renderer) Close() error {
	r.closeOnce.Do(func() {
		qerr := r.queue.Close()
		berr := r.backend.Close()
		r.backend.release()
		r.closeErr = errors.Join(qerr, berr)
		Logger().Debug("flame: renderer closed", "frames", r.index)
	})
	return r.closeErr
}

func (r *Renderer) translate(err error) error {
	if errors.Is(err, pipeline.ErrQueueClosed) {
		return ErrClosed
	}
	return err
}
