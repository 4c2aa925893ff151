// Package cpu runs the frame passes on the host with a pool of goroutines.
//
// Buffers mirror the device layout: the frame histogram and the
// accumulator hold four 64-bit sums per pixel (hits and the red, green and
// blue sums), the histogram is updated with atomic adds and the max-hits
// counter is raised with a compare-and-swap loop. Every pass is one pool dispatch, so passes are
// separated by full barriers.
package cpu

import (
	"context"
	"fmt"
	"image"
	"math"
	"sync/atomic"

	"github.com/chewxy/math32"

	"github.com/gogpu/flame/ifs"
	"github.com/gogpu/flame/internal/accum"
	"github.com/gogpu/flame/internal/filter"
	"github.com/gogpu/flame/internal/kernel"
	"github.com/gogpu/flame/internal/parallel"
	"github.com/gogpu/flame/internal/pipeline"
	"github.com/gogpu/flame/internal/resource"
	"github.com/gogpu/flame/internal/tonemap"
)

// Config sizes the backend.
type Config struct {
	Width, Height int
	Filter        filter.Filter

	// Workers is the worker count of the owned pool; 0 means GOMAXPROCS.
	// Ignored when Pool is set.
	Workers int

	// Pool, if set, is used instead of an owned pool and is not closed by
	// Backend.Close.
	Pool *parallel.Pool
}

// mergeChunk is the number of pixels one invocation merges.
const mergeChunk = resource.LinearWorkgroup

// Backend implements pipeline.Backend on the host.
type Backend struct {
	prog     *kernel.Program
	pool     *parallel.Pool
	ownsPool bool
	filter   filter.Filter

	width, height int

	hist    []atomic.Uint64
	accum   []uint64
	maxHits atomic.Uint32
	output  []float32
	scratch []float32
	pixels  *image.RGBA

	in           *pipeline.FrameInput
	frameDropped atomic.Uint64
	frames       uint64
	dropped      uint64
}

var _ pipeline.Backend = (*Backend)(nil)

// New allocates the buffers for a cfg.Width×cfg.Height image.
func New(prog *kernel.Program, cfg Config) (*Backend, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, ifs.Configf("size", "must be positive, got %dx%d", cfg.Width, cfg.Height)
	}
	if err := cfg.Filter.Validate(); err != nil {
		return nil, err
	}

	n := cfg.Width * cfg.Height * resource.Channels
	b := &Backend{
		prog:    prog,
		pool:    cfg.Pool,
		filter:  cfg.Filter,
		width:   cfg.Width,
		height:  cfg.Height,
		hist:    make([]atomic.Uint64, n),
		accum:   make([]uint64, n),
		output:  make([]float32, n),
		scratch: make([]float32, n),
		pixels:  image.NewRGBA(image.Rect(0, 0, cfg.Width, cfg.Height)),
	}
	if b.pool == nil {
		b.pool = parallel.NewPool(cfg.Workers)
		b.ownsPool = true
	}

	slogger().Debug("cpu: backend ready",
		"width", cfg.Width,
		"height", cfg.Height,
		"workers", b.pool.Workers(),
		"filter", cfg.Filter.String(),
		"program", prog.String())
	return b, nil
}

// Name returns "cpu".
func (b *Backend) Name() string { return "cpu" }

// BeginFrame records the frame input.
func (b *Backend) BeginFrame(_ context.Context, in *pipeline.FrameInput) error {
	if int(in.Uniforms.Width) != b.width || int(in.Uniforms.Height) != b.height {
		return fmt.Errorf("cpu: frame is %dx%d, buffers are %dx%d",
			in.Uniforms.Width, in.Uniforms.Height, b.width, b.height)
	}
	b.in = in
	b.frameDropped.Store(0)
	return nil
}

// Run executes one stage.
func (b *Backend) Run(ctx context.Context, stage pipeline.Stage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	switch stage {
	case pipeline.StageUniforms:
		// Uniforms are read directly from the frame input.
	case pipeline.StagePrepare:
		b.prepare()
	case pipeline.StageSample:
		b.sample()
	case pipeline.StageAccumulate:
		b.merge()
	case pipeline.StageFilter:
		b.filter.Apply(b.pool, b.output, b.scratch, b.accum, b.width, b.height)
	case pipeline.StageTonemap:
		u := &b.in.Uniforms
		tonemap.Apply(b.pool, b.pixels, b.output, b.maxHits.Load(), tonemap.Params{
			Gamma:      u.Gamma,
			Background: u.Background,
		})
	default:
		return fmt.Errorf("cpu: unknown stage %d", stage)
	}
	return nil
}

// EndFrame updates the statistics.
func (b *Backend) EndFrame(context.Context) error {
	b.frames++
	b.dropped += b.frameDropped.Load()
	b.in = nil
	return nil
}

func (b *Backend) prepare() {
	clearing := b.in.State == accum.Clearing
	b.pool.DispatchRange(len(b.hist), mergeChunk*resource.Channels, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			b.hist[i].Store(0)
		}
		if clearing {
			clear(b.accum[lo:hi])
		}
	})
	if clearing {
		b.maxHits.Store(0)
		b.frames = 0
		b.dropped = 0
		slogger().Debug("cpu: accumulator cleared", "frame", b.in.Index)
	}
}

// sample runs the chaos game for every walker, one 8×8 tile per
// invocation.
func (b *Backend) sample() {
	u := &b.in.Uniforms
	res := int(u.Resolution)
	grid := resource.Grid(res)
	cols := int(grid.X)

	cam := camera{
		scale: math32.Exp2(u.LogScale),
		xoff:  u.XOffset,
		yoff:  u.YOffset,
		fw:    float32(b.width),
		fh:    float32(b.height),
	}

	b.pool.Dispatch(int(grid.Workgroups()), func(g int) {
		x0 := (g % cols) * resource.GridWorkgroup
		y0 := (g / cols) * resource.GridWorkgroup
		var dropped uint64
		for gy := y0; gy < min(y0+resource.GridWorkgroup, res); gy++ {
			for gx := x0; gx < min(x0+resource.GridWorkgroup, res); gx++ {
				dropped += b.walk(u.RNGSeed, uint32(gx), uint32(gy), cam)
			}
		}
		if dropped > 0 {
			b.frameDropped.Add(dropped)
		}
	})
}

type camera struct {
	scale, xoff, yoff float32
	fw, fh            float32
}

// walk runs one walker and returns how many of its points missed the view.
func (b *Backend) walk(seed, gx, gy uint32, cam camera) uint64 {
	p := b.prog
	s := kernel.NewStream(seed, gx, gy)
	x := s.Float()*2 - 1
	y := s.Float()*2 - 1

	iters, warmup := p.Iterations(), p.Warmup()
	var dropped uint64
	for step := 0; step < iters; step++ {
		i := p.Select(s.Float())
		x, y = p.Apply(i, x, y)
		if step < warmup {
			continue
		}

		fx := math32.Floor((x*cam.scale + cam.xoff + 1) * 0.5 * cam.fw)
		fy := math32.Floor((y*cam.scale + cam.yoff + 1) * 0.5 * cam.fh)
		// NaN fails every comparison.
		if !(fx >= 0 && fx < cam.fw && fy >= 0 && fy < cam.fh) {
			dropped++
			continue
		}

		c := p.Color(i)
		h := b.hist[(int(fy)*b.width+int(fx))*resource.Channels:]
		h[0].Add(1)
		h[1].Add(uint64(c.R))
		h[2].Add(uint64(c.G))
		h[3].Add(uint64(c.B))
	}
	return dropped
}

// merge adds the histogram into the accumulator and raises max-hits.
// It runs on every frame; on a clearing frame the accumulator was zeroed
// by prepare, so the frame starts a fresh accumulation.
func (b *Backend) merge() {
	b.pool.DispatchRange(b.width*b.height, mergeChunk, func(lo, hi int) {
		var local uint64
		for px := lo; px < hi; px++ {
			i := px * resource.Channels
			for c := range resource.Channels {
				b.accum[i+c] += b.hist[i+c].Load()
			}
			local = max(local, b.accum[i])
		}
		atomicMax(&b.maxHits, uint32(min(local, math.MaxUint32)))
	})
}

func atomicMax(m *atomic.Uint32, v uint32) {
	for {
		cur := m.Load()
		if v <= cur || m.CompareAndSwap(cur, v) {
			return
		}
	}
}

// Present copies the last tone-mapped frame into dst.
func (b *Backend) Present(dst *image.RGBA) error {
	if !dst.Rect.Size().Eq(b.pixels.Rect.Size()) {
		return fmt.Errorf("cpu: present target is %v, frame is %v", dst.Rect.Size(), b.pixels.Rect.Size())
	}
	copy(dst.Pix, b.pixels.Pix)
	return nil
}

// Snapshot copies the accumulator and statistics.
func (b *Backend) Snapshot(context.Context) (pipeline.Snapshot, error) {
	snap := pipeline.Snapshot{
		Width:       b.width,
		Height:      b.height,
		Accumulator: append([]uint64(nil), b.accum...),
		Stats: pipeline.Stats{
			Frames:  b.frames,
			Dropped: b.dropped,
			MaxHits: b.maxHits.Load(),
		},
	}
	for i := 0; i < len(snap.Accumulator); i += resource.Channels {
		snap.Stats.TotalHits += snap.Accumulator[i]
	}
	return snap, nil
}

// Close releases the owned pool.
func (b *Backend) Close() error {
	if b.ownsPool {
		b.pool.Close()
	}
	return nil
}
