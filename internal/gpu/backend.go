//go:build !nogpu

// Package gpu runs the frame passes as WGSL compute shaders on a wgpu HAL
// device.
//
// Every pass binds the same buffer list (see resource.FrameBuffers) through
// one bind group, so all pipelines share a single layout. A frame records
// one compute pass per stage into a single command buffer; the queue
// orders the passes. The tone-mapped pixels are copied to a staging buffer
// and read back once the frame's fence signals.
//
// Histogram and accumulator channels are 64-bit sums held as lo/hi pairs
// of 32-bit words and added with carry, so colour sums never wrap. The
// max-hits counter is a single word that saturates.
package gpu

import (
	"context"
	"encoding/binary"
	"fmt"
	"image"
	"math"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/flame/ifs"
	"github.com/gogpu/flame/internal/accum"
	"github.com/gogpu/flame/internal/filter"
	"github.com/gogpu/flame/internal/kernel"
	"github.com/gogpu/flame/internal/pipeline"
	"github.com/gogpu/flame/internal/resource"
)

// fenceTimeout bounds the wait for one frame.
const fenceTimeout = 5 * time.Second

// Config sizes the backend.
type Config struct {
	Width, Height int
	Filter        filter.Filter
}

type computePass struct {
	module   hal.ShaderModule
	pipeline hal.ComputePipeline
}

// Backend implements pipeline.Backend on a HAL device.
type Backend struct {
	dev    *Device
	prog   *kernel.Program
	filter filter.Filter

	width, height int

	layouts   resource.LayoutCache[hal.BindGroupLayout]
	bgl       hal.BindGroupLayout
	pipeLay   hal.PipelineLayout
	passes    [passCount]computePass
	specs     []resource.Buffer
	bufs      []hal.Buffer
	bindGroup hal.BindGroup

	pixelStaging hal.Buffer
	accumStaging hal.Buffer
	maxStaging   hal.Buffer

	encoder hal.CommandEncoder
	in      *pipeline.FrameInput
	frame   []byte

	frames uint64
	plots  uint64
}

var _ pipeline.Backend = (*Backend)(nil)

// New builds the pipelines and buffers on dev. On error every object
// created so far is destroyed; dev itself is left to the caller.
func New(dev *Device, prog *kernel.Program, cfg Config) (*Backend, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, ifs.Configf("size", "must be positive, got %dx%d", cfg.Width, cfg.Height)
	}
	if err := cfg.Filter.Validate(); err != nil {
		return nil, err
	}

	b := &Backend{
		dev:    dev,
		prog:   prog,
		filter: cfg.Filter,
		width:  cfg.Width,
		height: cfg.Height,
		specs:  resource.FrameBuffers(cfg.Width, cfg.Height),
		frame:  make([]byte, cfg.Width*cfg.Height*4),
	}
	if err := b.createPipelines(); err != nil {
		b.destroy()
		return nil, err
	}
	if err := b.createBuffers(); err != nil {
		b.destroy()
		return nil, err
	}

	slogger().Debug("gpu: backend ready",
		"adapter", dev.Name,
		"width", cfg.Width,
		"height", cfg.Height,
		"filter", cfg.Filter.String(),
		"program", prog.String())
	return b, nil
}

// Name returns "gpu".
func (b *Backend) Name() string { return "gpu" }

func layoutEntries(l resource.Layout) []gputypes.BindGroupLayoutEntry {
	entries := make([]gputypes.BindGroupLayoutEntry, len(l.Entries))
	for i, e := range l.Entries {
		vis := gputypes.ShaderStageCompute
		if e.Visibility == resource.StageFragment {
			vis = gputypes.ShaderStageFragment
		}
		typ := gputypes.BufferBindingTypeStorage
		switch e.Type {
		case resource.BindUniform:
			typ = gputypes.BufferBindingTypeUniform
		case resource.BindReadOnlyStorage:
			typ = gputypes.BufferBindingTypeReadOnlyStorage
		}
		entries[i] = gputypes.BindGroupLayoutEntry{
			Binding:    e.Binding,
			Visibility: vis,
			Buffer:     &gputypes.BufferBindingLayout{Type: typ},
		}
	}
	return entries
}

func (b *Backend) createPipelines() error {
	device := b.dev.Device

	bgl, err := b.layouts.Get(resource.Compute, b.specs, func(l resource.Layout) (hal.BindGroupLayout, error) {
		return device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
			Label:   "flame_bgl",
			Entries: layoutEntries(l),
		})
	})
	if err != nil {
		return fmt.Errorf("gpu: create bind group layout: %w", err)
	}
	b.bgl = bgl

	b.pipeLay, err = device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "flame_pl",
		BindGroupLayouts: []hal.BindGroupLayout{bgl},
	})
	if err != nil {
		return fmt.Errorf("gpu: create pipeline layout: %w", err)
	}

	sources := fixedSources()
	sources[passSample] = b.prog.WGSL()

	for id := passID(0); id < passCount; id++ {
		label := "flame_" + id.String()

		module, err := device.CreateShaderModule(&hal.ShaderModuleDescriptor{
			Label:  label,
			Source: hal.ShaderSource{WGSL: sources[id]},
		})
		if err != nil {
			return fmt.Errorf("gpu: create shader module for %s: %w", id, err)
		}
		b.passes[id].module = module

		pl, err := device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
			Label:  label,
			Layout: b.pipeLay,
			Compute: hal.ComputeState{
				Module:     module,
				EntryPoint: "main",
			},
		})
		if err != nil {
			return fmt.Errorf("gpu: create compute pipeline for %s: %w", id, err)
		}
		b.passes[id].pipeline = pl

		slogger().Debug("gpu: pipeline created", "pass", id.String(), "shader_bytes", len(sources[id]))
	}
	return nil
}

func (b *Backend) createBuffer(label string, size uint64, usage gputypes.BufferUsage) (hal.Buffer, error) {
	const minBufSize = 4
	if size < minBufSize {
		size = minBufSize
	}
	return b.dev.Device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: usage,
	})
}

func (b *Backend) createBuffers() error {
	storage := gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst | gputypes.BufferUsageCopySrc
	uniform := gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst
	staging := gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst

	b.bufs = make([]hal.Buffer, len(b.specs))
	for i, s := range b.specs {
		usage := storage
		if s.Kind == resource.Uniform {
			usage = uniform
		}
		buf, err := b.createBuffer(s.Label, s.Size, usage)
		if err != nil {
			return fmt.Errorf("gpu: create %s buffer: %w", s.Label, err)
		}
		b.bufs[i] = buf
		if s.Kind == resource.Storage {
			b.dev.Queue.WriteBuffer(buf, 0, make([]byte, s.Size))
		}
	}
	b.dev.Queue.WriteBuffer(b.bufs[resource.SlotFilterTaps], 0, encodeTaps(b.filter.Taps()))

	var err error
	if b.pixelStaging, err = b.createBuffer("flame_pixels_staging", b.specs[resource.SlotPixels].Size, staging); err != nil {
		return fmt.Errorf("gpu: create staging buffer: %w", err)
	}
	if b.accumStaging, err = b.createBuffer("flame_accum_staging", b.specs[resource.SlotAccumulator].Size, staging); err != nil {
		return fmt.Errorf("gpu: create staging buffer: %w", err)
	}
	if b.maxStaging, err = b.createBuffer("flame_max_staging", 4, staging); err != nil {
		return fmt.Errorf("gpu: create staging buffer: %w", err)
	}

	entries := make([]gputypes.BindGroupEntry, len(b.bufs))
	for i, buf := range b.bufs {
		entries[i] = gputypes.BindGroupEntry{
			Binding: uint32(i),
			Resource: gputypes.BufferBinding{
				Buffer: buf.NativeHandle(),
				Offset: 0,
				Size:   0, // whole buffer
			},
		}
	}
	b.bindGroup, err = b.dev.Device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   "flame_bg",
		Layout:  b.bgl,
		Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("gpu: create bind group: %w", err)
	}
	return nil
}

// encodeTaps lays out the filter taps as the shaders read them: the count
// followed by the weights.
func encodeTaps(taps []float32) []byte {
	buf := make([]byte, (resource.MaxFilterTaps+1)*4)
	binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(len(taps))))
	for i, w := range taps {
		binary.LittleEndian.PutUint32(buf[4+4*i:], math.Float32bits(w))
	}
	return buf
}

// BeginFrame opens the frame's command encoder.
func (b *Backend) BeginFrame(_ context.Context, in *pipeline.FrameInput) error {
	b.discard()
	if int(in.Uniforms.Width) != b.width || int(in.Uniforms.Height) != b.height {
		return fmt.Errorf("gpu: frame is %dx%d, buffers are %dx%d",
			in.Uniforms.Width, in.Uniforms.Height, b.width, b.height)
	}

	encoder, err := b.dev.Device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "flame_frame"})
	if err != nil {
		return fmt.Errorf("gpu: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("flame_frame"); err != nil {
		return fmt.Errorf("gpu: begin encoding: %w", err)
	}
	b.encoder = encoder
	b.in = in

	if in.State == accum.Clearing {
		b.frames, b.plots = 0, 0
	}
	return nil
}

func (b *Backend) dispatch(id passID, d resource.Dispatch) {
	if d.Workgroups() == 0 {
		return
	}
	pass := b.encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: "flame_" + id.String()})
	pass.SetPipeline(b.passes[id].pipeline)
	pass.SetBindGroup(0, b.bindGroup, nil)
	pass.Dispatch(d.X, d.Y, d.Z)
	pass.End()
}

// Run records the passes of one stage.
func (b *Backend) Run(ctx context.Context, stage pipeline.Stage) error {
	if err := ctx.Err(); err != nil {
		b.discard()
		return err
	}

	px := b.width * b.height
	image2D := resource.Grid2D(b.width, b.height)

	switch stage {
	case pipeline.StageUniforms:
		b.dev.Queue.WriteBuffer(b.bufs[resource.SlotUniforms], 0, b.in.Uniforms.Encode())
	case pipeline.StagePrepare:
		b.dispatch(passZeroHist, resource.Linear(px*resource.PixelWords))
		if b.in.State == accum.Clearing {
			b.dispatch(passClear, resource.Linear(px*resource.PixelWords))
		}
	case pipeline.StageSample:
		b.dispatch(passSample, resource.Grid(int(b.in.Uniforms.Resolution)))
	case pipeline.StageAccumulate:
		b.dispatch(passAccumulate, resource.Linear(px))
	case pipeline.StageFilter:
		b.dispatch(passFilterH, image2D)
		b.dispatch(passFilterV, image2D)
	case pipeline.StageTonemap:
		b.dispatch(passTonemap, image2D)
	default:
		b.discard()
		return fmt.Errorf("gpu: unknown stage %d", stage)
	}
	return nil
}

func (b *Backend) discard() {
	if b.encoder != nil {
		b.encoder.DiscardEncoding()
		b.encoder = nil
	}
}

// EndFrame submits the frame, waits for it and reads the pixels back.
func (b *Backend) EndFrame(context.Context) error {
	pixels := b.specs[resource.SlotPixels].Size
	b.encoder.CopyBufferToBuffer(b.bufs[resource.SlotPixels], b.pixelStaging, []hal.BufferCopy{
		{SrcOffset: 0, DstOffset: 0, Size: pixels},
	})
	if err := b.submit(); err != nil {
		return err
	}
	if err := b.dev.Queue.ReadBuffer(b.pixelStaging, 0, b.frame); err != nil {
		return fmt.Errorf("gpu: read pixels: %w", err)
	}

	res := uint64(b.in.Uniforms.Resolution)
	b.frames++
	b.plots += res * res * b.prog.PlottedPerWalker()
	b.in = nil
	return nil
}

// submit ends the current encoding, submits it and waits for the fence.
func (b *Backend) submit() error {
	encoder := b.encoder
	b.encoder = nil

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("gpu: end encoding: %w", err)
	}
	defer b.dev.Device.FreeCommandBuffer(cmdBuf)

	fence, err := b.dev.Device.CreateFence()
	if err != nil {
		return fmt.Errorf("gpu: create fence: %w", err)
	}
	defer b.dev.Device.DestroyFence(fence)

	if err := b.dev.Queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("gpu: submit: %w", err)
	}
	ok, err := b.dev.Device.Wait(fence, 1, fenceTimeout)
	if err != nil {
		return fmt.Errorf("gpu: wait for GPU: %w", err)
	}
	if !ok {
		return fmt.Errorf("gpu: GPU timeout after %v", fenceTimeout)
	}
	return nil
}

// Present copies the last read-back frame into dst.
func (b *Backend) Present(dst *image.RGBA) error {
	if dst.Rect.Dx() != b.width || dst.Rect.Dy() != b.height {
		return fmt.Errorf("gpu: present target is %v, frame is %dx%d", dst.Rect.Size(), b.width, b.height)
	}
	copy(dst.Pix, b.frame)
	return nil
}

// Snapshot reads the accumulator and max-hits counter back.
func (b *Backend) Snapshot(context.Context) (pipeline.Snapshot, error) {
	encoder, err := b.dev.Device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "flame_snapshot"})
	if err != nil {
		return pipeline.Snapshot{}, fmt.Errorf("gpu: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("flame_snapshot"); err != nil {
		return pipeline.Snapshot{}, fmt.Errorf("gpu: begin encoding: %w", err)
	}
	size := b.specs[resource.SlotAccumulator].Size
	encoder.CopyBufferToBuffer(b.bufs[resource.SlotAccumulator], b.accumStaging, []hal.BufferCopy{
		{SrcOffset: 0, DstOffset: 0, Size: size},
	})
	encoder.CopyBufferToBuffer(b.bufs[resource.SlotMaxHits], b.maxStaging, []hal.BufferCopy{
		{SrcOffset: 0, DstOffset: 0, Size: 4},
	})
	b.encoder = encoder
	if err := b.submit(); err != nil {
		return pipeline.Snapshot{}, err
	}

	raw := make([]byte, size)
	if err := b.dev.Queue.ReadBuffer(b.accumStaging, 0, raw); err != nil {
		return pipeline.Snapshot{}, fmt.Errorf("gpu: read accumulator: %w", err)
	}
	var maxRaw [4]byte
	if err := b.dev.Queue.ReadBuffer(b.maxStaging, 0, maxRaw[:]); err != nil {
		return pipeline.Snapshot{}, fmt.Errorf("gpu: read max hits: %w", err)
	}

	return decodeSnapshot(b.width, b.height, raw, binary.LittleEndian.Uint32(maxRaw[:]), b.frames, b.plots), nil
}

// decodeSnapshot joins the lo/hi word pairs of the read-back accumulator.
func decodeSnapshot(width, height int, raw []byte, maxHits uint32, frames, plots uint64) pipeline.Snapshot {
	const cell = resource.CellWords * 4
	snap := pipeline.Snapshot{
		Width:       width,
		Height:      height,
		Accumulator: make([]uint64, len(raw)/cell),
		Stats:       pipeline.Stats{Frames: frames, MaxHits: maxHits},
	}
	for i := range snap.Accumulator {
		lo := binary.LittleEndian.Uint32(raw[i*cell:])
		hi := binary.LittleEndian.Uint32(raw[i*cell+4:])
		v := uint64(hi)<<32 | uint64(lo)
		snap.Accumulator[i] = v
		if i%resource.Channels == 0 {
			snap.Stats.TotalHits += v
		}
	}
	if plots > snap.Stats.TotalHits {
		snap.Stats.Dropped = plots - snap.Stats.TotalHits
	}
	return snap
}

// Close destroys every device object the backend created. The device
// itself belongs to the caller.
func (b *Backend) Close() error {
	b.discard()
	b.destroy()
	return nil
}

func (b *Backend) destroy() {
	device := b.dev.Device
	if device == nil {
		return
	}
	if b.bindGroup != nil {
		device.DestroyBindGroup(b.bindGroup)
		b.bindGroup = nil
	}
	for _, buf := range append(b.bufs, b.pixelStaging, b.accumStaging, b.maxStaging) {
		if buf != nil {
			device.DestroyBuffer(buf)
		}
	}
	b.bufs = nil
	b.pixelStaging, b.accumStaging, b.maxStaging = nil, nil, nil

	for i := range b.passes {
		if b.passes[i].pipeline != nil {
			device.DestroyComputePipeline(b.passes[i].pipeline)
		}
		if b.passes[i].module != nil {
			device.DestroyShaderModule(b.passes[i].module)
		}
		b.passes[i] = computePass{}
	}
	if b.pipeLay != nil {
		device.DestroyPipelineLayout(b.pipeLay)
		b.pipeLay = nil
	}
	b.layouts.Drain(func(l hal.BindGroupLayout) { device.DestroyBindGroupLayout(l) })
	b.bgl = nil
}
