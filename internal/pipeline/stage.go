// Package pipeline sequences the passes of a frame and feeds frames to a
// backend in submission order.
package pipeline

import (
	"context"
	"image"

	"github.com/gogpu/flame/internal/accum"
	"github.com/gogpu/flame/internal/resource"
)

// Stage is one pass of a frame. Stages run in declaration order and each
// one observes every write of the previous one.
type Stage uint8

const (
	// StageUniforms uploads the frame constants.
	StageUniforms Stage = iota

	// StagePrepare zeroes the frame histogram and, on a clearing frame,
	// the accumulator and max-hits counter.
	StagePrepare

	// StageSample runs the chaos game into the histogram.
	StageSample

	// StageAccumulate adds the histogram into the accumulator and raises
	// the max-hits counter.
	StageAccumulate

	// StageFilter reads the accumulator into the output buffer.
	StageFilter

	// StageTonemap maps the output buffer to pixels.
	StageTonemap

	stageCount
)

var stageNames = [stageCount]string{
	StageUniforms:   "uniforms",
	StagePrepare:    "prepare",
	StageSample:     "sample",
	StageAccumulate: "accumulate",
	StageFilter:     "filter",
	StageTonemap:    "tonemap",
}

// String returns the stage name.
func (s Stage) String() string {
	if s < stageCount {
		return stageNames[s]
	}
	return "unknown"
}

// Stages returns the stages of a frame in execution order.
func Stages() []Stage {
	out := make([]Stage, stageCount)
	for i := range out {
		out[i] = Stage(i)
	}
	return out
}

// FrameInput is everything a frame reads from the host. It is built once,
// when the frame is submitted; later camera moves or reset requests apply
// to later frames.
type FrameInput struct {
	Index    uint64
	Uniforms resource.FrameUniforms
	State    accum.State
}

// Stats summarises the accumulator since the last reset.
type Stats struct {
	Frames    uint64 // frames accumulated, including the clearing frame
	TotalHits uint64 // sum of accumulator hits
	Dropped   uint64 // plot attempts outside the view or non-finite
	MaxHits   uint32
}

// Snapshot is a host copy of the accumulator.
type Snapshot struct {
	Width, Height int

	// Accumulator holds resource.Channels values per pixel, row-major:
	// hits, red sum, green sum, blue sum.
	Accumulator []uint64

	Stats Stats
}

// Hits returns the accumulated hit count at (x, y).
func (s *Snapshot) Hits(x, y int) uint64 {
	return s.Accumulator[(y*s.Width+x)*resource.Channels]
}

// Backend executes frames on some device.
//
// A frame is BeginFrame, then Run for every stage in order, then EndFrame.
// Backends that record commands may defer the work of Run to EndFrame, as
// long as stages stay ordered. Backends are driven from one goroutine.
type Backend interface {
	Name() string
	BeginFrame(ctx context.Context, in *FrameInput) error
	Run(ctx context.Context, stage Stage) error
	EndFrame(ctx context.Context) error

	// Present copies the last finished frame into dst, whose bounds are
	// the accumulation size.
	Present(dst *image.RGBA) error

	Snapshot(ctx context.Context) (Snapshot, error)
	Close() error
}
