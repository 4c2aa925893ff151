// Package resource describes the buffers and passes of a frame independent
// of any device. Backends turn these descriptions into real bindings.
//
// All passes of a frame bind the same positional buffer list; the binding
// index of a buffer is its position in the list. Passes that do not touch a
// buffer simply do not declare it in their shader.
package resource

import "fmt"

// BufferKind tags a buffer with its binding class.
type BufferKind uint8

const (
	// Storage buffers are read-write arrays of per-pixel or scalar data.
	Storage BufferKind = iota

	// Uniform buffers hold small per-frame constants.
	Uniform
)

// String returns "storage" or "uniform".
func (k BufferKind) String() string {
	switch k {
	case Storage:
		return "storage"
	case Uniform:
		return "uniform"
	default:
		return fmt.Sprintf("BufferKind(%d)", uint8(k))
	}
}

// Buffer is one entry of the positional buffer list.
type Buffer struct {
	Label string
	Kind  BufferKind
	Size  uint64 // bytes
}

// Binding slots of the frame buffer list.
const (
	SlotUniforms = iota
	SlotHistogram
	SlotAccumulator
	SlotMaxHits
	SlotOutput
	SlotScratch
	SlotPixels
	SlotFilterTaps

	slotCount
)

// Channels per pixel in the histogram, accumulator and output buffers:
// hits, red sum, green sum, blue sum.
const Channels = 4

// CellWords is the number of 32-bit words of one histogram or accumulator
// channel. Each channel is a 64-bit sum stored as a low word followed by a
// high word.
const CellWords = 2

// PixelWords is the number of 32-bit words of one histogram or
// accumulator pixel.
const PixelWords = Channels * CellWords

// MaxFilterTaps bounds the filter kernel length stored in SlotFilterTaps.
const MaxFilterTaps = 127

// FrameBuffers returns the buffer list for a width×height image.
func FrameBuffers(width, height int) []Buffer {
	px := uint64(width) * uint64(height)
	cells := px * Channels * 4
	wide := px * PixelWords * 4

	bufs := make([]Buffer, slotCount)
	bufs[SlotUniforms] = Buffer{Label: "flame_uniforms", Kind: Uniform, Size: UniformsSize}
	bufs[SlotHistogram] = Buffer{Label: "flame_histogram", Kind: Storage, Size: wide}
	bufs[SlotAccumulator] = Buffer{Label: "flame_accumulator", Kind: Storage, Size: wide}
	bufs[SlotMaxHits] = Buffer{Label: "flame_max_hits", Kind: Storage, Size: 4}
	bufs[SlotOutput] = Buffer{Label: "flame_output", Kind: Storage, Size: cells}
	bufs[SlotScratch] = Buffer{Label: "flame_scratch", Kind: Storage, Size: cells}
	bufs[SlotPixels] = Buffer{Label: "flame_pixels", Kind: Storage, Size: px * 4}
	bufs[SlotFilterTaps] = Buffer{Label: "flame_filter_taps", Kind: Storage, Size: (MaxFilterTaps + 1) * 4}
	return bufs
}

// PassKind distinguishes compute from render passes.
type PassKind uint8

const (
	Compute PassKind = iota
	Render
)

// String returns "compute" or "render".
func (k PassKind) String() string {
	if k == Render {
		return "render"
	}
	return "compute"
}

// Pass is one stage of a frame.
type Pass struct {
	Name     string
	Kind     PassKind
	Source   string // WGSL
	Entry    string
	Dispatch Dispatch
}
