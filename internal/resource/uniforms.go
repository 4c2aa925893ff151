package resource

import (
	"encoding/binary"
	"math"
)

// UniformsSize is the byte size of the encoded FrameUniforms block.
const UniformsSize = 48

// FrameUniforms are the per-frame constants every pass reads.
type FrameUniforms struct {
	Width      uint32
	Height     uint32
	RNGSeed    uint32
	Resolution uint32
	LogScale   float32
	XOffset    float32
	YOffset    float32
	Gamma      float32
	Background [4]float32
}

// Encode writes the std140-compatible layout mirrored by UniformsWGSL.
func (u *FrameUniforms) Encode() []byte {
	buf := make([]byte, UniformsSize)
	le := binary.LittleEndian
	le.PutUint32(buf[0:], u.Width)
	le.PutUint32(buf[4:], u.Height)
	le.PutUint32(buf[8:], u.RNGSeed)
	le.PutUint32(buf[12:], u.Resolution)
	le.PutUint32(buf[16:], math.Float32bits(u.LogScale))
	le.PutUint32(buf[20:], math.Float32bits(u.XOffset))
	le.PutUint32(buf[24:], math.Float32bits(u.YOffset))
	le.PutUint32(buf[28:], math.Float32bits(u.Gamma))
	for i, c := range u.Background {
		le.PutUint32(buf[32+4*i:], math.Float32bits(c))
	}
	return buf
}

// UniformsWGSL declares the FrameUniforms struct in WGSL.
const UniformsWGSL = `struct FrameUniforms {
    width: u32,
    height: u32,
    rng_seed: u32,
    resolution: u32,
    log_scale: f32,
    x_offset: f32,
    y_offset: f32,
    gamma: f32,
    background: vec4<f32>,
}
`
