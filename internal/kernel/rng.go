package kernel

// PCG-RXS-M-XS hash, shared verbatim with the WGSL kernel (see pcgWGSL).
// The host sampler must draw the same stream as the device, so this cannot
// be replaced by math/rand.
func pcg(v uint32) uint32 {
	state := v*747796405 + 2891336453
	word := ((state >> ((state >> 28) + 4)) ^ state) * 277803737
	return (word >> 22) ^ word
}

// Stream is the per-walker random sequence.
type Stream struct {
	state uint32
}

// NewStream seeds the stream of the walker at grid coordinates (gx, gy)
// for a frame drawn with seed.
func NewStream(seed, gx, gy uint32) Stream {
	return Stream{state: pcg(seed ^ pcg(gx^pcg(gy)))}
}

// Float returns a uniform value in [0, 1) with 24 bits of precision, so
// the float32 result is exact.
func (s *Stream) Float() float32 {
	s.state = pcg(s.state)
	return float32(s.state>>8) / (1 << 24)
}

const pcgWGSL = `fn pcg(v: u32) -> u32 {
    let state = v * 747796405u + 2891336453u;
    let word = ((state >> ((state >> 28u) + 4u)) ^ state) * 277803737u;
    return (word >> 22u) ^ word;
}

fn seed_walker(seed: u32, gx: u32, gy: u32) -> u32 {
    return pcg(seed ^ pcg(gx ^ pcg(gy)));
}

var<private> rng_state: u32;

fn rand() -> f32 {
    rng_state = pcg(rng_state);
    return f32(rng_state >> 8u) / 16777216.0;
}
`
