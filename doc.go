// Package flame renders fractal flames: chaos-game iterated function
// systems whose point density, accumulated over many frames, converges to
// an image of the attractor.
//
// # Quick Start
//
//	fns := flame.DefaultFunctions(rand.New(rand.NewPCG(1, 2)))
//	r, err := flame.NewRenderer(flame.DefaultConfig(), fns)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer r.Close()
//
//	for range 100 {
//	    r.Frame(ctx)
//	}
//	r.Flush(ctx)
//	png.Encode(f, r.Image())
//
// # Function Systems
//
// A Function is an affine pre-transform followed by one Variation from a
// closed set (linear, sinusoidal, spherical, horseshoe, handkerchief and
// others), with a selection weight and a colour. The list is compiled once
// by NewRenderer into a WGSL compute shader and a matching host sampler;
// it cannot change afterwards.
//
// # Frames
//
// Every frame runs res×res independent walkers for Config.Iterations
// steps each, plotting every step after the warmup into a per-frame
// histogram. The histogram is added to a persistent accumulator which is
// filtered and tone-mapped with log-density scaling. Reset clears the
// accumulator on the next frame; camera changes apply to the next frame
// as well.
//
// Frame only queues work. Frames run in order on a single consumer, so a
// caller driving a display loop never blocks on the device unless the
// queue is full.
//
// # Backends
//
// BackendGPU runs every pass as a compute shader through gogpu/wgpu.
// BackendCPU runs the same passes on a work-stealing goroutine pool with
// sync/atomic standing in for shader atomics. Both use the same random
// number streams, so a given seed produces the same walkers on either.
//
// # Logging
//
// The package is silent by default; see SetLogger.
package flame
