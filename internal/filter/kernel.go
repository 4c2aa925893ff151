package filter

import (
	"math"
	"sync"
)

// GaussianKernel returns a normalised 1-D Gaussian with standard deviation
// sigma. Its length is 2*ceil(3*sigma)+1, which covers 99.7% of the mass.
// For sigma <= 0 it returns the identity kernel [1].
func GaussianKernel(sigma float64) []float32 {
	if sigma <= 0 {
		return []float32{1}
	}

	half := int(math.Ceil(sigma * 3))
	taps := make([]float32, half*2+1)

	twoSigmaSq := 2 * sigma * sigma
	var sum float64
	for i := range taps {
		x := float64(i - half)
		v := math.Exp(-(x * x) / twoSigmaSq)
		taps[i] = float32(v)
		sum += v
	}

	inv := float32(1 / sum)
	for i := range taps {
		taps[i] *= inv
	}
	return taps
}

// BoxKernel returns the uniform kernel of length 2*radius+1.
func BoxKernel(radius int) []float32 {
	if radius <= 0 {
		return []float32{1}
	}

	taps := make([]float32, radius*2+1)
	v := 1 / float32(len(taps))
	for i := range taps {
		taps[i] = v
	}
	return taps
}

// KernelSize returns the Gaussian kernel length for sigma.
func KernelSize(sigma float64) int {
	if sigma <= 0 {
		return 1
	}
	return int(math.Ceil(sigma*3))*2 + 1
}

// gaussianCache memoises Gaussian kernels keyed by sigma quantised to 0.01.
type gaussianCache struct {
	mu    sync.RWMutex
	byKey map[int][]float32
	limit int
}

var kernels = &gaussianCache{byKey: make(map[int][]float32), limit: 32}

func (c *gaussianCache) get(sigma float64) []float32 {
	key := int(math.Round(sigma * 100))

	c.mu.RLock()
	taps, ok := c.byKey[key]
	c.mu.RUnlock()
	if ok {
		return taps
	}

	taps = GaussianKernel(float64(key) / 100)

	c.mu.Lock()
	if len(c.byKey) >= c.limit {
		clear(c.byKey)
	}
	c.byKey[key] = taps
	c.mu.Unlock()
	return taps
}
