//go:build !nogpu

package gpu

import (
	_ "embed"

	"github.com/gogpu/flame/internal/resource"
)

//go:embed shaders/zero_hist.wgsl
var shaderZeroHist string

//go:embed shaders/clear.wgsl
var shaderClear string

//go:embed shaders/accumulate.wgsl
var shaderAccumulate string

//go:embed shaders/filter_h.wgsl
var shaderFilterH string

//go:embed shaders/filter_v.wgsl
var shaderFilterV string

//go:embed shaders/tonemap.wgsl
var shaderTonemap string

// passID indexes the compute pipelines of a frame.
type passID int

const (
	passZeroHist passID = iota
	passClear
	passSample
	passAccumulate
	passFilterH
	passFilterV
	passTonemap

	passCount
)

func (p passID) String() string {
	switch p {
	case passZeroHist:
		return "zero_hist"
	case passClear:
		return "clear"
	case passSample:
		return "sample"
	case passAccumulate:
		return "accumulate"
	case passFilterH:
		return "filter_h"
	case passFilterV:
		return "filter_v"
	case passTonemap:
		return "tonemap"
	default:
		return "unknown"
	}
}

// fixedSources returns the WGSL of every pass but the sampler, which is
// generated per function list. Each source is prefixed with the uniforms
// struct.
func fixedSources() [passCount]string {
	var src [passCount]string
	for id, body := range map[passID]string{
		passZeroHist:   shaderZeroHist,
		passClear:      shaderClear,
		passAccumulate: shaderAccumulate,
		passFilterH:    shaderFilterH,
		passFilterV:    shaderFilterV,
		passTonemap:    shaderTonemap,
	} {
		src[id] = resource.UniformsWGSL + "\n" + body
	}
	return src
}
