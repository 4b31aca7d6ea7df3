// Package paint compiles a Paint (color, color processors, blend mode) into
// a ProcessorSet that draw ops share and compare when deciding whether they
// can merge.
package paint

import (
	"fmt"

	"github.com/gogpu/atlasfill"
	"github.com/gogpu/atlasfill/gpu"
	"github.com/gogpu/gputypes"
)

// BlendMode selects how the paint color combines with the destination.
// Every mode is expressible with fixed-function blending of premultiplied
// colors. Src cannot apply partial coverage that way, so coverage-based ops
// refuse it.
type BlendMode uint8

// Blend modes.
const (
	BlendSrcOver BlendMode = iota
	BlendSrc
	BlendPlus
	BlendScreen
	BlendModulate
)

// String returns the blend mode name.
func (m BlendMode) String() string {
	switch m {
	case BlendSrcOver:
		return "SrcOver"
	case BlendSrc:
		return "Src"
	case BlendPlus:
		return "Plus"
	case BlendScreen:
		return "Screen"
	case BlendModulate:
		return "Modulate"
	default:
		return fmt.Sprintf("BlendMode(%d)", m)
	}
}

// BlendState returns the fixed-function blend for premultiplied colors.
func (m BlendMode) BlendState() gputypes.BlendState {
	comp := func(src, dst gputypes.BlendFactor) gputypes.BlendComponent {
		return gputypes.BlendComponent{SrcFactor: src, DstFactor: dst, Operation: gputypes.BlendOperationAdd}
	}
	var c gputypes.BlendComponent
	switch m {
	case BlendSrc:
		c = comp(gputypes.BlendFactorOne, gputypes.BlendFactorZero)
	case BlendPlus:
		c = comp(gputypes.BlendFactorOne, gputypes.BlendFactorOne)
	case BlendScreen:
		c = comp(gputypes.BlendFactorOne, gputypes.BlendFactorOneMinusSrc)
	case BlendModulate:
		c = comp(gputypes.BlendFactorZero, gputypes.BlendFactorSrc)
	default:
		return gputypes.BlendStatePremultiplied()
	}
	return gputypes.BlendState{Color: c, Alpha: c}
}

// coverageAsAlpha reports whether multiplying the source by coverage gives
// the same result as lerping between destination and blended result.
func (m BlendMode) coverageAsAlpha() bool {
	switch m {
	case BlendSrcOver, BlendPlus, BlendScreen:
		return true
	default:
		return false
	}
}

// coverageBlend returns how partial coverage is applied under m. Src has
// no single-output fixed-function form for partial coverage.
func (m BlendMode) coverageBlend(c Coverage) gpu.CoverageBlend {
	switch {
	case c == CoverageNone || m.coverageAsAlpha():
		return gpu.CoverageAsAlpha
	case m == BlendModulate:
		return gpu.CoverageLerpWhite
	default:
		return gpu.CoverageUnsupported
	}
}

// Paint describes how a filled region is colored.
type Paint struct {
	// Color is the straight-alpha base color.
	Color atlasfill.RGBA
	// Processors modify the color in order.
	Processors []Processor
	// Blend combines the result with the destination.
	Blend BlendMode
}

// NewPaint creates a source-over paint with a solid color.
func NewPaint(c atlasfill.RGBA) Paint {
	return Paint{Color: c}
}

// With returns a copy of p with processors appended.
func (p Paint) With(procs ...Processor) Paint {
	p.Processors = append(append([]Processor(nil), p.Processors...), procs...)
	return p
}
