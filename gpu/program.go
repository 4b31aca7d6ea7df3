package gpu

import (
	"fmt"

	"github.com/gogpu/atlasfill"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// ClampType says how fragment colors are clamped before blending.
type ClampType uint8

// Clamp types.
const (
	// ClampAuto clamps in fixed-function hardware (unorm targets).
	ClampAuto ClampType = iota
	// ClampManual clamps in the shader.
	ClampManual
	// ClampNone leaves colors unclamped (float targets).
	ClampNone
)

// CoverageBlend says how fragment coverage is applied to the output color.
type CoverageBlend uint8

// Coverage blends.
const (
	// CoverageAsAlpha scales the color by coverage. A zero color must leave
	// the destination unchanged under the program's blend.
	CoverageAsAlpha CoverageBlend = iota
	// CoverageLerpWhite lerps from opaque white to the color by coverage.
	// Used by multiplicative blends, where white leaves the destination
	// unchanged.
	CoverageLerpWhite
	// CoverageUnsupported means the blend cannot express partial coverage.
	// Ops never build programs with it.
	CoverageUnsupported
)

// String returns the coverage blend name.
func (c CoverageBlend) String() string {
	switch c {
	case CoverageAsAlpha:
		return "alpha"
	case CoverageLerpWhite:
		return "lerp_white"
	case CoverageUnsupported:
		return "unsupported"
	default:
		return fmt.Sprintf("CoverageBlend(%d)", c)
	}
}

// XferBarrierFlags lists barriers a program needs between draws that read
// the destination.
type XferBarrierFlags uint8

// Transfer barriers.
const (
	XferBarrierNone    XferBarrierFlags = 0
	XferBarrierTexture XferBarrierFlags = 1 << 0
	XferBarrierBlend   XferBarrierFlags = 1 << 1
)

// AppliedClip is the part of the clip stack an op must honor at draw time.
// Only scissor clips are supported.
type AppliedClip struct {
	scissor        atlasfill.IRect
	scissorEnabled bool
}

// NoClip returns a clip that does not restrict drawing.
func NoClip() AppliedClip { return AppliedClip{} }

// ScissorClip returns a clip that restricts drawing to r.
func ScissorClip(r atlasfill.IRect) AppliedClip {
	return AppliedClip{scissor: r, scissorEnabled: true}
}

// ScissorEnabled reports whether the clip has a scissor rectangle.
func (c AppliedClip) ScissorEnabled() bool { return c.scissorEnabled }

// ScissorRect returns the scissor rectangle.
func (c AppliedClip) ScissorRect() atlasfill.IRect { return c.scissor }

// DstProxyView names a copy of the destination that shaders may read.
type DstProxyView struct {
	View   *TextureView
	Offset atlasfill.IPoint16
}

// SurfaceView describes the render target ops draw into.
type SurfaceView struct {
	Width       int
	Height      int
	Format      gputypes.TextureFormat
	SampleCount int
	// View is nil for targets that are never bound, as in recording tests.
	View hal.TextureView
}

// Bounds returns the target rectangle in device space.
func (s SurfaceView) Bounds() atlasfill.IRect {
	return atlasfill.IRectXYWH(0, 0, int32(s.Width), int32(s.Height)) //nolint:gosec // target dims fit int32
}

// TextureVisitor receives each texture a program samples.
type TextureVisitor func(view *TextureView, mipmapped bool)

// GeometryProcessor produces the vertex stage and coverage of a program.
type GeometryProcessor interface {
	// Name returns a debug name.
	Name() string
	// Key distinguishes shader variants of the same processor.
	Key() string
	// Emit declares inputs and writes the vertex stage, the input color and
	// the coverage into b. Textures must be declared before the fragment
	// processors run.
	Emit(b *ShaderBuilder)
	// VisitTextures visits textures in the order Emit declared them.
	VisitTextures(fn TextureVisitor)
}

// FragmentProcessors is a compiled paint: a color processor chain plus a
// blend state.
type FragmentProcessors interface {
	// ShaderKey identifies the generated code and blend state.
	ShaderKey() string
	// EmitColor appends color processing to b and returns the fragment
	// expression for the output color.
	EmitColor(b *ShaderBuilder, inputColor, localCoords string) string
	// VisitTextures visits textures in the order EmitColor declares them.
	VisitTextures(fn TextureVisitor)
	// BlendState returns the fixed-function blend.
	BlendState() gputypes.BlendState
}

// Pipeline is the fixed-function and fragment state of a draw.
type Pipeline struct {
	Processors   FragmentProcessors
	Clip         AppliedClip
	DstProxyView DstProxyView
	Barriers     XferBarrierFlags
	HWAA         bool
	// Coverage selects how the geometry's coverage meets the paint color.
	Coverage CoverageBlend
	// Clamp is applied to the paint color before coverage.
	Clamp ClampType
}

// ScissorEnabled reports whether the pipeline's clip uses a scissor.
func (p *Pipeline) ScissorEnabled() bool { return p.Clip.ScissorEnabled() }

// VisitProxies visits processor textures and the destination copy.
func (p *Pipeline) VisitProxies(fn TextureVisitor) {
	if p.Processors != nil {
		p.Processors.VisitTextures(fn)
	}
	if p.DstProxyView.View != nil {
		fn(p.DstProxyView.View, false)
	}
}

// ShaderProgram is the output of ProgramInfo.Compile.
type ShaderProgram struct {
	WGSL        string
	Layouts     []gputypes.VertexBufferLayout
	NumTextures int
	Blend       gputypes.BlendState
}

// ProgramInfo describes everything needed to build a render pipeline for a
// draw. It is immutable once built.
type ProgramInfo struct {
	target   SurfaceView
	pipeline *Pipeline
	gp       GeometryProcessor
	topology gputypes.PrimitiveTopology
	loadOp   gputypes.LoadOp
	key      string
}

// NewProgramInfo creates a program descriptor.
func NewProgramInfo(target SurfaceView, pipeline *Pipeline, gp GeometryProcessor,
	topology gputypes.PrimitiveTopology, loadOp gputypes.LoadOp) *ProgramInfo {
	procKey := ""
	if pipeline.Processors != nil {
		procKey = pipeline.Processors.ShaderKey()
	}
	samples := max(target.SampleCount, 1)
	key := fmt.Sprintf("%s[%s]|%s|cov_%s|clamp%d|fmt%d|s%d|t%d", gp.Name(), gp.Key(), procKey,
		pipeline.Coverage, pipeline.Clamp, target.Format, samples, topology)
	return &ProgramInfo{
		target:   target,
		pipeline: pipeline,
		gp:       gp,
		topology: topology,
		loadOp:   loadOp,
		key:      key,
	}
}

// Key identifies the render pipeline this program compiles to.
func (p *ProgramInfo) Key() string { return p.key }

// Target returns the render target description.
func (p *ProgramInfo) Target() SurfaceView { return p.target }

// Pipeline returns the fixed-function state.
func (p *ProgramInfo) Pipeline() *Pipeline { return p.pipeline }

// GeometryProcessor returns the geometry processor.
func (p *ProgramInfo) GeometryProcessor() GeometryProcessor { return p.gp }

// Topology returns the primitive topology.
func (p *ProgramInfo) Topology() gputypes.PrimitiveTopology { return p.topology }

// LoadOp returns the color load op of the pass the program was built for.
func (p *ProgramInfo) LoadOp() gputypes.LoadOp { return p.loadOp }

// SampleCount returns the render target sample count.
func (p *ProgramInfo) SampleCount() int { return max(p.target.SampleCount, 1) }

// Compile generates the shader and vertex layouts.
func (p *ProgramInfo) Compile() *ShaderProgram {
	b := NewShaderBuilder()
	p.gp.Emit(b)
	color := b.Color()
	blend := gputypes.BlendStatePremultiplied()
	if p.pipeline.Processors != nil {
		color = p.pipeline.Processors.EmitColor(b, color, b.LocalCoords())
		blend = p.pipeline.Processors.BlendState()
	}
	if p.pipeline.Clamp == ClampManual {
		v := b.Temp("clamped")
		b.FS("let %s = clamp(%s, vec4<f32>(0.0), vec4<f32>(1.0));", v, color)
		pm := b.Temp("clamped_pm")
		b.FS("let %s = vec4<f32>(min(%s.rgb, vec3<f32>(%s.a)), %s.a);", pm, v, v, v)
		color = pm
	}
	return &ShaderProgram{
		WGSL:        b.Build(color, p.pipeline.Coverage),
		Layouts:     b.VertexBufferLayouts(),
		NumTextures: b.NumTextures(),
		Blend:       blend,
	}
}

// VisitTextures visits the geometry processor textures followed by the
// pipeline textures, matching bind group order.
func (p *ProgramInfo) VisitTextures(fn TextureVisitor) {
	p.gp.VisitTextures(fn)
	if p.pipeline.Processors != nil {
		p.pipeline.Processors.VisitTextures(fn)
	}
}
