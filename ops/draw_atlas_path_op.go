package ops

import (
	"github.com/gogpu/atlasfill"
	"github.com/gogpu/atlasfill/gpu"
	"github.com/gogpu/atlasfill/internal/arena"
	"github.com/gogpu/atlasfill/paint"
	"github.com/gogpu/gputypes"
)

var drawAtlasPathOpClassID = GenClassID()

// atlasPathGP is the geometry processor of DrawAtlasPathOp.
type atlasPathGP struct {
	quad   quadVariant
	helper *AtlasInstancedHelper
}

func (g *atlasPathGP) Name() string { return "DrawAtlasPathShader" }

func (g *atlasPathGP) Key() string { return g.quad.key() + "|" + g.helper.Key() }

func (g *atlasPathGP) Emit(b *gpu.ShaderBuilder) {
	g.quad.declareInstance(b)
	g.helper.AppendInstanceAttribs(b)
	g.quad.emitVertex(b)
	g.helper.InjectShaderCode(b, "dev")
}

func (g *atlasPathGP) VisitTextures(fn gpu.TextureVisitor) {
	fn(g.helper.View(), false)
}

// DrawAtlasPathOp fills device rectangles with path coverage stored in an
// atlas texture. Ops sharing an atlas view, shader flags, sample count and
// an equivalent paint merge into one instanced draw.
type DrawAtlasPathOp struct {
	instances       instanceList
	helper          AtlasInstancedHelper
	hwaa            bool
	processors      *paint.ProcessorSet
	usesLocalCoords bool
	coverage        gpu.CoverageBlend
	clamp           gpu.ClampType
	bounds          atlasfill.IRect
	state           opState

	program        *gpu.ProgramInfo
	instanceBuffer *gpu.Buffer
	baseInstance   int
	vertexBuffer   *gpu.Buffer
}

// NewDrawAtlasPathOp records a fill of fillBounds with the coverage of the
// path whose mask sits at locationInAtlas. The op and its instance storage
// are allocated from a, which must outlive it.
//
// An inverse fill draws fillBounds with inverted coverage and treats
// everything outside pathDevIBounds as uncovered. The op keeps a reference
// to atlasView until Release.
func NewDrawAtlasPathOp(a *arena.Arena, fillBounds atlasfill.IRect, localToDevice atlasfill.Matrix,
	processors *paint.ProcessorSet, locationInAtlas atlasfill.IPoint16, pathDevIBounds atlasfill.IRect,
	transposedInAtlas bool, atlasView *gpu.TextureView, isInverseFill bool,
	numRenderTargetSamples int) *DrawAtlasPathOp {
	flags := ShaderFlagsNone
	if isInverseFill {
		flags = ShaderFlagsCheckBounds | ShaderFlagsInvertCoverage
	}
	op := arena.New[DrawAtlasPathOp](a)
	op.helper = NewAtlasInstancedHelper(atlasView, flags)
	op.hwaa = numRenderTargetSamples > 1
	op.processors = processors
	op.bounds = fillBounds
	op.instances.append(a, instance{
		fillBounds:    fillBounds,
		localToDevice: localToDevice,
		color:         processors.Color(),
		atlas: AtlasInstance{
			Location:       locationInAtlas,
			PathDevIBounds: pathDevIBounds,
			Transposed:     transposedInAtlas,
		},
	})
	return op
}

// ClassID implements Op.
func (op *DrawAtlasPathOp) ClassID() ClassID { return drawAtlasPathOpClassID }

// Name implements Op.
func (op *DrawAtlasPathOp) Name() string { return "DrawAtlasPathOp" }

// Bounds implements Op. It is the union of every instance's fill bounds.
func (op *DrawAtlasPathOp) Bounds() atlasfill.IRect { return op.bounds }

// InstanceCount returns the number of fills the op draws.
func (op *DrawAtlasPathOp) InstanceCount() int { return op.instances.len() }

// AtlasView returns the atlas texture, or nil once the op was released.
func (op *DrawAtlasPathOp) AtlasView() *gpu.TextureView { return op.helper.View() }

// Program returns the program descriptor, or nil before preparation.
func (op *DrawAtlasPathOp) Program() *gpu.ProgramInfo { return op.program }

// IsInert reports whether the op was absorbed by another.
func (op *DrawAtlasPathOp) IsInert() bool { return op.state == stateInert }

// FixedFunctionFlags implements Op.
func (op *DrawAtlasPathOp) FixedFunctionFlags() FixedFunctionFlags {
	if op.hwaa {
		return FixedFunctionUsesHWAA
	}
	return FixedFunctionNone
}

// Finalize implements Op. It runs while the op still holds its single
// instance; a folded paint color replaces that instance's color.
//
// A paint whose blend cannot apply partial coverage (Src) is refused: the
// op never combines and its Execute records a skipped draw.
func (op *DrawAtlasPathOp) Finalize(caps *gpu.Caps, clip gpu.AppliedClip, clamp gpu.ClampType) paint.Analysis {
	head := op.instances.head()
	analysis, color := op.processors.Finalize(head.color, paint.CoverageSingleChannel, clip, caps, clamp)
	head.color = color
	op.usesLocalCoords = analysis.UsesLocalCoords
	op.coverage = analysis.CoverageBlend
	op.clamp = clamp
	if op.refused() {
		atlasfill.Logger().Warn("ops: atlas path fill refused, blend cannot apply coverage",
			"blend", op.processors.Blend(), "bounds", op.bounds)
	}
	return analysis
}

func (op *DrawAtlasPathOp) refused() bool { return op.coverage == gpu.CoverageUnsupported }

// CombineIfPossible implements Op. On success the instances of other are
// appended after the receiver's and other becomes inert.
func (op *DrawAtlasPathOp) CombineIfPossible(other Op, a *arena.Arena, caps *gpu.Caps) CombineResult {
	if other.ClassID() != op.ClassID() {
		return CombineResultCannotCombine
	}
	that, ok := other.(*DrawAtlasPathOp)
	if !ok || that == op || !op.state.recording() || !that.state.recording() {
		return CombineResultCannotCombine
	}
	if op.refused() || that.refused() ||
		!op.helper.IsCompatible(&that.helper) ||
		op.hwaa != that.hwaa ||
		op.usesLocalCoords != that.usesLocalCoords ||
		op.coverage != that.coverage ||
		op.clamp != that.clamp ||
		!op.processors.CanMergeWith(that.processors) {
		return CombineResultCannotCombine
	}
	if !caps.InstanceLimitAllows(op.instances.len() + that.instances.len()) {
		return CombineResultCannotCombine
	}

	op.instances.concat(a, &that.instances)
	op.bounds = op.bounds.Join(that.bounds)
	op.state = stateCombined

	that.helper.Release()
	that.instances = instanceList{}
	that.state = stateInert
	return CombineResultMerged
}

// PrePrepare implements Op.
func (op *DrawAtlasPathOp) PrePrepare(ctx *gpu.RecordingContext, writeView gpu.SurfaceView, clip gpu.AppliedClip,
	dst gpu.DstProxyView, barriers gpu.XferBarrierFlags, colorLoad gputypes.LoadOp) {
	if op.state == stateInert || op.refused() {
		return
	}
	op.prepareProgram(ctx.Caps(), ctx.Arena(), writeView, clip, dst, barriers, colorLoad)
}

func (op *DrawAtlasPathOp) prepareProgram(caps *gpu.Caps, a *arena.Arena, writeView gpu.SurfaceView,
	clip gpu.AppliedClip, dst gpu.DstProxyView, barriers gpu.XferBarrierFlags, colorLoad gputypes.LoadOp) {
	if op.program != nil {
		return
	}
	gp := arena.Make(a, atlasPathGP{
		quad:   quadVariant{vertexID: caps.VertexIDSupport, usesLocalCoords: op.usesLocalCoords},
		helper: &op.helper,
	})
	pipeline := arena.Make(a, gpu.Pipeline{
		Processors:   op.processors,
		Clip:         clip,
		DstProxyView: dst,
		Barriers:     barriers,
		HWAA:         op.hwaa,
		Coverage:     op.coverage,
		Clamp:        op.clamp,
	})
	op.program = gpu.NewProgramInfo(writeView, pipeline, gp, gputypes.PrimitiveTopologyTriangleStrip, colorLoad)
}

// instanceFloats returns the number of floats per serialized instance.
func (op *DrawAtlasPathOp) instanceFloats() int {
	return quadVariant{usesLocalCoords: op.usesLocalCoords}.floats() + op.helper.floats()
}

// Prepare implements Op. When instance space cannot be allocated the op
// keeps no buffer and Execute draws nothing. Only the first call writes
// instance data.
func (op *DrawAtlasPathOp) Prepare(fs *gpu.FlushState) {
	if !op.state.recording() {
		return
	}
	op.state = statePrepared
	if op.refused() {
		return
	}
	args := fs.OpArgs()
	op.prepareProgram(fs.Caps(), fs.Arena(), fs.WriteView(), args.Clip, args.DstProxy, args.Barriers, args.ColorLoad)

	n := op.instances.len()
	stride := uint64(op.instanceFloats()) * 4 //nolint:gosec // small constant
	data, buf, base := fs.MakeVertexSpace(stride, n)
	if buf == nil {
		return
	}
	quad := quadVariant{usesLocalCoords: op.usesLocalCoords}
	out := data[:0]
	for i := range op.instances.items {
		in := &op.instances.items[i]
		out = quad.write(out, in.fillBounds, in.localToDevice, in.color)
		out = op.helper.WriteInstanceData(out, &in.atlas)
	}

	if !fs.Caps().VertexIDSupport {
		op.vertexBuffer = unitQuadBuffer(fs)
		if op.vertexBuffer == nil {
			return
		}
	}
	op.instanceBuffer = buf
	op.baseInstance = base
}

// Execute implements Op. It issues one instanced triangle-strip draw. An
// op that was never prepared records a skipped draw.
func (op *DrawAtlasPathOp) Execute(fs *gpu.FlushState, chainBounds atlasfill.Rect) {
	if op.state.recording() {
		fs.RecordSkippedDraw()
		return
	}
	if op.state != statePrepared {
		return
	}
	op.state = stateExecuted
	if op.instanceBuffer == nil || op.program == nil {
		fs.RecordSkippedDraw()
		return
	}
	if !fs.BindPipelineAndScissorClip(op.program, chainBounds) {
		fs.RecordSkippedDraw()
		return
	}
	if !fs.BindTextures(op.program.GeometryProcessor(), []*gpu.TextureView{op.helper.View()}, op.program.Pipeline()) {
		fs.RecordSkippedDraw()
		return
	}
	fs.BindBuffers(nil, op.instanceBuffer, op.vertexBuffer)
	fs.DrawInstanced(op.instances.len(), op.baseInstance, quadVertexCount, 0)
}

// VisitProxies implements Op. It visits the atlas, then the paint's
// textures.
func (op *DrawAtlasPathOp) VisitProxies(fn gpu.TextureVisitor) {
	if v := op.helper.View(); v != nil {
		fn(v, false)
	}
	op.processors.VisitTextures(fn)
}

// Release implements Op.
func (op *DrawAtlasPathOp) Release() {
	op.helper.Release()
}
