package ops

import (
	"github.com/gogpu/atlasfill"
	"github.com/gogpu/atlasfill/gpu"
	"github.com/gogpu/atlasfill/internal/arena"
	"github.com/gogpu/atlasfill/paint"
	"github.com/gogpu/gputypes"
)

var fillRectOpClassID = GenClassID()

// fillRectGP draws fully covered rectangles.
type fillRectGP struct {
	quad quadVariant
}

func (g *fillRectGP) Name() string { return "FillRectShader" }

func (g *fillRectGP) Key() string { return g.quad.key() }

func (g *fillRectGP) Emit(b *gpu.ShaderBuilder) {
	g.quad.declareInstance(b)
	g.quad.emitVertex(b)
}

func (g *fillRectGP) VisitTextures(gpu.TextureVisitor) {}

// FillRectOp fills integer device rectangles with a paint. Rect fills
// merge with each other but never with atlas fills.
type FillRectOp struct {
	instances       instanceList
	hwaa            bool
	processors      *paint.ProcessorSet
	usesLocalCoords bool
	clamp           gpu.ClampType
	bounds          atlasfill.IRect
	state           opState

	program        *gpu.ProgramInfo
	instanceBuffer *gpu.Buffer
	baseInstance   int
	vertexBuffer   *gpu.Buffer
}

// NewFillRectOp records a fill of rect.
func NewFillRectOp(a *arena.Arena, rect atlasfill.IRect, localToDevice atlasfill.Matrix,
	processors *paint.ProcessorSet, numRenderTargetSamples int) *FillRectOp {
	op := arena.New[FillRectOp](a)
	op.hwaa = numRenderTargetSamples > 1
	op.processors = processors
	op.bounds = rect
	op.instances.append(a, instance{
		fillBounds:    rect,
		localToDevice: localToDevice,
		color:         processors.Color(),
	})
	return op
}

// ClassID implements Op.
func (op *FillRectOp) ClassID() ClassID { return fillRectOpClassID }

// Name implements Op.
func (op *FillRectOp) Name() string { return "FillRectOp" }

// Bounds implements Op.
func (op *FillRectOp) Bounds() atlasfill.IRect { return op.bounds }

// InstanceCount returns the number of rectangles the op draws.
func (op *FillRectOp) InstanceCount() int { return op.instances.len() }

// FixedFunctionFlags implements Op.
func (op *FillRectOp) FixedFunctionFlags() FixedFunctionFlags {
	if op.hwaa {
		return FixedFunctionUsesHWAA
	}
	return FixedFunctionNone
}

// Finalize implements Op.
func (op *FillRectOp) Finalize(caps *gpu.Caps, clip gpu.AppliedClip, clamp gpu.ClampType) paint.Analysis {
	head := op.instances.head()
	analysis, color := op.processors.Finalize(head.color, paint.CoverageNone, clip, caps, clamp)
	head.color = color
	op.usesLocalCoords = analysis.UsesLocalCoords
	op.clamp = clamp
	return analysis
}

// CombineIfPossible implements Op.
func (op *FillRectOp) CombineIfPossible(other Op, a *arena.Arena, caps *gpu.Caps) CombineResult {
	if other.ClassID() != op.ClassID() {
		return CombineResultCannotCombine
	}
	that, ok := other.(*FillRectOp)
	if !ok || that == op || !op.state.recording() || !that.state.recording() {
		return CombineResultCannotCombine
	}
	if op.hwaa != that.hwaa ||
		op.usesLocalCoords != that.usesLocalCoords ||
		op.clamp != that.clamp ||
		!op.processors.CanMergeWith(that.processors) ||
		!caps.InstanceLimitAllows(op.instances.len()+that.instances.len()) {
		return CombineResultCannotCombine
	}
	op.instances.concat(a, &that.instances)
	op.bounds = op.bounds.Join(that.bounds)
	op.state = stateCombined
	that.instances = instanceList{}
	that.state = stateInert
	return CombineResultMerged
}

// PrePrepare implements Op.
func (op *FillRectOp) PrePrepare(ctx *gpu.RecordingContext, writeView gpu.SurfaceView, clip gpu.AppliedClip,
	dst gpu.DstProxyView, barriers gpu.XferBarrierFlags, colorLoad gputypes.LoadOp) {
	if op.state == stateInert {
		return
	}
	op.prepareProgram(ctx.Caps(), ctx.Arena(), writeView, clip, dst, barriers, colorLoad)
}

func (op *FillRectOp) prepareProgram(caps *gpu.Caps, a *arena.Arena, writeView gpu.SurfaceView,
	clip gpu.AppliedClip, dst gpu.DstProxyView, barriers gpu.XferBarrierFlags, colorLoad gputypes.LoadOp) {
	if op.program != nil {
		return
	}
	gp := arena.Make(a, fillRectGP{
		quad: quadVariant{vertexID: caps.VertexIDSupport, usesLocalCoords: op.usesLocalCoords},
	})
	pipeline := arena.Make(a, gpu.Pipeline{
		Processors:   op.processors,
		Clip:         clip,
		DstProxyView: dst,
		Barriers:     barriers,
		HWAA:         op.hwaa,
		Clamp:        op.clamp,
	})
	op.program = gpu.NewProgramInfo(writeView, pipeline, gp, gputypes.PrimitiveTopologyTriangleStrip, colorLoad)
}

// Prepare implements Op.
func (op *FillRectOp) Prepare(fs *gpu.FlushState) {
	if !op.state.recording() {
		return
	}
	args := fs.OpArgs()
	op.prepareProgram(fs.Caps(), fs.Arena(), fs.WriteView(), args.Clip, args.DstProxy, args.Barriers, args.ColorLoad)
	op.state = statePrepared

	quad := quadVariant{usesLocalCoords: op.usesLocalCoords}
	stride := uint64(quad.floats()) * 4 //nolint:gosec // small constant
	data, buf, base := fs.MakeVertexSpace(stride, op.instances.len())
	if buf == nil {
		return
	}
	out := data[:0]
	for i := range op.instances.items {
		in := &op.instances.items[i]
		out = quad.write(out, in.fillBounds, in.localToDevice, in.color)
	}
	if !fs.Caps().VertexIDSupport {
		if op.vertexBuffer = unitQuadBuffer(fs); op.vertexBuffer == nil {
			return
		}
	}
	op.instanceBuffer = buf
	op.baseInstance = base
}

// Execute implements Op.
func (op *FillRectOp) Execute(fs *gpu.FlushState, chainBounds atlasfill.Rect) {
	if op.state.recording() {
		fs.RecordSkippedDraw()
		return
	}
	if op.state != statePrepared {
		return
	}
	op.state = stateExecuted
	if op.instanceBuffer == nil ||
		!fs.BindPipelineAndScissorClip(op.program, chainBounds) ||
		!fs.BindTextures(op.program.GeometryProcessor(), nil, op.program.Pipeline()) {
		fs.RecordSkippedDraw()
		return
	}
	fs.BindBuffers(nil, op.instanceBuffer, op.vertexBuffer)
	fs.DrawInstanced(op.instances.len(), op.baseInstance, quadVertexCount, 0)
}

// VisitProxies implements Op.
func (op *FillRectOp) VisitProxies(fn gpu.TextureVisitor) {
	op.processors.VisitTextures(fn)
}

// Release implements Op.
func (op *FillRectOp) Release() {}
