package gpu

import (
	"fmt"

	"github.com/gogpu/atlasfill"
	"github.com/gogpu/atlasfill/internal/arena"
	"github.com/gogpu/gputypes"
)

// RecordingContext is what ops see during ahead-of-time preparation: the
// device caps and the arena that owns program descriptors.
type RecordingContext struct {
	caps  *Caps
	arena *arena.Arena
}

// NewRecordingContext creates a recording context.
func NewRecordingContext(caps *Caps, a *arena.Arena) *RecordingContext {
	return &RecordingContext{caps: caps, arena: a}
}

// Caps returns the device caps.
func (c *RecordingContext) Caps() *Caps { return c.caps }

// Arena returns the arena that outlives every recorded op.
func (c *RecordingContext) Arena() *arena.Arena { return c.arena }

// FlushStats counts what a flush recorded.
type FlushStats struct {
	Draws         int
	Instances     int
	PipelineBinds int
	SkippedDraws  int
}

// String returns a human-readable summary.
func (s FlushStats) String() string {
	return fmt.Sprintf("Flush[%d draws, %d instances, %d binds, %d skipped]",
		s.Draws, s.Instances, s.PipelineBinds, s.SkippedDraws)
}

// OpArgs are the per-op arguments a scheduler sets before preparing or
// executing an op.
type OpArgs struct {
	Clip      AppliedClip
	DstProxy  DstProxyView
	Barriers  XferBarrierFlags
	ColorLoad gputypes.LoadOp
}

// FlushState ties together everything ops use while preparing and
// executing: caps, resources, instance storage and the render pass.
type FlushState struct {
	caps     *Caps
	provider *ResourceProvider
	pool     *VertexPool
	pass     OpsRenderPass
	target   SurfaceView
	arena    *arena.Arena
	args     OpArgs
	stats    FlushStats
}

// NewFlushState creates a flush state. pass may be nil while only
// preparing.
func NewFlushState(caps *Caps, provider *ResourceProvider, pool *VertexPool, pass OpsRenderPass,
	target SurfaceView, a *arena.Arena) *FlushState {
	return &FlushState{
		caps:     caps,
		provider: provider,
		pool:     pool,
		pass:     pass,
		target:   target,
		arena:    a,
		args:     OpArgs{ColorLoad: gputypes.LoadOpLoad},
	}
}

// Caps returns the device caps.
func (f *FlushState) Caps() *Caps { return f.caps }

// ResourceProvider returns the resource provider.
func (f *FlushState) ResourceProvider() *ResourceProvider { return f.provider }

// Arena returns the op list arena.
func (f *FlushState) Arena() *arena.Arena { return f.arena }

// WriteView returns the render target.
func (f *FlushState) WriteView() SurfaceView { return f.target }

// SetOpsRenderPass installs the pass used by Execute.
func (f *FlushState) SetOpsRenderPass(pass OpsRenderPass) { f.pass = pass }

// SetOpArgs sets the arguments of the op about to be prepared or executed.
func (f *FlushState) SetOpArgs(args OpArgs) { f.args = args }

// OpArgs returns the arguments of the current op.
func (f *FlushState) OpArgs() OpArgs { return f.args }

// MakeVertexSpace reserves count elements of stride bytes in the flush's
// vertex pool. On failure it returns a nil buffer.
func (f *FlushState) MakeVertexSpace(stride uint64, count int) (data []float32, buf *Buffer, base int) {
	data, buf, base, err := f.pool.MakeSpace(stride, count)
	if err != nil {
		atlasfill.Logger().Debug("gpu: vertex space unavailable", "stride", stride, "count", count, "err", err)
		return nil, nil, 0
	}
	return data, buf, base
}

// BindPipelineAndScissorClip binds program and applies its scissor, or the
// full target when the pipeline has none.
func (f *FlushState) BindPipelineAndScissorClip(program *ProgramInfo, drawBounds atlasfill.Rect) bool {
	if f.pass == nil || !f.pass.BindPipeline(program, drawBounds) {
		return false
	}
	f.stats.PipelineBinds++
	if program.Pipeline().ScissorEnabled() {
		f.pass.SetScissorRect(program.Pipeline().Clip.ScissorRect())
	} else {
		f.pass.SetScissorRect(f.target.Bounds())
	}
	return true
}

// BindTextures binds the geometry processor textures and the pipeline's
// processor textures.
func (f *FlushState) BindTextures(gp GeometryProcessor, gpTextures []*TextureView, pipeline *Pipeline) bool {
	return f.pass != nil && f.pass.BindTextures(gp, gpTextures, pipeline)
}

// BindBuffers binds index, instance and vertex buffers. Any may be nil.
func (f *FlushState) BindBuffers(index, instance, vertex *Buffer) {
	if f.pass != nil {
		f.pass.BindBuffers(index, instance, vertex)
	}
}

// DrawInstanced issues an instanced draw.
func (f *FlushState) DrawInstanced(instanceCount, baseInstance, vertexCount, baseVertex int) {
	if f.pass == nil {
		return
	}
	f.pass.DrawInstanced(instanceCount, baseInstance, vertexCount, baseVertex)
	f.stats.Draws++
	f.stats.Instances += instanceCount
}

// RecordSkippedDraw notes an op that had nothing to draw.
func (f *FlushState) RecordSkippedDraw() { f.stats.SkippedDraws++ }

// Stats returns what the flush has recorded so far.
func (f *FlushState) Stats() FlushStats { return f.stats }

// UploadVertexData uploads everything written through MakeVertexSpace. It
// must run after the last Prepare and before the command buffer is
// submitted.
func (f *FlushState) UploadVertexData() {
	if f.pool != nil {
		f.pool.Unmap()
	}
}
