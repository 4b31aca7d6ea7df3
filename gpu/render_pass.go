package gpu

import (
	"fmt"

	"github.com/gogpu/atlasfill"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"honnef.co/go/safeish"
)

// OpsRenderPass is the command stream ops execute into.
//
// A draw is recorded as BindPipeline, optional SetScissorRect,
// BindTextures, BindBuffers and DrawInstanced. When BindPipeline or
// BindTextures returns false the op skips its draw.
type OpsRenderPass interface {
	BindPipeline(program *ProgramInfo, drawBounds atlasfill.Rect) bool
	SetScissorRect(r atlasfill.IRect)
	BindTextures(gp GeometryProcessor, gpTextures []*TextureView, pipeline *Pipeline) bool
	BindBuffers(index, instance, vertex *Buffer)
	DrawInstanced(instanceCount, baseInstance, vertexCount, baseVertex int)
}

// HALRenderPass records ops into a hal render pass encoder.
type HALRenderPass struct {
	rp       hal.RenderPassEncoder
	provider *ResourceProvider
	cache    *ProgramCache
	target   SurfaceView
	uniform  *Buffer

	current    *CachedProgram
	bindGroups []hal.BindGroup
}

// rtAdjustSize is the size of the RTAdjust uniform in bytes.
const rtAdjustSize = 16

// NewHALRenderPass wraps rp. The pass writes a render target adjustment
// uniform that maps device pixels to clip space.
func NewHALRenderPass(rp hal.RenderPassEncoder, provider *ResourceProvider, cache *ProgramCache, target SurfaceView) (*HALRenderPass, error) {
	if target.Width <= 0 || target.Height <= 0 {
		return nil, fmt.Errorf("%w: target %dx%d", ErrInvalidSize, target.Width, target.Height)
	}
	uniform, err := provider.CreateBuffer("atlasfill_rt_adjust", rtAdjustSize,
		gputypes.BufferUsageUniform|gputypes.BufferUsageCopyDst)
	if err != nil {
		return nil, fmt.Errorf("create rt adjust uniform: %w", err)
	}
	adjust := []float32{
		2 / float32(target.Width),
		-2 / float32(target.Height),
		-1,
		1,
	}
	provider.WriteBuffer(uniform, 0, safeish.SliceCast[[]byte](adjust))
	return &HALRenderPass{
		rp:       rp,
		provider: provider,
		cache:    cache,
		target:   target,
		uniform:  uniform,
	}, nil
}

// BindPipeline binds the render pipeline for program, compiling it on
// first use.
func (p *HALRenderPass) BindPipeline(program *ProgramInfo, _ atlasfill.Rect) bool {
	cp, err := p.cache.FindOrCreate(program)
	if err != nil {
		atlasfill.Logger().Warn("gpu: bind pipeline", "err", err)
		p.current = nil
		return false
	}
	p.current = cp
	p.rp.SetPipeline(cp.Pipeline)
	return true
}

// SetScissorRect restricts drawing to r intersected with the target.
func (p *HALRenderPass) SetScissorRect(r atlasfill.IRect) {
	b := p.target.Bounds()
	r = atlasfill.IRect{
		Left:   max(r.Left, b.Left),
		Top:    max(r.Top, b.Top),
		Right:  min(r.Right, b.Right),
		Bottom: min(r.Bottom, b.Bottom),
	}
	if r.IsEmpty() {
		r = atlasfill.IRect{}
	}
	//nolint:gosec // clamped to the target above
	p.rp.SetScissorRect(uint32(r.Left), uint32(r.Top), uint32(r.Width()), uint32(r.Height()))
}

// BindTextures creates and binds the bind group for the current program.
func (p *HALRenderPass) BindTextures(_ GeometryProcessor, gpTextures []*TextureView, pipeline *Pipeline) bool {
	if p.current == nil {
		return false
	}
	views := append([]*TextureView(nil), gpTextures...)
	if pipeline.Processors != nil {
		pipeline.Processors.VisitTextures(func(v *TextureView, _ bool) {
			views = append(views, v)
		})
	}
	if len(views) != p.current.NumTextures {
		atlasfill.Logger().Warn("gpu: texture count mismatch",
			"program", p.current.Key, "want", p.current.NumTextures, "got", len(views))
		return false
	}

	entries := []gputypes.BindGroupEntry{{
		Binding:  0,
		Resource: gputypes.BufferBinding{Buffer: p.uniform.raw.NativeHandle(), Offset: 0, Size: rtAdjustSize},
	}}
	if len(views) > 0 {
		sampler, err := p.provider.Sampler()
		if err != nil {
			atlasfill.Logger().Warn("gpu: bind textures", "err", err)
			return false
		}
		for i, v := range views {
			if v == nil || v.view == nil {
				return false
			}
			entries = append(entries,
				gputypes.BindGroupEntry{
					Binding:  uint32(1 + 2*i), //nolint:gosec // small
					Resource: gputypes.TextureViewBinding{TextureView: v.view.NativeHandle()},
				},
				gputypes.BindGroupEntry{
					Binding:  uint32(2 + 2*i), //nolint:gosec // small
					Resource: gputypes.SamplerBinding{Sampler: sampler.NativeHandle()},
				},
			)
		}
	}

	bg, err := p.provider.Device().CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   p.current.Key + "_bind_group",
		Layout:  p.current.BindGroupLayout,
		Entries: entries,
	})
	if err != nil {
		atlasfill.Logger().Warn("gpu: create bind group", "err", err)
		return false
	}
	p.bindGroups = append(p.bindGroups, bg)
	p.rp.SetBindGroup(0, bg, nil)
	return true
}

// BindBuffers binds the instance buffer to slot 0 and the vertex buffer to
// slot 1. Index buffers are not used by atlasfill programs.
func (p *HALRenderPass) BindBuffers(index, instance, vertex *Buffer) {
	if index != nil {
		p.rp.SetIndexBuffer(index.raw, gputypes.IndexFormatUint16, 0)
	}
	if instance != nil {
		p.rp.SetVertexBuffer(0, instance.raw, 0)
	}
	if vertex != nil {
		p.rp.SetVertexBuffer(1, vertex.raw, 0)
	}
}

// DrawInstanced issues a non-indexed instanced draw.
func (p *HALRenderPass) DrawInstanced(instanceCount, baseInstance, vertexCount, baseVertex int) {
	//nolint:gosec // counts are bounded by caps
	p.rp.Draw(uint32(vertexCount), uint32(instanceCount), uint32(baseVertex), uint32(baseInstance))
}

// Release destroys the per-pass bind groups and uniform. Call it once the
// command buffer recorded through the pass has completed.
func (p *HALRenderPass) Release() {
	dev := p.provider.Device()
	for _, bg := range p.bindGroups {
		dev.DestroyBindGroup(bg)
	}
	p.bindGroups = nil
	p.provider.ReleaseBuffer(p.uniform)
	p.uniform = nil
}
