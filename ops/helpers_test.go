package ops

import (
	"testing"

	"github.com/gogpu/atlasfill"
	"github.com/gogpu/atlasfill/gpu"
	"github.com/gogpu/atlasfill/internal/arena"
	"github.com/gogpu/atlasfill/paint"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

// createNoopDevice creates a noop device and queue for testing.
func createNoopDevice(t *testing.T) (hal.Device, hal.Queue, func()) {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	return openDev.Device, openDev.Queue, func() {
		openDev.Device.Destroy()
		instance.Destroy()
	}
}

// flushFixture is a flush state on a noop device with a recording pass.
type flushFixture struct {
	caps     gpu.Caps
	arena    *arena.Arena
	provider *gpu.ResourceProvider
	pool     *gpu.VertexPool
	pass     *recordingPass
	fs       *gpu.FlushState
}

func newFlushFixture(t *testing.T, caps gpu.Caps, opts ...gpu.ProviderOption) *flushFixture {
	t.Helper()
	device, queue, cleanup := createNoopDevice(t)
	provider, err := gpu.NewResourceProvider(device, queue, opts...)
	if err != nil {
		cleanup()
		t.Fatalf("NewResourceProvider failed: %v", err)
	}
	f := &flushFixture{
		caps:     caps,
		arena:    arena.NewArena(),
		provider: provider,
		pass:     &recordingPass{},
	}
	f.pool = gpu.NewVertexPool(provider)
	f.fs = gpu.NewFlushState(&f.caps, provider, f.pool, f.pass, testTarget(), f.arena)
	t.Cleanup(func() {
		f.pool.Release()
		provider.Destroy()
		cleanup()
	})
	return f
}

// recordingPass is an OpsRenderPass that records calls.
type recordingPass struct {
	calls    []string
	draws    [][4]int
	textures []*gpu.TextureView
	vertex   []*gpu.Buffer
}

func (p *recordingPass) BindPipeline(*gpu.ProgramInfo, atlasfill.Rect) bool {
	p.calls = append(p.calls, "pipeline")
	return true
}

func (p *recordingPass) SetScissorRect(atlasfill.IRect) {
	p.calls = append(p.calls, "scissor")
}

func (p *recordingPass) BindTextures(_ gpu.GeometryProcessor, gpTextures []*gpu.TextureView, pipeline *gpu.Pipeline) bool {
	p.calls = append(p.calls, "textures")
	p.textures = append(p.textures, gpTextures...)
	pipeline.Processors.VisitTextures(func(v *gpu.TextureView, _ bool) {
		p.textures = append(p.textures, v)
	})
	return true
}

func (p *recordingPass) BindBuffers(_, _, vertex *gpu.Buffer) {
	p.calls = append(p.calls, "buffers")
	p.vertex = append(p.vertex, vertex)
}

func (p *recordingPass) DrawInstanced(instanceCount, baseInstance, vertexCount, baseVertex int) {
	p.calls = append(p.calls, "draw")
	p.draws = append(p.draws, [4]int{instanceCount, baseInstance, vertexCount, baseVertex})
}

func testTarget() gpu.SurfaceView {
	return gpu.SurfaceView{Width: 64, Height: 64, Format: gputypes.TextureFormatBGRA8Unorm, SampleCount: 1}
}

func testAtlas(label string) *gpu.TextureView {
	return gpu.NewTextureView(label, 256, 256, gputypes.TextureFormatR8Unorm, nil, nil, nil)
}

func solidSet(c atlasfill.RGBA) *paint.ProcessorSet {
	return paint.NewProcessorSet(paint.NewPaint(c))
}

// atlasOpArgs are the constructor arguments of a DrawAtlasPathOp.
type atlasOpArgs struct {
	fill    atlasfill.IRect
	m       atlasfill.Matrix
	set     *paint.ProcessorSet
	loc     atlasfill.IPoint16
	path    atlasfill.IRect
	trans   bool
	view    *gpu.TextureView
	inverse bool
	samples int
}

// newAtlasOp builds a finalized op; zero fields get defaults.
func newAtlasOp(a *arena.Arena, caps *gpu.Caps, args atlasOpArgs) *DrawAtlasPathOp {
	if args.set == nil {
		args.set = solidSet(atlasfill.Red)
	}
	if args.m == (atlasfill.Matrix{}) {
		args.m = atlasfill.Identity()
	}
	if args.path == (atlasfill.IRect{}) {
		args.path = args.fill
	}
	if args.samples == 0 {
		args.samples = 1
	}
	op := NewDrawAtlasPathOp(a, args.fill, args.m, args.set, args.loc, args.path, args.trans,
		args.view, args.inverse, args.samples)
	op.Finalize(caps, gpu.NoClip(), gpu.ClampAuto)
	return op
}

// fillBoundsOf reads the fill bounds of every serialized instance.
func fillBoundsOf(t *testing.T, f *flushFixture, op *DrawAtlasPathOp) []atlasfill.IRect {
	t.Helper()
	if op.instanceBuffer == nil {
		t.Fatal("op has no instance buffer")
	}
	data := f.pool.Contents(op.instanceBuffer)
	stride := op.instanceFloats()
	start := op.baseInstance * stride
	var out []atlasfill.IRect
	for i := range op.InstanceCount() {
		rec := data[start+i*stride:]
		out = append(out, atlasfill.IRectLTRB(int32(rec[0]), int32(rec[1]), int32(rec[2]), int32(rec[3])))
	}
	return out
}
