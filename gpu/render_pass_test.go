package gpu

import (
	"errors"
	"testing"

	"github.com/gogpu/atlasfill"
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

// recordingPass is an OpsRenderPass that records calls.
type recordingPass struct {
	failBind bool
	calls    []string
	scissor  atlasfill.IRect
	draws    [][4]int
}

func (p *recordingPass) BindPipeline(*ProgramInfo, atlasfill.Rect) bool {
	p.calls = append(p.calls, "pipeline")
	return !p.failBind
}

func (p *recordingPass) SetScissorRect(r atlasfill.IRect) {
	p.calls = append(p.calls, "scissor")
	p.scissor = r
}

func (p *recordingPass) BindTextures(GeometryProcessor, []*TextureView, *Pipeline) bool {
	p.calls = append(p.calls, "textures")
	return true
}

func (p *recordingPass) BindBuffers(_, _, _ *Buffer) {
	p.calls = append(p.calls, "buffers")
}

func (p *recordingPass) DrawInstanced(instanceCount, baseInstance, vertexCount, baseVertex int) {
	p.calls = append(p.calls, "draw")
	p.draws = append(p.draws, [4]int{instanceCount, baseInstance, vertexCount, baseVertex})
}

func TestFlushStateScissor(t *testing.T) {
	caps := DefaultCaps()
	pass := &recordingPass{}
	fs := NewFlushState(&caps, nil, nil, pass, testTarget(), nil)

	info := NewProgramInfo(testTarget(), &Pipeline{}, &quadGP{},
		gputypes.PrimitiveTopologyTriangleStrip, gputypes.LoadOpLoad)
	if !fs.BindPipelineAndScissorClip(info, atlasfill.Rect{}) {
		t.Fatal("BindPipelineAndScissorClip failed")
	}
	if pass.scissor != testTarget().Bounds() {
		t.Errorf("scissor = %v, want full target", pass.scissor)
	}

	clip := atlasfill.IRectLTRB(2, 3, 10, 12)
	clipped := NewProgramInfo(testTarget(), &Pipeline{Clip: ScissorClip(clip)}, &quadGP{},
		gputypes.PrimitiveTopologyTriangleStrip, gputypes.LoadOpLoad)
	fs.BindPipelineAndScissorClip(clipped, atlasfill.Rect{})
	if pass.scissor != clip {
		t.Errorf("scissor = %v, want %v", pass.scissor, clip)
	}

	fs.DrawInstanced(3, 1, 4, 0)
	fs.RecordSkippedDraw()
	stats := fs.Stats()
	if stats.Draws != 1 || stats.Instances != 3 || stats.PipelineBinds != 2 || stats.SkippedDraws != 1 {
		t.Errorf("Stats() = %v", stats)
	}
}

func TestFlushStateBindFailure(t *testing.T) {
	caps := DefaultCaps()
	pass := &recordingPass{failBind: true}
	fs := NewFlushState(&caps, nil, nil, pass, testTarget(), nil)

	info := NewProgramInfo(testTarget(), &Pipeline{}, &quadGP{},
		gputypes.PrimitiveTopologyTriangleStrip, gputypes.LoadOpLoad)
	if fs.BindPipelineAndScissorClip(info, atlasfill.Rect{}) {
		t.Error("BindPipelineAndScissorClip succeeded with failing pass")
	}
	if len(pass.calls) != 1 {
		t.Errorf("calls = %v, want only pipeline", pass.calls)
	}
}

func TestFlushStateWithoutPass(t *testing.T) {
	caps := DefaultCaps()
	fs := NewFlushState(&caps, nil, nil, nil, testTarget(), nil)
	info := NewProgramInfo(testTarget(), &Pipeline{}, &quadGP{},
		gputypes.PrimitiveTopologyTriangleStrip, gputypes.LoadOpLoad)
	if fs.BindPipelineAndScissorClip(info, atlasfill.Rect{}) {
		t.Error("bind succeeded without a pass")
	}
	fs.DrawInstanced(1, 0, 4, 0)
	if fs.Stats().Draws != 0 {
		t.Error("draw counted without a pass")
	}
}

func TestHALRenderPassDraw(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	provider, err := NewResourceProvider(device, queue)
	if err != nil {
		t.Fatal(err)
	}
	defer provider.Destroy()
	cache, _ := NewProgramCache(device)
	defer cache.Destroy()

	atlasView, err := provider.CreateTexture("atlas", 32, 32, gputypes.TextureFormatR8Unorm)
	if err != nil {
		t.Fatalf("CreateTexture failed: %v", err)
	}
	defer atlasView.Unref()

	rp, end := beginNoopPass(t, device, 64, 64)
	pass, err := NewHALRenderPass(rp, provider, cache, testTarget())
	if err != nil {
		t.Fatalf("NewHALRenderPass failed: %v", err)
	}

	pool := NewVertexPool(provider)
	defer pool.Release()
	data, buf, base, err := pool.MakeSpace(32, 1)
	if err != nil {
		t.Fatal(err)
	}
	copy(data, []float32{0, 0, 8, 8, 1, 0, 0, 1})
	pool.Unmap()

	gp := &quadGP{tex: atlasView}
	info := NewProgramInfo(testTarget(), &Pipeline{}, gp,
		gputypes.PrimitiveTopologyTriangleStrip, gputypes.LoadOpLoad)
	if !pass.BindPipeline(info, atlasfill.Rect{}) {
		t.Fatal("BindPipeline failed")
	}
	pass.SetScissorRect(atlasfill.IRectLTRB(-5, -5, 100, 100))
	if !pass.BindTextures(gp, []*TextureView{atlasView}, info.Pipeline()) {
		t.Fatal("BindTextures failed")
	}
	// Texture count must match the program.
	if pass.BindTextures(gp, nil, info.Pipeline()) {
		t.Error("BindTextures accepted a texture count mismatch")
	}
	pass.BindBuffers(nil, buf, nil)
	pass.DrawInstanced(1, base, 4, 0)

	end()
	pass.Release()
	if cache.Len() != 1 {
		t.Errorf("cache.Len() = %d, want 1", cache.Len())
	}
}

func TestNewHALRenderPassInvalidTarget(t *testing.T) {
	provider, cleanup := newTestProvider(t)
	defer cleanup()
	if _, err := NewHALRenderPass(nil, provider, nil, SurfaceView{}); !errors.Is(err, ErrInvalidSize) {
		t.Errorf("err = %v, want ErrInvalidSize", err)
	}
}

// hostProvider implements gpucontext.DeviceProvider plus the hal escape
// hatch.
type hostProvider struct {
	device hal.Device
	queue  hal.Queue
	format gputypes.TextureFormat
}

type hostDevice struct{}

func (hostDevice) Poll(bool) {}
func (hostDevice) Destroy()  {}

type hostQueue struct{}
type hostAdapter struct{}

func (p hostProvider) Device() gpucontext.Device             { return hostDevice{} }
func (p hostProvider) Queue() gpucontext.Queue               { return hostQueue{} }
func (p hostProvider) Adapter() gpucontext.Adapter           { return hostAdapter{} }
func (p hostProvider) SurfaceFormat() gputypes.TextureFormat { return p.format }
func (p hostProvider) AdapterInfo() gpucontext.AdapterInfo   { return gpucontext.AdapterInfo{Name: "noop"} }
func (p hostProvider) HalDevice() any                        { return p.device }
func (p hostProvider) HalQueue() any                         { return p.queue }

// plainProvider lacks the hal escape hatch.
type plainProvider struct{ hostProvider }

func (plainProvider) HalDevice() {}

func TestNewDeviceFromProvider(t *testing.T) {
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatal(err)
	}
	defer instance.Destroy()
	adapters := instance.EnumerateAdapters(nil)
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		t.Fatal(err)
	}
	defer openDev.Device.Destroy()

	host, err := NewDeviceFromProvider(&hostProvider{device: openDev.Device, queue: openDev.Queue})
	if err != nil {
		t.Fatalf("NewDeviceFromProvider failed: %v", err)
	}
	if host.Device != openDev.Device || host.Queue != openDev.Queue {
		t.Error("device or queue not passed through")
	}
	if host.SurfaceFormat != gputypes.TextureFormatBGRA8Unorm {
		t.Errorf("SurfaceFormat = %v, want BGRA8 default", host.SurfaceFormat)
	}
	if host.Adapter.Name != "noop" {
		t.Errorf("Adapter.Name = %q, want noop", host.Adapter.Name)
	}

	if _, err := NewDeviceFromProvider(&hostProvider{}); !errors.Is(err, ErrNoHALProvider) {
		t.Errorf("nil hal device err = %v, want ErrNoHALProvider", err)
	}
	if _, err := NewDeviceFromProvider(plainProvider{}); !errors.Is(err, ErrNoHALProvider) {
		t.Errorf("plain provider err = %v, want ErrNoHALProvider", err)
	}
}
