package gpu

import (
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

// createNoopDevice creates a noop device and queue for testing.
// Returns the device, queue, and a cleanup function.
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
	cleanup := func() {
		openDev.Device.Destroy()
		instance.Destroy()
	}
	return openDev.Device, openDev.Queue, cleanup
}

// newTestProvider creates a provider on a noop device.
func newTestProvider(t *testing.T, opts ...ProviderOption) (*ResourceProvider, func()) {
	t.Helper()
	device, queue, cleanup := createNoopDevice(t)
	p, err := NewResourceProvider(device, queue, opts...)
	if err != nil {
		cleanup()
		t.Fatalf("NewResourceProvider failed: %v", err)
	}
	return p, func() {
		p.Destroy()
		cleanup()
	}
}

// beginNoopPass opens a render pass on a fresh render target. The returned
// function ends the pass and the encoder.
func beginNoopPass(t *testing.T, device hal.Device, w, h uint32) (hal.RenderPassEncoder, func()) {
	t.Helper()
	tex, err := device.CreateTexture(&hal.TextureDescriptor{
		Label:         "test_target",
		Size:          hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatBGRA8Unorm,
		Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
	})
	if err != nil {
		t.Fatalf("CreateTexture failed: %v", err)
	}
	view, err := device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         "test_target_view",
		Format:        gputypes.TextureFormatBGRA8Unorm,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		t.Fatalf("CreateTextureView failed: %v", err)
	}
	encoder, err := device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "test_encoder"})
	if err != nil {
		t.Fatalf("CreateCommandEncoder failed: %v", err)
	}
	if err := encoder.BeginEncoding("test_frame"); err != nil {
		t.Fatalf("BeginEncoding failed: %v", err)
	}
	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "test_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     gputypes.LoadOpClear,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: gputypes.Color{R: 0, G: 0, B: 0, A: 0},
		}},
	})
	return rp, func() {
		rp.End()
		if cmd, err := encoder.EndEncoding(); err == nil {
			device.FreeCommandBuffer(cmd)
		}
		device.DestroyTextureView(view)
		device.DestroyTexture(tex)
	}
}

// quadGP is a minimal geometry processor: one rect and color per instance,
// optionally modulated by a texture.
type quadGP struct {
	tex *TextureView
}

func (g *quadGP) Name() string { return "quad_gp" }

func (g *quadGP) Key() string {
	if g.tex != nil {
		return "tex"
	}
	return "solid"
}

func (g *quadGP) Emit(b *ShaderBuilder) {
	b.AddInstanceAttribute("rect", Float4)
	b.AddInstanceAttribute("color", Float4)
	b.UseVertexIndex()
	b.AddVarying("vcolor", Float4)
	b.VS("let corner = vec2<f32>(f32(in.vertex_index >> 1u), f32(in.vertex_index & 1u));")
	b.VS("let pos = mix(in.rect.xy, in.rect.zw, corner);")
	b.SetDevicePosition("pos")
	b.VS("out.vcolor = in.color;")
	b.SetColor("in.vcolor")
	if g.tex != nil {
		tex, smp := b.AddTexture("quad_tex")
		b.AddVarying("uv", Float2)
		b.VS("out.uv = corner;")
		b.FS("let quad_cov = textureSampleLevel(%s, %s, in.uv, 0.0).r;", tex, smp)
		b.SetCoverage("quad_cov")
	}
}

func (g *quadGP) VisitTextures(fn TextureVisitor) {
	if g.tex != nil {
		fn(g.tex, false)
	}
}

func testTarget() SurfaceView {
	return SurfaceView{Width: 64, Height: 64, Format: gputypes.TextureFormatBGRA8Unorm, SampleCount: 1}
}
