// Command atlasdemo rasterizes random shapes into a coverage atlas, records
// one DrawAtlasPathOp per shape and flushes them on the noop GPU backend.
// It reports how many instanced draws the ops merged into.
package main

import (
	"context"
	"flag"
	"image/png"
	"log"
	"log/slog"
	"math"
	"math/rand/v2"
	"os"

	"github.com/gogpu/atlasfill"
	"github.com/gogpu/atlasfill/atlas"
	"github.com/gogpu/atlasfill/gpu"
	"github.com/gogpu/atlasfill/ops"
	"github.com/gogpu/atlasfill/paint"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

func main() {
	var (
		count      = flag.Int("count", 200, "number of shapes")
		size       = flag.Int("size", 512, "render target size")
		atlasSize  = flag.Int("atlas", 1024, "atlas size")
		seed       = flag.Uint64("seed", 1, "random seed")
		workers    = flag.Int("workers", 0, "preparation workers (0 = GOMAXPROCS)")
		lookback   = flag.Int("lookback", ops.DefaultMaxLookback, "ops examined when merging")
		hues       = flag.Int("colors", 3, "number of paint hues")
		noVertexID = flag.Bool("no-vertex-id", false, "draw from a unit quad vertex buffer")
		output     = flag.String("output", "", "write the atlas mask to this PNG file")
		verbose    = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	if *verbose {
		atlasfill.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	device, queue, cleanup, err := openNoopDevice()
	if err != nil {
		log.Fatalf("Failed to open device: %v", err)
	}
	defer cleanup()

	provider, err := gpu.NewResourceProvider(device, queue)
	if err != nil {
		log.Fatalf("Failed to create provider: %v", err)
	}
	defer provider.Destroy()

	cache, err := gpu.NewProgramCache(device)
	if err != nil {
		log.Fatalf("Failed to create program cache: %v", err)
	}
	defer cache.Destroy()

	coverage := atlas.New(atlas.Config{Width: *atlasSize, Height: *atlasSize, Padding: -1, Label: "demo_atlas"})
	defer coverage.Release()

	rng := rand.New(rand.NewPCG(*seed, *seed^0x9e3779b97f4a7c15))
	entries := make([]atlas.Entry, 0, *count)
	colors := make([]atlasfill.RGBA, 0, *count)
	palette := make([]atlasfill.RGBA, max(*hues, 1))
	for i := range palette {
		palette[i] = atlasfill.HSL(float64(i)*360/float64(len(palette)), 0.9, 0.5)
	}
	for range *count {
		e, err := coverage.AddPath(randomShape(rng, float64(*size)), atlasfill.Identity())
		if err != nil {
			log.Printf("Skipping shape: %v", err)
			continue
		}
		entries = append(entries, e)
		colors = append(colors, palette[rng.IntN(len(palette))])
	}
	view, err := coverage.Upload(provider)
	if err != nil {
		log.Fatalf("Failed to upload atlas: %v", err)
	}

	caps := gpu.DefaultCaps()
	caps.VertexIDSupport = !*noVertexID
	task := ops.NewOpsTask(nil, &caps, ops.WithWorkers(*workers), ops.WithMaxLookback(*lookback))
	defer task.Close()

	for i, e := range entries {
		set := paint.NewProcessorSet(paint.NewPaint(colors[i]))
		op := ops.NewDrawAtlasPathOp(task.Arena(), e.DevIBounds, atlasfill.Identity(), set,
			e.Location, e.DevIBounds, e.Transposed, view, false, 1)
		task.AddDrawOp(op, gpu.NoClip())
	}

	target := gpu.SurfaceView{
		Width:       *size,
		Height:      *size,
		Format:      gputypes.TextureFormatBGRA8Unorm,
		SampleCount: 1,
	}
	if err := task.PrePrepare(context.Background(), target); err != nil {
		log.Fatalf("PrePrepare failed: %v", err)
	}

	stats, err := flush(device, provider, cache, task, &caps, target)
	if err != nil {
		log.Fatalf("Flush failed: %v", err)
	}
	recorded, merges := task.Len(), task.Merges()
	task.Reset()

	log.Printf("%d shapes, %d ops after merging (%d merges)", len(entries), recorded, merges)
	log.Printf("atlas %dx%d, %.1f%% used", *atlasSize, *atlasSize, coverage.Utilization()*100)
	log.Printf("%v", stats)
	log.Printf("%v", provider.Stats())

	if *output != "" {
		if err := writeMask(*output, coverage); err != nil {
			log.Fatalf("Failed to save: %v", err)
		}
		log.Printf("Atlas saved to %s", *output)
	}
}

// randomShape returns a circle, ellipse or star inside a size x size area.
func randomShape(rng *rand.Rand, size float64) *atlasfill.Path {
	r := 4 + rng.Float64()*math.Min(40, size/8)
	cx := r + rng.Float64()*(size-2*r)
	cy := r + rng.Float64()*(size-2*r)
	p := atlasfill.NewPath()
	switch rng.IntN(3) {
	case 0:
		p.Circle(cx, cy, r)
	case 1:
		p.Ellipse(cx, cy, r, r*(0.3+rng.Float64()*0.7))
	default:
		p.Star(cx, cy, r, r/2, 5+rng.IntN(3))
	}
	return p
}

// flush prepares and executes the recorded ops in one render pass.
func flush(device hal.Device, provider *gpu.ResourceProvider, cache *gpu.ProgramCache,
	task *ops.OpsTask, caps *gpu.Caps, target gpu.SurfaceView) (gpu.FlushStats, error) {
	w, h := uint32(target.Width), uint32(target.Height) //nolint:gosec // flag values
	tex, err := device.CreateTexture(&hal.TextureDescriptor{
		Label:         "demo_target",
		Size:          hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        target.Format,
		Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
	})
	if err != nil {
		return gpu.FlushStats{}, err
	}
	defer device.DestroyTexture(tex)
	view, err := device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         "demo_target_view",
		Format:        target.Format,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		return gpu.FlushStats{}, err
	}
	defer device.DestroyTextureView(view)
	target.View = view

	encoder, err := device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "demo_encoder"})
	if err != nil {
		return gpu.FlushStats{}, err
	}
	if err := encoder.BeginEncoding("demo_frame"); err != nil {
		return gpu.FlushStats{}, err
	}
	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "demo_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     gputypes.LoadOpClear,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: gputypes.Color{R: 1, G: 1, B: 1, A: 1},
		}},
	})
	pass, err := gpu.NewHALRenderPass(rp, provider, cache, target)
	if err != nil {
		rp.End()
		return gpu.FlushStats{}, err
	}
	defer pass.Release()

	pool := gpu.NewVertexPool(provider)
	defer pool.Release()
	fs := gpu.NewFlushState(caps, provider, pool, pass, target, task.Arena())
	task.Prepare(fs)
	task.Execute(fs)
	rp.End()

	cmd, err := encoder.EndEncoding()
	if err != nil {
		return gpu.FlushStats{}, err
	}
	device.FreeCommandBuffer(cmd)
	return fs.Stats(), nil
}

func writeMask(path string, a *atlas.Atlas) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, a.Mask()); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func openNoopDevice() (hal.Device, hal.Queue, func(), error) {
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		return nil, nil, nil, err
	}
	adapters := instance.EnumerateAdapters(nil)
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, nil, nil, err
	}
	return openDev.Device, openDev.Queue, func() {
		openDev.Device.Destroy()
		instance.Destroy()
	}, nil
}
