package gpu

import (
	"fmt"
	"sync"

	"github.com/gogpu/atlasfill"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"honnef.co/go/safeish"
)

// Default provider limits.
const (
	// DefaultBudgetBytes is the default byte budget for live buffers and
	// textures (256 MB).
	DefaultBudgetBytes = 256 << 20

	// DefaultChunkSize is the default vertex pool chunk size (64 KB).
	DefaultChunkSize = 64 << 10
)

// UniqueKey identifies a static resource shared across ops and flushes.
type UniqueKey string

// ProviderStats contains resource provider statistics.
type ProviderStats struct {
	BudgetBytes   uint64
	UsedBytes     uint64
	Buffers       int
	StaticBuffers int
	Textures      int
	Failures      int
}

// String returns a human-readable summary.
func (s ProviderStats) String() string {
	return fmt.Sprintf("Resources[%d/%d KB, %d buffers (%d static), %d textures, %d failures]",
		s.UsedBytes/1024, s.BudgetBytes/1024, s.Buffers, s.StaticBuffers, s.Textures, s.Failures)
}

// ProviderOption configures a ResourceProvider.
type ProviderOption func(*providerOptions)

type providerOptions struct {
	budget    uint64
	chunkSize uint64
}

// WithBudget sets the byte budget for live resources. A budget of zero makes
// every allocation fail.
func WithBudget(bytes uint64) ProviderOption {
	return func(o *providerOptions) {
		o.budget = bytes
	}
}

// WithChunkSize sets the minimum size of vertex pool chunks.
func WithChunkSize(bytes uint64) ProviderOption {
	return func(o *providerOptions) {
		if bytes > 0 {
			o.chunkSize = bytes
		}
	}
}

// ResourceProvider creates buffers and textures against a byte budget and
// caches static buffers shared by every op.
//
// ResourceProvider is safe for concurrent use.
type ResourceProvider struct {
	mu sync.Mutex

	device hal.Device
	queue  hal.Queue

	budgetBytes uint64
	usedBytes   uint64
	chunkSize   uint64

	buffers       map[*Buffer]struct{}
	staticBuffers map[UniqueKey]*Buffer
	textures      map[*TextureView]uint64
	sampler       hal.Sampler
	failures      int

	closed bool
}

// NewResourceProvider creates a provider for the given device and queue.
func NewResourceProvider(device hal.Device, queue hal.Queue, opts ...ProviderOption) (*ResourceProvider, error) {
	if device == nil {
		return nil, ErrNilDevice
	}
	if queue == nil {
		return nil, ErrNilQueue
	}
	o := providerOptions{
		budget:    DefaultBudgetBytes,
		chunkSize: DefaultChunkSize,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &ResourceProvider{
		device:        device,
		queue:         queue,
		budgetBytes:   o.budget,
		chunkSize:     o.chunkSize,
		buffers:       make(map[*Buffer]struct{}),
		staticBuffers: make(map[UniqueKey]*Buffer),
		textures:      make(map[*TextureView]uint64),
	}, nil
}

// Device returns the hal device.
func (p *ResourceProvider) Device() hal.Device { return p.device }

// ChunkSize returns the configured vertex pool chunk size.
func (p *ResourceProvider) ChunkSize() uint64 { return p.chunkSize }

// reserveLocked charges size bytes against the budget.
func (p *ResourceProvider) reserveLocked(size uint64) error {
	if p.closed {
		return ErrProviderClosed
	}
	if size == 0 {
		return ErrInvalidSize
	}
	if p.usedBytes+size > p.budgetBytes {
		p.failures++
		return fmt.Errorf("%w: need %d bytes, %d of %d in use",
			ErrBudgetExceeded, size, p.usedBytes, p.budgetBytes)
	}
	p.usedBytes += size
	return nil
}

// CreateBuffer allocates a buffer of the given size.
func (p *ResourceProvider) CreateBuffer(label string, size uint64, usage gputypes.BufferUsage) (*Buffer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.createBufferLocked(label, size, usage)
}

func (p *ResourceProvider) createBufferLocked(label string, size uint64, usage gputypes.BufferUsage) (*Buffer, error) {
	if err := p.reserveLocked(size); err != nil {
		return nil, err
	}
	raw, err := p.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: usage,
	})
	if err != nil {
		p.usedBytes -= size
		p.failures++
		return nil, fmt.Errorf("create buffer %q: %w", label, err)
	}
	b := &Buffer{label: label, size: size, usage: usage, raw: raw}
	p.buffers[b] = struct{}{}
	atlasfill.Logger().Debug("gpu: buffer created", "label", label, "size", size)
	return b, nil
}

// WriteBuffer uploads data into buf at offset.
func (p *ResourceProvider) WriteBuffer(buf *Buffer, offset uint64, data []byte) {
	if buf == nil || len(data) == 0 {
		return
	}
	if err := p.queue.WriteBuffer(buf.raw, offset, data); err != nil {
		atlasfill.Logger().Warn("gpu: buffer write failed", "label", buf.label, "err", err)
	}
}

// ReleaseBuffer destroys a non-static buffer and returns its bytes to the
// budget. Static buffers are ignored.
func (p *ResourceProvider) ReleaseBuffer(buf *Buffer) {
	if buf == nil || buf.static {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.buffers[buf]; !ok {
		return
	}
	delete(p.buffers, buf)
	p.usedBytes -= buf.size
	p.device.DestroyBuffer(buf.raw)
}

// FindOrMakeStaticBuffer returns the static buffer stored under key,
// creating it with data on first use.
func (p *ResourceProvider) FindOrMakeStaticBuffer(key UniqueKey, usage gputypes.BufferUsage, data []byte) (*Buffer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if b, ok := p.staticBuffers[key]; ok {
		return b, nil
	}
	b, err := p.createBufferLocked(string(key), uint64(len(data)), usage|gputypes.BufferUsageCopyDst)
	if err != nil {
		return nil, err
	}
	b.static = true
	p.staticBuffers[key] = b
	if err := p.queue.WriteBuffer(b.raw, 0, data); err != nil {
		atlasfill.Logger().Warn("gpu: static buffer write failed", "key", key, "err", err)
	}
	return b, nil
}

// FindOrMakeStaticFloats is FindOrMakeStaticBuffer for float32 data.
func (p *ResourceProvider) FindOrMakeStaticFloats(key UniqueKey, usage gputypes.BufferUsage, data []float32) (*Buffer, error) {
	return p.FindOrMakeStaticBuffer(key, usage, safeish.SliceCast[[]byte](data))
}

// CreateTexture allocates a sampled 2D texture that can receive uploads.
// The returned view holds one reference; dropping the last reference
// destroys the texture and returns its bytes to the budget.
func (p *ResourceProvider) CreateTexture(label string, width, height int, format gputypes.TextureFormat) (*TextureView, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: texture %dx%d", ErrInvalidSize, width, height)
	}
	size := uint64(width) * uint64(height) * uint64(bytesPerPixel(format))

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.reserveLocked(size); err != nil {
		return nil, err
	}

	w, h := uint32(width), uint32(height) //nolint:gosec // validated positive above
	tex, err := p.device.CreateTexture(&hal.TextureDescriptor{
		Label:         label,
		Size:          hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        format,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		p.usedBytes -= size
		p.failures++
		return nil, fmt.Errorf("create texture %q: %w", label, err)
	}
	halView, err := p.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         label + "_view",
		Format:        format,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		p.device.DestroyTexture(tex)
		p.usedBytes -= size
		p.failures++
		return nil, fmt.Errorf("create texture view %q: %w", label, err)
	}

	view := NewTextureView(label, width, height, format, tex, halView, p.releaseTexture)
	p.textures[view] = size
	return view, nil
}

func (p *ResourceProvider) releaseTexture(v *TextureView) {
	p.mu.Lock()
	defer p.mu.Unlock()
	size, ok := p.textures[v]
	if !ok {
		return
	}
	delete(p.textures, v)
	p.usedBytes -= size
	p.device.DestroyTextureView(v.view)
	p.device.DestroyTexture(v.texture)
}

// WriteTexture uploads a tightly packed region of pixels to view.
func (p *ResourceProvider) WriteTexture(view *TextureView, x, y, width, height int, data []byte) {
	if view == nil || view.texture == nil || width <= 0 || height <= 0 {
		return
	}
	bpr := uint32(width * bytesPerPixel(view.format)) //nolint:gosec // bounded by texture size
	err := p.queue.WriteTexture(
		&hal.ImageCopyTexture{
			Texture:  view.texture,
			MipLevel: 0,
			Origin:   hal.Origin3D{X: uint32(x), Y: uint32(y)}, //nolint:gosec // non-negative atlas coords
		},
		data,
		&hal.ImageDataLayout{
			Offset:       0,
			BytesPerRow:  bpr,
			RowsPerImage: uint32(height), //nolint:gosec // bounded by texture size
		},
		&hal.Extent3D{Width: uint32(width), Height: uint32(height), DepthOrArrayLayers: 1}, //nolint:gosec // bounded by texture size
	)
	if err != nil {
		atlasfill.Logger().Warn("gpu: texture write failed", "label", view.label, "err", err)
	}
}

// Sampler returns the shared linear clamp-to-edge sampler.
func (p *ResourceProvider) Sampler() (hal.Sampler, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sampler != nil {
		return p.sampler, nil
	}
	s, err := p.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        "atlasfill_linear_clamp",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
		MipmapFilter: gputypes.FilterModeLinear,
	})
	if err != nil {
		return nil, fmt.Errorf("create sampler: %w", err)
	}
	p.sampler = s
	return s, nil
}

// Stats returns current provider statistics.
func (p *ResourceProvider) Stats() ProviderStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return ProviderStats{
		BudgetBytes:   p.budgetBytes,
		UsedBytes:     p.usedBytes,
		Buffers:       len(p.buffers),
		StaticBuffers: len(p.staticBuffers),
		Textures:      len(p.textures),
		Failures:      p.failures,
	}
}

// Destroy releases every resource the provider still owns. Texture views
// handed out earlier become invalid.
func (p *ResourceProvider) Destroy() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	for b := range p.buffers {
		p.device.DestroyBuffer(b.raw)
	}
	for v := range p.textures {
		p.device.DestroyTextureView(v.view)
		p.device.DestroyTexture(v.texture)
	}
	if p.sampler != nil {
		p.device.DestroySampler(p.sampler)
		p.sampler = nil
	}
	p.buffers = nil
	p.staticBuffers = nil
	p.textures = nil
	p.usedBytes = 0
}

// bytesPerPixel returns the texel size of the formats atlasfill allocates.
func bytesPerPixel(format gputypes.TextureFormat) int {
	switch format {
	case gputypes.TextureFormatR8Unorm:
		return 1
	default:
		return 4
	}
}
