// Package atlas rasterizes path coverage into a shared single-channel mask
// and uploads it to a GPU texture that DrawAtlasPathOps sample.
//
// Masks taller than they are wide are stored transposed, which keeps
// shelves short. Entries report where their mask lives and whether it was
// transposed; ops pass both to the shader unchanged.
package atlas

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"sync"

	"golang.org/x/image/vector"

	"github.com/gogpu/atlasfill"
	"github.com/gogpu/atlasfill/gpu"
	"github.com/gogpu/gputypes"
)

// Atlas errors.
var (
	// ErrAtlasFull is returned when a mask does not fit in the atlas.
	ErrAtlasFull = errors.New("atlas: atlas is full")

	// ErrEmptyPath is returned for paths that cover no pixels.
	ErrEmptyPath = errors.New("atlas: path is empty")

	// ErrPathTooLarge is returned for masks that exceed the atlas
	// addressing range.
	ErrPathTooLarge = errors.New("atlas: path is too large")
)

// Default atlas settings.
const (
	// DefaultSize is the default atlas dimension.
	DefaultSize = 2048

	// DefaultPadding separates masks so that linear sampling at a mask
	// edge never reads a neighbor.
	DefaultPadding = 1

	// maxDimension is the largest atlas side addressable by IPoint16.
	maxDimension = 1<<15 - 1
)

// Config configures an Atlas.
type Config struct {
	// Width is the atlas width in pixels. Defaults to DefaultSize.
	Width int
	// Height is the atlas height in pixels. Defaults to DefaultSize.
	Height int
	// Padding is the spacing between masks. Negative means
	// DefaultPadding.
	Padding int
	// Label is an optional debug label for the texture.
	Label string
}

// Entry locates one path mask.
type Entry struct {
	// Location is the top-left of the mask in the atlas.
	Location atlasfill.IPoint16
	// DevIBounds are the path's integer bounds in device space.
	DevIBounds atlasfill.IRect
	// Transposed reports that the mask is stored with x and y swapped.
	Transposed bool
}

// Size returns the mask size as stored in the atlas.
func (e Entry) Size() (width, height int) {
	w, h := int(e.DevIBounds.Width()), int(e.DevIBounds.Height())
	if e.Transposed {
		return h, w
	}
	return w, h
}

// Atlas is a coverage atlas. Paths are rasterized on the CPU with
// golang.org/x/image/vector; Upload copies the changed area to the GPU.
//
// Atlas is safe for concurrent use.
type Atlas struct {
	mu sync.Mutex

	label string
	alloc *RectAllocator
	mask  *image.Alpha
	ras   *vector.Rasterizer
	dirty image.Rectangle

	view    *gpu.TextureView
	entries int
}

// New creates an empty atlas.
func New(cfg Config) *Atlas {
	w, h := cfg.Width, cfg.Height
	if w <= 0 {
		w = DefaultSize
	}
	if h <= 0 {
		h = DefaultSize
	}
	w, h = min(w, maxDimension), min(h, maxDimension)
	padding := cfg.Padding
	if padding < 0 {
		padding = DefaultPadding
	}
	label := cfg.Label
	if label == "" {
		label = "atlasfill_atlas"
	}
	ras := vector.NewRasterizer(0, 0)
	ras.DrawOp = draw.Src
	return &Atlas{
		label: label,
		alloc: NewRectAllocator(w, h, padding),
		mask:  image.NewAlpha(image.Rect(0, 0, w, h)),
		ras:   ras,
	}
}

// Size returns the atlas dimensions.
func (a *Atlas) Size() (width, height int) { return a.alloc.Size() }

// Len returns the number of masks in the atlas.
func (a *Atlas) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.entries
}

// Utilization returns the fraction of the atlas covered by masks.
func (a *Atlas) Utilization() float64 { return a.alloc.Utilization() }

// Mask returns the CPU copy of the atlas. It must not be modified.
func (a *Atlas) Mask() *image.Alpha { return a.mask }

// AddPath rasterizes path transformed by m and returns where its mask was
// stored.
func (a *Atlas) AddPath(path *atlasfill.Path, m atlasfill.Matrix) (Entry, error) {
	dev := path.Transform(m)
	bounds := dev.Bounds().RoundOut()
	if bounds.IsEmpty() {
		return Entry{}, ErrEmptyPath
	}
	w, h := int(bounds.Width()), int(bounds.Height())
	transposed := h > w
	if transposed {
		w, h = h, w
	}
	if w > maxDimension || h > maxDimension {
		return Entry{}, fmt.Errorf("%w: %dx%d", ErrPathTooLarge, w, h)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	region := a.alloc.Allocate(w, h)
	if !region.IsValid() {
		return Entry{}, fmt.Errorf("%w: %dx%d mask, %.0f%% used", ErrAtlasFull, w, h, a.alloc.Utilization()*100)
	}
	a.rasterize(dev, bounds, transposed, region)
	a.entries++

	atlasfill.Logger().Debug("atlas: path added", "bounds", bounds, "region", region, "transposed", transposed)
	return Entry{
		Location:   atlasfill.IPt16(int16(region.X), int16(region.Y)), //nolint:gosec // bounded by maxDimension
		DevIBounds: bounds,
		Transposed: transposed,
	}, nil
}

// rasterize draws dev's coverage into region. The caller holds a.mu.
func (a *Atlas) rasterize(dev *atlasfill.Path, bounds atlasfill.IRect, transposed bool, region Region) {
	ox, oy := float64(bounds.Left), float64(bounds.Top)
	pt := func(p atlasfill.Point) (float32, float32) {
		x, y := float32(p.X-ox), float32(p.Y-oy)
		if transposed {
			return y, x
		}
		return x, y
	}

	a.ras.Reset(region.Width, region.Height)
	a.ras.DrawOp = draw.Src
	for _, elem := range dev.Elements() {
		switch e := elem.(type) {
		case atlasfill.MoveTo:
			a.ras.MoveTo(pt(e.Point))
		case atlasfill.LineTo:
			a.ras.LineTo(pt(e.Point))
		case atlasfill.QuadTo:
			bx, by := pt(e.Control)
			cx, cy := pt(e.Point)
			a.ras.QuadTo(bx, by, cx, cy)
		case atlasfill.CubicTo:
			bx, by := pt(e.Control1)
			cx, cy := pt(e.Control2)
			dx, dy := pt(e.Point)
			a.ras.CubeTo(bx, by, cx, cy, dx, dy)
		case atlasfill.Close:
			a.ras.ClosePath()
		}
	}
	a.ras.ClosePath()

	r := image.Rect(region.X, region.Y, region.X+region.Width, region.Y+region.Height)
	a.ras.Draw(a.mask, r, image.Opaque, image.Point{})
	a.dirty = a.dirty.Union(r)
}

// Upload creates the atlas texture on first use and writes every mask
// added since the last upload. The returned view is owned by the atlas;
// ops take their own reference.
func (a *Atlas) Upload(provider *gpu.ResourceProvider) (*gpu.TextureView, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.view == nil {
		w, h := a.alloc.Size()
		view, err := provider.CreateTexture(a.label, w, h, gputypes.TextureFormatR8Unorm)
		if err != nil {
			return nil, fmt.Errorf("atlas: create texture: %w", err)
		}
		a.view = view
	}
	if a.dirty.Empty() {
		return a.view, nil
	}

	d := a.dirty
	data := make([]byte, 0, d.Dx()*d.Dy())
	for y := d.Min.Y; y < d.Max.Y; y++ {
		off := a.mask.PixOffset(d.Min.X, y)
		data = append(data, a.mask.Pix[off:off+d.Dx()]...)
	}
	provider.WriteTexture(a.view, d.Min.X, d.Min.Y, d.Dx(), d.Dy(), data)
	atlasfill.Logger().Debug("atlas: uploaded", "rect", d, "bytes", len(data))
	a.dirty = image.Rectangle{}
	return a.view, nil
}

// View returns the atlas texture, or nil before the first Upload.
func (a *Atlas) View() *gpu.TextureView {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.view
}

// Reset forgets every mask. Entries handed out earlier become invalid.
func (a *Atlas) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.alloc.Reset()
	clear(a.mask.Pix)
	a.dirty = image.Rectangle{}
	a.entries = 0
}

// Release drops the atlas's reference to its texture.
func (a *Atlas) Release() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.view != nil {
		a.view.Unref()
		a.view = nil
	}
}
