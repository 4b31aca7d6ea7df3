package atlas

import (
	"errors"
	"testing"

	"github.com/gogpu/atlasfill"
	"github.com/gogpu/atlasfill/gpu"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal/noop"
)

func newTestProvider(t *testing.T) *gpu.ResourceProvider {
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
	p, err := gpu.NewResourceProvider(openDev.Device, openDev.Queue)
	if err != nil {
		t.Fatalf("NewResourceProvider failed: %v", err)
	}
	t.Cleanup(func() {
		p.Destroy()
		openDev.Device.Destroy()
		instance.Destroy()
	})
	return p
}

// alphaAt returns the mask coverage at (x, y) relative to e's location.
func alphaAt(a *Atlas, e Entry, x, y int) uint8 {
	return a.Mask().AlphaAt(int(e.Location.X)+x, int(e.Location.Y)+y).A
}

func TestAddPathRectangle(t *testing.T) {
	a := New(Config{Width: 64, Height: 64})
	p := atlasfill.NewPath()
	p.Rectangle(2, 3, 10, 4)

	e, err := a.AddPath(p, atlasfill.Identity())
	if err != nil {
		t.Fatalf("AddPath failed: %v", err)
	}
	if want := atlasfill.IRectLTRB(2, 3, 12, 7); e.DevIBounds != want {
		t.Errorf("DevIBounds = %v, want %v", e.DevIBounds, want)
	}
	if e.Transposed {
		t.Error("wide mask stored transposed")
	}
	for _, pt := range [][2]int{{0, 0}, {9, 3}, {5, 2}} {
		if got := alphaAt(a, e, pt[0], pt[1]); got != 0xff {
			t.Errorf("coverage at %v = %d, want 255", pt, got)
		}
	}
	if got := alphaAt(a, e, 10, 0); got != 0 {
		t.Errorf("coverage right of the mask = %d, want 0", got)
	}
	if a.Len() != 1 {
		t.Errorf("Len = %d, want 1", a.Len())
	}
}

func TestAddPathTransposed(t *testing.T) {
	a := New(Config{Width: 64, Height: 64})
	// Right triangle hugging the top-left corner of a 4x10 box.
	p := atlasfill.NewPath()
	p.MoveTo(0, 0)
	p.LineTo(4, 0)
	p.LineTo(0, 10)
	p.Close()

	e, err := a.AddPath(p, atlasfill.Translate(20, 30))
	if err != nil {
		t.Fatalf("AddPath failed: %v", err)
	}
	if !e.Transposed {
		t.Fatal("tall mask not transposed")
	}
	if w, h := e.Size(); w != 10 || h != 4 {
		t.Errorf("Size = %dx%d, want 10x4", w, h)
	}
	if want := atlasfill.IRectLTRB(20, 30, 24, 40); e.DevIBounds != want {
		t.Errorf("DevIBounds = %v, want %v", e.DevIBounds, want)
	}
	// Device pixel (dx, dy) is stored at mask (dy, dx).
	if got := alphaAt(a, e, 0, 0); got != 0xff {
		t.Errorf("coverage of device (0,0) = %d, want 255", got)
	}
	if got := alphaAt(a, e, 9, 3); got != 0 {
		t.Errorf("coverage of device (3,9) = %d, want 0", got)
	}
	if got := alphaAt(a, e, 1, 2); got != 0xff {
		t.Errorf("coverage of device (2,1) = %d, want 255", got)
	}
}

func TestAddPathCircle(t *testing.T) {
	a := New(Config{Width: 64, Height: 64})
	p := atlasfill.NewPath()
	p.Circle(20, 20, 10)

	e, err := a.AddPath(p, atlasfill.Identity())
	if err != nil {
		t.Fatalf("AddPath failed: %v", err)
	}
	if got := alphaAt(a, e, 10, 10); got != 0xff {
		t.Errorf("center coverage = %d, want 255", got)
	}
	if got := alphaAt(a, e, 0, 0); got > 8 {
		t.Errorf("corner coverage = %d, want ~0", got)
	}
}

func TestAddPathErrors(t *testing.T) {
	a := New(Config{Width: 16, Height: 16, Padding: 0})

	if _, err := a.AddPath(atlasfill.NewPath(), atlasfill.Identity()); !errors.Is(err, ErrEmptyPath) {
		t.Errorf("empty path: err = %v, want ErrEmptyPath", err)
	}

	big := atlasfill.NewPath()
	big.Rectangle(0, 0, 20, 20)
	if _, err := a.AddPath(big, atlasfill.Identity()); !errors.Is(err, ErrAtlasFull) {
		t.Errorf("oversized path: err = %v, want ErrAtlasFull", err)
	}
	if a.Len() != 0 {
		t.Errorf("Len = %d after failures", a.Len())
	}
}

func TestUploadAndRelease(t *testing.T) {
	provider := newTestProvider(t)
	a := New(Config{Width: 32, Height: 32, Label: "test_atlas"})
	if a.View() != nil {
		t.Fatal("view exists before Upload")
	}

	p := atlasfill.NewPath()
	p.Rectangle(0, 0, 8, 8)
	if _, err := a.AddPath(p, atlasfill.Identity()); err != nil {
		t.Fatal(err)
	}
	view, err := a.Upload(provider)
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if w, h := view.Size(); w != 32 || h != 32 || view.Format() != gputypes.TextureFormatR8Unorm {
		t.Errorf("view = %dx%d %v", w, h, view.Format())
	}
	if view.Label() != "test_atlas" {
		t.Errorf("Label = %q", view.Label())
	}
	again, err := a.Upload(provider)
	if err != nil || again != view {
		t.Errorf("second Upload = %v, %v; want the same view", again, err)
	}

	a.Release()
	if a.View() != nil {
		t.Error("view kept after Release")
	}
	if got := provider.Stats().Textures; got != 0 {
		t.Errorf("provider still holds %d textures", got)
	}
}

func TestReset(t *testing.T) {
	a := New(Config{Width: 32, Height: 32})
	p := atlasfill.NewPath()
	p.Rectangle(0, 0, 8, 8)
	e, _ := a.AddPath(p, atlasfill.Identity())
	a.Reset()
	if a.Len() != 0 || a.Utilization() != 0 {
		t.Errorf("after Reset: Len = %d, Utilization = %v", a.Len(), a.Utilization())
	}
	if got := alphaAt(a, e, 1, 1); got != 0 {
		t.Errorf("mask not cleared: %d", got)
	}
}
