package gpu

import (
	"sync/atomic"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// TextureView is a shared, reference-counted handle to a sampled texture.
// Ops compare views by pointer identity and never mutate them.
type TextureView struct {
	label   string
	width   int
	height  int
	format  gputypes.TextureFormat
	texture hal.Texture
	view    hal.TextureView
	refs    atomic.Int32
	release func(*TextureView)
}

// NewTextureView wraps a hal texture and view. The returned handle holds
// one reference. release runs when the last reference is dropped and may
// be nil.
func NewTextureView(label string, width, height int, format gputypes.TextureFormat,
	texture hal.Texture, view hal.TextureView, release func(*TextureView)) *TextureView {
	v := &TextureView{
		label:   label,
		width:   width,
		height:  height,
		format:  format,
		texture: texture,
		view:    view,
		release: release,
	}
	v.refs.Store(1)
	return v
}

// Ref adds a reference and returns v.
func (v *TextureView) Ref() *TextureView {
	v.refs.Add(1)
	return v
}

// Unref drops a reference. The release callback runs when the count
// reaches zero.
func (v *TextureView) Unref() {
	if n := v.refs.Add(-1); n == 0 && v.release != nil {
		v.release(v)
	}
}

// RefCount returns the current number of references.
func (v *TextureView) RefCount() int { return int(v.refs.Load()) }

// Label returns the debug label.
func (v *TextureView) Label() string { return v.label }

// Size returns the texture dimensions in pixels.
func (v *TextureView) Size() (width, height int) { return v.width, v.height }

// Format returns the texel format.
func (v *TextureView) Format() gputypes.TextureFormat { return v.format }

// HALTexture returns the underlying texture, or nil for CPU-only views.
func (v *TextureView) HALTexture() hal.Texture { return v.texture }

// HALView returns the underlying texture view, or nil for CPU-only views.
func (v *TextureView) HALView() hal.TextureView { return v.view }
