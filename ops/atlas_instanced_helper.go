package ops

import (
	"github.com/gogpu/atlasfill"
	"github.com/gogpu/atlasfill/gpu"
)

// ShaderFlags select the coverage variant of an atlas-sampling program.
// They are identical for every instance of an op.
type ShaderFlags uint8

const (
	// ShaderFlagsNone samples the atlas as is.
	ShaderFlagsNone ShaderFlags = 0
	// ShaderFlagsCheckBounds treats coverage outside the path's mask as
	// zero. Needed when the fill rect is larger than the path.
	ShaderFlagsCheckBounds ShaderFlags = 1 << 0
	// ShaderFlagsInvertCoverage uses one minus the atlas coverage.
	ShaderFlagsInvertCoverage ShaderFlags = 1 << 1
)

// String returns a short variant name.
func (f ShaderFlags) String() string {
	s := ""
	if f&ShaderFlagsCheckBounds != 0 {
		s += "b"
	}
	if f&ShaderFlagsInvertCoverage != 0 {
		s += "i"
	}
	if s == "" {
		return "-"
	}
	return s
}

// AtlasInstance addresses one path mask inside the atlas.
type AtlasInstance struct {
	// Location is the top-left of the mask in the atlas.
	Location atlasfill.IPoint16
	// PathDevIBounds are the path's integer bounds in device space.
	PathDevIBounds atlasfill.IRect
	// Transposed reports that the mask was stored with x and y swapped.
	Transposed bool
}

// AtlasInstancedHelper translates atlas addresses into instance data and
// emits the shader code that turns a device coordinate into atlas
// coverage. It holds a reference to the atlas view until Release.
type AtlasInstancedHelper struct {
	view  *gpu.TextureView
	flags ShaderFlags
}

// NewAtlasInstancedHelper creates a helper sampling view.
func NewAtlasInstancedHelper(view *gpu.TextureView, flags ShaderFlags) AtlasInstancedHelper {
	if view != nil {
		view.Ref()
	}
	return AtlasInstancedHelper{view: view, flags: flags}
}

// View returns the atlas texture view.
func (h *AtlasInstancedHelper) View() *gpu.TextureView { return h.view }

// Flags returns the shader flags.
func (h *AtlasInstancedHelper) Flags() ShaderFlags { return h.flags }

// IsCompatible reports whether two helpers produce the same program and
// bindings.
func (h *AtlasInstancedHelper) IsCompatible(o *AtlasInstancedHelper) bool {
	return h.view == o.view && h.flags == o.flags
}

// Release drops the atlas reference. It is safe to call more than once.
func (h *AtlasInstancedHelper) Release() {
	if h.view != nil {
		h.view.Unref()
		h.view = nil
	}
}

// Key distinguishes shader variants.
func (h *AtlasInstancedHelper) Key() string { return h.flags.String() }

// floats returns the number of instance floats per record.
func (h *AtlasInstancedHelper) floats() int {
	if h.flags&ShaderFlagsCheckBounds != 0 {
		return 6
	}
	return 4
}

// AppendInstanceAttribs declares the helper's instance attributes.
func (h *AtlasInstancedHelper) AppendInstanceAttribs(b *gpu.ShaderBuilder) {
	b.AddInstanceAttribute("locations", gpu.Float2)
	b.AddInstanceAttribute("path_top_left", gpu.Float2)
	if h.flags&ShaderFlagsCheckBounds != 0 {
		b.AddInstanceAttribute("path_size", gpu.Float2)
	}
}

// WriteInstanceData appends the attributes of one instance to dst. A
// negative x location marks a transposed mask; x is offset by one so zero
// can be negated.
func (h *AtlasInstancedHelper) WriteInstanceData(dst []float32, i *AtlasInstance) []float32 {
	x := float32(i.Location.X) + 1
	if i.Transposed {
		x = -float32(i.Location.X) - 1
	}
	dst = append(dst,
		x, float32(i.Location.Y),
		float32(i.PathDevIBounds.Left), float32(i.PathDevIBounds.Top),
	)
	if h.flags&ShaderFlagsCheckBounds != 0 {
		dst = append(dst, float32(i.PathDevIBounds.Width()), float32(i.PathDevIBounds.Height()))
	}
	return dst
}

// InjectShaderCode maps the vertex-stage device coordinate devCoord into
// the atlas and sets the fragment coverage.
func (h *AtlasInstancedHelper) InjectShaderCode(b *gpu.ShaderBuilder, devCoord string) {
	tex, smp := b.AddTexture("atlas")

	b.AddVarying("atlas_coord", gpu.Float2)
	b.VS("let atlas_top_left = vec2<f32>(abs(in.locations.x) - 1.0, in.locations.y);")
	b.VS("let transposed = in.locations.x < 0.0;")
	b.VS("var atlas_coord = (%s) - in.path_top_left;", devCoord)
	b.VS("if (transposed) {")
	b.VS("    atlas_coord = atlas_coord.yx;")
	b.VS("}")
	b.VS("out.atlas_coord = atlas_coord + atlas_top_left;")

	b.FS("let atlas_size = vec2<f32>(textureDimensions(%s));", tex)
	if h.flags&ShaderFlagsCheckBounds != 0 {
		b.AddVarying("atlas_bounds", gpu.Float4)
		b.VS("var size_in_atlas = in.path_size;")
		b.VS("if (transposed) {")
		b.VS("    size_in_atlas = size_in_atlas.yx;")
		b.VS("}")
		b.VS("out.atlas_bounds = vec4<f32>(atlas_top_left, atlas_top_left + size_in_atlas);")

		b.FS("var atlas_coverage = 0.0;")
		b.FS("if (in.atlas_coord.x > in.atlas_bounds.x && in.atlas_coord.y > in.atlas_bounds.y &&")
		b.FS("    in.atlas_coord.x < in.atlas_bounds.z && in.atlas_coord.y < in.atlas_bounds.w) {")
		b.FS("    atlas_coverage = textureSampleLevel(%s, %s, in.atlas_coord / atlas_size, 0.0).r;", tex, smp)
		b.FS("}")
	} else {
		b.FS("let atlas_coverage = textureSampleLevel(%s, %s, in.atlas_coord / atlas_size, 0.0).r;", tex, smp)
	}

	if h.flags&ShaderFlagsInvertCoverage != 0 {
		b.SetCoverage("(1.0 - atlas_coverage)")
	} else {
		b.SetCoverage("atlas_coverage")
	}
}
