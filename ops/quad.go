package ops

import (
	"github.com/gogpu/atlasfill"
	"github.com/gogpu/atlasfill/gpu"
	"github.com/gogpu/gputypes"
)

// unitQuadKey names the shared corner buffer used when the device cannot
// read the vertex index.
const unitQuadKey gpu.UniqueKey = "atlasfill_unit_quad"

// unitQuad lists the corners of a triangle strip covering [0,1]^2, in the
// same order the vertex index produces them.
var unitQuad = []float32{
	0, 0,
	0, 1,
	1, 0,
	1, 1,
}

// quadVertexCount is the strip length of one instance.
const quadVertexCount = 4

// quadVariant selects how the vertex stage computes the corner of an
// instanced rectangle.
type quadVariant struct {
	vertexID        bool
	usesLocalCoords bool
}

func (v quadVariant) key() string {
	k := "vb"
	if v.vertexID {
		k = "vid"
	}
	if v.usesLocalCoords {
		k += "+lc"
	}
	return k
}

// declareInstance declares the leading instance attributes: the device
// rect, the local-to-device affine when needed, and the color.
func (v quadVariant) declareInstance(b *gpu.ShaderBuilder) {
	b.AddInstanceAttribute("fill_bounds", gpu.Float4)
	if v.usesLocalCoords {
		b.AddInstanceAttribute("affine", gpu.Float4)
		b.AddInstanceAttribute("translate", gpu.Float2)
	}
	b.AddInstanceAttribute("color", gpu.Float4)
}

// emitVertex writes the device position into "dev" and forwards color and
// local coordinates.
func (v quadVariant) emitVertex(b *gpu.ShaderBuilder) {
	if v.vertexID {
		b.UseVertexIndex()
		b.VS("let unit = vec2<f32>(f32(in.vertex_index >> 1u), f32(in.vertex_index & 1u));")
	} else {
		b.AddVertexAttribute("unit_coord", gpu.Float2)
		b.VS("let unit = in.unit_coord;")
	}
	b.VS("let dev = mix(in.fill_bounds.xy, in.fill_bounds.zw, unit);")
	b.SetDevicePosition("dev")

	b.AddVarying("vcolor", gpu.Float4)
	b.VS("out.vcolor = in.color;")
	b.SetColor("in.vcolor")

	if v.usesLocalCoords {
		b.AddVarying("local_coord", gpu.Float2)
		b.VS("let rel = dev - in.translate;")
		b.VS("let det = in.affine.x * in.affine.w - in.affine.z * in.affine.y;")
		b.VS("out.local_coord = vec2<f32>(in.affine.w * rel.x - in.affine.z * rel.y, " +
			"in.affine.x * rel.y - in.affine.y * rel.x) / det;")
		b.SetLocalCoords("in.local_coord")
	}
}

// floats returns the number of instance floats the leading attributes take.
func (v quadVariant) floats() int {
	n := 4 + 4
	if v.usesLocalCoords {
		n += 6
	}
	return n
}

// write serializes the leading attributes of one instance.
func (v quadVariant) write(dst []float32, bounds atlasfill.IRect, m atlasfill.Matrix, color atlasfill.PMColor4f) []float32 {
	r := atlasfill.RectFromIRect(bounds).Array()
	dst = append(dst, r[:]...)
	if v.usesLocalCoords {
		aff := m.Affine()
		dst = append(dst, aff[:]...)
	}
	c := color.Array()
	return append(dst, c[:]...)
}

// unitQuadBuffer returns the shared corner buffer, or nil with the error
// logged at Warn.
func unitQuadBuffer(fs *gpu.FlushState) *gpu.Buffer {
	buf, err := fs.ResourceProvider().FindOrMakeStaticFloats(unitQuadKey, gputypes.BufferUsageVertex, unitQuad)
	if err != nil {
		atlasfill.Logger().Warn("ops: unit quad buffer", "err", err)
		return nil
	}
	return buf
}
