package gpu

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/gogpu/gputypes"
)

// AttribType is the type of a vertex or instance attribute. Every
// attribute is 32-bit float data.
type AttribType uint8

// Attribute types.
const (
	Float AttribType = iota + 1
	Float2
	Float3
	Float4
)

// Size returns the attribute size in bytes.
func (t AttribType) Size() uint64 {
	return uint64(t) * 4
}

// WGSL returns the WGSL type name.
func (t AttribType) WGSL() string {
	switch t {
	case Float:
		return "f32"
	case Float2:
		return "vec2<f32>"
	case Float3:
		return "vec3<f32>"
	default:
		return "vec4<f32>"
	}
}

func (t AttribType) format() gputypes.VertexFormat {
	switch t {
	case Float:
		return gputypes.VertexFormatFloat32
	case Float2:
		return gputypes.VertexFormatFloat32x2
	case Float3:
		return gputypes.VertexFormatFloat32x3
	default:
		return gputypes.VertexFormatFloat32x4
	}
}

// Attribute is a named vertex input.
type Attribute struct {
	Name string
	Type AttribType
}

// StrideOf returns the packed size of attrs in bytes.
func StrideOf(attrs []Attribute) uint64 {
	var s uint64
	for _, a := range attrs {
		s += a.Type.Size()
	}
	return s
}

// ShaderBuilder assembles a WGSL program from fragments contributed by a
// geometry processor and a fragment processor chain.
//
// Bind group 0 holds the render target adjustment uniform at binding 0,
// followed by a (texture, sampler) pair per AddTexture call, in call order.
// Vertex buffer slot 0 carries instance attributes and slot 1 carries
// per-vertex attributes.
type ShaderBuilder struct {
	decls       []string
	instance    []Attribute
	vertex      []Attribute
	vertexIndex bool
	varyings    []Attribute
	textures    []string
	vs          strings.Builder
	fs          strings.Builder
	color       string
	localCoords string
	coverage    string
	tmp         int
}

// NewShaderBuilder creates an empty builder.
func NewShaderBuilder() *ShaderBuilder {
	return &ShaderBuilder{color: "vec4<f32>(1.0)", coverage: "1.0"}
}

// AddInstanceAttribute declares a per-instance input readable as in.<name>.
func (b *ShaderBuilder) AddInstanceAttribute(name string, t AttribType) {
	b.instance = append(b.instance, Attribute{Name: name, Type: t})
}

// AddVertexAttribute declares a per-vertex input readable as in.<name>.
func (b *ShaderBuilder) AddVertexAttribute(name string, t AttribType) {
	b.vertex = append(b.vertex, Attribute{Name: name, Type: t})
}

// UseVertexIndex exposes the built-in vertex index as in.vertex_index.
func (b *ShaderBuilder) UseVertexIndex() {
	b.vertexIndex = true
}

// AddVarying declares a value written as out.<name> in the vertex stage and
// read as in.<name> in the fragment stage.
func (b *ShaderBuilder) AddVarying(name string, t AttribType) {
	b.varyings = append(b.varyings, Attribute{Name: name, Type: t})
}

// AddTexture declares a sampled 2D texture and its sampler. The names are
// name and name_sampler.
func (b *ShaderBuilder) AddTexture(name string) (texture, sampler string) {
	b.textures = append(b.textures, name)
	return name, name + "_sampler"
}

// NumTextures returns the number of textures declared so far.
func (b *ShaderBuilder) NumTextures() int { return len(b.textures) }

// Decl adds a module-scope declaration such as a helper function.
func (b *ShaderBuilder) Decl(code string) {
	b.decls = append(b.decls, code)
}

// VS appends a statement to the vertex stage.
func (b *ShaderBuilder) VS(format string, args ...any) {
	fmt.Fprintf(&b.vs, "    "+format+"\n", args...)
}

// FS appends a statement to the fragment stage.
func (b *ShaderBuilder) FS(format string, args ...any) {
	fmt.Fprintf(&b.fs, "    "+format+"\n", args...)
}

// SetDevicePosition emits the clip-space position for a device-space
// vec2<f32> expression.
func (b *ShaderBuilder) SetDevicePosition(expr string) {
	b.VS("out.position = vec4<f32>((%s) * rt.adjust.xy + rt.adjust.zw, 0.0, 1.0);", expr)
}

// Temp returns a fresh fragment-stage variable name with the given prefix.
func (b *ShaderBuilder) Temp(prefix string) string {
	b.tmp++
	return fmt.Sprintf("%s_%d", prefix, b.tmp)
}

// SetColor sets the fragment expression for the input color.
func (b *ShaderBuilder) SetColor(expr string) { b.color = expr }

// Color returns the fragment expression for the input color.
func (b *ShaderBuilder) Color() string { return b.color }

// SetLocalCoords sets the fragment expression for local coordinates.
func (b *ShaderBuilder) SetLocalCoords(expr string) { b.localCoords = expr }

// LocalCoords returns the fragment expression for local coordinates, or ""
// when the geometry processor does not provide them.
func (b *ShaderBuilder) LocalCoords() string { return b.localCoords }

// SetCoverage sets the fragment expression for coverage.
func (b *ShaderBuilder) SetCoverage(expr string) { b.coverage = expr }

// VertexBufferLayouts returns the layouts matching the declared inputs.
func (b *ShaderBuilder) VertexBufferLayouts() []gputypes.VertexBufferLayout {
	var layouts []gputypes.VertexBufferLayout
	loc := uint32(0)
	build := func(attrs []Attribute, step gputypes.VertexStepMode) {
		if len(attrs) == 0 {
			return
		}
		l := gputypes.VertexBufferLayout{ArrayStride: StrideOf(attrs), StepMode: step}
		var off uint64
		for _, a := range attrs {
			l.Attributes = append(l.Attributes, gputypes.VertexAttribute{
				Format:         a.Type.format(),
				Offset:         off,
				ShaderLocation: loc,
			})
			off += a.Type.Size()
			loc++
		}
		layouts = append(layouts, l)
	}
	build(b.instance, gputypes.VertexStepModeInstance)
	build(b.vertex, gputypes.VertexStepModeVertex)
	return layouts
}

// Build returns the WGSL module. finalColor is the fragment expression for
// the color before coverage is applied the way coverage says.
func (b *ShaderBuilder) Build(finalColor string, coverage CoverageBlend) string {
	var s strings.Builder

	s.WriteString("struct RTAdjust {\n    adjust: vec4<f32>,\n}\n\n")
	s.WriteString("@group(0) @binding(0) var<uniform> rt: RTAdjust;\n")
	for i, name := range b.textures {
		fmt.Fprintf(&s, "@group(0) @binding(%d) var %s: texture_2d<f32>;\n", 1+2*i, name)
		fmt.Fprintf(&s, "@group(0) @binding(%d) var %s_sampler: sampler;\n", 2+2*i, name)
	}
	s.WriteString("\n")

	for _, d := range b.decls {
		s.WriteString(d)
		s.WriteString("\n\n")
	}

	s.WriteString("struct VertexInput {\n")
	if b.vertexIndex {
		s.WriteString("    @builtin(vertex_index) vertex_index: u32,\n")
	}
	loc := 0
	for _, attrs := range [][]Attribute{b.instance, b.vertex} {
		for _, a := range attrs {
			fmt.Fprintf(&s, "    @location(%d) %s: %s,\n", loc, a.Name, a.Type.WGSL())
			loc++
		}
	}
	s.WriteString("}\n\n")

	s.WriteString("struct VertexOutput {\n    @builtin(position) position: vec4<f32>,\n")
	for i, v := range b.varyings {
		fmt.Fprintf(&s, "    @location(%d) %s: %s,\n", i, v.Name, v.Type.WGSL())
	}
	s.WriteString("}\n\n")

	s.WriteString("@vertex\nfn vs_main(in: VertexInput) -> VertexOutput {\n    var out: VertexOutput;\n")
	s.WriteString(b.vs.String())
	s.WriteString("    return out;\n}\n\n")

	s.WriteString("@fragment\nfn fs_main(in: VertexOutput) -> @location(0) vec4<f32> {\n")
	s.WriteString(b.fs.String())
	if coverage == CoverageLerpWhite {
		fmt.Fprintf(&s, "    return vec4<f32>(1.0) - (vec4<f32>(1.0) - (%s)) * (%s);\n}\n", finalColor, b.coverage)
	} else {
		fmt.Fprintf(&s, "    return (%s) * (%s);\n}\n", finalColor, b.coverage)
	}
	return s.String()
}

// WGSLFloat formats v as an f32 literal.
func WGSLFloat(v float32) string {
	if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
		v = 0
	}
	s := strconv.FormatFloat(float64(v), 'g', -1, 32)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

// WGSLVec2 formats a vec2<f32> literal.
func WGSLVec2(x, y float32) string {
	return fmt.Sprintf("vec2<f32>(%s, %s)", WGSLFloat(x), WGSLFloat(y))
}

// WGSLVec4 formats a vec4<f32> literal.
func WGSLVec4(v [4]float32) string {
	return fmt.Sprintf("vec4<f32>(%s, %s, %s, %s)", WGSLFloat(v[0]), WGSLFloat(v[1]), WGSLFloat(v[2]), WGSLFloat(v[3]))
}
