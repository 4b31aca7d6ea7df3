package paint

import (
	"fmt"
	"strings"

	"github.com/gogpu/atlasfill"
	"github.com/gogpu/atlasfill/gpu"
)

// Processor is one stage of a paint's color chain.
type Processor interface {
	// Name returns a debug name.
	Name() string
	// Key identifies the code the processor generates, including any
	// constants baked into it.
	Key() string
	// UsesLocalCoords reports whether the processor reads local
	// coordinates.
	UsesLocalCoords() bool
	// Emit appends the processor's code to b and returns the fragment
	// expression of its output color.
	Emit(b *gpu.ShaderBuilder, input, localCoords string) string
	// VisitTextures visits the textures Emit declares, in order.
	VisitTextures(fn gpu.TextureVisitor)
	// FoldConstant returns the output for a constant input color when the
	// processor can be evaluated on the CPU.
	FoldConstant(in atlasfill.PMColor4f) (atlasfill.PMColor4f, bool)
}

// AlphaModulate scales the color by a constant.
type AlphaModulate struct {
	Alpha float32
}

// Name implements Processor.
func (p AlphaModulate) Name() string { return "AlphaModulate" }

// Key implements Processor.
func (p AlphaModulate) Key() string { return "alpha(" + gpu.WGSLFloat(p.Alpha) + ")" }

// UsesLocalCoords implements Processor.
func (p AlphaModulate) UsesLocalCoords() bool { return false }

// Emit implements Processor.
func (p AlphaModulate) Emit(b *gpu.ShaderBuilder, input, _ string) string {
	v := b.Temp("alpha_mod")
	b.FS("let %s = (%s) * %s;", v, input, gpu.WGSLFloat(p.Alpha))
	return v
}

// VisitTextures implements Processor.
func (p AlphaModulate) VisitTextures(gpu.TextureVisitor) {}

// FoldConstant implements Processor.
func (p AlphaModulate) FoldConstant(in atlasfill.PMColor4f) (atlasfill.PMColor4f, bool) {
	return in.Scale(p.Alpha), true
}

// GradientStop is a color at an offset along a gradient.
type GradientStop struct {
	Offset float32
	Color  atlasfill.RGBA
}

// LinearGradient replaces the color with a gradient evaluated in local
// coordinates, modulated by the input alpha. Offsets must be increasing.
type LinearGradient struct {
	Start, End atlasfill.Point
	Stops      []GradientStop
}

// Name implements Processor.
func (p LinearGradient) Name() string { return "LinearGradient" }

// Key implements Processor.
func (p LinearGradient) Key() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "lingrad(%g,%g,%g,%g", p.Start.X, p.Start.Y, p.End.X, p.End.Y)
	for _, s := range p.Stops {
		c := s.Color.Premultiply()
		fmt.Fprintf(&sb, ";%g:%g,%g,%g,%g", s.Offset, c.R, c.G, c.B, c.A)
	}
	sb.WriteString(")")
	return sb.String()
}

// UsesLocalCoords implements Processor.
func (p LinearGradient) UsesLocalCoords() bool { return true }

// Emit implements Processor.
func (p LinearGradient) Emit(b *gpu.ShaderBuilder, input, localCoords string) string {
	out := b.Temp("grad")
	if len(p.Stops) == 0 {
		b.FS("let %s = vec4<f32>(0.0);", out)
		return out
	}
	if localCoords == "" {
		localCoords = "vec2<f32>(0.0)"
	}
	start := gpu.WGSLVec2(float32(p.Start.X), float32(p.Start.Y))
	dir := gpu.WGSLVec2(float32(p.End.X-p.Start.X), float32(p.End.Y-p.Start.Y))
	t := b.Temp("grad_t")
	b.FS("let %s = clamp(dot((%s) - %s, %s) / max(dot(%s, %s), 1e-12), 0.0, 1.0);",
		t, localCoords, start, dir, dir, dir)

	acc := b.Temp("grad_c")
	b.FS("var %s = %s;", acc, gpu.WGSLVec4(p.Stops[0].Color.Premultiply().Array()))
	for i := 1; i < len(p.Stops); i++ {
		lo, hi := p.Stops[i-1].Offset, p.Stops[i].Offset
		c := gpu.WGSLVec4(p.Stops[i].Color.Premultiply().Array())
		if hi <= lo {
			b.FS("%s = mix(%s, %s, step(%s, %s));", acc, acc, c, gpu.WGSLFloat(hi), t)
			continue
		}
		b.FS("%s = mix(%s, %s, clamp((%s - %s) / %s, 0.0, 1.0));",
			acc, acc, c, t, gpu.WGSLFloat(lo), gpu.WGSLFloat(hi-lo))
	}
	b.FS("let %s = %s * (%s).a;", out, acc, input)
	return out
}

// VisitTextures implements Processor.
func (p LinearGradient) VisitTextures(gpu.TextureVisitor) {}

// FoldConstant implements Processor.
func (p LinearGradient) FoldConstant(atlasfill.PMColor4f) (atlasfill.PMColor4f, bool) {
	return atlasfill.PMColor4f{}, false
}

// TextureModulate multiplies the color by a texture sampled at
// Matrix * localCoords, in normalized texture coordinates.
type TextureModulate struct {
	View   *gpu.TextureView
	Matrix atlasfill.Matrix
}

// Name implements Processor.
func (p TextureModulate) Name() string { return "TextureModulate" }

// Key implements Processor. The texture itself is bound at draw time and
// does not change the code.
func (p TextureModulate) Key() string {
	m := p.Matrix
	return fmt.Sprintf("texmod(%g,%g,%g,%g,%g,%g)", m.A, m.B, m.C, m.D, m.E, m.F)
}

// UsesLocalCoords implements Processor.
func (p TextureModulate) UsesLocalCoords() bool { return true }

// Emit implements Processor.
func (p TextureModulate) Emit(b *gpu.ShaderBuilder, input, localCoords string) string {
	tex, smp := b.AddTexture(b.Temp("proc_tex"))
	if localCoords == "" {
		localCoords = "vec2<f32>(0.0)"
	}
	m := p.Matrix
	uv := b.Temp("tex_uv")
	b.FS("let %s = vec2<f32>(%s * (%s).x + %s * (%s).y + %s, %s * (%s).x + %s * (%s).y + %s);", uv,
		gpu.WGSLFloat(float32(m.A)), localCoords, gpu.WGSLFloat(float32(m.B)), localCoords, gpu.WGSLFloat(float32(m.C)),
		gpu.WGSLFloat(float32(m.D)), localCoords, gpu.WGSLFloat(float32(m.E)), localCoords, gpu.WGSLFloat(float32(m.F)))
	out := b.Temp("tex_mod")
	b.FS("let %s = (%s) * textureSampleLevel(%s, %s, %s, 0.0);", out, input, tex, smp, uv)
	return out
}

// VisitTextures implements Processor.
func (p TextureModulate) VisitTextures(fn gpu.TextureVisitor) {
	if p.View != nil {
		fn(p.View, false)
	}
}

// FoldConstant implements Processor.
func (p TextureModulate) FoldConstant(atlasfill.PMColor4f) (atlasfill.PMColor4f, bool) {
	return atlasfill.PMColor4f{}, false
}
