package paint

import (
	"strings"
	"sync/atomic"

	"github.com/gogpu/atlasfill"
	"github.com/gogpu/atlasfill/gpu"
	"github.com/gogpu/gputypes"
)

// Coverage is the kind of coverage the geometry feeds into the paint.
type Coverage uint8

// Coverage kinds.
const (
	CoverageNone Coverage = iota
	CoverageSingleChannel
	CoverageLCD
)

// Analysis is the result of finalizing a processor set for one op.
type Analysis struct {
	// UsesLocalCoords reports whether the remaining processors read local
	// coordinates, so the op must upload its local-to-device transform.
	UsesLocalCoords bool
	// RequiresDstTexture reports whether the blend needs a destination copy.
	RequiresDstTexture bool
	// CompatibleWithCoverageAsAlpha reports whether coverage may be folded
	// into the color.
	CompatibleWithCoverageAsAlpha bool
	// InputColorOverridden reports whether leading processors were folded
	// into the op color on the CPU.
	InputColorOverridden bool
	// CoverageBlend is how the op's program must apply coverage.
	// gpu.CoverageUnsupported means the blend cannot draw partial coverage.
	CoverageBlend gpu.CoverageBlend
}

// MergePredicate decides whether two processor sets render identically
// when their ops are drawn as one instanced draw.
type MergePredicate func(a, b *ProcessorSet) bool

var defaultPredicate atomic.Pointer[MergePredicate]

func init() {
	p := MergePredicate(ProcessorsEqual)
	defaultPredicate.Store(&p)
}

// SetDefaultMergePredicate replaces the predicate used by sets without
// their own. nil restores ProcessorsEqual.
func SetDefaultMergePredicate(p MergePredicate) {
	if p == nil {
		p = ProcessorsEqual
	}
	defaultPredicate.Store(&p)
}

// DefaultMergePredicate returns the package-wide predicate.
func DefaultMergePredicate() MergePredicate {
	return *defaultPredicate.Load()
}

// ProcessorsEqual reports whether a and b generate the same code, blend
// the same way and sample the same textures.
func ProcessorsEqual(a, b *ProcessorSet) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if a.ShaderKey() != b.ShaderKey() {
		return false
	}
	var ta, tb []*gpu.TextureView
	a.VisitTextures(func(v *gpu.TextureView, _ bool) { ta = append(ta, v) })
	b.VisitTextures(func(v *gpu.TextureView, _ bool) { tb = append(tb, v) })
	if len(ta) != len(tb) {
		return false
	}
	for i := range ta {
		if ta[i] != tb[i] {
			return false
		}
	}
	return true
}

// NeverMerge is a predicate that rejects every pair of distinct sets.
func NeverMerge(a, b *ProcessorSet) bool { return a == b }

// ProcessorSet is a compiled paint. Ops share sets by pointer; a set is
// immutable once finalized.
type ProcessorSet struct {
	procs     []Processor
	blend     BlendMode
	color     atlasfill.PMColor4f
	predicate MergePredicate

	finalized bool
	analysis  Analysis
	folded    int
	key       string
}

// NewProcessorSet compiles p.
func NewProcessorSet(p Paint) *ProcessorSet {
	return &ProcessorSet{
		procs: append([]Processor(nil), p.Processors...),
		blend: p.Blend,
		color: p.Color.Premultiply(),
	}
}

// Color returns the paint's premultiplied base color.
func (s *ProcessorSet) Color() atlasfill.PMColor4f { return s.color }

// Blend returns the blend mode.
func (s *ProcessorSet) Blend() BlendMode { return s.blend }

// Len returns the number of processors, folded ones included.
func (s *ProcessorSet) Len() int { return len(s.procs) }

// IsFinalized reports whether Finalize has run.
func (s *ProcessorSet) IsFinalized() bool { return s.finalized }

// SetMergePredicate overrides the merge predicate for this set.
func (s *ProcessorSet) SetMergePredicate(p MergePredicate) { s.predicate = p }

// CanMergeWith reports whether ops painted with s and o may share a draw.
// The receiver's predicate decides.
func (s *ProcessorSet) CanMergeWith(o *ProcessorSet) bool {
	pred := s.predicate
	if pred == nil {
		pred = DefaultMergePredicate()
	}
	return pred(s, o)
}

// Finalize analyzes the set for an op whose input color is color and
// whose geometry produces coverage. Leading processors that evaluate to
// constants are folded into the returned color and dropped from the
// generated code.
//
// The processor-dependent part of the analysis is computed once; the
// coverage-dependent fields and the folded color are computed per call.
// Clamping belongs to the op's pipeline, not the set, so ops sharing a set
// may clamp differently.
func (s *ProcessorSet) Finalize(color atlasfill.PMColor4f, coverage Coverage, _ gpu.AppliedClip,
	_ *gpu.Caps, _ gpu.ClampType) (Analysis, atlasfill.PMColor4f) {
	folded := 0
	for _, p := range s.procs {
		out, ok := p.FoldConstant(color)
		if !ok {
			break
		}
		color = out
		folded++
	}
	if !s.finalized {
		s.folded = folded
		a := Analysis{InputColorOverridden: folded > 0}
		for _, p := range s.procs[folded:] {
			if p.UsesLocalCoords() {
				a.UsesLocalCoords = true
			}
		}
		s.analysis = a
		s.key = s.buildKey()
		s.finalized = true
	}

	a := s.analysis
	a.CompatibleWithCoverageAsAlpha = s.blend.coverageAsAlpha() && coverage != CoverageLCD
	a.CoverageBlend = s.blend.coverageBlend(coverage)
	return a, color
}

// Analysis returns the processor-dependent part of the analysis. It is the
// zero value before Finalize.
func (s *ProcessorSet) Analysis() Analysis { return s.analysis }

func (s *ProcessorSet) live() []Processor { return s.procs[s.folded:] }

// ShaderKey implements gpu.FragmentProcessors. Once the set is finalized
// the key is fixed and safe to read from any goroutine.
func (s *ProcessorSet) ShaderKey() string {
	if s.finalized {
		return s.key
	}
	return s.buildKey()
}

func (s *ProcessorSet) buildKey() string {
	var sb strings.Builder
	sb.WriteString(s.blend.String())
	for _, p := range s.live() {
		sb.WriteString("|")
		sb.WriteString(p.Key())
	}
	return sb.String()
}

// EmitColor implements gpu.FragmentProcessors.
func (s *ProcessorSet) EmitColor(b *gpu.ShaderBuilder, inputColor, localCoords string) string {
	color := inputColor
	for _, p := range s.live() {
		color = p.Emit(b, color, localCoords)
	}
	return color
}

// VisitTextures implements gpu.FragmentProcessors.
func (s *ProcessorSet) VisitTextures(fn gpu.TextureVisitor) {
	for _, p := range s.live() {
		p.VisitTextures(fn)
	}
}

// BlendState implements gpu.FragmentProcessors.
func (s *ProcessorSet) BlendState() gputypes.BlendState { return s.blend.BlendState() }

var _ gpu.FragmentProcessors = (*ProcessorSet)(nil)
