package ops

import (
	"sync/atomic"

	"github.com/gogpu/atlasfill"
	"github.com/gogpu/atlasfill/gpu"
	"github.com/gogpu/atlasfill/internal/arena"
	"github.com/gogpu/atlasfill/paint"
	"github.com/gogpu/gputypes"
)

// ClassID tags an op kind. Ops only combine with ops of the same kind.
type ClassID uint32

var lastClassID atomic.Uint32

// GenClassID returns a fresh kind tag. Call it once per op type, at
// package initialization.
func GenClassID() ClassID {
	return ClassID(lastClassID.Add(1))
}

// CombineResult is the outcome of offering one op to another.
type CombineResult uint8

const (
	// CombineResultCannotCombine leaves both ops unchanged.
	CombineResultCannotCombine CombineResult = iota
	// CombineResultMerged means the receiver absorbed the other op, which
	// is now inert.
	CombineResultMerged
)

// String returns the result name.
func (r CombineResult) String() string {
	if r == CombineResultMerged {
		return "Merged"
	}
	return "CannotCombine"
}

// FixedFunctionFlags describe fixed-function state an op needs.
type FixedFunctionFlags uint8

const (
	// FixedFunctionNone requests nothing special.
	FixedFunctionNone FixedFunctionFlags = 0
	// FixedFunctionUsesHWAA requests multisampled rasterization.
	FixedFunctionUsesHWAA FixedFunctionFlags = 1
)

// Op is a unit of recorded GPU work.
//
// The life of an op is: Finalize once, receive combine offers, PrePrepare
// and/or Prepare, Execute at most once. An op absorbed by another becomes
// inert; the scheduler drops it and never prepares or executes it.
type Op interface {
	// ClassID returns the kind tag of the op.
	ClassID() ClassID
	// Name returns a debug name.
	Name() string
	// Bounds returns the device-space area the op may touch.
	Bounds() atlasfill.IRect
	// FixedFunctionFlags returns the fixed-function state the op needs.
	FixedFunctionFlags() FixedFunctionFlags
	// Finalize analyzes the op's paint. It may override the op's color.
	Finalize(caps *gpu.Caps, clip gpu.AppliedClip, clamp gpu.ClampType) paint.Analysis
	// CombineIfPossible tries to absorb other.
	CombineIfPossible(other Op, a *arena.Arena, caps *gpu.Caps) CombineResult
	// PrePrepare builds the op's program ahead of time. It may run on a
	// worker goroutine, concurrently with other ops.
	PrePrepare(ctx *gpu.RecordingContext, writeView gpu.SurfaceView, clip gpu.AppliedClip,
		dst gpu.DstProxyView, barriers gpu.XferBarrierFlags, colorLoad gputypes.LoadOp)
	// Prepare writes the op's instance data.
	Prepare(fs *gpu.FlushState)
	// Execute records the op's draws.
	Execute(fs *gpu.FlushState, chainBounds atlasfill.Rect)
	// VisitProxies visits every texture the op samples.
	VisitProxies(fn gpu.TextureVisitor)
	// Release drops the op's references to shared textures.
	Release()
}

// opState tracks where an op is in its life.
type opState uint8

const (
	stateConstructed opState = iota
	stateCombined
	statePrepared
	stateExecuted
	stateInert
)

func (s opState) String() string {
	switch s {
	case stateConstructed:
		return "constructed"
	case stateCombined:
		return "combined"
	case statePrepared:
		return "prepared"
	case stateExecuted:
		return "executed"
	case stateInert:
		return "inert"
	default:
		return "unknown"
	}
}

// recording reports whether the op still accepts combine offers.
func (s opState) recording() bool {
	return s == stateConstructed || s == stateCombined
}
