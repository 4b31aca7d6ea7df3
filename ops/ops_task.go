package ops

import (
	"context"
	"sync"

	"github.com/gogpu/atlasfill"
	"github.com/gogpu/atlasfill/gpu"
	"github.com/gogpu/atlasfill/internal/arena"
	"github.com/gogpu/atlasfill/internal/parallel"
)

// recordedOp is an op with the clip it was recorded under.
type recordedOp struct {
	op   Op
	clip gpu.AppliedClip
}

// OpsTask is an ordered list of ops drawn into one render target. It owns
// the arena the ops are allocated from.
//
// Recording and flushing must not overlap. PrePrepare is the only method
// that uses more than one goroutine.
type OpsTask struct {
	arena *arena.Arena
	caps  *gpu.Caps
	opts  taskOptions

	poolOnce sync.Once
	pool     *parallel.WorkerPool

	ops    []recordedOp
	merges int
}

// NewOpsTask creates an empty task. A nil arena gets a fresh one.
func NewOpsTask(a *arena.Arena, caps *gpu.Caps, opts ...TaskOption) *OpsTask {
	if a == nil {
		a = arena.NewArena()
	}
	o := defaultTaskOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &OpsTask{arena: a, caps: caps, opts: o}
}

// Arena returns the arena ops for this task must be allocated from.
func (t *OpsTask) Arena() *arena.Arena { return t.arena }

// Caps returns the device caps.
func (t *OpsTask) Caps() *gpu.Caps { return t.caps }

// Len returns the number of recorded ops, after merging.
func (t *OpsTask) Len() int { return len(t.ops) }

// Merges returns the number of ops absorbed since the last Reset.
func (t *OpsTask) Merges() int { return t.merges }

// Ops returns the recorded ops in submission order.
func (t *OpsTask) Ops() []Op {
	out := make([]Op, len(t.ops))
	for i, r := range t.ops {
		out[i] = r.op
	}
	return out
}

// AddDrawOp finalizes op and records it. Walking back from the newest op,
// it offers op to each earlier op recorded under the same clip. The walk
// stops at the first op that overlaps op without absorbing it, since
// drawing op earlier would break painter's order.
func (t *OpsTask) AddDrawOp(op Op, clip gpu.AppliedClip) {
	op.Finalize(t.caps, clip, t.opts.clamp)
	log := atlasfill.Logger()

	bounds := op.Bounds()
	for i, n := len(t.ops)-1, 0; i >= 0 && n < t.opts.maxLookback; i, n = i-1, n+1 {
		candidate := &t.ops[i]
		if candidate.clip == clip &&
			candidate.op.CombineIfPossible(op, t.arena, t.caps) == CombineResultMerged {
			t.merges++
			log.Debug("ops: merged", "op", op.Name(), "into", i, "bounds", candidate.op.Bounds())
			return
		}
		if candidate.op.Bounds().Intersects(bounds) {
			log.Debug("ops: merge blocked", "op", op.Name(), "by", candidate.op.Name(), "at", i)
			break
		}
	}
	t.ops = append(t.ops, recordedOp{op: op, clip: clip})
}

func (t *OpsTask) workerPool() *parallel.WorkerPool {
	t.poolOnce.Do(func() {
		t.pool = parallel.NewWorkerPool(t.opts.workers)
	})
	return t.pool
}

// PrePrepare builds every op's program on the worker pool. Ops whose work
// had not started when ctx was canceled are left for Prepare.
func (t *OpsTask) PrePrepare(ctx context.Context, writeView gpu.SurfaceView) error {
	if len(t.ops) == 0 {
		return nil
	}
	rc := gpu.NewRecordingContext(t.caps, t.arena)
	work := make([]func(), len(t.ops))
	for i := range t.ops {
		r := t.ops[i]
		work[i] = func() {
			if ctx.Err() != nil {
				return
			}
			r.op.PrePrepare(rc, writeView, r.clip, gpu.DstProxyView{}, 0, t.opts.colorLoad)
		}
	}
	t.workerPool().ExecuteAll(work)
	return ctx.Err()
}

func (t *OpsTask) opArgs(r recordedOp) gpu.OpArgs {
	return gpu.OpArgs{Clip: r.clip, ColorLoad: t.opts.colorLoad}
}

// Prepare writes every op's instance data and uploads it.
func (t *OpsTask) Prepare(fs *gpu.FlushState) {
	for _, r := range t.ops {
		fs.SetOpArgs(t.opArgs(r))
		r.op.Prepare(fs)
	}
	fs.UploadVertexData()
}

// Execute records every op's draws in submission order.
func (t *OpsTask) Execute(fs *gpu.FlushState) {
	for _, r := range t.ops {
		fs.SetOpArgs(t.opArgs(r))
		r.op.Execute(fs, atlasfill.RectFromIRect(r.op.Bounds()))
	}
	atlasfill.Logger().Debug("ops: executed", "ops", len(t.ops), "stats", fs.Stats().String())
}

// VisitProxies visits every texture the recorded ops sample.
func (t *OpsTask) VisitProxies(fn gpu.TextureVisitor) {
	for _, r := range t.ops {
		r.op.VisitProxies(fn)
	}
}

// Reset releases every op and reclaims the arena. Ops recorded before
// Reset must not be used afterwards.
func (t *OpsTask) Reset() {
	for _, r := range t.ops {
		r.op.Release()
	}
	t.ops = nil
	t.merges = 0
	t.arena.Reset()
}

// Close stops the worker pool.
func (t *OpsTask) Close() {
	if t.pool != nil {
		t.pool.Close()
	}
}
