// Package ops contains the draw operations recorded into an OpsTask and the
// scheduler that merges, prepares and executes them.
//
// The central op is DrawAtlasPathOp. It fills device-space rectangles with
// path coverage that was rasterized ahead of time into an atlas texture.
// Ops that sample the same atlas with equivalent paints merge into a single
// instanced draw:
//
//	task := ops.NewOpsTask(arena, &caps)
//	for _, e := range entries {
//	    op := ops.NewDrawAtlasPathOp(task.Arena(), e.DevIBounds, atlasfill.Identity(), set,
//	        e.Location, e.DevIBounds, e.Transposed, atlasView, false, 1)
//	    task.AddDrawOp(op, gpu.NoClip())
//	}
//	task.PrePrepare(ctx, target)
//	task.Prepare(flushState)
//	task.Execute(flushState)
//
// Recording (AddDrawOp) is single-threaded. PrePrepare fans program
// construction out to a worker pool; Prepare and Execute run on the flush
// goroutine.
package ops
