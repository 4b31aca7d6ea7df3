package ops

import (
	"github.com/gogpu/atlasfill/gpu"
	"github.com/gogpu/gputypes"
)

// DefaultMaxLookback is how many recorded ops AddDrawOp inspects when
// looking for a merge partner.
const DefaultMaxLookback = 10

// TaskOption configures an OpsTask during creation.
//
// Example:
//
//	task := ops.NewOpsTask(a, &caps, ops.WithMaxLookback(32), ops.WithWorkers(4))
type TaskOption func(*taskOptions)

// taskOptions holds optional configuration for an OpsTask.
type taskOptions struct {
	maxLookback int
	workers     int
	clamp       gpu.ClampType
	colorLoad   gputypes.LoadOp
}

// defaultTaskOptions returns the default task options.
func defaultTaskOptions() taskOptions {
	return taskOptions{
		maxLookback: DefaultMaxLookback,
		clamp:       gpu.ClampAuto,
		colorLoad:   gputypes.LoadOpLoad,
	}
}

// WithMaxLookback bounds how far back AddDrawOp searches for an op to
// merge with. Zero disables merging.
func WithMaxLookback(n int) TaskOption {
	return func(o *taskOptions) {
		o.maxLookback = max(n, 0)
	}
}

// WithWorkers sets the number of goroutines PrePrepare uses. Zero or
// negative means GOMAXPROCS.
func WithWorkers(n int) TaskOption {
	return func(o *taskOptions) {
		o.workers = n
	}
}

// WithClampType sets how ops clamp their output colors.
func WithClampType(c gpu.ClampType) TaskOption {
	return func(o *taskOptions) {
		o.clamp = c
	}
}

// WithColorLoadOp sets the color load op programs are built for.
func WithColorLoadOp(op gputypes.LoadOp) TaskOption {
	return func(o *taskOptions) {
		o.colorLoad = op
	}
}
