package gpu

import "errors"

// Resource errors.
var (
	// ErrNilDevice is returned when a nil hal.Device is supplied.
	ErrNilDevice = errors.New("gpu: nil device")

	// ErrNilQueue is returned when a nil hal.Queue is supplied.
	ErrNilQueue = errors.New("gpu: nil queue")

	// ErrBudgetExceeded is returned when an allocation would exceed the
	// provider budget.
	ErrBudgetExceeded = errors.New("gpu: resource budget exceeded")

	// ErrProviderClosed is returned when allocating from a destroyed provider.
	ErrProviderClosed = errors.New("gpu: resource provider closed")

	// ErrInvalidSize is returned for zero-sized or oversized requests.
	ErrInvalidSize = errors.New("gpu: invalid resource size")

	// ErrNoHALProvider is returned when a gpucontext.DeviceProvider does not
	// expose its hal device and queue.
	ErrNoHALProvider = errors.New("gpu: provider does not expose hal device")

	// ErrPipelineCreation is returned when the program cache cannot build a
	// render pipeline.
	ErrPipelineCreation = errors.New("gpu: render pipeline creation failed")
)
