package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Buffer is a GPU buffer allocated through a ResourceProvider.
type Buffer struct {
	label string
	size  uint64
	usage gputypes.BufferUsage
	raw   hal.Buffer
	// static buffers belong to the provider cache and outlive flushes.
	static bool
}

// Label returns the debug label.
func (b *Buffer) Label() string { return b.label }

// Size returns the buffer size in bytes.
func (b *Buffer) Size() uint64 { return b.size }

// Usage returns the usage flags the buffer was created with.
func (b *Buffer) Usage() gputypes.BufferUsage { return b.usage }

// Raw returns the underlying hal buffer.
func (b *Buffer) Raw() hal.Buffer { return b.raw }

// IsStatic reports whether the buffer lives in the provider's static cache.
func (b *Buffer) IsStatic() bool { return b.static }

// String returns a string representation of the buffer.
func (b *Buffer) String() string {
	return fmt.Sprintf("Buffer(%q, %d bytes)", b.label, b.size)
}
