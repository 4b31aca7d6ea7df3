package gpu

import "github.com/gogpu/gputypes"

// DefaultMaxInstancesPerDraw bounds the number of instances a single merged
// op may draw.
const DefaultMaxInstancesPerDraw = 1 << 16

// Caps describes what the device can do, as far as draw ops care.
type Caps struct {
	// VertexIDSupport reports whether vertex shaders can read the built-in
	// vertex index. Without it ops bind a unit-quad vertex buffer instead.
	VertexIDSupport bool

	// InstanceAttribSupport reports whether per-instance vertex attributes
	// are available.
	InstanceAttribSupport bool

	// MaxInstancesPerDraw is the largest instance count one draw may issue.
	// Zero or negative means unlimited.
	MaxInstancesPerDraw int

	// MaxTextureSize is the largest 2D texture dimension.
	MaxTextureSize int

	// MaxBufferSize is the largest buffer allocation in bytes.
	MaxBufferSize uint64
}

// DefaultCaps returns the caps of a conforming WebGPU device.
func DefaultCaps() Caps {
	return CapsFromLimits(gputypes.DefaultLimits())
}

// CapsFromLimits derives caps from device limits. WGSL always exposes the
// vertex index, so VertexIDSupport starts out true; callers targeting
// backends that emulate it poorly can clear the flag.
func CapsFromLimits(limits gputypes.Limits) Caps {
	return Caps{
		VertexIDSupport:       true,
		InstanceAttribSupport: true,
		MaxInstancesPerDraw:   DefaultMaxInstancesPerDraw,
		MaxTextureSize:        int(limits.MaxTextureDimension2D),
		MaxBufferSize:         limits.MaxBufferSize,
	}
}

// InstanceLimitAllows reports whether n instances fit in one draw.
func (c Caps) InstanceLimitAllows(n int) bool {
	return c.MaxInstancesPerDraw <= 0 || n <= c.MaxInstancesPerDraw
}
