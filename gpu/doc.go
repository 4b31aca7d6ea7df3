// Package gpu is the flush framework that draw ops record into.
//
// It owns everything an op needs between recording and submission: device
// capabilities (Caps), shared texture handles (TextureView), budgeted buffer
// and texture creation (ResourceProvider), per-flush instance storage
// (VertexPool), program descriptors and their compiled pipelines
// (ProgramInfo, ProgramCache), and the render pass abstraction ops draw
// through (OpsRenderPass, FlushState).
//
// All GPU objects come from github.com/gogpu/wgpu/hal. Tests run against
// the hal/noop backend.
package gpu
