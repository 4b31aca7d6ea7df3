package gpu

import (
	"fmt"
	"sync"

	"github.com/gogpu/atlasfill"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// CachedProgram is a compiled render pipeline and the layouts it binds.
type CachedProgram struct {
	Key             string
	Pipeline        hal.RenderPipeline
	BindGroupLayout hal.BindGroupLayout
	NumTextures     int

	pipelineLayout hal.PipelineLayout
	module         hal.ShaderModule
}

// ProgramCacheOption configures a ProgramCache.
type ProgramCacheOption func(*ProgramCache)

// WithSPIRV makes the cache compile WGSL to SPIR-V with naga before
// creating shader modules, for backends that do not accept WGSL.
func WithSPIRV() ProgramCacheOption {
	return func(c *ProgramCache) {
		c.spirv = true
	}
}

// ProgramCache maps program keys to render pipelines. Pipelines are built
// on first use and live until Destroy.
//
// ProgramCache is safe for concurrent use.
type ProgramCache struct {
	mu      sync.Mutex
	device  hal.Device
	spirv   bool
	entries map[string]*CachedProgram
}

// NewProgramCache creates an empty cache for device.
func NewProgramCache(device hal.Device, opts ...ProgramCacheOption) (*ProgramCache, error) {
	if device == nil {
		return nil, ErrNilDevice
	}
	c := &ProgramCache{
		device:  device,
		entries: make(map[string]*CachedProgram),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Len returns the number of cached pipelines.
func (c *ProgramCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// FindOrCreate returns the pipeline for info, building it on first use.
func (c *ProgramCache) FindOrCreate(info *ProgramInfo) (*CachedProgram, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[info.Key()]; ok {
		return e, nil
	}
	e, err := c.build(info)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrPipelineCreation, info.Key(), err)
	}
	c.entries[e.Key] = e
	atlasfill.Logger().Info("gpu: program compiled", "key", e.Key, "cached", len(c.entries))
	return e, nil
}

func (c *ProgramCache) build(info *ProgramInfo) (*CachedProgram, error) {
	prog := info.Compile()
	label := info.GeometryProcessor().Name()

	source := hal.ShaderSource{WGSL: prog.WGSL}
	if c.spirv {
		code, err := CompileSPIRV(prog.WGSL)
		if err != nil {
			return nil, err
		}
		source = hal.ShaderSource{SPIRV: code}
	}

	e := &CachedProgram{Key: info.Key(), NumTextures: prog.NumTextures}
	ok := false
	defer func() {
		if !ok {
			c.destroyEntry(e)
		}
	}()

	module, err := c.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  label + "_shader",
		Source: source,
	})
	if err != nil {
		return nil, fmt.Errorf("create shader module: %w", err)
	}
	e.module = module

	bgl, err := c.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   label + "_bind_layout",
		Entries: bindGroupLayoutEntries(prog.NumTextures),
	})
	if err != nil {
		return nil, fmt.Errorf("create bind group layout: %w", err)
	}
	e.BindGroupLayout = bgl

	pl, err := c.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            label + "_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{bgl},
	})
	if err != nil {
		return nil, fmt.Errorf("create pipeline layout: %w", err)
	}
	e.pipelineLayout = pl

	blend := prog.Blend
	pipeline, err := c.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  label + "_pipeline",
		Layout: pl,
		Vertex: hal.VertexState{
			Module:     module,
			EntryPoint: "vs_main",
			Buffers:    prog.Layouts,
		},
		Fragment: &hal.FragmentState{
			Module:     module,
			EntryPoint: "fs_main",
			Targets: []gputypes.ColorTargetState{{
				Format:    info.Target().Format,
				Blend:     &blend,
				WriteMask: gputypes.ColorWriteMaskAll,
			}},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: info.Topology(),
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: uint32(info.SampleCount()), //nolint:gosec // sample counts are tiny
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create render pipeline: %w", err)
	}
	e.Pipeline = pipeline
	ok = true
	return e, nil
}

// bindGroupLayoutEntries mirrors the binding scheme of ShaderBuilder.
func bindGroupLayoutEntries(numTextures int) []gputypes.BindGroupLayoutEntry {
	entries := []gputypes.BindGroupLayoutEntry{{
		Binding:    0,
		Visibility: gputypes.ShaderStageVertex,
		Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
	}}
	for i := range numTextures {
		entries = append(entries,
			gputypes.BindGroupLayoutEntry{
				Binding:    uint32(1 + 2*i), //nolint:gosec // small
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
			gputypes.BindGroupLayoutEntry{
				Binding:    uint32(2 + 2*i), //nolint:gosec // small
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
		)
	}
	return entries
}

func (c *ProgramCache) destroyEntry(e *CachedProgram) {
	if e.Pipeline != nil {
		c.device.DestroyRenderPipeline(e.Pipeline)
	}
	if e.pipelineLayout != nil {
		c.device.DestroyPipelineLayout(e.pipelineLayout)
	}
	if e.BindGroupLayout != nil {
		c.device.DestroyBindGroupLayout(e.BindGroupLayout)
	}
	if e.module != nil {
		c.device.DestroyShaderModule(e.module)
	}
}

// Destroy releases every cached pipeline.
func (c *ProgramCache) Destroy() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.entries {
		c.destroyEntry(e)
	}
	c.entries = make(map[string]*CachedProgram)
}
