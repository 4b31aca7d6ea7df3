// Package atlasfill provides the shared geometry, color and logging types for
// atlas-backed instanced path fills on top of gogpu/wgpu.
//
// Paths are rasterized once into a coverage atlas (package atlas). Each
// filled path then becomes a DrawAtlasPathOp (package ops): a rectangle of
// pixels that samples its coverage from the atlas and applies a paint. Ops
// that share an atlas, antialiasing mode and paint signature merge into a
// single instanced draw call.
//
// # Architecture Overview
//
//	atlas.Atlas      -> coverage masks + locations
//	ops.OpsTask      -> records ops, merges siblings, schedules preparation
//	gpu.FlushState   -> vertex pool, resource provider, render pass
//
// Preparation runs in two phases. Ahead-of-time preparation builds program
// descriptors and may run on worker goroutines while recording continues.
// Final preparation serializes instances into a shared GPU buffer. Execution
// binds the program, atlas texture and buffers and issues one draw.
//
// # Logging
//
// atlasfill is silent by default. Call SetLogger to receive diagnostics from
// every sub-package.
package atlasfill
