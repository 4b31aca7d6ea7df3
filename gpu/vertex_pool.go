package gpu

import (
	"fmt"

	"github.com/gogpu/atlasfill"
	"github.com/gogpu/gputypes"
	"honnef.co/go/safeish"
)

// vertexChunk is one GPU buffer plus its CPU staging copy.
type vertexChunk struct {
	buf  *Buffer
	data []float32
	used uint64 // bytes
}

// VertexPool hands out per-flush instance storage. Space is carved from
// chunked GPU buffers; each allocation starts at a multiple of its stride
// so it can be addressed by a base instance with the buffer bound at
// offset zero.
//
// VertexPool is not safe for concurrent use. Ops prepare on the flush
// goroutine.
type VertexPool struct {
	provider  *ResourceProvider
	chunkSize uint64
	chunks    []*vertexChunk
	bytes     uint64
}

// NewVertexPool creates a pool drawing buffers from provider.
func NewVertexPool(provider *ResourceProvider) *VertexPool {
	return &VertexPool{
		provider:  provider,
		chunkSize: provider.ChunkSize(),
	}
}

// MakeSpace reserves count elements of stride bytes. It returns the CPU
// storage to fill, the buffer it will be uploaded to, and the index of the
// first element within that buffer. stride must be a positive multiple of 4.
func (p *VertexPool) MakeSpace(stride uint64, count int) ([]float32, *Buffer, int, error) {
	if stride == 0 || stride%4 != 0 || count <= 0 {
		return nil, nil, 0, fmt.Errorf("%w: %d elements of %d bytes", ErrInvalidSize, count, stride)
	}
	need := stride * uint64(count)

	if n := len(p.chunks); n > 0 {
		c := p.chunks[n-1]
		offset := alignUp(c.used, stride)
		if offset+need <= c.buf.size {
			return p.carve(c, offset, need, stride)
		}
	}

	size := max(alignUp(p.chunkSize, 4), need)
	buf, err := p.provider.CreateBuffer(
		fmt.Sprintf("atlasfill_vertex_chunk_%d", len(p.chunks)),
		size,
		gputypes.BufferUsageVertex|gputypes.BufferUsageCopyDst,
	)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("vertex pool: %w", err)
	}
	c := &vertexChunk{buf: buf, data: make([]float32, size/4)}
	p.chunks = append(p.chunks, c)
	atlasfill.Logger().Debug("gpu: vertex chunk allocated", "size", size, "chunks", len(p.chunks))
	return p.carve(c, 0, need, stride)
}

func (p *VertexPool) carve(c *vertexChunk, offset, need, stride uint64) ([]float32, *Buffer, int, error) {
	c.used = offset + need
	p.bytes += need
	lo, hi := offset/4, (offset+need)/4
	return c.data[lo:hi:hi], c.buf, int(offset / stride), nil //nolint:gosec // offset bounded by chunk size
}

// Unmap uploads every chunk's used bytes to the GPU.
func (p *VertexPool) Unmap() {
	for _, c := range p.chunks {
		if c.used == 0 {
			continue
		}
		p.provider.WriteBuffer(c.buf, 0, safeish.SliceCast[[]byte](c.data[:c.used/4]))
	}
}

// Contents returns the staged data of buf up to the last byte handed out,
// or nil if buf does not belong to the pool.
func (p *VertexPool) Contents(buf *Buffer) []float32 {
	for _, c := range p.chunks {
		if c.buf == buf {
			return c.data[:c.used/4]
		}
	}
	return nil
}

// BytesUsed returns the number of bytes handed out since the last Release.
func (p *VertexPool) BytesUsed() uint64 { return p.bytes }

// Chunks returns the number of GPU buffers backing the pool.
func (p *VertexPool) Chunks() int { return len(p.chunks) }

// Release returns every chunk to the provider.
func (p *VertexPool) Release() {
	for _, c := range p.chunks {
		p.provider.ReleaseBuffer(c.buf)
	}
	p.chunks = nil
	p.bytes = 0
}
