package responder

import (
	"github.com/valyala/bytebufferpool"
)

type BufferPool struct {
	bp bytebufferpool.Pool
	m  PoolMetrics
}

func (p *BufferPool) metrics() *PoolMetrics {
	return &p.m
}

// acquire returns a buffer whose B has length size.
func (p *BufferPool) acquire(size int) *bytebufferpool.ByteBuffer {
	bb := p.bp.Get()
	if cap(bb.B) < size {
		bb.B = make([]byte, size)
		p.m.acquiredNew()
	} else {
		bb.B = bb.B[:size]
		p.m.acquiredReuse()
	}
	return bb
}

func (p *BufferPool) release(bb *bytebufferpool.ByteBuffer) {
	bb.Reset()
	p.bp.Put(bb)
	p.m.released()
}
