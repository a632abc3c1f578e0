package responder

import (
	"fmt"
	"sync/atomic"
)

// na + nr equal the total number of acquires
// na + nr - np equal the number still in use.
type PoolMetrics struct {
	na uint32 // number of new acquires
	nr uint32 // number of reuse from pool
	np uint32 // number of put back to pool
}

func (p *PoolMetrics) acquiredNew()   { atomic.AddUint32(&p.na, uint32(1)) }
func (p *PoolMetrics) acquiredReuse() { atomic.AddUint32(&p.nr, uint32(1)) }
func (p *PoolMetrics) released()      { atomic.AddUint32(&p.np, uint32(1)) }

func (p *PoolMetrics) New() uint32      { return atomic.LoadUint32(&p.na) }
func (p *PoolMetrics) Reused() uint32   { return atomic.LoadUint32(&p.nr) }
func (p *PoolMetrics) Released() uint32 { return atomic.LoadUint32(&p.np) }

func (p *PoolMetrics) InUse() uint32 {
	return p.New() + p.Reused() - p.Released()
}

func (p *PoolMetrics) String() string {
	return fmt.Sprintf("[ %d|%d|%d ]", p.New(), p.Reused(), p.Released())
}

func (p *PoolMetrics) JSONString() string {
	return fmt.Sprintf("{\"new\": %d, \"reused\": %d, \"released\": %d}", p.New(), p.Reused(), p.Released())
}

// Pools gives access to the counters of every pool owned by a Server.
type Pools struct {
	Buffers *PoolMetrics
	Conns   *PoolMetrics
}

func (p Pools) String() string {
	return fmt.Sprintf("{bufferPool = %s, connPool = %s}", p.Buffers.String(), p.Conns.String())
}

func (p Pools) JSONString() string {
	return fmt.Sprintf("{\"bufferPool\": %s, \"connPool\": %s}", p.Buffers.JSONString(), p.Conns.JSONString())
}
