package responder

import (
	"net"
	"sync"
)

// conn tracks one accepted connection through its lifecycle.
type conn struct {
	net.Conn

	hook ConnStateHandler
	once sync.Once
}

func (c *conn) setState(state ConnState) {
	c.hook.HandleConnState(c.Conn, state)
}

// close closes the socket and reports StateClosed. Only the first call has any effect.
func (c *conn) close() (err error) {
	c.once.Do(func() {
		err = c.Conn.Close()
		c.setState(StateClosed)
	})
	return err
}

type ConnPool struct {
	sp sync.Pool
	m  PoolMetrics
}

func (p *ConnPool) metrics() *PoolMetrics {
	return &p.m
}

func (p *ConnPool) acquire(nc net.Conn, hook ConnStateHandler) *conn {
	v := p.sp.Get()
	if v == nil {
		v = &conn{}
		p.m.acquiredNew()
	} else {
		p.m.acquiredReuse()
	}
	c := v.(*conn)
	c.Conn = nc
	c.hook = hook
	c.once = sync.Once{}
	return c
}

func (p *ConnPool) release(c *conn) {
	c.Conn = nil
	c.hook = nil
	p.sp.Put(c)
	p.m.released()
}
