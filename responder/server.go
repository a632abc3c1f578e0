package responder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/jpillora/backoff"
)

const (
	DefaultAddr           = "127.0.0.1:8080"
	DefaultNetwork        = "tcp"
	DefaultReadBufferSize = 1024
)

type Mode int

const (
	// ModeSequential services one connection to completion before accepting the next.
	ModeSequential Mode = iota
	// ModeConcurrent services every connection on its own goroutine.
	ModeConcurrent
)

func (m Mode) String() string {
	switch m {
	case ModeSequential:
		return "sequential"
	case ModeConcurrent:
		return "concurrent"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "sequential", "seq":
		return ModeSequential, nil
	case "concurrent", "conc":
		return ModeConcurrent, nil
	}
	return 0, fmt.Errorf("unknown mode %q (supported: sequential, concurrent)", s)
}

type Config struct {
	// Network is "tcp", "tcp4" or "tcp6". Empty means DefaultNetwork.
	Network string
	Addr    string
	Mode    Mode

	// MaxConns bounds the number of connections serviced at once in concurrent
	// mode. Zero means unbounded.
	MaxConns int
	// RejectWhenFull closes new connections while MaxConns are in flight instead
	// of blocking the accept loop.
	RejectWhenFull bool

	ReadBufferSize int

	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Response and Handler are mutually exclusive. With neither set every
	// request is answered with DefaultResponse.
	Response []byte
	Handler  Handler

	ConnState ConnStateHandler
	Logger    watermill.LoggerAdapter
}

func validateConfig(c Config) error {
	switch c.Network {
	case "", "tcp", "tcp4", "tcp6":
	default:
		return &InvalidConfigError{InvalidField: "Network", InvalidReason: "unknown network " + c.Network}
	}

	if c.Mode != ModeSequential && c.Mode != ModeConcurrent {
		return &InvalidConfigError{InvalidField: "Mode", InvalidReason: "unknown mode " + c.Mode.String()}
	}

	if c.MaxConns < 0 {
		return &InvalidConfigError{InvalidField: "MaxConns", InvalidReason: "cant be negative"}
	}

	if c.MaxConns > 0 && c.Mode != ModeConcurrent {
		return &InvalidConfigError{InvalidField: "MaxConns", InvalidReason: "only applies to concurrent mode"}
	}

	if c.RejectWhenFull && c.MaxConns == 0 {
		return &InvalidConfigError{InvalidField: "RejectWhenFull", InvalidReason: "requires MaxConns"}
	}

	if c.ReadBufferSize < 0 {
		return &InvalidConfigError{InvalidField: "ReadBufferSize", InvalidReason: "cant be negative"}
	}

	if c.ReadTimeout < 0 {
		return &InvalidConfigError{InvalidField: "ReadTimeout", InvalidReason: "cant be negative"}
	}

	if c.WriteTimeout < 0 {
		return &InvalidConfigError{InvalidField: "WriteTimeout", InvalidReason: "cant be negative"}
	}

	if c.Response != nil && c.Handler != nil {
		return &InvalidConfigError{InvalidField: "Response", InvalidReason: "cant be combined with Handler"}
	}

	return nil
}

// Server accepts connections and answers a single request on each of them.
// Its configuration is fixed by NewServer.
type Server struct {
	cfg     Config
	handler Handler
	hook    ConnStateHandler
	logger  watermill.LoggerAdapter

	slots chan struct{} // nil unless MaxConns > 0

	buffers BufferPool
	conns   ConnPool

	wg sync.WaitGroup

	mu   sync.Mutex
	lns  map[net.Listener]struct{}
	done bool
}

func NewServer(cfg Config) (*Server, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	if cfg.Network == "" {
		cfg.Network = DefaultNetwork
	}

	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}

	if cfg.ReadBufferSize == 0 {
		cfg.ReadBufferSize = DefaultReadBufferSize
	}

	s := &Server{cfg: cfg, lns: make(map[net.Listener]struct{})}

	switch {
	case cfg.Handler != nil:
		s.handler = cfg.Handler
	case cfg.Response != nil:
		s.handler = StaticHandler(append([]byte(nil), cfg.Response...))
	default:
		s.handler = StaticHandler(append([]byte(nil), DefaultResponse...))
	}
	s.cfg.Response = nil

	s.hook = cfg.ConnState
	if s.hook == nil {
		s.hook = DefaultConnStateHandler
	}

	s.logger = cfg.Logger
	if s.logger == nil {
		s.logger = watermill.NopLogger{}
	}

	if cfg.MaxConns > 0 {
		s.slots = make(chan struct{}, cfg.MaxConns)
	}

	return s, nil
}

// ListenAndServe binds cfg.Addr and serves it until the listener is closed.
func ListenAndServe(cfg Config) error {
	s, err := NewServer(cfg)
	if err != nil {
		return err
	}
	return s.ListenAndServe()
}

func (s *Server) ListenAndServe() error {
	ln, err := s.Listen()
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Listen binds the configured address on the configured network.
func (s *Server) Listen() (net.Listener, error) {
	ln, err := bindFunc(s.cfg.Network, s.cfg.Addr)()
	if err != nil {
		return nil, &BindError{Addr: s.cfg.Addr, Err: err}
	}
	return ln, nil
}

// Serve runs the accept loop on ln. It returns ErrServerClosed once ln is
// closed, or an *AcceptError if accepting fails for any other permanent reason.
// Connections still being handled are left to finish; see Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	if !s.track(ln) {
		_ = ln.Close()
		return ErrServerClosed
	}
	defer s.untrack(ln)

	s.logger.Info("Listening", watermill.LogFields{
		"addr": ln.Addr().String(),
		"mode": s.cfg.Mode.String(),
	})

	b := &backoff.Backoff{
		Factor: 2,
		Jitter: true,
		Min:    5 * time.Millisecond,
		Max:    1 * time.Second,
	}

	for {
		nc, err := ln.Accept()
		if err != nil {
			if s.isDone() || errors.Is(err, net.ErrClosed) {
				return ErrServerClosed
			}

			if isTemporaryError(err) {
				delay := b.Duration()
				s.logger.Error("Accept failed. Try again", &AcceptError{Temporary: true, Err: err},
					watermill.LogFields{"retry_in": delay.String()})
				time.Sleep(delay)

				continue
			}

			return &AcceptError{Err: err}
		}

		b.Reset()
		s.dispatch(nc)
	}
}

func (s *Server) dispatch(nc net.Conn) {
	if s.cfg.Mode == ModeSequential {
		if s.trackConn() {
			defer s.wg.Done()
		}

		s.serveConn(nc)

		return
	}

	if s.slots != nil {
		if s.cfg.RejectWhenFull {
			select {
			case s.slots <- struct{}{}:
			default:
				s.reject(nc)
				return
			}
		} else {
			s.slots <- struct{}{}
		}
	}

	tracked := s.trackConn()
	go func() {
		if tracked {
			defer s.wg.Done()
		}
		if s.slots != nil {
			defer func() { <-s.slots }()
		}
		s.serveConn(nc)
	}()
}

func (s *Server) serveConn(nc net.Conn) {
	addr := addrString(nc.RemoteAddr())

	if err := s.Handle(nc); err != nil {
		s.logger.Error("Connection aborted", err, watermill.LogFields{"remote_addr": addr})
		return
	}

	s.logger.Trace("Connection served", watermill.LogFields{"remote_addr": addr})
}

func (s *Server) reject(nc net.Conn) {
	c := s.conns.acquire(nc, s.hook)
	defer s.conns.release(c)

	c.setState(StateAccepted)
	c.setState(StateRejected)
	_ = c.close()

	s.logger.Info("Connection rejected, pool saturated", watermill.LogFields{
		"remote_addr": addrString(nc.RemoteAddr()),
		"max_conns":   s.cfg.MaxConns,
	})
}

// Handle reads one request from nc, writes the response and closes nc. It
// never retries: a failed read or write abandons the connection.
func (s *Server) Handle(nc net.Conn) error {
	c := s.conns.acquire(nc, s.hook)
	defer s.conns.release(c)

	c.setState(StateAccepted)

	err := s.handle(c)
	_ = c.close()

	return err
}

func (s *Server) handle(c *conn) error {
	c.setState(StateReading)

	if s.cfg.ReadTimeout > 0 {
		if err := c.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout)); err != nil {
			c.setState(StateFailed)
			return &ReadError{Err: err}
		}
	}

	bb := s.buffers.acquire(s.cfg.ReadBufferSize)
	defer s.buffers.release(bb)

	// A single read: whatever arrived before EOF or an error is the request.
	n, err := c.Read(bb.B)
	if n == 0 && err != nil && !errors.Is(err, io.EOF) {
		c.setState(StateFailed)
		if isTimeoutError(err) {
			return fmt.Errorf("%w after %s: %v", ErrReadTimeout, s.cfg.ReadTimeout, err)
		}
		return &ReadError{Err: err}
	}

	body := bb.B[:n]
	req := Request{
		Body:       body,
		Text:       DecodeLossy(body),
		RemoteAddr: c.RemoteAddr(),
	}

	s.logger.Debug("Request", watermill.LogFields{
		"remote_addr": addrString(req.RemoteAddr),
		"request":     req.Text,
	})

	c.setState(StateResponding)

	resp, err := s.respond(req)
	if err != nil {
		c.setState(StateFailed)
		return err
	}

	if s.cfg.WriteTimeout > 0 {
		if err := c.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout)); err != nil {
			c.setState(StateFailed)
			return &WriteError{Err: err}
		}
	}

	if _, err := c.Write(resp); err != nil {
		c.setState(StateFailed)
		return &WriteError{Err: err}
	}

	return nil
}

func (s *Server) respond(req Request) (resp []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return s.handler.Respond(req), nil
}

// Addrs returns the addresses of the listeners currently being served.
func (s *Server) Addrs() []net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	addrs := make([]net.Addr, 0, len(s.lns))
	for ln := range s.lns {
		addrs = append(addrs, ln.Addr())
	}
	return addrs
}

// Close closes every listener so that Serve returns ErrServerClosed. In-flight
// connections are not interrupted.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.done = true

	var err error
	for ln := range s.lns {
		if cerr := ln.Close(); cerr != nil && !errors.Is(cerr, net.ErrClosed) && err == nil {
			err = cerr
		}
	}
	return err
}

// Shutdown closes the listeners and waits for in-flight connections to finish
// or for ctx to be done, whichever happens first.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.Close()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) PoolMetrics() Pools {
	return Pools{Buffers: s.buffers.metrics(), Conns: s.conns.metrics()}
}

func (s *Server) track(ln net.Listener) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done {
		return false
	}
	s.lns[ln] = struct{}{}
	return true
}

func (s *Server) untrack(ln net.Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.lns, ln)
}

// trackConn registers an in-flight connection with Shutdown. Connections
// accepted after Close are still served but not waited for.
func (s *Server) trackConn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done {
		return false
	}
	s.wg.Add(1)
	return true
}

func (s *Server) isDone() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.done
}

func addrString(addr net.Addr) string {
	if addr == nil {
		return ""
	}
	return addr.String()
}
