package responder

import (
	"net"
	"strconv"
)

type ConnState int

const (
	StateAccepted ConnState = iota
	StateReading
	StateResponding
	StateFailed
	StateRejected
	StateClosed
)

var connStateNames = [...]string{
	StateAccepted:   "accepted",
	StateReading:    "reading",
	StateResponding: "responding",
	StateFailed:     "failed",
	StateRejected:   "rejected",
	StateClosed:     "closed",
}

func (s ConnState) String() string {
	if s < 0 || int(s) >= len(connStateNames) {
		return "ConnState(" + strconv.Itoa(int(s)) + ")"
	}
	return connStateNames[s]
}

// ConnStateHandler is called on every state transition of a connection from the
// goroutine that services it. Implementations must be safe for concurrent use
// when the server runs in concurrent mode.
type ConnStateHandler interface {
	HandleConnState(conn net.Conn, state ConnState)
}

type ConnStateHandlerFunc func(conn net.Conn, state ConnState)

func (fn ConnStateHandlerFunc) HandleConnState(conn net.Conn, state ConnState) { fn(conn, state) }

var DefaultConnStateHandler ConnStateHandlerFunc = func(conn net.Conn, state ConnState) {}

type BindFunc func() (net.Listener, error)

// bindFunc picks the bind helper for network, one of "tcp", "tcp4" or "tcp6".
func bindFunc(network, addr string) BindFunc {
	switch network {
	case "tcp4":
		return BindTCPv4(addr)
	case "tcp6":
		return BindTCPv6(addr)
	default:
		return BindTCP(addr)
	}
}

func BindTCPAnyPort() BindFunc {
	return func() (net.Listener, error) { return net.Listen("tcp", "127.0.0.1:0") }
}

func BindTCP(addr string) BindFunc {
	return func() (net.Listener, error) { return net.Listen("tcp", addr) }
}

func BindTCPv4(addr string) BindFunc {
	return func() (net.Listener, error) { return net.Listen("tcp4", addr) }
}

func BindTCPv6(addr string) BindFunc {
	return func() (net.Listener, error) { return net.Listen("tcp6", addr) }
}
