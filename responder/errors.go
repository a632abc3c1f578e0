package responder

import (
	"errors"
	"fmt"
	"net"
	"os"
)

var (
	ErrServerClosed = errors.New("server closed")
	ErrReadTimeout  = errors.New("read timeout")
)

type InvalidConfigError struct {
	InvalidField  string
	InvalidReason string
}

func (ic *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid field: %s. reason: %s", ic.InvalidField, ic.InvalidReason)
}

// BindError is returned when the listening address is unavailable or invalid.
type BindError struct {
	Addr string
	Err  error
}

func (e *BindError) Error() string { return fmt.Sprintf("bind %s: %v", e.Addr, e.Err) }
func (e *BindError) Unwrap() error { return e.Err }

// AcceptError wraps a failed Accept. Temporary errors are retried by Serve,
// everything else ends the accept loop.
type AcceptError struct {
	Temporary bool
	Err       error
}

func (e *AcceptError) Error() string {
	if e.Temporary {
		return fmt.Sprintf("accept (temporary): %v", e.Err)
	}
	return fmt.Sprintf("accept: %v", e.Err)
}

func (e *AcceptError) Unwrap() error { return e.Err }

type ReadError struct {
	Err error
}

func (e *ReadError) Error() string { return fmt.Sprintf("read: %v", e.Err) }
func (e *ReadError) Unwrap() error { return e.Err }

type WriteError struct {
	Err error
}

func (e *WriteError) Error() string { return fmt.Sprintf("write: %v", e.Err) }
func (e *WriteError) Unwrap() error { return e.Err }

func isTimeoutError(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func isTemporaryError(err error) bool {
	var ne interface{ Temporary() bool }
	return errors.As(err, &ne) && ne.Temporary()
}
