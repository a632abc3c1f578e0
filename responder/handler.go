package responder

import (
	"net"
	"strings"
	"unicode/utf8"
)

// DefaultResponse is written when neither a static payload nor a Handler is configured.
var DefaultResponse = []byte("HTTP/1.1 200 OK\r\n\r\n")

// Request is one decoded request. Body aliases a pooled read buffer and is only
// valid until Respond returns.
type Request struct {
	Body       []byte
	Text       string
	RemoteAddr net.Addr
}

type Handler interface {
	Respond(req Request) []byte
}

type HandlerFunc func(req Request) []byte

func (fn HandlerFunc) Respond(req Request) []byte { return fn(req) }

// StaticHandler answers every request with the same payload.
type StaticHandler []byte

func (h StaticHandler) Respond(Request) []byte { return h }

// DecodeLossy decodes b as UTF-8, replacing every invalid sequence with U+FFFD.
func DecodeLossy(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}

	var sb strings.Builder
	sb.Grow(len(b) + 2*utf8.UTFMax)

	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		if r == utf8.RuneError && size == 1 {
			sb.WriteRune(utf8.RuneError)
		} else {
			sb.Write(b[:size])
		}
		b = b[size:]
	}

	return sb.String()
}
