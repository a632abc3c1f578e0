package question

import (
	"fmt"
	"io"
	"math"

	"github.com/lithdew/bytesutil"
	"github.com/vmihailenco/msgpack/v5"
)

type wireQuestion struct {
	ID      string   `msgpack:"id"`
	Title   string   `msgpack:"title"`
	Content string   `msgpack:"content"`
	Tags    []string `msgpack:"tags"`
}

// AppendTo appends q to dst as a big-endian uint16 length followed by a
// msgpack body.
func (q Question) AppendTo(dst []byte) ([]byte, error) {
	body, err := msgpack.Marshal(wireQuestion{
		ID:      string(q.id),
		Title:   q.title,
		Content: q.content,
		Tags:    q.tags,
	})
	if err != nil {
		return dst, err
	}

	if len(body) > math.MaxUint16 {
		return dst, fmt.Errorf("question '%s' is too large - encoded size %d must <= %d bytes",
			q.id, len(body), math.MaxUint16)
	}

	dst = bytesutil.AppendUint16BE(dst, uint16(len(body)))
	dst = append(dst, body...)
	return dst, nil
}

// Unmarshal decodes one question from buf and returns the unread remainder.
func Unmarshal(buf []byte) (Question, []byte, error) {
	var q Question

	if len(buf) < 2 {
		return q, buf, io.ErrUnexpectedEOF
	}

	var size uint16
	size, buf = bytesutil.Uint16BE(buf[:2]), buf[2:]
	if len(buf) < int(size) {
		return q, buf, io.ErrUnexpectedEOF
	}

	var w wireQuestion
	if err := msgpack.Unmarshal(buf[:size], &w); err != nil {
		return q, buf, fmt.Errorf("decode question: %w", err)
	}

	id, err := ParseID(w.ID)
	if err != nil {
		return q, buf, err
	}

	return New(id, w.Title, w.Content, w.Tags), buf[size:], nil
}
