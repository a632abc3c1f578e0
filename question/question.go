package question

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidInput = errors.New("no id provided")

type ID string

// ParseID validates s as a question identifier.
func ParseID(s string) (ID, error) {
	if s == "" {
		return "", ErrInvalidInput
	}
	return ID(s), nil
}

func (id ID) String() string { return "id: " + string(id) }

// Question is an immutable question record. Tags is nil when the question has none.
type Question struct {
	id      ID
	title   string
	content string
	tags    []string
}

func New(id ID, title, content string, tags []string) Question {
	q := Question{id: id, title: title, content: content}
	if tags != nil {
		q.tags = append(make([]string, 0, len(tags)), tags...)
	}
	return q
}

func (q Question) ID() ID          { return q.id }
func (q Question) Title() string   { return q.title }
func (q Question) Content() string { return q.content }

func (q Question) Tags() []string {
	if q.tags == nil {
		return nil
	}
	return append([]string(nil), q.tags...)
}

func (q Question) String() string {
	tags := "none"
	if q.tags != nil {
		tags = "[" + strings.Join(q.tags, ", ") + "]"
	}
	return fmt.Sprintf("%s, title: %s, content: %s, tags: %s", q.id, q.title, q.content, tags)
}
