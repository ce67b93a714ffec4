package imagenet

import (
	"fmt"

	"github.com/handiism/imagenet-downloader/internal/model"
)

// NetworkError reports a failed lookup: transport error or non-200 status.
type NetworkError struct {
	Op  string
	ID  model.CategoryID
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s lookup for %s: %v", e.Op, e.ID, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ParseError reports a malformed line in a lookup response.
type ParseError struct {
	// Op names the lookup; empty means the hyponym list.
	Op     string
	Line   int
	Text   string
	Reason string
}

func (e *ParseError) Error() string {
	op := e.Op
	if op == "" {
		op = "hyponyms"
	}
	return fmt.Sprintf("parse %s: line %d %q: %s", op, e.Line, e.Text, e.Reason)
}
