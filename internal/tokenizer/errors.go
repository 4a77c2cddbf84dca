package tokenizer

import (
	"errors"
	"fmt"
)

// ErrUnexpectedEnd is wrapped by every ParseError raised because the stream
// ended while a token (or the end of a quoted string or comment) was required.
var ErrUnexpectedEnd = errors.New("unexpected end of stream")

// ErrorKind categorizes tokenizer failures.
type ErrorKind string

const (
	ErrorKindUnexpectedEnd ErrorKind = "unexpected_end"
	ErrorKindMismatch      ErrorKind = "mismatch"
	ErrorKindIO            ErrorKind = "io"
)

// ParseError reports a lexical failure at a source position.
type ParseError struct {
	Kind     ErrorKind
	Expected string
	Found    string
	Line     int
	Column   int
	Err      error
}

func (e *ParseError) Error() string {
	switch e.Kind {
	case ErrorKindMismatch:
		return fmt.Sprintf("line %d:%d: expected %q, found %s", e.Line, e.Column, e.Expected, e.Found)
	case ErrorKindUnexpectedEnd:
		if e.Expected != "" {
			return fmt.Sprintf("line %d:%d: %v while expecting %s", e.Line, e.Column, ErrUnexpectedEnd, e.Expected)
		}
		return fmt.Sprintf("line %d:%d: %v", e.Line, e.Column, ErrUnexpectedEnd)
	}
	return fmt.Sprintf("line %d:%d: read input: %v", e.Line, e.Column, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func unexpectedEnd(expected string, line, col int) *ParseError {
	return &ParseError{
		Kind:     ErrorKindUnexpectedEnd,
		Expected: expected,
		Found:    "end of stream",
		Line:     line,
		Column:   col,
		Err:      ErrUnexpectedEnd,
	}
}
