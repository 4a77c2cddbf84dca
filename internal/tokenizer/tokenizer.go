// Package tokenizer splits map text into words, quoted strings, braces and
// parens. It keeps no parse state beyond one token of lookahead and the
// current line/column.
package tokenizer

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

// Tokenizer lexes tokens lazily from an io.Reader.
type Tokenizer struct {
	r      *bufio.Reader
	line   int
	col    int
	peeked *Token
}

// New creates a Tokenizer reading from r.
func New(r io.Reader) *Tokenizer {
	return &Tokenizer{
		r:    bufio.NewReader(r),
		line: 1,
	}
}

// NewString creates a Tokenizer over an in-memory string.
func NewString(s string) *Tokenizer {
	return New(strings.NewReader(s))
}

// Next consumes and returns the next token. At end of stream it returns a
// token of kind EOF and a nil error.
func (t *Tokenizer) Next() (Token, error) {
	if t.peeked != nil {
		tok := *t.peeked
		t.peeked = nil
		return tok, nil
	}
	return t.scan()
}

// Peek returns the next token without consuming it.
func (t *Tokenizer) Peek() (Token, error) {
	if t.peeked == nil {
		tok, err := t.scan()
		if err != nil {
			return Token{}, err
		}
		t.peeked = &tok
	}
	return *t.peeked, nil
}

// HasMore reports whether another token is available. Lexical errors count as
// "more": the following Next call surfaces them.
func (t *Tokenizer) HasMore() bool {
	tok, err := t.Peek()
	return err != nil || tok.Kind != EOF
}

// Require consumes the next token and fails with ErrUnexpectedEnd if the
// stream is exhausted. what names the token the caller was expecting.
func (t *Tokenizer) Require(what string) (Token, error) {
	tok, err := t.Next()
	if err != nil {
		return Token{}, err
	}
	if tok.Kind == EOF {
		return Token{}, unexpectedEnd(what, tok.Line, tok.Column)
	}
	return tok, nil
}

// AssertNext consumes the next token and fails unless it is the unquoted
// word or delimiter expected. A quoted token never matches.
func (t *Tokenizer) AssertNext(expected string) error {
	tok, err := t.Require(expected)
	if err != nil {
		return err
	}
	if tok.Kind == Quoted || tok.Text != expected {
		return &ParseError{
			Kind:     ErrorKindMismatch,
			Expected: expected,
			Found:    tok.String(),
			Line:     tok.Line,
			Column:   tok.Column,
		}
	}
	return nil
}

func (t *Tokenizer) scan() (Token, error) {
	if err := t.skipSpaceAndComments(); err != nil {
		return Token{}, err
	}

	line, col := t.line, t.col+1
	b, err := t.readByte()
	if errors.Is(err, io.EOF) {
		return Token{Kind: EOF, Line: line, Column: col}, nil
	}
	if err != nil {
		return Token{}, t.ioError(err)
	}

	switch b {
	case '{':
		return Token{Kind: OpenBrace, Text: "{", Line: line, Column: col}, nil
	case '}':
		return Token{Kind: CloseBrace, Text: "}", Line: line, Column: col}, nil
	case '(':
		return Token{Kind: OpenParen, Text: "(", Line: line, Column: col}, nil
	case ')':
		return Token{Kind: CloseParen, Text: ")", Line: line, Column: col}, nil
	case '"':
		return t.scanQuoted(line, col)
	}
	return t.scanWord(b, line, col)
}

func (t *Tokenizer) scanQuoted(line, col int) (Token, error) {
	var sb strings.Builder
	for {
		b, err := t.readByte()
		if errors.Is(err, io.EOF) {
			return Token{}, unexpectedEnd("closing quote", line, col)
		}
		if err != nil {
			return Token{}, t.ioError(err)
		}
		if b == '"' {
			return Token{Kind: Quoted, Text: sb.String(), Line: line, Column: col}, nil
		}
		sb.WriteByte(b)
	}
}

func (t *Tokenizer) scanWord(first byte, line, col int) (Token, error) {
	var sb strings.Builder
	sb.WriteByte(first)
	for {
		b, err := t.peekByte()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Token{}, t.ioError(err)
		}
		if isSpace(b) || isDelimiter(b) {
			break
		}
		t.readByte()
		sb.WriteByte(b)
	}
	return Token{Kind: Word, Text: sb.String(), Line: line, Column: col}, nil
}

func (t *Tokenizer) skipSpaceAndComments() error {
	for {
		b, err := t.peekByte()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return t.ioError(err)
		}

		if isSpace(b) {
			t.readByte()
			continue
		}
		if b != '/' {
			return nil
		}

		next, _ := t.r.Peek(2)
		if len(next) < 2 {
			return nil
		}
		switch next[1] {
		case '/':
			if err := t.skipLine(); err != nil {
				return err
			}
		case '*':
			if err := t.skipBlock(); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

func (t *Tokenizer) skipLine() error {
	for {
		b, err := t.readByte()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return t.ioError(err)
		}
		if b == '\n' {
			return nil
		}
	}
}

func (t *Tokenizer) skipBlock() error {
	line, col := t.line, t.col+1
	// Opening "/*".
	t.readByte()
	t.readByte()

	var prev byte
	for {
		b, err := t.readByte()
		if errors.Is(err, io.EOF) {
			return unexpectedEnd("end of block comment", line, col)
		}
		if err != nil {
			return t.ioError(err)
		}
		if prev == '*' && b == '/' {
			return nil
		}
		prev = b
	}
}

func (t *Tokenizer) readByte() (byte, error) {
	b, err := t.r.ReadByte()
	if err != nil {
		return 0, err
	}
	if b == '\n' {
		t.line++
		t.col = 0
	} else {
		t.col++
	}
	return b, nil
}

func (t *Tokenizer) peekByte() (byte, error) {
	buf, err := t.r.Peek(1)
	if err != nil {
		return 0, err
	}
	return buf[0], nil
}

func (t *Tokenizer) ioError(err error) *ParseError {
	return &ParseError{
		Kind:   ErrorKindIO,
		Line:   t.line,
		Column: t.col,
		Err:    err,
	}
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f' || b == '\v'
}

func isDelimiter(b byte) bool {
	return b == '{' || b == '}' || b == '(' || b == ')' || b == '"'
}
