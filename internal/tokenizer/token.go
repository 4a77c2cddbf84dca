package tokenizer

import "fmt"

// Kind classifies a lexical unit.
type Kind int

const (
	// EOF marks the end of the token stream.
	EOF Kind = iota
	// Word is a bare, whitespace-delimited string.
	Word
	// Quoted is a double-quoted string; Text holds the contents without quotes.
	Quoted
	OpenBrace
	CloseBrace
	OpenParen
	CloseParen
)

func (k Kind) String() string {
	switch k {
	case EOF:
		return "EOF"
	case Word:
		return "word"
	case Quoted:
		return "quoted string"
	case OpenBrace:
		return "{"
	case CloseBrace:
		return "}"
	case OpenParen:
		return "("
	case CloseParen:
		return ")"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Token is a single lexical unit with its source position.
type Token struct {
	Kind Kind
	// Text is the token text. Braces and parens carry their literal character.
	Text string
	// Line is 1-based; Column is the 1-based byte column of the first character.
	Line   int
	Column int
}

// IsStructural reports whether the token is a brace. Quoted "{" is not structural.
func (t Token) IsStructural() bool {
	return t.Kind == OpenBrace || t.Kind == CloseBrace
}

func (t Token) String() string {
	switch t.Kind {
	case EOF:
		return "end of stream"
	case Quoted:
		return fmt.Sprintf("%q", t.Text)
	}
	return t.Text
}
