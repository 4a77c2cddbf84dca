package primitive

import (
	"strconv"

	"mapreader/internal/tokenizer"
)

// expect consumes the next token and checks its kind.
func expect(tok *tokenizer.Tokenizer, kind tokenizer.Kind) error {
	t, err := tok.Require(kind.String())
	if err != nil {
		return err
	}
	if t.Kind != kind {
		return mismatch(kind.String(), t)
	}
	return nil
}

func mismatch(expected string, t tokenizer.Token) *tokenizer.ParseError {
	return &tokenizer.ParseError{
		Kind:     tokenizer.ErrorKindMismatch,
		Expected: expected,
		Found:    t.String(),
		Line:     t.Line,
		Column:   t.Column,
	}
}

func readFloat(tok *tokenizer.Tokenizer) (float64, error) {
	t, err := tok.Require("number")
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(t.Text, 64)
	if err != nil || t.Kind != tokenizer.Word {
		return 0, mismatch("number", t)
	}
	return v, nil
}

func readInt(tok *tokenizer.Tokenizer) (int, error) {
	t, err := tok.Require("integer")
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(t.Text)
	if err != nil || t.Kind != tokenizer.Word {
		return 0, mismatch("integer", t)
	}
	return v, nil
}

// readVector reads "( n0 n1 ... )" into dst.
func readVector(tok *tokenizer.Tokenizer, dst []float64) error {
	if err := expect(tok, tokenizer.OpenParen); err != nil {
		return err
	}
	for i := range dst {
		v, err := readFloat(tok)
		if err != nil {
			return err
		}
		dst[i] = v
	}
	return expect(tok, tokenizer.CloseParen)
}

// readShader reads a material name. Older maps write it unquoted.
func readShader(tok *tokenizer.Tokenizer) (string, error) {
	t, err := tok.Require("shader name")
	if err != nil {
		return "", err
	}
	if t.Kind != tokenizer.Quoted && t.Kind != tokenizer.Word {
		return "", mismatch("shader name", t)
	}
	return t.Text, nil
}
