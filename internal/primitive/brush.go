package primitive

import (
	"errors"

	"mapreader/internal/parser"
	"mapreader/internal/tokenizer"
)

// KeywordBrushDef3 introduces a Doom 3 brush.
const KeywordBrushDef3 = "brushDef3"

var errEmptyBrush = errors.New("brush has no faces")

// Face is one brush plane with its texture projection.
type Face struct {
	// Plane holds the normal (a, b, c) and distance d of "a x + b y + c z - d = 0".
	Plane [4]float64 `json:"plane"`
	// TexMatrix is the 2x3 texture projection, one row per texture axis.
	TexMatrix [2][3]float64 `json:"tex_matrix"`
	Shader    string        `json:"shader"`
	// Flags are the three trailing integers (content flags, unused, unused).
	Flags [3]int `json:"flags"`
}

// Brush is a convex solid described by its faces.
type Brush struct {
	Faces []Face `json:"faces"`
}

func (b *Brush) Keyword() string { return KeywordBrushDef3 }

// BrushDef3Parser parses
//
//	{
//	 ( a b c d ) ( ( xx xy xz ) ( yx yy yz ) ) "shader" 0 0 0
//	 ...
//	}
type BrushDef3Parser struct{}

func NewBrushDef3Parser() *BrushDef3Parser { return &BrushDef3Parser{} }

func (p *BrushDef3Parser) Parse(tok *tokenizer.Tokenizer) (parser.Primitive, error) {
	if err := expect(tok, tokenizer.OpenBrace); err != nil {
		return nil, err
	}

	brush := &Brush{}
	for {
		next, err := tok.Peek()
		if err != nil {
			return nil, err
		}
		if next.Kind == tokenizer.CloseBrace {
			tok.Next()
			break
		}

		face, err := parseFace(tok)
		if err != nil {
			return nil, err
		}
		brush.Faces = append(brush.Faces, face)
	}

	if len(brush.Faces) == 0 {
		return nil, errEmptyBrush
	}
	return brush, nil
}

func parseFace(tok *tokenizer.Tokenizer) (Face, error) {
	var f Face

	if err := readVector(tok, f.Plane[:]); err != nil {
		return f, err
	}

	if err := expect(tok, tokenizer.OpenParen); err != nil {
		return f, err
	}
	for i := range f.TexMatrix {
		if err := readVector(tok, f.TexMatrix[i][:]); err != nil {
			return f, err
		}
	}
	if err := expect(tok, tokenizer.CloseParen); err != nil {
		return f, err
	}

	shader, err := readShader(tok)
	if err != nil {
		return f, err
	}
	f.Shader = shader

	for i := range f.Flags {
		v, err := readInt(tok)
		if err != nil {
			return f, err
		}
		f.Flags[i] = v
	}
	return f, nil
}
