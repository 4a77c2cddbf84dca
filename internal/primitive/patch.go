package primitive

import (
	"fmt"

	"mapreader/internal/parser"
	"mapreader/internal/tokenizer"
)

const (
	KeywordPatchDef2 = "patchDef2"
	// KeywordPatchDef3 patches carry fixed subdivisions.
	KeywordPatchDef3 = "patchDef3"
)

// maxPatchDimension bounds control-point grids; real patches stay far below it.
const maxPatchDimension = 99

// ControlPoint is a patch vertex with texture coordinates.
type ControlPoint struct {
	Position [3]float64 `json:"position"`
	TexCoord [2]float64 `json:"tex_coord"`
}

// Patch is a bezier patch mesh.
type Patch struct {
	Type   string `json:"type"`
	Shader string `json:"shader"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	// SubdivX and SubdivY are only set for patchDef3.
	SubdivX int `json:"subdiv_x,omitempty"`
	SubdivY int `json:"subdiv_y,omitempty"`
	// Points is indexed [column][row], Width columns of Height points.
	Points [][]ControlPoint `json:"points"`
}

func (p *Patch) Keyword() string { return p.Type }

// PatchParser parses patchDef2 and patchDef3 bodies:
//
//	{
//	 "shader"
//	 ( w h 0 0 0 )            // patchDef3: ( w h sx sy 0 0 0 )
//	 (
//	  ( ( x y z s t ) ... )
//	  ...
//	 )
//	}
type PatchParser struct {
	fixedSubdivisions bool
}

// NewPatchDef2Parser creates a parser for patchDef2.
func NewPatchDef2Parser() *PatchParser { return &PatchParser{} }

// NewPatchDef3Parser creates a parser for patchDef3.
func NewPatchDef3Parser() *PatchParser { return &PatchParser{fixedSubdivisions: true} }

func (p *PatchParser) keyword() string {
	if p.fixedSubdivisions {
		return KeywordPatchDef3
	}
	return KeywordPatchDef2
}

func (p *PatchParser) Parse(tok *tokenizer.Tokenizer) (parser.Primitive, error) {
	if err := expect(tok, tokenizer.OpenBrace); err != nil {
		return nil, err
	}

	shader, err := readShader(tok)
	if err != nil {
		return nil, err
	}
	patch := &Patch{Type: p.keyword(), Shader: shader}

	params := make([]float64, 5)
	if p.fixedSubdivisions {
		params = make([]float64, 7)
	}
	if err := readVector(tok, params); err != nil {
		return nil, err
	}
	patch.Width, patch.Height = int(params[0]), int(params[1])
	if p.fixedSubdivisions {
		patch.SubdivX, patch.SubdivY = int(params[2]), int(params[3])
	}
	if patch.Width < 1 || patch.Height < 1 || patch.Width > maxPatchDimension || patch.Height > maxPatchDimension {
		return nil, fmt.Errorf("invalid patch dimensions %dx%d", patch.Width, patch.Height)
	}

	if err := expect(tok, tokenizer.OpenParen); err != nil {
		return nil, err
	}
	patch.Points = make([][]ControlPoint, patch.Width)
	for col := range patch.Points {
		if err := expect(tok, tokenizer.OpenParen); err != nil {
			return nil, err
		}
		patch.Points[col] = make([]ControlPoint, patch.Height)
		for row := range patch.Points[col] {
			var v [5]float64
			if err := readVector(tok, v[:]); err != nil {
				return nil, err
			}
			patch.Points[col][row] = ControlPoint{
				Position: [3]float64{v[0], v[1], v[2]},
				TexCoord: [2]float64{v[3], v[4]},
			}
		}
		if err := expect(tok, tokenizer.CloseParen); err != nil {
			return nil, err
		}
	}
	if err := expect(tok, tokenizer.CloseParen); err != nil {
		return nil, err
	}

	if err := expect(tok, tokenizer.CloseBrace); err != nil {
		return nil, err
	}
	return patch, nil
}
