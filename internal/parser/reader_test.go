package parser_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"mapreader/internal/eclass"
	"mapreader/internal/parser"
	"mapreader/internal/primitive"
	"mapreader/internal/tokenizer"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedVersion float32

func (v fixedVersion) RequiredVersion() float32 { return float32(v) }

// collectSink records delivered entities.
type collectSink struct {
	entities []*parser.Entity
}

func (s *collectSink) AcceptEntity(_ context.Context, e *parser.Entity) error {
	s.entities = append(s.entities, e)
	return nil
}

// countingObserver records observer callbacks.
type countingObserver struct {
	entities   int
	primitives []string
	discards   []parser.DiscardEvent
}

func (o *countingObserver) EntityParsed(parser.ParseContext, *parser.Entity) { o.entities++ }
func (o *countingObserver) PrimitiveParsed(_ parser.ParseContext, kw string) {
	o.primitives = append(o.primitives, kw)
}
func (o *countingObserver) PrimitiveDiscarded(ev parser.DiscardEvent) {
	o.discards = append(o.discards, ev)
}

const face = `( 0 0 1 0 ) ( ( 0.0078125 0 0 ) ( 0 0.0078125 0 ) ) "textures/common/caulk" 0 0 0`

func brush(faces ...string) string {
	if len(faces) == 0 {
		faces = []string{face}
	}
	return "{\nbrushDef3\n{\n" + strings.Join(faces, "\n") + "\n}\n}\n"
}

func newTestReader(opts ...parser.Option) *parser.Reader {
	classes := eclass.NewManager([]eclass.Class{
		{ClassName: "worldspawn", Container: true},
		{ClassName: "func_static", Container: true},
		{ClassName: "light"},
	})
	opts = append([]parser.Option{parser.WithLogger(zerolog.Nop())}, opts...)
	return parser.NewReader(fixedVersion(2.0), classes, primitive.DefaultRegistry(), opts...)
}

func read(t *testing.T, r *parser.Reader, input string) (*collectSink, *parser.Result, error) {
	t.Helper()
	sink := &collectSink{}
	res, err := r.Read(context.Background(), strings.NewReader(input), sink)
	require.NotNil(t, res)
	return sink, res, err
}

func TestRead_WorldspawnOnly(t *testing.T) {
	sink, res, err := read(t, newTestReader(), "Version 2.0\n{\n\"classname\" \"worldspawn\"\n}\n")
	require.NoError(t, err)

	assert.Equal(t, parser.OutcomeCompleted, res.Outcome)
	assert.Equal(t, float32(2), res.Version)
	assert.Equal(t, 1, res.Entities)
	require.Len(t, sink.entities, 1)
	assert.Equal(t, "worldspawn", sink.entities[0].Classname())
	assert.Empty(t, sink.entities[0].Primitives())
}

func TestRead_EmptyMap(t *testing.T) {
	sink, res, err := read(t, newTestReader(), "Version 2\n// nothing here\n")
	require.NoError(t, err)
	assert.Equal(t, 0, res.Entities)
	assert.Empty(t, sink.entities)
}

func TestRead_BrushOnWorldspawn(t *testing.T) {
	input := "Version 2.0\n{\n\"classname\" \"worldspawn\"\n" + brush() + "}\n"
	sink, res, err := read(t, newTestReader(), input)
	require.NoError(t, err)

	require.Len(t, sink.entities, 1)
	prims := sink.entities[0].Primitives()
	require.Len(t, prims, 1)
	assert.Equal(t, primitive.KeywordBrushDef3, prims[0].Keyword())
	assert.Equal(t, 1, res.Primitives)
	assert.Empty(t, res.Discarded)
}

func TestRead_BrushOnNonContainerIsDiscarded(t *testing.T) {
	var logs bytes.Buffer
	obs := &countingObserver{}
	r := newTestReader(parser.WithLogger(zerolog.New(&logs)), parser.WithObserver(obs))

	input := "Version 2.0\n{\n\"classname\" \"light\"\n" + brush() + "}\n"
	sink, res, err := read(t, r, input)
	require.NoError(t, err, "a discarded primitive must not abort the load")

	require.Len(t, sink.entities, 1)
	assert.Empty(t, sink.entities[0].Primitives())
	assert.False(t, sink.entities[0].IsContainer())

	require.Len(t, res.Discarded, 1)
	assert.Equal(t, parser.DiscardEvent{
		EntityIndex:    0,
		PrimitiveIndex: 0,
		Classname:      "light",
		Keyword:        primitive.KeywordBrushDef3,
	}, res.Discarded[0])
	assert.Equal(t, 1, res.Primitives, "discarded primitives still count")

	assert.Equal(t, res.Discarded, obs.discards)
	assert.Contains(t, logs.String(), `"level":"warn"`)
	assert.Contains(t, logs.String(), `"classname":"light"`)
}

func TestRead_VersionMismatch(t *testing.T) {
	sink, res, err := read(t, newTestReader(), "Version 1.9\n{\n\"classname\" \"worldspawn\"\n}\n")
	require.Error(t, err)

	var fe *parser.FatalError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, parser.KindVersionMismatch, fe.Kind)
	assert.Equal(t, float32(1.9), fe.Found)
	assert.Equal(t, float32(2.0), fe.Required)
	assert.Equal(t, parser.NoIndex, fe.EntityIndex)
	assert.Empty(t, sink.entities)
	assert.Equal(t, 0, res.Entities)
	assert.Contains(t, err.Error(), "incorrect map version: required 2, found 1.9")
}

func TestRead_VersionIsExact(t *testing.T) {
	_, _, err := read(t, newTestReader(), "Version 2.00001\n")
	assert.True(t, parser.IsFatal(err, parser.KindVersionMismatch))

	_, _, err = read(t, newTestReader(), "Version 2.000\n")
	assert.NoError(t, err)
}

func TestRead_VersionSyntax(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"missing keyword", "{\n\"classname\" \"worldspawn\"\n}\n"},
		{"not a number", "Version two\n"},
		{"no number", "Version"},
		{"quoted keyword", "\"Version\" 2\n"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink, _, err := read(t, newTestReader(), tt.input)
			assert.True(t, parser.IsFatal(err, parser.KindVersionSyntax), "got %v", err)
			assert.Empty(t, sink.entities)
		})
	}
}

func TestRead_LastClassnameWins(t *testing.T) {
	input := "Version 2\n{\n\"classname\" \"a\"\n\"origin\" \"0 0 0\"\n\"classname\" \"b\"\n}\n"
	sink, _, err := read(t, newTestReader(), input)
	require.NoError(t, err)

	require.Len(t, sink.entities, 1)
	e := sink.entities[0]
	assert.Equal(t, "b", e.Classname())
	assert.Equal(t, "b", e.KeyValue("classname"))
	assert.Equal(t, parser.KeyValueList{
		{Key: "classname", Value: "b"},
		{Key: "origin", Value: "0 0 0"},
	}, e.KeyValues())
	assert.Len(t, e.RawPairs(), 3)
}

func TestRead_UnknownPrimitive(t *testing.T) {
	input := "Version 2\n" +
		"{\n\"classname\" \"worldspawn\"\n}\n" +
		"{\n\"classname\" \"func_static\"\n{\nbogusType\n}\n}\n"
	sink, res, err := read(t, newTestReader(), input)
	require.Error(t, err)

	var fe *parser.FatalError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, parser.KindUnknownPrimitive, fe.Kind)
	assert.Equal(t, "bogusType", fe.Keyword)
	assert.Equal(t, 1, fe.EntityIndex)
	assert.Equal(t, 0, fe.PrimitiveIndex)
	assert.Contains(t, err.Error(), "failed parsing entity 1: unknown primitive type: bogusType")

	// The first entity was already delivered; the failing one never is.
	require.Len(t, sink.entities, 1)
	assert.Equal(t, "worldspawn", sink.entities[0].Classname())
	assert.Equal(t, 1, res.Entities)
}

func TestRead_PrimitiveParseErrorIsFatal(t *testing.T) {
	input := "Version 2\n{\n\"classname\" \"worldspawn\"\n" +
		brush() +
		"{\nbrushDef3\n{\n( 0 0 1 ) ( ( 1 0 0 ) ( 0 1 0 ) ) \"s\" 0 0 0\n}\n}\n}\n"
	sink, _, err := read(t, newTestReader(), input)
	require.Error(t, err)

	var fe *parser.FatalError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, parser.KindPrimitiveParse, fe.Kind)
	assert.Equal(t, 1, fe.PrimitiveIndex)
	assert.Equal(t, primitive.KeywordBrushDef3, fe.Keyword)

	var perr *tokenizer.ParseError
	assert.ErrorAs(t, err, &perr, "the cause stays reachable")
	assert.Empty(t, sink.entities)
}

func TestRead_MissingClassname(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"closing brace", "Version 2\n{\n\"origin\" \"0 0 0\"\n}\n"},
		{"first primitive", "Version 2\n{\n\"origin\" \"0 0 0\"\n" + brush() + "}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink, _, err := read(t, newTestReader(), tt.input)
			assert.True(t, parser.IsFatal(err, parser.KindMissingClassname), "got %v", err)
			assert.Empty(t, sink.entities)
		})
	}
}

func TestRead_BraceAsValue(t *testing.T) {
	input := "Version 2\n{\n\"classname\" \"worldspawn\"\n\"origin\"\n{\n}\n"
	_, _, err := read(t, newTestReader(), input)

	var fe *parser.FatalError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, parser.KindInvalidValue, fe.Kind)
	assert.Equal(t, "origin", fe.Key)
	assert.Equal(t, "{", fe.Value)
}

func TestRead_QuotedBraceIsAValue(t *testing.T) {
	input := "Version 2\n{\n\"classname\" \"worldspawn\"\n\"message\" \"}\"\n}\n"
	sink, _, err := read(t, newTestReader(), input)
	require.NoError(t, err)
	assert.Equal(t, "}", sink.entities[0].KeyValue("message"))
}

func TestRead_UnexpectedEnd(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"inside entity", "Version 2\n{\n\"classname\" \"worldspawn\"\n"},
		{"missing value", "Version 2\n{\n\"classname\""},
		{"inside primitive", "Version 2\n{\n\"classname\" \"worldspawn\"\n{\n"},
		{"after primitive body", "Version 2\n{\n\"classname\" \"worldspawn\"\n{\nbrushDef3\n{\n" + face + "\n}\n"},
		{"unterminated quote", "Version 2\n{\n\"classname\" \"worldspawn\n}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := read(t, newTestReader(), tt.input)
			require.Error(t, err)
			assert.ErrorIs(t, err, tokenizer.ErrUnexpectedEnd)
			var fe *parser.FatalError
			require.ErrorAs(t, err, &fe)
			assert.Contains(t, []parser.FatalKind{parser.KindUnexpectedEnd, parser.KindPrimitiveParse}, fe.Kind)
		})
	}
}

func TestRead_EntityMustStartWithBrace(t *testing.T) {
	_, _, err := read(t, newTestReader(), "Version 2\n\"classname\" \"worldspawn\"\n")
	assert.True(t, parser.IsFatal(err, parser.KindSyntax), "got %v", err)
}

func TestRead_PrimitiveWithoutClosingBrace(t *testing.T) {
	input := "Version 2\n{\n\"classname\" \"worldspawn\"\n{\nbrushDef3\n{\n" + face + "\n}\n\"key\" \"value\"\n}\n}\n"
	_, _, err := read(t, newTestReader(), input)
	assert.True(t, parser.IsFatal(err, parser.KindSyntax), "got %v", err)
}

func TestRead_MultipleEntitiesInOrder(t *testing.T) {
	obs := &countingObserver{}
	input := "Version 2\n" +
		"// entity 0\n{\n\"classname\" \"worldspawn\"\n" + brush() + brush(face, face) + "}\n" +
		"// entity 1\n{\n\"classname\" \"light\"\n\"origin\" \"64 0 32\"\n\"light_radius\" \"300 300 300\"\n}\n" +
		"// entity 2\n{\n\"classname\" \"func_static\"\n\"name\" \"door_frame\"\n" + brush() + "}\n"

	sink, res, err := read(t, newTestReader(parser.WithObserver(obs)), input)
	require.NoError(t, err)

	require.Len(t, sink.entities, 3)
	assert.Equal(t, []string{"worldspawn", "light", "func_static"}, []string{
		sink.entities[0].Classname(), sink.entities[1].Classname(), sink.entities[2].Classname(),
	})
	assert.Len(t, sink.entities[0].Primitives(), 2)
	assert.Equal(t, parser.KeyValueList{
		{Key: "classname", Value: "light"},
		{Key: "origin", Value: "64 0 32"},
		{Key: "light_radius", Value: "300 300 300"},
	}, sink.entities[1].KeyValues())

	assert.Equal(t, 3, res.Entities)
	assert.Equal(t, 3, res.Primitives)
	assert.Equal(t, 3, obs.entities)
	assert.Len(t, obs.primitives, 3)
}

func TestRead_PrimitiveIndexResetsPerEntity(t *testing.T) {
	input := "Version 2\n" +
		"{\n\"classname\" \"worldspawn\"\n" + brush() + brush() + "}\n" +
		"{\n\"classname\" \"light\"\n" + brush() + brush() + "}\n"
	_, res, err := read(t, newTestReader(), input)
	require.NoError(t, err)

	require.Len(t, res.Discarded, 2)
	assert.Equal(t, 1, res.Discarded[0].EntityIndex)
	assert.Equal(t, 0, res.Discarded[0].PrimitiveIndex)
	assert.Equal(t, 1, res.Discarded[1].PrimitiveIndex)
}

func TestRead_KeysAfterPrimitivesApplyToEntity(t *testing.T) {
	input := "Version 2\n{\n\"classname\" \"worldspawn\"\n" + brush() + "\"late\" \"1\"\n}\n"
	sink, _, err := read(t, newTestReader(), input)
	require.NoError(t, err)
	assert.Equal(t, "1", sink.entities[0].KeyValue("late"))
}

func TestRead_UnknownClassWithPrimitivesIsContainer(t *testing.T) {
	input := "Version 2\n" +
		"{\n\"classname\" \"func_custom\"\n" + brush() + "}\n" +
		"{\n\"classname\" \"info_custom\"\n}\n"
	sink, res, err := read(t, newTestReader(), input)
	require.NoError(t, err)

	require.Len(t, sink.entities, 2)
	assert.True(t, sink.entities[0].IsContainer())
	assert.Len(t, sink.entities[0].Primitives(), 1)
	assert.False(t, sink.entities[1].IsContainer())
	assert.Empty(t, res.Discarded)
}

func TestRead_UnknownClassUpgradedByLaterBrush(t *testing.T) {
	input := "Version 2\n" +
		"{\n\"classname\" \"worldspawn\"\n}\n" +
		"{\n\"classname\" \"foo\"\n}\n" +
		"{\n\"classname\" \"foo\"\n" + brush() + "}\n"
	sink, res, err := read(t, newTestReader(), input)
	require.NoError(t, err)

	require.Len(t, sink.entities, 3)
	assert.False(t, sink.entities[1].IsContainer())
	assert.True(t, sink.entities[2].IsContainer())
	assert.Len(t, sink.entities[2].Primitives(), 1)
	assert.Empty(t, res.Discarded)
}

func TestRead_Patch(t *testing.T) {
	input := "Version 2\n{\n\"classname\" \"worldspawn\"\n{\npatchDef2\n{\n\"textures/x\"\n( 1 1 0 0 0 )\n(\n( ( 0 0 0 0 0 ) )\n)\n}\n}\n}\n"
	sink, _, err := read(t, newTestReader(), input)
	require.NoError(t, err)
	require.Len(t, sink.entities[0].Primitives(), 1)
	assert.Equal(t, primitive.KeywordPatchDef2, sink.entities[0].Primitives()[0].Keyword())
}

func TestRead_Idempotent(t *testing.T) {
	input := "Version 2\n" +
		"{\n\"classname\" \"worldspawn\"\n" + brush(face, face) + "}\n" +
		"{\n\"classname\" \"light\"\n\"origin\" \"1 2 3\"\n}\n"

	first, _, err := read(t, newTestReader(), input)
	require.NoError(t, err)
	second, _, err := read(t, newTestReader(), input)
	require.NoError(t, err)

	assert.Equal(t, first.entities, second.entities)
}

func TestRead_CancelledBetweenEntities(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var delivered []*parser.Entity
	sink := parser.SinkFunc(func(_ context.Context, e *parser.Entity) error {
		delivered = append(delivered, e)
		cancel()
		return nil
	})

	input := "Version 2\n{\n\"classname\" \"worldspawn\"\n}\n{\n\"classname\" \"light\"\n}\n"
	res, err := newTestReader().Read(ctx, strings.NewReader(input), sink)
	require.NoError(t, err)

	assert.Equal(t, parser.OutcomeCancelled, res.Outcome)
	assert.Equal(t, 1, res.Entities)
	assert.Len(t, delivered, 1, "delivered entities are kept")
}

// cancellingParser cancels the read while a primitive is being parsed.
type cancellingParser struct {
	next   parser.PrimitiveParser
	cancel context.CancelFunc
}

func (p cancellingParser) Parse(tok *tokenizer.Tokenizer) (parser.Primitive, error) {
	p.cancel()
	return p.next.Parse(tok)
}

func TestRead_CancelledInsideEntity(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry := primitive.NewRegistry()
	registry.Register(primitive.KeywordBrushDef3, cancellingParser{next: primitive.NewBrushDef3Parser(), cancel: cancel})
	r := parser.NewReader(fixedVersion(2.0), eclass.NewManager([]eclass.Class{
		{ClassName: "worldspawn", Container: true},
	}), registry, parser.WithLogger(zerolog.Nop()))

	var delivered []*parser.Entity
	sink := parser.SinkFunc(func(ctx context.Context, e *parser.Entity) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		delivered = append(delivered, e)
		return nil
	})

	input := "Version 2\n{\n\"classname\" \"worldspawn\"\n" + brush() + "}\n{\n\"classname\" \"worldspawn\"\n}\n"
	res, err := r.Read(ctx, strings.NewReader(input), sink)
	require.NoError(t, err)

	assert.Equal(t, parser.OutcomeCancelled, res.Outcome)
	assert.Equal(t, 1, res.Entities)
	require.Len(t, delivered, 1)
	assert.Len(t, delivered[0].Primitives(), 1)
}

func TestRead_SinkErrorIsFatal(t *testing.T) {
	boom := errors.New("scene locked")
	sink := parser.SinkFunc(func(context.Context, *parser.Entity) error { return boom })

	input := "Version 2\n{\n\"classname\" \"worldspawn\"\n}\n"
	res, err := newTestReader().Read(context.Background(), strings.NewReader(input), sink)

	assert.True(t, parser.IsFatal(err, parser.KindSink))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, res.Entities)
}
