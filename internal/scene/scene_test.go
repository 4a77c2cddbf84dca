package scene

import (
	"context"
	"strings"
	"testing"

	"mapreader/internal/game"
	"mapreader/internal/parser"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMap = `Version 2
{
"classname" "worldspawn"
{
brushDef3
{
( 0 0 1 -64 ) ( ( 0.0078125 0 0 ) ( 0 0.0078125 0 ) ) "textures/base_floor/a" 0 0 0
}
}
}
{
"classname" "light"
"name" "light_1"
"origin" "0 0 64"
}
{
"classname" "speaker"
"name" "speaker_1"
}
{
"classname" "light"
"name" "light_2"
}
`

func readInto(t *testing.T, sink parser.Sink) {
	t.Helper()
	g := game.Default()
	r := parser.NewReader(g, g.Classes(), g.Primitives(), parser.WithLogger(zerolog.Nop()))
	_, err := r.Read(context.Background(), strings.NewReader(testMap), sink)
	require.NoError(t, err)
}

func TestScene_Queries(t *testing.T) {
	s := New()
	readInto(t, s)

	assert.Equal(t, 4, s.Len())

	ws, ok := s.Worldspawn()
	require.True(t, ok)
	assert.Len(t, ws.Primitives(), 1)

	light, ok := s.ByName("light_1")
	require.True(t, ok)
	assert.Equal(t, "0 0 64", light.KeyValue("origin"))

	_, ok = s.ByName("missing")
	assert.False(t, ok)

	assert.Len(t, s.ByClass("light"), 2)

	st := s.Stats()
	assert.Equal(t, 4, st.Entities)
	assert.Equal(t, 1, st.Primitives["brushDef3"])
	assert.Equal(t, 2, st.Classes["light"])
}

func TestFilterSink_DiscardClasses(t *testing.T) {
	s := New()
	f := NewFilterSink(s, game.Debug{DiscardEntityClasses: []string{"speaker"}}).WithLogger(zerolog.Nop())
	require.True(t, f.Active())

	readInto(t, f)

	assert.Equal(t, 3, s.Len())
	assert.Equal(t, 1, f.Dropped())
	_, ok := s.ByName("speaker_1")
	assert.False(t, ok)
}

func TestFilterSink_EntityRange(t *testing.T) {
	s := New()
	f := NewFilterSink(s, game.Debug{EntityRange: &game.EntityRange{Start: 1, End: 2}})

	readInto(t, f)

	require.Equal(t, 2, s.Len())
	names := []string{s.Entities()[0].KeyValue("name"), s.Entities()[1].KeyValue("name")}
	assert.Equal(t, []string{"light_1", "speaker_1"}, names)
	assert.Equal(t, 2, f.Dropped())
}

func TestFilterSink_Inactive(t *testing.T) {
	s := New()
	f := NewFilterSink(s, game.Debug{})
	assert.False(t, f.Active())

	readInto(t, f)
	assert.Equal(t, 4, s.Len())
	assert.Zero(t, f.Dropped())
}

func TestTee(t *testing.T) {
	a, b := New(), New()
	readInto(t, Tee(a, b))
	assert.Equal(t, 4, a.Len())
	assert.Equal(t, 4, b.Len())
}

func TestTee_StopsOnError(t *testing.T) {
	a, b := New(), New()
	failing := parser.SinkFunc(func(context.Context, *parser.Entity) error {
		return assert.AnError
	})

	g := game.Default()
	r := parser.NewReader(g, g.Classes(), g.Primitives(), parser.WithLogger(zerolog.Nop()))
	_, err := r.Read(context.Background(), strings.NewReader(testMap), Tee(a, failing, b))

	assert.True(t, parser.IsFatal(err, parser.KindSink))
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 1, a.Len())
	assert.Zero(t, b.Len())
}
