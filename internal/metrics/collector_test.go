package metrics

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mapreader/internal/game"
	"mapreader/internal/parser"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const brushBlock = `{
brushDef3
{
( 0 0 1 -64 ) ( ( 0.0078125 0 0 ) ( 0 0.0078125 0 ) ) "textures/common/caulk" 0 0 0
}
}
`

func TestCollector_ObservesReads(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())
	g := game.Default()
	r := parser.NewReader(g, g.Classes(), g.Primitives(),
		parser.WithLogger(zerolog.Nop()),
		parser.WithObserver(c),
	)

	input := "Version 2\n{\n\"classname\" \"worldspawn\"\n" + brushBlock + "}\n" +
		"{\n\"classname\" \"light\"\n" + brushBlock + "}\n"

	start := time.Now()
	res, err := r.Read(context.Background(), strings.NewReader(input), parser.SinkFunc(func(context.Context, *parser.Entity) error {
		return nil
	}))
	require.NoError(t, err)
	c.RecordLoad(res, err, time.Since(start))

	assert.Equal(t, 2.0, testutil.ToFloat64(c.entities))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.primitives.WithLabelValues("brushDef3")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.discarded.WithLabelValues("brushDef3")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.loads.WithLabelValues("completed", "")))
}

func TestCollector_RecordLoadFailures(t *testing.T) {
	c := NewCollector(nil)

	c.RecordLoad(&parser.Result{}, &parser.FatalError{Kind: parser.KindVersionMismatch, EntityIndex: parser.NoIndex}, time.Millisecond)
	c.RecordLoad(nil, errors.New("open map: no such file"), 0)
	c.RecordLoad(&parser.Result{Outcome: parser.OutcomeCancelled}, nil, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.loads.WithLabelValues(OutcomeFailed, "version_mismatch")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.loads.WithLabelValues(OutcomeFailed, "")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.loads.WithLabelValues("cancelled", "")))
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector(nil)
	c.EntityParsed(parser.ParseContext{}, nil)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "mapreader_entities_parsed_total 1")
}
