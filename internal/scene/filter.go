package scene

import (
	"context"

	"mapreader/internal/game"
	"mapreader/internal/parser"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// FilterSink drops entities before they reach the wrapped sink. It counts
// the entities it is offered, so one FilterSink serves a single read.
type FilterSink struct {
	next    parser.Sink
	discard map[string]struct{}
	rng     *game.EntityRange
	logger  zerolog.Logger

	index   int
	dropped int
}

// NewFilterSink wraps next with the debug filters of dbg.
func NewFilterSink(next parser.Sink, dbg game.Debug) *FilterSink {
	discard := make(map[string]struct{}, len(dbg.DiscardEntityClasses))
	for _, c := range dbg.DiscardEntityClasses {
		discard[c] = struct{}{}
	}
	return &FilterSink{
		next:    next,
		discard: discard,
		rng:     dbg.EntityRange,
		logger:  log.Logger,
	}
}

// WithLogger replaces the logger used for filter decisions.
func (f *FilterSink) WithLogger(l zerolog.Logger) *FilterSink {
	f.logger = l
	return f
}

// Active reports whether any filter is configured.
func (f *FilterSink) Active() bool {
	return len(f.discard) > 0 || f.rng != nil
}

// Dropped returns how many entities were filtered out.
func (f *FilterSink) Dropped() int {
	return f.dropped
}

// AcceptEntity implements parser.Sink.
func (f *FilterSink) AcceptEntity(ctx context.Context, e *parser.Entity) error {
	idx := f.index
	f.index++

	if f.rng != nil && (idx < f.rng.Start || idx > f.rng.End) {
		f.dropped++
		return nil
	}
	if _, ok := f.discard[e.Classname()]; ok {
		f.dropped++
		f.logger.Debug().
			Int("entity", idx).
			Str("classname", e.Classname()).
			Msg("Discarding entity by class")
		return nil
	}
	return f.next.AcceptEntity(ctx, e)
}
