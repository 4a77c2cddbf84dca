// Package parser reads Doom 3 style map files into entities and primitives.
//
// A map starts with "Version <float>", followed by entity blocks:
//
//	Version 2
//	{
//	"classname" "worldspawn"
//	{
//	 brushDef3
//	 { ... }
//	}
//	}
//
// The reader checks the version once, then parses one entity at a time and
// hands each to a Sink. Primitive bodies are parsed by keyword through a
// PrimitiveRegistry. Any malformed input aborts the load with a *FatalError,
// except a primitive found on a non-container entity, which is discarded
// with a warning.
package parser

import (
	"context"
	"fmt"
	"io"

	"mapreader/internal/tokenizer"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Outcome is how a read finished when it did not fail.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeCancelled Outcome = "cancelled"
)

// Result summarizes a read. It is returned even when the read fails.
type Result struct {
	Outcome Outcome
	// Version is the map version found in the header.
	Version float32
	// Entities is the number of entities delivered to the sink.
	Entities int
	// Primitives counts parsed primitives, discarded ones included.
	Primitives int
	Discarded  []DiscardEvent
}

// Reader parses map text. It holds no per-read state, so one Reader may
// serve concurrent reads as long as its collaborators allow it.
type Reader struct {
	version    VersionSource
	classes    ClassResolver
	primitives PrimitiveRegistry
	logger     zerolog.Logger
	observer   Observer
}

// Option configures a Reader.
type Option func(*Reader)

// WithLogger replaces the global zerolog logger.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Reader) { r.logger = l }
}

// WithObserver registers an observer for progress events.
func WithObserver(o Observer) Option {
	return func(r *Reader) {
		if o != nil {
			r.observer = o
		}
	}
}

// NewReader creates a Reader from its collaborators.
func NewReader(version VersionSource, classes ClassResolver, primitives PrimitiveRegistry, opts ...Option) *Reader {
	r := &Reader{
		version:    version,
		classes:    classes,
		primitives: primitives,
		logger:     log.Logger,
		observer:   nopObserver{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Read parses src and delivers every entity to sink in file order.
//
// A fatal error is returned as *FatalError; entities already delivered are
// not rolled back. ctx is checked between entities only: once it is done the
// read stops with OutcomeCancelled and a nil error. The sink receives a
// context that is never cancelled, so an entity in flight is not lost.
func (r *Reader) Read(ctx context.Context, src io.Reader, sink Sink) (*Result, error) {
	tok := tokenizer.New(src)
	res := &Result{Outcome: OutcomeCompleted}

	found, err := CheckVersion(tok, r.version.RequiredVersion())
	res.Version = found
	if err != nil {
		return res, err
	}

	var pc ParseContext
	for {
		if ctx.Err() != nil {
			r.logger.Warn().
				Int("entities", res.Entities).
				Msg("Map loading cancelled")
			res.Outcome = OutcomeCancelled
			return res, nil
		}

		next, err := tok.Peek()
		if err != nil {
			return res, tokenFailure(err, pc)
		}
		if next.Kind == tokenizer.EOF {
			break
		}

		entity, err := r.readEntity(tok, &pc, res)
		if err != nil {
			return res, err
		}

		// A parsed entity is always delivered, even if ctx ended while
		// reading it; the cancellation is reported on the next iteration.
		if err := sink.AcceptEntity(context.WithoutCancel(ctx), entity); err != nil {
			return res, &FatalError{
				Kind:           KindSink,
				EntityIndex:    pc.EntityIndex,
				PrimitiveIndex: NoIndex,
				Err:            err,
			}
		}
		r.observer.EntityParsed(pc, entity)

		res.Entities++
		pc.EntityIndex++
		pc.PrimitiveIndex = 0
	}

	r.logger.Debug().
		Int("entities", res.Entities).
		Int("primitives", res.Primitives).
		Int("discarded", len(res.Discarded)).
		Msg("Map read complete")
	return res, nil
}

// readEntity parses one "{ pair* primitive* }" block.
func (r *Reader) readEntity(tok *tokenizer.Tokenizer, pc *ParseContext, res *Result) (*Entity, error) {
	open, err := tok.Require("{")
	if err != nil {
		return nil, tokenFailure(err, *pc)
	}
	if open.Kind != tokenizer.OpenBrace {
		return nil, unexpectedToken(open, "{", *pc)
	}

	pc.PrimitiveIndex = 0
	b := newEntityBuilder(r.classes)

	for {
		t, err := tok.Require("key, primitive or end of entity")
		if err != nil {
			return nil, tokenFailure(err, *pc)
		}

		switch t.Kind {
		case tokenizer.OpenBrace:
			entity, err := b.materialize(true, *pc)
			if err != nil {
				return nil, err
			}

			prim, err := r.parsePrimitive(tok, *pc)
			if err != nil {
				return nil, err
			}
			if outcome, ev := r.attach(entity, prim, *pc); outcome == Discarded {
				res.Discarded = append(res.Discarded, *ev)
			}

			pc.PrimitiveIndex++
			res.Primitives++

		case tokenizer.CloseBrace:
			return b.materialize(false, *pc)

		default:
			value, err := tok.Require(fmt.Sprintf("value for key %q", t.Text))
			if err != nil {
				return nil, tokenFailure(err, *pc)
			}
			// A brace here means the token stream is out of sync.
			if value.IsStructural() {
				return nil, &FatalError{
					Kind:           KindInvalidValue,
					EntityIndex:    pc.EntityIndex,
					PrimitiveIndex: NoIndex,
					Key:            t.Text,
					Value:          value.Text,
				}
			}
			b.add(t.Text, value.Text)
		}
	}
}
