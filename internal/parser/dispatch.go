package parser

import (
	"errors"

	"mapreader/internal/tokenizer"
)

// AttachOutcome tells whether a parsed primitive ended up on its entity.
type AttachOutcome int

const (
	Attached AttachOutcome = iota
	Discarded
)

func (o AttachOutcome) String() string {
	if o == Discarded {
		return "discarded"
	}
	return "attached"
}

var errNilPrimitive = errors.New("parser returned no primitive")

// parsePrimitive reads the keyword after a primitive's opening brace, runs
// the registered parser and consumes the closing brace. Every failure here
// aborts the load.
func (r *Reader) parsePrimitive(tok *tokenizer.Tokenizer, pc ParseContext) (Primitive, error) {
	kw, err := tok.Require("primitive type")
	if err != nil {
		return nil, tokenFailure(err, pc)
	}

	parser, ok := r.primitives.Lookup(kw.Text)
	if !ok || kw.Kind != tokenizer.Word {
		return nil, &FatalError{
			Kind:           KindUnknownPrimitive,
			EntityIndex:    pc.EntityIndex,
			PrimitiveIndex: pc.PrimitiveIndex,
			Keyword:        kw.Text,
		}
	}

	prim, err := parser.Parse(tok)
	if err == nil && prim == nil {
		err = errNilPrimitive
	}
	if err != nil {
		return nil, &FatalError{
			Kind:           KindPrimitiveParse,
			EntityIndex:    pc.EntityIndex,
			PrimitiveIndex: pc.PrimitiveIndex,
			Keyword:        kw.Text,
			Err:            err,
		}
	}

	closing, err := tok.Require("closing brace of primitive")
	if err != nil {
		return nil, tokenFailure(err, pc)
	}
	if closing.Kind != tokenizer.CloseBrace {
		return nil, unexpectedToken(closing, "}", pc)
	}

	r.observer.PrimitiveParsed(pc, kw.Text)
	return prim, nil
}

// attach adds prim to e. A non-container entity drops the primitive with a
// warning; this is the only failure the reader recovers from.
func (r *Reader) attach(e *Entity, prim Primitive, pc ParseContext) (AttachOutcome, *DiscardEvent) {
	err := e.AddPrimitive(prim)
	if err == nil {
		return Attached, nil
	}

	ev := &DiscardEvent{
		EntityIndex:    pc.EntityIndex,
		PrimitiveIndex: pc.PrimitiveIndex,
		Classname:      e.Classname(),
		Keyword:        prim.Keyword(),
	}
	r.logger.Warn().
		Int("entity", ev.EntityIndex).
		Int("primitive", ev.PrimitiveIndex).
		Str("classname", ev.Classname).
		Str("type", ev.Keyword).
		Msg("Entity does not accept primitives, discarding")
	r.observer.PrimitiveDiscarded(*ev)

	return Discarded, ev
}
