package parser

import (
	"context"

	"mapreader/internal/tokenizer"
)

// VersionKeyword is the literal that opens every map file.
const VersionKeyword = "Version"

// KeyValue is one key/value pair as it appeared in the map text.
type KeyValue struct {
	Key   string
	Value string
}

// KeyValueList is an ordered list of pairs. Duplicate keys are preserved.
type KeyValueList []KeyValue

// Primitive is an opaque geometric element (brush, patch) owned by one entity.
type Primitive interface {
	// Keyword returns the primitive-type keyword it was parsed from, e.g. "brushDef3".
	Keyword() string
}

// PrimitiveParser consumes one primitive body. The keyword and the
// surrounding braces are consumed by the reader.
type PrimitiveParser interface {
	Parse(tok *tokenizer.Tokenizer) (Primitive, error)
}

// PrimitiveRegistry maps primitive-type keywords to parsers.
type PrimitiveRegistry interface {
	Lookup(keyword string) (PrimitiveParser, bool)
}

// Class is the behavioral template an entity is created from.
type Class interface {
	Name() string
	// IsContainer reports whether entities of this class may own primitives.
	IsContainer() bool
}

// ClassResolver finds the class for a classname. Unknown classnames must
// resolve to a synthetic class rather than fail; hasPrimitives lets the
// resolver pick a brush-capable variant.
type ClassResolver interface {
	ResolveClass(classname string, hasPrimitives bool) Class
}

// VersionSource supplies the map version the current game requires.
type VersionSource interface {
	RequiredVersion() float32
}

// Sink receives completed entities in source order.
type Sink interface {
	AcceptEntity(ctx context.Context, e *Entity) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, e *Entity) error

func (f SinkFunc) AcceptEntity(ctx context.Context, e *Entity) error {
	return f(ctx, e)
}

// ParseContext holds the diagnostic counters of a running read.
type ParseContext struct {
	// EntityIndex is the 0-based index of the entity being read.
	EntityIndex int
	// PrimitiveIndex counts primitives of the current entity, discarded ones included.
	PrimitiveIndex int
}

// DiscardEvent describes a primitive dropped because its entity is not a container.
type DiscardEvent struct {
	EntityIndex    int
	PrimitiveIndex int
	Classname      string
	Keyword        string
}

// Observer receives progress events from a read. Implementations must be
// cheap; they run on the parsing goroutine.
type Observer interface {
	EntityParsed(pc ParseContext, e *Entity)
	PrimitiveParsed(pc ParseContext, keyword string)
	PrimitiveDiscarded(ev DiscardEvent)
}

type nopObserver struct{}

func (nopObserver) EntityParsed(ParseContext, *Entity)   {}
func (nopObserver) PrimitiveParsed(ParseContext, string) {}
func (nopObserver) PrimitiveDiscarded(DiscardEvent)      {}
