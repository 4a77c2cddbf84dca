package parser

import (
	"errors"
	"fmt"

	"mapreader/internal/tokenizer"
)

// FatalKind categorizes errors that abort a whole map load.
type FatalKind string

const (
	KindVersionSyntax    FatalKind = "version_syntax"    // "Version <float>" header missing or malformed
	KindVersionMismatch  FatalKind = "version_mismatch"  // header version differs from the required one
	KindMissingClassname FatalKind = "missing_classname" // entity without a classname pair
	KindUnknownPrimitive FatalKind = "unknown_primitive" // no parser registered for the keyword
	KindPrimitiveParse   FatalKind = "primitive_parse"   // registered parser failed
	KindInvalidValue     FatalKind = "invalid_value"     // brace where a value was expected
	KindUnexpectedEnd    FatalKind = "unexpected_end"    // stream ended inside a structure
	KindSyntax           FatalKind = "syntax"            // structural token mismatch
	KindSink             FatalKind = "sink"              // the sink rejected an entity
)

// NoIndex marks an index that does not apply, e.g. the entity index of a
// version error or the primitive index of a key/value error.
const NoIndex = -1

// FatalError aborts a map load. Entities delivered before it stay delivered.
type FatalError struct {
	Kind           FatalKind
	EntityIndex    int
	PrimitiveIndex int

	// Keyword is set for primitive errors.
	Keyword string
	// Key and Value are set for KindInvalidValue.
	Key   string
	Value string
	// Found and Required are set for KindVersionMismatch.
	Found    float32
	Required float32

	Err error
}

func (e *FatalError) Error() string {
	msg := e.detail()
	if e.EntityIndex == NoIndex {
		return msg
	}
	return fmt.Sprintf("failed parsing entity %d: %s", e.EntityIndex, msg)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

func (e *FatalError) detail() string {
	switch e.Kind {
	case KindVersionSyntax:
		return fmt.Sprintf("unable to parse map version: %v", e.Err)
	case KindVersionMismatch:
		return fmt.Sprintf("incorrect map version: required %g, found %g", e.Required, e.Found)
	case KindMissingClassname:
		return "could not find classname"
	case KindUnknownPrimitive:
		return fmt.Sprintf("unknown primitive type: %s", e.Keyword)
	case KindPrimitiveParse:
		return fmt.Sprintf("primitive #%d (%s): parse error: %v", e.PrimitiveIndex, e.Keyword, e.Err)
	case KindInvalidValue:
		return fmt.Sprintf("parsed invalid value %q for key %q", e.Value, e.Key)
	case KindSink:
		return fmt.Sprintf("entity rejected: %v", e.Err)
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

// IsFatal reports whether err is (or wraps) a *FatalError of the given kind.
func IsFatal(err error, kind FatalKind) bool {
	var fe *FatalError
	return errors.As(err, &fe) && fe.Kind == kind
}

// tokenFailure converts a tokenizer error into a fatal error at pc.
func tokenFailure(err error, pc ParseContext) *FatalError {
	kind := KindSyntax
	if errors.Is(err, tokenizer.ErrUnexpectedEnd) {
		kind = KindUnexpectedEnd
	}
	return &FatalError{
		Kind:           kind,
		EntityIndex:    pc.EntityIndex,
		PrimitiveIndex: NoIndex,
		Err:            err,
	}
}

// unexpectedToken reports a token whose kind does not fit the grammar.
func unexpectedToken(tok tokenizer.Token, expected string, pc ParseContext) *FatalError {
	return tokenFailure(&tokenizer.ParseError{
		Kind:     tokenizer.ErrorKindMismatch,
		Expected: expected,
		Found:    tok.String(),
		Line:     tok.Line,
		Column:   tok.Column,
	}, pc)
}
