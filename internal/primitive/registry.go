// Package primitive holds the keyword-dispatched parsers for map primitives
// (brushes and patches) and the registry the map reader looks them up in.
package primitive

import (
	"sort"

	"mapreader/internal/parser"
)

// Registry maps primitive-type keywords to parsers. Register everything
// before the registry is shared; lookups are not synchronized.
type Registry struct {
	parsers map[string]parser.PrimitiveParser
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[string]parser.PrimitiveParser)}
}

// DefaultRegistry returns a registry with the Doom 3 primitive formats.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(KeywordBrushDef3, NewBrushDef3Parser())
	r.Register(KeywordPatchDef2, NewPatchDef2Parser())
	r.Register(KeywordPatchDef3, NewPatchDef3Parser())
	return r
}

// Register adds or replaces the parser for keyword.
func (r *Registry) Register(keyword string, p parser.PrimitiveParser) {
	r.parsers[keyword] = p
}

// Lookup returns the parser registered for keyword.
func (r *Registry) Lookup(keyword string) (parser.PrimitiveParser, bool) {
	p, ok := r.parsers[keyword]
	return p, ok
}

// Keywords returns the registered keywords, sorted.
func (r *Registry) Keywords() []string {
	out := make([]string, 0, len(r.parsers))
	for k := range r.parsers {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Restrict returns a registry holding only the given keywords. Unknown
// keywords are ignored.
func (r *Registry) Restrict(keywords []string) *Registry {
	out := NewRegistry()
	for _, k := range keywords {
		if p, ok := r.parsers[k]; ok {
			out.parsers[k] = p
		}
	}
	return out
}
