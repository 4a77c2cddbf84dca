// Package scene holds entities read from a map in memory and the debug
// filters applied before entities reach a scene.
package scene

import (
	"context"
	"sync"

	"mapreader/internal/parser"
)

// Scene is an in-memory parser.Sink.
type Scene struct {
	mu       sync.RWMutex
	entities []*parser.Entity
	byName   map[string]*parser.Entity
}

// New creates an empty scene.
func New() *Scene {
	return &Scene{byName: make(map[string]*parser.Entity)}
}

// AcceptEntity implements parser.Sink.
func (s *Scene) AcceptEntity(_ context.Context, e *parser.Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entities = append(s.entities, e)
	if name, ok := e.Lookup("name"); ok && name != "" {
		s.byName[name] = e
	}
	return nil
}

// Entities returns the entities in insertion order.
func (s *Scene) Entities() []*parser.Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*parser.Entity, len(s.entities))
	copy(out, s.entities)
	return out
}

// Len returns the number of entities.
func (s *Scene) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entities)
}

// Worldspawn returns the first worldspawn entity.
func (s *Scene) Worldspawn() (*parser.Entity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.entities {
		if e.Classname() == "worldspawn" {
			return e, true
		}
	}
	return nil, false
}

// ByName returns the entity whose "name" key equals name.
func (s *Scene) ByName(name string) (*parser.Entity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.byName[name]
	return e, ok
}

// ByClass returns every entity of the given class, in order.
func (s *Scene) ByClass(classname string) []*parser.Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*parser.Entity
	for _, e := range s.entities {
		if e.Classname() == classname {
			out = append(out, e)
		}
	}
	return out
}

// Stats summarizes a scene.
type Stats struct {
	Entities   int            `json:"entities"`
	Primitives map[string]int `json:"primitives"`
	Classes    map[string]int `json:"classes"`
}

// Stats counts entities per class and primitives per keyword.
func (s *Scene) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{
		Entities:   len(s.entities),
		Primitives: make(map[string]int),
		Classes:    make(map[string]int),
	}
	for _, e := range s.entities {
		st.Classes[e.Classname()]++
		for _, p := range e.Primitives() {
			st.Primitives[p.Keyword()]++
		}
	}
	return st
}
