// Package eclass resolves entity classnames to classes. Classes come from the
// game description; unknown classnames get a synthetic class on first use.
package eclass

import (
	"sort"
	"sync"

	"mapreader/internal/parser"

	"github.com/rs/zerolog/log"
)

// Class is an entity class definition.
type Class struct {
	ClassName   string `yaml:"name" json:"name"`
	Container   bool   `yaml:"container" json:"container"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	// Synthetic is set for classes inserted for unknown classnames.
	Synthetic bool `yaml:"-" json:"synthetic,omitempty"`
}

func (c *Class) Name() string      { return c.ClassName }
func (c *Class) IsContainer() bool { return c.Container }

// Manager holds the known classes. It is safe for concurrent use.
type Manager struct {
	mu      sync.RWMutex
	classes map[string]*Class
}

// NewManager creates a manager seeded with defs. Later duplicates win.
func NewManager(defs []Class) *Manager {
	m := &Manager{classes: make(map[string]*Class, len(defs))}
	for i := range defs {
		c := defs[i]
		m.classes[c.ClassName] = &c
	}
	return m
}

// Find returns the class named name, if known.
func (m *Manager) Find(name string) (*Class, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.classes[name]
	return c, ok
}

// FindOrInsert returns the class named name. An unknown name gets a synthetic
// class that is a container when hasBrushes is set. A synthetic point class
// is replaced by a container class the first time hasBrushes is set for it;
// the old value is left untouched for entities already holding it.
func (m *Manager) FindOrInsert(name string, hasBrushes bool) *Class {
	if c, ok := m.Find(name); ok && !needsUpgrade(c, hasBrushes) {
		return c
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.classes[name]
	switch {
	case !ok:
		log.Warn().Str("classname", name).Bool("container", hasBrushes).Msg("Could not find entity class, inserting synthetic class")
	case needsUpgrade(c, hasBrushes):
		log.Warn().Str("classname", name).Msg("Synthetic entity class has primitives, upgrading to container")
	default:
		return c
	}

	c = &Class{ClassName: name, Container: hasBrushes, Synthetic: true}
	m.classes[name] = c
	return c
}

func needsUpgrade(c *Class, hasBrushes bool) bool {
	return hasBrushes && c.Synthetic && !c.Container
}

// ResolveClass implements parser.ClassResolver.
func (m *Manager) ResolveClass(classname string, hasPrimitives bool) parser.Class {
	return m.FindOrInsert(classname, hasPrimitives)
}

// Names returns all class names, sorted.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.classes))
	for name := range m.classes {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
