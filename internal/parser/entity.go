package parser

import "errors"

// ErrNotContainer is returned when a primitive is added to an entity whose
// class may not own primitives.
var ErrNotContainer = errors.New("entity is not a container")

// Entity is a classed object from the map with its key/values and primitives.
type Entity struct {
	class      Class
	keys       []string
	values     map[string]string
	raw        KeyValueList
	primitives []Primitive
}

func newEntity(class Class) *Entity {
	return &Entity{
		class:  class,
		values: make(map[string]string),
	}
}

// Class returns the class the entity was created from.
func (e *Entity) Class() Class {
	return e.class
}

// Classname returns the resolved class name.
func (e *Entity) Classname() string {
	return e.class.Name()
}

// IsContainer reports whether the entity may own primitives. It is fixed at creation.
func (e *Entity) IsContainer() bool {
	return e.class.IsContainer()
}

// SetKeyValue stores a value. A repeated key keeps its first position and takes the new value.
func (e *Entity) SetKeyValue(key, value string) {
	if _, ok := e.values[key]; !ok {
		e.keys = append(e.keys, key)
	}
	e.values[key] = value
	e.raw = append(e.raw, KeyValue{Key: key, Value: value})
}

// KeyValue returns the value for key, or "" if unset.
func (e *Entity) KeyValue(key string) string {
	return e.values[key]
}

// Lookup returns the value for key and whether it is set.
func (e *Entity) Lookup(key string) (string, bool) {
	v, ok := e.values[key]
	return v, ok
}

// KeyValues returns the stored pairs in first-seen key order.
func (e *Entity) KeyValues() KeyValueList {
	out := make(KeyValueList, 0, len(e.keys))
	for _, k := range e.keys {
		out = append(out, KeyValue{Key: k, Value: e.values[k]})
	}
	return out
}

// RawPairs returns every pair applied to the entity, duplicates included.
func (e *Entity) RawPairs() KeyValueList {
	out := make(KeyValueList, len(e.raw))
	copy(out, e.raw)
	return out
}

// Primitives returns the primitives owned by the entity.
func (e *Entity) Primitives() []Primitive {
	return e.primitives
}

// AddPrimitive attaches p, or returns ErrNotContainer.
func (e *Entity) AddPrimitive(p Primitive) error {
	if !e.IsContainer() {
		return ErrNotContainer
	}
	e.primitives = append(e.primitives, p)
	return nil
}
