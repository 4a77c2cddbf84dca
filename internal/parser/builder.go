package parser

// Build creates an entity of the resolved class and applies pairs in order.
func Build(classname string, pairs KeyValueList, hasPrimitives bool, resolver ClassResolver) *Entity {
	e := newEntity(resolver.ResolveClass(classname, hasPrimitives))
	for _, kv := range pairs {
		e.SetKeyValue(kv.Key, kv.Value)
	}
	return e
}

// entityBuilder is pending until materialize is first called, then built.
// Whether the entity gets primitives is only known at that point.
type entityBuilder struct {
	acc      Accumulator
	resolver ClassResolver
	entity   *Entity
}

func newEntityBuilder(resolver ClassResolver) *entityBuilder {
	return &entityBuilder{resolver: resolver}
}

// add records a pair. Pairs after materialization go straight to the entity.
func (b *entityBuilder) add(key, value string) {
	if b.entity != nil {
		b.entity.SetKeyValue(key, value)
		return
	}
	b.acc.Add(key, value)
}

// materialize builds the entity on the first call and returns it on every call.
func (b *entityBuilder) materialize(hasPrimitives bool, pc ParseContext) (*Entity, error) {
	if b.entity != nil {
		return b.entity, nil
	}

	classname, pairs, ok := b.acc.Take()
	if !ok {
		return nil, &FatalError{
			Kind:           KindMissingClassname,
			EntityIndex:    pc.EntityIndex,
			PrimitiveIndex: NoIndex,
		}
	}

	b.entity = Build(classname, pairs, hasPrimitives, b.resolver)
	return b.entity, nil
}
