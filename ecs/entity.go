package ecs

// EntityArchetype is an ordered, immutable list of component types that
// defines an entity's shape. Archetypes are compared by identity, not by
// structural equality: two archetypes constructed separately are distinct
// even when their component lists match. The registry assigns each
// archetype a small integer handle the first time an entity references it,
// which makes the identity explicit and hashable.
type EntityArchetype struct {
	Components []*ComponentType
}

// NewArchetype builds an archetype from the given component types. The
// component list must not be mutated after the first entity references it.
func NewArchetype(components ...*ComponentType) *EntityArchetype {
	return &EntityArchetype{Components: components}
}

// HasComponent reports whether the archetype carries a component with the
// given name.
func (a *EntityArchetype) HasComponent(name string) bool {
	for _, c := range a.Components {
		if c.Name == name {
			return true
		}
	}
	return false
}

// ConstKey identifies a (component, field) pair within an entity's
// constant-value map.
type ConstKey struct {
	Component string
	Field     string
}

// ConstValue is a compile-time-known field value: either a scalar integer
// or a raw byte block. Blocks are placed in the constant segment as named
// data and addressed by forward reference.
type ConstValue struct {
	Scalar int
	Bytes  []byte
}

// Scalar returns a scalar constant value.
func Scalar(v int) ConstValue {
	return ConstValue{Scalar: v}
}

// Block returns a byte-block constant value.
func Block(b []byte) ConstValue {
	return ConstValue{Bytes: b}
}

// IsBlock reports whether the value is a raw byte block.
func (v ConstValue) IsBlock() bool {
	return v.Bytes != nil
}

// Entity is one instance of an archetype within a scope. IDs are
// scope-local, zero-based, and assigned strictly in creation order; an
// entity's id doubles as its index into every byte-lane array for fields
// it owns. Entities are never reordered, renumbered, or deleted.
type Entity struct {
	ID        int
	Archetype *EntityArchetype
	Consts    map[ConstKey]ConstValue
}

// SetConst records a compile-time-known value for the given field. The
// presence of a constant routes the field occurrence to read-only storage;
// absence means the field is mutable and zero-initialized.
func (e *Entity) SetConst(component, field string, v ConstValue) {
	if e.Consts == nil {
		e.Consts = make(map[ConstKey]ConstValue)
	}
	e.Consts[ConstKey{Component: component, Field: field}] = v
}

// Const returns the constant value recorded for the given field, if any.
func (e *Entity) Const(component, field string) (ConstValue, bool) {
	v, ok := e.Consts[ConstKey{Component: component, Field: field}]
	return v, ok
}
