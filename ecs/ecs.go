// Package ecs defines the shared vocabulary used by the compiler: component
// types, field data types, entity archetypes, queries, and event-triggered
// systems. The types here carry no behavior beyond simple accessors; layout
// and code generation live in the compiler package.
package ecs

import "math/bits"

// DataType describes the storage shape of a single component field.
type DataType interface {
	dataType()
}

// IntType is an integer constrained to the inclusive range [Lo, Hi]. Its
// packed width is the minimum number of bits that can distinguish every
// value in the range.
type IntType struct {
	Lo int
	Hi int
}

func (IntType) dataType() {}

// BitWidth returns ceil(log2(Hi-Lo+1)). A range with a single value packs
// to zero bits; the allocator promotes zero-width fields to pointer width.
func (t IntType) BitWidth() int {
	n := t.Hi - t.Lo + 1
	if n <= 1 {
		return 0
	}
	return bits.Len(uint(n - 1))
}

// Count returns the number of distinct values in the range.
func (t IntType) Count() int {
	return t.Hi - t.Lo + 1
}

// ArrayType is a sequence of elements. With Index set, the array has a
// fixed shape: one element per value of the index range. With Index nil,
// the array is variable-length and is stored as a pointer to a constant
// data block placed at layout time.
type ArrayType struct {
	Elem  DataType
	Index *IntType
}

func (ArrayType) dataType() {}

// RefType is a reference to another entity matching Query. References are
// always stored in 8 bits, which limits a scope to 256 referenceable
// entities.
type RefType struct {
	Query *Query
}

func (RefType) dataType() {}

// DataField is a named, typed slot within a component.
type DataField struct {
	Name string
	Type DataType
}

// ComponentType is a named, ordered list of fields. Component names are
// globally unique within a registry.
type ComponentType struct {
	Name   string
	Fields []DataField
}

// FieldByName returns the field with the given name, or nil.
func (c *ComponentType) FieldByName(name string) *DataField {
	for i := range c.Fields {
		if c.Fields[i].Name == name {
			return &c.Fields[i]
		}
	}
	return nil
}
