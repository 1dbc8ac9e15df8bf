package compiler

import (
	"fmt"
	"io"

	"github.com/retrozoo/ecsc/ecs"
)

// ByteValue is one byte of initialized segment content: either a literal
// value or a forward reference to a symbol's address. Forward references
// are recorded during layout and serialized as assembler directives only
// at dump time, once the symbol table is complete.
type ByteValue struct {
	Literal byte
	Symbol  string
	Shift   int
}

// Literal returns a literal byte value.
func Literal(b byte) ByteValue {
	return ByteValue{Literal: b}
}

// Ref returns a forward reference to the given symbol, shifted right by
// shift bits and masked to one byte at serialization.
func Ref(symbol string, shift int) ByteValue {
	return ByteValue{Symbol: symbol, Shift: shift}
}

// IsRef reports whether the value is a forward reference.
func (v ByteValue) IsRef() bool {
	return v.Symbol != ""
}

// FieldRange tracks which entity ids own a (component, field) pair within
// one segment, as the inclusive id range [MinID, MaxID]. A field whose
// occurrences split between constant and mutable storage owns two
// independent ranges, one per segment.
type FieldRange struct {
	Component *ecs.ComponentType
	Field     *ecs.DataField
	MinID     int
	MaxID     int

	// Filled during allocation.
	BitWidth int
	Lanes    int
}

// Length returns the number of entity slots the range spans.
func (fr *FieldRange) Length() int {
	return fr.MaxID - fr.MinID + 1
}

func (fr *FieldRange) key() string {
	return fr.Component.Name + "." + fr.Field.Name
}

// Segment is a flat, named, byte-addressable allocation arena with a
// symbol table, per-field range bookkeeping, and optional initializer
// content.
type Segment struct {
	name       string
	size       int
	symbols    map[string]int
	sizes      map[string]int
	order      []string
	init       map[int]ByteValue
	ranges     map[string]*FieldRange
	rangeOrder []string
}

// NewSegment creates an empty segment with the given name.
func NewSegment(name string) *Segment {
	return &Segment{
		name:    name,
		symbols: make(map[string]int),
		sizes:   make(map[string]int),
		init:    make(map[int]ByteValue),
		ranges:  make(map[string]*FieldRange),
	}
}

// Name returns the segment name.
func (s *Segment) Name() string {
	return s.name
}

// Size returns the number of bytes allocated so far.
func (s *Segment) Size() int {
	return s.size
}

// AllocateBytes reserves size bytes under the given symbol name and
// returns the symbol's offset. The call is idempotent by name: a repeated
// call with a name that already exists returns the previously assigned
// offset and does not re-validate size against the first call.
func (s *Segment) AllocateBytes(name string, size int) int {
	if ofs, ok := s.symbols[name]; ok {
		return ofs
	}
	ofs := s.size
	s.symbols[name] = ofs
	s.sizes[name] = size
	s.order = append(s.order, name)
	s.size += size
	return ofs
}

// AllocateInitData reserves len(values) bytes under the given symbol name
// and fills them with the supplied literal values or forward-reference
// tokens.
func (s *Segment) AllocateInitData(name string, values []ByteValue) int {
	ofs := s.AllocateBytes(name, len(values))
	for i, v := range values {
		s.init[ofs+i] = v
	}
	return ofs
}

// SetByte writes one initialized byte at an absolute segment offset.
func (s *Segment) SetByte(offset int, v ByteValue) {
	s.init[offset] = v
}

// Offset returns the offset assigned to a symbol.
func (s *Segment) Offset(name string) (int, bool) {
	ofs, ok := s.symbols[name]
	return ofs, ok
}

// SymbolSize returns the size reserved under a symbol at its first
// allocation.
func (s *Segment) SymbolSize(name string) (int, bool) {
	n, ok := s.sizes[name]
	return n, ok
}

// Symbols returns all symbol names in allocation order.
func (s *Segment) Symbols() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

func (s *Segment) extendRange(c *ecs.ComponentType, f *ecs.DataField, id int) *FieldRange {
	key := c.Name + "." + f.Name
	fr, ok := s.ranges[key]
	if !ok {
		fr = &FieldRange{Component: c, Field: f, MinID: id, MaxID: id}
		s.ranges[key] = fr
		s.rangeOrder = append(s.rangeOrder, key)
		return fr
	}
	if id < fr.MinID {
		fr.MinID = id
	}
	if id > fr.MaxID {
		fr.MaxID = id
	}
	return fr
}

// FieldRange returns the range recorded for a (component, field) pair.
func (s *Segment) FieldRange(component, field string) (*FieldRange, bool) {
	fr, ok := s.ranges[component+"."+field]
	return fr, ok
}

// FieldRanges returns all field ranges in first-occurrence order.
func (s *Segment) FieldRanges() []*FieldRange {
	out := make([]*FieldRange, 0, len(s.rangeOrder))
	for _, key := range s.rangeOrder {
		out = append(out, s.ranges[key])
	}
	return out
}

func (s *Segment) labelsByOffset() map[int][]string {
	labels := make(map[int][]string, len(s.order))
	for _, name := range s.order {
		ofs := s.symbols[name]
		labels[ofs] = append(labels[ofs], name)
	}
	return labels
}

// Dump serializes the segment: for every offset in range it emits all
// labels aliasing that offset, then one byte directive. Initialized bytes
// become literal .byte directives, forward references become
// (symbol >> shift) & $ff expressions for the assembler to resolve, and
// unwritten offsets become one-byte fillers. Dump must run strictly after
// all generation for the owning scope completes.
func (s *Segment) Dump(w io.Writer) error {
	labels := s.labelsByOffset()
	for ofs := 0; ofs < s.size; ofs++ {
		for _, name := range labels[ofs] {
			if _, err := fmt.Fprintf(w, "%s:\n", name); err != nil {
				return err
			}
		}
		var line string
		if v, ok := s.init[ofs]; ok {
			if v.IsRef() {
				line = fmt.Sprintf("\t.byte (%s >> %d) & $ff\n", v.Symbol, v.Shift)
			} else {
				line = fmt.Sprintf("\t.byte %d\n", v.Literal)
			}
		} else {
			line = "\t.ds 1\n"
		}
		if _, err := io.WriteString(w, line); err != nil {
			return err
		}
	}
	return nil
}
