package compiler

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/retrozoo/ecsc/ecs"
	"github.com/retrozoo/ecsc/errz"
)

// pointerWidth is the promoted width for fields that cannot be packed:
// variable-length arrays and zero-width ranges are stored as a two-lane
// reference to constant data.
const pointerWidth = 16

func laneSymbol(component, field string, bitOffset int) string {
	return fmt.Sprintf("%s_%s_b%d", component, field, bitOffset)
}

func blockSymbol(component, field string, entityID int) string {
	return fmt.Sprintf("%s_%s_e%d", component, field, entityID)
}

// Analyze runs layout for the scope: field-range collection, byte-lane
// allocation with bit packing, and constant placement. It must run before
// code generation. All derived state is rebuilt from scratch on each call,
// so re-analyzing unmodified input yields an identical layout. Entities
// freeze once Analyze returns.
func (s *Scope) Analyze() error {
	s.mutable = NewSegment("mutable")
	s.constant = NewSegment("constant")
	s.tempCursor = 0
	s.tempMax = 0
	s.resources = make(map[string]bool)
	s.resourceOrder = nil
	s.generating = make(map[string]bool)

	s.collectFieldRanges()

	var errs *multierror.Error
	if err := s.allocateRanges(s.mutable, true); err != nil {
		errs = multierror.Append(errs, err)
	}
	// Constant lanes are sized here but not reserved: payload sizes are
	// resolved during constant placement.
	if err := s.allocateRanges(s.constant, false); err != nil {
		errs = multierror.Append(errs, err)
	}
	if err := errs.ErrorOrNil(); err != nil {
		return err
	}
	if err := s.placeConstants(); err != nil {
		return err
	}
	s.analyzed = true
	return nil
}

// collectFieldRanges routes every (entity, component, field) occurrence to
// the constant segment's range when the entity holds a constant value for
// the field, and to the mutable segment's range otherwise. A single field
// can therefore own two independent ranges, one per segment.
func (s *Scope) collectFieldRanges() {
	for _, e := range s.entities {
		for _, c := range e.Archetype.Components {
			for i := range c.Fields {
				f := &c.Fields[i]
				seg := s.mutable
				if _, ok := e.Const(c.Name, f.Name); ok {
					seg = s.constant
				}
				seg.extendRange(c, f, e.ID)
			}
		}
	}
}

// fieldBitWidth computes the packed width of a data type. A zero return
// means the width is not statically known and the field is pointer-width.
func fieldBitWidth(t ecs.DataType) (int, error) {
	switch t := t.(type) {
	case ecs.IntType:
		return t.BitWidth(), nil
	case ecs.RefType:
		return 8, nil
	case ecs.ArrayType:
		if t.Index == nil {
			return 0, nil
		}
		elem, err := fieldBitWidth(t.Elem)
		if err != nil {
			return 0, err
		}
		return t.Index.Count() * elem, nil
	default:
		return 0, errz.Newf(errz.ErrLayout, "unsupported data type %T", t)
	}
}

// allocateRanges computes widths and lane counts for every field range in
// the segment, and reserves the lane arrays when reserve is set.
func (s *Scope) allocateRanges(seg *Segment, reserve bool) error {
	var errs *multierror.Error
	for _, fr := range seg.FieldRanges() {
		width, err := fieldBitWidth(fr.Field.Type)
		if err != nil {
			errs = multierror.Append(errs, err.(*errz.CompileError).WithScope(s.name))
			continue
		}
		if width == 0 {
			width = pointerWidth
		}
		fr.BitWidth = width
		fr.Lanes = (width + 7) / 8
		if !reserve {
			continue
		}
		for lane := 0; lane < fr.Lanes; lane++ {
			seg.AllocateBytes(laneSymbol(fr.Component.Name, fr.Field.Name, lane*8), fr.Length())
		}
	}
	return errs.ErrorOrNil()
}

// placeConstants reserves the constant segment's lane arrays and fills
// them. Scalar values become literal lane bytes at the entity's position.
// Byte blocks become uniquely named data blocks; the lane bytes at the
// entity's position hold forward-reference tokens to the block's address,
// shifted per lane, resolved only at serialization.
func (s *Scope) placeConstants() error {
	for _, fr := range s.constant.FieldRanges() {
		laneOfs := make([]int, fr.Lanes)
		for lane := 0; lane < fr.Lanes; lane++ {
			laneOfs[lane] = s.constant.AllocateBytes(
				laneSymbol(fr.Component.Name, fr.Field.Name, lane*8), fr.Length())
		}
		for _, e := range s.entities {
			if e.ID < fr.MinID || e.ID > fr.MaxID {
				continue
			}
			v, ok := e.Const(fr.Component.Name, fr.Field.Name)
			if !ok {
				// The entity's occurrence of this field lives in the
				// mutable range.
				continue
			}
			pos := e.ID - fr.MinID
			if v.IsBlock() {
				if err := s.placeBlock(fr, e, v.Bytes, laneOfs, pos); err != nil {
					return err
				}
				continue
			}
			if err := s.placeScalar(fr, e, v.Scalar, laneOfs, pos); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Scope) placeBlock(fr *FieldRange, e *ecs.Entity, data []byte, laneOfs []int, pos int) error {
	if fr.Lanes != 2 {
		return errz.Newf(errz.ErrLayout,
			"byte-block constant for %s.%s requires a pointer-width field",
			fr.Component.Name, fr.Field.Name).WithScope(s.name)
	}
	values := make([]ByteValue, len(data))
	for i, b := range data {
		values[i] = Literal(b)
	}
	sym := blockSymbol(fr.Component.Name, fr.Field.Name, e.ID)
	s.constant.AllocateInitData(sym, values)
	s.constant.SetByte(laneOfs[0]+pos, Ref(sym, 0))
	s.constant.SetByte(laneOfs[1]+pos, Ref(sym, 8))
	return nil
}

func (s *Scope) placeScalar(fr *FieldRange, e *ecs.Entity, value int, laneOfs []int, pos int) error {
	if value < 0 || value>>(8*fr.Lanes) != 0 {
		return errz.Newf(errz.ErrValue,
			"constant %d for %s.%s of entity %d does not fit in %d byte(s)",
			value, fr.Component.Name, fr.Field.Name, e.ID, fr.Lanes).WithScope(s.name)
	}
	for lane := 0; lane < fr.Lanes; lane++ {
		s.constant.SetByte(laneOfs[lane]+pos, Literal(byte(value>>(8*lane))))
	}
	return nil
}
