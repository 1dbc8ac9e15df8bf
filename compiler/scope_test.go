package compiler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/retrozoo/ecsc/ecs"
	"github.com/retrozoo/ecsc/errz"
)

func TestEntityIDsFollowCreationOrder(t *testing.T) {
	reg := NewRegistry()
	xpos, sprite := testComponents()
	require.NoError(t, reg.DefineComponent(xpos))
	require.NoError(t, reg.DefineComponent(sprite))
	scope, err := reg.NewScope("main", nil)
	require.NoError(t, err)

	arch := ecs.NewArchetype(sprite, xpos)
	seen := make(map[int]bool)
	for i := 0; i < 5; i++ {
		e, err := scope.NewEntity(arch)
		require.NoError(t, err)
		require.Equal(t, i, e.ID)
		require.False(t, seen[e.ID])
		seen[e.ID] = true
	}
	require.Equal(t, 5, scope.EntityCount())
}

func TestEntitiesFreezeAfterAnalyze(t *testing.T) {
	reg := NewRegistry()
	xpos, _ := testComponents()
	require.NoError(t, reg.DefineComponent(xpos))
	scope, err := reg.NewScope("main", nil)
	require.NoError(t, err)
	arch := ecs.NewArchetype(xpos)
	_, err = scope.NewEntity(arch)
	require.NoError(t, err)

	require.NoError(t, scope.Analyze())
	_, err = scope.NewEntity(arch)
	require.Error(t, err)
	require.True(t, errz.IsKind(err, errz.ErrLayout))
}

func TestPackedLaneAllocation(t *testing.T) {
	tests := []struct {
		name  string
		typ   ecs.DataType
		lanes []string
		width int
	}{
		{
			name:  "one bit",
			typ:   ecs.IntType{Lo: 0, Hi: 1},
			lanes: []string{"c_f_b0"},
			width: 1,
		},
		{
			name:  "one byte",
			typ:   ecs.IntType{Lo: 0, Hi: 255},
			lanes: []string{"c_f_b0"},
			width: 8,
		},
		{
			name:  "nine bits take two lanes",
			typ:   ecs.IntType{Lo: 0, Hi: 256},
			lanes: []string{"c_f_b0", "c_f_b8"},
			width: 9,
		},
		{
			name:  "ref is one byte",
			typ:   ecs.RefType{Query: &ecs.Query{Include: []string{"c"}}},
			lanes: []string{"c_f_b0"},
			width: 8,
		},
		{
			name:  "fixed-shape array",
			typ:   ecs.ArrayType{Elem: ecs.IntType{Lo: 0, Hi: 255}, Index: &ecs.IntType{Lo: 0, Hi: 2}},
			lanes: []string{"c_f_b0", "c_f_b8", "c_f_b16"},
			width: 24,
		},
		{
			name:  "variable-length array is pointer-width",
			typ:   ecs.ArrayType{Elem: ecs.IntType{Lo: 0, Hi: 255}},
			lanes: []string{"c_f_b0", "c_f_b8"},
			width: 16,
		},
		{
			name:  "zero-width int is pointer-width",
			typ:   ecs.IntType{Lo: 5, Hi: 5},
			lanes: []string{"c_f_b0", "c_f_b8"},
			width: 16,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := NewRegistry()
			c := &ecs.ComponentType{Name: "c", Fields: []ecs.DataField{{Name: "f", Type: tt.typ}}}
			require.NoError(t, reg.DefineComponent(c))
			scope, err := reg.NewScope("main", nil)
			require.NoError(t, err)
			_, err = scope.NewEntity(ecs.NewArchetype(c))
			require.NoError(t, err)
			require.NoError(t, scope.Analyze())

			require.Equal(t, tt.lanes, scope.Mutable().Symbols())
			fr, ok := scope.Mutable().FieldRange("c", "f")
			require.True(t, ok)
			require.Equal(t, tt.width, fr.BitWidth)
			require.Equal(t, len(tt.lanes), fr.Lanes)
		})
	}
}

func TestLaneSizeMatchesRangeLength(t *testing.T) {
	reg := NewRegistry()
	xpos, _ := testComponents()
	require.NoError(t, reg.DefineComponent(xpos))
	scope, err := reg.NewScope("main", nil)
	require.NoError(t, err)
	arch := ecs.NewArchetype(xpos)
	for i := 0; i < 3; i++ {
		_, err = scope.NewEntity(arch)
		require.NoError(t, err)
	}
	require.NoError(t, scope.Analyze())

	size, ok := scope.Mutable().SymbolSize("xpos_xpos_b0")
	require.True(t, ok)
	require.Equal(t, 3, size)
}

func TestSplitConstAndMutableRanges(t *testing.T) {
	reg := NewRegistry()
	counter := &ecs.ComponentType{
		Name:   "counter",
		Fields: []ecs.DataField{{Name: "val", Type: ecs.IntType{Lo: 0, Hi: 255}}},
	}
	require.NoError(t, reg.DefineComponent(counter))
	scope, err := reg.NewScope("main", nil)
	require.NoError(t, err)
	arch := ecs.NewArchetype(counter)

	e0, err := scope.NewEntity(arch)
	require.NoError(t, err)
	e0.SetConst("counter", "val", ecs.Scalar(5))
	_, err = scope.NewEntity(arch)
	require.NoError(t, err)

	require.NoError(t, scope.Analyze())

	// One independent range per segment.
	cfr, ok := scope.Constant().FieldRange("counter", "val")
	require.True(t, ok)
	require.Equal(t, 0, cfr.MinID)
	require.Equal(t, 0, cfr.MaxID)

	mfr, ok := scope.Mutable().FieldRange("counter", "val")
	require.True(t, ok)
	require.Equal(t, 1, mfr.MinID)
	require.Equal(t, 1, mfr.MaxID)

	var b strings.Builder
	require.NoError(t, scope.Constant().Dump(&b))
	require.Equal(t, "counter_val_b0:\n\t.byte 5\n", b.String())
}

func TestScalarConstantsAcrossEntities(t *testing.T) {
	reg := NewRegistry()
	counter := &ecs.ComponentType{
		Name:   "counter",
		Fields: []ecs.DataField{{Name: "val", Type: ecs.IntType{Lo: 0, Hi: 255}}},
	}
	require.NoError(t, reg.DefineComponent(counter))
	scope, err := reg.NewScope("main", nil)
	require.NoError(t, err)
	arch := ecs.NewArchetype(counter)

	for _, v := range []int{5, 9} {
		e, err := scope.NewEntity(arch)
		require.NoError(t, err)
		e.SetConst("counter", "val", ecs.Scalar(v))
	}
	require.NoError(t, scope.Analyze())

	var b strings.Builder
	require.NoError(t, scope.Constant().Dump(&b))
	require.Equal(t, "counter_val_b0:\n\t.byte 5\n\t.byte 9\n", b.String())
}

func TestConstantByteBlockPlacement(t *testing.T) {
	reg := NewRegistry()
	colormap := &ecs.ComponentType{
		Name: "colormap",
		Fields: []ecs.DataField{
			{Name: "colormapdata", Type: ecs.ArrayType{Elem: ecs.IntType{Lo: 0, Hi: 255}}},
		},
	}
	require.NoError(t, reg.DefineComponent(colormap))
	scope, err := reg.NewScope("main", nil)
	require.NoError(t, err)
	e, err := scope.NewEntity(ecs.NewArchetype(colormap))
	require.NoError(t, err)
	e.SetConst("colormap", "colormapdata", ecs.Block([]byte{10, 20, 30}))

	require.NoError(t, scope.Analyze())

	seg := scope.Constant()
	blockOfs, ok := seg.Offset("colormap_colormapdata_e0")
	require.True(t, ok)
	require.Equal(t, 2, blockOfs)
	size, ok := seg.SymbolSize("colormap_colormapdata_e0")
	require.True(t, ok)
	require.Equal(t, 3, size)

	var b strings.Builder
	require.NoError(t, seg.Dump(&b))
	require.Equal(t, strings.Join([]string{
		"colormap_colormapdata_b0:",
		"\t.byte (colormap_colormapdata_e0 >> 0) & $ff",
		"colormap_colormapdata_b8:",
		"\t.byte (colormap_colormapdata_e0 >> 8) & $ff",
		"colormap_colormapdata_e0:",
		"\t.byte 10",
		"\t.byte 20",
		"\t.byte 30",
		"",
	}, "\n"), b.String())
}

func TestScalarConstantOutOfRange(t *testing.T) {
	reg := NewRegistry()
	counter := &ecs.ComponentType{
		Name:   "counter",
		Fields: []ecs.DataField{{Name: "val", Type: ecs.IntType{Lo: 0, Hi: 255}}},
	}
	require.NoError(t, reg.DefineComponent(counter))
	scope, err := reg.NewScope("main", nil)
	require.NoError(t, err)
	e, err := scope.NewEntity(ecs.NewArchetype(counter))
	require.NoError(t, err)
	e.SetConst("counter", "val", ecs.Scalar(300))

	err = scope.Analyze()
	require.Error(t, err)
	require.True(t, errz.IsKind(err, errz.ErrValue))
}

func TestAnalyzeIsRebuildable(t *testing.T) {
	reg := NewRegistry()
	xpos, _ := testComponents()
	require.NoError(t, reg.DefineComponent(xpos))
	scope, err := reg.NewScope("main", nil)
	require.NoError(t, err)
	_, err = scope.NewEntity(ecs.NewArchetype(xpos))
	require.NoError(t, err)

	require.NoError(t, scope.Analyze())
	first := scope.Mutable().Symbols()
	require.NoError(t, scope.Analyze())
	require.Equal(t, first, scope.Mutable().Symbols())
	require.Equal(t, scope.Mutable().Size(), len(first))
}
