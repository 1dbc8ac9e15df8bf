package ecsc

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/retrozoo/ecsc/compiler"
	"github.com/retrozoo/ecsc/ecs"
)

func demoScope(t *testing.T) *compiler.Scope {
	t.Helper()
	reg := compiler.NewRegistry()
	xpos := &ecs.ComponentType{
		Name:   "xpos",
		Fields: []ecs.DataField{{Name: "xpos", Type: ecs.IntType{Lo: 0, Hi: 255}}},
	}
	sprite := &ecs.ComponentType{
		Name:   "sprite",
		Fields: []ecs.DataField{{Name: "height", Type: ecs.IntType{Lo: 0, Hi: 255}}},
	}
	require.NoError(t, reg.DefineComponent(xpos))
	require.NoError(t, reg.DefineComponent(sprite))
	require.NoError(t, reg.DefineSystem(&ecs.System{
		Name:      "FrameLoop",
		Query:     ecs.Query{Include: []string{"sprite"}},
		TempBytes: 2,
		Actions: []ecs.CodeFragment{{
			Event: "start",
			Text:  "%{.loop}:\n\tsta %{$0}\n%{!preframe}\tjmp %{.loop}\n",
		}},
	}))
	require.NoError(t, reg.DefineSystem(&ecs.System{
		Name:  "DrawSprite",
		Query: ecs.Query{Include: []string{"sprite", "xpos"}},
		Actions: []ecs.CodeFragment{{
			Event:   "preframe",
			Iterate: ecs.Each,
			Text:    "\tlda %{<height}\n\tldy %{<xpos}\n",
		}},
	}))
	scope, err := reg.NewScope("main", nil)
	require.NoError(t, err)
	arch := ecs.NewArchetype(sprite, xpos)
	for i := 0; i < 2; i++ {
		_, err = scope.NewEntity(arch)
		require.NoError(t, err)
	}
	return scope
}

func TestBuild(t *testing.T) {
	scope := demoScope(t)

	var b strings.Builder
	require.NoError(t, Build(&b, scope))
	out := b.String()

	// Document shape.
	require.Contains(t, out, "\tprocessor 6502\n")
	require.Contains(t, out, "\tseg.u Data\n")
	require.Contains(t, out, "\tseg Code\n")
	require.Contains(t, out, "\t.word Start\n")

	// The frame loop drives the sprite system through %{!preframe}.
	require.Contains(t, out, "FrameLoop_start_loop:")
	require.Contains(t, out, "\tsta TEMP+0\n")
	require.Contains(t, out, "\tldx #0\n")
	require.Contains(t, out, "\tcpx #2\n")
	require.Contains(t, out, "sprite_height_b0,x")
	require.Contains(t, out, "xpos_xpos_b0,x")

	// Temp scratch reserved in the mutable segment.
	require.Contains(t, out, "TEMP:\n")
}

func TestBuildIsDeterministic(t *testing.T) {
	scope := demoScope(t)

	var first strings.Builder
	require.NoError(t, Build(&first, scope))
	var second strings.Builder
	require.NoError(t, Build(&second, scope))
	require.Equal(t, first.String(), second.String())
}

func TestBuildOptions(t *testing.T) {
	scope := demoScope(t)

	var b strings.Builder
	err := Build(&b, scope,
		WithRootEvent("preframe"),
		WithDataOrigin(0x200),
		WithCodeOrigin(0xc000),
		WithHeaderComment("demo"))
	require.NoError(t, err)
	out := b.String()

	require.True(t, strings.HasPrefix(out, "; demo\n"))
	require.Contains(t, out, "\torg $0200\n")
	require.Contains(t, out, "\torg $c000\n")
	require.Contains(t, out, "sprite_height_b0,x")
	// The start event never ran, so the frame loop contributed nothing.
	require.NotContains(t, out, "FrameLoop_start_loop")
}
