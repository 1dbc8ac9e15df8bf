package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/retrozoo/ecsc"
)

const demoProject = `{
  "components": [
    {"name": "xpos", "fields": [{"name": "xpos", "type": {"kind": "int", "lo": 0, "hi": 255}}]},
    {"name": "sprite", "fields": [
      {"name": "height", "type": {"kind": "int", "lo": 0, "hi": 255}},
      {"name": "bitmap", "type": {"kind": "array", "elem": {"kind": "int", "lo": 0, "hi": 255}}}
    ]}
  ],
  "systems": [
    {
      "name": "DrawSprite",
      "query": {"include": ["sprite", "xpos"]},
      "actions": [
        {"event": "preframe", "iterate": "each", "text": "\tlda %{<height}\n\tldy %{<xpos}\n"}
      ]
    }
  ],
  "scopes": [
    {
      "name": "main",
      "entities": [
        {"archetype": ["sprite", "xpos"], "consts": [
          {"component": "sprite", "field": "bitmap", "bytes": [10, 20, 30]}
        ]},
        {"archetype": ["sprite", "xpos"], "consts": [
          {"component": "sprite", "field": "bitmap", "bytes": [1, 2]}
        ]}
      ]
    }
  ]
}`

func writeProject(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "project.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadProject(t *testing.T) {
	path := writeProject(t, demoProject)
	project, err := loadProject(path, zerolog.Nop())
	require.NoError(t, err)
	require.Equal(t, "main", project.DefaultScope)

	scope, ok := project.Registry.Scope("main")
	require.True(t, ok)
	require.Equal(t, 2, scope.EntityCount())

	// Entities listing the same component names share one archetype.
	entities := scope.Entities()
	require.Same(t, entities[0].Archetype, entities[1].Archetype)

	var b strings.Builder
	require.NoError(t, ecsc.Build(&b, scope, ecsc.WithRootEvent("preframe")))
	out := b.String()
	require.Contains(t, out, "sprite_height_b0,x")
	require.Contains(t, out, "sprite_bitmap_e0:")
	require.Contains(t, out, "sprite_bitmap_e1:")
	require.Contains(t, out, "\t.byte (sprite_bitmap_e0 >> 0) & $ff")
	require.Contains(t, out, "\t.byte (sprite_bitmap_e1 >> 8) & $ff")
}

func TestLoadProjectErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errMsg  string
	}{
		{
			name:    "no scopes",
			content: `{"components": [], "systems": []}`,
			errMsg:  "defines no scopes",
		},
		{
			name: "unknown component in archetype",
			content: `{"scopes": [{"name": "main", "entities": [
				{"archetype": ["ghost"]}
			]}]}`,
			errMsg: `component "ghost" is not defined`,
		},
		{
			name: "unknown field type kind",
			content: `{
				"components": [{"name": "c", "fields": [{"name": "f", "type": {"kind": "float"}}]}],
				"scopes": [{"name": "main", "entities": []}]
			}`,
			errMsg: `unknown field type kind "float"`,
		},
		{
			name: "unknown iterate mode",
			content: `{
				"systems": [{"name": "S", "actions": [{"event": "e", "iterate": "twice", "text": ""}]}],
				"scopes": [{"name": "main", "entities": []}]
			}`,
			errMsg: `unknown iterate mode "twice"`,
		},
		{
			name: "const with both value and bytes",
			content: `{
				"components": [{"name": "c", "fields": [{"name": "f", "type": {"kind": "int", "lo": 0, "hi": 255}}]}],
				"scopes": [{"name": "main", "entities": [
					{"archetype": ["c"], "consts": [{"component": "c", "field": "f", "value": 1, "bytes": [2]}]}
				]}]
			}`,
			errMsg: "has both value and bytes",
		},
		{
			name: "const byte out of range",
			content: `{
				"components": [{"name": "c", "fields": [{"name": "f", "type": {"kind": "array", "elem": {"kind": "int", "lo": 0, "hi": 255}}}]}],
				"scopes": [{"name": "main", "entities": [
					{"archetype": ["c"], "consts": [{"component": "c", "field": "f", "bytes": [500]}]}
				]}]
			}`,
			errMsg: "outside [0, 255]",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeProject(t, tt.content)
			_, err := loadProject(path, zerolog.Nop())
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
