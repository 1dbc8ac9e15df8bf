package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/retrozoo/ecsc/compiler"
	"github.com/retrozoo/ecsc/ecs"
)

// Project is a fully populated registry plus loader bookkeeping. The JSON
// project format is a thin serialization of already-typed definitions; the
// textual ECS front end proper is a separate tool.
type Project struct {
	Registry     *compiler.Registry
	DefaultScope string
}

type projectFile struct {
	Components []componentDef `json:"components"`
	Systems    []systemDef    `json:"systems"`
	Scopes     []scopeDef     `json:"scopes"`
}

type componentDef struct {
	Name   string     `json:"name"`
	Fields []fieldDef `json:"fields"`
}

type fieldDef struct {
	Name string       `json:"name"`
	Type fieldTypeDef `json:"type"`
}

type fieldTypeDef struct {
	Kind    string        `json:"kind"`
	Lo      int           `json:"lo,omitempty"`
	Hi      int           `json:"hi,omitempty"`
	Elem    *fieldTypeDef `json:"elem,omitempty"`
	Index   *fieldTypeDef `json:"index,omitempty"`
	Include []string      `json:"include,omitempty"`
	Exclude []string      `json:"exclude,omitempty"`
}

type queryDef struct {
	Include []string `json:"include,omitempty"`
	Exclude []string `json:"exclude,omitempty"`
	Listen  []string `json:"listen,omitempty"`
	Updates []string `json:"updates,omitempty"`
}

type actionDef struct {
	Event   string `json:"event"`
	Iterate string `json:"iterate,omitempty"`
	Text    string `json:"text"`
}

type systemDef struct {
	Name      string      `json:"name"`
	Query     queryDef    `json:"query"`
	TempBytes int         `json:"tempbytes,omitempty"`
	Emits     []string    `json:"emits,omitempty"`
	Actions   []actionDef `json:"actions"`
}

type constDef struct {
	Component string `json:"component"`
	Field     string `json:"field"`
	Value     *int   `json:"value,omitempty"`
	Bytes     []int  `json:"bytes,omitempty"`
}

type entityDef struct {
	Archetype []string   `json:"archetype"`
	Consts    []constDef `json:"consts,omitempty"`
}

type scopeDef struct {
	Name     string      `json:"name"`
	Parent   string      `json:"parent,omitempty"`
	Entities []entityDef `json:"entities"`
}

// loadProject reads a JSON project description and populates a registry.
// Entities listing the same component names share one archetype: the
// loader normalizes archetype identity by component-name list, since a
// serialized project cannot express pointer identity.
func loadProject(path string, logger zerolog.Logger) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var pf projectFile
	if err := json.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(pf.Scopes) == 0 {
		return nil, fmt.Errorf("%s defines no scopes", path)
	}

	reg := compiler.NewRegistry(compiler.WithLogger(logger))
	for _, cd := range pf.Components {
		ct := &ecs.ComponentType{Name: cd.Name}
		for _, fd := range cd.Fields {
			dt, err := buildDataType(fd.Type)
			if err != nil {
				return nil, fmt.Errorf("component %s, field %s: %w", cd.Name, fd.Name, err)
			}
			ct.Fields = append(ct.Fields, ecs.DataField{Name: fd.Name, Type: dt})
		}
		if err := reg.DefineComponent(ct); err != nil {
			return nil, err
		}
	}
	for _, sd := range pf.Systems {
		sys, err := buildSystem(sd)
		if err != nil {
			return nil, err
		}
		if err := reg.DefineSystem(sys); err != nil {
			return nil, err
		}
	}

	archetypes := make(map[string]*ecs.EntityArchetype)
	for _, scd := range pf.Scopes {
		var parent *compiler.Scope
		if scd.Parent != "" {
			p, ok := reg.Scope(scd.Parent)
			if !ok {
				return nil, fmt.Errorf("scope %s: parent %q is not defined earlier in the project", scd.Name, scd.Parent)
			}
			parent = p
		}
		scope, err := reg.NewScope(scd.Name, parent)
		if err != nil {
			return nil, err
		}
		for i, ed := range scd.Entities {
			arch, err := resolveArchetype(reg, archetypes, ed.Archetype)
			if err != nil {
				return nil, fmt.Errorf("scope %s, entity %d: %w", scd.Name, i, err)
			}
			e, err := scope.NewEntity(arch)
			if err != nil {
				return nil, err
			}
			for _, cd := range ed.Consts {
				v, err := buildConst(cd)
				if err != nil {
					return nil, fmt.Errorf("scope %s, entity %d: %w", scd.Name, i, err)
				}
				e.SetConst(cd.Component, cd.Field, v)
			}
		}
	}

	return &Project{Registry: reg, DefaultScope: pf.Scopes[0].Name}, nil
}

func buildDataType(def fieldTypeDef) (ecs.DataType, error) {
	switch def.Kind {
	case "int":
		return ecs.IntType{Lo: def.Lo, Hi: def.Hi}, nil
	case "array":
		if def.Elem == nil {
			return nil, fmt.Errorf("array type requires an elem type")
		}
		elem, err := buildDataType(*def.Elem)
		if err != nil {
			return nil, err
		}
		at := ecs.ArrayType{Elem: elem}
		if def.Index != nil {
			if def.Index.Kind != "int" {
				return nil, fmt.Errorf("array index must be an int range")
			}
			at.Index = &ecs.IntType{Lo: def.Index.Lo, Hi: def.Index.Hi}
		}
		return at, nil
	case "ref":
		return ecs.RefType{Query: &ecs.Query{Include: def.Include, Exclude: def.Exclude}}, nil
	default:
		return nil, fmt.Errorf("unknown field type kind %q", def.Kind)
	}
}

func buildSystem(def systemDef) (*ecs.System, error) {
	sys := &ecs.System{
		Name: def.Name,
		Query: ecs.Query{
			Include: def.Query.Include,
			Exclude: def.Query.Exclude,
			Listen:  def.Query.Listen,
			Updates: def.Query.Updates,
		},
		TempBytes: def.TempBytes,
		Emits:     def.Emits,
	}
	for _, ad := range def.Actions {
		mode := ecs.Once
		switch ad.Iterate {
		case "", "once":
		case "each":
			mode = ecs.Each
		default:
			return nil, fmt.Errorf("system %s: unknown iterate mode %q", def.Name, ad.Iterate)
		}
		sys.Actions = append(sys.Actions, ecs.CodeFragment{
			Text:    ad.Text,
			Event:   ad.Event,
			Iterate: mode,
		})
	}
	return sys, nil
}

func buildConst(def constDef) (ecs.ConstValue, error) {
	if def.Value != nil && def.Bytes != nil {
		return ecs.ConstValue{}, fmt.Errorf("const %s.%s has both value and bytes", def.Component, def.Field)
	}
	if def.Bytes != nil {
		bytes := make([]byte, len(def.Bytes))
		for i, b := range def.Bytes {
			if b < 0 || b > 255 {
				return ecs.ConstValue{}, fmt.Errorf("const %s.%s byte %d is outside [0, 255]", def.Component, def.Field, b)
			}
			bytes[i] = byte(b)
		}
		return ecs.Block(bytes), nil
	}
	if def.Value == nil {
		return ecs.ConstValue{}, fmt.Errorf("const %s.%s has neither value nor bytes", def.Component, def.Field)
	}
	return ecs.Scalar(*def.Value), nil
}

func resolveArchetype(reg *compiler.Registry, cache map[string]*ecs.EntityArchetype, names []string) (*ecs.EntityArchetype, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("entity archetype lists no components")
	}
	key := strings.Join(names, "\x00")
	if arch, ok := cache[key]; ok {
		return arch, nil
	}
	components := make([]*ecs.ComponentType, len(names))
	for i, name := range names {
		c, ok := reg.Component(name)
		if !ok {
			return nil, fmt.Errorf("component %q is not defined", name)
		}
		components[i] = c
	}
	arch := ecs.NewArchetype(components...)
	cache[key] = arch
	return arch, nil
}
