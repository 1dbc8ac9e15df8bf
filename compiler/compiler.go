// Package compiler lowers a statically-known set of entities, components,
// and event-triggered systems into a flat byte layout and straight-line
// assembly text for an 8-bit target: byte-addressed memory, no dynamic
// allocation, and a single index register as the only iteration
// abstraction.
//
// # Two-Phase Compilation Strategy
//
// Compiling a scope happens in two phases. Phase 1 (Analyze) collects one
// field range per (component, field, segment) triple, computes packed bit
// widths, materializes column-oriented byte-lane arrays, and places
// constant data. Constant blocks are addressed by forward reference: a
// lane byte that must hold a block's address records a (symbol, shift)
// token instead of a literal value, because block addresses are not known
// until every block is placed.
//
// Phase 2 (GenerateCodeForEvent) walks the event graph from a root event,
// selecting live systems, reserving temp scratch with a high-water-mark
// cursor, and running macro substitution over each action's text.
//
// Serialization (Segment.Dump) must run strictly after all generation for
// a scope completes; only then is the symbol table fully known and every
// forward reference resolvable.
//
// # Column Layout
//
// Fields are stored structure-of-arrays: each 8-bit slice of a field's
// packed width becomes its own lane array, named
// <Component>_<Field>_b<bitOffset> and holding one byte per entity in the
// field's id range. One index register therefore selects the same entity's
// byte across every lane array.
package compiler

import (
	"github.com/rs/zerolog"

	"github.com/retrozoo/ecsc/ecs"
	"github.com/retrozoo/ecsc/errz"
)

// Registry is the process-wide store of components, systems, and named
// scopes, plus the global set of every archetype ever interned. It is
// populated at construction time and must not be mutated once generation
// begins.
type Registry struct {
	components   map[string]*ecs.ComponentType
	systems      map[string]*ecs.System
	systemList   []*ecs.System
	scopes       map[string]*Scope
	archetypes   []*ecs.EntityArchetype
	archetypeIDs map[*ecs.EntityArchetype]int
	logger       zerolog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for non-fatal diagnostics. The default
// logger discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		components:   make(map[string]*ecs.ComponentType),
		systems:      make(map[string]*ecs.System),
		scopes:       make(map[string]*Scope),
		archetypeIDs: make(map[*ecs.EntityArchetype]int),
		logger:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// DefineComponent registers a component type by name. Redefinition fails.
func (r *Registry) DefineComponent(c *ecs.ComponentType) error {
	if _, ok := r.components[c.Name]; ok {
		return errz.Newf(errz.ErrDuplicate, "component %q is already defined", c.Name)
	}
	r.components[c.Name] = c
	return nil
}

// DefineSystem registers a system by name. Redefinition fails.
func (r *Registry) DefineSystem(s *ecs.System) error {
	if _, ok := r.systems[s.Name]; ok {
		return errz.Newf(errz.ErrDuplicate, "system %q is already defined", s.Name)
	}
	r.systems[s.Name] = s
	r.systemList = append(r.systemList, s)
	return nil
}

// Component returns a registered component type by name.
func (r *Registry) Component(name string) (*ecs.ComponentType, bool) {
	c, ok := r.components[name]
	return c, ok
}

// System returns a registered system by name.
func (r *Registry) System(name string) (*ecs.System, bool) {
	s, ok := r.systems[name]
	return s, ok
}

// Systems returns all systems in definition order.
func (r *Registry) Systems() []*ecs.System {
	out := make([]*ecs.System, len(r.systemList))
	copy(out, r.systemList)
	return out
}

// Scope returns a scope by name.
func (r *Registry) Scope(name string) (*Scope, bool) {
	s, ok := r.scopes[name]
	return s, ok
}

// NewScope creates a scope node and links it under parent (nil for a root
// scope). Scope names are unique within the registry.
func (r *Registry) NewScope(name string, parent *Scope) (*Scope, error) {
	if _, ok := r.scopes[name]; ok {
		return nil, errz.Newf(errz.ErrDuplicate, "scope %q is already defined", name)
	}
	s := newScope(r, name, parent)
	r.scopes[name] = s
	if parent != nil {
		parent.children = append(parent.children, s)
	}
	return s, nil
}

// internArchetype assigns the archetype its global handle on first use.
// Interning is a cross-scope side effect: every archetype any scope's
// entities ever referenced participates in query matching everywhere.
func (r *Registry) internArchetype(a *ecs.EntityArchetype) int {
	if id, ok := r.archetypeIDs[a]; ok {
		return id
	}
	id := len(r.archetypes) + 1
	r.archetypeIDs[a] = id
	r.archetypes = append(r.archetypes, a)
	return id
}

// ArchetypeID returns the handle assigned to an archetype, or false if no
// entity has referenced it yet.
func (r *Registry) ArchetypeID(a *ecs.EntityArchetype) (int, bool) {
	id, ok := r.archetypeIDs[a]
	return id, ok
}

// ArchetypeMatch pairs an archetype with the subset of its components
// selected by a query.
type ArchetypeMatch struct {
	Archetype  *ecs.EntityArchetype
	Components []*ecs.ComponentType
}

// ArchetypesMatching filters every archetype ever interned through the
// query's include/exclude lists and returns each archetype paired with the
// selected subset of its components. Archetypes contributing zero
// components are omitted.
func (r *Registry) ArchetypesMatching(q ecs.Query) []ArchetypeMatch {
	var out []ArchetypeMatch
	for _, a := range r.archetypes {
		var selected []*ecs.ComponentType
		for _, c := range a.Components {
			if q.Selects(c.Name) {
				selected = append(selected, c)
			}
		}
		if len(selected) > 0 {
			out = append(out, ArchetypeMatch{Archetype: a, Components: selected})
		}
	}
	return out
}

// ComponentWithFieldName returns the first component, in match order, that
// declares a field with the given name. Duplicate field names across
// components resolve to the first match.
func (r *Registry) ComponentWithFieldName(matches []ArchetypeMatch, fieldName string) (*ecs.ComponentType, *ecs.DataField, error) {
	for _, m := range matches {
		for _, c := range m.Components {
			if f := c.FieldByName(fieldName); f != nil {
				return c, f, nil
			}
		}
	}
	return nil, nil, errz.Newf(errz.ErrName, "no matched component declares field %q", fieldName)
}
