package compiler

import (
	"github.com/rs/zerolog"

	"github.com/retrozoo/ecsc/ecs"
	"github.com/retrozoo/ecsc/errz"
)

// TempSymbol is the mutable-segment symbol under which the scope's shared
// temp-scratch region is reserved.
const TempSymbol = "TEMP"

// Scope is a node in the tree of entity containers. It owns its entities,
// its mutable and constant segments, its temp-scratch cursor, and the set
// of component names its entities reference (the liveness gate for
// systems). Layout state is derived and scope-local; it is never shared
// across sibling scopes.
type Scope struct {
	registry *Registry
	name     string
	parent   *Scope
	children []*Scope
	logger   zerolog.Logger

	entities []*ecs.Entity
	inScope  map[string]bool

	mutable  *Segment
	constant *Segment
	analyzed bool

	// Temp-scratch bookkeeping. tempCursor is the next free offset within
	// the shared scratch region; tempMax is its high-water mark and
	// becomes the region's reserved size.
	tempCursor int
	tempMax    int

	resources     map[string]bool
	resourceOrder []string
	generating    map[string]bool
}

func newScope(r *Registry, name string, parent *Scope) *Scope {
	return &Scope{
		registry:   r,
		name:       name,
		parent:     parent,
		logger:     r.logger.With().Str("scope", name).Logger(),
		inScope:    make(map[string]bool),
		mutable:    NewSegment("mutable"),
		constant:   NewSegment("constant"),
		resources:  make(map[string]bool),
		generating: make(map[string]bool),
	}
}

// Name returns the scope name.
func (s *Scope) Name() string {
	return s.name
}

// Parent returns the parent scope, or nil for a root scope.
func (s *Scope) Parent() *Scope {
	return s.parent
}

// Children returns the child scopes in creation order.
func (s *Scope) Children() []*Scope {
	out := make([]*Scope, len(s.children))
	copy(out, s.children)
	return out
}

// Registry returns the owning registry.
func (s *Scope) Registry() *Registry {
	return s.registry
}

// Mutable returns the zero-initialized storage segment.
func (s *Scope) Mutable() *Segment {
	return s.mutable
}

// Constant returns the read-only storage segment.
func (s *Scope) Constant() *Segment {
	return s.constant
}

// Entities returns the scope's entities in id order.
func (s *Scope) Entities() []*ecs.Entity {
	out := make([]*ecs.Entity, len(s.entities))
	copy(out, s.entities)
	return out
}

// EntityCount returns the number of entities created in this scope.
func (s *Scope) EntityCount() int {
	return len(s.entities)
}

// NewEntity creates an entity with the next sequential id, interns the
// archetype into the registry's global set, and records the archetype's
// component names as in scope. Entities are append-only and freeze once
// layout analysis runs. For each-iteration loop bounds to be correct,
// entities of one archetype must be created contiguously.
func (s *Scope) NewEntity(archetype *ecs.EntityArchetype) (*ecs.Entity, error) {
	if s.analyzed {
		return nil, errz.Newf(errz.ErrLayout, "entities are frozen after analysis").WithScope(s.name)
	}
	s.registry.internArchetype(archetype)
	e := &ecs.Entity{
		ID:        len(s.entities),
		Archetype: archetype,
	}
	s.entities = append(s.entities, e)
	for _, c := range archetype.Components {
		s.inScope[c.Name] = true
	}
	return e, nil
}

// HasComponent reports whether any entity in this scope carries the named
// component.
func (s *Scope) HasComponent(name string) bool {
	return s.inScope[name]
}

// TempBytes returns the high-water mark of the temp-scratch cursor: the
// size of the shared scratch region the scope needs.
func (s *Scope) TempBytes() int {
	return s.tempMax
}

// ReserveTemp allocates the scope's shared temp-scratch region in the
// mutable segment, sized to the cursor's high-water mark. It must be
// called after all generation for the scope completes and does nothing
// when no live system declared temp bytes.
func (s *Scope) ReserveTemp() {
	if s.tempMax > 0 {
		s.mutable.AllocateBytes(TempSymbol, s.tempMax)
	}
}

// Resources returns the external subroutines and resources referenced via
// ^name macro tokens, in first-reference order.
func (s *Scope) Resources() []string {
	out := make([]string, len(s.resourceOrder))
	copy(out, s.resourceOrder)
	return out
}

func (s *Scope) markResource(name string) {
	if !s.resources[name] {
		s.resources[name] = true
		s.resourceOrder = append(s.resourceOrder, name)
	}
}
