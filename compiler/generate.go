package compiler

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/retrozoo/ecsc/ecs"
	"github.com/retrozoo/ecsc/errz"
)

// macroToken matches substitution tokens of the form %{cmd payload}.
var macroToken = regexp.MustCompile(`%\{(.*?)\}`)

// GenerateCodeForEvent expands the event graph rooted at event into
// ordered instruction text. Systems are selected by liveness: a system
// participates only when it has an action bound to the event and its query
// matches an archetype contributing a component present among this scope's
// entities. An event with no live handler is a logged warning, not an
// error, and contributes empty text.
//
// Events reachable both through a system's emits list and through %{!event}
// tokens are expanded once per occurrence; the two paths are not
// deduplicated. A cyclic emits/%{!event} reference is detected and reported
// as an error rather than expanding without bound.
func (s *Scope) GenerateCodeForEvent(event string) (string, error) {
	if !s.analyzed {
		return "", errz.Newf(errz.ErrLayout, "analyze must run before generation").WithScope(s.name)
	}
	if s.generating[event] {
		return "", errz.Newf(errz.ErrCycle, "cyclic expansion of event %q", event).
			WithScope(s.name).WithEvent(event)
	}
	s.generating[event] = true
	defer delete(s.generating, event)

	systems := s.liveSystems(event)
	if len(systems) == 0 {
		s.logger.Warn().Str("event", event).Msg("no live system handles event")
		return "", nil
	}

	var out strings.Builder
	emitted := make(map[string]string)
	for _, sys := range systems {
		text, err := s.generateSystem(sys, event, emitted)
		if err != nil {
			return "", err
		}
		out.WriteString(text)
	}
	return out.String(), nil
}

// liveSystems returns, in definition order, every system with at least one
// action bound to event whose query matches an archetype contributing a
// component present in this scope. Systems failing the liveness test are
// silently skipped: a system irrelevant to a scope's entities never
// contributes code there.
func (s *Scope) liveSystems(event string) []*ecs.System {
	var out []*ecs.System
	for _, sys := range s.registry.Systems() {
		if !sys.ListensTo(event) {
			continue
		}
		if s.systemIsLive(sys) {
			out = append(out, sys)
		}
	}
	return out
}

func (s *Scope) systemIsLive(sys *ecs.System) bool {
	for _, m := range s.registry.ArchetypesMatching(sys.Query) {
		for _, c := range m.Components {
			if s.inScope[c.Name] {
				return true
			}
		}
	}
	return false
}

// generateSystem expands one live system at one event. The system's temp
// bytes are added to the scope's cursor before its emits and actions are
// expanded and rolled back on every exit path, so temp storage from an
// emitted sub-event must not be assumed to survive past its substitution
// point.
func (s *Scope) generateSystem(sys *ecs.System, event string, emitted map[string]string) (string, error) {
	base := s.tempCursor
	if sys.TempBytes > 0 {
		s.tempCursor += sys.TempBytes
		if s.tempCursor > s.tempMax {
			s.tempMax = s.tempCursor
		}
	}
	defer func() { s.tempCursor = base }()

	// Pre-pass over the system's emits. The expansion sizes temp scratch
	// and surfaces missing handlers; action text inlines sub-events itself
	// via %{!event} tokens, independently of this pass.
	for _, sub := range sys.Emits {
		if _, ok := emitted[sub]; ok {
			s.logger.Warn().
				Str("event", event).
				Str("subevent", sub).
				Str("system", sys.Name).
				Msg("sub-event emitted by more than one system")
		}
		code, err := s.GenerateCodeForEvent(sub)
		if err != nil {
			return "", err
		}
		emitted[sub] = code
	}

	var out strings.Builder
	for _, action := range sys.Actions {
		if action.Event != event {
			continue
		}
		code, err := s.replaceCode(action.Text, sys, action, base)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&out, "; begin action %s %s\n", sys.Name, event)
		out.WriteString(code)
		if !strings.HasSuffix(code, "\n") {
			out.WriteString("\n")
		}
		fmt.Fprintf(&out, "; end action %s %s\n", sys.Name, event)
	}
	return out.String(), nil
}

// replaceCode runs macro substitution over an action's template. For
// each-iterated actions the template is first wrapped in a loop that walks
// the index register from 0 over the contiguous id run of the entities the
// system's query matches in this scope; lane references then carry the
// run's displacement from each range's base.
func (s *Scope) replaceCode(template string, sys *ecs.System, action ecs.CodeFragment, tempBase int) (string, error) {
	loopLo, loopHi := -1, -1
	if action.Iterate == ecs.Each {
		lo, hi, err := s.entityRange(sys.Query)
		if err != nil {
			return "", err.(*errz.CompileError).WithSystem(sys.Name).WithEvent(action.Event)
		}
		template = s.wrapLoop(template, sys, action.Event, hi-lo+1)
		loopLo, loopHi = lo, hi
	}
	var firstErr error
	out := macroToken.ReplaceAllStringFunc(template, func(token string) string {
		body := token[2 : len(token)-1]
		repl, err := s.expandToken(body, token, sys, action, tempBase, loopLo, loopHi)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			return token
		}
		return repl
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}

func (s *Scope) expandToken(body, token string, sys *ecs.System, action ecs.CodeFragment, tempBase, loopLo, loopHi int) (string, error) {
	if body == "" {
		s.logger.Warn().Str("system", sys.Name).Str("token", token).Msg("empty macro token")
		return token, nil
	}
	payload := body[1:]
	switch body[0] {
	case '!':
		return s.GenerateCodeForEvent(payload)
	case '.':
		return fmt.Sprintf("%s_%s_%s", sys.Name, action.Event, payload), nil
	case '$':
		n, err := strconv.Atoi(payload)
		if err != nil {
			return "", errz.Newf(errz.ErrName, "bad temp offset in token %q", token).
				WithScope(s.name).WithSystem(sys.Name).WithEvent(action.Event)
		}
		return fmt.Sprintf("%s+%d", TempSymbol, tempBase+n), nil
	case '<':
		return s.fieldLaneRef(sys, action, payload, 0, loopLo, loopHi)
	case '>':
		return s.fieldLaneRef(sys, action, payload, 8, loopLo, loopHi)
	case '^':
		s.markResource(payload)
		return payload, nil
	default:
		s.logger.Warn().
			Str("system", sys.Name).
			Str("event", action.Event).
			Str("token", token).
			Msg("unrecognized macro command, left verbatim")
		return token, nil
	}
}

// fieldLaneRef resolves a field name to one of its byte-lane symbols. The
// field is looked up among the components matched by the system's query,
// then located in whichever of the scope's segments holds a range for it
// (mutable first). Each-iterated actions get an indexed-addressing suffix;
// since the loop register runs from 0, the operand also carries the run's
// displacement from the range's first entity, so the same index selects
// the same entity's byte across every referenced lane array.
func (s *Scope) fieldLaneRef(sys *ecs.System, action ecs.CodeFragment, fieldName string, bitOffset, loopLo, loopHi int) (string, error) {
	matches := s.registry.ArchetypesMatching(sys.Query)
	comp, field, err := s.registry.ComponentWithFieldName(matches, fieldName)
	if err != nil {
		return "", err.(*errz.CompileError).
			WithScope(s.name).WithSystem(sys.Name).WithEvent(action.Event)
	}
	fr, ok := s.mutable.FieldRange(comp.Name, field.Name)
	if !ok {
		fr, ok = s.constant.FieldRange(comp.Name, field.Name)
	}
	if !ok {
		return "", errz.Newf(errz.ErrName, "field %s.%s is not allocated in this scope", comp.Name, field.Name).
			WithScope(s.name).WithSystem(sys.Name).WithEvent(action.Event)
	}
	if bitOffset >= fr.Lanes*8 {
		return "", errz.Newf(errz.ErrName, "field %s.%s has no byte lane at bit %d", comp.Name, field.Name, bitOffset).
			WithScope(s.name).WithSystem(sys.Name).WithEvent(action.Event)
	}
	sym := laneSymbol(comp.Name, field.Name, bitOffset)
	if action.Iterate == ecs.Each {
		if loopLo < fr.MinID || loopHi > fr.MaxID {
			return "", errz.Newf(errz.ErrLayout,
				"loop over ids %d..%d leaves the allocated range %d..%d of field %s.%s",
				loopLo, loopHi, fr.MinID, fr.MaxID, comp.Name, field.Name).
				WithScope(s.name).WithSystem(sys.Name).WithEvent(action.Event)
		}
		if delta := loopLo - fr.MinID; delta > 0 {
			sym = fmt.Sprintf("%s+%d", sym, delta)
		}
		sym += ",x"
	}
	return sym, nil
}

// wrapLoop wraps a template in a fixed count-iteration loop. The index
// register runs 0..count-1, a position within the matched run rather than
// an absolute entity id; lane operands absorb the difference.
func (s *Scope) wrapLoop(template string, sys *ecs.System, event string, count int) string {
	label := fmt.Sprintf("%s__%s__each", sys.Name, event)
	var b strings.Builder
	b.WriteString("\tldx #0\n")
	fmt.Fprintf(&b, "%s:\n", label)
	b.WriteString(template)
	if !strings.HasSuffix(template, "\n") {
		b.WriteString("\n")
	}
	b.WriteString("\tinx\n")
	fmt.Fprintf(&b, "\tcpx #%d\n", count)
	fmt.Fprintf(&b, "\tbne %s\n", label)
	return b.String()
}

// entityRange returns the id bounds of the entities whose archetype the
// query matches. Loop emission relies on those entities occupying one
// contiguous id run; a gap is reported as an error rather than silently
// emitting a loop that touches foreign entities.
func (s *Scope) entityRange(q ecs.Query) (int, int, error) {
	matched := make(map[*ecs.EntityArchetype]bool)
	for _, m := range s.registry.ArchetypesMatching(q) {
		matched[m.Archetype] = true
	}
	lo, hi := -1, -1
	for _, e := range s.entities {
		if !matched[e.Archetype] {
			continue
		}
		if lo < 0 {
			lo = e.ID
		} else if e.ID != hi+1 {
			return 0, 0, errz.Newf(errz.ErrLayout,
				"matched entities do not form a contiguous id range (gap before id %d)", e.ID).
				WithScope(s.name)
		}
		hi = e.ID
	}
	if lo < 0 {
		return 0, 0, errz.Newf(errz.ErrLayout, "no entities match query").WithScope(s.name)
	}
	return lo, hi, nil
}
