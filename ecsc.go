// Package ecsc compiles a statically-known set of entities, components,
// and event-triggered systems into a flat memory layout and straight-line
// assembly text for an extremely resource-constrained 8-bit target.
//
// The front end (or a project file loaded by cmd/ecsc) populates a
// compiler.Registry with component and system definitions and creates
// entities through scopes. Build then runs the full pipeline for one
// scope: layout analysis, event-graph code generation from a root event,
// temp-scratch reservation, and serialization.
package ecsc

import (
	"io"

	"github.com/retrozoo/ecsc/compiler"
	"github.com/retrozoo/ecsc/emit"
)

// Build analyzes the scope, generates code starting from the configured
// root event, and writes the complete assembly document to w.
func Build(w io.Writer, scope *compiler.Scope, opts ...Option) error {
	cfg := newConfig(opts...)
	if err := scope.Analyze(); err != nil {
		return err
	}
	code, err := scope.GenerateCodeForEvent(cfg.rootEvent)
	if err != nil {
		return err
	}
	// The temp region's size is the cursor's high-water mark, known only
	// once generation completes.
	scope.ReserveTemp()
	return emit.Scope(w, scope, code, &emit.Config{
		DataOrigin: cfg.dataOrigin,
		CodeOrigin: cfg.codeOrigin,
		Comment:    cfg.comment,
	})
}
