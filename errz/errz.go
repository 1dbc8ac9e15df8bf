// Package errz defines the structured error type used across layout
// analysis and code generation. Every fatal failure carries an ErrorKind
// and the scope/system/event context it occurred in, so callers can
// distinguish structural problems (duplicate names, unresolved lookups,
// out-of-range bytes) without string matching.
package errz

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind represents the category of a compilation error.
type ErrorKind int

const (
	// ErrDuplicate indicates a duplicate component, system, or scope name.
	ErrDuplicate ErrorKind = iota
	// ErrName indicates an unresolved name lookup, such as a macro token
	// naming a field no matched component declares.
	ErrName
	// ErrValue indicates a value outside its representable range, such as
	// an output byte outside [0, 255].
	ErrValue
	// ErrLayout indicates a layout or allocation failure.
	ErrLayout
	// ErrCycle indicates a cyclic event expansion detected during
	// generation.
	ErrCycle
)

// String returns the string representation of the error kind.
func (k ErrorKind) String() string {
	switch k {
	case ErrDuplicate:
		return "duplicate definition"
	case ErrName:
		return "name error"
	case ErrValue:
		return "value error"
	case ErrLayout:
		return "layout error"
	case ErrCycle:
		return "cycle error"
	default:
		return "error"
	}
}

// CompileError is a structured compilation error with the context needed
// for actionable diagnostics.
type CompileError struct {
	Kind    ErrorKind
	Message string
	Scope   string
	System  string
	Event   string
	Cause   error
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	ctx := e.context()
	if ctx == "" {
		return fmt.Sprintf("%s: %s", e.Kind.String(), e.Message)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Kind.String(), e.Message, ctx)
}

func (e *CompileError) context() string {
	var parts []string
	if e.Scope != "" {
		parts = append(parts, "scope "+e.Scope)
	}
	if e.System != "" {
		parts = append(parts, "system "+e.System)
	}
	if e.Event != "" {
		parts = append(parts, "event "+e.Event)
	}
	return strings.Join(parts, ", ")
}

// Unwrap returns the underlying cause of the error.
func (e *CompileError) Unwrap() error {
	return e.Cause
}

// FriendlyErrorMessage returns a human-friendly multi-line rendering of
// the error.
func (e *CompileError) FriendlyErrorMessage() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s\n", e.Kind.String(), e.Message)
	if e.Scope != "" {
		fmt.Fprintf(&b, "  scope:  %s\n", e.Scope)
	}
	if e.System != "" {
		fmt.Fprintf(&b, "  system: %s\n", e.System)
	}
	if e.Event != "" {
		fmt.Fprintf(&b, "  event:  %s\n", e.Event)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, "  cause:  %s\n", e.Cause.Error())
	}
	return b.String()
}

// New creates a CompileError with the given kind and message.
func New(kind ErrorKind, message string) *CompileError {
	return &CompileError{Kind: kind, Message: message}
}

// Newf creates a CompileError with a formatted message.
func Newf(kind ErrorKind, format string, args ...any) *CompileError {
	return &CompileError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WithScope attaches the scope name and returns the error.
func (e *CompileError) WithScope(name string) *CompileError {
	e.Scope = name
	return e
}

// WithSystem attaches the system name and returns the error.
func (e *CompileError) WithSystem(name string) *CompileError {
	e.System = name
	return e
}

// WithEvent attaches the event name and returns the error.
func (e *CompileError) WithEvent(name string) *CompileError {
	e.Event = name
	return e
}

// WithCause wraps the error with a cause.
func (e *CompileError) WithCause(cause error) *CompileError {
	e.Cause = cause
	return e
}

// IsKind reports whether err is (or wraps) a CompileError of the given
// kind.
func IsKind(err error, kind ErrorKind) bool {
	var ce *CompileError
	if errors.As(err, &ce) {
		return ce.Kind == kind
	}
	return false
}
