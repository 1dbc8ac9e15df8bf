// Package emit serializes a scope's segments and generated code into an
// assembly-style text document for the target assembler: a fixed header, a
// mutable-storage segment at a data origin, a code segment holding
// generated instructions and constant data at a code origin, and a footer
// installing the reset and interrupt vectors.
package emit

import (
	"fmt"
	"io"

	"github.com/retrozoo/ecsc/compiler"
)

const (
	// DefaultDataOrigin is the base address of the mutable segment.
	DefaultDataOrigin = 0x80
	// DefaultCodeOrigin is the base address of the code segment.
	DefaultCodeOrigin = 0xf000
	// VectorOrigin is the address of the NMI/reset/IRQ vector table.
	VectorOrigin = 0xfffa
	// StartSymbol labels the program entry point installed in the vectors.
	StartSymbol = "Start"
)

// Config holds emitter settings. Pass nil to Scope for defaults.
type Config struct {
	// DataOrigin is the base address of the mutable segment.
	DataOrigin int

	// CodeOrigin is the base address of the code segment.
	CodeOrigin int

	// Comment, when non-empty, is written as a leading comment line.
	Comment string
}

func (c *Config) dataOrigin() int {
	if c == nil || c.DataOrigin == 0 {
		return DefaultDataOrigin
	}
	return c.DataOrigin
}

func (c *Config) codeOrigin() int {
	if c == nil || c.CodeOrigin == 0 {
		return DefaultCodeOrigin
	}
	return c.CodeOrigin
}

// Scope writes the complete assembly document for one scope. The code
// argument is the scope's generated instruction text; it must come from a
// completed generation pass, since segment serialization requires the
// symbol table to be fully known.
func Scope(w io.Writer, s *compiler.Scope, code string, cfg *Config) error {
	if cfg != nil && cfg.Comment != "" {
		if _, err := fmt.Fprintf(w, "; %s\n", cfg.Comment); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "\tprocessor 6502\n\n"); err != nil {
		return err
	}

	// Mutable storage: uninitialized, fixed base origin.
	if _, err := fmt.Fprintf(w, "\tseg.u Data\n\torg $%04x\n", cfg.dataOrigin()); err != nil {
		return err
	}
	if err := s.Mutable().Dump(w); err != nil {
		return err
	}

	// Code and constant data.
	if _, err := fmt.Fprintf(w, "\n\tseg Code\n\torg $%04x\n", cfg.codeOrigin()); err != nil {
		return err
	}
	if resources := s.Resources(); len(resources) > 0 {
		for _, name := range resources {
			if _, err := fmt.Fprintf(w, "; external: %s\n", name); err != nil {
				return err
			}
		}
	}
	if _, err := fmt.Fprintf(w, "%s:\n", StartSymbol); err != nil {
		return err
	}
	if _, err := io.WriteString(w, code); err != nil {
		return err
	}
	if code != "" && code[len(code)-1] != '\n' {
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
	}
	if err := s.Constant().Dump(w); err != nil {
		return err
	}

	// Interrupt vectors: NMI, reset, IRQ all enter at Start.
	_, err := fmt.Fprintf(w, "\n\torg $%04x\n\t.word %s\n\t.word %s\n\t.word %s\n",
		VectorOrigin, StartSymbol, StartSymbol, StartSymbol)
	return err
}
