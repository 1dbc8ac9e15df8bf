package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/hokaccha/go-prettyjson"
	"github.com/mattn/go-isatty"
	"github.com/spf13/viper"

	"github.com/retrozoo/ecsc/compiler"
)

var red = color.New(color.FgRed).SprintFunc()

func fatal(msg interface{}) {
	var s string
	switch msg := msg.(type) {
	case string:
		s = msg
	case error:
		s = msg.Error()
	default:
		s = fmt.Sprintf("%v", msg)
	}
	fmt.Fprintf(os.Stderr, "%s\n", red(s))
	os.Exit(1)
}

func isTerminalIO() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func printLayout(report compiler.LayoutReport, format string) error {
	switch format {
	case "json":
		var (
			out []byte
			err error
		)
		if isTerminalIO() && !viper.GetBool("no-color") {
			out, err = prettyjson.Marshal(report)
		} else {
			f := prettyjson.NewFormatter()
			f.DisabledColor = true
			out, err = f.Marshal(report)
		}
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	case "text":
		bold := color.New(color.Bold).SprintFunc()
		fmt.Printf("%s (%d entities, %d temp bytes)\n", bold(report.Scope), report.Entities, report.TempBytes)
		for _, seg := range report.Segments {
			fmt.Printf("  segment %s: %d bytes\n", seg.Name, seg.Size)
			for _, sym := range seg.Symbols {
				fmt.Printf("    %04x  %s (%d)\n", sym.Offset, sym.Name, sym.Size)
			}
		}
		for _, name := range report.Resources {
			fmt.Printf("  external: %s\n", name)
		}
		return nil
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
