package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/retrozoo/ecsc"
	"github.com/retrozoo/ecsc/compiler"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "ecsc",
		Short:   "Compile entity-component-system projects to 8-bit assembly",
		Version: fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
	}
	rootCmd.PersistentFlags().String("log-level", "warn", "Log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("no-color", false, "Disable colored output")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		fatal(err)
	}

	// Both subcommands declare a scope/event flag, so per-command flags
	// are bound into viper only when the command actually runs.
	bindFlags := func(cmd *cobra.Command, args []string) {
		if err := viper.BindPFlags(cmd.Flags()); err != nil {
			fatal(err)
		}
	}

	buildCmd := &cobra.Command{
		Use:    "build <project.json>",
		Short:  "Analyze, generate, and emit assembly for one scope",
		Args:   cobra.ExactArgs(1),
		PreRun: bindFlags,
		Run:    buildHandler,
	}
	buildCmd.Flags().String("scope", "", "Scope to compile (default: first scope in the project)")
	buildCmd.Flags().String("event", ecsc.DefaultRootEvent, "Root event to generate from")
	buildCmd.Flags().StringP("out", "o", "", "Output file (default: stdout)")
	buildCmd.Flags().Int("data-org", 0, "Base address of the mutable segment")
	buildCmd.Flags().Int("code-org", 0, "Base address of the code segment")

	layoutCmd := &cobra.Command{
		Use:    "layout <project.json>",
		Short:  "Print a scope's layout report",
		Args:   cobra.ExactArgs(1),
		PreRun: bindFlags,
		Run:    layoutHandler,
	}
	layoutCmd.Flags().String("scope", "", "Scope to analyze (default: first scope in the project)")
	layoutCmd.Flags().String("event", ecsc.DefaultRootEvent, "Root event to size temp scratch against")
	layoutCmd.Flags().String("output", "json", "Output format (json, text)")

	rootCmd.AddCommand(buildCmd, layoutCmd)
	if err := rootCmd.Execute(); err != nil {
		fatal(err)
	}
}

func newLogger() zerolog.Logger {
	level, err := zerolog.ParseLevel(viper.GetString("log-level"))
	if err != nil {
		level = zerolog.WarnLevel
	}
	writer := zerolog.ConsoleWriter{Out: os.Stderr, NoColor: viper.GetBool("no-color") || !isTerminalIO()}
	return zerolog.New(writer).Level(level).With().Timestamp().Logger()
}

func loadScope(path string) (*compiler.Scope, error) {
	project, err := loadProject(path, newLogger())
	if err != nil {
		return nil, err
	}
	name := viper.GetString("scope")
	if name == "" {
		name = project.DefaultScope
	}
	scope, ok := project.Registry.Scope(name)
	if !ok {
		return nil, fmt.Errorf("scope %q is not defined in %s", name, path)
	}
	return scope, nil
}

func buildHandler(cmd *cobra.Command, args []string) {
	scope, err := loadScope(args[0])
	if err != nil {
		fatal(err)
	}
	opts := []ecsc.Option{ecsc.WithRootEvent(viper.GetString("event"))}
	if org := viper.GetInt("data-org"); org != 0 {
		opts = append(opts, ecsc.WithDataOrigin(org))
	}
	if org := viper.GetInt("code-org"); org != 0 {
		opts = append(opts, ecsc.WithCodeOrigin(org))
	}
	out := os.Stdout
	if path := viper.GetString("out"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			fatal(err)
		}
		defer f.Close()
		out = f
	}
	if err := ecsc.Build(out, scope, opts...); err != nil {
		fatal(err)
	}
}

func layoutHandler(cmd *cobra.Command, args []string) {
	scope, err := loadScope(args[0])
	if err != nil {
		fatal(err)
	}
	if err := scope.Analyze(); err != nil {
		fatal(err)
	}
	// Generate against the root event so the report includes the temp
	// high-water mark and referenced resources.
	if _, err := scope.GenerateCodeForEvent(viper.GetString("event")); err != nil {
		fatal(err)
	}
	scope.ReserveTemp()
	if err := printLayout(scope.Layout(), viper.GetString("output")); err != nil {
		fatal(err)
	}
}
