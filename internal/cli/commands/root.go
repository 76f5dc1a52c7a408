package commands

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/daimatz/mirror/pkg/mirrorerrors"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configFile string
	noColor    bool
	stats      bool
}

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	var gf globalFlags

	rootCmd := &cobra.Command{
		Use:   "mirror",
		Short: "Inspect JVM class files through typed, generic-aware mirrors",
		Long: color.CyanString(`mirror - reflective views over JVM class files

mirror reads classes from a java.base jmod, class directories and jar files,
and shows their declared and inherited members with type arguments applied.

Configuration comes from mirror.yaml, MIRROR_* environment variables
and the flags below, in increasing precedence.`),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if gf.noColor {
				color.NoColor = true
			}
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&gf.configFile, "config", "", "Path to the config file (default ./mirror.yaml)")
	flags.StringSlice("classpath", nil, "Class directories and jar files, searched in order")
	flags.String("jmod", "", "Path to java.base.jmod (default: discovered from JAVA_HOME)")
	flags.StringSlice("deny", nil, "Packages whose classes may not be mirrored")
	flags.String("log-level", "", "Log level: debug, info, warn or error")
	flags.BoolVar(&gf.noColor, "no-color", false, "Disable colored output")
	flags.BoolVar(&gf.stats, "stats", false, "Print mirror cache counters after the command")

	rootCmd.AddCommand(NewVersionCommand())
	rootCmd.AddCommand(NewInspectCommand(&gf))
	rootCmd.AddCommand(NewHierarchyCommand(&gf))
	rootCmd.AddCommand(NewMembersCommand(&gf))
	rootCmd.AddCommand(NewFindCommand(&gf))

	return rootCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			titleColor := color.New(color.FgCyan, color.Bold)
			out := cmd.OutOrStdout()

			titleColor.Fprint(out, "mirror version: ")
			fmt.Fprintln(out, Version)
			titleColor.Fprint(out, "Git commit: ")
			fmt.Fprintln(out, GitCommit)
			titleColor.Fprint(out, "Build date: ")
			fmt.Fprintln(out, BuildDate)
			titleColor.Fprint(out, "Go version: ")
			fmt.Fprintln(out, runtime.Version())
		},
	}
}

// Execute runs the root command
func Execute() error {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		printError(rootCmd, err)
		return err
	}
	return nil
}

// printError writes one line per aggregated error, tagged with its kind
// when it is a mirror failure.
func printError(cmd *cobra.Command, err error) {
	errorColor := color.New(color.FgRed, color.Bold)
	for _, e := range multierr.Errors(err) {
		var me *mirrorerrors.Error
		if errors.As(e, &me) {
			errorColor.Fprintf(cmd.ErrOrStderr(), "Error [%s]: %v\n", me.Kind().TypeName(), e)
			continue
		}
		errorColor.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", e)
	}
}
