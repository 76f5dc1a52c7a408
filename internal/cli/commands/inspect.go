package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/daimatz/mirror/pkg/mirror"
)

var (
	headerColor  = color.New(color.FgCyan, color.Bold)
	sectionColor = color.New(color.FgGreen)
	dimColor     = color.New(color.Faint)
)

// NewInspectCommand creates the inspect command
func NewInspectCommand(gf *globalFlags) *cobra.Command {
	var binds []string

	cmd := &cobra.Command{
		Use:   "inspect <class>...",
		Short: "Show a class with its supertypes and declared members",
		Long: `Show a class with its supertypes and declared members.

Type arguments given with --bind are applied to every member type.

Examples:
  mirror inspect java.util.ArrayList
  mirror inspect java.util.ArrayList --bind E=java.lang.String
  mirror inspect java/util/Map --bind K=java.lang.String --bind 'V=Ljava/util/List<Ljava/lang/Integer;>;'`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := mirror.ParseBindings(binds)
			if err != nil {
				return err
			}
			s, err := newSession(cmd, gf)
			if err != nil {
				return err
			}
			defer s.close(cmd.ErrOrStderr())

			var errs error
			for _, name := range args {
				tm, err := s.reflect(name, b)
				if err != nil {
					errs = multierr.Append(errs, fmt.Errorf("%s: %w", name, err))
					continue
				}
				printType(cmd.OutOrStdout(), tm)
			}
			return errs
		},
	}

	cmd.Flags().StringArrayVar(&binds, "bind", nil, "Bind a type parameter, NAME=TYPE (repeatable)")

	return cmd
}

func printType(w io.Writer, tm *mirror.TypeMirror) {
	header := tm.Modifiers().String()
	if header != "" {
		header += " "
	}
	header += kindWord(tm) + " " + tm.String()
	headerColor.Fprintln(w, header)

	if params := tm.TypeParameters(); len(params) > 0 {
		parts := make([]string, len(params))
		for i, p := range params {
			parts[i] = p.String()
		}
		fmt.Fprintf(w, "  type parameters: <%s>\n", strings.Join(parts, ", "))
	}
	if sup, ok := tm.Superclass(); ok {
		fmt.Fprintf(w, "  extends %s\n", sup)
	}
	if ifaces := tm.Interfaces(); len(ifaces) > 0 {
		parts := make([]string, len(ifaces))
		for i, ref := range ifaces {
			parts[i] = ref.String()
		}
		fmt.Fprintf(w, "  implements %s\n", strings.Join(parts, ", "))
	}
	if outer, ok := tm.EnclosingType(); ok {
		dimColor.Fprintf(w, "  enclosed by %s\n", outer)
	}
	for _, a := range tm.Annotations() {
		fmt.Fprintf(w, "  %s\n", a)
	}

	if fields := tm.Fields(); len(fields) > 0 {
		sectionColor.Fprintln(w, "  fields:")
		for _, f := range fields {
			line := f.String()
			if v, ok := f.ConstantValue(); ok {
				line += fmt.Sprintf(" = %#v", v)
			}
			fmt.Fprintf(w, "    %s\n", line)
		}
	}
	if ctors := tm.Constructors(); len(ctors) > 0 {
		sectionColor.Fprintln(w, "  constructors:")
		for _, c := range ctors {
			fmt.Fprintf(w, "    %s\n", c)
		}
	}
	if methods := tm.Methods(); len(methods) > 0 {
		sectionColor.Fprintln(w, "  methods:")
		for _, m := range methods {
			line := m.String()
			if m.IsBridge() {
				line += dimColor.Sprint(" (bridge)")
			}
			fmt.Fprintf(w, "    %s\n", line)
		}
	}
}

func kindWord(tm *mirror.TypeMirror) string {
	switch {
	case tm.IsAnnotation():
		return "@interface"
	case tm.IsInterface():
		return "interface"
	case tm.IsEnum():
		return "enum"
	case tm.IsRecord():
		return "record"
	default:
		return "class"
	}
}
