package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/daimatz/mirror/pkg/mirror"
)

// NewMembersCommand creates the members command
func NewMembersCommand(gf *globalFlags) *cobra.Command {
	var (
		binds     []string
		inherited bool
	)

	cmd := &cobra.Command{
		Use:   "members <class>...",
		Short: "List declared and inherited members",
		Long: `List the members of a class followed by those of every supertype.

With --inherited, list only the methods the class inherits and does not
declare, with the types that declare them.

Examples:
  mirror members java.util.ArrayList
  mirror members java.util.ArrayList --inherited --bind E=java.lang.String`,
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

			w := cmd.OutOrStdout()
			var errs error
			for _, name := range args {
				tm, err := s.reflect(name, b)
				if err == nil {
					headerColor.Fprintln(w, tm.String())
					if inherited {
						err = printInherited(w, tm)
					} else {
						err = printMembers(w, tm)
					}
				}
				if err != nil {
					errs = multierr.Append(errs, fmt.Errorf("%s: %w", name, err))
				}
			}
			return errs
		},
	}

	cmd.Flags().StringArrayVar(&binds, "bind", nil, "Bind a type parameter, NAME=TYPE (repeatable)")
	cmd.Flags().BoolVar(&inherited, "inherited", false, "List only inherited methods")

	return cmd
}

func printMembers(w io.Writer, tm *mirror.TypeMirror) error {
	for m, err := range tm.AllMembers() {
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "  %-11s %s\n", dimColor.Sprint(m.Kind()), m)
	}
	return nil
}

func printInherited(w io.Writer, tm *mirror.TypeMirror) error {
	methods, err := tm.InheritedMethods()
	if err != nil {
		return err
	}
	for _, im := range methods {
		from := strings.Join(im.DeclaringTypes, ", ")
		if im.MultiplyInherited {
			from = sectionColor.Sprint("multiple: ") + from
		}
		fmt.Fprintf(w, "  %s %s\n", im.Method, dimColor.Sprintf("(from %s)", from))
	}
	return nil
}
