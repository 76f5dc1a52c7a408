package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/daimatz/mirror/pkg/mirror"
)

// NewHierarchyCommand creates the hierarchy command
func NewHierarchyCommand(gf *globalFlags) *cobra.Command {
	var binds []string

	cmd := &cobra.Command{
		Use:   "hierarchy <class>...",
		Short: "List every supertype of a class with type arguments applied",
		Long: `List every supertype of a class with type arguments applied.

Superclasses come first, nearest first, followed by the interfaces in
breadth-first order.

Examples:
  mirror hierarchy java.util.ArrayList --bind E=java.lang.String`,
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
				if err != nil {
					errs = multierr.Append(errs, fmt.Errorf("%s: %w", name, err))
					continue
				}
				headerColor.Fprintln(w, tm.String())
				for _, ref := range tm.Supertypes() {
					word := "extends"
					st, err := s.mirror.ReflectType(ref)
					if err != nil {
						errs = multierr.Append(errs, fmt.Errorf("%s: %w", ref, err))
						continue
					}
					if st.IsInterface() {
						word = "implements"
					}
					fmt.Fprintf(w, "  %s %s\n", dimColor.Sprint(word), ref)
				}
			}
			return errs
		},
	}

	cmd.Flags().StringArrayVar(&binds, "bind", nil, "Bind a type parameter, NAME=TYPE (repeatable)")

	return cmd
}
