package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/daimatz/mirror/pkg/mirror"
)

// NewFindCommand creates the find command
func NewFindCommand(gf *globalFlags) *cobra.Command {
	var (
		binds      []string
		descriptor string
	)

	cmd := &cobra.Command{
		Use:   "find <class> <member>",
		Short: "Find a member by name in a class or its supertypes",
		Long: `Find the first member with the given name, searching the class and
then its supertypes.

Examples:
  mirror find java.util.ArrayList size
  mirror find java.util.ArrayList get --descriptor '(I)Ljava/lang/Object;' --bind E=java.lang.String`,
		Args: cobra.ExactArgs(2),
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

			tm, err := s.reflect(args[0], b)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			m, ok, err := tm.FindMember(args[1], descriptor)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			if !ok {
				return fmt.Errorf("%s has no member %s%s", tm, args[1], descriptor)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, m)
			fmt.Fprintf(w, "  %s %s\n", dimColor.Sprint("declared by"), m.DeclaringTypeName())
			fmt.Fprintf(w, "  %s %s\n", dimColor.Sprint("descriptor"), m.Descriptor())
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&binds, "bind", nil, "Bind a type parameter, NAME=TYPE (repeatable)")
	cmd.Flags().StringVar(&descriptor, "descriptor", "", "Raw JVM descriptor to match")

	return cmd
}
