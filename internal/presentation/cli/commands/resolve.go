package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jbctechsolutions/wikisync/internal/domain/document"
	"github.com/jbctechsolutions/wikisync/internal/presentation/cli/output"
)

// NewResolveCmd creates the resolve command.
func NewResolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve <source> <destination> [path...]",
		Short: "Show where local files would land in the wiki",
		Long: `Print the category and title each file maps to, without contacting
the wiki. With no paths, every file under <source> is resolved in sync
order.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			container := GetContainer()
			if container == nil {
				return fmt.Errorf("application not initialized")
			}
			source, destination := args[0], args[1]

			paths := args[2:]
			if len(paths) == 0 {
				files, err := container.Files().Discover(source)
				if err != nil {
					return err
				}
				for _, f := range files {
					paths = append(paths, f.Path)
				}
			}

			resolved := make([]output.ResolvedPath, 0, len(paths))
			for _, p := range paths {
				resolved = append(resolved, output.ResolvedPath{
					Path:     p,
					Identity: document.Resolve(p, source, destination),
				})
			}
			return output.RenderResolved(GetFormatter(), resolved)
		},
	}
	return cmd
}
