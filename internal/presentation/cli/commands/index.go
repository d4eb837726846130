package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jbctechsolutions/wikisync/internal/domain/errors"
	"github.com/jbctechsolutions/wikisync/internal/domain/syncrun"
	"github.com/jbctechsolutions/wikisync/internal/presentation/cli/output"
)

// NewIndexCmd creates the index command.
func NewIndexCmd() *cobra.Command {
	var (
		team  string
		token string
	)

	cmd := &cobra.Command{
		Use:   "index <destination>",
		Short: "List the documents already present under a namespace",
		Long: `List every document under <destination>, the same listing sync uses
for --skip-existing. Requests are paced like a sync run.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			container := GetContainer()
			if container == nil {
				return fmt.Errorf("application not initialized")
			}

			if team == "" {
				return errors.NewError(errors.CodeConfiguration, `team name "" is empty`, errors.ErrTeamEmpty)
			}
			namespace := syncrun.Request{DestinationRoot: args[0]}.SearchNamespace()

			orch, err := container.Orchestrator(token)
			if err != nil {
				return err
			}

			index, err := orch.Index().ListExisting(cmd.Context(), team, namespace)
			if err != nil {
				return err
			}
			return output.RenderIndex(GetFormatter(), namespace, index.Documents())
		},
	}

	cmd.Flags().StringVarP(&team, "team", "t", "", "esa.io team name (required)")
	cmd.Flags().StringVar(&token, "token", "", "access token (overrides ESA_ACCESS_TOKEN)")
	return cmd
}
