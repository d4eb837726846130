package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jbctechsolutions/wikisync/internal/application/ports"
	"github.com/jbctechsolutions/wikisync/internal/presentation/cli/output"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent sync runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ledger, err := historyLedger()
			if err != nil {
				return err
			}
			runs, err := ledger.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return output.RenderRuns(GetFormatter(), runs)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "number of runs to show (0 for all)")
	cmd.AddCommand(newHistoryShowCmd())
	return cmd
}

func newHistoryShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "List the file outcomes of one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ledger, err := historyLedger()
			if err != nil {
				return err
			}
			files, err := ledger.RunFiles(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(files) == 0 && !GetFormatter().IsJSON() {
				return fmt.Errorf("no files recorded for run %s", args[0])
			}
			return output.RenderRunFiles(GetFormatter(), args[0], files)
		},
	}
}

func historyLedger() (ports.LedgerPort, error) {
	container := GetContainer()
	if container == nil {
		return nil, fmt.Errorf("application not initialized")
	}
	return container.Ledger()
}
