package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jbctechsolutions/wikisync/internal/domain/syncrun"
	"github.com/jbctechsolutions/wikisync/internal/presentation/cli/output"
)

// syncFlags are shared by sync and watch.
type syncFlags struct {
	team         string
	wip          bool
	dryRun       bool
	skipExisting bool
	token        string
}

func (f *syncFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.team, "team", "t", "", "esa.io team name (required)")
	cmd.Flags().BoolVarP(&f.wip, "wip", "w", false, "create new documents as work in progress")
	cmd.Flags().BoolVarP(&f.dryRun, "dry-run", "n", false, "report what would be synced without writing")
	cmd.Flags().BoolVarP(&f.skipExisting, "skip-existing", "i", false, "leave documents that already exist untouched")
	cmd.Flags().StringVar(&f.token, "token", "", "access token (overrides ESA_ACCESS_TOKEN)")
}

func (f *syncFlags) request(source, destination string) syncrun.Request {
	return syncrun.Request{
		SourceRoot:      source,
		DestinationRoot: destination,
		Team:            f.team,
		WIP:             f.wip,
		DryRun:          f.dryRun,
		SkipExisting:    f.skipExisting,
	}
}

// NewSyncCmd creates the sync command.
func NewSyncCmd() *cobra.Command {
	var flags syncFlags

	cmd := &cobra.Command{
		Use:   "sync <source> <destination>",
		Short: "Sync a directory into a wiki namespace",
		Long: `Sync every .txt and .md file under <source> into <destination>.

Files are processed newest first. A file at <source>/a/b.md lands at
<destination>/a/b. With --skip-existing, documents already present under
<destination> are left alone; with --dry-run nothing is written.`,
		Example: `  wikisync sync ./notes /docs/ -t myteam
  wikisync sync ./notes /docs/ -t myteam -n -i`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, flags.request(args[0], args[1]), flags.token)
		},
	}

	flags.bind(cmd)
	return cmd
}

func runSync(cmd *cobra.Command, req syncrun.Request, token string) error {
	container := GetContainer()
	if container == nil {
		return fmt.Errorf("application not initialized")
	}
	formatter := GetFormatter()

	if err := req.Validate(); err != nil {
		return err
	}

	orch, err := container.Orchestrator(token)
	if err != nil {
		return err
	}

	if !req.DryRun {
		runLock := container.NewRunLock()
		if err := runLock.Acquire(); err != nil {
			return err
		}
		defer runLock.Release()
	}

	report, err := orch.Sync(cmd.Context(), req)
	if renderErr := output.RenderReport(formatter, report); renderErr != nil && err == nil {
		err = renderErr
	}
	return err
}
