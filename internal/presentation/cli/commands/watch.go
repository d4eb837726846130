package commands

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jbctechsolutions/wikisync/internal/application"
	"github.com/jbctechsolutions/wikisync/internal/application/syncer"
	"github.com/jbctechsolutions/wikisync/internal/domain/document"
	"github.com/jbctechsolutions/wikisync/internal/domain/syncrun"
	"github.com/jbctechsolutions/wikisync/internal/infrastructure/watch"
	"github.com/jbctechsolutions/wikisync/internal/presentation/cli/output"
)

// NewWatchCmd creates the watch command.
func NewWatchCmd() *cobra.Command {
	var flags syncFlags

	cmd := &cobra.Command{
		Use:   "watch <source> <destination>",
		Short: "Sync a directory, then keep syncing files as they change",
		Long: `Run a full sync, then watch <source> and sync changed files only.

Changes are debounced (watch.debounce) so an editor saving a file several
times produces one write. Removed files are not deleted from the wiki.
Stop with Ctrl-C.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, flags.request(args[0], args[1]), flags.token)
		},
	}

	flags.bind(cmd)
	return cmd
}

func runWatch(cmd *cobra.Command, req syncrun.Request, token string) error {
	container := GetContainer()
	if container == nil {
		return fmt.Errorf("application not initialized")
	}
	formatter := GetFormatter()
	ctx := cmd.Context()

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

	report, err := orch.Sync(ctx, req)
	if renderErr := output.RenderReport(formatter, report); err == nil {
		err = renderErr
	}
	if err != nil {
		return err
	}

	watcher, err := container.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Watch(req.SourceRoot); err != nil {
		return fmt.Errorf("failed to watch %s: %w", req.SourceRoot, err)
	}
	if !formatter.IsJSON() {
		formatter.Info("watching %s (Ctrl-C to stop)", req.SourceRoot)
	}

	return watchLoop(ctx, container, orch, formatter, watcher, req)
}

// watchLoop syncs each debounced batch of changed files until ctx is done.
// A failed batch is reported and the loop keeps going.
func watchLoop(ctx context.Context, container *application.Container, orch *syncer.Orchestrator, formatter *output.Formatter, watcher *watch.Watcher, req syncrun.Request) error {
	logger := container.Logger()
	quiet := container.Config().Watch.Debounce

	go func() {
		for err := range watcher.Errors() {
			logger.Warn("watch error", "error", err)
		}
	}()

	for {
		paths := watch.Batch(ctx, watcher.Events(), quiet)
		if ctx.Err() != nil {
			return nil
		}
		if len(paths) == 0 {
			continue
		}

		files := make([]document.LocalFile, 0, len(paths))
		for _, p := range paths {
			f, err := container.Files().Stat(underRoot(req.SourceRoot, p))
			if err != nil {
				logger.Warn("skipping changed file", "path", p, "error", err)
				continue
			}
			files = append(files, f)
		}
		if len(files) == 0 {
			continue
		}

		report, err := orch.SyncFiles(ctx, req, files)
		_ = output.RenderReport(formatter, report)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			formatter.Error("%v", err)
		}
	}
}

// underRoot rewrites a cleaned watcher path into the root-prefixed form
// Discover returns.
func underRoot(root, path string) string {
	rel, err := filepath.Rel(filepath.Clean(root), path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return root + string(filepath.Separator) + rel
}
