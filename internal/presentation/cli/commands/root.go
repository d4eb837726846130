// Package commands implements the CLI commands for wikisync.
package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jbctechsolutions/wikisync/internal/application"
	"github.com/jbctechsolutions/wikisync/internal/infrastructure/config"
	"github.com/jbctechsolutions/wikisync/internal/presentation/cli/output"
)

// Version information - set at build time via ldflags.
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// GlobalFlags holds the global CLI flags.
type GlobalFlags struct {
	ConfigFile string
	Output     string
	Verbose    bool
}

// AppContext holds the application runtime context.
type AppContext struct {
	Config    *config.Config
	Formatter *output.Formatter
	Flags     *GlobalFlags
	Container *application.Container
}

var (
	globalFlags GlobalFlags
	appCtx      *AppContext
	appCtxMu    sync.RWMutex

	// containerOptions are appended when the container is built. Tests use
	// them to swap the wiki client and filesystem.
	containerOptions []application.ContainerOption
)

// NewRootCmd creates the root command for the wikisync CLI.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "wikisync",
		Short: "Mirror local text and markdown files into an esa.io wiki",
		Long: `wikisync mirrors a directory of .txt and .md files into an esa.io team.

Each file becomes one document whose category follows the file's directory
and whose title is the file name without its extension. Existing documents
are updated in place, missing ones are created, and requests are paced to
stay within the API rate limit.

The access token is read from --token, ESA_ACCESS_TOKEN (also from a .env
file in the working directory) or the encrypted token written by init.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch cmd.Name() {
			case "help", "version", "completion", "init":
				return nil
			}
			return initializeApp(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return shutdown()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&globalFlags.ConfigFile, "config", "c", "", "config file path (default: ~/.wikisync/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&globalFlags.Output, "output", "o", "text", "output format: text, json")
	rootCmd.PersistentFlags().BoolVarP(&globalFlags.Verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(NewSyncCmd())
	rootCmd.AddCommand(NewWatchCmd())
	rootCmd.AddCommand(NewIndexCmd())
	rootCmd.AddCommand(NewResolveCmd())
	rootCmd.AddCommand(NewHistoryCmd())
	rootCmd.AddCommand(NewInitCmd())
	rootCmd.AddCommand(NewVersionCmd())

	return rootCmd
}

// newFormatter builds a formatter for the global output flag writing to
// the command's output stream.
func newFormatter(cmd *cobra.Command) (*output.Formatter, error) {
	format, err := output.ParseFormat(globalFlags.Output)
	if err != nil {
		return nil, err
	}
	return output.NewFormatter(
		output.WithWriter(cmd.OutOrStdout()),
		output.WithFormat(format),
		output.WithColor(format != output.FormatJSON && output.IsColorSupported()),
	), nil
}

// initializeApp loads configuration and builds the container.
func initializeApp(cmd *cobra.Command) error {
	formatter, err := newFormatter(cmd)
	if err != nil {
		return err
	}

	if err := config.LoadDotEnv(""); err != nil {
		formatter.Warning("%v", err)
	}

	loader, err := config.NewLoader("")
	if err != nil {
		return fmt.Errorf("failed to create config loader: %w", err)
	}

	cfg, err := loader.Load(globalFlags.ConfigFile)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	container, err := application.NewContainer(cfg, loader, globalFlags.Verbose, containerOptions...)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	appCtxMu.Lock()
	if appCtx != nil && appCtx.Container != nil {
		_ = appCtx.Container.Close()
	}
	appCtx = &AppContext{
		Config:    cfg,
		Formatter: formatter,
		Flags:     &globalFlags,
		Container: container,
	}
	appCtxMu.Unlock()

	return nil
}

// GetAppContext returns the current application context.
// Returns nil if the app hasn't been initialized.
func GetAppContext() *AppContext {
	appCtxMu.RLock()
	defer appCtxMu.RUnlock()
	return appCtx
}

// GetFormatter returns the output formatter.
// Creates a default formatter if app context is not initialized.
func GetFormatter() *output.Formatter {
	if ctx := GetAppContext(); ctx != nil {
		return ctx.Formatter
	}
	return output.NewFormatter(output.WithColor(output.IsColorSupported()))
}

// GetContainer returns the application container.
// Returns nil if the app hasn't been initialized.
func GetContainer() *application.Container {
	if ctx := GetAppContext(); ctx != nil {
		return ctx.Container
	}
	return nil
}

// shutdown releases the container built by initializeApp.
func shutdown() error {
	appCtxMu.Lock()
	defer appCtxMu.Unlock()

	if appCtx == nil || appCtx.Container == nil {
		return nil
	}
	err := appCtx.Container.Close()
	appCtx.Container = nil
	return err
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command's
// context so an in-flight run can record its outcome before exiting.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := NewRootCmd().ExecuteContext(ctx)
	_ = shutdown()
	if err != nil {
		GetFormatter().Error("%s", err.Error())
		if ctx.Err() != nil {
			os.Exit(130)
		}
		os.Exit(1)
	}
}
