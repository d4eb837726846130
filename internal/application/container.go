// Package application provides application-level services and dependency injection.
package application

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/afero"

	"github.com/jbctechsolutions/wikisync/internal/adapters/esa"
	"github.com/jbctechsolutions/wikisync/internal/adapters/ledger/sqlite"
	"github.com/jbctechsolutions/wikisync/internal/application/ports"
	"github.com/jbctechsolutions/wikisync/internal/application/syncer"
	"github.com/jbctechsolutions/wikisync/internal/domain/errors"
	"github.com/jbctechsolutions/wikisync/internal/infrastructure/config"
	"github.com/jbctechsolutions/wikisync/internal/infrastructure/crypto"
	"github.com/jbctechsolutions/wikisync/internal/infrastructure/filesystem"
	"github.com/jbctechsolutions/wikisync/internal/infrastructure/lock"
	"github.com/jbctechsolutions/wikisync/internal/infrastructure/logging"
	"github.com/jbctechsolutions/wikisync/internal/infrastructure/tracing"
	"github.com/jbctechsolutions/wikisync/internal/infrastructure/watch"
)

// Container holds all application dependencies and provides a central
// point for dependency injection. The wiki client and orchestrator are
// built on first use because they need a resolved credential.
type Container struct {
	config  *config.Config
	loader  *config.Loader
	verbose bool

	// Database connection
	dbConn *sqlite.Connection
	ledger *sqlite.Ledger

	logger    *logging.Logger
	tracer    *tracing.Tracer
	encryptor *crypto.Encryptor
	files     *filesystem.Discoverer
	governor  *syncer.Governor

	wiki         ports.WikiClientPort
	orchestrator *syncer.Orchestrator

	// overrides
	fs    afero.Fs
	sleep syncer.SleepFunc
	env   func(string) (string, bool)
}

// ContainerOption customizes a Container.
type ContainerOption func(*Container)

// WithFilesystem replaces the OS filesystem used for discovery.
func WithFilesystem(fs afero.Fs) ContainerOption {
	return func(c *Container) {
		c.fs = fs
	}
}

// WithWikiClient replaces the esa.io client.
func WithWikiClient(client ports.WikiClientPort) ContainerOption {
	return func(c *Container) {
		c.wiki = client
	}
}

// WithSleeper replaces the governor's sleep function.
func WithSleeper(sleep syncer.SleepFunc) ContainerOption {
	return func(c *Container) {
		c.sleep = sleep
	}
}

// WithEnvLookup replaces os.LookupEnv for credential resolution.
func WithEnvLookup(lookup func(string) (string, bool)) ContainerOption {
	return func(c *Container) {
		c.env = lookup
	}
}

// NewContainer creates a new dependency injection container with all services
// initialized based on the provided configuration.
func NewContainer(cfg *config.Config, loader *config.Loader, verbose bool, opts ...ContainerOption) (*Container, error) {
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}
	if loader == nil {
		var err error
		loader, err = config.NewLoader("")
		if err != nil {
			return nil, err
		}
	}

	c := &Container{
		config:  cfg,
		loader:  loader,
		verbose: verbose,
		env:     os.LookupEnv,
	}
	for _, opt := range opts {
		opt(c)
	}

	if err := c.initObservability(); err != nil {
		return nil, fmt.Errorf("failed to initialize observability: %w", err)
	}

	if cfg.Ledger.Enabled {
		if err := c.initDatabase(); err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
	}

	if err := c.initServices(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	return c, nil
}

// initObservability initializes logging and tracing.
func (c *Container) initObservability() error {
	logLevel := logging.Level(c.config.Logging.Level)
	if c.verbose {
		logLevel = logging.LevelDebug
	}

	logFormat := logging.FormatText
	if c.config.Logging.Format == "json" {
		logFormat = logging.FormatJSON
	}

	c.logger = logging.New(logging.Config{
		Level:      logLevel,
		Format:     logFormat,
		Output:     os.Stderr,
		TimeFormat: time.RFC3339,
		File: logging.FileConfig{
			Path:       c.config.Logging.File,
			MaxSizeMB:  c.config.Logging.MaxSizeMB,
			MaxBackups: c.config.Logging.MaxBackups,
		},
	})

	tc := c.config.Observability.Tracing
	if !tc.Enabled {
		c.tracer = tracing.Noop()
		return nil
	}

	tracer, err := tracing.New(context.Background(), tracing.Config{
		Enabled:      true,
		ExporterType: tracing.ExporterType(tc.ExporterType),
		OTLPEndpoint: tc.OTLPEndpoint,
		ServiceName:  tc.ServiceName,
		Environment:  "production",
		SampleRate:   tc.SampleRate,
		Output:       os.Stderr,
	})
	if err != nil {
		return fmt.Errorf("failed to create tracer: %w", err)
	}
	c.tracer = tracer
	return nil
}

// initDatabase opens the run ledger.
func (c *Container) initDatabase() error {
	path := c.config.Ledger.Path
	if path == "" {
		path = c.loader.DefaultLedgerPath()
	}

	conn, err := sqlite.NewConnection(path)
	if err != nil {
		return fmt.Errorf("failed to create database connection: %w", err)
	}
	if err := conn.Open(); err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	db, err := conn.DB()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to get database handle: %w", err)
	}

	c.dbConn = conn
	c.ledger = sqlite.NewLedger(db)
	return nil
}

func (c *Container) initServices() error {
	encryptor, err := crypto.NewEncryptor(c.loader.ConfigDir())
	if err != nil {
		return fmt.Errorf("failed to create encryptor: %w", err)
	}
	c.encryptor = encryptor

	c.files = filesystem.NewDiscoverer(c.fs,
		filesystem.WithExtensions(c.config.Sync.Extensions...),
		filesystem.WithExcludeDirs(c.config.Sync.ExcludeDirs...),
	)

	govOpts := []syncer.GovernorOption{
		syncer.WithGovernorLogger(c.logger),
		syncer.WithGovernorTracer(c.tracer),
	}
	if c.sleep != nil {
		govOpts = append(govOpts, syncer.WithSleeper(c.sleep))
	}
	c.governor = syncer.NewGovernor(syncer.GovernorConfig{
		MinCooldown:      c.config.Sync.MinCooldown,
		FallbackCooldown: c.config.Sync.FallbackCooldown,
	}, govOpts...)

	return nil
}

// Credentials resolves the access token from the flag value, the
// environment, or the encrypted token in the config file.
func (c *Container) Credentials(flagToken string) (config.Credentials, error) {
	return config.ResolveCredentials(flagToken, c.config, c.env, c.encryptor)
}

// Orchestrator returns the sync orchestrator, creating the wiki client on
// first use. A missing credential fails before any network activity.
func (c *Container) Orchestrator(flagToken string) (*syncer.Orchestrator, error) {
	if c.orchestrator != nil {
		return c.orchestrator, nil
	}

	if c.wiki == nil {
		creds, err := c.Credentials(flagToken)
		if err != nil {
			return nil, err
		}
		c.logger.Debug("resolved credentials", "source", creds.Source)

		client := esa.NewClient(creds.AccessToken,
			esa.WithBaseURL(c.config.Esa.BaseURL),
			esa.WithTimeout(c.config.Esa.Timeout),
			esa.WithLogger(c.logger),
		)
		c.wiki = esa.NewWiki(client)
	}

	opts := []syncer.OrchestratorOption{
		syncer.WithLogger(c.logger),
		syncer.WithTracer(c.tracer),
	}
	if c.ledger != nil {
		opts = append(opts, syncer.WithLedger(c.ledger))
	}

	orch, err := syncer.NewOrchestrator(c.wiki, c.files, c.governor, syncer.Options{
		CommitMessage:       c.config.Esa.CommitMessage,
		SearchPageSize:      c.config.Esa.SearchPageSize,
		IndexPageSize:       c.config.Esa.IndexPageSize,
		ContinueOnReadError: c.config.Sync.ContinueOnReadError,
	}, opts...)
	if err != nil {
		return nil, err
	}

	c.orchestrator = orch
	return orch, nil
}

// NewRunLock returns the single-run lock for this state directory.
func (c *Container) NewRunLock() *lock.RunLock {
	return lock.New(c.loader.LockPath())
}

// NewWatcher returns a file watcher configured like discovery.
func (c *Container) NewWatcher() (*watch.Watcher, error) {
	return watch.New(watch.Config{
		Debounce:    c.config.Watch.Debounce,
		Extensions:  c.config.Sync.Extensions,
		ExcludeDirs: c.config.Sync.ExcludeDirs,
	})
}

// Ledger returns the run ledger, or a CONFIG error when it is disabled.
func (c *Container) Ledger() (ports.LedgerPort, error) {
	if c.ledger == nil {
		return nil, errors.NewError(errors.CodeConfiguration, "run ledger is disabled (ledger.enabled: false)", nil)
	}
	return c.ledger, nil
}

// Close releases all resources held by the container.
func (c *Container) Close() error {
	ctx := context.Background()

	if c.tracer != nil {
		_ = c.tracer.Shutdown(ctx)
	}
	if c.logger != nil {
		_ = c.logger.Close()
	}
	if c.dbConn != nil {
		return c.dbConn.Close()
	}
	return nil
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Loader returns the configuration loader.
func (c *Container) Loader() *config.Loader {
	return c.loader
}

// Logger returns the structured logger.
func (c *Container) Logger() *logging.Logger {
	return c.logger
}

// Tracer returns the OpenTelemetry tracer.
func (c *Container) Tracer() *tracing.Tracer {
	return c.tracer
}

// Encryptor returns the machine-bound token encryptor.
func (c *Container) Encryptor() *crypto.Encryptor {
	return c.encryptor
}

// Files returns the local file discoverer.
func (c *Container) Files() *filesystem.Discoverer {
	return c.files
}

// Governor returns the shared rate governor.
func (c *Container) Governor() *syncer.Governor {
	return c.governor
}
