package application

import (
	"context"
	"testing"

	"github.com/spf13/afero"

	"github.com/jbctechsolutions/wikisync/internal/domain/document"
	"github.com/jbctechsolutions/wikisync/internal/domain/errors"
	"github.com/jbctechsolutions/wikisync/internal/domain/syncrun"
	"github.com/jbctechsolutions/wikisync/internal/infrastructure/config"
	"github.com/jbctechsolutions/wikisync/internal/infrastructure/testutil"
)

func noEnv(string) (string, bool) { return "", false }

func newTestContainer(t *testing.T, cfg *config.Config, opts ...ContainerOption) *Container {
	t.Helper()
	loader, err := config.NewLoader(t.TempDir())
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}
	c, err := NewContainer(cfg, loader, false, append([]ContainerOption{WithEnvLookup(noEnv)}, opts...)...)
	if err != nil {
		t.Fatalf("NewContainer() error = %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestNewContainer(t *testing.T) {
	c := newTestContainer(t, nil)

	if c.Config() == nil || c.Loader() == nil {
		t.Error("config and loader should be set")
	}
	if c.Logger() == nil || c.Tracer() == nil {
		t.Error("logger and tracer should be set")
	}
	if c.Encryptor() == nil || c.Files() == nil || c.Governor() == nil {
		t.Error("services should be initialized")
	}
	if _, err := c.Ledger(); err != nil {
		t.Errorf("Ledger() error = %v", err)
	}
	if c.NewRunLock().Path() != c.Loader().LockPath() {
		t.Errorf("lock path = %q", c.NewRunLock().Path())
	}
}

func TestNewContainer_LedgerDisabled(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.Ledger.Enabled = false
	c := newTestContainer(t, cfg)

	_, err := c.Ledger()
	if errors.CodeOf(err) != errors.CodeConfiguration {
		t.Errorf("Ledger() error = %v, want CONFIG", err)
	}
}

func TestContainer_OrchestratorRequiresCredentials(t *testing.T) {
	c := newTestContainer(t, nil)

	_, err := c.Orchestrator("")
	if errors.CodeOf(err) != errors.CodeConfiguration {
		t.Fatalf("Orchestrator() error = %v, want CONFIG", err)
	}

	orch, err := c.Orchestrator("flag-token")
	if err != nil {
		t.Fatalf("Orchestrator() error = %v", err)
	}
	again, _ := c.Orchestrator("")
	if again != orch {
		t.Error("orchestrator should be reused")
	}
}

func TestContainer_EncryptedToken(t *testing.T) {
	loader, _ := config.NewLoader(t.TempDir())
	first, err := NewContainer(config.NewDefaultConfig(), loader, false, WithEnvLookup(noEnv))
	if err != nil {
		t.Fatalf("NewContainer() error = %v", err)
	}
	sealed, err := first.Encryptor().Encrypt("secret")
	first.Close()
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}

	cfg := config.NewDefaultConfig()
	cfg.Esa.AccessTokenEncrypted = sealed
	c, err := NewContainer(cfg, loader, false, WithEnvLookup(noEnv))
	if err != nil {
		t.Fatalf("NewContainer() error = %v", err)
	}
	defer c.Close()

	creds, err := c.Credentials("")
	if err != nil {
		t.Fatalf("Credentials() error = %v", err)
	}
	if creds.AccessToken != "secret" || creds.Source != config.SourceConfig {
		t.Errorf("Credentials() = %+v", creds)
	}
}

func TestContainer_SyncEndToEnd(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/src/guide/intro.md", []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	wiki := testutil.NewFakeWiki(document.RemoteDocument{Number: 4, Category: "x/guide", Title: "intro"})
	sleeper := &testutil.Sleeper{}

	c := newTestContainer(t, nil, WithFilesystem(fs), WithWikiClient(wiki), WithSleeper(sleeper.Sleep))

	orch, err := c.Orchestrator("")
	if err != nil {
		t.Fatalf("Orchestrator() error = %v", err)
	}
	report, err := orch.Sync(context.Background(), syncrun.Request{
		SourceRoot:      "/src",
		DestinationRoot: "/x/",
		Team:            "team",
	})
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if report.Count(syncrun.StateUpdated) != 1 {
		t.Errorf("updated = %d, want 1", report.Count(syncrun.StateUpdated))
	}

	ledger, _ := c.Ledger()
	runs, err := ledger.ListRuns(context.Background(), 1)
	if err != nil || len(runs) != 1 || runs[0].Updated != 1 {
		t.Errorf("ListRuns() = %+v, %v", runs, err)
	}
}
