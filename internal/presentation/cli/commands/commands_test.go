package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/jbctechsolutions/wikisync/internal/application"
	"github.com/jbctechsolutions/wikisync/internal/domain/document"
	"github.com/jbctechsolutions/wikisync/internal/domain/errors"
	"github.com/jbctechsolutions/wikisync/internal/infrastructure/config"
	"github.com/jbctechsolutions/wikisync/internal/infrastructure/testutil"
)

// executeCommand executes a cobra command with the given args and returns
// everything it printed.
func executeCommand(root *cobra.Command, args ...string) (string, error) {
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func noEnv(string) (string, bool) { return "", false }

// setupCLI isolates HOME and routes the container to wiki. A nil wiki
// leaves the real client in place so credential handling can be tested.
func setupCLI(t *testing.T, wiki *testutil.FakeWiki) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("NO_COLOR", "1")

	containerOptions = []application.ContainerOption{
		application.WithEnvLookup(noEnv),
		application.WithSleeper((&testutil.Sleeper{}).Sleep),
	}
	if wiki != nil {
		containerOptions = append(containerOptions, application.WithWikiClient(wiki))
	}
	t.Cleanup(func() {
		containerOptions = nil
		_ = shutdown()
	})
	return home
}

func writeSource(t *testing.T) string {
	t.Helper()
	src := t.TempDir()
	base := time.Now().Add(-time.Hour)
	testutil.WriteFile(t, src, "a/b.md", "first", base)
	testutil.WriteFile(t, src, "c.txt", "second", base.Add(time.Minute))
	return src
}

func TestNewRootCmd(t *testing.T) {
	cmd := NewRootCmd()

	if cmd.Use != "wikisync" {
		t.Errorf("expected Use='wikisync', got %q", cmd.Use)
	}

	subcmds := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		subcmds[sub.Name()] = true
	}
	for _, want := range []string{"sync", "watch", "index", "resolve", "history", "init", "version"} {
		if !subcmds[want] {
			t.Errorf("missing subcommand: %s", want)
		}
	}

	for _, flag := range []string{"config", "output", "verbose"} {
		if cmd.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("missing persistent flag: %s", flag)
		}
	}
}

func TestSyncCmd_Flags(t *testing.T) {
	cmd := NewSyncCmd()
	for _, name := range []string{"team", "wip", "dry-run", "skip-existing", "token"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("missing flag: %s", name)
		}
	}
	shorthands := map[string]string{"t": "team", "w": "wip", "n": "dry-run", "i": "skip-existing"}
	for short, long := range shorthands {
		if f := cmd.Flags().ShorthandLookup(short); f == nil || f.Name != long {
			t.Errorf("-%s should map to --%s", short, long)
		}
	}
}

func TestVersionCmd(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"basic", []string{"version"}, "Version: " + Version},
		{"short", []string{"version", "--short"}, Version},
		{"json", []string{"version", "-o", "json"}, `"go_version"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("NO_COLOR", "1")
			out, err := executeCommand(NewRootCmd(), tt.args...)
			if err != nil {
				t.Fatalf("error = %v", err)
			}
			if !strings.Contains(out, tt.want) {
				t.Errorf("output %q does not contain %q", out, tt.want)
			}
		})
	}
}

func TestSyncCmd_CreatesAndRecords(t *testing.T) {
	wiki := testutil.NewFakeWiki()
	setupCLI(t, wiki)
	src := writeSource(t)

	out, err := executeCommand(NewRootCmd(), "sync", src, "/x/", "-t", "team", "-o", "json")
	if err != nil {
		t.Fatalf("sync error = %v\n%s", err, out)
	}

	var report struct {
		RunID   string `json:"run_id"`
		Created int    `json:"created"`
		Files   []struct {
			Identity document.Identity `json:"identity"`
		} `json:"files"`
	}
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}
	if report.Created != 2 || wiki.Count(testutil.OpCreate) != 2 {
		t.Fatalf("created = %d, creates = %d", report.Created, wiki.Count(testutil.OpCreate))
	}
	// newest first
	if report.Files[0].Identity.FullName() != "/x/c" || report.Files[1].Identity.FullName() != "/x/a/b" {
		t.Errorf("unexpected order %+v", report.Files)
	}

	out, err = executeCommand(NewRootCmd(), "history")
	if err != nil {
		t.Fatalf("history error = %v", err)
	}
	if !strings.Contains(out, report.RunID) || !strings.Contains(out, "2/0/0") {
		t.Errorf("history output missing run:\n%s", out)
	}

	out, err = executeCommand(NewRootCmd(), "history", "show", report.RunID)
	if err != nil {
		t.Fatalf("history show error = %v", err)
	}
	if !strings.Contains(out, "/x/a/b") || !strings.Contains(out, "created") {
		t.Errorf("history show output:\n%s", out)
	}

	// second run updates in place
	out, err = executeCommand(NewRootCmd(), "sync", src, "/x/", "-t", "team")
	if err != nil {
		t.Fatalf("second sync error = %v", err)
	}
	if wiki.Count(testutil.OpUpdate) != 2 || len(wiki.Documents()) != 2 {
		t.Errorf("updates = %d, documents = %d", wiki.Count(testutil.OpUpdate), len(wiki.Documents()))
	}
	if !strings.Contains(out, "0 created, 2 updated") {
		t.Errorf("unexpected summary:\n%s", out)
	}
}

func TestSyncCmd_DryRunSkipExisting(t *testing.T) {
	wiki := testutil.NewFakeWiki(document.RemoteDocument{Number: 7, Category: "x", Title: "c"})
	setupCLI(t, wiki)
	src := writeSource(t)

	out, err := executeCommand(NewRootCmd(), "sync", src, "/x/", "-t", "team", "-n", "-i")
	if err != nil {
		t.Fatalf("sync error = %v", err)
	}
	if wiki.Count(testutil.OpCreate)+wiki.Count(testutil.OpUpdate) != 0 {
		t.Error("dry run must not write")
	}
	if !strings.Contains(out, "skipped   /x/c") || !strings.Contains(out, "reported  /x/a/b") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestSyncCmd_Errors(t *testing.T) {
	src := writeSource(t)

	tests := []struct {
		name     string
		args     []string
		withWiki bool
		wantCode errors.ErrorCode
	}{
		{"missing args", []string{"sync", src}, true, ""},
		{"missing team", []string{"sync", src, "/x/"}, true, errors.CodeConfiguration},
		{"missing source", []string{"sync", filepath.Join(src, "nope"), "/x/", "-t", "team"}, true, errors.CodeConfiguration},
		{"missing token", []string{"sync", src, "/x/", "-t", "team"}, false, errors.CodeConfiguration},
		{"watch missing team", []string{"watch", src, "/x/"}, true, errors.CodeConfiguration},
		{"bad output format", []string{"sync", src, "/x/", "-t", "team", "-o", "yaml"}, true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var wiki *testutil.FakeWiki
			if tt.withWiki {
				wiki = testutil.NewFakeWiki()
			}
			setupCLI(t, wiki)

			_, err := executeCommand(NewRootCmd(), tt.args...)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantCode != "" && errors.CodeOf(err) != tt.wantCode {
				t.Errorf("code = %q, want %q (%v)", errors.CodeOf(err), tt.wantCode, err)
			}
			if wiki != nil && len(wiki.Calls()) != 0 {
				t.Errorf("no wiki calls expected, got %d", len(wiki.Calls()))
			}
		})
	}
}

func TestSyncCmd_TokenFlag(t *testing.T) {
	setupCLI(t, nil)
	src := t.TempDir()

	// an empty source needs no requests, so a real client is safe here
	out, err := executeCommand(NewRootCmd(), "sync", src, "/x/", "-t", "team", "--token", "tok")
	if err != nil {
		t.Fatalf("sync error = %v", err)
	}
	if !strings.Contains(out, "0 created, 0 updated, 0 skipped") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestIndexCmd(t *testing.T) {
	wiki := testutil.NewFakeWiki(
		document.RemoteDocument{Number: 1, Category: "x/b", Title: "c"},
		document.RemoteDocument{Number: 2, Category: "x", Title: "a"},
		document.RemoteDocument{Number: 3, Category: "y", Title: "z"},
	)
	setupCLI(t, wiki)

	out, err := executeCommand(NewRootCmd(), "index", "/x/", "-t", "team", "-o", "json")
	if err != nil {
		t.Fatalf("index error = %v", err)
	}

	var got struct {
		Namespace string                    `json:"namespace"`
		Count     int                       `json:"count"`
		Documents []document.RemoteDocument `json:"documents"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if got.Namespace != "/x" || got.Count != 2 {
		t.Errorf("unexpected index %+v", got)
	}
	if got.Documents[0].Number != 2 || got.Documents[1].Number != 1 {
		t.Errorf("documents not ordered by name: %+v", got.Documents)
	}

	if _, err := executeCommand(NewRootCmd(), "index", "/x/"); errors.CodeOf(err) != errors.CodeConfiguration {
		t.Errorf("missing team error = %v", err)
	}
}

func TestResolveCmd(t *testing.T) {
	setupCLI(t, nil)

	t.Run("explicit paths", func(t *testing.T) {
		out, err := executeCommand(NewRootCmd(), "resolve", "/a", "/x", "/a/b/c.md", "-o", "json")
		if err != nil {
			t.Fatalf("resolve error = %v", err)
		}
		var got []struct {
			Path     string            `json:"path"`
			Identity document.Identity `json:"identity"`
		}
		if err := json.Unmarshal([]byte(out), &got); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(got) != 1 || got[0].Identity.Category != "/x/b" || got[0].Identity.Title != "c" {
			t.Errorf("unexpected %+v", got)
		}
	})

	t.Run("discovered files", func(t *testing.T) {
		src := writeSource(t)
		out, err := executeCommand(NewRootCmd(), "resolve", src, "/x/")
		if err != nil {
			t.Fatalf("resolve error = %v", err)
		}
		if !strings.Contains(out, "/x/a") || !strings.Contains(out, "CATEGORY") {
			t.Errorf("unexpected output:\n%s", out)
		}
	})
}

func TestHistoryCmd_Empty(t *testing.T) {
	setupCLI(t, testutil.NewFakeWiki())

	out, err := executeCommand(NewRootCmd(), "history")
	if err != nil {
		t.Fatalf("history error = %v", err)
	}
	if !strings.Contains(out, "no sync runs recorded") {
		t.Errorf("unexpected output %q", out)
	}

	if _, err := executeCommand(NewRootCmd(), "history", "show", "missing"); err == nil {
		t.Error("expected error for unknown run")
	}
}

func TestInitCmd(t *testing.T) {
	home := setupCLI(t, nil)
	configFile := filepath.Join(home, config.DirName, "config.yaml")

	out, err := executeCommand(NewRootCmd(), "init", "--token", "secret-token")
	if err != nil {
		t.Fatalf("init error = %v", err)
	}
	if !strings.Contains(out, "Configuration written") {
		t.Errorf("unexpected output:\n%s", out)
	}

	data, err := os.ReadFile(configFile)
	if err != nil {
		t.Fatalf("config not written: %v", err)
	}
	if strings.Contains(string(data), "secret-token") {
		t.Error("token stored in plain text")
	}

	loader, _ := config.NewLoader(filepath.Join(home, config.DirName))
	cfg, err := loader.Load("")
	if err != nil || cfg.Esa.AccessTokenEncrypted == "" {
		t.Fatalf("encrypted token missing: %v", err)
	}

	// the stored token is usable by later commands
	c, err := application.NewContainer(cfg, loader, false, application.WithEnvLookup(noEnv))
	if err != nil {
		t.Fatalf("NewContainer() error = %v", err)
	}
	defer c.Close()
	creds, err := c.Credentials("")
	if err != nil || creds.AccessToken != "secret-token" {
		t.Errorf("Credentials() = %+v, %v", creds, err)
	}

	out, err = executeCommand(NewRootCmd(), "init")
	if err != nil {
		t.Fatalf("second init error = %v", err)
	}
	if !strings.Contains(out, "already exists") {
		t.Errorf("expected warning, got:\n%s", out)
	}

	out, err = executeCommand(NewRootCmd(), "init", "--force", "-o", "json")
	if err != nil {
		t.Fatalf("forced init error = %v", err)
	}
	var result InitResult
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if !result.Initialized || result.TokenStored {
		t.Errorf("unexpected result %+v", result)
	}
}

func TestUnderRoot(t *testing.T) {
	tests := []struct {
		root, path, want string
	}{
		{"./notes", "notes/a/b.md", "./notes/a/b.md"},
		{"/src", "/src/c.md", "/src/c.md"},
		{"/src", "/other/c.md", "/other/c.md"},
	}
	for _, tt := range tests {
		if got := underRoot(tt.root, tt.path); got != tt.want {
			t.Errorf("underRoot(%q, %q) = %q, want %q", tt.root, tt.path, got, tt.want)
		}
	}
}
