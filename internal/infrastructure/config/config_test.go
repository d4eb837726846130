package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	domainErrors "github.com/jbctechsolutions/wikisync/internal/domain/errors"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	if cfg.Esa.BaseURL != DefaultBaseURL {
		t.Errorf("BaseURL = %q, want %q", cfg.Esa.BaseURL, DefaultBaseURL)
	}
	if cfg.Esa.IndexPageSize != 100 {
		t.Errorf("IndexPageSize = %d, want 100", cfg.Esa.IndexPageSize)
	}
	if cfg.Esa.CommitMessage != "sync from esa sync importer" {
		t.Errorf("CommitMessage = %q", cfg.Esa.CommitMessage)
	}
	if len(cfg.Sync.ExcludeDirs) != 4 {
		t.Errorf("ExcludeDirs = %v, want 4 entries", cfg.Sync.ExcludeDirs)
	}
	if cfg.Sync.ContinueOnReadError {
		t.Error("ContinueOnReadError should default to false")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:    "bad base url scheme",
			mutate:  func(c *Config) { c.Esa.BaseURL = "ftp://example.com" },
			wantErr: "base_url must use http or https scheme",
		},
		{
			name:    "zero page size",
			mutate:  func(c *Config) { c.Esa.IndexPageSize = 0 },
			wantErr: "index_page_size must be positive",
		},
		{
			name:    "extension without dot",
			mutate:  func(c *Config) { c.Sync.Extensions = []string{"md"} },
			wantErr: `extension "md" must start with a dot`,
		},
		{
			name:    "zero cooldown",
			mutate:  func(c *Config) { c.Sync.MinCooldown = 0 },
			wantErr: "min_cooldown must be positive",
		},
		{
			name:    "invalid log level",
			mutate:  func(c *Config) { c.Logging.Level = "trace" },
			wantErr: `invalid log level "trace"`,
		},
		{
			name: "otlp without endpoint",
			mutate: func(c *Config) {
				c.Observability.Tracing.Enabled = true
				c.Observability.Tracing.ExporterType = "otlp"
			},
			wantErr: "otlp_endpoint is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want to contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestLoader_LoadMissingReturnsDefaults(t *testing.T) {
	loader, err := NewLoader(t.TempDir())
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}

	cfg, err := loader.Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Esa.BaseURL != DefaultBaseURL {
		t.Errorf("BaseURL = %q, want default", cfg.Esa.BaseURL)
	}
}

func TestLoader_LoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
esa:
  base_url: https://wiki.example.com
  timeout: 5s
sync:
  exclude_dirs: [vendor]
  continue_on_read_error: true
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	loader, _ := NewLoader(dir)
	cfg, err := loader.Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Esa.BaseURL != "https://wiki.example.com" {
		t.Errorf("BaseURL = %q", cfg.Esa.BaseURL)
	}
	if cfg.Esa.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", cfg.Esa.Timeout)
	}
	if len(cfg.Sync.ExcludeDirs) != 1 || cfg.Sync.ExcludeDirs[0] != "vendor" {
		t.Errorf("ExcludeDirs = %v, want [vendor]", cfg.Sync.ExcludeDirs)
	}
	if !cfg.Sync.ContinueOnReadError {
		t.Error("ContinueOnReadError = false, want true")
	}
	// untouched fields keep defaults
	if cfg.Esa.CommitMessage != DefaultCommitMessage {
		t.Errorf("CommitMessage = %q, want default", cfg.Esa.CommitMessage)
	}
}

func TestLoader_SaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	loader, _ := NewLoader(dir)

	cfg := NewDefaultConfig()
	cfg.Esa.AccessTokenEncrypted = "c2VjcmV0"
	if err := loader.Save(cfg, ""); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := loader.LoadFromFile(loader.DefaultConfigPath())
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if loaded.Esa.AccessTokenEncrypted != "c2VjcmV0" {
		t.Errorf("AccessTokenEncrypted = %q", loaded.Esa.AccessTokenEncrypted)
	}
}

type fakeDecrypter struct {
	plain string
	err   error
}

func (f fakeDecrypter) Decrypt(string) (string, error) { return f.plain, f.err }

func TestResolveCredentials(t *testing.T) {
	env := func(vals map[string]string) func(string) (string, bool) {
		return func(k string) (string, bool) {
			v, ok := vals[k]
			return v, ok
		}
	}
	withEncrypted := NewDefaultConfig()
	withEncrypted.Esa.AccessTokenEncrypted = "cipher"

	tests := []struct {
		name       string
		flag       string
		cfg        *Config
		env        map[string]string
		dec        Decrypter
		wantToken  string
		wantSource string
		wantErr    error
	}{
		{
			name:       "flag wins",
			flag:       "from-flag",
			env:        map[string]string{TokenEnvVar: "from-env"},
			wantToken:  "from-flag",
			wantSource: SourceFlag,
		},
		{
			name:       "environment",
			env:        map[string]string{TokenEnvVar: "from-env"},
			cfg:        withEncrypted,
			wantToken:  "from-env",
			wantSource: SourceEnv,
		},
		{
			name:       "encrypted config",
			cfg:        withEncrypted,
			dec:        fakeDecrypter{plain: "from-config"},
			wantToken:  "from-config",
			wantSource: SourceConfig,
		},
		{
			name:    "missing",
			cfg:     NewDefaultConfig(),
			wantErr: domainErrors.ErrCredentialMissing,
		},
		{
			name:    "decrypt failure",
			cfg:     withEncrypted,
			dec:     fakeDecrypter{err: errors.New("bad key")},
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			creds, err := ResolveCredentials(tt.flag, tt.cfg, env(tt.env), tt.dec)
			if tt.wantToken == "" {
				if err == nil {
					t.Fatal("expected error")
				}
				if domainErrors.CodeOf(err) != domainErrors.CodeConfiguration {
					t.Errorf("code = %q, want CONFIG", domainErrors.CodeOf(err))
				}
				if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
					t.Errorf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if creds.AccessToken != tt.wantToken || creds.Source != tt.wantSource {
				t.Errorf("got %+v, want token %q source %q", creds, tt.wantToken, tt.wantSource)
			}
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("WIKISYNC_TEST_DOTENV=loaded\n"), 0600); err != nil {
		t.Fatalf("failed to write .env: %v", err)
	}
	t.Setenv("WIKISYNC_TEST_DOTENV", "")
	os.Unsetenv("WIKISYNC_TEST_DOTENV")

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv() error = %v", err)
	}
	if got := os.Getenv("WIKISYNC_TEST_DOTENV"); got != "loaded" {
		t.Errorf("WIKISYNC_TEST_DOTENV = %q, want loaded", got)
	}

	if err := LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Errorf("missing file should not error: %v", err)
	}
}

func TestLoadDotEnv_DoesNotOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("WIKISYNC_TEST_KEEP=fromfile\n"), 0600); err != nil {
		t.Fatalf("failed to write .env: %v", err)
	}
	t.Setenv("WIKISYNC_TEST_KEEP", "fromenv")

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv() error = %v", err)
	}
	if got := os.Getenv("WIKISYNC_TEST_KEEP"); got != "fromenv" {
		t.Errorf("WIKISYNC_TEST_KEEP = %q, want fromenv", got)
	}
}
