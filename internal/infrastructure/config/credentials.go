package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/subosito/gotenv"

	"github.com/jbctechsolutions/wikisync/internal/domain/errors"
)

// TokenEnvVar is the environment variable holding the API access token.
const TokenEnvVar = "ESA_ACCESS_TOKEN"

// Credential sources, reported for diagnostics.
const (
	SourceFlag   = "flag"
	SourceEnv    = "env"
	SourceConfig = "config"
)

// Credentials is the resolved API access credential.
type Credentials struct {
	AccessToken string
	Source      string
}

// Decrypter decrypts a stored secret.
type Decrypter interface {
	Decrypt(ciphertext string) (string, error)
}

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment.
// Variables already set are left untouched. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := gotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// ResolveCredentials picks the access token from, in order, the explicit
// flag value, the environment (via lookup), and the encrypted token in cfg.
// It fails with a CONFIG error when none is available.
func ResolveCredentials(flagToken string, cfg *Config, lookup func(string) (string, bool), dec Decrypter) (Credentials, error) {
	if token := strings.TrimSpace(flagToken); token != "" {
		return Credentials{AccessToken: token, Source: SourceFlag}, nil
	}

	if lookup != nil {
		if token, ok := lookup(TokenEnvVar); ok && strings.TrimSpace(token) != "" {
			return Credentials{AccessToken: strings.TrimSpace(token), Source: SourceEnv}, nil
		}
	}

	if cfg != nil && cfg.Esa.AccessTokenEncrypted != "" {
		if dec == nil {
			return Credentials{}, errors.NewError(errors.CodeConfiguration,
				"encrypted access token present but no decrypter available", errors.ErrCredentialMissing)
		}
		token, err := dec.Decrypt(cfg.Esa.AccessTokenEncrypted)
		if err != nil {
			return Credentials{}, errors.NewError(errors.CodeConfiguration,
				"failed to decrypt access token", err)
		}
		if token != "" {
			return Credentials{AccessToken: token, Source: SourceConfig}, nil
		}
	}

	return Credentials{}, errors.NewError(errors.CodeConfiguration,
		TokenEnvVar+" is not set", errors.ErrCredentialMissing)
}
