package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jbctechsolutions/wikisync/internal/infrastructure/config"
	"github.com/jbctechsolutions/wikisync/internal/infrastructure/crypto"
)

// InitResult holds the result of the init command for JSON output.
type InitResult struct {
	ConfigDir   string `json:"config_dir"`
	ConfigFile  string `json:"config_file"`
	TokenStored bool   `json:"token_stored"`
	Initialized bool   `json:"initialized"`
}

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	var (
		force      bool
		token      string
		tokenStdin bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default wikisync configuration",
		Long: `Create ~/.wikisync/config.yaml with default settings.

With --token (or --token-stdin) the access token is stored encrypted with
a key bound to this machine, so ESA_ACCESS_TOKEN need not be set. The
encrypted value cannot be decrypted on another host.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if tokenStdin {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("failed to read token from stdin: %w", err)
				}
				token = line
			}
			return runInit(cmd, force, strings.TrimSpace(token))
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite existing configuration")
	cmd.Flags().StringVar(&token, "token", "", "access token to store encrypted")
	cmd.Flags().BoolVar(&tokenStdin, "token-stdin", false, "read the access token from stdin")

	return cmd
}

func runInit(cmd *cobra.Command, force bool, token string) error {
	formatter, err := newFormatter(cmd)
	if err != nil {
		return err
	}

	loader, err := config.NewLoader("")
	if err != nil {
		return err
	}

	configFile := globalFlags.ConfigFile
	if configFile == "" {
		configFile = loader.DefaultConfigPath()
	}
	result := InitResult{ConfigDir: loader.ConfigDir(), ConfigFile: configFile}

	if _, err := os.Stat(configFile); err == nil && !force {
		if formatter.IsJSON() {
			return formatter.JSON(result)
		}
		formatter.Warning("Configuration already exists at %s", configFile)
		formatter.Info("Use --force to overwrite existing configuration")
		return nil
	}

	cfg := config.NewDefaultConfig()
	if token != "" {
		encryptor, err := crypto.NewEncryptor(loader.ConfigDir())
		if err != nil {
			return fmt.Errorf("failed to initialize encryption: %w", err)
		}
		sealed, err := encryptor.Encrypt(token)
		if err != nil {
			return fmt.Errorf("failed to encrypt access token: %w", err)
		}
		cfg.Esa.AccessTokenEncrypted = sealed
		result.TokenStored = true
	}

	if err := loader.Save(cfg, configFile); err != nil {
		return err
	}
	result.Initialized = true

	if formatter.IsJSON() {
		return formatter.JSON(result)
	}
	formatter.Success("Configuration written to %s", configFile)
	if result.TokenStored {
		formatter.Item("Access token", "stored encrypted")
	} else {
		formatter.Info("Set %s or rerun with --token to store a token", config.TokenEnvVar)
	}
	return nil
}
