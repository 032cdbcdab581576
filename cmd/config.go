package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/temper-mc/prforum/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View prforum configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration (secrets redacted)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		redactConfig(cfg)

		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(cfg)
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the path to the config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(configPath())
		return nil
	},
}

var configEnvCmd = &cobra.Command{
	Use:   "env <key>",
	Short: "Print the environment variable that sets a config key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := config.EnvName(args[0])
		if name == "" {
			return fmt.Errorf("no environment variable for %q", args[0])
		}
		fmt.Println(name)
		return nil
	},
}

func redactConfig(cfg *config.Config) {
	for _, s := range []*string{
		&cfg.Discord.Token,
		&cfg.GitHub.Token,
		&cfg.GitHub.WebhookHMACSecret,
		&cfg.Webhook.Secret,
		&cfg.Database.DSN,
	} {
		if *s != "" {
			*s = "***"
		}
	}
}

func init() {
	configCmd.AddCommand(configShowCmd, configPathCmd, configEnvCmd)
}
