package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/temper-mc/prforum/internal/config"
	"github.com/temper-mc/prforum/internal/logging"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var (
	cfgFile string
	envFile string
	verbose bool
	trace   bool
)

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "prforum",
	Short: "Mirror GitHub pull requests into a Discord forum",
	Long: `prforum receives GitHub webhooks for one repository and keeps a Discord
forum thread per pull request: the thread's tag follows the pull request
through draft, review, approval, merge and close, and review comments are
quoted into the thread.

Get started:
  prforum onboard     Interactive setup wizard
  prforum doctor      Verify configuration and credentials
  prforum serve       Run the webhook gateway and Discord bot
  prforum deliveries  Inspect the delivery log`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initLogging)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default: ./config.json)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", config.DefaultEnvFile,
		"dotenv file seeding unset environment variables")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"enable verbose/debug output")
	rootCmd.PersistentFlags().BoolVar(&trace, "trace", false,
		"log dropped webhooks and other high-volume events")

	rootCmd.Version = Version
	rootCmd.AddCommand(
		onboardCmd,
		serveCmd,
		deliveriesCmd,
		repoCmd,
		configCmd,
		doctorCmd,
	)
}

func initLogging() {
	logging.Setup(os.Stderr, verbose, trace)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile, envFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.DefaultConfigFile
}
