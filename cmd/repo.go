package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/temper-mc/prforum/internal/search"
)

var repoLimit int

var repoCmd = &cobra.Command{
	Use:   "repo",
	Short: "Manage the local search mirror",
	Long:  `Clone or refresh the checkout used by the files and grep slash commands, and query it locally.`,
}

var repoSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Clone or fast-forward the search mirror",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		mirror := newMirror(cfg)
		if err := mirror.Sync(ctx); err != nil {
			return err
		}
		fmt.Println(successStyle.Render("Mirror up to date at " + mirror.Path()))
		return nil
	},
}

var repoFilesCmd = &cobra.Command{
	Use:   "files <query>",
	Short: "Fuzzy-search tracked file paths",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		mirror := newMirror(cfg)
		if !mirror.Exists() {
			return fmt.Errorf("mirror not cloned yet, run 'prforum repo sync'")
		}
		paths, err := mirror.TrackedFiles()
		if err != nil {
			return err
		}
		ranked := search.RankPaths(args[0], paths)
		for _, p := range ranked[:min(len(ranked), repoLimit)] {
			fmt.Println(p)
		}
		return nil
	},
}

var repoGrepCmd = &cobra.Command{
	Use:   "grep <pattern>",
	Short: "Search the mirror with ripgrep",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		mirror := newMirror(cfg)
		if !mirror.Exists() {
			return fmt.Errorf("mirror not cloned yet, run 'prforum repo sync'")
		}
		matches, err := search.Grep(cmd.Context(), mirror.Path(), args[0])
		if err != nil {
			return err
		}
		for _, m := range matches[:min(len(matches), repoLimit)] {
			fmt.Printf("%s:%d: %s\n", m.Path, m.LineNumber, m.Line)
		}
		return nil
	},
}

func init() {
	repoFilesCmd.Flags().IntVarP(&repoLimit, "limit", "n", 10, "maximum results")
	repoGrepCmd.Flags().IntVarP(&repoLimit, "limit", "n", 10, "maximum results")
	repoCmd.AddCommand(repoSyncCmd, repoFilesCmd, repoGrepCmd)
}
