package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/spf13/cobra"

	"github.com/temper-mc/prforum/internal/database"
	"github.com/temper-mc/prforum/internal/discord"
	"github.com/temper-mc/prforum/internal/repository"
	"github.com/temper-mc/prforum/internal/search"
)

var doctorOffline bool

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Verify configuration, credentials, and tools",
	Long: `Checks that every required setting is present and well formed, that the
database can be reached, and (unless --offline) that the Discord and GitHub
credentials work.`,
	RunE: runDoctor,
}

func init() {
	doctorCmd.Flags().BoolVar(&doctorOffline, "offline", false,
		"skip checks that call Discord or GitHub")
}

func runDoctor(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	allOK := true

	fmt.Println(headerStyle.Render("=== prforum doctor ==="))

	fmt.Print("Configuration ............ ")
	if problems := cfg.Problems(); len(problems) > 0 {
		fmt.Println(warnStyle.Render(fmt.Sprintf("FAIL (%d problems)", len(problems))))
		for _, p := range problems {
			fmt.Println(dimStyle.Render("  - " + p.Error()))
		}
		allOK = false
	} else {
		fmt.Println(successStyle.Render("OK"))
	}

	fmt.Print("Database ................. ")
	if cfg.Database.Driver == "none" {
		fmt.Println(dimStyle.Render("disabled"))
	} else if db, err := database.New(cfg.Database); err != nil {
		fmt.Println(warnStyle.Render(fmt.Sprintf("FAIL (%s)", err)))
		allOK = false
	} else {
		if err := db.Ping(ctx); err != nil {
			fmt.Println(warnStyle.Render(fmt.Sprintf("FAIL (%s)", err)))
			allOK = false
		} else {
			fmt.Println(successStyle.Render("OK (" + db.Driver() + ")"))
		}
		db.Close()
	}

	if !doctorOffline {
		fmt.Print("Discord bot .............. ")
		if err := checkDiscord(ctx, cfg.Discord.Token, cfg.Discord.ForumChannelID); err != nil {
			fmt.Println(warnStyle.Render(fmt.Sprintf("FAIL (%s)", err)))
			allOK = false
		} else {
			fmt.Println(successStyle.Render("OK"))
		}

		fmt.Print("GitHub access ............ ")
		if cfg.GitHub.Token == "" {
			fmt.Println(warnStyle.Render("WARN (no token)"))
			allOK = false
		} else if err := repository.NewGitHub(cfg.GitHub).CheckAccess(ctx); err != nil {
			fmt.Println(warnStyle.Render(fmt.Sprintf("FAIL (%s)", err)))
			allOK = false
		} else {
			fmt.Println(successStyle.Render("OK (" + cfg.GitHub.FullName() + ")"))
		}
	}

	fmt.Print("ripgrep (grep command) ... ")
	if search.RipgrepAvailable() {
		fmt.Println(successStyle.Render("OK"))
	} else {
		fmt.Println(dimStyle.Render("NOT FOUND (optional, /grep will reply with an install hint)"))
	}

	fmt.Print("Search mirror ............ ")
	if mirror := newMirror(cfg); mirror.Exists() {
		fmt.Println(successStyle.Render("OK (" + mirror.Path() + ")"))
	} else {
		fmt.Println(dimStyle.Render("not cloned yet (first /files or /grep will clone it)"))
	}

	fmt.Println()
	if allOK {
		fmt.Println(successStyle.Render("All checks passed, prforum is ready!"))
	} else {
		fmt.Println(warnStyle.Render("Some checks failed, run 'prforum onboard' to fix."))
	}
	return nil
}

// checkDiscord verifies the token and that the forum channel is a forum.
func checkDiscord(ctx context.Context, token, forumID string) error {
	if token == "" {
		return fmt.Errorf("no token")
	}
	s, err := discord.NewSession(token)
	if err != nil {
		return err
	}
	if _, err := s.User("@me", discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("token rejected: %w", err)
	}
	if forumID == "" {
		return nil
	}
	ch, err := s.Channel(forumID, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("fetching forum channel: %w", err)
	}
	if ch.Type != discordgo.ChannelTypeGuildForum {
		return fmt.Errorf("channel %s is not a forum", forumID)
	}
	return nil
}
