package cmd

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/temper-mc/prforum/internal/config"
)

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Interactive setup wizard for prforum",
	Long: `Walks you through configuring prforum:
  - Discord bot token, guild, pull request forum and its tags
  - Member and maintainer roles
  - GitHub repository and token
  - Webhook secret, listen address and delivery log

Values already present in the config file or environment are offered as
defaults. The result is written to the config file.`,
	RunE: runOnboard,
}

var headerStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("#7C3AED")).
	MarginBottom(1)

var successStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("#10B981"))

var warnStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("#F59E0B"))

var dimStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("#6B7280"))

func runOnboard(cmd *cobra.Command, args []string) error {
	fmt.Println()
	fmt.Println(headerStyle.Render("  prforum, GitHub pull requests as Discord forum threads"))

	cfg, err := loadConfig()
	if err != nil {
		cfg = &config.Config{}
	}

	// --- Step 1: Discord ---
	fmt.Println(headerStyle.Render("  Step 1/4 · Discord"))
	fmt.Println(dimStyle.Render("  Enable Developer Mode in Discord to copy ids with right click.\n"))

	d := &cfg.Discord
	discordForm := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Bot token").
				Description("Discord developer portal → your application → Bot → Reset Token.\n"+
					"Enable the Server Members and Message Content intents on the same page.").
				EchoMode(huh.EchoModePassword).
				Validate(notEmpty).
				Value(&d.Token),
			huh.NewInput().Title("Guild (server) id").Validate(snowflake).Value(&d.GuildID),
			huh.NewInput().Title("Pull request forum channel id").Validate(snowflake).Value(&d.ForumChannelID),
			huh.NewInput().Title("Role given to every member who joins").Validate(snowflake).Value(&d.MemberRoleID),
			huh.NewInput().Title("Maintainer role (may run /merge or .merge)").Validate(snowflake).Value(&d.MaintainerRoleID),
		),
		huh.NewGroup(
			huh.NewInput().Title("Forum tag: Draft").Validate(snowflake).Value(&d.Tags.Draft),
			huh.NewInput().Title("Forum tag: Review needed").Validate(snowflake).Value(&d.Tags.ReviewNeeded),
			huh.NewInput().Title("Forum tag: Approved").Validate(snowflake).Value(&d.Tags.Approved),
			huh.NewInput().Title("Forum tag: Merged").Validate(snowflake).Value(&d.Tags.Merged),
			huh.NewInput().Title("Forum tag: Closed").Validate(snowflake).Value(&d.Tags.Closed),
		).Description("Tag ids are listed in the forum's settings, or via the API."),
	)
	if err := discordForm.Run(); err != nil {
		return err
	}

	// --- Step 2: GitHub ---
	fmt.Println(headerStyle.Render("\n  Step 2/4 · GitHub"))
	fmt.Println(dimStyle.Render("  The token needs pull request write access to merge from Discord.\n"))

	g := &cfg.GitHub
	githubForm := huh.NewForm(huh.NewGroup(
		huh.NewInput().Title("Repository owner").Placeholder("temper-mc").Validate(notEmpty).Value(&g.Owner),
		huh.NewInput().Title("Repository name").Placeholder("temper").Validate(notEmpty).Value(&g.Repo),
		huh.NewInput().
			Title("GitHub token").
			Placeholder("github_pat_...").
			EchoMode(huh.EchoModePassword).
			Validate(notEmpty).
			Value(&g.Token),
		huh.NewInput().
			Title("Webhook signing secret (optional)").
			Description("The 'Secret' field of the GitHub webhook. Enables signature checks.").
			EchoMode(huh.EchoModePassword).
			Value(&g.WebhookHMACSecret),
	))
	if err := githubForm.Run(); err != nil {
		return err
	}

	// --- Step 3: Webhook intake ---
	fmt.Println(headerStyle.Render("\n  Step 3/4 · Webhook"))

	if cfg.Webhook.Secret == "" {
		secret, err := randomSecret()
		if err != nil {
			return err
		}
		cfg.Webhook.Secret = secret
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = "0.0.0.0:8080"
	}
	webhookForm := huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title("Webhook path secret").
			Description("Part of the URL GitHub posts to. A random value was generated.").
			Validate(notEmpty).
			Value(&cfg.Webhook.Secret),
		huh.NewInput().Title("Listen address").Validate(notEmpty).Value(&cfg.Server.Addr),
	))
	if err := webhookForm.Run(); err != nil {
		return err
	}

	// --- Step 4: Delivery log ---
	fmt.Println(headerStyle.Render("\n  Step 4/4 · Delivery log"))

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	dbForm := huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().
			Title("Where should webhook deliveries be recorded?").
			Options(
				huh.NewOption("SQLite file (default)", "sqlite"),
				huh.NewOption("MySQL", "mysql"),
				huh.NewOption("Nowhere", "none"),
			).
			Value(&cfg.Database.Driver),
	))
	if err := dbForm.Run(); err != nil {
		return err
	}
	switch cfg.Database.Driver {
	case "sqlite":
		if cfg.Database.Path == "" {
			cfg.Database.Path = config.DefaultDBFile
		}
		if err := huh.NewInput().Title("SQLite file").Value(&cfg.Database.Path).Run(); err != nil {
			return err
		}
	case "mysql":
		if err := huh.NewInput().
			Title("MySQL DSN").
			Placeholder("user:pass@tcp(localhost:3306)/prforum").
			Validate(notEmpty).
			Value(&cfg.Database.DSN).
			Run(); err != nil {
			return err
		}
	}

	if err := config.Save(cfg, configPath()); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Println()
	fmt.Println(successStyle.Render("  Configuration saved to " + configPath()))
	fmt.Println(dimStyle.Render("  Add a webhook to " + cfg.GitHub.FullName() + " pointing at:"))
	fmt.Println("    http://<public-host>" + portOf(cfg.Server.Addr) + "/push/" + cfg.Webhook.Secret)
	fmt.Println(dimStyle.Render("  Then run 'prforum doctor' and 'prforum serve'."))
	return nil
}

func notEmpty(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("required")
	}
	return nil
}

func snowflake(s string) error {
	if err := notEmpty(s); err != nil {
		return err
	}
	if _, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64); err != nil {
		return fmt.Errorf("must be a numeric Discord id")
	}
	return nil
}

func randomSecret() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating webhook secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// portOf returns the ":port" suffix of a listen address.
func portOf(addr string) string {
	if i := strings.LastIndex(addr, ":"); i >= 0 {
		return addr[i:]
	}
	return ""
}
