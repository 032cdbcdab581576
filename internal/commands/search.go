package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/temper-mc/prforum/internal/search"
)

const (
	defaultLimit = 3
	maxLimit     = 20
)

// Mirror is the local repository checkout searched by Files and Grep.
type Mirror interface {
	Exists() bool
	Sync(ctx context.Context) error
	Path() string
	TrackedFiles() ([]string, error)
	BlobURL(path string, line int) string
}

// Files is the "files" command: fuzzy search over tracked file paths.
type Files struct {
	Mirror Mirror
}

func (f *Files) Definition() *discordgo.ApplicationCommand {
	return searchDefinition("files", "Search for files in the repository")
}

func (f *Files) Aliases() []string {
	return []string{"f", "file", "fuzzy", "file_search"}
}

func (f *Files) Handle(ctx context.Context, req Request, reply Replier) error {
	query := req.String("query")
	if err := syncMirror(ctx, f.Mirror, reply); err != nil {
		return err
	}

	paths, err := f.Mirror.TrackedFiles()
	if err != nil {
		return fmt.Errorf("listing files: %w", err)
	}
	ranked := search.RankPaths(query, paths)
	if len(ranked) == 0 {
		return reply.Reply(ctx, fmt.Sprintf("No files found for query `%s`", query))
	}

	ranked = ranked[:min(len(ranked), limit(req))]
	lines := make([]string, 0, len(ranked))
	for _, p := range ranked {
		lines = append(lines, "- "+link(f.Mirror, p, 0))
	}
	return reply.Reply(ctx, joinLines(fmt.Sprintf("Found files for query `%s`:", query), lines))
}

// Grep is the "grep" command: ripgrep text search over the checkout.
type Grep struct {
	Mirror Mirror
	// Available and Search default to the ripgrep implementation.
	Available func() bool
	Search    func(ctx context.Context, dir, pattern string) ([]search.TextMatch, error)
}

func (g *Grep) Definition() *discordgo.ApplicationCommand {
	return searchDefinition("grep", "Search for text in the repository")
}

func (g *Grep) Aliases() []string {
	return []string{"text_search"}
}

func (g *Grep) Handle(ctx context.Context, req Request, reply Replier) error {
	available, run := g.Available, g.Search
	if available == nil {
		available = search.RipgrepAvailable
	}
	if run == nil {
		run = search.Grep
	}

	if !available() {
		return reply.Reply(ctx, "Ripgrep (rg) is not installed or not in PATH. Please install it to use this command.")
	}

	query := req.String("query")
	if err := syncMirror(ctx, g.Mirror, reply); err != nil {
		return err
	}

	matches, err := run(ctx, g.Mirror.Path(), query)
	if err != nil {
		slog.Error("Failed to search repository", "query", query, "error", err)
		return fmt.Errorf("searching repository: %w", err)
	}
	if len(matches) == 0 {
		return reply.Reply(ctx, fmt.Sprintf("No matches found for query `%s`", query))
	}

	matches = matches[:min(len(matches), limit(req))]
	lines := make([]string, 0, len(matches))
	for _, m := range matches {
		lines = append(lines, fmt.Sprintf("- %s: `%s`", link(g.Mirror, m.Path, m.LineNumber), inlineCode(m.Line)))
	}
	return reply.Reply(ctx, joinLines(fmt.Sprintf("Found matches for query `%s`:", query), lines))
}

func searchDefinition(name, description string) *discordgo.ApplicationCommand {
	minLimit := 1.0
	return &discordgo.ApplicationCommand{
		Name:        name,
		Description: description,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "query",
				Description: "Search query",
				Required:    true,
			},
			{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "limit",
				Description: fmt.Sprintf("How many results to return (default: %d)", defaultLimit),
				MinValue:    &minLimit,
				MaxValue:    maxLimit,
			},
		},
	}
}

// syncMirror clones or updates the checkout, warning the user when a first
// clone is about to happen.
func syncMirror(ctx context.Context, m Mirror, reply Replier) error {
	if !m.Exists() {
		if err := reply.Reply(ctx, "Git repo needs to be cloned, this may take a moment..."); err != nil {
			return err
		}
	}
	if err := m.Sync(ctx); err != nil {
		return fmt.Errorf("updating repository: %w", err)
	}
	return nil
}

func limit(req Request) int {
	n := req.Int("limit", defaultLimit)
	return int(max(1, min(n, maxLimit)))
}

func link(m Mirror, path string, line int) string {
	return fmt.Sprintf("[%s](<%s>)", path, m.BlobURL(path, line))
}

// inlineCode makes s safe to wrap in single backticks.
func inlineCode(s string) string {
	s = strings.TrimSpace(strings.ReplaceAll(s, "`", "'"))
	if len([]rune(s)) > 200 {
		s = string([]rune(s)[:199]) + "…"
	}
	return s
}
