// Package commands implements the bot's commands, invoked either as slash
// commands or as prefixed chat messages.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
)

// maxReplyLen is Discord's limit on message content.
const maxReplyLen = 2000

// Request is a command invocation, stripped of transport details.
type Request struct {
	Name      string
	GuildID   string
	ChannelID string
	UserID    string
	UserName  string
	Strings   map[string]string
	Ints      map[string]int64
}

// String returns a string option, or "" when it was not given.
func (r Request) String(name string) string {
	return r.Strings[name]
}

// Int returns an integer option, or def when it was not given.
func (r Request) Int(name string, def int64) int64 {
	if v, ok := r.Ints[name]; ok {
		return v
	}
	return def
}

// Replier sends messages back to wherever the command was invoked.
type Replier interface {
	Reply(ctx context.Context, content string) error
}

// Command is a single slash command.
type Command interface {
	Definition() *discordgo.ApplicationCommand
	Handle(ctx context.Context, req Request, reply Replier) error
}

// Router dispatches requests to commands by name.
type Router struct {
	commands map[string]Command
	aliases  map[string]string
}

// NewRouter creates a Router serving cmds.
func NewRouter(cmds ...Command) *Router {
	r := &Router{
		commands: make(map[string]Command, len(cmds)),
		aliases:  make(map[string]string),
	}
	for _, c := range cmds {
		name := c.Definition().Name
		r.commands[name] = c
		if a, ok := c.(Aliased); ok {
			for _, alias := range a.Aliases() {
				r.aliases[alias] = name
			}
		}
	}
	return r
}

// Definitions returns every command's definition, sorted by name.
func (r *Router) Definitions() []*discordgo.ApplicationCommand {
	defs := make([]*discordgo.ApplicationCommand, 0, len(r.commands))
	for _, c := range r.commands {
		defs = append(defs, c.Definition())
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// Dispatch runs the command named by req. Failures are logged and reported
// in-channel.
func (r *Router) Dispatch(ctx context.Context, req Request, reply Replier) {
	cmd, ok := r.commands[req.Name]
	if !ok {
		slog.Warn("Unknown command", "command", req.Name, "user", req.UserName)
		_ = reply.Reply(ctx, fmt.Sprintf("Unknown command `%s`.", req.Name))
		return
	}

	slog.Info("Running command", "command", req.Name, "user", req.UserName, "channel", req.ChannelID)
	if err := cmd.Handle(ctx, req, reply); err != nil {
		slog.Error("Command failed", "command", req.Name, "user", req.UserName, "error", err)
		if replyErr := reply.Reply(ctx, truncate("Command failed: "+err.Error())); replyErr != nil {
			slog.Error("Failed to report command failure", "command", req.Name, "error", replyErr)
		}
	}
}

func truncate(s string) string {
	if utf8.RuneCountInString(s) <= maxReplyLen {
		return s
	}
	return string([]rune(s)[:maxReplyLen-1]) + "…"
}

// joinLines joins lines under header, dropping trailing lines that would
// push the message past Discord's limit.
func joinLines(header string, lines []string) string {
	var b strings.Builder
	b.WriteString(header)
	for _, l := range lines {
		if utf8.RuneCountInString(b.String())+1+utf8.RuneCountInString(l) > maxReplyLen {
			break
		}
		b.WriteString("\n")
		b.WriteString(l)
	}
	return b.String()
}
