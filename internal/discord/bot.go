package discord

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/temper-mc/prforum/internal/commands"
)

// Intents requested by the bot: guild structure for threads, member joins
// for role assignment, and guild message content for prefix commands.
const Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMembers |
	discordgo.IntentsGuildMessages | discordgo.IntentsMessageContent

// Installer starts the projector loop on the first ready signal.
type Installer interface {
	Install(ctx context.Context) bool
}

// botSession is the subset of *discordgo.Session the event handlers use.
type botSession interface {
	GuildMemberRoleAdd(guildID, userID, roleID string, options ...discordgo.RequestOption) error
	ApplicationCommandBulkOverwrite(appID string, guildID string, commands []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	FollowupMessageCreate(interaction *discordgo.Interaction, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// BotConfig identifies the guild the bot serves.
type BotConfig struct {
	GuildID      string
	MemberRoleID string
}

// Bot owns the gateway session and routes its events.
type Bot struct {
	session   *discordgo.Session
	cfg       BotConfig
	installer Installer
	router    *commands.Router

	ctx          context.Context
	registerOnce sync.Once
}

// NewSession creates an unopened session for a bot token.
func NewSession(token string) (*discordgo.Session, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("creating discord session: %w", err)
	}
	s.Identify.Intents = Intents
	return s, nil
}

// NewBot wires a session to the projector installer and command router.
func NewBot(session *discordgo.Session, cfg BotConfig, installer Installer, router *commands.Router) *Bot {
	return &Bot{session: session, cfg: cfg, installer: installer, router: router}
}

// Open registers event handlers and connects to the gateway. ctx bounds
// the projector loop and every command run on behalf of the session.
func (b *Bot) Open(ctx context.Context) error {
	b.ctx = ctx
	b.session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		b.onReady(s, r)
	})
	b.session.AddHandler(func(s *discordgo.Session, m *discordgo.GuildMemberAdd) {
		b.onMemberAdd(s, m)
	})
	b.session.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		b.onInteraction(s, i)
	})
	b.session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		b.onMessage(s, m)
	})

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("opening discord gateway: %w", err)
	}
	return nil
}

// Close disconnects from the gateway.
func (b *Bot) Close() error {
	return b.session.Close()
}

func (b *Bot) onReady(s botSession, r *discordgo.Ready) {
	name := ""
	if r.User != nil {
		name = r.User.Username
	}
	slog.Info("Discord session ready", "user", name, "guilds", len(r.Guilds))

	if b.installer.Install(b.ctx) {
		slog.Info("Event queue installed")
	}

	b.registerOnce.Do(func() {
		if r.User == nil {
			slog.Error("Ready event without user, skipping command registration")
			return
		}
		defs := b.router.Definitions()
		if _, err := s.ApplicationCommandBulkOverwrite(r.User.ID, b.cfg.GuildID, defs, discordgo.WithContext(b.ctx)); err != nil {
			slog.Error("Failed to register commands", "guild", b.cfg.GuildID, "error", err)
			return
		}
		slog.Info("Registered commands", "guild", b.cfg.GuildID, "count", len(defs))
	})
}

func (b *Bot) onMemberAdd(s botSession, m *discordgo.GuildMemberAdd) {
	if m.Member == nil || m.User == nil || m.GuildID != b.cfg.GuildID {
		return
	}
	if err := s.GuildMemberRoleAdd(m.GuildID, m.User.ID, b.cfg.MemberRoleID, discordgo.WithContext(b.ctx)); err != nil {
		slog.Error("Failed assigning member role to new member", "user", m.User.Username, "error", err)
		return
	}
	slog.Debug("Assigned member role", "user", m.User.Username)
}

func (b *Bot) onInteraction(s botSession, i *discordgo.InteractionCreate) {
	if i.Interaction == nil || i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	}, discordgo.WithContext(b.ctx))
	if err != nil {
		slog.Error("Failed to acknowledge interaction", "error", err)
		return
	}

	b.router.Dispatch(b.ctx, toRequest(i.Interaction), &followupReplier{s: s, interaction: i.Interaction})
}

// onMessage runs prefix commands such as ".f chunk" posted in the guild.
func (b *Bot) onMessage(s botSession, m *discordgo.MessageCreate) {
	if m.Message == nil || m.Author == nil || m.Author.Bot || m.GuildID != b.cfg.GuildID {
		return
	}
	req, ok, err := b.router.ParseMessage(m.Content)
	if !ok {
		return
	}
	req.GuildID = m.GuildID
	req.ChannelID = m.ChannelID
	req.UserID = m.Author.ID
	req.UserName = m.Author.Username

	reply := &messageReplier{s: s, channelID: m.ChannelID, ref: m.SoftReference()}
	if err != nil {
		slog.Debug("Rejected prefix command", "command", req.Name, "user", req.UserName, "error", err)
		if replyErr := reply.Reply(b.ctx, err.Error()); replyErr != nil {
			slog.Error("Failed to report usage", "command", req.Name, "error", replyErr)
		}
		return
	}
	b.router.Dispatch(b.ctx, req, reply)
}

// messageReplier answers a prefix command in the channel it was posted in.
type messageReplier struct {
	s         botSession
	channelID string
	ref       *discordgo.MessageReference
}

func (r *messageReplier) Reply(ctx context.Context, content string) error {
	_, err := r.s.ChannelMessageSendComplex(r.channelID, &discordgo.MessageSend{
		Content:         content,
		Reference:       r.ref,
		AllowedMentions: &discordgo.MessageAllowedMentions{},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("sending reply: %w", err)
	}
	return nil
}

// followupReplier answers a deferred interaction with follow-up messages.
type followupReplier struct {
	s           botSession
	interaction *discordgo.Interaction
}

func (r *followupReplier) Reply(ctx context.Context, content string) error {
	_, err := r.s.FollowupMessageCreate(r.interaction, true, &discordgo.WebhookParams{
		Content:         content,
		AllowedMentions: &discordgo.MessageAllowedMentions{},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("sending follow-up: %w", err)
	}
	return nil
}

func toRequest(i *discordgo.Interaction) commands.Request {
	data := i.ApplicationCommandData()
	req := commands.Request{
		Name:      data.Name,
		GuildID:   i.GuildID,
		ChannelID: i.ChannelID,
		Strings:   map[string]string{},
		Ints:      map[string]int64{},
	}

	user := i.User
	if i.Member != nil && i.Member.User != nil {
		user = i.Member.User
	}
	if user != nil {
		req.UserID = user.ID
		req.UserName = user.Username
	}

	for _, opt := range data.Options {
		switch opt.Type {
		case discordgo.ApplicationCommandOptionString:
			req.Strings[opt.Name] = opt.StringValue()
		case discordgo.ApplicationCommandOptionInteger:
			req.Ints[opt.Name] = opt.IntValue()
		}
	}
	return req
}
