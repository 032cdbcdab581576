// Package discord connects the pull request forum to a Discord guild.
package discord

import (
	"context"
	"fmt"
	"slices"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"

	"github.com/temper-mc/prforum/internal/discussion"
)

// maxThreadNameLen is Discord's limit on channel names.
const maxThreadNameLen = 100

// session is the subset of *discordgo.Session the surface uses.
type session interface {
	GuildThreadsActive(guildID string, options ...discordgo.RequestOption) (*discordgo.ThreadsList, error)
	ForumThreadStartComplex(channelID string, threadData *discordgo.ThreadStart, messageData *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelEditComplex(channelID string, data *discordgo.ChannelEdit, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	GuildMember(guildID, userID string, options ...discordgo.RequestOption) (*discordgo.Member, error)
}

// Surface implements discussion.Surface against a guild's forum channels.
type Surface struct {
	s       session
	guildID string
}

// NewSurface creates a Surface for guildID.
func NewSurface(s *discordgo.Session, guildID string) *Surface {
	return newSurface(s, guildID)
}

func newSurface(s session, guildID string) *Surface {
	return &Surface{s: s, guildID: guildID}
}

func (d *Surface) ListActiveThreads(ctx context.Context) ([]discussion.Thread, error) {
	list, err := d.s.GuildThreadsActive(d.guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("fetching active threads: %w", err)
	}
	threads := make([]discussion.Thread, 0, len(list.Threads))
	for _, ch := range list.Threads {
		if ch == nil {
			continue
		}
		threads = append(threads, toThread(ch))
	}
	return threads, nil
}

func (d *Surface) CreateThread(ctx context.Context, forumID, name, content string, tags []string) (discussion.Thread, error) {
	ch, err := d.s.ForumThreadStartComplex(forumID,
		&discordgo.ThreadStart{Name: truncateName(name), AppliedTags: tags},
		&discordgo.MessageSend{Content: content},
		discordgo.WithContext(ctx),
	)
	if err != nil {
		return discussion.Thread{}, fmt.Errorf("starting forum thread: %w", err)
	}
	return toThread(ch), nil
}

func (d *Surface) EditThreadTags(ctx context.Context, threadID string, tags []string) error {
	applied := slices.Clone(tags)
	if applied == nil {
		applied = []string{}
	}
	if _, err := d.s.ChannelEditComplex(threadID, &discordgo.ChannelEdit{AppliedTags: &applied}, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("editing thread tags: %w", err)
	}
	return nil
}

func (d *Surface) SendMessage(ctx context.Context, threadID, content string) error {
	if _, err := d.s.ChannelMessageSend(threadID, content, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("sending message: %w", err)
	}
	return nil
}

// Thread fetches a channel by id.
func (d *Surface) Thread(ctx context.Context, channelID string) (discussion.Thread, error) {
	ch, err := d.s.Channel(channelID, discordgo.WithContext(ctx))
	if err != nil {
		return discussion.Thread{}, fmt.Errorf("fetching channel %s: %w", channelID, err)
	}
	return toThread(ch), nil
}

// HasRole reports whether the guild member userID holds roleID.
func (d *Surface) HasRole(ctx context.Context, guildID, userID, roleID string) (bool, error) {
	m, err := d.s.GuildMember(guildID, userID, discordgo.WithContext(ctx))
	if err != nil {
		return false, fmt.Errorf("fetching member %s: %w", userID, err)
	}
	return slices.Contains(m.Roles, roleID), nil
}

func toThread(ch *discordgo.Channel) discussion.Thread {
	return discussion.Thread{
		ID:       ch.ID,
		ParentID: ch.ParentID,
		Name:     ch.Name,
		Tags:     ch.AppliedTags,
	}
}

func truncateName(name string) string {
	if utf8.RuneCountInString(name) <= maxThreadNameLen {
		return name
	}
	return string([]rune(name)[:maxThreadNameLen-1]) + "…"
}
