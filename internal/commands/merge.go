package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/temper-mc/prforum/internal/discussion"
	"github.com/temper-mc/prforum/internal/repository"
)

// ThreadLookup fetches the channel a command was invoked in.
type ThreadLookup interface {
	Thread(ctx context.Context, channelID string) (discussion.Thread, error)
}

// RoleChecker reports guild role membership.
type RoleChecker interface {
	HasRole(ctx context.Context, guildID, userID, roleID string) (bool, error)
}

// Merger merges pull requests.
type Merger interface {
	MergePullRequest(ctx context.Context, number int, opts repository.MergeOptions) (repository.MergeResult, error)
}

// Merge is the maintainer-only "merge" command. It must be run inside the
// forum thread of the pull request it merges.
type Merge struct {
	Threads          ThreadLookup
	Roles            RoleChecker
	GitHub           Merger
	ForumID          string
	MaintainerRoleID string
}

func (m *Merge) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "merge",
		Description: "Merge the pull request discussed in this thread",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "method",
				Description: "How to merge (default: merge)",
				Choices: []*discordgo.ApplicationCommandOptionChoice{
					{Name: "merge", Value: string(repository.MergeMethodMerge)},
					{Name: "squash", Value: string(repository.MergeMethodSquash)},
					{Name: "rebase", Value: string(repository.MergeMethodRebase)},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "title",
				Description: "Commit title",
			},
		},
	}
}

func (m *Merge) Handle(ctx context.Context, req Request, reply Replier) error {
	ok, err := m.Roles.HasRole(ctx, req.GuildID, req.UserID, m.MaintainerRoleID)
	if err != nil {
		return fmt.Errorf("checking maintainer role: %w", err)
	}
	if !ok {
		return reply.Reply(ctx, "Only maintainers can merge pull requests.")
	}

	number, err := m.pullRequestNumber(ctx, req.ChannelID)
	if err != nil {
		if errors.Is(err, errNotPullRequestThread) {
			return reply.Reply(ctx, "No PR provided! Run this command inside a pull request thread.")
		}
		return err
	}

	method, err := repository.ParseMergeMethod(req.String("method"))
	if err != nil {
		return reply.Reply(ctx, err.Error())
	}

	if err := reply.Reply(ctx, "Attempting to merge..."); err != nil {
		return err
	}

	_, err = m.GitHub.MergePullRequest(ctx, number, repository.MergeOptions{
		Method:  method,
		Title:   stripBackticks(req.String("title")),
		Message: "Merged on Discord by " + req.UserName,
	})
	if err != nil {
		return reply.Reply(ctx, truncate(fmt.Sprintf("Pull request #%d failed to merge: %v", number, err)))
	}
	return reply.Reply(ctx, fmt.Sprintf("Pull request #%d merged.", number))
}

var errNotPullRequestThread = errors.New("not a pull request thread")

func (m *Merge) pullRequestNumber(ctx context.Context, channelID string) (int, error) {
	thread, err := m.Threads.Thread(ctx, channelID)
	if err != nil {
		return 0, fmt.Errorf("looking up channel: %w", err)
	}
	if thread.ParentID != m.ForumID {
		return 0, errNotPullRequestThread
	}
	n, ok := discussion.ThreadNumber(thread.Name)
	if !ok {
		return 0, errNotPullRequestThread
	}
	return n, nil
}

// stripBackticks removes one leading and one trailing backtick so a title
// can be given as inline code.
func stripBackticks(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "`")
	return strings.TrimSuffix(s, "`")
}
