package discord

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/temper-mc/prforum/internal/commands"
)

type fakeSession struct {
	threads []*discordgo.Channel
	members map[string]*discordgo.Member

	started    *discordgo.ThreadStart
	startedIn  string
	firstPost  string
	editedTags *[]string
	sent       []string
	listErr    error
}

func (f *fakeSession) GuildThreadsActive(string, ...discordgo.RequestOption) (*discordgo.ThreadsList, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return &discordgo.ThreadsList{Threads: f.threads}, nil
}

func (f *fakeSession) ForumThreadStartComplex(channelID string, td *discordgo.ThreadStart, md *discordgo.MessageSend, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	f.startedIn = channelID
	f.started = td
	f.firstPost = md.Content
	return &discordgo.Channel{ID: "new", ParentID: channelID, Name: td.Name, AppliedTags: td.AppliedTags}, nil
}

func (f *fakeSession) ChannelEditComplex(id string, data *discordgo.ChannelEdit, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	f.editedTags = data.AppliedTags
	return &discordgo.Channel{ID: id}, nil
}

func (f *fakeSession) ChannelMessageSend(_ string, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.sent = append(f.sent, content)
	return &discordgo.Message{Content: content}, nil
}

func (f *fakeSession) Channel(id string, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	for _, ch := range f.threads {
		if ch.ID == id {
			return ch, nil
		}
	}
	return nil, errors.New("unknown channel")
}

func (f *fakeSession) GuildMember(_, userID string, _ ...discordgo.RequestOption) (*discordgo.Member, error) {
	m, ok := f.members[userID]
	if !ok {
		return nil, errors.New("unknown member")
	}
	return m, nil
}

func TestSurfaceListActiveThreads(t *testing.T) {
	fs := &fakeSession{threads: []*discordgo.Channel{
		{ID: "1", ParentID: "forum", Name: "#1 - a by b", AppliedTags: []string{"t"}},
		nil,
	}}
	threads, err := newSurface(fs, "guild").ListActiveThreads(context.Background())
	require.NoError(t, err)
	require.Len(t, threads, 1)
	assert.Equal(t, "forum", threads[0].ParentID)
	assert.Equal(t, []string{"t"}, threads[0].Tags)
}

func TestSurfaceListError(t *testing.T) {
	fs := &fakeSession{listErr: errors.New("rate limited")}
	_, err := newSurface(fs, "guild").ListActiveThreads(context.Background())
	assert.ErrorContains(t, err, "rate limited")
}

func TestSurfaceCreateThreadTruncatesName(t *testing.T) {
	fs := &fakeSession{}
	name := "#1 - " + strings.Repeat("x", 200) + " by alice"

	th, err := newSurface(fs, "guild").CreateThread(context.Background(), "forum", name, "https://github.com/o/r/pull/1", []string{"draft"})
	require.NoError(t, err)
	assert.Equal(t, "forum", fs.startedIn)
	assert.Len(t, []rune(fs.started.Name), maxThreadNameLen)
	assert.True(t, strings.HasPrefix(fs.started.Name, "#1 - "))
	assert.Equal(t, []string{"draft"}, fs.started.AppliedTags)
	assert.Equal(t, "https://github.com/o/r/pull/1", fs.firstPost)
	assert.Equal(t, "new", th.ID)
}

func TestSurfaceEditThreadTagsSendsEmptyList(t *testing.T) {
	fs := &fakeSession{}
	require.NoError(t, newSurface(fs, "guild").EditThreadTags(context.Background(), "th", nil))
	require.NotNil(t, fs.editedTags)
	assert.Empty(t, *fs.editedTags)
}

func TestSurfaceHasRole(t *testing.T) {
	fs := &fakeSession{members: map[string]*discordgo.Member{
		"u1": {Roles: []string{"member", "maintainer"}},
		"u2": {Roles: []string{"member"}},
	}}
	s := newSurface(fs, "guild")

	ok, err := s.HasRole(context.Background(), "guild", "u1", "maintainer")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.HasRole(context.Background(), "guild", "u2", "maintainer")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.HasRole(context.Background(), "guild", "ghost", "maintainer")
	assert.Error(t, err)
}

type fakeBotSession struct {
	roleAdds    [][3]string
	registered  []*discordgo.ApplicationCommand
	registerFor string
	responses   []discordgo.InteractionResponseType
	followups   []string
	roleErr     error

	channelReplies []string
	references     []*discordgo.MessageReference
}

func (f *fakeBotSession) GuildMemberRoleAdd(guildID, userID, roleID string, _ ...discordgo.RequestOption) error {
	f.roleAdds = append(f.roleAdds, [3]string{guildID, userID, roleID})
	return f.roleErr
}

func (f *fakeBotSession) ApplicationCommandBulkOverwrite(appID, _ string, cmds []*discordgo.ApplicationCommand, _ ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error) {
	f.registerFor = appID
	f.registered = cmds
	return cmds, nil
}

func (f *fakeBotSession) InteractionRespond(_ *discordgo.Interaction, resp *discordgo.InteractionResponse, _ ...discordgo.RequestOption) error {
	f.responses = append(f.responses, resp.Type)
	return nil
}

func (f *fakeBotSession) FollowupMessageCreate(_ *discordgo.Interaction, _ bool, data *discordgo.WebhookParams, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.followups = append(f.followups, data.Content)
	return &discordgo.Message{}, nil
}

type countingInstaller struct {
	calls, installs int
}

func (c *countingInstaller) Install(context.Context) bool {
	c.calls++
	if c.installs == 0 {
		c.installs++
		return true
	}
	return false
}

type echoCommand struct{}

func (echoCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{Name: "echo"}
}

func (echoCommand) Handle(ctx context.Context, req commands.Request, reply commands.Replier) error {
	return reply.Reply(ctx, req.UserName+" said "+req.String("text")+" x"+strings.Repeat("!", int(req.Int("times", 0))))
}

func newTestBot(installer Installer) *Bot {
	return &Bot{
		cfg:       BotConfig{GuildID: "guild", MemberRoleID: "member"},
		installer: installer,
		router:    commands.NewRouter(echoCommand{}),
		ctx:       context.Background(),
	}
}

func TestBotReadyInstallsOnceAndRegistersCommands(t *testing.T) {
	inst := &countingInstaller{}
	b := newTestBot(inst)
	fs := &fakeBotSession{}
	ready := &discordgo.Ready{User: &discordgo.User{ID: "app", Username: "prbot"}}

	b.onReady(fs, ready)
	b.onReady(fs, ready)

	assert.Equal(t, 2, inst.calls)
	assert.Equal(t, 1, inst.installs)
	assert.Equal(t, "app", fs.registerFor)
	require.Len(t, fs.registered, 1)
	assert.Equal(t, "echo", fs.registered[0].Name)
}

func TestBotAssignsMemberRole(t *testing.T) {
	b := newTestBot(&countingInstaller{})
	fs := &fakeBotSession{}

	b.onMemberAdd(fs, &discordgo.GuildMemberAdd{Member: &discordgo.Member{GuildID: "guild", User: &discordgo.User{ID: "u1"}}})
	b.onMemberAdd(fs, &discordgo.GuildMemberAdd{Member: &discordgo.Member{GuildID: "elsewhere", User: &discordgo.User{ID: "u2"}}})

	assert.Equal(t, [][3]string{{"guild", "u1", "member"}}, fs.roleAdds)
}

func TestBotMemberRoleFailureIsLogged(t *testing.T) {
	b := newTestBot(&countingInstaller{})
	fs := &fakeBotSession{roleErr: errors.New("missing permissions")}

	b.onMemberAdd(fs, &discordgo.GuildMemberAdd{Member: &discordgo.Member{GuildID: "guild", User: &discordgo.User{ID: "u1"}}})
	assert.Len(t, fs.roleAdds, 1)
}

func TestBotRoutesInteraction(t *testing.T) {
	b := newTestBot(&countingInstaller{})
	fs := &fakeBotSession{}

	i := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Type:      discordgo.InteractionApplicationCommand,
		GuildID:   "guild",
		ChannelID: "chan",
		Member:    &discordgo.Member{User: &discordgo.User{ID: "u1", Username: "alice"}},
		Data: discordgo.ApplicationCommandInteractionData{
			Name: "echo",
			Options: []*discordgo.ApplicationCommandInteractionDataOption{
				{Name: "text", Type: discordgo.ApplicationCommandOptionString, Value: "hi"},
				{Name: "times", Type: discordgo.ApplicationCommandOptionInteger, Value: float64(2)},
			},
		},
	}}

	b.onInteraction(fs, i)

	assert.Equal(t, []discordgo.InteractionResponseType{discordgo.InteractionResponseDeferredChannelMessageWithSource}, fs.responses)
	assert.Equal(t, []string{"alice said hi x!!"}, fs.followups)
}

func TestBotIgnoresNonCommandInteractions(t *testing.T) {
	b := newTestBot(&countingInstaller{})
	fs := &fakeBotSession{}

	b.onInteraction(fs, &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{Type: discordgo.InteractionMessageComponent}})
	assert.Empty(t, fs.responses)
}

func (f *fakeBotSession) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.channelReplies = append(f.channelReplies, channelID+": "+data.Content)
	f.references = append(f.references, data.Reference)
	return &discordgo.Message{}, nil
}

type textCommand struct{}

func (textCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name: "echo",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionInteger, Name: "times", Required: true},
			{Type: discordgo.ApplicationCommandOptionString, Name: "text"},
		},
	}
}

func (textCommand) Aliases() []string { return []string{"e"} }

func (textCommand) Handle(ctx context.Context, req commands.Request, reply commands.Replier) error {
	return echoCommand{}.Handle(ctx, req, reply)
}

func message(guild, author, content string, bot bool) *discordgo.MessageCreate {
	return &discordgo.MessageCreate{Message: &discordgo.Message{
		ID:        "m1",
		GuildID:   guild,
		ChannelID: "chan",
		Content:   content,
		Author:    &discordgo.User{ID: "u1", Username: author, Bot: bot},
	}}
}

func TestBotRunsPrefixCommand(t *testing.T) {
	b := newTestBot(&countingInstaller{})
	b.router = commands.NewRouter(textCommand{})
	fs := &fakeBotSession{}

	b.onMessage(fs, message("guild", "alice", "!e 2 hello there", false))

	assert.Equal(t, []string{"chan: alice said hello there x!!"}, fs.channelReplies)
	require.Len(t, fs.references, 1)
	assert.Equal(t, "m1", fs.references[0].MessageID)
	assert.Empty(t, fs.responses)
}

func TestBotPrefixUsageError(t *testing.T) {
	b := newTestBot(&countingInstaller{})
	b.router = commands.NewRouter(textCommand{})
	fs := &fakeBotSession{}

	b.onMessage(fs, message("guild", "alice", ".echo twice", false))

	require.Len(t, fs.channelReplies, 1)
	assert.Contains(t, fs.channelReplies[0], "`times` must be a number")
	assert.Contains(t, fs.channelReplies[0], "Usage: `.echo <times> [text]`")
}

func TestBotIgnoresOtherMessages(t *testing.T) {
	b := newTestBot(&countingInstaller{})
	b.router = commands.NewRouter(textCommand{})
	fs := &fakeBotSession{}

	b.onMessage(fs, message("guild", "alice", "just chatting", false))
	b.onMessage(fs, message("guild", "otherbot", "!e 1 hi", true))
	b.onMessage(fs, message("elsewhere", "alice", "!e 1 hi", false))
	b.onMessage(fs, &discordgo.MessageCreate{})

	assert.Empty(t, fs.channelReplies)
}
