package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/nutsandbolts/modcore/automod/dispatch"
	"github.com/nutsandbolts/modcore/automod/engine"
	"github.com/nutsandbolts/modcore/automod/spam"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func restError(status, code int) error {
	return &discordgo.RESTError{
		Response: &http.Response{StatusCode: status, Status: http.StatusText(status)},
		Message:  &discordgo.APIErrorMessage{Code: code, Message: "test"},
	}
}

// fakeGuild mimics the discord REST API for a single guild.
type fakeGuild struct {
	mu      sync.Mutex
	guild   *discordgo.Guild
	members map[string][]string
	bans    map[string]bool
	// user IDs the bot is not allowed to touch
	protected   map[string]bool
	guildFetch  int
	memberFetch int
	calls       []string
}

func newFakeGuild() *fakeGuild {
	return &fakeGuild{
		guild: &discordgo.Guild{
			ID:      "guild1",
			OwnerID: "owner",
			Roles: []*discordgo.Role{
				{ID: "everyone", Position: 0},
				{ID: "member", Position: 1},
				{ID: "helper", Position: 5},
				{ID: "mod", Position: 10},
				{ID: "admin", Position: 15},
				{ID: "botrole", Position: 20},
			},
		},
		members: map[string][]string{
			"owner": nil,
			"bot":   {"botrole"},
			"mod":   {"member", "mod"},
			"alice": {"member"},
			"bob":   {"member"},
			"admin": {"admin"},
		},
		bans:      map[string]bool{},
		protected: map[string]bool{},
	}
}

func (f *fakeGuild) checkGuild(guildID string) error {
	if guildID != f.guild.ID {
		return restError(http.StatusNotFound, discordgo.ErrCodeUnknownGuild)
	}
	return nil
}

func (f *fakeGuild) Guild(guildID string, options ...discordgo.RequestOption) (*discordgo.Guild, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.guildFetch++
	if err := f.checkGuild(guildID); err != nil {
		return nil, err
	}
	return f.guild, nil
}

func (f *fakeGuild) GuildMember(guildID, userID string, options ...discordgo.RequestOption) (*discordgo.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.memberFetch++
	if err := f.checkGuild(guildID); err != nil {
		return nil, err
	}
	roles, ok := f.members[userID]
	if !ok {
		return nil, restError(http.StatusNotFound, discordgo.ErrCodeUnknownMember)
	}
	return &discordgo.Member{GuildID: guildID, User: &discordgo.User{ID: userID}, Roles: roles}, nil
}

func (f *fakeGuild) GuildMemberDeleteWithReason(guildID, userID, reason string, options ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "kick "+userID)
	if f.protected[userID] {
		return restError(http.StatusForbidden, discordgo.ErrCodeMissingPermissions)
	}
	if _, ok := f.members[userID]; !ok {
		return restError(http.StatusNotFound, discordgo.ErrCodeUnknownMember)
	}
	delete(f.members, userID)
	return nil
}

func (f *fakeGuild) GuildBanCreateWithReason(guildID, userID, reason string, days int, options ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf("ban %s days=%d reason=%q", userID, days, reason))
	if f.protected[userID] {
		return restError(http.StatusForbidden, discordgo.ErrCodeMissingPermissions)
	}
	f.bans[userID] = true
	delete(f.members, userID)
	return nil
}

func (f *fakeGuild) GuildBanDelete(guildID, userID string, options ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "unban "+userID)
	if !f.bans[userID] {
		return restError(http.StatusNotFound, discordgo.ErrCodeUnknownBan)
	}
	delete(f.bans, userID)
	return nil
}

func (f *fakeGuild) GuildMemberRoleAdd(guildID, userID, roleID string, options ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf("add-role %s %s", roleID, userID))
	if _, ok := f.members[userID]; !ok {
		return restError(http.StatusNotFound, discordgo.ErrCodeUnknownMember)
	}
	f.members[userID] = append(f.members[userID], roleID)
	return nil
}

func (f *fakeGuild) GuildMemberRoleRemove(guildID, userID, roleID string, options ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf("remove-role %s %s", roleID, userID))
	roles, ok := f.members[userID]
	if !ok {
		return restError(http.StatusNotFound, discordgo.ErrCodeUnknownMember)
	}
	kept := roles[:0]
	for _, r := range roles {
		if r != roleID {
			kept = append(kept, r)
		}
	}
	f.members[userID] = kept
	return nil
}

// 3 identical messages, or 5 in total, per channel
func spamConfig() spam.Config {
	return spam.Config{ContentCapacity: 3, ChannelCapacity: 5}
}

func testEngine(t *testing.T, api GuildAPI) (*engine.Engine, *Platform) {
	eng, err := engine.NewEngine(engine.Config{BotUserID: "bot", BotName: "modbot#0001"}, spamConfig(), dispatch.Config{}, slog.Default())
	require.NoError(t, err)
	p := NewPlatform(api, nil, slog.Default())
	eng.Platform = p
	return eng, p
}

func TestClassify(t *testing.T) {
	assert := assert.New(t)

	fixtures := []struct {
		err      error
		expected dispatch.Outcome
	}{
		{nil, dispatch.Success},
		{restError(http.StatusNotFound, discordgo.ErrCodeUnknownMember), dispatch.NotFound},
		{restError(http.StatusNotFound, discordgo.ErrCodeUnknownBan), dispatch.NotFound},
		{restError(http.StatusNotFound, discordgo.ErrCodeUnknownUser), dispatch.NotFound},
		{restError(http.StatusNotFound, discordgo.ErrCodeUnknownRole), dispatch.NotFound},
		{restError(http.StatusForbidden, discordgo.ErrCodeMissingPermissions), dispatch.NoAccess},
		{restError(http.StatusForbidden, discordgo.ErrCodeMissingAccess), dispatch.NoAccess},
		// status code fallback for unlisted error codes
		{restError(http.StatusForbidden, 0), dispatch.NoAccess},
		{restError(http.StatusNotFound, 0), dispatch.NotFound},
		{restError(http.StatusInternalServerError, 0), dispatch.Unexpected},
		{errors.New("connection reset"), dispatch.Unexpected},
		{fmt.Errorf("wrapped: %w", restError(http.StatusNotFound, discordgo.ErrCodeUnknownMember)), dispatch.NotFound},
		// already classified errors pass through
		{dispatch.AlreadyInStateError(nil), dispatch.AlreadyInState},
	}

	for _, f := range fixtures {
		assert.Equal(f.expected, dispatch.Classify(Classify(f.err)), "%v", f.err)
	}
}

func TestFromMessage(t *testing.T) {
	assert := assert.New(t)
	ts := time.Unix(1_700_000_000, 0)

	msg := FromMessage(&discordgo.Message{
		ID:        "m1",
		GuildID:   "guild1",
		ChannelID: "chan1",
		Content:   "hello",
		Timestamp: ts,
		Author:    &discordgo.User{ID: "alice", Username: "alice", Bot: true},
	})
	assert.Equal("m1", msg.ID)
	assert.Equal("guild1", msg.Scope())
	assert.Equal("chan1", msg.ChannelID)
	assert.Equal("alice", msg.AuthorID)
	assert.True(msg.AuthorBot)
	assert.Equal(ts, msg.CreatedAt)

	dm := FromMessage(&discordgo.Message{ChannelID: "dm1"})
	assert.Equal("dm1", dm.Scope())
	assert.Empty(dm.AuthorID)
}

func TestMemberHierarchy(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	api := newFakeGuild()
	_, p := testEngine(t, api)

	m, err := p.member(ctx, "guild1", "mod")
	assert.NoError(err)
	assert.Equal(dispatch.Member{ID: "mod", Rank: 10}, m)

	m, err = p.member(ctx, "guild1", "owner")
	assert.NoError(err)
	assert.True(m.IsOwner)
	assert.Equal(0, m.Rank)

	m, err = p.member(ctx, "guild1", "stranger")
	assert.NoError(err)
	assert.Equal(outsiderRank, m.Rank)

	// guild and members are cached
	_, err = p.member(ctx, "guild1", "mod")
	assert.NoError(err)
	assert.Equal(1, api.guildFetch)
	assert.Equal(3, api.memberFetch)

	_, err = p.member(ctx, "guild2", "mod")
	assert.Equal(dispatch.NotFound, dispatch.Classify(err))
}

func TestKickAndBan(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	api := newFakeGuild()
	eng, _ := testEngine(t, api)

	reason, err := dispatch.FormatReason("mod#1234", "mod", "")
	require.NoError(t, err)

	rep, err := eng.RunAction(ctx, "guild1", dispatch.Request[string]{
		Action:  dispatch.ActionKick,
		ActorID: "mod",
		Targets: []string{"alice", "admin", "owner", "stranger"},
		Reason:  reason,
	})
	require.NoError(t, err)
	assert.Equal(dispatch.Success, rep.Results[0].Outcome)
	assert.Equal(dispatch.PermissionDenied, rep.Results[1].Outcome)
	assert.Equal(dispatch.PermissionDenied, rep.Results[2].Outcome)
	// outsiders pass the hierarchy check, and then are not found
	assert.Equal(dispatch.NotFound, rep.Results[3].Outcome)
	assert.Equal([]string{"kick alice", "kick stranger"}, api.calls)

	api.calls = nil
	api.protected["bob"] = true
	rep, err = eng.RunAction(ctx, "guild1", dispatch.Request[string]{
		Action:  dispatch.ActionBan,
		ActorID: "mod",
		Targets: []string{"bob", "stranger"},
		Reason:  reason,
	})
	require.NoError(t, err)
	assert.Equal(dispatch.NoAccess, rep.Results[0].Outcome)
	assert.Equal(dispatch.Success, rep.Results[1].Outcome)
	assert.Equal([]string{
		`ban bob days=1 reason="mod#1234 (ID: mod): No reason provided."`,
		`ban stranger days=1 reason="mod#1234 (ID: mod): No reason provided."`,
	}, api.calls)

	rep, err = eng.RunAction(ctx, "guild1", dispatch.Request[string]{
		Action:  dispatch.ActionUnban,
		ActorID: "mod",
		Targets: []string{"stranger", "alice"},
	})
	require.NoError(t, err)
	assert.Equal(dispatch.Success, rep.Results[0].Outcome)
	assert.Equal(dispatch.NotFound, rep.Results[1].Outcome)
	assert.Equal("1/2", rep.Summary())
}

func TestSoftban(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	api := newFakeGuild()
	eng, _ := testEngine(t, api)

	rep, err := eng.RunAction(ctx, "guild1", dispatch.Request[string]{
		Action:  dispatch.ActionSoftban,
		ActorID: "mod",
		Targets: []string{"alice"},
	})
	require.NoError(t, err)
	assert.Equal(dispatch.Success, rep.Results[0].Outcome)
	assert.Len(api.calls, 2)
	assert.Equal("unban alice", api.calls[1])
	assert.False(api.bans["alice"])
	_, member := api.members["alice"]
	assert.False(member)

	// a failed ban is never followed by an unban
	api.calls = nil
	api.protected["bob"] = true
	rep, err = eng.RunAction(ctx, "guild1", dispatch.Request[string]{
		Action:  dispatch.ActionSoftban,
		ActorID: "mod",
		Targets: []string{"bob"},
	})
	require.NoError(t, err)
	assert.Equal(dispatch.NoAccess, rep.Results[0].Outcome)
	assert.Len(api.calls, 1)
}

func TestRoleActions(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	api := newFakeGuild()
	eng, p := testEngine(t, api)

	rep, err := eng.RunRoleAction(ctx, "guild1", "helper", dispatch.Request[string]{
		Action:  dispatch.ActionAddRole,
		ActorID: "mod",
		Targets: []string{"alice"},
	})
	require.NoError(t, err)
	assert.Equal(dispatch.Success, rep.Results[0].Outcome)
	assert.Contains(api.members["alice"], "helper")

	// the cached rank was dropped, so alice's new position is seen
	m, err := p.member(ctx, "guild1", "alice")
	assert.NoError(err)
	assert.Equal(5, m.Rank)

	rep, err = eng.RunRoleAction(ctx, "guild1", "admin", dispatch.Request[string]{
		Action:  dispatch.ActionAddRole,
		ActorID: "mod",
		Targets: []string{"bob"},
	})
	require.NoError(t, err)
	assert.Equal(dispatch.PermissionDenied, rep.Results[0].Outcome)
	assert.ErrorIs(rep.Results[0].Err, dispatch.ErrRoleTooHigh)

	rep, err = eng.RunRoleAction(ctx, "guild1", "nosuchrole", dispatch.Request[string]{
		Action:  dispatch.ActionAddRole,
		ActorID: "mod",
		Targets: []string{"bob"},
	})
	require.NoError(t, err)
	assert.Equal(dispatch.NotFound, rep.Results[0].Outcome)

	rep, err = eng.RunRoleAction(ctx, "guild1", "helper", dispatch.Request[string]{
		Action:  dispatch.ActionRemoveRole,
		ActorID: "owner",
		Targets: []string{"alice"},
	})
	require.NoError(t, err)
	assert.Equal(dispatch.Success, rep.Results[0].Outcome)
	assert.NotContains(api.members["alice"], "helper")

	_, err = p.RoleEffect("guild1", "", true)
	assert.ErrorIs(err, dispatch.ErrInvalidRequest)
}

func TestUnsupportedAction(t *testing.T) {
	_, p := testEngine(t, newFakeGuild())
	_, err := p.Effect("guild1", dispatch.ActionClone)
	assert.Error(t, err)
}

func TestMessageHandler(t *testing.T) {
	assert := assert.New(t)
	api := newFakeGuild()
	eng, _ := testEngine(t, api)
	eng.Config.Escalation = engine.Escalation{Ban: true}
	handler := MessageHandler(eng)

	ts := time.Unix(1_700_000_000, 0)
	for i := 0; i < 4; i++ {
		handler(nil, &discordgo.MessageCreate{Message: &discordgo.Message{
			ID:        fmt.Sprintf("m%d", i),
			GuildID:   "guild1",
			ChannelID: "chan1",
			Content:   "buy now",
			Timestamp: ts.Add(time.Duration(i) * time.Second),
			Author:    &discordgo.User{ID: "alice", Username: "alice"},
		}})
	}
	handler(nil, &discordgo.MessageCreate{})

	assert.True(api.bans["alice"])
	require.NotEmpty(t, api.calls)
	assert.Contains(api.calls[0], `reason="modbot#0001 (ID: bot): Automatic ban: content spam"`)
}
