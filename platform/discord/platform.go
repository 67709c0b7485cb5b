package discord

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/nutsandbolts/modcore/automod/cachestore"
	"github.com/nutsandbolts/modcore/automod/dispatch"
	"github.com/nutsandbolts/modcore/automod/engine"
)

const (
	// messages from the last day are removed on ban and softban
	DefaultDeleteMessageDays = 1
	DefaultHierarchyTTL      = 5 * time.Minute

	// rank given to accounts which are not members of the guild
	outsiderRank = -1
)

// Platform carries out moderation actions in discord guilds. Scopes are guild IDs.
type Platform struct {
	API    GuildAPI
	Logger *slog.Logger
	// Guild owner and role positions, and member ranks, are cached here. Entries are purged after any action which changes them.
	Cache             cachestore.CacheStore
	DeleteMessageDays int
}

var _ engine.RolePlatform = (*Platform)(nil)

func NewPlatform(api GuildAPI, cache cachestore.CacheStore, logger *slog.Logger) *Platform {
	if logger == nil {
		logger = slog.Default()
	}
	if cache == nil {
		cache = cachestore.NewMemCacheStore(10_000, DefaultHierarchyTTL)
	}
	return &Platform{
		API:               api,
		Logger:            logger.With("component", "discord"),
		Cache:             cache,
		DeleteMessageDays: DefaultDeleteMessageDays,
	}
}

// cached hierarchy of a guild
type guildInfo struct {
	OwnerID   string         `json:"owner_id"`
	RoleRanks map[string]int `json:"role_ranks"`
}

func (p *Platform) guild(ctx context.Context, guildID string) (*guildInfo, error) {
	info, ok, err := cachestore.GetJSON[guildInfo](ctx, p.Cache, "guild", guildID)
	if err != nil {
		p.Logger.Warn("hierarchy cache read failed", "err", err, "guild", guildID)
	} else if ok {
		hierarchyCacheCount.WithLabelValues("guild", "hit").Inc()
		return &info, nil
	}
	hierarchyCacheCount.WithLabelValues("guild", "miss").Inc()

	g, err := p.API.Guild(guildID, discordgo.WithContext(ctx))
	if err := p.observe("Guild", err); err != nil {
		return nil, fmt.Errorf("fetching guild %s: %w", guildID, err)
	}
	info = guildInfo{
		OwnerID:   g.OwnerID,
		RoleRanks: make(map[string]int, len(g.Roles)),
	}
	for _, role := range g.Roles {
		info.RoleRanks[role.ID] = role.Position
	}
	if err := cachestore.SetJSON(ctx, p.Cache, "guild", guildID, info); err != nil {
		p.Logger.Warn("hierarchy cache write failed", "err", err, "guild", guildID)
	}
	return &info, nil
}

// highestRank is the position of the member's highest role, or zero (the position of @everyone) for a member with no roles.
func highestRank(info *guildInfo, roleIDs []string) int {
	rank := 0
	for _, roleID := range roleIDs {
		if pos, ok := info.RoleRanks[roleID]; ok && pos > rank {
			rank = pos
		}
	}
	return rank
}

// member resolves userID to a hierarchy position. Accounts which are not in the guild get a rank below everyone, so they can be acted on (eg, banned by ID) but can never act themselves.
func (p *Platform) member(ctx context.Context, guildID, userID string) (dispatch.Member, error) {
	key := guildID + "/" + userID
	m, ok, err := cachestore.GetJSON[dispatch.Member](ctx, p.Cache, "member", key)
	if err != nil {
		p.Logger.Warn("hierarchy cache read failed", "err", err, "guild", guildID, "user", userID)
	} else if ok {
		hierarchyCacheCount.WithLabelValues("member", "hit").Inc()
		return m, nil
	}
	hierarchyCacheCount.WithLabelValues("member", "miss").Inc()

	info, err := p.guild(ctx, guildID)
	if err != nil {
		return dispatch.Member{}, err
	}
	dm, err := p.API.GuildMember(guildID, userID, discordgo.WithContext(ctx))
	err = p.observe("GuildMember", err)
	switch {
	case err == nil:
		m = dispatch.Member{
			ID:      userID,
			Rank:    highestRank(info, dm.Roles),
			IsOwner: userID == info.OwnerID,
		}
	case dispatch.Classify(err) == dispatch.NotFound:
		m = dispatch.Member{ID: userID, Rank: outsiderRank}
	default:
		return dispatch.Member{}, fmt.Errorf("fetching member %s: %w", userID, err)
	}
	if err := cachestore.SetJSON(ctx, p.Cache, "member", key, m); err != nil {
		p.Logger.Warn("hierarchy cache write failed", "err", err, "guild", guildID, "user", userID)
	}
	return m, nil
}

func (p *Platform) lookup(guildID string) dispatch.MemberLookup {
	return func(ctx context.Context, id string) (dispatch.Member, error) {
		return p.member(ctx, guildID, id)
	}
}

func (p *Platform) forget(ctx context.Context, guildID, userID string) {
	if err := p.Cache.Purge(ctx, "member", guildID+"/"+userID); err != nil {
		p.Logger.Warn("hierarchy cache purge failed", "err", err, "guild", guildID, "user", userID)
	}
}

// observe classifies err and counts the call.
func (p *Platform) observe(method string, err error) error {
	err = Classify(err)
	apiCallCount.WithLabelValues(method, dispatch.Classify(err).String()).Inc()
	return err
}

func (p *Platform) Authorizer(guildID string) dispatch.AuthorizeFunc[string] {
	return dispatch.HierarchyAuthorizer(p.lookup(guildID))
}

func (p *Platform) RoleAuthorizer(guildID, roleID string) dispatch.AuthorizeFunc[string] {
	return func(ctx context.Context, actorID string, targetID string) error {
		info, err := p.guild(ctx, guildID)
		if err != nil {
			return err
		}
		rank, ok := info.RoleRanks[roleID]
		if !ok {
			return dispatch.NotFoundError(fmt.Errorf("unknown role %s", roleID))
		}
		return dispatch.RoleAuthorizer(p.lookup(guildID), rank)(ctx, actorID, targetID)
	}
}

func (p *Platform) Effect(guildID string, action dispatch.Action) (dispatch.EffectFunc[string], error) {
	var fn dispatch.EffectFunc[string]
	switch action {
	case dispatch.ActionKick:
		fn = func(ctx context.Context, userID string, reason string) error {
			return p.observe("GuildMemberDelete", p.API.GuildMemberDeleteWithReason(guildID, userID, reason, discordgo.WithContext(ctx)))
		}
	case dispatch.ActionBan:
		fn = func(ctx context.Context, userID string, reason string) error {
			return p.ban(ctx, guildID, userID, reason)
		}
	case dispatch.ActionUnban:
		fn = func(ctx context.Context, userID string, reason string) error {
			return p.observe("GuildBanDelete", p.API.GuildBanDelete(guildID, userID, discordgo.WithContext(ctx)))
		}
	case dispatch.ActionSoftban:
		fn = func(ctx context.Context, userID string, reason string) error {
			if err := p.ban(ctx, guildID, userID, reason); err != nil {
				return err
			}
			if err := p.observe("GuildBanDelete", p.API.GuildBanDelete(guildID, userID, discordgo.WithContext(ctx))); err != nil {
				p.Logger.Error("softban left member banned", "err", err, "guild", guildID, "user", userID)
				return dispatch.UnexpectedError(fmt.Errorf("unban after softban: %w", err))
			}
			return nil
		}
	default:
		return nil, fmt.Errorf("unsupported action: %s", action)
	}
	return func(ctx context.Context, userID string, reason string) error {
		defer p.forget(ctx, guildID, userID)
		return fn(ctx, userID, reason)
	}, nil
}

func (p *Platform) ban(ctx context.Context, guildID, userID, reason string) error {
	return p.observe("GuildBanCreate", p.API.GuildBanCreateWithReason(guildID, userID, reason, p.DeleteMessageDays, discordgo.WithContext(ctx)))
}

func (p *Platform) RoleEffect(guildID, roleID string, add bool) (dispatch.EffectFunc[string], error) {
	if roleID == "" {
		return nil, fmt.Errorf("%w: no role", dispatch.ErrInvalidRequest)
	}
	return func(ctx context.Context, userID string, reason string) error {
		defer p.forget(ctx, guildID, userID)
		if add {
			return p.observe("GuildMemberRoleAdd", p.API.GuildMemberRoleAdd(guildID, userID, roleID, discordgo.WithContext(ctx)))
		}
		return p.observe("GuildMemberRoleRemove", p.API.GuildMemberRoleRemove(guildID, userID, roleID, discordgo.WithContext(ctx)))
	}, nil
}
