package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nutsandbolts/modcore/automod/dispatch"
	"github.com/nutsandbolts/modcore/automod/event"
	"github.com/nutsandbolts/modcore/automod/spam"
)

// MockPlatform is an in-memory Platform for tests: a fixed member hierarchy per scope, and a log of effects carried out.
type MockPlatform struct {
	mu      sync.Mutex
	Members map[string]map[string]dispatch.Member
	Banned  map[string]map[string]bool
	// role ID to rank
	RoleRanks map[string]int
	// scope/member to held role IDs
	Roles map[string]map[string]bool
	Calls []string
}

var _ RolePlatform = (*MockPlatform)(nil)

func NewMockPlatform() *MockPlatform {
	return &MockPlatform{
		Members:   make(map[string]map[string]dispatch.Member),
		Banned:    make(map[string]map[string]bool),
		RoleRanks: make(map[string]int),
		Roles:     make(map[string]map[string]bool),
	}
}

func (p *MockPlatform) AddMember(scope string, m dispatch.Member) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Members[scope] == nil {
		p.Members[scope] = make(map[string]dispatch.Member)
	}
	p.Members[scope][m.ID] = m
}

func (p *MockPlatform) lookup(scope string) dispatch.MemberLookup {
	return func(ctx context.Context, id string) (dispatch.Member, error) {
		p.mu.Lock()
		defer p.mu.Unlock()
		m, ok := p.Members[scope][id]
		if !ok {
			return dispatch.Member{}, dispatch.NotFoundError(fmt.Errorf("unknown member %s", id))
		}
		return m, nil
	}
}

func (p *MockPlatform) Authorizer(scope string) dispatch.AuthorizeFunc[string] {
	return dispatch.HierarchyAuthorizer(p.lookup(scope))
}

func (p *MockPlatform) Effect(scope string, action dispatch.Action) (dispatch.EffectFunc[string], error) {
	switch action {
	case dispatch.ActionBan, dispatch.ActionUnban, dispatch.ActionKick:
	default:
		return nil, fmt.Errorf("unsupported action: %s", action)
	}
	return func(ctx context.Context, target string, reason string) error {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.Calls = append(p.Calls, fmt.Sprintf("%s %s/%s", action, scope, target))
		if p.Banned[scope] == nil {
			p.Banned[scope] = make(map[string]bool)
		}
		switch action {
		case dispatch.ActionBan:
			if p.Banned[scope][target] {
				return dispatch.AlreadyInStateError(nil)
			}
			p.Banned[scope][target] = true
		case dispatch.ActionUnban:
			if !p.Banned[scope][target] {
				return dispatch.NotFoundError(nil)
			}
			delete(p.Banned[scope], target)
		case dispatch.ActionKick:
			if _, ok := p.Members[scope][target]; !ok {
				return dispatch.NotFoundError(nil)
			}
			delete(p.Members[scope], target)
		}
		return nil
	}, nil
}

func (p *MockPlatform) RoleAuthorizer(scope, roleID string) dispatch.AuthorizeFunc[string] {
	p.mu.Lock()
	rank, ok := p.RoleRanks[roleID]
	p.mu.Unlock()
	if !ok {
		return func(ctx context.Context, actorID string, target string) error {
			return dispatch.NotFoundError(fmt.Errorf("unknown role %s", roleID))
		}
	}
	return dispatch.RoleAuthorizer(p.lookup(scope), rank)
}

func (p *MockPlatform) RoleEffect(scope, roleID string, add bool) (dispatch.EffectFunc[string], error) {
	return func(ctx context.Context, target string, reason string) error {
		p.mu.Lock()
		defer p.mu.Unlock()
		key := scope + "/" + target
		if add {
			p.Calls = append(p.Calls, fmt.Sprintf("add-role %s %s", roleID, key))
			if p.Roles[key] == nil {
				p.Roles[key] = make(map[string]bool)
			}
			p.Roles[key][roleID] = true
		} else {
			p.Calls = append(p.Calls, fmt.Sprintf("remove-role %s %s", roleID, key))
			delete(p.Roles[key], roleID)
		}
		return nil
	}, nil
}

// MockNotifier records notifications instead of sending them.
type MockNotifier struct {
	mu      sync.Mutex
	Spam    []string
	Reports []string
}

var _ Notifier = (*MockNotifier)(nil)

func (n *MockNotifier) SendSpam(ctx context.Context, msg *event.Message, v spam.Verdict) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Spam = append(n.Spam, fmt.Sprintf("%s/%s:%s", msg.Scope(), msg.AuthorID, v.String()))
	return nil
}

func (n *MockNotifier) SendReport(ctx context.Context, scope string, rep *dispatch.Report[string]) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Reports = append(n.Reports, fmt.Sprintf("%s %s %s", scope, rep.Action, rep.Summary()))
	return nil
}

// EngineTestFixture returns an engine with small spam windows (3 identical messages, or 5 messages in total, per channel in the default periods), a mock platform with an owner, a moderator and two regular members in "guild1" plus "helper" (rank 5) and "admin" (rank 15) roles, and a mock notifier.
func EngineTestFixture() *Engine {
	cfg := Config{
		BotUserID: "bot",
		BotName:   "modbot#0001",
		OwnerID:   "botowner",
	}
	spamCfg := spam.Config{
		ContentCapacity: 3,
		ChannelCapacity: 5,
	}
	eng, err := NewEngine(cfg, spamCfg, dispatch.Config{}, slog.Default())
	if err != nil {
		panic(err)
	}
	p := NewMockPlatform()
	p.AddMember("guild1", dispatch.Member{ID: "owner", IsOwner: true})
	p.AddMember("guild1", dispatch.Member{ID: "bot", Rank: 20})
	p.AddMember("guild1", dispatch.Member{ID: "mod", Rank: 10})
	p.AddMember("guild1", dispatch.Member{ID: "alice", Rank: 1})
	p.AddMember("guild1", dispatch.Member{ID: "bob", Rank: 1})
	p.RoleRanks["helper"] = 5
	p.RoleRanks["admin"] = 15
	eng.Platform = p
	eng.Notifier = &MockNotifier{}
	return eng
}
