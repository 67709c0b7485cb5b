// Package tags implements per-scope text snippets ("tags") which can be recalled by name or alias, with fuzzy suggestions for near misses.
package tags

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"unicode/utf8"

	"github.com/nutsandbolts/modcore/automod/fuzzy"
	"github.com/nutsandbolts/modcore/automod/helpers"
	"github.com/nutsandbolts/modcore/automod/setstore"
)

const (
	MaxNameLength = 50
	// Cumulative character budget for suggestion lists shown to users
	SuggestionBudget = 1900
	// Name of the set (in the registry's SetStore) of words tag names may not start with
	ReservedSet = "tag-reserved"
)

// Subcommand names, which can not start a tag name.
var DefaultReservedWords = []string{"create", "add", "alias"}

var (
	ErrNameTooLong  = errors.New("tag name is too long")
	ErrEmptyName    = errors.New("tag name is empty")
	ErrReservedName = errors.New("tag name starts with a reserved word")
	ErrTagExists    = errors.New("tag already exists")
	ErrTagNotFound  = errors.New("tag not found")
)

// NotFoundError is returned when a name does not exactly match any tag. It carries near-miss suggestions, already cut down to SuggestionBudget.
type NotFoundError struct {
	Query       string
	Suggestions []string
}

func (e *NotFoundError) Error() string {
	if len(e.Suggestions) == 0 {
		return fmt.Sprintf("tag not found: %q", e.Query)
	}
	return fmt.Sprintf("tag not found: %q (%d suggestions)", e.Query, len(e.Suggestions))
}

func (e *NotFoundError) Unwrap() error {
	return ErrTagNotFound
}

// Tag is a snapshot of a stored tag.
type Tag struct {
	Scope   string
	OwnerID string
	Aliases []string
	Content string
}

func (t *Tag) Name() string {
	if len(t.Aliases) == 0 {
		return ""
	}
	return t.Aliases[0]
}

// Registry holds tags for every scope, in memory. Tags are grouped by the account which created them.
type Registry struct {
	Logger   *slog.Logger
	Reserved setstore.SetStore
	Resolver fuzzy.Resolver

	mu     sync.RWMutex
	scopes map[string]*fuzzy.Collection[string]
}

// NewRegistry creates an empty registry. If reserved is nil, DefaultReservedWords are used.
func NewRegistry(reserved setstore.SetStore, logger *slog.Logger) *Registry {
	if reserved == nil {
		mss := setstore.NewMemSetStore()
		mss.Add(ReservedSet, DefaultReservedWords...)
		reserved = mss
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		Logger:   logger.With("component", "tags"),
		Reserved: reserved,
		scopes:   make(map[string]*fuzzy.Collection[string]),
	}
}

func (r *Registry) checkName(ctx context.Context, name string) error {
	if n := utf8.RuneCountInString(name); n > MaxNameLength {
		return fmt.Errorf("%w: %d characters (%d character max)", ErrNameTooLong, n, MaxNameLength)
	}
	first := helpers.FirstWord(name)
	if first == "" {
		return ErrEmptyName
	}
	reserved, err := r.Reserved.InSet(ctx, ReservedSet, first)
	if err != nil {
		return err
	}
	if reserved {
		return fmt.Errorf("%w: %q", ErrReservedName, first)
	}
	return nil
}

// Create adds a tag to a scope. Names are checked for length and reserved words, and must not exactly match an existing tag name or alias in the scope.
func (r *Registry) Create(ctx context.Context, scope, ownerID, name, content string) error {
	if err := r.checkName(ctx, name); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	coll, ok := r.scopes[scope]
	if !ok {
		coll = fuzzy.NewCollection[string]()
		r.scopes[scope] = coll
	}
	if res := fuzzy.ResolveWith(r.Resolver, name, coll); res.Found() {
		return fmt.Errorf("%w: %q", ErrTagExists, name)
	}
	coll.Add(ownerID, &fuzzy.Record{
		Aliases: []string{name},
		Content: content,
	})
	r.Logger.Info("tag created", "scope", scope, "owner", ownerID, "name", name)
	return nil
}

// Alias adds newName as an alias of the tag currently named oldName. Adding an alias the tag already has is a no-op.
func (r *Registry) Alias(ctx context.Context, scope, oldName, newName string) error {
	if err := r.checkName(ctx, newName); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	res := fuzzy.ResolveWith(r.Resolver, oldName, r.scopes[scope])
	if !res.Found() {
		return &NotFoundError{Query: oldName, Suggestions: TruncateSuggestions(res.Suggestions, SuggestionBudget)}
	}
	if !res.Record.HasAlias(newName) {
		res.Record.Aliases = append(res.Record.Aliases, newName)
		r.Logger.Info("tag alias created", "scope", scope, "name", res.Record.Name(), "alias", newName)
	}
	return nil
}

// Lookup returns the tag with an exact name or alias match, or a *NotFoundError with suggestions.
func (r *Registry) Lookup(ctx context.Context, scope, name string) (*Tag, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := fuzzy.ResolveWith(r.Resolver, name, r.scopes[scope])
	if !res.Found() {
		return nil, &NotFoundError{Query: name, Suggestions: TruncateSuggestions(res.Suggestions, SuggestionBudget)}
	}
	return &Tag{
		Scope:   scope,
		OwnerID: res.Owner,
		Aliases: append([]string{}, res.Record.Aliases...),
		Content: res.Record.Content,
	}, nil
}

// Count returns the number of tags in a scope.
func (r *Registry) Count(scope string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	coll, ok := r.scopes[scope]
	if !ok {
		return 0
	}
	return coll.Len()
}

// TruncateSuggestions keeps the longest prefix of suggestions whose total length (in characters) fits in budget.
func TruncateSuggestions(suggestions []string, budget int) []string {
	total := 0
	for i, s := range suggestions {
		total += utf8.RuneCountInString(s)
		if total > budget {
			return suggestions[:i]
		}
	}
	return suggestions
}
