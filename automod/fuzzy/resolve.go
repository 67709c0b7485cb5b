// Package fuzzy resolves free-text names against a keyed collection of aliased records.
//
// An exact, case-sensitive alias match always wins and stops the search. Otherwise every alias is scored with the similarity package, and matching aliases are returned as suggestions in the order they were found (owners, then records, then aliases, all in insertion order). Suggestions are not ranked by score.
package fuzzy

import (
	"github.com/nutsandbolts/modcore/automod/similarity"
)

// Default cap on the number of suggestions returned.
const MaxSuggestions = 10

// Result of resolving a query. If Record is nil, the query did not match any alias exactly, and Suggestions may hold near matches.
type Result[K comparable] struct {
	Record      *Record
	Owner       K
	Suggestions []string
}

func (r Result[K]) Found() bool {
	return r.Record != nil
}

// Resolver configures fuzzy resolution. The zero value uses similarity.DefaultScorer and MaxSuggestions.
type Resolver struct {
	Scorer *similarity.Scorer
	// Maximum number of suggestions to collect. Zero means MaxSuggestions.
	Limit int
}

// Resolve runs query against c with the default Resolver.
func Resolve[K comparable](query string, c *Collection[K]) Result[K] {
	return ResolveWith(Resolver{}, query, c)
}

// ResolveWith runs query against c using the provided resolver configuration.
func ResolveWith[K comparable](r Resolver, query string, c *Collection[K]) Result[K] {
	res := Result[K]{Suggestions: []string{}}
	if c.Empty() {
		return res
	}

	scorer := similarity.DefaultScorer
	if r.Scorer != nil {
		scorer = *r.Scorer
	}
	limit := r.Limit
	if limit <= 0 {
		limit = MaxSuggestions
	}

	for _, owner := range c.owners {
		for _, rec := range c.records[owner] {
			for _, alias := range rec.Aliases {
				if alias == query {
					return Result[K]{Record: rec, Owner: owner, Suggestions: []string{}}
				}
				// once the cap is reached only an exact hit can change the outcome
				if len(res.Suggestions) < limit && scorer.IsSimilar(query, alias) {
					res.Suggestions = append(res.Suggestions, alias)
				}
			}
		}
	}
	return res
}
