// Package similarity decides whether two short strings (tag names, aliases) are "close enough" to be offered as suggestions for each other.
//
// Six heuristics are evaluated and combined with a logical OR: sequence ratio, quick ratio, partial ratio, and the token-sorted variant of each. Every heuristic produces an integer percentage in [0, 100], which is compared against the scorer's threshold with a strict greater-than.
package similarity

import (
	"math"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// DefaultThreshold is compared against integer percentage scores, not against a 0..1 ratio. This means any score of at least 1 passes. Use a threshold like 75 for a "75% similar" cut-off.
const DefaultThreshold = 0.75

// Scorer evaluates the OR of all six heuristics against Threshold.
type Scorer struct {
	// Scores must be strictly greater than Threshold to pass. Scores are integer percentages.
	Threshold float64
}

// Default scorer, using DefaultThreshold
var DefaultScorer = Scorer{Threshold: DefaultThreshold}

// IsSimilar is a shortcut for DefaultScorer.IsSimilar
func IsSimilar(a, b string) bool {
	return DefaultScorer.IsSimilar(a, b)
}

// IsSimilar returns true if any heuristic scores above the threshold.
//
// Two empty strings are similar; an empty string is never similar to a non-empty one.
func (s Scorer) IsSimilar(a, b string) bool {
	if a == "" || b == "" {
		return a == b
	}
	return s.pass(Ratio(a, b)) ||
		s.pass(QuickRatio(a, b)) ||
		s.pass(PartialRatio(a, b)) ||
		s.pass(TokenSortRatio(a, b)) ||
		s.pass(QuickTokenSortRatio(a, b)) ||
		s.pass(PartialTokenSortRatio(a, b))
}

func (s Scorer) pass(score int) bool {
	return float64(score) > s.Threshold
}

// Ratio is the full sequence similarity of a and b as a rounded percentage.
func Ratio(a, b string) int {
	return percent(newMatcher(chars(a), chars(b)).Ratio())
}

// QuickRatio is the cheap upper bound on Ratio, computed from character multisets only.
func QuickRatio(a, b string) int {
	return percent(newMatcher(chars(a), chars(b)).QuickRatio())
}

// PartialRatio aligns the shorter string against windows of the longer one, starting at each matching block, and returns the best windowed ratio.
func PartialRatio(a, b string) int {
	short, long := chars(a), chars(b)
	if len(short) > len(long) {
		short, long = long, short
	}
	if len(short) == 0 && len(long) > 0 {
		return 0
	}

	best := 0.0
	for _, block := range newMatcher(short, long).GetMatchingBlocks() {
		start := block.B - block.A
		if start < 0 {
			start = 0
		}
		end := start + len(short)
		if end > len(long) {
			end = len(long)
		}
		r := newMatcher(short, long[start:end]).Ratio()
		if r > best {
			best = r
		}
	}
	return percent(best)
}

// TokenSortRatio is Ratio over the SortTokens form of both strings.
func TokenSortRatio(a, b string) int {
	return Ratio(SortTokens(a), SortTokens(b))
}

// QuickTokenSortRatio is QuickRatio over the SortTokens form of both strings.
func QuickTokenSortRatio(a, b string) int {
	return QuickRatio(SortTokens(a), SortTokens(b))
}

// PartialTokenSortRatio is PartialRatio over the SortTokens form of both strings.
func PartialTokenSortRatio(a, b string) int {
	return PartialRatio(SortTokens(a), SortTokens(b))
}

func newMatcher(a, b []string) *difflib.SequenceMatcher {
	return difflib.NewMatcher(a, b)
}

// splits into unicode code points; the matcher compares sequences element-wise
func chars(s string) []string {
	return strings.Split(s, "")
}

// rounds half to even
func percent(r float64) int {
	return int(math.RoundToEven(100 * r))
}
